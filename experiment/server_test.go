package experiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Pipeline, *mux.Router) {
	fs := standardFS(t)
	writeConfigs(t, fs, "/configs/models/beta_vae.gin")

	pipe, err := NewPipeline(fs, standardOptions("/out"), newFakes().runners())
	require.NoError(t, err)

	router := mux.NewRouter()
	NewServer(pipe).SetupRoutes(router)
	return pipe, router
}

func getJSON(t *testing.T, router *mux.Router, path string, v interface{}) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
	}
	return w.Code
}

func TestStatusEndpoint(t *testing.T) {
	pipe, router := newTestServer(t)

	var status StatusResponse
	code := getJSON(t, router, "/api/status", &status)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, StateWaiting, status.State)

	require.NoError(t, pipe.Run(context.Background()))

	code = getJSON(t, router, "/api/status", &status)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "finished", status.State)
	assert.Empty(t, status.Err)
}

func TestRunInfoEndpoint(t *testing.T) {
	pipe, router := newTestServer(t)
	require.NoError(t, pipe.Run(context.Background()))

	var info struct {
		Pipeline string
		Seeds    []uint32
	}
	code := getJSON(t, router, "/api/run-info", &info)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reproduce", info.Pipeline)
	assert.Len(t, info.Seeds, 5)
}
