package experiment

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/replab/replab/experiment/rundb"
)

// StateWaiting is reported before the pipeline has started running.
const StateWaiting = "waiting"

// StatusResponse is returned by the status endpoint.
type StatusResponse struct {
	State string `json:"state"`
	Err   string `json:"error,omitempty"`
}

// Server exposes a running pipeline's state over HTTP so long sweeps
// can be watched remotely.
type Server struct {
	pipeline *Pipeline
}

// NewServer returns a Server reporting on p.
func NewServer(p *Pipeline) *Server {
	return &Server{pipeline: p}
}

// HandleStatus reports the run's lifecycle state and error, if any.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	info := s.pipeline.RunInfo()

	state := string(info.Status)
	if info.Status == rundb.StatusUnknown {
		state = StateWaiting
	}

	writeJSON(w, StatusResponse{State: state, Err: info.Error})
}

// HandleRunInfo serves the full run record.
func (s *Server) HandleRunInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.pipeline.RunInfo())
}

// SetupRoutes registers the server's endpoints on r.
func (s *Server) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", s.HandleStatus).Methods("GET")
	r.HandleFunc("/api/run-info", s.HandleRunInfo).Methods("GET")
}

// Listen serves the API in a goroutine. A failure to bind is logged
// rather than propagated; the pipeline does not depend on the server.
func (s *Server) Listen(addr string) {
	r := mux.NewRouter()
	s.SetupRoutes(r)

	log.Printf("starting status server on http://%s", addr)
	go func() {
		if err := http.ListenAndServe(addr, r); err != nil {
			log.Printf("status server could not serve on %s: %v", addr, err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("error marshaling JSON: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}
