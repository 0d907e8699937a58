package envutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetenvDefault(t *testing.T) {
	require.NoError(t, os.Setenv("ENVUTIL_TEST_SET", "value"))
	defer os.Unsetenv("ENVUTIL_TEST_SET")

	assert.Equal(t, "value", GetenvDefault("ENVUTIL_TEST_SET", "fallback"))
	assert.Equal(t, "fallback", GetenvDefault("ENVUTIL_TEST_UNSET", "fallback"))
}

func TestGetenvDefaultEmptyValue(t *testing.T) {
	require.NoError(t, os.Setenv("ENVUTIL_TEST_EMPTY", ""))
	defer os.Unsetenv("ENVUTIL_TEST_EMPTY")

	assert.Equal(t, "", GetenvDefault("ENVUTIL_TEST_EMPTY", "fallback"))
}
