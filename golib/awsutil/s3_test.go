package awsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsS3URI(t *testing.T) {
	assert.True(t, IsS3URI("s3://bucket/key"))
	assert.False(t, IsS3URI("/var/data/output"))
	assert.False(t, IsS3URI("https://bucket.s3.amazonaws.com/key"))
}

func TestValidateURI(t *testing.T) {
	s3url, err := ValidateURI("s3://experiments/runs/0")
	require.NoError(t, err)
	assert.Equal(t, "experiments", s3url.Host)
	assert.Equal(t, "/runs/0", s3url.Path)

	_, err = ValidateURI("file:///tmp/runs")
	assert.Error(t, err)

	_, err = ValidateURI("s3://")
	assert.Error(t, err)
}

func TestJoinURI(t *testing.T) {
	assert.Equal(t, "s3://experiments/runs/0/aggregated_results.json",
		JoinURI("s3://experiments/runs/0", "aggregated_results.json"))
	assert.Equal(t, "s3://experiments/runs/0/metrics/mig",
		JoinURI("s3://experiments/runs/0/", "metrics", "mig"))
}
