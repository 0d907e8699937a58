package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replab/replab/experiment/configset"
)

func TestProcArgs(t *testing.T) {
	p := NewProc(Evaluate, "replab-worker")

	inv := Invocation{
		InputDir:  "/out/postprocessed/mean",
		OutputDir: "/out/metrics/mean/mig_0",
		Overwrite: true,
		Configs:   []string{"/configs/metrics/mig.gin"},
		Bindings: configset.Bindings{
			configset.BindSeed("evaluation.random_seed", 99),
			configset.BindString("evaluation.name", "mig_0"),
		},
	}

	assert.Equal(t, []string{
		"evaluate",
		"--input-dir", "/out/postprocessed/mean",
		"--output-dir", "/out/metrics/mean/mig_0",
		"--overwrite",
		"--gin-config", "/configs/metrics/mig.gin",
		"--gin-binding", "evaluation.random_seed = 99",
		"--gin-binding", "evaluation.name = 'mig_0'",
	}, p.Args(inv))
}

func TestProcArgsNoInputDir(t *testing.T) {
	p := NewProc(Train, "replab-worker")

	inv := Invocation{
		OutputDir: "/out/model",
		Configs:   []string{"/configs/models/beta_vae.gin"},
	}

	assert.Equal(t, []string{
		"train",
		"--output-dir", "/out/model",
		"--gin-config", "/configs/models/beta_vae.gin",
	}, p.Args(inv))
}

func TestProcRun(t *testing.T) {
	p := NewProc(Train, "true")
	assert.NoError(t, p.Run(context.Background(), Invocation{OutputDir: "/out/model"}))
}

func TestProcRunFailure(t *testing.T) {
	p := NewProc(Train, "false")

	err := p.Run(context.Background(), Invocation{OutputDir: "/out/model"})
	require.Error(t, err)
	// the wrapped error names the full argv for debugging
	assert.Contains(t, err.Error(), "false train --output-dir /out/model")
}
