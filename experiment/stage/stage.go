package stage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/replab/replab/experiment/configset"
	"github.com/replab/replab/golib/fileutil"
)

// Names of the pipeline stages, used for worker subcommands and
// run-record parameters.
const (
	Train       = "train"
	Postprocess = "postprocess"
	Evaluate    = "evaluate"
	Visualize   = "visualize"
)

// Invocation carries everything a stage needs for one run. It is
// assembled per call and never persisted; each stage is responsible
// for persisting its own outputs under OutputDir.
type Invocation struct {
	// InputDir is the upstream artifact consumed by the stage. Empty
	// for stages that take all input through configuration.
	InputDir  string
	OutputDir string
	Overwrite bool
	Configs   []string
	Bindings  configset.Bindings
}

// Runner executes one pipeline stage to completion. The orchestrator
// treats the stage's configuration language as opaque; it only
// assembles config files and bindings.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// PrepareOutputDir enforces the overwrite policy for dir and creates
// it. Without overwrite, a non-empty dir is a hard error so stale and
// fresh outputs never mix. With overwrite, prior contents are
// discarded before the stage runs.
func PrepareOutputDir(fs afero.Fs, dir string, overwrite bool) error {
	nonEmpty, err := fileutil.NonEmpty(fs, dir)
	if err != nil {
		return err
	}
	if nonEmpty {
		if !overwrite {
			return errors.Errorf("output directory %s already contains results, pass overwrite to discard them", dir)
		}
		if err := fs.RemoveAll(dir); err != nil {
			return errors.Wrapf(err, "error clearing %s", dir)
		}
	}
	return fs.MkdirAll(dir, 0755)
}
