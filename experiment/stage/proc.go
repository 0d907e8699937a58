package stage

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Proc runs a stage by shelling out to an external worker binary. The
// worker receives the stage name as its subcommand followed by the
// invocation rendered as flags.
type Proc struct {
	Stage   string
	Command string
	// Stdout and Stderr default to the parent's streams so long
	// training runs remain observable.
	Stdout io.Writer
	Stderr io.Writer
}

// NewProc returns a Proc running the named stage via command.
func NewProc(stage, command string) Proc {
	return Proc{Stage: stage, Command: command}
}

// Args renders the worker argv for inv, without the binary name.
func (p Proc) Args(inv Invocation) []string {
	args := []string{p.Stage}
	if inv.InputDir != "" {
		args = append(args, "--input-dir", inv.InputDir)
	}
	args = append(args, "--output-dir", inv.OutputDir)
	if inv.Overwrite {
		args = append(args, "--overwrite")
	}
	for _, config := range inv.Configs {
		args = append(args, "--gin-config", config)
	}
	for _, binding := range inv.Bindings.Strings() {
		args = append(args, "--gin-binding", binding)
	}
	return args
}

// Run implements Runner.
func (p Proc) Run(ctx context.Context, inv Invocation) error {
	args := p.Args(inv)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Stdout = p.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "error running `%s %s`", p.Command, strings.Join(args, " "))
	}
	return nil
}
