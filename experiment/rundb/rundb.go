package rundb

import (
	"encoding/json"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/replab/replab/golib/fileutil"
)

// Filename is the run record written at the root of an experiment's
// output tree.
const Filename = "run-info.json"

// Status describes the status of the given run.
type Status string

const (
	// StatusUnknown is the default status
	StatusUnknown Status = ""
	// StatusStarted is set when the pipeline has started running.
	StatusStarted Status = "started"
	// StatusFinished is set when the pipeline has successfully finished.
	StatusFinished Status = "finished"
	// StatusError is set when the pipeline has errored out before it could successfully finish.
	StatusError Status = "error"
)

// Result describes a named piece of data saved inline with the run
// record for displaying.
type Result struct {
	Name  string
	Value interface{}
}

// RunInfo describes a pipeline run, containing the results as well as
// some metadata.
type RunInfo struct {
	Pipeline  string
	Name      string
	CreatedAt time.Time

	// Params represents the parameters used to launch the run.
	Params map[string]interface{}

	GitCommitHash string
	GitBranch     string

	// Seeds lists every stage seed drawn during the run, in draw order.
	Seeds []uint32

	Results []Result

	Error         string
	Status        Status
	StatusUpdated time.Time
}

// NewRunInfo creates a new RunInfo, using the current time as the
// timestamp.
func NewRunInfo(pipeline string, name string) RunInfo {
	hash, branch := gitHashAndBranch()

	return RunInfo{
		Pipeline:      pipeline,
		Name:          name,
		CreatedAt:     time.Now().UTC(),
		GitCommitHash: hash,
		GitBranch:     branch,
	}
}

// SetStatus updates the status of the RunInfo.
func (r *RunInfo) SetStatus(s Status) {
	r.Status = s
	r.StatusUpdated = time.Now().UTC()
}

// SetError records err and marks the run as failed.
func (r *RunInfo) SetError(err error) {
	r.Error = err.Error()
	r.SetStatus(StatusError)
}

// AddResult appends a named result to the record.
func (r *RunInfo) AddResult(name string, value interface{}) {
	r.Results = append(r.Results, Result{Name: name, Value: value})
}

// Save writes the record under dir.
func (r RunInfo) Save(fs afero.Fs, dir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshalling run info")
	}
	return fileutil.WriteFile(fs, filepath.Join(dir, Filename), data)
}

// Load reads the run record stored under dir.
func Load(fs afero.Fs, dir string) (RunInfo, error) {
	path := filepath.Join(dir, Filename)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return RunInfo{}, errors.Wrapf(err, "error reading %s", path)
	}

	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return RunInfo{}, errors.Wrapf(err, "error decoding %s", path)
	}
	return info, nil
}

// gitValue shells out to the git CLI and falls back to an environment
// variable when the repo state is unavailable. Returns a blank string
// if neither source works.
func gitValue(envVar string, args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		log.Printf("error getting git %s via CLI, using $%s: %v", args[len(args)-1], envVar, err)
		return os.Getenv(envVar)
	}
	return strings.TrimSpace(string(out))
}

func gitHashAndBranch() (string, string) {
	hash := gitValue("GIT_HASH", "rev-parse", "HEAD")
	branch := gitValue("GIT_BRANCH", "rev-parse", "--abbrev-ref", "HEAD")
	return hash, branch
}
