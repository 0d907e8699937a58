package experiment

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"github.com/replab/replab/experiment/configset"
)

// Study is a reproduction run captured as a YAML manifest, so a whole
// sweep can be relaunched by pointing at one file instead of repeating
// a dozen flags.
type Study struct {
	Name            string   `yaml:"name"`
	ModelConfigDir  string   `yaml:"model_config_dir"`
	ModelConfigName string   `yaml:"model_config_name"`
	PostprocessGlob string   `yaml:"postprocess_config_glob"`
	EvaluationGlob  string   `yaml:"evaluation_config_glob"`
	NumEval         int      `yaml:"num_eval"`
	ScoresList      []string `yaml:"scores_list"`
	NumSamplesTrain []int    `yaml:"evaluation_num_samples_train"`
	Bindings        []string `yaml:"gin_bindings"`

	// Worker overrides the stage worker binary for this study.
	Worker string `yaml:"worker"`
}

// LoadStudy reads a study manifest. A manifest without an explicit
// name is named after its file.
func LoadStudy(fs afero.Fs, path string) (Study, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Study{}, errors.Wrapf(err, "error opening study %s", path)
	}
	defer f.Close()

	var study Study
	if err := yaml.NewDecoder(f).Decode(&study); err != nil {
		return Study{}, errors.Wrapf(err, "error decoding study %s", path)
	}
	if study.Name == "" {
		study.Name = configset.DeriveName(path)
	}
	return study, nil
}

// Apply overlays the study onto opts. Values already set on opts win,
// so command-line flags take precedence over the manifest. Study
// bindings are prepended, letting flag bindings override them in the
// stage's config language.
func (s Study) Apply(opts *Options) error {
	if opts.Name == "" {
		opts.Name = s.Name
	}
	if opts.ModelConfigDir == "" {
		opts.ModelConfigDir = s.ModelConfigDir
	}
	if opts.ModelConfigName == "" {
		opts.ModelConfigName = s.ModelConfigName
	}
	if opts.PostprocessGlob == "" {
		opts.PostprocessGlob = s.PostprocessGlob
	}
	if opts.EvaluationGlob == "" {
		opts.EvaluationGlob = s.EvaluationGlob
	}
	if opts.NumEval == 0 {
		opts.NumEval = s.NumEval
	}
	if len(opts.ScoresList) == 0 {
		opts.ScoresList = s.ScoresList
	}
	if len(opts.NumSamplesTrain) == 0 {
		opts.NumSamplesTrain = s.NumSamplesTrain
	}
	if len(s.Bindings) > 0 {
		bindings, err := configset.ParseAll(s.Bindings)
		if err != nil {
			return errors.Wrapf(err, "study %s has invalid bindings", s.Name)
		}
		opts.Bindings = append(bindings, opts.Bindings...)
	}
	return nil
}
