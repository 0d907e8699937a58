package experiment

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/replab/replab/experiment/configset"
	"github.com/replab/replab/experiment/results"
	"github.com/replab/replab/experiment/rundb"
	"github.com/replab/replab/experiment/seeds"
	"github.com/replab/replab/experiment/stage"
)

// Runners bundles the stage implementations the pipeline drives. Each
// is an opaque collaborator; the pipeline only sequences them and
// hands them directories, configs and bindings.
type Runners struct {
	Train       stage.Runner
	Postprocess stage.Runner
	Evaluate    stage.Runner
	Visualize   stage.Runner
}

// Options configure a full reproduction run.
type Options struct {
	// Name labels the run record. Defaults to the output directory's
	// basename.
	Name string

	// OutputDir is the root of the output tree.
	OutputDir string

	// PretrainedModelDir points at the output root of a previous run
	// whose model should be reused. Training is skipped when set.
	PretrainedModelDir string

	// ModelConfigDir and ModelConfigName locate the training config.
	// Required unless PretrainedModelDir is set.
	ModelConfigDir  string
	ModelConfigName string

	// PostprocessGlob and EvaluationGlob select the postprocessing and
	// evaluation config fan-out sets.
	PostprocessGlob string
	EvaluationGlob  string

	// NumEval repeats the full evaluation sweep. Defaults to 1.
	NumEval int

	// ScoresList names the metric configs that additionally fan out
	// over NumSamplesTrain training-set sizes.
	ScoresList      []string
	NumSamplesTrain []int

	// Bindings are user overrides forwarded to the training stage.
	Bindings configset.Bindings

	// RandomSeed is the master seed every stage seed derives from.
	// Nil draws one from the clock, making the run nondeterministic.
	RandomSeed *int64

	// Overwrite discards pre-existing stage outputs instead of
	// failing on them.
	Overwrite bool
}

func (o Options) params(masterSeed int64) map[string]interface{} {
	params := map[string]interface{}{
		"output_dir":              o.OutputDir,
		"postprocess_config_glob": o.PostprocessGlob,
		"evaluation_config_glob":  o.EvaluationGlob,
		"num_eval":                o.NumEval,
		"random_seed":             masterSeed,
		"overwrite":               o.Overwrite,
	}
	if o.PretrainedModelDir != "" {
		params["pretrained_model_dir"] = o.PretrainedModelDir
	} else {
		params["model_config_dir"] = o.ModelConfigDir
		params["model_config_name"] = o.ModelConfigName
	}
	if len(o.ScoresList) > 0 {
		params["scores_list"] = o.ScoresList
		params["evaluation_num_samples_train"] = o.NumSamplesTrain
	}
	if len(o.Bindings) > 0 {
		params["gin_bindings"] = o.Bindings.Strings()
	}
	return params
}

// Pipeline sequences one reproduction run: train or reuse a model,
// visualize it, postprocess it once per discovered config, evaluate
// every (repetition, representation, metric) combination and aggregate
// the scores. Stages run strictly sequentially since the seed
// derivation order is the contract that makes runs comparable.
type Pipeline struct {
	fs         afero.Fs
	opts       Options
	runners    Runners
	seq        *seeds.Sequencer
	masterSeed int64

	mu   sync.Mutex
	info rundb.RunInfo
}

// NewPipeline validates opts and prepares a run over fs. Precondition
// violations are reported here, before anything touches the output
// tree.
func NewPipeline(fs afero.Fs, opts Options, runners Runners) (*Pipeline, error) {
	if opts.OutputDir == "" {
		return nil, errors.Errorf("an output directory is required")
	}
	if len(opts.ScoresList) > 0 && len(opts.NumSamplesTrain) == 0 {
		return nil, errors.Errorf("scores %v fan out over training sample sizes but none were given", opts.ScoresList)
	}
	if opts.PostprocessGlob == "" || opts.EvaluationGlob == "" {
		return nil, errors.Errorf("postprocessing and evaluation config globs are required")
	}
	if opts.PretrainedModelDir == "" && (opts.ModelConfigDir == "" || opts.ModelConfigName == "") {
		return nil, errors.Errorf("a model config dir and name are required when no pretrained model is given")
	}
	if opts.NumEval < 0 {
		return nil, errors.Errorf("the evaluation repetition count cannot be negative, got %d", opts.NumEval)
	}
	if opts.NumEval == 0 {
		opts.NumEval = 1
	}
	if runners.Postprocess == nil || runners.Evaluate == nil || runners.Visualize == nil {
		return nil, errors.Errorf("postprocess, evaluate and visualize runners are required")
	}
	if opts.PretrainedModelDir == "" && runners.Train == nil {
		return nil, errors.Errorf("a train runner is required when no pretrained model is given")
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(opts.OutputDir)
	}

	masterSeed := time.Now().UnixNano()
	if opts.RandomSeed != nil {
		masterSeed = *opts.RandomSeed
	}

	info := rundb.NewRunInfo("reproduce", opts.Name)
	info.Params = opts.params(masterSeed)

	return &Pipeline{
		fs:         fs,
		opts:       opts,
		runners:    runners,
		seq:        seeds.New(masterSeed),
		masterSeed: masterSeed,
		info:       info,
	}, nil
}

// MasterSeed returns the seed every stage seed is derived from. When
// Options.RandomSeed was nil this is the clock-drawn value.
func (p *Pipeline) MasterSeed() int64 {
	return p.masterSeed
}

// RunInfo returns a snapshot of the run record.
func (p *Pipeline) RunInfo() rundb.RunInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Run executes the pipeline to completion. Any stage failure aborts
// the run, visualization excepted, and no partial results are cleaned
// up; the run record under the output root reflects the outcome either
// way.
func (p *Pipeline) Run(ctx context.Context) error {
	p.setStatus(rundb.StatusStarted)

	// Persisting the started record up front doubles as a writability
	// check on the output root before any stage spends time.
	if err := p.RunInfo().Save(p.fs, p.opts.OutputDir); err != nil {
		return err
	}

	err := p.run(ctx)

	p.mu.Lock()
	p.info.Seeds = p.seq.Drawn()
	if err != nil {
		p.info.SetError(err)
	} else {
		p.info.SetStatus(rundb.StatusFinished)
	}
	p.mu.Unlock()

	if saveErr := p.RunInfo().Save(p.fs, p.opts.OutputDir); saveErr != nil {
		log.Printf("error saving run info: %v", saveErr)
		if err == nil {
			err = saveErr
		}
	}
	return err
}

func (p *Pipeline) run(ctx context.Context) error {
	// The model seed is drawn whether or not training runs, so a run
	// reusing a pretrained model stays seed-aligned with the run that
	// produced it.
	modelSeed := p.seq.Draw()

	modelDir, err := p.trainOrReuse(ctx, modelSeed)
	if err != nil {
		return err
	}

	p.visualize(ctx, modelDir)

	posts, err := p.postprocess(ctx, modelDir)
	if err != nil {
		return err
	}

	if err := p.evaluate(ctx, posts); err != nil {
		return err
	}

	return p.aggregate()
}

func (p *Pipeline) trainOrReuse(ctx context.Context, seed uint32) (string, error) {
	if p.opts.PretrainedModelDir != "" {
		modelDir := filepath.Join(p.opts.PretrainedModelDir, "model")
		log.Printf("skipping training, reusing model at %s", modelDir)
		return modelDir, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	modelDir := filepath.Join(p.opts.OutputDir, "model")
	config := filepath.Join(p.opts.ModelConfigDir, p.opts.ModelConfigName)
	name := configset.DeriveName(p.opts.ModelConfigName)

	bindings := configset.Bindings{
		configset.BindSeed("model.random_seed", seed),
		configset.BindString("model.name", name),
	}
	bindings = append(bindings, p.opts.Bindings...)

	log.Printf("training model %s (seed %d)", name, seed)
	if err := stage.PrepareOutputDir(p.fs, modelDir, p.opts.Overwrite); err != nil {
		return "", err
	}
	if err := p.runners.Train.Run(ctx, stage.Invocation{
		OutputDir: modelDir,
		Overwrite: p.opts.Overwrite,
		Configs:   []string{config},
		Bindings:  bindings,
	}); err != nil {
		return "", errors.Wrap(err, "training failed")
	}
	return modelDir, nil
}

// visualize renders model diagnostics. Failures are recorded on the
// run instead of aborting it, since visualizations feed no downstream
// stage.
func (p *Pipeline) visualize(ctx context.Context, modelDir string) {
	outDir := filepath.Join(p.opts.OutputDir, "visualizations")
	log.Printf("visualizing model at %s", modelDir)

	err := stage.PrepareOutputDir(p.fs, outDir, p.opts.Overwrite)
	if err == nil {
		err = p.runners.Visualize.Run(ctx, stage.Invocation{
			InputDir:  modelDir,
			OutputDir: outDir,
			Overwrite: p.opts.Overwrite,
		})
	}
	if err != nil {
		log.Printf("visualization failed: %v", err)
		p.addResult("visualization_error", err.Error())
		return
	}
	p.addResult("visualizations", outDir)
}

func (p *Pipeline) postprocess(ctx context.Context, modelDir string) ([]configset.Config, error) {
	configs, err := configset.Resolve(p.fs, p.opts.PostprocessGlob)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		log.Printf("no postprocessing configs match %s", p.opts.PostprocessGlob)
		return nil, nil
	}

	for _, config := range configs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seed := p.seq.Draw()
		outDir := filepath.Join(p.opts.OutputDir, "postprocessed", config.Name)

		bindings := configset.Bindings{
			configset.BindSeed("postprocess.random_seed", seed),
			configset.BindString("postprocess.name", config.Name),
		}

		log.Printf("postprocessing %s (seed %d)", config.Name, seed)
		if err := stage.PrepareOutputDir(p.fs, outDir, p.opts.Overwrite); err != nil {
			return nil, err
		}
		if err := p.runners.Postprocess.Run(ctx, stage.Invocation{
			InputDir:  modelDir,
			OutputDir: outDir,
			Overwrite: p.opts.Overwrite,
			Configs:   []string{config.Path},
			Bindings:  bindings,
		}); err != nil {
			return nil, errors.Wrapf(err, "postprocessing %s failed", config.Name)
		}
	}
	p.addResult("postprocess_invocations", len(configs))
	return configs, nil
}

func (p *Pipeline) evaluate(ctx context.Context, posts []configset.Config) error {
	metrics, err := configset.Resolve(p.fs, p.opts.EvaluationGlob)
	if err != nil {
		return err
	}

	multiSample := make(map[string]bool, len(p.opts.ScoresList))
	for _, name := range p.opts.ScoresList {
		multiSample[name] = true
	}

	// Repetition index is the outermost loop, postprocessing name the
	// middle one, metric config the innermost, with sample size as a
	// further fan-out for designated metrics. Reordering these loops
	// reshuffles every drawn seed and silently breaks comparability
	// with previous runs.
	var invocations int
	for rep := 0; rep < p.opts.NumEval; rep++ {
		for _, post := range posts {
			for _, metric := range metrics {
				if multiSample[metric.Name] {
					for _, numTrain := range p.opts.NumSamplesTrain {
						id := fmt.Sprintf("%s_%d_%d", metric.Name, numTrain, rep)
						extra := configset.Bindings{configset.BindInt("evaluation.num_train", numTrain)}
						if err := p.evaluateOne(ctx, post, metric, id, extra); err != nil {
							return err
						}
						invocations++
					}
					continue
				}

				id := fmt.Sprintf("%s_%d", metric.Name, rep)
				if err := p.evaluateOne(ctx, post, metric, id, nil); err != nil {
					return err
				}
				invocations++
			}
		}
	}
	p.addResult("evaluate_invocations", invocations)
	return nil
}

func (p *Pipeline) evaluateOne(ctx context.Context, post, metric configset.Config, id string, extra configset.Bindings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seed := p.seq.Draw()
	inDir := filepath.Join(p.opts.OutputDir, "postprocessed", post.Name)
	outDir := filepath.Join(p.opts.OutputDir, "metrics", post.Name, id)

	bindings := configset.Bindings{
		configset.BindSeed("evaluation.random_seed", seed),
		configset.BindString("evaluation.name", id),
	}
	bindings = append(bindings, extra...)

	log.Printf("evaluating %s/%s (seed %d)", post.Name, id, seed)
	if err := stage.PrepareOutputDir(p.fs, outDir, p.opts.Overwrite); err != nil {
		return err
	}
	if err := p.runners.Evaluate.Run(ctx, stage.Invocation{
		InputDir:  inDir,
		OutputDir: outDir,
		Overwrite: p.opts.Overwrite,
		Configs:   []string{metric.Path},
		Bindings:  bindings,
	}); err != nil {
		return errors.Wrapf(err, "evaluating %s/%s failed", post.Name, id)
	}
	return nil
}

func (p *Pipeline) aggregate() error {
	summary, err := results.Aggregate(p.fs, p.opts.OutputDir, results.DefaultPattern)
	if err != nil {
		return err
	}

	path := filepath.Join(p.opts.OutputDir, "metrics", results.SummaryFilename)
	if err := results.WriteSummary(p.fs, path, summary); err != nil {
		return err
	}
	log.Printf("aggregated %d results into %s", summary.Count, path)
	p.addResult("aggregated_results", summary.Count)
	return nil
}

func (p *Pipeline) setStatus(s rundb.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.info.SetStatus(s)
}

func (p *Pipeline) addResult(name string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.info.AddResult(name, value)
}
