package main

import (
	"context"
	"log"
	"path/filepath"

	arg "github.com/alexflint/go-arg"
	"github.com/spf13/afero"

	"github.com/replab/replab/experiment"
	"github.com/replab/replab/experiment/configset"
	"github.com/replab/replab/experiment/results"
	"github.com/replab/replab/experiment/rundb"
	"github.com/replab/replab/experiment/stage"
	"github.com/replab/replab/golib/awsutil"
	"github.com/replab/replab/golib/envutil"
)

func fail(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func defaultWorker() string {
	return envutil.GetenvDefault("REPLAB_WORKER", "replab-worker")
}

func orDefault(cmd, worker string) string {
	if cmd != "" {
		return cmd
	}
	return worker
}

func main() {
	args := struct {
		OutputDir       string   `arg:"positional,required,help:root of the output tree"`
		Study           string   `arg:"--study,help:YAML study manifest providing defaults for the flags below"`
		ModelDir        string   `arg:"--model-dir,help:output root of a previous run whose model is reused; skips training"`
		ModelConfigDir  string   `arg:"--model-config-dir,help:directory holding the training config"`
		ModelConfigName string   `arg:"--model-config-name,help:training config file within the config dir"`
		PostprocessGlob string   `arg:"--postprocess-config-glob,help:glob selecting postprocessing configs"`
		EvaluationGlob  string   `arg:"--evaluation-config-glob,help:glob selecting evaluation configs"`
		NumEval         int      `arg:"--num-eval,help:repetitions of the full evaluation sweep"`
		Scores          []string `arg:"--score,separate,help:metric config name that fans out over training sample sizes"`
		NumSamplesTrain []int    `arg:"--evaluation-num-samples-train,separate,help:training sample size swept for the designated scores"`
		Bindings        []string `arg:"--gin-binding,separate,help:key=value override forwarded to training"`
		RandomSeed      *int64   `arg:"--random-seed,help:master seed; omit for a nondeterministic run"`
		Overwrite       bool     `arg:"--overwrite,help:discard pre-existing stage outputs"`
		RunName         string   `arg:"--run-name,help:label for the run record; defaults to the output basename"`
		Worker          string   `arg:"--worker,help:stage worker binary; defaults to $REPLAB_WORKER"`
		TrainCmd        string   `arg:"--train-cmd,help:worker binary for the train stage only"`
		PostprocessCmd  string   `arg:"--postprocess-cmd,help:worker binary for the postprocess stage only"`
		EvaluateCmd     string   `arg:"--evaluate-cmd,help:worker binary for the evaluate stage only"`
		VisualizeCmd    string   `arg:"--visualize-cmd,help:worker binary for the visualize stage only"`
		StatusAddr      string   `arg:"--status-addr,help:serve run status on this address while the pipeline runs"`
		Upload          string   `arg:"--upload,help:s3 prefix to copy the summary and run record to"`
	}{}
	arg.MustParse(&args)

	log.SetPrefix("[reproduce] ")

	fs := afero.NewOsFs()

	bindings, err := configset.ParseAll(args.Bindings)
	fail(err)

	opts := experiment.Options{
		Name:               args.RunName,
		OutputDir:          args.OutputDir,
		PretrainedModelDir: args.ModelDir,
		ModelConfigDir:     args.ModelConfigDir,
		ModelConfigName:    args.ModelConfigName,
		PostprocessGlob:    args.PostprocessGlob,
		EvaluationGlob:     args.EvaluationGlob,
		NumEval:            args.NumEval,
		ScoresList:         args.Scores,
		NumSamplesTrain:    args.NumSamplesTrain,
		Bindings:           bindings,
		RandomSeed:         args.RandomSeed,
		Overwrite:          args.Overwrite,
	}

	worker := args.Worker
	if args.Study != "" {
		study, err := experiment.LoadStudy(fs, args.Study)
		fail(err)
		fail(study.Apply(&opts))
		if worker == "" {
			worker = study.Worker
		}
	}
	if worker == "" {
		worker = defaultWorker()
	}

	runners := experiment.Runners{
		Train:       stage.NewProc(stage.Train, orDefault(args.TrainCmd, worker)),
		Postprocess: stage.NewProc(stage.Postprocess, orDefault(args.PostprocessCmd, worker)),
		Evaluate:    stage.NewProc(stage.Evaluate, orDefault(args.EvaluateCmd, worker)),
		Visualize:   stage.NewProc(stage.Visualize, orDefault(args.VisualizeCmd, worker)),
	}

	pipe, err := experiment.NewPipeline(fs, opts, runners)
	fail(err)

	if args.StatusAddr != "" {
		experiment.NewServer(pipe).Listen(args.StatusAddr)
	}

	log.Printf("reproducing into %s (worker %s, master seed %d)", args.OutputDir, worker, pipe.MasterSeed())
	fail(pipe.Run(context.Background()))

	if args.Upload != "" {
		fail(upload(fs, args.OutputDir, args.Upload))
	}
}

// upload copies the run's summary artifacts under an s3 prefix.
func upload(fs afero.Fs, outputDir, prefix string) error {
	if _, err := awsutil.ValidateURI(prefix); err != nil {
		return err
	}

	summary := filepath.Join(outputDir, "metrics", results.SummaryFilename)
	if err := awsutil.UploadFile(fs, summary, awsutil.JoinURI(prefix, "metrics", results.SummaryFilename)); err != nil {
		return err
	}

	record := filepath.Join(outputDir, rundb.Filename)
	if err := awsutil.UploadFile(fs, record, awsutil.JoinURI(prefix, rundb.Filename)); err != nil {
		return err
	}

	log.Printf("uploaded summary and run record to %s", prefix)
	return nil
}
