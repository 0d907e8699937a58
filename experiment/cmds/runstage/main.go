package main

import (
	"context"
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/replab/replab/experiment/configset"
	"github.com/replab/replab/experiment/stage"
	"github.com/replab/replab/golib/envutil"
)

func init() {
	log.SetPrefix("[runstage] ")
}

type stageFlags struct {
	overwrite *bool
	worker    *string
	configs   *[]string
	bindings  *[]string
}

func addStageFlags(cmd *cobra.Command, withConfigs bool) stageFlags {
	var f stageFlags
	f.overwrite = cmd.Flags().Bool("overwrite", false, "discard pre-existing output")
	f.worker = cmd.Flags().String("worker", defaultWorker(), "stage worker binary")
	if withConfigs {
		f.configs = cmd.Flags().StringArray("gin-config", nil, "config file for the stage, repeatable")
		f.bindings = cmd.Flags().StringArray("gin-binding", nil, "key=value override, repeatable")
	}
	return f
}

func (f stageFlags) invocation(inputDir, outputDir string) (stage.Invocation, error) {
	inv := stage.Invocation{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Overwrite: *f.overwrite,
	}
	if f.configs != nil {
		inv.Configs = *f.configs
	}
	if f.bindings != nil {
		bindings, err := configset.ParseAll(*f.bindings)
		if err != nil {
			return stage.Invocation{}, err
		}
		inv.Bindings = bindings
	}
	return inv, nil
}

func run(name string, f stageFlags, inputDir, outputDir string) {
	fs := afero.NewOsFs()

	inv, err := f.invocation(inputDir, outputDir)
	fail(err)

	fail(stage.PrepareOutputDir(fs, outputDir, inv.Overwrite))

	log.Printf("running %s into %s", name, outputDir)
	fail(stage.NewProc(name, *f.worker).Run(context.Background(), inv))
}

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train OUTPUT_DIR",
		Short: "train a model into the given directory",
		Args:  cobra.ExactArgs(1),
	}
	f := addStageFlags(cmd, true)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		run(stage.Train, f, "", args[0])
	}
	return cmd
}

func postprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postprocess MODEL_DIR OUTPUT_DIR",
		Short: "extract a representation from a trained model",
		Args:  cobra.ExactArgs(2),
	}
	f := addStageFlags(cmd, true)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		run(stage.Postprocess, f, args[0], args[1])
	}
	return cmd
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate POSTPROCESSED_DIR OUTPUT_DIR",
		Short: "score a representation with a metric config",
		Args:  cobra.ExactArgs(2),
	}
	f := addStageFlags(cmd, true)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		run(stage.Evaluate, f, args[0], args[1])
	}
	return cmd
}

func visualizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize MODEL_DIR OUTPUT_DIR",
		Short: "render diagnostics for a trained model",
		Args:  cobra.ExactArgs(2),
	}
	f := addStageFlags(cmd, false)
	cmd.Run = func(cmd *cobra.Command, args []string) {
		run(stage.Visualize, f, args[0], args[1])
	}
	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "runstage",
		Short: "run a single experiment stage through the worker",
	}
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(postprocessCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(visualizeCmd())

	fail(rootCmd.Execute())
}

func fail(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func defaultWorker() string {
	return envutil.GetenvDefault("REPLAB_WORKER", "replab-worker")
}
