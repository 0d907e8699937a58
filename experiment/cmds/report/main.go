package main

import (
	"log"
	"path/filepath"

	arg "github.com/alexflint/go-arg"
	"github.com/spf13/afero"

	"github.com/replab/replab/experiment/report"
	"github.com/replab/replab/experiment/results"
)

func fail(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	args := struct {
		SummaryPath string `arg:"positional,required,help:aggregated results file to chart"`
		OutputDir   string `arg:"--output-dir,help:where to write the charts"`
		Width       int    `arg:"--width,help:chart width in pixels"`
		Height      int    `arg:"--height,help:chart height in pixels"`
		NumGo       int    `arg:"--num-go,help:concurrent chart renders"`
	}{}
	arg.MustParse(&args)

	log.SetPrefix("[report] ")

	fs := afero.NewOsFs()

	summary, err := results.LoadSummary(fs, args.SummaryPath)
	fail(err)

	outDir := args.OutputDir
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(args.SummaryPath), "report")
	}

	paths, err := report.Render(fs, summary, outDir, report.Options{
		Width:  args.Width,
		Height: args.Height,
		NumGo:  args.NumGo,
	})
	fail(err)

	log.Printf("rendered %d charts under %s", len(paths), outDir)
}
