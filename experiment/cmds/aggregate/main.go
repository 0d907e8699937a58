package main

import (
	"log"
	"path/filepath"

	arg "github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/replab/replab/experiment/results"
	"github.com/replab/replab/golib/awsutil"
)

func fail(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	args := struct {
		OutputDir  string `arg:"positional,required,help:output root containing the metrics tree"`
		Pattern    string `arg:"--pattern,help:result glob; relative patterns resolve against the output root"`
		OutputFile string `arg:"--output-file,help:where to write the summary"`
		Upload     string `arg:"--upload,help:s3 prefix to copy the summary to"`
	}{
		Pattern: results.DefaultPattern,
	}
	arg.MustParse(&args)

	log.SetPrefix("[aggregate] ")

	fs := afero.NewOsFs()

	summary, err := results.Aggregate(fs, args.OutputDir, args.Pattern)
	fail(err)

	out := args.OutputFile
	if out == "" {
		out = filepath.Join(args.OutputDir, "metrics", results.SummaryFilename)
	}
	fail(results.WriteSummary(fs, out, summary))
	if info, err := fs.Stat(out); err == nil {
		log.Printf("aggregated %d results into %s (%s)", summary.Count, out, humanize.Bytes(uint64(info.Size())))
	} else {
		log.Printf("aggregated %d results into %s", summary.Count, out)
	}

	if args.Upload != "" {
		fail(awsutil.UploadFile(fs, out, awsutil.JoinURI(args.Upload, filepath.Base(out))))
		log.Printf("uploaded %s to %s", out, args.Upload)
	}
}
