package report

import (
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	chart "github.com/wcharczuk/go-chart"

	"github.com/replab/replab/experiment/results"
	"github.com/replab/replab/golib/fileutil"
	"github.com/replab/replab/golib/workerpool"
)

// provenance fields injected by aggregation, never charted
var nonScoreFields = map[string]bool{
	"postprocess": true,
	"metric":      true,
	"path":        true,
}

// Options configure chart rendering.
type Options struct {
	// Width and Height of each chart in pixels.
	Width  int
	Height int

	// NumGo bounds how many charts render concurrently.
	NumGo int
}

// DefaultOptions are used wherever an Options field is zero.
var DefaultOptions = Options{
	Width:  1024,
	Height: 512,
	NumGo:  4,
}

func (o Options) orDefaults() Options {
	if o.Width == 0 {
		o.Width = DefaultOptions.Width
	}
	if o.Height == 0 {
		o.Height = DefaultOptions.Height
	}
	if o.NumGo == 0 {
		o.NumGo = DefaultOptions.NumGo
	}
	return o
}

// Render draws one chart per numeric score in summary, with a series
// per postprocessing name so representations can be compared at a
// glance, and writes them as PNGs under outDir. It returns the written
// paths.
func Render(fs afero.Fs, summary results.Summary, outDir string, opts Options) ([]string, error) {
	opts = opts.orDefaults()

	scores := scoreNames(summary)
	if len(scores) == 0 {
		log.Printf("no numeric scores to chart")
		return nil, nil
	}
	if err := fs.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating %s", outDir)
	}

	var paths []string
	var jobs []workerpool.Job
	for _, score := range scores {
		score := score
		path := filepath.Join(outDir, sanitize(score)+".png")
		paths = append(paths, path)
		jobs = append(jobs, func() error {
			return renderScore(fs, summary, score, path, opts)
		})
	}

	pool := workerpool.New(opts.NumGo)
	defer pool.Stop()
	pool.Add(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func renderScore(fs afero.Fs, summary results.Summary, score, path string, opts Options) error {
	series, xMax, yRange := scoreSeries(summary, score)

	graph := chart.Chart{
		Title:      score,
		TitleStyle: chart.StyleShow(),
		Width:      opts.Width,
		Height:     opts.Height,
		XAxis: chart.XAxis{
			Name:      "evaluation",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
			Range:     &chart.ContinuousRange{Min: 0, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:      score,
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
			Range:     yRange,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	f, err := fileutil.NewWriter(fs, path)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "error rendering %s", path)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if info, err := fs.Stat(path); err == nil {
		log.Printf("wrote %s (%s)", path, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// scoreNames collects the keys of every numeric field across all
// records, sorted for a stable chart set.
func scoreNames(summary results.Summary) []string {
	set := make(map[string]bool)
	for _, record := range summary.Results {
		for field, value := range record {
			if nonScoreFields[field] {
				continue
			}
			if _, ok := asFloat(value); ok {
				set[field] = true
			}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// scoreSeries builds one series per postprocessing name, its points
// ordered by metric name. The explicit axis ranges keep single-point
// and flat series renderable.
func scoreSeries(summary results.Summary, score string) ([]chart.Series, float64, *chart.ContinuousRange) {
	type point struct {
		metric string
		value  float64
	}

	groups := make(map[string][]point)
	for key, record := range summary.Results {
		value, ok := asFloat(record[score])
		if !ok {
			continue
		}
		post, _ := record["postprocess"].(string)
		if post == "" {
			post = key
		}
		metric, _ := record["metric"].(string)
		groups[post] = append(groups[post], point{metric: metric, value: value})
	}

	posts := make([]string, 0, len(groups))
	for post := range groups {
		posts = append(posts, post)
	}
	sort.Strings(posts)

	yRange := &chart.ContinuousRange{}
	var xMax float64
	var first = true

	var series []chart.Series
	for i, post := range posts {
		points := groups[post]
		sort.Slice(points, func(a, b int) bool { return points[a].metric < points[b].metric })

		xs := make([]float64, 0, len(points))
		ys := make([]float64, 0, len(points))
		for j, p := range points {
			xs = append(xs, float64(j))
			ys = append(ys, p.value)

			if first || p.value < yRange.Min {
				yRange.Min = p.value
			}
			if first || p.value > yRange.Max {
				yRange.Max = p.value
			}
			first = false
		}
		if last := float64(len(points) - 1); last > xMax {
			xMax = last
		}

		series = append(series, chart.ContinuousSeries{
			Name:    post,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.GetAlternateColor(i),
			},
		})
	}

	if xMax <= 0 {
		xMax = 1
	}
	if yRange.Max <= yRange.Min {
		yRange.Max = yRange.Min + 1
	}
	return series, xMax, yRange
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, string(filepath.Separator), "_")
}
