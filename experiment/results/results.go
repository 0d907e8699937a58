package results

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/replab/replab/golib/fileutil"
)

// DefaultPattern locates per-evaluation result files under an output
// root. Every evaluate invocation writes its scores at this depth, so
// the aggregator needs no in-memory linkage to the stages that ran.
const DefaultPattern = "metrics/*/*/results/aggregate/evaluation.json"

// SummaryFilename is the merged artifact written under <root>/metrics.
const SummaryFilename = "aggregated_results.json"

// Record is one parsed evaluation result plus provenance fields
// injected during aggregation.
type Record map[string]interface{}

// Summary merges every discovered evaluation result, keyed by
// "<postprocess>/<metric>".
type Summary struct {
	Count   int               `json:"count"`
	Results map[string]Record `json:"results"`
}

// Aggregate scans root for evaluation results matching pattern and
// merges them into a Summary. A relative pattern is interpreted
// against root. Zero matches is not an error and produces an empty
// summary, since an empty fan-out legitimately evaluates nothing.
func Aggregate(fs afero.Fs, root, pattern string) (Summary, error) {
	glob := pattern
	if !filepath.IsAbs(glob) {
		glob = filepath.Join(root, pattern)
	}

	matches, err := afero.Glob(fs, glob)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "bad result glob %s", glob)
	}
	sort.Strings(matches)

	summary := Summary{Results: make(map[string]Record)}
	for _, match := range matches {
		data, err := afero.ReadFile(fs, match)
		if err != nil {
			return Summary{}, errors.Wrapf(err, "error reading %s", match)
		}

		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return Summary{}, errors.Wrapf(err, "error parsing %s", match)
		}

		key, post, metric := resultKey(root, match)
		record["postprocess"] = post
		record["metric"] = metric
		record["path"] = match
		summary.Results[key] = record
	}
	summary.Count = len(summary.Results)
	return summary, nil
}

// WriteSummary serializes summary to path.
func WriteSummary(fs afero.Fs, path string, summary Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshalling summary")
	}
	return fileutil.WriteFile(fs, path, data)
}

// LoadSummary reads a summary back from path.
func LoadSummary(fs afero.Fs, path string) (Summary, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Summary{}, errors.Wrapf(err, "error reading %s", path)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, errors.Wrapf(err, "error decoding %s", path)
	}
	return summary, nil
}

// resultKey derives the distinguishing key for a result file from its
// path under root. In the standard layout the postprocessing name and
// metric name are the two segments after "metrics". Trees produced by
// custom patterns fall back to the whole relative path.
func resultKey(root, path string) (key, post, metric string) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	parts := strings.Split(rel, "/")
	if len(parts) >= 3 && parts[0] == "metrics" {
		return parts[1] + "/" + parts[2], parts[1], parts[2]
	}
	return rel, "", ""
}
