package configset

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Config is a discovered configuration file plus the name derived from
// its basename with the extension stripped. The name doubles as an
// output directory segment, so it must be unique within a fan-out set;
// two matched files with the same basename collide on disk.
type Config struct {
	Path string
	Name string
}

// DeriveName strips the extension from the basename of path.
func DeriveName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Resolve expands pattern into the set of matching config files, sorted
// lexicographically so that iteration order never depends on the
// underlying filesystem. Zero matches yields an empty set, not an
// error.
func Resolve(fs afero.Fs, pattern string) ([]Config, error) {
	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad config glob %s", pattern)
	}
	sort.Strings(matches)

	var configs []Config
	for _, match := range matches {
		configs = append(configs, Config{Path: match, Name: DeriveName(match)})
	}
	return configs, nil
}
