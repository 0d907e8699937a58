package fileutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Exists returns whether a file or directory exists at the given path.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// NonEmpty returns whether dir exists and contains at least one entry.
// A missing directory is reported as empty.
func NonEmpty(fs afero.Fs, dir string) (bool, error) {
	info, err := fs.Stat(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, errors.Errorf("%s exists but is not a directory", dir)
	}

	f, err := fs.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	names, err := f.Readdirnames(1)
	if err != nil && len(names) == 0 {
		// io.EOF for an empty directory
		return false, nil
	}
	return len(names) > 0, nil
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "error creating parent directory for %s", path)
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// NewWriter opens path for writing, creating parent directories as needed.
// Prior contents of the file are truncated.
func NewWriter(fs afero.Fs, path string) (afero.File, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating parent directory for %s", path)
	}
	return fs.Create(path)
}
