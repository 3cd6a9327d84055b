package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"threadcast/internal/fileutil"
	"threadcast/internal/services"
)

// ErrRootNotFound is returned when the batch root does not exist or is not a
// directory.
var ErrRootNotFound = errors.New("batch root not found")

// Discover walks root and returns one pending job per directory containing
// inputName, in lexical order. Hidden directories are not descended into.
func Discover(root, inputName, outputName string) ([]Job, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, services.Wrap(services.ErrIO, "batch", "discover", "stat root", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	var dirs []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped; the root itself must be readable.
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if fileutil.Exists(filepath.Join(path, inputName)) {
			dirs = append(dirs, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, services.Wrap(services.ErrIO, "batch", "discover", "walk root", walkErr)
	}

	sort.Strings(dirs)
	jobs := make([]Job, 0, len(dirs))
	for _, dir := range dirs {
		jobs = append(jobs, NewJob(filepath.Join(dir, inputName), filepath.Join(dir, outputName)))
	}
	return jobs, nil
}
