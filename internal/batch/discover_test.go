package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFindsThreadDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "bob", "200", DefaultInputFileName))
	touch(t, filepath.Join(root, "alice", "100", DefaultInputFileName))
	touch(t, filepath.Join(root, "alice", "deep", "nested", "300", DefaultInputFileName))
	touch(t, filepath.Join(root, "alice", "101", "other.json"))
	touch(t, filepath.Join(root, ".cache", "400", DefaultInputFileName))

	jobs, err := Discover(root, DefaultInputFileName, DefaultOutputFileName)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join(root, "alice", "100", DefaultInputFileName),
		filepath.Join(root, "alice", "deep", "nested", "300", DefaultInputFileName),
		filepath.Join(root, "bob", "200", DefaultInputFileName),
	}
	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d: %+v", len(jobs), len(want), jobs)
	}
	for i, job := range jobs {
		if job.SourcePath != want[i] {
			t.Errorf("job %d = %s, want %s", i, job.SourcePath, want[i])
		}
		if job.OutputPath != filepath.Join(filepath.Dir(want[i]), DefaultOutputFileName) {
			t.Errorf("job %d output = %s", i, job.OutputPath)
		}
		if job.Status != StatusPending {
			t.Errorf("job %d status = %s", i, job.Status)
		}
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), DefaultInputFileName, DefaultOutputFileName)
	if !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	touch(t, file)
	_, err = Discover(file, DefaultInputFileName, DefaultOutputFileName)
	if !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound for file root, got %v", err)
	}
}

func TestDiscoverEmptyRoot(t *testing.T) {
	jobs, err := Discover(t.TempDir(), DefaultInputFileName, DefaultOutputFileName)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}
