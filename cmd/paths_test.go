package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetDataDirEnvOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv(dataDirEnvVar, dir)

	got, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir: %v", err)
	}
	if got != dir {
		t.Fatalf("got %s, want %s", got, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("data directory not created: %v", err)
	}
}

func TestGetDataDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG layout only applies to Linux/Unix")
	}
	xdg := t.TempDir()
	t.Setenv(dataDirEnvVar, "")
	t.Setenv("XDG_DATA_HOME", xdg)

	got, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir: %v", err)
	}
	if want := filepath.Join(xdg, appDirName); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestGetResultsDir(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	got, err := getResultsDir("")
	if err != nil {
		t.Fatalf("getResultsDir: %v", err)
	}
	if want := filepath.Join(dataDir, "results"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	explicit := filepath.Join(t.TempDir(), "runs")
	got, err = getResultsDir(explicit)
	if err != nil {
		t.Fatalf("getResultsDir(%s): %v", explicit, err)
	}
	if got != explicit {
		t.Fatalf("got %s, want %s", got, explicit)
	}
	if _, err := os.Stat(explicit); err != nil {
		t.Fatalf("results directory not created: %v", err)
	}
}

func TestDefaultAnchorCachePath(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	got, err := defaultAnchorCachePath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dataDir, anchorCacheFile); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
