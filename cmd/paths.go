package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

const (
	appDirName = "domaincheck"
	// dataDirEnvVar overrides the platform data directory.
	dataDirEnvVar = "DOMAINCHECK_DATA_DIR"

	anchorCacheFile = "root-anchors.xml"
)

// getDataDir returns the per-user data directory, creating it if needed.
// On Linux/Unix it follows the XDG Base Directory specification.
func getDataDir() (string, error) {
	if dir := os.Getenv(dataDirEnvVar); dir != "" {
		if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
		return dir, nil
	}

	var baseDir string

	switch runtime.GOOS {
	case "windows":
		// %LOCALAPPDATA%\domaincheck
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		baseDir = filepath.Join(baseDir, appDirName)

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)

	default:
		// $XDG_DATA_HOME/domaincheck > ~/.local/share/domaincheck
		xdgDataHome := os.Getenv("XDG_DATA_HOME")
		if xdgDataHome != "" {
			baseDir = filepath.Join(xdgDataHome, appDirName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share", appDirName)
		}
	}

	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// getResultsDir returns dir, or <data dir>/results when dir is empty. The
// directory is created and returned as an absolute path.
func getResultsDir(dir string) (string, error) {
	if dir == "" {
		dataDir, err := getDataDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(dataDir, "results")
	}

	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir, nil
}

// defaultAnchorCachePath is where downloaded root trust anchors are kept
// when dnssec.anchor_cache is not configured.
func defaultAnchorCachePath() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, anchorCacheFile), nil
}
