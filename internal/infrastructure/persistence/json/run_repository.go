package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	"github.com/khanhnv2901/domaincheck/internal/security"
	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// ResultsFile is the name of the file holding a run under its directory.
const ResultsFile = "results.json"

// RunRepository implements run.Repository using one JSON file per run at
// {resultsDir}/{runID}/results.json.
type RunRepository struct {
	resultsDir string
	mu         sync.RWMutex
}

var _ run.Repository = (*RunRepository)(nil)

// NewRunRepository creates a JSON-based run repository
func NewRunRepository(resultsDir string) (*RunRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &RunRepository{resultsDir: resultsDir}, nil
}

// Dir returns the results directory.
func (r *RunRepository) Dir() string {
	return r.resultsDir
}

// Save persists a run with all its results
func (r *RunRepository) Save(ctx context.Context, rn *run.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := r.runPath(rn.ID())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rn.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := security.WriteFileAtomic(filePath, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// FindByID retrieves a run by its ID
func (r *RunRepository) FindByID(ctx context.Context, id string) (*run.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath, err := r.runPath(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrRunNotFound, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rn, err := loadFromFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrRunNotFound, id)
	}
	return rn, err
}

// FindAll retrieves all runs, newest first. Unreadable run files are
// skipped.
func (r *RunRepository) FindAll(ctx context.Context) ([]*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	runs := make([]*run.Run, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || security.ValidateName(entry.Name()) != nil {
			continue
		}
		rn, err := loadFromFile(filepath.Join(r.resultsDir, entry.Name(), ResultsFile))
		if err != nil {
			continue
		}
		runs = append(runs, rn)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt().After(runs[j].StartedAt())
	})
	return runs, nil
}

// Delete removes a run and its directory
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := r.runPath(id)
	if err != nil {
		return fmt.Errorf("%w: %w", sharedErrors.ErrRunNotFound, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", sharedErrors.ErrRunNotFound, id)
	}
	if err := os.RemoveAll(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// runPath validates id and resolves the run's results file.
func (r *RunRepository) runPath(id string) (string, error) {
	if err := security.ValidateName(id); err != nil {
		return "", err
	}
	return security.ResolveWithin(r.resultsDir, id, ResultsFile)
}

func loadFromFile(filePath string) (*run.Run, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var snap run.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sharedErrors.ErrDeserializationFailed, filePath, err)
	}
	return run.Reconstruct(snap)
}
