package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBundleStateNotFound is returned when state.json is missing.
var ErrBundleStateNotFound = errors.New("bundle state not found")

// BundleState tracks the active and previous bundle versions under a base
// directory.
type BundleState struct {
	CurrentVersion  string `json:"current_version"`
	PreviousVersion string `json:"previous_version,omitempty"`
}

func stateFilePath(baseDir string) string {
	return filepath.Join(baseDir, stateFile)
}

// LoadBundleState reads <base>/state.json.
func LoadBundleState(baseDir string) (BundleState, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return BundleState{}, errors.New("baseDir is empty")
	}

	data, err := os.ReadFile(stateFilePath(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return BundleState{}, ErrBundleStateNotFound
		}
		return BundleState{}, fmt.Errorf("read bundle state: %w", err)
	}

	var state BundleState
	if err := json.Unmarshal(data, &state); err != nil {
		return BundleState{}, fmt.Errorf("decode bundle state: %w", err)
	}
	state.CurrentVersion = strings.TrimSpace(state.CurrentVersion)
	state.PreviousVersion = strings.TrimSpace(state.PreviousVersion)
	return state, nil
}

// SaveBundleState writes <base>/state.json atomically.
func SaveBundleState(baseDir string, state BundleState) error {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return errors.New("baseDir is empty")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create bundle base dir: %w", err)
	}

	state.CurrentVersion = strings.TrimSpace(state.CurrentVersion)
	state.PreviousVersion = strings.TrimSpace(state.PreviousVersion)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle state: %w", err)
	}

	tmpFile, err := os.CreateTemp(baseDir, "state.json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), stateFilePath(baseDir)); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// ResolveDir returns the directory holding the active bundle and its version.
// With a state.json under base the active bundle is <base>/<current_version>;
// without one, base itself is the bundle and the version is empty.
func ResolveDir(baseDir string) (string, string, error) {
	state, err := LoadBundleState(baseDir)
	switch {
	case errors.Is(err, ErrBundleStateNotFound):
		return baseDir, "", nil
	case err != nil:
		return "", "", fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	if state.CurrentVersion == "" {
		return "", "", fmt.Errorf("%w: state.json has no current_version", ErrArtifactCorrupt)
	}
	dir, err := resolveBundlePath(baseDir, state.CurrentVersion)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	return dir, state.CurrentVersion, nil
}

// Promote makes version current and remembers the old current version for
// Rollback.
func Promote(baseDir, version string) (BundleState, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return BundleState{}, errors.New("version is empty")
	}
	dir, err := resolveBundlePath(baseDir, version)
	if err != nil {
		return BundleState{}, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return BundleState{}, fmt.Errorf("%w: bundle version %s", ErrArtifactMissing, version)
	}

	state, err := LoadBundleState(baseDir)
	if err != nil && !errors.Is(err, ErrBundleStateNotFound) {
		return BundleState{}, err
	}
	if state.CurrentVersion == version {
		return state, nil
	}
	next := BundleState{CurrentVersion: version, PreviousVersion: state.CurrentVersion}
	if err := SaveBundleState(baseDir, next); err != nil {
		return BundleState{}, err
	}
	return next, nil
}

// Rollback swaps the current and previous versions in state.json.
func Rollback(baseDir string) (BundleState, error) {
	state, err := LoadBundleState(baseDir)
	if err != nil {
		return BundleState{}, err
	}
	if state.PreviousVersion == "" {
		return BundleState{}, errors.New("no previous bundle version to roll back to")
	}
	next := BundleState{CurrentVersion: state.PreviousVersion, PreviousVersion: state.CurrentVersion}
	if err := SaveBundleState(baseDir, next); err != nil {
		return BundleState{}, err
	}
	return next, nil
}
