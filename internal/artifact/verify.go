package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFile describes one file entry in manifest.json.
type ManifestFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Manifest mirrors manifest.json.
type Manifest struct {
	Version   string         `json:"version"`
	CreatedAt string         `json:"created_at"`
	Files     []ManifestFile `json:"files"`
}

// ErrNoManifest is returned by VerifyIntegrity when the bundle ships no
// manifest.json.
var ErrNoManifest = errors.New("bundle has no manifest")

// VerifyIntegrity checks every file listed in <dir>/manifest.json against its
// recorded size and sha256.
func VerifyIntegrity(dir string) (*Manifest, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("bundle dir is empty")
	}

	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrArtifactCorrupt, err)
	}

	for _, f := range manifest.Files {
		local, err := resolveBundlePath(dir, filepath.FromSlash(f.Path))
		if err != nil {
			return nil, fmt.Errorf("%w: resolve path %s: %v", ErrArtifactCorrupt, f.Path, err)
		}
		if err := verifyFile(local, f); err != nil {
			return nil, err
		}
	}
	return &manifest, nil
}

func verifyFile(local string, f ManifestFile) error {
	fh, err := os.Open(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, f.Path)
		}
		return fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()

	h := sha256.New()
	n, err := io.Copy(h, fh)
	if err != nil {
		return fmt.Errorf("hash %s: %w", f.Path, err)
	}
	if f.Size > 0 && n != f.Size {
		return fmt.Errorf("%w: size mismatch for %s: expected %d got %d", ErrArtifactCorrupt, f.Path, f.Size, n)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if f.SHA256 != "" && !strings.EqualFold(sum, f.SHA256) {
		return fmt.Errorf("%w: sha256 mismatch for %s: expected %s got %s", ErrArtifactCorrupt, f.Path, f.SHA256, sum)
	}
	return nil
}

// resolveBundlePath joins rel onto dir and refuses anything that would land
// outside dir.
func resolveBundlePath(dir, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path %q not allowed", rel)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes bundle", rel)
	}
	return filepath.Join(dir, clean), nil
}
