package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elavarasan2006/jobrole/internal/artifact/artifacttest"
)

func writeManifest(t *testing.T, dir string) {
	t.Helper()
	var files []ManifestFile
	for _, name := range []string{"classifier.yaml", "model.json", "feature_columns.json", "label_map.json", "encoders.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		sum := sha256.Sum256(data)
		files = append(files, ManifestFile{Path: name, SHA256: hex.EncodeToString(sum[:]), Size: int64(len(data))})
	}
	artifacttest.WriteJSON(t, filepath.Join(dir, "manifest.json"), Manifest{Version: "v1", Files: files})
}

func TestVerifyIntegrity(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	writeManifest(t, dir)

	m, err := VerifyIntegrity(dir)
	require.NoError(t, err)
	assert.Equal(t, "v1", m.Version)
	assert.Len(t, m.Files, 5)
}

func TestVerifyIntegrityNoManifest(t *testing.T) {
	_, err := VerifyIntegrity(artifacttest.WriteDefault(t))
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestVerifyIntegrityDetectsTampering(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	writeManifest(t, dir)
	artifacttest.WriteFile(t, filepath.Join(dir, "label_map.json"), []byte(`["a","b","c","d","e"]`))

	_, err := VerifyIntegrity(dir)
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestVerifyIntegrityMissingFile(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	writeManifest(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "model.json")))

	_, err := VerifyIntegrity(dir)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestVerifyIntegrityRejectsTraversal(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	artifacttest.WriteJSON(t, filepath.Join(dir, "manifest.json"), Manifest{Files: []ManifestFile{{Path: "../../etc/passwd"}}})

	_, err := VerifyIntegrity(dir)
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestResolveBundlePathBlocksTraversal(t *testing.T) {
	_, err := resolveBundlePath("/tmp/bundle", "../evil")
	assert.Error(t, err)
	_, err = resolveBundlePath("/tmp/bundle", "/abs/path")
	assert.Error(t, err)
	_, err = resolveBundlePath("/tmp/bundle", "a/../../b")
	assert.Error(t, err)
	_, err = resolveBundlePath("/tmp/bundle", " ")
	assert.Error(t, err)
}

func TestResolveBundlePathAllowsSafe(t *testing.T) {
	got, err := resolveBundlePath("/tmp/bundle", "models/model.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/bundle", "models", "model.json"), got)

	got, err = resolveBundlePath("/tmp/bundle", "a/../model.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/bundle", "model.json"), got)
}
