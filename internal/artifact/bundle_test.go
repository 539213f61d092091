package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elavarasan2006/jobrole/internal/artifact/artifacttest"
)

func TestLoadDefaultBundle(t *testing.T) {
	dir := artifacttest.WriteDefault(t)

	b, err := Load(dir, Options{Version: "dev"})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "dev", b.Version())
	assert.Equal(t, dir, b.Dir())
	assert.True(t, b.SupportsProbabilities())
	assert.Equal(t, artifacttest.Default().Columns, b.ExpectedColumns())
	assert.Equal(t, len(b.ExpectedColumns()), b.NumColumns())
	assert.Equal(t, "Data Scientist", b.Decoder().Label(1))

	enc, err := b.Encoders()
	require.NoError(t, err)
	deg, ok := enc.Category("Degree")
	require.True(t, ok)
	assert.Equal(t, 2, deg.Code("MCA"))
	skills, ok := enc.MultiLabel("Skills")
	require.True(t, ok)
	assert.Equal(t, "HTML", skills.Default())
	assert.Equal(t, []string{"Degree", "Major", "Preferred Industry", "Specialization"}, enc.CategoryFields())
}

func TestLoadMissingRequiredFile(t *testing.T) {
	for _, name := range []string{"classifier.yaml", "feature_columns.json", "label_map.json", "model.json"} {
		t.Run(name, func(t *testing.T) {
			dir := artifacttest.WriteDefault(t)
			require.NoError(t, os.Remove(filepath.Join(dir, name)))

			_, err := Load(dir, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArtifactMissing)
		})
	}
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), Options{})
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoadCorruptFiles(t *testing.T) {
	cases := map[string]string{
		"classifier.yaml":      "format: [",
		"feature_columns.json": "[]",
		"label_map.json":       "{\"x\": \"y\"}",
		"model.json":           "{\"weights\": []}",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := artifacttest.WriteDefault(t)
			artifacttest.WriteFile(t, filepath.Join(dir, name), []byte(content))

			_, err := Load(dir, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArtifactCorrupt)
		})
	}
}

func TestLoadRejectsColumnCountMismatch(t *testing.T) {
	spec := artifacttest.Default()
	dir := artifacttest.Write(t, t.TempDir(), spec)
	artifacttest.WriteJSON(t, filepath.Join(dir, "feature_columns.json"), spec.Columns[:4])

	_, err := Load(dir, Options{})
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	artifacttest.WriteFile(t, filepath.Join(dir, "classifier.yaml"), []byte("format: xgboost\n"))

	_, err := Load(dir, Options{})
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoadModelPathTraversal(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	artifacttest.WriteFile(t, filepath.Join(dir, "classifier.yaml"), []byte("format: linear\nfile: ../model.json\n"))

	_, err := Load(dir, Options{})
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoadWithoutEncodersRecordsError(t *testing.T) {
	spec := artifacttest.Default()
	spec.OmitEncoders = true
	dir := artifacttest.Write(t, t.TempDir(), spec)

	b, err := Load(dir, Options{})
	require.NoError(t, err)

	enc, err := b.Encoders()
	assert.Nil(t, enc)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoadCorruptEncodersRecordsError(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	artifacttest.WriteFile(t, filepath.Join(dir, "encoders.yaml"), []byte("categorical:\n  Degree: [BCA, BCA]\n"))

	b, err := Load(dir, Options{})
	require.NoError(t, err)

	_, err = b.Encoders()
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoadDefaultLabelOverride(t *testing.T) {
	dir := artifacttest.WriteDefault(t)

	b, err := Load(dir, Options{DefaultLabels: map[string]string{"Skills": "python"}})
	require.NoError(t, err)
	enc, err := b.Encoders()
	require.NoError(t, err)
	skills, _ := enc.MultiLabel("Skills")
	assert.Equal(t, "Python", skills.Default())

	b, err = Load(dir, Options{DefaultLabels: map[string]string{"Skills": "Rust"}})
	require.NoError(t, err)
	_, err = b.Encoders()
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoadSingleLabelBundle(t *testing.T) {
	spec := artifacttest.Default()
	spec.SingleLabel = true
	spec.LabelsAsMap = true
	dir := artifacttest.Write(t, t.TempDir(), spec)

	b, err := Load(dir, Options{})
	require.NoError(t, err)
	assert.False(t, b.SupportsProbabilities())
	assert.Equal(t, "ML Engineer", b.Decoder().Label(4))
}

func TestOpenFollowsState(t *testing.T) {
	base := t.TempDir()
	artifacttest.Write(t, filepath.Join(base, "v1"), artifacttest.Default())
	require.NoError(t, SaveBundleState(base, BundleState{CurrentVersion: "v1"}))

	b, err := Open(base, Options{})
	require.NoError(t, err)
	assert.Equal(t, "v1", b.Version())
	assert.Equal(t, filepath.Join(base, "v1"), b.Dir())
}

func TestOpenUnversioned(t *testing.T) {
	dir := artifacttest.WriteDefault(t)

	b, err := Open(dir, Options{Version: "local"})
	require.NoError(t, err)
	assert.Equal(t, "local", b.Version())
}

func TestLoadVerifiesManifest(t *testing.T) {
	dir := artifacttest.WriteDefault(t)
	writeManifest(t, dir)

	_, err := Load(dir, Options{Verify: true})
	require.NoError(t, err)

	artifacttest.WriteJSON(t, filepath.Join(dir, "feature_columns.json"), []string{"tampered"})
	_, err = Load(dir, Options{Verify: true})
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestNewBundleWithoutEncoders(t *testing.T) {
	c, err := NewLinearClassifier([][]float64{{1}, {0}}, nil)
	require.NoError(t, err)

	b := NewBundle("mem", c, []string{"x"}, NewDecoder([]string{"a", "b"}), nil, nil)
	_, err = b.Encoders()
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.True(t, b.SupportsProbabilities())
}
