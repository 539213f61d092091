package artifact

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elavarasan2006/jobrole/internal/artifact/artifacttest"
)

func TestLinearClassifierPredict(t *testing.T) {
	c, err := NewLinearClassifier([][]float64{
		{1, 0},
		{0, 1},
		{0.5, 0.5},
	}, []float64{0, 0, 0.1})
	require.NoError(t, err)

	idx, err := c.Predict([]float32{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = c.Predict([]float32{0, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	probs, err := c.PredictProba([]float32{1, 1})
	require.NoError(t, err)
	require.Len(t, probs, 3)
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, probs[2], probs[0])
}

func TestLinearClassifierTiesGoToLowerIndex(t *testing.T) {
	c, err := NewLinearClassifier([][]float64{{1}, {1}, {1}}, nil)
	require.NoError(t, err)
	idx, err := c.Predict([]float32{3})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestLinearClassifierShapeMismatch(t *testing.T) {
	c, err := NewLinearClassifier([][]float64{{1, 2}}, nil)
	require.NoError(t, err)

	_, err = c.Predict([]float32{1})
	assert.ErrorContains(t, err, "feature shape mismatch")
	_, err = c.PredictProba([]float32{1, 2, 3})
	assert.ErrorContains(t, err, "feature shape mismatch")
}

func TestNewLinearClassifierValidates(t *testing.T) {
	_, err := NewLinearClassifier(nil, nil)
	assert.Error(t, err)
	_, err = NewLinearClassifier([][]float64{{}}, nil)
	assert.Error(t, err)
	_, err = NewLinearClassifier([][]float64{{1, 2}, {1}}, nil)
	assert.Error(t, err)
	_, err = NewLinearClassifier([][]float64{{1}, {2}}, []float64{0})
	assert.Error(t, err)
}

func TestLabelOnlyHidesProbabilities(t *testing.T) {
	c, err := NewLinearClassifier([][]float64{{1}, {2}}, nil)
	require.NoError(t, err)

	var wrapped Classifier = LabelOnly(c)
	_, ok := wrapped.(ProbabilityClassifier)
	assert.False(t, ok)
	assert.Equal(t, 1, wrapped.NumFeatures())
	assert.Equal(t, 2, wrapped.NumClasses())
}

func TestSoftmax(t *testing.T) {
	out := softmax([]float64{math.Log(0.5), math.Log(0.3), math.Log(0.2)})
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.2}, out, 1e-12)
	assert.Nil(t, softmax(nil))
}

func TestLoadClassifierSpecDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.yaml")

	artifacttest.WriteFile(t, path, []byte("format: ONNX\nnum_features: 23\n"))
	spec, err := loadClassifierSpec(path)
	require.NoError(t, err)
	assert.Equal(t, FormatONNX, spec.Format)
	assert.Equal(t, "model.onnx", spec.File)
	assert.Equal(t, "float_input", spec.Input)
	assert.Equal(t, "label", spec.LabelOutput)
	assert.Empty(t, spec.ProbabilityOutput)
	assert.Equal(t, 23, spec.NumFeatures)

	artifacttest.WriteFile(t, path, []byte("format: linear\n"))
	spec, err = loadClassifierSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "model.json", spec.File)

	artifacttest.WriteFile(t, path, []byte("file: x\n"))
	_, err = loadClassifierSpec(path)
	assert.Error(t, err)
}
