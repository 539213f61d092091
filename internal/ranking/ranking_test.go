package ranking

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elavarasan2006/jobrole/internal/artifact"
)

type fakeProba struct {
	probs []float64
	err   error
}

func (f fakeProba) NumFeatures() int                          { return 0 }
func (f fakeProba) NumClasses() int                           { return len(f.probs) }
func (f fakeProba) Close() error                              { return nil }
func (f fakeProba) Predict([]float32) (int, error)            { return 0, f.err }
func (f fakeProba) PredictProba([]float32) ([]float64, error) { return f.probs, f.err }

type fakeLabel struct {
	idx int
	err error
}

func (f fakeLabel) NumFeatures() int               { return 0 }
func (f fakeLabel) NumClasses() int                { return 0 }
func (f fakeLabel) Close() error                   { return nil }
func (f fakeLabel) Predict([]float32) (int, error) { return f.idx, f.err }

var roles = []string{"Backend Developer", "Data Scientist", "Frontend Developer", "Full Stack Developer", "ML Engineer"}

func bundleWith(c artifact.Classifier) *artifact.Bundle {
	return artifact.NewBundle("test", c, []string{"x"}, artifact.NewDecoder(roles), nil, nil)
}

func TestRankTopThree(t *testing.T) {
	b := bundleWith(fakeProba{probs: []float64{0.5, 0.3, 0.1, 0.06, 0.04}})

	got, err := NewPredictor(3, 0).Rank([]float32{0}, b)
	require.NoError(t, err)
	assert.Equal(t, "Backend Developer", got.Prediction)
	assert.Equal(t, 50.0, got.Confidence)
	assert.Equal(t, []string{"Data Scientist", "Frontend Developer"}, got.Suggestions)
	require.Len(t, got.Ranked, 3)
	assert.Equal(t, []float64{50.0, 30.0, 10.0}, []float64{got.Ranked[0].Confidence, got.Ranked[1].Confidence, got.Ranked[2].Confidence})
	assert.Zero(t, got.Padded)
}

func TestRankUnsortedDistribution(t *testing.T) {
	b := bundleWith(fakeProba{probs: []float64{0.04, 0.06, 0.1, 0.3, 0.5}})

	got, err := NewPredictor(3, 0).Rank(nil, b)
	require.NoError(t, err)
	assert.Equal(t, "ML Engineer", got.Prediction)
	assert.Equal(t, []string{"Full Stack Developer", "Frontend Developer"}, got.Suggestions)
}

func TestRankTiesKeepClassOrder(t *testing.T) {
	b := bundleWith(fakeProba{probs: []float64{0.2, 0.2, 0.2, 0.2, 0.2}})

	got, err := NewPredictor(4, 0).Rank(nil, b)
	require.NoError(t, err)
	assert.Equal(t, "Backend Developer", got.Prediction)
	assert.Equal(t, []string{"Data Scientist", "Frontend Developer", "Full Stack Developer"}, got.Suggestions)
	assert.Equal(t, 20.0, got.Confidence)
}

func TestRankSingleLabelClassifier(t *testing.T) {
	b := bundleWith(fakeLabel{idx: 2})

	got, err := NewPredictor(3, 0).Rank(nil, b)
	require.NoError(t, err)
	assert.Equal(t, "Frontend Developer", got.Prediction)
	assert.Equal(t, DefaultConfidence, got.Confidence)
	assert.Equal(t, []string{"Frontend Developer Specialist", "Frontend Developer Specialist Expert"}, got.Suggestions)
	assert.Equal(t, 2, got.Padded)
	assert.Len(t, got.Ranked, 1)
}

func TestRankUnknownIndexUsesDecimal(t *testing.T) {
	b := bundleWith(fakeLabel{idx: 11})

	got, err := NewPredictor(2, 90).Rank(nil, b)
	require.NoError(t, err)
	assert.Equal(t, "11", got.Prediction)
	assert.Equal(t, 90.0, got.Confidence)
	assert.Equal(t, []string{"11 Specialist"}, got.Suggestions)
}

func TestRankFewerClassesThanN(t *testing.T) {
	b := artifact.NewBundle("test", fakeProba{probs: []float64{0.25, 0.75}}, []string{"x"}, artifact.NewDecoder([]string{"A", "B"}), nil, nil)

	got, err := NewPredictor(4, 0).Rank(nil, b)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Prediction)
	assert.Equal(t, 75.0, got.Confidence)
	assert.Equal(t, []string{"A", "A Expert", "A Expert Expert"}, got.Suggestions)
	assert.Equal(t, 2, got.Padded)
}

func TestRankClassifierFailure(t *testing.T) {
	boom := errors.New("feature shape mismatch: got 1, want 23")

	_, err := NewPredictor(3, 0).Rank(nil, bundleWith(fakeProba{err: boom}))
	assert.ErrorIs(t, err, ErrPrediction)
	assert.ErrorContains(t, err, "shape mismatch")

	_, err = NewPredictor(3, 0).Rank(nil, bundleWith(fakeLabel{err: boom}))
	assert.ErrorIs(t, err, ErrPrediction)

	_, err = NewPredictor(3, 0).Rank(nil, bundleWith(fakeProba{probs: []float64{}}))
	assert.ErrorIs(t, err, ErrPrediction)
}

func TestRankRejectsNonFiniteProbabilities(t *testing.T) {
	cases := map[string][]float64{
		"nan first":    {math.NaN(), 0.2, 0.7, 0.05, 0.05},
		"nan later":    {0.7, 0.2, math.NaN(), 0.05, 0.05},
		"positive inf": {0.1, math.Inf(1), 0.2, 0.3, 0.4},
		"negative inf": {0.1, 0.2, 0.3, 0.4, math.Inf(-1)},
	}
	for name, probs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPredictor(3, 0).Rank(nil, bundleWith(fakeProba{probs: probs}))
			require.ErrorIs(t, err, ErrPrediction)
			assert.ErrorContains(t, err, "non-finite")
		})
	}
}

func TestTopNRanksNaNLast(t *testing.T) {
	dec := artifact.NewDecoder([]string{"A", "B", "C"})
	for _, probs := range [][]float64{
		{math.NaN(), 0.2, 0.7},
		{0.2, math.NaN(), 0.7},
		{0.2, 0.7, math.NaN()},
	} {
		got := TopN(probs, 3, dec)
		require.Len(t, got, 3)
		assert.Equal(t, 70.0, got[0].Confidence)
		assert.Equal(t, 20.0, got[1].Confidence)
		assert.Equal(t, 0.0, got[2].Confidence)
		assert.True(t, math.IsNaN(probs[got[2].Index]))
	}
}

func TestRankLinearBundle(t *testing.T) {
	c, err := artifact.NewLinearClassifier([][]float64{{0}, {0}}, []float64{0, 1})
	require.NoError(t, err)
	b := artifact.NewBundle("test", artifact.LabelOnly(c), []string{"x"}, artifact.NewDecoder([]string{"A", "B"}), nil, nil)

	got, err := NewPredictor(3, 0).Rank([]float32{1}, b)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Prediction)
	assert.Equal(t, DefaultConfidence, got.Confidence)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 6.0, Percent(0.06))
	assert.Equal(t, 33.33, Percent(1.0/3))
	assert.Equal(t, 66.67, Percent(2.0/3))
	assert.Equal(t, 100.0, Percent(1.2))
	assert.Equal(t, 0.0, Percent(-0.1))
}

func TestAssembleEmpty(t *testing.T) {
	got := Assemble(nil, 3)
	assert.Empty(t, got.Prediction)
	assert.Empty(t, got.Suggestions)
}

func TestNewPredictorDefaults(t *testing.T) {
	p := NewPredictor(0, -1)
	assert.Equal(t, DefaultTopN, p.TopN())
	assert.Equal(t, DefaultConfidence, p.defaultConfidence)
}
