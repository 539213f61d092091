// Package ranking turns classifier output into a ranked, confidence-scored
// prediction.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/elavarasan2006/jobrole/internal/artifact"
)

// ErrPrediction wraps every failure of the classifier itself.
var ErrPrediction = errors.New("prediction failed")

const (
	// DefaultTopN is the number of ranked labels returned.
	DefaultTopN = 3
	// DefaultConfidence is reported for classifiers that only emit a label.
	DefaultConfidence = 85.0
)

// Padding qualifiers for synthetic suggestions.
const (
	primarySuffix = " Specialist"
	repeatSuffix  = " Expert"
)

// Scored is one ranked label.
type Scored struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"-"`
}

// Prediction is the final ranked output. Suggestions always hold TopN-1
// entries; trailing ones may be synthetic.
type Prediction struct {
	Prediction  string   `json:"prediction"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions"`
	// Ranked are the model-backed labels only.
	Ranked []Scored `json:"-"`
	// Padded counts synthetic suggestions.
	Padded int `json:"-"`
}

// Predictor ranks classifier output.
type Predictor struct {
	topN              int
	defaultConfidence float64
}

// NewPredictor returns a predictor for the top n labels. Non-positive values
// select the defaults.
func NewPredictor(n int, defaultConfidence float64) *Predictor {
	if n <= 0 {
		n = DefaultTopN
	}
	if defaultConfidence <= 0 || defaultConfidence > 100 {
		defaultConfidence = DefaultConfidence
	}
	return &Predictor{topN: n, defaultConfidence: defaultConfidence}
}

// TopN is the configured ranking depth.
func (p *Predictor) TopN() int { return p.topN }

// Rank runs the bundle's classifier on vec and builds the prediction.
func (p *Predictor) Rank(vec []float32, b *artifact.Bundle) (Prediction, error) {
	ranked, err := p.rank(vec, b.Classifier(), b.Decoder())
	if err != nil {
		return Prediction{}, err
	}
	return Assemble(ranked, p.topN), nil
}

func (p *Predictor) rank(vec []float32, c artifact.Classifier, dec *artifact.Decoder) ([]Scored, error) {
	if pc, ok := c.(artifact.ProbabilityClassifier); ok {
		probs, err := pc.PredictProba(vec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPrediction, err)
		}
		if len(probs) == 0 {
			return nil, fmt.Errorf("%w: classifier returned no probabilities", ErrPrediction)
		}
		for i, v := range probs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite probability %v for class %d", ErrPrediction, v, i)
			}
		}
		return TopN(probs, p.topN, dec), nil
	}

	idx, err := c.Predict(vec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	return []Scored{{Label: dec.Label(idx), Confidence: p.defaultConfidence, Index: idx}}, nil
}

// TopN returns the n most probable classes, highest first. Equal
// probabilities keep class-index order; NaN ranks last.
func TopN(probs []float64, n int, dec *artifact.Decoder) []Scored {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := probs[idx[a]], probs[idx[b]]
		if math.IsNaN(pa) || math.IsNaN(pb) {
			return !math.IsNaN(pa) && math.IsNaN(pb)
		}
		return pa > pb
	})
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]Scored, 0, n)
	for _, i := range idx[:n] {
		out = append(out, Scored{
			Label:      dec.Label(i),
			Confidence: Percent(probs[i]),
			Index:      i,
		})
	}
	return out
}

// Percent renders a probability as a percentage rounded to two decimals.
func Percent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return math.Round(p*100*100) / 100
}

// Assemble builds the output from ranked labels. The first label is the
// prediction; the rest become suggestions, padded to n-1 entries with
// synthetic labels derived from the prediction. Padding carries no model
// evidence.
func Assemble(ranked []Scored, n int) Prediction {
	if len(ranked) == 0 {
		return Prediction{Suggestions: []string{}}
	}
	if n <= 0 {
		n = DefaultTopN
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	primary := ranked[0]
	suggestions := make([]string, 0, n-1)
	for _, s := range ranked[1:] {
		suggestions = append(suggestions, s.Label)
	}
	padded := 0
	for len(suggestions) < n-1 {
		if len(suggestions) == 0 {
			suggestions = append(suggestions, primary.Label+primarySuffix)
		} else {
			suggestions = append(suggestions, suggestions[len(suggestions)-1]+repeatSuffix)
		}
		padded++
	}
	return Prediction{
		Prediction:  primary.Label,
		Confidence:  primary.Confidence,
		Suggestions: suggestions,
		Ranked:      ranked,
		Padded:      padded,
	}
}
