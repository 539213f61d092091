package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classifier is a trained model that maps one feature row to a class index.
type Classifier interface {
	// NumFeatures is the input width the model was trained with, or 0 when
	// the model does not declare it.
	NumFeatures() int
	// NumClasses is the number of classes, or 0 when undeclared.
	NumClasses() int
	// Predict returns the index of the most likely class.
	Predict(features []float32) (int, error)
	Close() error
}

// ProbabilityClassifier is a Classifier that exposes the full class
// distribution. Index i of the result is the probability of class i.
type ProbabilityClassifier interface {
	Classifier
	PredictProba(features []float32) ([]float64, error)
}

// Classifier formats understood by classifier.yaml.
const (
	FormatONNX   = "onnx"
	FormatLinear = "linear"
)

// ClassifierSpec mirrors classifier.yaml.
type ClassifierSpec struct {
	Format string `yaml:"format"`
	File   string `yaml:"file"`

	// ONNX graph bindings. An empty ProbabilityOutput means the graph only
	// emits a label.
	Input             string `yaml:"input"`
	LabelOutput       string `yaml:"label_output"`
	ProbabilityOutput string `yaml:"probability_output"`

	NumFeatures  int `yaml:"num_features"`
	NumClasses   int `yaml:"num_classes"`
	IntraThreads int `yaml:"intra_op_threads"`
	InterThreads int `yaml:"inter_op_threads"`
}

func loadClassifierSpec(path string) (ClassifierSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClassifierSpec{}, err
	}
	var spec ClassifierSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return ClassifierSpec{}, err
	}
	spec.Format = strings.ToLower(strings.TrimSpace(spec.Format))
	spec.File = strings.TrimSpace(spec.File)
	switch spec.Format {
	case FormatONNX:
		if spec.File == "" {
			spec.File = "model.onnx"
		}
		if spec.Input == "" {
			spec.Input = "float_input"
		}
		if spec.LabelOutput == "" {
			spec.LabelOutput = "label"
		}
	case FormatLinear:
		if spec.File == "" {
			spec.File = "model.json"
		}
	case "":
		return ClassifierSpec{}, errors.New("classifier format is empty")
	default:
		return ClassifierSpec{}, fmt.Errorf("unsupported classifier format %q", spec.Format)
	}
	return spec, nil
}

// linearModel mirrors model.json for the linear format.
type linearModel struct {
	Weights       [][]float64 `json:"weights"`
	Bias          []float64   `json:"bias"`
	Probabilities *bool       `json:"probabilities"`
}

// LinearClassifier scores each class as w·x + b and turns the scores into a
// distribution with softmax. It is safe for concurrent use.
type LinearClassifier struct {
	weights [][]float64
	bias    []float64
	width   int
}

// NewLinearClassifier validates weights (classes × features) and bias.
func NewLinearClassifier(weights [][]float64, bias []float64) (*LinearClassifier, error) {
	if len(weights) == 0 {
		return nil, errors.New("linear model has no classes")
	}
	width := len(weights[0])
	if width == 0 {
		return nil, errors.New("linear model has no features")
	}
	for i, row := range weights {
		if len(row) != width {
			return nil, fmt.Errorf("linear model row %d has %d weights, want %d", i, len(row), width)
		}
	}
	if bias == nil {
		bias = make([]float64, len(weights))
	}
	if len(bias) != len(weights) {
		return nil, fmt.Errorf("linear model has %d biases for %d classes", len(bias), len(weights))
	}
	return &LinearClassifier{weights: weights, bias: bias, width: width}, nil
}

func (c *LinearClassifier) NumFeatures() int { return c.width }
func (c *LinearClassifier) NumClasses() int  { return len(c.weights) }
func (c *LinearClassifier) Close() error     { return nil }

func (c *LinearClassifier) scores(features []float32) ([]float64, error) {
	if len(features) != c.width {
		return nil, fmt.Errorf("feature shape mismatch: got %d, want %d", len(features), c.width)
	}
	out := make([]float64, len(c.weights))
	for k, row := range c.weights {
		s := c.bias[k]
		for j, w := range row {
			s += w * float64(features[j])
		}
		out[k] = s
	}
	return out, nil
}

// Predict returns the highest-scoring class; ties go to the lower index.
func (c *LinearClassifier) Predict(features []float32) (int, error) {
	s, err := c.scores(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for k := 1; k < len(s); k++ {
		if s[k] > s[best] {
			best = k
		}
	}
	return best, nil
}

// PredictProba returns softmax(w·x + b).
func (c *LinearClassifier) PredictProba(features []float32) ([]float64, error) {
	s, err := c.scores(features)
	if err != nil {
		return nil, err
	}
	return softmax(s), nil
}

// labelOnly hides PredictProba from a classifier that must behave as a
// single-label model.
type labelOnly struct {
	Classifier
}

// LabelOnly wraps c so it no longer satisfies ProbabilityClassifier.
func LabelOnly(c Classifier) Classifier {
	return labelOnly{Classifier: c}
}

func loadLinearClassifier(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m linearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	c, err := NewLinearClassifier(m.Weights, m.Bias)
	if err != nil {
		return nil, err
	}
	if m.Probabilities != nil && !*m.Probabilities {
		return LabelOnly(c), nil
	}
	return c, nil
}

func loadClassifier(dir string, spec ClassifierSpec, ortLibrary string) (Classifier, error) {
	path, err := resolveBundlePath(dir, filepath.FromSlash(spec.File))
	if err != nil {
		return nil, err
	}
	switch spec.Format {
	case FormatLinear:
		return loadLinearClassifier(path)
	case FormatONNX:
		c, err := loadONNXClassifier(path, spec, ortLibrary)
		if err != nil {
			return nil, err
		}
		// Single-label graphs must not satisfy ProbabilityClassifier.
		if !c.HasProbabilities() {
			return LabelOnly(c), nil
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported classifier format %q", spec.Format)
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxVal := scores[0]
	for _, v := range scores[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float64, len(scores))
	for i, v := range scores {
		e := math.Exp(v - maxVal)
		out[i] = e
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
