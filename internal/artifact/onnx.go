package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier runs a classifier exported to ONNX (for example with
// skl2onnx and zipmap disabled). The graph takes a float tensor [1, features]
// and emits an int64 label [1] and, optionally, float probabilities
// [1, classes].
type ONNXClassifier struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	label   *ort.Tensor[int64]
	proba   *ort.Tensor[float32]

	features int
	classes  int

	mu sync.Mutex
}

var ortInitMu sync.Mutex

func initRuntime(bundleDir, libPath string) error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = resolveSharedLibraryPath(bundleDir)
	}
	if libPath == "" {
		return errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or artifacts.ort_library")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

func loadONNXClassifier(modelPath string, spec ClassifierSpec, libPath string) (*ONNXClassifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}
	if spec.NumFeatures <= 0 {
		return nil, errors.New("classifier.yaml must declare num_features for onnx models")
	}
	if spec.ProbabilityOutput != "" && spec.NumClasses <= 0 {
		return nil, errors.New("classifier.yaml must declare num_classes when probability_output is set")
	}
	if err := initRuntime(filepath.Dir(modelPath), libPath); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if spec.IntraThreads > 0 {
		if err := opts.SetIntraOpNumThreads(spec.IntraThreads); err != nil {
			return nil, fmt.Errorf("set intra threads: %w", err)
		}
	}
	if spec.InterThreads > 0 {
		if err := opts.SetInterOpNumThreads(spec.InterThreads); err != nil {
			return nil, fmt.Errorf("set inter threads: %w", err)
		}
	}

	c := &ONNXClassifier{features: spec.NumFeatures, classes: spec.NumClasses}
	c.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(spec.NumFeatures)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	c.label, err = ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("allocate label tensor: %w", err)
	}

	outputNames := []string{spec.LabelOutput}
	outputs := []ort.Value{c.label}
	if spec.ProbabilityOutput != "" {
		c.proba, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(spec.NumClasses)))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("allocate probability tensor: %w", err)
		}
		outputNames = append(outputNames, spec.ProbabilityOutput)
		outputs = append(outputs, c.proba)
	}

	c.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{spec.Input},
		outputNames,
		[]ort.Value{c.input},
		outputs,
		opts,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return c, nil
}

func (c *ONNXClassifier) NumFeatures() int { return c.features }
func (c *ONNXClassifier) NumClasses() int  { return c.classes }

// HasProbabilities reports whether the graph emits a class distribution.
func (c *ONNXClassifier) HasProbabilities() bool { return c.proba != nil }

func (c *ONNXClassifier) run(features []float32) error {
	if c == nil || c.session == nil {
		return errors.New("onnx classifier not initialized")
	}
	if len(features) != c.features {
		return fmt.Errorf("feature shape mismatch: got %d, want %d", len(features), c.features)
	}
	copy(c.input.GetData(), features)
	if err := c.session.Run(); err != nil {
		return fmt.Errorf("onnx run: %w", err)
	}
	return nil
}

// Predict runs the graph and returns the emitted label.
func (c *ONNXClassifier) Predict(features []float32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.run(features); err != nil {
		return 0, err
	}
	return int(c.label.GetData()[0]), nil
}

// PredictProba runs the graph and returns the probability output.
func (c *ONNXClassifier) PredictProba(features []float32) ([]float64, error) {
	if c.proba == nil {
		return nil, errors.New("onnx graph has no probability output")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.run(features); err != nil {
		return nil, err
	}
	raw := c.proba.GetData()
	out := make([]float64, len(raw))
	for i, p := range raw {
		out[i] = float64(p)
	}
	return out, nil
}

// Close releases the session and its tensors.
func (c *ONNXClassifier) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
		c.session = nil
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
		c.input = nil
	}
	if c.label != nil {
		errs = append(errs, c.label.Destroy())
		c.label = nil
	}
	if c.proba != nil {
		errs = append(errs, c.proba.Destroy())
		c.proba = nil
	}
	return errors.Join(errs...)
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common names and locations are tried in order.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
