package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	classifierFile = "classifier.yaml"
	columnsFile    = "feature_columns.json"
	labelsFile     = "label_map.json"
	encodersFile   = "encoders.yaml"
	manifestFile   = "manifest.json"
	stateFile      = "state.json"
)

// Options tunes how a bundle is loaded.
type Options struct {
	// DefaultLabels overrides the default label of multi-valued fields,
	// keyed by field name ("Skills", "Certification").
	DefaultLabels map[string]string
	// ORTLibrary is the onnxruntime shared library; empty means autodetect.
	ORTLibrary string
	// Verify checks manifest.json before anything is deserialized.
	Verify bool
	// Version labels the bundle when it was not selected through state.json.
	Version string
}

// Bundle is an immutable, loaded artifact bundle. It is shared by all
// requests and never mutated after Load returns.
type Bundle struct {
	dir        string
	version    string
	loadedAt   time.Time
	classifier Classifier
	columns    []string
	decoder    *Decoder
	encoders   *Encoders
	encoderErr error
}

// Open resolves the active bundle under base (see ResolveDir) and loads it.
func Open(base string, opts Options) (*Bundle, error) {
	dir, version, err := ResolveDir(base)
	if err != nil {
		return nil, err
	}
	if version != "" {
		opts.Version = version
	}
	return Load(dir, opts)
}

// Load reads and validates the bundle in dir as one unit.
func Load(dir string, opts Options) (*Bundle, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: bundle dir is empty", ErrArtifactMissing)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: bundle dir %s", ErrArtifactMissing, dir)
	}

	for _, name := range []string{classifierFile, columnsFile, labelsFile} {
		if err := requireFile(filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}

	if opts.Verify {
		if _, err := VerifyIntegrity(dir); err != nil && !errors.Is(err, ErrNoManifest) {
			return nil, fmt.Errorf("verify bundle: %w", err)
		}
	}

	spec, err := loadClassifierSpec(filepath.Join(dir, classifierFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, classifierFile, err)
	}
	modelPath, err := resolveBundlePath(dir, filepath.FromSlash(spec.File))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, classifierFile, err)
	}
	if err := requireFile(modelPath); err != nil {
		return nil, err
	}

	columns, err := loadColumns(filepath.Join(dir, columnsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, columnsFile, err)
	}
	labels, err := loadLabels(filepath.Join(dir, labelsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, labelsFile, err)
	}

	classifier, err := loadClassifier(dir, spec, opts.ORTLibrary)
	if err != nil {
		return nil, fmt.Errorf("%w: load classifier: %v", ErrArtifactCorrupt, err)
	}
	if n := classifier.NumFeatures(); n > 0 && n != len(columns) {
		classifier.Close()
		return nil, fmt.Errorf("%w: classifier expects %d features but %s lists %d", ErrArtifactCorrupt, n, columnsFile, len(columns))
	}

	b := &Bundle{
		dir:        dir,
		version:    opts.Version,
		loadedAt:   time.Now().UTC(),
		classifier: classifier,
		columns:    columns,
		decoder:    NewDecoder(labels),
	}
	b.encoders, b.encoderErr = loadEncoders(filepath.Join(dir, encodersFile), opts.DefaultLabels)
	return b, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return fmt.Errorf("%w: stat %s: %v", ErrArtifactCorrupt, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrArtifactCorrupt, path)
	}
	return nil
}

// NewBundle assembles a bundle from in-memory parts. encoders may be nil, in
// which case encErr records why.
func NewBundle(version string, classifier Classifier, columns []string, decoder *Decoder, encoders *Encoders, encErr error) *Bundle {
	cols := make([]string, len(columns))
	copy(cols, columns)
	if encoders == nil && encErr == nil {
		encErr = fmt.Errorf("%w: no encoders", ErrArtifactMissing)
	}
	return &Bundle{
		version:    version,
		loadedAt:   time.Now().UTC(),
		classifier: classifier,
		columns:    cols,
		decoder:    decoder,
		encoders:   encoders,
		encoderErr: encErr,
	}
}

// Dir is the directory the bundle was read from.
func (b *Bundle) Dir() string { return b.dir }

// Version is the bundle version, empty when unversioned.
func (b *Bundle) Version() string { return b.version }

// LoadedAt is when the bundle finished loading.
func (b *Bundle) LoadedAt() time.Time { return b.loadedAt }

// Classifier returns the trained model.
func (b *Bundle) Classifier() Classifier { return b.classifier }

// Decoder maps class indices to labels.
func (b *Bundle) Decoder() *Decoder { return b.decoder }

// NumColumns is len(ExpectedColumns()) without the copy.
func (b *Bundle) NumColumns() int { return len(b.columns) }

// ExpectedColumns returns a copy of the authoritative feature column order.
func (b *Bundle) ExpectedColumns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// Encoders returns the field encoders, or the error that kept them from
// loading.
func (b *Bundle) Encoders() (*Encoders, error) {
	if b.encoderErr != nil {
		return nil, b.encoderErr
	}
	return b.encoders, nil
}

// SupportsProbabilities reports whether the classifier can rank every class.
func (b *Bundle) SupportsProbabilities() bool {
	_, ok := b.classifier.(ProbabilityClassifier)
	return ok
}

// Close releases classifier resources.
func (b *Bundle) Close() error {
	if b == nil || b.classifier == nil {
		return nil
	}
	return b.classifier.Close()
}
