package artifact

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/elavarasan2006/jobrole/internal/vocab"
)

// Default column prefixes of the multi-valued fields.
var defaultPrefixes = map[string]string{
	"Skills":        "skill_",
	"Certification": "cert_",
}

// encodersDoc mirrors encoders.yaml.
type encodersDoc struct {
	Categorical map[string][]string `yaml:"categorical"`
	MultiLabel  []multiLabelEntry   `yaml:"multilabel"`
}

type multiLabelEntry struct {
	Field   string   `yaml:"field"`
	Prefix  *string  `yaml:"prefix"`
	Default string   `yaml:"default"`
	Classes []string `yaml:"classes"`
}

// Encoders holds the per-field vocabularies the model was trained with.
type Encoders struct {
	categorical map[string]*vocab.Category
	multi       []*vocab.MultiLabel
}

// NewEncoders assembles encoders from already built vocabularies.
func NewEncoders(categorical []*vocab.Category, multi []*vocab.MultiLabel) *Encoders {
	e := &Encoders{
		categorical: make(map[string]*vocab.Category, len(categorical)),
		multi:       make([]*vocab.MultiLabel, len(multi)),
	}
	for _, c := range categorical {
		e.categorical[c.Field()] = c
	}
	copy(e.multi, multi)
	return e
}

// Category returns the vocabulary of a single-valued field.
func (e *Encoders) Category(field string) (*vocab.Category, bool) {
	if e == nil {
		return nil, false
	}
	c, ok := e.categorical[field]
	return c, ok
}

// CategoryFields returns the encoded single-valued fields, sorted.
func (e *Encoders) CategoryFields() []string {
	out := make([]string, 0, len(e.categorical))
	for f := range e.categorical {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// MultiLabel returns the vocabulary of a multi-valued field.
func (e *Encoders) MultiLabel(field string) (*vocab.MultiLabel, bool) {
	if e == nil {
		return nil, false
	}
	for _, m := range e.multi {
		if m.Field() == field {
			return m, true
		}
	}
	return nil, false
}

// MultiLabels returns the multi-valued vocabularies in file order.
func (e *Encoders) MultiLabels() []*vocab.MultiLabel {
	out := make([]*vocab.MultiLabel, len(e.multi))
	copy(out, e.multi)
	return out
}

// loadEncoders reads encoders.yaml. defaults overrides the default label of a
// multi-valued field.
func loadEncoders(path string, defaults map[string]string) (*Encoders, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactCorrupt, path, err)
	}

	var f encodersDoc
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrArtifactCorrupt, path, err)
	}
	if len(f.Categorical) == 0 && len(f.MultiLabel) == 0 {
		return nil, fmt.Errorf("%w: %s declares no encoders", ErrArtifactCorrupt, path)
	}

	cats := make([]*vocab.Category, 0, len(f.Categorical))
	for field, classes := range f.Categorical {
		c, err := vocab.NewCategory(field, classes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
		}
		cats = append(cats, c)
	}

	multi := make([]*vocab.MultiLabel, 0, len(f.MultiLabel))
	seen := make(map[string]struct{}, len(f.MultiLabel))
	for i, entry := range f.MultiLabel {
		field := strings.TrimSpace(entry.Field)
		if field == "" {
			return nil, fmt.Errorf("%w: multilabel entry %d has no field", ErrArtifactCorrupt, i)
		}
		if _, dup := seen[field]; dup {
			return nil, fmt.Errorf("%w: multilabel field %q declared twice", ErrArtifactCorrupt, field)
		}
		seen[field] = struct{}{}

		prefix := defaultPrefixes[field]
		if entry.Prefix != nil {
			prefix = *entry.Prefix
		}
		def := entry.Default
		if override := strings.TrimSpace(defaults[field]); override != "" {
			def = override
		}
		m, err := vocab.NewMultiLabel(field, prefix, entry.Classes, def)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
		}
		multi = append(multi, m)
	}

	return NewEncoders(cats, multi), nil
}
