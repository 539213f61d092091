package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/elavarasan2006/jobrole/internal/artifact"
	"github.com/elavarasan2006/jobrole/internal/vocab"
)

// Vector is an assembled feature row aligned 1:1 with a bundle's expected
// columns.
type Vector []float32

// DefaultDelimiter separates entries of multi-valued fields.
const DefaultDelimiter = ","

// Default column prefixes of multi-valued fields.
var defaultPrefixes = map[string]string{
	FieldSkills:        "skill_",
	FieldCertification: "cert_",
}

// Assembler is the primary, encoder-driven path.
type Assembler struct {
	delim string
}

// NewAssembler returns an assembler splitting multi-valued fields on delim
// ("," when empty).
func NewAssembler(delim string) *Assembler {
	if delim == "" {
		delim = DefaultDelimiter
	}
	return &Assembler{delim: delim}
}

// Assemble builds the feature vector for rec against b. Unknown categorical
// values encode as vocab.Unknown. A malformed number fails with a
// NumericError; missing or mismatched encoders fail with an AssemblyError.
func (a *Assembler) Assemble(rec RawInputRecord, b *artifact.Bundle) Result[Vector] {
	named := make(map[string]float32, b.NumColumns())

	// Numbers first so bad input is reported as such even when the
	// encoders are unusable.
	if err := parseNumerics(rec, named); err != nil {
		return Err[Vector](err)
	}

	enc, err := b.Encoders()
	if err != nil {
		return Err[Vector](&AssemblyError{Stage: "encoders", Err: err})
	}
	columns := b.ExpectedColumns()
	if err := checkShape(enc, columns); err != nil {
		return Err[Vector](&AssemblyError{Stage: "encoder shape", Err: err})
	}

	for _, field := range enc.CategoryFields() {
		cat, _ := enc.Category(field)
		val, _ := rec.Value(field)
		named[field] = float32(cat.Code(val))
	}

	for _, ml := range enc.MultiLabels() {
		text, ok := rec.Value(ml.Field())
		if !ok {
			return Err[Vector](&AssemblyError{
				Stage: "encoder shape",
				Err:   fmt.Errorf("multilabel encoder for unknown field %q", ml.Field()),
			})
		}
		row := ml.OneHot(vocab.Split(text, a.delim))
		for i, col := range ml.Columns() {
			named[col] = row[i]
		}
	}

	return Ok(Project(named, columns))
}

// checkShape fails when the expected columns need a field no encoder covers.
func checkShape(enc *artifact.Encoders, columns []string) error {
	for _, field := range CategoricalFields {
		if !contains(columns, field) {
			continue
		}
		if _, ok := enc.Category(field); !ok {
			return fmt.Errorf("no encoder for categorical column %q", field)
		}
	}
	for _, field := range MultiValueFields {
		if _, ok := enc.MultiLabel(field); ok {
			continue
		}
		prefix := defaultPrefixes[field]
		for _, col := range columns {
			if strings.HasPrefix(col, prefix) {
				return fmt.Errorf("no encoder for %s columns (%s*)", field, prefix)
			}
		}
	}
	return nil
}

// Project lays named values out in columns order. Columns missing from named
// are 0 and names not in columns are dropped.
func Project(named map[string]float32, columns []string) Vector {
	out := make(Vector, len(columns))
	for i, col := range columns {
		out[i] = named[col]
	}
	return out
}

// parseNumerics stores CGPA and years of experience into named. Empty input
// is 0.
func parseNumerics(rec RawInputRecord, named map[string]float32) error {
	for _, field := range NumericFields {
		raw, _ := rec.Value(field)
		v, err := ParseNumber(raw)
		if err != nil {
			return &NumericError{Field: field, Value: raw}
		}
		named[field] = float32(v)
	}
	return nil
}

// ParseNumber parses a human-entered number. Blank input is 0; non-finite
// values are rejected.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
