// Package features turns a loosely typed input record into the exact feature
// vector a bundle's classifier was trained on.
package features

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Record field names as they appear in requests and in feature columns.
const (
	FieldDegree            = "Degree"
	FieldMajor             = "Major"
	FieldSpecialization    = "Specialization"
	FieldCGPA              = "CGPA"
	FieldYearsExperience   = "Years of Experience"
	FieldPreferredIndustry = "Preferred Industry"
	FieldSkills            = "Skills"
	FieldCertification     = "Certification"
)

// Categorical, numeric and multi-valued fields in column order.
var (
	CategoricalFields = []string{FieldDegree, FieldMajor, FieldSpecialization, FieldPreferredIndustry}
	NumericFields     = []string{FieldCGPA, FieldYearsExperience}
	MultiValueFields  = []string{FieldSkills, FieldCertification}
)

// RawInputRecord is one human-entered profile. Every value is kept as text;
// parsing happens during assembly.
type RawInputRecord struct {
	Degree            string `mapstructure:"Degree" json:"Degree"`
	Major             string `mapstructure:"Major" json:"Major"`
	Specialization    string `mapstructure:"Specialization" json:"Specialization"`
	CGPA              string `mapstructure:"CGPA" json:"CGPA"`
	YearsExperience   string `mapstructure:"Years of Experience" json:"Years of Experience"`
	PreferredIndustry string `mapstructure:"Preferred Industry" json:"Preferred Industry"`
	Skills            string `mapstructure:"Skills" json:"Skills"`
	Certification     string `mapstructure:"Certification" json:"Certification"`
}

// Value returns the raw text of a field by its record name.
func (r RawInputRecord) Value(field string) (string, bool) {
	switch field {
	case FieldDegree:
		return r.Degree, true
	case FieldMajor:
		return r.Major, true
	case FieldSpecialization:
		return r.Specialization, true
	case FieldCGPA:
		return r.CGPA, true
	case FieldYearsExperience:
		return r.YearsExperience, true
	case FieldPreferredIndustry:
		return r.PreferredIndustry, true
	case FieldSkills:
		return r.Skills, true
	case FieldCertification:
		return r.Certification, true
	}
	return "", false
}

// ErrInvalidRecord is returned when a request body cannot be read as a record.
var ErrInvalidRecord = errors.New("invalid input record")

// DecodeRecord reads a flat key-value structure into a record. Keys match
// case-insensitively, numbers and booleans are rendered as text, lists are
// joined with ", ", and unknown keys are ignored.
func DecodeRecord(in map[string]any) (RawInputRecord, error) {
	var rec RawInputRecord
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       joinListHook(", "),
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return RawInputRecord{}, err
	}
	if err := dec.Decode(in); err != nil {
		return RawInputRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return rec, nil
}

// joinListHook flattens list values aimed at string fields.
func joinListHook(sep string) mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to.Kind() != reflect.String {
			return data, nil
		}
		if from.Kind() != reflect.Slice && from.Kind() != reflect.Array {
			return data, nil
		}
		v := reflect.ValueOf(data)
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item := v.Index(i).Interface()
			if item == nil {
				continue
			}
			var s string
			if err := mapstructure.WeakDecode(item, &s); err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			if strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep), nil
	}
}
