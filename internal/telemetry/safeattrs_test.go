package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeAttributesFiltersProfileData(t *testing.T) {
	kvs := map[string]interface{}{
		"input.skills":        "Python, SQL",
		"Certification":       "AWS",
		"cgpa":                7.5,
		"years_of_experience": 2,
		"authorization":       "secret",
		"long_string":         string(make([]byte, 600)),
		"bundle.version":      "v3",
		"assembly.path":       "fallback",
		"top_n":               3,
		"probabilities":       true,
		"suggestions":         []string{"a", "b"},
		"unsupported":         struct{}{},
	}

	got := map[string]bool{}
	for _, a := range SafeAttributes(kvs) {
		got[string(a.Key)] = true
	}
	assert.Equal(t, map[string]bool{
		"bundle.version": true,
		"assembly.path":  true,
		"top_n":          true,
		"probabilities":  true,
		"suggestions":    true,
	}, got)
}

func TestSafeAttributesEmpty(t *testing.T) {
	assert.Nil(t, SafeAttributes(nil))
}
