package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord(map[string]any{
		"Degree":              "MCA",
		"major":               "CS",
		"Specialization":      "Frontend",
		"CGPA":                7.5,
		"Years of Experience": 2,
		"Preferred Industry":  "Startups",
		"Skills":              []any{"HTML", "CSS", nil, "  ", "React"},
		"Certification":       "Google Cloud Basics",
		"Ignored":             "x",
	})
	require.NoError(t, err)

	assert.Equal(t, RawInputRecord{
		Degree:            "MCA",
		Major:             "CS",
		Specialization:    "Frontend",
		CGPA:              "7.5",
		YearsExperience:   "2",
		PreferredIndustry: "Startups",
		Skills:            "HTML, CSS, React",
		Certification:     "Google Cloud Basics",
	}, rec)
}

func TestDecodeRecordMissingKeysAreEmpty(t *testing.T) {
	rec, err := DecodeRecord(map[string]any{"Degree": nil})
	require.NoError(t, err)
	assert.Equal(t, RawInputRecord{}, rec)
}

func TestDecodeRecordRejectsNested(t *testing.T) {
	_, err := DecodeRecord(map[string]any{"Degree": map[string]any{"x": 1}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestRecordValue(t *testing.T) {
	rec := RawInputRecord{Degree: "BCA", YearsExperience: "3", Certification: "AWS"}

	for field, want := range map[string]string{
		FieldDegree:          "BCA",
		FieldYearsExperience: "3",
		FieldCertification:   "AWS",
		FieldSkills:          "",
	} {
		got, ok := rec.Value(field)
		assert.True(t, ok, field)
		assert.Equal(t, want, got, field)
	}
	_, ok := rec.Value("Gender")
	assert.False(t, ok)
}
