package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Order matters: resolution picks the first qualifying label.
var skillLabels = []string{"CSS", "HTML", "JavaScript", "Node.js", "Python", "React", "SQL"}

func newSkills(t *testing.T) *MultiLabel {
	t.Helper()
	m, err := NewMultiLabel("Skills", "skill_", skillLabels, "HTML")
	require.NoError(t, err)
	return m
}

func TestResolveSubstringContainment(t *testing.T) {
	m := newSkills(t)

	got, ok := m.Resolve("ReactJS")
	require.True(t, ok)
	assert.Equal(t, "React", got)

	got, ok = m.Resolve("python3")
	require.True(t, ok)
	assert.Equal(t, "Python", got)

	got, ok = m.Resolve("java")
	require.True(t, ok)
	assert.Equal(t, "JavaScript", got, "label containing the entry also matches")

	_, ok = m.Resolve("Kubernetes")
	assert.False(t, ok)

	_, ok = m.Resolve("   ")
	assert.False(t, ok)
}

func TestResolveFirstMatchFollowsVocabularyOrder(t *testing.T) {
	// "SQL Server" qualifies for both entries below.
	m, err := NewMultiLabel("Skills", "skill_", []string{"SQL", "SQL Server"}, "")
	require.NoError(t, err)

	got, _ := m.Resolve("SQL Server")
	assert.Equal(t, "SQL", got)

	reversed, err := NewMultiLabel("Skills", "skill_", []string{"SQL Server", "SQL"}, "")
	require.NoError(t, err)
	got, _ = reversed.Resolve("SQL Server")
	assert.Equal(t, "SQL Server", got)
}

func TestOneHotFromFreeText(t *testing.T) {
	m := newSkills(t)

	row := m.OneHot(Split("HTML, CSS, ReactJS", ","))
	require.Len(t, row, len(skillLabels))
	assert.Equal(t, []float32{1, 1, 0, 0, 0, 1, 0}, row)
	assert.Equal(t, []string{"skill_CSS", "skill_HTML", "skill_JavaScript", "skill_Node.js", "skill_Python", "skill_React", "skill_SQL"}, m.Columns())
}

func TestOneHotEmptyInputUsesDefault(t *testing.T) {
	m := newSkills(t)

	for _, text := range []string{"", " , ,", "Cobol, Fortran"} {
		row := m.OneHot(Split(text, ","))
		assert.Equal(t, []float32{0, 1, 0, 0, 0, 0, 0}, row, "input %q", text)
	}
}

func TestResolveAllDeduplicates(t *testing.T) {
	m := newSkills(t)
	assert.Equal(t, []string{"React", "HTML"}, m.ResolveAll([]string{"React", "ReactJS", "html5"}))
}

func TestDefaultLabelValidation(t *testing.T) {
	m, err := NewMultiLabel("Certification", "cert_", []string{"AWS Cloud Practitioner", "Google Cloud Basics"}, "google cloud basics")
	require.NoError(t, err)
	assert.Equal(t, "Google Cloud Basics", m.Default())

	m, err = NewMultiLabel("Certification", "cert_", []string{"AWS Cloud Practitioner", "Google Cloud Basics"}, "")
	require.NoError(t, err)
	assert.Equal(t, "AWS Cloud Practitioner", m.Default())

	_, err = NewMultiLabel("Certification", "cert_", []string{"AWS Cloud Practitioner"}, "PMP")
	require.Error(t, err)

	_, err = NewMultiLabel("Certification", "cert_", nil, "")
	require.Error(t, err)

	other, err := m.WithDefault("Google Cloud Basics")
	require.NoError(t, err)
	assert.Equal(t, "Google Cloud Basics", other.Default())
	assert.Equal(t, "AWS Cloud Practitioner", m.Default(), "WithDefault leaves the receiver untouched")
}
