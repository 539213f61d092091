// Package artifacttest writes small linear-model bundles for tests.
package artifacttest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gopkg.in/yaml.v3"
)

// MultiLabel describes one multilabel encoder entry.
type MultiLabel struct {
	Field   string   `yaml:"field"`
	Prefix  string   `yaml:"prefix"`
	Default string   `yaml:"default,omitempty"`
	Classes []string `yaml:"classes"`
}

// Bundle describes the files of a linear bundle.
type Bundle struct {
	Columns []string
	Labels  []string
	// Weights is classes x len(Columns). Nil means all zero.
	Weights [][]float64
	Bias    []float64
	// SingleLabel writes "probabilities": false.
	SingleLabel bool

	Categorical map[string][]string
	MultiLabel  []MultiLabel
	// OmitEncoders leaves encoders.yaml out of the bundle.
	OmitEncoders bool
	// LabelsAsMap writes label_map.json as an index-keyed object.
	LabelsAsMap bool
}

// Degree and the other scalar vocabularies of the default bundle.
var (
	Degrees         = []string{"B.Tech", "BCA", "MCA", "M.Tech"}
	Majors          = []string{"CS", "IT", "SE", "AI&ML"}
	Specializations = []string{"Frontend", "Full Stack", "Backend", "Data Science"}
	Industries      = []string{"Product", "Startups", "Services", "Research"}
	Skills          = []string{"CSS", "HTML", "JavaScript", "Node.js", "Python", "React", "SQL"}
	Certifications  = []string{"AWS Cloud Practitioner", "Google Cloud Basics", "HackerRank SQL"}
	Roles           = []string{"Backend Developer", "Data Scientist", "Frontend Developer", "Full Stack Developer", "ML Engineer"}
)

// Default returns a bundle shaped like the production model: six scalar
// columns followed by skill_ and cert_ one-hot columns. Each skill nudges
// the role it is most associated with.
func Default() Bundle {
	cols := []string{"Degree", "Major", "Specialization", "CGPA", "Years of Experience", "Preferred Industry"}
	for _, s := range Skills {
		cols = append(cols, "skill_"+s)
	}
	for _, c := range Certifications {
		cols = append(cols, "cert_"+c)
	}

	weights := make([][]float64, len(Roles))
	for i := range weights {
		weights[i] = make([]float64, len(cols))
	}
	set := func(role, col string, w float64) {
		r := indexOf(Roles, role)
		c := indexOf(cols, col)
		weights[r][c] = w
	}
	set("Frontend Developer", "skill_React", 2)
	set("Frontend Developer", "skill_HTML", 1)
	set("Frontend Developer", "skill_CSS", 1)
	set("Full Stack Developer", "skill_JavaScript", 1.5)
	set("Full Stack Developer", "skill_Node.js", 2)
	set("Backend Developer", "skill_SQL", 2)
	set("Backend Developer", "cert_HackerRank SQL", 1)
	set("Data Scientist", "skill_Python", 2)
	set("Data Scientist", "CGPA", 0.1)
	set("ML Engineer", "skill_Python", 1.5)
	set("ML Engineer", "Years of Experience", 0.2)

	return Bundle{
		Columns: cols,
		Labels:  append([]string(nil), Roles...),
		Weights: weights,
		Categorical: map[string][]string{
			"Degree":             Degrees,
			"Major":              Majors,
			"Specialization":     Specializations,
			"Preferred Industry": Industries,
		},
		MultiLabel: []MultiLabel{
			{Field: "Skills", Prefix: "skill_", Default: "HTML", Classes: Skills},
			{Field: "Certification", Prefix: "cert_", Default: "Google Cloud Basics", Classes: Certifications},
		},
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	panic("artifacttest: unknown name " + v)
}

// Write materializes b into dir and returns dir.
func Write(t testing.TB, dir string, b Bundle) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	weights := b.Weights
	if weights == nil {
		weights = make([][]float64, len(b.Labels))
		for i := range weights {
			weights[i] = make([]float64, len(b.Columns))
		}
	}
	model := map[string]any{"weights": weights}
	if b.Bias != nil {
		model["bias"] = b.Bias
	}
	if b.SingleLabel {
		model["probabilities"] = false
	}

	WriteJSON(t, filepath.Join(dir, "model.json"), model)
	WriteFile(t, filepath.Join(dir, "classifier.yaml"), []byte("format: linear\nfile: model.json\n"))
	WriteJSON(t, filepath.Join(dir, "feature_columns.json"), b.Columns)

	if b.LabelsAsMap {
		m := make(map[string]string, len(b.Labels))
		for i, l := range b.Labels {
			m[strconv.Itoa(i)] = l
		}
		WriteJSON(t, filepath.Join(dir, "label_map.json"), m)
	} else {
		WriteJSON(t, filepath.Join(dir, "label_map.json"), b.Labels)
	}

	if !b.OmitEncoders {
		enc := map[string]any{}
		if len(b.Categorical) > 0 {
			enc["categorical"] = b.Categorical
		}
		if len(b.MultiLabel) > 0 {
			enc["multilabel"] = b.MultiLabel
		}
		data, err := yaml.Marshal(enc)
		if err != nil {
			t.Fatalf("encode encoders: %v", err)
		}
		WriteFile(t, filepath.Join(dir, "encoders.yaml"), data)
	}
	return dir
}

// WriteDefault writes Default() into a fresh temp dir.
func WriteDefault(t testing.TB) string {
	t.Helper()
	return Write(t, t.TempDir(), Default())
}

// WriteJSON writes v as JSON to path.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	WriteFile(t, path, data)
}

// WriteFile writes data to path.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
