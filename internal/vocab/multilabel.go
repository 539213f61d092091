package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// MultiLabel is the ordered label universe of a multi-valued field such as
// skills or certifications. Its order is the one-hot column order and the
// order in which free text is matched.
type MultiLabel struct {
	field  string
	prefix string
	labels []string
	keys   []string
	index  map[string]int
	def    int
}

// NewMultiLabel builds a multi-label vocabulary. Columns are named prefix+label.
// def is the label substituted when nothing in the input resolves; it must be
// one of labels. An empty def selects the first label.
func NewMultiLabel(field, prefix string, labels []string, def string) (*MultiLabel, error) {
	if strings.TrimSpace(field) == "" {
		return nil, errors.New("vocabulary field is empty")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("vocabulary %s: no labels", field)
	}
	m := &MultiLabel{
		field:  field,
		prefix: prefix,
		labels: make([]string, len(labels)),
		keys:   make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	copy(m.labels, labels)
	for i, lbl := range labels {
		if _, dup := m.index[lbl]; dup {
			return nil, fmt.Errorf("vocabulary %s: duplicate label %q", field, lbl)
		}
		m.index[lbl] = i
		m.keys[i] = Key(lbl)
	}

	if strings.TrimSpace(def) == "" {
		m.def = 0
		return m, nil
	}
	m.def = -1
	if i, ok := m.index[def]; ok {
		m.def = i
	} else {
		defKey := Key(def)
		for i, k := range m.keys {
			if k == defKey {
				m.def = i
				break
			}
		}
	}
	if m.def < 0 {
		return nil, fmt.Errorf("vocabulary %s: default label %q is not a known label", field, def)
	}
	return m, nil
}

// WithDefault returns a copy of m whose default label is def.
func (m *MultiLabel) WithDefault(def string) (*MultiLabel, error) {
	return NewMultiLabel(m.field, m.prefix, m.labels, def)
}

// Field returns the record field the vocabulary encodes.
func (m *MultiLabel) Field() string { return m.field }

// Prefix returns the column name prefix.
func (m *MultiLabel) Prefix() string { return m.prefix }

// Len returns the number of known labels.
func (m *MultiLabel) Len() int { return len(m.labels) }

// Labels returns a copy of the known labels in column order.
func (m *MultiLabel) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Default returns the label used when no input entry resolves.
func (m *MultiLabel) Default() string { return m.labels[m.def] }

// Column returns the feature column name of label.
func (m *MultiLabel) Column(label string) string { return m.prefix + label }

// Columns returns the one-hot column names in vocabulary order.
func (m *MultiLabel) Columns() []string {
	out := make([]string, len(m.labels))
	for i, lbl := range m.labels {
		out[i] = m.prefix + lbl
	}
	return out
}

// Resolve returns the first label, in vocabulary order, that contains entry or
// is contained in it, ignoring case. The result depends on vocabulary order
// when several labels qualify.
func (m *MultiLabel) Resolve(entry string) (string, bool) {
	i := m.resolveIndex(Key(entry))
	if i < 0 {
		return "", false
	}
	return m.labels[i], true
}

func (m *MultiLabel) resolveIndex(key string) int {
	if key == "" {
		return -1
	}
	for i, k := range m.keys {
		if k == "" {
			continue
		}
		if strings.Contains(k, key) || strings.Contains(key, k) {
			return i
		}
	}
	return -1
}

// ResolveAll resolves every entry and returns the distinct matched labels in
// input order. When nothing resolves the default label is returned alone, so
// the result is never empty.
func (m *MultiLabel) ResolveAll(entries []string) []string {
	seen := make(map[int]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		i := m.resolveIndex(Key(e))
		if i < 0 {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, m.labels[i])
	}
	if len(out) == 0 {
		out = append(out, m.labels[m.def])
	}
	return out
}

// OneHot resolves entries and returns a row with one value per column, 1 for
// every resolved label. At least one value is always set.
func (m *MultiLabel) OneHot(entries []string) []float32 {
	row := make([]float32, len(m.labels))
	for _, lbl := range m.ResolveAll(entries) {
		row[m.index[lbl]] = 1
	}
	return row
}
