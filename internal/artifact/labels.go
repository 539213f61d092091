package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Decoder maps classifier class indices back to target labels.
type Decoder struct {
	labels []string
}

// NewDecoder builds a decoder from labels in class-index order.
func NewDecoder(labels []string) *Decoder {
	out := make([]string, len(labels))
	copy(out, labels)
	return &Decoder{labels: out}
}

// Len returns the number of known labels.
func (d *Decoder) Len() int { return len(d.labels) }

// Label returns the label of class idx. Indices the decoder does not know are
// rendered as their decimal string.
func (d *Decoder) Label(idx int) string {
	if d != nil && idx >= 0 && idx < len(d.labels) && d.labels[idx] != "" {
		return d.labels[idx]
	}
	return strconv.Itoa(idx)
}

// Labels returns a copy of the labels in class-index order.
func (d *Decoder) Labels() []string {
	out := make([]string, len(d.labels))
	copy(out, d.labels)
	return out
}

// loadLabels accepts either a JSON array or an index-keyed object.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("no labels")
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// loadColumns reads the ordered feature column list.
func loadColumns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cols []string
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("feature column list is empty")
	}
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, fmt.Errorf("feature column %d has no name", i)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate feature column %q", c)
		}
		seen[c] = struct{}{}
	}
	return cols, nil
}
