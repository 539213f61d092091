// Package vocab holds the category vocabularies a trained model was fitted
// with: single-valued fields map a label to a dense code, multi-valued fields
// keep an ordered label list that defines the one-hot column order.
package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// Unknown is the code for a label the vocabulary was not trained with.
const Unknown = -1

// Category maps known labels of one categorical field to their training codes.
// The code of a label is its position in the training class list.
type Category struct {
	field  string
	labels []string
	exact  map[string]int
	folded map[string]int
}

// NewCategory builds a vocabulary from the ordered class list of a label encoder.
func NewCategory(field string, labels []string) (*Category, error) {
	if strings.TrimSpace(field) == "" {
		return nil, errors.New("vocabulary field is empty")
	}
	c := &Category{
		field:  field,
		labels: make([]string, len(labels)),
		exact:  make(map[string]int, len(labels)),
		folded: make(map[string]int, len(labels)),
	}
	copy(c.labels, labels)
	for i, lbl := range labels {
		if _, dup := c.exact[lbl]; dup {
			return nil, fmt.Errorf("vocabulary %s: duplicate label %q", field, lbl)
		}
		c.exact[lbl] = i
		// First label wins when two labels fold to the same key.
		if k := Key(lbl); k != "" {
			if _, ok := c.folded[k]; !ok {
				c.folded[k] = i
			}
		}
	}
	return c, nil
}

// Field returns the record field the vocabulary encodes.
func (c *Category) Field() string { return c.field }

// Len returns the number of known labels.
func (c *Category) Len() int { return len(c.labels) }

// Labels returns a copy of the known labels in code order.
func (c *Category) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Code returns the training code for label, or Unknown. Exact matches win over
// case/width-insensitive ones.
func (c *Category) Code(label string) int {
	if c == nil {
		return Unknown
	}
	if code, ok := c.exact[label]; ok {
		return code
	}
	if code, ok := c.folded[Key(label)]; ok {
		return code
	}
	return Unknown
}

// Label returns the label for code.
func (c *Category) Label(code int) (string, bool) {
	if c == nil || code < 0 || code >= len(c.labels) {
		return "", false
	}
	return c.labels[code], true
}
