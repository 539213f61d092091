package features

import (
	"fmt"
	"strings"

	"github.com/elavarasan2006/jobrole/internal/vocab"
)

// Keyword is one presence flag of the fallback path: Column is set to 1 when
// Term appears as a word in the skills or certification text.
type Keyword struct {
	Term   string
	Column string
}

// DefaultKeywords are the flags used when none are configured.
var DefaultKeywords = []Keyword{
	{Term: "Python", Column: "skill_Python"},
	{Term: "Java", Column: "skill_Java"},
	{Term: "JavaScript", Column: "skill_JavaScript"},
	{Term: "React", Column: "skill_React"},
	{Term: "Node.js", Column: "skill_Node.js"},
	{Term: "HTML", Column: "skill_HTML"},
	{Term: "CSS", Column: "skill_CSS"},
	{Term: "SQL", Column: "skill_SQL"},
	{Term: "Machine Learning", Column: "skill_Machine Learning"},
	{Term: "AWS", Column: "skill_AWS"},
	{Term: "Docker", Column: "skill_Docker"},
}

// ParseKeyword reads "Term" or "Term=column". A bare term flags
// "skill_"+Term.
func ParseKeyword(s string) (Keyword, error) {
	term, col, found := strings.Cut(s, "=")
	term = strings.TrimSpace(term)
	col = strings.TrimSpace(col)
	if term == "" {
		return Keyword{}, fmt.Errorf("fallback keyword %q has no term", s)
	}
	if !found || col == "" {
		col = defaultPrefixes[FieldSkills] + term
	}
	return Keyword{Term: term, Column: col}, nil
}

// fallbackVocab are the scalar codes the fallback path assumes when the
// bundle's own encoders cannot be used.
var fallbackVocab = map[string][]string{
	FieldDegree:            {"B.Tech", "BCA", "MCA", "M.Tech"},
	FieldMajor:             {"CS", "IT", "SE", "AI&ML"},
	FieldSpecialization:    {"Frontend", "Full Stack"},
	FieldPreferredIndustry: {"Product", "Startups"},
}

// Fallback builds a reduced vector that needs nothing from the bundle but its
// column list.
type Fallback struct {
	keywords []Keyword
	scalars  []*vocab.Category
}

// NewFallback returns a fallback assembler flagging keywords
// (DefaultKeywords when empty).
func NewFallback(keywords []Keyword) *Fallback {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	f := &Fallback{keywords: make([]Keyword, len(keywords))}
	copy(f.keywords, keywords)
	for _, field := range CategoricalFields {
		cat, err := vocab.NewCategory(field, fallbackVocab[field])
		if err != nil {
			panic(fmt.Sprintf("features: fallback vocabulary %s: %v", field, err))
		}
		f.scalars = append(f.scalars, cat)
	}
	return f
}

// Keywords returns a copy of the configured flags.
func (f *Fallback) Keywords() []Keyword {
	out := make([]Keyword, len(f.keywords))
	copy(out, f.keywords)
	return out
}

// Assemble builds the reduced vector for rec laid out in columns order.
func (f *Fallback) Assemble(rec RawInputRecord, columns []string) Result[Vector] {
	if len(columns) == 0 {
		return Err[Vector](&AssemblyError{Stage: "fallback", Err: fmt.Errorf("no expected columns")})
	}
	named := make(map[string]float32, len(f.keywords)+len(CategoricalFields)+len(NumericFields))
	if err := parseNumerics(rec, named); err != nil {
		return Err[Vector](err)
	}
	for _, cat := range f.scalars {
		val, _ := rec.Value(cat.Field())
		named[cat.Field()] = float32(cat.Code(val))
	}

	text := rec.Skills + " " + rec.Certification
	for _, kw := range f.keywords {
		if vocab.ContainsWord(text, kw.Term) {
			named[kw.Column] = 1
		}
	}
	return Ok(Project(named, columns))
}
