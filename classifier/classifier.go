// Package classifier assigns a document to a business process by counting
// keyword hits against a keyword -> process-number table.
package classifier

import (
	"sort"
	"strings"

	"github.com/brunobiangulo/bizextract/taxonomy"
)

// Labels of the result returned when nothing matches or a number is not in
// the taxonomy.
const (
	UnclassifiedCategory = "General processes"
	Undetermined         = "Undetermined"
)

// DefaultConfidenceScale is the score that maps to confidence 1.0.
const DefaultConfidenceScale = 5.0

// Score is one process number's tally.
type Score struct {
	Number int `json:"number"`
	Score  int `json:"score"`
}

// Alternative is a runner-up process.
type Alternative struct {
	Number     int    `json:"number"`
	Category   string `json:"category"`
	Subprocess string `json:"subprocess"`
	Score      int    `json:"score"`
}

// Result is the classification of one document.
type Result struct {
	Category     string        `json:"category"`
	Subprocess   string        `json:"subprocess"`
	Number       *int          `json:"number"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives"`
}

// Classified reports whether any keyword matched.
func (r Result) Classified() bool { return r.Number != nil }

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfidenceScale sets the score that maps to confidence 1.0.
func WithConfidenceScale(scale float64) Option {
	return func(c *Classifier) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithAlternatives sets how many runner-up processes are reported.
func WithAlternatives(n int) Option {
	return func(c *Classifier) {
		if n >= 0 {
			c.alternatives = n
		}
	}
}

// Classifier scores text against a keyword table. It is immutable and safe
// for concurrent use.
type Classifier struct {
	index        *taxonomy.Index
	keywords     []Keyword
	scale        float64
	alternatives int
}

// New creates a Classifier. A nil keyword table uses DefaultKeywords.
func New(index *taxonomy.Index, keywords []Keyword, opts ...Option) *Classifier {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	kw := make([]Keyword, len(keywords))
	copy(kw, keywords)

	c := &Classifier{
		index:        index,
		keywords:     kw,
		scale:        DefaultConfidenceScale,
		alternatives: 2,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Score tallies one point per matched keyword for each process it maps to
// and returns the tallies ranked by score. Equal scores keep the order in
// which the process number first scored.
func (c *Classifier) Score(text string) []Score {
	lower := strings.ToLower(text)

	pos := make(map[int]int)
	var scores []Score
	for _, kw := range c.keywords {
		if !strings.Contains(lower, kw.Term) {
			continue
		}
		for _, n := range kw.Processes {
			i, ok := pos[n]
			if !ok {
				i = len(scores)
				pos[n] = i
				scores = append(scores, Score{Number: n})
			}
			scores[i].Score++
		}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}

// Classify picks the top-scoring process and the next runners-up.
func (c *Classifier) Classify(text string) Result {
	scores := c.Score(text)
	if len(scores) == 0 {
		return Result{
			Category:     UnclassifiedCategory,
			Subprocess:   Undetermined,
			Alternatives: []Alternative{},
		}
	}

	top := scores[0]
	category, subprocess := c.resolve(top.Number)
	number := top.Number

	res := Result{
		Category:     category,
		Subprocess:   subprocess,
		Number:       &number,
		Confidence:   min(float64(top.Score)/c.scale, 1.0),
		Alternatives: []Alternative{},
	}
	for _, s := range scores[1:min(len(scores), 1+c.alternatives)] {
		cat, sub := c.resolve(s.Number)
		res.Alternatives = append(res.Alternatives, Alternative{
			Number:     s.Number,
			Category:   cat,
			Subprocess: sub,
			Score:      s.Score,
		})
	}
	return res
}

func (c *Classifier) resolve(number int) (string, string) {
	if c.index != nil {
		if cat, sub, ok := c.index.Lookup(number); ok {
			return cat, sub
		}
	}
	return Undetermined, Undetermined
}
