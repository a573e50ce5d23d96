package graph

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Config tunes the proximity pass. Lengths are in runes.
type Config struct {
	Window            int `json:"window" yaml:"window" mapstructure:"window"`
	ContextExtend     int `json:"context_extend" yaml:"context_extend" mapstructure:"context_extend"`
	MinContext        int `json:"min_context" yaml:"min_context" mapstructure:"min_context"`
	MinGenericContext int `json:"min_generic_context" yaml:"min_generic_context" mapstructure:"min_generic_context"`
	MinLinkedContext  int `json:"min_linked_context" yaml:"min_linked_context" mapstructure:"min_linked_context"`
	MaxContext        int `json:"max_context" yaml:"max_context" mapstructure:"max_context"`
}

// DefaultConfig returns the standard proximity thresholds.
func DefaultConfig() Config {
	return Config{
		Window:            100,
		ContextExtend:     100,
		MinContext:        10,
		MinGenericContext: 30,
		MinLinkedContext:  20,
		MaxContext:        200,
	}
}

// Extractor finds relations between entities of a chunk. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor. Zero fields take their defaults.
func NewExtractor(cfg Config) *Extractor {
	d := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = d.Window
	}
	if cfg.ContextExtend <= 0 {
		cfg.ContextExtend = d.ContextExtend
	}
	if cfg.MinContext <= 0 {
		cfg.MinContext = d.MinContext
	}
	if cfg.MinGenericContext <= 0 {
		cfg.MinGenericContext = d.MinGenericContext
	}
	if cfg.MinLinkedContext <= 0 {
		cfg.MinLinkedContext = d.MinLinkedContext
	}
	if cfg.MaxContext <= 0 {
		cfg.MaxContext = d.MaxContext
	}
	return &Extractor{cfg: cfg}
}

// ChunkInput is one chunk's text and the canonical entities tagged in it.
type ChunkInput struct {
	Text     string
	Entities []Entity
}

// Extract runs both passes over every chunk and merges the results. Pattern
// relations of all chunks come first, so they win over a proximity relation
// with the same identity.
func (x *Extractor) Extract(chunks []ChunkInput) []Relation {
	var pattern, proximity []Relation
	for _, c := range chunks {
		pattern = append(pattern, x.PatternPass(c.Text, c.Entities)...)
		proximity = append(proximity, x.ProximityPass(c.Text, c.Entities)...)
	}
	return Merge(pattern, proximity)
}

// Merge concatenates relation groups and drops repeated identities, keeping
// the first occurrence. Merge(Merge(x)) == Merge(x).
func Merge(groups ...[]Relation) []Relation {
	seen := make(map[string]bool)
	var out []Relation
	for _, g := range groups {
		for _, r := range g {
			k := r.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, r)
		}
	}
	return out
}

// --- pattern pass ---

// PatternPass matches the verb-phrase table against text and keeps matches
// whose captured tokens both resolve to known entities.
func (x *Extractor) PatternPass(text string, entities []Entity) []Relation {
	known := uniqueEntities(entities)
	if len(known) < 2 {
		return nil
	}

	var out []Relation
	for _, p := range relationPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			src, ok := resolve(text[m[2]:m[3]], known)
			if !ok {
				continue
			}
			dst, ok := resolve(text[m[4]:m[5]], known)
			if !ok {
				continue
			}
			if Key(src.Text) == Key(dst.Text) {
				continue
			}
			out = append(out, Relation{
				Source:     src.Text,
				Target:     dst.Text,
				Relation:   p.relation,
				SourceType: src.Type,
				TargetType: dst.Type,
				Context:    truncateRunes(text[m[0]:m[1]], x.cfg.MaxContext),
			})
		}
	}
	return Merge(out)
}

// uniqueEntities keeps the first entity per identity key.
func uniqueEntities(entities []Entity) []Entity {
	seen := make(map[string]bool, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		k := Key(e.Text)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// resolve finds the entity a captured token refers to. An exact
// case-insensitive match wins; otherwise the longest entity whose text
// contains the token or is contained in it, earliest registered on ties.
// Single-rune tokens only resolve exactly.
func resolve(token string, known []Entity) (Entity, bool) {
	tl := strings.ToLower(token)
	for _, e := range known {
		if Key(e.Text) == tl {
			return e, true
		}
	}
	if utf8.RuneCountInString(tl) < 2 {
		return Entity{}, false
	}

	best, bestLen := -1, 0
	for i, e := range known {
		el := Key(e.Text)
		if !strings.Contains(el, tl) && !strings.Contains(tl, el) {
			continue
		}
		if n := utf8.RuneCountInString(el); n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		return Entity{}, false
	}
	return known[best], true
}

// --- proximity pass ---

// ProximityPass links each pair of positionally adjacent entities that sit
// close together, tagging the link from the text between them.
func (x *Extractor) ProximityPass(text string, entities []Entity) []Relation {
	if len(entities) < 2 {
		return nil
	}
	sorted := make([]Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	runes := []rune(text)
	var out []Relation
	for i := 0; i+1 < len(sorted); i++ {
		src, dst := sorted[i], sorted[i+1]
		if Key(src.Text) == Key(dst.Text) {
			continue
		}
		gap := dst.Start - src.End
		if gap <= 0 || gap >= x.cfg.Window {
			continue
		}

		from := max(0, src.End)
		to := min(len(runes), dst.Start+x.cfg.ContextExtend)
		if from >= to {
			continue
		}
		context := strings.TrimSpace(string(runes[from:to]))
		n := utf8.RuneCountInString(context)
		if n < x.cfg.MinContext {
			continue
		}

		lower := strings.ToLower(context)
		rel := inferRelation(lower)
		if rel == RelGenericLink && n < x.cfg.MinGenericContext {
			continue
		}
		if !x.validContext(lower, n) {
			continue
		}

		out = append(out, Relation{
			Source:     src.Text,
			Target:     dst.Text,
			Relation:   rel,
			SourceType: src.Type,
			TargetType: dst.Type,
			Context:    truncateRunes(context, x.cfg.MaxContext),
		})
	}
	return out
}

func inferRelation(lower string) string {
	for _, group := range relationKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.relation
			}
		}
	}
	return RelGenericLink
}

// validContext accepts a context with an action verb, or a connective word
// and more than MinLinkedContext runes.
func (x *Extractor) validContext(lower string, n int) bool {
	for _, v := range actionVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	if n <= x.cfg.MinLinkedContext {
		return false
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if connectives[w] {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
