package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// stopTerms reject spans that are really contract boilerplate mis-tagged as
// a named entity. Matching is by lowercase substring.
var stopTerms = map[string][]string{
	TypePerson: {
		"договор", "доверенность", "стороны", "подрядчик", "заказчик",
		"исполнитель", "сторона", "договоре", "договора", "договору",
		"согласование", "согласования", "согласованию",
	},
	TypeOrg: {
		"договор", "доверенность", "стороны", "договоре", "договора",
		"согласование", "согласования", "согласованию", "лист",
	},
	TypeLocation: {
		"договор", "доверенность", "согласование",
	},
}

// headingLabels are document-structure words that taggers pick up from
// headings.
var headingLabels = map[string]bool{
	"согласование": true,
	"согласования": true,
	"лист":         true,
	"страница":     true,
	"документ":     true,
}

// Normalizer filters raw tagger spans and merges them into a
// case-insensitive set of canonical entities.
type Normalizer struct {
	allowed map[string]bool
}

// NewNormalizer returns a normalizer that accepts the given entity types.
// With no types it accepts PER, ORG and LOC.
func NewNormalizer(types ...string) *Normalizer {
	if len(types) == 0 {
		types = []string{TypePerson, TypeOrg, TypeLocation}
	}
	n := &Normalizer{allowed: make(map[string]bool, len(types))}
	for _, t := range types {
		n.allowed[t] = true
	}
	return n
}

// NormalizeText collapses whitespace runs, trims and applies NFC.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Key is the identity key of an entity or relation endpoint.
func Key(s string) string {
	return strings.ToLower(NormalizeText(s))
}

// Accept reports whether a raw span survives filtering and returns its
// normalized surface text.
func (n *Normalizer) Accept(e Entity) (string, bool) {
	if !n.allowed[e.Type] {
		return "", false
	}
	text := NormalizeText(e.Text)
	if utf8.RuneCountInString(text) < 2 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, term := range stopTerms[e.Type] {
		if strings.Contains(lower, term) {
			return "", false
		}
	}
	if !hasLetter(text) {
		return "", false
	}
	if headingLabels[lower] {
		return "", false
	}
	return text, true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// EntitySet holds canonical entities in first-encounter order.
type EntitySet struct {
	order []string
	byKey map[string]Entity
}

// Normalize merges raw spans into an EntitySet. When two spans share a key
// the strictly longer surface form wins; ties keep the first.
func (n *Normalizer) Normalize(raw []Entity) *EntitySet {
	set := &EntitySet{byKey: make(map[string]Entity)}
	for _, e := range raw {
		text, ok := n.Accept(e)
		if !ok {
			continue
		}
		key := strings.ToLower(text)
		e.Text = text

		prev, exists := set.byKey[key]
		if !exists {
			set.order = append(set.order, key)
			set.byKey[key] = e
			continue
		}
		if utf8.RuneCountInString(text) > utf8.RuneCountInString(prev.Text) {
			set.byKey[key] = e
		}
	}
	return set
}

// Len returns the number of canonical entities.
func (s *EntitySet) Len() int { return len(s.order) }

// Entities returns canonical entities; the slice index is the entity id.
func (s *EntitySet) Entities() []Entity {
	out := make([]Entity, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// Lookup returns the canonical entity for a surface text.
func (s *EntitySet) Lookup(text string) (Entity, bool) {
	e, ok := s.byKey[Key(text)]
	return e, ok
}

// ChunkSubset maps the raw spans tagged in one chunk onto their canonical
// entities, keeping each span's own chunk-local offsets. Spans that were
// filtered out are dropped.
func (s *EntitySet) ChunkSubset(raw []Entity, chunk int) []Entity {
	var out []Entity
	for _, e := range raw {
		if e.Chunk != chunk {
			continue
		}
		c, ok := s.byKey[Key(e.Text)]
		if !ok {
			continue
		}
		out = append(out, Entity{
			Text:  c.Text,
			Type:  c.Type,
			Start: e.Start,
			End:   e.End,
			Chunk: chunk,
		})
	}
	return out
}
