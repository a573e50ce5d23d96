package tagger

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/brunobiangulo/bizextract/graph"
)

// span is a candidate match in byte offsets.
type span struct {
	start, end int
	typ        string
}

// resolveSpans drops overlapping candidates, preferring the longer span and
// then the earlier one, and converts the survivors to entities with rune
// offsets in text order.
func resolveSpans(text string, cands []span) []graph.Entity {
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		li := utf8.RuneCountInString(text[cands[i].start:cands[i].end])
		lj := utf8.RuneCountInString(text[cands[j].start:cands[j].end])
		if li != lj {
			return li > lj
		}
		return cands[i].start < cands[j].start
	})

	var kept []span
	for _, c := range cands {
		overlaps := false
		for _, k := range kept {
			if c.start < k.end && k.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })

	out := make([]graph.Entity, 0, len(kept))
	pos, runes := 0, 0
	for _, k := range kept {
		runes += utf8.RuneCountInString(text[pos:k.start])
		n := utf8.RuneCountInString(text[k.start:k.end])
		out = append(out, graph.Entity{
			Text:  text[k.start:k.end],
			Type:  k.typ,
			Start: runes,
			End:   runes + n,
		})
		runes += n
		pos = k.end
	}
	return out
}

// wordBoundaryBefore reports whether a word can start at byte offset i.
func wordBoundaryBefore(text string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// wholeWord reports whether text[start:end] is not glued to a neighbouring
// word. Edges that are not letters or digits match anywhere.
func wholeWord(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:end])
	if isWordRune(first) && !wordBoundaryBefore(text, start) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text[start:end])
	return !isWordRune(last) || wordBoundaryAfter(text, end)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// wordBoundaryAfter reports whether the rune at byte offset i, if any, ends
// a word.
func wordBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
