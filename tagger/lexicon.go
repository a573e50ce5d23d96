package tagger

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/bizextract/graph"
)

//go:embed gazetteer.yaml
var defaultGazetteer []byte

// Gazetteer lists known name stems per entity type. A stem matches at a
// word start followed by up to three lowercase letters of case ending.
type Gazetteer struct {
	Persons       []string `yaml:"persons"`
	Organizations []string `yaml:"organizations"`
	Locations     []string `yaml:"locations"`
}

// LoadGazetteer reads a YAML gazetteer file.
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading lexicon: %v", ErrMissingResource, err)
	}
	return parseGazetteer(data)
}

func parseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: parsing lexicon: %v", ErrMissingResource, err)
	}
	return &g, nil
}

func (g *Gazetteer) merge(other *Gazetteer) {
	g.Persons = append(g.Persons, other.Persons...)
	g.Organizations = append(g.Organizations, other.Organizations...)
	g.Locations = append(g.Locations, other.Locations...)
}

// leftBoundary anchors a rule at the start of a word. The captured group is
// the entity span.
const leftBoundary = `(?:^|[^\p{L}\p{N}])`

const legalForms = `ООО|ОАО|ЗАО|ПАО|НАО|АО|ФГУП|ГУП|МУП|ФГБУ|АНО|НКО`

const govHeads = `Министерство|Департамент|Комитет|Администрация|Федеральная\s+налоговая\s+служба|Федеральная\s+служба`

// patronymic matches the suffix of a Russian patronymic in any case.
const patronymic = `(?:вич|вн|ичн)\p{Ll}{0,3}`

type rule struct {
	typ string
	re  *regexp.Regexp
	// adjust may shorten a match or reject it by returning ok=false.
	adjust func(text string, start, end int) (int, bool)
}

func mustRule(typ, body string, adjust func(string, int, int) (int, bool)) rule {
	return rule{typ: typ, re: regexp.MustCompile(leftBoundary + `(` + body + `)`), adjust: adjust}
}

var builtinRules = []rule{
	// ООО «Альфа», АО "Бета"
	mustRule(graph.TypeOrg, `(?:`+legalForms+`)\s*(?:«[^»\n]{1,80}»|"[^"\n]{1,80}"|“[^”\n]{1,80}”)`, nil),
	// ООО Ромашка
	mustRule(graph.TypeOrg, `(?:`+legalForms+`)\s+\p{Lu}[\p{L}\p{N}-]*`, nil),
	// ИП Сидоров С.С., ИП Сидоров Сергей Сергеевич
	mustRule(graph.TypeOrg, `ИП\s+\p{Lu}\p{Ll}+(?:\s+\p{Lu}\.\s?\p{Lu}\.|\s+\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+)?`, nil),
	// Министерство финансов Российской Федерации
	mustRule(graph.TypeOrg, `(?:`+govHeads+`)(?:\s+\p{L}+){1,3}`, trimGenitiveTail),

	// Иванов И.И.
	mustRule(graph.TypePerson, `\p{Lu}\p{Ll}+(?:-\p{Lu}\p{Ll}+)?\s+\p{Lu}\.\s?\p{Lu}\.`, rejectBeforeSurname),
	// И.И. Иванов
	mustRule(graph.TypePerson, `\p{Lu}\.\s?\p{Lu}\.\s?\p{Lu}\p{Ll}+(?:-\p{Lu}\p{Ll}+)?`, nil),
	// Иванов Иван Иванович
	mustRule(graph.TypePerson, `\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+`+patronymic, nil),
	// Иван Иванович Иванов
	mustRule(graph.TypePerson, `\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+`+patronymic+`\s+\p{Lu}\p{Ll}+`, nil),

	// Московская область, Краснодарский край
	mustRule(graph.TypeLocation, `\p{Lu}\p{Ll}+(?:ск|цк)(?:ая|ой|ую)\s+област(?:ь|и|ью)`, nil),
	mustRule(graph.TypeLocation, `\p{Lu}\p{Ll}+(?:ск|цк)(?:ий|ого|ом)\s+кра(?:й|я|е|ю)`, nil),
	// Республика Татарстан
	mustRule(graph.TypeLocation, `Республик(?:а|и|е|у|ой)\s+\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)?`, nil),
	mustRule(graph.TypeLocation, `Российск(?:ая|ой|ую)\s+Федераци(?:я|и|ю|ей)`, nil),
}

// settlementRule captures the name after a settlement marker, without the
// marker: "г. Казань" yields "Казань".
var settlementRule = rule{
	typ: graph.TypeLocation,
	re:  regexp.MustCompile(leftBoundary + `(?:г\.|гор\.|город[еау]?|пос\.|посёлок|поселок|дер\.|деревня)\s*(\p{Lu}\p{Ll}+(?:-\p{L}+)*)`),
}

var genitiveEndings = []string{"ого", "его", "ой", "ей", "ых", "их", "ов", "ев", "ия", "ии", "ы", "и", "а", "я"}

var (
	govHead   = regexp.MustCompile(`^(?:` + govHeads + `)`)
	lexWordRe = regexp.MustCompile(`\p{L}+`)
)

// trimGenitiveTail keeps the words after the head noun while they look like
// a genitive complement ("финансов", "Российской Федерации").
func trimGenitiveTail(text string, start, end int) (int, bool) {
	span := text[start:end]
	head := len(govHead.FindString(span))
	cut := -1
	for _, loc := range lexWordRe.FindAllStringIndex(span[head:], -1) {
		if !hasGenitiveEnding(strings.ToLower(span[head+loc[0] : head+loc[1]])) {
			break
		}
		cut = head + loc[1]
	}
	if cut < 0 {
		return 0, false
	}
	return start + cut, true
}

func hasGenitiveEnding(w string) bool {
	for _, e := range genitiveEndings {
		if strings.HasSuffix(w, e) {
			return true
		}
	}
	return false
}

var surnameAfter = regexp.MustCompile(`^\s*\p{Lu}\p{Ll}+`)

// rejectBeforeSurname drops "Директор И.И." when the initials belong to a
// following surname.
func rejectBeforeSurname(text string, _, end int) (int, bool) {
	if surnameAfter.MatchString(text[end:]) {
		return 0, false
	}
	return end, true
}

// Lexicon is the rule-based backend: regular expressions for legal forms,
// initials and patronymics, administrative units, plus a gazetteer of
// known names.
type Lexicon struct {
	rules []rule
}

// NewLexicon builds the lexicon backend. A non-empty path names a YAML
// gazetteer whose entries extend the built-in one.
func NewLexicon(path string) (*Lexicon, error) {
	gaz, err := parseGazetteer(defaultGazetteer)
	if err != nil {
		return nil, err
	}
	if path != "" {
		extra, err := LoadGazetteer(path)
		if err != nil {
			return nil, err
		}
		gaz.merge(extra)
	}

	rules := slices.Clone(builtinRules)
	rules = append(rules, settlementRule)
	for _, g := range []struct {
		typ   string
		stems []string
	}{
		{graph.TypePerson, gaz.Persons},
		{graph.TypeOrg, gaz.Organizations},
		{graph.TypeLocation, gaz.Locations},
	} {
		if r, ok := gazetteerRule(g.typ, g.stems); ok {
			rules = append(rules, r)
		}
	}
	return &Lexicon{rules: rules}, nil
}

func gazetteerRule(typ string, stems []string) (rule, bool) {
	var quoted []string
	seen := make(map[string]bool)
	for _, s := range stems {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		quoted = append(quoted, regexp.QuoteMeta(s))
	}
	if len(quoted) == 0 {
		return rule{}, false
	}
	// Longest stem first so alternation prefers it.
	slices.SortStableFunc(quoted, func(a, b string) int { return len(b) - len(a) })
	re := regexp.MustCompile(leftBoundary + `((?:` + strings.Join(quoted, "|") + `)\p{Ll}{0,3})`)
	return rule{typ: typ, re: re}, true
}

// Name implements Tagger.
func (l *Lexicon) Name() string { return BackendLexicon }

// Tag implements Tagger.
func (l *Lexicon) Tag(ctx context.Context, text string) ([]graph.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cands []span
	for _, r := range l.rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if r.adjust != nil {
				var ok bool
				if end, ok = r.adjust(text, start, end); !ok {
					continue
				}
			}
			if last, _ := utf8.DecodeLastRuneInString(text[start:end]); unicode.IsLetter(last) || unicode.IsDigit(last) {
				if !wordBoundaryAfter(text, end) {
					continue
				}
			}
			cands = append(cands, span{start: start, end: end, typ: r.typ})
		}
	}
	return resolveSpans(text, cands), nil
}
