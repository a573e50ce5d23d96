package graph

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// span locates the first occurrence of s in text as a rune-offset entity.
func span(t *testing.T, text, s, typ string) Entity {
	t.Helper()
	i := strings.Index(text, s)
	require.GreaterOrEqual(t, i, 0, "%q not in text", s)
	start := utf8.RuneCountInString(text[:i])
	return Entity{Text: s, Type: typ, Start: start, End: start + utf8.RuneCountInString(s)}
}

// ---------------------------------------------------------------------------
// Pattern pass
// ---------------------------------------------------------------------------

func TestPatternPass(t *testing.T) {
	x := NewExtractor(Config{})
	text := "Компания Альфа заключила сделку. Альфа заключил договор с Бета в 2024 году."
	entities := []Entity{
		{Text: "ООО Альфа", Type: TypeOrg},
		{Text: "ООО Бета", Type: TypeOrg},
	}

	rels := x.PatternPass(text, entities)
	require.Len(t, rels, 1)
	assert.Equal(t, Relation{
		Source:     "ООО Альфа",
		Target:     "ООО Бета",
		Relation:   RelSignContract,
		SourceType: TypeOrg,
		TargetType: TypeOrg,
		Context:    "Альфа заключил договор с Бета",
	}, rels[0])
}

func TestPatternPassCaseInsensitive(t *testing.T) {
	x := NewExtractor(Config{})
	rels := x.PatternPass("АЛЬФА ПОСТАВЛЯЕТ БЕТА", []Entity{
		{Text: "Альфа", Type: TypeOrg},
		{Text: "Бета", Type: TypeOrg},
	})
	require.Len(t, rels, 1)
	assert.Equal(t, RelSupply, rels[0].Relation)
}

func TestPatternPassSelfRelation(t *testing.T) {
	x := NewExtractor(Config{})
	rels := x.PatternPass("Альфа поставил Альфа", []Entity{
		{Text: "Альфа", Type: TypeOrg},
		{Text: "Бета", Type: TypeOrg},
	})
	assert.Empty(t, rels)
}

func TestResolveTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		token string
		known []string
		want  string
		found bool
	}{
		{"exact beats containment", "Альфа", []string{"ООО Альфа", "альфа"}, "альфа", true},
		{"longest containing entity", "Альфа", []string{"Альфа Групп", "ООО Альфа Групп Холдинг", "Альфа Банк"}, "ООО Альфа Групп Холдинг", true},
		{"entity contained in token", "Альфабанк", []string{"Бета", "Альфа"}, "Альфа", true},
		{"first registered on equal length", "Групп", []string{"Альфа Групп", "Гамма Групп"}, "Альфа Групп", true},
		{"single rune only exact", "и", []string{"Иванов"}, "", false},
		{"no match", "Дельта", []string{"Альфа"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var known []Entity
			for _, k := range tt.known {
				known = append(known, Entity{Text: k, Type: TypeOrg})
			}
			got, ok := resolve(tt.token, known)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

// ---------------------------------------------------------------------------
// Proximity pass
// ---------------------------------------------------------------------------

func TestProximitySignContract(t *testing.T) {
	x := NewExtractor(Config{})
	text := "ООО Альфа заключил договор на поставку оборудования с компанией ООО Бета в срок."
	a := span(t, text, "ООО Альфа", TypeOrg)
	b := span(t, text, "ООО Бета", TypeOrg)
	require.Less(t, b.Start-a.End, 100)

	rels := x.ProximityPass(text, []Entity{b, a})
	require.Len(t, rels, 1)
	r := rels[0]
	assert.Equal(t, "ООО Альфа", r.Source)
	assert.Equal(t, "ООО Бета", r.Target)
	assert.Equal(t, RelSignContract, r.Relation)
	assert.GreaterOrEqual(t, utf8.RuneCountInString(r.Context), 10)
	assert.True(t, strings.HasPrefix(r.Context, "заключил договор"))
	assert.True(t, strings.HasSuffix(r.Context, "ООО Бета в срок."))
}

func TestProximityFilters(t *testing.T) {
	x := NewExtractor(Config{})

	tests := []struct {
		name string
		text string
		a, b string
		want string // relation tag, empty for none
	}{
		{
			name: "short generic context dropped",
			text: "Иванов И.И. и Петров П.П. вместе.",
			a:    "Иванов И.И.", b: "Петров П.П.",
		},
		{
			name: "generic link with connective",
			text: "Иванов И.И. и Петров П.П. встретились в офисе на Тверской улице.",
			a:    "Иванов И.И.", b: "Петров П.П.",
			want: RelGenericLink,
		},
		{
			name: "keyword without verb or connective dropped",
			text: "Альфа, закупка: Бета",
			a:    "Альфа", b: "Бета",
		},
		{
			name: "context too short",
			text: "Альфа, Бета",
			a:    "Альфа", b: "Бета",
		},
		{
			name: "supply keyword",
			text: "Альфа осуществит поставка материалов для Бета",
			a:    "Альфа", b: "Бета",
			want: RelSupply,
		},
		{
			name: "adjacent entities",
			text: "АльфаБета подписать договор",
			a:    "Альфа", b: "Бета",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rels := x.ProximityPass(tt.text, []Entity{
				span(t, tt.text, tt.a, TypePerson),
				span(t, tt.text, tt.b, TypePerson),
			})
			if tt.want == "" {
				assert.Empty(t, rels)
				return
			}
			require.Len(t, rels, 1)
			assert.Equal(t, tt.want, rels[0].Relation)
		})
	}
}

func TestProximityWindow(t *testing.T) {
	x := NewExtractor(Config{})
	filler := strings.Repeat("слово ", 20) // 120 runes
	text := "Альфа заключил " + filler + "Бета"
	rels := x.ProximityPass(text, []Entity{
		span(t, text, "Альфа", TypeOrg),
		span(t, text, "Бета", TypeOrg),
	})
	assert.Empty(t, rels)
}

func TestProximityContextCapped(t *testing.T) {
	x := NewExtractor(Config{MaxContext: 15})
	text := "Альфа заключил договор с Бета на долгий срок."
	rels := x.ProximityPass(text, []Entity{
		span(t, text, "Альфа", TypeOrg),
		span(t, text, "Бета", TypeOrg),
	})
	require.Len(t, rels, 1)
	assert.Equal(t, 15, utf8.RuneCountInString(rels[0].Context))
}

func TestProximitySameEntitySkipped(t *testing.T) {
	x := NewExtractor(Config{})
	text := "Альфа заключил договор с альфа и далее"
	rels := x.ProximityPass(text, []Entity{
		span(t, text, "Альфа", TypeOrg),
		span(t, text, "альфа", TypeOrg),
	})
	assert.Empty(t, rels)
}

// ---------------------------------------------------------------------------
// Merge
// ---------------------------------------------------------------------------

func TestMergeIdempotent(t *testing.T) {
	in := []Relation{
		{Source: "Альфа", Target: "Бета", Relation: RelSupply, Context: "first"},
		{Source: "АЛЬФА", Target: "бета", Relation: RelSupply, Context: "second"},
		{Source: "Альфа", Target: "Бета", Relation: RelManage},
		{Source: "Бета", Target: "Альфа", Relation: RelSupply},
	}
	once := Merge(in)
	require.Len(t, once, 3)
	assert.Equal(t, "first", once[0].Context)
	assert.Equal(t, once, Merge(once))
}

func TestExtractPatternWinsAcrossChunks(t *testing.T) {
	x := NewExtractor(Config{})
	chunk0 := "Альфа и партнер Бета подписали договор о сотрудничестве надолго."
	chunk1 := "Альфа заключил договор с Бета."

	ents := func(text string) []Entity {
		return []Entity{span(t, text, "Альфа", TypeOrg), span(t, text, "Бета", TypeOrg)}
	}
	rels := x.Extract([]ChunkInput{
		{Text: chunk0, Entities: ents(chunk0)},
		{Text: chunk1, Entities: ents(chunk1)},
	})

	require.NotEmpty(t, rels)
	assert.Equal(t, RelSignContract, rels[0].Relation)
	assert.Equal(t, "Альфа заключил договор с Бета", rels[0].Context)
	for _, r := range rels {
		assert.NotEqual(t, Key(r.Source), Key(r.Target))
	}
	assert.Equal(t, rels, Merge(rels))
}
