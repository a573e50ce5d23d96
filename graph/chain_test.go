package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildChains(t *testing.T) {
	entities := []Entity{
		{Text: "ООО Бета", Type: TypeOrg},
		{Text: "ООО Альфа", Type: TypeOrg},
		{Text: "Москва", Type: TypeLocation},
	}
	relations := []Relation{
		{Source: "ООО Альфа", Target: "ООО Бета", Relation: RelSignContract},
		{Source: "ООО Бета", Target: "Москва", Relation: RelGenericLink},
		{Source: "ООО Альфа", Target: "Москва", Relation: RelSupply},
		{Source: "Неизвестный", Target: "Москва", Relation: RelSupply},
	}

	got := BuildChains(entities, relations)
	want := []Chain{
		{"ООО Бета", RelGenericLink, "Москва"},
		{"ООО Альфа", RelSignContract, "ООО Бета"},
		{"ООО Альфа", RelSupply, "Москва"},
	}
	assert.Equal(t, want, got)
}

func TestBuildChainsEmpty(t *testing.T) {
	got := BuildChains(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
