//go:build cgo

package bizextract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/bizextract/graph"
)

func TestProcessAndPersistArchives(t *testing.T) {
	p := newTestPipeline(t, Config{DBPath: filepath.Join(t.TempDir(), "records.db")})
	require.NotNil(t, p.Store())

	dir := t.TempDir()
	contract := writeFile(t, dir, "contract.txt", contractText)
	blank := writeFile(t, dir, "blank.txt", "")

	ctx := context.Background()
	_, err := p.ProcessAndPersist(ctx, contract, "")
	require.NoError(t, err)
	_, err = p.ProcessAndPersist(ctx, blank, "")
	require.NoError(t, err)

	got, err := p.Store().GetRecord(ctx, p.RunID(), "contract.txt")
	require.NoError(t, err)
	assert.Equal(t, contract, got.Path)
	assert.Equal(t, "Продажи", got.Category)
	require.NotNil(t, got.ProcessNumber)
	assert.Equal(t, 24, *got.ProcessNumber)
	assert.Len(t, got.Entities, 2)
	require.Len(t, got.Relations, 1)
	assert.Equal(t, graph.RelSignContract, got.Relations[0].Relation)
	assert.Contains(t, string(got.Payload), "ООО «Бета»")

	empty, err := p.Store().GetRecord(ctx, p.RunID(), "blank.txt")
	require.NoError(t, err)
	assert.Equal(t, EmptyDocumentError, empty.Error)
	assert.Empty(t, empty.Entities)

	runs, err := p.Store().ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, p.RunID(), runs[0].ID)
	assert.Equal(t, 2, runs[0].Documents)
}
