package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestIndexCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range indexCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"run", "remove", "clear", "list", "status", "chunks"}, names)
}

func TestIndexRun(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "run", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "Indexing doc-2...")
	assert.Contains(t, out, "Status:  completed")
	assert.Contains(t, out, "Chunks:  2/2")
	assert.Equal(t, domain.IndexCompleted, ts.docs.docs["doc-2"].Status.State)
}

func TestIndexRun_FailurePrintsStatus(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.index.indexErr = errors.Join(domain.ErrProviderUnavailable, errors.New("quota exceeded"))

	out, err := execute(t, "index", "run", "doc-2")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Contains(t, out, "Status:  failed")
	assert.Contains(t, out, "quota exceeded")
}

func TestIndexRun_NotConfigured(t *testing.T) {
	SetServices(&Services{AIErr: domain.ErrNotConfigured})
	defer SetServices(&Services{})

	_, err := execute(t, "index", "run", "doc-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestIndexRemove(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "remove", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 removed from index.")
	assert.Equal(t, domain.IndexPending, ts.docs.docs["doc-1"].Status.State)
}

func TestIndexClear_RequiresConfirmation(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "index", "clear")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, ts.index.cleared)
}

func TestIndexClear(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "clear", "--yes")

	require.NoError(t, err)
	assert.Contains(t, out, "Index cleared.")
	assert.Equal(t, []string{DefaultOwner}, ts.index.cleared)
}

func TestIndexList(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Sky facts")
	assert.NotContains(t, out, "Grass facts")
	assert.Contains(t, out, "Total: 1 indexed documents")
}

func TestIndexStatus(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "status", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "Status:  pending")
}

func TestIndexChunks(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "chunks", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "── chunk 0 (runes 0-5) ──")
	assert.Contains(t, out, "second")
}

func TestIndexChunks_NotIndexed(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "chunks", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "Document is not indexed.")
}
