package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestTUICmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"tui"})
	require.NoError(t, err)
	assert.Equal(t, "tui", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("session"))
}

func TestTUICmd_RequiresChat(t *testing.T) {
	SetServices(&Services{})

	_, err := execute(t, "tui")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestTUICmd_ReportsAIError(t *testing.T) {
	docs := newMockDocumentService()
	SetServices(&Services{Document: docs, AIErr: domain.ErrProviderUnavailable})
	defer SetServices(&Services{})

	_, err := execute(t, "tui")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
