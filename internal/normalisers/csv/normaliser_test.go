package csv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestNormalise(t *testing.T) {
	data := "\xef\xbb\xbfname, team ,office\nAda,Platform,London\nGrace,,\"New York, NY\"\n,,\nLin,Infra,Berlin,extra\n"

	out, err := New().Normalise(context.Background(), &domain.RawContent{
		Name:     "staff_directory.csv",
		MIMEType: "text/csv",
		Data:     []byte(data),
	})
	require.NoError(t, err)

	assert.Equal(t, "name: Ada; team: Platform; office: London\n"+
		"name: Grace; office: New York, NY\n"+
		"name: Lin; team: Infra; office: Berlin; column 4: extra", out.Text)
	assert.Equal(t, "staff directory", out.Title)
	assert.Equal(t, "name, team, office", out.Metadata["columns"])
	assert.Equal(t, 4, out.Metadata["rows"])
}

func TestNormalise_TSV(t *testing.T) {
	out, err := New().Normalise(context.Background(), &domain.RawContent{
		Name:     "t.tsv",
		MIMEType: "text/tab-separated-values",
		Data:     []byte("k\tv\nalpha\t1\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "k: alpha; v: 1", out.Text)
}

func TestNormalise_Empty(t *testing.T) {
	out, err := New().Normalise(context.Background(), &domain.RawContent{Name: "empty.csv", Data: nil})
	require.NoError(t, err)
	assert.Empty(t, out.Text)
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
