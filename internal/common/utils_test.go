package common

import (
	"bytes"
	"testing"

	"github.com/dtnitsch/vitiscrape/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesOption(t *testing.T) {
	tests := []struct {
		stored, option string
		want           bool
	}{
		{"Produção", "producao", true},
		{"Comercialização", "comercializacao", true},
		{"producao", "producao", true},
		{"Exportação", "importacao", false},
		{"Processamento", "producao", false},
	}

	for _, tt := range tests {
		t.Run(tt.stored+"/"+tt.option, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesOption(tt.stored, tt.option))
		})
	}
}

func TestFilterBatches(t *testing.T) {
	batches := []models.Batch{
		{Year: 2019, Option: "Produção"},
		{Year: 2021, Option: "Produção"},
		{Year: 2021, Option: "Exportação"},
	}

	got := FilterBatches(batches, "producao", 2020)
	require.Len(t, got, 1)
	assert.Equal(t, 2021, got[0].Year)
	assert.Empty(t, FilterBatches(batches, "importacao", 1970))
}

func TestEncode(t *testing.T) {
	v := map[string]int{"batches": 2}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "json", v))
	assert.Equal(t, "{\n  \"batches\": 2\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, "YAML", v))
	assert.Equal(t, "batches: 2\n", buf.String())
}
