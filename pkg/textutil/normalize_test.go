package textutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"accents and kg unit", "Produção (Kg)", "producao_kg"},
		{"hyphen separator", "Comercialização - Total", "comercializacao_total"},
		{"liters unit", "Quantidade (L)", "quantidade_l"},
		{"dollar unit", "Valor (US$)", "valor_us"},
		{"unit marker is case sensitive", "Peso (KG)", "peso_kg"},
		{"collapses whitespace", "  Vinho   de  Mesa ", "vinho_de_mesa"},
		{"strips punctuation", "Países/Regiões!", "paisesregioes"},
		{"non decomposable runes dropped", "Straße ø", "strae"},
		{"only punctuation", "***", ""},
		{"digits kept", "Safra 2023", "safra_2023"},
		{"already normalized", "quantidade__kg", "quantidade_kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_TokenShape(t *testing.T) {
	token := regexp.MustCompile(`^[a-z0-9_]*$`)
	inputs := []string{
		"Produção (Kg)", "Exportação - Vinhos de Mesa", "Suco de uva  concentrado",
		"Açúcar & Álcool", "\tTab\nNew line", "Ñandú — ‘quoted’", "100% (US$)",
	}
	for _, in := range inputs {
		got := Normalize(in)
		require.Regexp(t, token, got, "input %q", in)
		assert.NotContains(t, got, " ")
		assert.NotContains(t, got, "-")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"Produção (Kg)", "Comercialização - Total", "Vinho Fino de Mesa (Vinifera)"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestIsTotalLabel(t *testing.T) {
	assert.True(t, IsTotalLabel("Total"))
	assert.True(t, IsTotalLabel("SUBTOTAL vinhos"))
	assert.True(t, IsTotalLabel("  total geral"))
	assert.False(t, IsTotalLabel("Tinto"))
	assert.False(t, IsTotalLabel(""))
}
