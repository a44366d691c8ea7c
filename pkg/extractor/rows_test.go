package extractor

import (
	"testing"

	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/stretchr/testify/require"
)

func firstRow(t *testing.T, cells string) Row {
	t.Helper()
	doc := mustDoc(t, `<table><tbody><tr>`+cells+`</tr></tbody></table>`)
	return newRow(doc.Find("tr").First())
}

func TestClassify(t *testing.T) {
	paired := portal.Hints{PairedItemCategories: true}

	tests := []struct {
		name    string
		cells   string
		hints   portal.Hints
		headers int
		want    RowKind
	}{
		{"no data cells", `<th>Produto</th>`, portal.Hints{}, 2, RowSkip},
		{"spanning cell", `<td colspan="2">TINTAS</td>`, portal.Hints{}, 2, RowCategory},
		{"emphasized cell", `<td><strong>BRANCAS</strong></td>`, portal.Hints{}, 2, RowCategory},
		{"spanning total is still a category row", `<td colspan="2">Total</td>`, portal.Hints{}, 2, RowCategory},
		{"paired items with hint", `<td class="tb_item">A</td><td class="tb_item">1</td>`, paired, 2, RowCategory},
		{"paired items without hint", `<td class="tb_item">A</td><td class="tb_item">1</td>`, portal.Hints{}, 2, RowData},
		{"total", `<td>TOTAL</td><td>10</td>`, portal.Hints{}, 2, RowTotal},
		{"subtotal", `<td>  subtotal tintos</td><td>10</td>`, portal.Hints{}, 2, RowTotal},
		{"underfull", `<td>Tinto</td>`, portal.Hints{}, 2, RowSkip},
		{"single cell single header", `<td>Tinto</td>`, portal.Hints{}, 1, RowData},
		{"data", `<td>Tinto</td><td>10</td>`, portal.Hints{}, 3, RowData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(firstRow(t, tt.cells), tt.hints, tt.headers)
			require.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestRowKindString(t *testing.T) {
	require.Equal(t, "category", RowCategory.String())
	require.Equal(t, "unknown", RowKind(42).String())
}
