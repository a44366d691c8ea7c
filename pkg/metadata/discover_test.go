package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/stretchr/testify/require"
)

const base = "http://portal.test/index.php"

type fakePager struct {
	pages map[string]string
	calls []string
}

func (f *fakePager) GetHtml(_ context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("page not found or unreachable")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "option button wins",
			html: `<button name="opcao" value="opt_02">Produção</button><p class="text_center">Outra coisa - X</p>`,
			want: "producao",
		},
		{
			name: "title before separator",
			html: `<p class="text_center">Comercialização de vinhos - Total [2023]</p>`,
			want: "comercializacao_de_vinhos",
		},
		{
			name: "title without year suffix",
			html: `<p class="text_center">Importação de derivados [2021]</p>`,
			want: "importacao_de_derivados",
		},
		{
			name: "falls back to code",
			html: `<html><body></body></html>`,
			want: "opt_02",
		},
		{
			name: "button for another option ignored",
			html: `<button name="opcao" value="opt_03">Processamento</button>`,
			want: "opt_02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DisplayName(mustDoc(t, tt.html), "opt_02"))
		})
	}
}

func TestYearRange(t *testing.T) {
	lo, hi := YearRange(mustDoc(t, `<label class="lbl_pesq">Ano: [1970-2023]</label>`))
	require.NotNil(t, lo)
	require.Equal(t, 1970, *lo)
	require.Equal(t, 2023, *hi)

	lo, hi = YearRange(mustDoc(t, `<label class="lbl_pesq">Ano</label>`))
	require.Nil(t, lo)
	require.Nil(t, hi)
}

func TestSubOptions(t *testing.T) {
	doc := mustDoc(t, `<form>
		<button name="subopcao" value="subopt_01">Vinhos de mesa</button>
		<input type="submit" name="subopcao" value="subopt_02">
		<input type="hidden" name="subopcao" value="subopt_03">
		<button name="subopcao" value="">Sem código</button>
		<button name="subopcao" value="subopt_05"> </button>
	</form>`)

	require.Equal(t, []models.SubOption{
		{Code: "subopt_01", DisplayName: "vinhos_de_mesa"},
		{Code: "subopt_02", DisplayName: "subopt_02"},
	}, SubOptions(doc))
}

func TestDiscover_FullPage(t *testing.T) {
	pager := &fakePager{pages: map[string]string{
		portal.PageURL(base, 2023, "opt_03", ""): `<html><body>
			<button name="opcao" value="opt_03">Processamento</button>
			<label class="lbl_pesq">Ano: [1970-2023]</label>
			<button name="subopcao" value="subopt_01">Viníferas</button>
			<button name="subopcao" value="subopt_02">Americanas e híbridas</button>
		</body></html>`,
	}}

	meta := NewDiscoverer(pager, base, nil).Discover(context.Background(), "opt_03", 2023)
	require.Equal(t, "processamento", meta.DisplayName)
	require.Equal(t, 1970, *meta.MinYear)
	require.Equal(t, 2023, *meta.MaxYear)
	require.Len(t, meta.SubOptions, 2)
	require.Equal(t, "americanas_e_hibridas", meta.SubOptions[1].DisplayName)
	require.Len(t, pager.calls, 1)
}

func TestDiscover_YearsFromFirstSubOption(t *testing.T) {
	pager := &fakePager{pages: map[string]string{
		portal.PageURL(base, 2023, "opt_05", ""): `<html><body>
			<button name="subopcao" value="subopt_01">Vinhos</button>
			<button name="subopcao" value="subopt_02">Espumantes</button>
		</body></html>`,
		portal.PageURL(base, 2023, "opt_05", "subopt_01"): `<label class="lbl_pesq">[1980-2022]</label>`,
	}}

	meta := NewDiscoverer(pager, base, nil).Discover(context.Background(), "opt_05", 2023)
	require.Equal(t, 1980, *meta.MinYear)
	require.Equal(t, 2022, *meta.MaxYear)
	require.Equal(t, "opt_05", meta.DisplayName)
	require.Len(t, pager.calls, 2)
}

func TestDiscover_YearFromTitle(t *testing.T) {
	pager := &fakePager{pages: map[string]string{
		portal.PageURL(base, 2023, "opt_02", ""): `<p class="text_center">Produção de vinhos [2023]</p>`,
	}}

	meta := NewDiscoverer(pager, base, nil).Discover(context.Background(), "opt_02", 2023)
	require.Equal(t, "producao_de_vinhos", meta.DisplayName)
	require.Equal(t, 2023, *meta.MinYear)
	require.Equal(t, 2023, *meta.MaxYear)
	require.Empty(t, meta.SubOptions)
}

func TestDiscover_FetchFailure(t *testing.T) {
	pager := &fakePager{pages: map[string]string{}}

	meta := NewDiscoverer(pager, base, nil).Discover(context.Background(), "opt_06", 2023)
	require.Nil(t, meta.MinYear)
	require.Nil(t, meta.MaxYear)
	require.NotNil(t, meta.SubOptions)
	require.Empty(t, meta.SubOptions)
	require.Equal(t, "opt_06", meta.DisplayName)
	require.False(t, meta.HasYears())
}
