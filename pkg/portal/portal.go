// Package portal holds what is specific to the Vitibrasil statistics portal:
// option codes, query parameters, markup markers and per-option quirks.
package portal

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
)

const BaseURL = "http://vitibrasil.cnpuv.embrapa.br/index.php"

// Query parameters.
const (
	ParamYear      = "ano"
	ParamOption    = "opcao"
	ParamSubOption = "subopcao"
)

// Markup the scraper keys on.
const (
	DataTableSelector = "table.tb_dados"
	ItemClass         = "tb_item"
	YearLabelSelector = "label.lbl_pesq"
	TitleSelector     = "p.text_center"
	OptionControlName = "opcao"
	SubOptionControl  = "subopcao"
)

// Option codes.
const (
	OptProduction = "opt_02"
	OptProcessing = "opt_03"
	OptCommercial = "opt_04"
	OptImport     = "opt_05"
	OptExport     = "opt_06"
)

// Options maps the public option names to portal codes.
var Options = map[string]string{
	"producao":        OptProduction,
	"processamento":   OptProcessing,
	"comercializacao": OptCommercial,
	"importacao":      OptImport,
	"exportacao":      OptExport,
}

// MainOptions are swept by a full scrape, in output order.
var MainOptions = []string{OptProduction, OptProcessing, OptCommercial, OptImport, OptExport}

// NumericKeywords mark a column as numeric when contained in its header name.
var NumericKeywords = []string{"quantidade", "valor", "kg", "us", "l", "_ano", "coluna_2"}

// UnitSuffixes are recognized as "<base>_<unit>" header suffixes.
var UnitSuffixes = []string{"kg", "l", "us", "ml", "hl", "ton", "g", "m3"}

// Hints isolate per-option table quirks from the extraction algorithm.
type Hints struct {
	// NumericColumns are 0-based column indexes always treated as numeric.
	NumericColumns []int
	// PairedItemCategories treats rows whose first two cells carry the item
	// class as category headers.
	PairedItemCategories bool
	// ItemCarriesCategory makes an item-styled first cell the category of the
	// rows that follow it.
	ItemCarriesCategory bool
}

// IsNumericColumn reports whether index is forced numeric.
func (h Hints) IsNumericColumn(index int) bool {
	return slices.Contains(h.NumericColumns, index)
}

// DefaultHints is the quirk table for the known options.
func DefaultHints() map[string]Hints {
	return map[string]Hints{
		OptProduction: {ItemCarriesCategory: true},
		OptProcessing: {PairedItemCategories: true},
		OptCommercial: {ItemCarriesCategory: true},
		OptImport:     {NumericColumns: []int{1, 2}},
		OptExport:     {NumericColumns: []int{1, 2}},
	}
}

// PageURL builds the query URL for one (year, option, sub-option) page.
// An empty subOption is omitted.
func PageURL(base string, year int, option, subOption string) string {
	params := url.Values{}
	params.Set(ParamYear, strconv.Itoa(year))
	params.Set(ParamOption, option)
	if subOption != "" {
		params.Set(ParamSubOption, subOption)
	}
	return base + "?" + params.Encode()
}

// OptionCode resolves a public option name to its code.
func OptionCode(name string) (string, bool) {
	code, ok := Options[name]
	return code, ok
}

// OptionName is the public name of code, or code itself when unknown.
func OptionName(code string) string {
	for name, c := range Options {
		if c == code {
			return name
		}
	}
	return code
}

// ResolveOption accepts either a public name or a raw code.
func ResolveOption(nameOrCode string) (string, bool) {
	if code, ok := Options[nameOrCode]; ok {
		return code, true
	}
	for _, code := range Options {
		if code == nameOrCode {
			return code, true
		}
	}
	return "", false
}

// OptionNames lists the public option names, sorted.
func OptionNames() []string {
	names := make([]string, 0, len(Options))
	for name := range Options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
