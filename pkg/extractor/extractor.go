// Package extractor turns the portal's data tables into flat records,
// threading category rows down into the data rows beneath them.
package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/dtnitsch/vitiscrape/pkg/textutil"
	"golang.org/x/net/html"
)

// ErrTableNotFound means the page has no data table. Some option, year and
// sub-option combinations legitimately have none.
var ErrTableNotFound = errors.New("data table not found")

// UnitPrefix prefixes the field holding a column's unit.
const UnitPrefix = models.UnitPrefix

var unitSuffix = regexp.MustCompile(`^(.*)_(` + strings.Join(portal.UnitSuffixes, "|") + `)$`)

type Extractor struct {
	hints  map[string]portal.Hints
	logger *slog.Logger
}

// New returns an Extractor applying the per-option hints. A nil hints map
// means portal.DefaultHints.
func New(hints map[string]portal.Hints, logger *slog.Logger) *Extractor {
	if hints == nil {
		hints = portal.DefaultHints()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{hints: hints, logger: logger}
}

// Extract returns the records of the page's data table, or an empty slice
// when the page has none.
func (e *Extractor) Extract(doc *goquery.Document, code string) []models.Record {
	records, err := e.ExtractTable(doc.Selection, code)
	if err != nil {
		e.logger.Debug("no records extracted", "option", code, "error", err)
		return []models.Record{}
	}
	return records
}

// ExtractTable locates the data table under root and extracts it.
func (e *Extractor) ExtractTable(root *goquery.Selection, code string) ([]models.Record, error) {
	table := root.Find(portal.DataTableSelector).First()
	if table.Length() == 0 {
		return nil, ErrTableNotFound
	}

	hdr := resolveHeader(table)
	rows := dataRows(table, hdr)
	if len(hdr.keys) == 0 {
		hdr.keys = syntheticHeader(rows)
		e.logger.Info("table has no usable header, using generic column names",
			"option", code, "columns", hdr.keys)
	}

	hints := e.hints[code]
	records := []models.Record{}
	var category any

	for _, tr := range rows {
		row := newRow(tr)
		switch Classify(row, hints, len(hdr.keys)) {
		case RowCategory:
			if text := row.FirstText(); text != "" && !textutil.IsTotalLabel(text) {
				category = text
			}
			continue
		case RowTotal, RowSkip:
			continue
		}

		rec := buildRecord(row, hdr.keys, hints)
		if !rec.HasValue() {
			continue
		}
		rec[models.CategoryField] = category
		records = append(records, rec)

		if hints.ItemCarriesCategory && row.cellHasClass(0, portal.ItemClass) {
			if text := row.FirstText(); text != "" && !textutil.HasPrefixFold(text, "total") {
				category = text
			}
		}
	}

	return records, nil
}

type header struct {
	keys []string
	// row is the <tr> the header was read from when it sits among the body
	// rows; it must not be parsed again as data.
	row *html.Node
	// start is the index into all rows where data begins when the table has
	// no tbody.
	start int
}

// resolveHeader prefers a thead row, then the first row holding th cells or
// emphasized text, then the first row.
func resolveHeader(table *goquery.Selection) header {
	var hdr header
	var cells *goquery.Selection

	if tr := table.Find("thead tr").First(); tr.Length() > 0 {
		cells = tr.ChildrenFiltered("th, td")
	} else {
		all := table.Find("tr")
		if all.Length() == 0 {
			return hdr
		}
		all.EachWithBreak(func(i int, tr *goquery.Selection) bool {
			if tr.ChildrenFiltered("th").Length() > 0 || tr.Find("strong").Length() > 0 {
				cells = tr.ChildrenFiltered("th, td")
				hdr.row = tr.Get(0)
				hdr.start = i + 1
				return false
			}
			return true
		})
		if cells == nil {
			first := all.First()
			cells = first.ChildrenFiltered("th, td")
			hdr.row = first.Get(0)
			hdr.start = 1
		}
	}

	cells.Each(func(_ int, c *goquery.Selection) {
		if key := textutil.Normalize(strings.TrimSpace(c.Text())); key != "" {
			hdr.keys = append(hdr.keys, key)
		}
	})
	return hdr
}

// dataRows returns the tbody rows, or every row after the header when the
// table has no tbody.
func dataRows(table *goquery.Selection, hdr header) []*goquery.Selection {
	var rows []*goquery.Selection

	if body := table.Find("tbody").First(); body.Length() > 0 {
		body.ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
			if hdr.row != nil && tr.Get(0) == hdr.row {
				return
			}
			rows = append(rows, tr)
		})
		return rows
	}

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i >= hdr.start {
			rows = append(rows, tr)
		}
	})
	return rows
}

// syntheticHeader names columns coluna_1..coluna_N after the first data row's
// cell count, with at least two columns.
func syntheticHeader(rows []*goquery.Selection) []string {
	n := 0
	if len(rows) > 0 {
		n = rows[0].ChildrenFiltered("td").Length()
	}
	if n == 0 {
		n = 2
	}
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("coluna_%d", i+1)
	}
	return keys
}

func buildRecord(row Row, keys []string, hints portal.Hints) models.Record {
	rec := models.Record{}
	for i, raw := range row.Texts {
		if i >= len(keys) {
			break
		}
		key := keys[i]
		value := cellValue(raw, i, keys, hints)

		base, unit := SplitUnit(key)
		rec[base] = value
		if unit != "" {
			rec[UnitPrefix+base] = unit
		}
	}
	return rec
}

// cellValue returns nil for no-data cells, a float64 for numeric columns that
// parse, and the raw text otherwise.
func cellValue(raw string, index int, keys []string, hints portal.Hints) any {
	if textutil.IsNoData(raw) {
		return nil
	}
	if !isNumericColumn(keys[index], index, len(keys), hints) {
		return raw
	}
	if v, ok := textutil.ParseNumeric(raw); ok {
		return v
	}
	return raw
}

func isNumericColumn(key string, index, count int, hints portal.Hints) bool {
	for _, kw := range portal.NumericKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	if count > 1 && index == count-1 {
		return true
	}
	return hints.IsNumericColumn(index)
}

// SplitUnit separates a unit-suffixed header ("quantidade__kg" or
// "valor_us") into its base name and unit. Headers without a unit come back
// unchanged with an empty unit.
func SplitUnit(key string) (base, unit string) {
	if b, u, found := strings.Cut(key, "__"); found {
		return b, u
	}
	if m := unitSuffix.FindStringSubmatch(key); m != nil {
		return m[1], m[2]
	}
	return key, ""
}
