package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/dtnitsch/vitiscrape/pkg/textutil"
)

// RowKind is the outcome of classifying one table row.
type RowKind int

const (
	RowData RowKind = iota
	RowSkip
	RowCategory
	RowTotal
)

func (k RowKind) String() string {
	switch k {
	case RowData:
		return "data"
	case RowSkip:
		return "skip"
	case RowCategory:
		return "category"
	case RowTotal:
		return "total"
	default:
		return "unknown"
	}
}

// Row is a table row reduced to its data cells.
type Row struct {
	Cells *goquery.Selection
	Texts []string
}

func newRow(tr *goquery.Selection) Row {
	cells := tr.ChildrenFiltered("td")
	texts := make([]string, cells.Length())
	cells.Each(func(i int, td *goquery.Selection) {
		texts[i] = strings.TrimSpace(td.Text())
	})
	return Row{Cells: cells, Texts: texts}
}

// FirstText is the trimmed text of the first cell, or "".
func (r Row) FirstText() string {
	if len(r.Texts) == 0 {
		return ""
	}
	return r.Texts[0]
}

func (r Row) cellHasClass(i int, class string) bool {
	if i >= r.Cells.Length() {
		return false
	}
	return r.Cells.Eq(i).HasClass(class)
}

// Classifier inspects a row and reports a kind when it recognizes the row.
type Classifier func(r Row, hints portal.Hints, headerCount int) (RowKind, bool)

// Classifiers run top to bottom; the first match wins and unmatched rows are
// data. Category detection must precede the total check so that a spanning
// "Total" heading is skipped without becoming the category.
var Classifiers = []Classifier{
	emptyRow,
	categoryRow,
	totalRow,
	underfullRow,
}

// Classify applies Classifiers to r.
func Classify(r Row, hints portal.Hints, headerCount int) RowKind {
	for _, c := range Classifiers {
		if kind, ok := c(r, hints, headerCount); ok {
			return kind
		}
	}
	return RowData
}

func emptyRow(r Row, _ portal.Hints, _ int) (RowKind, bool) {
	return RowSkip, len(r.Texts) == 0
}

// categoryRow matches a lone spanning or emphasized cell, and for options with
// paired item rows, rows whose first two cells both carry the item class.
func categoryRow(r Row, hints portal.Hints, _ int) (RowKind, bool) {
	if len(r.Texts) == 1 {
		cell := r.Cells.First()
		if _, spans := cell.Attr("colspan"); spans || cell.Find("strong").Length() > 0 {
			return RowCategory, true
		}
	}
	if hints.PairedItemCategories && len(r.Texts) >= 2 &&
		r.cellHasClass(0, portal.ItemClass) && r.cellHasClass(1, portal.ItemClass) {
		return RowCategory, true
	}
	return RowData, false
}

func totalRow(r Row, _ portal.Hints, _ int) (RowKind, bool) {
	return RowTotal, textutil.IsTotalLabel(r.FirstText())
}

func underfullRow(r Row, _ portal.Hints, headerCount int) (RowKind, bool) {
	n := len(r.Texts)
	return RowSkip, n < headerCount && n < 2
}
