package models

import "strings"

// CategoryField is the record key holding the nearest enclosing category
// row's text (nil when the table has no category rows above the record).
const CategoryField = "categoria_tabela"

// UnitPrefix prefixes the field holding a column's unit, e.g. unidade_quantidade.
const UnitPrefix = "unidade_"

// MinYear is the earliest year the portal publishes.
const MinYear = 1970

// Record is one normalized table row. Values are string, float64 or nil.
type Record map[string]any

// HasValue reports whether at least one cell field is non-nil. The category
// and the unit fields come from surrounding rows and headers, not the row.
func (r Record) HasValue() bool {
	for k, v := range r {
		if k == CategoryField || strings.HasPrefix(k, UnitPrefix) {
			continue
		}
		if v != nil {
			return true
		}
	}
	return false
}

// Batch is the set of records produced for one (year, option, sub-option) combination.
type Batch struct {
	Year      int      `json:"ano" yaml:"ano"`
	Option    string   `json:"aba" yaml:"aba"`
	SubOption *string  `json:"subopcao" yaml:"subopcao"`
	Records   []Record `json:"dados" yaml:"dados"`
}

// SubOptionName returns the sub-option display name or "" when absent.
func (b Batch) SubOptionName() string {
	if b.SubOption == nil {
		return ""
	}
	return *b.SubOption
}

// RecordCount sums the records over a list of batches.
func RecordCount(batches []Batch) int {
	n := 0
	for _, b := range batches {
		n += len(b.Records)
	}
	return n
}
