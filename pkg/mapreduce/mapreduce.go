package mapreduce

import (
	"strconv"
	"strings"

	"github.com/dtnitsch/vitiscrape/models"
)

// QuantityKeys are tried in order to find a record's quantity.
var QuantityKeys = []string{"quantidade", "valor", "volume", "producao", "total"}

// Map totals the positive quantities of a single batch, keyed by its year.
func Map(batch models.Batch) map[int]float64 {
	total := 0.0
	for _, rec := range batch.Records {
		if q, ok := Quantity(rec); ok && q > 0 {
			total += q
		}
	}
	return map[int]float64{batch.Year: total}
}

// Reduce aggregates per-batch totals into one total per year.
func Reduce(intermediate []map[int]float64) map[int]float64 {
	finalResults := make(map[int]float64)

	for _, totals := range intermediate {
		for year, total := range totals {
			finalResults[year] += total
		}
	}

	return finalResults
}

// YearlyTotals maps and reduces batches, dropping years whose total is not
// positive.
func YearlyTotals(batches []models.Batch) map[int]float64 {
	intermediate := make([]map[int]float64, 0, len(batches))
	for _, b := range batches {
		intermediate = append(intermediate, Map(b))
	}

	totals := Reduce(intermediate)
	for year, total := range totals {
		if total <= 0 {
			delete(totals, year)
		}
	}
	return totals
}

// Quantity returns the first of QuantityKeys holding a number. Text values
// are read by keeping only their digits and dots.
func Quantity(rec models.Record) (float64, bool) {
	for _, key := range QuantityKeys {
		v, ok := rec[key]
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, n)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
