package textutil

import (
	"math"
	"strconv"
	"strings"
)

// NoDataMarker is what the portal prints in cells without a value.
const NoDataMarker = "-"

// IsNoData reports whether raw cell text carries no value.
func IsNoData(text string) bool {
	return text == "" || text == NoDataMarker
}

// ParseNumeric parses pt-BR formatted numbers ("1.234.567,89"). The dot is a
// thousands separator and the comma the decimal mark. Unparseable input and
// the no-data markers yield ok == false, as do NaN and infinities.
func ParseNumeric(text string) (value float64, ok bool) {
	if IsNoData(text) {
		return 0, false
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
