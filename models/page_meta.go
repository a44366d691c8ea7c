package models

// SubOption is a secondary filter discovered on an option page (e.g. wine type
// under processing).
type SubOption struct {
	Code        string `json:"code" yaml:"code"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// PageMetadata describes the queryable shape of one top-level option.
// It is recomputed on every run since the portal may change over time.
type PageMetadata struct {
	MinYear     *int        `json:"min_year" yaml:"min_year"`
	MaxYear     *int        `json:"max_year" yaml:"max_year"`
	SubOptions  []SubOption `json:"sub_options" yaml:"sub_options"`
	DisplayName string      `json:"display_name" yaml:"display_name"`
}

// YearBounds resolves the discovered range, substituting the fallbacks for
// whichever bound was not found.
func (m PageMetadata) YearBounds(fallbackMin, fallbackMax int) (int, int) {
	minYear, maxYear := fallbackMin, fallbackMax
	if m.MinYear != nil {
		minYear = *m.MinYear
	}
	if m.MaxYear != nil {
		maxYear = *m.MaxYear
	}
	return minYear, maxYear
}

// HasYears reports whether both bounds were discovered.
func (m PageMetadata) HasYears() bool {
	return m.MinYear != nil && m.MaxYear != nil
}
