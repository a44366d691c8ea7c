// Package metadata reads an option's landing page to learn its display name,
// the published year range and the sub-options it offers.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/dtnitsch/vitiscrape/pkg/textutil"
)

var (
	yearRangePattern  = regexp.MustCompile(`\[(\d{4})-(\d{4})\]`)
	singleYearPattern = regexp.MustCompile(`\[(\d{4})\]`)
	titleYearSuffix   = regexp.MustCompile(`^(.*?)(?:\[\d{4}\])?$`)
)

// Pager fetches and parses one page.
type Pager interface {
	GetHtml(ctx context.Context, url string) (*goquery.Document, error)
}

type Discoverer struct {
	pager   Pager
	baseURL string
	logger  *slog.Logger
}

// NewDiscoverer returns a Discoverer querying baseURL through pager.
// An empty baseURL means portal.BaseURL.
func NewDiscoverer(pager Pager, baseURL string, logger *slog.Logger) *Discoverer {
	if baseURL == "" {
		baseURL = portal.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{pager: pager, baseURL: baseURL, logger: logger}
}

// Discover never fails: when the landing page cannot be fetched the result
// has nil year bounds, no sub-options and the normalized code as its name.
func (d *Discoverer) Discover(ctx context.Context, code string, refYear int) models.PageMetadata {
	meta := models.PageMetadata{
		SubOptions:  []models.SubOption{},
		DisplayName: fallbackName(code),
	}

	doc, err := d.pager.GetHtml(ctx, portal.PageURL(d.baseURL, refYear, code, ""))
	if err != nil {
		d.logger.WarnContext(ctx, "could not fetch metadata page", "option", code, "year", refYear, "error", err)
		return meta
	}

	meta.DisplayName = DisplayName(doc, code)
	meta.SubOptions = SubOptions(doc)
	meta.MinYear, meta.MaxYear = YearRange(doc)

	if !meta.HasYears() && len(meta.SubOptions) > 0 {
		first := meta.SubOptions[0].Code
		subDoc, err := d.pager.GetHtml(ctx, portal.PageURL(d.baseURL, refYear, code, first))
		if err != nil {
			d.logger.WarnContext(ctx, "could not fetch sub-option metadata page",
				"option", code, "suboption", first, "error", err)
		} else if lo, hi := YearRange(subDoc); lo != nil {
			meta.MinYear, meta.MaxYear = lo, hi
		}
	}

	if !meta.HasYears() {
		if year, ok := TitleYear(doc); ok {
			if meta.MinYear == nil {
				meta.MinYear = intPtr(year)
			}
			if meta.MaxYear == nil {
				meta.MaxYear = intPtr(year)
			}
		}
	}

	d.logger.DebugContext(ctx, "discovered option metadata",
		"option", code, "name", meta.DisplayName, "min_year", deref(meta.MinYear),
		"max_year", deref(meta.MaxYear), "suboptions", len(meta.SubOptions))
	return meta
}

// DisplayName picks the option's label from, in order: the option's own
// selector button, the part of the page title before " - ", the title without
// its trailing "[YYYY]", or the code itself.
func DisplayName(doc *goquery.Document, code string) string {
	selector := fmt.Sprintf(`button[name=%q][value=%q]`, portal.OptionControlName, code)
	if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
		return textutil.Normalize(text)
	}

	title := doc.Find(portal.TitleSelector).First()
	if title.Length() > 0 {
		text := strings.TrimSpace(title.Text())
		if before, _, found := strings.Cut(text, " - "); found {
			if name := textutil.Normalize(strings.TrimSpace(before)); name != "" {
				return name
			}
		} else if m := titleYearSuffix.FindStringSubmatch(text); m != nil {
			if name := textutil.Normalize(strings.TrimSpace(m[1])); name != "" {
				return name
			}
		}
	}

	return fallbackName(code)
}

// YearRange reads "[YYYY-YYYY]" from the year selector label. Both bounds are
// nil when the label is missing or does not match.
func YearRange(doc *goquery.Document) (*int, *int) {
	label := doc.Find(portal.YearLabelSelector).First()
	if label.Length() == 0 {
		return nil, nil
	}
	m := yearRangePattern.FindStringSubmatch(label.Text())
	if m == nil {
		return nil, nil
	}
	lo, _ := strconv.Atoi(m[1])
	hi, _ := strconv.Atoi(m[2])
	return &lo, &hi
}

// TitleYear reads a single "[YYYY]" from the page title.
func TitleYear(doc *goquery.Document) (int, bool) {
	title := doc.Find(portal.TitleSelector).First()
	if title.Length() == 0 {
		return 0, false
	}
	m := singleYearPattern.FindStringSubmatch(title.Text())
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	return year, err == nil
}

// SubOptions lists the sub-option selector controls in document order.
// Controls lacking either a value or a label are skipped.
func SubOptions(doc *goquery.Document) []models.SubOption {
	subs := []models.SubOption{}
	selector := fmt.Sprintf(`button[name=%q], input[name=%q]`, portal.SubOptionControl, portal.SubOptionControl)

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		code, _ := s.Attr("value")
		var label string
		if goquery.NodeName(s) == "input" {
			if kind, _ := s.Attr("type"); kind != "submit" {
				return
			}
			label = code
		} else {
			label = s.Text()
		}

		code = strings.TrimSpace(code)
		name := textutil.Normalize(strings.TrimSpace(label))
		if code == "" || name == "" {
			return
		}
		subs = append(subs, models.SubOption{Code: code, DisplayName: name})
	})
	return subs
}

func fallbackName(code string) string {
	if name := textutil.Normalize(code); name != "" {
		return name
	}
	return code
}

func intPtr(v int) *int { return &v }

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
