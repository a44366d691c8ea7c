package mapreduce

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

type yearTotal struct {
	Year  int
	Total float64
}

func rank(totals map[int]float64) []yearTotal {
	ss := make([]yearTotal, 0, len(totals))
	for y, t := range totals {
		ss = append(ss, yearTotal{y, t})
	}

	// Sort by total (descending), newest year first on ties
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Total != ss[j].Total {
			return ss[i].Total > ss[j].Total
		}
		return ss[i].Year > ss[j].Year
	})
	return ss
}

// TopYears returns the n years with the largest totals as "year:total"
// strings (e.g. "2021:1,532,000").
func TopYears(totals map[int]float64, n int) []string {
	ss := rank(totals)

	limit := n
	if len(ss) < n {
		limit = len(ss)
	}
	if limit < 0 {
		limit = 0
	}

	years := make([]string, limit)
	for i := 0; i < limit; i++ {
		years[i] = fmt.Sprintf("%d:%s", ss[i].Year, humanize.Commaf(ss[i].Total))
	}
	return years
}

// PrintTopYears prints the top n years in a numbered list format.
func PrintTopYears(totals map[int]float64, n int) {
	for i, line := range TopYears(totals, n) {
		fmt.Printf("%d. %s\n", i+1, line)
	}
}
