package fetch

import (
	"fmt"
	"time"

	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dustin/go-humanize"
)

// Where the batches of a run came from.
const (
	SourcePortal = "portal"
	SourceCache  = "cache"
)

// OptionSummary counts the batches and records of one option.
type OptionSummary struct {
	Option  string `json:"option" yaml:"option"`
	Batches int    `json:"batches" yaml:"batches"`
	Records int    `json:"records" yaml:"records"`
}

// Summary is printed to stdout at the end of sweep and scrape.
type Summary struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	Kind       string          `json:"kind" yaml:"kind"`
	Source     string          `json:"source" yaml:"source"`
	Batches    int             `json:"batches" yaml:"batches"`
	Records    int             `json:"records" yaml:"records"`
	Options    []OptionSummary `json:"options" yaml:"options"`
	Output     string          `json:"output,omitempty" yaml:"output,omitempty"`
	OutputSize string          `json:"output_size,omitempty" yaml:"output_size,omitempty"`
	Duration   string          `json:"duration" yaml:"duration"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Fill counts batches per option, keeping the options in first-seen order.
func (s *Summary) Fill(batches []models.Batch, elapsed time.Duration) {
	s.Batches = len(batches)
	s.Records = models.RecordCount(batches)
	s.Duration = elapsed.Round(time.Millisecond).String()

	index := make(map[string]int)
	s.Options = s.Options[:0]
	for _, b := range batches {
		i, ok := index[b.Option]
		if !ok {
			i = len(s.Options)
			index[b.Option] = i
			s.Options = append(s.Options, OptionSummary{Option: b.Option})
		}
		s.Options[i].Batches++
		s.Options[i].Records += len(b.Records)
	}
}

// Line is the one-line human summary written to stderr.
func (s *Summary) Line() string {
	return fmt.Sprintf("Run %s (%s): %s batches, %s records from %s in %s",
		s.RunID[:min(8, len(s.RunID))], s.Kind,
		humanize.Comma(int64(s.Batches)), humanize.Comma(int64(s.Records)), s.Source, s.Duration)
}
