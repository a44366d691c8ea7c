package metadata

import (
	"fmt"

	"github.com/dtnitsch/vitiscrape/internal/common"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/fetcher"
	metadatapkg "github.com/dtnitsch/vitiscrape/pkg/metadata"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/urfave/cli/v2"
)

// Report is the metadata of one option as printed by the metadata command.
type Report struct {
	Option              string `json:"option" yaml:"option"`
	Code                string `json:"code" yaml:"code"`
	Year                int    `json:"reference_year" yaml:"reference_year"`
	models.PageMetadata `yaml:",inline"`
}

// MetadataAction discovers and prints the year range and sub-options of one
// option, or of every option when --option is empty.
func MetadataAction(c *cli.Context) error {
	logger := common.Logger(c)
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	year := cfg.ReferenceYear
	if c.IsSet("year") {
		year = c.Int("year")
	}

	codes := portal.MainOptions
	if name := c.String("option"); name != "" {
		code, ok := portal.ResolveOption(name)
		if !ok {
			return fmt.Errorf("unknown option %q (valid: %v)", name, portal.OptionNames())
		}
		codes = []string{code}
	}

	fopts := fetcher.OptionsFromConfig(cfg)
	fopts.Logger = logger
	d := metadatapkg.NewDiscoverer(fetcher.NewFetcher(fopts), cfg.BaseURL, logger)

	reports := make([]Report, 0, len(codes))
	for _, code := range codes {
		meta := d.Discover(c.Context, code, year)
		reports = append(reports, Report{
			Option:       portal.OptionName(code),
			Code:         code,
			Year:         year,
			PageMetadata: meta,
		})
	}
	return common.PrintOutput(c, reports)
}
