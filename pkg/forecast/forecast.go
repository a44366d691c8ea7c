// Package forecast projects the next year's total for an option from its
// stored yearly history with an ordinary least-squares line.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/mapreduce"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"gonum.org/v1/gonum/stat"
)

const (
	ModelName   = "linear_regression"
	DefaultUnit = "l"

	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendFlat       = "flat"
)

// flatSlope is the yearly change, relative to the mean, below which a trend
// counts as flat.
const flatSlope = 0.001

var (
	ErrUnsupportedOption = errors.New("option not supported for forecasting")
	ErrInsufficientData  = errors.New("at least two years of data are needed")
)

// SupportedOptions are the options Predict accepts.
var SupportedOptions = []string{"producao", "comercializacao", "importacao", "exportacao"}

type Details struct {
	Trend         string  `json:"trend" yaml:"trend"`
	ChangePercent float64 `json:"variacao_percentual" yaml:"variacao_percentual"`
	MAE           float64 `json:"mae" yaml:"mae"`
	RMSE          float64 `json:"rmse" yaml:"rmse"`
	Slope         float64 `json:"slope" yaml:"slope"`
}

type Forecast struct {
	Option          string    `json:"opcao" yaml:"opcao"`
	LastYear        int       `json:"ano_anterior" yaml:"ano_anterior"`
	LastQuantity    float64   `json:"quantidade_ano_anterior" yaml:"quantidade_ano_anterior"`
	NextYear        int       `json:"ano_previsto" yaml:"ano_previsto"`
	Predicted       float64   `json:"quantidade_prevista" yaml:"quantidade_prevista"`
	Unit            string    `json:"unidade" yaml:"unidade"`
	Confidence      float64   `json:"confianca" yaml:"confianca"`
	Model           string    `json:"modelo_usado" yaml:"modelo_usado"`
	HistoricalYears int       `json:"dados_historicos_anos" yaml:"dados_historicos_anos"`
	GeneratedAt     time.Time `json:"data_previsao" yaml:"data_previsao"`
	Details         Details   `json:"detalhes" yaml:"detalhes"`
}

// ValidateOption rejects options that cannot be forecast.
func ValidateOption(option string) error {
	if !slices.Contains(SupportedOptions, option) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedOption, option, SupportedOptions)
	}
	if _, ok := portal.OptionCode(option); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedOption, option)
	}
	return nil
}

// Predict fits yearly totals of batches and projects the year after the last
// one. The prediction never goes below zero.
func Predict(option string, batches []models.Batch, now time.Time) (*Forecast, error) {
	if err := ValidateOption(option); err != nil {
		return nil, err
	}

	totals := mapreduce.YearlyTotals(batches)
	if len(totals) < 2 {
		return nil, fmt.Errorf("%w: %s has %d", ErrInsufficientData, option, len(totals))
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	sort.Ints(years)

	xs := make([]float64, len(years))
	ys := make([]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
		ys[i] = totals[y]
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) {
		// Constant series: the fitted line is exact.
		r2 = 1
	}

	lastYear := years[len(years)-1]
	lastQty := totals[lastYear]
	nextYear := lastYear + 1
	predicted := math.Max(0, alpha+beta*float64(nextYear))

	var absErr, sqErr float64
	for i := range xs {
		residual := ys[i] - (alpha + beta*xs[i])
		absErr += math.Abs(residual)
		sqErr += residual * residual
	}
	n := float64(len(xs))

	return &Forecast{
		Option:          option,
		LastYear:        lastYear,
		LastQuantity:    round2(lastQty),
		NextYear:        nextYear,
		Predicted:       round2(predicted),
		Unit:            unitOf(batches),
		Confidence:      round2(clamp(r2, 0, 1)),
		Model:           ModelName,
		HistoricalYears: len(years),
		GeneratedAt:     now.UTC(),
		Details: Details{
			Trend:         trend(beta, stat.Mean(ys, nil)),
			ChangePercent: round2((predicted - lastQty) / lastQty * 100),
			MAE:           round2(absErr / n),
			RMSE:          round2(math.Sqrt(sqErr / n)),
			Slope:         round2(beta),
		},
	}, nil
}

func trend(slope, mean float64) string {
	if mean == 0 || math.Abs(slope)/math.Abs(mean) < flatSlope {
		return TrendFlat
	}
	if slope > 0 {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// unitOf returns the unit of the first quantity column that declares one.
func unitOf(batches []models.Batch) string {
	for _, b := range batches {
		for _, rec := range b.Records {
			for _, key := range mapreduce.QuantityKeys {
				if u, ok := rec[models.UnitPrefix+key].(string); ok && u != "" {
					return u
				}
			}
		}
	}
	return DefaultUnit
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
