package mapreduce

import (
	"testing"

	"github.com/dtnitsch/vitiscrape/models"
	"github.com/stretchr/testify/require"
)

func TestQuantity(t *testing.T) {
	tests := []struct {
		name   string
		rec    models.Record
		want   float64
		wantOK bool
	}{
		{"float", models.Record{"quantidade": 12.5}, 12.5, true},
		{"int from yaml", models.Record{"valor": 7}, 7, true},
		{"priority order", models.Record{"total": 1.0, "quantidade": 2.0}, 2, true},
		{"nil skipped", models.Record{"quantidade": nil, "valor": 3.0}, 3, true},
		{"text digits", models.Record{"quantidade": "1500 L"}, 1500, true},
		{"text without digits", models.Record{"quantidade": "sem registro"}, 0, false},
		{"no quantity key", models.Record{"produto": "Tinto"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Quantity(tt.rec)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestYearlyTotals(t *testing.T) {
	batches := []models.Batch{
		{Year: 2020, Records: []models.Record{{"quantidade": 10.0}, {"quantidade": -5.0}, {"quantidade": nil}}},
		{Year: 2020, Records: []models.Record{{"quantidade": 2.5}}},
		{Year: 2021, Records: []models.Record{{"valor": 4.0}}},
		{Year: 2022, Records: []models.Record{{"produto": "Tinto"}}},
	}

	require.Equal(t, map[int]float64{2020: 12.5, 2021: 4}, YearlyTotals(batches))
}

func TestReduce(t *testing.T) {
	got := Reduce([]map[int]float64{{2020: 1}, {2020: 2, 2021: 3}})
	require.Equal(t, map[int]float64{2020: 3, 2021: 3}, got)
}

func TestTopYears(t *testing.T) {
	totals := map[int]float64{2019: 100, 2020: 1532000, 2021: 100, 2022: 50}

	require.Equal(t, []string{"2020:1,532,000", "2021:100"}, TopYears(totals, 2))
	require.Len(t, TopYears(totals, 10), 4)
	require.Empty(t, TopYears(totals, -1))
}
