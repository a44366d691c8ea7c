package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1.234.567,89", 1234567.89, true},
		{"1.500,50", 1500.50, true},
		{"999", 999, true},
		{"0", 0, true},
		{"-12,5", -12.5, true},
		{"-", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
		{"Inf", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumeric(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData("-"))
	assert.True(t, IsNoData(""))
	assert.False(t, IsNoData("0"))
}
