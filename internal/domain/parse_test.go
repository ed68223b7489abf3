package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawLake(line int, kv ...string) RawLake {
	fields := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return RawLake{Line: line, Fields: fields}
}

func TestParseRawLake(t *testing.T) {
	t.Run("name and area", func(t *testing.T) {
		lake, p, err := ParseRawLake(rawLake(2, ColumnName, " Tsho Rolpa ", ColumnArea, "1540000"), DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, "Tsho Rolpa", lake.Name)
		assert.InDelta(t, 1540000.0, lake.Area, 1e-9)
		assert.Equal(t, DefaultParams(), p)
	})

	t.Run("thousands separators and exponent", func(t *testing.T) {
		lake, _, err := ParseRawLake(rawLake(3, ColumnName, "A", ColumnArea, "1,250,000"), DefaultParams())
		require.NoError(t, err)
		assert.InDelta(t, 1250000.0, lake.Area, 1e-9)

		lake, _, err = ParseRawLake(rawLake(4, ColumnName, "B", ColumnArea, "2.5e5"), DefaultParams())
		require.NoError(t, err)
		assert.InDelta(t, 250000.0, lake.Area, 1e-9)
	})

	t.Run("per-lake overrides", func(t *testing.T) {
		_, p, err := ParseRawLake(rawLake(5,
			ColumnName, "C", ColumnArea, "100000",
			ColumnFraction, "0.6", ColumnBreachWidth, "35",
		), DefaultParams())
		require.NoError(t, err)
		assert.InDelta(t, 0.6, p.Fraction, 1e-12)
		assert.InDelta(t, 35.0, p.BreachWidth, 1e-12)
		assert.Equal(t, DefaultParams().Grid, p.Grid)
	})

	t.Run("blank overrides keep defaults", func(t *testing.T) {
		_, p, err := ParseRawLake(rawLake(6,
			ColumnName, "D", ColumnArea, "100000",
			ColumnFraction, "", ColumnBreachWidth, "  ",
		), DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, DefaultParams(), p)
	})

	t.Run("non-positive area is not an input error", func(t *testing.T) {
		lake, _, err := ParseRawLake(rawLake(7, ColumnName, "E", ColumnArea, "-5"), DefaultParams())
		require.NoError(t, err)
		assert.InDelta(t, -5.0, lake.Area, 1e-12)
	})
}

func TestParseRawLake_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawLake
		wantMsg string
	}{
		{"missing name", rawLake(2, ColumnArea, "1000"), ColumnName},
		{"blank name", rawLake(3, ColumnName, "  ", ColumnArea, "1000"), ColumnName},
		{"missing area", rawLake(4, ColumnName, "Lake"), ColumnArea},
		{"non-numeric area", rawLake(5, ColumnName, "Lake", ColumnArea, "big"), "not a number"},
		{"nan area", rawLake(6, ColumnName, "Lake", ColumnArea, "NaN"), "not a finite number"},
		{"bad fraction", rawLake(7, ColumnName, "Lake", ColumnArea, "1000", ColumnFraction, "x"), ColumnFraction},
		{"fraction out of range", rawLake(8, ColumnName, "Lake", ColumnArea, "1000", ColumnFraction, "1.2"), "fraction"},
		{"zero breach width", rawLake(9, ColumnName, "Lake", ColumnArea, "1000", ColumnBreachWidth, "0"), "breach width"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseRawLake(tc.raw, DefaultParams())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRow), "got %v", err)
			assert.Contains(t, err.Error(), tc.wantMsg)
			assert.Contains(t, err.Error(), "line")
		})
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.Grid.Start = -1
	assert.ErrorContains(t, p.Validate(), "time start")

	p = DefaultParams()
	p.Grid.End = p.Grid.Start
	assert.ErrorContains(t, p.Validate(), "time end")

	p = DefaultParams()
	p.Grid.Step = 0
	assert.ErrorContains(t, p.Validate(), "time step")

	p = DefaultParams()
	p.Grid.End = 1e30
	p.Grid.Step = 1e-10
	assert.ErrorContains(t, p.Validate(), "limit")

	p = DefaultParams()
	p.Grid.End = math.Inf(1)
	assert.ErrorContains(t, p.Validate(), "finite")

	p = DefaultParams()
	p.Grid.End = float64(MaxSamples/2) * p.Grid.Step
	assert.NoError(t, p.Validate(), "long grids under the limit are accepted")
}
