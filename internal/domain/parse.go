package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRawLake converts a table row into a Lake and the parameters to
// estimate it with. Optional override columns replace the matching field of
// defaults when they hold a value. Missing names, missing or non-numeric
// areas, and unparseable overrides return an error wrapping ErrInvalidRow.
//
// Non-positive areas are accepted here; Estimate reports them as degenerate.
func ParseRawLake(raw RawLake, defaults Params) (Lake, Params, error) {
	name := strings.TrimSpace(raw.Fields[ColumnName])
	if name == "" {
		return Lake{}, Params{}, fmt.Errorf("%w: line %d: missing %q", ErrInvalidRow, raw.Line, ColumnName)
	}

	areaStr := strings.TrimSpace(raw.Fields[ColumnArea])
	if areaStr == "" {
		return Lake{}, Params{}, fmt.Errorf("%w: line %d: lake %q: missing %q", ErrInvalidRow, raw.Line, name, ColumnArea)
	}
	area, err := parseNumber(areaStr)
	if err != nil {
		return Lake{}, Params{}, fmt.Errorf("%w: line %d: lake %q: %q: %v", ErrInvalidRow, raw.Line, name, ColumnArea, err)
	}

	p := defaults
	if v, ok, err := optionalNumber(raw, ColumnFraction); err != nil {
		return Lake{}, Params{}, fmt.Errorf("%w: line %d: lake %q: %v", ErrInvalidRow, raw.Line, name, err)
	} else if ok {
		p.Fraction = v
	}
	if v, ok, err := optionalNumber(raw, ColumnBreachWidth); err != nil {
		return Lake{}, Params{}, fmt.Errorf("%w: line %d: lake %q: %v", ErrInvalidRow, raw.Line, name, err)
	} else if ok {
		p.BreachWidth = v
	}
	if err := p.Validate(); err != nil {
		return Lake{}, Params{}, fmt.Errorf("%w: line %d: lake %q: %v", ErrInvalidRow, raw.Line, name, err)
	}

	return Lake{Name: name, Area: area}, p, nil
}

func optionalNumber(raw RawLake, column string) (float64, bool, error) {
	s := strings.TrimSpace(raw.Fields[column])
	if s == "" {
		return 0, false, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return 0, false, fmt.Errorf("%q: %w", column, err)
	}
	return v, true, nil
}

// parseNumber accepts plain and thousands-separated decimals ("1,250,000").
// NaN and infinities are rejected so they cannot leak into the estimate.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}
