package domain

import "errors"

var (
	// ErrInvalidRow marks an input row that is missing a field or carries an
	// unparseable value.
	ErrInvalidRow = errors.New("invalid lake row")

	// ErrDegenerate marks an estimate whose candidates, medians or samples are
	// not finite positive numbers.
	ErrDegenerate = errors.New("degenerate estimate")
)
