package domain

import "errors"

var (
	ErrEmptyQuery    = errors.New("search query is required")
	ErrEmptySymbol   = errors.New("symbol is required")
	ErrInvalidISIN   = errors.New("invalid ISIN")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrUnknownSource = errors.New("unknown source")
)
