package application

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

var (
	ErrInvalidSort  = errors.New("invalid sort field")
	ErrInvalidOrder = errors.New("invalid sort order")
)

type BondFilter struct {
	Type         string
	Currency     string
	Country      string
	Issuer       string
	MinYield     *float64
	MaturityFrom *time.Time
	MaturityTo   *time.Time
	Sort         string
	Order        string
	Limit        int
	Offset       int
}

type CertificateFilter struct {
	Type         string
	Issuer       string
	Underlying   string
	Currency     string
	MaturityFrom *time.Time
	MaturityTo   *time.Time
	Sort         string
	Order        string
	Limit        int
	Offset       int
}

type Page[T any] struct {
	Total  int `json:"total"`
	Count  int `json:"count"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Items  []T `json:"items"`
}

// Catalog serves the static bond and certificate datasets.
type Catalog struct {
	bonds        []domain.Bond
	certificates []domain.Certificate
}

func NewCatalog(bonds []domain.Bond, certificates []domain.Certificate) *Catalog {
	return &Catalog{bonds: bonds, certificates: certificates}
}

var bondSorts = map[string]func(a, b domain.Bond) int{
	"name":     func(a, b domain.Bond) int { return strings.Compare(a.Name, b.Name) },
	"issuer":   func(a, b domain.Bond) int { return strings.Compare(a.Issuer, b.Issuer) },
	"yield":    func(a, b domain.Bond) int { return cmp.Compare(a.Yield, b.Yield) },
	"coupon":   func(a, b domain.Bond) int { return cmp.Compare(a.Coupon, b.Coupon) },
	"price":    func(a, b domain.Bond) int { return cmp.Compare(a.Price, b.Price) },
	"maturity": func(a, b domain.Bond) int { return strings.Compare(a.Maturity, b.Maturity) },
}

var certificateSorts = map[string]func(a, b domain.Certificate) int{
	"name":     func(a, b domain.Certificate) int { return strings.Compare(a.Name, b.Name) },
	"issuer":   func(a, b domain.Certificate) int { return strings.Compare(a.Issuer, b.Issuer) },
	"coupon":   func(a, b domain.Certificate) int { return cmp.Compare(a.Coupon, b.Coupon) },
	"price":    func(a, b domain.Certificate) int { return cmp.Compare(a.Price, b.Price) },
	"barrier":  func(a, b domain.Certificate) int { return cmp.Compare(a.Barrier, b.Barrier) },
	"maturity": func(a, b domain.Certificate) int { return strings.Compare(a.Maturity, b.Maturity) },
}

func (c *Catalog) Bonds(f BondFilter) (*Page[domain.Bond], error) {
	matched := make([]domain.Bond, 0, len(c.bonds))
	for _, b := range c.bonds {
		if !equalFold(f.Type, b.Type) || !equalFold(f.Currency, b.Currency) ||
			!equalFold(f.Country, b.Country) || !containsFold(b.Issuer, f.Issuer) {
			continue
		}
		if f.MinYield != nil && b.Yield < *f.MinYield {
			continue
		}
		if !withinMaturity(b.MaturityDate, f.MaturityFrom, f.MaturityTo) {
			continue
		}
		matched = append(matched, b)
	}
	return paginate(matched, bondSorts, f.Sort, f.Order, f.Limit, f.Offset)
}

func (c *Catalog) Certificates(f CertificateFilter) (*Page[domain.Certificate], error) {
	matched := make([]domain.Certificate, 0, len(c.certificates))
	for _, cert := range c.certificates {
		if !equalFold(f.Type, cert.Type) || !equalFold(f.Currency, cert.Currency) ||
			!containsFold(cert.Issuer, f.Issuer) || !containsFold(cert.Underlying, f.Underlying) {
			continue
		}
		if !withinMaturity(cert.MaturityDate, f.MaturityFrom, f.MaturityTo) {
			continue
		}
		matched = append(matched, cert)
	}
	return paginate(matched, certificateSorts, f.Sort, f.Order, f.Limit, f.Offset)
}

func paginate[T any](items []T, sorts map[string]func(a, b T) int, field, order string, limit, offset int) (*Page[T], error) {
	if field != "" {
		compare, ok := sorts[strings.ToLower(field)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSort, field)
		}
		switch strings.ToLower(order) {
		case "", "asc":
			slices.SortStableFunc(items, compare)
		case "desc":
			slices.SortStableFunc(items, func(a, b T) int { return compare(b, a) })
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, order)
		}
	}

	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)
	offset = max(offset, 0)

	page := &Page[T]{Total: len(items), Offset: offset, Limit: limit, Items: []T{}}
	if offset < len(items) {
		page.Items = items[offset:min(offset+limit, len(items))]
	}
	page.Count = len(page.Items)
	return page, nil
}

func equalFold(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

func containsFold(haystack, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// withinMaturity treats an unparsable maturity as outside any window.
func withinMaturity(maturity func() (time.Time, bool), from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	date, ok := maturity()
	if !ok {
		return false
	}
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}
