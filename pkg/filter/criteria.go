// Package filter implements the client-side property search engine.
// Given an in-memory collection of listings and user-supplied criteria it
// produces the matching subset in input order and derives location facets.
//
// Package filter 实现客户端房产搜索引擎。
// 给定内存中的房源集合和用户提供的条件，它按输入顺序生成匹配的子集并派生位置分面。
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
)

// RangeKind tags the PriceRange variant.
type RangeKind int

const (
	// NoFilter matches every price.
	NoFilter RangeKind = iota
	// BoundedRange matches min <= price <= max.
	BoundedRange
	// UnboundedRange matches price >= min.
	UnboundedRange
)

// PriceRange is a tagged variant: NoFilter | Bounded(min,max) | Unbounded(min).
// It is parsed once at the UI boundary and never re-parsed by the engine.
//
// PriceRange 是一个标记变体：NoFilter | Bounded(min,max) | Unbounded(min)。
// 它在UI边界处解析一次，引擎不会重新解析。
type PriceRange struct {
	kind RangeKind
	min  float64
	max  float64
}

// NoPriceFilter returns the empty range.
func NoPriceFilter() PriceRange {
	return PriceRange{kind: NoFilter}
}

// Bounded returns an inclusive [min, max] range.
func Bounded(min, max float64) PriceRange {
	return PriceRange{kind: BoundedRange, min: min, max: max}
}

// Unbounded returns an open-ended range [min, +inf).
func Unbounded(min float64) PriceRange {
	return PriceRange{kind: UnboundedRange, min: min}
}

// Kind returns the variant tag.
func (r PriceRange) Kind() RangeKind { return r.kind }

// Min returns the lower bound. It is zero for NoFilter.
func (r PriceRange) Min() float64 { return r.min }

// Max returns the upper bound and whether one exists.
func (r PriceRange) Max() (float64, bool) {
	return r.max, r.kind == BoundedRange
}

// IsZero reports whether the range filters nothing.
func (r PriceRange) IsZero() bool {
	return r.kind == NoFilter
}

// Validate rejects ranges that would make every comparison meaningless.
func (r PriceRange) Validate() error {
	switch r.kind {
	case NoFilter:
		return nil
	case BoundedRange:
		if err := checkBound("min", r.min); err != nil {
			return err
		}
		if err := checkBound("max", r.max); err != nil {
			return err
		}
		if r.min > r.max {
			return perrors.NewCriteriaError("priceRange", fmt.Sprintf("min %v exceeds max %v", r.min, r.max))
		}
		return nil
	case UnboundedRange:
		return checkBound("min", r.min)
	default:
		return perrors.NewCriteriaError("priceRange", fmt.Sprintf("unknown range kind %d", r.kind))
	}
}

// Contains reports whether price lies inside the range. The range must be valid.
func (r PriceRange) Contains(price float64) bool {
	switch r.kind {
	case BoundedRange:
		return price >= r.min && price <= r.max
	case UnboundedRange:
		return price >= r.min
	default:
		return true
	}
}

// String renders the range in its form-value encoding ("", "a-b", "a+").
func (r PriceRange) String() string {
	switch r.kind {
	case BoundedRange:
		return formatBound(r.min) + "-" + formatBound(r.max)
	case UnboundedRange:
		return formatBound(r.min) + "+"
	default:
		return ""
	}
}

// ParsePriceRange parses a UI form value:
//
//	""          -> NoFilter
//	"min-max"   -> Bounded(min, max)
//	"min-", "min+" -> Unbounded(min)
//
// Anything else fails with an InvalidCriteria error.
func ParsePriceRange(s string) (PriceRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoPriceFilter(), nil
	}

	if strings.HasSuffix(s, "+") {
		min, err := parseBound("min", strings.TrimSuffix(s, "+"))
		if err != nil {
			return PriceRange{}, err
		}
		r := Unbounded(min)
		return r, r.Validate()
	}

	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return PriceRange{}, perrors.NewCriteriaError("priceRange", fmt.Sprintf("%q is not of the form min-max", s))
	}
	min, err := parseBound("min", lo)
	if err != nil {
		return PriceRange{}, err
	}
	if strings.TrimSpace(hi) == "" {
		r := Unbounded(min)
		return r, r.Validate()
	}
	max, err := parseBound("max", hi)
	if err != nil {
		return PriceRange{}, err
	}
	r := Bounded(min, max)
	return r, r.Validate()
}

func parseBound(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, perrors.NewCriteriaError(field, "missing value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, perrors.NewCriteriaError(field, fmt.Sprintf("%q is not a number", s))
	}
	return v, checkBound(field, v)
}

func checkBound(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return perrors.NewCriteriaError(field, "must be a finite number")
	}
	if v < 0 {
		return perrors.NewCriteriaError(field, "must not be negative")
	}
	return nil
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Criteria is the transient, UI-owned filter state.
type Criteria struct {
	SearchTerm     string
	LocationFilter string
	PriceRange     PriceRange
}

// IsZero reports whether no filter is active.
func (c Criteria) IsZero() bool {
	return c.SearchTerm == "" &&
		c.LocationFilter == "" &&
		c.PriceRange.IsZero()
}

// Validate checks the criteria before the engine runs.
func (c Criteria) Validate() error {
	return c.PriceRange.Validate()
}

// Clear returns empty criteria.
func (c Criteria) Clear() Criteria {
	return Criteria{}
}

// ParseCriteria builds Criteria from raw form values.
func ParseCriteria(search, location, price string) (Criteria, error) {
	r, err := ParsePriceRange(price)
	if err != nil {
		return Criteria{}, err
	}
	return Criteria{
		SearchTerm:     search,
		LocationFilter: location,
		PriceRange:     r,
	}, nil
}
