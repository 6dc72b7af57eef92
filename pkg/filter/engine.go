package filter

import (
	"fmt"
	"strings"

	"github.com/Humphrey-He/propview/pkg/listing"
)

// Filter returns the listings that satisfy every active predicate,
// in input order. It never mutates its input.
//
// A listing passes iff all of:
//   - SearchTerm is empty, or appears case-insensitively in Title or Description
//   - LocationFilter is empty, or appears case-insensitively in Location
//   - PriceRange is empty, or contains Price
//
// Malformed criteria fail with an InvalidCriteria error.
//
// Filter 按输入顺序返回满足所有有效谓词的房源，从不修改输入。
func Filter(listings []listing.Listing, c Criteria) ([]listing.Listing, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	term := strings.ToLower(c.SearchTerm)
	loc := strings.ToLower(c.LocationFilter)

	out := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		if !matchesText(l, term) {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(l.Location), loc) {
			continue
		}
		if !c.PriceRange.Contains(l.Price) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func matchesText(l listing.Listing, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Title), term) ||
		strings.Contains(strings.ToLower(l.Description), term)
}

// Locations returns the distinct location facets (first comma segment of
// each listing's location) in first-seen order.
func Locations(listings []listing.Listing) []string {
	seen := make(map[string]struct{}, len(listings))
	out := make([]string, 0)
	for _, l := range listings {
		f := l.Facet()
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Band is a preset price range offered by the list view.
type Band struct {
	Label string
	Value string
	Range PriceRange
}

// AboveSentinel is the upper bound used by the "above" preset. The engine
// compares against it like any other bound.
const AboveSentinel = 999999999

// PriceBands returns the price presets in display order.
func PriceBands() []Band {
	return []Band{
		{Label: "Under ₹50 Lakhs", Value: "0-5000000", Range: Bounded(0, 5000000)},
		{Label: "₹50 Lakhs - ₹1 Crore", Value: "5000000-10000000", Range: Bounded(5000000, 10000000)},
		{Label: "₹1 Crore - ₹1.5 Crore", Value: "10000000-15000000", Range: Bounded(10000000, 15000000)},
		{Label: "Above ₹1.5 Crore", Value: "15000000-999999999", Range: Bounded(15000000, AboveSentinel)},
	}
}

// Summary describes the active criteria, e.g. for a results header or log line.
func Summary(c Criteria) string {
	if c.IsZero() {
		return "all properties"
	}
	var parts []string
	if t := c.SearchTerm; t != "" {
		parts = append(parts, fmt.Sprintf("matching %q", t))
	}
	if l := c.LocationFilter; l != "" {
		parts = append(parts, fmt.Sprintf("in %q", l))
	}
	if !c.PriceRange.IsZero() {
		label := c.PriceRange.String()
		for _, b := range PriceBands() {
			if b.Range == c.PriceRange {
				label = b.Label
				break
			}
		}
		parts = append(parts, "priced "+label)
	}
	return strings.Join(parts, ", ")
}
