package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
)

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in   string
		want PriceRange
	}{
		{"", NoPriceFilter()},
		{"   ", NoPriceFilter()},
		{"0-5000000", Bounded(0, 5000000)},
		{"5000000-10000000", Bounded(5000000, 10000000)},
		{"15000000-999999999", Bounded(15000000, 999999999)},
		{"15000000-", Unbounded(15000000)},
		{"15000000+", Unbounded(15000000)},
		{" 100 - 200 ", Bounded(100, 200)},
	}

	for _, tt := range tests {
		got, err := ParsePriceRange(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParsePriceRangeInvalid(t *testing.T) {
	for _, in := range []string{"abc", "10-abc", "-5", "500", "10-5", "NaN-10", "1-Inf", "+"} {
		_, err := ParsePriceRange(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, perrors.IsInvalidCriteria(err), "input %q: expected InvalidCriteria, got %v", in, err)
	}
}

func TestPriceBandsRoundTrip(t *testing.T) {
	for _, b := range PriceBands() {
		r, err := ParsePriceRange(b.Value)
		require.NoError(t, err)
		assert.Equal(t, b.Range, r, "band %q", b.Label)
		assert.Equal(t, b.Value, r.String())
	}
}

func TestPriceRangeContains(t *testing.T) {
	r := Bounded(100, 200)
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(200))
	assert.False(t, r.Contains(99.99))
	assert.False(t, r.Contains(200.01))

	u := Unbounded(100)
	assert.True(t, u.Contains(1e15))
	assert.False(t, u.Contains(50))

	assert.True(t, NoPriceFilter().Contains(0))
}

func TestCriteriaIsZeroAndClear(t *testing.T) {
	c := Criteria{SearchTerm: "x", PriceRange: Unbounded(1)}
	assert.False(t, c.IsZero())
	assert.True(t, c.Clear().IsZero())
}
