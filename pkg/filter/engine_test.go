package filter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func intp(n int) *int { return &n }

func sampleListings() []listing.Listing {
	return []listing.Listing{
		{
			ID:          1,
			Title:       "2 BHK Apartment in Mumbai",
			Location:    "Andheri East, Mumbai",
			Price:       8500000,
			Description: "Spacious 2-bedroom apartment with balcony and great sunlight.",
			Bedrooms:    intp(2),
			Bathrooms:   intp(2),
			Area:        "1200 sq ft",
		},
		{
			ID:          2,
			Title:       "Villa with Pool",
			Location:    "Whitefield, Bangalore",
			Price:       32000000,
			Description: "Independent villa, private POOL and garden.",
		},
		{
			ID:          3,
			Title:       "Studio near Metro",
			Location:    "Andheri East, Mumbai",
			Price:       4200000,
			Description: "",
		},
		{
			ID:          4,
			Title:       "3 BHK Flat",
			Location:    "Koregaon Park, Pune",
			Price:       15000000,
			Description: "Corner flat close to the apartment complex gym.",
		},
	}
}

func ids(ls []listing.Listing) []int64 {
	out := make([]int64, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func TestFilterEmptyCriteriaIsIdentity(t *testing.T) {
	in := sampleListings()
	got, err := Filter(in, Criteria{})
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("Filter with empty criteria changed the collection (-want +got):\n%s", diff)
	}
}

func TestFilterEmptyInput(t *testing.T) {
	got, err := Filter(nil, Criteria{SearchTerm: "villa", PriceRange: Bounded(0, 10)})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, Locations(nil))
}

func TestFilterSearchTerm(t *testing.T) {
	in := sampleListings()
	terms := []string{"apartment", "APARTMENT", "pool", "metro", "flat", "nothing-matches", "a"}

	for _, term := range terms {
		t.Run(term, func(t *testing.T) {
			got, err := Filter(in, Criteria{SearchTerm: term})
			require.NoError(t, err)

			lower := strings.ToLower(term)
			included := make(map[int64]bool)
			for _, l := range got {
				included[l.ID] = true
				assert.True(t,
					strings.Contains(strings.ToLower(l.Title), lower) || strings.Contains(strings.ToLower(l.Description), lower),
					"listing %d included but does not contain %q", l.ID, term)
			}
			for _, l := range in {
				if included[l.ID] {
					continue
				}
				assert.False(t,
					strings.Contains(strings.ToLower(l.Title), lower) || strings.Contains(strings.ToLower(l.Description), lower),
					"listing %d excluded but contains %q", l.ID, term)
			}
		})
	}
}

func TestFilterSearchMatchesDescription(t *testing.T) {
	got, err := Filter(sampleListings(), Criteria{SearchTerm: "apartment"})
	require.NoError(t, err)
	// listing 4 matches only through its description
	assert.Equal(t, []int64{1, 4}, ids(got))
}

func TestFilterLocation(t *testing.T) {
	got, err := Filter(sampleListings(), Criteria{LocationFilter: "andheri"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(got))

	got, err = Filter(sampleListings(), Criteria{LocationFilter: "MUMBAI"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestFilterPriceRangeIsExact(t *testing.T) {
	in := sampleListings()
	ranges := []PriceRange{
		Bounded(0, 5000000),
		Bounded(5000000, 10000000),
		Bounded(10000000, 15000000),
		Bounded(15000000, AboveSentinel),
		Bounded(4200000, 4200000),
		Unbounded(15000000),
	}

	for _, r := range ranges {
		t.Run(r.String(), func(t *testing.T) {
			got, err := Filter(in, Criteria{PriceRange: r})
			require.NoError(t, err)

			want := []int64{}
			for _, l := range in {
				max, bounded := r.Max()
				if l.Price >= r.Min() && (!bounded || l.Price <= max) {
					want = append(want, l.ID)
				}
			}
			assert.Equal(t, want, ids(got))
		})
	}
}

func TestFilterConcreteScenario(t *testing.T) {
	in := sampleListings()[:1]

	got, err := Filter(in, Criteria{PriceRange: Bounded(5000000, 10000000)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2 BHK Apartment in Mumbai", got[0].Title)

	got, err = Filter(in, Criteria{PriceRange: Bounded(15000000, 999999999)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterCombinedPredicates(t *testing.T) {
	c, err := ParseCriteria("apartment", "andheri", "5000000-10000000")
	require.NoError(t, err)

	got, err := Filter(sampleListings(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := sampleListings()
	before := sampleListings()
	_, err := Filter(in, Criteria{SearchTerm: "villa"})
	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestFilterRejectsMalformedRange(t *testing.T) {
	_, err := Filter(sampleListings(), Criteria{PriceRange: Bounded(10, 5)})
	require.Error(t, err)
	assert.True(t, perrors.IsInvalidCriteria(err), "expected InvalidCriteria, got %v", err)

	_, err = Filter(sampleListings(), Criteria{PriceRange: Unbounded(-1)})
	assert.True(t, perrors.IsInvalidCriteria(err))
}

func TestLocationsDeduplicates(t *testing.T) {
	in := append(sampleListings(), listing.Listing{ID: 5, Location: "Andheri East, Mumbai"}, listing.Listing{ID: 6, Location: "Bandra"})
	got := Locations(in)
	assert.Equal(t, []string{"Andheri East", "Whitefield", "Koregaon Park", "Bandra"}, got)

	seen := map[string]bool{}
	for _, f := range got {
		assert.False(t, seen[f], "duplicate facet %q", f)
		seen[f] = true
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "all properties", Summary(Criteria{}))

	c := Criteria{SearchTerm: "villa", PriceRange: Bounded(15000000, AboveSentinel)}
	assert.Equal(t, `matching "villa", priced Above ₹1.5 Crore`, Summary(c))
}
