package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Humphrey-He/propview/internal/backendtest"
	"github.com/Humphrey-He/propview/internal/metrics"
	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
	"github.com/Humphrey-He/propview/pkg/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newBackend(t *testing.T, opts ...backendtest.Option) (*backendtest.Backend, string) {
	t.Helper()
	b := backendtest.New(opts...)
	srv := b.Start()
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

func TestListAll(t *testing.T) {
	_, base := newBackend(t, backendtest.WithListings(backendtest.Sample()...))
	c := New(base)

	env, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.True(t, env.Success)
	require.Len(t, env.Data, 4)
	assert.Equal(t, "2 BHK Apartment in Mumbai", env.Data[0].Title)
	assert.Equal(t, int64(1), env.Data[0].ID)
	require.NotNil(t, env.Data[0].Bedrooms)
	assert.Equal(t, 2, *env.Data[0].Bedrooms)
	assert.Nil(t, env.Data[3].Bedrooms)
	assert.NotEmpty(t, env.Timestamp)
}

func TestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(session.StaticToken("abc123")))
	_, err := c.ListAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc123", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Len(t, got.Get(RequestIDHeader), 36)

	// No token means no header, and that is not an error.
	c = New(srv.URL, WithTokenSource(session.NewMemoryStore()))
	_, err = c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
}

func TestGetByIDNotFound(t *testing.T) {
	_, base := newBackend(t, backendtest.WithListings(backendtest.Sample()...))
	c := New(base)

	env, err := c.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Andheri East, Mumbai", env.Data.Location)

	_, err = c.GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, perrors.IsNotFound(err))
	assert.False(t, perrors.IsAPI(err))
	assert.Equal(t, "Property not found with id: 99", perrors.Message(err))
}

func TestNetworkErrorNamesBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/api"
	srv.Close()

	_, err := New(base).ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsNetwork(err))
	assert.False(t, perrors.IsAPI(err))
	assert.Contains(t, err.Error(), base)
	assert.Contains(t, err.Error(), "may not be running")
}

func TestTimeoutIsNetworkError(t *testing.T) {
	b, base := newBackend(t)
	b.SetDelay(500 * time.Millisecond)

	_, err := New(base, WithTimeout(50*time.Millisecond)).ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsNetwork(err))
}

func TestResponseClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"success false", 200, `{"success":false,"message":"Quota exceeded"}`, 0, "Quota exceeded"},
		{"success false without message", 200, `{"success":false}`, 0, perrors.DefaultAPIMessage},
		{"missing envelope", 200, `[{"id":1}]`, 0, perrors.DefaultAPIMessage},
		{"object without success", 200, `{"data":[]}`, 0, perrors.DefaultAPIMessage},
		{"undecodable", 200, `<html>`, 0, perrors.DefaultAPIMessage},
		{"server envelope", 500, `{"success":false,"message":"Database down"}`, 500, "Database down"},
		{"server text", 502, `Bad gateway from proxy`, 502, "Bad gateway from proxy"},
		{"server empty", 503, ``, 503, "Service Unavailable"},
		{"bad request", 400, `{"error":"title is required"}`, 400, "title is required"},
		{"success without data", 200, `{"success":true,"message":"Nothing to show"}`, 0, "Nothing to show"},
		{"success with null data", 200, `{"success":true,"message":"ok","data":null}`, 0, "ok"},
		{"success with null data no message", 200, `{"success":true,"data": null }`, 0, perrors.DefaultAPIMessage},
		{"long text cut on rune boundary", 502, strings.Repeat("₹", 300), 502, strings.Repeat("₹", 170)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, base := newBackend(t)
			b.FailNext(tt.status, tt.body)

			_, err := New(base).ListAll(context.Background())
			require.Error(t, err)
			assert.True(t, perrors.IsAPI(err), "expected APIError, got %v", err)
			assert.False(t, perrors.IsNetwork(err))

			var apiErr *perrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.True(t, utf8.ValidString(apiErr.Message))
		})
	}
}

func TestDataOptionalOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"message":"Done","data":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	env, err := c.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Done", env.Message)

	_, err = c.Logout(context.Background())
	require.NoError(t, err)

	_, err = c.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, perrors.IsAPI(err))
	assert.Equal(t, "Done", perrors.Message(err))
}

func TestContextTokenStoreOverridesClient(t *testing.T) {
	_, base := newBackend(t, backendtest.WithUser(listing.User{FirstName: "Asha", Email: "asha@example.com"}, "secret1"))
	shared := session.NewMemoryStore()
	c := New(base, WithTokenSource(shared))

	visitor := session.NewMemoryStore()
	ctx := session.NewContext(context.Background(), visitor)
	_, err := c.Login(ctx, listing.Credentials{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	tok, _ := visitor.Token(ctx)
	assert.NotEmpty(t, tok)
	tok, _ = shared.Token(ctx)
	assert.Empty(t, tok, "the client's own store must stay untouched")

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", me.Data.Email)

	// Another context without the store is anonymous.
	other := session.NewContext(context.Background(), session.NewMemoryStore())
	_, err = c.CurrentUser(other)
	require.Error(t, err)
	_, err = c.CurrentUser(context.Background())
	require.Error(t, err)
}

func TestCreateUpdateDelete(t *testing.T) {
	b, base := newBackend(t, backendtest.WithListings(backendtest.Sample()...))
	c := New(base)
	ctx := context.Background()

	three := 3
	p := listing.Payload{
		Title:       "Lake Facing Penthouse",
		Location:    "Powai, Mumbai",
		Price:       25000000,
		ImageURL:    "https://example.com/p.jpg",
		Description: "Top floor penthouse overlooking the lake.",
		Bedrooms:    &three,
	}

	created, err := c.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.Data.ID)
	assert.Equal(t, "Property created successfully", created.Message)

	p.Price = 24000000
	updated, err := c.Update(ctx, created.Data.ID, p)
	require.NoError(t, err)
	assert.Equal(t, 24000000.0, updated.Data.Price)

	_, err = c.Delete(ctx, created.Data.ID)
	require.NoError(t, err)
	assert.Len(t, b.Listings(), 4)

	_, err = c.Delete(ctx, created.Data.ID)
	assert.True(t, perrors.IsNotFound(err))

	p.Title = "x"
	_, err = c.Create(ctx, p)
	require.Error(t, err)
	var apiErr *perrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Title")
}

func TestSearch(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		assert.Equal(t, "/properties/search", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Search(context.Background(), SearchParams{Location: "Mumbai", MinPrice: 5000000})
	require.NoError(t, err)
	assert.Equal(t, "location=Mumbai&minPrice=5000000", rawQuery)

	_, base := newBackend(t, backendtest.WithListings(backendtest.Sample()...))
	env, err := New(base).Search(context.Background(), SearchParams{Query: "villa"})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Sea View Villa", env.Data[0].Title)
}

func TestSearchParamsValues(t *testing.T) {
	assert.Empty(t, SearchParams{}.Values().Encode())
	v := SearchParams{Query: " flat ", Title: "Studio", MaxPrice: 1.5e7}.Values()
	assert.Equal(t, "flat", v.Get("query"))
	assert.Equal(t, "Studio", v.Get("title"))
	assert.Equal(t, "15000000", v.Get("maxPrice"))
	assert.False(t, v.Has("minPrice"))
}

func TestLoginStoresTokenAndLogoutClears(t *testing.T) {
	b, base := newBackend(t, backendtest.WithUser(listing.User{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Type: "admin"}, "secret1"))
	store := session.NewMemoryStore()
	c := New(base, WithTokenSource(store))
	ctx := context.Background()

	_, err := c.CurrentUser(ctx)
	require.Error(t, err)
	var apiErr *perrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.Login(ctx, listing.Credentials{Email: "asha@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", perrors.Message(err))
	tok, _ := store.Token(ctx)
	assert.Empty(t, tok)

	env, err := c.Login(ctx, listing.Credentials{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", env.Data.FirstName)
	tok, _ = store.Token(ctx)
	require.NotEmpty(t, tok)

	claims, ok := session.Peek(tok)
	require.True(t, ok)
	assert.Equal(t, "asha@example.com", claims.Subject)
	assert.True(t, claims.HasRole("admin"))

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", me.Data.Email)

	b.FailNext(http.StatusInternalServerError, `{"success":false,"message":"boom"}`)
	_, err = c.Logout(ctx)
	require.Error(t, err)
	assert.True(t, perrors.IsAPI(err))
	tok, _ = store.Token(ctx)
	assert.Empty(t, tok, "token must be cleared even when the remote logout fails")
}

func TestSignup(t *testing.T) {
	_, base := newBackend(t)
	c := New(base)
	req := listing.SignupRequest{
		FirstName:   "Ravi",
		LastName:    "Kumar",
		Email:       "ravi@example.com",
		PhoneNumber: "9876543210",
		Password:    "hunter22",
		Type:        "buyer",
	}

	env, err := c.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", env.Data.FirstName)

	_, err = c.Signup(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "Email already registered", perrors.Message(err))
}

func TestMetricsRecorded(t *testing.T) {
	_, base := newBackend(t, backendtest.WithListings(backendtest.Sample()...))
	m := metrics.New(&metrics.Config{Level: metrics.Basic})
	c := New(base, WithMetrics(m))
	ctx := context.Background()

	_, _ = c.ListAll(ctx)
	_, _ = c.GetByID(ctx, 1)
	_, _ = c.GetByID(ctx, 42)

	s := m.GetSnapshot()
	assert.Equal(t, uint64(3), s.Requests)
	assert.Equal(t, uint64(2), s.Outcomes[metrics.OutcomeSuccess])
	assert.Equal(t, uint64(1), s.Outcomes[metrics.OutcomeNotFound])
	assert.Equal(t, []metrics.EndpointCount{
		{Endpoint: "GET /properties", Count: 1},
		{Endpoint: "GET /properties/{id}", Count: 2},
	}, s.Endpoints)
	assert.Same(t, m, c.Metrics())
}

func TestNewDefaults(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
	assert.Equal(t, "http://h/api", New("http://h/api/").BaseURL())
	assert.True(t, strings.HasPrefix(c.BaseURL(), "http://localhost:8080"))
}
