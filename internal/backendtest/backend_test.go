package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestSeededListingsGetSequentialIDs(t *testing.T) {
	b := New(WithListings(Sample()...))
	ls := b.Listings()
	require.Len(t, ls, len(Sample()))
	for i, l := range ls {
		assert.Equal(t, int64(i+1), l.ID)
	}
}

func TestEnvelopeShape(t *testing.T) {
	h := New(WithListings(Sample()...)).Router()

	w, body := do(t, h, http.MethodGet, "/api/properties", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Properties retrieved successfully", body["message"])
	assert.Len(t, body["data"], 4)
	assert.NotEmpty(t, body["timestamp"])

	w, body = do(t, h, http.MethodGet, "/api/properties/77", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = do(t, h, http.MethodGet, "/api/properties/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFailNextIsOneShot(t *testing.T) {
	b := New()
	h := b.Router()
	b.FailNext(http.StatusTeapot, `{"success":false,"message":"teapot"}`)

	w, body := do(t, h, http.MethodGet, "/api/properties", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "teapot", body["message"])

	w, _ = do(t, h, http.MethodGet, "/api/properties", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"GET /api/properties", "GET /api/properties"}, b.Requests())
}

func TestMeRequiresSession(t *testing.T) {
	h := New().Router()
	w, _ := do(t, h, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := `{"firstName":"Meera","lastName":"Iyer","email":"meera@example.com","phoneNumber":"9876543210","password":"secret1","type":"seller"}`
	w, _ = do(t, h, http.MethodPost, "/api/auth/signup", req)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := do(t, h, http.MethodPost, "/api/login", `{"email":"meera@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	token := data["token"].(string)
	assert.Equal(t, "Meera", data["firstName"])

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}
