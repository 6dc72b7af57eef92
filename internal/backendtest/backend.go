// Package backendtest is an in-memory listings/auth backend served with gin.
// It speaks the same envelope protocol as the real service and is used by
// tests and by the demo-backend command.
//
// Package backendtest 是一个使用gin提供服务的内存房源/认证后端。
// 它使用与真实服务相同的信封协议，供测试和demo-backend命令使用。
package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/pkg/listing"
)

// signingKey signs the fake session tokens.
var signingKey = []byte("propview-backendtest")

type account struct {
	user     listing.User
	password string
}

type failure struct {
	status int
	body   string
}

// Backend holds listings and accounts in memory. It is safe for concurrent use.
//
// Backend 在内存中保存房源和账户。它可以安全地并发使用。
type Backend struct {
	mu       sync.RWMutex
	listings map[int64]listing.Listing
	nextID   int64
	accounts map[string]*account
	nextUser int64
	sessions map[string]string // token -> email
	requests []string

	failures []failure
	delay    time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithListings seeds the backend. Ids of zero are assigned.
func WithListings(items ...listing.Listing) Option {
	return func(b *Backend) {
		for _, l := range items {
			b.put(l)
		}
	}
}

// WithUser registers an account.
func WithUser(u listing.User, password string) Option {
	return func(b *Backend) {
		b.nextUser++
		if u.ID == 0 {
			u.ID = b.nextUser
		}
		b.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	}
}

// WithLogger logs every request at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		listings: make(map[int64]listing.Listing),
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Sample returns the demo data set.
func Sample() []listing.Listing {
	two, three, four := 2, 3, 4
	return []listing.Listing{
		{
			Title:       "2 BHK Apartment in Mumbai",
			Location:    "Andheri East, Mumbai",
			Price:       8500000,
			ImageURL:    "https://cdn.pixabay.com/photo/2016/11/29/03/53/architecture-1867187_1280.jpg",
			Description: "Spacious 2-bedroom apartment with balcony and great sunlight.",
			Bedrooms:    &two,
			Bathrooms:   &two,
			Area:        "1200 sq ft",
		},
		{
			Title:       "Sea View Villa",
			Location:    "Bandra West, Mumbai",
			Price:       42000000,
			Description: "Four bedroom villa with a private garden facing the sea.",
			Bedrooms:    &four,
			Bathrooms:   &three,
			Area:        "3500 sq ft",
		},
		{
			Title:       "Garden Flat near Metro",
			Location:    "Whitefield, Bengaluru",
			Price:       6200000,
			Description: "Ground floor flat with a garden, five minutes from the metro.",
			Bedrooms:    &two,
			Bathrooms:   &two,
			Area:        "1050 sq ft",
		},
		{
			Title:       "Studio Loft",
			Location:    "Koregaon Park, Pune",
			Price:       0,
			Description: "Compact studio loft, price on request.",
		},
	}
}

func (b *Backend) put(l listing.Listing) listing.Listing {
	if l.ID == 0 {
		b.nextID++
		l.ID = b.nextID
	} else if l.ID > b.nextID {
		b.nextID = l.ID
	}
	b.listings[l.ID] = l
	return l
}

// FailNext makes the next request answer status with the raw body.
// Calls queue up.
func (b *Backend) FailNext(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{status: status, body: body})
}

// SetDelay delays every response by d.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// Requests returns "METHOD path" for every request seen so far.
func (b *Backend) Requests() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.requests))
	copy(out, b.requests)
	return out
}

// Listings returns the stored listings in id order.
func (b *Backend) Listings() []listing.Listing {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sorted()
}

func (b *Backend) sorted() []listing.Listing {
	out := make([]listing.Listing, 0, len(b.listings))
	for _, l := range b.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Router returns the gin engine serving the REST surface under /api.
func (b *Backend) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), b.record(), b.inject())

	api := r.Group("/api")
	api.GET("/properties", b.listAll)
	api.GET("/properties/search", b.search)
	api.GET("/properties/:id", b.getByID)
	api.POST("/properties", b.create)
	api.PUT("/properties/:id", b.update)
	api.DELETE("/properties/:id", b.remove)
	api.POST("/auth/signup", b.signup)
	api.POST("/login", b.login)
	api.POST("/logout", b.logout)
	api.GET("/me", b.me)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "No endpoint "+c.Request.Method+" "+c.Request.URL.Path)
	})
	return r
}

// Start serves the backend on a loopback port. The caller closes the server.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.Router())
}

// record keeps the request log and delays responses.
func (b *Backend) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		b.mu.Lock()
		b.requests = append(b.requests, c.Request.Method+" "+c.Request.URL.Path)
		delay := b.delay
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}

		c.Next()

		b.logger.Debug("backend request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}

// inject answers with a queued failure when there is one.
func (b *Backend) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		var f *failure
		if len(b.failures) > 0 {
			f = &b.failures[0]
			b.failures = b.failures[1:]
		}
		b.mu.Unlock()

		if f != nil {
			c.Data(f.status, "application/json", []byte(f.body))
			c.Abort()
		}
	}
}

func (b *Backend) timestamp() string {
	return b.now().UTC().Format("2006-01-02T15:04:05")
}

func (b *Backend) ok(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"success":   true,
		"message":   message,
		"data":      data,
		"timestamp": b.timestamp(),
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success":   false,
		"message":   message,
		"data":      nil,
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05"),
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid property id: "+c.Param("id"))
		return 0, false
	}
	return id, true
}

func (b *Backend) listAll(c *gin.Context) {
	b.mu.RLock()
	items := b.sorted()
	b.mu.RUnlock()
	b.ok(c, http.StatusOK, items, "Properties retrieved successfully")
}

func (b *Backend) getByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b.mu.RLock()
	l, found := b.listings[id]
	b.mu.RUnlock()
	if !found {
		fail(c, http.StatusNotFound, fmt.Sprintf("Property not found with id: %d", id))
		return
	}
	b.ok(c, http.StatusOK, l, "Property retrieved successfully")
}

func (b *Backend) search(c *gin.Context) {
	query := strings.ToLower(c.Query("query"))
	location := strings.ToLower(c.Query("location"))
	title := strings.ToLower(c.Query("title"))
	minPrice, _ := strconv.ParseFloat(c.Query("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(c.Query("maxPrice"), 64)

	b.mu.RLock()
	all := b.sorted()
	b.mu.RUnlock()

	out := make([]listing.Listing, 0, len(all))
	for _, l := range all {
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Title), query) &&
			!strings.Contains(strings.ToLower(l.Location), query) &&
			!strings.Contains(strings.ToLower(l.Description), query) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(l.Location), location) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(l.Title), title) {
			continue
		}
		if minPrice > 0 && l.Price < minPrice {
			continue
		}
		if maxPrice > 0 && l.Price > maxPrice {
			continue
		}
		out = append(out, l)
	}
	b.ok(c, http.StatusOK, out, "Properties found")
}

func (b *Backend) bindPayload(c *gin.Context) (listing.Payload, bool) {
	var p listing.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, "Malformed request body")
		return p, false
	}
	if err := p.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "Validation failed: "+err.Error())
		return p, false
	}
	return p, true
}

func fromPayload(p listing.Payload) listing.Listing {
	return listing.Listing{
		Title:       p.Title,
		Location:    p.Location,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
	}
}

func (b *Backend) create(c *gin.Context) {
	p, ok := b.bindPayload(c)
	if !ok {
		return
	}
	l := fromPayload(p)
	l.CreatedAt = b.timestamp()
	l.UpdatedAt = l.CreatedAt

	b.mu.Lock()
	l = b.put(l)
	b.mu.Unlock()
	b.ok(c, http.StatusCreated, l, "Property created successfully")
}

func (b *Backend) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, ok := b.bindPayload(c)
	if !ok {
		return
	}

	b.mu.Lock()
	old, found := b.listings[id]
	if !found {
		b.mu.Unlock()
		fail(c, http.StatusNotFound, fmt.Sprintf("Property not found with id: %d", id))
		return
	}
	l := fromPayload(p)
	l.ID = id
	l.CreatedAt = old.CreatedAt
	l.UpdatedAt = b.timestamp()
	b.listings[id] = l
	b.mu.Unlock()

	b.ok(c, http.StatusOK, l, "Property updated successfully")
}

func (b *Backend) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b.mu.Lock()
	_, found := b.listings[id]
	delete(b.listings, id)
	b.mu.Unlock()

	if !found {
		fail(c, http.StatusNotFound, fmt.Sprintf("Property not found with id: %d", id))
		return
	}
	b.ok(c, http.StatusOK, nil, "Property deleted successfully")
}

func (b *Backend) signup(c *gin.Context) {
	var req listing.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	key := strings.ToLower(strings.TrimSpace(req.Email))
	b.mu.Lock()
	if _, exists := b.accounts[key]; exists {
		b.mu.Unlock()
		fail(c, http.StatusConflict, "Email already registered")
		return
	}
	b.nextUser++
	u := listing.User{
		ID:          b.nextUser,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: req.PhoneNumber,
		Type:        req.Type,
	}
	b.accounts[key] = &account{user: u, password: req.Password}
	b.mu.Unlock()

	b.ok(c, http.StatusCreated, u, "User registered successfully")
}

func (b *Backend) login(c *gin.Context) {
	var creds listing.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		fail(c, http.StatusBadRequest, "Malformed request body")
		return
	}

	key := strings.ToLower(strings.TrimSpace(creds.Email))
	b.mu.RLock()
	acct, found := b.accounts[key]
	b.mu.RUnlock()
	if !found || acct.password != creds.Password {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := b.issue(acct.user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	b.mu.Lock()
	b.sessions[token] = key
	b.mu.Unlock()

	b.ok(c, http.StatusOK, listing.Session{User: acct.user, Token: token}, "Login successful")
}

// issue signs a token naming the user and their account type as a role.
func (b *Backend) issue(u listing.User) (string, error) {
	now := b.now()
	claims := jwt.MapClaims{
		"sub":   u.Email,
		"roles": []string{strings.ToLower(u.Type)},
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"jti":   strconv.FormatInt(now.UnixNano(), 36),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (b *Backend) logout(c *gin.Context) {
	if token := bearer(c); token != "" {
		b.mu.Lock()
		delete(b.sessions, token)
		b.mu.Unlock()
	}
	b.ok(c, http.StatusOK, nil, "Logout successful")
}

func (b *Backend) me(c *gin.Context) {
	token := bearer(c)
	b.mu.RLock()
	key, found := b.sessions[token]
	var u listing.User
	if found {
		u = b.accounts[key].user
	}
	b.mu.RUnlock()

	if token == "" || !found {
		fail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	b.ok(c, http.StatusOK, u, "Current user")
}
