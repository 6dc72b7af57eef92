package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Humphrey-He/propview/internal/backendtest"
	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
)

type fixture struct {
	baseURL   string
	tokenFile string
	envFile   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := backendtest.New(
		backendtest.WithListings(backendtest.Sample()...),
		backendtest.WithUser(listing.User{FirstName: "Asha", LastName: "Rao", Email: "admin@example.com", Type: "ADMIN"}, "secret1"),
	)
	srv := b.Start()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	return fixture{
		baseURL:   srv.URL + "/api",
		tokenFile: filepath.Join(dir, "token.yaml"),
		envFile:   filepath.Join(dir, "missing.env"),
	}
}

// run executes the root command once with the fixture's global flags.
func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--base-url", f.baseURL,
		"--token-file", f.tokenFile,
		"--env-file", f.envFile,
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 BHK Apartment in Mumbai")
	assert.Contains(t, out, "Studio Loft")
	assert.Contains(t, out, "Showing 4 of 4 properties")

	out, err = f.run(t, "list", "--location", "mumbai", "--price", "5000000-10000000")
	require.NoError(t, err)
	assert.Contains(t, out, "2 BHK Apartment in Mumbai")
	assert.NotContains(t, out, "Sea View Villa")
	assert.Contains(t, out, "Showing 1 of 4 properties")
}

func TestListCommandJSON(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "list", "-s", "garden", "-o", "json")
	require.NoError(t, err)

	var items []listing.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	titles := make([]string, 0, len(items))
	for _, l := range items {
		titles = append(titles, l.Title)
	}
	assert.ElementsMatch(t, []string{"Sea View Villa", "Garden Flat near Metro"}, titles)
}

func TestListCommandRemote(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "list", "--remote", "--location", "Pune", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Studio Loft")
	assert.NotContains(t, out, "Andheri")
}

func TestListCommandRejectsBadPrice(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "list", "--price", "cheap")
	require.Error(t, err)
	assert.True(t, perrors.IsInvalidCriteria(err))

	_, err = f.run(t, "list", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestShowCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "show", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Sea View Villa")
	assert.Contains(t, out, "Bandra West, Mumbai")

	_, err = f.run(t, "show", "99")
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "not found")

	_, err = f.run(t, "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid property id")
}

func TestSessionCommands(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "whoami")
	require.Error(t, err)
	assert.Equal(t, msgNotLoggedIn, err.Error())

	_, err = f.run(t, "login", "--email", "admin@example.com", "--password", "wrong")
	require.Error(t, err)

	_, err = f.run(t, "login", "--email", "not-an-email", "--password", "x")
	require.Error(t, err)
	assert.True(t, perrors.IsValidation(err))
	assert.Contains(t, err.Error(), "email")

	out, err := f.run(t, "login", "--email", "admin@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Asha")
	assert.FileExists(t, f.tokenFile)

	// A new process reads the token back from the file.
	out, err = f.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@example.com")
	assert.Contains(t, out, "[admin]")
	assert.Contains(t, out, "roles: admin")

	out, err = f.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = f.run(t, "whoami")
	require.Error(t, err)
}

func TestLoginPasswordFromEnv(t *testing.T) {
	f := newFixture(t)
	t.Setenv(PasswordEnv, "secret1")

	out, err := f.run(t, "login", "-e", "admin@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Asha")
}

func TestStatusCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "API Connected")
	assert.Contains(t, out, "4 listings")

	down := f
	down.baseURL = "http://127.0.0.1:1/api"
	out, err = down.run(t, "status", "--timeout", "2s")
	require.Error(t, err)
	assert.Contains(t, out, "API Error")
}

func TestConfigCommands(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url: "+f.baseURL)

	out, err = f.run(t, "config", "show", "--format", "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "locale")

	out, err = f.run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	bad := f
	bad.baseURL = "not a url"
	_, err = bad.run(t, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url")
}
