package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/adapters/identity/masomo"
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	refreshes atomic.Int32
}

func newFakeIdentity(t *testing.T) (*fakeIdentity, *httptest.Server) {
	t.Helper()

	f := &fakeIdentity{}
	e := echo.New()
	e.HideBanner = true
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/v1/users/login", func(c echo.Context) error {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.Username != "ada" || req.Password != "secret" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "authentication failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"token": signToken(t, time.Now())})
	})
	e.POST("/v1/users/token-refresh", func(c echo.Context) error {
		f.refreshes.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"token": signToken(t, time.Now())})
	})
	e.GET("/v1/users/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"id":        c.Param("id"),
			"username":  "ada",
			"is_active": true,
			"roles":     []string{"teacher:"},
		})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return f, srv
}

func signToken(t *testing.T, now time.Time) string {
	t.Helper()

	claims := masomo.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "u1",
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Hour).Unix(),
		},
		OrigIssuedAt: now.Unix(),
		Username:     "ada",
		Roles:        []string{"teacher:"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestStatusWithoutSessionShowsSignedOut(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Campus Session")
	assert.Contains(t, stdout, "No active session.")
}

func TestLoginPersistsSessionForStatus(t *testing.T) {
	_, srv := newFakeIdentity(t)
	t.Setenv("CAMPUS_IDENTITY_BASE_URL", srv.URL)
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "login", "--username", "ada", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, stdout, "User: u1")

	stdout, _, err = executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "phase: authenticated")
	assert.Contains(t, stdout, "User: u1")

	stdout, _, err = executeCLI(t, home, "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"isAuthenticated\": true")
	assert.Contains(t, stdout, "\"userId\": \"u1\"")
}

func TestLoginReadsPasswordFromEnvironment(t *testing.T) {
	_, srv := newFakeIdentity(t)
	t.Setenv("CAMPUS_IDENTITY_BASE_URL", srv.URL)
	t.Setenv("CAMPUS_PASSWORD", "secret")

	stdout, _, err := executeCLI(t, t.TempDir(), "login", "--username", "ada")
	require.NoError(t, err)
	assert.Contains(t, stdout, "User: u1")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, srv := newFakeIdentity(t)
	t.Setenv("CAMPUS_IDENTITY_BASE_URL", srv.URL)
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "login", "--username", "ada", "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign in")

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No active session.")
}

func TestLoginRequiresUsername(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"username\" not set")
}

func TestRefreshRotatesPersistedSession(t *testing.T) {
	backend, srv := newFakeIdentity(t)
	t.Setenv("CAMPUS_IDENTITY_BASE_URL", srv.URL)
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "login", "--username", "ada", "--password", "secret")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "refresh")
	require.NoError(t, err)
	assert.Contains(t, stdout, "last operation: refresh ok")
	assert.Equal(t, int32(1), backend.refreshes.Load())
}

func TestRefreshWithoutSessionFails(t *testing.T) {
	_, srv := newFakeIdentity(t)
	t.Setenv("CAMPUS_IDENTITY_BASE_URL", srv.URL)

	_, _, err := executeCLI(t, t.TempDir(), "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh")
}

func TestLogoutClearsSession(t *testing.T) {
	_, srv := newFakeIdentity(t)
	t.Setenv("CAMPUS_IDENTITY_BASE_URL", srv.URL)
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "login", "--username", "ada", "--password", "secret")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Signed out.")

	stdout, _, err = executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No active session.")
}

func TestSessionCommandsRequireIdentityBaseURL(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity base url is required")
}

func TestInvalidConfigFailsEveryCommand(t *testing.T) {
	t.Setenv("CAMPUS_STORAGE_BACKEND", "floppy")

	_, _, err := executeCLI(t, t.TempDir(), "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestUnknownCommandIsRejected(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "usage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"usage\"")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("CAMPUS_LOG_LEVEL", "error")
	t.Setenv("CAMPUS_RETRY_BASE_DELAY", "1ms")
	t.Setenv("CAMPUS_RETRY_MAX_DELAY", "1ms")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
