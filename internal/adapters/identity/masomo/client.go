package masomo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/logging"
	"github.com/bnema/campus-session/internal/notify"
	"github.com/bnema/campus-session/internal/ports"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

// API names the backend endpoints. Paths are resolved against BaseURL.
type API struct {
	BaseURL     string
	LoginPath   string
	UserPath    string
	RefreshPath string
	HealthPath  string
}

func DefaultAPI(baseURL string) API {
	return API{
		BaseURL:     baseURL,
		LoginPath:   "/v1/users/login",
		UserPath:    "/v1/users/",
		RefreshPath: "/v1/users/token-refresh",
		HealthPath:  "/",
	}
}

type Config struct {
	API            API
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Clock          ports.Clock
	Logger         *slog.Logger
}

// Client talks to the school backend. The backend issues stateless JWTs, so
// the client holds the current token in memory and the token doubles as the
// refresh credential.
type Client struct {
	api            API
	httpClient     *http.Client
	requestTimeout time.Duration
	clock          ports.Clock
	logger         *slog.Logger
	events         *notify.Broadcaster[domain.AuthEvent]

	mu      sync.RWMutex
	session domain.Session
}

var _ ports.IdentityService = (*Client)(nil)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	Username string   `json:"username"`
	IsActive *bool    `json:"is_active"`
	Roles    []string `json:"roles"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return nil, domain.ConfigError("new identity client", "identity base url is required")
	}
	if _, err := buildAPIURL(cfg.API.BaseURL, "/"); err != nil {
		return nil, domain.NewError(domain.KindConfig, "new identity client", err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}

	return &Client{
		api:            cfg.API,
		httpClient:     cfg.HTTPClient,
		requestTimeout: cfg.RequestTimeout,
		clock:          cfg.Clock,
		logger:         logging.OrDiscard(cfg.Logger),
		events:         notify.NewBroadcaster[domain.AuthEvent](),
	}, nil
}

func (c *Client) SignIn(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	const op = "sign in"

	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return domain.Session{}, domain.NewError(domain.KindTerminal, op, errors.New("username and password are required"))
	}

	var payload tokenResponse
	err := c.do(ctx, op, http.MethodPost, c.api.LoginPath, "", loginRequest{
		Username: creds.Username,
		Password: creds.Password,
	}, &payload)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := sessionFromToken(payload.Token)
	if err != nil {
		return domain.Session{}, domain.NewError(domain.KindInternal, op, err)
	}

	c.setSession(session)
	c.events.Publish(domain.AuthEvent{Type: domain.AuthSignedIn, Session: session})
	return session, nil
}

// GetSession confirms the held token with the backend and refreshes the
// user's roles from it.
func (c *Client) GetSession(ctx context.Context) (domain.Session, error) {
	const op = "get session"

	session := c.currentSession()
	if session.Empty() {
		return domain.Session{}, domain.ErrNoSession
	}

	var user userResponse
	err := c.do(ctx, op, http.MethodGet, c.api.UserPath+url.PathEscape(string(session.UserID)), session.AccessToken, nil, &user)
	if err != nil {
		if domain.KindOf(err) == domain.KindSessionLoss {
			c.clearSession(session.AccessToken)
		}
		return domain.Session{}, err
	}
	if user.IsActive != nil && !*user.IsActive {
		c.clearSession(session.AccessToken)
		return domain.Session{}, domain.NewError(domain.KindSessionLoss, op, errors.New("account deactivated"))
	}

	if user.Username != "" {
		session.Username = user.Username
	}
	if len(user.Roles) > 0 {
		session.Roles = append([]string(nil), user.Roles...)
		session.Role = domain.PrimaryRole(user.Roles)
	}
	c.setSession(session)
	return session, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (domain.Session, error) {
	const op = "refresh session"

	if strings.TrimSpace(refreshToken) == "" {
		return domain.Session{}, domain.ErrNoSession
	}

	var payload tokenResponse
	if err := c.do(ctx, op, http.MethodPost, c.api.RefreshPath, refreshToken, nil, &payload); err != nil {
		if domain.KindOf(err) == domain.KindSessionLoss {
			c.clearSession(refreshToken)
		}
		return domain.Session{}, err
	}

	session, err := sessionFromToken(payload.Token)
	if err != nil {
		return domain.Session{}, domain.NewError(domain.KindInternal, op, err)
	}

	c.setSession(session)
	c.events.Publish(domain.AuthEvent{Type: domain.AuthTokenRefreshed, Session: session})
	return session, nil
}

// SignOut forgets the held token. The backend keeps no session to revoke.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.session = domain.Session{}
	c.mu.Unlock()

	c.events.Publish(domain.AuthEvent{Type: domain.AuthSignedOut})
	return nil
}

func (c *Client) OnAuthStateChange(handler func(domain.AuthEvent)) (unsubscribe func()) {
	return c.events.Subscribe(handler)
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, "health check", http.MethodGet, c.api.HealthPath, "", nil, nil)
}

// Restore hands the client a session recovered from local storage without
// announcing it.
func (c *Client) Restore(session domain.Session) {
	c.setSession(session)
}

// CloseIdleConnections releases the client's idle transport connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) currentSession() domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSession(session domain.Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

// clearSession drops the held session if it still carries token.
func (c *Client) clearSession(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.AccessToken == token {
		c.session = domain.Session{}
	}
}

func (c *Client) do(ctx context.Context, op, method, path, bearer string, body any, out any) error {
	endpoint, err := buildAPIURL(c.api.BaseURL, path)
	if err != nil {
		return domain.NewError(domain.KindConfig, op, err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return domain.NewError(domain.KindInternal, op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return domain.NewError(domain.KindInternal, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	started := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.KindTransient, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("identity request",
		slog.String("op", op),
		slog.String("method", method),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", c.clock.Now().Sub(started)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return domain.NewError(domain.KindTransient, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// statusError classifies a non-2xx response. Auth failures end the session,
// server-side trouble is worth retrying, anything else is final.
func statusError(op string, resp *http.Response) error {
	message := decodeAPIError(resp)
	err := fmt.Errorf("status %d: %s", resp.StatusCode, message)

	var kind domain.ErrorKind
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		kind = domain.KindSessionLoss
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		kind = domain.KindTransient
	default:
		kind = domain.KindTerminal
	}
	return domain.NewError(kind, op, err).WithContext("status", resp.StatusCode)
}

func decodeAPIError(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var payload apiErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for field, msg := range fields {
			parts = append(parts, field+": "+msg)
		}
		return strings.Join(parts, "; ")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
