package rollbar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedItems struct {
	mu    sync.Mutex
	items []map[string]any
}

func (c *capturedItems) handler(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.items = append(c.items, body)
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *capturedItems) data(t *testing.T, i int) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Greater(t, len(c.items), i)
	data, ok := c.items[i]["data"].(map[string]any)
	require.True(t, ok)
	return data
}

func TestLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", Level(domain.SeverityError))
	assert.Equal(t, "warning", Level(domain.SeverityWarning))
	assert.Equal(t, "info", Level(domain.SeverityInfo))
	assert.Equal(t, "error", Level(domain.Severity("loud")))
}

func TestSinkWithoutTokenDropsEvents(t *testing.T) {
	t.Parallel()

	captured := &capturedItems{}
	srv := httptest.NewServer(http.HandlerFunc(captured.handler))
	t.Cleanup(srv.Close)

	sink := New(Config{Endpoint: srv.URL, Sync: true})
	t.Cleanup(func() { _ = sink.Close() })

	require.NoError(t, sink.Report(context.Background(), domain.ErrorEvent{Message: "boom", Severity: domain.SeverityError}))

	assert.False(t, sink.Enabled())
	assert.Empty(t, captured.items)
}

func TestSinkReportsErrorWithExtras(t *testing.T) {
	t.Parallel()

	captured := &capturedItems{}
	srv := httptest.NewServer(http.HandlerFunc(captured.handler))
	t.Cleanup(srv.Close)

	sink := New(Config{Token: "token", Environment: "test", Endpoint: srv.URL, Sync: true})
	t.Cleanup(func() { _ = sink.Close() })

	err := sink.Report(context.Background(), domain.ErrorEvent{
		ID:        "evt-1",
		Timestamp: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Message:   "session lost",
		Severity:  domain.SeverityWarning,
		Source:    "session_monitor",
		Context:   map[string]any{"operation": "refresh"},
	})
	require.NoError(t, err)

	data := captured.data(t, 0)
	assert.Equal(t, "warning", data["level"])
	assert.Equal(t, "test", data["environment"])

	custom, ok := data["custom"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "evt-1", custom["event_id"])
	assert.Equal(t, "session_monitor", custom["source"])
	assert.Equal(t, "refresh", custom["operation"])
	assert.Equal(t, "2026-03-02T08:00:00Z", custom["occurred_at"])
}

func TestSinkReportsInfoAsMessage(t *testing.T) {
	t.Parallel()

	captured := &capturedItems{}
	srv := httptest.NewServer(http.HandlerFunc(captured.handler))
	t.Cleanup(srv.Close)

	sink := New(Config{Token: "token", Endpoint: srv.URL, Sync: true})
	t.Cleanup(func() { _ = sink.Close() })

	require.NoError(t, sink.Report(context.Background(), domain.ErrorEvent{Message: "signed out", Severity: domain.SeverityInfo}))

	data := captured.data(t, 0)
	assert.Equal(t, "info", data["level"])
	body, ok := data["body"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, body, "message")
}

func TestSinkHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	sink := New(Config{Token: "token", Endpoint: "http://127.0.0.1:1", Sync: true})
	t.Cleanup(func() { _ = sink.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sink.Report(ctx, domain.ErrorEvent{Message: "boom"}), context.Canceled)
}

func TestEventErrorCarriesSource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tracker: boom", eventError(domain.ErrorEvent{Message: "boom", Source: "tracker"}).Error())
	assert.Equal(t, "boom", eventError(domain.ErrorEvent{Message: "boom"}).Error())
}
