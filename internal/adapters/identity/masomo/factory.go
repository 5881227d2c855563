package masomo

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/campus-session/internal/pool"
)

// ClientFactory dials independent clients, each with its own transport, for
// the connection pool.
type ClientFactory struct {
	Config Config
}

func (f ClientFactory) Dial(ctx context.Context) (*Client, error) {
	cfg := f.Config
	cfg.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.HealthCheck(ctx); err != nil {
		client.CloseIdleConnections()
		return nil, err
	}
	return client, nil
}

func (f ClientFactory) Ping(ctx context.Context, client *Client) error {
	return client.HealthCheck(ctx)
}

func (f ClientFactory) Close(client *Client) error {
	client.CloseIdleConnections()
	return nil
}

// PoolFactory adapts f to the pool's factory shape.
func (f ClientFactory) PoolFactory() pool.Factory[*Client] {
	return pool.Factory[*Client]{
		Dial:  f.Dial,
		Ping:  f.Ping,
		Close: f.Close,
	}
}
