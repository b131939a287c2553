// Package bridge signals the downstream alert-cache service that its
// cached view of alert state is stale. Both calls are fire-and-forget:
// no retry, no backoff, failures are logged and swallowed.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/alertops/internal/metrics"
)

// AlertRef identifies one alert for the scoped invalidation path.
type AlertRef struct {
	StudioID int64 `json:"studio_id"`
	AlertID  int64 `json:"alert_id"`
}

// Client calls the cache service's invalidation endpoints.
type Client struct {
	host         string
	refreshHTTP  *http.Client
	forceHTTP    *http.Client
	logger       *log.Logger
}

// NewClient creates a bridge client. The two endpoints carry separate
// timeouts: the blanket refresh is cheap for the far side, the scoped
// force update is not.
func NewClient(host string, refreshTimeout, forceTimeout time.Duration, logger *log.Logger) *Client {
	if refreshTimeout <= 0 {
		refreshTimeout = 5 * time.Second
	}
	if forceTimeout <= 0 {
		forceTimeout = 10 * time.Second
	}
	return &Client{
		host:        host,
		refreshHTTP: &http.Client{Timeout: refreshTimeout},
		forceHTTP:   &http.Client{Timeout: forceTimeout},
		logger:      logger,
	}
}

// RefreshCache tells the cache service to rebuild its whole view. The
// zero path segment is the "refresh everything" key.
func (c *Client) RefreshCache(ctx context.Context) {
	url := fmt.Sprintf("%s/update_cache/0", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Printf("bridge: build refresh request: %v", err)
		return
	}
	c.send(c.refreshHTTP, req, "update_cache")
}

// ForceUpdate tells the cache service to re-pull the given alerts.
func (c *Client) ForceUpdate(ctx context.Context, refs []AlertRef) {
	if len(refs) == 0 {
		return
	}
	body, err := json.Marshal(refs)
	if err != nil {
		c.logger.Printf("bridge: marshal force update: %v", err)
		return
	}
	url := fmt.Sprintf("%s/force_update", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Printf("bridge: build force update request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	c.send(c.forceHTTP, req, "force_update")
}

func (c *Client) send(client *http.Client, req *http.Request, endpoint string) {
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Printf("bridge: %s: %v", endpoint, err)
		metrics.BridgeCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Printf("bridge: %s: unexpected status %d", endpoint, resp.StatusCode)
		metrics.BridgeCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return
	}
	metrics.BridgeCallsTotal.WithLabelValues(endpoint, "ok").Inc()
}
