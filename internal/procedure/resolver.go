// Package procedure resolves remediation-procedure descriptors from
// the scenarios service, with a short-lived in-process cache in front
// of it.
package procedure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/good-yellow-bee/alertops/internal/models"
)

// Resolver looks up procedure descriptors by id.
type Resolver struct {
	host   string
	client *http.Client
	cache  *gocache.Cache
}

// NewResolver creates a resolver. Cached descriptors expire after ttl;
// the scenarios service is the source of truth, the cache just keeps
// hot alert views from hammering it.
func NewResolver(host string, timeout, ttl time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{
		host:   host,
		client: &http.Client{Timeout: timeout},
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// Resolve returns the descriptor for a procedure id, (nil, nil) when
// the scenarios service does not know the id.
func (r *Resolver) Resolve(ctx context.Context, id int64) (*models.Procedure, error) {
	key := fmt.Sprintf("%d", id)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*models.Procedure), nil
	}

	url := fmt.Sprintf("%s/%d", r.host, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build procedure request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch procedure %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch procedure %d: unexpected status %d", id, resp.StatusCode)
	}

	var details map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("decode procedure %d: %w", id, err)
	}

	p := &models.Procedure{ProcedureID: id, Details: details}
	r.cache.SetDefault(key, p)
	return p, nil
}
