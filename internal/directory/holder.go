// Package directory maintains the studio/environment reference map
// pulled from the users service. The map is process-wide cached data:
// one background task refreshes it on a ticker, request handlers read
// it through accessors that never block on a refresh in flight.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Studio is one environment entry from the users service.
type Studio struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Holder caches the studio map. A failed refresh keeps the previous
// value; readers never see a partially applied update.
type Holder struct {
	host   string
	client *http.Client
	logger *log.Logger

	mu      sync.RWMutex
	studios map[int64]string
}

// NewHolder creates an empty holder. Call Refresh (or Run) to fill it.
func NewHolder(host string, timeout time.Duration, logger *log.Logger) *Holder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Holder{
		host:    host,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		studios: map[int64]string{},
	}
}

// Refresh pulls the current studio list and swaps it in atomically.
// On failure the stale map stays in place.
func (h *Holder) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/studios", h.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build studios request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch studios: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch studios: unexpected status %d", resp.StatusCode)
	}

	var studios []Studio
	if err := json.NewDecoder(resp.Body).Decode(&studios); err != nil {
		return fmt.Errorf("decode studios: %w", err)
	}

	next := make(map[int64]string, len(studios))
	for _, s := range studios {
		next[s.ID] = s.Name
	}

	h.mu.Lock()
	h.studios = next
	h.mu.Unlock()
	return nil
}

// Run refreshes on the given interval until the context is cancelled.
// Failures are logged and the stale map keeps serving.
func (h *Holder) Run(ctx context.Context, interval time.Duration) {
	if err := h.Refresh(ctx); err != nil {
		h.logger.Printf("directory: initial refresh: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Refresh(ctx); err != nil {
				h.logger.Printf("directory: refresh: %v", err)
			}
		}
	}
}

// Name returns the studio name for an id, or "" when unknown. Never
// blocks on a refresh.
func (h *Holder) Name(id int64) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.studios[id]
}

// IDs returns the known studio ids.
func (h *Holder) IDs() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int64, 0, len(h.studios))
	for id := range h.studios {
		ids = append(ids, id)
	}
	return ids
}
