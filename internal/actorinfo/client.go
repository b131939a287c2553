// Package actorinfo resolves acting users against the users service.
package actorinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/good-yellow-bee/alertops/internal/models"
)

// Client looks up actor snapshots by username or id.
type Client struct {
	host   string
	client *http.Client
}

type userInfo struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	SecondName string `json:"second_name"`
}

// NewClient creates a users-service client.
func NewClient(host string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{host: host, client: &http.Client{Timeout: timeout}}
}

// Lookup resolves a username into an actor snapshot.
func (c *Client) Lookup(ctx context.Context, username string) (models.Actor, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/user-info/%s", c.host, username))
}

// LookupByID resolves a user id into an actor snapshot.
func (c *Client) LookupByID(ctx context.Context, id int64) (models.Actor, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/user-info-by-id/%d", c.host, id))
}

func (c *Client) fetch(ctx context.Context, url string) (models.Actor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Actor{}, fmt.Errorf("build user info request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Actor{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Actor{}, fmt.Errorf("fetch user info: unexpected status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.Actor{}, fmt.Errorf("decode user info: %w", err)
	}

	fullName := info.FirstName
	if info.SecondName != "" {
		if fullName != "" {
			fullName += " "
		}
		fullName += info.SecondName
	}
	if fullName == "" {
		fullName = info.Username
	}

	return models.Actor{
		ID:       info.ID,
		FullName: fullName,
		Username: info.Username,
		Initials: models.Initials(info.FirstName, info.SecondName, info.Username),
	}, nil
}
