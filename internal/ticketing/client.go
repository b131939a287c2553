// Package ticketing files and checks tracker tickets for alerts.
// Unlike the cache invalidation calls, ticketing failures surface to
// the caller: a silently dropped ticket loses work.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the ticket tracker's REST API.
type Client struct {
	host      string
	projectID string
	client    *http.Client
}

// NewClient creates a ticketing client for the given tracker project.
func NewClient(host, projectID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{host: host, projectID: projectID, client: &http.Client{Timeout: timeout}}
}

type createTicketRequest struct {
	ProjectID string `json:"project_id"`
	Reporter  string `json:"reporter"`
	Subject   string `json:"subject"`
}

type createTicketResponse struct {
	Key string `json:"key"`
}

type ticketStatusResponse struct {
	Status string `json:"status"`
}

// CreateTicket files a ticket and returns its key.
func (c *Client) CreateTicket(ctx context.Context, reporter, subject string) (string, error) {
	body, err := json.Marshal(createTicketRequest{
		ProjectID: c.projectID,
		Reporter:  reporter,
		Subject:   subject,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ticket: %w", err)
	}

	url := fmt.Sprintf("%s/issue", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create ticket: unexpected status %d", resp.StatusCode)
	}

	var created createTicketResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode ticket response: %w", err)
	}
	if created.Key == "" {
		return "", fmt.Errorf("create ticket: empty key in response")
	}
	return created.Key, nil
}

// CheckClosed reports whether a ticket has reached a closed status.
func (c *Client) CheckClosed(ctx context.Context, key string) (bool, error) {
	url := fmt.Sprintf("%s/issue/%s", c.host, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build ticket status request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("check ticket %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("check ticket %s: unexpected status %d", key, resp.StatusCode)
	}

	var status ticketStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("decode ticket status: %w", err)
	}
	return status.Status == "Closed" || status.Status == "Done", nil
}
