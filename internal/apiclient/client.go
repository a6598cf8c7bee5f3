// Package apiclient is the HTTP client for the request-service queue API,
// shared by the party display poller and the operator CLI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Manuele79/dj-requests/internal/request"
)

type Client struct {
	base      string
	apiSecret string
	http      *http.Client
}

func New(base, apiSecret string) *Client {
	return &Client{
		base:      base,
		apiSecret: apiSecret,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListRequests fetches the ranked queue for an event.
func (c *Client) ListRequests(ctx context.Context, code string) ([]request.RequestItem, error) {
	u := c.base + "/requests?eventCode=" + url.QueryEscape(request.NormalizeEventCode(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list requests failed: %d", resp.StatusCode)
	}

	var res struct {
		Requests []request.RequestItem `json:"requests"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return res.Requests, nil
}

type SubmitResult struct {
	Merged  bool                `json:"merged"`
	Request request.RequestItem `json:"request"`
}

// Submit sends a song request. A 429 is reported with the server's
// Retry-After hint embedded in the error.
func (c *Client) Submit(ctx context.Context, in request.SubmitInput) (*SubmitResult, error) {
	resp, err := c.postJSON(ctx, "/requests", http.MethodPost, in, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := resp.Header.Get("Retry-After")
		if retry == "" {
			retry = "10"
		}
		return nil, fmt.Errorf("rate limited, retry in %ss", retry)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("submit failed: %d", resp.StatusCode)
	}

	var res SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AdjustVotes is the privileged vote adjustment; delta may be negative.
func (c *Client) AdjustVotes(ctx context.Context, id string, delta int) (*request.RequestItem, error) {
	body := map[string]any{"id": id, "delta": delta}
	resp, err := c.postJSON(ctx, "/requests", http.MethodPatch, body, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adjust votes failed: %d", resp.StatusCode)
	}

	var res struct {
		Request request.RequestItem `json:"request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res.Request, nil
}

// GetEvent reports whether the event exists and is open.
func (c *Client) GetEvent(ctx context.Context, code string) (*request.Event, error) {
	u := c.base + "/events?eventCode=" + url.QueryEscape(request.NormalizeEventCode(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("event not found")
	case http.StatusGone:
		return nil, fmt.Errorf("event expired")
	default:
		return nil, fmt.Errorf("get event failed: %d", resp.StatusCode)
	}

	var res request.Event
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateEvent creates or renews an event using the shared creation password.
func (c *Client) CreateEvent(ctx context.Context, code, password string) (*request.Event, error) {
	body := map[string]any{"eventCode": code, "password": password}
	resp, err := c.postJSON(ctx, "/events", http.MethodPost, body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("wrong creation password")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create event failed: %d", resp.StatusCode)
	}

	var res struct {
		Event request.Event `json:"event"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res.Event, nil
}

func (c *Client) postJSON(ctx context.Context, path, method string, body any, privileged bool) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if privileged && c.apiSecret != "" {
		req.Header.Set("X-Api-Secret", c.apiSecret)
	}
	return c.http.Do(req)
}
