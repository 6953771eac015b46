package zones

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/logger"
)

const defaultRequestTimeout = 5 * time.Second

// Result is the outcome of a mutating zone call. Transport and
// validation failures both land here; nothing panics or escapes.
type Result struct {
	OK      bool
	Message string
}

// Client talks to the backend zone collection. Every call carries the
// session credential handed to NewClient; the credential itself is
// opaque to this package.
type Client struct {
	baseURL    string
	credential string
	http       *http.Client
}

// NewClient returns a CRUD client for the zone collection rooted at
// baseURL. An explicit request timeout stands in for the backend never
// answering: a hung call surfaces as a failed Result instead of leaving
// the editor controls wedged.
func NewClient(baseURL, credential string) *Client {
	return &Client{
		baseURL:    baseURL,
		credential: credential,
		http:       &http.Client{Timeout: defaultRequestTimeout},
	}
}

type mutationReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// List fetches the authoritative zone list in backend order.
func (c *Client) List(ctx context.Context) ([]Zone, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/zones", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list zones: status %d", resp.StatusCode)
	}

	var list []Zone
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return list, nil
}

// Create persists a new zone.
func (c *Client) Create(ctx context.Context, name string, points []geometry.Point) Result {
	payload := Zone{Name: name, Points: points}
	return c.send(ctx, http.MethodPost, "/api/zones", payload)
}

// Update replaces the name and points of an existing zone.
func (c *Client) Update(ctx context.Context, id int64, name string, points []geometry.Point) Result {
	payload := Zone{Name: name, Points: points}
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/api/zones/%d", id), payload)
}

// Delete removes a zone by id. Callers confirm with the operator before
// invoking this; deleting an id the backend no longer has is a clean
// not-found Result.
func (c *Client) Delete(ctx context.Context, id int64) Result {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/zones/%d", id), nil)
}

func (c *Client) send(ctx context.Context, method, path string, payload any) Result {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Result{Message: err.Error()}
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("ZoneClient", "%s %s failed: %v", method, path, err)
		return Result{Message: "request failed"}
	}
	defer resp.Body.Close()

	var reply mutationReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		reply = mutationReply{}
	}
	if resp.StatusCode != http.StatusOK || !reply.OK {
		msg := reply.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Result{Message: msg}
	}
	return Result{OK: true}
}

func (c *Client) authorize(req *http.Request) {
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
}
