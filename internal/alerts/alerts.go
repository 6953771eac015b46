// Package alerts evaluates the occupancy alert banner against the
// persisted threshold.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
)

// ShouldShow is the banner rule: alerts enabled and total strictly
// above the threshold. An exactly-equal total keeps the banner hidden.
func ShouldShow(total, threshold int, enabled bool) bool {
	return enabled && total > threshold
}

type settingsPayload struct {
	AlertThreshold int `json:"alert_threshold"`
}

// ThresholdClient loads and persists the alert threshold.
type ThresholdClient struct {
	baseURL    string
	credential string
	http       *http.Client
}

// NewThresholdClient returns a client for the settings endpoint.
func NewThresholdClient(baseURL, credential string) *ThresholdClient {
	return &ThresholdClient{
		baseURL:    baseURL,
		credential: credential,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Load fetches the persisted threshold.
func (c *ThresholdClient) Load(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/settings", nil)
	if err != nil {
		return 0, err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("load settings: status %d", resp.StatusCode)
	}
	var payload settingsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.AlertThreshold, nil
}

// Save persists a new threshold.
func (c *ThresholdClient) Save(ctx context.Context, threshold int) error {
	data, err := json.Marshal(settingsPayload{AlertThreshold: threshold})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/settings", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("save settings: status %d", resp.StatusCode)
	}
	return nil
}

func (c *ThresholdClient) authorize(req *http.Request) {
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
}

// Evaluator holds the banner state for one console session. Alerts
// start disabled; the enabled flag is a local toggle and is not
// persisted, only the threshold is.
type Evaluator struct {
	client *ThresholdClient

	mu        sync.Mutex
	threshold int
	enabled   bool
	visible   bool
}

// NewEvaluator returns a disabled evaluator over the settings client.
func NewEvaluator(client *ThresholdClient) *Evaluator {
	return &Evaluator{client: client}
}

// Load pulls the persisted threshold once at session start.
func (e *Evaluator) Load(ctx context.Context) error {
	thr, err := e.client.Load(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.threshold = thr
	e.mu.Unlock()
	return nil
}

// SetThreshold persists the new value immediately, then applies it
// locally. A persist failure is logged, not surfaced: the save is
// fire-and-forget from the operator's point of view.
func (e *Evaluator) SetThreshold(ctx context.Context, threshold int) {
	if threshold < 0 {
		threshold = 0
	}
	if err := e.client.Save(ctx, threshold); err != nil {
		logger.Warn("Alerts", "Threshold save failed: %v", err)
	}
	e.mu.Lock()
	e.threshold = threshold
	e.mu.Unlock()
}

// Threshold returns the current threshold.
func (e *Evaluator) Threshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// SetEnabled toggles alerting. Disabling hides the banner at once.
func (e *Evaluator) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
	if !enabled {
		e.visible = false
	}
}

// Enabled reports whether alerting is on.
func (e *Evaluator) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Observe applies the banner rule to a fresh snapshot.
func (e *Evaluator) Observe(snap telemetry.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = ShouldShow(snap.TotalPeople, e.threshold, e.enabled)
}

// Visible reports whether the banner is currently shown.
func (e *Evaluator) Visible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible
}
