package scenariolist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// Sync status strings shared with the server.
const (
	StatusSuccess    = "success"
	StatusConflict   = "conflict"
	StatusUpToDate   = "up_to_date"
	StatusHasChanges = "has_changes"
)

// Client is a thin HTTP client for the sync server's delta endpoints.
// Conflict handling is entirely the server's strict from_version equality
// check; there is no retry or merge logic here.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// ListInfo describes a remote list.
type ListInfo struct {
	ListID  int64 `json:"list_id"`
	Version int   `json:"version"`
	Length  int   `json:"length"`
}

// PullResult is the body of a pull response.
type PullResult struct {
	Status  string       `json:"status"`
	Version int          `json:"version"`
	Delta   *types.Delta `json:"delta"`
}

// PushResult is the body of a push response.
type PushResult struct {
	Status     string `json:"status"`
	NewVersion int    `json:"new_version,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CreateList creates a remote list seeded with the given scenarios and
// returns its info.
func (c *Client) CreateList(ctx context.Context, scenarios []types.Scenario) (ListInfo, error) {
	var info ListInfo
	body := map[string]any{"scenarios": scenarios}
	err := c.do(ctx, http.MethodPost, c.baseURL+"/lists", body, &info)
	return info, err
}

// Info returns the remote list's current version and length.
func (c *Client) Info(ctx context.Context, listID int64) (ListInfo, error) {
	var info ListInfo
	url := fmt.Sprintf("%s/lists/%d/info", c.baseURL, listID)
	err := c.do(ctx, http.MethodGet, url, nil, &info)
	return info, err
}

// Pull fetches the delta from fromVersion to the remote head.
func (c *Client) Pull(ctx context.Context, listID int64, fromVersion int) (PullResult, error) {
	var result PullResult
	url := fmt.Sprintf("%s/lists/%d/pull?from_version=%d", c.baseURL, listID, fromVersion)
	err := c.do(ctx, http.MethodGet, url, nil, &result)
	return result, err
}

// PushDelta sends a delta to the remote list. A version mismatch on the
// server comes back as StatusConflict, not an error.
func (c *Client) PushDelta(ctx context.Context, listID int64, delta *types.Delta) (PushResult, error) {
	var result PushResult
	url := fmt.Sprintf("%s/lists/%d/push", c.baseURL, listID)
	err := c.do(ctx, http.MethodPost, url, delta, &result)
	return result, err
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(blob)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: server returned %s", method, url, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Push sends the local delta since baseVersion to the remote list and
// returns the resulting status (StatusSuccess or StatusConflict). After a
// conflict the caller must pull and push again; there is no merge.
func (l *ScenarioList) Push(ctx context.Context, client *Client, listID int64, baseVersion int) (string, error) {
	current, err := l.store.Version()
	if err != nil {
		return "", err
	}
	delta, err := l.store.GetDelta(baseVersion, current)
	if err != nil {
		return "", err
	}
	result, err := client.PushDelta(ctx, listID, delta)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// Pull fetches remote changes since the local version and applies them.
// Returns StatusUpToDate or StatusHasChanges.
func (l *ScenarioList) Pull(ctx context.Context, client *Client, listID int64) (string, error) {
	current, err := l.store.Version()
	if err != nil {
		return "", err
	}
	result, err := client.Pull(ctx, listID, current)
	if err != nil {
		return "", err
	}
	if result.Status != StatusHasChanges || result.Delta == nil {
		return result.Status, nil
	}
	if err := l.store.ApplyDelta(result.Delta); err != nil {
		return "", err
	}
	return result.Status, nil
}

// FromRemote builds a fresh in-memory list from the full remote history of
// the given list.
func FromRemote(ctx context.Context, client *Client, listID int64) (*ScenarioList, error) {
	list := NewInMemory()
	if _, err := list.Pull(ctx, client, listID); err != nil {
		return nil, err
	}
	return list, nil
}
