// Package supabase is a thin PostgREST client for the external mirror store.
// The in-memory store stays authoritative; everything here is best-effort and
// eventually consistent.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mirror table names.
const (
	TableConversations = "gyeol_conversations"
	TableAgents        = "gyeol_agents"
	TableReflections   = "gyeol_reflections"
	TableProactive     = "gyeol_proactive_messages"
	TableTopics        = "gyeol_learned_topics"
	TableLogs          = "gyeol_autonomous_logs"
)

const requestTimeout = 10 * time.Second

// Client talks to the Supabase REST interface.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// New creates a client. Empty url or key yields an unconfigured client whose
// calls return ErrNotConfigured.
func New(url, serviceKey string) *Client {
	return &Client{
		baseURL:    url,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// ErrNotConfigured is returned when the mirror credentials are absent.
var ErrNotConfigured = fmt.Errorf("supabase: not configured")

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.serviceKey != ""
}

// Insert POSTs one row (or a batch) into table.
func (c *Client) Insert(ctx context.Context, table string, body any) error {
	_, err := c.do(ctx, http.MethodPost, table, body)
	return err
}

// Patch updates rows matching the filter expression, e.g.
// "gyeol_agents?id=eq.abc".
func (c *Client) Patch(ctx context.Context, pathWithFilter string, body any) error {
	_, err := c.do(ctx, http.MethodPatch, pathWithFilter, body)
	return err
}

// Select GETs rows for the query expression and decodes them into dest.
func (c *Client) Select(ctx context.Context, pathWithQuery string, dest any) error {
	data, err := c.do(ctx, http.MethodGet, pathWithQuery, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("supabase decode %s: %w", pathWithQuery, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("supabase encode %s: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase request %s: %w", path, err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase read %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("supabase %s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}
