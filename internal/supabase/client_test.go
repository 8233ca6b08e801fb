package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_NotConfigured(t *testing.T) {
	c := New("", "")
	if c.Configured() {
		t.Fatal("expected unconfigured")
	}
	err := c.Insert(context.Background(), TableConversations, map[string]any{"x": 1})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClient_InsertHeadersAndPath(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth, gotPrefer string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "service-key")
	err := c.Insert(context.Background(), TableConversations, map[string]any{"agent_id": "abc", "content": "hi"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if gotPath != "/rest/v1/gyeol_conversations" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAPIKey != "service-key" || gotAuth != "Bearer service-key" {
		t.Errorf("auth headers = %q / %q", gotAPIKey, gotAuth)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("prefer = %q", gotPrefer)
	}
	if gotBody["agent_id"] != "abc" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestClient_SelectDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "select=id&limit=2" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "service-key")
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.Select(context.Background(), TableAgents+"?select=id&limit=2", &rows); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "a" {
		t.Errorf("rows = %v", rows)
	}
}

func TestClient_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad-key")
	if err := c.Insert(context.Background(), TableTopics, map[string]any{}); err == nil {
		t.Fatal("expected error on 401")
	}
}
