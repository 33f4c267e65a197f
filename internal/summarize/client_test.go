package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["video_id_or_url"] == "" {
			t.Error("missing video url in request")
		}
		json.NewEncoder(w).Encode(map[string]string{
			"title":      "A Talk",
			"transcript": "hello world",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", "", "")
	tr, err := c.Transcript(context.Background(), "https://www.youtube.com/watch?v=x")
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if tr.Title != "A Talk" || tr.Text != "hello world" {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestTranscript_EmptyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"title": "A Talk"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", "", "")
	if _, err := c.Transcript(context.Background(), "url"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestWebSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode("a fine summary")
	}))
	defer srv.Close()

	c := NewClient("", "", srv.URL, "tok")
	got, err := c.WebSummary(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("web summary: %v", err)
	}
	if got != "a fine summary" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestWebSummary_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "paywalled"})
	}))
	defer srv.Close()

	c := NewClient("", "", srv.URL, "tok")
	if _, err := c.WebSummary(context.Background(), "https://example.com"); err == nil || err.Error() != "paywalled" {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestUnconfiguredServices(t *testing.T) {
	c := NewClient("", "", "", "")
	if _, err := c.Transcript(context.Background(), "url"); err == nil {
		t.Fatal("expected error without transcript service")
	}
	if _, err := c.WebSummary(context.Background(), "url"); err == nil {
		t.Fatal("expected error without web summary service")
	}
}
