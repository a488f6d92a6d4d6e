package wikipedia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
)

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Eiffel%20Tower" && r.URL.Path != "/Eiffel Tower" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"title": "Eiffel Tower",
			"extract": "A wrought-iron lattice tower in Paris.",
			"thumbnail": {"source": "https://example.org/eiffel.jpg"},
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Eiffel_Tower"}},
			"coordinates": {"lat": 48.8584, "lon": 2.2945}
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, time.Hour, 0)
	article, err := client.Lookup(context.Background(), "en:Eiffel Tower")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title != "Eiffel Tower" {
		t.Errorf("unexpected title %q", article.Title)
	}
	if article.Summary == "" || article.CanonicalURL == "" {
		t.Errorf("incomplete article: %+v", article)
	}
	if article.Coordinates == nil || article.Coordinates.Lat != 48.8584 {
		t.Errorf("expected coordinates, got %+v", article.Coordinates)
	}
}

func TestLookup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, nil, time.Hour, 0)
	_, err := client.Lookup(context.Background(), "Nowhere")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLookup_EmptyRef(t *testing.T) {
	client := New("http://unused", nil, time.Hour, 0)
	_, err := client.Lookup(context.Background(), "  ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTitleFromRef(t *testing.T) {
	cases := []struct{ in, want string }{
		{"en:Eiffel Tower", "Eiffel Tower"},
		{"de:Brandenburger Tor", "Brandenburger Tor"},
		{"Q2981", "Q2981"},
		{"Plain Title", "Plain Title"},
	}
	for _, tc := range cases {
		if got := titleFromRef(tc.in); got != tc.want {
			t.Errorf("titleFromRef(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
