package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lookoutar/lookout/internal/core/domain"
)

var center = domain.GeoPoint{Lat: 48.8584, Lon: 2.2945}

const sampleBody = `{
	"elements": [
		{"type":"node","id":1,"lat":48.8606,"lon":2.3376,"tags":{"name":"Louvre","wikipedia":"en:Louvre"}},
		{"type":"node","id":2,"lat":48.8530,"lon":2.3499,"tags":{"name":"Notre-Dame","wikidata":"Q2981"}},
		{"type":"node","id":3,"lat":48.8738,"lon":2.2950,"tags":{"wikipedia":"en:Arc de Triomphe"}},
		{"type":"node","id":4,"lat":48.8867,"lon":2.3431,"tags":{"name":"Sacré-Cœur"}},
		{"type":"node","id":5,"lat":0,"lon":0,"tags":{"name":"Null Island","wikipedia":"en:Null Island"}},
		{"type":"way","id":6,"tags":{"name":"Some Way","wikipedia":"en:Some Way"}},
		{"type":"node","id":1,"lat":48.8606,"lon":2.3376,"tags":{"name":"Louvre","wikipedia":"en:Louvre"}}
	]
}`

func TestQueryNearby_ParsesAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostFormValue("data") == "" {
			t.Error("expected data query parameter")
		}
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	client := New(srv.URL, "lookout-test", 0)
	pois, err := client.QueryNearby(context.Background(), center, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Records 3 (no name), 4 (no ref), 5 (null island), 6 (not a node) are
	// dropped; the duplicate of 1 is deduplicated.
	if len(pois) != 2 {
		t.Fatalf("expected 2 POIs, got %d: %+v", len(pois), pois)
	}
	if pois[0].Name != "Louvre" || pois[0].ExternalRef != "en:Louvre" {
		t.Errorf("unexpected first POI: %+v", pois[0])
	}
	if pois[1].ExternalRef != "Q2981" {
		t.Errorf("expected wikidata fallback ref, got %q", pois[1].ExternalRef)
	}
	if pois[0].DistanceMeters <= 0 {
		t.Errorf("expected computed distance, got %v", pois[0].DistanceMeters)
	}
}

func TestQueryNearby_StatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		retriable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := New(srv.URL, "lookout-test", 0)
		_, err := client.QueryNearby(context.Background(), center, 1000)
		srv.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := errors.Is(err, domain.ErrProviderUnavailable); got != tc.retriable {
			t.Errorf("status %d: retriable=%v, want %v (err=%v)", tc.status, got, tc.retriable, err)
		}
	}
}

func TestQueryNearby_NetworkFailureIsRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL, "lookout-test", 0)
	_, err := client.QueryNearby(context.Background(), center, 1000)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected retriable provider error, got %v", err)
	}
}

func TestBuildQuery_IncludesRadiusAndTags(t *testing.T) {
	q := buildQuery(center, 1500)
	for _, want := range []string{"around:1500", "wikipedia", "wikidata", "out:json"} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q: %s", want, q)
		}
	}
}
