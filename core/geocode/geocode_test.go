package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"watchpost/config"
	"watchpost/core/geo"
)

func TestStaticLookup(t *testing.T) {
	g := NewStatic(map[string]geo.Point{"Main St": {Lat: 12.97, Lng: 77.59}})
	p, err := g.Geocode(context.Background(), "  main   st ")
	if err != nil || p.Lat != 12.97 {
		t.Fatalf("lookup: %v %v", p, err)
	}
	if _, err := g.Geocode(context.Background(), "Elm St"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected no result, got %v", err)
	}
	addr, err := g.Reverse(context.Background(), geo.Point{Lat: 12.98, Lng: 77.6})
	if err != nil || addr != "main st" {
		t.Fatalf("reverse: %q %v", addr, err)
	}
}

func TestGoogleGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key")
		}
		if r.URL.Query().Get("address") == "nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Main St, Bengaluru","geometry":{"location":{"lat":12.97,"lng":77.59}}}]}`))
	}))
	defer srv.Close()
	g := NewGoogle(config.GeocoderConfig{APIKey: "k", BaseURL: srv.URL, TimeoutSec: 2})
	p, err := g.Geocode(context.Background(), "Main St")
	if err != nil || p.Lat != 12.97 || p.Lng != 77.59 {
		t.Fatalf("geocode: %v %v", p, err)
	}
	if _, err := g.Geocode(context.Background(), "nowhere"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected no result, got %v", err)
	}
	addr, err := g.Reverse(context.Background(), p)
	if err != nil || addr != "Main St, Bengaluru" {
		t.Fatalf("reverse: %q %v", addr, err)
	}
}

func TestGoogleUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	g := NewGoogle(config.GeocoderConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := g.Geocode(context.Background(), "Main St"); err == nil {
		t.Fatalf("expected error on upstream failure")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	if _, ok := New(config.GeocoderConfig{Provider: "none"}).(Disabled); !ok {
		t.Fatalf("expected disabled geocoder")
	}
	if _, ok := New(config.GeocoderConfig{Provider: "google", APIKey: "k"}).(*Google); !ok {
		t.Fatalf("expected google geocoder")
	}
}
