package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"watchpost/config"
	"watchpost/core/geo"
)

var (
	ErrNoResult = errors.New("geocode: no result")
	ErrDisabled = errors.New("geocode: disabled")
)

// Geocoder resolves free-text addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
	Reverse(ctx context.Context, p geo.Point) (string, error)
}

func New(cfg config.GeocoderConfig) Geocoder {
	switch cfg.Provider {
	case "google":
		return NewGoogle(cfg)
	case "static":
		return NewStatic(nil)
	default:
		return Disabled{}
	}
}

type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (geo.Point, error) { return geo.Point{}, ErrDisabled }
func (Disabled) Reverse(context.Context, geo.Point) (string, error) { return "", ErrDisabled }

// Static answers from a fixed address book. Lookups are case-insensitive.
type Static struct {
	mu      sync.RWMutex
	entries map[string]geo.Point
}

func NewStatic(entries map[string]geo.Point) *Static {
	s := &Static{entries: map[string]geo.Point{}}
	for k, v := range entries {
		s.entries[normalize(k)] = v
	}
	return s
}

func (s *Static) Add(address string, p geo.Point) {
	s.mu.Lock()
	s.entries[normalize(address)] = p
	s.mu.Unlock()
}

func (s *Static) Geocode(_ context.Context, address string) (geo.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[normalize(address)]
	if !ok {
		return geo.Point{}, fmt.Errorf("%w: %q", ErrNoResult, address)
	}
	return p, nil
}

func (s *Static) Reverse(_ context.Context, p geo.Point) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := ""
	bestDist := 0.0
	for addr, q := range s.entries {
		d := geo.Distance(p, q)
		if best == "" || d < bestDist {
			best, bestDist = addr, d
		}
	}
	if best == "" {
		return "", ErrNoResult
	}
	return best, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
