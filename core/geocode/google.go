package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"watchpost/config"
	"watchpost/core/geo"
)

// Google talks to the Google Geocoding JSON API.
type Google struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGoogle(cfg config.GeocoderConfig) *Google {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	return &Google{baseURL: base, apiKey: cfg.APIKey, client: &http.Client{Timeout: timeout}}
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

func (g *Google) Geocode(ctx context.Context, address string) (geo.Point, error) {
	q := url.Values{}
	q.Set("address", address)
	resp, err := g.do(ctx, q)
	if err != nil {
		return geo.Point{}, err
	}
	loc := resp.Results[0].Geometry.Location
	p := geo.Point{Lat: loc.Lat, Lng: loc.Lng}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("geocode: provider returned invalid point %v", p)
	}
	return p, nil
}

func (g *Google) Reverse(ctx context.Context, p geo.Point) (string, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(p.Lat, 'f', -1, 64)+","+strconv.FormatFloat(p.Lng, 'f', -1, 64))
	resp, err := g.do(ctx, q)
	if err != nil {
		return "", err
	}
	return resp.Results[0].FormattedAddress, nil
}

func (g *Google) do(ctx context.Context, q url.Values) (*googleResponse, error) {
	q.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: upstream status %d", res.StatusCode)
	}
	var body googleResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNoResult
	default:
		return nil, fmt.Errorf("geocode: status %s %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return nil, ErrNoResult
	}
	return &body, nil
}
