// Package geocoder resolves free form addresses to coordinates.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrazmi/devcamper/sdk/environment"
)

var (
	ErrNotConfigured = errors.New("geocoder is not configured")
	ErrNoMatch       = errors.New("address not found")
)

// Location is a resolved address.
type Location struct {
	Lng              float64
	Lat              float64
	FormattedAddress string
	Street           string
	City             string
	State            string
	Zipcode          string
	Country          string
}

// Geocoder resolves addresses.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Location, error)
}

// Options represents the exportable geocoder configuration
type Options struct {
	Provider string        `env:"GEOCODER_PROVIDER" default:"mapquest"`
	APIKey   string        `env:"GEOCODER_API_KEY"`
	BaseURL  string        `env:"GEOCODER_BASE_URL" default:"https://www.mapquestapi.com/geocoding/v1/address"`
	Timeout  time.Duration `env:"GEOCODER_TIMEOUT" default:"5s"`
}

// NewFromEnv returns a MapQuest client, or Disabled when no key is set.
func NewFromEnv(prefix string) (Geocoder, error) {
	var cfg Options
	if err := environment.ParseEnvTags(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing geocoder config: %w", err)
	}
	if cfg.APIKey == "" {
		return Disabled{}, nil
	}
	if cfg.Provider != "mapquest" {
		return nil, fmt.Errorf("unsupported geocoder provider %q", cfg.Provider)
	}
	return NewMapQuest(cfg, nil), nil
}

// Disabled fails every lookup with ErrNotConfigured.
type Disabled struct{}

func (Disabled) Geocode(ctx context.Context, address string) (Location, error) {
	return Location{}, ErrNotConfigured
}

// MapQuest calls the MapQuest geocoding API.
type MapQuest struct {
	cfg    Options
	client *http.Client
}

// NewMapQuest builds a MapQuest client; a nil client gets a default with
// cfg.Timeout.
func NewMapQuest(cfg Options, client *http.Client) *MapQuest {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &MapQuest{cfg: cfg, client: client}
}

type mapQuestResponse struct {
	Info struct {
		StatusCode int      `json:"statuscode"`
		Messages   []string `json:"messages"`
	} `json:"info"`
	Results []struct {
		Locations []struct {
			Street     string `json:"street"`
			City       string `json:"adminArea5"`
			State      string `json:"adminArea3"`
			Country    string `json:"adminArea1"`
			PostalCode string `json:"postalCode"`
			LatLng     struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"latLng"`
		} `json:"locations"`
	} `json:"results"`
}

func (m *MapQuest) Geocode(ctx context.Context, address string) (Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, ErrNoMatch
	}

	q := url.Values{}
	q.Set("key", m.cfg.APIKey)
	q.Set("location", address)
	q.Set("maxResults", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	var body mapQuestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if body.Info.StatusCode != 0 {
		return Location{}, fmt.Errorf("geocode failed: %s", strings.Join(body.Info.Messages, "; "))
	}
	if len(body.Results) == 0 || len(body.Results[0].Locations) == 0 {
		return Location{}, ErrNoMatch
	}

	l := body.Results[0].Locations[0]
	loc := Location{
		Lng:     l.LatLng.Lng,
		Lat:     l.LatLng.Lat,
		Street:  l.Street,
		City:    l.City,
		State:   l.State,
		Zipcode: l.PostalCode,
		Country: l.Country,
	}
	loc.FormattedAddress = formatAddress(loc)
	return loc, nil
}

func formatAddress(l Location) string {
	var parts []string
	for _, p := range []string{l.Street, l.City, strings.TrimSpace(l.State + " " + l.Zipcode), l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
