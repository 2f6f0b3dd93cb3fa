package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/service"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimConfig configures a NominatimClient.
type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Country   string
	Timeout   time.Duration
	Retry     service.RetryOptions
}

// NominatimClient geocodes cities with the OpenStreetMap Nominatim API.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	country    string
	retry      service.RetryOptions
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimClient creates a client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewNominatimClient(cfg NominatimConfig) (*NominatimClient, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: nominatim user agent is required", common.ErrMissingConfig)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		country:   cfg.Country,
		retry:     cfg.Retry,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Coords returns the first search hit for the city, restricted to the
// configured country when one is set.
func (c *NominatimClient) Coords(ctx context.Context, city string) (model.Coordinates, bool, error) {
	var places []nominatimPlace

	err := common.WithRetry(ctx, func() error {
		var searchErr error
		places, searchErr = c.search(ctx, city)
		return searchErr
	}, c.retry)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("%w: %w", common.ErrGeocoderUnavailable, err)
	}

	if len(places) == 0 {
		return model.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("invalid latitude %q for %s: %w", places[0].Lat, city, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("invalid longitude %q for %s: %w", places[0].Lon, city, err)
	}

	return model.Coordinates{Lat: lat, Lon: lon}, true, nil
}

func (c *NominatimClient) search(ctx context.Context, city string) ([]nominatimPlace, error) {
	query := city
	if c.country != "" {
		query = city + ", " + c.country
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &common.RetryableError{
			Err:        fmt.Errorf("nominatim: %w", common.ErrRateLimit),
			RetryAfter: common.RetryAfterHeader(resp.Header),
			Retryable:  true,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("nominatim error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: common.RetryableStatus(resp.StatusCode),
		}
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	return places, nil
}
