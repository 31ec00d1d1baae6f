package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "RaffleApp/1.0"
)

// ErrNoAddress is returned when Nominatim answers 200 without an address,
// which happens for coordinates in the open sea.
var ErrNoAddress = errors.New("geocoding: response has no address")

// Address is the addressdetails object of a Nominatim reverse lookup.
// Every field is optional.
type Address struct {
	County       string `json:"county"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Village      string `json:"village"`
	Town         string `json:"town"`
	City         string `json:"city"`
	Suburb       string `json:"suburb"`
	Municipality string `json:"municipality"`
}

// Locality returns the most specific settlement name, falling back to the
// county.
func (a *Address) Locality() string {
	for _, v := range []string{a.Village, a.Town, a.City, a.Suburb, a.Municipality} {
		if v != "" {
			return v
		}
	}
	return a.County
}

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond caps outgoing calls. Zero disables the limiter.
	RequestsPerSecond float64
}

// Client wraps the Nominatim reverse geocoding endpoint. It never retries
// and never caches.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

type reverseResponse struct {
	Address *Address `json:"address"`
	Error   string   `json:"error"`
}

// ReverseGeocode resolves a coordinate pair to an address. The configured
// timeout covers the rate-limiter wait as well as the request.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	u := c.baseURL + "/reverse?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned HTTP %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if body.Address == nil {
		if body.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoAddress, body.Error)
		}
		return nil, ErrNoAddress
	}
	return body.Address, nil
}
