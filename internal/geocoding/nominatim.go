// Package geocoding turns coordinates into place labels and search text into candidate places
// using the public Nominatim API.
package geocoding

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

type Place struct {
	City        string  `json:"city"`
	Ward        string  `json:"ward"`
	FullAddress string  `json:"fullAddress"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// Label is the short form stored as an entry's location.
func (p Place) Label() string {
	switch {
	case p.Ward != "" && p.City != "":
		return p.Ward + ", " + p.City
	case p.City != "":
		return p.City
	case p.Ward != "":
		return p.Ward
	}
	return p.FullAddress
}

type Config struct {
	BaseURL   string
	UserAgent string
	Language  string
	RPS       float64
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	userAgent string
	language  string
	http      *http.Client
	limiter   *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), 1),
	}
}

// Reverse resolves coordinates. Inside Tokyo the ward is the city district and the city is "Tokyo".
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %f,%f", lat, lon)
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	body, err := c.get(ctx, "/reverse", q)
	if err != nil {
		return nil, err
	}
	result := gjson.ParseBytes(body)
	if msg := result.Get("error"); msg.Exists() {
		return nil, fmt.Errorf("nominatim: %s", msg.String())
	}
	place := parsePlace(result)
	return &place, nil
}

// Search returns up to limit candidate places for free text.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("addressdetails", "1")

	body, err := c.get(ctx, "/search", q)
	if err != nil {
		return nil, err
	}
	results := gjson.ParseBytes(body)
	if !results.IsArray() {
		return nil, fmt.Errorf("nominatim: unexpected search response")
	}
	places := []Place{}
	results.ForEach(func(_, value gjson.Result) bool {
		places = append(places, parsePlace(value))
		return true
	})
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocoding rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	req.Header.Set("Accept-Language", c.language)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch address data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read address data: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch address data: status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("nominatim returned invalid JSON")
	}
	return body, nil
}

func parsePlace(r gjson.Result) Place {
	addr := r.Get("address")
	city := firstNonEmpty(addr, "city", "town", "village")
	ward := firstNonEmpty(addr, "suburb", "neighbourhood")

	if addr.Get("state").String() == "Tokyo" {
		city = "Tokyo"
		ward = firstNonEmpty(addr, "city_district", "suburb")
	}

	return Place{
		City:        city,
		Ward:        ward,
		FullAddress: r.Get("display_name").String(),
		Latitude:    r.Get("lat").Float(),
		Longitude:   r.Get("lon").Float(),
	}
}

func firstNonEmpty(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k).String(); v != "" {
			return v
		}
	}
	return ""
}
