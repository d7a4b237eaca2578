package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the free BigDataCloud client-side reverse geocoding endpoint.
const DefaultBaseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

const (
	defaultTimeout  = 5 * time.Second
	defaultRPS      = 2
	cacheTTL        = 24 * time.Hour
	cacheCleanup    = time.Hour
	cacheKeyDecimal = 4
)

// Client wraps the reverse geocoding API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	group      singleflight.Group
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new reverse geocoding client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), defaultRPS),
		cache:      cache.New(cacheTTL, cacheCleanup),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "geocode"))
	return c
}

// Place is a resolved location.
type Place struct {
	CityName    string
	Country     string
	CountryCode string
	Emoji       string
}

// ReverseGeocode resolves a coordinate into a city. A response without a city
// or locality fails with ErrNoCityAtLocation; everything else that goes wrong
// fails with ErrTransport.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (Place, error) {
	if !finite(lat) || !finite(lng) {
		return Place{}, ErrInvalidCoordinate
	}

	key := cacheKey(lat, lng)
	if cached, found := c.cache.Get(key); found {
		c.logger.DebugContext(ctx, "cache hit", slog.String("key", key))
		return cached.(Place), nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Shared by every caller of key, so no single caller may cancel it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		place, err := c.fetch(fctx, lat, lng)
		if err != nil {
			return Place{}, err
		}
		c.cache.Set(key, place, cache.DefaultExpiration)
		return place, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Place{}, transportError(lat, lng, ctx.Err())
	case res = <-ch:
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		c.logger.WarnContext(ctx, "reverse geocode failed",
			slog.Float64("lat", lat),
			slog.Float64("lng", lng),
			slog.Any("error", err))
		return Place{}, err
	}

	place := v.(Place)
	c.logger.DebugContext(ctx, "reverse geocode resolved",
		slog.String("city", place.CityName),
		slog.String("country_code", place.CountryCode),
		slog.Bool("shared", shared))
	return place, nil
}

func (c *Client) fetch(ctx context.Context, lat, lng float64) (Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Place{}, transportError(lat, lng, fmt.Errorf("rate limit wait: %w", err))
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Place{}, transportError(lat, lng, fmt.Errorf("request creation failed: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, transportError(lat, lng, fmt.Errorf("network error: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Place{}, transportError(lat, lng, fmt.Errorf("API error: status %d", resp.StatusCode))
	}

	var result reverseGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Place{}, transportError(lat, lng, fmt.Errorf("JSON decode error: %w", err))
	}

	cityName := strings.TrimSpace(result.City)
	if cityName == "" {
		cityName = strings.TrimSpace(result.Locality)
	}
	if cityName == "" {
		return Place{}, &Error{Kind: ErrNoCityAtLocation, Lat: lat, Lng: lng}
	}

	emoji, err := ConvertToEmoji(result.CountryCode)
	if err != nil {
		return Place{}, transportError(lat, lng, err)
	}

	return Place{
		CityName:    cityName,
		Country:     result.CountryName,
		CountryCode: strings.ToUpper(result.CountryCode),
		Emoji:       emoji,
	}, nil
}

func (c *Client) fetchTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return defaultTimeout
}

func transportError(lat, lng float64, err error) error {
	return &Error{Kind: ErrTransport, Lat: lat, Lng: lng, Err: err}
}

func cacheKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', cacheKeyDecimal, 64) + "," + strconv.FormatFloat(lng, 'f', cacheKeyDecimal, 64)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// API response types

type reverseGeocodeResponse struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city"`
	Locality    string  `json:"locality"`
	CountryName string  `json:"countryName"`
	CountryCode string  `json:"countryCode"`
}
