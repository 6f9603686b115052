// Package daylight fetches sunrise, sunset and civil twilight times for a
// calendar date from the sunrise-sunset.org API.
//
// All lookups use one fixed reference coordinate rather than the analyzed
// stop's own position: the stops served are clustered around the central
// Swiss lakes, so one reference is close enough for ranking sessions.
// Results are cached in memory per local calendar date for the lifetime of
// the Client.
package daylight

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
	_ "time/tzdata"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// Reference coordinate used for every lookup (Lake Lucerne, central Switzerland)
const (
	ReferenceLatitude  = 47.0136
	ReferenceLongitude = 8.4324
)

const (
	DefaultBaseURL     = "https://api.sunrise-sunset.org"
	DefaultTimezone    = "Europe/Zurich"
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second

	// DateLayout formats cache keys and the API's date parameter
	DateLayout = "2006-01-02"
)

var (
	// ErrFetchFailed is returned once every attempt has failed
	ErrFetchFailed = errors.New("daylight: fetch failed")
	// ErrBadStatus marks a non-2xx response or a non-OK payload status
	ErrBadStatus = errors.New("daylight: bad status")
)

// Coordinate is a WGS84 position
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DefaultReference is the fixed coordinate sun times are requested for
var DefaultReference = Coordinate{Latitude: ReferenceLatitude, Longitude: ReferenceLongitude}

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL     string
	Reference   Coordinate
	Timezone    string
	MaxAttempts int
	Timeout     time.Duration
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Client fetches and caches sun times. Construct once and share.
type Client struct {
	cfg        Config
	loc        *time.Location
	httpClient *http.Client
	cache      *Cache
	group      singleflight.Group
	sleep      Sleeper
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper replaces the backoff sleep, mainly for tests
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithCache shares an existing cache
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a daylight client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Reference == (Coordinate{}) {
		cfg.Reference = DefaultReference
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	c := &Client{
		cfg:        cfg,
		loc:        loc,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      NewCache(),
		sleep:      sleepContext,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("github.com/pfederi/Next-Wave-sub001/internal/daylight"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Location returns the timezone sun times are expressed in
func (c *Client) Location() *time.Location {
	return c.loc
}

// DateKey returns the local calendar date of t, used as cache key
func (c *Client) DateKey(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// SunTimes returns sun times for the local calendar date of date.
// A cached date is served without network access. On a miss the API is
// tried up to MaxAttempts times, waiting 2^attempt seconds between tries.
func (c *Client) SunTimes(ctx context.Context, date time.Time) (waves.SunTimes, error) {
	key := c.DateKey(date)
	if st, ok := c.cache.Get(key); ok {
		return st, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if st, ok := c.cache.Get(key); ok {
			return st, nil
		}
		st, err := c.fetchWithRetry(ctx, key)
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, st)
		return st, nil
	})
	if err != nil {
		return waves.SunTimes{}, err
	}
	return v.(waves.SunTimes), nil
}

// FetchOnce performs a single uncached request for the local date of date
func (c *Client) FetchOnce(ctx context.Context, date time.Time) (waves.SunTimes, error) {
	return c.fetchDate(ctx, c.DateKey(date))
}

func (c *Client) fetchWithRetry(ctx context.Context, key string) (waves.SunTimes, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		st, err := c.fetchDate(ctx, key)
		if err == nil {
			return st, nil
		}
		lastErr = err

		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := time.Duration(1<<attempt) * time.Second
		c.logger.Warn("sun times fetch failed, retrying",
			zap.String("date", key),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			return waves.SunTimes{}, err
		}
	}

	return waves.SunTimes{}, fmt.Errorf("%w after %d attempts: %w", ErrFetchFailed, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) fetchDate(ctx context.Context, key string) (st waves.SunTimes, err error) {
	ctx, span := c.tracer.Start(ctx, "daylight.fetch", trace.WithAttributes(attribute.String("date", key)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint, err := c.requestURL(key)
	if err != nil {
		return waves.SunTimes{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return waves.SunTimes{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return waves.SunTimes{}, fmt.Errorf("failed to fetch sun times: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return waves.SunTimes{}, fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return waves.SunTimes{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if !strings.EqualFold(payload.Status, "ok") {
		return waves.SunTimes{}, fmt.Errorf("%w: payload status %q", ErrBadStatus, payload.Status)
	}

	return payload.Results.toSunTimes(c.loc)
}

func (c *Client) requestURL(key string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u = u.JoinPath("json")

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.cfg.Reference.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(c.cfg.Reference.Longitude, 'f', -1, 64))
	q.Set("date", key)
	q.Set("formatted", "0")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
