// Package wb provides a Wildberries seller API client. Every request passes
// through a per-category token bucket, and every failure is reported as an
// *APIError. Asynchronous server jobs are awaited with a Poller.
package wb

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/donaldgifford/wb-seller-tracker/pkg/wb"

// Client defaults.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultUserAgent  = "wb-seller-tracker"
)

// ClientConfig holds the settings a Client is built from.
type ClientConfig struct {
	Token   string
	Timeout time.Duration
	// MaxRetries and RetryDelay are advisory values for callers that
	// implement their own retry policy. The client never retries.
	MaxRetries int
	RetryDelay time.Duration
	Sandbox    bool
	// BaseURL, when set, replaces every category host. Used for tests
	// and the mock server.
	BaseURL string
	// RateLimits overrides entries of DefaultRateLimits.
	RateLimits map[Category]RateLimit
}

// Validate checks the config and returns every problem found.
func (c ClientConfig) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("token is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must be non-negative"))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay must be non-negative"))
	}
	for cat, rl := range c.RateLimits {
		if _, ok := DefaultRateLimits[cat]; !ok {
			errs = append(errs, errors.New("rate limit for unknown category "+string(cat)))
			continue
		}
		if rl.RPM <= 0 || rl.Burst <= 0 {
			errs = append(errs, errors.New("rate limit for "+string(cat)+" must have positive rpm and burst"))
		}
	}
	return errors.Join(errs...)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its transport is used as is.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(cl *Client) {
		cl.observer = o
	}
}

// WithTracerProvider sets the tracer provider. The global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) {
		cl.tracerProvider = tp
	}
}

// WithLimiterOptions passes options to every token bucket the client creates.
func WithLimiterOptions(opts ...TokenBucketOption) Option {
	return func(cl *Client) {
		cl.limiterOpts = append(cl.limiterOpts, opts...)
	}
}

// WithPollerOptions sets options applied to every poller the client's
// services create, before any per-call options.
func WithPollerOptions(opts ...PollerOption) Option {
	return func(cl *Client) {
		cl.pollerOpts = append(cl.pollerOpts, opts...)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// Client is the entry point to the API. Domain services share its
// executor and limiters.
type Client struct {
	cfg            ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	observer       Observer
	tracerProvider trace.TracerProvider
	limiterOpts    []TokenBucketOption
	pollerOpts     []PollerOption
	userAgent      string

	limiters map[Category]*TokenBucket
	exec     *Executor

	Common     *CommonService
	Finance    *FinanceService
	Prices     *PricesService
	Content    *ContentService
	Statistics *StatisticsService
	Marketing  *MarketingService
	Promotions *PromotionsService
	Reports    *ReportsService
}

// NewClient validates cfg and builds a client with one token bucket per category.
func NewClient(cfg ClientConfig, opts ...Option) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:  nopObserver{},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(c.tracerProvider)),
		}
	}

	c.limiters = make(map[Category]*TokenBucket, len(DefaultRateLimits))
	for _, cat := range Categories() {
		rl := c.RateLimit(cat)
		c.limiters[cat] = NewTokenBucket(rl.RPM, rl.Burst, c.limiterOpts...)
	}

	c.exec = &Executor{
		httpClient: c.httpClient,
		token:      cfg.Token,
		baseURL:    c.baseURL,
		limiters:   c.limiters,
		logger:     c.logger,
		observer:   c.observer,
		tracer:     c.tracerProvider.Tracer(tracerName),
		userAgent:  c.userAgent,
	}

	c.Common = &CommonService{client: c}
	c.Finance = &FinanceService{client: c}
	c.Prices = &PricesService{client: c}
	c.Content = &ContentService{client: c}
	c.Statistics = &StatisticsService{client: c}
	c.Marketing = &MarketingService{client: c}
	c.Promotions = &PromotionsService{client: c}
	c.Reports = &ReportsService{client: c}

	return c, nil
}

// Executor returns the shared request executor.
func (c *Client) Executor() *Executor {
	return c.exec
}

// Config returns the client's configuration.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// RateLimit returns the effective limit for cat.
func (c *Client) RateLimit(cat Category) RateLimit {
	if rl, ok := c.cfg.RateLimits[cat]; ok {
		return rl
	}
	return DefaultRateLimits[cat]
}

// Limiter returns the token bucket for cat, or nil for an unknown category.
func (c *Client) Limiter(cat Category) *TokenBucket {
	return c.limiters[cat]
}

// LimiterStates returns the state of every category's limiter.
func (c *Client) LimiterStates() map[Category]LimiterState {
	out := make(map[Category]LimiterState, len(c.limiters))
	for cat, l := range c.limiters {
		out[cat] = l.State()
	}
	return out
}

// NewPoller creates a poller with the client's default poller options
// followed by opts.
func (c *Client) NewPoller(taskID string, check CheckFunc, opts ...PollerOption) *Poller {
	all := make([]PollerOption, 0, len(c.pollerOpts)+len(opts)+1)
	all = append(all, WithPollerTracer(c.tracerProvider.Tracer(tracerName)))
	all = append(all, c.pollerOpts...)
	all = append(all, opts...)
	return NewPoller(taskID, check, all...)
}

func (c *Client) baseURL(cat Category) string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return cat.BaseURL(c.cfg.Sandbox)
}
