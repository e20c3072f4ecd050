package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/palabras/internal/profile"
)

// Config holds configuration for the sync client
type Config struct {
	BaseURL string
	Token   string

	// Timeout bounds one HTTP exchange (default: 10s)
	Timeout time.Duration

	// PushTimeout bounds a background push including retries (default: 30s)
	PushTimeout time.Duration

	// MaxAttempts for retried calls (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 500ms)
	InitialDelay time.Duration

	// MaxConcurrentPushes for the push bulkhead (default: 2)
	MaxConcurrentPushes int

	// RatePerSecond for outgoing calls (default: 5)
	RatePerSecond int

	// HTTPClient overrides the default client
	HTTPClient *http.Client
}

func (c *Config) withDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxConcurrentPushes <= 0 {
		c.MaxConcurrentPushes = 2
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 5
	}
	if c.HTTPClient == nil {
		c.HTTPClient = newHTTPClient(c.Timeout)
	}
}

// Client talks to the sync server through fortify's circuit breaker,
// retry and rate limiter. Background pushes also pass a bulkhead.
type Client struct {
	transport      *transport
	circuitBreaker circuitbreaker.CircuitBreaker[[]byte]
	retrier        retry.Retry[[]byte]
	bulkhead       bulkhead.Bulkhead[[]byte]
	rateLimit      ratelimit.RateLimiter
	pushTimeout    time.Duration

	mu    sync.RWMutex
	token string

	progressLane   pushLane
	navigationLane pushLane
	wg             sync.WaitGroup
}

var _ profile.Syncer = (*Client)(nil)

// New creates a sync client
func New(cfg Config) *Client {
	cfg.withDefaults()

	c := &Client{
		transport:   &transport{baseURL: cfg.BaseURL, httpClient: cfg.HTTPClient},
		token:       cfg.Token,
		pushTimeout: cfg.PushTimeout,

		progressLane:   pushLane{what: "progress"},
		navigationLane: pushLane{what: "navigation"},
	}

	c.circuitBreaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("sync circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	c.retrier = retry.New[[]byte](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})

	c.bulkhead = bulkhead.New[[]byte](bulkhead.Config{
		MaxConcurrent: cfg.MaxConcurrentPushes,
		MaxQueue:      cfg.MaxConcurrentPushes * 4,
		QueueTimeout:  cfg.PushTimeout,
	})

	c.rateLimit = ratelimit.New(&ratelimit.Config{
		Rate:     cfg.RatePerSecond,
		Burst:    cfg.RatePerSecond * 2,
		Interval: time.Second,
	})

	return c
}

// SetToken replaces the bearer token used for later calls
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// call runs one exchange under rate limit, circuit breaker and retry
func (c *Client) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	if !c.rateLimit.Allow(ctx, "sync") {
		return nil, ErrRateLimited
	}

	token := c.currentToken()
	operation := func(ctx context.Context) ([]byte, error) {
		return c.transport.do(ctx, method, path, token, body)
	}

	return c.circuitBreaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return c.retrier.Do(ctx, operation)
	})
}

type pushFunc func(ctx context.Context) ([]byte, error)

// pushLane sends pushes of one kind one at a time. A push queued while
// another is in flight replaces any push still waiting, so the server
// always receives the newest state last.
type pushLane struct {
	what string

	mu      sync.Mutex
	pending pushFunc
	ctx     context.Context
	running bool
}

// background queues fn on lane and runs the lane detached from the
// caller. Failures are logged and dropped.
func (c *Client) background(ctx context.Context, lane *pushLane, fn pushFunc) {
	lane.mu.Lock()
	lane.pending, lane.ctx = fn, context.WithoutCancel(ctx)
	if lane.running {
		lane.mu.Unlock()
		slog.Debug("sync push coalesced", "what", lane.what)
		return
	}
	lane.running = true
	lane.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			lane.mu.Lock()
			fn, ctx := lane.pending, lane.ctx
			lane.pending, lane.ctx = nil, nil
			if fn == nil {
				lane.running = false
				lane.mu.Unlock()
				return
			}
			lane.mu.Unlock()
			c.push(ctx, lane.what, fn)
		}
	}()
}

func (c *Client) push(ctx context.Context, what string, fn pushFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()

	if _, err := c.bulkhead.Execute(ctx, fn); err != nil {
		slog.Warn("sync push failed", "what", what, "error", err)
		return
	}
	slog.Debug("sync push complete", "what", what)
}

// Health checks the server is reachable
func (c *Client) Health(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, "/health", nil)
	return err
}

type progressEnvelope struct {
	Data *profile.Document `json:"data"`
}

// SaveProgress uploads a progress document and waits for the answer
func (c *Client) SaveProgress(ctx context.Context, doc *profile.Document) error {
	_, err := c.call(ctx, http.MethodPost, "/progress", progressEnvelope{Data: doc})
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// PushProgress uploads a document in the background. Pushes arrive in
// order; one still waiting when a newer one comes in is dropped.
func (c *Client) PushProgress(ctx context.Context, doc *profile.Document) {
	if c.currentToken() == "" {
		return
	}
	c.background(ctx, &c.progressLane, func(ctx context.Context) ([]byte, error) {
		return nil, c.SaveProgress(ctx, doc)
	})
}

// PullProgress downloads the stored document. An empty store returns
// ErrNoRemoteData.
func (c *Client) PullProgress(ctx context.Context) (*profile.Document, error) {
	data, err := c.call(ctx, http.MethodGet, "/progress", nil)
	if err != nil {
		return nil, fmt.Errorf("pull progress: %w", err)
	}
	if isEmptyObject(data) {
		return nil, ErrNoRemoteData
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, ErrNoRemoteData
	}
	return profile.Decode(env.Data)
}

// SaveNavigation uploads the navigation state and waits for the answer
func (c *Client) SaveNavigation(ctx context.Context, nav NavigationState) error {
	if _, err := c.call(ctx, http.MethodPost, "/navigation-state", nav); err != nil {
		return fmt.Errorf("save navigation: %w", err)
	}
	return nil
}

// PushNavigation uploads the navigation state in the background
func (c *Client) PushNavigation(ctx context.Context, nav NavigationState) {
	if c.currentToken() == "" {
		return
	}
	c.background(ctx, &c.navigationLane, func(ctx context.Context) ([]byte, error) {
		return nil, c.SaveNavigation(ctx, nav)
	})
}

// PullNavigation downloads the navigation state
func (c *Client) PullNavigation(ctx context.Context) (*NavigationState, error) {
	data, err := c.call(ctx, http.MethodGet, "/navigation-state", nil)
	if err != nil {
		return nil, fmt.Errorf("pull navigation: %w", err)
	}
	if isEmptyObject(data) {
		return nil, ErrNoRemoteData
	}
	var nav NavigationState
	if err := json.Unmarshal(data, &nav); err != nil {
		return nil, fmt.Errorf("decode navigation: %w", err)
	}
	return &nav, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account on the server
func (c *Client) Register(ctx context.Context, email, password string) (*Account, error) {
	data, err := c.call(ctx, http.MethodPost, "/auth/register", credentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &acct, nil
}

// Login exchanges credentials for a token and starts using it
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	data, err := c.call(ctx, http.MethodPost, "/auth/login", credentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	c.SetToken(tok.AccessToken)
	return &tok, nil
}

// Me returns the account the token belongs to
func (c *Client) Me(ctx context.Context) (*Account, error) {
	data, err := c.call(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &acct, nil
}

// Wait blocks until background pushes have finished
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close waits for pending pushes and releases the rate limiter
func (c *Client) Close() error {
	c.wg.Wait()
	return c.rateLimit.Close()
}
