package yale

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oshokin/yale-alarm/internal/logger"
	"github.com/oshokin/yale-alarm/internal/version"
)

const (
	// DefaultBaseURL is the Yale Smart Living API root.
	DefaultBaseURL = "https://mob.yalehomesystem.co.uk/yapi"

	// DefaultTimeout bounds a single API call, token refresh and retry included.
	DefaultTimeout = 5 * time.Second

	// DefaultAreaID is the panel area addressed by mode changes.
	DefaultAreaID = 1

	// apiPrefix is the path segment that separates the API root from the host root.
	apiPrefix = "/yapi"

	tokenPath    = "/o/token/"
	servicesPath = "/services/"
)

// Client talks to the Yale Smart Living cloud API.
//
// A Client is meant for sequential use: it shares one mutable token between
// all calls and does not lock around it. Callers using a Client from several
// goroutines must serialise access themselves.
type Client struct {
	// Panel groups alarm panel operations.
	Panel *PanelService
	// Locks groups door lock operations.
	Locks *LockService

	endpoints   *endpoints
	httpClient  *http.Client
	auth        *Authenticator
	retryPolicy RetryPolicy
	callTimeout time.Duration
	areaID      int
	discovery   bool
	userAgent   string
	limiter     *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. a fake server in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.endpoints.rebase(baseURL)
	}
}

// WithHTTPClient sets the HTTP client used for every request.
// The client's transport is wrapped, the client itself is not modified.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.callTimeout = timeout
		}
	}
}

// WithAreaID selects the panel area addressed by mode changes.
func WithAreaID(areaID int) Option {
	return func(c *Client) {
		if areaID > 0 {
			c.areaID = areaID
		}
	}
}

// WithRetryPolicy replaces the default one-shot refresh-and-retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithRateLimit caps outgoing requests to limit per second with the given burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil

			return
		}

		c.limiter = rate.NewLimiter(limit, max(burst, 1))
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithoutServiceDiscovery keeps the configured API root after login instead
// of switching to the one announced by the services endpoint.
func WithoutServiceDiscovery() Option {
	return func(c *Client) {
		c.discovery = false
	}
}

// NewClient creates a client for the given account. No request is sent
// until the first call or an explicit Login.
func NewClient(credentials Credentials, opts ...Option) (*Client, error) {
	if credentials.Username == "" || credentials.Password == "" {
		return nil, ErrEmptyCredentials
	}

	c := &Client{
		endpoints:   newEndpoints(DefaultBaseURL),
		httpClient:  &http.Client{},
		retryPolicy: DefaultRetryPolicy(),
		callTimeout: DefaultTimeout,
		areaID:      DefaultAreaID,
		discovery:   true,
		userAgent:   version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = c.wrapHTTPClient(c.httpClient)
	c.auth = newAuthenticator(credentials, c.endpoints, c.httpClient)

	if c.discovery {
		c.auth.afterLogin = c.discoverServices
	}

	c.Panel = &PanelService{client: c}
	c.Locks = &LockService{client: c}

	return c, nil
}

// Login authenticates eagerly so bad credentials surface before the first call.
func (c *Client) Login(ctx context.Context) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.auth.Login(ctx)

	return err
}

// Authenticator exposes the token owner, mostly for diagnostics.
func (c *Client) Authenticator() *Authenticator {
	return c.auth
}

// BaseURL returns the API root currently in use.
func (c *Client) BaseURL() string {
	return c.endpoints.root
}

// AreaID returns the panel area addressed by mode changes.
func (c *Client) AreaID() int {
	return c.areaID
}

// wrapHTTPClient returns a shallow copy of hc whose transport adds the
// User-Agent and request id headers, logging and rate limiting.
func (c *Client) wrapHTTPClient(hc *http.Client) *http.Client {
	wrapped := *hc

	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	wrapped.Transport = &apiTransport{
		base:      base,
		userAgent: c.userAgent,
		limiter:   c.limiter,
	}

	return &wrapped
}

// callContext returns a context bounded by the client's call timeout if
// configured, otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// servicesResponse announces the API root assigned to the account.
type servicesResponse struct {
	YAPI string `json:"yapi"`
	Data struct {
		YAPI string `json:"yapi"`
	} `json:"data"`
}

// discoverServices asks the services endpoint for the account's API root.
// Failures keep the current root.
func (c *Client) discoverServices(ctx context.Context, token *Token) {
	status, body, err := c.send(ctx, token, http.MethodGet, c.endpoints.api(servicesPath), nil)
	if err != nil {
		logger.DebugKV(ctx, "Unable to fetch services", "error", err)

		return
	}

	var payload servicesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.DebugKV(ctx, "Unable to decode services", "status", status, "error", err)

		return
	}

	root := payload.YAPI
	if root == "" {
		root = payload.Data.YAPI
	}

	if root == "" {
		logger.Debug(ctx, "Services URL is empty")

		return
	}

	c.endpoints.rebase(root)
	logger.DebugKV(ctx, "Yale API root updated", "base_url", c.endpoints.root)
}

// endpoints resolves API paths against the current API root.
type endpoints struct {
	// root is the API root without a trailing slash, e.g. https://host/yapi.
	root string
}

func newEndpoints(root string) *endpoints {
	e := new(endpoints)
	e.rebase(root)

	return e
}

func (e *endpoints) rebase(root string) {
	e.root = strings.TrimRight(strings.TrimSpace(root), "/")
}

// api resolves a path below the API root.
func (e *endpoints) api(path string) string {
	return e.root + path
}

// host resolves a path below the host root, outside the API prefix.
func (e *endpoints) host(path string) string {
	return strings.TrimSuffix(e.root, apiPrefix) + path
}

// endpoint is a fixed vendor path.
type endpoint struct {
	path string
	// hostRelative places the path outside the API prefix.
	hostRelative bool
}

func (e *endpoints) resolve(ep endpoint) string {
	if ep.hostRelative {
		return e.host(ep.path)
	}

	return e.api(ep.path)
}
