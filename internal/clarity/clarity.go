// Package clarity is a client for the ClarityHire REST API.
package clarity

import (
	"net/http"
	"strings"
	"time"

	"github.com/clarityhire/clarity/internal/session"
	"go.uber.org/zap"
)

const (
	DefaultAPIURL    = "http://localhost:8000/api/v1"
	DefaultUserAgent = "clarityhire/clarity-cli"
	defaultTimeout   = 10 * time.Second
	// Max value for list endpoints per page.
	perPage = 100
	// Upper bound on pages fetched for a single listing.
	maxPages = 50
)

type Client struct {
	APIURL    string
	UserAgent string
	// HTTPClient carries authenticated calls through the session guard.
	HTTPClient *http.Client

	// public is used for login and registration, which must not trip the guard.
	public  *http.Client
	session *session.Session
	logger  *zap.Logger
}

type Option func(*options)

type options struct {
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua = strings.TrimSpace(ua); ua != "" {
			o.userAgent = ua
		}
	}
}

// WithTransport replaces the underlying transport shared by both http clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		if rt != nil {
			o.transport = rt
		}
	}
}

func New(apiURL string, s *session.Session, logger *zap.Logger, opts ...Option) *Client {
	o := &options{
		timeout:   defaultTimeout,
		userAgent: DefaultUserAgent,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &Client{
		APIURL:    apiURL,
		UserAgent: o.userAgent,
		HTTPClient: &http.Client{
			Timeout:   o.timeout,
			Transport: session.NewTransport(o.transport, s, o.userAgent, logger),
		},
		public: &http.Client{
			Timeout:   o.timeout,
			Transport: &headerTransport{base: o.transport, userAgent: o.userAgent},
		},
		session: s,
		logger:  logger,
	}
}

func (c *Client) Session() *session.Session {
	return c.session
}
