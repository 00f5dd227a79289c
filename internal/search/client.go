package search

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Default connection settings.
const (
	// DefaultTimeout bounds a single request including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultSiteURL is sent as Referer and Origin.
	DefaultSiteURL = "https://www.bilibili.com"

	// DefaultAccept and DefaultAcceptLanguage match what the web player sends.
	DefaultAccept         = "application/json, text/plain, */*"
	DefaultAcceptLanguage = "zh-CN,zh;q=0.9"
)

// randSource is the subset of *rand.Rand the package needs.
type randSource interface {
	IntN(n int) int
	Float64() float64
}

// Client is a small HTTP session: it keeps default headers, the caller's
// cookie, cookies set by the server and the current User-Agent across
// requests.
//
// A Client is owned by a single crawl and is not safe for concurrent use.
type Client struct {
	httpClient *http.Client

	// header holds the session headers sent with every request.
	header http.Header

	userAgents []string
	rng        randSource

	timeout   time.Duration
	siteURL   string
	proxyAddr string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCookie sets the raw Cookie header copied from a browser session.
// Format: "name1=value1; name2=value2".
func WithCookie(cookie string) ClientOption {
	return func(c *Client) {
		if cookie = strings.TrimSpace(cookie); cookie != "" {
			c.header.Set("Cookie", cookie)
		}
	}
}

// WithHeaders adds custom session headers. They override the defaults.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.header.Set(k, v)
		}
	}
}

// WithUserAgents replaces the User-Agent pool.
func WithUserAgents(pool []string) ClientOption {
	return func(c *Client) {
		if len(pool) > 0 {
			c.userAgents = pool
		}
	}
}

// WithProxy routes requests through a SOCKS5 proxy at host:port.
func WithProxy(addr string) ClientOption {
	return func(c *Client) {
		c.proxyAddr = addr
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is
// overwritten with the configured timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// withRand injects the random source; tests use it for determinism.
func withRand(r randSource) ClientOption {
	return func(c *Client) {
		c.rng = r
	}
}

// NewClient creates a session with the default browser-like headers and a
// random User-Agent from the pool.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		header:     make(http.Header),
		userAgents: DefaultUserAgents,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), //nolint:gosec // Not security sensitive
		timeout:    DefaultTimeout,
		siteURL:    DefaultSiteURL,
	}

	// Custom headers and cookie are applied on top of the defaults, so the
	// defaults go in first.
	c.header.Set("Accept", DefaultAccept)
	c.header.Set("Accept-Language", DefaultAcceptLanguage)
	c.header.Set("Connection", "keep-alive")

	for _, opt := range opts {
		opt(c)
	}

	if c.header.Get("Referer") == "" {
		c.header.Set("Referer", c.siteURL+"/")
	}
	if c.header.Get("Origin") == "" {
		c.header.Set("Origin", c.siteURL)
	}
	if c.header.Get("User-Agent") == "" {
		c.header.Set("User-Agent", pickUserAgent(c.userAgents, c.rng))
	}

	if c.httpClient == nil {
		hc, err := c.newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	}
	c.httpClient.Timeout = c.timeout

	return c, nil
}

// newHTTPClient builds the default client with a cookie jar and, when
// configured, a SOCKS5 dialer.
func (c *Client) newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if c.proxyAddr != "" {
		if !isValidProxyAddress(c.proxyAddr) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Jar:       jar,
	}, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1-65535.
func isValidProxyAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// Get issues one GET to rawURL with params encoded as the query string.
// The caller must close the response body.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}

	return c.httpClient.Do(req)
}

// UserAgent returns the current User-Agent.
func (c *Client) UserAgent() string {
	return c.header.Get("User-Agent")
}

// RotateUserAgent replaces the session User-Agent with a random pool entry
// and returns it. The new value may equal the old one.
func (c *Client) RotateUserAgent() string {
	ua := pickUserAgent(c.userAgents, c.rng)
	if ua != "" {
		c.header.Set("User-Agent", ua)
	}
	return ua
}
