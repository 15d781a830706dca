// Package http provides the instrumented HTTP prober used to sample response latency.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"timing-attack/internal/core"
)

// maxBodySize caps how much of a response body is drained per probe
const maxBodySize = 10 * 1024 * 1024 // 10MB

// RequestTiming holds the timestamps of one round trip
type RequestTiming struct {
	Start         time.Time
	DNSStart      time.Time
	DNSDone       time.Time
	ConnectStart  time.Time
	ConnectDone   time.Time
	TLSStart      time.Time
	TLSDone       time.Time
	RequestSent   time.Time
	ResponseStart time.Time
	ResponseDone  time.Time
	End           time.Time
}

// Response is a drained HTTP response plus its timing breakdown
type Response struct {
	StatusCode int
	BodySize   int64
	FinalURL   string

	DNSLookup        time.Duration
	TCPConnection    time.Duration
	TLSHandshake     time.Duration
	ServerProcessing time.Duration
	ContentTransfer  time.Duration
	Total            time.Duration
}

// Client implements core.Prober with detailed timing and control
type Client struct {
	client   *http.Client
	config   *core.AttackConfig
	limiter  *rate.Limiter
	resolver *dnscache.Resolver
	logger   core.Logger
}

// NewClient creates a new instrumented HTTP client
func NewClient(config *core.AttackConfig, logger core.Logger) (*Client, error) {
	c := &Client{
		config: config,
		logger: core.OrNop(logger),
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
	}

	// Resolver latency is not part of what we measure.
	if config.CacheDNS {
		c.resolver = &dnscache.Resolver{}
		transport.DialContext = c.cachedDial(dialer)
	}

	if config.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("failed to configure HTTP/2: %w", err)
		}
	}

	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	c.client = &http.Client{
		Transport: transport,
		Timeout:   config.HTTPTimeout,
	}

	// Configure redirect policy
	if !config.FollowRedirects {
		c.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		c.client.CheckRedirect = c.checkRedirect
	}

	return c, nil
}

// Probe issues one GET to url and measures the round trip, body included.
// The rate limiter is waited on before the clock starts.
func (c *Client) Probe(ctx context.Context, url string) (core.ProbeResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return core.ProbeResult{}, &core.NetworkError{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.ProbeResult{}, &core.NetworkError{URL: url, Err: err}
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, _, err := c.DoWithTiming(ctx, req)
	if err != nil {
		return core.ProbeResult{}, &core.NetworkError{URL: url, Err: err}
	}

	if c.config.FailOnStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return core.ProbeResult{}, &core.NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	if resp.FinalURL != url {
		c.logger.Debugf("[probe] %s redirected to %s", url, resp.FinalURL)
	}
	c.logger.Debugf("[probe] %s status=%d total=%s server=%s", url, resp.StatusCode, resp.Total, resp.ServerProcessing)

	return core.ProbeResult{Elapsed: resp.Total}, nil
}

// DoWithTiming executes an HTTP request with detailed timing
func (c *Client) DoWithTiming(ctx context.Context, req *http.Request) (*Response, *RequestTiming, error) {
	timing := &RequestTiming{}

	trace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			timing.DNSStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			timing.DNSDone = time.Now()
		},
		ConnectStart: func(network, addr string) {
			timing.ConnectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			timing.ConnectDone = time.Now()
		},
		TLSHandshakeStart: func() {
			timing.TLSStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			timing.TLSDone = time.Now()
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			timing.RequestSent = time.Now()
		},
		GotFirstResponseByte: func() {
			timing.ResponseStart = time.Now()
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(ctx, trace))

	timing.Start = time.Now()
	httpResp, err := c.client.Do(req)
	if err != nil {
		timing.End = time.Now()
		return nil, timing, fmt.Errorf("request failed: %w", err)
	}

	size, err := c.drainBody(httpResp)
	timing.ResponseDone = time.Now()
	timing.End = timing.ResponseDone
	if err != nil {
		return nil, timing, fmt.Errorf("failed to read body: %w", err)
	}

	response := &Response{
		StatusCode: httpResp.StatusCode,
		BodySize:   size,
		FinalURL:   httpResp.Request.URL.String(),
		Total:      timing.End.Sub(timing.Start),
	}

	if !timing.DNSStart.IsZero() {
		response.DNSLookup = timing.DNSDone.Sub(timing.DNSStart)
	}
	if !timing.ConnectStart.IsZero() {
		response.TCPConnection = timing.ConnectDone.Sub(timing.ConnectStart)
	}
	if !timing.TLSStart.IsZero() {
		response.TLSHandshake = timing.TLSDone.Sub(timing.TLSStart)
	}
	if !timing.ResponseStart.IsZero() {
		response.ServerProcessing = timing.ResponseStart.Sub(timing.RequestSent)
		response.ContentTransfer = timing.ResponseDone.Sub(timing.ResponseStart)
	}

	return response, timing, nil
}

// cachedDial resolves hosts through the DNS cache and dials the first
// address that accepts a connection
func (c *Client) cachedDial(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := c.resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var conn net.Conn
		for _, ip := range ips {
			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
		}
		if err == nil {
			err = fmt.Errorf("no addresses for %s", host)
		}
		return nil, err
	}
}

// checkRedirect is called for each redirect
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= c.config.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", c.config.MaxRedirects)
	}
	return nil
}

// drainBody reads and discards the response body with a size limit
func (c *Client) drainBody(resp *http.Response) (int64, error) {
	if resp.Body == nil {
		return 0, nil
	}
	defer resp.Body.Close()

	return io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
}
