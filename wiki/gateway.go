package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/olgasafonova/mediawiki-gateway/internal/infra"
	"github.com/olgasafonova/mediawiki-gateway/metrics"
	"github.com/olgasafonova/mediawiki-gateway/tracing"
)

// Sleeper waits between retries. It returns early with an error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting to retry: %w", ctx.Err())
	}
}

// Gateway is a session with one MediaWiki API endpoint. It holds the cookie
// jar filled by Login and is not safe for concurrent use.
type Gateway struct {
	config    *Config
	logger    *slog.Logger
	transport *transport
	headers   http.Header
	cookies   map[string]string
	sleep     Sleeper
	now       func() time.Time

	httpClient *http.Client
	breaker    *infra.CircuitBreaker
	siteCache  *infra.Cache[*Element]
	siteTTL    time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the HTTP client used for requests. Its cookie jar and
// redirect policy are replaced.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCircuitBreaker makes the transport fail fast while cb is open.
func WithCircuitBreaker(cb *infra.CircuitBreaker) Option {
	return func(g *Gateway) {
		g.breaker = cb
	}
}

// WithSiteCache answers siteinfo queries (namespaces, extensions, general
// info) from cache for ttl. The cache may be shared between gateways.
func WithSiteCache(cache *infra.Cache[*Element], ttl time.Duration) Option {
	return func(g *Gateway) {
		g.siteCache = cache
		g.siteTTL = ttl
	}
}

// WithSleeper replaces the function used to wait between retries.
func WithSleeper(s Sleeper) Option {
	return func(g *Gateway) {
		if s != nil {
			g.sleep = s
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(g *Gateway) {
		g.headers.Set(key, value)
	}
}

// New creates a gateway for the API at url with default settings.
func New(url string, opts ...Option) *Gateway {
	return NewGateway(DefaultConfig(url), nil, opts...)
}

// NewGateway creates a gateway from config. A nil logger discards output.
func NewGateway(config *Config, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := *config
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}

	g := &Gateway{
		config:  &cfg,
		logger:  logger,
		headers: http.Header{},
		cookies: make(map[string]string),
		sleep:   sleepContext,
		now:     time.Now,
	}
	g.headers.Set("User-Agent", cfg.UserAgentHeader())
	g.headers.Set("Accept-Encoding", "gzip")

	for _, opt := range opts {
		opt(g)
	}

	g.transport = newTransport(g.httpClient, cfg.Timeout, g.logger)
	g.transport.breaker = g.breaker
	return g
}

// URL returns the API endpoint.
func (g *Gateway) URL() string {
	return g.config.BaseURL
}

// Config returns a copy of the effective configuration.
func (g *Gateway) Config() Config {
	return *g.config
}

// Cookies returns a copy of the session cookies.
func (g *Gateway) Cookies() map[string]string {
	out := make(map[string]string, len(g.cookies))
	for k, v := range g.cookies {
		out[k] = v
	}
	return out
}

// Headers returns a copy of the headers sent with every request.
func (g *Gateway) Headers() http.Header {
	return g.requestHeader()
}

func (g *Gateway) requestHeader() http.Header {
	h := g.headers.Clone()
	if len(g.cookies) > 0 {
		names := make([]string, 0, len(g.cookies))
		for name := range g.cookies {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, name+"="+g.cookies[name])
		}
		h.Set("Cookie", strings.Join(pairs, "; "))
	}
	return h
}

func (g *Gateway) updateCookies(cookies []*http.Cookie) {
	for _, c := range cookies {
		g.cookies[c.Name] = c.Value
	}
}

// SendRequest sends arbitrary parameters to the API and returns the parsed
// response. format and maxlag are always set by the gateway.
func (g *Gateway) SendRequest(ctx context.Context, params *Params) (*Element, error) {
	doc, _, err := g.makeAPIRequest(ctx, params, nil)
	return doc, err
}

// requestState is carried across attempts of one logical call.
type requestState struct {
	action   string
	params   *Params
	attempt  int
	warnings []string
}

// makeAPIRequest runs params through the retry and login handshake loop.
// When sel is set and the response has a query-continue element, the
// selected continuation value is returned as well.
func (g *Gateway) makeAPIRequest(ctx context.Context, params *Params, sel Selector) (*Element, string, error) {
	st := &requestState{
		action:  params.Value("action"),
		params:  params.Clone(),
		attempt: 1,
	}

	ctx, span := tracing.StartSpan(ctx, "mediawiki."+st.action)
	defer span.End()
	tracing.AddWikiAttributes(span, st.action, st.params.Value("titles"))

	start := time.Now()
	doc, cont, err := g.run(ctx, st, sel)

	tracing.AddRetryAttributes(span, st.attempt, len(st.warnings))
	tracing.RecordError(span, err)
	metrics.RecordAPICall(st.action, time.Since(start).Seconds(), err == nil, errorCode(err))
	if IsAuthError(err) {
		metrics.AuthFailures.WithLabelValues(st.action).Inc()
	}
	return doc, cont, err
}

func (g *Gateway) run(ctx context.Context, st *requestState, sel Selector) (*Element, string, error) {
	for {
		st.params.Set("format", "xml")
		st.params.SetInt("maxlag", g.config.MaxLag)

		resp, err := g.transport.execute(ctx, g.config.BaseURL, st.params, g.requestHeader())
		if err != nil {
			return nil, "", err
		}

		if resp.StatusCode == http.StatusServiceUnavailable {
			msg := fmt.Sprintf("503 Service Unavailable: %s.", strings.TrimSpace(string(resp.Body)))
			if err := g.retry(ctx, st, metrics.RetryHTTP503, msg, retryAfter(resp.Header, g.now())); err != nil {
				return nil, "", err
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, "", &TransportError{Op: st.action, StatusCode: resp.StatusCode, Body: string(resp.Body), Err: fmt.Errorf("bad response")}
		}

		doc, err := parseResponse(resp.Body)
		if err != nil {
			return nil, "", err
		}

		if e := doc.Child("error"); e != nil {
			code, info := e.AttrValue("code"), e.AttrValue("info")
			if code == "maxlag" {
				msg := fmt.Sprintf("Maxlag exceeded: %s.", info)
				if err := g.retry(ctx, st, metrics.RetryMaxlag, msg, retryAfter(resp.Header, g.now())); err != nil {
					return nil, "", err
				}
				continue
			}
			return nil, "", &APIError{Code: code, Info: info}
		}

		if w := doc.Child("warnings"); w != nil {
			var texts []string
			for _, c := range w.Children {
				texts = append(texts, strings.TrimSpace(c.InnerText()))
			}
			if len(texts) == 0 {
				texts = append(texts, strings.TrimSpace(w.Text))
			}
			if err := g.warning(st, "API warning: "+strings.Join(texts, ", ")); err != nil {
				return nil, "", err
			}
		}

		switch st.action {
		case "login", "createaccount":
			again, err := g.handshake(st, doc, resp)
			if err != nil {
				return nil, "", err
			}
			if again {
				continue
			}
		}

		if sel != nil && doc.Child("query-continue") != nil {
			if v, ok := sel.Select(doc); ok {
				return doc, v, nil
			}
		}
		return doc, "", nil
	}
}

// handshake inspects a login or createaccount result. It reports whether the
// request must be sent again with the token the wiki asked for.
func (g *Gateway) handshake(st *requestState, doc *Element, resp *rawResponse) (bool, error) {
	result := doc.Child(st.action)
	if result == nil {
		return false, &AuthError{Action: st.action, Reason: "no " + st.action + " element in response"}
	}
	outcome := result.AttrValue("result")

	switch strings.ToLower(outcome) {
	case "success":
		g.updateCookies(resp.Cookies)
		return false, nil
	case "needtoken":
		token := result.AttrValue("token")
		if token == "" {
			return false, &AuthError{Action: st.action, Reason: "NeedToken without a token"}
		}
		// The token is bound to the session cookie set by this response.
		g.updateCookies(resp.Cookies)
		field := "token"
		if st.action == "login" {
			field = "lgtoken"
		}
		st.params.Set(field, token)
		g.logger.Debug("Repeating request with token", "action", st.action)
		return true, nil
	default:
		reason := outcome
		if msg := result.AttrValue("message"); msg != "" {
			reason += ": " + msg
		} else if r := result.AttrValue("reason"); r != "" {
			reason += ": " + r
		}
		return false, &AuthError{Action: st.action, Reason: reason}
	}
}

// retry records a retryable warning and sleeps, or gives up when the budget
// is spent.
func (g *Gateway) retry(ctx context.Context, st *requestState, reason, msg string, after time.Duration) error {
	st.warnings = append(st.warnings, msg)
	if st.attempt >= g.config.RetryCount {
		return &RetriesExceededError{Attempts: st.attempt, Warnings: append([]string(nil), st.warnings...)}
	}

	delay := g.config.RetryDelay
	if after > delay {
		delay = after
	}
	g.logger.Warn(msg+" Retrying", "action", st.action, "attempt", st.attempt, "max_attempts", g.config.RetryCount, "delay", delay)
	metrics.RecordRetry(st.action, reason)
	st.attempt++
	return g.sleep(ctx, delay)
}

// warning raises msg as an APIError unless warnings are ignored.
func (g *Gateway) warning(st *requestState, msg string) error {
	if st != nil {
		st.warnings = append(st.warnings, msg)
	}
	if !g.config.IgnoreWarnings {
		return &APIError{Code: "warning", Info: msg}
	}
	metrics.Warnings.Inc()
	g.logger.Warn(msg)
	return nil
}

// validPage reports whether page exists. Invalid titles raise a warning.
func (g *Gateway) validPage(page *Element) (bool, error) {
	if page == nil || page.HasAttr("missing") {
		return false, nil
	}
	if page.HasAttr("invalid") {
		if err := g.warning(nil, fmt.Sprintf("Invalid title '%s'", page.AttrValue("title"))); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
