package wiki

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/olgasafonova/mediawiki-gateway/internal/infra"
	"github.com/olgasafonova/mediawiki-gateway/metrics"
)

// maxRedirects bounds redirect chains on GET requests.
const maxRedirects = 10

// rawResponse is a fully read HTTP response.
type rawResponse struct {
	StatusCode int
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
}

// transport sends one API request and reads the reply. It never retries.
type transport struct {
	client  *http.Client
	breaker *infra.CircuitBreaker
	logger  *slog.Logger
}

func newTransport(base *http.Client, timeout time.Duration, logger *slog.Logger) *transport {
	var client http.Client
	if base != nil {
		client = *base
	} else {
		client = http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}
	// Cookies are managed by the gateway and only change on login.
	client.Jar = nil
	client.CheckRedirect = checkRedirect
	return &transport{client: &client, logger: logger}
}

// checkRedirect follows 301, 302 and 307 for GET requests only. Anything
// else is handed back to the caller as the final response.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) == 0 || via[0].Method != http.MethodGet {
		return http.ErrUseLastResponse
	}
	if req.Response != nil {
		switch req.Response.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect:
		default:
			return http.ErrUseLastResponse
		}
	}
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}

// methodFor chooses GET for queries and POST for everything else.
func methodFor(params *Params) string {
	if params.Value("action") == "query" && !params.HasFile() {
		return http.MethodGet
	}
	return http.MethodPost
}

func (t *transport) newRequest(ctx context.Context, endpoint string, params *Params) (*http.Request, error) {
	method := methodFor(params)

	if method == http.MethodGet {
		target := endpoint
		if q := params.Encode(); q != "" {
			sep := "?"
			if strings.Contains(endpoint, "?") {
				sep = "&"
			}
			target += sep + q
		}
		return http.NewRequestWithContext(ctx, method, target, nil)
	}

	if !params.HasFile() {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := params.writeMultipart(mw); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// execute sends params to endpoint with the given headers.
func (t *transport) execute(ctx context.Context, endpoint string, params *Params, header http.Header) (*rawResponse, error) {
	req, err := t.newRequest(ctx, endpoint, params)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return t.do(req)
}

// get fetches an arbitrary URL, used for file downloads.
func (t *transport) get(ctx context.Context, target string, header http.Header) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return t.do(req)
}

func (t *transport) do(req *http.Request) (*rawResponse, error) {
	if t.breaker != nil {
		if err := t.breaker.Allow(); err != nil {
			metrics.CircuitRejections.Inc()
			return nil, &TransportError{Op: req.Method, Err: err}
		}
	}

	t.logger.Debug("Sending API request", "method", req.Method, "url", req.URL.Redacted())

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		metrics.RecordHTTP(req.Method, 0, time.Since(start).Seconds())
		t.recordOutcome(false)
		return nil, &TransportError{Op: req.Method, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	metrics.RecordHTTP(req.Method, resp.StatusCode, time.Since(start).Seconds())
	if err != nil {
		t.recordOutcome(false)
		return nil, &TransportError{Op: req.Method, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	// 503 is the wiki asking us to back off, not a dead server.
	t.recordOutcome(resp.StatusCode < 500 || resp.StatusCode == http.StatusServiceUnavailable)

	t.logger.Debug("Received API response", "status", resp.StatusCode, "bytes", len(body))

	return &rawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
		Body:       body,
	}, nil
}

func (t *transport) recordOutcome(ok bool) {
	if t.breaker == nil {
		return
	}
	if ok {
		t.breaker.RecordSuccess()
	} else {
		t.breaker.RecordFailure()
	}
}

// readBody reads the body, inflating it when the server gzipped it. The
// Accept-Encoding header is set explicitly, so net/http does not do this.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			// Some servers send an empty gzip body on errors
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return io.ReadAll(r)
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
