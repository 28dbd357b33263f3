package dashapi

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const maxErrorBody = 4096

// Client talks to the DAIVERP backend
type Client struct {
	Cli     *http.Client
	BaseURL string

	// UserAgent is sent with every request when set
	UserAgent string
}

type Options struct {
	Timeout  time.Duration
	Insecure bool
}

// New builds a client for baseURL. Insecure skips certificate verification,
// the backend commonly runs with a self-signed certificate.
func New(baseURL string, opts Options) *Client {
	tr := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		IdleConnTimeout: 60 * time.Second,
	}
	if opts.Insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	return &Client{
		Cli: &http.Client{
			Transport: tr,
			Timeout:   opts.Timeout,
		},
		BaseURL: SanitizeURL(baseURL),
	}
}

// SanitizeURL drops trailing slashes and defaults to https
func SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, "/")
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return req, nil
}

// do sends req and returns the body of a 2xx response
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	res, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	return body, nil
}

// send performs req and checks the status, leaving the body open
func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	slog.Debug("request", "op", op, "method", req.Method, "url", req.URL.String(), "id", req.Header.Get("X-Request-ID"))

	res, err := c.Cli.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &Error{
			Kind:   KindStatus,
			Op:     op,
			Status: res.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(snippet))),
		}
	}

	return res, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, &Error{Kind: KindInput, Op: op, Err: err}
	}
	return c.do(op, req)
}
