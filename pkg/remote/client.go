package remote

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/pkg/errors"
)

// Response is a fully buffered GET response.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration
	detector  Detector
}

type Option func(*Client)

// WithDetector replaces the rate-limit detector built from the config.
func WithDetector(d Detector) Option {
	return func(c *Client) {
		c.detector = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{},
		userAgent: cfg.UserAgent,
		timeout:   cfg.ChapterTimeout,
		detector:  StatusOrMarker(cfg.RateLimitStatus, cfg.RateLimitMarker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detector returns the rate-limit predicate used by Fetch.
func (c *Client) Detector() Detector {
	return c.detector
}

// Get performs a single GET bounded by the client's per-request timeout. Any
// status is returned as a Response; only transport failures are errors.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read body of %s", url)
	}

	return &Response{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}

// Fetch is Get plus classification: a rate-limit signal becomes
// errcodes.RateLimited and any other non-200 status a plain error.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.Check(resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) Check(resp *Response) error {
	if c.detector != nil && c.detector.RateLimited(resp.StatusCode, resp.Body) {
		return errcodes.RateLimited(resp.URL)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %d from %s", resp.StatusCode, resp.URL)
	}
	return nil
}

// FetchPage is Fetch for addresses that must serve an HTML document.
func (c *Client) FetchPage(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.CheckPage(resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CheckPage is Check plus content sniffing. An error page served as an image
// or an empty body would otherwise parse as a page with nothing on it. HTML
// and XHTML documents both pass.
func (c *Client) CheckPage(resp *Response) error {
	if err := c.Check(resp); err != nil {
		return err
	}
	if mt := mimetype.Detect(resp.Body); !isPage(mt) {
		return errors.Errorf("expected an html page from %s, got %s", resp.URL, mt.String())
	}
	return nil
}

func isPage(mt *mimetype.MIME) bool {
	return mt.Is("text/html") || mt.Is("application/xhtml+xml")
}
