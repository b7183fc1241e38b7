// Package novelapi reads lightweight per-work metadata from the remote
// site's batch API so unchanged and deleted works can be skipped before any
// page is fetched.
package novelapi

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

type Metadata struct {
	WorkID string
	// UpdatedAt is nil when the API returned no parseable timestamp.
	UpdatedAt *time.Time
	Summary   string
}

type Result struct {
	// Works is keyed by lowercased work id.
	Works map[string]*Metadata
	// Dead holds the requested ids the API did not return, in request order.
	Dead []string
}

// Lookup finds the metadata for id, ignoring case.
func (r *Result) Lookup(id string) (*Metadata, bool) {
	m, ok := r.Works[strings.ToLower(id)]
	return m, ok
}

func (r *Result) merge(other *Result) {
	for k, v := range other.Works {
		r.Works[k] = v
	}
	r.Dead = append(r.Dead, other.Dead...)
}

type Client struct {
	remote        *remote.Client
	baseURL       string
	batchSize     int
	retryDelay    time.Duration
	rateLimitWait time.Duration
}

func NewClient(cfg *config.Config, rc *remote.Client) *Client {
	return &Client{
		remote:        rc,
		baseURL:       cfg.MetadataAPIURL,
		batchSize:     cfg.MetadataBatchSize,
		retryDelay:    cfg.RetryDelay,
		rateLimitWait: cfg.RateLimitWait,
	}
}

type apiWork struct {
	NCode          string `json:"ncode"`
	NovelUpdatedAt string `json:"novelupdated_at"`
	Story          string `json:"story"`
}

// FetchAll splits ids into API-sized batches and merges the results.
func (c *Client) FetchAll(ctx context.Context, ids []string) (*Result, error) {
	result := &Result{Works: map[string]*Metadata{}}
	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))
		batch, err := c.Fetch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		result.merge(batch)
	}
	return result, nil
}

// Fetch requests metadata for one batch of ids. Transient failures are
// retried after a short delay and rate limiting after the configured wait,
// with no attempt cap; only context cancellation ends the loop early.
func (c *Client) Fetch(ctx context.Context, ids []string) (*Result, error) {
	if len(ids) == 0 {
		return &Result{Works: map[string]*Metadata{}}, nil
	}
	if len(ids) > c.batchSize {
		return nil, errors.Errorf("metadata batch of %d exceeds limit of %d", len(ids), c.batchSize)
	}

	log := logger.FromContext(ctx)
	u := c.batchURL(ids)

	for {
		works, err := c.fetchOnce(ctx, u)
		if err == nil {
			return buildResult(ids, works), nil
		}
		if ctx.Err() != nil {
			return nil, errors.WithStack(ctx.Err())
		}

		wait := c.retryDelay
		if errcodes.IsRateLimited(err) {
			wait = c.rateLimitWait
			log.Warn("rate limited by metadata api, waiting", logger.Data{"wait": wait.String()})
		} else {
			log.Err(err).Warn("metadata request failed, retrying")
		}
		if err := remote.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) batchURL(ids []string) string {
	q := url.Values{}
	q.Set("out", "json")
	q.Set("of", "n-nu-s")
	q.Set("ncode", strings.Join(ids, "-"))
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

func (c *Client) fetchOnce(ctx context.Context, u string) ([]apiWork, error) {
	body, err := c.remote.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed metadata response")
	}
	if len(raw) == 0 {
		return nil, errors.New("metadata response has no envelope")
	}

	// The first element is the {"allcount": n} envelope.
	works := make([]apiWork, 0, len(raw)-1)
	for _, r := range raw[1:] {
		var w apiWork
		if err := json.Unmarshal(r, &w); err != nil {
			return nil, errors.Wrap(err, "malformed metadata entry")
		}
		works = append(works, w)
	}
	return works, nil
}

func buildResult(ids []string, works []apiWork) *Result {
	byID := make(map[string]apiWork, len(works))
	for _, w := range works {
		byID[strings.ToLower(w.NCode)] = w
	}

	result := &Result{Works: map[string]*Metadata{}}
	for _, id := range ids {
		key := strings.ToLower(id)
		w, ok := byID[key]
		if !ok {
			result.Dead = append(result.Dead, id)
			continue
		}
		m := &Metadata{WorkID: id, Summary: w.Story}
		if t, ok := remote.FindTimestamp(w.NovelUpdatedAt); ok {
			m.UpdatedAt = &t
		}
		result.Works[key] = m
	}
	return result
}
