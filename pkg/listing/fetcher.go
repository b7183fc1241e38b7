package listing

import (
	"context"
	"strings"
	"time"

	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type Fetcher struct {
	remote     *remote.Client
	baseURL    string
	retryDelay time.Duration
}

func NewFetcher(cfg *config.Config, rc *remote.Client) *Fetcher {
	return &Fetcher{
		remote:     rc,
		baseURL:    strings.TrimRight(cfg.SiteBaseURL, "/"),
		retryDelay: cfg.RetryDelay,
	}
}

// WorkURL is the index page address of workID.
func (f *Fetcher) WorkURL(workID string) string {
	return f.baseURL + "/" + workID + "/"
}

// Fetch downloads and parses the index page of workID. Transport failures
// and unexpected statuses are retried until ctx is done. A rate-limit signal
// is returned as errcodes.RateLimited without retrying, since a throttled
// page must never be parsed as a listing.
func (f *Fetcher) Fetch(ctx context.Context, workID string) (*Listing, error) {
	log := logger.FromContext(ctx)
	pageURL := f.WorkURL(workID)

	for {
		body, err := f.remote.FetchPage(ctx, pageURL)
		if err == nil {
			return Parse(workID, pageURL, body)
		}
		if errcodes.IsRateLimited(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.WithStack(ctx.Err())
		}

		log.Err(err).Warn("index page request failed, retrying", logger.Data{"work_id": workID})
		if err := remote.Sleep(ctx, f.retryDelay); err != nil {
			return nil, err
		}
	}
}
