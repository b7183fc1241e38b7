// Package ranking reads the site's ranking page into ranked sync seeds.
package ranking

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/narourip/narourip/pkg/syncer"
	"github.com/pkg/errors"
)

const (
	rowSelector    = ".ranking_list .rank_h"
	numberSelector = ".ranking_number"
)

type Source struct {
	remote *remote.Client
	url    string
}

func NewSource(cfg *config.Config, rc *remote.Client) *Source {
	return &Source{remote: rc, url: cfg.RankingURL}
}

// Fetch downloads the ranking page. Unlike chapter and metadata requests it
// is not retried: a failed ranking fetch fails the command.
func (s *Source) Fetch(ctx context.Context) ([]syncer.Seed, error) {
	body, err := s.remote.FetchPage(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// Parse reads every ranking row that has both a rank number and a link.
func Parse(body []byte) ([]syncer.Seed, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var seeds []syncer.Seed
	doc.Find(rowSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Find(numberSelector).First().Text())
		rank, err := strconv.Atoi(strings.TrimSuffix(text, "位"))
		if err != nil {
			return
		}
		href, ok := s.Find("a[href]").First().Attr("href")
		if !ok || syncer.ParseWorkID(href) == "" {
			return
		}
		seeds = append(seeds, syncer.Seed{Ref: href, Rank: &rank})
	})

	return seeds, nil
}
