// Package syncer drives a sync run. Every seeded work goes through the
// metadata precheck, its index page, the staleness filter and the batch
// fetcher, and finally gets its watermark. Only a rate-limited index page or
// a storage error stops the whole run; everything else ends one work in a
// terminal state and the run moves on.
package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/narourip/narourip/pkg/chapters"
	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/database"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/fetcher"
	"github.com/narourip/narourip/pkg/listing"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/novelapi"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/narourip/narourip/pkg/staleness"
	"github.com/narourip/narourip/pkg/volumes"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// Seed is one work to sync. Rank is only used by runs with authoritative
// ranks.
type Seed struct {
	Ref  string
	Rank *int
}

// ParseWorkID extracts the work id from a bare id or a URL containing one.
func ParseWorkID(ref string) string {
	return listing.SlugOf(ref)
}

// SeedsFromIDs builds unranked seeds.
func SeedsFromIDs(ids []string) []Seed {
	seeds := make([]Seed, 0, len(ids))
	for _, id := range ids {
		seeds = append(seeds, Seed{Ref: id})
	}
	return seeds
}

type MetadataSource interface {
	FetchAll(ctx context.Context, ids []string) (*novelapi.Result, error)
}

type ListingSource interface {
	Fetch(ctx context.Context, workID string) (*listing.Listing, error)
}

type ChapterFetcher interface {
	Run(ctx context.Context, tasks []fetcher.Task, sink fetcher.Sink) (*fetcher.Report, error)
}

// ProgressLogger receives the per-work progress lines of a run.
// *joblogs.JobLogger satisfies it.
type ProgressLogger interface {
	Info(msg string, data logger.Data)
	Warn(msg string, data logger.Data)
}

type Options struct {
	// AuthoritativeRanks makes the seed ranks the truth: they are written
	// before the precheck and again with the watermark. A nil or non-positive
	// rank clears the work's rank.
	AuthoritativeRanks bool
	Log                ProgressLogger
}

type Syncer struct {
	db       *bun.DB
	metadata MetadataSource
	listings ListingSource
	chapters ChapterFetcher

	mode        staleness.Mode
	workCheck   bool
	concurrency int
}

type Option func(*Syncer)

func WithMetadataSource(m MetadataSource) Option {
	return func(s *Syncer) {
		s.metadata = m
	}
}

func WithListingSource(l ListingSource) Option {
	return func(s *Syncer) {
		s.listings = l
	}
}

func WithChapterFetcher(f ChapterFetcher) Option {
	return func(s *Syncer) {
		s.chapters = f
	}
}

// New wires a syncer against the remote site described by cfg. All works of
// one syncer share a single throttle, so WorkConcurrency above one never
// exceeds the configured chapter rate.
func New(cfg *config.Config, db *bun.DB, opts ...Option) (*Syncer, error) {
	mode, err := staleness.ParseMode(cfg.ChapterCheck)
	if err != nil {
		return nil, err
	}

	rc := remote.NewClient(cfg)
	s := &Syncer{
		db:          db,
		metadata:    novelapi.NewClient(cfg, rc),
		listings:    listing.NewFetcher(cfg, rc),
		chapters:    fetcher.New(cfg, rc, fetcher.NewThrottleFromConfig(cfg)),
		mode:        mode,
		workCheck:   cfg.WorkTimestampCheck,
		concurrency: max(cfg.WorkConcurrency, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run syncs every seed. The returned report is filled in as far as the run
// got, even when an error is returned.
func (s *Syncer) Run(ctx context.Context, seeds []Seed, opts Options) (*Report, error) {
	progress := newProgress(ctx, opts.Log)
	targets := dedupSeeds(seeds)
	report := &Report{Works: make([]WorkResult, len(targets))}
	for i, t := range targets {
		report.Works[i] = WorkResult{WorkID: t.id, State: StatePending}
	}
	if len(targets) == 0 {
		return report, nil
	}

	if opts.AuthoritativeRanks {
		if err := s.applyRanks(ctx, targets); err != nil {
			return report, err
		}
	}

	ids := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.id
	}
	meta, err := s.metadata.FetchAll(ctx, ids)
	if err != nil {
		return report, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range targets {
		md, _ := meta.Lookup(t.id)
		g.Go(func() error {
			res, err := s.syncWork(gctx, progress, t, md, opts.AuthoritativeRanks)
			report.Works[i] = res
			return err
		})
	}
	err = g.Wait()

	for _, w := range report.Works {
		if w.State == StateDead {
			report.Dead = append(report.Dead, w.WorkID)
		}
	}
	if len(report.Dead) > 0 {
		progress.Warn("works not found remotely", logger.Data{"dead": strings.Join(report.Dead, " ")})
	}
	if err != nil {
		return report, err
	}

	progress.Info("sync finished", report.summary())
	return report, nil
}

type target struct {
	id   string
	rank *int
}

// dedupSeeds resolves seed refs to ids, keeping the first occurrence.
func dedupSeeds(seeds []Seed) []target {
	seen := map[string]struct{}{}
	out := make([]target, 0, len(seeds))
	for _, seed := range seeds {
		id := ParseWorkID(seed.Ref)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		var rank *int
		if seed.Rank != nil && *seed.Rank > 0 {
			r := *seed.Rank
			rank = &r
		}
		out = append(out, target{id: id, rank: rank})
	}
	return out
}

// applyRanks gives every already stored work its seed rank, so works that
// turn out to be up to date still move in the ranking.
func (s *Syncer) applyRanks(ctx context.Context, targets []target) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		svc := works.NewService(tx)
		for _, t := range targets {
			if err := svc.AssignRank(ctx, t.id, t.rank); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Syncer) syncWork(ctx context.Context, progress *progress, t target, md *novelapi.Metadata, authoritative bool) (WorkResult, error) {
	res := WorkResult{WorkID: t.id, State: StatePending}
	data := logger.Data{"work_id": t.id}
	if err := ctx.Err(); err != nil {
		return res, errors.WithStack(err)
	}

	// CHECK_METADATA
	if md == nil {
		res.State = StateDead
		progress.Warn("work not found remotely", data)
		return res, nil
	}

	workSvc := works.NewService(s.db)
	stored, err := workSvc.RetrieveWork(ctx, works.RetrieveWorkOptions{ID: &t.id})
	if err != nil && !errcodes.IsNotFound(err) {
		return res, err
	}
	if stored != nil {
		if err := workSvc.UpdateSummary(ctx, t.id, md.Summary); err != nil {
			return res, err
		}
		if s.workCheck && sameInstant(stored.RemoteUpdatedAt, md.UpdatedAt) {
			res.State = StateSkipped
			res.Reason = ReasonUpToDate
			progress.Info("up to date", data)
			return res, nil
		}
	}

	// CHECK_LISTING
	progress.Info("ripping", data)
	l, err := s.listings.Fetch(ctx, t.id)
	if err != nil {
		if errcodes.IsRateLimited(err) {
			progress.Warn("index page is rate limited, aborting run", data)
			return res, errors.Wrapf(err, "listing of %s", t.id)
		}
		if errcodes.IsNoCoherentPage(err) {
			res.State = StateSkipped
			res.Reason = ReasonNoCoherentPage
			progress.Warn("index page has no title, skipping", data)
			return res, nil
		}
		return res, err
	}
	res.Title = l.Title
	res.Chapters = len(l.Entries)

	if err := s.applyListing(ctx, l, md); err != nil {
		return res, err
	}

	// COMPUTE_DELTA
	chapterSvc := chapters.NewService(s.db)
	local, err := chapterSvc.StoredTimestamps(ctx, t.id)
	if err != nil {
		return res, err
	}
	delta := staleness.Delta(t.id, local, l.Entries, s.mode)
	progress.Info("chapters to download", logger.Data{"work_id": t.id, "count": len(delta), "listed": len(l.Entries)})

	// FETCH_DELTA
	if len(delta) > 0 {
		tasks := make([]fetcher.Task, len(delta))
		for i, e := range delta {
			tasks[i] = fetcher.Task{Entry: e}
		}
		fr, err := s.chapters.Run(ctx, tasks, s.chapterSink(t.id))
		if fr != nil {
			res.Fetched = fr.Fetched
			res.Abandoned = len(fr.Abandoned)
		}
		if err != nil {
			return res, err
		}
	}

	// PERSIST_WATERMARK
	watermark := md.UpdatedAt
	if res.Abandoned > 0 {
		// Leave the work unverified so the next run lists it again.
		watermark = nil
		progress.Warn("some chapters could not be fetched", logger.Data{"work_id": t.id, "abandoned": res.Abandoned})
	}
	err = workSvc.SetWatermark(ctx, works.SetWatermarkOptions{
		WorkID:          t.id,
		RemoteUpdatedAt: watermark,
		AssignRank:      authoritative,
		Rank:            t.rank,
	})
	if err != nil {
		return res, err
	}

	res.State = StateDone
	progress.Info("work synced", logger.Data{"work_id": t.id, "fetched": res.Fetched})
	return res, nil
}

// applyListing writes the listing's work row and volumes in one transaction.
func (s *Syncer) applyListing(ctx context.Context, l *listing.Listing, md *novelapi.Metadata) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		work := &models.Work{ID: l.WorkID, Title: l.Title, Summary: md.Summary}
		err := works.NewService(tx).UpsertWork(ctx, work, works.UpsertWorkOptions{
			Columns: []string{"title", "summary"},
		})
		if err != nil {
			return err
		}

		vols := make([]*models.Volume, 0, len(l.Volumes))
		for _, v := range l.Volumes {
			vols = append(vols, &models.Volume{
				Title:        v.Title,
				ChapterSlugs: models.JoinSlugs(v.Slugs),
			})
		}
		if err := volumes.NewService(tx).ReplaceVolumes(ctx, l.WorkID, vols); err != nil {
			return err
		}

		ordinals := make(map[string]int, len(l.Entries))
		for _, e := range l.Entries {
			ordinals[e.Code(l.WorkID)] = e.Ordinal
		}
		return chapters.NewService(tx).Renumber(ctx, l.WorkID, ordinals)
	})
}

// chapterSink stores one batch of fetched chapters atomically.
func (s *Syncer) chapterSink(workID string) fetcher.Sink {
	return func(ctx context.Context, results []fetcher.Result) error {
		rows := make([]*models.Chapter, 0, len(results))
		for _, r := range results {
			ts := r.Task.UpdatedAt
			rows = append(rows, &models.Chapter{
				WorkID:          workID,
				ChapterCode:     r.Task.Code(workID),
				Slug:            r.Task.Slug,
				Ordinal:         r.Task.Ordinal,
				Title:           r.Task.Title,
				RemoteUpdatedAt: &ts,
				Content:         r.Content,
			})
		}
		return chapters.NewService(s.db).UpsertChapters(ctx, rows)
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}
