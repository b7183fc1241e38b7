package chapters

import (
	"context"
	"database/sql"
	"time"

	"github.com/narourip/narourip/pkg/database"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveChapterOptions struct {
	WorkID      *string
	Ordinal     *int
	ChapterCode *string
}

type ListChaptersOptions struct {
	WorkID string
	// OrdinalFrom and OrdinalTo bound the ordinal range, both inclusive.
	OrdinalFrom *int
	OrdinalTo   *int
	// WithoutContent skips loading chapter bodies.
	WithoutContent bool
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db: db}
}

func (svc *Service) RetrieveChapter(ctx context.Context, opts RetrieveChapterOptions) (*models.Chapter, error) {
	chapter := &models.Chapter{}

	q := svc.db.
		NewSelect().
		Model(chapter)

	if opts.WorkID != nil {
		q = q.Where("ch.work_id = ?", *opts.WorkID)
	}
	if opts.Ordinal != nil {
		q = q.Where("ch.ordinal = ?", *opts.Ordinal)
	}
	if opts.ChapterCode != nil {
		q = q.Where("ch.chapter_code = ?", *opts.ChapterCode)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Chapter")
		}
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

// ListChapters returns a work's chapters ordered by ordinal.
func (svc *Service) ListChapters(ctx context.Context, opts ListChaptersOptions) ([]*models.Chapter, error) {
	chapters := []*models.Chapter{}

	q := svc.db.
		NewSelect().
		Model(&chapters).
		Where("ch.work_id = ?", opts.WorkID).
		Order("ch.ordinal ASC")

	if opts.WithoutContent {
		q = q.ExcludeColumn("content")
	}
	if opts.OrdinalFrom != nil {
		q = q.Where("ch.ordinal >= ?", *opts.OrdinalFrom)
	}
	if opts.OrdinalTo != nil {
		q = q.Where("ch.ordinal <= ?", *opts.OrdinalTo)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapters, nil
}

func (svc *Service) CountChapters(ctx context.Context, workID string) (int, error) {
	count, err := svc.db.
		NewSelect().
		Model((*models.Chapter)(nil)).
		Where("work_id = ?", workID).
		Count(ctx)
	return count, errors.WithStack(err)
}

// StoredTimestamps maps every stored chapter code of workID to its remote
// timestamp, which is nil once reset.
func (svc *Service) StoredTimestamps(ctx context.Context, workID string) (map[string]*time.Time, error) {
	var rows []struct {
		ChapterCode     string     `bun:"chapter_code"`
		RemoteUpdatedAt *time.Time `bun:"remote_updated_at"`
	}
	err := svc.db.
		NewSelect().
		Model((*models.Chapter)(nil)).
		Column("chapter_code", "remote_updated_at").
		Where("work_id = ?", workID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make(map[string]*time.Time, len(rows))
	for _, r := range rows {
		out[r.ChapterCode] = r.RemoteUpdatedAt
	}
	return out, nil
}

// UpsertChapters writes chapters in a single transaction. A chapter whose
// code already exists has every non-key field replaced.
func (svc *Service) UpsertChapters(ctx context.Context, chapters []*models.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}

	now := time.Now()
	for _, ch := range chapters {
		if ch.CreatedAt.IsZero() {
			ch.CreatedAt = now
		}
		ch.UpdatedAt = now
		if ch.ChapterCode == "" {
			ch.ChapterCode = models.ChapterCode(ch.WorkID, ch.Slug)
		}
	}

	return database.RunInTx(ctx, svc.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&chapters).
			On("CONFLICT (chapter_code) DO UPDATE").
			Set("updated_at = EXCLUDED.updated_at").
			Set("work_id = EXCLUDED.work_id").
			Set("slug = EXCLUDED.slug").
			Set("ordinal = EXCLUDED.ordinal").
			Set("title = EXCLUDED.title").
			Set("remote_updated_at = EXCLUDED.remote_updated_at").
			Set("content = EXCLUDED.content").
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// Renumber moves stored chapters of workID to the ordinal the latest listing
// gives their code. Codes that are not stored are ignored.
func (svc *Service) Renumber(ctx context.Context, workID string, ordinals map[string]int) error {
	if len(ordinals) == 0 {
		return nil
	}
	return database.RunInTx(ctx, svc.db, func(ctx context.Context, tx bun.Tx) error {
		for code, ordinal := range ordinals {
			_, err := tx.NewUpdate().
				Model((*models.Chapter)(nil)).
				Set("ordinal = ?", ordinal).
				Where("work_id = ?", workID).
				Where("chapter_code = ?", code).
				Where("ordinal != ?", ordinal).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
}

// ResetTimestamps clears every chapter's remote timestamp, forcing the next
// sync to fetch every chapter body again.
func (svc *Service) ResetTimestamps(ctx context.Context) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Chapter)(nil)).
		Set("remote_updated_at = NULL").
		Where("1 = 1").
		Exec(ctx)
	return errors.WithStack(err)
}
