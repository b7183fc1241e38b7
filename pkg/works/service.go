package works

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

type RetrieveWorkOptions struct {
	ID *string
}

type ListWorksOptions struct {
	Limit  *int
	Offset *int
	IDs    []string
	// Ranked keeps only works holding a rank, ordered by it.
	Ranked bool

	includeTotal bool
}

type UpsertWorkOptions struct {
	// Columns are overwritten when the work already exists.
	Columns []string
}

type SetWatermarkOptions struct {
	WorkID          string
	RemoteUpdatedAt *time.Time
	// AssignRank writes Rank, clearing it from any other holder first.
	// Otherwise the stored rank is left alone.
	AssignRank bool
	Rank       *int
}

type Service struct {
	db bun.IDB
}

// NewService accepts a *bun.DB or a bun.Tx, so the same operations can be
// composed into a caller's transaction.
func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveWork(ctx context.Context, opts RetrieveWorkOptions) (*models.Work, error) {
	work := &models.Work{}

	q := svc.db.
		NewSelect().
		Model(work)

	if opts.ID != nil {
		q = q.Where("w.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Work")
		}
		return nil, errors.WithStack(err)
	}

	return work, nil
}

func (svc *Service) ListWorks(ctx context.Context, opts ListWorksOptions) ([]*models.Work, error) {
	w, _, err := svc.listWorksWithTotal(ctx, opts)
	return w, errors.WithStack(err)
}

func (svc *Service) ListWorksWithTotal(ctx context.Context, opts ListWorksOptions) ([]*models.Work, int, error) {
	opts.includeTotal = true
	return svc.listWorksWithTotal(ctx, opts)
}

func (svc *Service) listWorksWithTotal(ctx context.Context, opts ListWorksOptions) ([]*models.Work, int, error) {
	works := []*models.Work{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&works)

	if opts.Ranked {
		q = q.Where("w.rank IS NOT NULL").Order("w.rank ASC")
	} else {
		q = q.Order("w.id ASC")
	}
	if len(opts.IDs) > 0 {
		q = q.Where("w.id IN (?)", bun.In(opts.IDs))
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return works, total, nil
}

// ListWorkIDs returns the id of every stored work.
func (svc *Service) ListWorkIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := svc.db.
		NewSelect().
		Model((*models.Work)(nil)).
		Column("id").
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

// UpsertWork inserts work, or overwrites opts.Columns of the existing row.
func (svc *Service) UpsertWork(ctx context.Context, work *models.Work, opts UpsertWorkOptions) error {
	now := time.Now()
	if work.CreatedAt.IsZero() {
		work.CreatedAt = now
	}
	work.UpdatedAt = now

	q := svc.db.
		NewInsert().
		Model(work).
		On("CONFLICT (id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at")
	for _, col := range opts.Columns {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}

	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

// UpdateSummary stores the remote summary of an already known work. Unknown
// works are ignored.
func (svc *Service) UpdateSummary(ctx context.Context, workID, summary string) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Work)(nil)).
		Set("summary = ?", summary).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", workID).
		Exec(ctx)
	return errors.WithStack(err)
}

// AssignRank gives rank to workID and takes it away from whichever work held
// it before, in one transaction. A nil rank just clears the work's rank.
func (svc *Service) AssignRank(ctx context.Context, workID string, rank *int) error {
	return database.RunInTx(ctx, svc.db, func(ctx context.Context, tx bun.Tx) error {
		return assignRank(ctx, tx, workID, rank)
	})
}

func assignRank(ctx context.Context, tx bun.Tx, workID string, rank *int) error {
	if rank != nil {
		_, err := tx.NewUpdate().
			Model((*models.Work)(nil)).
			Set("rank = NULL").
			Where("rank = ?", *rank).
			Where("id != ?", workID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	_, err := tx.NewUpdate().
		Model((*models.Work)(nil)).
		Set("rank = ?", rank).
		Where("id = ?", workID).
		Exec(ctx)
	return errors.WithStack(err)
}

// SetWatermark records that every chapter of the work's last listing is
// stored, along with the remote work timestamp and optionally its rank.
func (svc *Service) SetWatermark(ctx context.Context, opts SetWatermarkOptions) error {
	return database.RunInTx(ctx, svc.db, func(ctx context.Context, tx bun.Tx) error {
		if opts.AssignRank {
			if err := assignRank(ctx, tx, opts.WorkID, opts.Rank); err != nil {
				return err
			}
		}

		now := time.Now()
		res, err := tx.NewUpdate().
			Model((*models.Work)(nil)).
			Set("remote_updated_at = ?", opts.RemoteUpdatedAt).
			Set("last_synced_at = ?", now).
			Set("updated_at = ?", now).
			Where("id = ?", opts.WorkID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Work")
		}
		return nil
	})
}

// ResetTimestamps clears every work-level remote timestamp so the next sync
// looks at every listing again.
func (svc *Service) ResetTimestamps(ctx context.Context) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Work)(nil)).
		Set("remote_updated_at = NULL").
		Where("1 = 1").
		Exec(ctx)
	return errors.WithStack(err)
}
