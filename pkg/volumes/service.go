package volumes

import (
	"context"
	"time"

	"github.com/narourip/narourip/pkg/database"
	"github.com/narourip/narourip/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// ListVolumes returns a work's volumes in index order.
func (svc *Service) ListVolumes(ctx context.Context, workID string) ([]*models.Volume, error) {
	volumes := []*models.Volume{}
	err := svc.db.
		NewSelect().
		Model(&volumes).
		Where("v.work_id = ?", workID).
		Order("v.volume_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return volumes, nil
}

// ReplaceVolumes makes vols the complete volume list of workID. Volumes are
// upserted by code and any stored volume past the new list is deleted, all
// in one transaction.
func (svc *Service) ReplaceVolumes(ctx context.Context, workID string, vols []*models.Volume) error {
	now := time.Now()
	for i, v := range vols {
		v.WorkID = workID
		v.VolumeIndex = i
		v.VolumeCode = models.VolumeCode(workID, i)
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		v.UpdatedAt = now
	}

	return database.RunInTx(ctx, svc.db, func(ctx context.Context, tx bun.Tx) error {
		if len(vols) > 0 {
			_, err := tx.NewInsert().
				Model(&vols).
				On("CONFLICT (volume_code) DO UPDATE").
				Set("updated_at = EXCLUDED.updated_at").
				Set("work_id = EXCLUDED.work_id").
				Set("volume_index = EXCLUDED.volume_index").
				Set("title = EXCLUDED.title").
				Set("chapter_slugs = EXCLUDED.chapter_slugs").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		_, err := tx.NewDelete().
			Model((*models.Volume)(nil)).
			Where("work_id = ?", workID).
			Where("volume_index >= ?", len(vols)).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
