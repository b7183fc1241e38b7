// Package export turns stored works into files and reports: HTML pages per
// volume or per chapter, plain-text dumps and character counts. It only
// reads from the store.
package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/narourip/narourip/pkg/chapters"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/fileutils"
	"github.com/narourip/narourip/pkg/htmlutil"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/volumes"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type TextOptions struct {
	// Start is the 1-based position of the first chapter to print.
	Start *int
	// End is the 1-based position of the first chapter not to print.
	End *int
}

type CharCountOptions struct {
	// From and To bound the counted chapter ordinals, inclusive.
	From *int
	To   *int
}

type DumpReport struct {
	Written []string
	// Skipped lists works whose dump is newer than their last remote update.
	Skipped []string
}

type Service struct {
	works    *works.Service
	chapters *chapters.Service
	volumes  *volumes.Service
}

func NewService(db bun.IDB) *Service {
	return &Service{
		works:    works.NewService(db),
		chapters: chapters.NewService(db),
		volumes:  volumes.NewService(db),
	}
}

// ChapterText returns the readable text of stored chapter content.
func ChapterText(content string) string {
	return htmlutil.TextContent(content)
}

// Text writes the work title followed by every chapter in the window, each
// under a ----title---- separator.
func (svc *Service) Text(ctx context.Context, w io.Writer, workID string, opts TextOptions) error {
	work, err := svc.works.RetrieveWork(ctx, works.RetrieveWorkOptions{ID: &workID})
	if err != nil {
		return err
	}
	list, err := svc.chapters.ListChapters(ctx, chapters.ListChaptersOptions{WorkID: workID})
	if err != nil {
		return err
	}

	start, end := 0, len(list)
	if opts.Start != nil {
		start = clamp(*opts.Start-1, 0, len(list))
	}
	if opts.End != nil {
		end = clamp(*opts.End-1, start, len(list))
	}

	if _, err := fmt.Fprintln(w, work.Title); err != nil {
		return errors.WithStack(err)
	}
	for _, ch := range list[start:end] {
		_, err := fmt.Fprintf(w, "\n\n----%s----\n\n\n%s\n", ch.Title, ChapterText(ch.Content))
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// CharCount sums the trimmed line lengths of the chapters' text.
func (svc *Service) CharCount(ctx context.Context, workID string, opts CharCountOptions) (int, error) {
	list, err := svc.chapters.ListChapters(ctx, chapters.ListChaptersOptions{
		WorkID:      workID,
		OrdinalFrom: opts.From,
		OrdinalTo:   opts.To,
	})
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, errcodes.NotFound("Chapter")
	}

	n := 0
	for _, ch := range list {
		n += htmlutil.CharCount(ChapterText(ch.Content))
	}
	return n, nil
}

// DumpAll writes every work's text to dir/<id>.txt. A dump that was written
// after the work's last remote update is left alone.
func (svc *Service) DumpAll(ctx context.Context, dir string) (*DumpReport, error) {
	log := logger.FromContext(ctx)
	report := &DumpReport{}

	all, err := svc.works.ListWorks(ctx, works.ListWorksOptions{})
	if err != nil {
		return nil, err
	}

	for i, work := range all {
		path := filepath.Join(dir, work.ID+".txt")
		if work.RemoteUpdatedAt != nil {
			fresh, err := fileutils.ModifiedAfter(path, *work.RemoteUpdatedAt)
			if err != nil {
				return report, err
			}
			if fresh {
				report.Skipped = append(report.Skipped, work.ID)
				continue
			}
		}

		list, err := svc.chapters.ListChapters(ctx, chapters.ListChaptersOptions{WorkID: work.ID})
		if err != nil {
			return report, err
		}
		var b strings.Builder
		for _, ch := range list {
			b.WriteString(ChapterText(ch.Content))
			b.WriteString("\n\n\n")
		}
		if err := fileutils.WriteFile(path, []byte(b.String())); err != nil {
			return report, err
		}

		report.Written = append(report.Written, work.ID)
		log.Info("dumped work", logger.Data{"work_id": work.ID, "done": i + 1, "total": len(all)})
	}

	if len(report.Skipped) > 0 {
		log.Info("skipped works whose dump is current", logger.Data{"count": len(report.Skipped)})
	}
	return report, nil
}

// DumpNames writes one "id<TAB>rank<TAB>title" line per work, with "x" for
// unranked works.
func (svc *Service) DumpNames(ctx context.Context, w io.Writer) error {
	all, err := svc.works.ListWorks(ctx, works.ListWorksOptions{})
	if err != nil {
		return err
	}
	for _, work := range all {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", work.ID, rankLabel(work), oneLine(work.Title)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func rankLabel(work *models.Work) string {
	if work.Rank == nil {
		return "x"
	}
	return fmt.Sprint(*work.Rank)
}

func oneLine(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
