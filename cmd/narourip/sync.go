package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/syncer"
	"github.com/narourip/narourip/pkg/worker"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "sync the given works",
		ArgsUsage: "<work id or url>...",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() == 0 {
				return errors.New("at least one work id or url is required")
			}
			return runSync(c.Context, e, &models.JobSyncData{WorkIDs: c.Args().Slice()})
		}),
	}
}

func updateKnownCommand() *cli.Command {
	return &cli.Command{
		Name:  "update-known",
		Usage: "sync every stored work",
		Action: withEnv(func(c *cli.Context, e *env) error {
			return runSync(c.Context, e, &models.JobSyncData{Known: true})
		}),
	}
}

func rankingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ranking",
		Usage: "sync the works of the ranking list and record their ranks",
		Action: withEnv(func(c *cli.Context, e *env) error {
			return runSync(c.Context, e, &models.JobSyncData{Ranking: true})
		}),
	}
}

func updateAndRankingCommand() *cli.Command {
	return &cli.Command{
		Name:  "update-and-ranking",
		Usage: "sync the ranking list, then every other stored work with its rank cleared",
		Action: withEnv(func(c *cli.Context, e *env) error {
			return runSync(c.Context, e, &models.JobSyncData{Ranking: true, Known: true})
		}),
	}
}

// runSync records the run as a job, runs it in the foreground and prints
// its outcome. A partial report is still printed when the run fails.
func runSync(ctx context.Context, e *env, data *models.JobSyncData) error {
	w, err := worker.New(e.cfg, e.db)
	if err != nil {
		return err
	}

	job, report, err := w.SyncNow(ctx, data)
	if report != nil {
		if perr := printReport(context.WithoutCancel(ctx), os.Stdout, e.db, report); perr != nil {
			e.log.Err(perr).Error("print report error")
		}
	}
	if job != nil {
		fmt.Printf("Job %d\n", job.ID)
	}
	return err
}

// printReport writes the run summary and the dead list, each dead work with
// the title stored for it, if any.
func printReport(ctx context.Context, out io.Writer, db bun.IDB, report *syncer.Report) error {
	fmt.Fprintf(out, "Done: %d  Skipped: %d  Dead: %d  Chapters fetched: %d\n",
		report.Count(syncer.StateDone), report.Count(syncer.StateSkipped), report.Count(syncer.StateDead), report.Fetched())

	if len(report.Dead) == 0 {
		return nil
	}

	stored, err := works.NewService(db).ListWorks(ctx, works.ListWorksOptions{IDs: report.Dead})
	if err != nil {
		return err
	}
	titles := make(map[string]string, len(stored))
	for _, w := range stored {
		titles[w.ID] = w.Title
	}

	fmt.Fprintln(out, "Works not found remotely:")
	for _, id := range report.Dead {
		fmt.Fprintf(out, "  %s\t%s\n", id, titles[id])
	}
	return nil
}
