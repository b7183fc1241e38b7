package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/narourip/narourip/pkg/chapters"
	"github.com/narourip/narourip/pkg/database"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func titlesCommand() *cli.Command {
	return &cli.Command{
		Name:  "titles",
		Usage: "list stored works",
		Action: withEnv(func(c *cli.Context, e *env) error {
			return printTitles(c.Context, os.Stdout, e.db)
		}),
	}
}

func ranksCommand() *cli.Command {
	return &cli.Command{
		Name:  "ranks",
		Usage: "list ranked works in rank order",
		Action: withEnv(func(c *cli.Context, e *env) error {
			return printRanks(c.Context, os.Stdout, e.db)
		}),
	}
}

func chaptersCommand() *cli.Command {
	return &cli.Command{
		Name:      "chapters",
		Usage:     "list the stored chapters of a work",
		ArgsUsage: "<work id>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("a work id is required")
			}
			return printChapters(c.Context, os.Stdout, e.db, c.Args().First())
		}),
	}
}

func resetTimestampsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-timestamps",
		Usage: "forget stored remote timestamps so the next sync checks every work and chapter",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if err := resetTimestamps(c.Context, e.db); err != nil {
				return err
			}
			e.log.Info("timestamps reset")
			return nil
		}),
	}
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func printTitles(ctx context.Context, out io.Writer, db bun.IDB) error {
	all, err := works.NewService(db).ListWorks(ctx, works.ListWorksOptions{})
	if err != nil {
		return err
	}
	tw := newTable(out)
	for _, w := range all {
		fmt.Fprintf(tw, "%s\t%s\n", w.ID, w.Title)
	}
	return errors.WithStack(tw.Flush())
}

func printRanks(ctx context.Context, out io.Writer, db bun.IDB) error {
	ranked, err := works.NewService(db).ListWorks(ctx, works.ListWorksOptions{Ranked: true})
	if err != nil {
		return err
	}
	tw := newTable(out)
	for _, w := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", *w.Rank, w.ID, w.Title)
	}
	return errors.WithStack(tw.Flush())
}

func printChapters(ctx context.Context, out io.Writer, db bun.IDB, workID string) error {
	list, err := chapters.NewService(db).ListChapters(ctx, chapters.ListChaptersOptions{
		WorkID:         workID,
		WithoutContent: true,
	})
	if err != nil {
		return err
	}
	tw := newTable(out)
	for _, ch := range list {
		updated := "-"
		if ch.RemoteUpdatedAt != nil {
			updated = ch.RemoteUpdatedAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ch.Ordinal, ch.Slug, updated, ch.Title)
	}
	return errors.WithStack(tw.Flush())
}

// resetTimestamps clears work and chapter timestamps together.
func resetTimestamps(ctx context.Context, db bun.IDB) error {
	return database.RunInTx(ctx, db, func(ctx context.Context, tx bun.Tx) error {
		if err := works.NewService(tx).ResetTimestamps(ctx); err != nil {
			return err
		}
		return chapters.NewService(tx).ResetTimestamps(ctx)
	})
}
