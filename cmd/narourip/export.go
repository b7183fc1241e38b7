package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/narourip/narourip/pkg/export"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
)

// optionalInts parses up to n trailing integer arguments. Missing ones are
// nil.
func optionalInts(args []string, n int) ([]*int, error) {
	if len(args) > n {
		return nil, errors.Errorf("expected at most %d numbers, got %d", n, len(args))
	}
	out := make([]*int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.Errorf("%q is not a number", a)
		}
		out[i] = &v
	}
	return out, nil
}

func textCommand() *cli.Command {
	return &cli.Command{
		Name:      "text",
		Usage:     "print the text of a work, optionally only chapters start up to but not including end",
		ArgsUsage: "<work id> [start [end]]",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() < 1 {
				return errors.New("a work id is required")
			}
			window, err := optionalInts(c.Args().Tail(), 2)
			if err != nil {
				return err
			}
			return export.NewService(e.db).Text(c.Context, os.Stdout, c.Args().First(), export.TextOptions{
				Start: window[0],
				End:   window[1],
			})
		}),
	}
}

func charCountCommand() *cli.Command {
	return &cli.Command{
		Name:      "charcount",
		Usage:     "count the characters of a work, one chapter, or an inclusive chapter range",
		ArgsUsage: "<work id> [first [last]]",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() < 1 {
				return errors.New("a work id is required")
			}
			bounds, err := optionalInts(c.Args().Tail(), 2)
			if err != nil {
				return err
			}
			// A single chapter number counts just that chapter.
			if bounds[0] != nil && bounds[1] == nil {
				bounds[1] = bounds[0]
			}
			n, err := export.NewService(e.db).CharCount(c.Context, c.Args().First(), export.CharCountOptions{
				From: bounds[0],
				To:   bounds[1],
			})
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		}),
	}
}

func htmlVolumesCommand() *cli.Command {
	return &cli.Command{
		Name:      "html-volumes",
		Usage:     "write one HTML page per volume of a work into the export directory",
		ArgsUsage: "<work id>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("a work id is required")
			}
			paths, err := export.NewService(e.db).HTMLVolumes(c.Context, c.Args().First(), e.cfg.ExportDir)
			e.log.Info("wrote pages", logger.Data{"count": len(paths), "dir": e.cfg.ExportDir})
			return err
		}),
	}
}

func htmlChaptersCommand() *cli.Command {
	return &cli.Command{
		Name:      "html-chapters",
		Usage:     "write one HTML page per chapter of a work into the export directory",
		ArgsUsage: "<work id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-numbers",
				Usage: "leave chapter numbers out of file names",
			},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("a work id is required")
			}
			paths, err := export.NewService(e.db).HTMLChapters(c.Context, c.Args().First(), e.cfg.ExportDir, export.HTMLChaptersOptions{
				NoNumbers: c.Bool("no-numbers"),
			})
			e.log.Info("wrote pages", logger.Data{"count": len(paths), "dir": e.cfg.ExportDir})
			return err
		}),
	}
}

func dumpAllCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump-all",
		Usage: "write the text of every work whose dump is out of date into the dump directory",
		Action: withEnv(func(c *cli.Context, e *env) error {
			report, err := export.NewService(e.db).DumpAll(c.Context, e.cfg.DumpDir)
			if report != nil {
				e.log.Info("dump finished", logger.Data{"written": len(report.Written), "skipped": len(report.Skipped)})
			}
			return err
		}),
	}
}

func dumpNamesCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump-names",
		Usage: "print id, rank and title of every work",
		Action: withEnv(func(c *cli.Context, e *env) error {
			return export.NewService(e.db).DumpNames(c.Context, os.Stdout)
		}),
	}
}
