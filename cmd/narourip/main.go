package main

import (
	"context"
	"os"

	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/database"
	"github.com/narourip/narourip/pkg/migrations"
	"github.com/narourip/narourip/pkg/version"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:        "narourip",
		Usage:       "keep a local copy of syosetu works up to date",
		Description: "Syncs works and their chapters into a local database and exports them as HTML or text.",
		Version:     version.Version,
		Commands: []*cli.Command{
			syncCommand(),
			updateKnownCommand(),
			rankingCommand(),
			updateAndRankingCommand(),
			titlesCommand(),
			ranksCommand(),
			chaptersCommand(),
			textCommand(),
			charCountCommand(),
			htmlVolumesCommand(),
			htmlChaptersCommand(),
			dumpAllCommand(),
			dumpNamesCommand(),
			resetTimestampsCommand(),
			workerCommand(),
		},
	}

	ctx, cancel := context.WithCancel(log.WithContext(context.Background()))
	defer cancel()

	// Stop between chapters on SIGINT/SIGTERM. Whatever was fetched so far is
	// already stored.
	graceful := signals.Setup()
	go func() {
		<-graceful
		log.Info("stopping")
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Err(err).Fatal("command error")
	}
}

// env is what every command needs: the config and a migrated database.
type env struct {
	cfg *config.Config
	db  *bun.DB
	log logger.Logger
}

func setup(c *cli.Context) (*env, error) {
	log := logger.FromContext(c.Context)

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	group, err := migrations.BringUpToDate(c.Context, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if group.ID != 0 {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	return &env{cfg: cfg, db: db, log: log}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.log.Err(err).Error("database close error")
	}
}

// withEnv wraps a command action with setup and teardown.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(c, e)
	}
}
