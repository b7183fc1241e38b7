package main

import (
	"context"
	"net"
	"net/http"

	"github.com/narourip/narourip/pkg/server"
	"github.com/narourip/narourip/pkg/version"
	"github.com/narourip/narourip/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "run scheduled syncs and serve the read-only API until stopped",
		Action: withEnv(func(c *cli.Context, e *env) error {
			log := e.log
			log.Info("starting narourip worker", logger.Data{"version": version.Version})

			wrkr, err := worker.New(e.cfg, e.db)
			if err != nil {
				return err
			}

			srv, err := server.New(e.cfg, e.db)
			if err != nil {
				return err
			}

			lc := net.ListenConfig{}
			listener, err := lc.Listen(c.Context, "tcp", srv.Addr)
			if err != nil {
				return errors.Wrap(err, "failed to bind port")
			}

			go func() {
				log.Info("server started", logger.Data{"addr": listener.Addr().String()})
				err := srv.Serve(listener)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Err(err).Fatal("server stopped")
				}
				log.Info("server stopped")
			}()

			wrkr.Start()
			log.Info("worker started", logger.Data{"sync_interval_minutes": e.cfg.SyncIntervalMinutes})

			<-c.Context.Done()
			log.Info("starting graceful shutdown")

			err = srv.Shutdown(context.Background())
			if err != nil {
				log.Err(err).Error("server shutdown error")
			}
			log.Info("server shutdown")

			wrkr.Shutdown()
			log.Info("worker shutdown")
			return nil
		}),
	}
}
