// Package server exposes the store over a read-only HTTP API.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/narourip/narourip/pkg/binder"
	"github.com/narourip/narourip/pkg/chapters"
	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/joblogs"
	"github.com/narourip/narourip/pkg/jobs"
	"github.com/narourip/narourip/pkg/version"
	"github.com/narourip/narourip/pkg/volumes"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := newEcho(db)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(db *bun.DB) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	e.GET("/version", func(c echo.Context) error {
		return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"version": version.Version}))
	})

	worksGroup := e.Group("/works")
	works.RegisterRoutesWithGroup(worksGroup, db)
	chapters.RegisterRoutes(worksGroup, db)
	volumes.RegisterRoutes(worksGroup, db)

	jobsGroup := e.Group("/jobs")
	jobs.RegisterRoutesWithGroup(jobsGroup, db)
	joblogs.RegisterRoutes(jobsGroup, db)

	e.RouteNotFound("/*", notFoundHandler)
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
