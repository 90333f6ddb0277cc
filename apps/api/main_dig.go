package main

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/campusdesk/apps/api/di/dig"
	echoapi "github.com/trezcool/campusdesk/apps/api/echo"
	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/services/jobs"
)

type appParams struct {
	dig.In

	Conf      *core.Config
	Logger    core.Logger
	DBLogger  core.Logger `name:"dbLogger"`
	DB        *sqlx.DB
	Redis     *redis.Client `optional:"true"`
	Server    *echoapi.Server
	Scheduler *jobs.Scheduler
}

func startWithDig() {
	c := dig_container.New()

	must(c.Invoke(func(p appParams) {
		// =========================================================================
		// Initialize App

		p.Logger.Info(fmt.Sprintf("Application initializing : version %q", p.Conf.Build))
		defer p.Logger.Info("Application stopped")

		core.ParseEmailTemplates(p.Conf, p.Logger)

		defer func() {
			if err := p.DB.Close(); err != nil {
				p.DBLogger.Fatal("Failed to close", err)
			}
		}()
		if p.Redis != nil {
			defer func() { _ = p.Redis.Close() }()
		}

		serve(p.Conf, p.Logger, p.Server, p.Scheduler)
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
