package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/coursecertificate/apps/di/dig"
	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/fs"
)

func main() {
	c := dig_container.New("admin")

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		db *sqlx.DB,
		svc *certificate.Service,
		policy *certificate.Policy,
		task *certificate.IssueTask,
	) {
		defer func() { _ = db.Close() }()

		core.ParseEmailTemplates(appfs.FS, "templates/email", !conf.Debug, logger)

		// start CLI
		cli := commandLine{
			conf:   conf,
			db:     db,
			svc:    svc,
			policy: policy,
			task:   task,
			out:    os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Error("admin: "+err.Error(), err)
			}
			_ = db.Close()
			os.Exit(1)
		}
	})
	if err != nil {
		log.Fatal(err)
	}
}
