package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/coursecertificate/apps/di/dig"
	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
	"github.com/trezcool/coursecertificate/fs"
	"github.com/trezcool/coursecertificate/services/completion"
)

func main() {
	c := dig_container.New("worker")

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		db *sqlx.DB,
		bus *event.Bus,
		observer *certificate.Observer,
		task *certificate.IssueTask,
	) {
		logger.Info(fmt.Sprintf("Worker initializing : version %q", conf.Build))

		core.ParseEmailTemplates(appfs.FS, "templates/email", !conf.Debug, logger)
		observer.Register(bus)

		defer func() {
			if err := db.Close(); err != nil {
				logger.Fatal("Failed to close database", err)
			}
		}()
		defer logger.Info("Worker stopped")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// =========================================================================
		// Start the completion consumer

		if len(conf.Kafka.Brokers) > 0 {
			consumer, err := completionsvc.NewConsumer(conf, bus, logger)
			if err != nil {
				logger.Fatal(fmt.Sprintf("kafka consumer: %v", err), err)
			}
			defer func() { _ = consumer.Close() }()

			go func() {
				if err := consumer.Run(ctx); err != nil {
					logger.Error(fmt.Sprintf("kafka consumer stopped: %v", err), err)
					cancel()
				}
			}()
		}

		// =========================================================================
		// Start the issue task scheduler

		sched, err := newScheduler(ctx, conf.Certificate.IssueSchedule, task, logger)
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		sched.Start()
		logger.Info(fmt.Sprintf("issue task scheduled %q", conf.Certificate.IssueSchedule))

		// =========================================================================
		// Shutdown

		<-ctx.Done()
		logger.Info("Start shutdown...")

		// give the running tasks a deadline for completion
		select {
		case <-sched.Stop().Done():
		case <-time.After(conf.Server.ShutdownTimeout):
			logger.Warn("issue task still running at shutdown")
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
