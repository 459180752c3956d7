package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

var _ cron.Logger = cronLogger{} // interface compliance check

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s %v: %v", msg, keysAndValues, err), err)
}

// newScheduler runs task on spec until ctx is done. Overlapping runs are allowed.
func newScheduler(ctx context.Context, spec string, task *certificate.IssueTask, logger core.Logger) (*cron.Cron, error) {
	sched := cron.New(cron.WithChain(cron.Recover(cronLogger{logger: logger})))
	if _, err := sched.AddFunc(spec, func() { runIssueTask(ctx, task, logger) }); err != nil {
		return nil, core.NewConfigurationError("certificate.issueSchedule", err)
	}
	return sched, nil
}

func runIssueTask(ctx context.Context, task *certificate.IssueTask, logger core.Logger) {
	report, err := task.Run(ctx, time.Now())
	if err != nil {
		if ctx.Err() == nil {
			logger.Error(fmt.Sprintf("issue task: %v", err), err)
		}
		return
	}
	logger.Info(fmt.Sprintf(
		"issue task: %d activities, %d issued, %d already issued, %d skipped, %d failed",
		report.Activities, report.Issued, report.AlreadyIssued, report.Skipped, report.Failed,
	))
}
