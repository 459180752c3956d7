package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/services/certificate"
	"github.com/trezcool/coursecertificate/services/completion"
	"github.com/trezcool/coursecertificate/storage/database/inmem"
	"github.com/trezcool/coursecertificate/tests"
)

type env struct {
	svc     *certificate.Service
	certSvc *certsvc.MemoryService
	tracker *completionsvc.MemoryTracker
	task    *certificate.IssueTask
	logger  core.Logger
}

func setup() *env {
	logger := testutil.NewLogger()
	certSvc := certsvc.NewMemoryService()
	tracker := completionsvc.NewMemoryTracker(nil)
	svc := certificate.NewService(inmemdb.NewActivityRepository(inmemdb.Open()), certSvc)
	policy := certificate.NewPolicy(certSvc, false)
	return &env{
		svc:     svc,
		certSvc: certSvc,
		tracker: tracker,
		task:    certificate.NewIssueTask(svc, policy, tracker, logger),
		logger:  logger,
	}
}

func Test_newScheduler(t *testing.T) {
	e := setup()

	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "descriptor", spec: "@every 5m"},
		{name: "standard", spec: "*/10 * * * *"},
		{name: "invalid", spec: "lol", wantErr: true},
		{name: "empty", spec: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := newScheduler(context.Background(), tt.spec, e.task, e.logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, sched.Entries(), 1)
		})
	}
}

func Test_runIssueTask(t *testing.T) {
	e := setup()
	ctx := context.Background()

	act, err := e.svc.Create(ctx, certificate.NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1", AutoSend: true})
	require.NoError(t, err)
	e.tracker.Complete(ctx, "c1", act.ID, "u1", time.Now().Add(time.Minute))
	e.tracker.Complete(ctx, "c1", act.ID, "u2", time.Now().Add(time.Minute))

	// completions in the future are left for a later run
	runIssueTask(ctx, e.task, e.logger)
	n, err := e.certSvc.CountIssues(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Zero(t, n)

	e.tracker.Complete(ctx, "c1", act.ID, "u1", time.Now())
	runIssueTask(ctx, e.task, e.logger)
	n, err = e.certSvc.CountIssues(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	runIssueTask(cctx, e.task, e.logger) // does not panic nor log as an error
}
