package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	echoapi "github.com/trezcool/coursecertificate/apps/api/echo"
	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/services/certificate"
	"github.com/trezcool/coursecertificate/services/completion"
	"github.com/trezcool/coursecertificate/storage/database"
	"github.com/trezcool/coursecertificate/storage/database/sqlx"
	"github.com/trezcool/coursecertificate/tests"
)

type env struct {
	cli     *commandLine
	out     *bytes.Buffer
	certSvc *certsvc.MemoryService
	tracker *completionsvc.MemoryTracker
}

func setup(t *testing.T) *env {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()

	// set up DB & services
	db := testutil.PrepareDB(t)
	certSvc := certsvc.NewMemoryService()
	tracker := completionsvc.NewMemoryTracker(nil)
	svc := certificate.NewService(sqlxrepos.NewActivityRepository(db), certSvc)
	policy := certificate.NewPolicy(certSvc, false)

	// start CLI
	var out bytes.Buffer
	return &env{
		cli: &commandLine{
			conf:   conf,
			db:     db,
			svc:    svc,
			policy: policy,
			task:   certificate.NewIssueTask(svc, policy, tracker, logger),
			out:    &out,
		},
		out:     &out,
		certSvc: certSvc,
		tracker: tracker,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
		return
	}
	if tt.wantErr != nil {
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	} else if tt.wantErrStr != "" {
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	} else {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_run(t *testing.T) {
	e := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, extra: "Usage:"},
		{name: "typo", args: []string{"revok"}, wantErr: errHelp, extra: `did you mean "revoke"?`},
		{name: "typo (migrate)", args: []string{"migrat"}, wantErr: errHelp, extra: `did you mean "migrate"?`},
		{name: "revoke: no args", args: []string{"revoke"}, wantErr: errHelp},
		{name: "autosend: no args", args: []string{"autosend"}, wantErr: errHelp},
		{name: "token: no args", args: []string{"token"}, wantErr: errHelp},
		{name: "migrate: no args", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			e.out.Reset()
			tt.check(t, e.cli.run(args))
			if want, ok := tt.extra.(string); ok {
				assert.Contains(t, e.out.String(), want)
			}
		})
	}
}

func Test_suggest(t *testing.T) {
	assert.Equal(t, []string{"revoke"}, suggest("revok"))
	assert.Equal(t, []string{"token"}, suggest("tokne"))
	assert.Empty(t, suggest("lol"))
}

func Test_commandLine_migrate(t *testing.T) {
	e := setup(t)

	migrateFunc = func(db *sql.DB, engine, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { migrateFunc = database.Migrate }()

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, e.cli.run(args))
		})
	}
}

func Test_commandLine_migrate_database(t *testing.T) {
	e := setup(t)

	require.NoError(t, e.cli.run([]string{"admin", "migrate", "down"}))
	_, err := e.cli.svc.Query(context.Background(), certificate.QueryFilter{})
	assert.Error(t, err, "the table is dropped")

	require.NoError(t, e.cli.run([]string{"admin", "migrate", "up"}))
	_, err = e.cli.svc.Query(context.Background(), certificate.QueryFilter{})
	assert.NoError(t, err)
}

func Test_commandLine_revoke(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	id, err := e.certSvc.Issue(ctx, certificate.NewIssue{TemplateID: "t1", CourseID: "c1", UserID: "u1"})
	require.NoError(t, err)

	type extra struct {
		terminal bool
		answer   string
	}
	tests := []cliTest{
		{name: "not a terminal", args: []string{"revoke", "-issue", id}, wantErr: errNotTerminal},
		{name: "aborted", args: []string{"revoke", "-issue", id}, extra: extra{terminal: true, answer: "n\n"}, wantErr: errAborted},
		{name: "aborted (empty answer)", args: []string{"revoke", "-issue", id}, extra: extra{terminal: true, answer: "\n"}, wantErr: errAborted},
		{name: "confirmed", args: []string{"revoke", "-issue", id}, extra: extra{terminal: true, answer: "Y\n"}},
		{name: "already revoked", args: []string{"revoke", "-issue", id, "-yes"}, wantErr: certificate.ErrIssueNotFound},
	}
	defer func() { isTerminalFunc, readLineFunc = term.IsTerminal, readStdinLine }()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		ext, _ := tt.extra.(extra)
		isTerminalFunc = func(fd int) bool { return ext.terminal }
		readLineFunc = func() (string, error) { return ext.answer, nil }

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, e.cli.run(args))
		})
	}

	n, err := e.certSvc.CountIssues(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func Test_commandLine_autosend(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	act, err := e.cli.svc.Create(ctx, certificate.NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1"})
	require.NoError(t, err)

	tests := []cliTest{
		{name: "not found", args: []string{"autosend", "-activity", "lol", "-yes"}, wantErr: certificate.ErrNotFound},
		{name: "enable", args: []string{"autosend", "-activity", act.ID, "-yes"}, extra: true},
		{name: "disable", args: []string{"autosend", "-activity", act.ID, "-enable=false", "-yes"}, extra: false},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, e.cli.run(args))
			if want, ok := tt.extra.(bool); ok {
				saved, err := e.cli.svc.Get(ctx, act.ID)
				require.NoError(t, err)
				assert.Equal(t, want, saved.AutoSend)
			}
		})
	}
}

func Test_commandLine_issue(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	act, err := e.cli.svc.Create(ctx, certificate.NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1", AutoSend: true})
	require.NoError(t, err)
	e.tracker.Complete(ctx, "c1", act.ID, "u1", act.AutoSendSince.Add(1))

	require.NoError(t, e.cli.run([]string{"admin", "issue"}))
	assert.Contains(t, e.out.String(), "issued: 1\n")

	n, err := e.certSvc.CountIssues(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func Test_commandLine_token(t *testing.T) {
	e := setup(t)

	require.NoError(t, e.cli.run([]string{"admin", "token", "-user", "u1", "-email", "u1@lms.test", "-roles", echoapi.RoleManage + ", " + echoapi.RoleEvents}))

	var claims echoapi.Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(e.out.String()), &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(e.cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, core.Actor{ID: "u1", Email: "u1@lms.test"}, claims.Actor())
	assert.Equal(t, []string{echoapi.RoleManage, echoapi.RoleEvents}, claims.Roles)
	assert.True(t, claims.HasAnyRole(echoapi.RoleEvents))
}
