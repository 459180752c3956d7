package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/services/logger"
	"github.com/trezcool/coursecertificate/storage/database"
)

// NewConfig returns the configuration used by tests: in-memory sqlite, no rollbar.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Course Certificate",
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Name:   ":memory:",
		},
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Certificate: core.CertificateConfig{
			ManageTemplatesURL: "https://lms.test/admin/certificates",
		},
		SecretKey: "test-secret",
	}
}

// NewLogger returns a logger writing nowhere.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
}

// PrepareDB opens a migrated in-memory database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	conf := NewConfig()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB, conf.Database.Engine, "up"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}

func CreateActivity(
	t *testing.T,
	repo certificate.Repository,
	courseID, name, templateID string,
	autoSend bool,
	createdAt ...time.Time,
) certificate.Activity {
	tstamp := time.Now().UTC().Truncate(time.Second)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	act := certificate.Activity{
		CourseID:   courseID,
		Name:       name,
		TemplateID: templateID,
		AutoSend:   autoSend,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if autoSend {
		act.AutoSendSince = tstamp
	}
	act, err := repo.CreateActivity(context.Background(), act)
	if err != nil {
		t.Fatalf("CreateActivity() failed: %v", err)
	}
	return act
}
