package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core"
)

func TestPostgresDSN(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        EnginePostgres,
		Host:          "db",
		Port:          "5432",
		Name:          "coursecertificate",
		User:          "app",
		Password:      "pwd",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}}

	assert.Equal(t, "postgres://app:pwd@db:5432/coursecertificate?sslmode=disable&timezone=utc", postgresDSN(conf.Database.Name, false, conf))
	assert.Equal(t, "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc", postgresDSN("postgres", true, conf))
}

func TestOpen_unsupportedEngine(t *testing.T) {
	_, err := Open(&core.Config{Database: core.DatabaseConfig{Engine: "oracle"}})
	assert.True(t, core.IsConfigurationError(err))
}

func TestMigrate_sqlite(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{Engine: EngineSQLite, Name: ":memory:"}}
	db, err := Open(conf)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, Migrate(db.DB, conf.Database.Engine, "up"))
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM certificate_activity"))
	assert.Zero(t, n)

	require.NoError(t, Migrate(db.DB, conf.Database.Engine, "down"))
	assert.Error(t, db.Get(&n, "SELECT COUNT(*) FROM certificate_activity"))
}
