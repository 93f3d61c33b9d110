package database

import (
	"path/filepath"
	"testing"

	"github.com/shivemind/chasingCats-sub003/internal/config"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabasePath:   filepath.Join(t.TempDir(), "connect.db"),
	}
	db, err := Connect(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.ChallengeVote{}, "idx_vote_entry_voter"))
	assert.True(t, db.Migrator().HasIndex(&models.MissionProgress{}, "idx_progress_user_mission"))

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(&config.Config{DatabaseDriver: "oracle"}, logger.Nop())
	assert.Error(t, err)
}

func TestOpenSQLite_MigrateIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
}
