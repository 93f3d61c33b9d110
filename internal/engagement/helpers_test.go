package engagement

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/database"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestEngine opens a file-backed SQLite store so that concurrent callers
// share one database.
func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db, testCatalog(t), logger.Nop()), db
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Mission{
		{ID: "first-upload", Title: "First upload", XPReward: 50, Criteria: catalog.Criteria{Event: "upload", Target: 1}},
		{ID: "three-uploads", Title: "Three uploads", XPReward: 120, Criteria: catalog.Criteria{Event: "upload", Target: 3}},
		{ID: "first-vote", Title: "First vote", XPReward: 25, Criteria: catalog.Criteria{Event: "challenge_vote", Target: 1}},
	}, []int64{0, 100, 250, 500})
	require.NoError(t, err)
	return c
}

func seedProgress(t *testing.T, db *gorm.DB, userID uint, missionID string, status models.MissionStatus) {
	t.Helper()
	require.NoError(t, db.Create(&models.MissionProgress{
		UserID:    userID,
		MissionID: missionID,
		Status:    status,
	}).Error)
}

func seedEntry(t *testing.T, db *gorm.DB, authorID uint) models.ChallengeEntry {
	t.Helper()
	challenge := models.Challenge{Title: "Best nap spot"}
	require.NoError(t, db.Create(&challenge).Error)
	entry := models.ChallengeEntry{ChallengeID: challenge.ID, AuthorID: authorID, Title: "Sunny window"}
	require.NoError(t, db.Omit("Challenge").Create(&entry).Error)
	return entry
}

func seedVotes(t *testing.T, db *gorm.DB, entryID uint, voters ...uint) {
	t.Helper()
	for _, voter := range voters {
		require.NoError(t, db.Omit("Entry").Create(&models.ChallengeVote{
			ID:      uuid.New(),
			EntryID: entryID,
			VoterID: voter,
		}).Error)
	}
}

func ledgerEntries(t *testing.T, db *gorm.DB, userID uint, reason string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.XPLedgerEntry{}).
		Where("user_id = ? AND reason = ?", userID, reason).
		Count(&n).Error)
	return n
}
