package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shivemind/chasingCats-sub003/internal/auth"
	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/database"
	"github.com/shivemind/chasingCats-sub003/internal/engagement"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAdmins map[uint]bool

func (f fakeAdmins) IsAdmin(_ context.Context, userID uint) (bool, error) {
	return f[userID], nil
}

func newTestEngine(t *testing.T) (*engagement.Engine, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cat, err := catalog.New([]catalog.Mission{
		{ID: "first-upload", Title: "First upload", XPReward: 50, Criteria: catalog.Criteria{Event: "upload", Target: 1}},
		{ID: "first-vote", Title: "First vote", XPReward: 25, Criteria: catalog.Criteria{Event: "challenge_vote", Target: 1}},
	}, []int64{0, 100, 250})
	require.NoError(t, err)

	return engagement.New(db, cat, logger.Nop()), db
}

func asUser(userID uint) context.Context {
	return context.WithValue(context.Background(), auth.UserIDKey, userID)
}

// requireStatus asserts err is a huma error with the given status and, when
// code is set, the given failure code in its first detail.
func requireStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var model *huma.ErrorModel
	require.True(t, errors.As(err, &model), "expected huma error, got %v", err)
	require.Equal(t, status, model.Status, model.Detail)
	if code != "" {
		require.NotEmpty(t, model.Errors)
		require.Equal(t, code, model.Errors[0].Message)
	}
}
