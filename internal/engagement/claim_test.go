package engagement

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shivemind/chasingCats-sub003/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestClaim_FirstUploadScenario(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	const u1 = uint(1)

	_, err := engine.Ledger.Grant(ctx, u1, 120, "seed")
	require.NoError(t, err)
	seedProgress(t, db, u1, "first-upload", models.MissionComplete)

	res, err := engine.Claims.Claim(ctx, u1, "first-upload")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.XPGranted)
	assert.Equal(t, int64(170), res.NewTotalXP)
	assert.Equal(t, "first-upload", res.Entry.Reason)

	p, err := engine.Progress.Progress(ctx, u1, "first-upload")
	require.NoError(t, err)
	assert.Equal(t, models.MissionClaimed, p.Status)
	assert.NotNil(t, p.ClaimedAt)

	_, err = engine.Claims.Claim(ctx, u1, "first-upload")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.ErrorIs(t, err, ErrConflict)

	total, err := engine.Ledger.TotalXP(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, int64(170), total)
	assert.Equal(t, int64(1), ledgerEntries(t, db, u1, "first-upload"))
}

func TestClaim_ConcurrentDuplicatesPayOnce(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	const (
		user = uint(7)
		n    = 16
	)
	seedProgress(t, db, user, "three-uploads", models.MissionComplete)

	var wins, conflicts, other atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := engine.Claims.Claim(ctx, user, "three-uploads")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyClaimed):
				conflicts.Add(1)
			default:
				other.Add(1)
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
	assert.Zero(t, other.Load())
	assert.Equal(t, int64(1), ledgerEntries(t, db, user, "three-uploads"))

	total, err := engine.Ledger.TotalXP(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(120), total)
}

func TestClaim_Rejections(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()

	t.Run("NotYetEligible", func(t *testing.T) {
		seedProgress(t, db, 2, "three-uploads", models.MissionInProgress)

		_, err := engine.Claims.Claim(ctx, 2, "three-uploads")
		assert.ErrorIs(t, err, ErrNotYetEligible)
		assert.Zero(t, ledgerEntries(t, db, 2, "three-uploads"))

		p, err := engine.Progress.Progress(ctx, 2, "three-uploads")
		require.NoError(t, err)
		assert.Equal(t, models.MissionInProgress, p.Status)
	})

	t.Run("MissionNotInCatalog", func(t *testing.T) {
		_, err := engine.Claims.Claim(ctx, 2, "no-such-mission")
		assert.ErrorIs(t, err, ErrMissionNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NoProgressRow", func(t *testing.T) {
		_, err := engine.Claims.Claim(ctx, 3, "first-upload")
		assert.ErrorIs(t, err, ErrMissionNotFound)
		assert.Zero(t, ledgerEntries(t, db, 3, "first-upload"))
	})

	t.Run("OtherUsersProgressDoesNotCount", func(t *testing.T) {
		seedProgress(t, db, 4, "first-vote", models.MissionComplete)

		_, err := engine.Claims.Claim(ctx, 5, "first-vote")
		assert.ErrorIs(t, err, ErrMissionNotFound)

		res, err := engine.Claims.Claim(ctx, 4, "first-vote")
		require.NoError(t, err)
		assert.Equal(t, int64(25), res.NewTotalXP)
	})
}

func TestClaim_AfterActivity(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Progress.RecordActivity(ctx, 9, "first-upload", Signal{ID: "upload-1", Event: "upload"})
	require.NoError(t, err)

	res, err := engine.Claims.Claim(ctx, 9, "first-upload")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.NewTotalXP)

	// More uploads after the claim must not reopen the mission.
	p, err := engine.Progress.RecordActivity(ctx, 9, "first-upload", Signal{ID: "upload-2", Event: "upload"})
	require.NoError(t, err)
	assert.Equal(t, models.MissionClaimed, p.Status)
	assert.Equal(t, 2, p.Count)

	_, err = engine.Claims.Claim(ctx, 9, "first-upload")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestClaim_CancelledContextIsTransient(t *testing.T) {
	engine, db := newTestEngine(t)
	seedProgress(t, db, 11, "first-upload", models.MissionComplete)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Claims.Claim(ctx, 11, "first-upload")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)

	// The retry finds the mission still COMPLETE and proceeds normally.
	res, err := engine.Claims.Claim(context.Background(), 11, "first-upload")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.XPGranted)
}
