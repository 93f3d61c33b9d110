package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/metrics"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"gorm.io/gorm"
)

type ClaimResult struct {
	MissionID  string
	XPGranted  int64
	NewTotalXP int64
	Entry      *models.XPLedgerEntry
}

// ClaimProcessor turns COMPLETE progress into CLAIMED plus an XP grant.
type ClaimProcessor struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	ledger  *Ledger
	log     *logger.Logger
	now     func() time.Time
}

func NewClaimProcessor(db *gorm.DB, cat *catalog.Catalog, ledger *Ledger, log *logger.Logger) *ClaimProcessor {
	return &ClaimProcessor{db: db, catalog: cat, ledger: ledger, log: log.With("tracker", "claims"), now: utcNow}
}

// Claim grants the mission's reward exactly once per (user, mission).
//
// The status flip is a single UPDATE guarded by status = COMPLETE. Only the
// caller whose UPDATE matched a row appends the ledger entry, and both writes
// commit in the same transaction. Losers of a race see the row already
// CLAIMED and get ErrAlreadyClaimed. Retrying after an unconfirmed attempt is
// safe for the same reason.
func (c *ClaimProcessor) Claim(ctx context.Context, userID uint, missionID string) (*ClaimResult, error) {
	result, err := c.claim(ctx, userID, missionID)
	metrics.RecordClaim(Code(err))
	if err != nil {
		return nil, err
	}
	metrics.AddXPGranted(result.XPGranted)
	c.log.Info("Mission claimed", "user_id", userID, "mission_id", missionID, "xp", result.XPGranted, "total_xp", result.NewTotalXP)
	return result, nil
}

func (c *ClaimProcessor) claim(ctx context.Context, userID uint, missionID string) (*ClaimResult, error) {
	mission, ok := c.catalog.Mission(missionID)
	if !ok {
		return nil, ErrMissionNotFound
	}

	var result *ClaimResult
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flip := tx.Model(&models.MissionProgress{}).
			Where("user_id = ? AND mission_id = ? AND status = ?", userID, mission.ID, models.MissionComplete).
			Updates(map[string]interface{}{
				"status":     models.MissionClaimed,
				"claimed_at": c.now(),
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return c.rejection(tx, userID, mission.ID)
		}

		entry, err := c.ledger.grant(tx, userID, mission.XPReward, mission.ID)
		if err != nil {
			return err
		}
		total, err := totalXP(tx, userID)
		if err != nil {
			return err
		}

		result = &ClaimResult{
			MissionID:  mission.ID,
			XPGranted:  entry.Amount,
			NewTotalXP: total,
			Entry:      entry,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, storeError("claim mission", err)
	}
	return result, nil
}

// rejection explains why the guarded update matched nothing. It only reads;
// the transaction is rolled back by the returned error.
func (c *ClaimProcessor) rejection(tx *gorm.DB, userID uint, missionID string) error {
	var p models.MissionProgress
	err := tx.Select("status").Where("user_id = ? AND mission_id = ?", userID, missionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMissionNotFound
	}
	if err != nil {
		return err
	}

	switch p.Status {
	case models.MissionClaimed:
		return ErrAlreadyClaimed
	case models.MissionInProgress:
		return ErrNotYetEligible
	default:
		return fmt.Errorf("mission %q has unexpected status %q", missionID, p.Status)
	}
}
