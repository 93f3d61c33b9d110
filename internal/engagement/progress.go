package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Signal is one activity event. ID identifies the underlying action (an
// upload id, a vote id, ...) and is what makes replays harmless.
type Signal struct {
	ID    string `json:"id"`
	Event string `json:"event"`
}

func (s Signal) validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return validationError("signal id is required")
	case strings.TrimSpace(s.Event) == "":
		return validationError("signal event is required")
	case len(s.ID) > 128:
		return validationError("signal id is too long")
	}
	return nil
}

type ProgressTracker struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	log     *logger.Logger
	now     func() time.Time
}

func NewProgressTracker(db *gorm.DB, cat *catalog.Catalog, log *logger.Logger) *ProgressTracker {
	return &ProgressTracker{db: db, catalog: cat, log: log.With("tracker", "progress"), now: utcNow}
}

// RecordActivity applies signal to the user's progress on missionID and
// returns the resulting row. A signal ID already seen for this mission
// changes nothing.
func (t *ProgressTracker) RecordActivity(ctx context.Context, userID uint, missionID string, signal Signal) (*models.MissionProgress, error) {
	mission, ok := t.catalog.Mission(missionID)
	if !ok {
		return nil, ErrMissionNotFound
	}
	if err := signal.validate(); err != nil {
		return nil, err
	}
	if signal.Event != mission.Criteria.Event {
		return nil, validationError(fmt.Sprintf("event %q does not count toward mission %q", signal.Event, mission.ID))
	}

	var progress models.MissionProgress
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return t.apply(tx, userID, mission, signal.ID, &progress)
	})
	if err != nil {
		return nil, storeError("record activity", err)
	}
	return &progress, nil
}

// RecordEvent feeds signal to every mission counting its event. Missions are
// independent, so each one is its own transaction.
func (t *ProgressTracker) RecordEvent(ctx context.Context, userID uint, signal Signal) ([]models.MissionProgress, error) {
	if err := signal.validate(); err != nil {
		return nil, err
	}
	missions := t.catalog.ForEvent(signal.Event)
	out := make([]models.MissionProgress, 0, len(missions))
	for _, m := range missions {
		p, err := t.RecordActivity(ctx, userID, m.ID, signal)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (t *ProgressTracker) apply(tx *gorm.DB, userID uint, mission catalog.Mission, signalID string, out *models.MissionProgress) error {
	now := t.now()

	seed := models.MissionProgress{
		UserID:    userID,
		MissionID: mission.ID,
		Status:    models.MissionInProgress,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return err
	}

	activity := models.MissionActivity{
		UserID:    userID,
		MissionID: mission.ID,
		SignalID:  signalID,
		CreatedAt: now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&activity)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		// The increment takes the row lock, so concurrent signals for the same
		// progress row apply one after another and the completion guard below
		// reads the count this transaction just wrote.
		if err := tx.Model(&models.MissionProgress{}).
			Where("user_id = ? AND mission_id = ?", userID, mission.ID).
			Update("count", gorm.Expr("count + 1")).Error; err != nil {
			return err
		}

		done := tx.Model(&models.MissionProgress{}).
			Where("user_id = ? AND mission_id = ? AND status = ? AND count >= ?",
				userID, mission.ID, models.MissionInProgress, mission.Criteria.Target).
			Updates(map[string]interface{}{
				"status":       models.MissionComplete,
				"completed_at": now,
			})
		if done.Error != nil {
			return done.Error
		}
		if done.RowsAffected > 0 {
			t.log.Info("Mission completed", "user_id", userID, "mission_id", mission.ID)
		}
	} else {
		t.log.Debug("Activity replay ignored", "user_id", userID, "mission_id", mission.ID, "signal_id", signalID)
	}

	return tx.Where("user_id = ? AND mission_id = ?", userID, mission.ID).First(out).Error
}

// GetProgress returns one row per catalog mission, in catalog order. Missions
// the user never touched come back as an unsaved IN_PROGRESS row.
func (t *ProgressTracker) GetProgress(ctx context.Context, userID uint) ([]models.MissionProgress, error) {
	var rows []models.MissionProgress
	if err := t.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, storeError("get progress", err)
	}

	byMission := make(map[string]models.MissionProgress, len(rows))
	for _, r := range rows {
		byMission[r.MissionID] = r
	}

	missions := t.catalog.Missions()
	out := make([]models.MissionProgress, 0, len(missions))
	for _, m := range missions {
		if p, ok := byMission[m.ID]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, models.MissionProgress{
			UserID:    userID,
			MissionID: m.ID,
			Status:    models.MissionInProgress,
		})
	}
	return out, nil
}

// Progress returns the stored row for one mission, or ErrMissionNotFound when
// the user has no row for it.
func (t *ProgressTracker) Progress(ctx context.Context, userID uint, missionID string) (*models.MissionProgress, error) {
	var p models.MissionProgress
	err := t.db.WithContext(ctx).Where("user_id = ? AND mission_id = ?", userID, missionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, storeError("get mission progress", err)
	}
	return &p, nil
}
