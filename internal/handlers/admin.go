package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shivemind/chasingCats-sub003/internal/engagement"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"gorm.io/gorm"
)

// AdminHandler serves the role-gated operations: feeding activity signals,
// managing challenge entries and granting bonus XP.
type AdminHandler struct {
	db     *gorm.DB
	engine *engagement.Engine
	admins AdminChecker
	log    *logger.Logger
}

func NewAdminHandler(db *gorm.DB, engine *engagement.Engine, admins AdminChecker, log *logger.Logger) *AdminHandler {
	return &AdminHandler{db: db, engine: engine, admins: admins, log: log.With("component", "admin")}
}

type ProgressBody struct {
	MissionID   string               `json:"mission_id"`
	Status      models.MissionStatus `json:"status"`
	Count       int                  `json:"count"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

type RecordActivityInput struct {
	Body struct {
		UserID    uint   `json:"user_id" minimum:"1" doc:"User the activity belongs to"`
		Event     string `json:"event" minLength:"1" doc:"Activity event, e.g. upload"`
		SignalID  string `json:"signal_id" minLength:"1" maxLength:"128" doc:"Idempotency key of the activity"`
		MissionID string `json:"mission_id,omitempty" doc:"Restrict the signal to one mission"`
	}
}

type RecordActivityOutput struct {
	Body struct {
		Progress []ProgressBody `json:"progress"`
	}
}

func (h *AdminHandler) HandleRecordActivity(ctx context.Context, input *RecordActivityInput) (*RecordActivityOutput, error) {
	if _, err := requireAdmin(ctx, h.admins, h.log); err != nil {
		return nil, err
	}

	signal := engagement.Signal{ID: input.Body.SignalID, Event: input.Body.Event}
	var updated []models.MissionProgress
	if input.Body.MissionID != "" {
		p, err := h.engine.Progress.RecordActivity(ctx, input.Body.UserID, input.Body.MissionID, signal)
		if err != nil {
			return nil, httpError(h.log, "record activity", err)
		}
		updated = append(updated, *p)
	} else {
		var err error
		updated, err = h.engine.Progress.RecordEvent(ctx, input.Body.UserID, signal)
		if err != nil {
			return nil, httpError(h.log, "record event", err)
		}
	}

	res := &RecordActivityOutput{}
	res.Body.Progress = make([]ProgressBody, 0, len(updated))
	for _, p := range updated {
		res.Body.Progress = append(res.Body.Progress, ProgressBody{
			MissionID:   p.MissionID,
			Status:      p.Status,
			Count:       p.Count,
			CompletedAt: p.CompletedAt,
		})
	}
	return res, nil
}

type CreateChallengeInput struct {
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"200"`
	}
}

type CreateChallengeOutput struct {
	Body models.Challenge
}

func (h *AdminHandler) HandleCreateChallenge(ctx context.Context, input *CreateChallengeInput) (*CreateChallengeOutput, error) {
	if _, err := requireAdmin(ctx, h.admins, h.log); err != nil {
		return nil, err
	}

	challenge := models.Challenge{Title: input.Body.Title}
	if err := h.db.WithContext(ctx).Create(&challenge).Error; err != nil {
		return nil, httpError(h.log, "create challenge", err)
	}
	return &CreateChallengeOutput{Body: challenge}, nil
}

type CreateEntryInput struct {
	Body struct {
		ChallengeID uint   `json:"challenge_id" minimum:"1"`
		AuthorID    uint   `json:"author_id" minimum:"1"`
		Title       string `json:"title" maxLength:"200" required:"false"`
	}
}

type CreateEntryOutput struct {
	Body models.ChallengeEntry
}

func (h *AdminHandler) HandleCreateEntry(ctx context.Context, input *CreateEntryInput) (*CreateEntryOutput, error) {
	if _, err := requireAdmin(ctx, h.admins, h.log); err != nil {
		return nil, err
	}

	entry := models.ChallengeEntry{
		ChallengeID: input.Body.ChallengeID,
		AuthorID:    input.Body.AuthorID,
		Title:       input.Body.Title,
	}
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := tx.Select("id").Take(&challenge, input.Body.ChallengeID).Error; err != nil {
			return err
		}
		return tx.Omit("Challenge").Create(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Challenge not found", &huma.ErrorDetail{Message: "challenge_not_found"})
	}
	if err != nil {
		return nil, httpError(h.log, "create entry", err)
	}

	h.log.Info("Entry created", "entry_id", entry.ID, "challenge_id", entry.ChallengeID)
	return &CreateEntryOutput{Body: entry}, nil
}

type DeleteEntryInput struct {
	EntryID uint `path:"entryID"`
}

// HandleDeleteEntry removes the entry's votes and then the entry in one
// transaction.
func (h *AdminHandler) HandleDeleteEntry(ctx context.Context, input *DeleteEntryInput) (*struct{}, error) {
	if _, err := requireAdmin(ctx, h.admins, h.log); err != nil {
		return nil, err
	}

	var removed int64
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ChallengeEntry
		if err := tx.Select("id").Take(&entry, input.EntryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return engagement.ErrEntryNotFound
			}
			return err
		}
		var err error
		if removed, err = h.engine.Votes.DeleteEntryVotes(ctx, tx, entry.ID); err != nil {
			return err
		}
		return tx.Delete(&entry).Error
	})
	if err != nil {
		return nil, httpError(h.log, "delete entry", err)
	}

	h.log.Info("Entry deleted", "entry_id", input.EntryID, "votes_removed", removed)
	return nil, nil
}

type GrantXPInput struct {
	Body struct {
		UserID uint   `json:"user_id" minimum:"1"`
		Amount int64  `json:"amount" doc:"Positive XP amount"`
		Reason string `json:"reason" maxLength:"128"`
	}
}

type GrantXPOutput struct {
	Body struct {
		EntryID    string `json:"entry_id"`
		NewTotalXP int64  `json:"new_total_xp"`
	}
}

func (h *AdminHandler) HandleGrantXP(ctx context.Context, input *GrantXPInput) (*GrantXPOutput, error) {
	if _, err := requireAdmin(ctx, h.admins, h.log); err != nil {
		return nil, err
	}

	entry, err := h.engine.Ledger.Grant(ctx, input.Body.UserID, input.Body.Amount, input.Body.Reason)
	if err != nil {
		return nil, httpError(h.log, "grant xp", err)
	}
	total, err := h.engine.Ledger.TotalXP(ctx, input.Body.UserID)
	if err != nil {
		return nil, httpError(h.log, "grant xp", err)
	}

	res := &GrantXPOutput{}
	res.Body.EntryID = entry.ID.String()
	res.Body.NewTotalXP = total
	return res, nil
}
