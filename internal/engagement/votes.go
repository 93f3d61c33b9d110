package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/metrics"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteResult struct {
	Vote  *models.ChallengeVote
	Tally int64
}

// VoteTally records challenge votes. The unique (entry_id, voter_id) index is
// the only thing standing between a voter and a second vote; there is no
// lookup before the insert.
type VoteTally struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewVoteTally(db *gorm.DB, log *logger.Logger) *VoteTally {
	return &VoteTally{db: db, log: log.With("tracker", "votes"), now: utcNow}
}

func (v *VoteTally) Vote(ctx context.Context, entryID, voterID uint) (*VoteResult, error) {
	result, err := v.vote(ctx, entryID, voterID)
	metrics.RecordVote(Code(err))
	if err != nil {
		return nil, err
	}
	v.log.Info("Vote recorded", "entry_id", entryID, "voter_id", voterID, "tally", result.Tally)
	return result, nil
}

func (v *VoteTally) vote(ctx context.Context, entryID, voterID uint) (*VoteResult, error) {
	if entryID == 0 {
		return nil, ErrMissingEntry
	}

	var result *VoteResult
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := entryExists(tx, entryID); err != nil {
			return err
		}

		vote := &models.ChallengeVote{
			ID:        uuid.New(),
			EntryID:   entryID,
			VoterID:   voterID,
			CreatedAt: v.now(),
		}
		if err := tx.Omit(clause.Associations).Create(vote).Error; err != nil {
			switch {
			case isUniqueViolation(err):
				return ErrAlreadyVoted
			case isForeignKeyViolation(err):
				return ErrEntryNotFound
			}
			return err
		}

		tally, err := countVotes(tx, entryID)
		if err != nil {
			return err
		}
		result = &VoteResult{Vote: vote, Tally: tally}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, storeError("vote", err)
	}
	return result, nil
}

// Tally counts the entry's vote rows.
func (v *VoteTally) Tally(ctx context.Context, entryID uint) (int64, error) {
	if entryID == 0 {
		return 0, ErrMissingEntry
	}
	var tally int64
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := entryExists(tx, entryID); err != nil {
			return err
		}
		var err error
		tally, err = countVotes(tx, entryID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, storeError("tally", err)
	}
	return tally, nil
}

// DeleteEntryVotes removes every vote on entryID through tx. The admin path
// calls it in the same transaction that then deletes the entry itself.
func (v *VoteTally) DeleteEntryVotes(ctx context.Context, tx *gorm.DB, entryID uint) (int64, error) {
	if tx == nil {
		tx = v.db
	}
	res := tx.WithContext(ctx).Where("entry_id = ?", entryID).Delete(&models.ChallengeVote{})
	if res.Error != nil {
		return 0, storeError("delete entry votes", res.Error)
	}
	return res.RowsAffected, nil
}

func entryExists(tx *gorm.DB, entryID uint) error {
	var entry models.ChallengeEntry
	err := tx.Select("id").Where("id = ?", entryID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntryNotFound
	}
	return err
}

func countVotes(tx *gorm.DB, entryID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.ChallengeVote{}).Where("entry_id = ?", entryID).Count(&n).Error
	return n, err
}
