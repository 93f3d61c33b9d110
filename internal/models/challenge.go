package models

import (
	"time"

	"github.com/google/uuid"
)

type Challenge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ChallengeEntry rows are hard-deleted by the admin path, after their votes.
type ChallengeEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"not null;index" json:"challenge_id"`
	Challenge   Challenge `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChallengeVote struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EntryID   uint           `gorm:"not null;uniqueIndex:idx_vote_entry_voter" json:"entry_id"`
	Entry     ChallengeEntry `gorm:"foreignKey:EntryID;constraint:OnDelete:RESTRICT" json:"-"`
	VoterID   uint           `gorm:"not null;uniqueIndex:idx_vote_entry_voter" json:"voter_id"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}
