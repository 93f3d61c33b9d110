package models

import (
	"time"

	"github.com/google/uuid"
)

// XPLedgerEntry is append-only: rows are inserted and never updated or deleted.
type XPLedgerEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:128;not null" json:"reason"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
