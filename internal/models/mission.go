package models

import (
	"time"
)

type MissionStatus string

const (
	MissionInProgress MissionStatus = "IN_PROGRESS"
	MissionComplete   MissionStatus = "COMPLETE"
	MissionClaimed    MissionStatus = "CLAIMED"
)

// MissionProgress is the per-user state of one catalog mission. At most one row
// exists per (user, mission) and Status only ever moves forward.
type MissionProgress struct {
	ID          uint          `gorm:"primaryKey" json:"-"`
	UserID      uint          `gorm:"not null;uniqueIndex:idx_progress_user_mission" json:"user_id"`
	MissionID   string        `gorm:"size:64;not null;uniqueIndex:idx_progress_user_mission" json:"mission_id"`
	Status      MissionStatus `gorm:"size:16;not null" json:"status"`
	Count       int           `gorm:"not null;default:0" json:"count"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time    `json:"claimed_at,omitempty"`
	CreatedAt   time.Time     `json:"-"`
	UpdatedAt   time.Time     `json:"-"`
}

// MissionActivity records one accepted activity signal. The unique index makes
// replaying a signal a no-op.
type MissionActivity struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_activity_signal"`
	MissionID string    `gorm:"size:64;not null;uniqueIndex:idx_activity_signal"`
	SignalID  string    `gorm:"size:128;not null;uniqueIndex:idx_activity_signal"`
	CreatedAt time.Time
}
