package models

import (
	"gorm.io/gorm"
)

// User is owned by the identity layer. The engagement engine only reads its ID.
type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex" json:"discord_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}
