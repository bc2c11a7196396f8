package models

import "gorm.io/gorm"

// Review is feedback left for a user after living together on a completed card.
type Review struct {
	gorm.Model
	AuthorID     uint   `json:"authorID" gorm:"not null;index"`
	Author       User   `json:"author" gorm:"foreignKey:AuthorID"`
	TargetUserID uint   `json:"targetUserID" gorm:"not null;index"`
	TargetUser   User   `json:"targetUser" gorm:"foreignKey:TargetUserID"`
	Text         string `json:"text" gorm:"size:2048"`
	Points       uint   `json:"points" gorm:"not null;check:points >= 1 AND points <= 5"`
}
