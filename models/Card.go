package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CardStatusActive    = "active"
	CardStatusDraft     = "draft"
	CardStatusCompleted = "completed"
)

type Card struct {
	gorm.Model
	OwnerID     uint       `json:"ownerID" gorm:"not null;index"`
	Owner       User       `json:"owner" gorm:"foreignKey:OwnerID"`
	Header      string     `json:"header" gorm:"size:255"`
	Description string     `json:"description" gorm:"size:2048"`
	CityID      *uint      `json:"cityID" gorm:"index"`
	City        *City      `json:"city,omitempty" gorm:"foreignKey:CityID"`
	Limit       uint       `json:"limit" gorm:"not null;default:1"` // max number of roommates
	Deadline    *time.Time `json:"deadline"`
	Status      string     `json:"status" gorm:"size:100;default:active;index"`

	Tags     []CardTag     `json:"tags" gorm:"many2many:card_tag_assignments;"`
	Photos   []CardPhoto   `json:"photos" gorm:"constraint:OnDelete:CASCADE;"`
	Requests []CardRequest `json:"requests,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
}

type CardTag struct {
	gorm.Model
	Name  string `json:"name" gorm:"size:255"`
	Code  string `json:"code" gorm:"size:255"`
	Order uint   `json:"order" gorm:"default:0"`
}

type CardPhoto struct {
	gorm.Model
	CardID uint   `json:"cardID" gorm:"not null;index"`
	Photo  string `json:"photo"` // uploaded image URL
}

// CardSkip marks a card the user chose to bypass in their feed. The whole set
// is cleared once the user runs out of unseen cards.
type CardSkip struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"not null;uniqueIndex:idx_card_skip_user_card"`
	CardID    uint      `json:"cardID" gorm:"not null;uniqueIndex:idx_card_skip_user_card"`
	CreatedAt time.Time `json:"createdAt"`
}
