package models

import "gorm.io/gorm"

const (
	CardRequestStatusPending  = "pending"
	CardRequestStatusApproved = "approved"
	CardRequestStatusRejected = "rejected"
)

// CardRequest is a user's application to join a card's capacity.
type CardRequest struct {
	gorm.Model
	UserID          uint   `json:"userID" gorm:"not null;index"`
	User            User   `json:"user" gorm:"foreignKey:UserID"`
	CardID          uint   `json:"cardID" gorm:"not null;index"`
	Card            Card   `json:"card" gorm:"foreignKey:CardID"`
	Status          string `json:"status" gorm:"size:100;default:pending;index"`
	RoommatesNumber uint   `json:"roommatesNumber" gorm:"not null;default:1"`
	CoveringLetter  string `json:"coveringLetter" gorm:"size:2048"`
}

// IsActive reports whether the request still occupies the (user, card) slot.
// Rejected requests are terminal and no longer active.
func (r *CardRequest) IsActive() bool {
	return r.Status == CardRequestStatusPending || r.Status == CardRequestStatusApproved
}
