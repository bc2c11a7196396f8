package models

import (
	"time"

	"gorm.io/gorm"
)

// AuthorizationCode is a short-lived six-digit login code sent to a user's
// phone number or email. The code itself is stored as a bcrypt hash.
type AuthorizationCode struct {
	gorm.Model
	Login          string    `json:"login" gorm:"size:100;index"`
	CodeHash       string    `json:"-"`
	ExpirationDate time.Time `json:"expirationDate"`
	IsUsed         bool      `json:"isUsed" gorm:"default:false"`
}

// IsExpired reports whether the code can no longer be redeemed.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !c.ExpirationDate.After(now)
}
