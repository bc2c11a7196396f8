package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	UserStatusLookingFor          = "looking_for"
	UserStatusNotLookingForAnyone = "not_looking_for_anyone"

	GenderMale   = "male"
	GenderFemale = "female"
)

type User struct {
	gorm.Model
	PhoneNumber string     `json:"phoneNumber" gorm:"uniqueIndex"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName" gorm:"size:150"`
	LastName    string     `json:"lastName" gorm:"size:150"`
	Patronymic  string     `json:"patronymic" gorm:"size:150"`
	Dob         *time.Time `json:"dob"`
	Gender      string     `json:"gender" gorm:"size:6"`
	Status      string     `json:"status" gorm:"size:100;default:looking_for"`
	AboutMe     string     `json:"aboutMe" gorm:"size:2048"`
	AvatarURL   string     `json:"avatarURL"`

	// Set when the user accepts processing of personal data; a user without it
	// is not fully registered and cannot use the core endpoints.
	ConsentAt *time.Time `json:"consentAt"`

	SocialLinks []UserSocialLink `json:"socialLinks"`
	Cards       []Card           `json:"cards,omitempty" gorm:"foreignKey:OwnerID"`
	Requests    []CardRequest    `json:"requests,omitempty" gorm:"foreignKey:UserID"`
}

type UserSocialLink struct {
	gorm.Model
	UserID uint   `json:"userID" gorm:"not null;uniqueIndex:idx_user_social_link_type"`
	Type   string `json:"type" gorm:"size:100;uniqueIndex:idx_user_social_link_type"` // telegram, instagram, vk, facebook
	URL    string `json:"url"`
}

// IsRegistered reports whether the user completed registration (gave consent).
func (u *User) IsRegistered() bool {
	return u.ConsentAt != nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.LastName+" "+u.FirstName) + " " + u.Patronymic)
}

func (u *User) ShortName() string {
	return strings.TrimSpace(u.FirstName)
}

func (u *User) Age() int {
	if u.Dob == nil {
		return 0
	}
	now := time.Now()
	age := now.Year() - u.Dob.Year()
	if now.Month() < u.Dob.Month() || (now.Month() == u.Dob.Month() && now.Day() < u.Dob.Day()) {
		age--
	}
	return age
}
