package models

import "gorm.io/gorm"

type City struct {
	gorm.Model
	Name  string `json:"name" gorm:"size:255"`
	Order uint   `json:"order" gorm:"default:0"`
}
