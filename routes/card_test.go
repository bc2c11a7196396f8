package routes

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestCardInputStatusValidation(t *testing.T) {
	v := validator.New()
	cityID := uint(1)

	create := CreateCardInput{Header: "room", CityID: &cityID, Limit: 1}
	for _, status := range []string{"", "active", "draft"} {
		create.Status = status
		assert.NoError(t, v.Struct(create), status)
	}
	create.Status = "completed"
	assert.Error(t, v.Struct(create))

	// Completion is only reachable through an update.
	update := UpdateCardInput{Header: "room", CityID: &cityID, Limit: 1}
	for _, status := range []string{"", "active", "draft", "completed"} {
		update.Status = status
		assert.NoError(t, v.Struct(update), status)
	}
	update.Status = "archived"
	assert.Error(t, v.Struct(update))
}

func TestValidateDeadline(t *testing.T) {
	assert.True(t, validateDeadline(nil))

	now := time.Now()
	assert.True(t, validateDeadline(&now))

	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	assert.True(t, validateDeadline(&startOfDay))

	beforeMidnight := startOfDay.Add(-time.Minute)
	assert.False(t, validateDeadline(&beforeMidnight))

	tomorrow := now.Add(24 * time.Hour)
	assert.True(t, validateDeadline(&tomorrow))
}
