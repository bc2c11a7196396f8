package services

import (
	"testing"

	"roommate-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCompletedStay(t *testing.T, s *testServices) (owner, roommate *models.User) {
	t.Helper()
	owner = createTestUser(t, s.db, "+79990000001")
	roommate = createTestUser(t, s.db, "+79990000002")
	card := createTestCard(t, s.db, owner.ID, models.CardStatusCompleted, 2)

	require.NoError(t, s.db.Create(&models.CardRequest{
		UserID: roommate.ID, CardID: card.ID,
		Status: models.CardRequestStatusApproved, RoommatesNumber: 1,
	}).Error)
	return owner, roommate
}

func TestCreateReview(t *testing.T) {
	s := newTestServices(t)
	owner, roommate := setupCompletedStay(t, s)

	// Both directions are allowed once the shared card is completed.
	review, err := s.reviews.Create(roommate.ID, CreateReviewInput{
		TargetUserID: owner.ID, Text: "Great host.", Points: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(5), review.Points)

	_, err = s.reviews.Create(owner.ID, CreateReviewInput{
		TargetUserID: roommate.ID, Text: "Tidy roommate.", Points: 4,
	})
	assert.NoError(t, err)
}

func TestCreateReviewSelf(t *testing.T) {
	s := newTestServices(t)
	user := createTestUser(t, s.db, "+79990000001")

	_, err := s.reviews.Create(user.ID, CreateReviewInput{TargetUserID: user.ID, Text: "best", Points: 5})
	assert.ErrorIs(t, err, ErrSelfReview)
}

func TestCreateReviewNotAllowed(t *testing.T) {
	s := newTestServices(t)
	a := createTestUser(t, s.db, "+79990000001")
	b := createTestUser(t, s.db, "+79990000002")

	// No shared card at all.
	_, err := s.reviews.Create(a.ID, CreateReviewInput{TargetUserID: b.ID, Text: "nope", Points: 3})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)

	// Shared card exists but is still active.
	card := createTestCard(t, s.db, a.ID, models.CardStatusActive, 2)
	require.NoError(t, s.db.Create(&models.CardRequest{
		UserID: b.ID, CardID: card.ID,
		Status: models.CardRequestStatusApproved, RoommatesNumber: 1,
	}).Error)

	_, err = s.reviews.Create(b.ID, CreateReviewInput{TargetUserID: a.ID, Text: "early", Points: 3})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)
}

func TestAveragePoints(t *testing.T) {
	s := newTestServices(t)
	owner, roommate := setupCompletedStay(t, s)
	third := createTestUser(t, s.db, "+79990000003")

	avg, err := s.reviews.AveragePoints(owner.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)

	require.NoError(t, s.db.Create(&models.Review{
		AuthorID: roommate.ID, TargetUserID: owner.ID, Text: "ok", Points: 4,
	}).Error)
	require.NoError(t, s.db.Create(&models.Review{
		AuthorID: third.ID, TargetUserID: owner.ID, Text: "fine", Points: 5,
	}).Error)

	avg, err = s.reviews.AveragePoints(owner.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.5, *avg, 0.001)
}

func TestByTargetUser(t *testing.T) {
	s := newTestServices(t)
	owner, roommate := setupCompletedStay(t, s)

	require.NoError(t, s.db.Create(&models.Review{
		AuthorID: roommate.ID, TargetUserID: owner.ID, Text: "ok", Points: 4,
	}).Error)

	reviews, err := s.reviews.ByTargetUser(owner.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, roommate.ID, reviews[0].AuthorID)

	reviews, err = s.reviews.ByTargetUser(roommate.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
