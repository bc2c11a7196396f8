package services

import (
	"math"

	"roommate-server/models"

	"gorm.io/gorm"
)

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

type CreateReviewInput struct {
	TargetUserID uint
	Text         string
	Points       uint
}

// Create persists a review. The author and target must share a completed
// card linked through an approved request in either direction.
func (s *ReviewService) Create(authorID uint, input CreateReviewInput) (*models.Review, error) {
	if authorID == input.TargetUserID {
		return nil, ErrSelfReview
	}

	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shared, err := sharedCompletedCardExists(tx, authorID, input.TargetUserID)
		if err != nil {
			return err
		}
		if !shared {
			return ErrReviewNotAllowed
		}

		review = models.Review{
			AuthorID:     authorID,
			TargetUserID: input.TargetUserID,
			Text:         input.Text,
			Points:       input.Points,
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, err
	}

	err = s.db.Preload("Author").Preload("TargetUser").First(&review, review.ID).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ByTargetUser lists a user's reviews, newest first.
func (s *ReviewService) ByTargetUser(targetUserID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.
		Where("target_user_id = ?", targetUserID).
		Preload("Author").
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// AveragePoints returns the user's mean review score rounded to two decimal
// places, or nil when they have no reviews.
func (s *ReviewService) AveragePoints(targetUserID uint) (*float64, error) {
	var avg *float64
	err := s.db.Model(&models.Review{}).
		Where("target_user_id = ?", targetUserID).
		Select("AVG(points)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if avg == nil {
		return nil, nil
	}
	rounded := math.Round(*avg*100) / 100
	return &rounded, nil
}

// sharedCompletedCardExists checks for a completed card where one party is
// the owner and the other holds an approved request.
func sharedCompletedCardExists(tx *gorm.DB, a, b uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Card{}).
		Joins("JOIN card_requests ON card_requests.card_id = cards.id").
		Where("cards.status = ?", models.CardStatusCompleted).
		Where("card_requests.status = ?", models.CardRequestStatusApproved).
		Where("(cards.owner_id = ? AND card_requests.user_id = ?) OR (cards.owner_id = ? AND card_requests.user_id = ?)",
			a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
