package services

import (
	"errors"
	"fmt"

	"roommate-server/config"
	"roommate-server/models"

	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// RequestStatusPriority orders statuses for status-grouped listings.
var RequestStatusPriority = []string{
	models.CardRequestStatusPending,
	models.CardRequestStatusApproved,
	models.CardRequestStatusRejected,
}

// Notifier is the narrow port the arbitration engine emits system messages
// through. The chat service implements it; the engine never depends on chat
// internals.
type Notifier interface {
	Notify(tx *gorm.DB, receiverID, cardID uint, content string) error
}

type CardRequestService struct {
	db       *gorm.DB
	cfg      config.Config
	notifier Notifier
}

func NewCardRequestService(db *gorm.DB, cfg config.Config, notifier Notifier) *CardRequestService {
	return &CardRequestService{db: db, cfg: cfg, notifier: notifier}
}

// FreeSlots returns the card's remaining capacity: limit minus the occupants
// claimed by active (pending or approved) requests.
func FreeSlots(tx *gorm.DB, card *models.Card) (int64, error) {
	var occupied int64
	err := tx.Model(&models.CardRequest{}).
		Where("card_id = ? AND status IN ?", card.ID,
			[]string{models.CardRequestStatusPending, models.CardRequestStatusApproved}).
		Select("COALESCE(SUM(roommates_number), 0)").
		Scan(&occupied).Error
	if err != nil {
		return 0, err
	}
	return int64(card.Limit) - occupied, nil
}

// checkEligibility runs the request-creation preconditions in their fixed
// order; the first failure wins.
func (s *CardRequestService) checkEligibility(tx *gorm.DB, userID uint, card *models.Card, roommatesNumber uint) error {
	freeSlots, err := FreeSlots(tx, card)
	if err != nil {
		return err
	}
	if freeSlots < int64(roommatesNumber) {
		return ErrInsufficientCapacity
	}

	if card.OwnerID == userID {
		return ErrSelfRequest
	}

	var approvedAnywhere int64
	err = tx.Model(&models.CardRequest{}).
		Where("user_id = ? AND status = ?", userID, models.CardRequestStatusApproved).
		Count(&approvedAnywhere).Error
	if err != nil {
		return err
	}
	if approvedAnywhere > 0 {
		return ErrAlreadyApproved
	}

	var pendingHere int64
	err = tx.Model(&models.CardRequest{}).
		Where("user_id = ? AND card_id = ? AND status = ?", userID, card.ID, models.CardRequestStatusPending).
		Count(&pendingHere).Error
	if err != nil {
		return err
	}
	if pendingHere > 0 {
		return ErrDuplicatePending
	}

	var rejectedHere int64
	err = tx.Model(&models.CardRequest{}).
		Where("user_id = ? AND card_id = ? AND status = ?", userID, card.ID, models.CardRequestStatusRejected).
		Count(&rejectedHere).Error
	if err != nil {
		return err
	}
	if rejectedHere >= int64(s.cfg.RejectedRequestLimit) {
		return ErrRejectionLimitExceeded
	}

	// Mutual exclusion: the card's owner must not hold an active request on
	// one of the requester's own cards.
	reciprocal, err := getActiveCardRequestByOwner(tx, card.OwnerID, userID)
	if err != nil {
		return err
	}
	if reciprocal != nil {
		return ErrReciprocalConflict
	}

	return nil
}

type CreateCardRequestInput struct {
	RoommatesNumber uint
	CoveringLetter  string
}

// Create runs the eligibility rules against a row-locked card and persists a
// pending request, notifying the card owner with the cover letter. Two
// concurrent creations against the card's last free slot serialize on the
// lock so at most one succeeds.
func (s *CardRequestService) Create(userID, cardID uint, input CreateCardRequestInput) (*models.CardRequest, error) {
	roommatesNumber := input.RoommatesNumber
	if roommatesNumber == 0 {
		roommatesNumber = 1
	}

	var request models.CardRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := lockForUpdate(tx).First(&card, cardID).Error; err != nil {
			return err
		}

		if err := s.checkEligibility(tx, userID, &card, roommatesNumber); err != nil {
			return err
		}

		request = models.CardRequest{
			UserID:          userID,
			CardID:          card.ID,
			Status:          models.CardRequestStatusPending,
			RoommatesNumber: roommatesNumber,
			CoveringLetter:  input.CoveringLetter,
		}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}

		var requester models.User
		if err := tx.First(&requester, userID).Error; err != nil {
			return err
		}
		content := fmt.Sprintf("New request for your card from %s.", requester.ShortName())
		if input.CoveringLetter != "" {
			content += " " + input.CoveringLetter
		}
		return s.notifier.Notify(tx, card.OwnerID, card.ID, content)
	})
	if err != nil {
		return nil, err
	}

	err = s.db.Preload("User").Preload("Card").First(&request, request.ID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Cancel hard-deletes the user's single active request on the card and
// notifies the owner. Fails with ErrNoActiveRequest when there is none.
func (s *CardRequestService) Cancel(userID, cardID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := tx.First(&card, cardID).Error; err != nil {
			return err
		}

		var request models.CardRequest
		err := tx.
			Where("user_id = ? AND card_id = ? AND status IN ?", userID, cardID,
				[]string{models.CardRequestStatusPending, models.CardRequestStatusApproved}).
			First(&request).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveRequest
		}
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&request).Error; err != nil {
			return err
		}

		var requester models.User
		if err := tx.First(&requester, userID).Error; err != nil {
			return err
		}
		content := fmt.Sprintf("%s canceled their request for your card.", requester.ShortName())
		return s.notifier.Notify(tx, card.OwnerID, card.ID, content)
	})
}

// HandleRequest lets the card owner adjudicate a user's request. The latest
// request for the (user, card) pair is located; a rejected one is terminal
// and can never be re-adjudicated. The requester is notified of the outcome.
func (s *CardRequestService) HandleRequest(userID, cardID uint, newStatus string) (*models.CardRequest, error) {
	if newStatus != models.CardRequestStatusApproved && newStatus != models.CardRequestStatusRejected {
		return nil, ErrUnknownStatus
	}

	var request models.CardRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("user_id = ? AND card_id = ?", userID, cardID).
			Order("id DESC").
			First(&request).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveRequest
		}
		if err != nil {
			return err
		}
		if request.Status == models.CardRequestStatusRejected {
			return ErrAlreadyRejected
		}

		if err := tx.Model(&request).Update("status", newStatus).Error; err != nil {
			return err
		}

		var content string
		if newStatus == models.CardRequestStatusApproved {
			content = "Your card request has been approved."
		} else {
			content = "Your card request has been rejected."
		}
		return s.notifier.Notify(tx, userID, cardID, content)
	})
	if err != nil {
		return nil, err
	}

	err = s.db.Preload("User").Preload("Card").First(&request, request.ID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ByCard lists a card's requests sorted by status group.
func (s *CardRequestService) ByCard(cardID uint) ([]models.CardRequest, error) {
	var requests []models.CardRequest
	err := s.db.
		Where("card_id = ?", cardID).
		Preload("User").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	SortRequestsByStatus(requests)
	return requests, nil
}

// ByUser lists a user's own requests sorted by status group.
func (s *CardRequestService) ByUser(userID uint) ([]models.CardRequest, error) {
	var requests []models.CardRequest
	err := s.db.
		Where("user_id = ?", userID).
		Preload("Card").
		Preload("Card.Owner").
		Preload("Card.Photos").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	SortRequestsByStatus(requests)
	return requests, nil
}

// SortRequestsByStatus groups requests pending → approved → rejected, stable
// within each group.
func SortRequestsByStatus(requests []models.CardRequest) {
	slices.SortStableFunc(requests, func(a, b models.CardRequest) int {
		return slices.Index(RequestStatusPriority, a.Status) - slices.Index(RequestStatusPriority, b.Status)
	})
}

// getActiveCardRequestByOwner finds userID's active (pending or approved)
// request on any card owned by ownerID.
func getActiveCardRequestByOwner(tx *gorm.DB, userID, ownerID uint) (*models.CardRequest, error) {
	var request models.CardRequest
	err := tx.
		Joins("JOIN cards ON cards.id = card_requests.card_id").
		Where("card_requests.user_id = ?", userID).
		Where("cards.owner_id = ?", ownerID).
		Where("card_requests.status IN ?",
			[]string{models.CardRequestStatusPending, models.CardRequestStatusApproved}).
		Order("card_requests.id DESC").
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}
