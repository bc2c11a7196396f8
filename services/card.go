package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"roommate-server/config"
	"roommate-server/models"
	"roommate-server/scheduler"
	"roommate-server/storage"

	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cardStatusTransitions is the explicit transition table of the card state
// machine. Completed is terminal.
var cardStatusTransitions = map[string][]string{
	models.CardStatusActive:    {models.CardStatusActive, models.CardStatusDraft, models.CardStatusCompleted},
	models.CardStatusDraft:     {models.CardStatusActive, models.CardStatusDraft, models.CardStatusCompleted},
	models.CardStatusCompleted: {},
}

// CardStatusPriority orders statuses for status-grouped listings.
var CardStatusPriority = []string{
	models.CardStatusActive,
	models.CardStatusDraft,
	models.CardStatusCompleted,
}

// DeadlineTaskName derives the stable scheduler key for a card's
// deadline-to-draft transition.
func DeadlineTaskName(cardID uint) string {
	return fmt.Sprintf("change card status to draft card_id=%d", cardID)
}

type deadlinePayload struct {
	CardID uint   `json:"card_id"`
	Status string `json:"status"`
}

type CardService struct {
	db        *gorm.DB
	cfg       config.Config
	scheduler *scheduler.Scheduler
}

func NewCardService(db *gorm.DB, cfg config.Config, sched *scheduler.Scheduler) *CardService {
	return &CardService{db: db, cfg: cfg, scheduler: sched}
}

type CardPhotoInput struct {
	ID    *uint  `json:"id"`
	Photo string `json:"photo"` // uploaded image URL for new photos
}

type CreateCardInput struct {
	Header      string
	Description string
	CityID      *uint
	Limit       uint
	Deadline    *time.Time
	Status      string
	TagIDs      []uint
	Photos      []CardPhotoInput
}

// Create persists a new card for the owner. Fails with ErrQuotaExceeded when
// the owner already holds the maximum number of active cards. An active card
// with a deadline gets its draft-transition callback scheduled in the same
// transaction.
func (s *CardService) Create(ownerID uint, input CreateCardInput) (*models.Card, error) {
	status := input.Status
	if status == "" {
		status = models.CardStatusActive
	}
	if _, ok := cardStatusTransitions[status]; !ok {
		return nil, ErrUnknownStatus
	}

	limit := input.Limit
	if limit == 0 {
		limit = 1
	}

	var card models.Card
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var activeCount int64
		err := tx.Model(&models.Card{}).
			Where("owner_id = ? AND status = ?", ownerID, models.CardStatusActive).
			Count(&activeCount).Error
		if err != nil {
			return err
		}
		if activeCount >= int64(s.cfg.ActiveCardLimit) {
			return ErrQuotaExceeded
		}

		card = models.Card{
			OwnerID:     ownerID,
			Header:      input.Header,
			Description: input.Description,
			CityID:      input.CityID,
			Limit:       limit,
			Deadline:    input.Deadline,
			Status:      status,
		}
		if err := tx.Create(&card).Error; err != nil {
			return err
		}

		for _, p := range input.Photos {
			if p.Photo == "" {
				continue
			}
			photo := models.CardPhoto{CardID: card.ID, Photo: p.Photo}
			if err := tx.Create(&photo).Error; err != nil {
				return err
			}
		}

		if len(input.TagIDs) > 0 {
			var tags []models.CardTag
			if err := tx.Find(&tags, input.TagIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(&card).Association("Tags").Append(&tags); err != nil {
				return err
			}
		}

		if card.Status == models.CardStatusActive && card.Deadline != nil {
			return s.scheduler.WithTx(tx).Schedule(
				DeadlineTaskName(card.ID),
				scheduler.HandlerChangeCardStatus,
				*card.Deadline,
				deadlinePayload{CardID: card.ID, Status: models.CardStatusDraft},
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(card.ID)
}

// Get loads a card with its associations.
func (s *CardService) Get(id uint) (*models.Card, error) {
	var card models.Card
	err := s.db.
		Preload("Owner").
		Preload("City").
		Preload("Photos").
		Preload("Tags").
		First(&card, id).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// changeStatus overwrites the card status in memory. A completed card is
// terminal and rejects any further change.
func changeStatus(card *models.Card, newStatus string) error {
	allowed, ok := cardStatusTransitions[card.Status]
	if !ok || len(allowed) == 0 {
		return ErrTerminalStateViolation
	}
	if !slices.Contains(allowed, newStatus) {
		return ErrUnknownStatus
	}
	card.Status = newStatus
	return nil
}

type UpdateCardInput struct {
	Header      *string
	Description *string
	CityID      *uint
	Limit       *uint
	Status      *string

	// DeadlineSet distinguishes "set deadline to empty" from "leave as is".
	DeadlineSet bool
	Deadline    *time.Time

	PhotosSet bool
	Photos    []CardPhotoInput

	TagsSet bool
	TagIDs  []uint
}

// Update applies a batch of field changes atomically, then evaluates the
// deadline-callback side effects: active→draft disables the pending callback,
// completion or a cleared deadline deletes it, and an active card with a
// deadline gets it (re)scheduled under the same key. The three checks are
// independent and any subset may fire for a single update.
func (s *CardService) Update(cardID uint, input UpdateCardInput) (*models.Card, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := lockForUpdate(tx).First(&card, cardID).Error; err != nil {
			return err
		}

		oldStatus := card.Status

		if input.Header != nil {
			card.Header = *input.Header
		}
		if input.Description != nil {
			card.Description = *input.Description
		}
		if input.CityID != nil {
			card.CityID = input.CityID
		}
		if input.Limit != nil && *input.Limit > 0 {
			if *input.Limit < card.Limit {
				var claimed int64
				err := tx.Model(&models.CardRequest{}).
					Where("card_id = ? AND status IN ?", card.ID,
						[]string{models.CardRequestStatusPending, models.CardRequestStatusApproved}).
					Select("COALESCE(SUM(roommates_number), 0)").
					Scan(&claimed).Error
				if err != nil {
					return err
				}
				if int64(*input.Limit) < claimed {
					return ErrLimitBelowClaimed
				}
			}
			card.Limit = *input.Limit
		}

		deadlineChanged := false
		if input.DeadlineSet && !equalDeadlines(card.Deadline, input.Deadline) {
			card.Deadline = input.Deadline
			deadlineChanged = true
		}

		if input.Status != nil {
			if err := changeStatus(&card, *input.Status); err != nil {
				return err
			}
		}

		if input.PhotosSet {
			if err := replacePhotos(tx, card.ID, input.Photos); err != nil {
				return err
			}
		}
		if input.TagsSet {
			var tags []models.CardTag
			if len(input.TagIDs) > 0 {
				if err := tx.Find(&tags, input.TagIDs).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&card).Association("Tags").Replace(&tags); err != nil {
				return err
			}
		}

		name := DeadlineTaskName(card.ID)
		sched := s.scheduler.WithTx(tx)

		if oldStatus == models.CardStatusActive && card.Status == models.CardStatusDraft {
			if err := sched.Disable(name); err != nil {
				return err
			}
		}
		if card.Status == models.CardStatusCompleted || (deadlineChanged && card.Deadline == nil) {
			if err := sched.Delete(name); err != nil {
				return err
			}
		}
		if card.Deadline != nil && card.Status == models.CardStatusActive {
			err := sched.Schedule(name, scheduler.HandlerChangeCardStatus, *card.Deadline,
				deadlinePayload{CardID: card.ID, Status: models.CardStatusDraft})
			if err != nil {
				return err
			}
		}

		return tx.Save(&card).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(cardID)
}

// replacePhotos reconciles the persisted photo set with the desired one:
// photos whose ids are absent from the input are deleted, entries carrying a
// new image create photos. Submitted ids that match nothing are silently
// dropped. Removed blobs are cleaned up from media storage best-effort.
func replacePhotos(tx *gorm.DB, cardID uint, photos []CardPhotoInput) error {
	var keepIDs []uint
	for _, p := range photos {
		if p.ID != nil {
			keepIDs = append(keepIDs, *p.ID)
		}
	}

	var removed []models.CardPhoto
	q := tx.Where("card_id = ?", cardID)
	if len(keepIDs) > 0 {
		q = q.Where("id NOT IN ?", keepIDs)
	}
	if err := q.Find(&removed).Error; err != nil {
		return err
	}
	if len(removed) > 0 {
		if err := tx.Delete(&removed).Error; err != nil {
			return err
		}
	}
	for _, p := range removed {
		if err := storage.DeleteImage(p.Photo); err != nil {
			log.Printf("failed to delete card photo %s: %v", p.Photo, err)
		}
	}

	for _, p := range photos {
		if p.ID != nil || p.Photo == "" {
			continue
		}
		photo := models.CardPhoto{CardID: cardID, Photo: p.Photo}
		if err := tx.Create(&photo).Error; err != nil {
			return err
		}
	}
	return nil
}

// ApplyScheduledStatus is the deadline callback effect: it reassigns the
// status unconditionally if the card still exists. A missing card is a no-op
// so replayed deliveries stay safe.
func (s *CardService) ApplyScheduledStatus(cardID uint, status string) error {
	var card models.Card
	err := s.db.First(&card, cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Model(&card).Update("status", status).Error
}

// DeadlineHandler adapts ApplyScheduledStatus into a scheduler callback.
func (s *CardService) DeadlineHandler() scheduler.HandlerFunc {
	return func(ctx context.Context, payload datatypes.JSON) error {
		var p deadlinePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return s.ApplyScheduledStatus(p.CardID, p.Status)
	}
}

// FeedFilter narrows the base candidate set before feed selection.
type FeedFilter struct {
	CityID *uint
	TagIDs []uint
}

// Feed returns the viewer's candidate cards: active, not their own, minus
// skipped ones, newest first. When the viewer has exhausted everything
// available, their whole skip set is cleared and the full candidate set comes
// back (possibly empty).
func (s *CardService) Feed(viewerID uint, filter FeedFilter) ([]models.Card, error) {
	var skippedIDs []uint
	err := s.db.Model(&models.CardSkip{}).
		Where("user_id = ?", viewerID).
		Pluck("card_id", &skippedIDs).Error
	if err != nil {
		return nil, err
	}

	cards, err := s.findFeedCards(viewerID, filter, skippedIDs)
	if err != nil {
		return nil, err
	}
	if len(cards) > 0 {
		return cards, nil
	}

	// Exhausted: reset the skip history and show everything again.
	err = s.db.Where("user_id = ?", viewerID).Delete(&models.CardSkip{}).Error
	if err != nil {
		return nil, err
	}
	return s.findFeedCards(viewerID, filter, nil)
}

func (s *CardService) findFeedCards(viewerID uint, filter FeedFilter, excludeIDs []uint) ([]models.Card, error) {
	q := s.db.Model(&models.Card{}).
		Where("status = ?", models.CardStatusActive).
		Where("owner_id <> ?", viewerID)
	if filter.CityID != nil {
		q = q.Where("city_id = ?", *filter.CityID)
	}
	if len(filter.TagIDs) > 0 {
		q = q.Joins("JOIN card_tag_assignments cta ON cta.card_id = cards.id").
			Where("cta.card_tag_id IN ?", filter.TagIDs).
			Distinct()
	}
	if len(excludeIDs) > 0 {
		q = q.Where("cards.id NOT IN ?", excludeIDs)
	}

	var cards []models.Card
	err := q.
		Preload("Owner").
		Preload("City").
		Preload("Photos").
		Preload("Tags").
		Order("cards.created_at DESC").
		Order("cards.id DESC").
		Find(&cards).Error
	return cards, err
}

// Skip adds the card to the viewer's skip set. Re-skipping is a no-op.
func (s *CardService) Skip(viewerID, cardID uint) error {
	var card models.Card
	if err := s.db.First(&card, cardID).Error; err != nil {
		return err
	}
	if card.OwnerID == viewerID {
		return ErrSelfSkip
	}

	skip := models.CardSkip{UserID: viewerID, CardID: cardID}
	return s.db.
		Where("user_id = ? AND card_id = ?", viewerID, cardID).
		FirstOrCreate(&skip).Error
}

// ByOwner lists an owner's cards sorted by status group, optionally filtered
// to one status.
func (s *CardService) ByOwner(ownerID uint, status string) ([]models.Card, error) {
	q := s.db.Model(&models.Card{}).Where("owner_id = ?", ownerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var cards []models.Card
	err := q.
		Preload("Owner").
		Preload("City").
		Preload("Photos").
		Preload("Tags").
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	SortCardsByStatus(cards)
	return cards, nil
}

// ActiveByOwner lists only the owner's active cards, for foreign viewers.
func (s *CardService) ActiveByOwner(ownerID uint) ([]models.Card, error) {
	var cards []models.Card
	err := s.db.
		Where("owner_id = ? AND status = ?", ownerID, models.CardStatusActive).
		Preload("Owner").
		Preload("City").
		Preload("Photos").
		Preload("Tags").
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

// SortCardsByStatus groups cards active → draft → completed, stable within
// each group.
func SortCardsByStatus(cards []models.Card) {
	slices.SortStableFunc(cards, func(a, b models.Card) int {
		return slices.Index(CardStatusPriority, a.Status) - slices.Index(CardStatusPriority, b.Status)
	})
}

func equalDeadlines(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// lockForUpdate takes a row lock on postgres. The sqlite test dialect has no
// FOR UPDATE and serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
