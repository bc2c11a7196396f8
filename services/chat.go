package services

import (
	"errors"

	"roommate-server/models"

	"gorm.io/gorm"
)

// ChatMessageService persists card-scoped chat messages. It doubles as the
// notification relay: lifecycle and arbitration events become system
// messages (nil sender) routed to the affected counterpart.
type ChatMessageService struct {
	db *gorm.DB
}

func NewChatMessageService(db *gorm.DB) *ChatMessageService {
	return &ChatMessageService{db: db}
}

// Notify persists a system message for the receiver in the given card's
// chat. It runs on the caller's transaction so the notification commits with
// the state change it announces.
func (s *ChatMessageService) Notify(tx *gorm.DB, receiverID, cardID uint, content string) error {
	message := models.ChatMessage{
		SenderID:   nil,
		ReceiverID: receiverID,
		CardID:     cardID,
		Content:    content,
	}
	return tx.Create(&message).Error
}

// Send creates a user-to-user message. The parties must be linked by an
// active request in either direction; the message attaches to that request's
// card.
func (s *ChatMessageService) Send(senderID, receiverID uint, content string) (*models.ChatMessage, error) {
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	var message models.ChatMessage
	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := getActiveCardRequestByOwner(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if request == nil {
			request, err = getActiveCardRequestByOwner(tx, receiverID, senderID)
			if err != nil {
				return err
			}
		}
		if request == nil {
			return ErrChatNotAllowed
		}

		message = models.ChatMessage{
			SenderID:   &senderID,
			ReceiverID: receiverID,
			CardID:     request.CardID,
			Content:    content,
		}
		return tx.Create(&message).Error
	})
	if err != nil {
		return nil, err
	}

	err = s.db.Preload("Sender").Preload("Receiver").First(&message, message.ID).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ChatsLastMessages returns the newest message of every card chat the user
// takes part in, newest chat first.
func (s *ChatMessageService) ChatsLastMessages(userID uint) ([]models.ChatMessage, error) {
	var lastIDs []uint
	err := s.db.Model(&models.ChatMessage{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("card_id").
		Pluck("MAX(id)", &lastIDs).Error
	if err != nil {
		return nil, err
	}
	if len(lastIDs) == 0 {
		return []models.ChatMessage{}, nil
	}

	var messages []models.ChatMessage
	err = s.db.
		Where("id IN ?", lastIDs).
		Preload("Sender").
		Preload("Receiver").
		Preload("Card").
		Preload("Card.Owner").
		Preload("Card.Photos").
		Order("id DESC").
		Find(&messages).Error
	return messages, err
}

// Chat lists every message of the card chat the given message belongs to,
// newest first.
func (s *ChatMessageService) Chat(messageID uint) ([]models.ChatMessage, error) {
	var message models.ChatMessage
	if err := s.db.First(&message, messageID).Error; err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	err := s.db.
		Where("card_id = ?", message.CardID).
		Preload("Sender").
		Preload("Receiver").
		Order("created_at DESC").
		Order("id DESC").
		Find(&messages).Error
	return messages, err
}

// Get loads one message.
func (s *ChatMessageService) Get(messageID uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := s.db.Preload("Sender").Preload("Receiver").First(&message, messageID).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Delete removes a sent message. Only the sender may delete it; system
// messages have no sender and cannot be deleted this way.
func (s *ChatMessageService) Delete(userID, messageID uint) error {
	var message models.ChatMessage
	err := s.db.First(&message, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err != nil {
		return err
	}
	if message.SenderID == nil || *message.SenderID != userID {
		return ErrNotSender
	}
	return s.db.Delete(&message).Error
}
