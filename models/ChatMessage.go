package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ChatMessage is a single message in a card's chat. A nil sender marks a
// system-generated message (lifecycle and arbitration notifications).
type ChatMessage struct {
	ID       uint  `json:"id" gorm:"primaryKey"`
	SenderID *uint `json:"senderID" gorm:"index"`
	Sender   *User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`

	ReceiverID uint `json:"receiverID" gorm:"not null;index"`
	Receiver   User `json:"receiver" gorm:"foreignKey:ReceiverID"`

	CardID uint `json:"cardID" gorm:"not null;index"`
	Card   Card `json:"card" gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE;"`

	Content   string    `json:"content" gorm:"size:2048"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsSystem reports whether the message was generated by the engine rather
// than a human.
func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == nil
}

// ShortContent returns a preview excerpt of the message body.
func (m *ChatMessage) ShortContent() string {
	if len(m.Content) > 100 {
		return strings.TrimRight(m.Content[:100], " ") + "..."
	}
	return m.Content
}

func (m *ChatMessage) MarshalJSON() ([]byte, error) {
	type Alias ChatMessage
	return json.Marshal(&struct {
		*Alias
		IsSystem     bool   `json:"isSystem"`
		ShortContent string `json:"shortContent"`
	}{
		Alias:        (*Alias)(m),
		IsSystem:     m.IsSystem(),
		ShortContent: m.ShortContent(),
	})
}
