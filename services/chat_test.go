package services

import (
	"testing"

	"roommate-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyCreatesSystemMessage(t *testing.T) {
	s := newTestServices(t)
	owner := createTestUser(t, s.db, "+79990000001")
	card := createTestCard(t, s.db, owner.ID, models.CardStatusActive, 1)

	require.NoError(t, s.chat.Notify(s.db, owner.ID, card.ID, "Your card request has been approved."))

	var message models.ChatMessage
	require.NoError(t, s.db.Where("card_id = ?", card.ID).First(&message).Error)
	assert.True(t, message.IsSystem())
	assert.Equal(t, owner.ID, message.ReceiverID)
}

func TestSendMessage(t *testing.T) {
	s := newTestServices(t)
	owner := createTestUser(t, s.db, "+79990000001")
	requester := createTestUser(t, s.db, "+79990000002")
	card := createTestCard(t, s.db, owner.ID, models.CardStatusActive, 2)

	_, err := s.requests.Create(requester.ID, card.ID, CreateCardRequestInput{RoommatesNumber: 1})
	require.NoError(t, err)

	// Either side of the request may write.
	message, err := s.chat.Send(requester.ID, owner.ID, "Hello!")
	require.NoError(t, err)
	assert.Equal(t, card.ID, message.CardID)
	assert.False(t, message.IsSystem())

	reply, err := s.chat.Send(owner.ID, requester.ID, "Hi, come by tomorrow.")
	require.NoError(t, err)
	assert.Equal(t, card.ID, reply.CardID)
}

func TestSendMessageSelf(t *testing.T) {
	s := newTestServices(t)
	user := createTestUser(t, s.db, "+79990000001")

	_, err := s.chat.Send(user.ID, user.ID, "hello me")
	assert.ErrorIs(t, err, ErrSelfMessage)
}

func TestSendMessageWithoutActiveRequest(t *testing.T) {
	s := newTestServices(t)
	a := createTestUser(t, s.db, "+79990000001")
	b := createTestUser(t, s.db, "+79990000002")

	_, err := s.chat.Send(a.ID, b.ID, "hello stranger")
	assert.ErrorIs(t, err, ErrChatNotAllowed)
}

func TestChatsLastMessages(t *testing.T) {
	s := newTestServices(t)
	owner := createTestUser(t, s.db, "+79990000001")
	requester := createTestUser(t, s.db, "+79990000002")
	card := createTestCard(t, s.db, owner.ID, models.CardStatusActive, 2)

	_, err := s.requests.Create(requester.ID, card.ID, CreateCardRequestInput{RoommatesNumber: 1})
	require.NoError(t, err)

	_, err = s.chat.Send(requester.ID, owner.ID, "first")
	require.NoError(t, err)
	last, err := s.chat.Send(owner.ID, requester.ID, "second")
	require.NoError(t, err)

	chats, err := s.chat.ChatsLastMessages(owner.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, last.ID, chats[0].ID)
	assert.Equal(t, "second", chats[0].Content)
}

func TestChatListsWholeConversation(t *testing.T) {
	s := newTestServices(t)
	owner := createTestUser(t, s.db, "+79990000001")
	requester := createTestUser(t, s.db, "+79990000002")
	card := createTestCard(t, s.db, owner.ID, models.CardStatusActive, 2)

	// The request itself produces the opening system message.
	_, err := s.requests.Create(requester.ID, card.ID, CreateCardRequestInput{RoommatesNumber: 1})
	require.NoError(t, err)

	sent, err := s.chat.Send(requester.ID, owner.ID, "hello")
	require.NoError(t, err)

	messages, err := s.chat.Chat(sent.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.True(t, messages[1].IsSystem())
}

func TestDeleteMessage(t *testing.T) {
	s := newTestServices(t)
	owner := createTestUser(t, s.db, "+79990000001")
	requester := createTestUser(t, s.db, "+79990000002")
	card := createTestCard(t, s.db, owner.ID, models.CardStatusActive, 2)

	_, err := s.requests.Create(requester.ID, card.ID, CreateCardRequestInput{RoommatesNumber: 1})
	require.NoError(t, err)

	message, err := s.chat.Send(requester.ID, owner.ID, "oops")
	require.NoError(t, err)

	// Only the sender may delete.
	assert.ErrorIs(t, s.chat.Delete(owner.ID, message.ID), ErrNotSender)
	require.NoError(t, s.chat.Delete(requester.ID, message.ID))

	// System messages have no sender and cannot be deleted this way.
	var system models.ChatMessage
	require.NoError(t, s.db.Where("sender_id IS NULL").First(&system).Error)
	assert.ErrorIs(t, s.chat.Delete(owner.ID, system.ID), ErrNotSender)
}

func TestShortContent(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "lorem "
	}
	message := models.ChatMessage{Content: long}
	assert.Len(t, message.ShortContent(), 103)

	short := models.ChatMessage{Content: "hi"}
	assert.Equal(t, "hi", short.ShortContent())
}
