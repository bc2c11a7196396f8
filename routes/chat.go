package routes

import (
	"errors"

	"roommate-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type SendMessageInput struct {
	ReceiverID uint   `json:"receiverID" validate:"required"`
	Content    string `json:"content" validate:"required,max=2048"`
}

func SendMessage(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input SendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	message, err := Chat.Send(userID, input.ReceiverID, input.Content)
	if err != nil {
		handleActionError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(message)
}

// MyChats returns the latest message of every chat the user participates in.
func MyChats(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	messages, err := Chat.ChatsLastMessages(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(messages)
}

// GetChat returns the whole conversation the given message belongs to.
// Participants only.
func GetChat(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	message, err := Chat.Get(messageID)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if message.ReceiverID != userID && (message.SenderID == nil || *message.SenderID != userID) {
		utils.CreateForbidden(ctx)
		return
	}

	messages, err := Chat.Chat(messageID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(messages)
}

func DeleteMessage(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if err := Chat.Delete(userID, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateNotFound(ctx)
			return
		}
		handleActionError(err, ctx)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}
