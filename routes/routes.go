package routes

import (
	"roommate-server/services"
	"roommate-server/utils"

	"github.com/kataras/iris/v12"
)

// Service singletons wired by main at startup.
var (
	Cards    *services.CardService
	Requests *services.CardRequestService
	Chat     *services.ChatMessageService
	Reviews  *services.ReviewService
	Users    *services.UserService
)

func Setup(cards *services.CardService, requests *services.CardRequestService,
	chat *services.ChatMessageService, reviews *services.ReviewService, users *services.UserService) {
	Cards = cards
	Requests = requests
	Chat = chat
	Reviews = reviews
	Users = users
}

// handleActionError maps a core-operation failure to a response: expected
// taxonomy errors become 400 problems with the error text, anything else is
// a 500.
func handleActionError(err error, ctx iris.Context) {
	if services.IsActionError(err) {
		utils.CreateError(iris.StatusBadRequest, "Action Error", err.Error(), ctx)
		return
	}
	utils.CreateInternalServerError(ctx)
}
