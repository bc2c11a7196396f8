package routes

import (
	"roommate-server/services"
	"roommate-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateReviewInput struct {
	TargetUserID uint   `json:"targetUserID" validate:"required"`
	Text         string `json:"text" validate:"required,max=2048"`
	Points       uint   `json:"points" validate:"required,min=1,max=5"`
}

func CreateReview(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input CreateReviewInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	review, err := Reviews.Create(userID, services.CreateReviewInput{
		TargetUserID: input.TargetUserID,
		Text:         input.Text,
		Points:       input.Points,
	})
	if err != nil {
		handleActionError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(review)
}

// ListReviews returns a user's reviews together with their average score.
func ListReviews(ctx iris.Context) {
	targetUserID, err := ctx.Params().GetUint("userID")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	reviews, err := Reviews.ByTargetUser(targetUserID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	average, err := Reviews.AveragePoints(targetUserID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"reviews":       reviews,
		"averagePoints": average,
	})
}
