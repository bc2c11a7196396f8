package routes

import (
	"fmt"
	"time"

	"roommate-server/models"
	"roommate-server/services"
	"roommate-server/storage"
	"roommate-server/utils"

	"github.com/kataras/iris/v12"
)

type CardPhotoInput struct {
	ID    *uint  `json:"id"`
	Photo string `json:"photo"` // base64 image for new photos
}

type CreateCardInput struct {
	Header      string           `json:"header" validate:"required,max=255"`
	Description string           `json:"description" validate:"max=2048"`
	CityID      *uint            `json:"cityID" validate:"required"`
	Limit       uint             `json:"limit" validate:"required,min=1"`
	Deadline    *time.Time       `json:"deadline"`
	Status      string           `json:"status" validate:"omitempty,oneof=active draft"`
	Tags        []uint           `json:"tags"`
	Photos      []CardPhotoInput `json:"photos"`
}

// UpdateCardInput mirrors CreateCardInput but additionally accepts the
// completed status, which only an update may reach.
type UpdateCardInput struct {
	Header      string           `json:"header" validate:"required,max=255"`
	Description string           `json:"description" validate:"max=2048"`
	CityID      *uint            `json:"cityID" validate:"required"`
	Limit       uint             `json:"limit" validate:"required,min=1"`
	Deadline    *time.Time       `json:"deadline"`
	Status      string           `json:"status" validate:"omitempty,oneof=active draft completed"`
	Tags        []uint           `json:"tags"`
	Photos      []CardPhotoInput `json:"photos"`
}

// uploadNewPhotos pushes base64 blobs to the media store and returns photo
// inputs the card service understands (ids kept, blobs replaced by URLs).
func uploadNewPhotos(ownerID uint, photos []CardPhotoInput) ([]services.CardPhotoInput, error) {
	out := make([]services.CardPhotoInput, 0, len(photos))
	for _, p := range photos {
		if p.ID != nil {
			out = append(out, services.CardPhotoInput{ID: p.ID})
			continue
		}
		if p.Photo == "" {
			continue
		}
		publicID := fmt.Sprintf("cards/%d/%s", ownerID, utils.GenerateShortToken(8))
		url, err := storage.UploadBase64Image(p.Photo, publicID)
		if err != nil {
			return nil, err
		}
		out = append(out, services.CardPhotoInput{Photo: url})
	}
	return out, nil
}

func validateDeadline(deadline *time.Time) bool {
	if deadline == nil {
		return true
	}
	y, m, d := time.Now().Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return !deadline.Before(startOfDay)
}

func CreateCard(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input CreateCardInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !validateDeadline(input.Deadline) {
		utils.CreateError(iris.StatusBadRequest, "Validation error", "Deadline cannot be in the past.", ctx)
		return
	}

	photos, err := uploadNewPhotos(userID, input.Photos)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	card, err := Cards.Create(userID, services.CreateCardInput{
		Header:      input.Header,
		Description: input.Description,
		CityID:      input.CityID,
		Limit:       input.Limit,
		Deadline:    input.Deadline,
		Status:      input.Status,
		TagIDs:      input.Tags,
		Photos:      photos,
	})
	if err != nil {
		handleActionError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(card)
}

func ListFeed(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	filter := services.FeedFilter{}
	if cityID, err := ctx.URLParamInt("city"); err == nil && cityID > 0 {
		id := uint(cityID)
		filter.CityID = &id
	}
	for _, tag := range ctx.URLParamSlice("tags") {
		var id uint
		if _, err := fmt.Sscanf(tag, "%d", &id); err == nil {
			filter.TagIDs = append(filter.TagIDs, id)
		}
	}

	cards, err := Cards.Feed(userID, filter)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(cards)
}

func GetCard(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	card, err := Cards.Get(id)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(card)
}

func CardsByOwner(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	ownerID, err := ctx.Params().GetUint("ownerID")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var cards []models.Card
	if ownerID == userID {
		cards, err = Cards.ByOwner(ownerID, ctx.URLParam("status"))
	} else {
		cards, err = Cards.ActiveByOwner(ownerID)
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(cards)
}

// UpdateCard replaces the card's editable fields with the submitted ones.
// Owner only.
func UpdateCard(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	card, err := Cards.Get(id)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if card.OwnerID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateCardInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !validateDeadline(input.Deadline) {
		utils.CreateError(iris.StatusBadRequest, "Validation error", "Deadline cannot be in the past.", ctx)
		return
	}

	photos, err := uploadNewPhotos(userID, input.Photos)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	status := input.Status
	updateInput := services.UpdateCardInput{
		Header:      &input.Header,
		Description: &input.Description,
		CityID:      input.CityID,
		Limit:       &input.Limit,
		DeadlineSet: true,
		Deadline:    input.Deadline,
		PhotosSet:   true,
		Photos:      photos,
		TagsSet:     true,
		TagIDs:      input.Tags,
	}
	if status != "" {
		updateInput.Status = &status
	}

	updated, err := Cards.Update(id, updateInput)
	if err != nil {
		handleActionError(err, ctx)
		return
	}
	ctx.JSON(updated)
}

func ListTags(ctx iris.Context) {
	var tags []models.CardTag
	if err := storage.DB.Order(`"order" ASC`).Find(&tags).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(tags)
}

func SkipCard(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if err := Cards.Skip(userID, id); err != nil {
		handleActionError(err, ctx)
		return
	}
	ctx.StatusCode(iris.StatusOK)
}

type CreateCardRequestInput struct {
	RoommatesNumber uint   `json:"roommatesNumber" validate:"required,min=1"`
	CoveringLetter  string `json:"coveringLetter" validate:"max=2048"`
}

func CreateCardRequest(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	cardID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input CreateCardRequestInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	request, err := Requests.Create(userID, cardID, services.CreateCardRequestInput{
		RoommatesNumber: input.RoommatesNumber,
		CoveringLetter:  input.CoveringLetter,
	})
	if err != nil {
		handleActionError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(request)
}

func CancelCardRequest(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	cardID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if err := Requests.Cancel(userID, cardID); err != nil {
		handleActionError(err, ctx)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}

// GetCardRequests lists a card's requests grouped by status. Owner only.
func GetCardRequests(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	cardID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	card, err := Cards.Get(cardID)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if card.OwnerID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	requests, err := Requests.ByCard(cardID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(requests)
}

func MyRequests(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	requests, err := Requests.ByUser(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(requests)
}

type HandleCardRequestInput struct {
	UserID uint   `json:"userID" validate:"required"`
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// HandleCardRequest adjudicates a request on the owner's card.
func HandleCardRequest(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)
	cardID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	card, err := Cards.Get(cardID)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if card.OwnerID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	var input HandleCardRequestInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	request, err := Requests.HandleRequest(input.UserID, cardID, input.Status)
	if err != nil {
		handleActionError(err, ctx)
		return
	}
	ctx.JSON(request)
}
