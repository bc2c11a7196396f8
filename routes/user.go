package routes

import (
	"time"

	"roommate-server/services"
	"roommate-server/utils"

	"github.com/kataras/iris/v12"
)

type SendAuthorizationCodeInput struct {
	Login string `json:"login" validate:"required"`
}

func SendAuthorizationCode(ctx iris.Context) {
	var input SendAuthorizationCodeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	code, err := Users.SendAuthorizationCode(ctx.Request().Context(), input.Login)
	if err != nil {
		handleActionError(err, ctx)
		return
	}

	ctx.JSON(iris.Map{
		"login":          code.Login,
		"expirationDate": code.ExpirationDate,
	})
}

type AuthorizeInput struct {
	Login string `json:"login" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// Authorize redeems a login code for a token pair.
func Authorize(ctx iris.Context) {
	var input AuthorizeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	user, err := Users.Authorize(input.Login, input.Code)
	if err != nil {
		handleActionError(err, ctx)
		return
	}

	tokenPair, err := utils.CreateTokenPair(user.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
		"user":         user,
	})
}

type RegisterInput struct {
	FirstName  string     `json:"firstName" validate:"required,max=150"`
	LastName   string     `json:"lastName" validate:"required,max=150"`
	Patronymic string     `json:"patronymic" validate:"max=150"`
	Email      string     `json:"email" validate:"omitempty,email"`
	Dob        *time.Time `json:"dob"`
	Gender     string     `json:"gender" validate:"omitempty,oneof=male female"`
	AboutMe    string     `json:"aboutMe" validate:"max=2048"`
}

func Register(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	var input RegisterInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	user, err := Users.Register(ctx.Request().Context(), userID, services.RegisterInput{
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Patronymic: input.Patronymic,
		Email:      input.Email,
		Dob:        input.Dob,
		Gender:     input.Gender,
		AboutMe:    input.AboutMe,
	})
	if err != nil {
		handleActionError(err, ctx)
		return
	}
	ctx.JSON(user)
}

func GetUser(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	user, err := Users.Get(id)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(user)
}

func Me(ctx iris.Context) {
	userID := utils.ContextUserID(ctx)

	user, err := Users.Get(userID)
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(user)
}
