package utils

import (
	"roommate-server/models"
	"roommate-server/storage"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// UserIDFromTokenMiddleware extracts the user ID from the JWT and stores it
// in the request context.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// FullyRegisteredMiddleware rejects users who have not completed registration
// (no consent to processing of personal data yet).
func FullyRegisteredMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)

	var user models.User
	if err := storage.DB.Select("id, consent_at").First(&user, claims.ID).Error; err != nil {
		CreateNotFound(ctx)
		return
	}
	if !user.IsRegistered() {
		CreateError(iris.StatusForbidden, "Registration Required", "Complete registration before using this endpoint.", ctx)
		return
	}

	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// ContextUserID returns the authenticated user's ID stored by the
// middlewares above.
func ContextUserID(ctx iris.Context) uint {
	return ctx.Values().Get("userID").(uint)
}
