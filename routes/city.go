package routes

import (
	"roommate-server/models"
	"roommate-server/storage"
	"roommate-server/utils"

	"github.com/kataras/iris/v12"
)

func ListCities(ctx iris.Context) {
	var cities []models.City
	if err := storage.DB.Order(`"order" ASC, name ASC`).Find(&cities).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(cities)
}

func GetCity(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var city models.City
	if err := storage.DB.First(&city, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(city)
}
