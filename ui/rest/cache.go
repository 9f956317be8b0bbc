package rest

import (
	"github.com/gofiber/fiber/v2"

	domainCache "github.com/snapfood/snapfood-engine/domains/cache"
	"github.com/snapfood/snapfood-engine/pkg/utils"
)

type Cache struct {
	Service domainCache.ICacheUsecase
}

func InitRestCache(app fiber.Router, service domainCache.ICacheUsecase) Cache {
	rest := Cache{Service: service}

	group := app.Group("/cache")
	group.Get("/stats", rest.GetStats)
	group.Post("/clear", rest.ClearCache)
	group.Get("/settings", rest.GetSettings)
	group.Put("/settings", rest.UpdateSettings)

	return rest
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	stats, err := handler.Service.GetStats(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: stats,
	})
}

func (handler *Cache) ClearCache(c *fiber.Ctx) error {
	err := handler.Service.ClearCache(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache cleared successfully",
	})
}

func (handler *Cache) GetSettings(c *fiber.Ctx) error {
	settings, err := handler.Service.GetSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache settings retrieved",
		Results: settings,
	})
}

func (handler *Cache) UpdateSettings(c *fiber.Ctx) error {
	var settings domainCache.CacheSettings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := handler.Service.SaveSettings(c.UserContext(), settings)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache settings updated successfully",
	})
}
