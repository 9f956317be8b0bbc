package rest

import (
	"github.com/gofiber/fiber/v2"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
	"github.com/snapfood/snapfood-engine/pkg/prefetch"
	"github.com/snapfood/snapfood-engine/pkg/utils"
)

type Dish struct {
	Service domainDish.IDishImageUsecase
	Pool    *prefetch.Pool
}

func InitRestDish(app fiber.Router, service domainDish.IDishImageUsecase, pool *prefetch.Pool) Dish {
	rest := Dish{Service: service, Pool: pool}

	group := app.Group("/dish")
	group.Get("/images", rest.ResolveGallery)
	group.Get("/thumbnail", rest.ResolveThumbnail)
	group.Post("/prefetch", rest.Prefetch)
	group.Get("/prefetch/stats", rest.PrefetchStats)

	return rest
}

func (handler *Dish) ResolveGallery(c *fiber.Ctx) error {
	var query domainDish.Query
	if err := c.QueryParser(&query); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	gallery, err := handler.Service.ResolveGallery(c.UserContext(), query)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Gallery resolved",
		Results: gallery,
	})
}

func (handler *Dish) ResolveThumbnail(c *fiber.Ctx) error {
	name := c.Query("name")
	category := c.Query("category")

	thumbnail, err := handler.Service.ResolveThumbnail(c.UserContext(), name, category)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Thumbnail resolved",
		Results: thumbnail,
	})
}

type prefetchRequest struct {
	Items []struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"items"`
}

type prefetchResult struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// Prefetch enqueues thumbnail warmups for a list of dishes. Jobs that do not
// fit the queue are dropped and reported, never waited on.
func (handler *Dish) Prefetch(c *fiber.Ctx) error {
	var request prefetchRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	var result prefetchResult
	for _, item := range request.Items {
		if handler.Pool.TryDispatch(prefetch.ThumbnailJob{Name: item.Name, Category: item.Category}) {
			result.Accepted++
		} else {
			result.Dropped++
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Prefetch jobs enqueued",
		Results: result,
	})
}

func (handler *Dish) PrefetchStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Prefetch pool stats retrieved",
		Results: handler.Pool.GetStats(),
	})
}
