package rest

import (
	"strconv"

	domainCache "github.com/AzielCF/az-qcache/domains/cache"
	"github.com/AzielCF/az-qcache/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Cache struct {
	Service domainCache.ICacheUsecase
}

func InitRestCache(app fiber.Router, service domainCache.ICacheUsecase) Cache {
	rest := Cache{Service: service}
	app.Get("/cache/entries", rest.ListEntries)
	app.Get("/cache/entries/:id", rest.GetEntry)
	app.Delete("/cache/entries/:id", rest.Invalidate)
	app.Get("/cache/lookup/:id", rest.Lookup)
	app.Get("/cache/stats", rest.GetStats)
	app.Get("/cache/config", rest.GetConfig)
	app.Put("/cache/config", rest.UpdateConfig)
	app.Post("/cache/shrink", rest.Shrink)
	app.Post("/cache/shrink/one", rest.ShrinkOne)
	app.Post("/cache/resync", rest.Resync)

	return rest
}

func (handler *Cache) ListEntries(c *fiber.Ctx) error {
	entries, err := handler.Service.ListEntries(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache entries retrieved",
		Results: entries,
	})
}

func (handler *Cache) GetEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	entry, err := handler.Service.GetEntry(c.UserContext(), id)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache entry retrieved",
		Results: entry,
	})
}

// Invalidate removes one entry; with ?cascade=true every transitive
// dependent goes with it.
func (handler *Cache) Invalidate(c *fiber.Ctx) error {
	id := c.Params("id")
	cascade := c.QueryBool("cascade", false)

	report, err := handler.Service.Invalidate(c.UserContext(), id, cascade)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache entry invalidated",
		Results: report,
	})
}

func (handler *Cache) Lookup(c *fiber.Ctx) error {
	id := c.Params("id")
	status, err := handler.Service.Lookup(c.UserContext(), id)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Lookup completed",
		Results: fiber.Map{"fingerprint": id, "status": status},
	})
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	stats, err := handler.Service.Stats(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: stats,
	})
}

func (handler *Cache) GetConfig(c *fiber.Ctx) error {
	cfg, err := handler.Service.GetConfig(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache config retrieved",
		Results: cfg,
	})
}

func (handler *Cache) UpdateConfig(c *fiber.Ctx) error {
	var cfg domainCache.CacheConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := handler.Service.SetConfig(c.UserContext(), cfg)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache config updated successfully",
	})
}

// Shrink evicts until the cache fits the target size. Without a target the
// configured cache size limit applies.
func (handler *Cache) Shrink(c *fiber.Ctx) error {
	var targetBytes int64
	if v := c.Query("target_bytes"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: "target_bytes must be a non-negative integer",
			})
		}
		targetBytes = parsed
	}

	report, err := handler.Service.ShrinkBelowSize(c.UserContext(), targetBytes)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache shrink completed",
		Results: report,
	})
}

func (handler *Cache) ShrinkOne(c *fiber.Ctx) error {
	evicted, err := handler.Service.ShrinkOne(c.UserContext())
	utils.PanicIfNeeded(err)

	if evicted == nil {
		return c.JSON(utils.ResponseData{
			Status:  200,
			Code:    "SUCCESS",
			Message: "No unprotected entries to evict",
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Evicted one cache entry",
		Results: evicted,
	})
}

func (handler *Cache) Resync(c *fiber.Ctx) error {
	report, err := handler.Service.Resync(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tracker resynced from metadata store",
		Results: report,
	})
}
