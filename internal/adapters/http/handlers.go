package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

// CreateRegionHandler stores a region from {name, code, level, geometry}.
func CreateRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Regions == nil {
			return errUnavailable(c, "region store not available")
		}
		var req domain.NewRegion
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		n, err := deps.Regions.Create(c.UserContext(), &req)
		if errors.Is(err, domain.ErrValidation) {
			return errBadRequest(c, err.Error())
		}
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("create region failed", "code", req.Code, "error", err)
			return errInternal(c, "failed to create region: "+err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rows_affected": n})
	}
}

// ListRegionsHandler returns every region as a GeoJSON FeatureCollection.
// With ?limit= the features are paginated and Link headers set.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Regions == nil {
			return errUnavailable(c, "region store not available")
		}
		fc, err := deps.Regions.FeatureCollection(c.UserContext())
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("list regions failed", "error", err)
			return errInternal(c, err.Error())
		}

		if c.Query("limit") != "" {
			p := Pagination{
				Offset: c.QueryInt("offset", 0),
				Limit:  c.QueryInt("limit", 100),
				Total:  len(fc.Features),
			}
			if p.Offset < 0 {
				p.Offset = 0
			}
			if p.Limit <= 0 || p.Limit > 500 {
				p.Limit = 100
			}
			page := geojson.NewFeatureCollection()
			if p.Offset < p.Total {
				end := min(p.Offset+p.Limit, p.Total)
				page.Features = fc.Features[p.Offset:end]
			}
			fc = page
			SetLinkHeaders(c, p)
			c.Set("X-Total-Count", strconv.Itoa(p.Total))
		}

		return c.JSON(fc)
	}
}

// GetRegionHandler returns the stored row for a code, or null.
func GetRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Regions == nil {
			return errUnavailable(c, "region store not available")
		}
		code := strings.TrimSpace(c.Params("code"))
		region, err := deps.Regions.GetByCode(c.UserContext(), code)
		if errors.Is(err, domain.ErrValidation) {
			return errBadRequest(c, err.Error())
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		if region == nil {
			c.Set("Content-Type", fiber.MIMEApplicationJSON)
			return c.SendString("null")
		}
		return c.JSON(region)
	}
}
