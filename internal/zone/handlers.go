package zone

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultRadiusKm = 50.0

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude required")
		}
		radius, err := strconv.ParseFloat(c.Query("radius"), 64)
		if err != nil || radius <= 0 {
			radius = defaultRadiusKm
		}

		resp, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch zones")
		}
		return c.JSON(resp)
	})
}
