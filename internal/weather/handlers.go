package weather

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Defaults center on Gurugram, matching the dashboard's initial view.
const (
	defaultLat = 28.4595
	defaultLng = 77.0266
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			lat = defaultLat
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			lng = defaultLng
		}
		return c.JSON(svc.Current(c.Context(), lat, lng))
	})
}
