package trip

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		email := c.Query("email")
		if email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email required")
		}
		trips, err := svc.History(c.Context(), email)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch trips")
		}
		return c.JSON(fiber.Map{"trips": trips})
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		t, err := svc.Start(c.Context(), body.UserID, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	r.Patch("/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		var sum EndSummary
		if err := c.BodyParser(&sum); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		t, err := svc.End(c.Context(), c.Params("id"), sum)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		return c.JSON(t)
	})

	r.Post("/:id/events", authMiddleware, func(c *fiber.Ctx) error {
		var e Event
		if err := c.BodyParser(&e); err != nil || e.Type == "" {
			return fiber.NewError(fiber.StatusBadRequest, "type required")
		}
		saved, err := svc.AddEvent(c.Context(), c.Params("id"), e)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})
}
