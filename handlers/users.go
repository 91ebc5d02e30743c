package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"table-session-bot/middleware"
	"table-session-bot/services"
)

type startRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type muteRequest struct {
	Mute *bool `json:"mute"`
}

// start registers the caller on first contact and is a no-op afterwards.
func (h *Handler) start(c *fiber.Ctx) error {
	externalID, _ := middleware.ExternalID(c)
	var req startRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	user, created, err := h.Users.EnsureUser(c.UserContext(), externalID, req.Username, req.FirstName, req.LastName)
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"user": user, "created": created})
}

func (h *Handler) setMute(c *fiber.Ctx) error {
	var req muteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Mute == nil {
		return fmt.Errorf("%w: mute is required", services.ErrValidation)
	}
	user := middleware.CurrentUser(c)
	if _, err := h.Users.MuteUser(c.UserContext(), user.ExternalID, *req.Mute); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"mute": *req.Mute})
}
