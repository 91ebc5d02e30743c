package handlers

import (
	"github.com/gofiber/fiber/v2"

	"table-session-bot/middleware"
	"table-session-bot/models"
)

func (h *Handler) getCapacity(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	info, err := h.Registrations.GetTableCapacityInfo(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (h *Handler) listPlayers(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Tables.GetTableByID(c.UserContext(), id); err != nil {
		return err
	}
	players, err := h.Registrations.GetRegistrationsForTable(c.UserContext(), id)
	if err != nil {
		return err
	}
	if players == nil {
		players = []models.Registrant{}
	}
	return c.JSON(fiber.Map{"players": players})
}

func (h *Handler) join(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)

	regID, reactivated, err := h.Registrations.CreateRegistration(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	info, err := h.Registrations.GetTableCapacityInfo(c.UserContext(), id)
	if err != nil {
		return err
	}
	status := fiber.StatusCreated
	if reactivated {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"registration_id": regID,
		"reactivated":     reactivated,
		"capacity":        info,
	})
}

func (h *Handler) unjoin(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	left, err := h.Registrations.UnjoinRegistration(c.UserContext(), id, middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"left": left})
}

// myRegistrations lists the caller's tables; ?active_only=true drops the ones they left.
func (h *Handler) myRegistrations(c *fiber.Ctx) error {
	tables, err := h.Registrations.GetUserRegistrations(c.UserContext(),
		middleware.CurrentUser(c).ID, c.QueryBool("active_only", false))
	return h.respondTables(c, tables, err)
}
