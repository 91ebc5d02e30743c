package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"table-session-bot/middleware"
	"table-session-bot/services"
)

// publish builds the active table announcement for the bot to deliver.
// With ?archive=true a snapshot is also stored in the bucket.
func (h *Handler) publish(c *fiber.Ctx) error {
	a, err := h.Publisher.BuildAnnouncement(c.UserContext())
	if err != nil {
		return err
	}
	resp := fiber.Map{"announcement": a, "recipients": a.Recipients}

	if c.QueryBool("archive", false) {
		url, err := h.Publisher.ArchiveListing(c.UserContext(), a)
		switch {
		case errors.Is(err, services.ErrStorageDisabled):
			return err
		case err != nil:
			return fiber.NewError(fiber.StatusBadGateway, "listing archive failed")
		}
		resp["archive_url"] = url
	}

	h.log.WithFields(logrus.Fields{
		"admin":      middleware.CurrentUser(c).ExternalID,
		"tables":     len(a.Tables),
		"recipients": len(a.Recipients),
	}).Info("tables published")
	return c.JSON(resp)
}

func (h *Handler) grantRole(c *fiber.Ctx) error {
	return h.setRole(c, true)
}

func (h *Handler) revokeRole(c *fiber.Ctx) error {
	return h.setRole(c, false)
}

func (h *Handler) setRole(c *fiber.Ctx, value bool) error {
	externalID, err := paramExternalID(c)
	if err != nil {
		return err
	}

	var ok bool
	switch role := c.Params("role"); role {
	case "master":
		ok, err = h.Users.SetMaster(c.UserContext(), externalID, value)
	case "admin":
		if !value && externalID == middleware.CurrentUser(c).ExternalID {
			return fmt.Errorf("%w: admins cannot revoke their own admin role", services.ErrValidation)
		}
		ok, err = h.Users.SetAdmin(c.UserContext(), externalID, value)
	default:
		return fmt.Errorf("%w: unknown role %q", services.ErrValidation, role)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", externalID, services.ErrNotFound)
	}
	return c.JSON(fiber.Map{"external_id": externalID, "role": c.Params("role"), "granted": value})
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	externalID, err := paramExternalID(c)
	if err != nil {
		return err
	}
	ok, err := h.Users.DeleteUser(c.UserContext(), externalID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", externalID, services.ErrNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
