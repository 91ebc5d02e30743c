package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"table-session-bot/middleware"
	"table-session-bot/services"
)

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrReferenceNotFound),
		errors.Is(err, services.ErrNothingToPublish):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyRegistered), errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrTableFull):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrTransientStore), errors.Is(err, services.ErrStorageDisabled):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a route as {"error": ...}.
// Unexpected errors are logged and hidden from the caller.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		msg := err.Error()
		if status == fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"request_id": middleware.GetRequestID(c),
				"path":       c.Path(),
			}).Error("unhandled error")
			msg = "internal server error"
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", services.ErrValidation, name, c.Params(name))
	}
	return uint(id), nil
}

func paramExternalID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("external_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid external id %q", services.ErrValidation, c.Params("external_id"))
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", services.ErrValidation, err)
	}
	return nil
}
