package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/danukusuma/servehub_be/internal/apperr"
)

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, fmt.Errorf("unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return uuid.Nil, fmt.Errorf("invalid userId type: %T", v)
	}
}

// fail maps a service error to an HTTP response in the standard envelope.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
		message = err.Error()
	case apperr.KindNotAuthorized:
		status = fiber.StatusForbidden
		message = err.Error()
	case apperr.KindValidation:
		status = fiber.StatusBadRequest
		message = err.Error()
	case apperr.KindInvalidTransition,
		apperr.KindAlreadyPaid,
		apperr.KindAlreadyRefunded,
		apperr.KindDuplicateReview,
		apperr.KindBookingNotCompleted:
		status = fiber.StatusConflict
		message = err.Error()
	case apperr.KindInsufficientCredits:
		status = fiber.StatusPaymentRequired
		message = err.Error()
	case apperr.KindGateway:
		status = fiber.StatusBadGateway
		message = err.Error()
	default:
		log.Printf("Unhandled error: %v", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func ok(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}
