package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/services/payments"
	"github.com/danukusuma/servehub_be/internal/services/stripegw"
)

type PaymentHandler struct {
	DB           *gorm.DB
	Orchestrator *payments.Orchestrator
	Gateway      *stripegw.Client
}

type ProcessPaymentReq struct {
	BookingID        string `json:"booking_id"`
	PaymentType      string `json:"payment_type"` // immediate / later / installment / credits
	PaymentMethod    string `json:"payment_method"`
	InstallmentCount int    `json:"installment_count"`
}

func (h *PaymentHandler) Process(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req ProcessPaymentReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	ptype := models.PaymentType(req.PaymentType)
	switch ptype {
	case models.PaymentTypeImmediate, models.PaymentTypeLater, models.PaymentTypeInstallment, models.PaymentTypeCredits:
	case "":
		ptype = models.PaymentTypeImmediate
	default:
		return badRequest(c, "unknown payment type")
	}

	p, err := h.Orchestrator.Process(uid, payments.ProcessInput{
		BookingID:        bookingID,
		PaymentType:      ptype,
		PaymentMethod:    models.PaymentMethod(req.PaymentMethod),
		InstallmentCount: req.InstallmentCount,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, "Payment processed", p)
}

type CreateIntentReq struct {
	BookingID string `json:"booking_id"`
}

// CreateIntent opens a gateway payment intent for client-side confirmation.
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateIntentReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	res, err := h.Orchestrator.CreateIntent(uid, bookingID)
	if err != nil {
		return fail(c, err)
	}
	return created(c, "Payment intent created", res)
}

// Confirm settles an intent-based payment server-side.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	p, err := h.Orchestrator.ConfirmPayment(uid, paymentID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Payment confirmed", p)
}

type RefundReq struct {
	Amount string `json:"amount"` // empty = full refund
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	var req RefundReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		a, err := decimal.NewFromString(req.Amount)
		if err != nil || a.IsNegative() || a.IsZero() {
			return badRequest(c, "invalid refund amount")
		}
		amount = &a
	}

	p, err := h.Orchestrator.Refund(uid, paymentID, amount)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Payment refunded", p)
}

// List returns the caller's payments, newest first.
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var list []models.Payment
	if err := h.DB.Preload("Installments").
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", list)
}

// HandleCallback receives gateway webhooks. The signature is verified against
// the raw body before anything in the payload is trusted; a bad signature is
// rejected, but a valid event we cannot reconcile still returns 200 so the
// gateway stops retrying.
func (h *PaymentHandler) HandleCallback(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Callback-Signature")

	if !h.Gateway.VerifySignature(body, signature) {
		log.Printf("Webhook rejected: invalid signature")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid signature",
		})
	}

	var event payments.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return badRequest(c, "invalid payload")
	}
	if event.RawPayload == nil {
		event.RawPayload = json.RawMessage(body)
	}

	if err := h.Orchestrator.HandleWebhook(event); err != nil {
		log.Printf("Webhook %s failed: %v", event.Type, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "reconciliation failed",
		})
	}
	return ok(c, "OK", nil)
}
