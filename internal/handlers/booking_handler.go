package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
	"github.com/danukusuma/servehub_be/internal/services/booking"
)

type BookingHandler struct {
	DB           *gorm.DB
	StateMachine *booking.StateMachine
}

type CreateBookingReq struct {
	ServiceID     uint   `json:"service_id"`
	ScheduledDate string `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime string `json:"scheduled_time"` // HH:MM
	Notes         string `json:"notes"`
	PaymentMethod string `json:"payment_method"`
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateBookingReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ServiceID == 0 {
		return badRequest(c, "service_id is required")
	}

	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return badRequest(c, "scheduled_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return badRequest(c, "scheduled_time must be HH:MM")
	}

	method := models.PaymentMethod(req.PaymentMethod)
	switch method {
	case models.MethodCard, models.MethodPaypal, models.MethodCredits, models.MethodCash:
	case "":
		method = models.MethodCard
	default:
		return badRequest(c, "unknown payment method")
	}

	b, err := h.StateMachine.Create(uid, booking.CreateInput{
		ServiceID:     req.ServiceID,
		ScheduledDate: date,
		ScheduledTime: req.ScheduledTime,
		Notes:         req.Notes,
		PaymentMethod: method,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, "Booking created", b)
}

// List returns the caller's bookings, role-scoped: customers see bookings they
// made, providers see bookings for their services.
func (h *BookingHandler) List(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	q := h.DB.Preload("Service").Preload("Customer").Preload("Provider")
	role, _ := c.Locals("role").(string)
	if role == string(models.RoleProvider) {
		q = q.Where("provider_id = ?", uid)
	} else {
		q = q.Where("customer_id = ?", uid)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var list []models.Booking
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", list)
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	var b models.Booking
	if err := h.DB.Preload("Service").Preload("Customer").Preload("Provider").Preload("Payments").
		First(&b, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "booking not found",
		})
	}
	if b.CustomerID != uid && b.ProviderID != uid {
		return fiber.ErrForbidden
	}
	return ok(c, "OK", b)
}

func (h *BookingHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, h.StateMachine.Accept, "Booking accepted")
}

func (h *BookingHandler) Decline(c *fiber.Ctx) error {
	return h.transition(c, h.StateMachine.Decline, "Booking declined")
}

func (h *BookingHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, h.StateMachine.Start, "Booking started")
}

func (h *BookingHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, h.StateMachine.Complete, "Booking completed")
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.StateMachine.Cancel, "Booking cancelled")
}

type RescheduleReq struct {
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
}

func (h *BookingHandler) Reschedule(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	var req RescheduleReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	var date time.Time
	if req.ScheduledDate != "" {
		date, err = time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			return badRequest(c, "scheduled_date must be YYYY-MM-DD")
		}
	}
	if req.ScheduledTime != "" {
		if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
			return badRequest(c, "scheduled_time must be HH:MM")
		}
	}

	b, err := h.StateMachine.Reschedule(id, uid, date, req.ScheduledTime)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Booking rescheduled", b)
}

func (h *BookingHandler) transition(c *fiber.Ctx, fn func(bookingID, actorID uuid.UUID) (*models.Booking, error), message string) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	b, err := fn(id, uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, message, b)
}
