package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/danukusuma/servehub_be/internal/services/reviews"
)

type ReviewHandler struct {
	Aggregator *reviews.Aggregator
}

type SubmitReviewReq struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req SubmitReviewReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	review, err := h.Aggregator.Submit(uid, reviews.SubmitInput{
		BookingID: bookingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, "Review submitted", review)
}

type RespondReviewReq struct {
	Response string `json:"response"`
}

func (h *ReviewHandler) Respond(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	reviewID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid review id")
	}

	var req RespondReviewReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Response == "" {
		return badRequest(c, "response is required")
	}

	review, err := h.Aggregator.Respond(uid, reviewID, req.Response)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Response saved", review)
}

// ListForProvider is public: anyone browsing a provider can read reviews.
func (h *ReviewHandler) ListForProvider(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("providerId"))
	if err != nil {
		return badRequest(c, "invalid provider id")
	}

	list, err := h.Aggregator.ForProvider(providerID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", list)
}
