package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/danukusuma/servehub_be/internal/services/credits"
)

type CreditsHandler struct {
	Ledger *credits.Ledger
}

func (h *CreditsHandler) Balance(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	balance, err := h.Ledger.Balance(uid)
	if err != nil {
		return fail(c, err)
	}
	history, err := h.Ledger.Recent(uid, 20)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, "OK", fiber.Map{
		"balance":      balance,
		"transactions": history,
	})
}

type PurchaseCreditsReq struct {
	Amount int `json:"amount"`
}

func (h *CreditsHandler) Purchase(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req PurchaseCreditsReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	row, err := h.Ledger.Purchase(uid, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return created(c, "Credits purchased", row)
}
