package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
)

type ProviderHandler struct {
	DB *gorm.DB
}

type BecomeProviderReq struct {
	AccountType  string `json:"account_type"` // individual / business
	BusinessName string `json:"business_name"`
	Description  string `json:"description"`
}

// BecomeProvider upgrades a customer account: flips the role and creates the
// provider profile in one transaction.
func (h *ProviderHandler) BecomeProvider(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req BecomeProviderReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	accountType := strings.ToLower(strings.TrimSpace(req.AccountType))
	if accountType == "" {
		accountType = "individual"
	}
	if accountType != "individual" && accountType != "business" {
		return badRequest(c, "account_type must be individual or business")
	}
	if accountType == "business" && strings.TrimSpace(req.BusinessName) == "" {
		return badRequest(c, "business_name is required for business accounts")
	}

	var profile models.ProviderProfile
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", uid).Error; err != nil {
			return err
		}

		var existing models.ProviderProfile
		if err := tx.First(&existing, "user_id = ?", uid).Error; err == nil {
			return fiber.NewError(fiber.StatusConflict, "already a provider")
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		profile = models.ProviderProfile{
			UserID:       uid,
			AccountType:  models.AccountType(accountType),
			BusinessName: strings.TrimSpace(req.BusinessName),
			Description:  req.Description,
			IsAvailable:  true,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		return tx.Model(&u).Update("role", models.RoleProvider).Error
	})
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		}
		return fail(c, err)
	}
	return created(c, "Provider profile created", profile)
}

// Dashboard summarizes the provider's profile, earnings, and booking counts.
func (h *ProviderHandler) Dashboard(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var profile models.ProviderProfile
	if err := h.DB.First(&profile, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "provider profile not found",
		})
	}

	counts := map[string]int64{}
	for _, status := range []models.BookingStatus{
		models.BookingStatusPending,
		models.BookingStatusConfirmed,
		models.BookingStatusOngoing,
		models.BookingStatusCompleted,
		models.BookingStatusCancelled,
	} {
		var n int64
		if err := h.DB.Model(&models.Booking{}).
			Where("provider_id = ? AND status = ?", uid, status).
			Count(&n).Error; err != nil {
			return fail(c, err)
		}
		counts[string(status)] = n
	}

	var reviewCount int64
	if err := h.DB.Model(&models.Review{}).
		Where("provider_id = ?", uid).
		Count(&reviewCount).Error; err != nil {
		return fail(c, err)
	}

	return ok(c, "OK", fiber.Map{
		"profile":        profile,
		"booking_counts": counts,
		"review_count":   reviewCount,
	})
}

type AvailabilityReq struct {
	IsAvailable bool `json:"is_available"`
}

func (h *ProviderHandler) SetAvailability(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req AvailabilityReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	result := h.DB.Model(&models.ProviderProfile{}).
		Where("user_id = ?", uid).
		Update("is_available", req.IsAvailable)
	if result.Error != nil {
		return fail(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "provider profile not found",
		})
	}
	return ok(c, "Availability updated", fiber.Map{"is_available": req.IsAvailable})
}
