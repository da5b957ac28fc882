package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
)

type AddressHandler struct {
	DB *gorm.DB
}

func (h *AddressHandler) List(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var list []models.Address
	if err := h.DB.Where("user_id = ?", uid).
		Order("is_default DESC, created_at DESC").
		Find(&list).Error; err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", list)
}

type AddressReq struct {
	AddressType string   `json:"address_type"` // home / work / other
	Street      string   `json:"street"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PostalCode  string   `json:"postal_code"`
	Country     string   `json:"country"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	IsDefault   bool     `json:"is_default"`
}

func (h *AddressHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req AddressReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	addrType := strings.ToLower(strings.TrimSpace(req.AddressType))
	switch addrType {
	case "home", "work", "other":
	case "":
		addrType = "home"
	default:
		return badRequest(c, "address_type must be home, work or other")
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Street) == "" {
		errs.Add("street", "Street is required")
	}
	if strings.TrimSpace(req.City) == "" {
		errs.Add("city", "City is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	addr := models.Address{
		UserID:        uid,
		AddressType:   models.AddressType(addrType),
		StreetAddress: strings.TrimSpace(req.Street),
		City:          strings.TrimSpace(req.City),
		State:         strings.TrimSpace(req.State),
		PostalCode:    strings.TrimSpace(req.PostalCode),
		Country:       strings.TrimSpace(req.Country),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		IsDefault:     req.IsDefault,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if addr.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("user_id = ?", uid).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&addr).Error
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, "Address saved", addr)
}

func (h *AddressHandler) Delete(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid address id")
	}

	result := h.DB.Where("id = ? AND user_id = ?", id, uid).Delete(&models.Address{})
	if result.Error != nil {
		return fail(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "address not found",
		})
	}
	return ok(c, "Address deleted", nil)
}

func (h *AddressHandler) SetDefault(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid address id")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var addr models.Address
		if err := tx.First(&addr, "id = ? AND user_id = ?", id, uid).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Address{}).
			Where("user_id = ?", uid).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&addr).Update("is_default", true).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "address not found",
			})
		}
		return fail(c, err)
	}
	return ok(c, "Default address updated", nil)
}
