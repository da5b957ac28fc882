package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danukusuma/servehub_be/internal/models"
)

type ServiceHandler struct {
	DB *gorm.DB
}

func (h *ServiceHandler) ListCategories(c *fiber.Ctx) error {
	var list []models.ServiceCategory
	if err := h.DB.Order("name ASC").Find(&list).Error; err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", list)
}

// List is public and supports category and text filters.
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	q := h.DB.Preload("Category").Preload("Provider").Where("is_active = ?", true)

	if cat := c.Query("category_id"); cat != "" {
		q = q.Where("category_id = ?", cat)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var list []models.Service
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", list)
}

func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	var svc models.Service
	if err := h.DB.Preload("Category").Preload("Provider").
		First(&svc, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "service not found",
		})
	}
	return ok(c, "OK", svc)
}

type CreateServiceReq struct {
	CategoryID      uint   `json:"category_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	CreditsRequired int    `json:"credits_required"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Create registers a new service for the calling provider.
func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateServiceReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	errs := FieldErrors{}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		errs.Add("title", "Title is required")
	}
	if req.CategoryID == 0 {
		errs.Add("category_id", "Category is required")
	}
	price, perr := decimal.NewFromString(req.Price)
	if perr != nil || price.IsNegative() {
		errs.Add("price", "Invalid price")
	}
	if req.CreditsRequired < 0 {
		errs.Add("credits_required", "Cannot be negative")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var cat models.ServiceCategory
	if err := h.DB.First(&cat, "id = ?", req.CategoryID).Error; err != nil {
		return badRequest(c, "unknown category")
	}

	svc := models.Service{
		ProviderID:      uid,
		CategoryID:      req.CategoryID,
		Title:           title,
		Description:     req.Description,
		Price:           price,
		CreditsRequired: req.CreditsRequired,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}
	if err := h.DB.Create(&svc).Error; err != nil {
		return fail(c, err)
	}
	return created(c, "Service created", svc)
}

type UpdateServiceReq struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Price           *string `json:"price"`
	CreditsRequired *int    `json:"credits_required"`
	DurationMinutes *int    `json:"duration_minutes"`
	IsActive        *bool   `json:"is_active"`
}

func (h *ServiceHandler) Update(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var svc models.Service
	if err := h.DB.First(&svc, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "service not found",
		})
	}
	if svc.ProviderID != uid {
		return fiber.ErrForbidden
	}

	var req UpdateServiceReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			return badRequest(c, "invalid price")
		}
		updates["price"] = price
	}
	if req.CreditsRequired != nil {
		updates["credits_required"] = *req.CreditsRequired
	}
	if req.DurationMinutes != nil {
		updates["duration_minutes"] = *req.DurationMinutes
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return badRequest(c, "nothing to update")
	}

	if err := h.DB.Model(&svc).Updates(updates).Error; err != nil {
		return fail(c, err)
	}
	return ok(c, "Service updated", svc)
}
