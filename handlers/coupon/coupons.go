package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CouponHandler handles discount coupon management
type CouponHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(db *gorm.DB) *CouponHandler {
	return &CouponHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreateCouponRequest represents the request body for creating a coupon
type CreateCouponRequest struct {
	Code           string     `json:"code" validate:"required,min=3,max=50"`
	Type           string     `json:"type" validate:"required,oneof=percent flat"`
	Value          float64    `json:"value" validate:"required,gt=0"`
	MaxRedemptions int        `json:"max_redemptions" validate:"gte=0"`
	ValidFrom      *time.Time `json:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until"`
	Active         *bool      `json:"active"` // omitted means active
}

// UpdateCouponRequest represents the request body for updating a coupon
type UpdateCouponRequest struct {
	MaxRedemptions *int       `json:"max_redemptions" validate:"omitempty,gte=0"`
	ValidUntil     *time.Time `json:"valid_until"`
	Active         *bool      `json:"active"`
}

// ListCoupons handles GET /api/v1/admin/coupons
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	var coupons []model.Coupon
	if err := h.db.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch coupons")
	}

	return response.Success(c, coupons)
}

// CreateCoupon handles POST /api/v1/admin/coupons
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	code := strings.ToUpper(validation.SanitizeString(req.Code))

	if req.Type == model.CouponTypePercent && req.Value > 100 {
		return response.BadRequest(c, "Percent discount cannot exceed 100")
	}

	var existing model.Coupon
	if err := h.db.Where("lower(code) = lower(?)", code).First(&existing).Error; err == nil {
		return response.Conflict(c, "Coupon with this code already exists")
	}

	coupon := model.Coupon{
		Code:           code,
		Type:           req.Type,
		Value:          req.Value,
		MaxRedemptions: req.MaxRedemptions,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		Active:         req.Active == nil || *req.Active,
	}

	if err := h.db.Create(&coupon).Error; err != nil {
		return response.InternalServerError(c, "Failed to create coupon")
	}

	return response.Created(c, coupon)
}

// UpdateCoupon handles PUT /api/v1/admin/coupons/:id
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var coupon model.Coupon
	if err := h.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Coupon not found")
		}
		return response.InternalServerError(c, "Failed to fetch coupon")
	}

	if req.MaxRedemptions != nil {
		coupon.MaxRedemptions = *req.MaxRedemptions
	}
	if req.ValidUntil != nil {
		coupon.ValidUntil = req.ValidUntil
	}
	if req.Active != nil {
		coupon.Active = *req.Active
	}

	if err := h.db.Save(&coupon).Error; err != nil {
		return response.InternalServerError(c, "Failed to update coupon")
	}

	return response.SuccessWithMessage(c, "Coupon updated successfully", coupon)
}

// DeleteCoupon handles DELETE /api/v1/admin/coupons/:id
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id := c.Params("id")

	var coupon model.Coupon
	if err := h.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Coupon not found")
		}
		return response.InternalServerError(c, "Failed to fetch coupon")
	}

	if err := h.db.Delete(&coupon).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete coupon")
	}

	return response.SuccessWithMessage(c, "Coupon deleted successfully", nil)
}

// PreviewCoupon handles GET /api/v1/coupons/:code/preview (authenticated).
// Lets the checkout page show the discount before an order is created.
func (h *CouponHandler) PreviewCoupon(c *fiber.Ctx) error {
	code := c.Params("code")

	coupon, err := services.ValidateCoupon(h.db, code, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCouponInvalid):
			return response.NotFound(c, "Coupon not found or inactive")
		case errors.Is(err, services.ErrCouponExpired):
			return response.BadRequest(c, "Coupon is not valid at this time")
		case errors.Is(err, services.ErrCouponExhausted):
			return response.BadRequest(c, "Coupon redemption limit reached")
		default:
			return response.InternalServerError(c, "Failed to validate coupon")
		}
	}

	return response.Success(c, fiber.Map{
		"code":  coupon.Code,
		"type":  coupon.Type,
		"value": coupon.Value,
	})
}
