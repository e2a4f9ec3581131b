package payment

import (
	"errors"
	"math"
	"strconv"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// OrderHandler handles checkout order creation and payment history
type OrderHandler struct {
	db        *gorm.DB
	payments  *services.PaymentService
	validator *validation.Validator
	keyID     string
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, payments *services.PaymentService, keyID string) *OrderHandler {
	return &OrderHandler{
		db:        db,
		payments:  payments,
		validator: validation.NewValidator(),
		keyID:     keyID,
	}
}

// CreateOrderRequest represents the request body for starting a checkout
type CreateOrderRequest struct {
	CourseIDs  []uint `json:"course_ids" validate:"required,min=1,max=20,dive,min=1"`
	CouponCode string `json:"coupon_code" validate:"omitempty,max=50"`
}

// CreateOrder handles POST /api/v1/payments/orders
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.CouponCode = validation.SanitizeString(req.CouponCode)

	order, err := h.payments.CreateOrder(c.UserContext(), user, req.CourseIDs, req.CouponCode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyOrder):
			return response.BadRequest(c, "Order contains no courses")
		case errors.Is(err, services.ErrCourseUnavailable):
			return response.NotFound(c, "One or more courses are not available")
		case errors.Is(err, services.ErrDuplicateEnrollment):
			return response.Conflict(c, "Already enrolled in one of these courses")
		case errors.Is(err, services.ErrCurrencyMismatch):
			return response.BadRequest(c, "Courses in one order must share a currency")
		case errors.Is(err, services.ErrCouponInvalid),
			errors.Is(err, services.ErrCouponExpired),
			errors.Is(err, services.ErrCouponExhausted):
			return response.BadRequest(c, "Coupon cannot be applied: "+err.Error())
		default:
			return response.InternalServerError(c, "Failed to create order")
		}
	}

	// The frontend needs the gateway order id, key id and minor-unit amount
	// to open the checkout widget
	return response.Created(c, fiber.Map{
		"order":             order,
		"razorpay_order_id": order.RazorpayOrderID,
		"razorpay_key_id":   h.keyID,
		"amount":            int64(math.Round(order.Amount * 100)),
		"currency":          order.Currency,
	})
}

// ListMyPayments handles GET /api/v1/payments/my
func (h *OrderHandler) ListMyPayments(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	query := h.db.Model(&model.Payment{}).Where("user_id = ?", user.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count payments")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var payments []model.Payment
	if err := query.Order("created_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch payments")
	}

	return response.Paginated(c, payments, pagination)
}

// ListMyOrders handles GET /api/v1/payments/orders/my
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var orders []model.Order
	if err := h.db.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&orders).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch orders")
	}

	return response.Success(c, orders)
}
