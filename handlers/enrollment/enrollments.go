package enrollment

import (
	"errors"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// EnrollmentHandler handles enrollment requests
type EnrollmentHandler struct {
	db          *gorm.DB
	enrollments *services.EnrollmentService
	validator   *validation.Validator
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(db *gorm.DB, enrollments *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		db:          db,
		enrollments: enrollments,
		validator:   validation.NewValidator(),
	}
}

// UpdateProgressRequest represents a progress update request
type UpdateProgressRequest struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

// AdminEnrollRequest represents a manual enrollment request
type AdminEnrollRequest struct {
	UserID   uint `json:"user_id" validate:"required,min=1"`
	CourseID uint `json:"course_id" validate:"required,min=1"`
}

// SetStatusRequest represents an enrollment status change request
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active revoked"`
}

// ListMyEnrollments handles GET /api/v1/enrollments/my
func (h *EnrollmentHandler) ListMyEnrollments(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var enrollments []model.Enrollment
	err := h.db.Where("user_id = ? AND status <> ?", user.ID, model.EnrollmentStatusRevoked).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch enrollments")
	}

	return response.Success(c, enrollments)
}

// UpdateProgress handles PATCH /api/v1/enrollments/:id/progress
func (h *EnrollmentHandler) UpdateProgress(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollmentID, err := c.ParamsInt("id")
	if err != nil || enrollmentID < 1 {
		return response.BadRequest(c, "Invalid enrollment id")
	}

	var req UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.UpdateProgress(c.UserContext(), user.ID, uint(enrollmentID), *req.Progress)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEnrollmentNotFound):
			return response.NotFound(c, "Enrollment not found")
		case errors.Is(err, services.ErrInvalidProgress):
			return response.BadRequest(c, "Progress must be between 0 and 100")
		default:
			return response.InternalServerError(c, "Failed to update progress")
		}
	}

	return response.SuccessWithMessage(c, "Progress updated", enrollment)
}

// AdminEnroll handles POST /api/v1/admin/enrollments
func (h *EnrollmentHandler) AdminEnroll(c *fiber.Ctx) error {
	var req AdminEnrollRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.Enroll(c.UserContext(), req.UserID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateEnrollment):
			return response.Conflict(c, "User already enrolled in this course")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "User or course not found")
		default:
			return response.InternalServerError(c, "Failed to create enrollment")
		}
	}

	return response.Created(c, enrollment)
}

// SetStatus handles PATCH /api/v1/admin/enrollments/:id/status
func (h *EnrollmentHandler) SetStatus(c *fiber.Ctx) error {
	enrollmentID, err := c.ParamsInt("id")
	if err != nil || enrollmentID < 1 {
		return response.BadRequest(c, "Invalid enrollment id")
	}

	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.SetStatus(c.UserContext(), uint(enrollmentID), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEnrollmentNotFound):
			return response.NotFound(c, "Enrollment not found")
		case errors.Is(err, services.ErrDuplicateEnrollment):
			return response.Conflict(c, "User already has an active enrollment for this course")
		default:
			return response.InternalServerError(c, "Failed to update enrollment")
		}
	}

	return response.SuccessWithMessage(c, "Enrollment status updated", enrollment)
}

// ListCourseEnrollments handles GET /api/v1/admin/courses/:id/enrollments
func (h *EnrollmentHandler) ListCourseEnrollments(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil || courseID < 1 {
		return response.BadRequest(c, "Invalid course id")
	}

	var enrollments []model.Enrollment
	err = h.db.Where("course_id = ?", courseID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch enrollments")
	}

	return response.Success(c, enrollments)
}
