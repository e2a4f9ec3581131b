package livesession

import (
	"errors"
	"time"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SessionHandler handles live session scheduling and listings
type SessionHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewSessionHandler creates a new live session handler
func NewSessionHandler(db *gorm.DB) *SessionHandler {
	return &SessionHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// ScheduleSessionRequest represents the request body for scheduling a session
type ScheduleSessionRequest struct {
	CourseID        uint      `json:"course_id" validate:"required,min=1"`
	Title           string    `json:"title" validate:"required,min=3,max=255"`
	MeetingURL      string    `json:"meeting_url" validate:"required,url,max=512"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=480"`
}

// ScheduleSession handles POST /api/v1/sessions (instructor)
func (h *SessionHandler) ScheduleSession(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ScheduleSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if !req.StartsAt.After(time.Now()) {
		return response.BadRequest(c, "Session must be scheduled in the future")
	}

	var course model.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if user.Role != model.RoleAdmin && course.InstructorID != user.ID {
		return response.Forbidden(c, "Not your course")
	}

	if req.DurationMinutes == 0 {
		req.DurationMinutes = 60
	}

	session := model.LiveSession{
		CourseID:        req.CourseID,
		InstructorID:    course.InstructorID,
		Title:           validation.SanitizeString(req.Title),
		MeetingURL:      req.MeetingURL,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
	}

	if err := h.db.Create(&session).Error; err != nil {
		return response.InternalServerError(c, "Failed to schedule session")
	}

	return response.Created(c, session)
}

// ListUpcomingSessions handles GET /api/v1/sessions/upcoming. Only sessions
// for courses the user is enrolled in are visible.
func (h *SessionHandler) ListUpcomingSessions(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var sessions []model.LiveSession
	err := h.db.
		Joins("JOIN enrollments ON enrollments.course_id = live_sessions.course_id").
		Where("enrollments.user_id = ? AND enrollments.status <> ?", user.ID, model.EnrollmentStatusRevoked).
		Where("live_sessions.starts_at > ?", time.Now()).
		Order("live_sessions.starts_at ASC").
		Find(&sessions).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch sessions")
	}

	return response.Success(c, sessions)
}

// CancelSession handles DELETE /api/v1/sessions/:id (instructor)
func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	id := c.Params("id")

	var session model.LiveSession
	if err := h.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Session not found")
		}
		return response.InternalServerError(c, "Failed to fetch session")
	}

	if user.Role != model.RoleAdmin && session.InstructorID != user.ID {
		return response.Forbidden(c, "Not your session")
	}

	if err := h.db.Delete(&session).Error; err != nil {
		return response.InternalServerError(c, "Failed to cancel session")
	}

	return response.SuccessWithMessage(c, "Session cancelled", nil)
}
