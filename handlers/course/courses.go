package course

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services/storage"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CourseHandler handles catalog and course management requests
type CourseHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	spaces    *storage.SpacesClient // nil when object storage is unconfigured
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, spaces *storage.SpacesClient) *CourseHandler {
	return &CourseHandler{
		db:        db,
		validator: validation.NewValidator(),
		spaces:    spaces,
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=255"`
	Description string  `json:"description" validate:"omitempty,max=10000"`
	Category    string  `json:"category" validate:"omitempty,max=100"`
	Level       string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price       float64 `json:"price" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title       string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Category    string   `json:"category" validate:"omitempty,max=100"`
	Level       string   `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a title into a URL-safe unique slug
func (h *CourseHandler) slugify(title string) string {
	base := strings.Trim(slugCleaner.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if base == "" {
		base = "course"
	}

	slug := base
	for i := 2; ; i++ {
		var count int64
		h.db.Model(&model.Course{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// ListCourses handles GET /api/v1/courses (public, published only)
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "12"))
	search := c.Query("search", "")
	category := c.Query("category", "")
	level := c.Query("level", "")

	query := h.db.Model(&model.Course{}).Where("published = ?", true)

	if search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var courses []model.Course
	if err := query.Order("created_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, pagination)
}

// GetCourse handles GET /api/v1/courses/:slug (public)
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course model.Course
	err := h.db.Where("slug = ? AND published = ?", slug, true).First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	return response.Success(c, course)
}

// ListMyCourses handles GET /api/v1/courses/teaching (instructor)
func (h *CourseHandler) ListMyCourses(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var courses []model.Course
	if err := h.db.Where("instructor_id = ?", user.ID).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Success(c, courses)
}

// CreateCourse handles POST /api/v1/courses (instructor)
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Title = validation.SanitizeString(req.Title)
	req.Description = validation.SanitizeString(req.Description)
	req.Category = validation.SanitizeString(req.Category)

	if req.Level == "" {
		req.Level = "beginner"
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	course := model.Course{
		InstructorID: user.ID,
		Title:        req.Title,
		Slug:         h.slugify(req.Title),
		Description:  req.Description,
		Category:     req.Category,
		Level:        req.Level,
		Price:        req.Price,
		Currency:     strings.ToUpper(req.Currency),
		Published:    false,
	}

	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// loadOwnedCourse fetches a course and enforces instructor ownership.
// Admins bypass the ownership check.
func (h *CourseHandler) loadOwnedCourse(c *fiber.Ctx, user *model.User) (*model.Course, error) {
	id := c.Params("id")

	var course model.Course
	if err := h.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Course not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch course")
	}

	if user.Role != model.RoleAdmin && course.InstructorID != user.ID {
		return nil, response.Forbidden(c, "Not your course")
	}

	return &course, nil
}

// UpdateCourse handles PUT /api/v1/courses/:id (instructor)
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	if req.Title != "" {
		course.Title = validation.SanitizeString(req.Title)
	}
	if req.Description != nil {
		course.Description = validation.SanitizeString(*req.Description)
	}
	if req.Category != "" {
		course.Category = validation.SanitizeString(req.Category)
	}
	if req.Level != "" {
		course.Level = req.Level
	}
	if req.Price != nil {
		course.Price = *req.Price
	}

	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// SetPublished handles PATCH /api/v1/courses/:id/publish (instructor)
func (h *CourseHandler) SetPublished(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req struct {
		Published bool `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	course.Published = req.Published
	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.SuccessWithMessage(c, "Course publication updated", course)
}

// UploadThumbnail handles POST /api/v1/courses/:id/thumbnail (instructor)
func (h *CourseHandler) UploadThumbnail(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.spaces == nil {
		return response.InternalServerError(c, "Object storage is not configured")
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("thumbnail")
	if err != nil {
		return response.BadRequest(c, "Thumbnail file is required")
	}
	if fileHeader.Size > 5*1024*1024 {
		return response.BadRequest(c, "Thumbnail must be smaller than 5MB")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		return response.BadRequest(c, "Thumbnail must be a JPEG, PNG or WebP image")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read thumbnail")
	}
	defer file.Close()

	key := fmt.Sprintf("thumbnails/%d/%s", course.ID, fileHeader.Filename)
	url, err := h.spaces.UploadFile(c.UserContext(), key, file, contentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to upload thumbnail")
	}

	course.ThumbnailURL = url
	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.SuccessWithMessage(c, "Thumbnail uploaded", course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id (admin)
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id := c.Params("id")

	var course model.Course
	if err := h.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	var enrollmentCount int64
	err := h.db.Model(&model.Enrollment{}).
		Where("course_id = ? AND status <> ?", id, model.EnrollmentStatusRevoked).
		Count(&enrollmentCount).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to check course dependencies")
	}
	if enrollmentCount > 0 {
		return response.BadRequest(c, "Cannot delete a course with active enrollments")
	}

	if err := h.db.Delete(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}

	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}
