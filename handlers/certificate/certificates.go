package certificate

import (
	"errors"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CertificateHandler handles completion certificate requests
type CertificateHandler struct {
	db           *gorm.DB
	certificates *services.CertificateService
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(db *gorm.DB, certificates *services.CertificateService) *CertificateHandler {
	return &CertificateHandler{db: db, certificates: certificates}
}

// ListMyCertificates handles GET /api/v1/certificates/my
func (h *CertificateHandler) ListMyCertificates(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var certificates []model.Certificate
	err := h.db.Where("user_id = ?", user.ID).
		Order("issued_at DESC").
		Find(&certificates).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch certificates")
	}

	return response.Success(c, certificates)
}

// VerifyCertificate handles GET /api/v1/certificates/verify/:serial (public).
// Employers paste the serial from a certificate to confirm it is genuine.
func (h *CertificateHandler) VerifyCertificate(c *fiber.Ctx) error {
	serial := c.Params("serial")

	cert, err := h.certificates.VerifyBySerial(c.UserContext(), serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Certificate not found")
		}
		return response.InternalServerError(c, "Failed to verify certificate")
	}

	return response.Success(c, fiber.Map{
		"serial_number": cert.SerialNumber,
		"student_name":  cert.StudentName,
		"course_title":  cert.CourseTitle,
		"issued_at":     cert.IssuedAt,
	})
}
