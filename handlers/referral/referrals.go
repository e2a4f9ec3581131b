package referral

import (
	"github.com/coursevault/api/model"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ReferralHandler handles referral program requests
type ReferralHandler struct {
	db *gorm.DB
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(db *gorm.DB) *ReferralHandler {
	return &ReferralHandler{db: db}
}

// GetMyReferralStats handles GET /api/v1/referrals/my
func (h *ReferralHandler) GetMyReferralStats(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var referrals []model.Referral
	err := h.db.Where("referrer_id = ?", user.ID).
		Order("created_at DESC").
		Find(&referrals).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch referrals")
	}

	converted := 0
	for _, r := range referrals {
		if r.ConvertedAt != nil {
			converted++
		}
	}

	return response.Success(c, fiber.Map{
		"referral_code": user.ReferralCode,
		"total_signups": len(referrals),
		"converted":     converted,
		"referrals":     referrals,
	})
}
