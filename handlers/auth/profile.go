package auth

import (
	"github.com/coursevault/api/model"
	authutil "github.com/coursevault/api/utils/auth"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Name      string `json:"name" validate:"omitempty,min=2,max=100"`
	Bio       string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=512"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// GetProfile handles GET /api/v1/auth/profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	return response.Success(c, toUserResponse(user))
}

// UpdateProfile handles PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Name != "" {
		user.Name = validation.SanitizeString(req.Name)
	}
	if req.Bio != "" {
		user.Bio = validation.SanitizeString(req.Bio)
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.SuccessWithMessage(c, "Profile updated successfully", toUserResponse(user))
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	if !authutil.IsPasswordValid(req.NewPassword) {
		return response.BadRequest(c, "Password must be at least 8 characters long")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	err = h.db.Model(&model.User{}).
		Where("id = ?", user.ID).
		Update("password_hash", hashedPassword).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to change password")
	}

	// Outstanding tokens stop working once the version bumps
	if err := h.blacklistService.RevokeAllUserTokens(c.UserContext(), user.ID); err != nil {
		return response.InternalServerError(c, "Failed to invalidate sessions")
	}

	return response.SuccessWithMessage(c, "Password changed successfully", nil)
}
