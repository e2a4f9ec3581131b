package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// User represents a registered user in the marketplace
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, instructor, admin
	AvatarURL    string         `gorm:"type:varchar(512)" json:"avatar_url"`
	Bio          string         `gorm:"type:text" json:"bio"`
	ReferralCode string         `gorm:"type:varchar(20);uniqueIndex" json:"referral_code"`
	ReferredBy   *uint          `gorm:"index" json:"referred_by,omitempty"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	Enrollments    []Enrollment        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Payments       []Payment           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Orders         []Order             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tickets        []SupportTicket     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsStaff reports whether the user may access instructor surfaces
func (u *User) IsStaff() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}
