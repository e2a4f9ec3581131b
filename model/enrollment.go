package model

import (
	"time"
)

// Enrollment statuses
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusRevoked   = "revoked"
)

// Enrollment grants a user access to one course. At most one non-revoked
// enrollment may exist per (user, course) pair; creators must check before
// writing.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;index:idx_enrollments_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;index:idx_enrollments_user_course" json:"course_id"`

	// Denormalized at write time so dashboards render without a join
	CourseTitle     string `gorm:"type:varchar(255)" json:"course_title"`
	CourseThumbnail string `gorm:"type:varchar(512)" json:"course_thumbnail"`

	Progress    int        `gorm:"default:0" json:"progress"` // 0-100
	Status      string     `gorm:"type:varchar(20);default:'active';index" json:"status"`
	EnrolledAt  time.Time  `gorm:"not null" json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
