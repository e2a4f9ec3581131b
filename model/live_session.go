package model

import (
	"time"

	"gorm.io/gorm"
)

// LiveSession is an instructor-scheduled live class attached to a course.
// Reminder emails go out to enrolled students shortly before StartsAt.
type LiveSession struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID        uint           `gorm:"not null;index" json:"course_id"`
	InstructorID    uint           `gorm:"not null;index" json:"instructor_id"`
	Title           string         `gorm:"not null" json:"title"`
	MeetingURL      string         `gorm:"type:varchar(512)" json:"meeting_url"`
	StartsAt        time.Time      `gorm:"not null;index" json:"starts_at"`
	DurationMinutes int            `gorm:"default:60" json:"duration_minutes"`
	ReminderSentAt  *time.Time     `json:"reminder_sent_at,omitempty"`

	// Relationships
	Course     Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Instructor User   `gorm:"foreignKey:InstructorID" json:"-"`
}

// TableName specifies the table name for LiveSession
func (LiveSession) TableName() string {
	return "live_sessions"
}
