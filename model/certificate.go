package model

import (
	"time"
)

// Certificate is issued when an enrollment reaches 100% progress. The serial
// number is the public verification handle.
type Certificate struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	CourseID     uint      `gorm:"not null;index" json:"course_id"`
	EnrollmentID uint      `gorm:"not null;uniqueIndex" json:"enrollment_id"`
	SerialNumber string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"serial_number"`
	CourseTitle  string    `gorm:"type:varchar(255)" json:"course_title"`
	StudentName  string    `gorm:"type:varchar(255)" json:"student_name"`
	PDFURL       string    `gorm:"type:varchar(512)" json:"pdf_url"`
	IssuedAt     time.Time `gorm:"not null" json:"issued_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Certificate
func (Certificate) TableName() string {
	return "certificates"
}
