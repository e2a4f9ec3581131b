package model

import (
	"time"

	"gorm.io/gorm"
)

// Course represents a purchasable course in the public catalog
type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	InstructorID uint           `gorm:"not null;index" json:"instructor_id"`
	Title        string         `gorm:"not null" json:"title"`
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string         `gorm:"type:text" json:"description"`
	Category     string         `gorm:"type:varchar(100);index" json:"category"`
	Level        string         `gorm:"type:varchar(20);default:'beginner'" json:"level"` // beginner, intermediate, advanced
	ThumbnailURL string         `gorm:"type:varchar(512)" json:"thumbnail_url"`
	Price        float64        `gorm:"not null;default:0" json:"price"` // major currency units
	Currency     string         `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Published    bool           `gorm:"default:false;index" json:"published"`

	// Relationships
	Instructor  User          `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Enrollments []Enrollment  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Sessions    []LiveSession `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}
