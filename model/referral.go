package model

import (
	"time"
)

// Referral links a referred user to the referrer whose code they signed up
// with. ConvertedAt is set once the referred user's first payment is
// captured.
type Referral struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	ReferrerID     uint       `gorm:"not null;index" json:"referrer_id"`
	ReferredUserID uint       `gorm:"not null;uniqueIndex" json:"referred_user_id"`
	Code           string     `gorm:"type:varchar(20);not null" json:"code"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty"`

	// Relationships
	Referrer     User `gorm:"foreignKey:ReferrerID;constraint:OnDelete:CASCADE" json:"-"`
	ReferredUser User `gorm:"foreignKey:ReferredUserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Referral
func (Referral) TableName() string {
	return "referrals"
}
