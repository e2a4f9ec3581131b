package model

import (
	"time"

	"gorm.io/gorm"
)

// Coupon discount types
const (
	CouponTypePercent = "percent"
	CouponTypeFlat    = "flat"
)

// Coupon is a storewide discount code applied at order creation. The
// redemption counter is incremented when an order carrying the code is
// captured, not when the order is created.
type Coupon struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Code           string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Type           string         `gorm:"type:varchar(10);not null" json:"type"` // percent, flat
	Value          float64        `gorm:"not null" json:"value"`
	MaxRedemptions int            `gorm:"default:0" json:"max_redemptions"` // 0 = unlimited
	Redemptions    int            `gorm:"default:0" json:"redemptions"`
	ValidFrom      *time.Time     `json:"valid_from,omitempty"`
	ValidUntil     *time.Time     `json:"valid_until,omitempty"`
	// No column default on purpose: GORM would swap a zero-valued false
	// for the default on insert, silently activating disabled codes.
	Active bool `json:"active"`
}

// TableName specifies the table name for Coupon
func (Coupon) TableName() string {
	return "coupons"
}
