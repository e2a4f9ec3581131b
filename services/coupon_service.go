package services

import (
	"errors"
	"strings"
	"time"

	"github.com/coursevault/api/model"
	"gorm.io/gorm"
)

var (
	ErrCouponInvalid   = errors.New("coupon code is not valid")
	ErrCouponExpired   = errors.New("coupon code has expired")
	ErrCouponExhausted = errors.New("coupon redemption limit reached")
)

// ValidateCoupon looks up a coupon code and checks it is usable at the given
// time. Codes are matched case-insensitively.
func ValidateCoupon(db *gorm.DB, code string, at time.Time) (*model.Coupon, error) {
	var coupon model.Coupon
	err := db.Where("lower(code) = ?", strings.ToLower(strings.TrimSpace(code))).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponInvalid
		}
		return nil, err
	}

	if !coupon.Active {
		return nil, ErrCouponInvalid
	}
	if coupon.ValidFrom != nil && at.Before(*coupon.ValidFrom) {
		return nil, ErrCouponInvalid
	}
	if coupon.ValidUntil != nil && at.After(*coupon.ValidUntil) {
		return nil, ErrCouponExpired
	}
	if coupon.MaxRedemptions > 0 && coupon.Redemptions >= coupon.MaxRedemptions {
		return nil, ErrCouponExhausted
	}

	return &coupon, nil
}

// CouponDiscount computes the discount a coupon grants on a subtotal. The
// result never exceeds the subtotal.
func CouponDiscount(coupon *model.Coupon, subtotal float64) float64 {
	var discount float64
	switch coupon.Type {
	case model.CouponTypePercent:
		discount = subtotal * coupon.Value / 100
	case model.CouponTypeFlat:
		discount = coupon.Value
	}

	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// RecordCouponRedemption increments a coupon's redemption counter. Called
// inside the reconciliation transaction when an order carrying the code is
// captured.
func RecordCouponRedemption(tx *gorm.DB, code string) error {
	return tx.Model(&model.Coupon{}).
		Where("lower(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		UpdateColumn("redemptions", gorm.Expr("redemptions + ?", 1)).
		Error
}
