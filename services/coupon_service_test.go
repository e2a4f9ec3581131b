package services

import (
	"testing"
	"time"

	"github.com/coursevault/api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCouponMatchesCaseInsensitively(t *testing.T) {
	db := newTestDB(t)

	coupon := model.Coupon{Code: "WELCOME20", Type: model.CouponTypePercent, Value: 20, Active: true}
	require.NoError(t, db.Create(&coupon).Error)

	got, err := ValidateCoupon(db, "  welcome20 ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, got.ID)
}

func TestValidateCouponRejectsUnusableCodes(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, db.Create(&model.Coupon{
		Code: "INACTIVE", Type: model.CouponTypeFlat, Value: 10, Active: false,
	}).Error)
	require.NoError(t, db.Create(&model.Coupon{
		Code: "EXPIRED", Type: model.CouponTypeFlat, Value: 10, Active: true, ValidUntil: &past,
	}).Error)
	require.NoError(t, db.Create(&model.Coupon{
		Code: "NOTYET", Type: model.CouponTypeFlat, Value: 10, Active: true, ValidFrom: &future,
	}).Error)
	require.NoError(t, db.Create(&model.Coupon{
		Code: "USEDUP", Type: model.CouponTypeFlat, Value: 10, Active: true,
		MaxRedemptions: 5, Redemptions: 5,
	}).Error)

	_, err := ValidateCoupon(db, "MISSING", now)
	assert.ErrorIs(t, err, ErrCouponInvalid)

	_, err = ValidateCoupon(db, "INACTIVE", now)
	assert.ErrorIs(t, err, ErrCouponInvalid)

	_, err = ValidateCoupon(db, "EXPIRED", now)
	assert.ErrorIs(t, err, ErrCouponExpired)

	_, err = ValidateCoupon(db, "NOTYET", now)
	assert.ErrorIs(t, err, ErrCouponInvalid)

	_, err = ValidateCoupon(db, "USEDUP", now)
	assert.ErrorIs(t, err, ErrCouponExhausted)
}

func TestDisabledCouponStaysDisabled(t *testing.T) {
	db := newTestDB(t)

	coupon := model.Coupon{Code: "PAUSED", Type: model.CouponTypeFlat, Value: 10, Active: false}
	require.NoError(t, db.Create(&coupon).Error)

	var stored model.Coupon
	require.NoError(t, db.First(&stored, coupon.ID).Error)
	assert.False(t, stored.Active)

	_, err := ValidateCoupon(db, "PAUSED", time.Now())
	assert.ErrorIs(t, err, ErrCouponInvalid)
}

func TestCouponDiscount(t *testing.T) {
	percent := &model.Coupon{Type: model.CouponTypePercent, Value: 25}
	assert.Equal(t, 250.0, CouponDiscount(percent, 1000))

	flat := &model.Coupon{Type: model.CouponTypeFlat, Value: 300}
	assert.Equal(t, 300.0, CouponDiscount(flat, 1000))

	// Discount never exceeds what is being bought
	bigFlat := &model.Coupon{Type: model.CouponTypeFlat, Value: 5000}
	assert.Equal(t, 1000.0, CouponDiscount(bigFlat, 1000))
}

func TestRecordCouponRedemption(t *testing.T) {
	db := newTestDB(t)

	coupon := model.Coupon{Code: "COUNTME", Type: model.CouponTypeFlat, Value: 10, Active: true}
	require.NoError(t, db.Create(&coupon).Error)

	require.NoError(t, RecordCouponRedemption(db, "countme"))
	require.NoError(t, RecordCouponRedemption(db, "COUNTME"))

	var updated model.Coupon
	require.NoError(t, db.First(&updated, coupon.ID).Error)
	assert.Equal(t, 2, updated.Redemptions)
}
