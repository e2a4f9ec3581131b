package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/coursevault/api/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCourseUnavailable = errors.New("course not found or not published")
	ErrEmptyOrder        = errors.New("order contains no courses")
	ErrCurrencyMismatch  = errors.New("courses in one order must share a currency")
)

// PaymentService owns order creation and webhook reconciliation
type PaymentService struct {
	db      *gorm.DB
	gateway GatewayOrderCreator
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, gateway GatewayOrderCreator) *PaymentService {
	return &PaymentService{db: db, gateway: gateway}
}

// CreateOrder prices the requested courses, applies an optional coupon,
// requests a gateway order and persists the Order row the webhook path later
// resolves by gateway order id. The notes sent to the gateway carry the same
// userId/courseIds mapping for gateways and tooling that rely on it.
func (s *PaymentService) CreateOrder(ctx context.Context, user *model.User, courseIDs []uint, couponCode string) (*model.Order, error) {
	if len(courseIDs) == 0 {
		return nil, ErrEmptyOrder
	}

	var courses []model.Course
	err := s.db.WithContext(ctx).
		Where("id IN ? AND published = ?", courseIDs, true).
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	if len(courses) != len(courseIDs) {
		return nil, ErrCourseUnavailable
	}

	for _, courseID := range courseIDs {
		enrolled, err := HasActiveEnrollment(s.db.WithContext(ctx), user.ID, courseID)
		if err != nil {
			return nil, err
		}
		if enrolled {
			return nil, ErrDuplicateEnrollment
		}
	}

	currency := courses[0].Currency
	var subtotal float64
	for _, course := range courses {
		if course.Currency != currency {
			return nil, ErrCurrencyMismatch
		}
		subtotal += course.Price
	}

	var discount float64
	if couponCode != "" {
		coupon, err := ValidateCoupon(s.db.WithContext(ctx), couponCode, time.Now())
		if err != nil {
			return nil, err
		}
		discount = CouponDiscount(coupon, subtotal)
	}

	total := subtotal - discount
	amountMinor := int64(math.Round(total * 100))
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	joinedIDs := model.JoinCourseIDs(courseIDs)

	gatewayOrderID, err := s.gateway.CreateOrder(amountMinor, currency, receipt, map[string]interface{}{
		"userId":    strconv.FormatUint(uint64(user.ID), 10),
		"courseIds": joinedIDs,
		"userName":  user.Name,
	})
	if err != nil {
		return nil, err
	}

	order := model.Order{
		UserID:          user.ID,
		CourseIDs:       joinedIDs,
		Amount:          total,
		Currency:        currency,
		Status:          model.OrderStatusCreated,
		CouponCode:      couponCode,
		DiscountAmount:  discount,
		Receipt:         receipt,
		RazorpayOrderID: gatewayOrderID,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	return &order, nil
}

// ReconcileCapture applies a verified, interpreted payment.captured event:
// one payment row plus one enrollment per purchased course, written
// all-or-nothing. Safe to invoke more than once with the same gateway
// payment id — the gateway delivers at least once, so duplicates and retry
// races are expected, not exceptional.
func (s *PaymentService) ReconcileCapture(ctx context.Context, cp *CapturedPayment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Idempotency guard inside the transaction: concurrent deliveries
		// serialize here, and the unique index on razorpay_payment_id
		// backstops the check.
		var existing int64
		if err := tx.Model(&model.Payment{}).
			Where("razorpay_payment_id = ?", cp.PaymentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		// The persisted order is the authoritative purchase list; the notes
		// echoed through the gateway are the fallback for orders this
		// service never saw.
		courseIDs := cp.CourseIDs
		var order model.Order
		orderFound := false
		if cp.OrderID != "" {
			err := tx.Where("razorpay_order_id = ?", cp.OrderID).First(&order).Error
			switch {
			case err == nil:
				orderFound = true
				if ids := order.CourseIDList(); len(ids) > 0 {
					courseIDs = ids
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		// The interpreter guarantees a non-empty list today, but the service
		// contract should not lean on one caller.
		if len(courseIDs) == 0 {
			return fmt.Errorf("payment %s carries no course ids", cp.PaymentID)
		}

		// Denormalized lookups must not fail the capture; a missing user or
		// course degrades to the note values or empty strings.
		userName := cp.UserName
		var user model.User
		if err := tx.First(&user, cp.UserID).Error; err == nil {
			userName = user.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var courses []model.Course
		if err := tx.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return err
		}
		courseByID := make(map[uint]model.Course, len(courses))
		for _, course := range courses {
			courseByID[course.ID] = course
		}

		primary := courseIDs[0]
		primaryTitle := cp.CourseTitle
		if course, ok := courseByID[primary]; ok {
			primaryTitle = course.Title
		}

		payment := model.Payment{
			UserID:            cp.UserID,
			UserName:          userName,
			CourseID:          primary,
			CourseTitle:       primaryTitle,
			Amount:            cp.Amount,
			Currency:          cp.Currency,
			Status:            model.PaymentStatusCaptured,
			RazorpayOrderID:   cp.OrderID,
			RazorpayPaymentID: cp.PaymentID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, courseID := range courseIDs {
			enrolled, err := HasActiveEnrollment(tx, cp.UserID, courseID)
			if err != nil {
				return err
			}
			if enrolled {
				// at most one non-revoked enrollment per (user, course)
				continue
			}

			enrollment := model.Enrollment{
				UserID:     cp.UserID,
				CourseID:   courseID,
				Progress:   0,
				Status:     model.EnrollmentStatusActive,
				EnrolledAt: now,
			}
			if course, ok := courseByID[courseID]; ok {
				enrollment.CourseTitle = course.Title
				enrollment.CourseThumbnail = course.ThumbnailURL
			}
			if err := tx.Create(&enrollment).Error; err != nil {
				return err
			}
		}

		if orderFound && order.Status != model.OrderStatusPaid {
			err := tx.Model(&model.Order{}).
				Where("id = ?", order.ID).
				Update("status", model.OrderStatusPaid).Error
			if err != nil {
				return err
			}
			if order.CouponCode != "" {
				if err := RecordCouponRedemption(tx, order.CouponCode); err != nil {
					return err
				}
			}
		}

		// A referred user's first captured payment counts as the conversion
		err := tx.Model(&model.Referral{}).
			Where("referred_user_id = ? AND converted_at IS NULL", cp.UserID).
			Update("converted_at", now).Error
		if err != nil {
			return err
		}

		return nil
	})
}

// ExpireStaleOrders marks gateway orders that never got paid as expired.
// Run from cron; the cutoff matches the gateway's own order validity window.
func (s *PaymentService) ExpireStaleOrders(ctx context.Context, olderThan time.Duration) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("status = ? AND created_at < ?", model.OrderStatusCreated, time.Now().Add(-olderThan)).
		Update("status", model.OrderStatusExpired)
	return result.RowsAffected, result.Error
}
