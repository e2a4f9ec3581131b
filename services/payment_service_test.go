package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coursevault/api/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Enrollment{},
		&model.Payment{},
		&model.Order{},
		&model.Coupon{},
		&model.Referral{},
	))

	return db
}

type stubGateway struct {
	orderID   string
	err       error
	lastNotes map[string]interface{}
	lastMinor int64
}

func (g *stubGateway) CreateOrder(amountMinor int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	g.lastMinor = amountMinor
	g.lastNotes = notes
	if g.err != nil {
		return "", g.err
	}
	return g.orderID, nil
}

func seedUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "x",
		Name:         name,
		Role:         model.RoleStudent,
		ReferralCode: strings.ToUpper(name) + "1234",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, title string, price float64) *model.Course {
	t.Helper()
	course := &model.Course{
		InstructorID: 999,
		Title:        title,
		Slug:         strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Price:        price,
		Currency:     "INR",
		Published:    true,
		ThumbnailURL: "https://cdn.example.com/" + strings.ToLower(title) + ".png",
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func TestReconcileCaptureGrantsEnrollments(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Asha")
	courseA := seedCourse(t, db, "Go Basics", 2999)
	courseB := seedCourse(t, db, "Go Advanced", 2000)

	order := model.Order{
		UserID:          user.ID,
		CourseIDs:       model.JoinCourseIDs([]uint{courseA.ID, courseB.ID}),
		Amount:          4999,
		Currency:        "INR",
		Status:          model.OrderStatusCreated,
		RazorpayOrderID: "order_xyz789",
	}
	require.NoError(t, db.Create(&order).Error)

	cp := &CapturedPayment{
		PaymentID: "pay_abc123",
		OrderID:   "order_xyz789",
		Amount:    4999,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{courseA.ID, courseB.ID},
		UserName:  "Asha",
	}

	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var payment model.Payment
	require.NoError(t, db.Where("razorpay_payment_id = ?", "pay_abc123").First(&payment).Error)
	assert.Equal(t, model.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, user.ID, payment.UserID)
	assert.Equal(t, 4999.0, payment.Amount)
	assert.Equal(t, "Go Basics", payment.CourseTitle)

	var enrollments []model.Enrollment
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("course_id").Find(&enrollments).Error)
	require.Len(t, enrollments, 2)
	assert.Equal(t, model.EnrollmentStatusActive, enrollments[0].Status)
	assert.Equal(t, "Go Basics", enrollments[0].CourseTitle)
	assert.Equal(t, courseA.ThumbnailURL, enrollments[0].CourseThumbnail)
	assert.Equal(t, 0, enrollments[0].Progress)

	var updated model.Order
	require.NoError(t, db.First(&updated, order.ID).Error)
	assert.Equal(t, model.OrderStatusPaid, updated.Status)
}

func TestReconcileCaptureIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Ravi")
	course := seedCourse(t, db, "Databases", 1500)

	cp := &CapturedPayment{
		PaymentID: "pay_dup",
		Amount:    1500,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{course.ID},
	}

	// The gateway delivers at least once; duplicates are normal
	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))
	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))
	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var payments int64
	db.Model(&model.Payment{}).Where("razorpay_payment_id = ?", "pay_dup").Count(&payments)
	assert.Equal(t, int64(1), payments)

	var enrollments int64
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	assert.Equal(t, int64(1), enrollments)
}

func TestReconcileCaptureSkipsExistingEnrollment(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Meera")
	courseA := seedCourse(t, db, "Owned Course", 1000)
	courseB := seedCourse(t, db, "New Course", 1000)

	existing := model.Enrollment{
		UserID:     user.ID,
		CourseID:   courseA.ID,
		Status:     model.EnrollmentStatusActive,
		EnrolledAt: time.Now(),
	}
	require.NoError(t, db.Create(&existing).Error)

	cp := &CapturedPayment{
		PaymentID: "pay_partial",
		Amount:    2000,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{courseA.ID, courseB.ID},
	}

	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var countA, countB int64
	db.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, courseA.ID).Count(&countA)
	db.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, courseB.ID).Count(&countB)
	assert.Equal(t, int64(1), countA)
	assert.Equal(t, int64(1), countB)
}

func TestReconcileCaptureIsAtomic(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Kiran")
	course := seedCourse(t, db, "Atomicity", 1200)

	// Inject a failure on the enrollment insert; the payment row written
	// earlier in the transaction must roll back with it
	injected := errors.New("injected enrollment failure")
	err := db.Callback().Create().Before("gorm:create").Register("fail_enrollments", func(tx *gorm.DB) {
		if tx.Statement.Table == "enrollments" {
			tx.AddError(injected)
		}
	})
	require.NoError(t, err)
	defer db.Callback().Create().Remove("fail_enrollments")

	cp := &CapturedPayment{
		PaymentID: "pay_atomic",
		Amount:    1200,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{course.ID},
	}

	require.Error(t, svc.ReconcileCapture(context.Background(), cp))

	var payments int64
	db.Model(&model.Payment{}).Count(&payments)
	assert.Equal(t, int64(0), payments, "payment must not persist when enrollment creation fails")

	var enrollments int64
	db.Model(&model.Enrollment{}).Count(&enrollments)
	assert.Equal(t, int64(0), enrollments)
}

func TestReconcileCapturePrefersOrderCourseList(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Divya")
	courseA := seedCourse(t, db, "Listed Course", 800)
	courseB := seedCourse(t, db, "Unlisted Course", 800)

	order := model.Order{
		UserID:          user.ID,
		CourseIDs:       model.JoinCourseIDs([]uint{courseA.ID}),
		Amount:          800,
		Currency:        "INR",
		Status:          model.OrderStatusCreated,
		RazorpayOrderID: "order_authoritative",
	}
	require.NoError(t, db.Create(&order).Error)

	// Notes disagree with the stored order; the order wins
	cp := &CapturedPayment{
		PaymentID: "pay_order_wins",
		OrderID:   "order_authoritative",
		Amount:    800,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{courseB.ID},
	}

	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var countA, countB int64
	db.Model(&model.Enrollment{}).Where("course_id = ?", courseA.ID).Count(&countA)
	db.Model(&model.Enrollment{}).Where("course_id = ?", courseB.ID).Count(&countB)
	assert.Equal(t, int64(1), countA)
	assert.Equal(t, int64(0), countB)
}

func TestReconcileCaptureFallsBackToNotesWithoutOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Nisha")
	course := seedCourse(t, db, "Notes Only", 600)

	cp := &CapturedPayment{
		PaymentID: "pay_no_order",
		OrderID:   "order_never_seen",
		Amount:    600,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{course.ID},
	}

	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var enrollments int64
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	assert.Equal(t, int64(1), enrollments)
}

func TestReconcileCaptureConvertsReferral(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	referrer := seedUser(t, db, "Referrer")
	referred := seedUser(t, db, "Referred")
	course := seedCourse(t, db, "Referred Course", 500)

	referral := model.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: referred.ID,
		Code:           referrer.ReferralCode,
	}
	require.NoError(t, db.Create(&referral).Error)

	cp := &CapturedPayment{
		PaymentID: "pay_referral",
		Amount:    500,
		Currency:  "INR",
		UserID:    referred.ID,
		CourseIDs: []uint{course.ID},
	}

	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var updated model.Referral
	require.NoError(t, db.First(&updated, referral.ID).Error)
	assert.NotNil(t, updated.ConvertedAt)
}

func TestReconcileCaptureRecordsCouponRedemption(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)

	user := seedUser(t, db, "Coupons")
	course := seedCourse(t, db, "Discounted", 1000)

	coupon := model.Coupon{
		Code:   "SAVE10",
		Type:   model.CouponTypePercent,
		Value:  10,
		Active: true,
	}
	require.NoError(t, db.Create(&coupon).Error)

	order := model.Order{
		UserID:          user.ID,
		CourseIDs:       model.JoinCourseIDs([]uint{course.ID}),
		Amount:          900,
		Currency:        "INR",
		Status:          model.OrderStatusCreated,
		CouponCode:      "SAVE10",
		DiscountAmount:  100,
		RazorpayOrderID: "order_coupon",
	}
	require.NoError(t, db.Create(&order).Error)

	cp := &CapturedPayment{
		PaymentID: "pay_coupon",
		OrderID:   "order_coupon",
		Amount:    900,
		Currency:  "INR",
		UserID:    user.ID,
		CourseIDs: []uint{course.ID},
	}

	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))
	// A second delivery must not bump the counter again
	require.NoError(t, svc.ReconcileCapture(context.Background(), cp))

	var updated model.Coupon
	require.NoError(t, db.First(&updated, coupon.ID).Error)
	assert.Equal(t, 1, updated.Redemptions)
}

func TestCreateOrderPersistsOrderAndNotes(t *testing.T) {
	db := newTestDB(t)
	gateway := &stubGateway{orderID: "order_new"}
	svc := NewPaymentService(db, gateway)

	user := seedUser(t, db, "Buyer")
	courseA := seedCourse(t, db, "First", 1000)
	courseB := seedCourse(t, db, "Second", 500.50)

	order, err := svc.CreateOrder(context.Background(), user, []uint{courseA.ID, courseB.ID}, "")
	require.NoError(t, err)

	assert.Equal(t, "order_new", order.RazorpayOrderID)
	assert.Equal(t, model.OrderStatusCreated, order.Status)
	assert.Equal(t, 1500.50, order.Amount)
	assert.Equal(t, int64(150050), gateway.lastMinor)

	assert.Equal(t, fmt.Sprintf("%d", user.ID), gateway.lastNotes["userId"])
	assert.Equal(t, model.JoinCourseIDs([]uint{courseA.ID, courseB.ID}), gateway.lastNotes["courseIds"])

	var stored model.Order
	require.NoError(t, db.Where("razorpay_order_id = ?", "order_new").First(&stored).Error)
	assert.Equal(t, []uint{courseA.ID, courseB.ID}, stored.CourseIDList())
}

func TestCreateOrderAppliesCoupon(t *testing.T) {
	db := newTestDB(t)
	gateway := &stubGateway{orderID: "order_discounted"}
	svc := NewPaymentService(db, gateway)

	user := seedUser(t, db, "Saver")
	course := seedCourse(t, db, "Pricey", 2000)

	coupon := model.Coupon{
		Code:   "FLAT500",
		Type:   model.CouponTypeFlat,
		Value:  500,
		Active: true,
	}
	require.NoError(t, db.Create(&coupon).Error)

	order, err := svc.CreateOrder(context.Background(), user, []uint{course.ID}, "FLAT500")
	require.NoError(t, err)

	assert.Equal(t, 1500.0, order.Amount)
	assert.Equal(t, 500.0, order.DiscountAmount)
	assert.Equal(t, "FLAT500", order.CouponCode)
	assert.Equal(t, int64(150000), gateway.lastMinor)
}

func TestCreateOrderRejectsUnpublishedCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, &stubGateway{orderID: "order_x"})

	user := seedUser(t, db, "Blocked")
	course := seedCourse(t, db, "Draft Course", 100)
	require.NoError(t, db.Model(course).Update("published", false).Error)

	_, err := svc.CreateOrder(context.Background(), user, []uint{course.ID}, "")
	assert.ErrorIs(t, err, ErrCourseUnavailable)
}

func TestCreateOrderRejectsDuplicateEnrollment(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, &stubGateway{orderID: "order_x"})

	user := seedUser(t, db, "Repeat")
	course := seedCourse(t, db, "Already Owned", 100)

	enrollment := model.Enrollment{
		UserID:     user.ID,
		CourseID:   course.ID,
		Status:     model.EnrollmentStatusActive,
		EnrolledAt: time.Now(),
	}
	require.NoError(t, db.Create(&enrollment).Error)

	_, err := svc.CreateOrder(context.Background(), user, []uint{course.ID}, "")
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
}

func TestCreateOrderRejectsEmptyOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, &stubGateway{orderID: "order_x"})
	user := seedUser(t, db, "Empty")

	_, err := svc.CreateOrder(context.Background(), user, nil, "")
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestExpireStaleOrders(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)
	user := seedUser(t, db, "Stale")

	stale := model.Order{
		UserID:          user.ID,
		CourseIDs:       "1",
		Amount:          100,
		Currency:        "INR",
		Status:          model.OrderStatusCreated,
		RazorpayOrderID: "order_stale",
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&stale).UpdateColumn("created_at", time.Now().Add(-48*time.Hour)).Error)

	fresh := model.Order{
		UserID:          user.ID,
		CourseIDs:       "2",
		Amount:          100,
		Currency:        "INR",
		Status:          model.OrderStatusCreated,
		RazorpayOrderID: "order_fresh",
	}
	require.NoError(t, db.Create(&fresh).Error)

	expired, err := svc.ExpireStaleOrders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var staleAfter, freshAfter model.Order
	require.NoError(t, db.First(&staleAfter, stale.ID).Error)
	require.NoError(t, db.First(&freshAfter, fresh.ID).Error)
	assert.Equal(t, model.OrderStatusExpired, staleAfter.Status)
	assert.Equal(t, model.OrderStatusCreated, freshAfter.Status)
}

func TestReconcileCaptureRejectsEmptyCourseList(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, nil)
	user := seedUser(t, db, "Empty")

	err := svc.ReconcileCapture(context.Background(), &CapturedPayment{
		PaymentID: "pay_no_courses",
		UserID:    user.ID,
		Amount:    10,
		Currency:  "INR",
	})
	require.Error(t, err)

	var payments int64
	db.Model(&model.Payment{}).Count(&payments)
	assert.Equal(t, int64(0), payments)
}
