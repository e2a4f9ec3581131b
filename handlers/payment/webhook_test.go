package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test"

func newWebhookTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
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
		&model.PaymentGatewayEvent{},
	))

	paymentService := services.NewPaymentService(db, nil)
	handler := NewWebhookHandler(db, paymentService, testWebhookSecret)

	app := fiber.New()
	app.Post("/api/v1/payments/webhook", handler.HandleWebhook)

	return app, db
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func capturedWebhookBody(userID uint, courseIDs, paymentID, orderID string, amountMinor int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": %q,
					"order_id": %q,
					"amount": %d,
					"currency": "INR",
					"status": "captured",
					"notes": {"userId": "%d", "courseIds": %q, "userName": "Test User"}
				}
			}
		}
	}`, paymentID, orderID, amountMinor, userID, courseIDs))
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	app, db := newWebhookTestApp(t)

	body := capturedWebhookBody(1, "1", "pay_bad_sig", "", 100)

	resp := postWebhook(t, app, body, "deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "Invalid signature")

	// Nothing is written for deliveries that fail the signature gate
	var events, payments int64
	db.Model(&model.PaymentGatewayEvent{}).Count(&events)
	db.Model(&model.Payment{}).Count(&payments)
	assert.Equal(t, int64(0), events)
	assert.Equal(t, int64(0), payments)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	resp := postWebhook(t, app, []byte(`{"event":"payment.captured"}`), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	app, db := newWebhookTestApp(t)

	body := []byte(`{"event": "refund.created", "payload": {}}`)
	signature := services.SignWebhookBody(body, testWebhookSecret)

	resp := postWebhook(t, app, body, signature)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.True(t, ack["received"])

	var event model.PaymentGatewayEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, "refund.created", event.EventType)
	assert.Equal(t, model.GatewayEventIgnored, event.Outcome)
	assert.True(t, event.SignatureValid)

	var payments int64
	db.Model(&model.Payment{}).Count(&payments)
	assert.Equal(t, int64(0), payments)
}

func TestWebhookProcessesCapture(t *testing.T) {
	app, db := newWebhookTestApp(t)

	user := model.User{Email: "buyer@example.com", PasswordHash: "x", Name: "Buyer", ReferralCode: "BUYER123"}
	require.NoError(t, db.Create(&user).Error)
	course := model.Course{InstructorID: 1, Title: "Webhook Course", Slug: "webhook-course", Price: 999, Currency: "INR", Published: true}
	require.NoError(t, db.Create(&course).Error)

	body := capturedWebhookBody(user.ID, fmt.Sprintf("%d", course.ID), "pay_ok", "order_ok", 99900)
	signature := services.SignWebhookBody(body, testWebhookSecret)

	resp := postWebhook(t, app, body, signature)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payment model.Payment
	require.NoError(t, db.Where("razorpay_payment_id = ?", "pay_ok").First(&payment).Error)
	assert.Equal(t, 999.0, payment.Amount)

	var enrollment model.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, model.EnrollmentStatusActive, enrollment.Status)

	var event model.PaymentGatewayEvent
	require.NoError(t, db.Where("razorpay_payment_id = ?", "pay_ok").First(&event).Error)
	assert.Equal(t, model.GatewayEventProcessed, event.Outcome)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	app, db := newWebhookTestApp(t)

	user := model.User{Email: "replay@example.com", PasswordHash: "x", Name: "Replay", ReferralCode: "REPLAY12"}
	require.NoError(t, db.Create(&user).Error)
	course := model.Course{InstructorID: 1, Title: "Replay Course", Slug: "replay-course", Price: 500, Currency: "INR", Published: true}
	require.NoError(t, db.Create(&course).Error)

	body := capturedWebhookBody(user.ID, fmt.Sprintf("%d", course.ID), "pay_replay", "", 50000)
	signature := services.SignWebhookBody(body, testWebhookSecret)

	first := postWebhook(t, app, body, signature)
	second := postWebhook(t, app, body, signature)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusOK, second.StatusCode)

	var payments, enrollments int64
	db.Model(&model.Payment{}).Where("razorpay_payment_id = ?", "pay_replay").Count(&payments)
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	assert.Equal(t, int64(1), payments)
	assert.Equal(t, int64(1), enrollments)

	// Both deliveries are logged even though only one granted access
	var events int64
	db.Model(&model.PaymentGatewayEvent{}).Where("razorpay_payment_id = ?", "pay_replay").Count(&events)
	assert.Equal(t, int64(2), events)
}

func TestWebhookAcknowledgesUnreconcilableCapture(t *testing.T) {
	app, db := newWebhookTestApp(t)

	// Captured payment without merchant notes: retrying cannot fix it, so
	// the gateway must get a 200
	body := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_no_notes",
					"amount": 100,
					"currency": "INR",
					"status": "captured",
					"notes": []
				}
			}
		}
	}`)
	signature := services.SignWebhookBody(body, testWebhookSecret)

	resp := postWebhook(t, app, body, signature)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var event model.PaymentGatewayEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, model.GatewayEventIntegrityFailure, event.Outcome)
	assert.NotEmpty(t, event.ErrorMsg)

	var payments int64
	db.Model(&model.Payment{}).Count(&payments)
	assert.Equal(t, int64(0), payments)
}

func TestWebhookReturns500OnStoreFailure(t *testing.T) {
	app, db := newWebhookTestApp(t)

	user := model.User{Email: "fail@example.com", PasswordHash: "x", Name: "Fail", ReferralCode: "FAIL1234"}
	require.NoError(t, db.Create(&user).Error)
	course := model.Course{InstructorID: 1, Title: "Broken Store", Slug: "broken-store", Price: 100, Currency: "INR", Published: true}
	require.NoError(t, db.Create(&course).Error)

	err := db.Callback().Create().Before("gorm:create").Register("fail_payments", func(tx *gorm.DB) {
		if tx.Statement.Table == "payments" {
			tx.AddError(gorm.ErrInvalidDB)
		}
	})
	require.NoError(t, err)
	defer db.Callback().Create().Remove("fail_payments")

	body := capturedWebhookBody(user.ID, fmt.Sprintf("%d", course.ID), "pay_store_fail", "", 10000)
	signature := services.SignWebhookBody(body, testWebhookSecret)

	resp := postWebhook(t, app, body, signature)
	// 500 tells the gateway to retry once the store recovers
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
