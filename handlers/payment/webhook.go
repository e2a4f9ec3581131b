package payment

import (
	"errors"
	"log"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookHandler handles payment gateway webhook deliveries
type WebhookHandler struct {
	db            *gorm.DB
	payments      *services.PaymentService
	webhookSecret string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(db *gorm.DB, payments *services.PaymentService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		db:            db,
		payments:      payments,
		webhookSecret: webhookSecret,
	}
}

// HandleWebhook handles POST /api/v1/payments/webhook
//
// Status codes are the contract with the gateway's retry loop: 400 only for
// a bad signature, 500 when a store failure makes a retry worthwhile, and
// 200 for everything else, including events we ignore or cannot reconcile.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	// The signature covers the raw bytes; any re-encoding would break it
	body := utils.CopyBytes(c.Body())
	signature := c.Get("X-Razorpay-Signature")

	if !services.VerifyWebhookSignature(body, signature, h.webhookSecret) {
		log.Printf("webhook: rejected delivery with invalid signature")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	captured, err := services.InterpretWebhookEvent(body)

	switch {
	case errors.Is(err, services.ErrUnreconcilable):
		// The notes were never attached; a gateway retry sends the same
		// payload, so acknowledge and leave it for manual reconciliation.
		h.logEvent(body, captured, model.GatewayEventIntegrityFailure, err)
		return h.acknowledge(c)

	case captured == nil:
		h.logEvent(body, nil, model.GatewayEventIgnored, nil)
		return h.acknowledge(c)
	}

	if err := h.payments.ReconcileCapture(c.UserContext(), captured); err != nil {
		log.Printf("webhook: reconciliation failed for payment %s: %v", captured.PaymentID, err)
		h.logEvent(body, captured, model.GatewayEventFailed, err)
		// 500 asks the gateway to retry; reconciliation is idempotent
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	h.logEvent(body, captured, model.GatewayEventProcessed, nil)
	return h.acknowledge(c)
}

func (h *WebhookHandler) acknowledge(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// logEvent records a delivery that passed the signature gate. Best effort:
// the audit trail never changes the response the gateway sees.
func (h *WebhookHandler) logEvent(body []byte, captured *services.CapturedPayment, outcome string, procErr error) {
	event := model.PaymentGatewayEvent{
		EventType:      services.WebhookEventType(body),
		Payload:        datatypes.JSON(body),
		SignatureValid: true,
		Outcome:        outcome,
	}
	if captured != nil {
		event.RazorpayPaymentID = captured.PaymentID
		event.RazorpayOrderID = captured.OrderID
	}
	if procErr != nil {
		event.ErrorMsg = procErr.Error()
	}

	if err := h.db.Create(&event).Error; err != nil {
		log.Printf("webhook: failed to log gateway event: %v", err)
	}
}
