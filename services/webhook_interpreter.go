package services

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/coursevault/api/model"
)

// EventPaymentCaptured is the only gateway event type that triggers
// reconciliation; everything else is acknowledged and ignored.
const EventPaymentCaptured = "payment.captured"

// ErrUnreconcilable marks a captured payment whose merchant notes are
// missing or unusable. Retrying cannot fix it (the notes were never
// attached), so the handler acknowledges the event and leaves it for manual
// reconciliation.
var ErrUnreconcilable = errors.New("captured payment is missing reconciliation metadata")

// CapturedPayment is the normalized form of a payment.captured webhook
type CapturedPayment struct {
	PaymentID   string  // gateway payment id, the idempotency key
	OrderID     string  // gateway order id
	Amount      float64 // major currency units
	Currency    string
	UserID      uint
	CourseIDs   []uint // purchase list from notes; first id is primary
	UserName    string
	CourseTitle string
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity *paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	Amount   int64           `json:"amount"` // minor units (paise)
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Notes    json.RawMessage `json:"notes"`
}

// notes decodes the merchant notes bag. The gateway sends "[]" instead of an
// object when no notes were attached, so decode failures yield an empty map.
func (e *paymentEntity) notes() map[string]string {
	m := map[string]string{}
	if len(e.Notes) == 0 {
		return m
	}
	if err := json.Unmarshal(e.Notes, &m); err != nil {
		return map[string]string{}
	}
	return m
}

// WebhookEventType extracts the top-level event field without interpreting
// the rest of the payload. Returns "" for malformed JSON.
func WebhookEventType(raw []byte) string {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Event
}

// InterpretWebhookEvent parses a verified webhook body and extracts the
// captured payment, if any.
//
// Returns (nil, nil) for events that need no action: unknown event types,
// non-captured payment status, a missing entity, or unparseable JSON — the
// caller must still acknowledge these so the gateway stops retrying.
// Returns (nil, ErrUnreconcilable) when a captured payment lacks the
// userId/courseIds notes needed to grant access.
func InterpretWebhookEvent(raw []byte) (*CapturedPayment, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("webhook: discarding malformed payload: %v", err)
		return nil, nil
	}

	if env.Event != EventPaymentCaptured {
		return nil, nil
	}

	entity := env.Payload.Payment.Entity
	if entity == nil || entity.Status != "captured" {
		return nil, nil
	}

	notes := entity.notes()

	userIDRaw, ok := notes["userId"]
	if !ok || userIDRaw == "" {
		log.Printf("webhook: captured payment %s has no userId note", entity.ID)
		return nil, ErrUnreconcilable
	}

	userID, err := strconv.ParseUint(strings.TrimSpace(userIDRaw), 10, 32)
	if err != nil {
		log.Printf("webhook: captured payment %s has malformed userId note %q", entity.ID, userIDRaw)
		return nil, ErrUnreconcilable
	}

	courseIDs := model.ParseCourseIDs(notes["courseIds"])
	if len(courseIDs) == 0 {
		log.Printf("webhook: captured payment %s has no usable courseIds note", entity.ID)
		return nil, ErrUnreconcilable
	}

	return &CapturedPayment{
		PaymentID:   entity.ID,
		OrderID:     entity.OrderID,
		Amount:      float64(entity.Amount) / 100, // gateway amounts are in minor units
		Currency:    entity.Currency,
		UserID:      uint(userID),
		CourseIDs:   courseIDs,
		UserName:    notes["userName"],
		CourseTitle: notes["courseTitle"],
	}, nil
}
