package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturedBody(notes string) []byte {
	return []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_abc123",
					"order_id": "order_xyz789",
					"amount": 499900,
					"currency": "INR",
					"status": "captured",
					"notes": ` + notes + `
				}
			}
		}
	}`)
}

func TestInterpretWebhookEventHappyPath(t *testing.T) {
	body := capturedBody(`{"userId": "42", "courseIds": "7,13", "userName": "Asha"}`)

	cp, err := InterpretWebhookEvent(body)
	require.NoError(t, err)
	require.NotNil(t, cp)

	assert.Equal(t, "pay_abc123", cp.PaymentID)
	assert.Equal(t, "order_xyz789", cp.OrderID)
	assert.Equal(t, 4999.00, cp.Amount) // 499900 paise
	assert.Equal(t, "INR", cp.Currency)
	assert.Equal(t, uint(42), cp.UserID)
	assert.Equal(t, []uint{7, 13}, cp.CourseIDs)
	assert.Equal(t, "Asha", cp.UserName)
}

func TestInterpretWebhookEventToleratesSpacedCourseIDs(t *testing.T) {
	body := capturedBody(`{"userId": "42", "courseIds": " 7, 13 ,,abc, 21 "}`)

	cp, err := InterpretWebhookEvent(body)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, []uint{7, 13, 21}, cp.CourseIDs)
}

func TestInterpretWebhookEventIgnoresOtherEvents(t *testing.T) {
	cases := map[string][]byte{
		"order.paid":     []byte(`{"event": "order.paid", "payload": {}}`),
		"payment.failed": []byte(`{"event": "payment.failed", "payload": {}}`),
		"refund.created": []byte(`{"event": "refund.created", "payload": {}}`),
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cp, err := InterpretWebhookEvent(body)
			assert.NoError(t, err)
			assert.Nil(t, cp)
		})
	}
}

func TestInterpretWebhookEventIgnoresNonCapturedStatus(t *testing.T) {
	body := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_abc123",
					"amount": 100,
					"status": "authorized",
					"notes": {"userId": "42", "courseIds": "7"}
				}
			}
		}
	}`)

	cp, err := InterpretWebhookEvent(body)
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestInterpretWebhookEventIgnoresMalformedJSON(t *testing.T) {
	cp, err := InterpretWebhookEvent([]byte(`{"event": "payment.captured", "payload`))
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestInterpretWebhookEventIgnoresMissingEntity(t *testing.T) {
	cp, err := InterpretWebhookEvent([]byte(`{"event": "payment.captured", "payload": {"payment": {}}}`))
	assert.NoError(t, err)
	assert.Nil(t, cp)
}

func TestInterpretWebhookEventUnreconcilableNotes(t *testing.T) {
	cases := map[string]string{
		"missing userId":    `{"courseIds": "7"}`,
		"malformed userId":  `{"userId": "not-a-number", "courseIds": "7"}`,
		"missing courseIds": `{"userId": "42"}`,
		"empty courseIds":   `{"userId": "42", "courseIds": ""}`,
		"garbage courseIds": `{"userId": "42", "courseIds": "a,b,c"}`,
		"empty notes array": `[]`,
	}

	for name, notes := range cases {
		t.Run(name, func(t *testing.T) {
			cp, err := InterpretWebhookEvent(capturedBody(notes))
			assert.ErrorIs(t, err, ErrUnreconcilable)
			assert.Nil(t, cp)
		})
	}
}

func TestWebhookEventType(t *testing.T) {
	assert.Equal(t, "payment.captured", WebhookEventType([]byte(`{"event":"payment.captured"}`)))
	assert.Equal(t, "", WebhookEventType([]byte(`not json`)))
}
