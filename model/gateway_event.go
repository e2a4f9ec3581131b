package model

import (
	"time"

	"gorm.io/datatypes"
)

// Gateway event processing outcomes
const (
	GatewayEventProcessed        = "processed"
	GatewayEventIgnored          = "ignored"
	GatewayEventIntegrityFailure = "integrity_failure"
	GatewayEventFailed           = "failed"
)

// PaymentGatewayEvent logs every webhook delivery that passed the signature
// gate, including ignored and unreconcilable ones, so captures the gateway
// cannot replay usefully can still be reconciled by hand.
type PaymentGatewayEvent struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	EventType         string         `gorm:"type:varchar(100);index" json:"event_type"`
	RazorpayPaymentID string         `gorm:"type:varchar(100);index" json:"razorpay_payment_id"`
	RazorpayOrderID   string         `gorm:"type:varchar(100)" json:"razorpay_order_id"`
	Payload           datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	SignatureValid    bool           `gorm:"default:false" json:"signature_valid"`
	Outcome           string         `gorm:"type:varchar(30);index" json:"outcome"` // processed, ignored, integrity_failure, failed
	ErrorMsg          string         `gorm:"type:text" json:"error_msg,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// TableName specifies the table name for PaymentGatewayEvent
func (PaymentGatewayEvent) TableName() string {
	return "payment_gateway_events"
}
