package services

import (
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrderCreator requests an order from the payment gateway. Declared
// as an interface so order creation can be tested without hitting Razorpay.
type GatewayOrderCreator interface {
	CreateOrder(amountMinor int64, currency, receipt string, notes map[string]interface{}) (string, error)
}

// RazorpayService wraps the Razorpay REST client
type RazorpayService struct {
	client *razorpay.Client
	keyID  string
}

// NewRazorpayService creates a Razorpay client wrapper
func NewRazorpayService(keyID, keySecret string) *RazorpayService {
	return &RazorpayService{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
	}
}

// KeyID returns the public key id the frontend checkout needs
func (s *RazorpayService) KeyID() string {
	return s.keyID
}

// CreateOrder requests a gateway order. Amount is in minor units (paise);
// notes carry the merchant metadata echoed back in webhook payloads.
func (s *RazorpayService) CreateOrder(amountMinor int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	body, err := s.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create failed: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay order create returned no id")
	}

	return orderID, nil
}
