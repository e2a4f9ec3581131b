package model

import (
	"time"
)

// Payment statuses
const (
	PaymentStatusCreated  = "created"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment records a single captured gateway transaction. The gateway payment
// id is the idempotency key: the unique index backstops the transactional
// existence check in the reconciler so two concurrent webhook deliveries
// cannot both insert.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	UserName  string    `gorm:"type:varchar(255)" json:"user_name"` // denormalized at write time

	// Primary purchased item, for display; the full list lives on the order
	CourseID    uint   `gorm:"index" json:"course_id"`
	CourseTitle string `gorm:"type:varchar(255)" json:"course_title"`

	Amount            float64 `gorm:"not null" json:"amount"` // major currency units
	Currency          string  `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status            string  `gorm:"type:varchar(20);default:'created'" json:"status"`
	RazorpayOrderID   string  `gorm:"type:varchar(100);index" json:"razorpay_order_id"`
	RazorpayPaymentID string  `gorm:"type:varchar(100);uniqueIndex" json:"razorpay_payment_id"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID" json:"-"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}
