package model

import (
	"strconv"
	"strings"
	"time"
)

// Order statuses
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
	OrderStatusExpired = "expired"
)

// Order is persisted when a gateway order is requested, so the webhook can
// recover the purchased course list by gateway order id instead of trusting
// only the notes echoed back in the payload.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`

	// Comma-joined course ids, same encoding the gateway notes carry
	CourseIDs string `gorm:"type:text;not null" json:"course_ids"`

	Amount          float64 `gorm:"not null" json:"amount"` // major units, after discount
	Currency        string  `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status          string  `gorm:"type:varchar(20);default:'created';index" json:"status"`
	CouponCode      string  `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	DiscountAmount  float64 `gorm:"default:0" json:"discount_amount"`
	Receipt         string  `gorm:"type:varchar(64)" json:"receipt"`
	RazorpayOrderID string  `gorm:"type:varchar(100);uniqueIndex" json:"razorpay_order_id"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// CourseIDList decodes the comma-joined course id string, dropping empty
// and malformed segments while preserving order.
func (o *Order) CourseIDList() []uint {
	return ParseCourseIDs(o.CourseIDs)
}

// ParseCourseIDs splits a comma-joined course id string into ids. Empty and
// non-numeric segments are dropped; order is preserved.
func ParseCourseIDs(joined string) []uint {
	var ids []uint
	for _, part := range strings.Split(joined, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// JoinCourseIDs encodes course ids into the comma-joined form carried in
// gateway order notes.
func JoinCourseIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}
