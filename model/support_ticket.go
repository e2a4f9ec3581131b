package model

import (
	"time"

	"gorm.io/gorm"
)

// Support ticket statuses
const (
	TicketStatusOpen     = "open"
	TicketStatusPending  = "pending"
	TicketStatusResolved = "resolved"
	TicketStatusClosed   = "closed"
)

// SupportTicket is a student-opened support thread
type SupportTicket struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	Reference  string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"reference"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Subject    string         `gorm:"not null" json:"subject"`
	Status     string         `gorm:"type:varchar(20);default:'open';index" json:"status"`
	Priority   string         `gorm:"type:varchar(10);default:'normal'" json:"priority"` // low, normal, high
	AssignedTo *uint          `gorm:"index" json:"assigned_to,omitempty"`

	// Relationships
	User    User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Replies []TicketReply `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"replies,omitempty"`
}

// TicketReply is one message in a ticket thread
type TicketReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for SupportTicket
func (SupportTicket) TableName() string {
	return "support_tickets"
}

// TableName specifies the table name for TicketReply
func (TicketReply) TableName() string {
	return "ticket_replies"
}
