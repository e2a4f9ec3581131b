package ticket

import (
	"errors"
	"log"
	"strings"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/utils/middleware"
	"github.com/coursevault/api/utils/response"
	"github.com/coursevault/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketHandler handles support ticket requests
type TicketHandler struct {
	db        *gorm.DB
	email     *services.EmailService
	validator *validation.Validator
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(db *gorm.DB, email *services.EmailService) *TicketHandler {
	return &TicketHandler{
		db:        db,
		email:     email,
		validator: validation.NewValidator(),
	}
}

// CreateTicketRequest represents the request body for opening a ticket
type CreateTicketRequest struct {
	Subject  string `json:"subject" validate:"required,min=5,max=255"`
	Message  string `json:"message" validate:"required,min=10,max=10000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high"`
}

// ReplyRequest represents the request body for replying to a ticket
type ReplyRequest struct {
	Message string `json:"message" validate:"required,min=1,max=10000"`
}

// AssignRequest represents the request body for assigning a ticket
type AssignRequest struct {
	AssignedTo uint `json:"assigned_to" validate:"required,min=1"`
}

// StatusRequest represents the request body for a status change
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open pending resolved closed"`
}

func newTicketReference() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateTicket handles POST /api/v1/tickets
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Priority == "" {
		req.Priority = "normal"
	}

	ticket := model.SupportTicket{
		Reference: newTicketReference(),
		UserID:    user.ID,
		Subject:   validation.SanitizeString(req.Subject),
		Status:    model.TicketStatusOpen,
		Priority:  req.Priority,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}

		reply := model.TicketReply{
			TicketID: ticket.ID,
			UserID:   user.ID,
			Message:  validation.SanitizeString(req.Message),
		}
		return tx.Create(&reply).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create ticket")
	}

	return response.Created(c, ticket)
}

// ListMyTickets handles GET /api/v1/tickets/my
func (h *TicketHandler) ListMyTickets(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var tickets []model.SupportTicket
	err := h.db.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch tickets")
	}

	return response.Success(c, tickets)
}

// loadTicket fetches a ticket and enforces access. Staff see everything;
// students only their own threads.
func (h *TicketHandler) loadTicket(c *fiber.Ctx, user *model.User) (*model.SupportTicket, error) {
	id := c.Params("id")

	var ticket model.SupportTicket
	if err := h.db.Preload("Replies").First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Ticket not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch ticket")
	}

	if !user.IsStaff() && ticket.UserID != user.ID {
		return nil, response.Forbidden(c, "Not your ticket")
	}

	return &ticket, nil
}

// GetTicket handles GET /api/v1/tickets/:id
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	ticket, err := h.loadTicket(c, user)
	if err != nil {
		return err
	}

	return response.Success(c, ticket)
}

// ReplyToTicket handles POST /api/v1/tickets/:id/replies
func (h *TicketHandler) ReplyToTicket(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ticket, err := h.loadTicket(c, user)
	if err != nil {
		return err
	}

	if ticket.Status == model.TicketStatusClosed {
		return response.BadRequest(c, "Ticket is closed")
	}

	reply := model.TicketReply{
		TicketID: ticket.ID,
		UserID:   user.ID,
		Message:  validation.SanitizeString(req.Message),
	}
	if err := h.db.Create(&reply).Error; err != nil {
		return response.InternalServerError(c, "Failed to add reply")
	}

	// A staff reply flips the thread back to the student and notifies them
	if user.IsStaff() && ticket.UserID != user.ID {
		h.db.Model(ticket).Update("status", model.TicketStatusPending)

		var owner model.User
		if err := h.db.First(&owner, ticket.UserID).Error; err == nil {
			if err := h.email.SendTicketReplyEmail(owner.Email, owner.Name, ticket.Reference); err != nil {
				log.Printf("ticket: failed to send reply notification: %v", err)
			}
		}
	}

	return response.Created(c, reply)
}

// ListAllTickets handles GET /api/v1/admin/tickets
func (h *TicketHandler) ListAllTickets(c *fiber.Ctx) error {
	status := c.Query("status", "")

	query := h.db.Model(&model.SupportTicket{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var tickets []model.SupportTicket
	if err := query.Order("created_at DESC").Limit(100).Find(&tickets).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tickets")
	}

	return response.Success(c, tickets)
}

// AssignTicket handles PATCH /api/v1/admin/tickets/:id/assign
func (h *TicketHandler) AssignTicket(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ticket, err := h.loadTicket(c, user)
	if err != nil {
		return err
	}

	var assignee model.User
	if err := h.db.First(&assignee, req.AssignedTo).Error; err != nil || !assignee.IsStaff() {
		return response.BadRequest(c, "Assignee must be a staff member")
	}

	ticket.AssignedTo = &assignee.ID
	if err := h.db.Save(ticket).Error; err != nil {
		return response.InternalServerError(c, "Failed to assign ticket")
	}

	return response.SuccessWithMessage(c, "Ticket assigned", ticket)
}

// SetTicketStatus handles PATCH /api/v1/admin/tickets/:id/status
func (h *TicketHandler) SetTicketStatus(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ticket, err := h.loadTicket(c, user)
	if err != nil {
		return err
	}

	ticket.Status = req.Status
	if err := h.db.Save(ticket).Error; err != nil {
		return response.InternalServerError(c, "Failed to update ticket")
	}

	return response.SuccessWithMessage(c, "Ticket status updated", ticket)
}
