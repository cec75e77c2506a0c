package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/dto"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/service"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// StaffTicketsHandler exposes staff ticket operations.
type StaffTicketsHandler struct {
	service *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{service: ticketService}
}

// List handles GET /staff/tickets.
func (h *StaffTicketsHandler) List(c *fiber.Ctx) error {
	filter, err := parseStaffTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /staff/tickets/:id.
func (h *StaffTicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), ticket.ID, true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":   ticketResponse(ticket),
		"comments": commentResponses(comments),
	}})
}

// Update handles PATCH /staff/tickets/:id.
func (h *StaffTicketsHandler) Update(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := service.TicketUpdateInput{
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
		AssigneeEmail: req.AssigneeEmail,
		ClearAssignee: req.ClearAssignee,
	}
	if req.Status != nil {
		status, err := domain.ParseTicketStatus(*req.Status)
		if err != nil {
			return apperrors.NewValidationError("unknown ticket status", map[string]any{"status": *req.Status})
		}
		input.Status = &status
	}
	ticket, err := h.service.Update(c.UserContext(), c.Params("id"), input, staff.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// History handles GET /staff/tickets/:id/history.
func (h *StaffTicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.HistoryResponse{
			ID:          e.ID,
			Action:      e.Action,
			PerformedBy: e.PerformedBy,
			Details:     e.Details,
			CreatedAt:   e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment handles POST /staff/tickets/:id/comments.
func (h *StaffTicketsHandler) AddComment(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.UserContext(), c.Params("id"), staff.Email, req.Text, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

func parseStaffTicketFilter(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statuses := c.Query("status"); statuses != "" {
		for _, raw := range strings.Split(statuses, ",") {
			status, err := domain.ParseTicketStatus(raw)
			if err != nil {
				return filter, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": raw})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if assignee := strings.TrimSpace(c.Query("assignee")); assignee != "" {
		filter.AssigneeEmail = &assignee
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}
