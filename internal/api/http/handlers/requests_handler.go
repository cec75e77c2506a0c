package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/dto"
	"github.com/ceivoice/ticket-service/internal/service"
)

// RequestsHandler serves the public intake and tracking endpoints.
type RequestsHandler struct {
	intake   *service.IntakeService
	tracking *service.TrackingService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(intake *service.IntakeService, tracking *service.TrackingService) *RequestsHandler {
	return &RequestsHandler{intake: intake, tracking: tracking}
}

// Submit handles POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.intake.Submit(c.UserContext(), req.Email, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitResponse{
		TrackingToken: result.TrackingToken,
		UserRequestID: result.UserRequestID,
		DraftTicketID: result.DraftTicketID,
	}})
}

// Track handles GET /track/:token?email=.
func (h *RequestsHandler) Track(c *fiber.Ctx) error {
	view, err := h.tracking.Resolve(c.UserContext(), c.Params("token"), c.Query("email"))
	if err != nil {
		return err
	}
	resp := dto.TrackingResponse{
		Stage:         string(view.Stage),
		Status:        view.Status,
		TrackingToken: view.TrackingToken,
		SubmittedAt:   view.SubmittedAt,
		RequestBody:   view.RequestBody,
		Title:         view.Title,
		Summary:       view.Summary,
		TicketID:      view.TicketID,
		Content:       view.Content,
		Deadline:      view.Deadline,
		Assignees:     view.Assignees,
	}
	if view.TicketID != nil {
		resp.Comments = commentResponses(view.Comments)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddComment handles POST /track/:token/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	var req dto.PublicCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.tracking.AddPublicComment(c.UserContext(), c.Params("token"), req.Email, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}
