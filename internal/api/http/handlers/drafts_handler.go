package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/dto"
	"github.com/ceivoice/ticket-service/internal/service"
)

// DraftsHandler serves the admin draft review endpoints.
type DraftsHandler struct {
	consolidation *service.ConsolidationService
	promotion     *service.PromotionService
}

// NewDraftsHandler constructs handler.
func NewDraftsHandler(consolidation *service.ConsolidationService, promotion *service.PromotionService) *DraftsHandler {
	return &DraftsHandler{consolidation: consolidation, promotion: promotion}
}

// List handles GET /admin/drafts.
func (h *DraftsHandler) List(c *fiber.Ctx) error {
	drafts, err := h.consolidation.ListDrafts(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DraftResponse, 0, len(drafts))
	for i := range drafts {
		items = append(items, draftResponse(&drafts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /admin/drafts/:id.
func (h *DraftsHandler) Get(c *fiber.Ctx) error {
	draft, err := h.consolidation.GetDraft(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": draftResponse(draft)})
}

// Update handles PATCH /admin/drafts/:id.
func (h *DraftsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateDraftRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := service.DraftUpdateInput{
		Title:              req.Title,
		Summary:            req.Summary,
		SuggestedSolutions: req.SuggestedSolutions,
		Deadline:           req.Deadline,
		ClearDeadline:      req.ClearDeadline,
		AssigneeEmail:      req.AssigneeEmail,
	}
	if req.Categories != nil {
		input.Categories = *req.Categories
		input.ReplaceCategories = true
	}
	draft, err := h.consolidation.UpdateDraft(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": draftResponse(draft)})
}

// Merge handles POST /admin/drafts/merge.
func (h *DraftsHandler) Merge(c *fiber.Ctx) error {
	var req dto.MergeDraftsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	draft, err := h.consolidation.Merge(c.UserContext(), service.MergeInput{
		DraftIDs:           req.DraftIDs,
		Title:              req.Title,
		Summary:            req.Summary,
		SuggestedSolutions: req.SuggestedSolutions,
		Categories:         req.Categories,
		Deadline:           req.Deadline,
		AssigneeEmail:      req.AssigneeEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": draftResponse(draft)})
}

// Recommendations handles GET /admin/drafts/recommendations.
func (h *DraftsHandler) Recommendations(c *fiber.Ctx) error {
	groups, err := h.consolidation.RecommendMerges(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groups})
}

// Unlink handles POST /admin/drafts/:id/unlink.
func (h *DraftsHandler) Unlink(c *fiber.Ctx) error {
	var req dto.UnlinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	draft, err := h.consolidation.Unlink(c.UserContext(), c.Params("id"), req.UserRequestID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": draftResponse(draft)})
}

// Promote handles POST /admin/drafts/:id/promote.
func (h *DraftsHandler) Promote(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PromoteRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	ticket, err := h.promotion.Promote(c.UserContext(), service.PromoteInput{
		DraftID:       c.Params("id"),
		Deadline:      req.Deadline,
		AssigneeEmail: req.AssigneeEmail,
		PerformedBy:   actor.Email,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}
