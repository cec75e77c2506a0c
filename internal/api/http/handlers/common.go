package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/dto"
	"github.com/ceivoice/ticket-service/internal/auth"
	"github.com/ceivoice/ticket-service/internal/domain"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parses the JSON body into dst and runs its validate tags.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			details[fe.Field()] = fe.Tag() + "=" + fe.Param()
		} else {
			details[fe.Field()] = fe.Tag()
		}
	}
	return apperrors.NewValidationError("validation failed", details)
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff context missing")
	}
	return principal.Staff, nil
}

func userPrincipal(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func draftResponse(d *domain.DraftTicket) dto.DraftResponse {
	requests := make([]dto.UserRequestResponse, 0, len(d.Requests))
	for _, req := range d.Requests {
		requests = append(requests, dto.UserRequestResponse{
			ID:             req.ID,
			RequesterEmail: req.RequesterEmail,
			Body:           req.Body,
			CreatedAt:      req.CreatedAt,
		})
	}
	return dto.DraftResponse{
		ID:                 d.ID,
		Title:              d.Title,
		Summary:            d.Summary,
		SuggestedSolutions: d.SuggestedSolutions,
		SuggestedAssignee:  d.SuggestedAssignee,
		Deadline:           d.Deadline,
		Categories:         nonNil(d.Categories),
		Assignees:          nonNil(d.Assignees),
		Requests:           requests,
		CreatedAt:          d.CreatedAt,
	}
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 t.ID,
		Title:              t.Title,
		Content:            t.Content,
		SuggestedSolutions: t.SuggestedSolutions,
		Status:             string(t.Status),
		Deadline:           t.Deadline,
		Categories:         nonNil(t.Categories),
		Assignees:          nonNil(t.Assignees),
		Followers:          t.Followers,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func commentResponses(comments []domain.Comment) []dto.CommentResponse {
	out := make([]dto.CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, commentResponse(&cm))
	}
	return out
}

func commentResponse(cm *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:          cm.ID,
		AuthorEmail: cm.AuthorEmail,
		Body:        cm.Body,
		Internal:    cm.IsInternal,
		CreatedAt:   cm.CreatedAt,
	}
}

func staffResponse(s *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      string(s.Role),
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
