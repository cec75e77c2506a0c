package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/dto"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/service"
)

// StaffHandler exposes staff login and staff management endpoints.
type StaffHandler struct {
	auth  *service.AuthService
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{auth: authService, staff: staffService}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	staff, token, exp, err := h.auth.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// ListSpecialists handles GET /staff/specialists.
func (h *StaffHandler) ListSpecialists(c *fiber.Ctx) error {
	members, err := h.staff.ListSpecialists(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		items = append(items, staffResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create handles POST /admin/staff.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	member, err := h.staff.CreateStaffMember(c.UserContext(), actor, req.Name, req.Email, req.Password, domain.StaffRole(req.Role))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(member)})
}

// SetActive handles PATCH /admin/staff/:id.
func (h *StaffHandler) SetActive(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffActiveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	member, err := h.staff.SetActive(c.UserContext(), actor, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(member)})
}
