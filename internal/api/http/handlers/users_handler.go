package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/dto"
	"github.com/ceivoice/ticket-service/internal/service"
)

// UsersHandler exposes requester account endpoints.
type UsersHandler struct {
	auth   *service.AuthService
	intake *service.IntakeService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, intake *service.IntakeService) *UsersHandler {
	return &UsersHandler{auth: authService, intake: intake}
}

// Register handles POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.RegisterUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// MyRequests handles GET /me/requests.
func (h *UsersHandler) MyRequests(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	summaries, err := h.intake.ListRequests(c.UserContext(), user.Email)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, dto.RequestSummary{
			ID:            s.Request.ID,
			TrackingToken: s.Request.TrackingToken,
			Body:          s.Request.Body,
			Stage:         string(s.Stage),
			Status:        s.Status,
			Title:         s.Title,
			TicketID:      s.TicketID,
			CreatedAt:     s.Request.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
