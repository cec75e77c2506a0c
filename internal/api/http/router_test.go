package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ceivoice/ticket-service/internal/ai"
	"github.com/ceivoice/ticket-service/internal/api/http/handlers"
	"github.com/ceivoice/ticket-service/internal/auth"
	"github.com/ceivoice/ticket-service/internal/config"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/observability"
	"github.com/ceivoice/ticket-service/internal/repository/memory"
	"github.com/ceivoice/ticket-service/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "rootpass"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	local := ai.NewLocalDrafter()
	deps := service.Dependencies{
		Repos:       store.Set(),
		Drafter:     local,
		Recommender: local,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Transitions: service.PermissiveTransitions{},
		Metrics:     metrics,
	}
	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}

	authService := service.NewAuthService(authCfg, deps)
	require.NoError(t, authService.EnsureBootstrapAdmin(context.Background(), adminEmail, adminPassword))
	intake := service.NewIntakeService(deps)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("test", "dev", nil, metrics),
		Users:    handlers.NewUsersHandler(authService, intake),
		Staff:    handlers.NewStaffHandler(authService, service.NewStaffService(authCfg, deps)),
		Requests: handlers.NewRequestsHandler(intake, service.NewTrackingService(deps)),
		Drafts: handlers.NewDraftsHandler(
			service.NewConsolidationService(deps),
			service.NewPromotionService(deps),
		),
		Tickets:        handlers.NewStaffTicketsHandler(service.NewTicketService(deps)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users(), store.Staff()),
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func adminToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, env := do(t, app, http.MethodPost, "/auth/staff/login", "", map[string]string{
		"email": adminEmail, "password": adminPassword,
	})
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Auth.Token)
	return data.Auth.Token
}

func TestSubmitAndTrack(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodPost, "/requests", "", map[string]string{
		"email": "a@x.com", "text": "The printer on floor 2 is broken",
	})
	require.Equal(t, http.StatusCreated, status)
	var submitted struct {
		TrackingToken string `json:"tracking_token"`
		DraftTicketID string `json:"draft_ticket_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	require.NotEmpty(t, submitted.TrackingToken)

	status, env = do(t, app, http.MethodGet, "/track/"+submitted.TrackingToken+"?email=a@x.com", "", nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Stage  string `json:"stage"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Draft", view.Stage)

	status, env = do(t, app, http.MethodGet, "/track/"+submitted.TrackingToken+"?email=b@x.com", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSubmit_ValidationError(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodPost, "/requests", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "required", env.Error.Details["text"])
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodGet, "/admin/drafts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = do(t, app, http.MethodGet, "/admin/drafts", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = do(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@x.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, status)
	var registered struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &registered))

	status, env = do(t, app, http.MethodGet, "/admin/drafts", registered.Auth.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = do(t, app, http.MethodGet, "/me/requests", registered.Auth.Token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)

	draftIDs := []string{}
	trackingTokens := []string{}
	for _, sub := range []map[string]string{
		{"email": "a@x.com", "text": "VPN keeps disconnecting"},
		{"email": "b@x.com", "text": "VPN drops every few minutes"},
	} {
		status, env := do(t, app, http.MethodPost, "/requests", "", sub)
		require.Equal(t, http.StatusCreated, status)
		var res struct {
			TrackingToken string `json:"tracking_token"`
			DraftTicketID string `json:"draft_ticket_id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		draftIDs = append(draftIDs, res.DraftTicketID)
		trackingTokens = append(trackingTokens, res.TrackingToken)
	}

	status, env := do(t, app, http.MethodPost, "/admin/drafts/merge", token, map[string]any{
		"draft_ids": draftIDs[:1],
		"title":     "VPN instability",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, env = do(t, app, http.MethodPost, "/admin/drafts/merge", token, map[string]any{
		"draft_ids":  draftIDs,
		"title":      "VPN instability",
		"summary":    "Users lose VPN connectivity",
		"categories": []string{"Network", "network"},
	})
	require.Equal(t, http.StatusCreated, status)
	var merged struct {
		ID         string   `json:"id"`
		Categories []string `json:"categories"`
		Requests   []struct {
			RequesterEmail string `json:"requester_email"`
		} `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &merged))
	assert.Len(t, merged.Requests, 2)
	assert.Equal(t, []string{"Network"}, merged.Categories)

	status, env = do(t, app, http.MethodPost, "/admin/drafts/"+merged.ID+"/promote", token, nil)
	require.Equal(t, http.StatusCreated, status)
	var ticket struct {
		ID        string   `json:"id"`
		Status    string   `json:"status"`
		Followers []string `json:"followers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, "New", ticket.Status)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, ticket.Followers)

	status, env = do(t, app, http.MethodPatch, "/staff/tickets/"+ticket.ID, token, map[string]any{"status": "solving"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Equal(t, "Solving", ticket.Status)

	status, env = do(t, app, http.MethodPatch, "/staff/tickets/"+ticket.ID, token, map[string]any{"status": "Archived"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, _ = do(t, app, http.MethodPost, "/staff/tickets/"+ticket.ID+"/comments", token, map[string]any{
		"text": "escalated to network team", "internal": true,
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = do(t, app, http.MethodGet, "/staff/tickets/"+ticket.ID+"/history", token, nil)
	require.Equal(t, http.StatusOK, status)
	var history []struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "Promoted", history[0].Action)
	assert.Equal(t, "Status Updated", history[1].Action)

	status, env = do(t, app, http.MethodGet, "/track/"+trackingTokens[1]+"?email=b@x.com", "", nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Stage    string `json:"stage"`
		Status   string `json:"status"`
		Comments []any  `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Active", view.Stage)
	assert.Equal(t, "Solving", view.Status)
	assert.Empty(t, view.Comments)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
