package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

type fakeTickets struct {
	tickets   []domain.Ticket
	refreshed []string
}

func (f *fakeTickets) List(context.Context) ([]domain.Ticket, error) { return f.tickets, nil }

func (f *fakeTickets) Get(_ context.Context, id string) (*domain.Ticket, error) {
	for i := range f.tickets {
		if f.tickets[i].ID == id {
			return &f.tickets[i], nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", domain.ErrTicketNotFound, nil)
}

func (f *fakeTickets) Refresh(ctx context.Context, id string) error {
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	f.refreshed = append(f.refreshed, id)
	return nil
}

type fakeHistory map[string][]domain.TicketHistory

func (f fakeHistory) TicketHistory(_ context.Context, id string) ([]domain.TicketHistory, error) {
	return f[id], nil
}

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	tickets *fakeTickets
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, checks map[string]handlers.Check) *testServer {
	t.Helper()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("test-secret", 5)
	tickets := &fakeTickets{tickets: []domain.Ticket{
		{ID: "1", Name: "Login fails-High", OwnerUserID: "alice", Category: domain.CategorySupport,
			Status: domain.TicketStatusOpen, Answers: map[string]string{"Priority Level": "High"}},
		{ID: "2", Name: "Ticket-bob", OwnerUserID: "bob", Category: domain.CategoryBuy, Status: domain.TicketStatusAwaitingAnswers},
	}}
	history := fakeHistory{"1": {{TicketID: "1", ChangeType: domain.ChangeTypeCreated, NewValue: "Ticket-alice"}}}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-bot", "test", checks, metrics),
		Tickets:        handlers.NewTicketsHandler(tickets, history),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app, tokens: tokens, tickets: tickets, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path string, scopes ...string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if scopes != nil {
		token, _, err := s.tokens.GenerateToken("ops", scopes...)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Check{
		"store": func(context.Context) error { return nil },
	})

	code, body := s.do(t, fiber.MethodGet, "/health/live")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "alive", body["status"])

	code, body = s.do(t, fiber.MethodGet, "/health/ready")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	code, body := s.do(t, fiber.MethodGet, "/health/ready")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "connection refused", details["redis"])
}

func TestTicketsRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, fiber.MethodGet, "/tickets")
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])
}

func TestListTicketsWithFilter(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, fiber.MethodGet, "/tickets?status=open", auth.ScopeRead)
	require.Equal(t, fiber.StatusOK, code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Login fails-High", data[0].(map[string]any)["name"])

	code, _ = s.do(t, fiber.MethodGet, "/tickets?category=refund", auth.ScopeRead)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestGetTicket(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, fiber.MethodGet, "/tickets/1", auth.ScopeRead)
	require.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "High", data["answers"].(map[string]any)["Priority Level"])

	code, body = s.do(t, fiber.MethodGet, "/tickets/404", auth.ScopeRead)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, apperrors.CodeNotFound, body["error"].(map[string]any)["code"])
}

func TestTicketHistory(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, fiber.MethodGet, "/tickets/1/history", auth.ScopeRead)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["data"].([]any), 1)

	code, body = s.do(t, fiber.MethodGet, "/tickets/2/history", auth.ScopeRead)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, body["data"].([]any))

	code, _ = s.do(t, fiber.MethodGet, "/tickets/404/history", auth.ScopeRead)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRefreshNeedsWriteScope(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(t, fiber.MethodPost, "/tickets/1/refresh", auth.ScopeRead)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Empty(t, s.tickets.refreshed)

	code, _ = s.do(t, fiber.MethodPost, "/tickets/1/refresh", auth.ScopeWrite)
	assert.Equal(t, fiber.StatusAccepted, code)
	assert.Equal(t, []string{"1"}, s.tickets.refreshed)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, fiber.MethodGet, "/health/live")

	code, body := s.do(t, fiber.MethodGet, "/metrics")
	require.Equal(t, fiber.StatusOK, code)
	requests := body["requests"].(map[string]any)
	assert.EqualValues(t, 1, requests["GET /health/live|2xx"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := s.do(t, fiber.MethodGet, "/nope")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, apperrors.CodeNotFound, body["error"].(map[string]any)["code"])
}
