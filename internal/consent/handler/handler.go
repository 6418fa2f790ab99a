package handler

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agentconsent/internal/consent/models"
)

// Service defines the consent operations the transport needs.
type Service interface {
	RequestConsent(ctx context.Context, cmd models.RequestConsentCommand) (*models.RequestResult, error)
	CheckConsentStatus(ctx context.Context, q models.CheckQuery) (*models.CheckResult, error)
	ListRequests(ctx context.Context, f models.ListFilter) (*models.ListResponse, error)
	SimulateResponse(ctx context.Context, target models.ContactInfo, requesterValue, response string) (*models.ActionResult, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	GrantConsent(ctx context.Context, id uuid.UUID) (*models.ActionResult, error)
	DenyConsent(ctx context.Context, id uuid.UUID) (*models.ActionResult, error)
}

// Handler serves the agent tool API and the consent link pages.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// RegisterTools registers the authenticated tool routes.
func (h *Handler) RegisterTools(r chi.Router) {
	r.Post("/v1/tools/request_consent_sms", h.HandleRequestConsentSMS)
	r.Post("/v1/tools/request_consent_email", h.HandleRequestConsentEmail)
	r.Post("/v1/tools/check_consent_sms", h.HandleCheckConsentSMS)
	r.Post("/v1/tools/check_consent_email", h.HandleCheckConsentEmail)
	r.Post("/v1/tools/list_consent_requests", h.HandleListRequests)
}

// RegisterAdmin registers tools that only exist in the test environment.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/v1/tools/admin_simulate_response", h.HandleSimulateResponse)
}

// RegisterWeb registers the unauthenticated consent link pages.
func (h *Handler) RegisterWeb(r chi.Router) {
	r.Get("/v1/consent/{token}", h.HandleShowConsent)
	r.Post("/v1/consent/{token}/grant", h.HandleGrant)
	r.Post("/v1/consent/{token}/deny", h.HandleDeny)
}
