package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agentconsent/internal/consent/models"
	dErrors "agentconsent/pkg/domain-errors"
	"agentconsent/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const defaultRequesterName = "Someone"

type consentPage struct {
	Token         string
	TargetName    string
	RequesterName string
	Scope         string
}

type resultPage struct {
	Granted bool
}

type respondedPage struct {
	Status models.Status
}

type errorPage struct {
	Title   string
	Message string
}

// HandleShowConsent renders the grant/decline page for a pending request.
func (h *Handler) HandleShowConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.parseToken(w, r)
	if !ok {
		return
	}

	req, err := h.consent.GetRequest(ctx, id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	if req.Status != models.StatusPending {
		h.render(w, r, http.StatusOK, "responded", respondedPage{Status: req.Status})
		return
	}

	page := consentPage{
		Token:         id.String(),
		RequesterName: defaultRequesterName,
		Scope:         req.Scope,
	}
	if req.Requester.Name != nil && *req.Requester.Name != "" {
		page.RequesterName = *req.Requester.Name
	}
	if req.Target.Name != nil {
		page.TargetName = *req.Target.Name
	}
	h.render(w, r, http.StatusOK, "consent", page)
}

func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	h.handleResponse(w, r, true)
}

func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.handleResponse(w, r, false)
}

func (h *Handler) handleResponse(w http.ResponseWriter, r *http.Request, grant bool) {
	ctx := r.Context()
	id, ok := h.parseToken(w, r)
	if !ok {
		return
	}

	respond := h.consent.DenyConsent
	if grant {
		respond = h.consent.GrantConsent
	}
	res, err := respond(ctx, id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	switch {
	case res.Success:
		h.render(w, r, http.StatusOK, "result", resultPage{Granted: grant})
	case res.NewStatus == nil:
		h.render(w, r, http.StatusNotFound, "error", errorPage{Title: "Not Found", Message: "Consent request not found"})
	default:
		h.render(w, r, http.StatusOK, "responded", respondedPage{Status: *res.NewStatus})
	}
}

func (h *Handler) parseToken(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "error", errorPage{Title: "Invalid Link", Message: "Invalid consent token"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		h.render(w, r, http.StatusNotFound, "error", errorPage{Title: "Not Found", Message: "Consent request not found"})
		return
	}
	h.logger.ErrorContext(r.Context(), "consent page failed",
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	h.render(w, r, http.StatusInternalServerError, "error", errorPage{Title: "Something Went Wrong", Message: "Please try again later."})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			"template", name,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
