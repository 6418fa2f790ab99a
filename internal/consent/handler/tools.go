package handler

import (
	"context"
	"net/http"

	"agentconsent/internal/consent/models"
	dErrors "agentconsent/pkg/domain-errors"
	"agentconsent/pkg/platform/httputil"
	"agentconsent/pkg/requestcontext"
)

func (h *Handler) HandleRequestConsentSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RequestConsentSMSRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cmd, err := req.Command()
	h.requestConsent(ctx, w, requestID, cmd, err)
}

func (h *Handler) HandleRequestConsentEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RequestConsentEmailRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cmd, err := req.Command()
	h.requestConsent(ctx, w, requestID, cmd, err)
}

func (h *Handler) requestConsent(ctx context.Context, w http.ResponseWriter, requestID string, cmd models.RequestConsentCommand, cmdErr error) {
	if cmdErr != nil {
		h.logger.WarnContext(ctx, "invalid consent request",
			"error", cmdErr,
			"request_id", requestID,
		)
		httputil.WriteError(w, cmdErr)
		return
	}

	res, err := h.consent.RequestConsent(ctx, cmd)
	if err != nil {
		h.logFailure(ctx, "request consent failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleCheckConsentSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CheckConsentSMSRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	q, err := req.Query()
	h.checkConsent(ctx, w, requestID, q, err)
}

func (h *Handler) HandleCheckConsentEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CheckConsentEmailRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	q, err := req.Query()
	h.checkConsent(ctx, w, requestID, q, err)
}

func (h *Handler) checkConsent(ctx context.Context, w http.ResponseWriter, requestID string, q models.CheckQuery, qErr error) {
	if qErr != nil {
		httputil.WriteError(w, qErr)
		return
	}

	res, err := h.consent.CheckConsentStatus(ctx, q)
	if err != nil {
		h.logFailure(ctx, "check consent failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ListRequestsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	filter, err := req.Filter()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.consent.ListRequests(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "list consent requests failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleSimulateResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SimulateResponseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	target, err := req.Target()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.consent.SimulateResponse(ctx, target, req.RequesterContactValue, req.Response)
	if err != nil {
		h.logFailure(ctx, "simulate response failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "simulated consent response",
		"success", res.Success,
		"client_id", requestcontext.ClientID(ctx),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeProviderNotConfigured:
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestID)
	default:
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
	}
}
