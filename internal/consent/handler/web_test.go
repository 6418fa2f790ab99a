package handler

import (
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"agentconsent/internal/consent/models"
	dErrors "agentconsent/pkg/domain-errors"
)

func (s *ToolHandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func (s *ToolHandlerSuite) pendingRequest() models.Request {
	requester := models.MustContact(models.ContactTypePhone, "+15551110000", strPtr("Dr. <Smith>"))
	target := models.MustContact(models.ContactTypePhone, "+15552220000", strPtr("Bob"))
	return models.NewRequest(requester, target, "appointment reminders", fixedNow.AddDate(0, 0, 30), fixedNow)
}

func strPtr(v string) *string { return &v }

func (s *ToolHandlerSuite) TestShowConsent() {
	s.Run("pending request renders the form", func() {
		req := s.pendingRequest()
		s.service.EXPECT().GetRequest(gomock.Any(), req.ID).Return(&req, nil)

		rec := s.do(http.MethodGet, "/v1/consent/"+req.ID.String())

		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		s.Contains(body, "Hi Bob,")
		s.Contains(body, "Dr. &lt;Smith&gt;")
		s.NotContains(body, "Dr. <Smith>")
		s.Contains(body, "appointment reminders")
		s.Contains(body, `action="/v1/consent/`+req.ID.String()+`/grant"`)
	})

	s.Run("responded request", func() {
		req := s.pendingRequest().Grant(fixedNow)
		s.service.EXPECT().GetRequest(gomock.Any(), req.ID).Return(&req, nil)

		rec := s.do(http.MethodGet, "/v1/consent/"+req.ID.String())

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "This consent request has already been granted.")
	})

	s.Run("invalid token", func() {
		rec := s.do(http.MethodGet, "/v1/consent/not-a-uuid")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "Invalid consent token")
	})

	s.Run("unknown token", func() {
		id := uuid.New()
		s.service.EXPECT().GetRequest(gomock.Any(), id).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Consent request not found"))

		rec := s.do(http.MethodGet, "/v1/consent/"+id.String())
		s.Equal(http.StatusNotFound, rec.Code)
		s.Contains(rec.Body.String(), "Consent request not found")
	})

	s.Run("store failure", func() {
		id := uuid.New()
		s.service.EXPECT().GetRequest(gomock.Any(), id).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to get consent request"))

		rec := s.do(http.MethodGet, "/v1/consent/"+id.String())
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "failed to get")
	})
}

func (s *ToolHandlerSuite) TestGrantAndDeny() {
	id := uuid.New()

	s.Run("grant", func() {
		s.service.EXPECT().GrantConsent(gomock.Any(), id).
			Return(&models.ActionResult{Success: true, NewStatus: models.StatusPtr(models.StatusGranted), Message: "Consent granted"}, nil)

		rec := s.do(http.MethodPost, "/v1/consent/"+id.String()+"/grant")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "Thank you! Your consent has been recorded.")
	})

	s.Run("deny", func() {
		s.service.EXPECT().DenyConsent(gomock.Any(), id).
			Return(&models.ActionResult{Success: true, NewStatus: models.StatusPtr(models.StatusRevoked), Message: "Consent denied"}, nil)

		rec := s.do(http.MethodPost, "/v1/consent/"+id.String()+"/deny")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "You have declined this consent request.")
	})

	s.Run("already responded", func() {
		s.service.EXPECT().GrantConsent(gomock.Any(), id).
			Return(&models.ActionResult{Success: false, NewStatus: models.StatusPtr(models.StatusRevoked), Message: "Request already revoked"}, nil)

		rec := s.do(http.MethodPost, "/v1/consent/"+id.String()+"/grant")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "already been revoked")
	})

	s.Run("not found", func() {
		s.service.EXPECT().DenyConsent(gomock.Any(), id).
			Return(&models.ActionResult{Success: false, Message: "Consent request not found"}, nil)

		rec := s.do(http.MethodPost, "/v1/consent/"+id.String()+"/deny")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("invalid token", func() {
		rec := s.do(http.MethodPost, "/v1/consent/xyz/grant")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
