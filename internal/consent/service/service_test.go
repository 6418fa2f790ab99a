package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,NotifierResolver,AuditPublisher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agentconsent/internal/consent/models"
	"agentconsent/internal/consent/service/mocks"
	"agentconsent/internal/sentinel"
	dErrors "agentconsent/pkg/domain-errors"
	"agentconsent/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func phone(value string) models.ContactInfo {
	return models.MustContact(models.ContactTypePhone, value, nil)
}

func pinned() context.Context {
	return requestcontext.WithTime(context.Background(), fixedNow)
}

// ServiceSuite covers error propagation across the store boundary with mocks.
type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	notifiers *mocks.MockNotifierResolver
	auditor   *mocks.MockAuditPublisher
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.notifiers = mocks.NewMockNotifierResolver(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.service = NewService(
		s.mockStore,
		s.notifiers,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAuditor(s.auditor),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) command() models.RequestConsentCommand {
	return models.RequestConsentCommand{
		Requester:     phone("+15551110000"),
		Target:        phone("+15552220000"),
		Scope:         "appointment reminders",
		ExpiresInDays: 30,
	}
}

func (s *ServiceSuite) TestRequestConsent_Validation() {
	s.T().Run("mixed contact types", func(t *testing.T) {
		cmd := s.command()
		cmd.Target = models.MustContact(models.ContactTypeEmail, "bob@example.com", nil)
		_, err := s.service.RequestConsent(pinned(), cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.T().Run("expiry out of range", func(t *testing.T) {
		cmd := s.command()
		cmd.ExpiresInDays = models.MaxExpiresInDays + 1
		_, err := s.service.RequestConsent(pinned(), cmd)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.T().Run("blank scope", func(t *testing.T) {
		cmd := s.command()
		cmd.Scope = "  "
		_, err := s.service.RequestConsent(pinned(), cmd)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRequestConsent_StoreErrors() {
	s.T().Run("lookup failure is internal", func(t *testing.T) {
		s.mockStore.EXPECT().GetByTuple(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, assert.AnError)

		_, err := s.service.RequestConsent(pinned(), s.command())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.T().Run("create failure is internal", func(t *testing.T) {
		s.mockStore.EXPECT().GetByTuple(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, sentinel.ErrNotFound)
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(assert.AnError)

		_, err := s.service.RequestConsent(pinned(), s.command())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestRequestConsent_ConflictIsAbsorbed() {
	cmd := s.command()
	winner := models.NewRequest(cmd.Requester, cmd.Target, cmd.Scope, fixedNow.Add(time.Hour), fixedNow)

	gomock.InOrder(
		s.mockStore.EXPECT().GetByTuple(gomock.Any(), cmd.Requester, cmd.Target, cmd.Scope).
			Return(nil, sentinel.ErrNotFound),
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
		s.mockStore.EXPECT().GetByTuple(gomock.Any(), cmd.Requester, cmd.Target, cmd.Scope).
			Return(&winner, nil),
	)

	res, err := s.service.RequestConsent(pinned(), cmd)
	s.Require().NoError(err)
	s.Equal(winner.ID, res.RequestID)
	s.Equal(models.ResultPending, res.Status)
	s.Equal("Consent request already pending", res.Message)
	s.Nil(res.Delivery)
}

func (s *ServiceSuite) TestRequestConsent_ProviderNotConfiguredKeepsRecord() {
	cmd := s.command()
	var created *models.Request

	s.mockStore.EXPECT().GetByTuple(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *models.Request) error {
			created = req
			return nil
		})
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.notifiers.EXPECT().For(models.ContactTypePhone).
		Return(nil, dErrors.New(dErrors.CodeProviderNotConfigured, "SMS provider not configured"))

	_, err := s.service.RequestConsent(pinned(), cmd)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProviderNotConfigured))
	s.Equal("SMS provider not configured", err.Error())
	s.Require().NotNil(created)
	s.Equal(models.StatusPending, created.Status)
	s.Equal(fixedNow.Add(30*24*time.Hour), created.ExpiresAt)
}

func (s *ServiceSuite) TestCheckConsent_FailsClosed() {
	q := models.CheckQuery{Requester: phone("+15551110000"), Target: phone("+15552220000")}

	s.T().Run("store error", func(t *testing.T) {
		s.mockStore.EXPECT().GetActiveConsent(gomock.Any(), q.Requester, q.Target, nil, fixedNow).
			Return(nil, assert.AnError)

		ok, err := s.service.CheckConsent(pinned(), q)
		require.Error(t, err)
		assert.False(t, ok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.T().Run("record no longer active", func(t *testing.T) {
		req := models.NewRequest(q.Requester, q.Target, "calls", fixedNow, fixedNow.Add(-time.Hour)).Grant(fixedNow.Add(-time.Hour))
		s.mockStore.EXPECT().GetActiveConsent(gomock.Any(), q.Requester, q.Target, nil, fixedNow).
			Return(&req, nil)

		ok, err := s.service.CheckConsent(pinned(), q)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func (s *ServiceSuite) TestRespond_StoreErrors() {
	id := uuid.New()

	s.T().Run("unknown id", func(t *testing.T) {
		s.mockStore.EXPECT().GetByID(gomock.Any(), id).Return(nil, sentinel.ErrNotFound)

		res, err := s.service.GrantConsent(pinned(), id)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Nil(t, res.NewStatus)
		assert.Equal(t, "Consent request not found", res.Message)
	})

	s.T().Run("update failure is internal", func(t *testing.T) {
		req := models.NewRequest(phone("+15551110000"), phone("+15552220000"), "calls", fixedNow.Add(time.Hour), fixedNow)
		s.mockStore.EXPECT().GetByID(gomock.Any(), req.ID).Return(&req, nil)
		s.mockStore.EXPECT().RespondToPending(gomock.Any(), req.ID, models.StatusRevoked, fixedNow).Return(nil, assert.AnError)

		_, err := s.service.DenyConsent(pinned(), req.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestRespond_LosesToConcurrentExpiry() {
	req := models.NewRequest(phone("+15551110000"), phone("+15552220000"), "calls", fixedNow.Add(-time.Hour), fixedNow.Add(-25*time.Hour))
	expired := req.Expire(fixedNow)
	gomock.InOrder(
		s.mockStore.EXPECT().GetByID(gomock.Any(), req.ID).Return(&req, nil),
		s.mockStore.EXPECT().RespondToPending(gomock.Any(), req.ID, models.StatusGranted, fixedNow).Return(nil, sentinel.ErrConflict),
		s.mockStore.EXPECT().GetByID(gomock.Any(), req.ID).Return(&expired, nil),
	)

	res, err := s.service.GrantConsent(pinned(), req.ID)
	s.Require().NoError(err)
	s.False(res.Success)
	s.Require().NotNil(res.NewStatus)
	s.Equal(models.StatusExpired, *res.NewStatus)
	s.Equal("Request already expired", res.Message)
}

func (s *ServiceSuite) TestGetRequest_NotFound() {
	id := uuid.New()
	s.mockStore.EXPECT().GetByID(gomock.Any(), id).Return(nil, sentinel.ErrNotFound)

	_, err := s.service.GetRequest(pinned(), id)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestExpireOldRequests_StoreError() {
	s.mockStore.EXPECT().ExpireOldRequests(gomock.Any(), fixedNow).Return(nil, assert.AnError)

	n, err := s.service.ExpireOldRequests(pinned())
	s.Require().Error(err)
	s.Zero(n)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestBaseURLBuilder(t *testing.T) {
	id := uuid.MustParse("2f1b6a2c-8d0e-4a53-9d4a-1f1e2a3b4c5d")

	link, ok := BaseURLBuilder("https://consent.example.com/")(id)
	require.True(t, ok)
	assert.Equal(t, "https://consent.example.com/v1/consent/2f1b6a2c-8d0e-4a53-9d4a-1f1e2a3b4c5d", link)

	_, ok = BaseURLBuilder("")(id)
	assert.False(t, ok)
}
