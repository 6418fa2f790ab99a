package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "agentconsent/pkg/domain-errors"
)

func strPtr(s string) *string { return &s }

func TestNewContactInfo_Phone(t *testing.T) {
	valid := []string{"+15551234567", "+12", "+447911123456", "+123456789012345"}
	for _, v := range valid {
		t.Run("valid "+v, func(t *testing.T) {
			c, err := NewContactInfo(ContactTypePhone, v, nil)
			require.NoError(t, err)
			assert.Equal(t, v, c.Value)
		})
	}

	invalid := []string{"5551234567", "+05551234567", "+1", "+1234567890123456", "+1555-123-4567", ""}
	for _, v := range invalid {
		t.Run("invalid "+v, func(t *testing.T) {
			_, err := NewContactInfo(ContactTypePhone, v, nil)
			require.Error(t, err)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, InvalidPhoneFormat, vErr.Kind)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestNewContactInfo_Email(t *testing.T) {
	_, err := NewContactInfo(ContactTypeEmail, "bob@example.com", nil)
	require.NoError(t, err)

	for _, v := range []string{"bob.example.com", "bob@example", ""} {
		_, err := NewContactInfo(ContactTypeEmail, v, nil)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), v)
		assert.Equal(t, InvalidEmailFormat, vErr.Kind)
	}
}

func TestContactInfo_EqualityIgnoresName(t *testing.T) {
	a := MustContact(ContactTypePhone, "+15551234567", strPtr("Alice"))
	b := MustContact(ContactTypePhone, "+15551234567", strPtr("Ally"))
	c := MustContact(ContactTypeEmail, "alice@example.com", strPtr("Alice"))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
}

func TestTupleKey_DistinctTuplesNeverCollide(t *testing.T) {
	phone := MustContact(ContactTypePhone, "+15551234567", nil)
	tricky := MustContact(ContactTypeEmail, "a|email:b@example.com", nil)
	plain := MustContact(ContactTypeEmail, "a@example.com", nil)

	cases := []struct {
		name string
		a, b string
	}{
		{"separator in scope", TupleKey(phone, plain, "x|email:b@example.com|y"), TupleKey(phone, tricky, "y")},
		{"scope shifted into target", TupleKey(phone, MustContact(ContactTypeEmail, "a@b.co|x", nil), "y"), TupleKey(phone, MustContact(ContactTypeEmail, "a@b.co", nil), "x|y")},
		{"pair against tuple", PairKey(phone, plain), TupleKey(phone, plain, "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, tc.a, tc.b)
		})
	}

	assert.Equal(t, TupleKey(phone, plain, "calls"), TupleKey(phone, MustContact(ContactTypeEmail, "a@example.com", strPtr("Al")), "calls"))
}

func TestRequest_IsActiveBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	req := NewRequest(
		MustContact(ContactTypePhone, "+15551234567", nil),
		MustContact(ContactTypePhone, "+15559876543", nil),
		"wellness_check", now.Add(time.Hour), now,
	).Grant(now)

	assert.True(t, req.IsActive(now))
	assert.True(t, req.IsActive(req.ExpiresAt.Add(-time.Nanosecond)))
	assert.False(t, req.IsActive(req.ExpiresAt), "expiry boundary is exclusive")
	assert.True(t, req.IsExpired(req.ExpiresAt))
	assert.False(t, req.IsExpired(now))

	pending := req
	pending.Status = StatusPending
	assert.False(t, pending.IsActive(now))
}

func TestRequest_Transitions(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(time.Minute)
	req := NewRequest(
		MustContact(ContactTypeEmail, "alice@example.com", strPtr("Alice")),
		MustContact(ContactTypeEmail, "bob@example.com", nil),
		"newsletter", created.Add(24*time.Hour), created,
	)
	require.Equal(t, StatusPending, req.Status)
	require.Nil(t, req.RespondedAt)

	t.Run("grant stamps responded_at and leaves original untouched", func(t *testing.T) {
		granted := req.Grant(later)
		assert.Equal(t, StatusGranted, granted.Status)
		assert.Equal(t, later, granted.UpdatedAt)
		require.NotNil(t, granted.RespondedAt)
		assert.Equal(t, later, *granted.RespondedAt)

		assert.Equal(t, StatusPending, req.Status)
		assert.Nil(t, req.RespondedAt)
	})

	t.Run("revoke", func(t *testing.T) {
		revoked := req.Revoke(later)
		assert.Equal(t, StatusRevoked, revoked.Status)
		require.NotNil(t, revoked.RespondedAt)
	})

	t.Run("expire keeps responded_at", func(t *testing.T) {
		granted := req.Grant(later)
		expired := granted.Expire(later.Add(time.Hour))
		assert.Equal(t, StatusExpired, expired.Status)
		assert.Equal(t, later.Add(time.Hour), expired.UpdatedAt)
		require.NotNil(t, expired.RespondedAt)
		assert.Equal(t, later, *expired.RespondedAt)

		*expired.RespondedAt = time.Time{}
		assert.Equal(t, later, *granted.RespondedAt, "copies must not alias")
	})

	t.Run("expire from pending leaves responded_at nil", func(t *testing.T) {
		assert.Nil(t, req.Expire(later).RespondedAt)
	})
}

func TestRequestConsentSMSRequest_Validate(t *testing.T) {
	base := func() *RequestConsentSMSRequest {
		return &RequestConsentSMSRequest{
			RequesterPhone: "+15551234567",
			RequesterName:  "Alice",
			TargetPhone:    "+15559876543",
			Scope:          "wellness_check",
		}
	}

	t.Run("defaults expiry to 30 days", func(t *testing.T) {
		req := base()
		req.Normalize()
		require.NoError(t, req.Validate())
		cmd, err := req.Command()
		require.NoError(t, err)
		assert.Equal(t, 30, cmd.ExpiresInDays)
	})

	for _, tc := range []struct {
		days int
		msg  string
	}{
		{0, "expires_in_days must be positive"},
		{-3, "expires_in_days must be positive"},
		{3651, "expires_in_days cannot exceed 3650 (10 years)"},
	} {
		req := base()
		req.ExpiresInDays = &tc.days
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, tc.msg, err.Error())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}

	t.Run("3650 is allowed", func(t *testing.T) {
		req := base()
		days := MaxExpiresInDays
		req.ExpiresInDays = &days
		assert.NoError(t, req.Validate())
	})

	t.Run("missing scope", func(t *testing.T) {
		req := base()
		req.Scope = "   "
		req.Sanitize()
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, "scope is required", err.Error())
	})

	t.Run("bad phone surfaces at command build", func(t *testing.T) {
		req := base()
		req.TargetPhone = "555"
		_, err := req.Command()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestSimulateResponseRequest_Validate(t *testing.T) {
	req := &SimulateResponseRequest{
		TargetContactType:     "Phone",
		TargetContactValue:    "+15559876543",
		RequesterContactValue: "+15551234567",
		Response:              "yes",
	}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "YES", req.Response)

	req.Response = "MAYBE"
	assert.EqualError(t, req.Validate(), "response must be YES, NO, or REVOKE")

	req.Response = "NO"
	req.TargetContactType = "fax"
	assert.EqualError(t, req.Validate(), "target_contact_type must be phone or email")
}

func TestNormalizeContactValue(t *testing.T) {
	assert.Equal(t, "Alice.Smith@example.com", NormalizeContactValue(ContactTypeEmail, "  Alice.Smith@Example.COM "))
	assert.Equal(t, "+15551234567", NormalizeContactValue(ContactTypePhone, " +15551234567 "))

	c := MustContact(ContactTypeEmail, "Bob@EXAMPLE.com", nil)
	assert.Equal(t, "Bob@example.com", c.Value)
}

func TestRequestTypesShareContactNormalization(t *testing.T) {
	const stored = "Bob@example.com"

	create := &RequestConsentEmailRequest{RequesterEmail: "office@Example.com", RequesterName: "Office", TargetEmail: "Bob@EXAMPLE.com", Scope: "news"}
	create.Sanitize()
	create.Normalize()
	cmd, err := create.Command()
	require.NoError(t, err)
	assert.Equal(t, stored, cmd.Target.Value)

	check := &CheckConsentEmailRequest{RequesterEmail: "office@example.com", TargetEmail: " Bob@Example.com"}
	check.Sanitize()
	check.Normalize()
	q, err := check.Query()
	require.NoError(t, err)
	assert.Equal(t, stored, q.Target.Value)

	simulate := &SimulateResponseRequest{TargetContactType: "EMAIL", TargetContactValue: "Bob@Example.Com", RequesterContactValue: "office@EXAMPLE.com", Response: "yes"}
	simulate.Sanitize()
	simulate.Normalize()
	target, err := simulate.Target()
	require.NoError(t, err)
	assert.Equal(t, stored, target.Value)
	assert.Equal(t, cmd.Requester.Value, simulate.RequesterContactValue)

	list := &ListRequestsRequest{TargetContactType: "email", TargetContactValue: "Bob@example.COM"}
	list.Normalize()
	f, err := list.Filter()
	require.NoError(t, err)
	require.NotNil(t, f.Target)
	assert.Equal(t, stored, f.Target.Value)
}

func TestNewSummary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	req := NewRequest(
		MustContact(ContactTypePhone, "+15551234567", strPtr("Alice")),
		MustContact(ContactTypePhone, "+15559876543", nil),
		"wellness_check", now.Add(48*time.Hour), now,
	)

	s := NewSummary(req)
	assert.Equal(t, req.ID.String(), s.ID)
	assert.Equal(t, "2025-03-03T12:00:00Z", s.ExpiresAt)
	assert.Equal(t, "2025-03-01T12:00:00Z", s.CreatedAt)
	assert.Equal(t, "Alice", *s.Requester.Name)
	assert.Nil(t, s.Target.Name)
}
