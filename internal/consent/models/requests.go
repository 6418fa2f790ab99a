package models

import (
	"strings"

	dErrors "agentconsent/pkg/domain-errors"
	"agentconsent/pkg/validation"
)

const (
	DefaultExpiresInDays = 30
	MaxExpiresInDays     = 3650
)

// RequestConsentSMSRequest is the body of the request_consent_sms tool.
type RequestConsentSMSRequest struct {
	RequesterPhone string  `json:"requester_phone" validate:"required"`
	RequesterName  string  `json:"requester_name" validate:"required,notblank,max=200"`
	TargetPhone    string  `json:"target_phone" validate:"required"`
	TargetName     *string `json:"target_name,omitempty" validate:"omitempty,max=200"`
	Scope          string  `json:"scope" validate:"required,notblank,max=500"`
	ExpiresInDays  *int    `json:"expires_in_days,omitempty"`
}

func (r *RequestConsentSMSRequest) Sanitize() {
	r.RequesterPhone = strings.TrimSpace(r.RequesterPhone)
	r.TargetPhone = strings.TrimSpace(r.TargetPhone)
	r.RequesterName = strings.TrimSpace(r.RequesterName)
	r.Scope = strings.TrimSpace(r.Scope)
	r.TargetName = trimOptional(r.TargetName)
}

func (r *RequestConsentSMSRequest) Normalize() {
	r.ExpiresInDays = defaultDays(r.ExpiresInDays)
}

func (r *RequestConsentSMSRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	return validateExpiry(r.ExpiresInDays)
}

// Command builds the service command, validating both phone numbers.
func (r *RequestConsentSMSRequest) Command() (RequestConsentCommand, error) {
	name := r.RequesterName
	return buildRequestCommand(ContactTypePhone, r.RequesterPhone, &name, r.TargetPhone, r.TargetName, r.Scope, r.ExpiresInDays)
}

// RequestConsentEmailRequest is the body of the request_consent_email tool.
type RequestConsentEmailRequest struct {
	RequesterEmail string  `json:"requester_email" validate:"required,email"`
	RequesterName  string  `json:"requester_name" validate:"required,notblank,max=200"`
	TargetEmail    string  `json:"target_email" validate:"required,email"`
	TargetName     *string `json:"target_name,omitempty" validate:"omitempty,max=200"`
	Scope          string  `json:"scope" validate:"required,notblank,max=500"`
	ExpiresInDays  *int    `json:"expires_in_days,omitempty"`
}

func (r *RequestConsentEmailRequest) Sanitize() {
	r.RequesterEmail = strings.TrimSpace(r.RequesterEmail)
	r.TargetEmail = strings.TrimSpace(r.TargetEmail)
	r.RequesterName = strings.TrimSpace(r.RequesterName)
	r.Scope = strings.TrimSpace(r.Scope)
	r.TargetName = trimOptional(r.TargetName)
}

func (r *RequestConsentEmailRequest) Normalize() {
	r.RequesterEmail = NormalizeContactValue(ContactTypeEmail, r.RequesterEmail)
	r.TargetEmail = NormalizeContactValue(ContactTypeEmail, r.TargetEmail)
	r.ExpiresInDays = defaultDays(r.ExpiresInDays)
}

func (r *RequestConsentEmailRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	return validateExpiry(r.ExpiresInDays)
}

func (r *RequestConsentEmailRequest) Command() (RequestConsentCommand, error) {
	name := r.RequesterName
	return buildRequestCommand(ContactTypeEmail, r.RequesterEmail, &name, r.TargetEmail, r.TargetName, r.Scope, r.ExpiresInDays)
}

// CheckConsentSMSRequest is the body of the check_consent_sms tool.
type CheckConsentSMSRequest struct {
	RequesterPhone string  `json:"requester_phone" validate:"required"`
	TargetPhone    string  `json:"target_phone" validate:"required"`
	Scope          *string `json:"scope,omitempty"`
}

func (r *CheckConsentSMSRequest) Sanitize() {
	r.RequesterPhone = strings.TrimSpace(r.RequesterPhone)
	r.TargetPhone = strings.TrimSpace(r.TargetPhone)
	r.Scope = trimOptional(r.Scope)
}

func (r *CheckConsentSMSRequest) Validate() error {
	return validation.Validate(r)
}

func (r *CheckConsentSMSRequest) Query() (CheckQuery, error) {
	return buildCheckQuery(ContactTypePhone, r.RequesterPhone, r.TargetPhone, r.Scope)
}

// CheckConsentEmailRequest is the body of the check_consent_email tool.
type CheckConsentEmailRequest struct {
	RequesterEmail string  `json:"requester_email" validate:"required,email"`
	TargetEmail    string  `json:"target_email" validate:"required,email"`
	Scope          *string `json:"scope,omitempty"`
}

func (r *CheckConsentEmailRequest) Sanitize() {
	r.RequesterEmail = strings.TrimSpace(r.RequesterEmail)
	r.TargetEmail = strings.TrimSpace(r.TargetEmail)
	r.Scope = trimOptional(r.Scope)
}

func (r *CheckConsentEmailRequest) Normalize() {
	r.RequesterEmail = NormalizeContactValue(ContactTypeEmail, r.RequesterEmail)
	r.TargetEmail = NormalizeContactValue(ContactTypeEmail, r.TargetEmail)
}

func (r *CheckConsentEmailRequest) Validate() error {
	return validation.Validate(r)
}

func (r *CheckConsentEmailRequest) Query() (CheckQuery, error) {
	return buildCheckQuery(ContactTypeEmail, r.RequesterEmail, r.TargetEmail, r.Scope)
}

// SimulateResponseRequest is the body of the admin_simulate_response tool.
type SimulateResponseRequest struct {
	TargetContactType     string `json:"target_contact_type"`
	TargetContactValue    string `json:"target_contact_value" validate:"required"`
	RequesterContactValue string `json:"requester_contact_value" validate:"required"`
	Response              string `json:"response"`
}

func (r *SimulateResponseRequest) Sanitize() {
	r.TargetContactType = strings.TrimSpace(r.TargetContactType)
	r.TargetContactValue = strings.TrimSpace(r.TargetContactValue)
	r.RequesterContactValue = strings.TrimSpace(r.RequesterContactValue)
	r.Response = strings.TrimSpace(r.Response)
}

func (r *SimulateResponseRequest) Normalize() {
	r.TargetContactType = strings.ToLower(r.TargetContactType)
	t := ContactType(r.TargetContactType)
	r.TargetContactValue = NormalizeContactValue(t, r.TargetContactValue)
	r.RequesterContactValue = NormalizeContactValue(t, r.RequesterContactValue)
	r.Response = strings.ToUpper(r.Response)
}

func (r *SimulateResponseRequest) Validate() error {
	if !ContactType(r.TargetContactType).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "target_contact_type must be phone or email")
	}
	switch r.Response {
	case "YES", "NO", "REVOKE":
	default:
		return dErrors.New(dErrors.CodeValidation, "response must be YES, NO, or REVOKE")
	}
	return validation.Validate(r)
}

func (r *SimulateResponseRequest) Target() (ContactInfo, error) {
	return NewContactInfo(ContactType(r.TargetContactType), r.TargetContactValue, nil)
}

// ListRequestsRequest is the body of the list_consent_requests tool.
// Target takes precedence over requester; with neither the result is empty.
type ListRequestsRequest struct {
	TargetContactType     string `json:"target_contact_type,omitempty" validate:"omitempty,oneof=phone email"`
	TargetContactValue    string `json:"target_contact_value,omitempty"`
	RequesterContactType  string `json:"requester_contact_type,omitempty" validate:"omitempty,oneof=phone email"`
	RequesterContactValue string `json:"requester_contact_value,omitempty"`
	Status                string `json:"status,omitempty" validate:"omitempty,oneof=pending granted revoked expired"`
}

func (r *ListRequestsRequest) Normalize() {
	r.TargetContactType = strings.ToLower(strings.TrimSpace(r.TargetContactType))
	r.RequesterContactType = strings.ToLower(strings.TrimSpace(r.RequesterContactType))
	r.TargetContactValue = NormalizeContactValue(ContactType(r.TargetContactType), r.TargetContactValue)
	r.RequesterContactValue = NormalizeContactValue(ContactType(r.RequesterContactType), r.RequesterContactValue)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *ListRequestsRequest) Validate() error {
	return validation.Validate(r)
}

// Filter converts the request into a service filter.
func (r *ListRequestsRequest) Filter() (ListFilter, error) {
	var f ListFilter
	if r.TargetContactType != "" && r.TargetContactValue != "" {
		c, err := NewContactInfo(ContactType(r.TargetContactType), r.TargetContactValue, nil)
		if err != nil {
			return ListFilter{}, err
		}
		f.Target = &c
	}
	if r.RequesterContactType != "" && r.RequesterContactValue != "" {
		c, err := NewContactInfo(ContactType(r.RequesterContactType), r.RequesterContactValue, nil)
		if err != nil {
			return ListFilter{}, err
		}
		f.Requester = &c
	}
	if r.Status != "" {
		st := Status(r.Status)
		f.Status = &st
	}
	return f, nil
}

// RequestConsentCommand is the service input for RequestConsent.
type RequestConsentCommand struct {
	Requester     ContactInfo
	Target        ContactInfo
	Scope         string
	ExpiresInDays int
}

// CheckQuery is the service input for consent checks. A nil Scope matches any scope.
type CheckQuery struct {
	Requester ContactInfo
	Target    ContactInfo
	Scope     *string
}

// ListFilter selects requests for ListRequests.
type ListFilter struct {
	Target    *ContactInfo
	Requester *ContactInfo
	Status    *Status
}

func buildRequestCommand(t ContactType, requesterValue string, requesterName *string, targetValue string, targetName *string, scope string, days *int) (RequestConsentCommand, error) {
	requester, err := NewContactInfo(t, requesterValue, requesterName)
	if err != nil {
		return RequestConsentCommand{}, err
	}
	target, err := NewContactInfo(t, targetValue, targetName)
	if err != nil {
		return RequestConsentCommand{}, err
	}
	d := DefaultExpiresInDays
	if days != nil {
		d = *days
	}
	return RequestConsentCommand{Requester: requester, Target: target, Scope: scope, ExpiresInDays: d}, nil
}

func buildCheckQuery(t ContactType, requesterValue, targetValue string, scope *string) (CheckQuery, error) {
	requester, err := NewContactInfo(t, requesterValue, nil)
	if err != nil {
		return CheckQuery{}, err
	}
	target, err := NewContactInfo(t, targetValue, nil)
	if err != nil {
		return CheckQuery{}, err
	}
	return CheckQuery{Requester: requester, Target: target, Scope: scope}, nil
}

func validateExpiry(days *int) error {
	if days == nil {
		return nil
	}
	if *days <= 0 {
		return dErrors.New(dErrors.CodeValidation, "expires_in_days must be positive")
	}
	if *days > MaxExpiresInDays {
		return dErrors.New(dErrors.CodeValidation, "expires_in_days cannot exceed 3650 (10 years)")
	}
	return nil
}

func defaultDays(days *int) *int {
	if days != nil {
		return days
	}
	d := DefaultExpiresInDays
	return &d
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
