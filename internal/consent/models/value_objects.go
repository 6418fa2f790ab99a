package models

import (
	"fmt"
	"regexp"
	"strings"

	dErrors "agentconsent/pkg/domain-errors"
)

// ContactType is the channel a party is reached on.
type ContactType string

const (
	ContactTypePhone ContactType = "phone"
	ContactTypeEmail ContactType = "email"
)

// IsValid reports whether t is a supported contact type.
func (t ContactType) IsValid() bool {
	return t == ContactTypePhone || t == ContactTypeEmail
}

// ParseContactType parses "phone"/"email" case-insensitively.
func ParseContactType(s string) (ContactType, error) {
	t := ContactType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid contact type: %s", s))
	}
	return t, nil
}

// Status is the lifecycle state of a consent request.
//
//	pending -> granted | revoked
//	granted -> revoked | expired (sweep)
//	pending -> expired (sweep)
//
// revoked and expired are terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusGranted Status = "granted"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusGranted, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid status: %s", s))
	}
	return st, nil
}

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidationErrorKind identifies which contact format check failed.
type ValidationErrorKind string

const (
	InvalidPhoneFormat ValidationErrorKind = "invalid_phone_format"
	InvalidEmailFormat ValidationErrorKind = "invalid_email_format"
)

// ValidationError is returned when a contact value does not match its type's format.
// It unwraps to a CodeValidation domain error so transports need no special casing.
type ValidationError struct {
	Kind  ValidationErrorKind
	Value string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case InvalidPhoneFormat:
		return fmt.Sprintf("Phone number must be in E.164 format (e.g., +15551234567), got: %s", e.Value)
	default:
		return fmt.Sprintf("Invalid email address: %s", e.Value)
	}
}

func (e *ValidationError) Unwrap() error {
	return dErrors.New(dErrors.CodeValidation, e.Error())
}

// ContactInfo identifies a party by channel and address. Name is display-only and
// never part of identity.
type ContactInfo struct {
	Type  ContactType
	Value string
	Name  *string
}

// NewContactInfo validates value against t's format.
// Phones must be E.164; emails need an "@" and a "." (a sanity check, not RFC 5322).
func NewContactInfo(t ContactType, value string, name *string) (ContactInfo, error) {
	value = NormalizeContactValue(t, value)
	switch t {
	case ContactTypePhone:
		if !e164Pattern.MatchString(value) {
			return ContactInfo{}, &ValidationError{Kind: InvalidPhoneFormat, Value: value}
		}
	case ContactTypeEmail:
		if !strings.Contains(value, "@") || !strings.Contains(value, ".") {
			return ContactInfo{}, &ValidationError{Kind: InvalidEmailFormat, Value: value}
		}
	default:
		return ContactInfo{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid contact type: %s", t))
	}
	return ContactInfo{Type: t, Value: value, Name: name}, nil
}

// NormalizeContactValue is the single canonical form for stored and queried
// contacts: surrounding space is trimmed and an email's domain is lowercased.
// The email local part is kept as given.
func NormalizeContactValue(t ContactType, value string) string {
	value = strings.TrimSpace(value)
	if t != ContactTypeEmail {
		return value
	}
	at := strings.LastIndexByte(value, '@')
	if at < 0 {
		return value
	}
	return value[:at+1] + strings.ToLower(value[at+1:])
}

// MustContact is NewContactInfo for fixtures and literals known to be valid.
func MustContact(t ContactType, value string, name *string) ContactInfo {
	c, err := NewContactInfo(t, value, name)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal compares type and value only.
func (c ContactInfo) Equal(other ContactInfo) bool {
	return c.Type == other.Type && c.Value == other.Value
}

// Key is the identity of c, suitable for map keys and lock sharding.
func (c ContactInfo) Key() string {
	return lengthPrefixed(string(c.Type), c.Value)
}

// DisplayName returns Name or "" when unset.
func (c ContactInfo) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}
