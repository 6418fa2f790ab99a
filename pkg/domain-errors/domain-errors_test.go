package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Run("message wins", func() {
		s.Equal("consent request not found", New(CodeNotFound, "consent request not found").Error())
	})
	s.Run("falls back to code", func() {
		err := &Error{Code: CodeConflict}
		s.Equal("conflict", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	err := fmt.Errorf("lookup: %w", New(CodeNotFound, "request missing"))

	s.True(errors.Is(err, New(CodeNotFound, "")))
	s.False(errors.Is(err, New(CodeConflict, "")))
	s.False(errors.Is(New(CodeNotFound, ""), errors.New("not_found")))
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code", func() {
		inner := New(CodeProviderNotConfigured, "sms provider missing")
		wrapped := Wrap(inner, CodeInternal, "failed to send")

		s.True(HasCode(wrapped, CodeProviderNotConfigured))
		s.Equal("failed to send", wrapped.Error())
	})

	s.Run("applies code to plain errors", func() {
		root := errors.New("connection refused")
		wrapped := Wrap(root, CodeInternal, "failed to read consent")

		s.True(HasCode(wrapped, CodeInternal))
		s.ErrorIs(wrapped, root)
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeValidation, CodeOf(fmt.Errorf("x: %w", New(CodeValidation, "bad"))))
	s.Equal(CodeInternal, CodeOf(errors.New("boom")))
}
