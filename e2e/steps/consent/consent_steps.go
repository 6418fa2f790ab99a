package consent

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	POSTForm(path string) error
	GET(path string, headers map[string]string) error
	GETMessages(to string) ([]map[string]any, error)
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Save(key, value string)
	Recall(key string) string
}

// RegisterSteps registers consent-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	// Request steps
	ctx.Step(`^"([^"]*)" requests SMS consent from "([^"]*)" for "([^"]*)"$`, steps.requestSMS)
	ctx.Step(`^"([^"]*)" requests email consent from "([^"]*)" for "([^"]*)"$`, steps.requestEmail)
	ctx.Step(`^"([^"]*)" requests SMS consent from "([^"]*)" for "([^"]*)" expiring in (\d+) days$`, steps.requestSMSExpiring)
	ctx.Step(`^I save the consent link$`, steps.saveConsentLink)

	// Check and list steps
	ctx.Step(`^"([^"]*)" checks SMS consent with "([^"]*)"$`, steps.checkSMS)
	ctx.Step(`^"([^"]*)" checks SMS consent with "([^"]*)" for "([^"]*)"$`, steps.checkSMSScoped)
	ctx.Step(`^"([^"]*)" checks email consent with "([^"]*)"$`, steps.checkEmail)
	ctx.Step(`^I list consent requests with status "([^"]*)"$`, steps.listByStatus)
	ctx.Step(`^I list consent requests for target "([^"]*)"$`, steps.listByTarget)

	// Response steps
	ctx.Step(`^I open the consent link$`, steps.openConsentLink)
	ctx.Step(`^I grant consent through the link$`, steps.grantThroughLink)
	ctx.Step(`^I deny consent through the link$`, steps.denyThroughLink)
	ctx.Step(`^"([^"]*)" replies "([^"]*)" to "([^"]*)"$`, steps.simulateReply)

	// Assertions
	ctx.Step(`^the listing should contain (\d+) requests?$`, steps.listingShouldContain)
	ctx.Step(`^"([^"]*)" should have received a message containing the consent link$`, steps.messageShouldContainLink)
	ctx.Step(`^"([^"]*)" should have received a message containing "([^"]*)"$`, steps.messageShouldContain)
}

type consentSteps struct {
	tc TestContext
}

const consentLinkKey = "consent_url"

func (s *consentSteps) requestSMS(ctx context.Context, requester, target, scope string) error {
	return s.tc.POST("/v1/tools/request_consent_sms", map[string]any{
		"requester_phone": requester,
		"requester_name":  "E2E Agent",
		"target_phone":    target,
		"scope":           scope,
	})
}

func (s *consentSteps) requestSMSExpiring(ctx context.Context, requester, target, scope string, days int) error {
	return s.tc.POST("/v1/tools/request_consent_sms", map[string]any{
		"requester_phone": requester,
		"requester_name":  "E2E Agent",
		"target_phone":    target,
		"scope":           scope,
		"expires_in_days": days,
	})
}

func (s *consentSteps) requestEmail(ctx context.Context, requester, target, scope string) error {
	return s.tc.POST("/v1/tools/request_consent_email", map[string]any{
		"requester_email": requester,
		"requester_name":  "E2E Agent",
		"target_email":    target,
		"scope":           scope,
	})
}

func (s *consentSteps) saveConsentLink(ctx context.Context) error {
	raw, err := s.tc.GetResponseField(consentLinkKey)
	if err != nil {
		return err
	}
	link, ok := raw.(string)
	if !ok || link == "" {
		return fmt.Errorf("consent_url missing; is CONSENT_BASE_URL set on the gateway?")
	}
	s.tc.Save(consentLinkKey, link)
	return nil
}

func (s *consentSteps) checkSMS(ctx context.Context, requester, target string) error {
	return s.tc.POST("/v1/tools/check_consent_sms", map[string]any{
		"requester_phone": requester,
		"target_phone":    target,
	})
}

func (s *consentSteps) checkSMSScoped(ctx context.Context, requester, target, scope string) error {
	return s.tc.POST("/v1/tools/check_consent_sms", map[string]any{
		"requester_phone": requester,
		"target_phone":    target,
		"scope":           scope,
	})
}

func (s *consentSteps) checkEmail(ctx context.Context, requester, target string) error {
	return s.tc.POST("/v1/tools/check_consent_email", map[string]any{
		"requester_email": requester,
		"target_email":    target,
	})
}

func (s *consentSteps) listByStatus(ctx context.Context, status string) error {
	return s.tc.POST("/v1/tools/list_consent_requests", map[string]any{"status": status})
}

func (s *consentSteps) listByTarget(ctx context.Context, target string) error {
	contactType := "phone"
	if strings.Contains(target, "@") {
		contactType = "email"
	}
	return s.tc.POST("/v1/tools/list_consent_requests", map[string]any{
		"target_contact_type":  contactType,
		"target_contact_value": target,
	})
}

func (s *consentSteps) openConsentLink(ctx context.Context) error {
	path, err := s.linkPath()
	if err != nil {
		return err
	}
	return s.tc.GET(path, nil)
}

func (s *consentSteps) grantThroughLink(ctx context.Context) error {
	path, err := s.linkPath()
	if err != nil {
		return err
	}
	return s.tc.POSTForm(path + "/grant")
}

func (s *consentSteps) denyThroughLink(ctx context.Context) error {
	path, err := s.linkPath()
	if err != nil {
		return err
	}
	return s.tc.POSTForm(path + "/deny")
}

func (s *consentSteps) simulateReply(ctx context.Context, target, reply, requester string) error {
	contactType := "phone"
	if strings.Contains(target, "@") {
		contactType = "email"
	}
	return s.tc.POST("/v1/tools/admin_simulate_response", map[string]any{
		"target_contact_type":     contactType,
		"target_contact_value":    target,
		"requester_contact_value": requester,
		"response":                reply,
	})
}

func (s *consentSteps) listingShouldContain(ctx context.Context, count int) error {
	raw, err := s.tc.GetResponseField("total")
	if err != nil {
		return err
	}
	total, ok := raw.(float64)
	if !ok {
		return fmt.Errorf("total is not a number: %v", raw)
	}
	if int(total) != count {
		return fmt.Errorf("expected %d requests, got %d", count, int(total))
	}
	return nil
}

func (s *consentSteps) messageShouldContainLink(ctx context.Context, recipient string) error {
	link := s.tc.Recall(consentLinkKey)
	if link == "" {
		return fmt.Errorf("no consent link saved")
	}
	return s.messageShouldContain(ctx, recipient, link)
}

func (s *consentSteps) messageShouldContain(ctx context.Context, recipient, text string) error {
	messages, err := s.tc.GETMessages(recipient)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages delivered to %s", recipient)
	}
	body := fmt.Sprint(messages[0]["body"])
	if !strings.Contains(body, text) {
		return fmt.Errorf("latest message to %s does not contain %q\nBody: %s", recipient, text, body)
	}
	return nil
}

// linkPath strips the public base URL so the request goes to the gateway under test.
func (s *consentSteps) linkPath() (string, error) {
	link := s.tc.Recall(consentLinkKey)
	if link == "" {
		return "", fmt.Errorf("no consent link saved")
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid consent link %q: %w", link, err)
	}
	return u.Path, nil
}
