package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	MessagingURL     string
	APIKey           string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	saved            map[string]string
}

// NewTestContext creates a new test context from BASE_URL, MESSAGING_URL and E2E_API_KEY.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		MessagingURL: strings.TrimRight(getEnv("MESSAGING_URL", "http://localhost:8082"), "/"),
		APIKey:       getEnv("E2E_API_KEY", "e2e-test-key"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		saved: map[string]string{},
	}
}

// POST sends an authenticated JSON request and stores the response
func (tc *TestContext) POST(path string, body any) error {
	return tc.POSTWithHeaders(path, body, map[string]string{
		"Authorization": "Bearer " + tc.APIKey,
	})
}

// POSTWithHeaders sends a JSON request with exactly the given headers
func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	headers = withDefault(headers, "Content-Type", "application/json")
	return tc.do(http.MethodPost, tc.BaseURL+path, bytes.NewReader(data), headers)
}

// POSTForm posts an empty HTML form, as the consent page buttons do
func (tc *TestContext) POSTForm(path string) error {
	return tc.do(http.MethodPost, tc.BaseURL+path, strings.NewReader(""), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, tc.BaseURL+path, nil, headers)
}

// GETMessages fetches deliveries recorded by the messaging stub for a recipient
func (tc *TestContext) GETMessages(to string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.MessagingURL+"/messages", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("to", to)
	req.URL.RawQuery = q.Encode()

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach messaging stub: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return out.Messages, nil
}

func (tc *TestContext) do(method, url string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

// Getter methods for step package interfaces

func (tc *TestContext) GetAPIKey() string {
	return tc.APIKey
}

func (tc *TestContext) Save(key, value string) {
	tc.saved[key] = value
}

func (tc *TestContext) Recall(key string) string {
	return tc.saved[key]
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func withDefault(headers map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	out[key] = value
	for k, v := range headers {
		out[k] = v
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
