// Package models holds rate limit value types shared by stores and middleware.
package models

import (
	"fmt"
	"time"
)

// Class groups endpoints that share a limit.
type Class string

const (
	// ClassTools covers the agent-facing tool API, keyed by authenticated client.
	ClassTools Class = "tools"
	// ClassWeb covers the consent link pages, keyed by client IP.
	ClassWeb Class = "web"
)

// Limit is a sliding window allowance. Requests <= 0 disables limiting.
type Limit struct {
	Requests int
	Window   time.Duration
}

func (l Limit) Enabled() bool { return l.Requests > 0 && l.Window > 0 }

// Key builds the bucket key for a class and identifier.
func Key(class Class, identifier string) string {
	return fmt.Sprintf("rl:%s:%s", class, identifier)
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

// RetryAfterSeconds is the whole seconds from now until resetAt, rounded up.
func RetryAfterSeconds(allowed bool, resetAt, now time.Time) int {
	if allowed || !resetAt.After(now) {
		return 0
	}
	d := resetAt.Sub(now)
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}
