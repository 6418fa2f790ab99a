// Package device turns a User-Agent header into a short display name recorded
// alongside consent responses made through the web link.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknown = "Unknown Device"

// ParseUserAgent returns "Browser on OS" (for example "Chrome on macOS"); mobile
// devices report their platform instead of the OS string.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknown
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "Bot"
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return browser + " on " + platform
		}
	}
	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
