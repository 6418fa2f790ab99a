// Package privacy reduces personal data to what is safe to write to logs and
// audit records.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP truncates an address to its network: /24 for IPv4, /48 for IPv6.
// Empty input yields "unknown" and unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.WithZone("").Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// MaskPhone keeps the country-code plus sign and the last four digits.
//
//	+15551234567 -> +*******4567
func MaskPhone(phone string) string {
	if len(phone) <= 5 {
		return strings.Repeat("*", len(phone))
	}
	head := ""
	rest := phone
	if strings.HasPrefix(phone, "+") {
		head, rest = "+", phone[1:]
	}
	return head + strings.Repeat("*", len(rest)-4) + rest[len(rest)-4:]
}

// MaskEmail keeps the first character of the local part and the domain.
//
//	alice@example.com -> a****@example.com
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return strings.Repeat("*", len(email))
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
}

// MaskContact masks value according to its contact type ("phone" or "email").
func MaskContact(contactType, value string) string {
	if contactType == "email" {
		return MaskEmail(value)
	}
	return MaskPhone(value)
}
