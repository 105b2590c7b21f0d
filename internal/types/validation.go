package types

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// ValidateWebhookURL checks that a destination URL is usable for webhook delivery.
// SSRF checks happen at dial time in the security transport, not here.
func ValidateWebhookURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return NewAppError(ErrCodeValidationInvalidWebhook, fmt.Sprintf("invalid URL %q", urlStr), err)
	}
	if parsed.Scheme != "https" {
		return NewAppError(ErrCodeValidationInvalidWebhook, fmt.Sprintf("%q must use HTTPS", urlStr), nil)
	}
	return nil
}

// ValidateEmailAddress accepts a bare RFC 5322 address (no display name).
func ValidateEmailAddress(addr string) error {
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != strings.TrimSpace(addr) {
		return NewAppError(ErrCodeValidationInvalidEmail, fmt.Sprintf("invalid email address %q", addr), err)
	}
	return nil
}

// SSRFBlockedCIDRs defines the IP ranges webhook deliveries must never reach.
var SSRFBlockedCIDRs = []string{
	"127.0.0.0/8",    // Localhost
	"10.0.0.0/8",     // Private Class A
	"172.16.0.0/12",  // Private Class B
	"192.168.0.0/16", // Private Class C
	"169.254.0.0/16", // Link-local (instance metadata)
	"0.0.0.0/8",      // Current network
	"224.0.0.0/4",    // Multicast
	"240.0.0.0/4",    // Reserved
	"100.64.0.0/10",  // Shared Address Space (CGN)
	"198.18.0.0/15",  // Benchmark testing
	"fc00::/7",       // IPv6 private
	"fe80::/10",      // IPv6 link-local
	"::1/128",        // IPv6 localhost
}
