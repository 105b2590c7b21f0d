package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SignatureHeader carries the payload signature.
//
// Format: t=<unix>,v1=<hmac>[,v1_old=<hmac>]
const SignatureHeader = "X-Alert-Signature"

// Signer computes HMAC-SHA256 payload signatures with dual-validity support
// for zero-downtime secret rotation.
type Signer struct {
	secret            string
	previous          string
	previousExpiresAt time.Time
}

// NewSigner returns nil when secret is empty. The previous secret is only
// used while now <= previousExpiresAt; a zero expiry disables it.
func NewSigner(secret, previous string, previousExpiresAt time.Time) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: secret, previous: previous, previousExpiresAt: previousExpiresAt}
}

// Sign returns the header value for payload. The signed content is
// "{unix_timestamp}.{payload}".
func (s *Signer) Sign(payload []byte, now time.Time) string {
	timestamp := now.Unix()
	signedContent := fmt.Sprintf("%d.%s", timestamp, payload)

	header := fmt.Sprintf("t=%d,v1=%s", timestamp, computeHMAC(signedContent, s.secret))
	if s.previous != "" && !s.previousExpiresAt.IsZero() && !now.After(s.previousExpiresAt) {
		header += ",v1_old=" + computeHMAC(signedContent, s.previous)
	}
	return header
}

// VerifySignature checks payload against a header produced by Sign. It is
// what receivers of our webhooks run; previous may be empty.
func VerifySignature(payload []byte, header, current, previous string) bool {
	parts := parseSignatureHeader(header)
	if parts.timestamp == "" || parts.v1 == "" {
		return false
	}
	signedContent := fmt.Sprintf("%s.%s", parts.timestamp, payload)

	matches := func(sig, secret string) bool {
		if sig == "" || secret == "" {
			return false
		}
		return hmac.Equal([]byte(sig), []byte(computeHMAC(signedContent, secret)))
	}

	return matches(parts.v1, current) ||
		matches(parts.v1Old, previous) ||
		matches(parts.v1, previous)
}

type signatureParts struct {
	timestamp string
	v1        string
	v1Old     string
}

func parseSignatureHeader(header string) signatureParts {
	var parts signatureParts
	for _, segment := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "t":
			parts.timestamp = value
		case "v1":
			parts.v1 = value
		case "v1_old":
			parts.v1Old = value
		}
	}
	return parts
}

// computeHMAC returns the lowercase hex HMAC-SHA256 of content.
func computeHMAC(content, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
