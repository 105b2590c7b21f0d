package webhook

import (
	"fmt"
	"strings"

	"alertsystem/internal/types"
)

// Severity colours shared by every platform (decimal RGB).
const (
	colorInfo     = 0x2196F3 // Blue
	colorStable   = 0x4CAF50 // Green
	colorWarning  = 0xFF9800 // Orange
	colorCritical = 0xF44336 // Red
)

func severityColor(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return colorCritical
	case types.SeverityWarning:
		return colorWarning
	case types.SeverityStable:
		return colorStable
	default:
		return colorInfo
	}
}

// SeverityHexColor returns the colour as "#RRGGBB".
func SeverityHexColor(s types.Severity) string {
	return fmt.Sprintf("#%06X", severityColor(s))
}

// fallbackText is the one-line form used by push notifications and previews.
func fallbackText(n types.Notification) string {
	return "[" + n.Severity().String() + "] " + n.Header()
}

// truncate shortens s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return string(r[:limit])
	}
	return string(r[:limit-1]) + "…"
}

// truncateBody limits response bodies quoted in failure reasons.
func truncateBody(body []byte) string {
	return truncate(strings.TrimSpace(string(body)), 200)
}

func linkLabel(l types.Link) string {
	if l.Text != "" {
		return l.Text
	}
	return "Open"
}
