package webhook

import (
	"strings"
)

// PlatformRegistry maps webhook URLs to platform-specific formatters. It
// supports URL pattern auto-detection and an explicit platform_override.
type PlatformRegistry struct {
	formatters map[Platform]PlatformFormatter
}

// NewPlatformRegistry creates a PlatformRegistry with all built-in formatters.
func NewPlatformRegistry() *PlatformRegistry {
	r := &PlatformRegistry{
		formatters: make(map[Platform]PlatformFormatter),
	}
	for _, f := range []PlatformFormatter{
		&SlackFormatter{},
		&TeamsFormatter{},
		&DiscordFormatter{},
		&GoogleChatFormatter{},
		&GenericFormatter{},
	} {
		r.formatters[f.Platform()] = f
	}
	return r
}

// Supports reports whether p has a registered formatter.
func (r *PlatformRegistry) Supports(p Platform) bool {
	_, ok := r.formatters[p]
	return ok
}

// Detect determines the target Platform for url.
//
// Detection order:
//  1. override, when it names a registered platform.
//  2. URL patterns:
//     - "hooks.slack.com" -> PlatformSlack
//     - "discord.com/api/webhooks" -> PlatformDiscord
//     - ".webhook.office.com" OR ".logic.azure.com" -> PlatformTeams
//     - "chat.googleapis.com" -> PlatformGoogleChat
//  3. PlatformGeneric.
func (r *PlatformRegistry) Detect(url string, override Platform) Platform {
	if override != "" && r.Supports(override) {
		return override
	}

	lowerURL := strings.ToLower(url)
	switch {
	case strings.Contains(lowerURL, "hooks.slack.com"):
		return PlatformSlack
	case strings.Contains(lowerURL, "discord.com/api/webhooks"):
		return PlatformDiscord
	case strings.Contains(lowerURL, ".webhook.office.com"), strings.Contains(lowerURL, ".logic.azure.com"):
		return PlatformTeams
	case strings.Contains(lowerURL, "chat.googleapis.com"):
		return PlatformGoogleChat
	}
	return PlatformGeneric
}

// Get returns the PlatformFormatter for p, or the generic formatter.
func (r *PlatformRegistry) Get(p Platform) PlatformFormatter {
	if f, ok := r.formatters[p]; ok {
		return f
	}
	return r.formatters[PlatformGeneric]
}

// CheckDeprecation reports known platform retirements for url. Channel
// construction logs the warning once per destination.
func (r *PlatformRegistry) CheckDeprecation(url string) (warning string, isDeprecated bool) {
	if strings.Contains(strings.ToLower(url), ".webhook.office.com") {
		return "Teams Connectors are retiring. Migrate to Power Automate Workflows.", true
	}
	return "", false
}
