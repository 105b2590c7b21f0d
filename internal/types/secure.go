package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a credential (Slack bot token, webhook signing secret).
// Formatting, JSON and YAML encoding all produce a redacted placeholder so that
// channel settings can be logged or dumped safely. Unmask returns the raw value.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// MarshalYAML keeps secrets out of `alertctl config` dumps.
func (s SecretString) MarshalYAML() (any, error) {
	return redactedPlaceholder, nil
}

// IsZero reports whether no secret was configured.
func (s SecretString) IsZero() bool {
	return s == ""
}

// Unmask returns the raw plaintext value of the secret. Only call it where the
// value leaves the process (Authorization headers, HMAC keys).
func (s SecretString) Unmask() string {
	return string(s)
}
