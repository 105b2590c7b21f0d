package messages

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"

	"alertsystem/internal/types"
)

// EnvelopeType names the transport wrapper an event arrived in.
type EnvelopeType string

const (
	EnvelopeNone        EnvelopeType = "none"
	EnvelopeSNS         EnvelopeType = "sns"
	EnvelopeFunctionURL EnvelopeType = "function_url"
)

// Event is a raw event with its transport envelope peeled off.
type Event struct {
	Raw      types.RawEvent
	Envelope EnvelopeType

	// Inner is the JSON object inside the envelope, or Raw itself when there
	// is no envelope. It is nil when the envelope carried something other
	// than a JSON object.
	Inner map[string]any
	// InnerText is the undecoded envelope body (SNS Message, HTTP body).
	InnerText string

	// SNS is set for EnvelopeSNS.
	SNS *events.SNSEntity
}

// Unwrap detects the SNS single-record envelope and the Lambda function URL /
// API Gateway proxy envelope. Anything else is treated as a bare payload.
func Unwrap(raw types.RawEvent) Event {
	if ev, ok := unwrapSNS(raw); ok {
		return ev
	}
	if ev, ok := unwrapFunctionURL(raw); ok {
		return ev
	}
	return Event{Raw: raw, Envelope: EnvelopeNone, Inner: raw}
}

func unwrapSNS(raw types.RawEvent) (Event, bool) {
	records, ok := raw["Records"].([]any)
	if !ok || len(records) != 1 {
		return Event{}, false
	}
	record, ok := records[0].(map[string]any)
	if !ok || record["EventSource"] != "aws:sns" {
		return Event{}, false
	}

	var rec events.SNSEventRecord
	if err := decodeInto(record, &rec); err != nil {
		return Event{}, false
	}

	ev := Event{
		Raw:       raw,
		Envelope:  EnvelopeSNS,
		InnerText: rec.SNS.Message,
		SNS:       &rec.SNS,
	}
	ev.Inner = jsonObject(rec.SNS.Message)
	return ev, true
}

func unwrapFunctionURL(raw types.RawEvent) (Event, bool) {
	if _, ok := raw["requestContext"].(map[string]any); !ok {
		return Event{}, false
	}
	if _, ok := raw["body"].(string); !ok {
		return Event{}, false
	}

	var req events.LambdaFunctionURLRequest
	if err := decodeInto(raw, &req); err != nil {
		return Event{}, false
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return Event{}, false
		}
		body = string(decoded)
	}

	return Event{
		Raw:       raw,
		Envelope:  EnvelopeFunctionURL,
		InnerText: body,
		Inner:     jsonObject(body),
	}, true
}

// jsonObject decodes s when it is a JSON object and returns nil otherwise.
func jsonObject(s string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

// decodeInto re-encodes a generic map into a typed struct.
func decodeInto(m map[string]any, out any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}
