package messages

import (
	"fmt"
	"sort"

	"alertsystem/internal/types"
)

// DecodeFunc inspects an event. Returning matched=false declines the event.
// A non-nil error means the candidate recognized its discriminating fields
// but the payload is malformed; classification stops there.
type DecodeFunc func(ev Event, s Settings) (msg Message, matched bool, err error)

// Candidate is one entry of the ordered classification list.
type Candidate struct {
	Name     string
	Priority int
	Decode   DecodeFunc
}

// Built-in candidate priorities. Lower runs first. Gaps leave room for
// candidates registered by callers.
const (
	PriorityWebhook            = 10
	PriorityCloudWatchAlarmSNS = 20
	PriorityCloudWatchAlarm    = 30
	PrioritySES                = 40
	PriorityEventBridge        = 50
	PriorityCloudWatchLogs     = 60
)

// BuiltinCandidates returns the structured variants in priority order.
// The raw fallback is not included; the Factory appends it.
func BuiltinCandidates() []Candidate {
	return []Candidate{
		{Name: "webhook", Priority: PriorityWebhook, Decode: decodeWebhook},
		{Name: string(KindCloudWatchAlarmSNS), Priority: PriorityCloudWatchAlarmSNS, Decode: decodeCloudWatchAlarmSNS},
		{Name: string(KindCloudWatchAlarm), Priority: PriorityCloudWatchAlarm, Decode: decodeCloudWatchAlarmDirect},
		{Name: string(KindSESNotification), Priority: PrioritySES, Decode: decodeSES},
		{Name: string(KindEventBridgeScheduled), Priority: PriorityEventBridge, Decode: decodeEventBridgeScheduled},
		{Name: string(KindCloudWatchLogs), Priority: PriorityCloudWatchLogs, Decode: decodeCloudWatchLogs},
	}
}

// Factory classifies raw events. It is immutable after construction and safe
// for concurrent use.
type Factory struct {
	candidates []Candidate
	settings   Settings
}

// NewFactory builds a factory over the built-in candidates plus extra.
// Candidates sharing a name or a priority are rejected so that the
// classification order is always explicit.
func NewFactory(settings Settings, extra ...Candidate) (*Factory, error) {
	all := append(BuiltinCandidates(), extra...)

	names := make(map[string]struct{}, len(all))
	priorities := make(map[int]string, len(all))
	for _, c := range all {
		if c.Name == "" || c.Decode == nil {
			return nil, fmt.Errorf("candidate %q: name and decode function are required", c.Name)
		}
		if _, dup := names[c.Name]; dup || c.Name == string(KindRaw) {
			return nil, fmt.Errorf("candidate %q registered twice", c.Name)
		}
		if other, dup := priorities[c.Priority]; dup {
			return nil, fmt.Errorf("candidates %q and %q share priority %d", other, c.Name, c.Priority)
		}
		names[c.Name] = struct{}{}
		priorities[c.Priority] = c.Name
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority < all[j].Priority })

	return &Factory{candidates: all, settings: settings.withDefaults()}, nil
}

// Order returns candidate names in evaluation order, ending with the fallback.
func (f *Factory) Order() []string {
	out := make([]string, 0, len(f.candidates)+1)
	for _, c := range f.candidates {
		out = append(out, c.Name)
	}
	return append(out, string(KindRaw))
}

// GenerateMessage returns the first candidate's match, or the raw fallback
// when nothing matches. The only error is a *DecodeError.
func (f *Factory) GenerateMessage(raw types.RawEvent) (Message, error) {
	ev := Unwrap(raw)
	for _, c := range f.candidates {
		msg, matched, err := c.Decode(ev, f.settings)
		if err != nil {
			return nil, &DecodeError{Candidate: c.Name, Err: err}
		}
		if matched {
			return msg, nil
		}
	}
	return newRawMessage(ev, f.settings), nil
}
