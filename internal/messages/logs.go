package messages

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/klauspost/compress/gzip"

	"alertsystem/internal/types"
)

// maxLogsPayload bounds the decompressed subscription payload.
const maxLogsPayload = 6 << 20

// CloudWatchLogsMessage is a batch delivered by a CloudWatch Logs
// subscription filter.
type CloudWatchLogsMessage struct {
	base
	Data events.CloudwatchLogsData
}

func decodeCloudWatchLogs(ev Event, s Settings) (Message, bool, error) {
	inner := ev.Inner
	if inner == nil {
		return nil, false, nil
	}
	awslogs, present := inner["awslogs"]
	if !present {
		return nil, false, nil
	}
	wrapper, ok := awslogs.(map[string]any)
	if !ok {
		return nil, true, fmt.Errorf("awslogs must be an object")
	}
	encoded, ok := stringField(wrapper, "data")
	if !ok || encoded == "" {
		return nil, true, fmt.Errorf("awslogs.data must be a non-empty string")
	}

	data, err := parseLogsData(encoded)
	if err != nil {
		return nil, true, err
	}
	return &CloudWatchLogsMessage{
		base: base{kind: KindCloudWatchLogs, raw: ev.Raw, settings: s},
		Data: data,
	}, true, nil
}

func parseLogsData(encoded string) (events.CloudwatchLogsData, error) {
	var data events.CloudwatchLogsData

	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return data, fmt.Errorf("awslogs.data is not base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return data, fmt.Errorf("awslogs.data is not gzip: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxLogsPayload))
	if err != nil {
		return data, fmt.Errorf("decompressing awslogs.data: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decoding awslogs.data: %w", err)
	}
	return data, nil
}

// GenerateNotification renders up to Settings.MaxLogLines log events.
// CONTROL_MESSAGE batches only verify the subscription and are skipped.
func (m *CloudWatchLogsMessage) GenerateNotification() (types.Notification, error) {
	d := m.Data
	if d.MessageType == "CONTROL_MESSAGE" {
		return types.Notification{}, ErrUnsupportedGeneration
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Log group: %s\n", d.LogGroup)
	fmt.Fprintf(&b, "Log stream: %s\n", d.LogStream)
	if len(d.SubscriptionFilters) > 0 {
		fmt.Fprintf(&b, "Filters: %s\n", strings.Join(d.SubscriptionFilters, ", "))
	}
	b.WriteString("\n")

	var first, last time.Time
	for i, e := range d.LogEvents {
		ts := time.UnixMilli(e.Timestamp).UTC()
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
		if i < m.settings.MaxLogLines {
			fmt.Fprintf(&b, "%s %s\n", ts.Format(time.RFC3339), strings.TrimRight(e.Message, "\n"))
		}
	}
	if extra := len(d.LogEvents) - m.settings.MaxLogLines; extra > 0 {
		fmt.Fprintf(&b, "... %d more events\n", extra)
	}

	header := fmt.Sprintf("Log events in %s", d.LogGroup)
	var opts []types.NotificationOption
	if d.LogGroup != "" {
		if !first.IsZero() {
			first, last = first.Add(-time.Minute), last.Add(time.Minute)
		}
		link := logSearchLink(m.settings.Region, d.LogGroup, "", first, last)
		opts = append(opts, types.WithLink(link, "View Cloudwatch Logs"))
	}
	return m.notification(header, b.String(), types.SeverityCritical, nil, opts...), nil
}
