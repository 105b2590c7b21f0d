package messages

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"alertsystem/internal/types"
)

// alarmStateChangeLayout is the StateChangeTime format used in alarm notifications.
const alarmStateChangeLayout = "2006-01-02T15:04:05.000-0700"

const defaultAlarmPeriod = 600 * time.Second

// alarmDescription is the structured form of AlarmDescription. Alarms created
// by the provisioning tooling carry JSON; hand-made alarms carry plain text.
type alarmDescription struct {
	RoutingTags           []string        `json:"routing_tags"`
	LogGroupName          string          `json:"log_group_name"`
	LogGroupFilterPattern string          `json:"log_group_filter_pattern"`
	SelfMonitoring        json.RawMessage `json:"alert_system_self_monitoring"`
	LambdaName            string          `json:"lambda_name"`
	QueueName             string          `json:"queue_name"`
	Description           string          `json:"description"`
}

// CloudWatchAlarmMessage is a CloudWatch alarm state change, either delivered
// through an SNS topic or invoked directly.
type CloudWatchAlarmMessage struct {
	base
	Alarm       events.CloudWatchAlarmSNSPayload
	description alarmDescription
	region      string
	changedAt   time.Time
}

func decodeCloudWatchAlarmSNS(ev Event, s Settings) (Message, bool, error) {
	if ev.Envelope != EnvelopeSNS {
		return nil, false, nil
	}
	return decodeAlarm(ev, s, KindCloudWatchAlarmSNS)
}

func decodeCloudWatchAlarmDirect(ev Event, s Settings) (Message, bool, error) {
	if ev.Envelope == EnvelopeSNS {
		return nil, false, nil
	}
	return decodeAlarm(ev, s, KindCloudWatchAlarm)
}

func decodeAlarm(ev Event, s Settings, kind Kind) (Message, bool, error) {
	inner := ev.Inner
	if inner == nil {
		return nil, false, nil
	}
	_, hasName := inner["AlarmName"]
	_, hasState := inner["NewStateValue"]
	if !hasName || !hasState {
		return nil, false, nil
	}

	if name, ok := stringField(inner, "AlarmName"); !ok || name == "" {
		return nil, true, fmt.Errorf("AlarmName must be a non-empty string")
	}
	if _, ok := stringField(inner, "NewStateValue"); !ok {
		return nil, true, fmt.Errorf("NewStateValue must be a string")
	}

	var payload events.CloudWatchAlarmSNSPayload
	if err := decodeInto(inner, &payload); err != nil {
		return nil, true, fmt.Errorf("decoding alarm payload: %w", err)
	}

	msg := &CloudWatchAlarmMessage{
		base:   base{kind: kind, raw: ev.Raw, settings: s},
		Alarm:  payload,
		region: regionFromARN(payload.AlarmARN),
	}
	if msg.region == "" {
		msg.region = s.Region
	}

	desc := strings.TrimSpace(payload.AlarmDescription)
	msg.description.Description = desc
	if strings.HasPrefix(desc, "{") {
		// A hand-written description may open with a brace and still be prose.
		var structured alarmDescription
		if err := json.Unmarshal([]byte(desc), &structured); err == nil {
			msg.description = structured
		}
	}

	if t, err := time.Parse(alarmStateChangeLayout, payload.StateChangeTime); err == nil {
		msg.changedAt = t.UTC()
	}
	return msg, true, nil
}

// AlarmSeverity maps a CloudWatch alarm state to a Severity.
func AlarmSeverity(state string) types.Severity {
	switch state {
	case "ALARM":
		return types.SeverityCritical
	case "OK":
		return types.SeverityInfo
	default:
		return types.SeverityWarning
	}
}

// GenerateNotification picks the most specific rendering for the alarm.
func (m *CloudWatchAlarmMessage) GenerateNotification() (types.Notification, error) {
	switch {
	case len(m.description.SelfMonitoring) > 0:
		return m.selfMonitoringNotification(), nil
	case m.Alarm.Trigger.Namespace == "AWS/Lambda" && m.Alarm.Trigger.MetricName == "Duration":
		return m.lambdaDurationNotification(), nil
	case m.description.LogGroupFilterPattern != "":
		return m.logFilterNotification(), nil
	case m.description.QueueName != "" || m.isQueueVisibleAlarm():
		return m.queueVisibleNotification(), nil
	default:
		return m.defaultNotification(""), nil
	}
}

func (m *CloudWatchAlarmMessage) severity() types.Severity {
	return AlarmSeverity(m.Alarm.NewStateValue)
}

func (m *CloudWatchAlarmMessage) dimension(name string) string {
	for _, d := range m.Alarm.Trigger.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

func (m *CloudWatchAlarmMessage) window() (start, end time.Time) {
	if m.changedAt.IsZero() {
		return time.Time{}, time.Time{}
	}
	period := time.Duration(m.Alarm.Trigger.Period) * time.Second
	if period <= 0 {
		period = defaultAlarmPeriod
	}
	return m.changedAt.Add(-period), m.changedAt
}

func (m *CloudWatchAlarmMessage) defaultNotification(reason string) types.Notification {
	if reason == "" {
		reason = "Metric " + m.Alarm.Trigger.MetricName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n", m.region)
	fmt.Fprintf(&b, "State: %s -> %s\n", m.Alarm.OldStateValue, m.Alarm.NewStateValue)
	fmt.Fprintf(&b, "Raw reason: %s\n", m.Alarm.NewStateReason)
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	fmt.Fprintf(&b, "Time: %s\n", m.Alarm.StateChangeTime)
	if m.description.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", m.description.Description)
	}

	return m.notification("Alarm "+m.Alarm.AlarmName, b.String(), m.severity(), m.description.RoutingTags,
		types.WithLink(alarmConsoleLink(m.region, m.Alarm.AlarmName), "View Cloudwatch Alarm"))
}

func (m *CloudWatchAlarmMessage) lambdaDurationNotification() types.Notification {
	fn := m.dimension("FunctionName")
	reason := fmt.Sprintf("Lambda '%s' duration > %d seconds", fn, int64(m.Alarm.Trigger.Threshold)/1000)
	body := fmt.Sprintf("Region: %s\nReason: %s\nTime: %s\n", m.region, reason, m.Alarm.StateChangeTime)

	return m.notification("Lambda duration error", body, m.severity(), m.description.RoutingTags,
		types.WithLink(lambdaConsoleLink(m.region, fn), "View Lambda Monitoring"))
}

func (m *CloudWatchAlarmMessage) logFilterNotification() types.Notification {
	d := m.description
	reason := fmt.Sprintf("Pattern '%s' found in log group: %s", d.LogGroupFilterPattern, d.LogGroupName)
	body := fmt.Sprintf("Region: %s\nReason: %s\nTime: %s\n", m.region, reason, m.Alarm.StateChangeTime)
	start, end := m.window()

	return m.notification("Log text filter found", body, m.severity(), d.RoutingTags,
		types.WithLink(logSearchLink(m.region, d.LogGroupName, d.LogGroupFilterPattern, start, end), "View Cloudwatch Logs"))
}

func (m *CloudWatchAlarmMessage) isQueueVisibleAlarm() bool {
	return m.Alarm.Trigger.Namespace == "AWS/SQS" && m.Alarm.Trigger.MetricName == "ApproximateNumberOfMessagesVisible"
}

// queueVisibleNotification reports a backlog on an SQS queue. The queue name
// comes from the description when provisioned, else from the QueueName dimension.
func (m *CloudWatchAlarmMessage) queueVisibleNotification() types.Notification {
	queue := m.description.QueueName
	if queue == "" {
		queue = m.dimension("QueueName")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n", m.region)
	fmt.Fprintf(&b, "Queue name: %s\n", queue)
	fmt.Fprintf(&b, "Reason: %s\n", m.Alarm.NewStateReason)
	fmt.Fprintf(&b, "Time: %s\n", m.Alarm.StateChangeTime)

	link := alarmConsoleLink(m.region, m.Alarm.AlarmName)
	text := "View Cloudwatch Alarm"
	if queue != "" && m.Alarm.AWSAccountID != "" {
		link = queueConsoleLink(m.region, m.Alarm.AWSAccountID, queue)
		text = "View SQS Queue"
	}
	return m.notification("SQS queue has visible messages", b.String(), m.severity(), m.description.RoutingTags,
		types.WithLink(link, text))
}

// selfMonitoringNotification covers alarms on the alert system's own function.
// They always reach the self-monitoring route in addition to any configured tags.
func (m *CloudWatchAlarmMessage) selfMonitoringNotification() types.Notification {
	var rendered types.Notification
	switch {
	case m.description.LogGroupFilterPattern != "":
		rendered = m.logFilterNotification()
	case m.Alarm.Trigger.MetricName == "Errors":
		rendered = m.defaultNotification("Lambda finished with errors")
	case m.Alarm.Trigger.MetricName == "Invocations":
		rendered = m.defaultNotification("Lambda was not triggered as expected")
	default:
		rendered = m.defaultNotification("")
	}

	lambdaName := m.description.LambdaName
	if lambdaName == "" {
		lambdaName = m.dimension("FunctionName")
	}
	body := rendered.Body()
	if lambdaName != "" {
		body += "Lambda Name: " + lambdaName + "\n"
	}

	tags := append(append([]string(nil), m.description.RoutingTags...), m.settings.DefaultTag)
	var opts []types.NotificationOption
	if lambdaName != "" && m.description.LogGroupFilterPattern == "" {
		opts = append(opts, types.WithLink(lambdaConsoleLink(m.region, lambdaName), "View Alert System Lambda"))
	} else if link, ok := rendered.Link(); ok {
		opts = append(opts, types.WithLink(link.URL, link.Text))
	}
	return m.notification("Alert System Self Monitoring", body, m.severity(), tags, opts...)
}
