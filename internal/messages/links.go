package messages

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

const consoleTimeLayout = "2006-01-02T15:04:05Z"

// consoleEscape percent-encodes every byte outside the unreserved set and then
// escapes the percent signs themselves as "$25", which is what the CloudWatch
// console expects inside its hash-routed URLs.
func consoleEscape(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString("$25")
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func consoleBase(region string) string {
	return fmt.Sprintf("https://%s.console.aws.amazon.com", region)
}

func alarmConsoleLink(region, alarmName string) string {
	return fmt.Sprintf("%s/cloudwatch/home?region=%s#alarmsV2:alarm/%s",
		consoleBase(region), region, strings.ReplaceAll(alarmName, "/", "$2F"))
}

func lambdaConsoleLink(region, functionName string) string {
	return fmt.Sprintf("%s/lambda/home?region=%s#/functions/%s?tab=monitoring",
		consoleBase(region), region, functionName)
}

// queueConsoleLink opens the SQS console on the queue, which is addressed by
// its escaped queue URL.
func queueConsoleLink(region, accountID, queue string) string {
	queueURL := fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", region, accountID, queue)
	return fmt.Sprintf("%s/sqs/v3/home?region=%s#/queues/%s",
		consoleBase(region), region, url.QueryEscape(queueURL))
}

// logSearchLink opens a log group filtered by pattern. A zero start or end
// leaves the time window to the console default.
func logSearchLink(region, logGroup, pattern string, start, end time.Time) string {
	query := "log-events$3FfilterPattern$3D" + consoleEscape(pattern)
	if !start.IsZero() && !end.IsZero() {
		query = fmt.Sprintf("log-events$3Fend$3D%s$26filterPattern$3D%s$26start$3D%s",
			end.UTC().Format(consoleTimeLayout), consoleEscape(pattern), start.UTC().Format(consoleTimeLayout))
	}
	return fmt.Sprintf("%s/cloudwatch/home?region=%s#logsV2:log-groups/log-group/%s/%s",
		consoleBase(region), region, consoleEscape(logGroup), query)
}

// regionFromARN returns the region segment of an ARN, or "".
func regionFromARN(s string) string {
	parsed, err := arn.Parse(s)
	if err != nil {
		return ""
	}
	return parsed.Region
}
