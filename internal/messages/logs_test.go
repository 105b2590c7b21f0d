package messages

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertsystem/internal/types"
)

func logsEvent(t *testing.T, data map[string]any) types.RawEvent {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(b)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return types.RawEvent{"awslogs": map[string]any{"data": base64.StdEncoding.EncodeToString(buf.Bytes())}}
}

func logLines(n int) []any {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"id":        "e" + string(rune('a'+i)),
			"timestamp": int64(1767607200000) + int64(i)*1000,
			"message":   "[ERROR] request failed\n",
		})
	}
	return out
}

func TestCloudWatchLogs_Data(t *testing.T) {
	f := newTestFactory(t)
	ev := logsEvent(t, map[string]any{
		"messageType":         "DATA_MESSAGE",
		"owner":               "123456789012",
		"logGroup":            "/ecs/api",
		"logStream":           "api/web/abc",
		"subscriptionFilters": []any{"errors"},
		"logEvents":           logLines(5),
	})

	msg, n := generate(t, f, ev)

	assert.Equal(t, KindCloudWatchLogs, msg.Kind())
	assert.Equal(t, "Log events in /ecs/api", n.Header())
	assert.Equal(t, types.SeverityCritical, n.Severity())
	assert.Equal(t, []string{types.DefaultRoutingTag}, n.Tags())
	assert.Contains(t, n.Body(), "Log stream: api/web/abc")
	assert.Contains(t, n.Body(), "2026-01-05T10:00:00Z [ERROR] request failed\n")
	assert.Contains(t, n.Body(), "... 2 more events")
	assert.Equal(t, 3, bytes.Count([]byte(n.Body()), []byte("[ERROR]")))

	link, ok := n.Link()
	require.True(t, ok)
	assert.Contains(t, link.URL, "log-group/$252Fecs$252Fapi/")
	assert.Contains(t, link.URL, "start$3D2026-01-05T09:59:00Z")
}

func TestCloudWatchLogs_ControlMessage(t *testing.T) {
	f := newTestFactory(t)
	ev := logsEvent(t, map[string]any{
		"messageType": "CONTROL_MESSAGE",
		"logGroup":    "",
		"logEvents":   []any{map[string]any{"id": "", "timestamp": 1, "message": "CWL CONTROL MESSAGE: Checking health of destination"}},
	})

	msg, err := f.GenerateMessage(ev)
	require.NoError(t, err)
	_, err = msg.GenerateNotification()
	assert.True(t, errors.Is(err, ErrUnsupportedGeneration))
}

func TestCloudWatchLogs_Malformed(t *testing.T) {
	tests := map[string]types.RawEvent{
		"awslogs not an object": {"awslogs": "x"},
		"missing data":          {"awslogs": map[string]any{}},
		"not base64":            {"awslogs": map[string]any{"data": "%%%"}},
		"not gzip":              {"awslogs": map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("plain"))}},
	}
	for name, ev := range tests {
		t.Run(name, func(t *testing.T) {
			f := newTestFactory(t)
			_, err := f.GenerateMessage(ev)
			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr))
			assert.Equal(t, string(KindCloudWatchLogs), decErr.Candidate)
		})
	}
}
