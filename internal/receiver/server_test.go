package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertsystem/internal/config"
	"alertsystem/internal/dispatch"
	"alertsystem/internal/messages"
	"alertsystem/internal/notifications/webhook"
	"alertsystem/internal/types"
)

type mockDispatcher struct {
	mu       sync.Mutex
	events   []types.RawEvent
	ids      []string
	response dispatch.Response
	panicMsg string
}

func (m *mockDispatcher) Handle(ctx context.Context, raw types.RawEvent) dispatch.Response {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, raw)
	m.ids = append(m.ids, types.GetInvocationID(ctx))
	return m.response
}

func (m *mockDispatcher) Plan(n types.Notification) []dispatch.PlannedDelivery {
	return []dispatch.PlannedDelivery{{Channel: "ops", ChannelType: "echo", Destination: "stdout", Tags: n.Tags(), Header: n.Header()}}
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Info(string, ...any) {}
func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *mockLogger) With(...any) types.Logger { return l }

type stubClassifier struct {
	msg messages.Message
	err error
}

func (s stubClassifier) GenerateMessage(types.RawEvent) (messages.Message, error) {
	return s.msg, s.err
}

func newTestServer(t *testing.T, d Dispatcher, c dispatch.Classifier) (*Server, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	if c == nil {
		f, err := messages.NewFactory(messages.Settings{})
		require.NoError(t, err)
		c = f
	}
	srv, err := NewServer(d, c, []string{"ops"}, config.BuildInfo{Version: "1.2.3"}, logger)
	require.NoError(t, err)
	return srv, logger
}

func do(srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, stubClassifier{}, nil, config.BuildInfo{}, nil)
	assert.Error(t, err)
	_, err = NewServer(&mockDispatcher{}, nil, nil, config.BuildInfo{}, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &mockDispatcher{}, nil)

	rec := do(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, []string{"ops"}, body.Channels)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestPostEvent_PassesDispatcherResponseThrough(t *testing.T) {
	d := &mockDispatcher{response: dispatch.Response{StatusCode: http.StatusBadGateway, Body: `{"status":"failed"}`}}
	srv, _ := newTestServer(t, d, nil)

	rec := do(srv, http.MethodPost, "/events", `{"foo":"bar"}`, RequestIDHeader, "req-42")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"status":"failed"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	require.Len(t, d.events, 1)
	assert.Equal(t, types.RawEvent{"foo": "bar"}, d.events[0])
	assert.Equal(t, []string{"req-42"}, d.ids)
}

func TestPostEvent_RejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", "must not be empty"},
		{"truncated", `{"foo":`, "malformed JSON"},
		{"bad token", `{"foo":x}`, "malformed JSON"},
		{"array", `[1,2]`, "must be a JSON object"},
		{"null", `null`, "must be a JSON object"},
		{"two values", `{"a":1} {"b":2}`, "single JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDispatcher{}
			srv, _ := newTestServer(t, d, nil)

			rec := do(srv, http.MethodPost, "/events", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(types.ErrCodeValidationInvalidPayload), body.Error.Code)
			assert.Contains(t, body.Error.Message, tt.want)
			assert.Empty(t, d.events)
		})
	}
}

func TestPostEvent_BodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, &mockDispatcher{}, nil)
	big := `{"pad":"` + strings.Repeat("x", maxRequestBodySize) + `"}`

	rec := do(srv, http.MethodPost, "/events", big)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "1MB")
}

func TestPostEvent_SigningSecret(t *testing.T) {
	body := `{"foo":"bar"}`
	valid := webhook.NewSigner("s3cret", "", time.Time{}).Sign([]byte(body), time.Now())
	forged := webhook.NewSigner("other", "", time.Time{}).Sign([]byte(body), time.Now())

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid", valid, http.StatusOK},
		{"wrong secret", forged, http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDispatcher{response: dispatch.Response{StatusCode: http.StatusOK, Body: `{"status":"delivered"}`}}
			srv, err := NewServer(d, stubClassifier{}, nil, config.BuildInfo{}, nil, WithSigningSecret("s3cret"))
			require.NoError(t, err)

			rec := do(srv, http.MethodPost, "/events", body, webhook.SignatureHeader, tt.header)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				require.Len(t, d.events, 1)
				assert.Equal(t, types.RawEvent{"foo": "bar"}, d.events[0])
			} else {
				assert.Contains(t, rec.Body.String(), string(types.ErrCodeAuthInvalidSignature))
				assert.Empty(t, d.events)
			}
		})
	}
}

func TestHealth_OpenWithSigningSecret(t *testing.T) {
	srv, err := NewServer(&mockDispatcher{}, stubClassifier{}, nil, config.BuildInfo{}, nil, WithSigningSecret("s3cret"))
	require.NoError(t, err)

	rec := do(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreview_RawEvent(t *testing.T) {
	srv, _ := newTestServer(t, &mockDispatcher{}, nil)

	rec := do(srv, http.MethodPost, "/events/preview", `{"foo":"bar"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		MessageKind  string                     `json:"message_kind"`
		Notification map[string]any             `json:"notification"`
		Deliveries   []dispatch.PlannedDelivery `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(messages.KindRaw), body.MessageKind)
	assert.Contains(t, body.Notification["body"], `"foo"`)
	require.Len(t, body.Deliveries, 1)
	assert.Equal(t, []string{types.DefaultRoutingTag}, body.Deliveries[0].Tags)
}

func TestPreview_Skipped(t *testing.T) {
	msg := skippedMessage{}
	srv, _ := newTestServer(t, &mockDispatcher{}, stubClassifier{msg: msg})

	rec := do(srv, http.MethodPost, "/events/preview", `{"source":"aws.events"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message_kind":"eventbridge_scheduled","skipped":true}`, rec.Body.String())
}

func TestPreview_DecodeError(t *testing.T) {
	decodeErr := &messages.DecodeError{Candidate: "ses_notification", Err: errors.New("no mail")}
	srv, _ := newTestServer(t, &mockDispatcher{}, stubClassifier{err: decodeErr})

	rec := do(srv, http.MethodPost, "/events/preview", `{"notificationType":"Bounce"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(types.ErrCodeValidationUnsupportedDecode), body.Error.Code)
	assert.Equal(t, "ses_notification", body.Error.Details["candidate"])
}

func TestRecoverer(t *testing.T) {
	srv, logger := newTestServer(t, &mockDispatcher{panicMsg: "boom"}, nil)

	rec := do(srv, http.MethodPost, "/events", `{"foo":"bar"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(types.ErrCodeInternalUnexpected))
	assert.Contains(t, logger.errors, "panic recovered")
}

func TestRequestLogger_RedactsHeaders(t *testing.T) {
	var captured []any
	logger := &captureLogger{onInfo: func(args []any) { captured = args }}
	handler := RequestLogger(logger, []string{"Authorization"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer secret")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotEmpty(t, captured)
	fields := map[string]any{}
	for i := 0; i+1 < len(captured); i += 2 {
		fields[captured[i].(string)] = captured[i+1]
	}
	assert.Equal(t, http.StatusNoContent, fields["status"])
	headers := fields["headers"].(map[string]string)
	assert.Equal(t, "[REDACTED]", headers["Authorization"])
}

type skippedMessage struct{}

func (skippedMessage) Kind() messages.Kind { return messages.KindEventBridgeScheduled }
func (skippedMessage) Raw() types.RawEvent { return nil }
func (skippedMessage) GenerateNotification() (types.Notification, error) {
	return types.Notification{}, messages.ErrUnsupportedGeneration
}

type captureLogger struct {
	onInfo func(args []any)
}

func (l *captureLogger) Info(_ string, args ...any) { l.onInfo(args) }
func (l *captureLogger) Warn(string, ...any)        {}
func (l *captureLogger) Error(string, ...any)       {}
func (l *captureLogger) With(...any) types.Logger   { return l }
