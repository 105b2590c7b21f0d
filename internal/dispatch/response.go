package dispatch

import (
	"encoding/json"
	"net/http"

	"alertsystem/internal/types"
)

// Status summarizes an invocation in the response body.
type Status string

const (
	StatusDelivered      Status = "delivered"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
	StatusSkipped        Status = "skipped"
	StatusRejected       Status = "rejected"
	StatusError          Status = "error"
)

// Response is returned to the invocation boundary. The JSON field names match
// what Lambda function URLs and API Gateway proxy integrations expect.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ResultBody is the decoded form of Response.Body.
type ResultBody struct {
	InvocationID string                  `json:"invocation_id"`
	MessageKind  string                  `json:"message_kind,omitempty"`
	Status       Status                  `json:"status"`
	Info         string                  `json:"info,omitempty"`
	Error        *types.AppError         `json:"error,omitempty"`
	Outcomes     []types.DeliveryOutcome `json:"outcomes"`
	Escalation   []types.DeliveryOutcome `json:"escalation,omitempty"`
}

// Decode parses the response body. Used by the CLI and by tests.
func (r Response) Decode() (ResultBody, error) {
	var body ResultBody
	err := json.Unmarshal([]byte(r.Body), &body)
	return body, err
}

func newResponse(statusCode int, body ResultBody) Response {
	if body.Outcomes == nil {
		body.Outcomes = []types.DeliveryOutcome{}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		// Every field is a plain value; only a broken AppError detail map gets here.
		body.Error = types.NewAppError(types.ErrCodeInternalUnexpected, "response encoding failed", err)
		body.Error.Details = nil
		encoded, _ = json.Marshal(body)
		statusCode = http.StatusInternalServerError
	}
	return Response{StatusCode: statusCode, Body: string(encoded)}
}

// statusFor maps delivery outcomes to the invocation status and HTTP code.
func statusFor(outcomes []types.DeliveryOutcome) (Status, int) {
	var failed int
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusDelivered, http.StatusOK
	case failed == len(outcomes):
		return StatusFailed, http.StatusBadGateway
	default:
		return StatusPartialFailure, http.StatusBadGateway
	}
}
