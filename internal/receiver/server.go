// Package receiver is the local HTTP front of the alert pipeline. It accepts
// webhook payloads (Zabbix media scripts, curl, integration tests) and hands
// them to the same Dispatcher the Lambda handler uses, so a developer can run
// the full classify, route and deliver path without deploying.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alertsystem/internal/config"
	"alertsystem/internal/dispatch"
	"alertsystem/internal/messages"
	"alertsystem/internal/types"
)

// Dispatcher is the subset of *dispatch.Dispatcher the receiver needs.
type Dispatcher interface {
	Handle(ctx context.Context, raw types.RawEvent) dispatch.Response
	Plan(n types.Notification) []dispatch.PlannedDelivery
}

// Server wires the routes and middleware around a Dispatcher.
type Server struct {
	dispatcher Dispatcher
	classifier dispatch.Classifier
	channels   []string
	build      config.BuildInfo
	logger     types.Logger
	secret     string

	router *chi.Mux
}

// ServerOption configures optional Server behaviour.
type ServerOption func(*Server)

// WithSigningSecret makes POST /events and /events/preview require a valid
// X-Alert-Signature. An empty secret leaves them open.
func WithSigningSecret(secret string) ServerOption {
	return func(s *Server) { s.secret = secret }
}

// NewServer builds the router. channels lists the configured channel names
// for the health endpoint.
func NewServer(d Dispatcher, classifier dispatch.Classifier, channels []string, build config.BuildInfo, logger types.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher must not be nil")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier must not be nil")
	}
	if logger == nil {
		logger = types.NopLogger{}
	}

	s := &Server{
		dispatcher: d,
		classifier: classifier,
		channels:   channels,
		build:      build,
		logger:     logger,
		router:     chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mountRoutes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(s.logger, []string{"Authorization", "X-Alert-Signature"}))

	s.router.Get("/health", s.handleHealth)
	s.router.Group(func(r chi.Router) {
		if s.secret != "" {
			r.Use(RequireSignature(s.secret))
		}
		r.Post("/events", s.handleEvent)
		r.Post("/events/preview", s.handlePreview)
	})
}

type healthResponse struct {
	Status   string   `json:"status"`
	Version  string   `json:"version"`
	Channels []string `json:"channels"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, healthResponse{
		Status:   "healthy",
		Version:  s.build.Version,
		Channels: s.channels,
	})
}

// handleEvent runs the full pipeline. The dispatcher's response is written
// verbatim: its status code and its JSON body.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := DecodeEvent(w, r)
	if err != nil {
		Error(w, r, err)
		return
	}

	resp := s.dispatcher.Handle(r.Context(), raw)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
}

type previewResponse struct {
	MessageKind  string                     `json:"message_kind"`
	Skipped      bool                       `json:"skipped,omitempty"`
	Notification *types.Notification        `json:"notification,omitempty"`
	Deliveries   []dispatch.PlannedDelivery `json:"deliveries,omitempty"`
}

// handlePreview classifies and routes the event without sending anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	raw, err := DecodeEvent(w, r)
	if err != nil {
		Error(w, r, err)
		return
	}

	msg, err := s.classifier.GenerateMessage(raw)
	if err != nil {
		var decodeErr *messages.DecodeError
		if errors.As(err, &decodeErr) {
			err = decodeErr.AppError()
		}
		Error(w, r, err)
		return
	}

	resp := previewResponse{MessageKind: string(msg.Kind())}
	n, err := msg.GenerateNotification()
	switch {
	case errors.Is(err, messages.ErrUnsupportedGeneration):
		resp.Skipped = true
	case err != nil:
		Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, err.Error(), err))
		return
	default:
		resp.Notification = &n
		resp.Deliveries = s.dispatcher.Plan(n)
	}
	JSON(w, r, http.StatusOK, resp)
}
