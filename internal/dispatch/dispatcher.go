// Package dispatch is the entry point of the alert pipeline. A Dispatcher
// classifies one raw event, renders it, routes the notification through every
// configured channel and reports the aggregated result.
//
// Handler flow:
//  1. Classify the raw event. A candidate that claims the event but cannot
//     decode it rejects the invocation with 400.
//  2. Render the notification. Messages that never notify answer 200/skipped.
//     Any other rendering failure escalates the raw payload to every channel's
//     system routes and answers 500.
//  3. Plan one delivery per (channel, destination). Tags a channel does not
//     know are escalated to that channel's system routes.
//  4. Fan out all deliveries concurrently and join.
//  5. Aggregate: 200 when every send succeeded, 502 otherwise, plus one summary
//     escalation listing every failed send.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"alertsystem/internal/messages"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

// UnhandledHeader is the header of the notification sent when a classified
// message cannot be rendered.
const UnhandledHeader = "Unhandled message in alert_system"

// Escalation reasons reported to DeliveryMetrics.
const (
	ReasonUnknownTag      = "unknown_tag"
	ReasonGenerationError = "generation_error"
	ReasonDeliveryFailure = "delivery_failure"
)

// Classifier turns a raw event into a Message. *messages.Factory implements it.
type Classifier interface {
	GenerateMessage(raw types.RawEvent) (messages.Message, error)
}

// Options tune the fan-out.
type Options struct {
	// SendTimeout bounds each individual send. Zero leaves only the
	// invocation deadline.
	SendTimeout time.Duration
	// MaxConcurrency bounds in-flight sends. Zero means unbounded.
	MaxConcurrency int
}

// Dispatcher is safe for concurrent use. All per-invocation state lives on
// the stack of Handle.
type Dispatcher struct {
	classifier Classifier
	channels   []core.Channel
	metrics    core.DeliveryMetrics
	logger     types.Logger
	clock      types.Clock
	opts       Options
	newID      func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithMetrics(m core.DeliveryMetrics) Option { return func(d *Dispatcher) { d.metrics = m } }
func WithLogger(l types.Logger) Option          { return func(d *Dispatcher) { d.logger = l } }
func WithClock(c types.Clock) Option            { return func(d *Dispatcher) { d.clock = c } }
func WithOptions(o Options) Option              { return func(d *Dispatcher) { d.opts = o } }

// WithIDGenerator replaces the invocation id source. Tests use it for stable ids.
func WithIDGenerator(fn func() string) Option { return func(d *Dispatcher) { d.newID = fn } }

// New builds a Dispatcher over channels in their configured order.
func New(classifier Classifier, channels []core.Channel, opts ...Option) (*Dispatcher, error) {
	if classifier == nil {
		return nil, errors.New("dispatch: classifier is required")
	}
	if len(channels) == 0 {
		return nil, errors.New("dispatch: at least one channel is required")
	}
	d := &Dispatcher{
		classifier: classifier,
		channels:   channels,
		metrics:    core.NopMetrics{},
		logger:     types.NopLogger{},
		clock:      types.RealClock{},
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.opts.MaxConcurrency < 0 {
		return nil, fmt.Errorf("dispatch: max concurrency must not be negative, got %d", d.opts.MaxConcurrency)
	}
	return d, nil
}

// delivery is one planned send.
type delivery struct {
	channel        core.Channel
	destination    string
	notification   types.Notification
	tags           []string
	selfMonitoring bool
}

// Handle processes one invocation. It never returns an error: every failure
// is expressed in the Response.
func (d *Dispatcher) Handle(ctx context.Context, raw types.RawEvent) Response {
	start := d.clock.Now()

	invocationID := types.GetInvocationID(ctx)
	if invocationID == "" {
		invocationID = d.newID()
		ctx = types.WithInvocationID(ctx, invocationID)
	}
	logger := d.logger.With("invocation_id", invocationID)

	msg, err := d.classifier.GenerateMessage(raw)
	if err != nil {
		var decodeErr *messages.DecodeError
		if errors.As(err, &decodeErr) {
			logger.Warn("event rejected", "candidate", decodeErr.Candidate, "error", err.Error())
			return newResponse(http.StatusBadRequest, ResultBody{
				InvocationID: invocationID,
				Status:       StatusRejected,
				Info:         fmt.Sprintf("event claimed by %s but could not be decoded", decodeErr.Candidate),
				Error:        decodeErr.AppError(),
			})
		}
		logger.Error("classification failed", "error", err.Error())
		return newResponse(http.StatusInternalServerError, ResultBody{
			InvocationID: invocationID,
			Status:       StatusError,
			Error:        types.NewAppError(types.ErrCodeInternalUnexpected, err.Error(), err),
		})
	}

	kind := string(msg.Kind())
	logger = logger.With("message_kind", kind)
	ctx = types.WithLogger(ctx, logger)
	d.metrics.RecordClassified(ctx, kind)

	n, err := msg.GenerateNotification()
	switch {
	case errors.Is(err, messages.ErrUnsupportedGeneration):
		logger.Info("message does not produce notifications")
		return newResponse(http.StatusOK, ResultBody{
			InvocationID: invocationID,
			MessageKind:  kind,
			Status:       StatusSkipped,
			Info:         err.Error(),
		})
	case err != nil:
		return d.handleGenerationFailure(ctx, logger, invocationID, msg, err)
	}

	plan := d.plan(logger, n)
	outcomes := d.fanOut(ctx, plan)
	if hasSelfMonitoring(outcomes) {
		d.metrics.RecordEscalation(ctx, ReasonUnknownTag)
	}

	status, code := statusFor(outcomes)
	body := ResultBody{
		InvocationID: invocationID,
		MessageKind:  kind,
		Status:       status,
		Outcomes:     outcomes,
	}

	if failures := deliveryFailures(outcomes); len(failures) > 0 {
		body.Escalation = d.escalateFailures(ctx, logger, n, failures)
		body.Info = fmt.Sprintf("%d of %d deliveries failed", countFailed(outcomes), len(outcomes))
	}
	d.metrics.RecordOutcomes(ctx, append(append([]types.DeliveryOutcome(nil), outcomes...), body.Escalation...))

	logger.Info("invocation complete",
		"status", string(status),
		"deliveries", len(outcomes),
		"duration_ms", d.clock.Now().Sub(start).Milliseconds(),
	)
	return newResponse(code, body)
}

func (d *Dispatcher) handleGenerationFailure(ctx context.Context, logger types.Logger, invocationID string, msg messages.Message, genErr error) Response {
	logger.Error("notification generation failed", "error", genErr.Error())

	payload, err := json.Marshal(msg.Raw())
	text := string(payload)
	if err != nil {
		text = fmt.Sprintf("could not encode payload: %v", err)
	}
	n := types.NewNotification(
		UnhandledHeader,
		fmt.Sprintf("message kind: %s\nerror: %v\n\n%s", msg.Kind(), genErr, text),
		types.SeverityCritical,
		nil,
	)

	var plan []delivery
	for _, ch := range d.channels {
		plan = append(plan, systemDeliveries(ch, n, nil)...)
	}
	escalation := d.fanOut(ctx, plan)
	d.metrics.RecordOutcomes(ctx, escalation)
	d.metrics.RecordEscalation(ctx, ReasonGenerationError)

	return newResponse(http.StatusInternalServerError, ResultBody{
		InvocationID: invocationID,
		MessageKind:  string(msg.Kind()),
		Status:       StatusError,
		Info:         "notification generation failed; payload escalated to system routes",
		Error:        types.NewAppError(types.ErrCodeInternalUnexpected, genErr.Error(), genErr),
		Escalation:   escalation,
	})
}

// plan resolves every tag on every channel. Destinations are deduplicated per
// channel; a destination reached through several tags is sent once and the
// outcome lists all of them. Unresolvable tags become one escalation per
// channel, sent to its system routes.
func (d *Dispatcher) plan(logger types.Logger, n types.Notification) []delivery {
	var plan []delivery
	for _, ch := range d.channels {
		index := make(map[string]int)
		var unknown []string
		for _, tag := range n.Tags() {
			dests, err := ch.ResolveDestinations(tag)
			if err != nil {
				if !errors.Is(err, core.ErrUnknownTag) {
					logger.Warn("route resolution failed", "channel", ch.Name(), "tag", tag, "error", err.Error())
				}
				unknown = append(unknown, tag)
				continue
			}
			for _, dest := range dests {
				if i, ok := index[dest]; ok {
					plan[i].tags = append(plan[i].tags, tag)
					continue
				}
				index[dest] = len(plan)
				plan = append(plan, delivery{
					channel:      ch,
					destination:  dest,
					notification: n,
					tags:         []string{tag},
				})
			}
		}
		if len(unknown) > 0 {
			logger.Warn("unknown routing tags", "channel", ch.Name(), "tags", unknown)
			plan = append(plan, systemDeliveries(ch, unknownTagNotification(ch.Name(), unknown, n), unknown)...)
		}
	}
	return plan
}

// PlannedDelivery describes one send Handle would make for a notification.
type PlannedDelivery struct {
	Channel        string   `json:"channel"`
	ChannelType    string   `json:"channel_type"`
	Destination    string   `json:"destination"`
	Tags           []string `json:"tags,omitempty"`
	SelfMonitoring bool     `json:"self_monitoring,omitempty"`
	Header         string   `json:"header"`
}

// Plan resolves routing for n without sending anything.
func (d *Dispatcher) Plan(n types.Notification) []PlannedDelivery {
	plan := d.plan(d.logger, n)
	out := make([]PlannedDelivery, len(plan))
	for i, p := range plan {
		out[i] = PlannedDelivery{
			Channel:        p.channel.Name(),
			ChannelType:    p.channel.Type(),
			Destination:    core.DisplayDestination(p.channel, p.destination),
			Tags:           p.tags,
			SelfMonitoring: p.selfMonitoring,
			Header:         p.notification.Header(),
		}
	}
	return out
}

func systemDeliveries(ch core.Channel, n types.Notification, tags []string) []delivery {
	routes := ch.SystemAlertsRoutes()
	out := make([]delivery, 0, len(routes))
	for _, dest := range routes {
		out = append(out, delivery{
			channel:        ch,
			destination:    dest,
			notification:   n,
			tags:           tags,
			selfMonitoring: true,
		})
	}
	return out
}

func unknownTagNotification(channel string, tags []string, original types.Notification) types.Notification {
	header := fmt.Sprintf("Unknown routing tag %s on channel %s", strings.Join(tags, ", "), channel)
	body := fmt.Sprintf("Channel %s has no route for tag(s): %s\n\nOriginal notification:\n%s\n\n%s",
		channel, strings.Join(tags, ", "), original.Title(), original.Body())

	var opts []types.NotificationOption
	if link, ok := original.Link(); ok {
		opts = append(opts, types.WithLink(link.URL, link.Text))
	}
	return types.NewNotification(header, body, types.SeverityCritical, nil, opts...)
}

// fanOut runs every planned send in its own goroutine. Each goroutine writes
// only its own slot, so the result order is the plan order.
func (d *Dispatcher) fanOut(ctx context.Context, plan []delivery) []types.DeliveryOutcome {
	outcomes := make([]types.DeliveryOutcome, len(plan))
	if len(plan) == 0 {
		return outcomes
	}

	var g errgroup.Group
	if d.opts.MaxConcurrency > 0 {
		g.SetLimit(d.opts.MaxConcurrency)
	}
	for i, p := range plan {
		g.Go(func() error {
			outcomes[i] = d.send(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, p delivery) (outcome types.DeliveryOutcome) {
	sendCtx := ctx
	if d.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.opts.SendTimeout)
		defer cancel()
	}

	start := d.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = types.Failed(p.channel.Name(), p.channel.Type(), p.destination,
				fmt.Errorf("channel panicked: %v", r), d.clock.Now().Sub(start))
		}
		if outcome.Channel == "" {
			outcome.Channel = p.channel.Name()
			outcome.ChannelType = p.channel.Type()
		}
		outcome.Destination = core.DisplayDestination(p.channel, p.destination)
		outcome.Tags = p.tags
		outcome.SelfMonitoring = p.selfMonitoring
	}()

	return p.channel.Send(sendCtx, p.notification, p.destination)
}

// escalateFailures sends the one summary of failed deliveries. It goes
// through the first channel without failed sends, or the first channel when
// every channel failed. Its own failures are only logged.
func (d *Dispatcher) escalateFailures(ctx context.Context, logger types.Logger, original types.Notification, failures []types.DeliveryOutcome) []types.DeliveryOutcome {
	failedChannels := make(map[string]bool, len(failures))
	for _, f := range failures {
		failedChannels[f.Channel] = true
	}
	via := d.channels[0]
	for _, ch := range d.channels {
		if !failedChannels[ch.Name()] {
			via = ch
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d deliveries failed for: %s\n", len(failures), original.Title())
	for _, f := range failures {
		fmt.Fprintf(&b, "\n- %s (%s) -> %s: %s", f.Channel, f.ChannelType, f.Destination, f.FailureReason)
	}
	n := types.NewNotification("Alert delivery failures in alert_system", b.String(), types.SeverityCritical, nil)

	escalation := d.fanOut(ctx, systemDeliveries(via, n, nil))
	d.metrics.RecordEscalation(ctx, ReasonDeliveryFailure)
	for _, o := range escalation {
		if !o.Succeeded() {
			logger.Error("failure escalation not delivered",
				"channel", o.Channel,
				"destination", o.Destination,
				"reason", o.FailureReason,
			)
		}
	}
	return escalation
}

// deliveryFailures returns failed sends of the notification itself. Failed
// self-monitoring sends are reported but not escalated again.
func deliveryFailures(outcomes []types.DeliveryOutcome) []types.DeliveryOutcome {
	var out []types.DeliveryOutcome
	for _, o := range outcomes {
		if !o.Succeeded() && !o.SelfMonitoring {
			out = append(out, o)
		}
	}
	return out
}

func countFailed(outcomes []types.DeliveryOutcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

func hasSelfMonitoring(outcomes []types.DeliveryOutcome) bool {
	for _, o := range outcomes {
		if o.SelfMonitoring {
			return true
		}
	}
	return false
}
