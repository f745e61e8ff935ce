// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package orchestrate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/pulseguard/pulseguard/internal/cache"
	"github.com/pulseguard/pulseguard/internal/detect"
	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/metrics"
	"github.com/pulseguard/pulseguard/internal/stream"
)

// Config holds incident handling tunables.
type Config struct {
	// Cooldown is how long a service is suppressed after a dispatch.
	Cooldown time.Duration

	// SweepInterval is the cadence of the cooldown-expiry sweep. The sweep
	// only refreshes state (and the state gauge); expiry is also checked
	// lazily on alert arrival, so no event ever depends on the sweep.
	SweepInterval time.Duration

	// DedupCapacity and DedupTTL bound the dispatched-alert LRU.
	DedupCapacity int
	DedupTTL      time.Duration

	// Dependencies maps service -> upstream service. Alerts for a service
	// whose upstream had an anomaly within DependencyWindow are suppressed
	// as downstream symptoms. Empty map disables the check.
	Dependencies     map[string]string
	DependencyWindow time.Duration
}

// DefaultConfig returns the tuning the pipeline ships with.
func DefaultConfig() Config {
	return Config{
		Cooldown:         60 * time.Second,
		SweepInterval:    5 * time.Second,
		DedupCapacity:    10000,
		DedupTTL:         10 * time.Minute,
		Dependencies:     map[string]string{},
		DependencyWindow: 5 * time.Second,
	}
}

// incident is one service's orchestration shard. All fields are guarded
// by mu: the check-then-transition sequence runs entirely inside the lock,
// so at most one dispatch can win even under concurrent alert arrival.
type incident struct {
	mu               sync.Mutex
	state            IncidentState
	cooldownSeverity detect.Severity
	cooldownUntil    time.Time
	lastAnomaly      time.Time
}

// ActionPublisher appends action records to the action stream.
type ActionPublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// Orchestrator consumes the alert stream and drives the incident state
// machine. It is the sole owner of ServiceIncidentState.
type Orchestrator struct {
	cfg      Config
	rulebook *Rulebook
	executor Executor

	subscriber *stream.Subscriber
	publisher  ActionPublisher

	// dispatched maps alert IDs to action IDs for idempotency under
	// duplicate alert delivery.
	dispatched *cache.LRU

	mu        sync.RWMutex
	incidents map[string]*incident

	now    func() time.Time
	logger zerolog.Logger
}

// New creates an orchestrator. A non-positive sweep interval falls back
// to the default; time.NewTicker panics on zero.
func New(cfg Config, rulebook *Rulebook, executor Executor, sub *stream.Subscriber, pub ActionPublisher) *Orchestrator {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Orchestrator{
		cfg:        cfg,
		rulebook:   rulebook,
		executor:   executor,
		subscriber: sub,
		publisher:  pub,
		dispatched: cache.NewLRU(cfg.DedupCapacity, cfg.DedupTTL),
		incidents:  make(map[string]*incident),
		now:        time.Now,
		logger:     logging.With().Str("component", "orchestrator").Logger(),
	}
}

// Serve consumes alerts until context cancellation, implementing the
// suture service contract.
func (o *Orchestrator) Serve(ctx context.Context) error {
	o.logger.Info().Int("rules", o.rulebook.Len()).Msg("orchestrator started")

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go o.sweepLoop(sweepCtx)

	err := o.subscriber.NewHandler(stream.AlertSubjectPrefix + ".>").
		Handle(o.handleMessage).
		Run(ctx)

	o.logger.Info().Msg("orchestrator stopped")
	return err
}

// handleMessage processes one alert record end to end: decide, publish
// the DISPATCHED record, commit the dispatch, execute, publish the
// terminal record. The dedup entry and the Cooldown transition commit
// only after the DISPATCHED record reached the stream; a publish failure
// rolls the incident back so the redelivered alert dispatches again
// instead of vanishing as a duplicate.
func (o *Orchestrator) handleMessage(ctx context.Context, msg *message.Message) error {
	alert, err := detect.UnmarshalAlert(msg.Payload)
	if err != nil {
		metrics.MalformedRecords.Inc()
		o.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("skipping malformed alert record")
		return nil
	}

	// An existing dedup entry means the action already ran. It may still
	// owe the stream its terminal record from a failed publish.
	if rec, ok := o.dispatched.Get(alert.AlertID); ok {
		return o.finishDuplicate(ctx, alert, rec)
	}

	pd, ok := o.beginDispatch(alert)
	if !ok {
		return nil
	}

	if err := o.publishAction(ctx, pd.action); err != nil {
		o.rollbackDispatch(pd)
		return err
	}
	o.commitDispatch(pd)

	result := o.executor.Execute(ctx, pd.action)

	action := pd.action
	completed := o.now()
	action.CompletedAt = &completed
	if result.Success {
		action.Status = StatusSucceeded
	} else {
		action.Status = StatusFailed
	}
	action.Reason = result.Detail
	metrics.ActionResults.WithLabelValues(string(action.Status)).Inc()

	if !result.Success {
		// Recorded and surfaced on the action stream; no automatic retry.
		o.logger.Error().
			Str("action_id", action.ActionID).
			Str("service", action.ServiceID).
			Str("detail", result.Detail).
			Msg("healing action failed")
	}

	data, err := MarshalAction(action)
	if err != nil {
		return fmt.Errorf("marshal action %s: %w", action.ActionID, err)
	}

	// Stash the terminal record before publishing it: if the publish
	// fails and the alert redelivers, finishDuplicate re-appends the
	// record without running the executor a second time.
	o.dispatched.Add(alert.AlertID, string(data))
	if err := o.publishRecord(ctx, action, data); err != nil {
		return err
	}
	o.dispatched.Add(alert.AlertID, action.ActionID)
	return nil
}

// finishDuplicate handles an alert whose action already exists. The
// dedup value is either the bare action ID (nothing owed) or the
// serialized terminal record still awaiting its append.
func (o *Orchestrator) finishDuplicate(ctx context.Context, alert *detect.Alert, rec string) error {
	if !strings.HasPrefix(rec, "{") {
		o.suppress(alert, "duplicate")
		return nil
	}

	action, err := UnmarshalAction([]byte(rec))
	if err != nil {
		o.suppress(alert, "duplicate")
		return nil
	}

	if err := o.publishRecord(ctx, action, []byte(rec)); err != nil {
		return err
	}
	o.dispatched.Add(alert.AlertID, action.ActionID)
	o.logger.Info().
		Str("action_id", action.ActionID).
		Str("alert_id", alert.AlertID).
		Msg("re-appended pending terminal action record")
	return nil
}

// Handle runs the state machine for one alert and commits immediately.
// It returns the dispatched action and true, or (nil, false) when the
// alert is suppressed. The returned action has status DISPATCHED; the
// caller owns execution and the terminal status. The consumer loop uses
// the two-phase begin/commit path instead so the dispatch can roll back
// when the DISPATCHED record fails to publish.
func (o *Orchestrator) Handle(alert *detect.Alert) (*Action, bool) {
	pd, ok := o.beginDispatch(alert)
	if !ok {
		return nil, false
	}
	o.commitDispatch(pd)
	return pd.action, true
}

// pendingDispatch is a dispatch decision awaiting commit. Until commit
// the incident holds StateAlerting, so concurrent alerts for the same
// service are suppressed rather than racing the in-flight publish.
type pendingDispatch struct {
	alert  *detect.Alert
	action *Action
	inc    *incident

	// Pre-dispatch snapshot for rollback.
	prevState    IncidentState
	prevSeverity detect.Severity
	prevUntil    time.Time
}

// beginDispatch runs the suppression checks and, when the alert should
// dispatch, moves the incident to Alerting and returns the pending
// dispatch. The caller must follow with commitDispatch or
// rollbackDispatch.
func (o *Orchestrator) beginDispatch(alert *detect.Alert) (*pendingDispatch, bool) {
	// Idempotency: a redelivered alert whose action already exists must
	// never produce a second one, whatever state the machine is in now.
	if o.dispatched.Contains(alert.AlertID) {
		o.suppress(alert, "duplicate")
		return nil, false
	}

	o.recordAnomaly(alert.ServiceID)

	if o.isDownstreamSymptom(alert.ServiceID) {
		o.suppress(alert, "dependency")
		return nil, false
	}

	inc := o.incident(alert.ServiceID)
	inc.mu.Lock()
	defer inc.mu.Unlock()

	now := o.now()

	// Lazy cooldown expiry: the suppression interval is measured from the
	// last dispatch, checked on arrival.
	if inc.state == StateCooldown && !now.Before(inc.cooldownUntil) {
		inc.state = StateHealthy
	}

	switch inc.state {
	case StateAlerting:
		// Another alert for the same incident is mid-dispatch.
		o.suppress(alert, "alerting")
		return nil, false

	case StateCooldown:
		if alert.Severity.Rank() <= inc.cooldownSeverity.Rank() {
			o.suppress(alert, "cooldown")
			return nil, false
		}
		// Escalation: strictly higher severity overrides suppression and
		// resets the cooldown timer.
		o.logger.Info().
			Str("service", alert.ServiceID).
			Str("severity", string(alert.Severity)).
			Str("over", string(inc.cooldownSeverity)).
			Msg("escalation overrides cooldown")

	case StateHealthy:
	}

	pd := &pendingDispatch{
		alert:        alert,
		inc:          inc,
		prevState:    inc.state,
		prevSeverity: inc.cooldownSeverity,
		prevUntil:    inc.cooldownUntil,
		action: &Action{
			ActionID:     NewActionID(alert.AlertID),
			AlertID:      alert.AlertID,
			ServiceID:    alert.ServiceID,
			ActionType:   o.rulebook.ActionFor(alert),
			Status:       StatusDispatched,
			DispatchedAt: now,
		},
	}

	inc.state = StateAlerting
	o.setStateGauge(alert.ServiceID, StateAlerting)
	return pd, true
}

// commitDispatch records the dedup entry and moves the incident from
// Alerting into Cooldown.
func (o *Orchestrator) commitDispatch(pd *pendingDispatch) {
	pd.inc.mu.Lock()
	defer pd.inc.mu.Unlock()

	o.dispatched.Add(pd.alert.AlertID, pd.action.ActionID)

	pd.inc.state = StateCooldown
	pd.inc.cooldownSeverity = pd.alert.Severity
	pd.inc.cooldownUntil = o.now().Add(o.cfg.Cooldown)
	o.setStateGauge(pd.alert.ServiceID, StateCooldown)

	metrics.ActionsDispatched.WithLabelValues(string(pd.action.ActionType)).Inc()
	o.logger.Info().
		Str("service", pd.alert.ServiceID).
		Str("action_id", pd.action.ActionID).
		Str("action_type", string(pd.action.ActionType)).
		Str("alert_id", pd.alert.AlertID).
		Msg("healing action dispatched")
}

// rollbackDispatch restores the pre-dispatch incident state. No dedup
// entry was written, so the redelivered alert goes through the full
// state machine again.
func (o *Orchestrator) rollbackDispatch(pd *pendingDispatch) {
	pd.inc.mu.Lock()
	defer pd.inc.mu.Unlock()

	pd.inc.state = pd.prevState
	pd.inc.cooldownSeverity = pd.prevSeverity
	pd.inc.cooldownUntil = pd.prevUntil
	o.setStateGauge(pd.alert.ServiceID, pd.prevState)

	o.logger.Warn().
		Str("service", pd.alert.ServiceID).
		Str("alert_id", pd.alert.AlertID).
		Msg("dispatch rolled back, awaiting redelivery")
}

// publishAction marshals and appends one action record to the action
// stream.
func (o *Orchestrator) publishAction(ctx context.Context, action *Action) error {
	data, err := MarshalAction(action)
	if err != nil {
		return fmt.Errorf("marshal action %s: %w", action.ActionID, err)
	}
	return o.publishRecord(ctx, action, data)
}

// publishRecord appends a pre-marshaled action record. The message ID
// combines action ID and status so the dispatch and terminal records
// both survive the stream's duplicate window, and a re-appended record
// dedups against the original attempt.
func (o *Orchestrator) publishRecord(ctx context.Context, action *Action, data []byte) error {
	msg := message.NewMessage(action.ActionID+":"+string(action.Status), data)
	msg.Metadata.Set("service_id", action.ServiceID)
	msg.Metadata.Set("status", string(action.Status))

	if err := o.publisher.Publish(ctx, stream.ActionSubject(action.ServiceID), msg); err != nil {
		return fmt.Errorf("publish action %s: %w", action.ActionID, err)
	}
	return nil
}

// recordAnomaly notes the arrival time of an anomaly for the dependency
// correlation check.
func (o *Orchestrator) recordAnomaly(serviceID string) {
	inc := o.incident(serviceID)
	inc.mu.Lock()
	inc.lastAnomaly = o.now()
	inc.mu.Unlock()
}

// isDownstreamSymptom reports whether the service's configured upstream
// dependency had an anomaly recently enough that this alert is likely a
// symptom rather than a root cause.
func (o *Orchestrator) isDownstreamSymptom(serviceID string) bool {
	upstream, ok := o.cfg.Dependencies[serviceID]
	if !ok {
		return false
	}

	inc := o.incident(upstream)
	inc.mu.Lock()
	last := inc.lastAnomaly
	inc.mu.Unlock()

	return !last.IsZero() && o.now().Sub(last) < o.cfg.DependencyWindow
}

// sweepLoop periodically expires finished cooldowns. Expiry emits no
// event; the sweep exists so the state gauge does not stay stale on a
// quiet service.
func (o *Orchestrator) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.expireCooldowns()
		}
	}
}

// expireCooldowns flips every expired Cooldown back to Healthy.
func (o *Orchestrator) expireCooldowns() {
	o.mu.RLock()
	services := make([]string, 0, len(o.incidents))
	for id := range o.incidents {
		services = append(services, id)
	}
	o.mu.RUnlock()

	now := o.now()
	for _, id := range services {
		inc := o.incident(id)
		inc.mu.Lock()
		if inc.state == StateCooldown && !now.Before(inc.cooldownUntil) {
			inc.state = StateHealthy
			o.setStateGauge(id, StateHealthy)
			o.logger.Debug().Str("service", id).Msg("cooldown expired")
		}
		inc.mu.Unlock()
	}
}

// State returns the current incident state for a service. Lazy expiry is
// applied so callers never observe a stale Cooldown.
func (o *Orchestrator) State(serviceID string) IncidentState {
	inc := o.incident(serviceID)
	inc.mu.Lock()
	defer inc.mu.Unlock()

	if inc.state == StateCooldown && !o.now().Before(inc.cooldownUntil) {
		inc.state = StateHealthy
	}
	return inc.state
}

// suppress counts and logs one suppressed alert.
func (o *Orchestrator) suppress(alert *detect.Alert, reason string) {
	metrics.AlertsSuppressed.WithLabelValues(reason).Inc()
	o.logger.Debug().
		Str("service", alert.ServiceID).
		Str("alert_id", alert.AlertID).
		Str("reason", reason).
		Msg("alert suppressed")
}

// incident returns the shard for a service, creating it on first sight.
func (o *Orchestrator) incident(serviceID string) *incident {
	o.mu.RLock()
	inc, ok := o.incidents[serviceID]
	o.mu.RUnlock()
	if ok {
		return inc
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if inc, ok = o.incidents[serviceID]; ok {
		return inc
	}
	inc = &incident{state: StateHealthy}
	o.incidents[serviceID] = inc
	return inc
}

// setStateGauge mirrors a state transition into the Prometheus gauge.
func (o *Orchestrator) setStateGauge(serviceID string, state IncidentState) {
	metrics.IncidentState.WithLabelValues(serviceID).Set(float64(state))
}
