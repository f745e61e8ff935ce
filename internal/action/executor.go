// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package action holds the executor implementations behind the
// orchestrator's effect boundary. The real mechanics of restarting or
// scaling a service live outside this system; what ships here is the
// mock used in development and testing.
package action

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/orchestrate"
)

// MockExecutor logs the action and reports success. It stands in for the
// platform integration (orchestration API, autoscaler, cache admin) that
// a deployment would plug in behind orchestrate.Executor.
type MockExecutor struct {
	logger zerolog.Logger
}

// NewMockExecutor creates the logging mock.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		logger: logging.With().Str("component", "executor").Logger(),
	}
}

// Execute logs the effect and succeeds. NOTIFY_ONLY is a pure log line by
// contract; the other action types would carry real side effects in a
// non-mock implementation.
func (e *MockExecutor) Execute(ctx context.Context, a *orchestrate.Action) orchestrate.Result {
	e.logger.Info().
		Str("action_id", a.ActionID).
		Str("service", a.ServiceID).
		Str("action_type", string(a.ActionType)).
		Msg("executing healing action")

	return orchestrate.Result{
		Success: true,
		Detail:  fmt.Sprintf("%s executed for %s (mock)", a.ActionType, a.ServiceID),
	}
}

var _ orchestrate.Executor = (*MockExecutor)(nil)
