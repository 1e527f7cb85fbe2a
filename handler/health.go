package handler

import (
	"context"
	"encoding/json"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/internal/metrics"
)

// HealthStatus is one of the closed set a health snapshot reports.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "Healthy"
	StatusDegraded  HealthStatus = "Degraded"
	StatusUnhealthy HealthStatus = "Unhealthy"
)

// HealthSnapshot is the CHECK action's result payload.
type HealthSnapshot struct {
	Status HealthStatus  `json:"status"`
	DB     *HealthStatus `json:"db,omitempty"`
}

// Pinger is the connectivity probe capability the health handler depends
// on; store.Store[T] satisfies it already.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CannotConnectError is a sentinel a Pinger may return to signal a clean
// "cannot connect" outcome, distinct from an unexpected failure, so the
// health handler can report Degraded instead of Unhealthy.
type CannotConnectError struct{ Cause error }

func (e *CannotConnectError) Error() string { return "cannot connect: " + e.Cause.Error() }
func (e *CannotConnectError) Unwrap() error { return e.Cause }

// HealthHandler is the INFRA/"Health" handler. Its single action, CHECK,
// never propagates an error to the caller: every outcome, including a
// panic-worthy one, is folded into a snapshot.
type HealthHandler struct {
	pinger  Pinger
	metrics *metrics.Metrics
}

// NewHealthHandler binds a health handler to a connectivity probe. metrics
// may be nil.
func NewHealthHandler(pinger Pinger, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{pinger: pinger, metrics: m}
}

func (h *HealthHandler) Type() bus.Type   { return bus.TypeInfra }
func (h *HealthHandler) Resource() string { return "Health" }

func (h *HealthHandler) Handle(ctx context.Context, msg bus.BusMessage) (string, error) {
	if msg.UpperAction() != "CHECK" {
		return "", actionNotImplemented(msg.Action)
	}
	snapshot := h.check(ctx)
	h.metrics.SetHealth("health", string(snapshot.Status))
	if snapshot.DB != nil {
		h.metrics.SetHealth("db", string(*snapshot.DB))
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		// Marshaling a flat struct of two enums cannot fail; still,
		// never propagate — degrade to Unhealthy rather than error.
		unhealthy := StatusUnhealthy
		fallback, _ := json.Marshal(HealthSnapshot{Status: StatusUnhealthy, DB: &unhealthy})
		return string(fallback), nil
	}
	return string(raw), nil
}

func (h *HealthHandler) check(ctx context.Context) (snapshot HealthSnapshot) {
	defer func() {
		if recover() != nil {
			unhealthy := StatusUnhealthy
			snapshot = HealthSnapshot{Status: StatusUnhealthy, DB: &unhealthy}
		}
	}()

	err := h.pinger.Ping(ctx)
	if err == nil {
		healthy := StatusHealthy
		return HealthSnapshot{Status: StatusHealthy, DB: &healthy}
	}

	if _, ok := err.(*CannotConnectError); ok {
		degraded := StatusDegraded
		return HealthSnapshot{Status: StatusHealthy, DB: &degraded}
	}

	unhealthy := StatusUnhealthy
	return HealthSnapshot{Status: StatusUnhealthy, DB: &unhealthy}
}
