package dataflow

import (
	"sync/atomic"
	"time"

	"github.com/lumendb/datalogx/datalog/errors"
)

// CancelHandle is a cooperative, thread-safe cancellation flag that an
// Engine hands to one in-flight Eval call so a caller on another
// goroutine can abort long-running evaluation, checked between
// operator steps. It is deliberately not a context.Context: the
// generator only ever needs the single boolean signal, and a plain
// atomic flag is the same cooperative-check idiom worker-pool jobs use
// between batches.
type CancelHandle struct {
	flag atomic.Bool
}

// NewCancelHandle returns a handle that has not been cancelled.
func NewCancelHandle() *CancelHandle { return &CancelHandle{} }

// Cancel marks the handle as cancelled. Idempotent.
func (h *CancelHandle) Cancel() { h.flag.Store(true) }

// Cancelled reports whether Cancel has been called.
func (h *CancelHandle) Cancelled() bool { return h.flag.Load() }

// Budget bounds one Eval call's wall-clock execution and cooperative
// cancellation together, checked between operator steps and between
// semi-naive rounds. Zero value is an unbounded, uncancellable budget.
type Budget struct {
	deadline time.Time
	cancel   *CancelHandle
}

// NewBudget builds a Budget with the given timeout (0 disables the
// deadline) and an optional cancel handle (nil disables cancellation).
func NewBudget(timeout time.Duration, cancel *CancelHandle) Budget {
	b := Budget{cancel: cancel}
	if timeout > 0 {
		b.deadline = time.Now().Add(timeout)
	}
	return b
}

// DefaultQueryBudget is the default per-query timeout.
const DefaultQueryBudget = 30 * time.Second

// DefaultSessionBudget is the default whole-session timeout, used by
// callers that bound a long-lived recursive evaluation rather than a
// single query.
const DefaultSessionBudget = 5 * time.Minute

// Check returns a *errors.Error wrapping errors.Timeout or
// errors.Cancelled the first time either condition is observed, else
// nil. The generator calls this between operator evaluations so a
// deeply recursive fixpoint or a large join notices promptly rather
// than only after completing.
func (b Budget) Check() error {
	if b.cancel != nil && b.cancel.Cancelled() {
		return errors.CancelledErr
	}
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		return errors.TimeoutErr
	}
	return nil
}
