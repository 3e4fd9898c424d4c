package controller

import (
	"log/slog"

	"github.com/smileynet/roster/internal/listview"
	"github.com/smileynet/roster/internal/session"
)

// EmptyPhase is the state of the empty-list affordance.
type EmptyPhase int

const (
	Populated           EmptyPhase = iota // Rows are shown; no affordance.
	EmptyNoAffordance                     // No rows, and the session's refetch is spent.
	EmptyWithAffordance                   // No rows; the refetch affordance is offered.
)

func (p EmptyPhase) String() string {
	switch p {
	case Populated:
		return "populated"
	case EmptyNoAffordance:
		return "empty"
	case EmptyWithAffordance:
		return "empty-with-affordance"
	default:
		return "unknown"
	}
}

// EmptyState offers a one-shot refetch when the observed list becomes empty.
//
// It observes list mutations passively. Once the affordance is offered the
// observer detaches itself; the next full render re-arms it. The session gate
// keeps the affordance from appearing again after it has been used.
type EmptyState struct {
	gate   *session.Gate
	phase  EmptyPhase
	cancel func()
	logger *slog.Logger
}

// NewEmptyState creates an EmptyState in the Populated phase.
func NewEmptyState(gate *session.Gate, logger *slog.Logger) *EmptyState {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EmptyState{gate: gate, logger: logger}
}

// Arm starts observing l, replacing any previous observation, and evaluates
// the list's current row count immediately.
func (e *EmptyState) Arm(l *listview.List) {
	e.disarm()
	e.cancel = l.Subscribe(func(m listview.Mutation) {
		e.evaluate(m.Count)
	})
	e.evaluate(l.Len())
}

// Armed reports whether the list is being observed.
func (e *EmptyState) Armed() bool {
	return e.cancel != nil
}

// Phase returns the current phase.
func (e *EmptyState) Phase() EmptyPhase {
	return e.phase
}

// Offered reports whether the refetch affordance is currently shown.
func (e *EmptyState) Offered() bool {
	return e.phase == EmptyWithAffordance
}

// Activate consumes the affordance. It returns true when the caller must
// start the fetch. With no affordance shown it does nothing. If the session
// flag was set elsewhere in the meantime, the affordance is withdrawn and
// session.ErrRefetchUsed is returned.
func (e *EmptyState) Activate() (bool, error) {
	if e.phase != EmptyWithAffordance {
		return false, nil
	}
	e.phase = EmptyNoAffordance
	if e.gate.IsUsed() {
		e.logger.Info("refetch already used this session")
		return false, session.ErrRefetchUsed
	}
	if err := e.gate.MarkUsed(); err != nil {
		e.logger.Error("marking refetch used failed", "error", err)
	}
	e.logger.Info("manual refetch requested")
	return true, nil
}

func (e *EmptyState) evaluate(count int) {
	switch {
	case count > 0:
		if e.phase == EmptyWithAffordance {
			e.logger.Debug("rows rendered, withdrawing refetch affordance")
		}
		e.phase = Populated
	case e.phase == EmptyWithAffordance:
		// Already offered.
	case e.gate.IsUsed():
		e.phase = EmptyNoAffordance
	default:
		e.phase = EmptyWithAffordance
		e.disarm()
		e.logger.Debug("list empty, offering refetch affordance")
	}
}

func (e *EmptyState) disarm() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
