package agent

// State is the position of a run in the dispatch loop.
type State int

const (
	// StateAwaitingModel: waiting for the model to answer or request functions.
	StateAwaitingModel State = iota
	// StateExecuting: running the functions the model requested.
	StateExecuting
	// StateDone: the model produced a final answer.
	StateDone
	// StateFailed: the run was aborted (provider failure, cancellation, iteration limit).
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecuting:
		return "executing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }
