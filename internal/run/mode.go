// Package run defines the execution mode threaded through bucket operations.
package run

// Mode selects between planning and executing an operation.
// Plan performs no network or process side effects; every mutating step
// logs what it would do and returns.
type Mode int

const (
	// Plan reports intended actions without performing mutating I/O.
	Plan Mode = iota
	// Execute performs the real operations.
	Execute
)

// Dry returns true when the mode performs no side effects.
func (m Mode) Dry() bool {
	return m == Plan
}

func (m Mode) String() string {
	if m == Plan {
		return "plan"
	}
	return "execute"
}

// FromExecute converts the CLI-level --execute flag into a Mode.
func FromExecute(execute bool) Mode {
	if execute {
		return Execute
	}
	return Plan
}
