package search

import "github.com/vanderheijden86/spacewalk/pkg/addrspace"

// Msg is the sealed type for everything the engine emits on its message
// channel. A run emits any number of ProgressMsg and ResultMsg values and
// then exactly one terminal message: CompleteMsg or CancelledMsg.
type Msg interface {
	isSearchMsg()
}

// Result is one match found by the walk.
type Result struct {
	Ref   addrspace.NodeRef
	Name  string
	Class addrspace.NodeClass
}

// ProgressMsg reports traversal progress, throttled to every
// Config.ProgressEvery dequeues.
type ProgressMsg struct {
	Visited int    // nodes seen so far
	Queued  int    // frontier still to browse
	Current string // label of the node being browsed
}

// ResultMsg reports one match as it is found. Ordinal is the 1-based match
// count at emit time. ResultMsg delivery is best effort under backpressure;
// the terminal CompleteMsg always carries the full result list.
type ResultMsg struct {
	Result  Result
	Ordinal int
}

// CompleteReason says why a run finished on its own.
type CompleteReason int

const (
	// ReasonExhausted means the scope was fully traversed.
	ReasonExhausted CompleteReason = iota
	// ReasonCapReached means the result cap stopped the walk.
	ReasonCapReached
	// ReasonDisconnected means the directory dropped mid-walk; the results
	// gathered up to that point are still delivered.
	ReasonDisconnected
)

func (r CompleteReason) String() string {
	switch r {
	case ReasonCapReached:
		return "cap_reached"
	case ReasonDisconnected:
		return "disconnected"
	default:
		return "exhausted"
	}
}

// CompleteMsg is the terminal message of a run that was not cancelled. It
// carries the authoritative result list.
type CompleteMsg struct {
	Results []Result
	Reason  CompleteReason
	Visited int
}

// CancelledMsg is the terminal message of a cancelled run. Results already
// delivered stay valid; no CompleteMsg follows.
type CancelledMsg struct{}

func (ProgressMsg) isSearchMsg()  {}
func (ResultMsg) isSearchMsg()    {}
func (CompleteMsg) isSearchMsg()  {}
func (CancelledMsg) isSearchMsg() {}
