package loopstate

// Completion reports how the consuming loop ended. The owning scope
// cannot infer this: exhausting the sequence and abandoning it early
// both return control without an error, yet the first must erase the
// checkpoint and the second must persist it.
type Completion int

const (
	// Interrupted means the loop was abandoned early or an error
	// propagated out of it; remaining items are persisted. It is the
	// zero value so an unset status persists rather than losing data.
	Interrupted Completion = iota

	// Completed means the sequence was fully drained; the checkpoint
	// is erased.
	Completed
)

// String returns the status name.
func (c Completion) String() string {
	switch c {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}
