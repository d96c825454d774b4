package constants

// JobStatus is the canonical status stored in a job descriptor.
type JobStatus string

// Stable values (store these exact strings in descriptors).
const (
	JobStatusPending JobStatus = "pending" // created on submission, waiting for a sweep
	JobStatusDone    JobStatus = "done"    // synthesis succeeded, result file written
	JobStatusError   JobStatus = "error"   // terminal failure
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusDone, JobStatusError:
		return true
	}
	return false
}
