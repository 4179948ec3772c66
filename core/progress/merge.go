package progress

import "time"

// Merge strategies decide the content of a field when two writers may both want to win.

type number interface {
	~int | ~int64 | ~float64
}

// Max keeps the larger value so an achievement (eg: best score) never regresses.
func Max[T number](current, pending T) T {
	if pending > current {
		return pending
	}
	return current
}

// Latest keeps the value with the later timestamp; ties keep `current`.
func Latest[T any](current, pending T, currentAt, pendingAt time.Time) T {
	if pendingAt.After(currentAt) {
		return pending
	}
	return current
}

// Sum accumulates counters. `delta` must be an increment, not an absolute count.
func Sum[T number](current, delta T) T {
	return current + delta
}

// Or keeps monotonic "ever achieved" flags set.
func Or(current, pending bool) bool {
	return current || pending
}

// MergeProgressUpdates returns `pending` with BestScore merged by Max and Passed/Completed merged by Or,
// for the fields both sides define. Every other field comes from `pending` as is.
func MergeProgressUpdates(current, pending Patch) Patch {
	merged := pending
	if current.BestScore != nil && pending.BestScore != nil {
		score := Max(*current.BestScore, *pending.BestScore)
		merged.BestScore = &score
	}
	if current.Passed != nil && pending.Passed != nil {
		passed := Or(*current.Passed, *pending.Passed)
		merged.Passed = &passed
	}
	if current.Completed != nil && pending.Completed != nil {
		completed := Or(*current.Completed, *pending.Completed)
		merged.Completed = &completed
	}
	return merged
}
