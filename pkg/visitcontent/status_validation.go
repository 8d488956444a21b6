package visitcontent

import "fmt"

// canApprove checks if an event may move to published.
// Returns true if approval is allowed, false with an error otherwise.
func canApprove(status EventStatus) (bool, error) {
	switch status {
	case EventStatusPending:
		return true, nil
	case EventStatusPublished:
		return false, fmt.Errorf("%w: event is already published (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidStatus, status)
	}
}

// canEdit checks if an event's content fields may be changed. Published
// events stay editable so operators can correct details after release.
func canEdit(status EventStatus) (bool, error) {
	switch status {
	case EventStatusPending, EventStatusPublished:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidStatus, status)
	}
}

// canTransition reports whether from -> to is a legal move.
func canTransition(from, to EventStatus) (bool, error) {
	if !to.IsValid() {
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidStatus, to)
	}
	if from == to {
		return false, fmt.Errorf("%w: event is already %s", ErrInvalidTransition, from)
	}
	if to == EventStatusPending {
		return false, fmt.Errorf("%w: published events cannot return to pending", ErrInvalidTransition)
	}
	return canApprove(from)
}
