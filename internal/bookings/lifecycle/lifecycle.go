// Package lifecycle holds the booking state machine and the car status each
// booking state implies.
package lifecycle

import (
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"fmt"
	"slices"
)

var transitions = map[string][]string{
	config.Pending:  {config.Approved, config.Rejected, config.Cancelled},
	config.Approved: {config.Active, config.Cancelled},
	config.Active:   {config.Completed, config.Cancelled},
}

func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// Transition returns InvalidState when from cannot move to to.
func Transition(from, to string) error {
	if CanTransition(from, to) {
		return nil
	}
	return apperrors.InvalidState(
		fmt.Sprintf("Cannot change booking status from %s to %s", from, to),
		from, to,
	)
}

func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// Blocking reports whether a booking in status holds the car's calendar.
func Blocking(status string) bool {
	return slices.Contains(config.BlockingBookingStatuses, status)
}

// CarStatusFor returns the car status a booking entering status implies, and
// false when the car is left alone.
func CarStatusFor(status string) (string, bool) {
	switch status {
	case config.Approved, config.Active:
		return config.CarRented, true
	case config.Completed, config.Cancelled, config.Rejected:
		return config.CarAvailable, true
	}
	return "", false
}

// CheckCancel rejects cancelling a booking that already reached an end state.
func CheckCancel(id, status string) error {
	switch status {
	case config.Cancelled:
		return apperrors.AlreadyCancelled("Booking", id)
	case config.Completed, config.Rejected:
		return apperrors.InvalidState(
			fmt.Sprintf("Cannot cancel a %s booking", status),
			status, config.Cancelled,
		)
	}
	return nil
}
