package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller misuse: nil listeners, empty IDs or symbols.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFeedClosed is returned once the notification mechanism has been shut down.
	ErrFeedClosed = errors.New("feed closed")
)

// ListenerFailure describes one notification that failed inside a listener.
// It is logged and counted at the task boundary and is never returned to
// the caller of Update.
type ListenerFailure struct {
	Symbol     string
	ListenerID string
	Price      float64
	Panicked   bool
	Err        error
}

func (f *ListenerFailure) Error() string {
	if f.Panicked {
		return fmt.Sprintf("listener %s panicked on %s@%v: %v", f.ListenerID, f.Symbol, f.Price, f.Err)
	}
	return fmt.Sprintf("listener %s failed on %s@%v: %v", f.ListenerID, f.Symbol, f.Price, f.Err)
}

func (f *ListenerFailure) Unwrap() error { return f.Err }
