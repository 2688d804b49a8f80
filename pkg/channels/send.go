// Package channels fans captured audio out to independent consumers without
// letting a slow consumer stall capture.
package channels

import (
	"errors"
	"time"
)

var (
	// ErrChannelClosed reports a send on a closed channel.
	ErrChannelClosed = errors.New("channel closed")
	// ErrChannelTimeout reports a receiver that did not accept in time.
	ErrChannelTimeout = errors.New("send timeout")
	// ErrChannelFull reports a receiver with no free buffer.
	ErrChannelFull = errors.New("channel full")
)

// SendNonBlock sends msg only if ch can accept it immediately.
func SendNonBlock[T any](ch chan<- T, msg T) error {
	return deliver(ch, msg, nil)
}

// SendWithTimeout waits up to timeout for ch to accept msg.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	return deliver(ch, msg, timer.C)
}

// deliver sends msg, giving up when expired fires. A nil expired means the
// send must not block at all. Sending on a closed channel is reported, not
// raised.
func deliver[T any](ch chan<- T, msg T, expired <-chan time.Time) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrChannelClosed
		}
	}()

	if expired == nil {
		select {
		case ch <- msg:
			return nil
		default:
			return ErrChannelFull
		}
	}

	select {
	case ch <- msg:
		return nil
	case <-expired:
		return ErrChannelTimeout
	}
}
