package rpc

import "context"

// Empty is the response of methods that return nothing.
type Empty struct{}

// Mailbox hands values from a subscription callback to a stream loop.
// When full, the oldest pending value is dropped, so a slow client of a
// snapshot feed always gets the newest state.
type Mailbox[T any] struct {
	ch chan T
}

func NewMailbox[T any](size int) *Mailbox[T] {
	if size < 1 {
		size = 1
	}
	return &Mailbox[T]{ch: make(chan T, size)}
}

// Put never blocks. Callers must not Put concurrently.
func (m *Mailbox[T]) Put(v T) {
	for {
		select {
		case m.ch <- v:
			return
		default:
			select {
			case <-m.ch:
			default:
			}
		}
	}
}

// Forward sends every value put into m until ctx ends or send fails.
func (m *Mailbox[T]) Forward(ctx context.Context, send func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-m.ch:
			if err := send(v); err != nil {
				return err
			}
		}
	}
}
