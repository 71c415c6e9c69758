package gate

import "context"

// Gate is a process-wide counting gate bounding simultaneous in-flight
// completion calls across every pipeline. A unit must be held for the
// duration of the network call.
type Gate struct {
	slots chan struct{}
}

// New builds a gate admitting at most capacity concurrent holders.
// A capacity below one is treated as one.
func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
		panic("gate: release without matching acquire")
	}
}

// Capacity reports the configured bound.
func (g *Gate) Capacity() int { return cap(g.slots) }
