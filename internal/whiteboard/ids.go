package whiteboard

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// idGenerator produces globally unique, durable element ids of the form
// draw-<peer>-<n>, pairing a random per-session peer component with a
// monotonic counter so two peers never collide without needing to
// coordinate.
type idGenerator struct {
	peer    string
	counter uint64
}

func newIDGenerator() *idGenerator {
	return &idGenerator{peer: uuid.NewString()}
}

func (g *idGenerator) next() string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("draw-%s-%d", g.peer, n)
}
