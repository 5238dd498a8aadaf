package profiling

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ordodb/ordo/internal/wire"
)

// opcodeCounters accumulates a count and total latency per opcode between
// aggregator ticks, then resets on drain. This is the plain counter the
// CSV aggregator drains every second; the Prometheus histogram registered
// alongside it is the durable, queryable record of the same observations.
type opcodeCounters struct {
	mu    sync.Mutex
	count map[wire.MessageType]uint64
	total map[wire.MessageType]time.Duration
}

func newOpcodeCounters() *opcodeCounters {
	return &opcodeCounters{
		count: make(map[wire.MessageType]uint64),
		total: make(map[wire.MessageType]time.Duration),
	}
}

func (c *opcodeCounters) add(messageType wire.MessageType, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count[messageType]++
	c.total[messageType] += elapsed
}

// drainTo writes one CSV row per opcode with a non-zero count since the
// last drain, then resets every counter to zero.
func (c *opcodeCounters) drainTo(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().Unix()
	for messageType, n := range c.count {
		if n == 0 {
			continue
		}
		avg := c.total[messageType] / time.Duration(n)
		fmt.Fprintf(w, "%d,%s,%d,%d\n", now, messageType.String(), n, avg.Nanoseconds())
	}
	c.count = make(map[wire.MessageType]uint64)
	c.total = make(map[wire.MessageType]time.Duration)
}
