// File: internal/concurrency/overflow.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Push-when-full policies for BatchBuffer.

package concurrency

import (
	"fmt"
	"strings"

	"github.com/eapache/queue"

	"github.com/momentics/batchsync/api"
)

// OverflowPolicy decides what Push does when the buffer already holds a full
// batch the consumer has not drained yet.
type OverflowPolicy int

const (
	// OverflowReject returns api.ErrBufferFull to the producer.
	OverflowReject OverflowPolicy = iota
	// OverflowBlock parks the producer until the consumer drains.
	OverflowBlock
	// OverflowDrop discards the value and counts it.
	OverflowDrop
	// OverflowSpill parks the value in an unbounded FIFO backlog that is
	// moved into the buffer after each drain.
	OverflowSpill
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowReject:
		return "reject"
	case OverflowBlock:
		return "block"
	case OverflowDrop:
		return "drop"
	case OverflowSpill:
		return "spill"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy maps a policy name to its value. The empty string
// selects OverflowReject.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return OverflowReject, nil
	case "block":
		return OverflowBlock, nil
	case "drop":
		return OverflowDrop, nil
	case "spill":
		return OverflowSpill, nil
	}
	return OverflowReject, fmt.Errorf("%w: unknown overflow policy %q", api.ErrInvalidArgument, s)
}

// backlog is the spill queue. Not thread-safe; guarded by BatchBuffer.mu.
type backlog struct {
	q *queue.Queue
}

func newBacklog() *backlog {
	return &backlog{q: queue.New()}
}

func (b *backlog) push(v int64) {
	b.q.Add(v)
}

func (b *backlog) pop() (int64, bool) {
	if b == nil || b.q.Length() == 0 {
		return 0, false
	}
	return b.q.Remove().(int64), true
}

func (b *backlog) len() int {
	if b == nil {
		return 0
	}
	return b.q.Length()
}
