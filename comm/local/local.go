// Package local - In-process communicator groups for tests and single-host
// multi-worker runs.
package local

import "github.com/pkg/errors"

// group owns the channels backing one communicator group. Per-rank
// unbuffered channels give both collectives their blocking semantics: a
// sender does not proceed until its counterpart has taken the value.
type group struct {
	size   int
	bcast  []chan interface{}
	gather []chan interface{}
}

// Comm is one rank's endpoint in a local group. Values cross rank boundaries
// by reference, so participants must treat received objects as read-only.
type Comm struct {
	rank int
	g    *group
}

// NewGroup creates a communicator group of the given size and returns one
// endpoint per rank, indexed by rank.
func NewGroup(size int) ([]*Comm, error) {
	if size < 1 {
		return nil, errors.Errorf("group size %d must be at least 1", size)
	}
	g := &group{
		size:   size,
		bcast:  make([]chan interface{}, size),
		gather: make([]chan interface{}, size),
	}
	comms := make([]*Comm, size)
	for r := 0; r < size; r++ {
		g.bcast[r] = make(chan interface{})
		g.gather[r] = make(chan interface{})
		comms[r] = &Comm{rank: r, g: g}
	}
	return comms, nil
}

// Rank implements comm.Communicator.
func (c *Comm) Rank() int { return c.rank }

// Size implements comm.Communicator.
func (c *Comm) Size() int { return c.g.size }

// Broadcast implements comm.Communicator. The root hands its value to each
// rank in turn; channels are FIFO per rank, so back-to-back broadcasts
// cannot cross.
func (c *Comm) Broadcast(obj interface{}) (interface{}, error) {
	if c.g.size == 1 {
		return obj, nil
	}
	if c.rank == 0 {
		for r := 1; r < c.g.size; r++ {
			c.g.bcast[r] <- obj
		}
		return obj, nil
	}
	return <-c.g.bcast[c.rank], nil
}

// Gather implements comm.Communicator. The root drains one value per rank
// into a rank-indexed slice; non-root ranks block until the root has taken
// their value, which is what makes a completed gather a barrier.
func (c *Comm) Gather(obj interface{}) ([]interface{}, error) {
	if c.g.size == 1 {
		return []interface{}{obj}, nil
	}
	if c.rank != 0 {
		c.g.gather[c.rank] <- obj
		return nil, nil
	}
	out := make([]interface{}, c.g.size)
	out[0] = obj
	for r := 1; r < c.g.size; r++ {
		out[r] = <-c.g.gather[r]
	}
	return out, nil
}
