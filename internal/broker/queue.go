package broker

import (
	"context"
	"sync/atomic"
)

// Queue is a FIFO of requests with many producers and exactly one consumer.
//
// Producers call Enqueue from any goroutine. Peek, Pop, Arrival and Admit
// belong to the consumer and must only be called from its goroutine. The
// consumer keeps the oldest request in a one-slot lookahead so it can be
// displayed repeatedly via Peek while the queue only advances on Pop.
type Queue struct {
	in   chan *Request
	head *Request

	// live counts enqueued requests that are neither popped nor abandoned.
	live atomic.Int64
}

// NewQueue creates a queue buffering up to capacity requests behind the
// lookahead slot. Enqueue blocks while the buffer is full.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{in: make(chan *Request, capacity)}
}

// Enqueue appends r to the tail. It only fails when ctx is cancelled while
// waiting for buffer space.
func (q *Queue) Enqueue(ctx context.Context, r *Request) error {
	q.track(r)
	select {
	case q.in <- r:
		return nil
	default:
	}
	select {
	case q.in <- r:
		return nil
	case <-ctx.Done():
		r.unwatch()
		q.release(r)
		return ctx.Err()
	}
}

// Peek returns the oldest live request without removing it, or nil.
// Requests whose connection has gone away are discarded on the way.
func (q *Queue) Peek() *Request {
	for {
		if q.head == nil && !q.probe() {
			return nil
		}
		if !q.head.Abandoned() {
			return q.head
		}
		q.head = nil
	}
}

// Pop returns what Peek would and advances the queue.
func (q *Queue) Pop() *Request {
	r := q.Peek()
	q.head = nil
	q.probe()
	if r != nil {
		r.unwatch()
		q.release(r)
	}
	return r
}

// Arrival returns the inbound channel while the lookahead slot is empty and
// nil otherwise, so a consumer can select on it without stealing order.
func (q *Queue) Arrival() <-chan *Request {
	if q.head != nil {
		return nil
	}
	return q.in
}

// Admit places a request received from Arrival into the lookahead slot.
func (q *Queue) Admit(r *Request) {
	if q.head != nil {
		panic("broker: Admit with occupied lookahead")
	}
	q.head = r
}

// Pending returns the number of requests still awaiting a decision, the
// lookahead included. Abandoned requests stop counting as soon as their
// connection gives up, even while they still sit in the buffer. Safe to call
// from any goroutine.
func (q *Queue) Pending() int {
	return int(q.live.Load())
}

// Len returns the number of requests held, including abandoned ones not yet
// discarded.
func (q *Queue) Len() int {
	n := len(q.in)
	if q.head != nil {
		n++
	}
	return n
}

// probe fills an empty lookahead slot without blocking.
func (q *Queue) probe() bool {
	if q.head != nil {
		return true
	}
	select {
	case r := <-q.in:
		q.head = r
		return true
	default:
		return false
	}
}

// track counts r as live until it is popped or its context ends.
func (q *Queue) track(r *Request) {
	q.live.Add(1)
	r.unwatch = context.AfterFunc(r.ctx, func() { q.release(r) })
}

// release stops counting r. Only the first call has an effect. It runs on
// the AfterFunc goroutine too, so it must not touch r.unwatch.
func (q *Queue) release(r *Request) {
	r.released.Do(func() { q.live.Add(-1) })
}
