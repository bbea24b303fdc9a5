package engine

import (
	"errors"
	"sync/atomic"
)

var ErrChannelDisconnected = errors.New("control channel disconnected")

// Command mutates the engine on the audio thread.
type Command func(e *SoundEngine)

type node struct {
	next atomic.Pointer[node]
	cmd  Command
}

// queue is an unbounded intrusive linked queue: producers swap the head,
// the single consumer follows next pointers from the tail. Enqueue never
// blocks and dequeue never allocates.
type queue struct {
	head   atomic.Pointer[node]
	tail   *node
	closed atomic.Bool
}

// Sender is the control thread's end of a ControlChannel.
type Sender struct {
	q *queue
}

// Receiver is the audio thread's end.
type Receiver struct {
	q *queue
}

// NewControlChannel returns both ends of a command queue.
func NewControlChannel() (*Sender, *Receiver) {
	stub := &node{}
	q := &queue{tail: stub}
	q.head.Store(stub)
	return &Sender{q: q}, &Receiver{q: q}
}

// Send enqueues cmd. It fails only once the sender was closed.
func (s *Sender) Send(cmd Command) error {
	if s.q.closed.Load() {
		return ErrChannelDisconnected
	}
	n := &node{cmd: cmd}
	prev := s.q.head.Swap(n)
	prev.next.Store(n)
	return nil
}

// Close marks the channel disconnected. Commands already sent are still
// delivered.
func (s *Sender) Close() {
	s.q.closed.Store(true)
}

// Drain runs every command that is visible now, in send order, and returns
// how many ran. When the queue is empty and the sender is gone it reports
// ErrChannelDisconnected; the caller carries on without commands.
func (r *Receiver) Drain(e *SoundEngine) (int, error) {
	n := 0
	for {
		next := r.q.tail.next.Load()
		if next == nil {
			break
		}
		r.q.tail = next
		cmd := next.cmd
		next.cmd = nil
		cmd(e)
		n++
	}
	if n == 0 && r.q.closed.Load() {
		return 0, ErrChannelDisconnected
	}
	return n, nil
}
