package chip

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	charmlog "github.com/charmbracelet/log"
	"go.bug.st/serial"
)

const serialQueue = 1024

// SerialBus sends committed writes to a hardware chip behind a serial link,
// as 4-byte frames: address high, address low, mask, value. The receiving
// firmware does the read-modify-write.
//
// WriteRegister never blocks; a write that does not fit in the queue is
// dropped and counted.
type SerialBus struct {
	port    io.WriteCloser
	queue   chan WriteSet
	dropped atomic.Uint64
	closed  atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	logger  *charmlog.Logger
}

func OpenSerialBus(ctx context.Context, portName string, baud int) (*SerialBus, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("open serial port "+portName))
	}
	if err := port.ResetOutputBuffer(); err != nil {
		port.Close()
		return nil, fault.Wrap(err, fmsg.With("reset serial port "+portName))
	}
	return NewSerialBus(ctx, port), nil
}

// NewSerialBus starts the writer goroutine on an already open port.
func NewSerialBus(ctx context.Context, port io.WriteCloser) *SerialBus {
	b := &SerialBus{
		port:   port,
		queue:  make(chan WriteSet, serialQueue),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: charmlog.FromContext(ctx).WithPrefix("serial"),
	}
	go b.writer()
	return b
}

func (b *SerialBus) WriteRegister(w WriteSet) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	select {
	case b.queue <- w:
	default:
		b.dropped.Add(1)
	}
	return nil
}

func (b *SerialBus) Dropped() uint64 {
	return b.dropped.Load()
}

// The queue is never closed: a WriteRegister racing Close lands in the
// buffer or is dropped, it cannot panic.
func (b *SerialBus) writer() {
	defer close(b.done)
	frame := make([]byte, 4)
	for {
		select {
		case w := <-b.queue:
			b.send(frame, w)
		case <-b.stop:
			for {
				select {
				case w := <-b.queue:
					b.send(frame, w)
				default:
					return
				}
			}
		}
	}
}

func (b *SerialBus) send(frame []byte, w WriteSet) {
	frame[0] = byte(w.Address >> 8)
	frame[1] = byte(w.Address)
	frame[2] = w.Mask
	frame[3] = w.Value
	if _, err := b.port.Write(frame); err != nil {
		b.logger.Error("write failed", "write", w, "err", err)
	}
}

// Close writes out what is queued and closes the port.
func (b *SerialBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	close(b.stop)
	<-b.done
	if n := b.dropped.Load(); n > 0 {
		b.logger.Warn("writes dropped", "count", n)
	}
	return b.port.Close()
}
