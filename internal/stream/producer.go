// Package stream reassembles 5250 records from the telnet-framed byte
// stream and hands them to the virtual terminal through a bounded queue,
// providing backpressure on the socket when nothing is draining it (spec
// §4.3).
package stream

import (
	"context"
	"log"
)

// defaultQueueCapacity is the recommended bounded-queue depth.
const defaultQueueCapacity = 25

// frameReader is the subset of *transport.FramedConn the producer needs;
// option and subnegotiation routing already happened during negotiation,
// so only record-oriented reads are used here.
type frameReader interface {
	ReadFrame(p []byte) (n int, eor bool, err error)
}

// Producer runs as its own cooperative task: it pulls bytes off conn,
// reassembles complete 5250 records at each IAC EOR boundary, and
// enqueues them for the VT.
type Producer struct {
	conn  frameReader
	queue chan []byte

	closed chan struct{}
}

// NewProducer constructs a Producer with the recommended queue capacity.
func NewProducer(conn frameReader) *Producer {
	return NewProducerWithCapacity(conn, defaultQueueCapacity)
}

// NewProducerWithCapacity constructs a Producer with an explicit bounded
// queue depth, for tests that want to exercise backpressure directly.
func NewProducerWithCapacity(conn frameReader, capacity int) *Producer {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Producer{
		conn:   conn,
		queue:  make(chan []byte, capacity),
		closed: make(chan struct{}),
	}
}

// Records returns the channel the VT reads completed records from. It is
// closed once the producer has stopped (EOF, read error, or ctx
// cancellation) and fully drained.
func (p *Producer) Records() <-chan []byte { return p.queue }

// Run reads frames until ctx is cancelled or the connection reports an
// error, reassembling one record per IAC EOR boundary and enqueueing it.
// A full queue blocks the read loop, applying backpressure to the remote
// host exactly as spec'd. Run recovers from any panic in its own loop
// body so a malformed record can never crash the caller's scheduler; it
// logs and terminates the producer cleanly instead.
func (p *Producer) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: stream: producer recovered from panic: %v", r)
		}
		close(p.queue)
		close(p.closed)
	}()

	var record []byte
	chunk := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, eor, rerr := p.conn.ReadFrame(chunk)
		if n > 0 {
			record = append(record, chunk[:n]...)
		}
		if eor {
			if enqErr := p.enqueue(ctx, record); enqErr != nil {
				return enqErr
			}
			record = nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// enqueue performs the blocking put, honoring ctx cancellation so a stuck
// consumer cannot wedge shutdown forever.
func (p *Producer) enqueue(ctx context.Context, record []byte) error {
	out := append([]byte(nil), record...)
	select {
	case p.queue <- out:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed reports whether the producer's read loop has exited.
func (p *Producer) Closed() <-chan struct{} { return p.closed }

// Dequeue blocks for the next complete record, returning ErrQueueClosed
// once Run has drained and closed the queue, or ctx.Err() if ctx is
// cancelled first.
func (p *Producer) Dequeue(ctx context.Context) ([]byte, error) {
	select {
	case rec, ok := <-p.queue:
		if !ok {
			return nil, ErrQueueClosed
		}
		return rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
