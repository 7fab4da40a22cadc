package stream

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// fakeReader replays a scripted sequence of ReadFrame results.
type fakeReader struct {
	frames []fakeFrame
	idx    int
}

type fakeFrame struct {
	data []byte
	eor  bool
	err  error
}

func (f *fakeReader) ReadFrame(p []byte) (int, bool, error) {
	if f.idx >= len(f.frames) {
		return 0, false, io.EOF
	}
	fr := f.frames[f.idx]
	f.idx++
	n := copy(p, fr.data)
	return n, fr.eor, fr.err
}

func TestProducerReassemblesOneRecordAcrossReads(t *testing.T) {
	reader := &fakeReader{frames: []fakeFrame{
		{data: []byte{0x01, 0x02}},
		{data: []byte{0x03}, eor: true},
	}}
	p := NewProducerWithCapacity(reader, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	rec, err := p.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if string(rec) != "\x01\x02\x03" {
		t.Fatalf("got record %x, want 010203", rec)
	}
	cancel()
	<-done
}

func TestProducerDrainsAndClosesQueueOnEOF(t *testing.T) {
	reader := &fakeReader{frames: []fakeFrame{
		{data: []byte{0xAA}, eor: true},
	}}
	p := NewProducerWithCapacity(reader, 4)

	err := p.Run(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Run() error = %v, want io.EOF", err)
	}

	rec, derr := p.Dequeue(context.Background())
	if derr != nil {
		t.Fatalf("expected the buffered record before closure, got err %v", derr)
	}
	if string(rec) != "\xaa" {
		t.Fatalf("got %x, want aa", rec)
	}

	if _, derr := p.Dequeue(context.Background()); !errors.Is(derr, ErrQueueClosed) {
		t.Fatalf("Dequeue after drain = %v, want ErrQueueClosed", derr)
	}
}

func TestProducerAppliesBackpressureOnFullQueue(t *testing.T) {
	frames := make([]fakeFrame, 0, 6)
	for i := 0; i < 6; i++ {
		frames = append(frames, fakeFrame{data: []byte{byte(i)}, eor: true})
	}
	reader := &fakeReader{frames: frames}
	p := NewProducerWithCapacity(reader, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() with a never-drained queue should block on backpressure until ctx expires, got %v", err)
	}
}
