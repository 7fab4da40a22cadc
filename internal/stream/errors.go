package stream

import "errors"

// ErrQueueClosed is returned by Dequeue once the producer has drained its
// buffer and shut the queue down.
var ErrQueueClosed = errors.New("stream: record queue closed")
