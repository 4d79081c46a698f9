// Package packetizer turns queued diagnostic messages into a bounded chunk
// stream. It is the byte producer behind the export service: the pump asks
// for the next slice of the queue and may abort a slice when the transport
// refuses the notification carrying it.
package packetizer

import "sync"

// Queue is a FIFO of opaque diagnostic messages streamed out in chunks.
// A chunk never spans two messages; a drained message is dropped and the
// next chunk starts on the following one. Chunk handout is single-consumer
// (the export pump), but producers may enqueue from other goroutines.
type Queue struct {
	mu       sync.Mutex
	messages [][]byte
	offset   int // read offset into messages[0]

	// Rewind state for the most recent chunk. abortMsg is non-nil when
	// that chunk consumed the tail of a message and popped it.
	pending     bool
	abortOffset int
	abortMsg    []byte
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends one raw message to the queue
func (q *Queue) Enqueue(message []byte) {
	if len(message) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, append([]byte{}, message...))
}

// NextChunk returns up to maxLen bytes of the head message, or (nil, false)
// when the queue is empty. The returned slice is freshly allocated; the
// caller owns it.
func (q *Queue) NextChunk(maxLen int) ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if maxLen <= 0 || len(q.messages) == 0 {
		return nil, false
	}

	head := q.messages[0]
	q.pending = true
	q.abortOffset = q.offset
	q.abortMsg = nil

	n := len(head) - q.offset
	if n > maxLen {
		n = maxLen
	}

	chunk := make([]byte, n)
	copy(chunk, head[q.offset:q.offset+n])
	q.offset += n

	if q.offset == len(head) {
		q.abortMsg = head
		q.messages = q.messages[1:]
		q.offset = 0
	}

	return chunk, true
}

// AbortChunk rewinds the most recent NextChunk so the same bytes are served
// again. A no-op unless a chunk is outstanding.
func (q *Queue) AbortChunk() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.pending {
		return
	}
	if q.abortMsg != nil {
		q.messages = append([][]byte{q.abortMsg}, q.messages...)
		q.abortMsg = nil
	}
	q.offset = q.abortOffset
	q.pending = false
}

// MessageCount returns the number of queued messages, counting a partially
// streamed head message.
func (q *Queue) MessageCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// BytesPending returns the number of unstreamed bytes in the queue
func (q *Queue) BytesPending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for i, m := range q.messages {
		total += len(m)
		if i == 0 {
			total -= q.offset
		}
	}
	return total
}
