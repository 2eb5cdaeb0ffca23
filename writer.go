package http2

import (
	"github.com/valyala/bytebufferpool"
)

// writeQueue accumulates serialized frames waiting to be handed out by
// Connection.NextWriteOperation. Each queued entry owns a pooled
// bytebufferpool.ByteBuffer so repeated connections amortize the
// allocations across the connection's lifetime.
type writeQueue struct {
	bufs [][]byte
	pool []*bytebufferpool.ByteBuffer
}

// queueFrame serializes fr onto stream and appends the wire bytes to
// the queue.
func (q *writeQueue) queueFrame(stream uint32, fr Frame) error {
	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)

	frh.SetStream(stream)
	frh.SetBody(fr)
	fr.Serialize(frh)
	frh.length = len(frh.payload)
	frh.parseHeader(frh.rawHeader[:])

	bb := bytebufferpool.Get()
	bb.Write(frh.rawHeader[:])
	bb.Write(frh.payload)

	q.bufs = append(q.bufs, bb.B)
	q.pool = append(q.pool, bb)
	return nil
}

// raw queues pre-serialized bytes (e.g. the connection preface or a
// precomputed SETTINGS ack) without going through a Frame.
func (q *writeQueue) raw(b []byte) {
	bb := bytebufferpool.Get()
	bb.Write(b)
	q.bufs = append(q.bufs, bb.B)
	q.pool = append(q.pool, bb)
}

func (q *writeQueue) empty() bool {
	return len(q.bufs) == 0
}

// drain hands back every queued buffer's bytes and clears the queue.
// The caller (NextWriteOperation) owns the returned slices until the
// matching ReportWriteResult call, after which release must be called.
func (q *writeQueue) drain() [][]byte {
	out := q.bufs
	q.bufs = nil
	return out
}

func (q *writeQueue) release() {
	for _, bb := range q.pool {
		bytebufferpool.Put(bb)
	}
	q.pool = nil
}
