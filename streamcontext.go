package http2

import (
	"github.com/valyala/bytebufferpool"
)

// RequestHandler is invoked once per request stream received by a
// server-role Connection, after the request's END_STREAM has arrived
// (on a HEADERS or DATA frame); it is not invoked while the request
// stream is still open. Handlers run synchronously, inline with the
// call to Connection.Read that delivered END_STREAM. Write only buffers
// until the handler returns; a handler that wants to send body chunks
// as they are produced uses RespondStreaming.
type RequestHandler func(ctx *StreamContext)

// StreamContext is the per-stream request/response view the engine
// hands to a RequestHandler, carrying only the HTTP/2-specific
// surface; this package does not translate it into any other
// framework's request type.
type StreamContext struct {
	conn   *Connection
	stream *Stream

	method    string
	path      string
	authority string
	scheme    string
	headers   []*HeaderField
	trailers  []*HeaderField

	body *bytebufferpool.ByteBuffer

	statusCode  int
	respHeaders []*HeaderField
	headersSent bool
	bodyBuf     *bytebufferpool.ByteBuffer
	bodySent    int

	// streaming is set by RespondStreaming: the response body is fed
	// incrementally through a StreamBody instead of being buffered
	// whole and flushed when the handler returns. streamEnded marks
	// that the StreamBody has been closed, i.e. no further writes are
	// coming and END_STREAM may go out once the buffer drains.
	streaming   bool
	streamEnded bool
}

func acquireStreamContext(c *Connection, s *Stream) *StreamContext {
	ctx := &StreamContext{
		conn:       c,
		stream:     s,
		statusCode: 200,
		body:       bytebufferpool.Get(),
		bodyBuf:    bytebufferpool.Get(),
	}
	return ctx
}

func (ctx *StreamContext) release() {
	bytebufferpool.Put(ctx.body)
	bytebufferpool.Put(ctx.bodyBuf)
	for _, hf := range ctx.headers {
		ReleaseHeaderField(hf)
	}
	for _, hf := range ctx.trailers {
		ReleaseHeaderField(hf)
	}
	for _, hf := range ctx.respHeaders {
		ReleaseHeaderField(hf)
	}
}

func (ctx *StreamContext) Method() string    { return ctx.method }
func (ctx *StreamContext) Path() string      { return ctx.path }
func (ctx *StreamContext) Authority() string { return ctx.authority }
func (ctx *StreamContext) Scheme() string    { return ctx.scheme }

// Header returns the request's non-pseudo header fields in wire order.
func (ctx *StreamContext) Header() []*HeaderField { return ctx.headers }

// Trailers returns any trailer fields received after the request body.
func (ctx *StreamContext) Trailers() []*HeaderField { return ctx.trailers }

// Body returns the request body bytes received on this stream. The
// handler runs only after END_STREAM has arrived, so the body it sees
// is complete.
func (ctx *StreamContext) Body() []byte { return ctx.body.B }

// StreamID returns the HTTP/2 stream id this context belongs to.
func (ctx *StreamContext) StreamID() uint32 { return ctx.stream.ID() }

// SetStatusCode sets the response's :status pseudo-header value. Must
// be called before the first Write.
func (ctx *StreamContext) SetStatusCode(code int) {
	ctx.statusCode = code
}

// SetHeader queues a response header field, sent with the response
// HEADERS frame when that frame is flushed: when the handler returns,
// on RespondStreaming(true), on the first StreamBody Write or Close,
// or on Close.
func (ctx *StreamContext) SetHeader(key, value string) {
	hf := AcquireHeaderField()
	hf.Set(key, value)
	ctx.respHeaders = append(ctx.respHeaders, hf)
}

// Write appends b to the pending response body. The buffered body is
// flushed as DATA frames once the handler returns; a handler that
// wants to flush body chunks as they're produced, independent of its
// own return, should use RespondStreaming instead.
func (ctx *StreamContext) Write(b []byte) (int, error) {
	return ctx.bodyBuf.Write(b)
}

// StreamBody is the write-end handle RespondStreaming returns: a
// caller writes response body chunks to it as they become available
// and calls Close once no more are coming, independent of whether the
// RequestHandler that created it has returned.
type StreamBody struct {
	ctx *StreamContext
}

// Write queues p as response body bytes and paces them out as DATA
// frames within the stream's and connection's current flow-control
// windows. Bytes that don't fit yet are buffered and retried once the
// peer grants more window via WINDOW_UPDATE or a larger
// INITIAL_WINDOW_SIZE.
func (b *StreamBody) Write(p []byte) (int, error) {
	if b.ctx.stream.IsClosed() {
		return 0, ErrClosedStream
	}
	n, _ := b.ctx.bodyBuf.Write(p)
	b.ctx.conn.flushResponse(b.ctx.stream, b.ctx)
	return n, nil
}

// Close signals that no further body bytes are coming; whatever is
// still buffered drains as DATA frames and the stream closes with
// END_STREAM once it does.
func (b *StreamBody) Close() error {
	if b.ctx.stream.IsClosed() {
		return nil
	}
	b.ctx.streamEnded = true
	b.ctx.conn.flushResponse(b.ctx.stream, b.ctx)
	return nil
}

// RespondStreaming switches ctx into streaming-response mode and
// returns a StreamBody the handler may write to incrementally (and
// even retain past its own return) instead of buffering the whole
// response via Write. If flushHeadersImmediately is set, the response
// HEADERS frame is queued right away rather than waiting for the first
// body write or the handler's return.
func (ctx *StreamContext) RespondStreaming(flushHeadersImmediately bool) *StreamBody {
	ctx.streaming = true
	if flushHeadersImmediately {
		ctx.conn.flushHeaders(ctx.stream, ctx, false)
	}
	return &StreamBody{ctx: ctx}
}

// Push requests the engine send a PUSH_PROMISE for method/path on a
// freshly allocated even stream id, then hands back a StreamContext
// for the pushed response body the handler should write to.
//
// https://tools.ietf.org/html/rfc7540#section-8.2
func (ctx *StreamContext) Push(method, path string, header []*HeaderField) (*StreamContext, error) {
	return ctx.conn.push(ctx.stream.ID(), method, path, ctx.authority, ctx.scheme, header)
}

// Close serializes the response status/headers/body accumulated via
// SetStatusCode/SetHeader/Write and queues it for output, respecting
// flow control. A RequestHandler never calls this directly (the
// engine flushes the response itself once the handler returns); it is
// required after Push, whose returned StreamContext has no inbound
// END_STREAM to trigger that automatic flush.
func (ctx *StreamContext) Close() {
	ctx.conn.flushResponse(ctx.stream, ctx)
}
