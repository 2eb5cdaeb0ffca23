package http2

// connState tracks the coarse lifecycle of a Connection, separate from
// any individual stream's StreamState.
type connState uint8

const (
	connActive connState = iota
	connGoingAway
	connClosed
)

// headerAssembly accumulates a HEADERS/PUSH_PROMISE frame's header
// block fragment across any CONTINUATION frames that follow it, per
// RFC 7540 §6.10: no other frame may be interleaved on the wire while
// a header block is incomplete.
type headerAssembly struct {
	stream     uint32
	raw        []byte
	endStream  bool
	isTrailer  bool
	isPush     bool
	promisedID uint32
}

// Connection is the cooperative HTTP/2 engine: a single-threaded state
// machine with no goroutines, channels or timers of its own. A caller
// drives it by feeding inbound bytes to Read, pulling outbound bytes
// from NextWriteOperation, and reporting transport-level outcomes back
// via ReportWriteResult/ReportExn. Exactly one goroutine may call into
// a given Connection at a time; nothing here is safe for concurrent use.
type Connection struct {
	cfg Config

	state connState

	in  recvBuffer
	out writeQueue

	prefaceDone bool

	streams         map[uint32]*Stream
	lastPeerStream  uint32
	nextLocalID     uint32
	peerStreamCount uint32

	local  Settings
	peer   Settings
	wantAck bool

	hpackDec *HPACK
	hpackEnc *HPACK

	flow *connFlowController
	tree *priorityTree

	assembly *headerAssembly

	pingData     [8]byte
	pingInFlight bool

	goAwayCode ErrorCode
	lastErr    error

	readYielded bool
}

// Create builds a Connection ready to have the connection preface (for
// a server) or the initial SETTINGS frame (for a client) fed through
// Read/NextWriteOperation.
func Create(cfg Config) *Connection {
	c := &Connection{
		cfg:      cfg,
		streams:  make(map[uint32]*Stream),
		hpackDec: AcquireHPack(),
		hpackEnc: AcquireHPack(),
		flow:     newConnFlowController(),
		tree:     newPriorityTree(),
	}
	c.local = cfg.settings()
	c.peer.Reset()
	c.hpackEnc.DisableCompression = cfg.DisableHPACKCompression

	if cfg.IsServer {
		c.nextLocalID = 2
		c.prefaceDone = false
	} else {
		c.nextLocalID = 1
		c.prefaceDone = true
		c.out.raw([]byte(ClientPreface))
	}

	initial := c.local
	c.out.queueFrame(0, &initial)

	return c
}

// NextReadOperation reports what the caller should do before the next
// call to Read.
func (c *Connection) NextReadOperation() ReadOperation {
	if c.state == connClosed {
		return ReadOperationClose
	}
	if c.readYielded {
		return ReadOperationYield
	}
	return ReadOperationRead
}

// YieldReader marks the read side as voluntarily paused; NextReadOperation
// will report ReadOperationYield until the next Read clears it, or
// ReadOperationClose once the connection is closed. Shutdown leaves it set.
func (c *Connection) YieldReader() {
	c.readYielded = true
}

// Read hands the engine len(p) more bytes received from the transport.
// It parses and dispatches as many complete frames as are now
// available, returning the number of bytes accepted (len(p), or 0 if
// the connection was already closed; partial frames remain buffered
// for the next call) and a connection-fatal error, if dispatching one
// drove the connection into an unrecoverable state. A stream-scoped
// error resets only that stream and the remaining frames are processed.
func (c *Connection) Read(p []byte) (int, error) {
	if c.state == connClosed {
		return 0, ErrClosedStream
	}
	c.readYielded = false
	c.in.append(p)

	if c.cfg.IsServer && !c.prefaceDone {
		ok, complete := matchPreface(c.in.bytes())
		if !ok {
			err := NewConnError(ProtocolError, "bad connection preface")
			c.fail(err)
			return len(p), err
		}
		if !complete {
			return len(p), nil
		}
		c.in.consume(prefaceLen)
		c.prefaceDone = true
	}

	for {
		total, ready, err := c.in.frameAvailable(c.local.MaxFrameSize())
		if err != nil {
			c.fail(err)
			return len(p), err
		}
		if !ready {
			return len(p), nil
		}

		raw := c.in.bytes()[:total]
		if err := c.dispatch(raw); err != nil {
			c.fail(err)
			if c.state == connClosed {
				return len(p), err
			}
		}
		c.in.consume(total)
	}
}

// ReadEOF tells the engine the transport's read side reached EOF. A
// clean EOF after a GOAWAY exchange simply finalizes the shutdown; an
// unexpected EOF is treated as a connection error.
func (c *Connection) ReadEOF() {
	if c.state == connGoingAway {
		c.state = connClosed
		return
	}
	c.fail(NewConnError(ProtocolError, "unexpected EOF"))
}

func (c *Connection) dispatch(raw []byte) error {
	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)

	frh.parseValues(raw[:DefaultFrameSize])
	body := raw[DefaultFrameSize:]

	if c.assembly != nil && frh.Type() != FrameContinuation {
		return NewConnError(ProtocolError, "expected CONTINUATION to complete header block")
	}

	if frh.kind < minFrameType || frh.kind > maxFrameType {
		frh.fr = newFrame(FrameUnknown)
	} else {
		frh.fr = newFrame(frh.kind)
	}
	frh.payload = append(frh.payload[:0], body...)

	if err := frh.fr.Deserialize(frh); err != nil {
		return c.classify(frh.Stream(), err)
	}

	switch fr := frh.fr.(type) {
	case *Settings:
		return c.handleSettings(fr)
	case *Ping:
		return c.handlePing(fr)
	case *GoAway:
		return c.handleGoAway(fr)
	case *WindowUpdate:
		return c.handleWindowUpdate(frh.Stream(), fr)
	case *Priority:
		c.tree.Reprioritize(frh.Stream(), fr.Stream(), fr.Exclusive(), fr.Weight())
		return nil
	case *RstStream:
		return c.handleRstStream(frh.Stream(), fr)
	case *Headers:
		return c.handleHeaders(frh.Stream(), fr)
	case *PushPromise:
		return c.handlePushPromise(frh.Stream(), fr)
	case *Continuation:
		return c.handleContinuation(frh.Stream(), fr)
	case *Data:
		return c.handleData(frh.Stream(), fr)
	default:
		return nil // Unknown frame types are ignored, RFC 7540 §5.5.
	}
}

// classify turns a decode error into a stream- or connection-scoped
// Error if it wasn't already one.
func (c *Connection) classify(stream uint32, err error) error {
	if _, ok := err.(Error); ok {
		return err
	}
	return NewStreamError(stream, ProtocolError, err.Error())
}

func (c *Connection) fail(err error) {
	if c.state == connClosed {
		return
	}
	c.lastErr = err
	if e, ok := err.(Error); ok && e.Scope == ScopeStream {
		c.resetStream(e.Stream, e.Code)
		return
	}
	code := InternalError
	if e, ok := err.(Error); ok {
		code = e.Code
	}
	c.sendGoAway(code)
	c.state = connClosed
}

// ReportExn tells the engine a fatal transport error occurred; the
// connection is torn down without attempting to flush further output.
func (c *Connection) ReportExn(err error) {
	c.lastErr = err
	c.state = connClosed
}

// Shutdown begins a graceful shutdown: a GOAWAY naming the highest
// stream id processed so far is queued and no further streams are
// accepted. The caller should keep draining NextWriteOperation/Read
// until IsClosed reports true.
func (c *Connection) Shutdown() {
	if c.state != connActive {
		return
	}
	c.sendGoAway(NoError)
	c.state = connGoingAway
}

func (c *Connection) sendGoAway(code ErrorCode) {
	ga := &GoAway{}
	ga.SetStream(c.lastPeerStream)
	ga.SetCode(code)
	c.out.queueFrame(0, ga)
	c.goAwayCode = code
}

// IsClosed reports whether the connection has finished tearing down
// and no more reads or writes should be attempted.
func (c *Connection) IsClosed() bool {
	return c.state == connClosed
}

// NextWriteOperation returns the next batch of bytes to write to the
// transport, or an instruction to yield (nothing ready) or close
// (teardown complete, flush what remains then stop).
func (c *Connection) NextWriteOperation() WriteOperation {
	if c.out.empty() {
		if c.state == connClosed {
			return WriteOperation{Kind: WriteOperationClose}
		}
		return WriteOperation{Kind: WriteOperationYield}
	}

	kind := WriteOperationWrite
	if c.state == connClosed {
		kind = WriteOperationClose
	}
	return WriteOperation{Kind: kind, IOVecs: c.out.drain()}
}

// ReportWriteResult tells the engine the outcome of the write
// requested by the most recent NextWriteOperation. A reported error
// is treated as fatal to the connection.
func (c *Connection) ReportWriteResult(result WriteResult) {
	c.out.release()
	if result.Err != nil {
		c.ReportExn(result.Err)
	}
}

// --- SETTINGS --------------------------------------------------------

func (c *Connection) handleSettings(st *Settings) error {
	if st.IsAck() {
		c.wantAck = false
		return nil
	}

	if err := st.Validate(); err != nil {
		return err
	}

	if err := c.flow.ApplyInitialWindowSize(c.streams, st.InitialWindowSize()); err != nil {
		return err
	}
	c.peer = *st
	c.hpackEnc.SetMaxTableSize(int(st.HeaderTableSize()))

	ack := &Settings{ack: true}
	c.out.queueFrame(0, ack)
	c.pumpReadyStreams()
	return nil
}

// --- PING -------------------------------------------------------------

func (c *Connection) handlePing(p *Ping) error {
	if p.ack {
		c.pingInFlight = false
		return nil
	}
	reply := &Ping{ack: true}
	reply.SetData(p.Data())
	c.out.queueFrame(0, reply)
	return nil
}

// Ping queues a PING frame carrying payload, expecting the peer to
// echo it back in an ack. Used by callers implementing their own RTT
// measurement loop on top of Config.PingInterval.
func (c *Connection) Ping(payload [8]byte) {
	p := &Ping{}
	p.SetData(payload[:])
	c.out.queueFrame(0, p)
	c.pingInFlight = true
}

// --- GOAWAY -----------------------------------------------------------

func (c *Connection) handleGoAway(ga *GoAway) error {
	c.state = connGoingAway
	c.lastErr = ga
	return nil
}

// --- WINDOW_UPDATE ------------------------------------------------------

func (c *Connection) handleWindowUpdate(stream uint32, wu *WindowUpdate) error {
	if stream == 0 {
		if err := c.flow.send.Increment(wu.Increment()); err != nil {
			return err
		}
		c.pumpReadyStreams()
		return nil
	}
	s := c.streams[stream]
	if s == nil {
		return nil // stream already closed; RFC 7540 §6.9 allows ignoring
	}
	next := int64(s.SendWindow()) + int64(wu.Increment())
	if next > maxWindowSize {
		return NewStreamError(stream, FlowControlError, "WINDOW_UPDATE overflows stream window")
	}
	s.SetSendWindow(int32(next))
	c.tree.SetReady(stream, true)
	if ctx, ok := s.Data().(*StreamContext); ok {
		c.sendPendingData(s, ctx)
	}
	return nil
}

// --- RST_STREAM ---------------------------------------------------------

func (c *Connection) handleRstStream(stream uint32, rst *RstStream) error {
	s := c.streams[stream]
	if s == nil {
		if stream > c.lastPeerStream {
			// RFC 7540 §6.4: RST_STREAM on an idle stream (one the peer
			// never opened with HEADERS) is a connection error.
			return NewConnError(ProtocolError, "RST_STREAM on idle stream")
		}
		return nil
	}
	s.SetState(StreamStateClosed)
	c.closeStream(stream)
	return nil
}

func (c *Connection) resetStream(stream uint32, code ErrorCode) {
	if stream == 0 {
		return
	}
	rst := &RstStream{}
	rst.SetCode(code)
	c.out.queueFrame(stream, rst)
	if s := c.streams[stream]; s != nil {
		s.SetState(StreamStateClosed)
	}
	c.closeStream(stream)
}

func (c *Connection) closeStream(stream uint32) {
	if s, ok := c.streams[stream]; ok {
		if s.counted {
			c.peerStreamCount--
		}
		if ctx, ok := s.Data().(*StreamContext); ok {
			ctx.release()
		}
		delete(c.streams, stream)
	}
	c.tree.Remove(stream)
}

// --- HEADERS / CONTINUATION / PUSH_PROMISE --------------------------------

func (c *Connection) handleHeaders(stream uint32, h *Headers) error {
	s := c.streams[stream]
	if s == nil {
		s = NewStream(stream, int32(c.local.InitialWindowSize()), int32(c.peer.InitialWindowSize()), nil)
		c.streams[stream] = s
		c.lastPeerStream = stream

		// RFC 7540 §5.1.2: refuse a new peer-initiated stream once the
		// local MAX_CONCURRENT_STREAMS budget is exhausted, instead of
		// accepting it unconditionally.
		if c.peerStreamCount >= c.local.MaxConcurrentStreams() {
			s.refused = true
		} else {
			c.peerStreamCount++
			s.counted = true
		}
	}

	if h.stream > 0 {
		c.tree.Reprioritize(stream, h.stream, h.Exclusive(), h.weight)
	}

	trailer := s.Trailers()

	if !h.EndHeaders() {
		c.assembly = &headerAssembly{stream: stream, raw: append([]byte(nil), h.Headers()...), endStream: h.EndStream(), isTrailer: trailer}
		return nil
	}

	return c.finishHeaders(stream, h.Headers(), h.EndStream(), trailer)
}

func (c *Connection) handleContinuation(stream uint32, cont *Continuation) error {
	if c.assembly == nil || c.assembly.stream != stream {
		return NewConnError(ProtocolError, "unexpected CONTINUATION frame")
	}
	c.assembly.raw = append(c.assembly.raw, cont.Headers()...)
	if !cont.EndHeaders() {
		return nil
	}

	a := c.assembly
	c.assembly = nil

	if a.isPush {
		return c.finishPushPromise(a.stream, a.promisedID, a.raw)
	}
	return c.finishHeaders(a.stream, a.raw, a.endStream, a.isTrailer)
}

func (c *Connection) finishHeaders(stream uint32, raw []byte, endStream, trailer bool) error {
	c.hpackDec.Reset()
	c.hpackDec.SetMaxTableSize(int(c.local.HeaderTableSize()))
	if _, err := c.hpackDec.Read(raw); err != nil {
		return NewConnError(CompressionError, err.Error())
	}
	fields := cloneFields(c.hpackDec.fields)

	if err := validateFields(fields); err != nil {
		releaseFields(fields)
		return err
	}

	s := c.streams[stream]
	if s == nil {
		releaseFields(fields)
		return NewConnError(ProtocolError, "HEADERS on unknown stream")
	}

	if s.refused {
		releaseFields(fields)
		c.resetStream(stream, RefusedStreamError)
		return nil
	}

	s.SetState(nextHeaderState(s.State(), endStream, c.cfg.IsServer))

	if trailer {
		if ctx, ok := s.Data().(*StreamContext); ok {
			ctx.trailers = append(ctx.trailers, fields...)
		}
		if endStream {
			c.deliverIfComplete(s)
		}
		return nil
	}

	ctx := acquireStreamContext(c, s)
	for _, hf := range fields {
		switch hf.Key() {
		case ":method":
			ctx.method = hf.Value()
		case ":path":
			ctx.path = hf.Value()
		case ":authority":
			ctx.authority = hf.Value()
		case ":scheme":
			ctx.scheme = hf.Value()
		case ":status":
			ctx.statusCode = atoi(hf.Value())
		default:
			ctx.headers = append(ctx.headers, hf)
		}
	}
	s.SetData(ctx)
	s.SetTrailers(true)

	if endStream {
		c.deliverIfComplete(s)
	}
	return nil
}

func (c *Connection) deliverIfComplete(s *Stream) {
	ctx, ok := s.Data().(*StreamContext)
	if !ok {
		return
	}

	if c.cfg.IsServer {
		if c.cfg.Handler == nil {
			return
		}
		c.cfg.Handler(ctx)
		c.flushResponse(s, ctx)
		return
	}

	if c.cfg.ResponseHandler != nil {
		c.cfg.ResponseHandler(ctx)
	}
	s.SetState(StreamStateClosed)
	c.closeStream(s.ID())
}

// flushHeaders serializes ctx's status/response header fields into a
// HEADERS frame and queues it. It's a no-op if the headers already
// went out, which happens when a handler called
// StreamContext.RespondStreaming with flushHeadersImmediately set.
func (c *Connection) flushHeaders(s *Stream, ctx *StreamContext, endStream bool) {
	if ctx.headersSent {
		return
	}

	c.hpackEnc.Reset()
	c.hpackEnc.SetMaxTableSize(int(c.peer.HeaderTableSize()))
	c.hpackEnc.DisableCompression = c.cfg.DisableHPACKCompression

	c.hpackEnc.Add(":status", statusText(ctx.statusCode))
	for _, hf := range ctx.respHeaders {
		c.hpackEnc.AddBytes(hf.KeyBytes(), hf.ValueBytes())
	}

	h := &Headers{}
	var err error
	h.rawHeaders, err = c.hpackEnc.Write(h.rawHeaders)
	if err != nil {
		c.resetStream(s.ID(), InternalError)
		return
	}
	h.SetEndHeaders(true)
	h.SetEndStream(endStream)
	c.out.queueFrame(s.ID(), h)
	ctx.headersSent = true
	if s.State() == StreamStateReservedLocal {
		s.SetState(StreamStateHalfClosedRemote)
	}

	if endStream {
		s.SetState(StreamStateClosed)
		c.closeStream(s.ID())
	}
}

// flushResponse writes out the response HEADERS a RequestHandler
// accumulated into ctx via SetStatusCode/SetHeader (unless
// RespondStreaming already sent them), then hands the buffered body to
// sendPendingData, which paces it out as DATA frames within the
// stream's and connection's flow-control windows. A streaming response
// that hasn't been closed yet via its StreamBody is left open: the
// handler returning doesn't end the stream until StreamBody.Close does.
func (c *Connection) flushResponse(s *Stream, ctx *StreamContext) {
	done := !ctx.streaming || ctx.streamEnded
	endStream := done && ctx.bodyBuf.Len() == 0

	c.flushHeaders(s, ctx, endStream)
	if s.IsClosed() {
		return
	}

	c.sendPendingData(s, ctx)
}

// sendPendingData emits as much of ctx's buffered response body as the
// stream's and the connection's send windows currently allow. If the
// body doesn't fit, the stream is marked ready in the priority tree so
// a later WINDOW_UPDATE (handleWindowUpdate/handleSettings) resumes
// it; once the last byte is queued with END_STREAM, the stream closes.
// A streaming response (ctx.streaming) that hasn't seen its
// StreamBody.Close yet is instead left open once it drains, waiting
// for more writes or the explicit close.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
func (c *Connection) sendPendingData(s *Stream, ctx *StreamContext) {
	for {
		remaining := ctx.bodyBuf.B[ctx.bodySent:]
		if len(remaining) == 0 {
			if ctx.streaming && !ctx.streamEnded {
				c.tree.SetReady(s.ID(), false)
				return
			}
			if ctx.streaming && ctx.headersSent {
				d := &Data{}
				d.SetEndStream(true)
				c.out.queueFrame(s.ID(), d)
			}
			c.tree.SetReady(s.ID(), false)
			s.SetState(StreamStateClosed)
			c.closeStream(s.ID())
			return
		}

		avail := int64(s.SendWindow())
		if cw := c.flow.send.Available(); cw < avail {
			avail = cw
		}
		if avail <= 0 {
			c.tree.SetReady(s.ID(), true)
			return
		}

		n := len(remaining)
		if int64(n) > avail {
			n = int(avail)
		}
		if max := int(c.peer.MaxFrameSize()); max > 0 && n > max {
			n = max
		}

		last := ctx.bodySent+n == ctx.bodyBuf.Len() && (!ctx.streaming || ctx.streamEnded)

		d := &Data{}
		d.SetData(remaining[:n])
		d.SetEndStream(last)
		c.out.queueFrame(s.ID(), d)

		ctx.bodySent += n
		s.SetSendWindow(s.SendWindow() - int32(n))
		c.flow.send.Consume(int64(n))

		if last {
			c.tree.SetReady(s.ID(), false)
			s.SetState(StreamStateClosed)
			c.closeStream(s.ID())
			return
		}
	}
}

// pumpReadyStreams resumes every stream the priority tree has marked
// ready (blocked on flow control, not on application data) after a
// connection-level WINDOW_UPDATE or SETTINGS_INITIAL_WINDOW_SIZE
// change widened the shared connection window. Each ready stream gets
// at most one pass per call; a stream still blocked re-marks itself
// ready inside sendPendingData for the next pump.
func (c *Connection) pumpReadyStreams() {
	seen := make(map[uint32]bool)
	for c.flow.send.Available() > 0 {
		id := c.tree.Next()
		if id == 0 || seen[id] {
			return
		}
		seen[id] = true

		s, ok := c.streams[id]
		if !ok {
			continue
		}
		if ctx, ok := s.Data().(*StreamContext); ok {
			c.sendPendingData(s, ctx)
		}
	}
}

// cloneFields copies decoded header fields out of the HPACK decoder's
// pool-backed slice so they survive past the decoder's next Reset,
// which recycles its fields back to the HeaderField pool.
func cloneFields(src []*HeaderField) []*HeaderField {
	if len(src) == 0 {
		return nil
	}
	out := make([]*HeaderField, len(src))
	for i, hf := range src {
		cp := AcquireHeaderField()
		hf.CopyTo(cp)
		out[i] = cp
	}
	return out
}

func releaseFields(fields []*HeaderField) {
	for _, hf := range fields {
		ReleaseHeaderField(hf)
	}
}

func nextHeaderState(cur StreamState, endStream, isServer bool) StreamState {
	switch cur {
	case StreamStateIdle:
		if endStream {
			return StreamStateHalfClosedRemote
		}
		return StreamStateOpen
	case StreamStateReservedRemote:
		if endStream {
			return StreamStateClosed
		}
		return StreamStateHalfClosedLocal
	default:
		if endStream {
			return StreamStateHalfClosedRemote
		}
		return cur
	}
}

// maybeCreditRecvWindow accounts for n bytes released into s's body
// buffer and emits WINDOW_UPDATE frames once the accumulated release
// on either side crosses max(recvWindowUpdateThreshold, window/2),
// topping the window back up to its initial size rather than trickling
// small increments back for every DATA frame.
func (c *Connection) maybeCreditRecvWindow(s *Stream, stream uint32, n int32) {
	c.flow.recvUnacked += int64(n)
	connNeeded := int64(recvWindowUpdateThreshold)
	if half := c.flow.recv.Available() / 2; half > connNeeded {
		connNeeded = half
	}
	if c.flow.recvUnacked >= connNeeded {
		inc := c.flow.recvUnacked
		swu := &WindowUpdate{}
		swu.SetIncrement(uint32(inc))
		c.out.queueFrame(0, swu)
		c.flow.recv.Increment(uint32(inc))
		c.flow.recvUnacked = 0
	}

	s.AddRecvUnacked(n)
	streamNeeded := int32(recvWindowUpdateThreshold)
	if half := s.RecvWindow() / 2; half > streamNeeded {
		streamNeeded = half
	}
	if s.RecvUnacked() >= streamNeeded {
		inc := s.RecvUnacked()
		wu := &WindowUpdate{}
		wu.SetIncrement(uint32(inc))
		c.out.queueFrame(stream, wu)
		s.IncrRecvWindow(inc)
		s.ResetRecvUnacked()
	}
}

func (c *Connection) handleData(stream uint32, d *Data) error {
	s := c.streams[stream]
	if s == nil {
		if stream > c.lastPeerStream {
			// RFC 7540 §5.1: a frame other than HEADERS/PRIORITY on an
			// idle stream is a connection error, not a stream error.
			return NewConnError(ProtocolError, "DATA received on an idle stream")
		}
		return NewStreamError(stream, StreamClosedError, "DATA on unknown stream")
	}

	n := int64(d.Len())
	if err := c.flow.recv.Consume(n); err != nil {
		return NewConnError(FlowControlError, "connection receive window exceeded")
	}
	if s.RecvWindow() < int32(n) {
		return NewStreamError(stream, FlowControlError, "stream receive window exceeded")
	}
	s.IncrRecvWindow(int32(-n))

	if ctx, ok := s.Data().(*StreamContext); ok {
		ctx.body.Write(d.Data())
	}

	if n > 0 {
		c.maybeCreditRecvWindow(s, stream, int32(n))
	}

	if d.EndStream() {
		s.SetState(StreamStateHalfClosedRemote)
		c.deliverIfComplete(s)
	}

	return nil
}

// --- PUSH_PROMISE -------------------------------------------------------

func (c *Connection) handlePushPromise(stream uint32, pp *PushPromise) error {
	if !c.cfg.EnablePush {
		return NewConnError(ProtocolError, "PUSH_PROMISE received with push disabled")
	}

	promised := NewStream(pp.Stream(), int32(c.local.InitialWindowSize()), int32(c.peer.InitialWindowSize()), nil)
	promised.SetState(StreamStateReservedRemote)
	c.streams[pp.Stream()] = promised

	if !pp.EndHeaders() {
		c.assembly = &headerAssembly{stream: stream, raw: append([]byte(nil), pp.Headers()...), isPush: true, promisedID: pp.Stream()}
		return nil
	}
	return c.finishPushPromise(stream, pp.Stream(), pp.Headers())
}

func (c *Connection) finishPushPromise(_ uint32, promisedID uint32, raw []byte) error {
	c.hpackDec.Reset()
	c.hpackDec.SetMaxTableSize(int(c.local.HeaderTableSize()))
	if _, err := c.hpackDec.Read(raw); err != nil {
		return NewConnError(CompressionError, err.Error())
	}
	// The promised request's headers are available via hpackDec.fields to
	// a caller that wants to inspect them (e.g. to populate a client-side
	// cache key); the core itself only tracks the stream's reservation.
	return nil
}

// push allocates a server-initiated stream promising a request for
// method and path on behalf of parentStream, queues the PUSH_PROMISE, and returns a
// StreamContext the caller can write the pushed response into.
func (c *Connection) push(parentStream uint32, method, path, authority, scheme string, header []*HeaderField) (*StreamContext, error) {
	if !c.cfg.IsServer {
		return nil, NewConnError(ProtocolError, "Push is only valid on a server-role Connection")
	}
	if !c.peer.Push() {
		return nil, NewStreamError(parentStream, RefusedStreamError, "peer disabled push")
	}

	id := c.nextLocalID
	c.nextLocalID += 2

	s := NewStream(id, int32(c.local.InitialWindowSize()), int32(c.peer.InitialWindowSize()), nil)
	s.SetState(StreamStateReservedLocal)
	c.streams[id] = s
	c.tree.Reprioritize(id, parentStream, false, 16)

	c.hpackEnc.Reset()
	c.hpackEnc.SetMaxTableSize(int(c.peer.HeaderTableSize()))
	c.hpackEnc.DisableCompression = c.cfg.DisableHPACKCompression
	c.hpackEnc.Add(":method", method)
	c.hpackEnc.Add(":path", path)
	c.hpackEnc.Add(":authority", authority)
	c.hpackEnc.Add(":scheme", scheme)
	for _, hf := range header {
		c.hpackEnc.AddBytes(hf.KeyBytes(), hf.ValueBytes())
	}

	pp := &PushPromise{}
	pp.SetStream(id)
	pp.SetEndHeaders(true)
	var err error
	pp.rawHeaders, err = c.hpackEnc.Write(pp.rawHeaders)
	if err != nil {
		return nil, err
	}
	c.out.queueFrame(parentStream, pp)

	ctx := acquireStreamContext(c, s)
	ctx.method, ctx.path, ctx.authority, ctx.scheme = method, path, authority, scheme
	s.SetData(ctx)
	return ctx, nil
}

// statusText renders an HTTP status code as the decimal ASCII string
// HPACK expects for the :status pseudo-header.
func statusText(code int) string {
	if code <= 0 {
		return "200"
	}
	var buf [4]byte
	i := len(buf)
	for code > 0 {
		i--
		buf[i] = byte('0' + code%10)
		code /= 10
	}
	return string(buf[i:])
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
