package http2

import (
	"bufio"
	"bytes"
	"testing"
)

// serializeFrame renders fr as wire bytes (9-octet header + payload) on
// the given stream id, the same way writeQueue.queueFrame does when
// building test fixtures to feed into Connection.Read.
func serializeFrame(stream uint32, fr Frame) []byte {
	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)

	frh.SetStream(stream)
	frh.SetBody(fr)
	fr.Serialize(frh)
	frh.length = len(frh.payload)
	frh.parseHeader(frh.rawHeader[:])

	out := append([]byte(nil), frh.rawHeader[:]...)
	return append(out, frh.payload...)
}

// encodeHeaderBlock runs fields through a fresh HPACK encoder and
// returns the raw header block bytes, for building HEADERS frame
// fixtures without hand-encoding HPACK by hand.
func encodeHeaderBlock(t *testing.T, fields [][2]string) []byte {
	t.Helper()
	hp := AcquireHPack()
	defer ReleaseHPack(hp)

	for _, f := range fields {
		hp.Add(f[0], f[1])
	}
	raw, err := hp.Write(nil)
	if err != nil {
		t.Fatalf("encodeHeaderBlock: %v", err)
	}
	return raw
}

func headersFrameBytes(t *testing.T, stream uint32, endStream bool, fields [][2]string) []byte {
	t.Helper()
	h := &Headers{}
	h.SetEndHeaders(true)
	h.SetEndStream(endStream)
	h.SetHeaders(encodeHeaderBlock(t, fields))
	return serializeFrame(stream, h)
}

// readAllFrames drains every queued write operation off c, parsing the
// bytes back into FrameHeaders with the engine's own parser.
func readAllFrames(t *testing.T, c *Connection) []*FrameHeader {
	t.Helper()
	var buf bytes.Buffer

	for {
		op := c.NextWriteOperation()
		if op.Kind == WriteOperationYield {
			break
		}
		n := 0
		for _, b := range op.IOVecs {
			buf.Write(b)
			n += len(b)
		}
		c.ReportWriteResult(WriteResult{N: n})
		if op.Kind == WriteOperationClose {
			break
		}
	}

	var frames []*FrameHeader
	br := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	for {
		frh, err := ReadFrameFromWithSize(br, 0)
		if err != nil {
			break
		}
		frames = append(frames, frh)
	}
	return frames
}

func TestHandshakePrefaceAndSettings(t *testing.T) {
	c := NewServerConnection(NewServerConfig(nil))

	// Drain the engine's own initial SETTINGS before feeding the client's.
	initial := readAllFrames(t, c)
	if len(initial) != 1 || initial[0].Type() != FrameSettings {
		t.Fatalf("expected one SETTINGS frame, got %#v", initial)
	}

	input := append([]byte(ClientPreface), serializeFrame(0, &Settings{})...)
	if _, err := c.Read(input); err != nil {
		t.Fatalf("Read: %v", err)
	}

	frames := readAllFrames(t, c)
	if len(frames) != 1 {
		t.Fatalf("expected one SETTINGS ack, got %d frames", len(frames))
	}
	st, ok := frames[0].Body().(*Settings)
	if !ok || !st.IsAck() {
		t.Fatalf("expected SETTINGS ack, got %#v", frames[0].Body())
	}
}

func TestSmallGET(t *testing.T) {
	var gotMethod, gotPath string
	handler := func(ctx *StreamContext) {
		gotMethod, gotPath = ctx.Method(), ctx.Path()
		ctx.SetStatusCode(200)
		ctx.Write([]byte("hi"))
	}

	c := NewServerConnection(NewServerConfig(handler))
	readAllFrames(t, c) // drain initial SETTINGS

	input := append([]byte(ClientPreface), serializeFrame(0, &Settings{})...)
	input = append(input, headersFrameBytes(t, 1, true, [][2]string{
		{":method", "GET"},
		{":scheme", "https"},
		{":authority", "x"},
		{":path", "/"},
	})...)

	if _, err := c.Read(input); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if gotMethod != "GET" || gotPath != "/" {
		t.Fatalf("handler saw method=%q path=%q", gotMethod, gotPath)
	}

	frames := readAllFrames(t, c)
	var sawHeaders, sawData bool
	for _, frh := range frames {
		switch fr := frh.Body().(type) {
		case *Settings:
			// the SETTINGS ack, already exercised above
		case *Headers:
			sawHeaders = true
			if frh.Stream() != 1 || !fr.EndHeaders() {
				t.Fatalf("unexpected HEADERS frame: %#v", fr)
			}
		case *Data:
			sawData = true
			if frh.Stream() != 1 || !fr.EndStream() || string(fr.Data()) != "hi" {
				t.Fatalf("unexpected DATA frame: %q endStream=%v", fr.Data(), fr.EndStream())
			}
		}
	}
	if !sawHeaders || !sawData {
		t.Fatalf("expected HEADERS and DATA in response, got %d frames", len(frames))
	}

	if _, ok := c.streams[1]; ok {
		t.Fatal("stream 1 should be closed and removed after full request/response")
	}
}

func TestFlowControlBlockAndResume(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 25)
	handler := func(ctx *StreamContext) {
		ctx.SetStatusCode(200)
		ctx.Write(body)
	}

	c := NewServerConnection(NewServerConfig(handler))
	readAllFrames(t, c)

	peerSettings := &Settings{}
	peerSettings.SetInitialWindowSize(10)

	input := append([]byte(ClientPreface), serializeFrame(0, peerSettings)...)
	input = append(input, headersFrameBytes(t, 1, true, [][2]string{
		{":method", "GET"},
		{":scheme", "https"},
		{":authority", "x"},
		{":path", "/"},
	})...)

	if _, err := c.Read(input); err != nil {
		t.Fatalf("Read: %v", err)
	}

	frames := readAllFrames(t, c)
	var data *Data
	for _, frh := range frames {
		if d, ok := frh.Body().(*Data); ok {
			data = d
		}
	}
	if data == nil || data.Len() != 10 || data.EndStream() {
		t.Fatalf("expected a 10-byte non-final DATA frame, got %#v", data)
	}

	s := c.streams[1]
	if s == nil {
		t.Fatal("stream 1 should still be open, blocked on flow control")
	}
	if s.SendWindow() != 0 {
		t.Fatalf("expected exhausted send window, got %d", s.SendWindow())
	}

	wu := &WindowUpdate{}
	wu.SetIncrement(15)
	if _, err := c.Read(serializeFrame(1, wu)); err != nil {
		t.Fatalf("Read WINDOW_UPDATE: %v", err)
	}

	frames = readAllFrames(t, c)
	data = nil
	for _, frh := range frames {
		if d, ok := frh.Body().(*Data); ok {
			data = d
		}
	}
	if data == nil || data.Len() != 15 || !data.EndStream() {
		t.Fatalf("expected a 15-byte final DATA frame, got %#v", data)
	}

	if _, ok := c.streams[1]; ok {
		t.Fatal("stream 1 should be closed after the final DATA frame")
	}
}

func TestProtocolErrorDataOnIdleStream(t *testing.T) {
	c := NewServerConnection(NewServerConfig(nil))
	readAllFrames(t, c)

	input := append([]byte(ClientPreface), serializeFrame(0, &Settings{})...)
	d := &Data{}
	d.SetData([]byte("oops"))
	input = append(input, serializeFrame(3, d)...)

	if _, err := c.Read(input); err == nil {
		t.Fatal("expected an error delivering DATA on an idle stream")
	}

	frames := readAllFrames(t, c)
	var sawGoAway bool
	for _, frh := range frames {
		if ga, ok := frh.Body().(*GoAway); ok {
			sawGoAway = true
			if ga.Code() != ProtocolError {
				t.Fatalf("expected ProtocolError, got %v", ga.Code())
			}
			if ga.Stream() != 0 {
				t.Fatalf("expected last-stream-id 0 (no prior accepted stream), got %d", ga.Stream())
			}
		}
	}
	if !sawGoAway {
		t.Fatal("expected a GOAWAY frame after the protocol error")
	}
	if !c.IsClosed() {
		t.Fatal("connection should be closed after a connection-scoped error")
	}
}

func TestRstStreamOnIdleStream(t *testing.T) {
	c := NewServerConnection(NewServerConfig(nil))
	readAllFrames(t, c)

	input := append([]byte(ClientPreface), serializeFrame(0, &Settings{})...)
	rst := &RstStream{}
	rst.SetCode(CancelError)
	input = append(input, serializeFrame(7, rst)...)

	if _, err := c.Read(input); err == nil {
		t.Fatal("expected an error delivering RST_STREAM on an idle stream")
	}

	var sawGoAway bool
	for _, frh := range readAllFrames(t, c) {
		if ga, ok := frh.Body().(*GoAway); ok {
			sawGoAway = true
			if ga.Code() != ProtocolError {
				t.Fatalf("expected ProtocolError, got %v", ga.Code())
			}
		}
	}
	if !sawGoAway {
		t.Fatal("expected a GOAWAY frame after the protocol error")
	}
	if !c.IsClosed() {
		t.Fatal("connection should be closed after a connection-scoped error")
	}
}

func TestMaxConcurrentStreamsRefused(t *testing.T) {
	var bodies []*StreamBody
	handler := func(ctx *StreamContext) {
		ctx.SetStatusCode(200)
		bodies = append(bodies, ctx.RespondStreaming(true))
	}

	cfg := NewServerConfig(handler)
	cfg.MaxConcurrentStreams = 1
	c := NewServerConnection(cfg)
	readAllFrames(t, c)

	req := func(stream uint32) []byte {
		return headersFrameBytes(t, stream, true, [][2]string{
			{":method", "GET"},
			{":scheme", "https"},
			{":authority", "x"},
			{":path", "/"},
		})
	}

	input := append([]byte(ClientPreface), serializeFrame(0, &Settings{})...)
	input = append(input, req(1)...)
	input = append(input, req(3)...)

	if _, err := c.Read(input); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(bodies) != 1 {
		t.Fatalf("handler should only have run once under MaxConcurrentStreams=1, ran %d times", len(bodies))
	}
	if _, ok := c.streams[1]; !ok {
		t.Fatal("stream 1 should still be open (streaming response not yet closed)")
	}
	if _, ok := c.streams[3]; ok {
		t.Fatal("stream 3 should have been refused and removed")
	}

	var sawRefusal bool
	for _, frh := range readAllFrames(t, c) {
		if rst, ok := frh.Body().(*RstStream); ok && frh.Stream() == 3 {
			sawRefusal = true
			if rst.Code() != RefusedStreamError {
				t.Fatalf("expected RefusedStreamError, got %v", rst.Code())
			}
		}
	}
	if !sawRefusal {
		t.Fatal("expected a RST_STREAM(REFUSED_STREAM) for stream 3")
	}

	bodies[0].Close()
}

func TestRespondStreamingFlushesHeadersIndependentlyOfBody(t *testing.T) {
	var body *StreamBody
	handler := func(ctx *StreamContext) {
		ctx.SetStatusCode(200)
		body = ctx.RespondStreaming(true)
	}

	c := NewServerConnection(NewServerConfig(handler))
	readAllFrames(t, c)

	input := append([]byte(ClientPreface), serializeFrame(0, &Settings{})...)
	input = append(input, headersFrameBytes(t, 1, true, [][2]string{
		{":method", "GET"},
		{":scheme", "https"},
		{":authority", "x"},
		{":path", "/"},
	})...)

	if _, err := c.Read(input); err != nil {
		t.Fatalf("Read: %v", err)
	}

	frames := readAllFrames(t, c)
	var sawHeaders bool
	for _, frh := range frames {
		if h, ok := frh.Body().(*Headers); ok {
			sawHeaders = true
			if h.EndStream() {
				t.Fatal("headers flushed ahead of the body must not carry END_STREAM")
			}
		}
		if _, ok := frh.Body().(*Data); ok {
			t.Fatal("no DATA should have been queued before the handle was written to")
		}
	}
	if !sawHeaders {
		t.Fatal("expected HEADERS to flush immediately from RespondStreaming(true)")
	}
	if _, ok := c.streams[1]; !ok {
		t.Fatal("stream 1 should remain open until the StreamBody is closed")
	}

	body.Write([]byte("chunk"))
	body.Close()

	var dataFrames []*Data
	for _, frh := range readAllFrames(t, c) {
		if d, ok := frh.Body().(*Data); ok {
			dataFrames = append(dataFrames, d)
		}
	}
	if len(dataFrames) == 0 {
		t.Fatal("expected at least one DATA frame once the StreamBody was written to and closed")
	}
	if last := dataFrames[len(dataFrames)-1]; !last.EndStream() {
		t.Fatal("final DATA frame from Close should carry END_STREAM")
	}
	if !bytes.Contains(dataFrames[0].Data(), []byte("chunk")) {
		t.Fatalf("expected the written chunk in the body, got %q", dataFrames[0].Data())
	}
	if _, ok := c.streams[1]; ok {
		t.Fatal("stream 1 should be closed after the StreamBody was closed")
	}
}
