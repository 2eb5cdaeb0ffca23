package http2

// Config configures a Connection. Zero value is usable: each numeric
// SETTINGS field left at 0 falls back to the RFC 7540 default reported
// by Settings' accessors. EnablePush is applied as given, so a zero
// Config advertises push as disabled.
type Config struct {
	// MaxConcurrentStreams bounds the number of streams this endpoint
	// will allow the peer to have open simultaneously.
	MaxConcurrentStreams uint32
	// InitialWindowSize is the per-stream flow-control window
	// advertised to the peer.
	InitialWindowSize uint32
	// MaxFrameSize is the largest frame payload this endpoint will
	// accept.
	MaxFrameSize uint32
	// HeaderTableSize bounds the HPACK dynamic table size advertised
	// to the peer.
	HeaderTableSize uint32
	// MaxHeaderListSize bounds the uncompressed size of a header list
	// this endpoint will accept, 0 meaning unlimited.
	MaxHeaderListSize uint32
	// EnablePush controls whether this endpoint accepts PUSH_PROMISE
	// frames from the peer.
	EnablePush bool

	// DisableHPACKCompression turns off Huffman encoding in the HPACK
	// encoder, for conformance tests that assert on plaintext wire
	// bytes.
	DisableHPACKCompression bool

	// PingInterval is advisory only: the core never schedules its own
	// pings (§5), but callers building a keepalive loop on top of the
	// engine read this field to decide their own cadence.
	PingInterval int64 // nanoseconds

	// Logger is carried on the Config for callers; no code in this
	// package writes diagnostic output to it.
	Logger Logger

	// IsServer selects which half of the stream-id space this endpoint
	// allocates its own (push/locally-initiated) streams from.
	IsServer bool

	// Handler is invoked once per request stream, after the request's
	// END_STREAM has arrived; it is not invoked while the request is
	// still open (the server role only; ignored for a client-role
	// Connection, which instead expects the caller to drive requests via
	// Connection.Request).
	Handler RequestHandler

	// ResponseHandler is invoked once per response stream, after the
	// response's END_STREAM has arrived, on a client-role Connection;
	// ignored for a server.
	ResponseHandler RequestHandler
}

func (c *Config) settings() Settings {
	var st Settings
	st.Reset()

	if c.MaxConcurrentStreams > 0 {
		st.SetMaxConcurrentStreams(c.MaxConcurrentStreams)
	}
	if c.InitialWindowSize > 0 {
		st.SetInitialWindowSize(c.InitialWindowSize)
	}
	if c.MaxFrameSize > 0 {
		st.SetMaxFrameSize(c.MaxFrameSize)
	}
	if c.HeaderTableSize > 0 {
		st.SetHeaderTableSize(c.HeaderTableSize)
	}
	if c.MaxHeaderListSize > 0 {
		st.SetMaxHeaderListSize(c.MaxHeaderListSize)
	}
	st.SetPush(c.EnablePush)

	return st
}

func (c *Config) logger() Logger {
	if c.Logger == nil {
		return nopLogger{}
	}
	return c.Logger
}
