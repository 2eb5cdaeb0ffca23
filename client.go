package http2

// NewClientConfig returns a Config suitable for a client-role
// Connection: IsServer is forced false and responseHandler is
// installed as the per-response callback.
func NewClientConfig(responseHandler RequestHandler) Config {
	cfg := Config{}
	cfg.IsServer = false
	cfg.ResponseHandler = responseHandler
	return cfg
}

// NewClientConnection builds a Connection that immediately queues the
// connection preface and an initial SETTINGS frame, ready to send
// requests via Request.
func NewClientConnection(cfg Config) *Connection {
	cfg.IsServer = false
	return Create(cfg)
}

// Request queues a new request on a freshly allocated odd stream id:
// a HEADERS frame built from method/path/authority/scheme/header, then
// a DATA frame carrying body if non-empty. The response is delivered
// to Config.ResponseHandler once it completes.
func (c *Connection) Request(method, path, authority, scheme string, header []*HeaderField, body []byte) (uint32, error) {
	if c.cfg.IsServer {
		return 0, NewConnError(ProtocolError, "Request is only valid on a client-role Connection")
	}

	id := c.nextLocalID
	c.nextLocalID += 2

	s := NewStream(id, int32(c.local.InitialWindowSize()), int32(c.peer.InitialWindowSize()), nil)
	s.SetState(StreamStateOpen)
	c.streams[id] = s
	c.tree.ensure(id)

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

	h := &Headers{}
	var err error
	h.rawHeaders, err = c.hpackEnc.Write(h.rawHeaders)
	if err != nil {
		return 0, err
	}
	h.SetEndHeaders(true)
	h.SetEndStream(len(body) == 0)
	c.out.queueFrame(id, h)

	if len(body) > 0 {
		d := &Data{}
		d.SetData(body)
		d.SetEndStream(true)
		c.out.queueFrame(id, d)
	}

	return id, nil
}
