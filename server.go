package http2

// NewServerConfig returns a Config suitable for a server-role
// Connection: IsServer is forced true and handler is installed as the
// per-request callback.
func NewServerConfig(handler RequestHandler) Config {
	cfg := Config{}
	cfg.IsServer = true
	cfg.Handler = handler
	cfg.EnablePush = true
	return cfg
}

// NewServerConnection builds a Connection ready to read a client
// connection preface followed by the client's initial SETTINGS frame.
func NewServerConnection(cfg Config) *Connection {
	cfg.IsServer = true
	return Create(cfg)
}
