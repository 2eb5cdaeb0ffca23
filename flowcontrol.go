package http2

// recvWindowUpdateThreshold is the minimum number of released bytes
// this endpoint batches before sending a WINDOW_UPDATE, avoiding a
// WINDOW_UPDATE per DATA frame on a connection with a large window.
// Matches the default response/request body buffer size so a single
// full buffer's worth of data always clears the threshold.
const recvWindowUpdateThreshold = 4096

// flowControl tracks one direction (send or recv) of one side
// (connection-level or a single stream) of HTTP/2 flow control, as
// described in RFC 7540 §6.9.
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type flowControl struct {
	window int64
}

func newFlowControl(initial uint32) *flowControl {
	return &flowControl{window: int64(initial)}
}

// Available returns how many bytes may currently be sent/accepted.
func (f *flowControl) Available() int64 {
	return f.window
}

// Consume accounts for n bytes of DATA having been sent/received,
// returning ErrWouldBlock if that would drive the window negative.
func (f *flowControl) Consume(n int64) error {
	if n > f.window {
		return ErrWouldBlock
	}
	f.window -= n
	return nil
}

// Increment applies a WINDOW_UPDATE increment, rejecting values that
// would overflow the window past 2^31-1 (RFC 7540 §6.9.1).
func (f *flowControl) Increment(n uint32) error {
	next := f.window + int64(n)
	if next > maxWindowSize {
		return NewConnError(FlowControlError, "WINDOW_UPDATE overflows flow-control window")
	}
	f.window = next
	return nil
}

// connFlowController bundles the connection-wide send/recv windows
// plus per-stream windows, applying SETTINGS_INITIAL_WINDOW_SIZE
// changes to every open stream as RFC 7540 §6.9.2 requires.
type connFlowController struct {
	send *flowControl
	recv *flowControl

	initialSendWindow uint32

	// recvUnacked is bytes released into stream body buffers since the
	// last connection-level WINDOW_UPDATE; see maybeCreditRecvWindow.
	recvUnacked int64
}

func newConnFlowController() *connFlowController {
	return &connFlowController{
		send:              newFlowControl(defaultInitialWindowSize),
		recv:              newFlowControl(defaultInitialWindowSize),
		initialSendWindow: defaultInitialWindowSize,
	}
}

// ApplyInitialWindowSize updates the baseline used for new streams
// and rewrites every existing stream's send window by the delta, per
// RFC 7540 §6.9.2.
func (c *connFlowController) ApplyInitialWindowSize(streams map[uint32]*Stream, newInitial uint32) error {
	delta := int64(newInitial) - int64(c.initialSendWindow)
	c.initialSendWindow = newInitial

	for _, s := range streams {
		next := int64(s.SendWindow()) + delta
		if next > maxWindowSize || next < -maxWindowSize {
			return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE change overflows a stream window")
		}
		s.SetSendWindow(int32(next))
	}

	return nil
}
