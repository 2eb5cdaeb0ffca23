package http2

// StreamState is one of the states of RFC 7540 §5.1's stream state
// machine.
type StreamState int8

const (
	StreamStateIdle StreamState = iota
	StreamStateReservedLocal
	StreamStateReservedRemote
	StreamStateOpen
	StreamStateHalfClosedLocal
	StreamStateHalfClosedRemote
	StreamStateClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamStateIdle:
		return "idle"
	case StreamStateReservedLocal:
		return "reserved(local)"
	case StreamStateReservedRemote:
		return "reserved(remote)"
	case StreamStateOpen:
		return "open"
	case StreamStateHalfClosedLocal:
		return "half-closed(local)"
	case StreamStateHalfClosedRemote:
		return "half-closed(remote)"
	case StreamStateClosed:
		return "closed"
	}
	return "unknown"
}

// Stream tracks the per-stream state the connection engine needs:
// flow-control windows, the state machine position, the priority node
// this stream sits at, and the caller-defined payload (a request or
// response context) carried via Data.
type Stream struct {
	id    uint32
	state StreamState

	// recvWindow is how many more bytes of DATA this endpoint will
	// accept before a WINDOW_UPDATE must be sent; sendWindow is how
	// many more bytes this endpoint may send before it must wait for
	// the peer's WINDOW_UPDATE.
	recvWindow int32
	sendWindow int32

	// recvUnacked is bytes released into the stream's body buffer since
	// the last stream-level WINDOW_UPDATE; see maybeCreditRecvWindow.
	recvUnacked int32

	weight    uint8
	parent    uint32
	exclusive bool

	trailers bool

	// counted reports whether this stream is currently charged against
	// the local MAX_CONCURRENT_STREAMS budget.
	counted bool
	// refused marks a peer-initiated stream that arrived over the
	// MAX_CONCURRENT_STREAMS limit; its header block is still decoded
	// to keep HPACK state in sync, but it's rejected once decoded.
	refused bool

	data interface{}
}

// NewStream creates a Stream in the idle state with the given initial
// flow-control windows.
func NewStream(id uint32, recvWindow, sendWindow int32, data interface{}) *Stream {
	return &Stream{
		id:         id,
		state:      StreamStateIdle,
		recvWindow: recvWindow,
		sendWindow: sendWindow,
		weight:     16, // RFC 7540 §5.3.5 default weight
		data:       data,
	}
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) State() StreamState { return s.state }

func (s *Stream) SetState(state StreamState) { s.state = state }

// IsClosed reports whether no further frames may be sent or received
// in either direction on this stream.
func (s *Stream) IsClosed() bool { return s.state == StreamStateClosed }

// CanRecv reports whether DATA/HEADERS frames may still arrive from
// the peer on this stream.
func (s *Stream) CanRecv() bool {
	switch s.state {
	case StreamStateHalfClosedRemote, StreamStateClosed:
		return false
	}
	return true
}

// CanSend reports whether this endpoint may still send DATA/HEADERS
// on this stream.
func (s *Stream) CanSend() bool {
	switch s.state {
	case StreamStateHalfClosedLocal, StreamStateClosed:
		return false
	}
	return true
}

func (s *Stream) RecvWindow() int32 { return s.recvWindow }

func (s *Stream) SendWindow() int32 { return s.sendWindow }

func (s *Stream) IncrRecvWindow(n int32) { s.recvWindow += n }

func (s *Stream) IncrSendWindow(n int32) { s.sendWindow += n }

// RecvUnacked returns bytes released since the last stream-level
// WINDOW_UPDATE.
func (s *Stream) RecvUnacked() int32 { return s.recvUnacked }

func (s *Stream) AddRecvUnacked(n int32) { s.recvUnacked += n }

func (s *Stream) ResetRecvUnacked() { s.recvUnacked = 0 }

func (s *Stream) SetSendWindow(n int32) { s.sendWindow = n }

func (s *Stream) SetRecvWindow(n int32) { s.recvWindow = n }

func (s *Stream) Weight() uint8 { return s.weight }

func (s *Stream) SetWeight(w uint8) { s.weight = w }

func (s *Stream) Parent() uint32 { return s.parent }

func (s *Stream) SetParent(parent uint32, exclusive bool) {
	s.parent = parent
	s.exclusive = exclusive
}

func (s *Stream) Exclusive() bool { return s.exclusive }

// Trailers reports whether this stream has already completed its
// first header block, so that a later HEADERS frame carries trailers.
func (s *Stream) Trailers() bool { return s.trailers }

func (s *Stream) SetTrailers(v bool) { s.trailers = v }

func (s *Stream) Data() interface{} { return s.data }

func (s *Stream) SetData(data interface{}) { s.data = data }

// IsPushPromised reports whether id is reserved for server push, i.e.
// an even-numbered stream id greater than zero.
func IsPushPromised(id uint32) bool {
	return id != 0 && id%2 == 0
}

// IsClientInitiated reports whether id belongs to the odd-numbered
// space a client allocates request streams from.
func IsClientInitiated(id uint32) bool {
	return id%2 == 1
}
