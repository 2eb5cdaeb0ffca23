package http2

import "github.com/coreh2/engine/http2utils"

// recvBuffer is a growable byte accumulator the connection engine
// feeds from Connection.Read and drains one frame at a time, in place
// of a blocking bufio.Reader over net.Conn: bytes arrive whenever the
// caller has them, and frameAvailable reports whether enough have
// accumulated yet.
type recvBuffer struct {
	buf []byte
	off int // bytes before off have already been consumed
}

// append copies p onto the end of the buffer, compacting already
// consumed bytes first so the buffer doesn't grow without bound.
func (r *recvBuffer) append(p []byte) {
	if r.off > 0 {
		r.buf = append(r.buf[:0], r.buf[r.off:]...)
		r.off = 0
	}
	r.buf = append(r.buf, p...)
}

func (r *recvBuffer) bytes() []byte {
	return r.buf[r.off:]
}

func (r *recvBuffer) consume(n int) {
	r.off += n
	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	}
}

// frameAvailable reports whether a complete frame header,
// header+payload is present, returning its total wire length.
func (r *recvBuffer) frameAvailable(maxLen uint32) (int, bool, error) {
	avail := r.bytes()
	if len(avail) < DefaultFrameSize {
		return 0, false, nil
	}
	length := int(http2utils.BytesToUint24(avail[:3]))
	if maxLen != 0 && length > int(maxLen) {
		return 0, false, NewConnError(FrameSizeError, "frame length exceeds negotiated SETTINGS_MAX_FRAME_SIZE")
	}
	total := DefaultFrameSize + length
	if len(avail) < total {
		return 0, false, nil
	}
	return total, true, nil
}
