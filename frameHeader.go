package http2

import (
	"bufio"
	"io"
	"sync"

	"github.com/coreh2/engine/http2utils"
)

const (
	// DefaultFrameSize is the fixed size of the frame header.
	//
	// http://httpwg.org/specs/rfc7540.html#FrameHeader
	DefaultFrameSize = 9
	// defaultMaxLen is the SETTINGS_MAX_FRAME_SIZE default, used until a
	// peer advertises a larger (or smaller, down to this floor) value.
	//
	// https://httpwg.org/specs/rfc7540.html#SETTINGS_MAX_FRAME_SIZE
	defaultMaxLen = 1 << 14
)

var frameHeaderPool = sync.Pool{
	New: func() interface{} {
		return &FrameHeader{}
	},
}

// FrameHeader is the frame representation of the HTTP/2 protocol: the
// fixed 9-octet header plus the decoded/encoded payload body.
//
// Use AcquireFrameHeader instead of creating a FrameHeader every time,
// and ReleaseFrameHeader to return it.
//
// A FrameHeader instance MUST NOT be used from different goroutines;
// the core itself never does (see Connection).
//
// https://tools.ietf.org/html/rfc7540#section-4.1
type FrameHeader struct {
	length int        // 24 bits
	kind   FrameType  // 8 bits
	flags  FrameFlags // 8 bits
	stream uint32     // 31 bits

	maxLen uint32

	rawHeader [DefaultFrameSize]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader gets a FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	frh := frameHeaderPool.Get().(*FrameHeader)
	frh.Reset()
	return frh
}

// ReleaseFrameHeader resets and returns frh to the pool.
func ReleaseFrameHeader(frh *FrameHeader) {
	if frh.fr != nil {
		frh.fr.Reset()
	}
	frameHeaderPool.Put(frh)
}

// Reset resets header values.
func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = defaultMaxLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

// Type returns the frame type.
//
// https://httpwg.org/specs/rfc7540.html#FrameTypes
func (frh *FrameHeader) Type() FrameType {
	return frh.kind
}

// Flags returns the frame's flags octet.
func (frh *FrameHeader) Flags() FrameFlags {
	return frh.flags
}

// SetFlags overwrites the flags octet.
func (frh *FrameHeader) SetFlags(flags FrameFlags) {
	frh.flags = flags
}

// Stream returns the stream id of the current frame.
func (frh *FrameHeader) Stream() uint32 {
	return frh.stream
}

// SetStream sets the stream id on the current frame, masked to the
// 31-bit stream identifier space.
func (frh *FrameHeader) SetStream(stream uint32) {
	frh.stream = stream & (1<<31 - 1)
}

// Len returns the payload length as declared by the header.
func (frh *FrameHeader) Len() int {
	return frh.length
}

// MaxLen returns the negotiated maximum payload length.
func (frh *FrameHeader) MaxLen() uint32 {
	return frh.maxLen
}

// SetMaxLen sets the negotiated maximum payload length
// (SETTINGS_MAX_FRAME_SIZE).
func (frh *FrameHeader) SetMaxLen(n uint32) {
	frh.maxLen = n
}

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(http2utils.BytesToUint24(header[:3]))
	frh.kind = FrameType(header[3])
	frh.flags = FrameFlags(header[4])
	frh.stream = http2utils.BytesToUint32(header[5:]) & (1<<31 - 1)
}

func (frh *FrameHeader) parseHeader(header []byte) {
	http2utils.Uint24ToBytes(header[:3], uint32(frh.length))
	header[3] = byte(frh.kind)
	header[4] = byte(frh.flags)
	http2utils.Uint32ToBytes(header[5:], frh.stream)
}

// ReadFrameFrom reads a single frame from br using the default max
// frame length.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	return ReadFrameFromWithSize(br, defaultMaxLen)
}

// ReadFrameFromWithSize reads a single frame from br, rejecting any
// frame whose declared length exceeds max (the negotiated
// SETTINGS_MAX_FRAME_SIZE).
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	_, err := frh.readFrom(br)
	if err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}

	return frh, nil
}

// ReadFrom reads a frame from br.
//
// This function returns the number of bytes read and/or an error.
// Unlike io.ReaderFrom this method does not read until io.EOF: it
// reads exactly one frame.
func (frh *FrameHeader) ReadFrom(br *bufio.Reader) (int64, error) {
	return frh.readFrom(br)
}

func (frh *FrameHeader) readFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(DefaultFrameSize)
	if err != nil {
		return 0, err
	}

	br.Discard(DefaultFrameSize)

	rn := int64(DefaultFrameSize)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		return rn, err
	}

	if frh.kind < minFrameType || frh.kind > maxFrameType {
		if frh.length > 0 {
			if _, err := br.Discard(frh.length); err != nil {
				return rn, err
			}
			rn += int64(frh.length)
		}
		frh.fr = newFrame(FrameUnknown)
		return rn, frh.fr.Deserialize(frh)
	}

	frh.fr = newFrame(frh.kind)

	if frh.length > 0 {
		frh.payload = http2utils.Resize(frh.payload, frh.length)

		n, err := io.ReadFull(br, frh.payload)
		rn += int64(n)
		if err != nil {
			return rn, err
		}
	} else {
		frh.payload = frh.payload[:0]
	}

	return rn, frh.fr.Deserialize(frh)
}

// WriteTo writes the frame to w.
//
// This function returns the number of bytes written and/or an error.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (int64, error) {
	frh.fr.Serialize(frh)

	frh.length = len(frh.payload)
	frh.parseHeader(frh.rawHeader[:])

	n, err := w.Write(frh.rawHeader[:])
	wb := int64(n)
	if err != nil {
		return wb, err
	}

	n, err = w.Write(frh.payload)
	wb += int64(n)

	return wb, err
}

// Body returns the decoded frame payload, or nil if frh has not been
// read (or had SetBody called) yet.
func (frh *FrameHeader) Body() Frame {
	return frh.fr
}

// SetBody attaches fr as frh's payload and records its frame type.
func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("http2: FrameHeader.SetBody called with a nil Frame")
	}

	frh.kind = fr.Type()
	frh.fr = fr
}

func (frh *FrameHeader) setPayload(payload []byte) {
	frh.payload = append(frh.payload[:0], payload...)
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		return NewConnError(FrameSizeError, "frame length exceeds negotiated SETTINGS_MAX_FRAME_SIZE")
	}
	return nil
}

func (frh *FrameHeader) appendCheckingLen(dst, src []byte) ([]byte, error) {
	n := len(src)
	if frh.maxLen > 0 && uint32(n+len(dst)) > frh.maxLen {
		return dst, NewConnError(FrameSizeError, "encoded frame exceeds negotiated SETTINGS_MAX_FRAME_SIZE")
	}

	dst = append(dst, src...)
	frh.length = len(dst)

	return dst, nil
}
