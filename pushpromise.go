package http2

import (
	"github.com/coreh2/engine/http2utils"
)

var (
	_ Frame            = &PushPromise{}
	_ FrameWithHeaders = &PushPromise{}
)

// PushPromise https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	pad        bool
	endHeaders bool
	stream     uint32
	rawHeaders []byte // header block fragment
}

func (pp *PushPromise) Type() FrameType {
	return FramePushPromise
}

func (pp *PushPromise) Reset() {
	pp.pad = false
	pp.endHeaders = false
	pp.stream = 0
	pp.rawHeaders = pp.rawHeaders[:0]
}

// Headers returns the (possibly partial) header block fragment.
func (pp *PushPromise) Headers() []byte {
	return pp.rawHeaders
}

func (pp *PushPromise) SetHeader(h []byte) {
	pp.rawHeaders = append(pp.rawHeaders[:0], h...)
}

func (pp *PushPromise) Write(b []byte) (int, error) {
	n := len(b)
	pp.rawHeaders = append(pp.rawHeaders, b...)
	return n, nil
}

// Stream returns the promised stream id.
func (pp *PushPromise) Stream() uint32 {
	return pp.stream
}

// SetStream sets the promised stream id.
func (pp *PushPromise) SetStream(stream uint32) {
	pp.stream = stream & (1<<31 - 1)
}

// EndHeaders reports whether this frame carries the final segment of
// the header block.
func (pp *PushPromise) EndHeaders() bool {
	return pp.endHeaders
}

// SetEndHeaders sets the END_HEADERS flag.
func (pp *PushPromise) SetEndHeaders(value bool) {
	pp.endHeaders = value
}

func (pp *PushPromise) SetPadding(value bool) {
	pp.pad = value
}

func (pp *PushPromise) Padding() bool {
	return pp.pad
}

func (pp *PushPromise) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return err
		}
	}

	if len(payload) < 4 {
		return ErrMissingBytes
	}

	pp.stream = http2utils.BytesToUint32(payload) & (1<<31 - 1)
	pp.rawHeaders = append(pp.rawHeaders[:0], payload[4:]...)
	pp.endHeaders = fr.Flags().Has(FlagEndHeaders)

	return nil
}

func (pp *PushPromise) Serialize(fr *FrameHeader) {
	if pp.endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}

	payload := fr.payload[:0]
	payload = http2utils.AppendUint32Bytes(payload, pp.stream)
	payload = append(payload, pp.rawHeaders...)

	if pp.pad {
		fr.SetFlags(fr.Flags().Add(FlagPadded))
		payload = http2utils.AddPadding(payload)
	}

	fr.payload = payload
}
