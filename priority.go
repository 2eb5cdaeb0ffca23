package http2

import (
	"github.com/coreh2/engine/http2utils"
)

var _ Frame = &Priority{}

// Priority represents the Priority frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	stream    uint32
	weight    byte
	exclusive bool
}

func (pry *Priority) Type() FrameType {
	return FramePriority
}

// Reset resets priority fields.
func (pry *Priority) Reset() {
	pry.stream = 0
	pry.weight = 0
	pry.exclusive = false
}

func (pry *Priority) CopyTo(p *Priority) {
	p.stream = pry.stream
	p.weight = pry.weight
	p.exclusive = pry.exclusive
}

// Exclusive reports whether this PRIORITY frame requests exclusive
// reparenting (RFC 7540 §5.3.1): the dependent stream becomes the
// sole child of Stream, taking over its other children.
func (pry *Priority) Exclusive() bool {
	return pry.exclusive
}

func (pry *Priority) SetExclusive(v bool) {
	pry.exclusive = v
}

// Stream returns the Priority frame stream.
func (pry *Priority) Stream() uint32 {
	return pry.stream
}

// SetStream sets the Priority frame stream.
func (pry *Priority) SetStream(stream uint32) {
	pry.stream = stream & (1<<31 - 1)
}

// Weight returns the Priority frame weight.
func (pry *Priority) Weight() byte {
	return pry.weight
}

// SetWeight sets the Priority frame weight.
func (pry *Priority) SetWeight(w byte) {
	pry.weight = w
}

func (pry *Priority) Deserialize(fr *FrameHeader) (err error) {
	if len(fr.payload) < 5 {
		err = ErrMissingBytes
	} else {
		raw := http2utils.BytesToUint32(fr.payload)
		pry.exclusive = raw&(1<<31) != 0
		pry.stream = raw & (1<<31 - 1)
		pry.weight = fr.payload[4]
	}

	return
}

func (pry *Priority) Serialize(fr *FrameHeader) {
	raw := pry.stream
	if pry.exclusive {
		raw |= 1 << 31
	}
	fr.payload = http2utils.AppendUint32Bytes(fr.payload[:0], raw)
	fr.payload = append(fr.payload, pry.weight)
}
