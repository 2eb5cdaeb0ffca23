package http2

import (
	"github.com/coreh2/engine/http2utils"
)

// Default values and identifiers for the settings defined by RFC 7540 §6.5.2.
const (
	defaultHeaderTableSize      = 4096
	defaultEnablePush           = 1
	defaultMaxConcurrentStreams = 1<<31 - 1
	defaultInitialWindowSize    = 65535
	defaultMaxFrameSize         = 1 << 14
	defaultMaxHeaderListSize    = 0 // 0 means unlimited

	maxWindowSize = 1<<31 - 1
)

type settingID uint16

const (
	settingHeaderTableSize      settingID = 0x1
	settingEnablePush           settingID = 0x2
	settingMaxConcurrentStreams settingID = 0x3
	settingInitialWindowSize    settingID = 0x4
	settingMaxFrameSize         settingID = 0x5
	settingMaxHeaderListSize    settingID = 0x6
)

var _ Frame = &Settings{}

// Settings represents a SETTINGS frame: a set of connection-level
// configuration parameters exchanged by both peers during the
// handshake, and at any point afterwards.
//
// The zero value holds the RFC 7540 defaults.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack bool

	headerTableSize      uint32
	enablePush           bool
	maxConcurrentStreams uint32
	initialWindowSize    uint32
	maxFrameSize         uint32
	maxHeaderListSize    uint32

	// present tracks which settings were explicitly decoded or set, so
	// Serialize only emits the parameters that were actually changed.
	present uint8
}

const (
	presentHeaderTableSize uint8 = 1 << iota
	presentEnablePush
	presentMaxConcurrentStreams
	presentInitialWindowSize
	presentMaxFrameSize
	presentMaxHeaderListSize
)

func (st *Settings) Type() FrameType {
	return FrameSettings
}

// Reset resets st to the RFC 7540 default values.
func (st *Settings) Reset() {
	st.ack = false
	st.headerTableSize = defaultHeaderTableSize
	st.enablePush = true
	st.maxConcurrentStreams = defaultMaxConcurrentStreams
	st.initialWindowSize = defaultInitialWindowSize
	st.maxFrameSize = defaultMaxFrameSize
	st.maxHeaderListSize = defaultMaxHeaderListSize
	st.present = 0
}

// IsAck reports whether this SETTINGS frame is an acknowledgement.
func (st *Settings) IsAck() bool {
	return st.ack
}

// SetAck marks this frame as a SETTINGS acknowledgement; an ack frame
// carries no parameters.
func (st *Settings) SetAck(ack bool) {
	st.ack = ack
}

func (st *Settings) HeaderTableSize() uint32 {
	if st.headerTableSize == 0 && st.present&presentHeaderTableSize == 0 {
		return defaultHeaderTableSize
	}
	return st.headerTableSize
}

func (st *Settings) SetHeaderTableSize(n uint32) {
	st.headerTableSize = n
	st.present |= presentHeaderTableSize
}

func (st *Settings) Push() bool {
	if st.present&presentEnablePush == 0 {
		return true
	}
	return st.enablePush
}

func (st *Settings) SetPush(enable bool) {
	st.enablePush = enable
	st.present |= presentEnablePush
}

func (st *Settings) MaxConcurrentStreams() uint32 {
	if st.present&presentMaxConcurrentStreams == 0 {
		return defaultMaxConcurrentStreams
	}
	return st.maxConcurrentStreams
}

func (st *Settings) SetMaxConcurrentStreams(n uint32) {
	st.maxConcurrentStreams = n
	st.present |= presentMaxConcurrentStreams
}

func (st *Settings) InitialWindowSize() uint32 {
	if st.present&presentInitialWindowSize == 0 {
		return defaultInitialWindowSize
	}
	return st.initialWindowSize
}

func (st *Settings) SetInitialWindowSize(n uint32) {
	st.initialWindowSize = n
	st.present |= presentInitialWindowSize
}

func (st *Settings) MaxFrameSize() uint32 {
	if st.present&presentMaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return st.maxFrameSize
}

func (st *Settings) SetMaxFrameSize(n uint32) {
	st.maxFrameSize = n
	st.present |= presentMaxFrameSize
}

func (st *Settings) MaxHeaderListSize() uint32 {
	if st.present&presentMaxHeaderListSize == 0 {
		return defaultMaxHeaderListSize
	}
	return st.maxHeaderListSize
}

func (st *Settings) SetMaxHeaderListSize(n uint32) {
	st.maxHeaderListSize = n
	st.present |= presentMaxHeaderListSize
}

// Validate checks the constraints RFC 7540 §6.5.2 places on settings
// values, returning a connection error for the first violation found.
func (st *Settings) Validate() error {
	if st.InitialWindowSize() > maxWindowSize {
		return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE exceeds 2^31-1")
	}
	if mfs := st.MaxFrameSize(); mfs < defaultMaxFrameSize || mfs > 1<<24-1 {
		return NewConnError(ProtocolError, "SETTINGS_MAX_FRAME_SIZE out of range")
	}
	return nil
}

func (st *Settings) Deserialize(fr *FrameHeader) error {
	st.ack = fr.Flags().Has(FlagAck)
	if st.ack {
		return nil
	}

	payload := fr.payload
	if len(payload)%6 != 0 {
		return NewConnError(FrameSizeError, "SETTINGS frame length is not a multiple of 6")
	}

	for len(payload) > 0 {
		id := settingID(uint16(payload[0])<<8 | uint16(payload[1]))
		value := http2utils.BytesToUint32(payload[2:6])
		payload = payload[6:]

		switch id {
		case settingHeaderTableSize:
			st.SetHeaderTableSize(value)
		case settingEnablePush:
			if value > 1 {
				return NewConnError(ProtocolError, "SETTINGS_ENABLE_PUSH must be 0 or 1")
			}
			st.SetPush(value == 1)
		case settingMaxConcurrentStreams:
			st.SetMaxConcurrentStreams(value)
		case settingInitialWindowSize:
			if value > maxWindowSize {
				return NewConnError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE exceeds 2^31-1")
			}
			st.SetInitialWindowSize(value)
		case settingMaxFrameSize:
			if value < defaultMaxFrameSize || value > 1<<24-1 {
				return NewConnError(ProtocolError, "SETTINGS_MAX_FRAME_SIZE out of range")
			}
			st.SetMaxFrameSize(value)
		case settingMaxHeaderListSize:
			st.SetMaxHeaderListSize(value)
		default:
			// unknown settings are ignored, RFC 7540 §6.5.2
		}
	}

	return nil
}

func (st *Settings) Serialize(fr *FrameHeader) {
	if st.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		fr.payload = fr.payload[:0]
		return
	}

	payload := fr.payload[:0]
	payload = appendSetting(payload, settingHeaderTableSize, st.present&presentHeaderTableSize != 0, st.headerTableSize)
	payload = appendSettingBool(payload, settingEnablePush, st.present&presentEnablePush != 0, st.enablePush)
	payload = appendSetting(payload, settingMaxConcurrentStreams, st.present&presentMaxConcurrentStreams != 0, st.maxConcurrentStreams)
	payload = appendSetting(payload, settingInitialWindowSize, st.present&presentInitialWindowSize != 0, st.initialWindowSize)
	payload = appendSetting(payload, settingMaxFrameSize, st.present&presentMaxFrameSize != 0, st.maxFrameSize)
	payload = appendSetting(payload, settingMaxHeaderListSize, st.present&presentMaxHeaderListSize != 0, st.maxHeaderListSize)

	fr.payload = payload
}

func appendSetting(dst []byte, id settingID, present bool, value uint32) []byte {
	if !present {
		return dst
	}
	dst = append(dst, byte(id>>8), byte(id))
	return http2utils.AppendUint32Bytes(dst, value)
}

func appendSettingBool(dst []byte, id settingID, present bool, value bool) []byte {
	if !present {
		return dst
	}
	v := uint32(0)
	if value {
		v = 1
	}
	return appendSetting(dst, id, true, v)
}
