package http2

import "testing"

func TestFrameTypeString(t *testing.T) {
	cases := map[FrameType]string{
		FrameData:         "DATA",
		FrameHeaders:      "HEADERS",
		FramePriority:     "PRIORITY",
		FrameResetStream:  "RST_STREAM",
		FrameSettings:     "SETTINGS",
		FramePushPromise:  "PUSH_PROMISE",
		FramePing:         "PING",
		FrameGoAway:       "GOAWAY",
		FrameWindowUpdate: "WINDOW_UPDATE",
		FrameContinuation: "CONTINUATION",
		FrameUnknown:      "UNKNOWN",
	}

	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("%d: got %s, want %s", typ, got, want)
		}
	}
}

func TestFrameFlagsHasAdd(t *testing.T) {
	f := FrameFlags(0)
	if f.Has(FlagEndHeaders) {
		t.Fatal("zero value should not have FlagEndHeaders")
	}

	f = f.Add(FlagEndHeaders).Add(FlagPadded)
	if !f.Has(FlagEndHeaders) || !f.Has(FlagPadded) {
		t.Fatal("expected both flags set")
	}
	if f.Has(FlagPriority) {
		t.Fatal("unexpected FlagPriority")
	}
}

func TestNewFrameDispatch(t *testing.T) {
	cases := []FrameType{
		FrameData, FrameHeaders, FramePriority, FrameResetStream,
		FrameSettings, FramePushPromise, FramePing, FrameGoAway,
		FrameWindowUpdate, FrameContinuation,
	}

	for _, typ := range cases {
		fr := newFrame(typ)
		if fr.Type() != typ {
			t.Fatalf("newFrame(%s).Type() = %s", typ, fr.Type())
		}
	}

	unk := newFrame(FrameType(0x20))
	if _, ok := unk.(*Unknown); !ok {
		t.Fatalf("expected *Unknown, got %T", unk)
	}
}

func TestUnknownFrameRoundTrip(t *testing.T) {
	fh := AcquireFrameHeader()
	defer ReleaseFrameHeader(fh)

	u := &Unknown{kind: FrameType(0x2a), payload: []byte("extension payload")}
	fh.SetBody(u)

	u.Serialize(fh)
	if string(fh.payload) != "extension payload" {
		t.Fatalf("unexpected payload: %q", fh.payload)
	}

	var u2 Unknown
	fh.payload = []byte("another")
	fh.kind = FrameType(0x2a)
	if err := u2.Deserialize(fh); err != nil {
		t.Fatal(err)
	}
	if u2.Type() != FrameType(0x2a) {
		t.Fatalf("unexpected type: %s", u2.Type())
	}
	if string(u2.payload) != "another" {
		t.Fatalf("unexpected payload: %q", u2.payload)
	}
}
