package http2

import "testing"

func TestStreamCanRecvSend(t *testing.T) {
	s := NewStream(1, 65535, 65535, nil)

	if !s.CanRecv() || !s.CanSend() {
		t.Fatalf("a fresh stream should allow both directions")
	}

	s.SetState(StreamStateHalfClosedRemote)
	if s.CanRecv() {
		t.Fatalf("half-closed(remote) must not accept more input")
	}
	if !s.CanSend() {
		t.Fatalf("half-closed(remote) may still send")
	}

	s.SetState(StreamStateClosed)
	if s.CanRecv() || s.CanSend() {
		t.Fatalf("closed stream must not send or receive")
	}
}

func TestStreamWindows(t *testing.T) {
	s := NewStream(1, 100, 200, nil)

	s.IncrRecvWindow(-30)
	if s.RecvWindow() != 70 {
		t.Fatalf("unexpected recv window: %d", s.RecvWindow())
	}

	s.IncrSendWindow(50)
	if s.SendWindow() != 250 {
		t.Fatalf("unexpected send window: %d", s.SendWindow())
	}
}

func TestIsPushPromisedAndClientInitiated(t *testing.T) {
	if !IsPushPromised(2) || IsPushPromised(1) || IsPushPromised(0) {
		t.Fatalf("IsPushPromised mismatched expectations")
	}
	if !IsClientInitiated(1) || IsClientInitiated(2) {
		t.Fatalf("IsClientInitiated mismatched expectations")
	}
}

func TestStreamStateString(t *testing.T) {
	cases := map[StreamState]string{
		StreamStateIdle:             "idle",
		StreamStateOpen:             "open",
		StreamStateHalfClosedRemote: "half-closed(remote)",
		StreamStateClosed:           "closed",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d: expected %q, got %q", state, want, got)
		}
	}
}
