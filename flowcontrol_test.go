package http2

import "testing"

func TestFlowControlConsume(t *testing.T) {
	f := newFlowControl(100)

	if err := f.Consume(40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Available() != 60 {
		t.Fatalf("expected 60 remaining, got %d", f.Available())
	}

	if err := f.Consume(1000); err != ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
}

func TestFlowControlIncrement(t *testing.T) {
	f := newFlowControl(0)

	if err := f.Increment(50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Available() != 50 {
		t.Fatalf("expected 50, got %d", f.Available())
	}

	if err := f.Increment(maxWindowSize); !IsConnError(err) {
		t.Fatalf("expected a connection error on overflow, got %v", err)
	}
}

func TestConnFlowControllerAppliesDeltaToOpenStreams(t *testing.T) {
	fc := newConnFlowController()
	streams := map[uint32]*Stream{
		1: NewStream(1, 0, int32(defaultInitialWindowSize), nil),
	}

	if err := fc.ApplyInitialWindowSize(streams, defaultInitialWindowSize+1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := streams[1].SendWindow(); got != int32(defaultInitialWindowSize)+1000 {
		t.Fatalf("expected stream window bumped by 1000, got %d", got)
	}
}
