package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeOutputRecordsWrites(t *testing.T) {
	f := NewFake()

	out, err := f.Output(4, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Channel() != 4 {
		t.Errorf("Channel: got %d, want 4", out.Channel())
	}

	pin := f.Pin(4)
	if !pin.Level() {
		t.Error("initial level should be HIGH")
	}
	if pin.WriteCount() != 0 {
		t.Errorf("initial level must not be recorded as a write, got %d", pin.WriteCount())
	}

	out.Set(false)
	out.Set(true)

	if pin.WriteCount() != 2 {
		t.Fatalf("expected 2 writes, got %d", pin.WriteCount())
	}
	if pin.Writes[0] != false || pin.Writes[1] != true {
		t.Errorf("writes: got %v, want [false true]", pin.Writes)
	}
	if !pin.Level() {
		t.Error("level should follow last write")
	}
}

func TestFakeVerboseOutputDoesNotRecord(t *testing.T) {
	f := NewFake()
	f.Verbose = true

	out, err := f.Output(4, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 1000; i++ {
		out.Set(i%2 == 0)
	}

	pin := f.Pin(4)
	if pin.WriteCount() != 0 {
		t.Errorf("verbose output should not keep writes, got %d", pin.WriteCount())
	}
	if pin.Level() {
		t.Error("level should still follow the last write")
	}
}

func TestFakeOutputDuplicateChannel(t *testing.T) {
	f := NewFake()
	if _, err := f.Output(3, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Output(3, false); err == nil {
		t.Error("expected error requesting the same pin twice")
	}
}

func TestFakeOutputError(t *testing.T) {
	f := NewFake()
	f.OutputError = errors.New("simulated error")

	if _, err := f.Output(3, false); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestFakeOutputSetError(t *testing.T) {
	f := NewFake()
	out, _ := f.Output(3, false)
	f.Pin(3).SetError = ErrFakeWrite

	if err := out.Set(true); !errors.Is(err, ErrFakeWrite) {
		t.Errorf("expected ErrFakeWrite, got %v", err)
	}
}

func TestFakeInputEdge(t *testing.T) {
	f := NewFake()

	type edge struct {
		high bool
		at   time.Time
	}
	var got []edge
	in, err := f.Input(2, PullUp, func(high bool, at time.Time) {
		got = append(got, edge{high, at})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	level, _ := in.Get()
	if !level {
		t.Error("pulled-up input should idle HIGH")
	}

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.Edge(2, false, t0)
	f.Edge(2, true, t0.Add(time.Second))

	if len(got) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(got))
	}
	if got[0].high || !got[0].at.Equal(t0) {
		t.Errorf("edge 0: got %+v", got[0])
	}
	if !got[1].high {
		t.Errorf("edge 1: expected HIGH")
	}

	level, _ = in.Get()
	if !level {
		t.Error("input level should follow last edge")
	}
}

func TestFakeEdgeUnknownPin(t *testing.T) {
	f := NewFake()
	if err := f.Edge(9, true, time.Now()); err == nil {
		t.Error("expected error for pin not requested")
	}
}

func TestFakeClose(t *testing.T) {
	f := NewFake()
	f.Output(4, false)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error on second close: %v", err)
	}
	if f.Closed != 1 {
		t.Errorf("Closed: got %d, want 1", f.Closed)
	}

	if _, err := f.Output(5, false); err == nil {
		t.Error("expected error requesting a pin after close")
	}
}

func TestParsePull(t *testing.T) {
	cases := map[string]Pull{
		"":     PullNone,
		"none": PullNone,
		"up":   PullUp,
		"UP":   PullUp,
		"down": PullDown,
	}
	for in, want := range cases {
		got, err := ParsePull(in)
		if err != nil {
			t.Errorf("ParsePull(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePull(%q): got %v, want %v", in, got, want)
		}
	}

	if _, err := ParsePull("sideways"); err == nil {
		t.Error("expected error for unknown pull")
	}
}

func TestOpenFakeBackend(t *testing.T) {
	f, err := Open(Options{Backend: BackendFake})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.(*FakeFacility); !ok {
		t.Errorf("expected *FakeFacility, got %T", f)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "wiringpi"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
