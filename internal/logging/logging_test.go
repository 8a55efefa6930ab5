package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "text", Output: &buf})

	l.Info("hidden")
	l.Warn("shown", "led", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "led=4")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Output: &buf})
	l.Debug("tick", "regime", "PULSE")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "tick", m["msg"])
	assert.Equal(t, "PULSE", m["regime"])
}

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	Init(Options{Output: &buf})
	For("button").Info("press")

	assert.Contains(t, buf.String(), "component=button")
}

type sent struct {
	msg    string
	pri    journal.Priority
	fields map[string]string
}

func newTestJournal(level slog.Level) (*JournalHandler, *[]sent) {
	var got []sent
	h := NewJournalHandler(level)
	h.send = func(msg string, p journal.Priority, vars map[string]string) error {
		got = append(got, sent{msg, p, vars})
		return nil
	}
	return h, &got
}

func TestJournalHandlerFields(t *testing.T) {
	h, got := newTestJournal(slog.LevelDebug)
	l := slog.New(h).With("component", "job").WithGroup("pulse")

	l.Warn("extended", "deadline", time.Date(2026, 3, 1, 10, 3, 20, 0, time.UTC), "open", true)

	require.Len(t, *got, 1)
	s := (*got)[0]
	assert.Equal(t, "extended", s.msg)
	assert.Equal(t, journal.PriWarning, s.pri)
	assert.Equal(t, "blinkd", s.fields["SYSLOG_IDENTIFIER"])
	assert.Equal(t, "job", s.fields["COMPONENT"])
	assert.Equal(t, "true", s.fields["PULSE_OPEN"])
	assert.Equal(t, "2026-03-01T10:03:20.000Z", s.fields["PULSE_DEADLINE"])
}

func TestJournalHandlerLevel(t *testing.T) {
	h, got := newTestJournal(slog.LevelInfo)
	l := slog.New(h)

	l.Debug("dropped")
	l.Error("kept")

	require.Len(t, *got, 1)
	assert.Equal(t, journal.PriErr, (*got)[0].pri)
}

type errHandler struct{ slog.Handler }

func (errHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	ha := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug})
	hb := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn})
	l := slog.New(NewMultiHandler(ha, hb)).With("led", 3)

	l.Info("info only")
	l.Warn("both")

	assert.Contains(t, a.String(), "info only")
	assert.Contains(t, a.String(), "both")
	assert.NotContains(t, b.String(), "info only")
	assert.Contains(t, b.String(), "led=3")
}

func TestMultiHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	ok := slog.NewTextHandler(&buf, nil)
	m := NewMultiHandler(ok, errHandler{ok})

	err := m.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "msg=x")
}
