package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLEDTransition(t *testing.T) {
	before := testutil.ToFloat64(ledTransitions.WithLabelValues("40"))

	LEDTransition(40, true)
	LEDTransition(40, false)

	if got := testutil.ToFloat64(ledTransitions.WithLabelValues("40")) - before; got != 2 {
		t.Errorf("transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ledOn.WithLabelValues("40")); got != 0 {
		t.Errorf("led on = %v, want 0", got)
	}

	LEDState(40, true)
	if got := testutil.ToFloat64(ledOn.WithLabelValues("40")); got != 1 {
		t.Errorf("led on = %v, want 1", got)
	}
}

func TestJobRegimeIsExclusive(t *testing.T) {
	JobRegime("PULSE")

	for _, r := range Regimes {
		want := 0.0
		if r == "PULSE" {
			want = 1
		}
		if got := testutil.ToFloat64(jobRegime.WithLabelValues(r)); got != want {
			t.Errorf("regime %s = %v, want %v", r, got, want)
		}
	}
}

func TestButtonCounters(t *testing.T) {
	press := testutil.ToFloat64(buttonEdges.WithLabelValues("press"))
	dropped := testutil.ToFloat64(buttonDropped)

	ButtonEdge(true)
	ButtonDropped(0)
	ButtonDropped(3)

	if got := testutil.ToFloat64(buttonEdges.WithLabelValues("press")) - press; got != 1 {
		t.Errorf("press edges = %v, want 1", got)
	}
	if got := testutil.ToFloat64(buttonDropped) - dropped; got != 3 {
		t.Errorf("dropped = %v, want 3", got)
	}
}

func TestModeNight(t *testing.T) {
	ModeNight(true)
	if got := testutil.ToFloat64(modeNight); got != 1 {
		t.Errorf("mode night = %v, want 1", got)
	}
	ModeNight(false)
	if got := testutil.ToFloat64(modeNight); got != 0 {
		t.Errorf("mode night = %v, want 0", got)
	}
}

func TestHandlerServesNamespace(t *testing.T) {
	ModeNight(false)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "blinkd_mode_night") {
		t.Errorf("body missing blinkd_mode_night")
	}
}
