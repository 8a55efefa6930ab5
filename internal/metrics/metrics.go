// Package metrics exposes Prometheus metrics for the LEDs, the button and
// the mode flag.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blinkd"

var (
	ledTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "led",
		Name:      "transitions_total",
		Help:      "Logical LED flips per channel",
	}, []string{"channel"})

	ledOn = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "led",
		Name:      "on",
		Help:      "Logical LED state per channel (1 = lit)",
	}, []string{"channel"})

	buttonEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "button",
		Name:      "edges_total",
		Help:      "Button edges dispatched, by kind",
	}, []string{"edge"})

	buttonDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "button",
		Name:      "dropped_edges_total",
		Help:      "Edges dropped because the queue was full",
	})

	callbackErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "button",
		Name:      "callback_errors_total",
		Help:      "Button callbacks that returned an error or panicked",
	})

	modeNight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mode",
		Name:      "night",
		Help:      "1 when the window job runs in night mode",
	})

	jobRegime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "regime",
		Help:      "1 for the window job's active regime",
	}, []string{"regime"})

	pulseExtensions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "pulse_extensions_total",
		Help:      "Releases that pushed the pulse deadline",
	})
)

// Regimes lists the label values of the regime gauge.
var Regimes = []string{"RECURRING", "PULSE", "STEADY"}

// LEDTransition records a flip to on at channel.
func LEDTransition(channel int, on bool) {
	ch := strconv.Itoa(channel)
	ledTransitions.WithLabelValues(ch).Inc()
	ledOn.WithLabelValues(ch).Set(boolValue(on))
}

// LEDState sets the lit gauge without counting a flip.
func LEDState(channel int, on bool) {
	ledOn.WithLabelValues(strconv.Itoa(channel)).Set(boolValue(on))
}

// ButtonEdge counts a dispatched press or release.
func ButtonEdge(pressed bool) {
	if pressed {
		buttonEdges.WithLabelValues("press").Inc()
	} else {
		buttonEdges.WithLabelValues("release").Inc()
	}
}

func ButtonDropped(n int) {
	if n > 0 {
		buttonDropped.Add(float64(n))
	}
}

func CallbackErrors(n int) {
	if n > 0 {
		callbackErrors.Add(float64(n))
	}
}

func ModeNight(night bool) {
	modeNight.Set(boolValue(night))
}

// JobRegime marks regime as the active one.
func JobRegime(regime string) {
	for _, r := range Regimes {
		v := 0.0
		if r == regime {
			v = 1
		}
		jobRegime.WithLabelValues(r).Set(v)
	}
}

func PulseExtended() {
	pulseExtensions.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
