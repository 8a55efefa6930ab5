package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/blinkd/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": status.OnOff,
	"mode":  status.ModeString,
	"ms":    func(d time.Duration) int64 { return d.Milliseconds() },
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("15:04:05.000")
	},
	"regime": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>blinkd</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>blinkd</h1>

<h2>Blinker</h2>
<table>
{{if .Blinker.Enabled}}
<tr><th>Channel</th><td>BCM {{.Blinker.Channel}}</td></tr>
<tr><th>State</th><td id="blinker-state" class="{{if .Blinker.On}}on{{else}}off{{end}}">{{onoff .Blinker.On}}</td></tr>
<tr><th>On / Off</th><td>{{ms .Blinker.OnDuration}}ms / {{ms .Blinker.OffDuration}}ms</td></tr>
<tr><th>Accelerating</th><td>{{if .Accelerating}}yes{{else}}no{{end}}</td></tr>
<tr><th>Transitions</th><td>{{.Blinker.Transitions}}</td></tr>
<tr><th>Last flip</th><td>{{clock .Blinker.LastTransition}}</td></tr>
{{else}}<tr><th>Status</th><td>disabled</td></tr>{{end}}
</table>

<h2>Window job</h2>
<table>
{{if .Job.Enabled}}
<tr><th>Channel</th><td>BCM {{.Job.Channel}}</td></tr>
<tr><th>Mode</th><td id="mode">{{mode .Job.Night}}</td></tr>
<tr><th>Regime</th><td id="job-regime">{{regime .Job.Regime}}</td></tr>
<tr><th>State</th><td class="{{if .Job.On}}on{{else}}off{{end}}">{{onoff .Job.On}}</td></tr>
<tr><th>Window</th><td>every {{.Config.EveryMinutes}}m, first {{.Config.ThresholdSeconds}}s ({{.Config.Variant}})</td></tr>
<tr><th>Pulse until</th><td>{{clock .Job.PulseDeadline}}</td></tr>
{{else}}<tr><th>Status</th><td>disabled</td></tr>{{end}}
</table>

<h2>Button</h2>
<table>
{{if .Button.Enabled}}
<tr><th>Channel</th><td>BCM {{.Button.Channel}}</td></tr>
<tr><th>State</th><td id="button-state">{{if .Button.Pressed}}PRESSED{{else}}RELEASED{{end}}</td></tr>
<tr><th>Presses</th><td>{{.Button.Presses}}</td></tr>
<tr><th>Releases</th><td>{{.Button.Releases}}</td></tr>
<tr><th>Dropped edges</th><td>{{.Button.Dropped}}</td></tr>
<tr><th>Callback errors</th><td>{{.Button.CallbackErrors}}</td></tr>
{{else}}<tr><th>Status</th><td>disabled</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Config.Broker}}{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{else}}disabled{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Mode source</th><td>{{.Config.ModeSource}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
