package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/zigbee-light/internal/light"
	"github.com/sweeney/zigbee-light/internal/status"
	"github.com/sweeney/zigbee-light/internal/zcl"
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
	"onOff": light.OnOffString,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Zigbee Light</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.joined, .connected { color: green; }
.pending { color: orange; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Zigbee Light</h1>

<h2>Light</h2>
<table>
<tr><th>State</th><td id="light-state" class="{{if .Light.On}}on{{else}}off{{end}}">{{onOff .Light.On}}</td></tr>
<tr><th>Brightness</th><td>{{.Light.Level}}</td></tr>
<tr><th>Hue / Saturation</th><td>{{.Light.Hue}} / {{.Light.Saturation}}</td></tr>
<tr><th>Color xy</th><td>{{.Light.ColorX}}, {{.Light.ColorY}}</td></tr>
<tr><th>Color mode</th><td>{{.Light.ColorMode}}</td></tr>
</table>

<h2>Network</h2>
<table>
<tr><th>State</th><td id="network-state" class="{{if .Joined}}joined{{else}}pending{{end}}">{{.Network.State}}</td></tr>
<tr><th>Channel</th><td>{{.Network.Channel}}</td></tr>
{{if .Joined}}<tr><th>PAN ID</th><td>{{.PanID}}</td></tr>
<tr><th>Extended PAN ID</th><td>{{.ExtPanID}}</td></tr>{{end}}
{{if .LastEvent}}<tr><th>Last event</th><td>{{.LastEvent}}</td></tr>{{end}}
<tr><th>Role</th><td>{{.Config.Role}}</td></tr>
{{with .Config.Device}}{{if .Model}}<tr><th>Device</th><td>{{.Manufacturer}} {{.Model}}</td></tr>{{end}}{{end}}
</table>

<h2>Button</h2>
<table>
<tr><th>State</th><td>{{.Gesture.State}}{{if .Gesture.Armed}} (reset armed){{end}}</td></tr>
<tr><th>Presses</th><td>{{.Gesture.Counts.Presses}}</td></tr>
<tr><th>Long presses</th><td>{{.Gesture.Counts.LongPresses}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Steering attempts</th><td>{{.Network.Counts.SteeringAttempts}}</td></tr>
<tr><th>Steering failures</th><td>{{.Network.Counts.SteeringFailures}}</td></tr>
<tr><th>Init failures</th><td>{{.Network.Counts.InitFailures}}</td></tr>
<tr><th>Factory resets</th><td>{{.Network.Counts.FactoryResets}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Pins</th><td>button {{.Config.ButtonPin}}, led {{.Config.LEDPin}}{{if .Config.Simulated}} (simulated){{end}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPListen}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type pageData struct {
	status.Snapshot
	Joined   bool
	Uptime   time.Duration
	PanID    string
	ExtPanID string
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return indexTmpl.Execute(w, pageData{
		Snapshot: snap,
		Joined:   snap.Joined(),
		Uptime:   snap.Uptime(),
		PanID:    status.FormatPanID(snap.Network.PanID),
		ExtPanID: zcl.FormatExtPanID(snap.Network.ExtPanID),
	})
}
