package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sweeney/pin-toggler/internal/status"
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
	"since": func(start, now time.Time) string {
		return humanize.RelTime(start, now, "ago", "from now")
	},
	"comma": func(n uint64) string {
		return humanize.Comma(int64(n))
	},
	"hz": func(v float64) string {
		return humanize.Ftoa(v) + " Hz"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pin Toggler</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.high { color: green; font-weight: bold; }
.low { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Pin Toggler</h1>

<h2>Pins</h2>
{{if .Ready}}<table>
<tr><th>#</th><th>Pin</th><th>Rate</th><th>Toggle rate</th><th>Level</th><th>Toggles</th></tr>
{{range .Pins}}<tr id="pin-{{.Index}}"><td>{{.Index}}</td><td>{{.Pin}}</td><td>{{.Rate}}</td><td>{{hz (.Rate.TogglesPerSecond $.Config.FrequencyHz)}}</td><td class="{{if .Level}}high{{else}}low{{end}}">{{.Level}}</td><td>{{.Toggles}}</td></tr>
{{end}}</table>{{else}}<p>Scheduler not sampled yet.</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .MQTTDropped}}<tr><th>Dropped events</th><td class="disconnected">{{comma .MQTTDropped}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}} ({{since .StartTime .Now}})</td></tr>
<tr><th>Ticks</th><td>{{comma .Ticks}}</td></tr>
<tr><th>Tick frequency</th><td>{{.Config.FrequencyHz}} Hz</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}{{if .Config.Chip}} ({{.Config.Chip}}){{end}}</td></tr>
</table>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return indexTmpl.Execute(w, snap)
}
