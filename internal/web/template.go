package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/mercer/studio-failsafe/internal/status"
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
	"sourceOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Studio Failsafe</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.primary { color: green; font-weight: bold; }
.backup { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.suppressed { color: orange; font-weight: bold; }
</style>
</head>
<body>
<h1>Studio Failsafe</h1>

<h2>State</h2>
<table>
<tr><th>Active Source</th><td class="{{if eq (sourceOrUnknown (printf "%s" .Source)) .Config.BackupSource}}backup{{else if eq (sourceOrUnknown (printf "%s" .Source)) "UNKNOWN"}}unknown{{else}}primary{{end}}">{{sourceOrUnknown (printf "%s" .Source)}}</td></tr>
<tr><th>Pin ({{.Config.PinName}})</th><td>{{if .RawLevel}}high{{else}}low{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
<tr><th>Override</th><td{{if .OverrideActive}} class="suppressed"{{end}}>{{if .OverrideActive}}active{{if not .OverrideUntil.IsZero}} until {{rfc3339 .OverrideUntil}}{{end}}{{else}}off{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Broker</th><td class="{{if .BrokerConnected}}connected{{else}}disconnected{{end}}">{{if .BrokerConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>URL</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Switches to A</th><td>{{.Counts.Transitions.ToA}}</td></tr>
<tr><th>Switches to B</th><td>{{.Counts.Transitions.ToB}}</td></tr>
<tr><th>Suppressed</th><td>{{.Counts.Suppressed}}</td></tr>
<tr><th>Deliveries OK</th><td>{{.Counts.DeliveriesOK}}</td></tr>
<tr><th>Deliveries Failed</th><td>{{.Counts.DeliveriesFailed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{rfc3339 .StartTime}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Health Beacon</th><td>{{if eq .Config.BeaconMs 0}}disabled{{else}}{{.Config.BeaconMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render status page: %v", err)
	}
}
