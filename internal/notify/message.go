package notify

import (
	"fmt"
	"time"

	"github.com/mercer/studio-failsafe/internal/airmeta"
)

// Embed colors, decimal per the webhook API.
const (
	colorError   = 16711680 // red
	colorWarning = 16776960 // yellow
	colorSuccess = 65280    // green
)

// Alert is a rich message for the primary channel.
type Alert struct {
	// Content is plain text shown above the embed (used for group pings).
	Content      string
	Title        string
	Description  string
	Color        int
	Fields       []Field
	ThumbnailURL string
	Timestamp    time.Time
}

// Field is one labeled value inside an Alert.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

func (d *Dispatcher) station() string {
	if d.StationName == "" {
		return "the station"
	}
	return d.StationName
}

// transitionAlert builds the primary-channel message for a source change:
// rich when on-air context is available, degraded when the lookup failed.
func (d *Dispatcher) transitionAlert(ev Event, toBackup bool, actx *airmeta.Context, degraded bool) Alert {
	a := Alert{Timestamp: d.now()}

	if toBackup {
		a.Content = "@everyone the stream may be down!"
		a.Color = colorError
		a.Title = "FAILSAFE ACTIVATED (Backup Source)"
		a.Description = fmt.Sprintf(
			"Switched to backup source **`%s`**. Primary source may have failed. Investigate this!", ev.To)
	} else {
		a.Color = colorSuccess
		a.Title = "Failsafe Resolved (Primary Source)"
		a.Description = fmt.Sprintf(
			"Switched back to primary source **`%s`**. System normal.", ev.To)
	}

	switch {
	case actx != nil:
		show := actx.ShowTitle
		if show == "" {
			show = "N/A"
		}
		if actx.ShowURL != "" {
			show = fmt.Sprintf("[%s](%s)", show, actx.ShowURL)
		}
		a.Fields = append(a.Fields, Field{Name: "Show", Value: show})
		if actx.HostName != "" {
			a.Fields = append(a.Fields, Field{Name: "Host", Value: actx.HostName})
		}
		if !actx.Start.IsZero() {
			a.Fields = append(a.Fields, Field{Name: "Show Start", Value: actx.Start.UTC().Format("2006-01-02 15:04 UTC"), Inline: true})
		}
		if !actx.End.IsZero() {
			a.Fields = append(a.Fields, Field{Name: "Show End", Value: actx.End.UTC().Format("2006-01-02 15:04 UTC"), Inline: true})
		}
		a.ThumbnailURL = actx.ImageURL
	case degraded:
		a.Fields = append(a.Fields, Field{Name: "On-Air Context", Value: "unavailable (metadata lookup failed)"})
	}

	return a
}

// confirmationAlert tells the primary channel that the host was reached
// directly.
func (d *Dispatcher) confirmationAlert(actx *airmeta.Context, contact string) Alert {
	host := "the current host"
	show := ""
	if actx != nil {
		if actx.HostName != "" {
			host = actx.HostName
		}
		show = actx.ShowTitle
	}
	a := Alert{
		Title: "Host Notified Directly",
		Color: colorWarning,
		Description: fmt.Sprintf(
			"An automated message was sent to **%s** (`%s`) about the failsafe activation during their show. Check whether they need assistance.",
			host, contact),
		Timestamp: d.now(),
	}
	if show != "" {
		a.Fields = append(a.Fields, Field{Name: "Show Currently On-Air", Value: show})
	}
	return a
}

// secondaryText is the always-sent broader-audience summary.
func (d *Dispatcher) secondaryText(toBackup bool) string {
	if toBackup {
		return fmt.Sprintf(
			"⚠️ FAILSAFE ACTIVATED ⚠️\n%s has switched to the backup audio source. Primary source may have failed. Investigate this!",
			d.station())
	}
	return fmt.Sprintf(
		"✅ FAILSAFE RESOLVED ✅\n%s has switched back to the primary audio source. System normal.",
		d.station())
}

// broadFallbackText is the all-members message used when the host could not
// be reached directly.
func (d *Dispatcher) broadFallbackText(toBackup bool) string {
	if toBackup {
		return fmt.Sprintf(
			"⚠️ WARNING ⚠️\n\n%s may be experiencing dead air. The studio console has automatically switched to the backup audio source. "+
				"If you are the current host, please check your broadcast: microphone on, audio playing, levels up. "+
				"If the issue persists, contact station management before leaving the studio.",
			d.station())
	}
	return fmt.Sprintf(
		"✅ %s has switched back to the primary audio source. System normal.",
		d.station())
}

// directMessage is the email sent to the resolved host.
func (d *Dispatcher) directMessage(ev Event, toBackup bool, actx *airmeta.Context) (subject, body string) {
	host := "there"
	show := "your show"
	if actx != nil {
		if actx.HostName != "" {
			host = actx.HostName
		}
		if actx.ShowTitle != "" {
			show = fmt.Sprintf("'%s'", actx.ShowTitle)
		}
	}

	if toBackup {
		subject = fmt.Sprintf("ATTN: %s Failsafe Activated - Action Required During Your Show", d.station())
		body = fmt.Sprintf(
			"Hey %s!\n\n"+
				"This is an automated message from the %s failsafe monitor.\n\n"+
				"The station has switched to the backup audio source during %s. "+
				"This usually means a problem with the audio from the console (dead air, wrong input selected, or an equipment fault).\n\n"+
				"Please check the following:\n"+
				"1. Is your microphone on and audible?\n"+
				"2. Is your music/audio source playing correctly through the board?\n"+
				"3. Are the correct channels selected and faders up on the console?\n\n"+
				"If you cannot resolve the issue, make sure the station is broadcasting something and contact station management immediately.\n\n"+
				"Do not reply to this email; it is unattended.",
			host, d.station(), show)
	} else {
		subject = fmt.Sprintf("%s Failsafe Resolved", d.station())
		body = fmt.Sprintf(
			"Hey %s!\n\n"+
				"The %s failsafe monitor reports the station has switched back to the primary audio source during %s. "+
				"No action is needed; this is a confirmation that normal operation resumed.\n\n"+
				"Do not reply to this email; it is unattended.",
			host, d.station(), show)
	}
	return subject, body
}
