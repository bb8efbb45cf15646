// Package airmeta looks up who is currently on air from the station's
// schedule API. Absence of data is a valid, non-error outcome: the dispatcher
// degrades gracefully when nothing (or nobody) is on.
package airmeta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Context is a snapshot of the current on-air program.
type Context struct {
	// Attended is false for automation playlists: nobody is in the studio.
	Attended bool

	ShowTitle string
	ShowURL   string
	ImageURL  string
	HostName  string

	// ContactAddress is the resolved host email, empty when no address
	// could be found.
	ContactAddress string

	Start time.Time
	End   time.Time
}

// Lookup fetches the current on-air context.
type Lookup interface {
	// Current returns the current program, or nil when nothing is on.
	// The call must respect ctx cancellation/deadline.
	Current(ctx context.Context) (*Context, error)
}

// Client talks to the schedule API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given API base URL. Every request is
// bounded by the given timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type playlist struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	PersonaID  int    `json:"persona_id"`
	ShowID     int    `json:"show_id"`
	Automation bool   `json:"automation"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Image      string `json:"image"`
}

type persona struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type show struct {
	Links struct {
		Personas []struct {
			Href string `json:"href"`
		} `json:"personas"`
	} `json:"_links"`
}

// Current fetches the latest playlist and resolves the host contact:
// the playlist's primary persona first, then the show's other personas if
// the primary has no address on file.
func (c *Client) Current(ctx context.Context) (*Context, error) {
	var page struct {
		Items []playlist `json:"items"`
	}
	if err := c.get(ctx, "playlists?count=1", &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	pl := page.Items[0]

	actx := &Context{
		Attended:  !pl.Automation,
		ShowTitle: pl.Title,
		ImageURL:  pl.Image,
		Start:     parseTime(pl.Start),
		End:       parseTime(pl.End),
	}
	if pl.ID != 0 {
		actx.ShowURL = fmt.Sprintf("%s/playlists/%d", c.baseURL, pl.ID)
	}
	if !actx.Attended {
		return actx, nil
	}

	if pl.PersonaID != 0 {
		var p persona
		if err := c.get(ctx, fmt.Sprintf("personas/%d", pl.PersonaID), &p); err == nil {
			actx.HostName = p.Name
			actx.ContactAddress = p.Email
		}
	}

	// No address on the primary persona: try the show's other personas.
	if actx.ContactAddress == "" && pl.ShowID != 0 {
		var s show
		if err := c.get(ctx, fmt.Sprintf("shows/%d", pl.ShowID), &s); err == nil {
			for _, id := range personaIDs(s) {
				if id == pl.PersonaID {
					continue
				}
				var p persona
				if err := c.get(ctx, fmt.Sprintf("personas/%d", id), &p); err != nil {
					continue
				}
				if p.Email != "" {
					actx.ContactAddress = p.Email
					if actx.HostName == "" {
						actx.HostName = p.Name
					}
					break
				}
			}
		}
	}

	return actx, nil
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// personaIDs extracts persona ids from a show's link hrefs; the id is the
// last path segment.
func personaIDs(s show) []int {
	var ids []int
	for _, link := range s.Links.Personas {
		href := strings.TrimRight(link.Href, "/")
		idx := strings.LastIndex(href, "/")
		if idx < 0 {
			continue
		}
		id, err := strconv.Atoi(href[idx+1:])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
