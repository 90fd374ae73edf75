// SPDX-License-Identifier: MIT

package sched

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/log"
)

// Client fetches scheduled events from the schedule provider. The
// provider's scoreboard payload nests competitors inside competitions;
// Events flattens that into the Event model.
type Client struct {
	base   string
	http   *http.Client
	logger zerolog.Logger
}

func NewClient(base string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: log.WithComponent("sched"),
	}
}

// WithHTTPClient substitutes the transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type scoreboard struct {
	Events []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Date   string `json:"date"`
		Status struct {
			Type struct {
				State     string `json:"state"`
				Completed bool   `json:"completed"`
			} `json:"type"`
		} `json:"status"`
		Competitions []struct {
			EndDate     string `json:"endDate"`
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Team     struct {
					ID           string `json:"id"`
					DisplayName  string `json:"displayName"`
					ShortName    string `json:"shortDisplayName"`
					Abbreviation string `json:"abbreviation"`
				} `json:"team"`
			} `json:"competitors"`
		} `json:"competitions"`
	} `json:"events"`
}

// Events returns the league's scheduled events overlapping [from, to].
// Events the provider reports without a parsable start time are
// skipped, not fatal.
func (c *Client) Events(ctx context.Context, sport, league string, from, to time.Time) ([]Event, error) {
	u := fmt.Sprintf("%s/sports/%s/leagues/%s/scoreboard?dates=%s-%s",
		c.base, url.PathEscape(sport), url.PathEscape(league),
		from.UTC().Format("20060102"), to.UTC().Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sched: fetch %s/%s: %w", sport, league, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sched: fetch %s/%s: HTTP %d", sport, league, res.StatusCode)
	}

	var sb scoreboard
	if err := json.NewDecoder(res.Body).Decode(&sb); err != nil {
		return nil, fmt.Errorf("sched: decode %s/%s: %w", sport, league, err)
	}

	out := make([]Event, 0, len(sb.Events))
	for _, raw := range sb.Events {
		start, err := parseProviderTime(raw.Date)
		if err != nil {
			c.logger.Warn().
				Str("event", "sched.bad_start_time").
				Str("event_id", raw.ID).
				Str("date", raw.Date).
				Msg("skipping event without parsable start")
			continue
		}
		if start.Before(from) || start.After(to) {
			continue
		}

		ev := Event{
			ID:     raw.ID,
			Sport:  sport,
			League: league,
			Name:   raw.Name,
			Start:  start,
			Status: mapStatus(raw.Status.Type.State, raw.Status.Type.Completed),
		}
		if len(raw.Competitions) > 0 {
			comp := raw.Competitions[0]
			if comp.EndDate != "" {
				if end, err := parseProviderTime(comp.EndDate); err == nil {
					ev.End = end
				}
			}
			for _, c := range comp.Competitors {
				team := Team{
					ID:           c.Team.ID,
					Name:         c.Team.DisplayName,
					ShortName:    c.Team.ShortName,
					Abbreviation: c.Team.Abbreviation,
				}
				if c.HomeAway == "away" {
					ev.Away = team
				} else {
					ev.Home = team
				}
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseProviderTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z", "2006-01-02T15:04:05Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable time %q", s)
}

func mapStatus(state string, completed bool) Status {
	switch {
	case completed:
		return StatusFinal
	case state == "in":
		return StatusInProgress
	case state == "post":
		return StatusFinal
	case state == "postponed":
		return StatusPostponed
	default:
		return StatusScheduled
	}
}
