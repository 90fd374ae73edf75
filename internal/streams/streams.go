// SPDX-License-Identifier: MIT

// Package streams supplies the raw stream list each pass classifies.
// The daemon reads an M3U playlist; tests substitute static sources.
package streams

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Stream is one playlist entry: the free-text name to classify plus
// the opaque ref the channel will point at.
type Stream struct {
	RawName string `json:"raw_name"`
	Ref     string `json:"ref"`
	Group   string `json:"group"`
}

// Source yields the streams belonging to one group.
type Source interface {
	Streams(ctx context.Context, groupID string) ([]Stream, error)
}

// M3USource reads streams from an M3U playlist, local path or URL.
// Entries are routed to groups by their group-title attribute.
type M3USource struct {
	location string
	http     *http.Client
}

func NewM3USource(location string) *M3USource {
	return &M3USource{
		location: location,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *M3USource) Streams(ctx context.Context, groupID string) ([]Stream, error) {
	content, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	all := Parse(content)
	out := make([]Stream, 0, len(all))
	for _, st := range all {
		if st.Group == groupID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *M3USource) read(ctx context.Context) (string, error) {
	if strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
		if err != nil {
			return "", err
		}
		res, err := s.http.Do(req)
		if err != nil {
			return "", fmt.Errorf("streams: fetch playlist: %w", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return "", fmt.Errorf("streams: fetch playlist: HTTP %d", res.StatusCode)
		}
		buf, err := io.ReadAll(res.Body)
		return string(buf), err
	}
	buf, err := os.ReadFile(s.location)
	if err != nil {
		return "", fmt.Errorf("streams: read playlist: %w", err)
	}
	return string(buf), nil
}

// Parse extracts streams from M3U content. Malformed lines are
// skipped; parsing never fails.
func Parse(content string) []Stream {
	var out []Stream
	var current Stream
	var haveInfo bool

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			current = Stream{Group: attr(line, "group-title")}
			// The display name follows the last comma.
			if idx := strings.LastIndex(line, ","); idx != -1 {
				current.RawName = strings.TrimSpace(line[idx+1:])
			}
			haveInfo = true
		case line != "" && !strings.HasPrefix(line, "#"):
			if !haveInfo || current.RawName == "" {
				continue
			}
			current.Ref = line
			out = append(out, current)
			haveInfo = false
		}
	}
	return out
}

func attr(line, name string) string {
	marker := name + `="`
	idx := strings.Index(line, marker)
	if idx == -1 {
		return ""
	}
	rest := line[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end == -1 {
		return ""
	}
	return rest[:end]
}
