// SPDX-License-Identifier: MIT

// Package registry talks to the external channel registry. The
// registry owns the real channel objects; this package only mirrors
// them. All calls are context-bound, rate limited and return typed
// errors the reconciler can branch on.
package registry

import (
	"context"
	"time"
)

// Channel is a registry-side channel as reported by list or accepted
// by create/update.
type Channel struct {
	Ref    string `json:"ref"`
	Name   string `json:"name"`
	Number int    `json:"number"`
	// GroupID is set on channels this system manages. Channels without
	// it are foreign: their numbers are occupied and they are never
	// touched.
	GroupID string `json:"group_id,omitempty"`
}

// Managed reports whether this system owns the channel.
func (c Channel) Managed() bool { return c.GroupID != "" }

// Spec is the writable subset of a channel.
type Spec struct {
	Name    string `json:"name"`
	Number  int    `json:"number"`
	GroupID string `json:"group_id"`
}

// API is the registry surface the reconciler depends on. The HTTP
// client implements it; tests substitute fakes.
type API interface {
	List(ctx context.Context) ([]Channel, error)
	Create(ctx context.Context, spec Spec) (Channel, error)
	Update(ctx context.Context, ref string, spec Spec) error
	Delete(ctx context.Context, ref string) error
}

// ListCacheTTL bounds how stale a cached channel listing may be before
// the next pass fetches again.
const ListCacheTTL = 30 * time.Second
