// SPDX-License-Identifier: MIT

package reconcile

import (
	"sort"

	"github.com/sportarr/sportarr/internal/lifecycle"
	"github.com/sportarr/sportarr/internal/registry"
)

// ActionType classifies one corrective registry call.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// Action is one corrective call the reconciler wants to issue.
type Action struct {
	Type ActionType
	// Ref is the registry ref for update/delete; empty for create.
	Ref string
	// ChannelRef is the managed channel this action serves, empty for
	// orphan deletes.
	ChannelRef string
	Spec       registry.Spec
	Reason     string
}

// Report summarizes one reconciliation pass for observability.
type Report struct {
	Desired    int      `json:"desired"`
	Pending    int      `json:"pending"`
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Deleted    int      `json:"deleted"`
	Orphaned   int      `json:"orphaned"`
	Unchanged  int      `json:"unchanged"`
	Unassigned []string `json:"unassigned,omitempty"`
	// FetchFailed means the registry listing could not be obtained;
	// the pass performed zero destructive actions.
	FetchFailed bool `json:"fetch_failed"`
	// DryRun means actions were computed but not applied.
	DryRun bool     `json:"dry_run"`
	Errors []string `json:"errors,omitempty"`
}

// diff computes the corrective actions turning actual into desired.
// Deletes are ordered first so freed numbers can be reused by the
// updates and creates that follow; a number is never handed to a
// different entity before the delete that frees it.
func diff(desired []lifecycle.Channel, actual []registry.Channel) ([]Action, Report) {
	rep := Report{}
	byRef := make(map[string]registry.Channel, len(actual))
	for _, ch := range actual {
		byRef[ch.Ref] = ch
	}

	claimed := make(map[string]bool, len(desired))
	var creates, updates, deletes []Action

	for _, ch := range desired {
		if ch.State.Terminal() {
			if ch.RegistryRef != "" {
				if _, ok := byRef[ch.RegistryRef]; ok {
					claimed[ch.RegistryRef] = true
					deletes = append(deletes, Action{
						Type: ActionDelete, Ref: ch.RegistryRef, ChannelRef: ch.Ref,
						Reason: "lifecycle deleted",
					})
					rep.Deleted++
				}
			}
			continue
		}

		// A channel whose create timing has not fired yet must not
		// exist externally. Its number stays reserved by allocation so
		// activation later does not renumber the group.
		if ch.State == lifecycle.StatePending {
			if ch.RegistryRef != "" {
				claimed[ch.RegistryRef] = true
			}
			rep.Pending++
			continue
		}

		rep.Desired++
		spec := registry.Spec{Name: ch.Name, Number: ch.Number, GroupID: ch.GroupID}

		ext, known := registry.Channel{}, false
		if ch.RegistryRef != "" {
			ext, known = byRef[ch.RegistryRef]
		}
		if !known {
			creates = append(creates, Action{Type: ActionCreate, ChannelRef: ch.Ref, Spec: spec, Reason: "missing externally"})
			rep.Created++
			continue
		}

		claimed[ch.RegistryRef] = true
		if ext.Name != spec.Name || ext.Number != spec.Number || ext.GroupID != spec.GroupID {
			updates = append(updates, Action{Type: ActionUpdate, Ref: ch.RegistryRef, ChannelRef: ch.Ref, Spec: spec, Reason: "attributes drifted"})
			rep.Updated++
		} else {
			rep.Unchanged++
		}
	}

	// Managed registry channels nothing desires anymore are orphans.
	// Foreign channels are never touched.
	for _, ext := range actual {
		if !ext.Managed() || claimed[ext.Ref] {
			continue
		}
		deletes = append(deletes, Action{Type: ActionDelete, Ref: ext.Ref, Reason: "orphaned"})
		rep.Orphaned++
	}

	sort.SliceStable(deletes, func(i, j int) bool { return deletes[i].Ref < deletes[j].Ref })

	actions := make([]Action, 0, len(deletes)+len(updates)+len(creates))
	actions = append(actions, deletes...)
	actions = append(actions, updates...)
	actions = append(actions, creates...)
	return actions, rep
}
