// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooks names the lifecycle events Juju delivers to a charm and
// parses hook names into them.
package hooks

import (
	"strings"

	"github.com/juju/errors"
)

// Kind enumerates the different kinds of hooks that exist.
type Kind string

const (
	// None of these hooks are ever associated with a relation; each of them
	// represents a change to the state of the unit as a whole.
	Install       Kind = "install"
	Start         Kind = "start"
	ConfigChanged Kind = "config-changed"
	UpgradeCharm  Kind = "upgrade-charm"
	Stop          Kind = "stop"
	Remove        Kind = "remove"
	UpdateStatus  Kind = "update-status"

	LeaderElected         Kind = "leader-elected"
	LeaderSettingsChanged Kind = "leader-settings-changed"

	// These hooks require an associated relation, and the name of the
	// relation endpoint prefixes the kind in the hook name.
	RelationCreated  Kind = "relation-created"
	RelationJoined   Kind = "relation-joined"
	RelationChanged  Kind = "relation-changed"
	RelationDeparted Kind = "relation-departed"
	RelationBroken   Kind = "relation-broken"
)

var unitHooks = []Kind{
	Install,
	Start,
	ConfigChanged,
	UpgradeCharm,
	Stop,
	Remove,
	UpdateStatus,
	LeaderElected,
	LeaderSettingsChanged,
}

var relationHooks = []Kind{
	RelationCreated,
	RelationJoined,
	RelationChanged,
	RelationDeparted,
	RelationBroken,
}

// IsRelation returns whether the Kind represents a relation hook.
func (kind Kind) IsRelation() bool {
	for _, k := range relationHooks {
		if kind == k {
			return true
		}
	}
	return false
}

// Info identifies a single hook invocation.
type Info struct {
	Kind Kind

	// Endpoint is the relation endpoint name for relation hooks,
	// empty otherwise.
	Endpoint string
}

// Name returns the hook name as Juju would dispatch it.
func (i Info) Name() string {
	if i.Endpoint == "" {
		return string(i.Kind)
	}
	return i.Endpoint + "-" + string(i.Kind)
}

// Parse splits a hook name such as "database-relation-changed" into its
// endpoint and kind.
func Parse(name string) (Info, error) {
	for _, k := range unitHooks {
		if name == string(k) {
			return Info{Kind: k}, nil
		}
	}
	for _, k := range relationHooks {
		suffix := "-" + string(k)
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		endpoint := strings.TrimSuffix(name, suffix)
		if endpoint == "" {
			break
		}
		return Info{Kind: k, Endpoint: endpoint}, nil
	}
	return Info{}, errors.NotValidf("hook name %q", name)
}
