// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package reconciler

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// State is the lifecycle state of the serial vault on this unit. It is
// persisted between hooks.
type State string

const (
	// Uninstalled is the state of a unit before the install hook ran.
	Uninstalled State = "uninstalled"

	// Available means the service is installed and enabled but is not
	// serving, usually because the database is not ready.
	Available State = "available"

	// Active means the service is configured and running.
	Active State = "active"
)

// StateKey is the unit state key the lifecycle state is stored under.
const StateKey = "serial-vault.state"

var transitions = map[State]set.Strings{
	Uninstalled: set.NewStrings(string(Available)),
	Available:   set.NewStrings(string(Available), string(Active)),
	Active:      set.NewStrings(string(Active), string(Available)),
}

// Validate returns an error if s is not a known state.
func (s State) Validate() error {
	if _, ok := transitions[s]; !ok {
		return errors.NotValidf("state %q", s)
	}
	return nil
}

// CanTransitionTo reports whether the unit may move from s to next.
func (s State) CanTransitionTo(next State) bool {
	allowed, ok := transitions[s]
	return ok && allowed.Contains(string(next))
}

// StateStore is the subset of hookenv.Context used to persist the state.
type StateStore interface {
	StateGet(key string) (string, bool, error)
	StateSet(key, value string) error
}

// LoadState reads the persisted state. A unit that never stored one is
// Uninstalled.
func LoadState(store StateStore) (State, error) {
	value, ok, err := store.StateGet(StateKey)
	if err != nil {
		return "", errors.Annotate(err, "reading unit state")
	}
	if !ok || value == "" {
		return Uninstalled, nil
	}
	st := State(value)
	if err := st.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	return st, nil
}

// SaveState moves the persisted state from current to next.
func SaveState(store StateStore, current, next State) error {
	if !current.CanTransitionTo(next) {
		return errors.NotValidf("transition from %q to %q", current, next)
	}
	if err := store.StateSet(StateKey, string(next)); err != nil {
		return errors.Annotate(err, "saving unit state")
	}
	if current != next {
		logger.Infof("serial-vault %s -> %s", current, next)
	}
	return nil
}
