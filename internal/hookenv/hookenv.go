// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hookenv gives a charm access to its hook context: the
// operator's config, relation data, ports, workload status and unit
// state. All of it is served by the Juju hook tools on the PATH of a
// running hook.
package hookenv

import (
	"os"
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/proxy"

	"github.com/canonical/serial-vault-charm/core/status"
)

// Context is the view of the hook context the charm operates against.
// Nothing is cached between hooks; every call reflects the current
// context.
type Context interface {
	// UnitName returns the name of the local unit, e.g. "serial-vault/0".
	UnitName() string

	// CharmDir returns the directory holding the deployed charm.
	CharmDir() string

	// RelationID returns the relation the current hook is running for,
	// e.g. "database:3", or empty outside relation hooks.
	RelationID() string

	// RemoteUnit returns the remote unit of the current relation hook.
	RemoteUnit() string

	// Config returns the charm config with every key, unset ones as nil.
	Config() (map[string]interface{}, error)

	// RelationIDs returns the ids of the relations on the given endpoint.
	RelationIDs(endpoint string) ([]string, error)

	// RelatedUnits returns the remote units participating in a relation.
	RelatedUnits(relationID string) ([]string, error)

	// RelationGet returns the relation settings published by unit.
	RelationGet(relationID, unit string) (map[string]interface{}, error)

	// RelationSet publishes settings for the local unit on a relation.
	RelationSet(relationID string, settings map[string]string) error

	// OpenPort and ClosePort register port changes with the firewaller.
	// Both are idempotent.
	OpenPort(port int, protocol string) error
	ClosePort(port int, protocol string) error

	// SetStatus reports the workload status of the unit.
	SetStatus(st status.Status, message string) error

	// StateGet reads a value from the unit's persisted state.
	StateGet(key string) (string, bool, error)

	// StateSet persists a value in the unit's state.
	StateSet(key, value string) error

	// Log writes a message to the unit's log in the controller.
	Log(level loggo.Level, message string) error
}

// Environ holds the hook context variables Juju sets for every hook.
type Environ struct {
	ContextID    string
	UnitName     string
	CharmDir     string
	HookName     string
	DispatchPath string
	RelationID   string
	RemoteUnit   string

	// Proxy holds the model's charm proxy settings.
	Proxy proxy.Settings
}

// EnvironFromOS reads the hook context variables from the process
// environment.
func EnvironFromOS() Environ {
	return EnvironFrom(os.Getenv)
}

// EnvironFrom reads the hook context variables using getenv.
func EnvironFrom(getenv func(string) string) Environ {
	return Environ{
		ContextID:    getenv("JUJU_CONTEXT_ID"),
		UnitName:     getenv("JUJU_UNIT_NAME"),
		CharmDir:     getenv("CHARM_DIR"),
		HookName:     getenv("JUJU_HOOK_NAME"),
		DispatchPath: getenv("JUJU_DISPATCH_PATH"),
		RelationID:   getenv("JUJU_RELATION_ID"),
		RemoteUnit:   getenv("JUJU_REMOTE_UNIT"),
		Proxy: proxy.Settings{
			Http:    getenv("JUJU_CHARM_HTTP_PROXY"),
			Https:   getenv("JUJU_CHARM_HTTPS_PROXY"),
			Ftp:     getenv("JUJU_CHARM_FTP_PROXY"),
			NoProxy: getenv("JUJU_CHARM_NO_PROXY"),
		},
	}
}

// InHook reports whether the environment belongs to a running hook.
func (e Environ) InHook() bool {
	return e.ContextID != ""
}

// Validate checks that the variables required to run hooks are set.
func (e Environ) Validate() error {
	if e.UnitName == "" {
		return errors.NotValidf("missing JUJU_UNIT_NAME")
	}
	if e.CharmDir == "" {
		return errors.NotValidf("missing CHARM_DIR")
	}
	return nil
}

// PortRange formats a single port in the form the port hook tools accept.
func PortRange(port int, protocol string) string {
	return strconv.Itoa(port) + "/" + protocol
}
