// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package ports keeps the unit's opened ports in line with the configured
// service type: the port of the selected mode is open, every other
// serial vault port is closed.
package ports

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/canonical/serial-vault-charm/internal/charmconfig"
)

var logger = loggo.GetLogger("serialvault.ports")

// Protocol is the only protocol the service listens on.
const Protocol = "tcp"

// Mapping names the port to open for a service type and the ports that
// must be closed while it is.
type Mapping struct {
	Open  int
	Close set.Ints
}

// Table is the fixed port mapping of the serial vault. 8082 is reserved
// and closed in every mode.
var Table = map[charmconfig.ServiceType]Mapping{
	charmconfig.Signing: {Open: 8080, Close: set.NewInts(8081, 8082)},
	charmconfig.Admin:   {Open: 8081, Close: set.NewInts(8080, 8082)},
}

// OpenPort returns the port served in the given mode.
func OpenPort(serviceType charmconfig.ServiceType) (int, bool) {
	m, ok := Table[serviceType]
	return m.Open, ok
}

// PortOpener is the subset of hookenv.Context used to manage ports.
type PortOpener interface {
	OpenPort(port int, protocol string) error
	ClosePort(port int, protocol string) error
}

// Manager applies the port mapping to a unit.
type Manager struct {
	opener PortOpener
}

// NewManager returns a Manager operating through opener.
func NewManager(opener PortOpener) *Manager {
	return &Manager{opener: opener}
}

// Apply opens the port of serviceType and closes the others. An unknown
// service type leaves the ports untouched.
func (m *Manager) Apply(serviceType charmconfig.ServiceType) error {
	mapping, ok := Table[serviceType]
	if !ok {
		logger.Warningf("unknown service type %q, leaving ports unchanged", serviceType)
		return nil
	}
	if err := m.opener.OpenPort(mapping.Open, Protocol); err != nil {
		return errors.Trace(err)
	}
	for _, port := range mapping.Close.SortedValues() {
		if err := m.opener.ClosePort(port, Protocol); err != nil {
			return errors.Trace(err)
		}
	}
	logger.Debugf("opened port %d for %s mode", mapping.Open, serviceType)
	return nil
}
