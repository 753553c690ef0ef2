// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenvtesting

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/naturalsort"
	"github.com/juju/testing"

	"github.com/canonical/serial-vault-charm/core/status"
	"github.com/canonical/serial-vault-charm/internal/hookenv"
)

// Relation is a relation known to a FakeContext.
type Relation struct {
	Endpoint string

	// Units maps remote unit names to their published settings.
	Units map[string]map[string]interface{}

	// Local holds the settings published by the local unit.
	Local map[string]string
}

// StatusInfo records a status-set call.
type StatusInfo struct {
	Status  status.Status
	Message string
}

// FakeContext is an in-memory hookenv.Context.
type FakeContext struct {
	*testing.Stub

	Unit       string
	Dir        string
	CurrentRel string
	Remote     string

	ConfigValues map[string]interface{}

	// Relations is keyed by relation id, e.g. "database:1".
	Relations map[string]*Relation

	OpenedPorts set.Strings
	Statuses    []StatusInfo
	State       map[string]string
	Logs        []string
}

var _ hookenv.Context = (*FakeContext)(nil)

// NewFakeContext returns an empty context for the given unit.
func NewFakeContext(unit string) *FakeContext {
	return &FakeContext{
		Stub:         &testing.Stub{},
		Unit:         unit,
		Dir:          "/var/lib/juju/agents/unit-serial-vault-0/charm",
		ConfigValues: make(map[string]interface{}),
		Relations:    make(map[string]*Relation),
		OpenedPorts:  set.NewStrings(),
		State:        make(map[string]string),
	}
}

// AddRelation registers a relation with no units.
func (f *FakeContext) AddRelation(id, endpoint string) *Relation {
	rel := &Relation{
		Endpoint: endpoint,
		Units:    make(map[string]map[string]interface{}),
		Local:    make(map[string]string),
	}
	f.Relations[id] = rel
	return rel
}

// LastStatus returns the most recent status set, if any.
func (f *FakeContext) LastStatus() StatusInfo {
	if len(f.Statuses) == 0 {
		return StatusInfo{}
	}
	return f.Statuses[len(f.Statuses)-1]
}

func (f *FakeContext) UnitName() string   { return f.Unit }
func (f *FakeContext) CharmDir() string   { return f.Dir }
func (f *FakeContext) RelationID() string { return f.CurrentRel }
func (f *FakeContext) RemoteUnit() string { return f.Remote }

func (f *FakeContext) Config() (map[string]interface{}, error) {
	f.AddCall("Config")
	if err := f.NextErr(); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(f.ConfigValues))
	for k, v := range f.ConfigValues {
		out[k] = v
	}
	return out, nil
}

func (f *FakeContext) RelationIDs(endpoint string) ([]string, error) {
	f.AddCall("RelationIDs", endpoint)
	if err := f.NextErr(); err != nil {
		return nil, err
	}
	var ids []string
	for id, rel := range f.Relations {
		if rel.Endpoint == endpoint {
			ids = append(ids, id)
		}
	}
	return naturalsort.Sort(ids), nil
}

func (f *FakeContext) RelatedUnits(relationID string) ([]string, error) {
	f.AddCall("RelatedUnits", relationID)
	if err := f.NextErr(); err != nil {
		return nil, err
	}
	rel, ok := f.Relations[relationID]
	if !ok {
		return nil, errors.NotFoundf("relation %q", relationID)
	}
	var units []string
	for u := range rel.Units {
		units = append(units, u)
	}
	return naturalsort.Sort(units), nil
}

func (f *FakeContext) RelationGet(relationID, unit string) (map[string]interface{}, error) {
	f.AddCall("RelationGet", relationID, unit)
	if err := f.NextErr(); err != nil {
		return nil, err
	}
	rel, ok := f.Relations[relationID]
	if !ok {
		return nil, errors.NotFoundf("relation %q", relationID)
	}
	out := make(map[string]interface{})
	for k, v := range rel.Units[unit] {
		out[k] = v
	}
	return out, nil
}

func (f *FakeContext) RelationSet(relationID string, settings map[string]string) error {
	f.AddCall("RelationSet", relationID, settings)
	if err := f.NextErr(); err != nil {
		return err
	}
	rel, ok := f.Relations[relationID]
	if !ok {
		return errors.NotFoundf("relation %q", relationID)
	}
	for k, v := range settings {
		rel.Local[k] = v
	}
	return nil
}

func (f *FakeContext) OpenPort(port int, protocol string) error {
	f.AddCall("OpenPort", port, protocol)
	if err := f.NextErr(); err != nil {
		return err
	}
	f.OpenedPorts.Add(hookenv.PortRange(port, protocol))
	return nil
}

func (f *FakeContext) ClosePort(port int, protocol string) error {
	f.AddCall("ClosePort", port, protocol)
	if err := f.NextErr(); err != nil {
		return err
	}
	f.OpenedPorts.Remove(hookenv.PortRange(port, protocol))
	return nil
}

func (f *FakeContext) SetStatus(st status.Status, message string) error {
	f.AddCall("SetStatus", st, message)
	if err := f.NextErr(); err != nil {
		return err
	}
	f.Statuses = append(f.Statuses, StatusInfo{Status: st, Message: message})
	return nil
}

func (f *FakeContext) StateGet(key string) (string, bool, error) {
	f.AddCall("StateGet", key)
	if err := f.NextErr(); err != nil {
		return "", false, err
	}
	v, ok := f.State[key]
	return v, ok, nil
}

func (f *FakeContext) StateSet(key, value string) error {
	f.AddCall("StateSet", key, value)
	if err := f.NextErr(); err != nil {
		return err
	}
	f.State[key] = value
	return nil
}

func (f *FakeContext) Log(level loggo.Level, message string) error {
	f.Logs = append(f.Logs, level.String()+" "+message)
	return nil
}
