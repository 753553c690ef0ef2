// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenv

import (
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/naturalsort"
	goyaml "gopkg.in/yaml.v2"

	"github.com/canonical/serial-vault-charm/core/status"
	"github.com/canonical/serial-vault-charm/internal/runner"
)

var logger = loggo.GetLogger("serialvault.hookenv")

// HookTools implements Context by invoking the hook tools Juju puts on
// the PATH of a running hook.
type HookTools struct {
	env    Environ
	runner runner.Runner
}

// NewHookTools returns a Context backed by the hook tools.
func NewHookTools(env Environ, r runner.Runner) *HookTools {
	return &HookTools{env: env, runner: r}
}

// UnitName implements Context.
func (t *HookTools) UnitName() string {
	return t.env.UnitName
}

// CharmDir implements Context.
func (t *HookTools) CharmDir() string {
	return t.env.CharmDir
}

// RelationID implements Context.
func (t *HookTools) RelationID() string {
	return t.env.RelationID
}

// RemoteUnit implements Context.
func (t *HookTools) RemoteUnit() string {
	return t.env.RemoteUnit
}

// Config implements Context.
func (t *HookTools) Config() (map[string]interface{}, error) {
	var cfg map[string]interface{}
	if err := t.runYAML(&cfg, "config-get", "--all", "--format=yaml"); err != nil {
		return nil, errors.Annotate(err, "reading charm config")
	}
	if cfg == nil {
		cfg = make(map[string]interface{})
	}
	return cfg, nil
}

// RelationIDs implements Context.
func (t *HookTools) RelationIDs(endpoint string) ([]string, error) {
	var ids []string
	if err := t.runYAML(&ids, "relation-ids", "--format=yaml", endpoint); err != nil {
		return nil, errors.Annotatef(err, "listing %q relations", endpoint)
	}
	return naturalsort.Sort(ids), nil
}

// RelatedUnits implements Context. Units are returned in natural order,
// so "postgresql/2" comes before "postgresql/10".
func (t *HookTools) RelatedUnits(relationID string) ([]string, error) {
	var units []string
	if err := t.runYAML(&units, "relation-list", "--format=yaml", "-r", relationID); err != nil {
		return nil, errors.Annotatef(err, "listing units of relation %q", relationID)
	}
	return naturalsort.Sort(units), nil
}

// RelationGet implements Context.
func (t *HookTools) RelationGet(relationID, unit string) (map[string]interface{}, error) {
	var settings map[string]interface{}
	if err := t.runYAML(&settings, "relation-get", "--format=yaml", "-r", relationID, "-", unit); err != nil {
		return nil, errors.Annotatef(err, "reading settings of %q on relation %q", unit, relationID)
	}
	if settings == nil {
		settings = make(map[string]interface{})
	}
	return settings, nil
}

// RelationSet implements Context.
func (t *HookTools) RelationSet(relationID string, settings map[string]string) error {
	if len(settings) == 0 {
		return nil
	}
	args := []string{"-r", relationID}
	args = append(args, keyValues(settings)...)
	_, err := t.run("relation-set", args...)
	return errors.Annotatef(err, "updating relation %q", relationID)
}

// OpenPort implements Context.
func (t *HookTools) OpenPort(port int, protocol string) error {
	_, err := t.run("open-port", PortRange(port, protocol))
	return errors.Annotatef(err, "opening port %s", PortRange(port, protocol))
}

// ClosePort implements Context.
func (t *HookTools) ClosePort(port int, protocol string) error {
	_, err := t.run("close-port", PortRange(port, protocol))
	return errors.Annotatef(err, "closing port %s", PortRange(port, protocol))
}

// SetStatus implements Context.
func (t *HookTools) SetStatus(st status.Status, message string) error {
	if !status.ValidWorkloadStatus(st) {
		return errors.NotValidf("workload status %q", st)
	}
	_, err := t.run("status-set", st.String(), message)
	return errors.Annotatef(err, "setting status %q", st)
}

// StateGet implements Context.
func (t *HookTools) StateGet(key string) (string, bool, error) {
	var values map[string]string
	if err := t.runYAML(&values, "state-get", "--format=yaml"); err != nil {
		return "", false, errors.Annotate(err, "reading unit state")
	}
	value, ok := values[key]
	return value, ok, nil
}

// StateSet implements Context.
func (t *HookTools) StateSet(key, value string) error {
	_, err := t.run("state-set", key+"="+value)
	return errors.Annotatef(err, "persisting unit state %q", key)
}

// Log implements Context.
func (t *HookTools) Log(level loggo.Level, message string) error {
	_, err := t.run("juju-log", "-l", level.String(), message)
	return errors.Trace(err)
}

func (t *HookTools) run(tool string, args ...string) ([]byte, error) {
	return t.runner.Run(runner.Command{Name: tool, Args: args})
}

func (t *HookTools) runYAML(out interface{}, tool string, args ...string) error {
	data, err := t.run(tool, args...)
	if err != nil {
		return errors.Trace(err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := goyaml.Unmarshal(data, out); err != nil {
		logger.Debugf("unparseable %s output: %q", tool, data)
		return errors.Annotatef(err, "parsing %s output", tool)
	}
	return nil
}

func keyValues(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + settings[k]
	}
	return out
}
