// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package nrpe publishes nagios checks for the serial vault through the
// nrpe-external-master subordinate.
package nrpe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"
	goyaml "gopkg.in/yaml.v2"
)

var logger = loggo.GetLogger("serialvault.nrpe")

const (
	// Endpoint is the relation endpoint of the nrpe subordinate.
	Endpoint = "nrpe-external-master"

	// ConfDir is where nrpe reads its check commands from.
	ConfDir = "/etc/nagios/nrpe.d"

	// PluginDir holds the stock nagios plugins.
	PluginDir = "/usr/lib/nagios/plugins"

	// ServiceName is the systemd unit of the nrpe daemon.
	ServiceName = "nagios-nrpe-server"
)

// Check is a single nrpe check command.
type Check struct {
	Shortname   string
	Description string

	// Command is the plugin and its arguments. A bare plugin name is
	// resolved in PluginDir.
	Command string
}

// VhostCheck returns the check_http probe of the serial vault web
// service, with params passed verbatim to the plugin.
func VhostCheck(params string) Check {
	return Check{
		Shortname:   "vhost",
		Description: "Check Virtual Host",
		Command:     "check_http " + params,
	}
}

// Name returns the nrpe command name of c.
func (c Check) Name() string {
	return "check_" + c.Shortname
}

// FileName returns the name of the file defining c.
func (c Check) FileName() string {
	return c.Name() + ".cfg"
}

func (c Check) commandLine() string {
	if strings.HasPrefix(c.Command, "/") {
		return c.Command
	}
	return filepath.Join(PluginDir, c.Command)
}

// Render returns the nrpe config defining c, headed by the servicegroups
// of nagiosContext.
func (c Check) Render(nagiosContext string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# check %s\n", c.Shortname)
	buf.WriteString("# The following header was added automatically by juju\n")
	buf.WriteString("# Modifying it will affect nagios monitoring and alerting\n")
	fmt.Fprintf(&buf, "# servicegroups: %s\n", nagiosContext)
	fmt.Fprintf(&buf, "command[%s]=%s\n", c.Name(), c.commandLine())
	return buf.Bytes()
}

// Monitors returns the value of the "monitors" relation setting
// announcing checks to nagios.
func Monitors(checks []Check) (string, error) {
	nrpe := make(map[string]interface{})
	for _, c := range checks {
		nrpe[c.Shortname] = map[string]string{"command": c.Name()}
	}
	doc := map[string]interface{}{
		"monitors": map[string]interface{}{
			"remote": map[string]interface{}{
				"nrpe": nrpe,
			},
		},
	}
	out, err := goyaml.Marshal(doc)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(out), nil
}

// RelationWriter is the subset of hookenv.Context used to announce
// checks.
type RelationWriter interface {
	RelationIDs(endpoint string) ([]string, error)
	RelationSet(relationID string, settings map[string]string) error
}

// Restarter restarts the nrpe daemon.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Config holds the dependencies of an Updater.
type Config struct {
	Dir       string
	Relations RelationWriter
	Daemon    Restarter
}

// Validate checks the config is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.NotValidf("empty Dir")
	}
	if c.Relations == nil {
		return errors.NotValidf("nil Relations")
	}
	if c.Daemon == nil {
		return errors.NotValidf("nil Daemon")
	}
	return nil
}

// Updater installs checks and announces them.
type Updater struct {
	config Config
}

// NewUpdater returns an Updater for config.
func NewUpdater(config Config) (*Updater, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Updater{config: config}, nil
}

// Update writes a config file for every check, publishes the monitors
// on each nrpe relation and restarts the daemon if any file changed.
func (u *Updater) Update(ctx context.Context, nagiosContext string, checks []Check) error {
	if len(checks) == 0 {
		logger.Debugf("no nrpe checks configured")
		return nil
	}
	changed := false
	for _, c := range checks {
		written, err := u.writeCheck(c, nagiosContext)
		if err != nil {
			return errors.Trace(err)
		}
		changed = changed || written
	}

	monitors, err := Monitors(checks)
	if err != nil {
		return errors.Trace(err)
	}
	ids, err := u.config.Relations.RelationIDs(Endpoint)
	if err != nil {
		return errors.Trace(err)
	}
	for _, id := range ids {
		if err := u.config.Relations.RelationSet(id, map[string]string{"monitors": monitors}); err != nil {
			return errors.Annotatef(err, "publishing monitors on %s", id)
		}
	}

	if !changed {
		return nil
	}
	return errors.Annotatef(u.config.Daemon.Restart(ctx), "restarting %s", ServiceName)
}

func (u *Updater) writeCheck(c Check, nagiosContext string) (bool, error) {
	path := filepath.Join(u.config.Dir, c.FileName())
	data := c.Render(nagiosContext)
	current, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, errors.Trace(err)
	}
	if bytes.Equal(current, data) {
		return false, nil
	}
	if err := os.MkdirAll(u.config.Dir, 0755); err != nil {
		return false, errors.Trace(err)
	}
	if err := utils.AtomicWriteFile(path, data, 0644); err != nil {
		return false, errors.Annotatef(err, "writing %s", path)
	}
	logger.Infof("wrote nrpe check %s", c.Name())
	return true, nil
}
