// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package superuser seeds the administrator accounts of the serial vault
// through its admin command line tool.
package superuser

import (
	"github.com/juju/loggo/v2"

	"github.com/canonical/serial-vault-charm/internal/runner"
)

var logger = loggo.GetLogger("serialvault.superuser")

const (
	// AdminCommand is the serial vault administration tool.
	AdminCommand = "serial-vault-admin"

	role = "superuser"
)

// Provisioner creates superuser accounts.
type Provisioner struct {
	runner       runner.Runner
	settingsPath string
}

// NewProvisioner returns a Provisioner pointing the admin tool at the
// settings file in settingsPath.
func NewProvisioner(r runner.Runner, settingsPath string) *Provisioner {
	return &Provisioner{runner: r, settingsPath: settingsPath}
}

// Ensure creates an account for each user, using the user name as the
// display name. Accounts that already exist make the tool fail, so every
// failure is logged and skipped. The users that could not be created are
// returned.
func (p *Provisioner) Ensure(users []string) []string {
	var failed []string
	for _, user := range users {
		_, err := p.runner.Run(runner.Command{
			Name: AdminCommand,
			Args: []string{"user", "add", user, "-n", user, "-r", role, "--config", p.settingsPath},
		})
		if runner.IsExitError(err) {
			logger.Warningf("%s rejected superuser %q: %v", AdminCommand, user, err)
			failed = append(failed, user)
			continue
		}
		if err != nil {
			logger.Warningf("cannot create superuser %q: %v", user, err)
			failed = append(failed, user)
			continue
		}
		logger.Infof("created superuser %q", user)
	}
	return failed
}
