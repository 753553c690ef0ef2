// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package deploy installs and upgrades the serial vault, either from the
// archive or by building a tagged release from source.
package deploy

import (
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/proxy"

	"github.com/canonical/serial-vault-charm/internal/charmconfig"
	"github.com/canonical/serial-vault-charm/internal/runner"
)

var logger = loggo.GetLogger("serialvault.deploy")

const (
	// Package is the name of the serial vault package.
	Package = "serial-vault"

	// InstallScript is the build script shipped with the charm, relative
	// to the charm directory.
	InstallScript = "scripts/install.sh"
)

// Strategy installs and upgrades the service binaries.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// NeedsEntropy reports whether the kernel entropy pool should be
	// seeded before Install, as key generation would otherwise stall.
	NeedsEntropy() bool

	// Install puts the service in place for the first time.
	Install(cfg charmconfig.ServiceConfig) error

	// Upgrade refreshes the service binaries.
	Upgrade(cfg charmconfig.ServiceConfig) error

	// RestartAfterUpgrade reports whether the service can be restarted
	// right after Upgrade, or must wait for the next configuration.
	RestartAfterUpgrade() bool
}

// NewStrategy picks the strategy for cfg: building from source when a
// tagged release is configured, the package archive otherwise.
func NewStrategy(cfg charmconfig.ServiceConfig, r runner.Runner, charmDir string, proxies proxy.Settings) Strategy {
	if cfg.TaggedRelease != "" {
		return NewSourceStrategy(r, charmDir, proxies)
	}
	return NewPackageStrategy(r, proxies)
}

// PackageStrategy installs the service from the package archive.
type PackageStrategy struct {
	runner  runner.Runner
	proxies proxy.Settings
}

// NewPackageStrategy returns a PackageStrategy fetching packages through
// proxies.
func NewPackageStrategy(r runner.Runner, proxies proxy.Settings) *PackageStrategy {
	return &PackageStrategy{runner: r, proxies: proxies}
}

// Name implements Strategy.
func (*PackageStrategy) Name() string { return "package" }

// NeedsEntropy implements Strategy.
func (*PackageStrategy) NeedsEntropy() bool { return false }

// RestartAfterUpgrade implements Strategy.
func (*PackageStrategy) RestartAfterUpgrade() bool { return true }

// Install implements Strategy.
func (p *PackageStrategy) Install(charmconfig.ServiceConfig) error {
	return errors.Trace(p.apt("install", "--assume-yes", Package))
}

// Upgrade implements Strategy.
func (p *PackageStrategy) Upgrade(charmconfig.ServiceConfig) error {
	return errors.Trace(p.apt("install", "--assume-yes", "--only-upgrade", Package))
}

func (p *PackageStrategy) apt(args ...string) error {
	env := append([]string{"DEBIAN_FRONTEND=noninteractive", "APT_LISTCHANGES_FRONTEND=none"},
		p.proxies.AsEnvironmentValues()...)
	if _, err := p.runner.Run(runner.Command{Name: "apt-get", Args: []string{"update"}, Env: env}); err != nil {
		return errors.Annotate(err, "updating package lists")
	}
	logger.Infof("apt-get %v", args)
	if _, err := p.runner.Run(runner.Command{Name: "apt-get", Args: args, Env: env}); err != nil {
		return errors.Annotatef(err, "installing %s", Package)
	}
	return nil
}

// SourceStrategy builds a tagged release with the charm's install script.
type SourceStrategy struct {
	runner  runner.Runner
	script  string
	dir     string
	proxies proxy.Settings
}

// NewSourceStrategy returns a SourceStrategy running the install script
// of the charm in charmDir.
func NewSourceStrategy(r runner.Runner, charmDir string, proxies proxy.Settings) *SourceStrategy {
	return &SourceStrategy{
		runner:  r,
		script:  filepath.Join(charmDir, InstallScript),
		dir:     charmDir,
		proxies: proxies,
	}
}

// Name implements Strategy.
func (*SourceStrategy) Name() string { return "source" }

// NeedsEntropy implements Strategy.
func (*SourceStrategy) NeedsEntropy() bool { return true }

// RestartAfterUpgrade implements Strategy.
func (*SourceStrategy) RestartAfterUpgrade() bool { return false }

// Install implements Strategy.
func (s *SourceStrategy) Install(cfg charmconfig.ServiceConfig) error {
	return errors.Trace(s.build(cfg))
}

// Upgrade implements Strategy.
func (s *SourceStrategy) Upgrade(cfg charmconfig.ServiceConfig) error {
	return errors.Trace(s.build(cfg))
}

func (s *SourceStrategy) build(cfg charmconfig.ServiceConfig) error {
	if cfg.TaggedRelease == "" {
		return errors.NotValidf("empty tagged_release")
	}
	logger.Infof("building %s release %s", Package, cfg.TaggedRelease)
	// Configured variables come last so they override the model proxies.
	env := append(s.proxies.AsEnvironmentValues(), charmconfig.EnvironmentList(cfg.Environment)...)
	_, err := s.runner.Run(runner.Command{
		Name: s.script,
		Args: []string{cfg.TaggedRelease},
		Env:  env,
		Dir:  s.dir,
	})
	return errors.Annotatef(err, "building release %s", cfg.TaggedRelease)
}

// SeedEntropy feeds the kernel entropy pool from the hardware random
// number generator daemon.
func SeedEntropy(r runner.Runner) error {
	_, err := r.Run(runner.Command{Name: "rngd", Args: []string{"-r", "/dev/urandom"}})
	return errors.Annotate(err, "seeding entropy")
}
