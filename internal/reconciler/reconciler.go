// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package reconciler brings the unit in line with its charm config and
// relations, once per hook.
package reconciler

import (
	"context"
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"

	"github.com/canonical/serial-vault-charm/core/hooks"
	"github.com/canonical/serial-vault-charm/core/status"
	"github.com/canonical/serial-vault-charm/internal/charmconfig"
	"github.com/canonical/serial-vault-charm/internal/database"
	"github.com/canonical/serial-vault-charm/internal/deploy"
	"github.com/canonical/serial-vault-charm/internal/hookenv"
	"github.com/canonical/serial-vault-charm/internal/nrpe"
	"github.com/canonical/serial-vault-charm/internal/ports"
	"github.com/canonical/serial-vault-charm/internal/settings"
)

var logger = loggo.GetLogger("serialvault.reconciler")

// WebsiteEndpoint is the http interface offered to reverse proxies.
const WebsiteEndpoint = "website"

// Status messages.
const (
	MsgWaitingForDatabase = "Waiting for database"
	MsgInstalling         = "Installing serial-vault"
	MsgConfiguring        = "Configuring service"
	MsgRefreshing         = "Refreshing the service"
)

// ServiceController manages the serial vault systemd unit.
type ServiceController interface {
	Enable(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	// WriteEnvironment installs env for the unit, reloading systemd if
	// it changed.
	WriteEnvironment(ctx context.Context, env map[string]string) (bool, error)
}

// SettingsWriter writes the service settings file.
type SettingsWriter interface {
	Write(p settings.Params) error
}

// SuperuserProvisioner creates superuser accounts and returns the ones
// it could not create.
type SuperuserProvisioner interface {
	Ensure(users []string) []string
}

// NRPEUpdater installs and announces nagios checks.
type NRPEUpdater interface {
	Update(ctx context.Context, nagiosContext string, checks []nrpe.Check) error
}

// Config holds the dependencies of a Reconciler.
type Config struct {
	Context    hookenv.Context
	Service    ServiceController
	Settings   SettingsWriter
	Superusers SuperuserProvisioner
	NRPE       NRPEUpdater

	// NewStrategy picks how the service is installed for a config.
	NewStrategy func(charmconfig.ServiceConfig) deploy.Strategy

	// SeedEntropy is called before installing with a strategy that
	// needs it.
	SeedEntropy func() error
}

// Validate checks every dependency is set.
func (c Config) Validate() error {
	if c.Context == nil {
		return errors.NotValidf("nil Context")
	}
	if c.Service == nil {
		return errors.NotValidf("nil Service")
	}
	if c.Settings == nil {
		return errors.NotValidf("nil Settings")
	}
	if c.Superusers == nil {
		return errors.NotValidf("nil Superusers")
	}
	if c.NRPE == nil {
		return errors.NotValidf("nil NRPE")
	}
	if c.NewStrategy == nil {
		return errors.NotValidf("nil NewStrategy")
	}
	if c.SeedEntropy == nil {
		return errors.NotValidf("nil SeedEntropy")
	}
	return nil
}

// Reconciler handles the hooks of the serial vault charm.
type Reconciler struct {
	config Config
	ctx    hookenv.Context
	ports  *ports.Manager
}

// New returns a Reconciler for config.
func New(config Config) (*Reconciler, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Reconciler{
		config: config,
		ctx:    config.Context,
		ports:  ports.NewManager(config.Context),
	}, nil
}

// Handle runs the handler for hookName. Hooks the charm has no interest
// in are ignored. A nil error means the hook succeeded, including when
// it had to wait for the database.
func (r *Reconciler) Handle(ctx context.Context, hookName string) error {
	info, err := hooks.Parse(hookName)
	if err != nil {
		logger.Debugf("ignoring %v", err)
		return nil
	}
	logger.Debugf("running %s hook", info.Name())

	switch info.Kind {
	case hooks.Install:
		return errors.Trace(r.install(ctx))
	case hooks.ConfigChanged:
		return errors.Trace(r.configChanged(ctx))
	case hooks.UpgradeCharm:
		return errors.Trace(r.upgrade(ctx))
	}

	if !info.Kind.IsRelation() {
		logger.Debugf("nothing to do for %s", info.Name())
		return nil
	}
	switch info.Endpoint {
	case database.Endpoint:
		return errors.Trace(r.databaseHook(ctx, info.Kind))
	case WebsiteEndpoint:
		if info.Kind == hooks.RelationJoined || info.Kind == hooks.RelationChanged {
			return errors.Trace(r.publishWebsite())
		}
	case nrpe.Endpoint:
		if info.Kind == hooks.RelationJoined || info.Kind == hooks.RelationChanged {
			cfg, err := r.readConfig()
			if err != nil {
				return errors.Trace(err)
			}
			return errors.Trace(r.updateNRPE(ctx, cfg))
		}
	}
	logger.Debugf("nothing to do for %s", info.Name())
	return nil
}

func (r *Reconciler) readConfig() (charmconfig.ServiceConfig, error) {
	attrs, err := r.ctx.Config()
	if err != nil {
		return charmconfig.ServiceConfig{}, errors.Trace(err)
	}
	cfg, err := charmconfig.Parse(attrs)
	return cfg, errors.Trace(err)
}

func (r *Reconciler) install(ctx context.Context) error {
	st, err := LoadState(r.ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if st != Uninstalled {
		logger.Infof("serial-vault already installed (%s)", st)
		return nil
	}
	cfg, err := r.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	if err := r.ctx.SetStatus(status.Maintenance, MsgInstalling); err != nil {
		return errors.Trace(err)
	}
	if err := r.ports.Apply(cfg.ServiceType); err != nil {
		return errors.Annotate(err, "opening ports")
	}

	strategy := r.config.NewStrategy(cfg)
	if strategy.NeedsEntropy() {
		if err := r.config.SeedEntropy(); err != nil {
			return errors.Trace(err)
		}
	}
	logger.Infof("installing serial-vault from %s", strategy.Name())
	if err := strategy.Install(cfg); err != nil {
		return errors.Trace(err)
	}
	if _, err := r.config.Service.WriteEnvironment(ctx, cfg.Environment); err != nil {
		return errors.Trace(err)
	}
	// The service cannot serve without a database, so it is only
	// enabled here and started once configured.
	if err := r.config.Service.Enable(ctx); err != nil {
		return errors.Trace(err)
	}
	if err := r.ctx.SetStatus(status.Maintenance, MsgWaitingForDatabase); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(SaveState(r.ctx, st, Available))
}

func (r *Reconciler) configChanged(ctx context.Context) error {
	st, err := LoadState(r.ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if st == Uninstalled {
		logger.Infof("serial-vault not installed yet, skipping configuration")
		return nil
	}
	cfg, err := r.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	if err := r.configure(ctx, st, cfg); err != nil {
		return errors.Trace(err)
	}

	ids, err := r.ctx.RelationIDs(nrpe.Endpoint)
	if err != nil {
		return errors.Trace(err)
	}
	if len(ids) == 0 {
		return nil
	}
	return errors.Trace(r.updateNRPE(ctx, cfg))
}

// configure writes the settings and (re)starts the service once the
// database is ready. Until then it leaves ports and files untouched.
func (r *Reconciler) configure(ctx context.Context, st State, cfg charmconfig.ServiceConfig) error {
	creds, err := database.Resolve(r.ctx)
	switch {
	case database.IsNotReady(err):
		logger.Infof("%v, skipping configuration", err)
		if errors.Is(err, database.ErrNoRelation) {
			return nil
		}
		return errors.Trace(r.ctx.SetStatus(status.Maintenance, MsgWaitingForDatabase))
	case err != nil:
		return errors.Annotate(err, "resolving database")
	}

	if err := r.ctx.SetStatus(status.Maintenance, MsgConfiguring); err != nil {
		return errors.Trace(err)
	}
	if err := r.ports.Apply(cfg.ServiceType); err != nil {
		return errors.Annotate(err, "opening ports")
	}
	if err := r.config.Settings.Write(settings.NewParams(cfg, creds)); err != nil {
		return errors.Trace(err)
	}
	if _, err := r.config.Service.WriteEnvironment(ctx, cfg.Environment); err != nil {
		return errors.Trace(err)
	}
	if err := r.config.Service.Restart(ctx); err != nil {
		return errors.Trace(err)
	}

	if cfg.EnableUserAuth && len(cfg.Superusers) > 0 {
		if failed := r.config.Superusers.Ensure(cfg.Superusers); len(failed) > 0 {
			logger.Warningf("could not create superusers %v", failed)
		}
	}

	if err := r.ctx.SetStatus(status.Active, ""); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(SaveState(r.ctx, st, Active))
}

func (r *Reconciler) databaseHook(ctx context.Context, kind hooks.Kind) error {
	switch kind {
	case hooks.RelationJoined:
		logger.Infof("requesting database %q", database.Name)
		return errors.Trace(r.ctx.RelationSet(r.ctx.RelationID(), map[string]string{
			database.NameKey: database.Name,
		}))
	case hooks.RelationChanged:
		st, err := LoadState(r.ctx)
		if err != nil {
			return errors.Trace(err)
		}
		if st == Uninstalled {
			logger.Infof("serial-vault not installed yet, skipping configuration")
			return nil
		}
		cfg, err := r.readConfig()
		if err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(r.configure(ctx, st, cfg))
	case hooks.RelationDeparted:
		// The service keeps running with the settings it has.
		logger.Infof("%s left database relation %s", r.ctx.RemoteUnit(), r.ctx.RelationID())
	case hooks.RelationBroken:
		logger.Infof("database relation %s removed", r.ctx.RelationID())
	}
	return nil
}

func (r *Reconciler) upgrade(ctx context.Context) error {
	st, err := LoadState(r.ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if st == Uninstalled {
		logger.Infof("serial-vault not installed yet, nothing to upgrade")
		return nil
	}
	cfg, err := r.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	if err := r.ctx.SetStatus(status.Maintenance, MsgRefreshing); err != nil {
		return errors.Trace(err)
	}

	strategy := r.config.NewStrategy(cfg)
	if !strategy.RestartAfterUpgrade() {
		if err := r.config.Service.Stop(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	logger.Infof("upgrading serial-vault from %s", strategy.Name())
	if err := strategy.Upgrade(cfg); err != nil {
		return errors.Trace(err)
	}

	if !strategy.RestartAfterUpgrade() {
		if err := SaveState(r.ctx, st, Available); err != nil {
			return errors.Trace(err)
		}
		if err := r.ctx.SetStatus(status.Maintenance, MsgWaitingForDatabase); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(r.configure(ctx, Available, cfg))
	}

	if st != Active {
		return errors.Trace(r.ctx.SetStatus(status.Maintenance, MsgWaitingForDatabase))
	}
	if err := r.config.Service.Restart(ctx); err != nil {
		return errors.Trace(err)
	}
	if err := r.ctx.SetStatus(status.Active, ""); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(SaveState(r.ctx, st, Active))
}

func (r *Reconciler) publishWebsite() error {
	cfg, err := r.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	port, ok := ports.OpenPort(cfg.ServiceType)
	if !ok {
		port, _ = ports.OpenPort(charmconfig.Signing)
	}
	hostname, err := names.UnitApplication(r.ctx.UnitName())
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.ctx.RelationSet(r.ctx.RelationID(), map[string]string{
		"hostname": hostname,
		"port":     strconv.Itoa(port),
	}))
}

func (r *Reconciler) updateNRPE(ctx context.Context, cfg charmconfig.ServiceConfig) error {
	if cfg.NagiosCheckHTTPParams == "" {
		logger.Debugf("nagios_check_http_params not set, no nrpe checks")
		return nil
	}
	checks := []nrpe.Check{nrpe.VhostCheck(cfg.NagiosCheckHTTPParams)}
	return errors.Trace(r.config.NRPE.Update(ctx, cfg.NagiosContext, checks))
}
