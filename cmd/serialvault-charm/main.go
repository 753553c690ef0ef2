// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	"github.com/canonical/serial-vault-charm/internal/charmconfig"
	"github.com/canonical/serial-vault-charm/internal/deploy"
	"github.com/canonical/serial-vault-charm/internal/hookenv"
	"github.com/canonical/serial-vault-charm/internal/logging"
	"github.com/canonical/serial-vault-charm/internal/nrpe"
	"github.com/canonical/serial-vault-charm/internal/reconciler"
	"github.com/canonical/serial-vault-charm/internal/runner"
	"github.com/canonical/serial-vault-charm/internal/settings"
	"github.com/canonical/serial-vault-charm/internal/superuser"
	"github.com/canonical/serial-vault-charm/service/systemd"
)

var logger = loggo.GetLogger("serialvault.cmd")

const (
	// exit_err is returned when the hook failed or could not be run.
	exit_err = 1
	// exit_usage is returned when the binary was invoked incorrectly.
	exit_usage = 2
	// exit_panic is the value that is returned when we exit due to an unhandled panic.
	exit_panic = 3
)

const (
	// ServiceName is the systemd service of the serial vault.
	ServiceName = "serial-vault"

	binaryName = "serialvault-charm"

	loggingEnvKey = "SERIAL_VAULT_CHARM_LOGGING"
	logFileEnvKey = "SERIAL_VAULT_CHARM_LOG_FILE"
)

// Handler runs the charm logic of a single hook.
type Handler interface {
	Handle(ctx context.Context, hookName string) error
}

// HandlerFactory builds the Handler for a hook context.
type HandlerFactory func(env hookenv.Environ, hookCtx hookenv.Context, r runner.Runner) (Handler, error)

type options struct {
	logLevel string
	logFile  string
	args     []string
}

func parseArgs(args []string, getenv func(string) string, stderr io.Writer) (options, error) {
	var opts options
	fs := gnuflag.NewFlagSet(binaryName, gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.logLevel, "log-level", getenv(loggingEnvKey), "loggo specification, e.g. <root>=DEBUG")
	fs.StringVar(&opts.logFile, "log-file", getenv(logFileEnvKey), "also write the log to this rotated file")
	if err := fs.Parse(true, args[1:]); err != nil {
		return options{}, errors.Trace(err)
	}
	opts.args = fs.Args()
	return opts, nil
}

// hookName works out which hook is running. Juju names it in
// JUJU_DISPATCH_PATH when running the dispatch script, otherwise the
// binary was invoked through a hooks/<name> link.
func hookName(argv0 string, env hookenv.Environ, args []string) string {
	if name := filepath.Base(env.DispatchPath); env.DispatchPath != "" && name != "dispatch" {
		return name
	}
	if name := filepath.Base(argv0); name != binaryName && name != "dispatch" {
		return name
	}
	if len(args) > 0 {
		return args[0]
	}
	return env.HookName
}

func main() {
	os.Exit(Main(os.Args))
}

// Main is not redundant with main(), because it provides an entry point
// for testing with arbitrary command line arguments.
func Main(args []string) int {
	return run(args, hookenv.EnvironFromOS(), os.Getenv, os.Stderr, runner.New(), NewHandler)
}

func run(
	args []string,
	env hookenv.Environ,
	getenv func(string) string,
	stderr io.Writer,
	r runner.Runner,
	newHandler HandlerFactory,
) (code int) {
	opts, err := parseArgs(args, getenv, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exit_usage
	}
	hook := hookName(args[0], env, opts.args)
	if hook == "" {
		fmt.Fprintf(stderr, "ERROR cannot determine the hook to run\n")
		return exit_usage
	}
	if err := env.Validate(); err != nil {
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exit_usage
	}

	hookCtx := hookenv.NewHookTools(env, r)
	var target logging.Logger
	if env.InHook() {
		target = hookCtx
	}
	writer, err := logging.Configure(opts.logLevel, target, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exit_usage
	}
	if writer != nil {
		defer writer.Close()
	}
	// Runs before the writer is closed so the stack reaches juju-log.
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Criticalf("Unhandled panic: \n%v\n%s", r, buf)
			code = exit_panic
		}
	}()
	if opts.logFile != "" {
		closer, err := logging.AddFileWriter(opts.logFile)
		if err != nil {
			logger.Warningf("%v", err)
		} else {
			defer closer.Close()
		}
	}

	handler, err := newHandler(env, hookCtx, r)
	if err != nil {
		logger.Errorf("%v", err)
		return exit_err
	}
	if err := handler.Handle(context.Background(), hook); err != nil {
		logger.Errorf("%s hook failed: %v", hook, err)
		logger.Debugf("%s", errors.ErrorStack(err))
		return exit_err
	}
	return 0
}

// NewHandler wires the reconciler to the local host.
func NewHandler(env hookenv.Environ, hookCtx hookenv.Context, r runner.Runner) (Handler, error) {
	if !systemd.IsRunning() {
		return nil, errors.NotSupportedf("init system other than systemd")
	}
	service, err := systemd.NewServiceWithDefaults(ServiceName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	nrpeService, err := systemd.NewServiceWithDefaults(nrpe.ServiceName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	checks, err := nrpe.NewUpdater(nrpe.Config{
		Dir:       nrpe.ConfDir,
		Relations: hookCtx,
		Daemon:    nrpeService,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	renderer := settings.NewRenderer(settings.DefaultPath)
	rec, err := reconciler.New(reconciler.Config{
		Context:    hookCtx,
		Service:    service,
		Settings:   renderer,
		Superusers: superuser.NewProvisioner(r, renderer.Path()),
		NRPE:       checks,
		NewStrategy: func(cfg charmconfig.ServiceConfig) deploy.Strategy {
			return deploy.NewStrategy(cfg, r, env.CharmDir, env.Proxy)
		},
		SeedEntropy: func() error {
			return deploy.SeedEntropy(r)
		},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return rec, nil
}
