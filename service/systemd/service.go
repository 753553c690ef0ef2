// Copyright 2015 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

const (
	EtcSystemdDir = "/etc/systemd/system"

	// DefaultJobTimeout bounds how long a start, stop or restart job may
	// take before it is reported as failed.
	DefaultJobTimeout = 5 * time.Minute
)

var logger = loggo.GetLogger("serialvault.service.systemd")

// DBusAPI is the subset of the systemd dbus connection used to control
// a unit.
type DBusAPI interface {
	Close()
	EnableUnitFilesContext(ctx context.Context, files []string, runtime bool, force bool) (bool, []dbus.EnableUnitFileChange, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	ReloadContext(ctx context.Context) error
}

// Type alias for a DBusAPI factory method.
type DBusAPIFactory = func(ctx context.Context) (DBusAPI, error)

// NewDBusAPI connects to the system bus.
var NewDBusAPI DBusAPIFactory = func(ctx context.Context) (DBusAPI, error) {
	return dbus.NewWithContext(ctx)
}

var newChan = func() chan string {
	return make(chan string, 1)
}

// Config holds the dependencies of a Service.
type Config struct {
	// Name is the service name without the ".service" suffix.
	Name string

	// DataDir is where unit drop-ins are written, EtcSystemdDir when empty.
	DataDir string

	NewDBus    DBusAPIFactory
	FileOps    FileSystemOps
	Clock      clock.Clock
	JobTimeout time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.NotValidf("empty service name")
	}
	if c.NewDBus == nil {
		return errors.NotValidf("nil NewDBus")
	}
	if c.FileOps == nil {
		return errors.NotValidf("nil FileOps")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Service provides control over a single systemd service.
type Service struct {
	Name     string
	UnitName string
	DirName  string

	newDBus    DBusAPIFactory
	fileOps    FileSystemOps
	clock      clock.Clock
	jobTimeout time.Duration
}

// NewServiceWithDefaults returns a Service for name talking to the
// system bus.
func NewServiceWithDefaults(name string) (*Service, error) {
	return NewService(Config{
		Name:    name,
		NewDBus: NewDBusAPI,
		FileOps: fileSystemOps{},
		Clock:   clock.WallClock,
	})
}

// NewService returns a Service built from config.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	dir := config.DataDir
	if dir == "" {
		dir = EtcSystemdDir
	}
	timeout := config.JobTimeout
	if timeout == 0 {
		timeout = DefaultJobTimeout
	}
	return &Service{
		Name:       config.Name,
		UnitName:   config.Name + ".service",
		DirName:    dir,
		newDBus:    config.NewDBus,
		fileOps:    config.FileOps,
		clock:      config.Clock,
		jobTimeout: timeout,
	}, nil
}

func (s *Service) errorf(err error, msg string, args ...interface{}) error {
	msg += " for service %q"
	args = append(args, s.Name)
	if err == nil {
		err = errors.Errorf(msg, args...)
	} else {
		err = errors.Annotatef(err, msg, args...)
	}
	logger.Errorf("%v", err)
	return err
}

func (s *Service) newConn(ctx context.Context) (DBusAPI, error) {
	conn, err := s.newDBus(ctx)
	if err != nil {
		return nil, s.errorf(err, "failed to connect to dbus")
	}
	return conn, nil
}

// Enable registers the unit to start at boot. It does not start it.
func (s *Service) Enable(ctx context.Context) error {
	conn, err := s.newConn(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	const runtime, force = false, true
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{s.UnitName}, runtime, force); err != nil {
		return s.errorf(err, "dbus enable request failed")
	}
	logger.Debugf("service %q enabled", s.Name)
	return nil
}

// Start starts the unit.
func (s *Service) Start(ctx context.Context) error {
	return s.runJob(ctx, "start", func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, s.UnitName, "replace", ch)
	})
}

// Stop stops the unit.
func (s *Service) Stop(ctx context.Context) error {
	return s.runJob(ctx, "stop", func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, s.UnitName, "replace", ch)
	})
}

// Restart restarts the unit, starting it if it is not running.
func (s *Service) Restart(ctx context.Context) error {
	return s.runJob(ctx, "restart", func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.RestartUnitContext(ctx, s.UnitName, "replace", ch)
	})
}

// Reload asks systemd to reload its unit files, like
// "systemctl daemon-reload".
func (s *Service) Reload(ctx context.Context) error {
	conn, err := s.newConn(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return s.errorf(err, "dbus daemon reload request failed")
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, op string, submit func(DBusAPI, chan<- string) (int, error)) error {
	conn, err := s.newConn(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	statusCh := newChan()
	if _, err := submit(conn, statusCh); err != nil {
		return s.errorf(err, "dbus %s request failed", op)
	}
	if err := s.wait(ctx, op, statusCh); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("service %q %s done", s.Name, op)
	return nil
}

func (s *Service) wait(ctx context.Context, op string, statusCh <-chan string) error {
	select {
	case status := <-statusCh:
		if status != "done" {
			return s.errorf(nil, "failed to %s (API status %q)", op, status)
		}
		return nil
	case <-s.clock.After(s.jobTimeout):
		return s.errorf(nil, "timed out waiting to %s", op)
	case <-ctx.Done():
		return s.errorf(ctx.Err(), "waiting to %s", op)
	}
}
