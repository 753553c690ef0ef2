// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package runner executes the external programs a hook shells out to:
// hook tools, the package manager, the install script and the admin CLI.
package runner

import (
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"
)

var logger = loggo.GetLogger("serialvault.runner")

// Command describes a single program invocation.
type Command struct {
	Name string
	Args []string

	// Env holds extra KEY=VALUE pairs added to the inherited environment.
	Env []string

	// Dir is the working directory, the current one when empty.
	Dir string
}

// String returns the shell-quoted command line.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Runner runs commands to completion and returns their standard output.
// A non-zero exit status is reported as an *ExitError.
type Runner interface {
	Run(cmd Command) ([]byte, error)
}

// ExitError is returned when a command ran but exited with a non-zero
// status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// IsExitError reports whether err is, or wraps, an *ExitError.
func IsExitError(err error) bool {
	_, ok := errors.Cause(err).(*ExitError)
	return ok
}

// New returns a Runner that runs commands through bash on the local host.
func New() Runner {
	return &execRunner{
		runCommands: exec.RunCommands,
		environ:     os.Environ,
	}
}

type execRunner struct {
	runCommands func(exec.RunParams) (*exec.ExecResponse, error)
	environ     func() []string
}

// Run implements Runner.
func (r *execRunner) Run(cmd Command) ([]byte, error) {
	line := cmd.String()
	logger.Tracef("running %s", line)

	params := exec.RunParams{
		Commands:   line,
		WorkingDir: cmd.Dir,
	}
	if len(cmd.Env) > 0 {
		params.Environment = append(r.environ(), cmd.Env...)
	}
	resp, err := r.runCommands(params)
	if err != nil {
		return nil, errors.Annotatef(err, "running %s", cmd.Name)
	}
	if resp.Code != 0 {
		return resp.Stdout, &ExitError{
			Command: line,
			Code:    resp.Code,
			Stderr:  strings.TrimSpace(string(resp.Stderr)),
		}
	}
	return resp.Stdout, nil
}
