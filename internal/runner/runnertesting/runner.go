// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package runnertesting

import (
	"github.com/juju/testing"

	"github.com/canonical/serial-vault-charm/internal/runner"
)

// StubRunner is a runner.Runner that records every command and replies
// with canned output.
type StubRunner struct {
	*testing.Stub

	// Outputs maps a full command line, or failing that a command name,
	// to the stdout returned for it.
	Outputs map[string]string

	// Commands holds every command that was run, in order.
	Commands []runner.Command
}

// NewStubRunner returns a StubRunner with no canned output.
func NewStubRunner() *StubRunner {
	return &StubRunner{
		Stub:    &testing.Stub{},
		Outputs: make(map[string]string),
	}
}

// Run implements runner.Runner.
func (r *StubRunner) Run(cmd runner.Command) ([]byte, error) {
	r.Stub.AddCall(cmd.Name, stringsToArgs(cmd.Args)...)
	r.Commands = append(r.Commands, cmd)
	if err := r.NextErr(); err != nil {
		return nil, err
	}
	if out, ok := r.Outputs[cmd.String()]; ok {
		return []byte(out), nil
	}
	return []byte(r.Outputs[cmd.Name]), nil
}

// Lines returns the shell-quoted command lines that were run.
func (r *StubRunner) Lines() []string {
	lines := make([]string, len(r.Commands))
	for i, cmd := range r.Commands {
		lines[i] = cmd.String()
	}
	return lines
}

func stringsToArgs(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
