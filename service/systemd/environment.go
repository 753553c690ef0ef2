// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package systemd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/juju/errors"
)

// EnvironmentDropIn is the drop-in file carrying the charm configured
// environment of the service.
const EnvironmentDropIn = "10-charm-environment.conf"

// DropInDir returns the drop-in directory of the unit.
func (s *Service) DropInDir() string {
	return path.Join(s.DirName, s.UnitName+".d")
}

// WriteEnvironment makes env the environment of the service process by
// writing a unit drop-in, and reloads systemd when the drop-in changed.
// It reports whether anything changed.
func (s *Service) WriteEnvironment(ctx context.Context, env map[string]string) (bool, error) {
	filename := path.Join(s.DropInDir(), EnvironmentDropIn)
	data := serializeEnvironment(env)

	current, err := s.fileOps.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return false, s.errorf(err, "failed to read %s", filename)
	}
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}

	if err := s.fileOps.MkdirAll(s.DropInDir(), 0755); err != nil {
		return false, s.errorf(err, "failed to create %s", s.DropInDir())
	}
	if err := s.fileOps.WriteFile(filename, data, 0644); err != nil {
		return false, s.errorf(err, "failed to write %s", filename)
	}
	if err := s.Reload(ctx); err != nil {
		return true, errors.Trace(err)
	}
	logger.Infof("updated environment of service %q (%d variables)", s.Name, len(env))
	return true, nil
}

func serializeEnvironment(env map[string]string) []byte {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("# Managed by the serial-vault charm.\n[Service]\n")
	for _, k := range keys {
		fmt.Fprintf(&buf, "Environment=%s\n", quoteEnvironment(k+"="+env[k]))
	}
	return buf.Bytes()
}

var envEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"%", "%%",
	"\n", `\n`,
)

// quoteEnvironment quotes an assignment for an Environment= line.
func quoteEnvironment(assignment string) string {
	return `"` + envEscaper.Replace(assignment) + `"`
}
