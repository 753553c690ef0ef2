// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package systemd

import (
	"os"

	"github.com/juju/utils/v4"
)

// FileSystemOps abstracts the file writes a Service performs.
type FileSystemOps interface {
	ReadFile(filename string) ([]byte, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

type fileSystemOps struct{}

func (fileSystemOps) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

func (fileSystemOps) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return utils.AtomicWriteFile(filename, data, perm)
}

func (fileSystemOps) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
