// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package logging

import (
	"io"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/lumberjack/v2"
)

// FileWriterName is the loggo writer name of the charm log file.
const FileWriterName = "file"

// AddFileWriter tees every log entry into a rotating file at path. The
// returned closer flushes and closes the file.
func AddFileWriter(path string) (io.Closer, error) {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 2,
		Compress:   true,
	}
	if err := loggo.RegisterWriter(FileWriterName, loggo.NewSimpleWriter(writer, loggo.DefaultFormatter)); err != nil {
		return nil, errors.Annotatef(err, "logging to %s", path)
	}
	return writer, nil
}
