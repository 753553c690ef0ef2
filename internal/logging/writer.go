// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package logging routes loggo output of a running hook into the unit's
// log in the controller.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

// Logger is the subset of hookenv.Context used to forward log entries.
type Logger interface {
	Log(level loggo.Level, message string) error
}

// HookWriter is a loggo.Writer that collects entries during a hook and
// forwards them to juju-log on Flush. Entries written after Close go to
// the fallback writer.
//
// Forwarding runs a hook tool, and loggo holds its writer lock while
// calling Write, so entries are never forwarded from within Write.
type HookWriter struct {
	mu       sync.Mutex
	target   Logger
	fallback io.Writer
	pending  []loggo.Entry
	flushing bool
	closed   bool
}

// NewHookWriter returns a writer forwarding to target. Entries that
// cannot be forwarded are written to fallback instead.
func NewHookWriter(target Logger, fallback io.Writer) *HookWriter {
	return &HookWriter{target: target, fallback: fallback}
}

// Write implements loggo.Writer.
func (w *HookWriter) Write(entry loggo.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flushing || w.closed {
		w.writeFallback(entry)
		return
	}
	w.pending = append(w.pending, entry)
}

// Flush forwards every collected entry to juju-log.
func (w *HookWriter) Flush() {
	w.mu.Lock()
	entries := w.pending
	w.pending = nil
	w.flushing = true
	w.mu.Unlock()

	var failed []loggo.Entry
	for _, entry := range entries {
		if err := w.target.Log(entry.Level, format(entry)); err != nil {
			failed = append(failed, entry)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushing = false
	for _, entry := range failed {
		w.writeFallback(entry)
	}
}

// Close flushes the collected entries. The hook tools may be gone once
// the hook returns, so later entries are written to the fallback.
func (w *HookWriter) Close() {
	w.Flush()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *HookWriter) writeFallback(entry loggo.Entry) {
	if w.fallback == nil {
		return
	}
	fmt.Fprintf(w.fallback, "%s %s\n", entry.Level, format(entry))
}

func format(entry loggo.Entry) string {
	return fmt.Sprintf("%s %s", entry.Module, entry.Message)
}

// Configure applies a loggo specification such as "<root>=DEBUG" and,
// when target is non-nil, replaces the default writer with a HookWriter
// which the caller must Close before exiting. Without a target, entries
// are written to fallback.
func Configure(spec string, target Logger, fallback io.Writer) (*HookWriter, error) {
	if spec != "" {
		if err := loggo.ConfigureLoggers(spec); err != nil {
			return nil, errors.Annotatef(err, "configuring loggers %q", spec)
		}
	}
	if target == nil {
		if fallback == nil {
			return nil, nil
		}
		if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(fallback, loggo.DefaultFormatter)); err != nil {
			return nil, errors.Trace(err)
		}
		return nil, nil
	}
	writer := NewHookWriter(target, fallback)
	if _, err := loggo.ReplaceDefaultWriter(writer); err != nil {
		return nil, errors.Annotate(err, "installing juju-log writer")
	}
	return writer, nil
}
