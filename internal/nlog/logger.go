/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger is something that can print, using Logf, a format string
type Logger interface {
	Logf(format string, v ...any)
}

// subsystemLogger is a logger that handles only one file out of all that are opened by its logger
type subsystemLogger struct {
	filename string
	logger   *DaemonLogger
}

// Logf for a subsystem logger is just a wrap for the Logs of its internal logger, giving its only filename
func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.filename, format, v...)
}

// logEntry is an helper struct that can be used to send a couple (filename, formatted string) onto the log channel
type logEntry struct {
	filename  string
	formatted string
}

// DaemonLogger is a logger that can write to multiple log files from one single struct,
// one file per subsystem (pipeline, relay, store, http).
// It's safe to share amongst goroutines since it has an internal lock.
type DaemonLogger struct {
	dir  string // Directory the per-subsystem log files live in
	name string // Name of the daemon, used for the directory and the prefix string during logging

	fileMapper map[string]*os.File    // Maps a filename to an OS file (used only to be able to deallocate it later)
	logMapper  map[string]*log.Logger // Maps a filename to the corresponding logger

	lock           sync.RWMutex
	currentLogFunc func(*log.Logger, string, ...any) // Current logging function (alternating between defaultLogf and nilLogf)

	inbox chan logEntry // Log channel, formatted strings are sent here instead of directly writing to files
}

// NewDaemonLogger creates and returns a DaemonLogger writing under dir, using the given name and logging flag.
// When successful, error is nil
func NewDaemonLogger(dir, name string, logging bool) (*DaemonLogger, error) {
	if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
		return nil, err
	}
	d := &DaemonLogger{
		dir:            dir,
		name:           name,
		fileMapper:     make(map[string]*os.File),
		logMapper:      make(map[string]*log.Logger),
		currentLogFunc: nilLogf,
		inbox:          make(chan logEntry, 600),
	}

	if logging {
		d.currentLogFunc = defaultLogf
	}

	return d, nil
}

// RegisterSubsystem registers a new subsystem, returning a Logger that can write to the file filename.
// If successful, error is nil
func (d *DaemonLogger) RegisterSubsystem(filename string) (Logger, error) {
	file, err := os.OpenFile(filepath.Join(d.dir, d.name, filename+".log"), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}

	d.lock.Lock()
	defer d.lock.Unlock()
	d.logMapper[filename] = log.New(file, fmt.Sprintf("[[%s] %s]: ", d.name, filename), log.Ldate|log.Ltime)
	d.fileMapper[filename] = file
	return &subsystemLogger{filename, d}, nil
}

// GetSubsystemLogger retrieves a subsystem logger, if previously registered.
// If successful, error is nil
func (d *DaemonLogger) GetSubsystemLogger(filename string) (Logger, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if _, ok := d.logMapper[filename]; !ok {
		return nil, fmt.Errorf("The subsystem was not registered")
	}
	return &subsystemLogger{filename, d}, nil
}

// EnableLogging enables the logging done by this logger
func (d *DaemonLogger) EnableLogging() {
	d.lock.Lock()
	d.currentLogFunc = defaultLogf
	d.lock.Unlock()
}

// DisableLogging disables the logging done by this logger
func (d *DaemonLogger) DisableLogging() {
	d.lock.Lock()
	d.currentLogFunc = nilLogf
	d.lock.Unlock()
}

// Logf formats a string using format and v, and appends it to the logging channel, alongside the file, filename, it will be written to
func (d *DaemonLogger) Logf(filename, format string, v ...any) {
	d.inbox <- logEntry{filename, fmt.Sprintf(format, v...)}
}

// Run waits either on the log channel or ctx.Done()
// When ctx.Done(), the caller has shut down and we deallocate resources
// When a message arrives on the log channel, we write it accordingly
func (d *DaemonLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.CloseAll()
			return
		case msg := <-d.inbox:
			d.actualWrite(msg.filename, msg.formatted)
		}
	}
}

// actualWrite is the function that writes the string formatted in the file filename
// When successful, error is nil
func (d *DaemonLogger) actualWrite(filename, formatted string) error {
	d.lock.Lock()
	logFunc := d.currentLogFunc
	logger, ok := d.logMapper[filename]
	d.lock.Unlock()

	if !ok {
		return fmt.Errorf("Logger is not setup for this filename")
	}
	if logFunc != nil {
		logFunc(logger, formatted)
	}
	return nil
}

// CloseAll closes all the open files that the loggers are using
func (d *DaemonLogger) CloseAll() {
	d.lock.Lock()
	defer d.lock.Unlock()

	for _, file := range d.fileMapper {
		file.Sync()
		file.Close()
	}
	clear(d.fileMapper)
	clear(d.logMapper)
}

// defaultLogf is a log function that writes to a logger l
func defaultLogf(l *log.Logger, format string, a ...any) {
	l.Printf(format, a...)
}

// nilLogf is a log function that does nothing, which gets called when logging is disabled
func nilLogf(*log.Logger, string, ...any) {}

// Nop returns a Logger that discards everything, useful in tests.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Logf(string, ...any) {}
