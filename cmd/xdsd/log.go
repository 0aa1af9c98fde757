// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// logRotator writes logged bytes to a rolling log file, rotated once it
// crosses a size threshold; it is nil until initLogRotator runs.
var logRotator *rotator.Rotator

// logWriter fans logged bytes out to both stdout and the rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var backendLog = slog.NewBackend(logWriter{})

// Per-subsystem loggers; each package that wants logging gets one, named
// the way the teacher names its subsystem tags (PEER, CMGR, ...).
var (
	log     = backendLog.Logger("XDSD")
	peerLog = backendLog.Logger("PEER")
	cmgrLog = backendLog.Logger("CMGR")
	poolLog = backendLog.Logger("MPOL")
	pullLog = backendLog.Logger("PULL")
	connLog = backendLog.Logger("CONN")
	dbLog   = backendLog.Logger("BDB ")
)

// subsystemLoggers maps each subsystem tag to its logger so -d/--debuglevel
// can target one or all of them.
var subsystemLoggers = map[string]slog.Logger{
	"XDSD": log,
	"PEER": peerLog,
	"CMGR": cmgrLog,
	"MPOL": poolLog,
	"PULL": pullLog,
	"CONN": connLog,
	"BDB":  dbLog,
}

// initLogRotator creates the rotating log file at logFile, overwriting
// the behavior of the package-level logRotator. It must run before any
// subsystem logger is used for anything that matters.
func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

// setLogLevel sets the logging level for a single subsystem; "all"
// targets every registered subsystem.
func setLogLevel(subsystemID, levelStr string) {
	level, ok := slog.LevelFromString(levelStr)
	if !ok {
		return
	}
	if subsystemID == "all" {
		for _, l := range subsystemLoggers {
			l.SetLevel(level)
		}
		return
	}
	if l, ok := subsystemLoggers[subsystemID]; ok {
		l.SetLevel(level)
	}
}

// setLogLevels applies a -d/--debuglevel value: a bare level is applied to
// every subsystem logger, and a comma-separated list of
// <subsystem>=<level> pairs sets each named subsystem individually.
func setLogLevels(levelStr string) {
	if !strings.Contains(levelStr, "=") {
		setLogLevel("all", levelStr)
		return
	}
	for _, pair := range strings.Split(levelStr, ",") {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 {
			continue
		}
		setLogLevel(fields[0], fields[1])
	}
}
