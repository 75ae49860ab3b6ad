// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger shared by every ifscenter
// component.
//
// The TUI owns the terminal, so interactive runs log JSON lines to a rotating
// file. CLI commands and the devserver can log to the console instead.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jeranaias/ifscenter-tui/internal/config"
)

// Output selects where log lines go.
type Output int

const (
	// ToFile writes JSON lines to the rotating log file.
	ToFile Output = iota
	// ToConsole writes human-readable lines to stderr.
	ToConsole
	// ToBoth writes to the file and the console.
	ToBoth
)

// Setup builds a logger from cfg. The returned closer flushes and closes the
// log file and must be called on shutdown.
func Setup(cfg *config.Config, out Output) (zerolog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.Log.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if out == ToFile || out == ToBoth {
		path, err := cfg.LogPath()
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return zerolog.Nop(), closer, err
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
			LocalTime:  true,
		}
		writers = append(writers, rotator)
		closer = rotator
	}
	if out == ToConsole || out == ToBoth {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("app", "ifscenter").Logger()
	return logger, closer, nil
}

// ParseLevel maps a config level string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if strings.EqualFold(s, "disabled") {
		return zerolog.Disabled
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
