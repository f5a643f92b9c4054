/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rotate provides the logrus hook that writes log entries to the
// size-rotated log file.
package rotate

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the configuration for the rotate file hook.
type Config struct {
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Level      logrus.Level
	Formatter  logrus.Formatter
}

// File represents the rotate file hook.
type File struct {
	config Config
	w      io.WriteCloser
}

// NewHook builds a new rotate file hook.
func NewHook(config Config) (*File, error) {
	if config.Filename == "" {
		return nil, errors.New("log file name is empty")
	}
	if config.MaxSize < 0 || config.MaxBackups < 0 || config.MaxAge < 0 {
		return nil, fmt.Errorf("negative rotation limits: size=%d backups=%d age=%d", config.MaxSize, config.MaxBackups, config.MaxAge)
	}
	if config.Formatter == nil {
		config.Formatter = &logrus.JSONFormatter{}
	}
	return &File{
		config: config,
		w: &lumberjack.Logger{
			Filename:   config.Filename,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
		},
	}, nil
}

// Levels determines log levels that for which the logs are written.
func (hook *File) Levels() []logrus.Level {
	return logrus.AllLevels[:hook.config.Level+1]
}

// Fire is called by logrus when it is about to write the log entry. The
// entry is decorated with the source location of the logging call.
func (hook *File) Fire(entry *logrus.Entry) error {
	modified := entry.WithField("source", caller())
	modified.Level = entry.Level
	modified.Message = entry.Message
	modified.Time = entry.Time
	b, err := hook.config.Formatter.Format(modified)
	if err != nil {
		return err
	}
	_, err = hook.w.Write(b)
	return err
}

// Close closes the current log file.
func (hook *File) Close() error { return hook.w.Close() }

// caller returns the file:line of the first frame outside of logrus.
func caller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "sirupsen/logrus") && !strings.HasSuffix(frame.File, "rotate.go") {
			return fmt.Sprintf("%s:%d", shortPath(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}

// shortPath keeps the package directory and the file name.
func shortPath(file string) string {
	n := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			n++
			if n >= 2 {
				return file[i+1:]
			}
		}
	}
	return file
}
