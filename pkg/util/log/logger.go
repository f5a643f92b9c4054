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

// Package log configures the process-wide logrus logger from the logging settings.
package log

import (
	"expvar"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rabbitstack/pstool/pkg/util/log/rotate"
	fs "github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

var (
	// loggerErrors counts logger setup failures
	loggerErrors = expvar.NewMap("logger.errors")
	// rhook is the active rotate file hook
	rhook *rotate.File
)

// DefaultPath returns the directory where log files are stored when no
// explicit path is configured.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pstool", "logs")
	}
	return filepath.Join(dir, "pstool", "logs")
}

// InitFromConfig initializes the standard logrus logger from config options.
// Entries are written to the named file inside the configured directory.
func InitFromConfig(c Config, filename string) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	if err := Close(); err != nil {
		loggerErrors.Add(err.Error(), 1)
	}

	path := c.Path
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return errors.Wrapf(err, "unable to create the %s logs directory", path)
	}
	file := filepath.Join(path, filename)

	var formatter logrus.Formatter
	switch c.Formatter {
	case "text":
		formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	default:
		formatter = &logrus.JSONFormatter{}
	}
	logrus.SetFormatter(formatter)
	logrus.SetLevel(level)

	if c.LogStdout {
		logrus.SetOutput(os.Stderr)
	} else {
		logrus.SetOutput(io.Discard)
	}

	hook, err := rotate.NewHook(rotate.Config{
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
		MaxSize:    c.MaxSize,
		Level:      level,
		Formatter:  formatter,
		Filename:   file,
	})
	if err != nil {
		loggerErrors.Add(err.Error(), 1)
		// fallback on simple log hook
		var pathMap fs.PathMap = make(map[logrus.Level]string)
		for _, lvl := range logrus.AllLevels {
			pathMap[lvl] = file
		}
		logrus.AddHook(fs.NewHook(pathMap, formatter))
		logrus.Warnf("unable to initialize rotate file hook: %v", err)
		return nil
	}
	rhook = hook
	logrus.AddHook(hook)

	return nil
}

// Close detaches the file hooks from the logger and closes the log file.
func Close() error {
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	if rhook == nil {
		return nil
	}
	err := rhook.Close()
	rhook = nil
	return err
}
