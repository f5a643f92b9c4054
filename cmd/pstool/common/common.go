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

package common

import (
	"github.com/rabbitstack/pstool/pkg/config"
	"github.com/rabbitstack/pstool/pkg/util/log"
)

// logFile is the name of the log file inside the logs directory
const logFile = "pstool.log"

// Init initializes and validates the configuration
// as given by the commands. This function will also
// set up the logger.
func Init(c *config.Config) error {
	if err := c.Load(); err != nil {
		return err
	}
	if err := c.Init(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return log.InitFromConfig(c.Log, logFile)
}
