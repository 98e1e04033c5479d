/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"sync"

	"mosn.io/pkg/log"
)

// DefaultLogger is the global logger of the bridge. StartLogger writes to
// stderr before InitDefaultLogger got called with the configured output.
var (
	DefaultLogger log.ErrorLogger
	StartLogger   log.ErrorLogger

	initMutex sync.Mutex
)

func init() {
	var err error
	StartLogger, err = CreateDefaultErrorLogger("", log.INFO)
	if err != nil {
		panic("init start logger failed: " + err.Error())
	}
	DefaultLogger = StartLogger
}

// InitDefaultLogger replaces the global logger with one writing to output at
// the given level.
func InitDefaultLogger(output string, level log.Level) error {
	initMutex.Lock()
	defer initMutex.Unlock()

	lg, err := CreateDefaultErrorLogger(output, level)
	if err != nil {
		return err
	}

	DefaultLogger = lg

	return nil
}

// ParseLogLevel maps a config string to a log.Level, defaults to INFO.
func ParseLogLevel(s string) log.Level {
	if level, ok := logLevelMap[s]; ok {
		return level
	}
	return log.INFO
}

var logLevelMap = map[string]log.Level{
	"TRACE": log.TRACE,
	"DEBUG": log.DEBUG,
	"INFO":  log.INFO,
	"WARN":  log.WARN,
	"ERROR": log.ERROR,
	"FATAL": log.FATAL,
}
