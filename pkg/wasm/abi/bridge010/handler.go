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

package bridge010

import (
	"crypto/rand"
	"os"
	"time"

	"hostbridge.io/hostbridge/pkg/log"
)

// ImportsHandler is the closed set of host capabilities exposed through the
// binding surface.
type ImportsHandler interface {
	// Log writes a sandbox log line at the given level
	Log(level int32, msg string)

	// Now returns the wall clock in milliseconds
	Now() float64

	// Random fills buf with host randomness
	Random(buf []byte) error

	// GetEnv returns the host environment variable of key
	GetEnv(key string) (string, bool)
}

// DefaultImportsHandler is the default implementation of ImportsHandler.
type DefaultImportsHandler struct{}

var _ ImportsHandler = &DefaultImportsHandler{}

const (
	logLevelTrace int32 = iota
	logLevelDebug
	logLevelInfo
	logLevelWarn
	logLevelError
)

func (d *DefaultImportsHandler) Log(level int32, msg string) {
	switch level {
	case logLevelTrace, logLevelDebug:
		log.DefaultLogger.Debugf("[bridge010][sandbox] %v", msg)
	case logLevelInfo:
		log.DefaultLogger.Infof("[bridge010][sandbox] %v", msg)
	case logLevelWarn:
		log.DefaultLogger.Warnf("[bridge010][sandbox] %v", msg)
	default:
		log.DefaultLogger.Errorf("[bridge010][sandbox] %v", msg)
	}
}

func (d *DefaultImportsHandler) Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

func (d *DefaultImportsHandler) Random(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

func (d *DefaultImportsHandler) GetEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
