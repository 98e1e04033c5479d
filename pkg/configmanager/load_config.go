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

package configmanager

import (
	"io/ioutil"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	v2 "hostbridge.io/hostbridge/pkg/config/v2"
	"hostbridge.io/hostbridge/pkg/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// configPath stores the config file path, read only after Load
var configPath string

func GetConfigPath() string {
	return configPath
}

// ConfigLoadFunc parse a input(usually file path) into a hostbridge config
type ConfigLoadFunc func(path string) (*v2.HostBridgeConfig, error)

var configLoadFunc ConfigLoadFunc = DefaultConfigLoad

// RegisterConfigLoadFunc can replace a new config load function instead of default
func RegisterConfigLoadFunc(f ConfigLoadFunc) {
	configLoadFunc = f
}

func DefaultConfigLoad(path string) (*v2.HostBridgeConfig, error) {
	log.StartLogger.Infof("[configmanager] load config from: %s", path)

	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	cfg := &v2.HostBridgeConfig{}
	if err := json.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config file")
	}

	return cfg, nil
}

// Load config file and parse
func Load(path string) (*v2.HostBridgeConfig, error) {
	configPath, _ = filepath.Abs(path)
	return configLoadFunc(path)
}
