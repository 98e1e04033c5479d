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
	"testing"

	"github.com/stretchr/testify/assert"

	v2 "hostbridge.io/hostbridge/pkg/config/v2"
)

func TestDefaultConfigLoad(t *testing.T) {
	content := `{
		"log_path": "/tmp/hostbridge.log",
		"log_level": "DEBUG",
		"bridges": [
			{
				"plugin_name": "demo",
				"vm_config": {
					"engine": "wasmer",
					"path": "/etc/hostbridge/demo.wasm"
				},
				"instance_num": 2
			}
		]
	}`

	path := filepath.Join(t.TempDir(), "hostbridge_config.json")
	assert.Nil(t, ioutil.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, cfg.LogPath, "/tmp/hostbridge.log")
	assert.Equal(t, cfg.LogLevel, "DEBUG")
	assert.Equal(t, len(cfg.Bridges), 1)
	assert.Equal(t, cfg.Bridges[0].PluginName, "demo")
	assert.Equal(t, cfg.Bridges[0].VmConfig.Engine, "wasmer")
	assert.Equal(t, cfg.Bridges[0].InstanceNum, 2)

	assert.Equal(t, GetConfigPath(), path)
}

func TestDefaultConfigLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "no-such-file.json"))
	assert.NotNil(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	assert.Nil(t, ioutil.WriteFile(path, []byte("{not json"), 0o644))
	_, err = Load(path)
	assert.NotNil(t, err)
}

func TestRegisterConfigLoadFunc(t *testing.T) {
	defer RegisterConfigLoadFunc(DefaultConfigLoad)

	RegisterConfigLoadFunc(func(path string) (*v2.HostBridgeConfig, error) {
		return &v2.HostBridgeConfig{LogLevel: "ERROR"}, nil
	})

	cfg, err := Load("ignored")
	assert.Nil(t, err)
	assert.Equal(t, cfg.LogLevel, "ERROR")
}
