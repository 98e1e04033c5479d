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

package v2

// HostBridgeConfig is the root config of the hostbridge process.
type HostBridgeConfig struct {
	LogPath  string         `json:"log_path,omitempty"`
	LogLevel string         `json:"log_level,omitempty"`
	Bridges  []BridgeConfig `json:"bridges,omitempty"`
}

// BridgeConfig describes one sandboxed module and its instance pool.
type BridgeConfig struct {
	PluginName  string    `json:"plugin_name,omitempty"`
	VmConfig    *VmConfig `json:"vm_config,omitempty"`
	InstanceNum int       `json:"instance_num,omitempty"`
}

// VmConfig describes the wasm vm(engine) of one bridge plugin.
type VmConfig struct {
	Engine string `json:"engine,omitempty"`
	Path   string `json:"path,omitempty"`
	Url    string `json:"url,omitempty"`
	Md5    string `json:"md5,omitempty"`
}

func (w BridgeConfig) Clone() BridgeConfig {
	var vmConfig VmConfig
	if w.VmConfig != nil {
		vmConfig = *w.VmConfig
	}

	return BridgeConfig{
		PluginName:  w.PluginName,
		VmConfig:    &vmConfig,
		InstanceNum: w.InstanceNum,
	}
}
