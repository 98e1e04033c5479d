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

package wasm

import (
	"sync"

	v2 "hostbridge.io/hostbridge/pkg/config/v2"
	"hostbridge.io/hostbridge/pkg/types"
)

// bridgeWrapper implements types.BridgeWrapper.
type bridgeWrapper struct {
	mu            sync.RWMutex
	plugin        types.BridgePlugin
	config        v2.BridgeConfig
	pluginHandler types.BridgePluginHandler
}

func (w *bridgeWrapper) GetPlugin() types.BridgePlugin {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.plugin
}

func (w *bridgeWrapper) GetConfig() v2.BridgeConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *bridgeWrapper) RegisterPluginHandler(pluginHandler types.BridgePluginHandler) {
	w.mu.Lock()
	w.pluginHandler = pluginHandler
	plugin := w.plugin
	config := w.config
	w.mu.Unlock()

	if pluginHandler != nil {
		pluginHandler.OnConfigUpdate(config)
		pluginHandler.OnPluginStart(plugin)
	}
}

func (w *bridgeWrapper) Update(config v2.BridgeConfig, plugin types.BridgePlugin) {
	w.mu.Lock()
	oldPlugin := w.plugin
	w.config = config
	w.plugin = plugin
	pluginHandler := w.pluginHandler
	w.mu.Unlock()

	if pluginHandler != nil {
		pluginHandler.OnConfigUpdate(config)
	}

	if oldPlugin == plugin {
		return
	}

	if pluginHandler != nil {
		pluginHandler.OnPluginStart(plugin)
		pluginHandler.OnPluginDestroy(oldPlugin)
	}

	oldPlugin.Clear()
}
