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

// Package wasm implements the loading and pooling framework of sandboxed
// modules for hostbridge.
package wasm

import (
	"errors"
	"reflect"
	"sync"

	v2 "hostbridge.io/hostbridge/pkg/config/v2"
	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/types"
)

var (
	ErrEmptyPluginName   = errors.New("bridge config without plugin name")
	ErrUnexpectedType    = errors.New("unexpected object type in map")
	ErrPluginNotFound    = errors.New("bridge plugin not found")
	ErrSameBridgeConfig  = errors.New("update with same bridge config")
	ErrUpdateInstanceNum = errors.New("update instance num return 0")
)

// GetBridgeManager returns the global singleton of types.BridgeManager.
func GetBridgeManager() types.BridgeManager {
	return bridgeManagerInstance
}

var bridgeManagerInstance types.BridgeManager = &bridgeManagerImpl{}

// implementation of types.BridgeManager.
type bridgeManagerImpl struct {
	pluginMap sync.Map
}

func (w *bridgeManagerImpl) shouldCreateNewPlugin(newConfig v2.BridgeConfig, oldConfig v2.BridgeConfig) bool {
	if newConfig.VmConfig == nil || oldConfig.VmConfig == nil {
		return false
	}

	if newConfig.VmConfig.Engine != oldConfig.VmConfig.Engine ||
		newConfig.VmConfig.Path != oldConfig.VmConfig.Path ||
		newConfig.VmConfig.Url != oldConfig.VmConfig.Url ||
		newConfig.VmConfig.Md5 == "" ||
		newConfig.VmConfig.Md5 != oldConfig.VmConfig.Md5 {
		return true
	}

	return false
}

func (w *bridgeManagerImpl) updateBridge(wrapper types.BridgeWrapper, newConfig v2.BridgeConfig) error {
	oldConfig := wrapper.GetConfig()
	if reflect.DeepEqual(newConfig, oldConfig) {
		log.DefaultLogger.Infof("[wasm][manager] AddOrUpdateBridge do not update for same config: %v", newConfig)
		return ErrSameBridgeConfig
	}

	plugin := wrapper.GetPlugin()

	if w.shouldCreateNewPlugin(newConfig, oldConfig) {
		var err error
		if plugin, err = NewBridgePlugin(newConfig); err != nil {
			log.DefaultLogger.Errorf("[wasm][manager] updateBridge fail to create bridge plugin: %v, err: %v", newConfig.PluginName, err)
			return err
		}
	} else {
		if newConfig.InstanceNum <= 0 {
			newConfig.InstanceNum = plugin.InstanceNum()
		}

		actualNum := plugin.EnsureInstanceNum(newConfig.InstanceNum)
		if actualNum == 0 {
			log.DefaultLogger.Errorf("[wasm][manager] updateBridge fail to update instance num, want num: %v, actual num: %v", newConfig.InstanceNum, actualNum)
			return ErrUpdateInstanceNum
		}
	}

	wrapper.Update(newConfig, plugin)

	log.DefaultLogger.Infof("[wasm][manager] AddOrUpdateBridge update bridge plugin: %v, config: %v", newConfig.PluginName, newConfig)

	return nil
}

func (w *bridgeManagerImpl) AddOrUpdateBridge(config v2.BridgeConfig) error {
	if config.PluginName == "" {
		log.DefaultLogger.Errorf("[wasm][manager] AddOrUpdateBridge empty plugin name")
		return ErrEmptyPluginName
	}

	// plugin already exists
	if v, ok := w.pluginMap.Load(config.PluginName); ok {
		wrapper, ok := v.(*bridgeWrapper)
		if !ok {
			log.DefaultLogger.Errorf("[wasm][manager] AddOrUpdateBridge unexpected type in map")
			return ErrUnexpectedType
		}

		return w.updateBridge(wrapper, config)
	}

	// add new bridge plugin
	plugin, err := NewBridgePlugin(config)
	if err != nil {
		log.DefaultLogger.Errorf("[wasm][manager] AddOrUpdateBridge fail to create bridge plugin: %v, err: %v", config.PluginName, err)
		return err
	}

	pw := &bridgeWrapper{
		plugin: plugin,
		config: config,
	}

	w.pluginMap.LoadOrStore(config.PluginName, pw)

	log.DefaultLogger.Infof("[wasm][manager] AddOrUpdateBridge add new bridge plugin: %v", config.PluginName)

	return nil
}

func (w *bridgeManagerImpl) GetBridgeWrapperByName(pluginName string) types.BridgeWrapper {
	if pluginName == "" {
		return nil
	}

	if v, ok := w.pluginMap.Load(pluginName); ok {
		pw, ok := v.(*bridgeWrapper)
		if !ok {
			log.DefaultLogger.Errorf("[wasm][manager] GetBridgeWrapperByName unexpected object type in map")
			return nil
		}

		return pw
	}

	log.DefaultLogger.Errorf("[wasm][manager] GetBridgeWrapperByName not found in map, plugin name: %v", pluginName)

	return nil
}

func (w *bridgeManagerImpl) UninstallBridgeByName(pluginName string) error {
	v, ok := w.pluginMap.Load(pluginName)
	if !ok {
		log.DefaultLogger.Errorf("[wasm][manager] UninstallBridgeByName plugin not found, name: %v", pluginName)
		return ErrPluginNotFound
	}

	w.pluginMap.Delete(pluginName)

	pw := v.(*bridgeWrapper)
	pw.GetPlugin().Clear()

	log.DefaultLogger.Infof("[wasm][manager] UninstallBridgeByName uninstall bridge plugin: %v", pluginName)

	return nil
}
