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
	"crypto/md5"
	"encoding/hex"
	"io/ioutil"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	v2 "hostbridge.io/hostbridge/pkg/config/v2"
	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/types"
)

var (
	ErrEngineNotFound = errors.New("fail to get wasm engine")
	ErrModuleCompile  = errors.New("fail to compile wasm module")
	ErrMd5Mismatch    = errors.New("wasm bytes md5 mismatch")
	ErrEmptyVmConfig  = errors.New("bridge config without vm config")
)

const defaultEngine = "wasmer"

// pluginImpl implements types.BridgePlugin, pooling the wasm instances of one
// compiled module.
type pluginImpl struct {
	config v2.BridgeConfig

	lock sync.RWMutex

	instanceNum    int
	instances      []types.WasmInstance
	instancesIndex int32

	vm     types.WasmVM
	module types.WasmModule
}

func NewBridgePlugin(config v2.BridgeConfig) (types.BridgePlugin, error) {
	if config.VmConfig == nil {
		return nil, ErrEmptyVmConfig
	}

	wasmBytes, err := loadWasmBytes(config.VmConfig)
	if err != nil {
		return nil, err
	}

	engineName := config.VmConfig.Engine
	if engineName == "" {
		engineName = defaultEngine
	}

	vm := GetWasmEngine(engineName)
	if vm == nil {
		return nil, ErrEngineNotFound
	}

	module := vm.NewModule(wasmBytes)
	if module == nil {
		return nil, ErrModuleCompile
	}

	instanceNum := config.InstanceNum
	if instanceNum <= 0 {
		instanceNum = runtime.NumCPU()
	}

	plugin := &pluginImpl{
		config: config,
		vm:     vm,
		module: module,
	}

	actual := plugin.EnsureInstanceNum(instanceNum)
	if actual == 0 {
		return nil, errors.Errorf("fail to instantiate plugin %v", config.PluginName)
	}

	return plugin, nil
}

func loadWasmBytes(vmConfig *v2.VmConfig) ([]byte, error) {
	var wasmBytes []byte

	switch {
	case vmConfig.Path != "":
		b, err := ioutil.ReadFile(vmConfig.Path)
		if err != nil {
			return nil, errors.Wrap(err, "read wasm file")
		}
		wasmBytes = b
	case vmConfig.Url != "":
		resp, err := http.Get(vmConfig.Url)
		if err != nil {
			return nil, errors.Wrap(err, "fetch wasm url")
		}
		defer resp.Body.Close()
		b, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read wasm url body")
		}
		wasmBytes = b
	default:
		return nil, errors.New("vm config without path or url")
	}

	if vmConfig.Md5 != "" {
		sum := md5.Sum(wasmBytes)
		if hex.EncodeToString(sum[:]) != vmConfig.Md5 {
			return nil, ErrMd5Mismatch
		}
	}

	return wasmBytes, nil
}

func (p *pluginImpl) PluginName() string {
	return p.config.PluginName
}

func (p *pluginImpl) GetPluginConfig() v2.BridgeConfig {
	return p.config
}

func (p *pluginImpl) GetVmConfig() v2.VmConfig {
	if p.config.VmConfig != nil {
		return *p.config.VmConfig
	}
	return v2.VmConfig{}
}

func (p *pluginImpl) InstanceNum() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.instances)
}

func (p *pluginImpl) EnsureInstanceNum(num int) int {
	if num <= 0 {
		return p.InstanceNum()
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if num < len(p.instances) {
		for i := num; i < len(p.instances); i++ {
			p.instances[i].Stop()
		}
		p.instances = p.instances[:num]
		return len(p.instances)
	}

	for len(p.instances) < num {
		instance := p.module.NewInstance()
		if instance == nil {
			log.DefaultLogger.Errorf("[wasm][plugin] EnsureInstanceNum fail to create instance, plugin: %v", p.config.PluginName)
			break
		}

		if err := instance.Start(); err != nil {
			log.DefaultLogger.Errorf("[wasm][plugin] EnsureInstanceNum fail to start instance, plugin: %v, err: %v", p.config.PluginName, err)
			break
		}

		p.instances = append(p.instances, instance)
	}

	return len(p.instances)
}

func (p *pluginImpl) GetInstance() types.WasmInstance {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if len(p.instances) == 0 {
		return nil
	}

	idx := int(atomic.AddInt32(&p.instancesIndex, 1)) % len(p.instances)
	return p.instances[idx]
}

func (p *pluginImpl) ReleaseInstance(instance types.WasmInstance) {
	instance.Release()
}

func (p *pluginImpl) Exec(f func(instance types.WasmInstance) bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	for _, instance := range p.instances {
		if !f(instance) {
			break
		}
	}
}

func (p *pluginImpl) Clear() {
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, instance := range p.instances {
		instance.Stop()
	}
	p.instances = nil

	log.DefaultLogger.Infof("[wasm][plugin] Clear plugin: %v", p.config.PluginName)
}
