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

package types

import (
	v2 "hostbridge.io/hostbridge/pkg/config/v2"
)

//
//	Manager
//

// BridgeManager managers all bridge configs
type BridgeManager interface {
	// AddOrUpdateBridge add or update bridge plugin config
	AddOrUpdateBridge(config v2.BridgeConfig) error

	// GetBridgeWrapperByName returns bridge plugin by name
	GetBridgeWrapperByName(pluginName string) BridgeWrapper

	// UninstallBridgeByName remove bridge plugin by name
	UninstallBridgeByName(pluginName string) error
}

// BridgeWrapper wraps the bridge plugin with its config and plugin handler
type BridgeWrapper interface {
	// GetPlugin returns the bridge plugin
	GetPlugin() BridgePlugin

	// GetConfig returns the config of the bridge plugin
	GetConfig() v2.BridgeConfig

	// RegisterPluginHandler registers a plugin handler for the bridge plugin
	RegisterPluginHandler(pluginHandler BridgePluginHandler)

	// Update updates the plugin
	Update(config v2.BridgeConfig, plugin BridgePlugin)
}

// BridgePluginHandler provides callbacks to manage the life cycle of the bridge plugin
type BridgePluginHandler interface {
	// OnConfigUpdate got called when updating the config of the bridge plugin
	OnConfigUpdate(config v2.BridgeConfig)

	// OnPluginStart got called when starting the bridge plugin
	OnPluginStart(plugin BridgePlugin)

	// OnPluginDestroy got called when destroying the bridge plugin
	OnPluginDestroy(plugin BridgePlugin)
}

// BridgePlugin manages the collection of wasm instances of one module
type BridgePlugin interface {
	// PluginName returns the name of the bridge plugin
	PluginName() string

	// GetPluginConfig returns the config of the bridge plugin
	GetPluginConfig() v2.BridgeConfig

	// GetVmConfig returns the vm config of the bridge plugin
	GetVmConfig() v2.VmConfig

	// EnsureInstanceNum tries to expand/shrink the num of instance to 'num'
	// and returns the actual instance num
	EnsureInstanceNum(num int) int

	// InstanceNum returns the current number of wasm instance
	InstanceNum() int

	// GetInstance returns one plugin instance of the plugin
	GetInstance() WasmInstance

	// ReleaseInstance releases the instance to the plugin
	ReleaseInstance(instance WasmInstance)

	// Exec execute the f for each instance
	Exec(f func(instance WasmInstance) bool)

	// Clear got called when the plugin is destroyed
	Clear()
}

//
// VM
//

// WasmVM represents the wasm vm(engine)
type WasmVM interface {
	// Name returns the name of wasm vm(engine)
	Name() string

	// Init got called when creating a new wasm vm(engine)
	Init()

	// NewModule compiles the 'wasmBytes' into a wasm module
	NewModule(wasmBytes []byte) WasmModule
}

// WasmModule represents the wasm module
type WasmModule interface {
	// Init got called when creating a new wasm module
	Init()

	// NewInstance instantiates and returns a new wasm instance
	NewInstance() WasmInstance

	// GetABINameList returns the abi name list exported by the wasm module
	GetABINameList() []string
}

// WasmFunction is the func exported by the wasm module
type WasmFunction interface {
	// Call invokes the wasm func
	Call(args ...interface{}) (interface{}, error)
}

// WasmInstance represents a running wasm instance with its linear memory and
// the entry points the bridge requires: a growable exported memory, an
// allocator, a reallocator and a start func invoked exactly once.
type WasmInstance interface {
	// RegisterFunc registers a func to the wasm instance, should be called
	// before the instance starts. The first arg of f should be types.WasmInstance.
	RegisterFunc(namespace string, funcName string, f interface{}) error

	// Start starts the wasm instance, calls the exported start entry exactly once
	Start() error

	// Stop stops the wasm instance
	Stop()

	// GetExportsFunc returns the exported func of the wasm instance
	GetExportsFunc(funcName string) (WasmFunction, error)

	// GetExportsMem returns the exported linear memory of the wasm instance
	GetExportsMem(memName string) ([]byte, error)

	// GetMemory returns the sub slice of the linear memory at [addr, addr+size)
	GetMemory(addr uint64, size uint64) ([]byte, error)

	// PutMemory copies content into the linear memory at [addr, addr+size)
	PutMemory(addr uint64, size uint64, content []byte) error

	// GetByte returns the byte of the linear memory at addr
	GetByte(addr uint64) (byte, error)

	// PutByte sets the byte of the linear memory at addr
	PutByte(addr uint64, b byte) error

	// GetUint32 returns the uint32(little endian) of the linear memory at addr
	GetUint32(addr uint64) (uint32, error)

	// PutUint32 sets the uint32(little endian) of the linear memory at addr
	PutUint32(addr uint64, value uint32) error

	// Malloc allocates size bytes inside the sandbox via the exported allocator
	Malloc(size int32) (uint64, error)

	// Realloc grows the allocation at addr from oldSize to newSize via the
	// exported reallocator and returns the new addr
	Realloc(addr uint64, oldSize int32, newSize int32) (uint64, error)

	// GetModule returns the wasm module of the instance
	GetModule() WasmModule

	// GetData returns the user-defined data of the instance
	GetData() interface{}

	// SetData sets the user-defined data into the instance
	SetData(data interface{})

	// Acquire exclusively holds the instance and sets the user-defined data
	Acquire(data interface{})

	// Release releases the exclusive hold of the instance
	Release()
}

//
//	ABI
//

// ABI represents the abi between the host and wasm, which consists of three parts: exports, imports and life-cycle handler
// *exports* represents the exported elements of the wasm module, i.e., the abilities provided by wasm and exposed to host
// *imports* represents the imported elements of the wasm module, i.e., the dependencies that required by wasm
// *life-cycle handler* manages the life-cycle of an abi
type ABI interface {
	// Name returns the name of ABI
	Name() string

	// GetABIImports gets the imports part of the abi
	GetABIImports() interface{}

	// SetABIImports sets the import part of the abi
	SetABIImports(imports interface{})

	// GetABIExports returns the export part of the abi
	GetABIExports() interface{}

	ABIHandler
}

type ABIHandler interface {
	// life-cycle: OnInstanceCreate got called when instantiating the wasm instance
	OnInstanceCreate(instance WasmInstance)

	// life-cycle: OnInstanceStart got called when starting the wasm instance
	OnInstanceStart(instance WasmInstance)

	// life-cycle: OnInstanceDestroy got called when destroying the wasm instance
	OnInstanceDestroy(instance WasmInstance)
}
