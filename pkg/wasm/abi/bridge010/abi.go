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

// Package bridge010 wires the hostbridge core onto a wasm instance as the
// hostbridge_abi_version_0_1_0 abi: the core interop imports plus a small
// host-capability surface.
package bridge010

import (
	"hostbridge.io/hostbridge/pkg/bridge"
	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/types"
	"hostbridge.io/hostbridge/pkg/wasm/abi"
)

// AbiV010 is the abi name, the sandbox module declares support by exporting
// a func with this name.
const AbiV010 = "hostbridge_abi_version_0_1_0"

func init() {
	abi.RegisterABI(AbiV010, abiContextFactory)
}

func abiContextFactory(instance types.WasmInstance) types.ABI {
	return &ABIContext{
		Imports:  &DefaultImportsHandler{},
		Instance: instance,
	}
}

// ABIContext is the per-instance abi state: the interop bridge plus the host
// capability set, resolved once at binding-setup time.
type ABIContext struct {
	Imports  ImportsHandler
	Instance types.WasmInstance
	Bridge   *bridge.Bridge
}

func (a *ABIContext) Name() string {
	return AbiV010
}

func (a *ABIContext) GetABIImports() interface{} {
	return a.Imports
}

func (a *ABIContext) SetABIImports(imports interface{}) {
	if v, ok := imports.(ImportsHandler); ok {
		a.Imports = v
		return
	}
	log.DefaultLogger.Errorf("[bridge010][abi] SetABIImports unexpected type: %T", imports)
}

// GetABIExports returns the interop bridge, the host-side surface for
// calling into the sandbox.
func (a *ABIContext) GetABIExports() interface{} {
	return a.Bridge
}

// OnInstanceCreate builds the bridge and registers the import surface,
// before the wasm module gets instantiated.
func (a *ABIContext) OnInstanceCreate(instance types.WasmInstance) {
	a.Bridge = bridge.New(instance, AbiV010)

	instance.SetData(a)

	if err := registerImports(instance); err != nil {
		log.DefaultLogger.Errorf("[bridge010][abi] OnInstanceCreate fail to register imports, err: %v", err)
	}
}

func (a *ABIContext) OnInstanceStart(instance types.WasmInstance) {
	log.DefaultLogger.Infof("[bridge010][abi] OnInstanceStart instance started, abi: %v", AbiV010)
}

func (a *ABIContext) OnInstanceDestroy(instance types.WasmInstance) {
	instance.SetData(nil)
}
