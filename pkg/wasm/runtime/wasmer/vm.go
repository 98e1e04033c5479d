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

package wasmer

import (
	"bytes"

	"github.com/tetratelabs/wabin/binary"
	wabinWasm "github.com/tetratelabs/wabin/wasm"
	wasmerGo "github.com/wasmerio/wasmer-go/wasmer"

	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/types"
	"hostbridge.io/hostbridge/pkg/wasm"
)

func init() {
	wasm.RegisterWasmEngine("wasmer", NewWasmerVM())
}

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// VM wraps one wasmer engine and store.
type VM struct {
	engine *wasmerGo.Engine
	store  *wasmerGo.Store
}

func NewWasmerVM() types.WasmVM {
	vm := &VM{}
	vm.Init()

	return vm
}

func (w *VM) Name() string {
	return "wasmer"
}

func (w *VM) Init() {
	w.engine = wasmerGo.NewEngine()
	w.store = wasmerGo.NewStore(w.engine)
}

func (w *VM) NewModule(wasmBytes []byte) types.WasmModule {
	if len(wasmBytes) == 0 {
		log.DefaultLogger.Errorf("[wasmer][vm] NewModule wasm bytes is empty")
		return nil
	}

	// decode binary modules up front, so malformed bytes fail with a
	// readable error instead of an engine compile failure
	if bytes.HasPrefix(wasmBytes, wasmMagic) {
		if _, err := binary.DecodeModule(wasmBytes, wabinWasm.CoreFeaturesV2); err != nil {
			log.DefaultLogger.Errorf("[wasmer][vm] NewModule invalid wasm module, err: %v", err)
			return nil
		}
	}

	m, err := wasmerGo.NewModule(w.store, wasmBytes)
	if err != nil {
		log.DefaultLogger.Errorf("[wasmer][vm] NewModule fail to compile module, err: %v", err)
		return nil
	}

	return NewWasmerModule(w, m)
}
