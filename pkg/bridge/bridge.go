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

// Package bridge implements the interoperability core between a sandboxed
// linear-memory module and the host object model: the opaque handle table
// with its borrow region, the typed memory view cache, the utf-8 string
// codec, the closure trampoline and the error relay. It does not interpret
// the meaning of exchanged values, it only guarantees safe, leak-free
// transport of opaque references and primitive data.
package bridge

import (
	"fmt"
	"runtime/debug"

	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/stats"
	"hostbridge.io/hostbridge/pkg/types"
)

// Sentinel results of a pass-through call. On failure the call still returns
// a value slot, just one flagged as invalid; the sandbox retrieves the cause
// through the pending error cell.
const (
	ResultOK   int32 = 0
	ResultFail int32 = -1
)

// Bridge is the per-instance interop state. Single-threaded by contract:
// every pass-through call runs to completion before control returns.
type Bridge struct {
	instance types.WasmInstance
	handles  *HandleTable
	views    *ViewCache

	pendingErr Handle

	stats *stats.BridgeStats
}

func New(instance types.WasmInstance, namespace string) *Bridge {
	s := stats.NewBridgeStats(namespace)

	return &Bridge{
		instance:   instance,
		handles:    NewHandleTable(s),
		views:      NewViewCache(instance),
		pendingErr: noPending,
		stats:      s,
	}
}

// Instance returns the wasm instance the bridge is bound to.
func (b *Bridge) Instance() types.WasmInstance {
	return b.instance
}

// Handles returns the object handle table.
func (b *Bridge) Handles() *HandleTable {
	return b.handles
}

// Views returns the memory view cache.
func (b *Bridge) Views() *ViewCache {
	return b.views
}

// Guard runs one pass-through call with the borrow-region discipline and the
// host exception guard. The borrow mark saved here is restored on every exit
// path, so nested calls never release an outer call's borrow entries. A Go
// panic or an error from the wrapped host operation is captured into the
// pending error cell and reported as ResultFail.
func (b *Bridge) Guard(name string, call func() (int32, error)) (res int32) {
	mark := b.handles.BorrowMark()
	defer b.handles.ReleaseBorrowed(mark)

	defer func() {
		if r := recover(); r != nil {
			log.DefaultLogger.Errorf("[bridge][guard] recover pass-through call: %v, r: %v, stack: %v",
				name, r, string(debug.Stack()))
			b.Relay(fmt.Errorf("panic [%v] in pass-through call [%v]", r, name))
			res = ResultFail
		}
	}()

	ret, err := call()
	if err != nil {
		b.Relay(err)
		return ResultFail
	}

	return ret
}

// CallExport invokes a guest export, exposing transient host references as
// borrowed handles prepended to args for the duration of the call. The
// borrowed entries are released when the call returns, success or not.
func (b *Bridge) CallExport(name string, refs []interface{}, args ...interface{}) (interface{}, error) {
	mark := b.handles.BorrowMark()
	defer b.handles.ReleaseBorrowed(mark)

	f, err := b.instance.GetExportsFunc(name)
	if err != nil {
		return nil, err
	}

	callArgs := make([]interface{}, 0, len(refs)+len(args))
	for _, ref := range refs {
		h, err := b.handles.Borrow(ref)
		if err != nil {
			return nil, err
		}
		callArgs = append(callArgs, int32(h))
	}
	callArgs = append(callArgs, args...)

	return f.Call(callArgs...)
}

// WriteResultPair writes a (value, flag) pair at retptr, the structured
// replacement of the source convention of returning a second value through a
// process-wide scratch slot.
func (b *Bridge) WriteResultPair(retptr uint32, value uint32, flag uint32) error {
	view, err := b.views.Int32s()
	if err != nil {
		return err
	}
	if err := view.Store(retptr/4, int32(value)); err != nil {
		return err
	}
	return view.Store(retptr/4+1, int32(flag))
}
