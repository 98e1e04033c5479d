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
	"testing"

	"github.com/stretchr/testify/assert"

	"hostbridge.io/hostbridge/pkg/types"
)

func TestRegisterFunc(t *testing.T) {
	vm := NewWasmerVM()
	module := vm.NewModule([]byte(`(module (func (export "_start")))`))
	ins := module.NewInstance()

	// invalid namespace
	assert.Equal(t, ins.RegisterFunc("", "funcName", nil), ErrInvalidParam)

	// nil f
	assert.Equal(t, ins.RegisterFunc("TestRegisterFuncNamespace", "funcName", nil), ErrInvalidParam)

	var testStruct struct{}

	// f is not func
	assert.Equal(t, ins.RegisterFunc("TestRegisterFuncNamespace", "funcName", &testStruct), ErrRegisterNotFunc)

	// f is func with 0 args
	assert.Equal(t, ins.RegisterFunc("TestRegisterFuncNamespace", "funcName", func() {}), ErrRegisterArgNum)

	// f is func, but the first arg is not types.WasmInstance
	assert.Equal(t, ins.RegisterFunc("TestRegisterFuncNamespace", "funcName", func(first int32) {}), ErrRegisterArgType)

	assert.Nil(t, ins.RegisterFunc("TestRegisterFuncNamespace", "funcName", func(f types.WasmInstance) {}))

	assert.Nil(t, ins.Start())

	assert.Equal(t, ins.RegisterFunc("TestRegisterFuncNamespace", "funcName", func(f types.WasmInstance) {}), ErrInstanceAlreadyStart)
}

func TestRegisterFuncRecoverPanic(t *testing.T) {
	vm := NewWasmerVM()
	module := vm.NewModule([]byte(`
			(module
				(import "TestRegisterFuncRecover" "somePanic" (func $somePanic (result i32)))
				(func (export "_start"))
				(func (export "panicTrigger") (param) (result i32)
					call $somePanic))
	`))
	ins := module.NewInstance()

	assert.Nil(t, ins.RegisterFunc("TestRegisterFuncRecover", "somePanic", func(instance types.WasmInstance) int32 {
		panic("some panic")
	}))

	assert.Nil(t, ins.Start())

	f, err := ins.GetExportsFunc("panicTrigger")
	assert.Nil(t, err)

	_, err = f.Call()
	assert.NotNil(t, err)
	assert.Equal(t, err.Error(), "panic [some panic] when calling func [somePanic]")
}

func TestRegisterFuncNoReturn(t *testing.T) {
	vm := NewWasmerVM()
	module := vm.NewModule([]byte(`
			(module
				(import "TestRegisterFuncNoReturn" "ping" (func $ping))
				(func (export "_start"))
				(func (export "pingTrigger")
					call $ping))
	`))
	ins := module.NewInstance()

	pinged := false
	assert.Nil(t, ins.RegisterFunc("TestRegisterFuncNoReturn", "ping", func(instance types.WasmInstance) {
		pinged = true
	}))

	assert.Nil(t, ins.Start())

	f, err := ins.GetExportsFunc("pingTrigger")
	assert.Nil(t, err)

	_, err = f.Call()
	assert.Nil(t, err)
	assert.True(t, pinged)
}

func TestInstanceMem(t *testing.T) {
	vm := NewWasmerVM()
	module := vm.NewModule([]byte(`(module (memory (export "memory") 1) (func (export "_start")))`))
	ins := module.NewInstance()
	assert.Nil(t, ins.Start())

	m, err := ins.GetExportsMem("memory")
	assert.Nil(t, err)
	// A WebAssembly page has a constant size of 65,536 bytes, i.e., 64KiB
	assert.Equal(t, len(m), 1<<16)

	assert.Nil(t, ins.PutByte(uint64(100), 'a'))
	b, err := ins.GetByte(uint64(100))
	assert.Nil(t, err)
	assert.Equal(t, b, byte('a'))

	assert.Nil(t, ins.PutUint32(uint64(200), 99))
	u, err := ins.GetUint32(uint64(200))
	assert.Nil(t, err)
	assert.Equal(t, u, uint32(99))
}

func TestInstanceMalloc(t *testing.T) {
	vm := NewWasmerVM()
	module := vm.NewModule([]byte(`
			(module
				(memory (export "memory") 1)
				(global $next (mut i32) (i32.const 1024))
				(func (export "_start"))
				(func (export "malloc") (param $size i32) (result i32)
					(local $addr i32)
					global.get $next
					local.set $addr
					global.get $next
					local.get $size
					i32.add
					global.set $next
					local.get $addr)
				(func (export "realloc") (param $addr i32) (param $old i32) (param $new i32) (result i32)
					(local $dst i32)
					global.get $next
					local.set $dst
					global.get $next
					local.get $new
					i32.add
					global.set $next
					local.get $dst))
	`))
	ins := module.NewInstance()
	assert.Nil(t, ins.Start())

	addr, err := ins.Malloc(16)
	assert.Nil(t, err)
	assert.Equal(t, addr, uint64(1024))

	assert.Nil(t, ins.PutMemory(addr, 5, []byte("hello")))

	newAddr, err := ins.Realloc(addr, 5, 32)
	assert.Nil(t, err)
	assert.NotEqual(t, newAddr, addr)

	assert.Nil(t, ins.PutMemory(newAddr, 5, []byte("world")))
	moved, err := ins.GetMemory(newAddr, 5)
	assert.Nil(t, err)
	assert.Equal(t, string(moved), "world")
}

func TestInstanceStartStop(t *testing.T) {
	vm := NewWasmerVM()
	module := vm.NewModule([]byte(`(module (func (export "_start")))`))
	ins := module.NewInstance()

	_, err := ins.GetExportsFunc("_start")
	assert.Equal(t, err, ErrInstanceNotStart)

	assert.Nil(t, ins.Start())
	assert.Equal(t, ins.Start(), ErrInstanceAlreadyStart)

	ins.Stop()
	ins.Stop()
}
