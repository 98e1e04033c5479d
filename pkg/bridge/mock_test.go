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

package bridge

import (
	"encoding/binary"
	"errors"

	"hostbridge.io/hostbridge/pkg/types"
)

// fakeInstance is an in-memory types.WasmInstance with a bump allocator.
// Growing past the current capacity replaces the backing array, the same
// observable effect as a real linear memory growth.
type fakeInstance struct {
	mem     []byte
	next    uint32
	data    interface{}
	exports map[string]func(args ...interface{}) (interface{}, error)
}

var _ types.WasmInstance = &fakeInstance{}

func newFakeInstance(memSize int) *fakeInstance {
	return &fakeInstance{
		mem:     make([]byte, memSize),
		next:    16,
		exports: make(map[string]func(args ...interface{}) (interface{}, error)),
	}
}

type fakeFunc struct {
	f func(args ...interface{}) (interface{}, error)
}

func (f *fakeFunc) Call(args ...interface{}) (interface{}, error) {
	return f.f(args...)
}

func (f *fakeInstance) RegisterFunc(namespace string, funcName string, fn interface{}) error {
	return nil
}

func (f *fakeInstance) Start() error { return nil }

func (f *fakeInstance) Stop() {}

func (f *fakeInstance) GetExportsFunc(funcName string) (types.WasmFunction, error) {
	fn, ok := f.exports[funcName]
	if !ok {
		return nil, errors.New("export not found: " + funcName)
	}
	return &fakeFunc{f: fn}, nil
}

func (f *fakeInstance) GetExportsMem(memName string) ([]byte, error) {
	return f.mem, nil
}

func (f *fakeInstance) GetMemory(addr uint64, size uint64) ([]byte, error) {
	if int(addr+size) > len(f.mem) {
		return nil, ErrAddrOverflow
	}
	return f.mem[addr : addr+size], nil
}

func (f *fakeInstance) PutMemory(addr uint64, size uint64, content []byte) error {
	if int(addr+size) > len(f.mem) {
		return ErrAddrOverflow
	}
	copy(f.mem[addr:addr+size], content)
	return nil
}

func (f *fakeInstance) GetByte(addr uint64) (byte, error) {
	if int(addr) >= len(f.mem) {
		return 0, ErrAddrOverflow
	}
	return f.mem[addr], nil
}

func (f *fakeInstance) PutByte(addr uint64, b byte) error {
	if int(addr) >= len(f.mem) {
		return ErrAddrOverflow
	}
	f.mem[addr] = b
	return nil
}

func (f *fakeInstance) GetUint32(addr uint64) (uint32, error) {
	if int(addr+4) > len(f.mem) {
		return 0, ErrAddrOverflow
	}
	return binary.LittleEndian.Uint32(f.mem[addr:]), nil
}

func (f *fakeInstance) PutUint32(addr uint64, value uint32) error {
	if int(addr+4) > len(f.mem) {
		return ErrAddrOverflow
	}
	binary.LittleEndian.PutUint32(f.mem[addr:], value)
	return nil
}

func (f *fakeInstance) Malloc(size int32) (uint64, error) {
	addr := f.next
	f.next += uint32(size)
	if int(f.next) > len(f.mem) {
		grown := make([]byte, 2*int(f.next))
		copy(grown, f.mem)
		f.mem = grown
	}
	return uint64(addr), nil
}

func (f *fakeInstance) Realloc(addr uint64, oldSize int32, newSize int32) (uint64, error) {
	newAddr, err := f.Malloc(newSize)
	if err != nil {
		return 0, err
	}
	copy(f.mem[newAddr:newAddr+uint64(oldSize)], f.mem[addr:addr+uint64(oldSize)])
	return newAddr, nil
}

func (f *fakeInstance) GetModule() types.WasmModule { return nil }

func (f *fakeInstance) GetData() interface{} { return f.data }

func (f *fakeInstance) SetData(data interface{}) { f.data = data }

func (f *fakeInstance) Acquire(data interface{}) { f.data = data }

func (f *fakeInstance) Release() { f.data = nil }
