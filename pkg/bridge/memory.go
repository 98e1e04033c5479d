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
	"math"

	"hostbridge.io/hostbridge/pkg/types"
)

var ErrAddrOverflow = errors.New("addr overflow")

const exportedMemName = "memory"

// ViewCache keeps one typed overlay per element width over the instance
// linear memory. Any call into the sandbox may grow the memory and move the
// backing buffer, so every accessor revalidates the cached view against the
// current buffer identity before returning it. Callers must not hold a view
// across a call boundary.
type ViewCache struct {
	instance types.WasmInstance

	bytes ByteView
	i32s  Int32View
	f32s  Float32View
	f64s  Float64View
}

func NewViewCache(instance types.WasmInstance) *ViewCache {
	return &ViewCache{instance: instance}
}

// sameBuffer reports whether a and b are views of the same backing array.
func sameBuffer(a, b []byte) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}

func (c *ViewCache) buffer() ([]byte, error) {
	return c.instance.GetExportsMem(exportedMemName)
}

// Bytes returns the byte view of the current linear memory.
func (c *ViewCache) Bytes() (ByteView, error) {
	mem, err := c.buffer()
	if err != nil {
		return ByteView{}, err
	}
	if !sameBuffer(c.bytes.buf, mem) {
		c.bytes = ByteView{buf: mem}
	}
	return c.bytes, nil
}

// Int32s returns the 32-bit signed integer view of the current linear memory.
func (c *ViewCache) Int32s() (Int32View, error) {
	mem, err := c.buffer()
	if err != nil {
		return Int32View{}, err
	}
	if !sameBuffer(c.i32s.buf, mem) {
		c.i32s = Int32View{buf: mem}
	}
	return c.i32s, nil
}

// Float32s returns the 32-bit float view of the current linear memory.
func (c *ViewCache) Float32s() (Float32View, error) {
	mem, err := c.buffer()
	if err != nil {
		return Float32View{}, err
	}
	if !sameBuffer(c.f32s.buf, mem) {
		c.f32s = Float32View{buf: mem}
	}
	return c.f32s, nil
}

// Float64s returns the 64-bit float view of the current linear memory.
func (c *ViewCache) Float64s() (Float64View, error) {
	mem, err := c.buffer()
	if err != nil {
		return Float64View{}, err
	}
	if !sameBuffer(c.f64s.buf, mem) {
		c.f64s = Float64View{buf: mem}
	}
	return c.f64s, nil
}

// ByteView is a bounds-checked byte overlay of the linear memory.
type ByteView struct {
	buf []byte
}

// Range returns the sub slice [addr, addr+size).
func (v ByteView) Range(addr uint32, size uint32) ([]byte, error) {
	end := uint64(addr) + uint64(size)
	if end > uint64(len(v.buf)) {
		return nil, ErrAddrOverflow
	}
	return v.buf[addr:end], nil
}

func (v ByteView) Load(addr uint32) (byte, error) {
	if uint64(addr) >= uint64(len(v.buf)) {
		return 0, ErrAddrOverflow
	}
	return v.buf[addr], nil
}

func (v ByteView) Store(addr uint32, b byte) error {
	if uint64(addr) >= uint64(len(v.buf)) {
		return ErrAddrOverflow
	}
	v.buf[addr] = b
	return nil
}

// Int32View is an element-indexed overlay of 32-bit signed integers.
type Int32View struct {
	buf []byte
}

func (v Int32View) Load(idx uint32) (int32, error) {
	off := uint64(idx) * 4
	if off+4 > uint64(len(v.buf)) {
		return 0, ErrAddrOverflow
	}
	return int32(binary.LittleEndian.Uint32(v.buf[off:])), nil
}

func (v Int32View) Store(idx uint32, val int32) error {
	off := uint64(idx) * 4
	if off+4 > uint64(len(v.buf)) {
		return ErrAddrOverflow
	}
	binary.LittleEndian.PutUint32(v.buf[off:], uint32(val))
	return nil
}

// Float32View is an element-indexed overlay of 32-bit floats.
type Float32View struct {
	buf []byte
}

func (v Float32View) Load(idx uint32) (float32, error) {
	off := uint64(idx) * 4
	if off+4 > uint64(len(v.buf)) {
		return 0, ErrAddrOverflow
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v.buf[off:])), nil
}

func (v Float32View) Store(idx uint32, val float32) error {
	off := uint64(idx) * 4
	if off+4 > uint64(len(v.buf)) {
		return ErrAddrOverflow
	}
	binary.LittleEndian.PutUint32(v.buf[off:], math.Float32bits(val))
	return nil
}

// Float64View is an element-indexed overlay of 64-bit floats.
type Float64View struct {
	buf []byte
}

func (v Float64View) Load(idx uint32) (float64, error) {
	off := uint64(idx) * 8
	if off+8 > uint64(len(v.buf)) {
		return 0, ErrAddrOverflow
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.buf[off:])), nil
}

func (v Float64View) Store(idx uint32, val float64) error {
	off := uint64(idx) * 8
	if off+8 > uint64(len(v.buf)) {
		return ErrAddrOverflow
	}
	binary.LittleEndian.PutUint64(v.buf[off:], math.Float64bits(val))
	return nil
}
