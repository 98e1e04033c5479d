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

package bridge010

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hostbridge.io/hostbridge/pkg/bridge"
	"hostbridge.io/hostbridge/pkg/types"
)

// testInstance embeds the interface and implements the subset the abi
// touches: linear memory, the allocator pair and the export lookup.
type testInstance struct {
	types.WasmInstance

	mem     []byte
	next    uint32
	data    interface{}
	exports map[string]func(args ...interface{}) (interface{}, error)

	registered []string
}

func newTestInstance() *testInstance {
	return &testInstance{
		mem:     make([]byte, 1024),
		next:    16,
		exports: make(map[string]func(args ...interface{}) (interface{}, error)),
	}
}

type testFunc struct {
	f func(args ...interface{}) (interface{}, error)
}

func (f *testFunc) Call(args ...interface{}) (interface{}, error) { return f.f(args...) }

func (i *testInstance) RegisterFunc(namespace string, funcName string, f interface{}) error {
	i.registered = append(i.registered, namespace+"."+funcName)
	return nil
}

func (i *testInstance) GetExportsFunc(funcName string) (types.WasmFunction, error) {
	f, ok := i.exports[funcName]
	if !ok {
		return nil, errors.New("export not found: " + funcName)
	}
	return &testFunc{f: f}, nil
}

func (i *testInstance) GetExportsMem(memName string) ([]byte, error) { return i.mem, nil }

func (i *testInstance) Malloc(size int32) (uint64, error) {
	addr := i.next
	i.next += uint32(size)
	if int(i.next) > len(i.mem) {
		grown := make([]byte, 2*int(i.next))
		copy(grown, i.mem)
		i.mem = grown
	}
	return uint64(addr), nil
}

func (i *testInstance) Realloc(addr uint64, oldSize int32, newSize int32) (uint64, error) {
	newAddr, err := i.Malloc(newSize)
	if err != nil {
		return 0, err
	}
	copy(i.mem[newAddr:newAddr+uint64(oldSize)], i.mem[addr:addr+uint64(oldSize)])
	return newAddr, nil
}

func (i *testInstance) GetData() interface{}     { return i.data }
func (i *testInstance) SetData(data interface{}) { i.data = data }

func newTestContext() (*testInstance, *ABIContext) {
	ins := newTestInstance()
	ctx := abiContextFactory(ins).(*ABIContext)
	ctx.OnInstanceCreate(ins)
	return ins, ctx
}

func (i *testInstance) readPair(retptr uint32) (uint32, uint32) {
	return binary.LittleEndian.Uint32(i.mem[retptr:]),
		binary.LittleEndian.Uint32(i.mem[retptr+4:])
}

func TestABILifecycle(t *testing.T) {
	ins := newTestInstance()
	a := abiContextFactory(ins)
	assert.Equal(t, a.Name(), AbiV010)

	ctx := a.(*ABIContext)
	ctx.OnInstanceCreate(ins)
	assert.NotNil(t, ctx.Bridge)
	assert.Equal(t, ins.data, ctx)

	// the full import surface got registered under the abi namespace
	assert.Equal(t, len(ins.registered), 15)
	for _, name := range ins.registered {
		assert.Contains(t, name, importsNamespace+".")
	}

	ctx.OnInstanceDestroy(ins)
	assert.Nil(t, ins.data)
}

func TestImportsStringNewAndStore(t *testing.T) {
	ins, ctx := newTestContext()

	s := "héllo, sandbox"
	copy(ins.mem[512:], s)

	h := stringNew(ins, 512, int32(len(s)))
	assert.True(t, h >= int32(bridge.DynamicBase))

	v, err := ctx.Bridge.Handles().Resolve(bridge.Handle(h))
	assert.Nil(t, err)
	assert.Equal(t, v, s)

	assert.Equal(t, stringSize(ins, h), int32(len(s)))

	res := stringStore(ins, h, 8)
	assert.Equal(t, res, bridge.ResultOK)

	ptr, length := ins.readPair(8)
	assert.Equal(t, string(ins.mem[ptr:ptr+length]), s)

	assert.Equal(t, externDrop(ins, h), bridge.ResultOK)
	assert.Equal(t, ctx.Bridge.Handles().LiveCount(), 0)
}

func TestImportsStringNewInvalidUTF8(t *testing.T) {
	ins, ctx := newTestContext()

	copy(ins.mem[512:], []byte{0xff, 0xfe})

	res := stringNew(ins, 512, 2)
	assert.Equal(t, res, bridge.ResultFail)
	assert.True(t, ctx.Bridge.HasPendingError())

	// the sandbox retrieves and renders the relayed cause
	eh := errorTake(ins)
	assert.True(t, eh >= int32(bridge.DynamicBase))
	assert.False(t, ctx.Bridge.HasPendingError())

	res = errorRender(ins, eh, 8)
	assert.Equal(t, res, bridge.ResultOK)

	ptr, length := ins.readPair(8)
	assert.Equal(t, string(ins.mem[ptr:ptr+length]), "invalid utf-8 byte range")
}

func TestImportsErrorTakeEmpty(t *testing.T) {
	ins, _ := newTestContext()

	assert.Equal(t, errorTake(ins), int32(bridge.HandleUndefined))
}

func TestImportsExternClone(t *testing.T) {
	ins, ctx := newTestContext()

	s := "cloneme"
	copy(ins.mem[512:], s)
	h := stringNew(ins, 512, int32(len(s)))

	clone := externClone(ins, h)
	assert.NotEqual(t, clone, h)
	assert.True(t, clone >= int32(bridge.DynamicBase))

	assert.Equal(t, externDrop(ins, h), bridge.ResultOK)

	v, err := ctx.Bridge.Handles().Resolve(bridge.Handle(clone))
	assert.Nil(t, err)
	assert.Equal(t, v, s)

	assert.Equal(t, externDrop(ins, clone), bridge.ResultOK)

	// dropping twice relays a bad handle error
	assert.Equal(t, externDrop(ins, clone), bridge.ResultFail)
	assert.True(t, ctx.Bridge.HasPendingError())
}

func TestImportsClosureLifecycle(t *testing.T) {
	ins, ctx := newTestContext()

	calls := 0
	drops := 0
	ins.exports[bridge.ClosureEntryFunc] = func(args ...interface{}) (interface{}, error) {
		calls++
		assert.Equal(t, args[0], int32(7))
		assert.Equal(t, args[1], int32(2))
		return int32(0), nil
	}
	ins.exports[bridge.ClosureDropFunc] = func(args ...interface{}) (interface{}, error) {
		drops++
		return int32(0), nil
	}

	h := closureNew(ins, 7, 2)
	assert.True(t, h >= int32(bridge.DynamicBase))

	assert.Equal(t, externInvoke(ins, h), bridge.ResultOK)
	assert.Equal(t, calls, 1)

	// a cloned handle shares the closure state and takes its own reference
	clone := externClone(ins, h)
	assert.Equal(t, closureRef(ins, clone), bridge.ResultOK)

	assert.Equal(t, closureUnref(ins, clone), int32(0))
	assert.Equal(t, externInvoke(ins, h), bridge.ResultOK)
	assert.Equal(t, calls, 2)

	// the last unref destroys the trampoline, no destructor on this path
	assert.Equal(t, closureUnref(ins, h), int32(1))
	assert.Equal(t, drops, 0)
	assert.Equal(t, ctx.Bridge.Handles().LiveCount(), 0)

	assert.Equal(t, externInvoke(ins, h), bridge.ResultFail)
}

func TestImportsExternInvokeNotCallable(t *testing.T) {
	ins, ctx := newTestContext()

	h := int32(ctx.Bridge.Handles().Allocate("just a string"))
	assert.Equal(t, externInvoke(ins, h), bridge.ResultFail)
	assert.True(t, ctx.Bridge.HasPendingError())
}

func TestImportsHostGetenv(t *testing.T) {
	ins, _ := newTestContext()

	t.Setenv("HOSTBRIDGE_TEST_KEY", "some-value")

	key := "HOSTBRIDGE_TEST_KEY"
	copy(ins.mem[512:], key)

	res := hostGetenv(ins, 512, int32(len(key)), 8)
	assert.Equal(t, res, int32(1))

	ptr, length := ins.readPair(8)
	assert.Equal(t, string(ins.mem[ptr:ptr+length]), "some-value")

	missing := "HOSTBRIDGE_TEST_MISSING"
	copy(ins.mem[640:], missing)
	res = hostGetenv(ins, 640, int32(len(missing)), 8)
	assert.Equal(t, res, int32(0))

	ptr, length = ins.readPair(8)
	assert.Equal(t, ptr, uint32(0))
	assert.Equal(t, length, uint32(0))
}

func TestImportsHostNowAndRandom(t *testing.T) {
	ins, _ := newTestContext()

	assert.True(t, hostNow(ins) > 0)

	assert.Equal(t, hostRandom(ins, 512, 16), bridge.ResultOK)
}

func TestImportsHostLog(t *testing.T) {
	ins, ctx := newTestContext()

	var gotLevel int32
	var gotMsg string
	ctx.SetABIImports(&captureImports{onLog: func(level int32, msg string) {
		gotLevel = level
		gotMsg = msg
	}})

	msg := "hello from the sandbox"
	copy(ins.mem[512:], msg)

	res := hostLog(ins, logLevelInfo, 512, int32(len(msg)))
	assert.Equal(t, res, bridge.ResultOK)
	assert.Equal(t, gotLevel, logLevelInfo)
	assert.Equal(t, gotMsg, msg)
}

type captureImports struct {
	DefaultImportsHandler
	onLog func(level int32, msg string)
}

func (c *captureImports) Log(level int32, msg string) { c.onLog(level, msg) }
