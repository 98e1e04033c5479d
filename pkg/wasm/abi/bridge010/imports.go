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
	"github.com/pkg/errors"

	"hostbridge.io/hostbridge/pkg/bridge"
	"hostbridge.io/hostbridge/pkg/log"
	"hostbridge.io/hostbridge/pkg/types"
)

// importsNamespace is the wasm import module name of the abi.
const importsNamespace = "hostbridge"

func getABIContext(instance types.WasmInstance) *ABIContext {
	v := instance.GetData()
	if v == nil {
		log.DefaultLogger.Errorf("[bridge010][imports] getABIContext instance.GetData() return nil")
		return nil
	}

	ctx, ok := v.(*ABIContext)
	if !ok {
		log.DefaultLogger.Errorf("[bridge010][imports] getABIContext unexpected data type: %T", v)
		return nil
	}

	return ctx
}

func registerImports(instance types.WasmInstance) error {
	imports := []struct {
		name string
		f    interface{}
	}{
		{"extern_drop", externDrop},
		{"extern_clone", externClone},
		{"extern_invoke", externInvoke},
		{"string_new", stringNew},
		{"string_size", stringSize},
		{"string_store", stringStore},
		{"closure_new", closureNew},
		{"closure_ref", closureRef},
		{"closure_unref", closureUnref},
		{"error_take", errorTake},
		{"error_render", errorRender},
		{"host_log", hostLog},
		{"host_now", hostNow},
		{"host_random", hostRandom},
		{"host_getenv", hostGetenv},
	}

	for _, im := range imports {
		if err := instance.RegisterFunc(importsNamespace, im.name, im.f); err != nil {
			return err
		}
	}

	return nil
}

// externDrop releases the handle, returning its slot to the free list.
func externDrop(instance types.WasmInstance, h int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("extern_drop", func() (int32, error) {
		if _, err := b.Handles().Release(bridge.Handle(h)); err != nil {
			return 0, err
		}
		return bridge.ResultOK, nil
	})
}

// externClone allocates a fresh handle to the same host reference.
func externClone(instance types.WasmInstance, h int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("extern_clone", func() (int32, error) {
		clone, err := b.Handles().Clone(bridge.Handle(h))
		if err != nil {
			return 0, err
		}
		return int32(clone), nil
	})
}

// externInvoke calls the host callable behind the handle with no arguments.
func externInvoke(instance types.WasmInstance, h int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("extern_invoke", func() (int32, error) {
		ref, err := b.Handles().Resolve(bridge.Handle(h))
		if err != nil {
			return 0, err
		}

		switch v := ref.(type) {
		case *bridge.Closure:
			if _, err := v.Invoke(); err != nil {
				return 0, err
			}
		case func() error:
			if err := v(); err != nil {
				return 0, err
			}
		default:
			return 0, errors.Errorf("handle %v is not callable", h)
		}

		return bridge.ResultOK, nil
	})
}

// stringNew decodes [ptr, ptr+size) of the linear memory and returns a
// handle to the host string.
func stringNew(instance types.WasmInstance, ptr int32, size int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("string_new", func() (int32, error) {
		s, err := b.DecodeString(uint32(ptr), uint32(size))
		if err != nil {
			return 0, err
		}
		return int32(b.Handles().Allocate(s)), nil
	})
}

// stringSize returns the byte length of the host string behind the handle,
// letting the sandbox size its copy buffer up front.
func stringSize(instance types.WasmInstance, h int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("string_size", func() (int32, error) {
		ref, err := b.Handles().Resolve(bridge.Handle(h))
		if err != nil {
			return 0, err
		}

		s, ok := ref.(string)
		if !ok {
			return 0, errors.Errorf("handle %v is not a string", h)
		}

		return int32(len(s)), nil
	})
}

// stringStore encodes the host string behind the handle into freshly
// allocated sandbox memory and writes the (ptr, len) pair at retptr.
func stringStore(instance types.WasmInstance, h int32, retptr int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("string_store", func() (int32, error) {
		ref, err := b.Handles().Resolve(bridge.Handle(h))
		if err != nil {
			return 0, err
		}

		s, ok := ref.(string)
		if !ok {
			return 0, errors.Errorf("handle %v is not a string", h)
		}

		ptr, length, err := b.EncodeString(s)
		if err != nil {
			return 0, err
		}
		if err := b.WriteResultPair(uint32(retptr), ptr, length); err != nil {
			return 0, err
		}
		return bridge.ResultOK, nil
	})
}

// closureNew wraps the sandbox closure referenced by (held, shape) into a
// host callable and returns its handle.
func closureNew(instance types.WasmInstance, held int32, shape int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("closure_new", func() (int32, error) {
		c := b.WrapClosure(uint32(held), uint32(shape))
		return int32(b.Handles().Allocate(c)), nil
	})
}

// closureRef is the sandbox taking an extra reference, typically when
// cloning a closure handle. Pairs with a later closure_unref.
func closureRef(instance types.WasmInstance, h int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("closure_ref", func() (int32, error) {
		ref, err := b.Handles().Resolve(bridge.Handle(h))
		if err != nil {
			return 0, err
		}

		c, ok := ref.(*bridge.Closure)
		if !ok {
			return 0, errors.Errorf("handle %v is not a closure", h)
		}

		c.Ref()
		return bridge.ResultOK, nil
	})
}

// closureUnref is the sandbox signaling completion: one refcount decrement
// plus release of the handle. Returns 1 if the trampoline got destroyed.
func closureUnref(instance types.WasmInstance, h int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("closure_unref", func() (int32, error) {
		ref, err := b.Handles().Release(bridge.Handle(h))
		if err != nil {
			return 0, err
		}

		c, ok := ref.(*bridge.Closure)
		if !ok {
			return 0, errors.Errorf("handle %v is not a closure", h)
		}

		if c.Detach() {
			return 1, nil
		}
		return 0, nil
	})
}

// errorTake retrieves and clears the pending error cell.
func errorTake(instance types.WasmInstance) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	h, _ := b.TakeError()
	return int32(h)
}

// errorRender writes the rendered description of the value behind the handle
// into freshly allocated sandbox memory, (ptr, len) pair at retptr.
func errorRender(instance types.WasmInstance, h int32, retptr int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("error_render", func() (int32, error) {
		ref, err := b.Handles().Resolve(bridge.Handle(h))
		if err != nil {
			return 0, err
		}

		ptr, length, err := b.EncodeString(bridge.RenderValue(ref))
		if err != nil {
			return 0, err
		}
		if err := b.WriteResultPair(uint32(retptr), ptr, length); err != nil {
			return 0, err
		}
		return bridge.ResultOK, nil
	})
}

// hostLog writes a sandbox log line through the imports handler.
func hostLog(instance types.WasmInstance, level int32, ptr int32, size int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("host_log", func() (int32, error) {
		msg, err := b.DecodeString(uint32(ptr), uint32(size))
		if err != nil {
			return 0, err
		}
		ctx.Imports.Log(level, msg)
		return bridge.ResultOK, nil
	})
}

// hostNow returns the host wall clock in milliseconds.
func hostNow(instance types.WasmInstance) float64 {
	ctx := getABIContext(instance)
	if ctx == nil {
		return 0
	}
	return ctx.Imports.Now()
}

// hostRandom fills [ptr, ptr+size) of the linear memory with randomness.
func hostRandom(instance types.WasmInstance, ptr int32, size int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("host_random", func() (int32, error) {
		view, err := b.Views().Bytes()
		if err != nil {
			return 0, err
		}
		buf, err := view.Range(uint32(ptr), uint32(size))
		if err != nil {
			return 0, err
		}
		if err := ctx.Imports.Random(buf); err != nil {
			return 0, err
		}
		return bridge.ResultOK, nil
	})
}

// hostGetenv looks up a host environment variable. Writes the encoded value
// as a (ptr, len) pair at retptr and returns 1 when found, 0 when absent.
func hostGetenv(instance types.WasmInstance, kptr int32, klen int32, retptr int32) int32 {
	ctx := getABIContext(instance)
	if ctx == nil || ctx.Bridge == nil {
		return bridge.ResultFail
	}
	b := ctx.Bridge

	return b.Guard("host_getenv", func() (int32, error) {
		key, err := b.DecodeString(uint32(kptr), uint32(klen))
		if err != nil {
			return 0, err
		}

		val, ok := ctx.Imports.GetEnv(key)
		if !ok {
			if err := b.WriteResultPair(uint32(retptr), 0, 0); err != nil {
				return 0, err
			}
			return 0, nil
		}

		ptr, length, err := b.EncodeString(val)
		if err != nil {
			return 0, err
		}
		if err := b.WriteResultPair(uint32(retptr), ptr, length); err != nil {
			return 0, err
		}
		return 1, nil
	})
}
