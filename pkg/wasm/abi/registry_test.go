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

package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hostbridge.io/hostbridge/pkg/types"
)

type testModule struct {
	abiNames []string
}

func (m *testModule) Init()                            {}
func (m *testModule) NewInstance() types.WasmInstance { return nil }
func (m *testModule) GetABINameList() []string        { return m.abiNames }

// testInstance embeds the interface, the registry only touches GetModule.
type testInstance struct {
	types.WasmInstance
	module types.WasmModule
}

func (i *testInstance) GetModule() types.WasmModule { return i.module }

type testABI struct {
	types.ABI
	name string
}

func (a *testABI) Name() string { return a.name }

func TestRegistryGetABI(t *testing.T) {
	RegisterABI("abi1", func(instance types.WasmInstance) types.ABI { return &testABI{name: "abi1"} })

	instance := &testInstance{module: &testModule{abiNames: []string{"abi1"}}}

	ret := GetABI(instance, "abi1")
	assert.NotNil(t, ret)
	assert.Equal(t, ret.Name(), "abi1")

	assert.Nil(t, GetABI(nil, "abi2"))
	assert.Nil(t, GetABI(instance, ""))
	assert.Nil(t, GetABI(instance, "otherABI"))
}

func TestRegistryGetABIList(t *testing.T) {
	RegisterABI("abi1", func(instance types.WasmInstance) types.ABI { return &testABI{name: "abi1"} })
	RegisterABI("abi2", func(instance types.WasmInstance) types.ABI { return &testABI{name: "abi2"} })
	RegisterABI("abi3", func(instance types.WasmInstance) types.ABI { return &testABI{name: "abi3"} })

	// abi4 is declared by the module but not registered, abi3 is registered
	// but not declared, neither shows up
	instance := &testInstance{module: &testModule{abiNames: []string{"abi1", "abi2", "abi4"}}}

	ret := GetABIList(instance)
	assert.NotNil(t, ret)
	assert.Equal(t, len(ret), 2)

	assert.Nil(t, GetABIList(nil))
}
