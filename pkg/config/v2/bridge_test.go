package v2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridgeConfigClone(t *testing.T) {
	src := BridgeConfig{
		PluginName:  "demo",
		VmConfig:    &VmConfig{Engine: "wasmer", Path: "/tmp/demo.wasm", Md5: "abc"},
		InstanceNum: 4,
	}

	clone := src.Clone()
	assert.Equal(t, clone, src)

	// deep copy, mutating the clone leaves the source untouched
	clone.VmConfig.Path = "/tmp/other.wasm"
	assert.Equal(t, src.VmConfig.Path, "/tmp/demo.wasm")
}

func TestBridgeConfigCloneNilVmConfig(t *testing.T) {
	clone := BridgeConfig{PluginName: "demo"}.Clone()
	assert.NotNil(t, clone.VmConfig)
	assert.Equal(t, *clone.VmConfig, VmConfig{})
}
