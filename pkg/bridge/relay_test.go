package bridge

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRelayTakeError(t *testing.T) {
	ins := newFakeInstance(256)
	b := New(ins, "relay_take")

	// empty cell
	assert.False(t, b.HasPendingError())
	h, ok := b.TakeError()
	assert.False(t, ok)
	assert.Equal(t, h, HandleUndefined)

	cause := errors.New("boom")
	b.Relay(cause)
	assert.True(t, b.HasPendingError())

	h, ok = b.TakeError()
	assert.True(t, ok)

	v, err := b.Handles().Resolve(h)
	assert.Nil(t, err)
	assert.Equal(t, v, cause)

	// taking clears the cell, the handle stays owned by the caller
	assert.False(t, b.HasPendingError())
	_, ok = b.TakeError()
	assert.False(t, ok)

	_, err = b.Handles().Release(h)
	assert.Nil(t, err)
	assert.Equal(t, b.Handles().LiveCount(), 0)
}

func TestRelayOverwrite(t *testing.T) {
	ins := newFakeInstance(256)
	b := New(ins, "relay_overwrite")

	b.Relay(errors.New("first"))
	b.Relay(errors.New("second"))

	// the stale pending handle got released, not leaked
	assert.Equal(t, b.Handles().LiveCount(), 1)

	h, ok := b.TakeError()
	assert.True(t, ok)
	v, err := b.Handles().Release(h)
	assert.Nil(t, err)
	assert.Equal(t, v.(error).Error(), "second")
}

func TestRenderValuePrimitives(t *testing.T) {
	assert.Equal(t, RenderValue(nil), "null")
	assert.Equal(t, RenderValue(Undefined), "undefined")
	assert.Equal(t, RenderValue(true), "true")
	assert.Equal(t, RenderValue(false), "false")
	assert.Equal(t, RenderValue("plain text"), "plain text")
	assert.Equal(t, RenderValue(errors.New("it broke")), "it broke")
	assert.Equal(t, RenderValue(int32(-42)), "-42")
	assert.Equal(t, RenderValue(uint64(42)), "42")
	assert.Equal(t, RenderValue(2.5), "2.5")
}

func TestRenderValueComposites(t *testing.T) {
	assert.Equal(t, RenderValue([]int{1, 2, 3}), "[1, 2, 3]")
	assert.Equal(t, RenderValue([]string{"a", "b"}), "[a, b]")
	assert.Equal(t, RenderValue([]interface{}{nil, true, "x"}), "[null, true, x]")

	type point struct {
		X int
		Y int
	}
	assert.Equal(t, RenderValue(point{X: 1, Y: 2}), "point{X: 1, Y: 2}")
	assert.Equal(t, RenderValue(&point{X: 3, Y: 4}), "point{X: 3, Y: 4}")

	assert.Equal(t, RenderValue(map[string]int{"k": 7}), "map[string]int{k: 7}")

	// a non-introspectable value falls back to a generic label
	assert.Equal(t, RenderValue(make(chan int)), "[object chan int]")
}

func TestRenderValueDepthLimit(t *testing.T) {
	// self-referential value must not recurse forever
	type node struct {
		Next interface{}
	}
	n := &node{}
	n.Next = n

	s := RenderValue(n)
	assert.Contains(t, s, "...")
}
