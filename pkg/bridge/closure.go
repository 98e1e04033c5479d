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
	"errors"

	uberatomic "go.uber.org/atomic"

	"hostbridge.io/hostbridge/pkg/log"
)

var ErrClosureDropped = errors.New("closure invoked after drop")

// Exported entry points a sandbox module must provide for closures. The
// entry is invoked with (held, shape, args...), the destructor with
// (held, shape) and releases the sandbox-side closure environment.
const (
	ClosureEntryFunc = "closure_call"
	ClosureDropFunc  = "closure_drop"
)

// closureState is shared between every host callable wrapped around the same
// sandbox closure. held and shape are the two integers referencing the
// closure environment and its shape inside the sandbox.
type closureState struct {
	held  uint32
	shape uint32

	// starts at 1 when first wrapped, incremented for the duration of each
	// invocation so the closure cannot be destroyed while executing itself
	refcount *uberatomic.Int32

	dead bool
}

// Closure is a host-native callable forwarding invocation into the sandbox.
type Closure struct {
	bridge *Bridge
	state  *closureState
}

// WrapClosure wraps the sandbox closure referenced by (held, shape) into a
// host callable with initial refcount 1.
func (b *Bridge) WrapClosure(held uint32, shape uint32) *Closure {
	return &Closure{
		bridge: b,
		state: &closureState{
			held:     held,
			shape:    shape,
			refcount: uberatomic.NewInt32(1),
		},
	}
}

// Invoke calls the sandbox entry point with (held, shape, args...).
//
// held is captured and cleared for the duration of the call, so a reentrant
// release during teardown sees a cleared pointer and cannot double-invoke the
// destructor. The deferred cleanup decrements the refcount on every exit
// path; reaching zero fires the destructor exactly once, otherwise held is
// restored for the next invocation.
func (c *Closure) Invoke(args ...interface{}) (ret interface{}, err error) {
	s := c.state
	if s.dead {
		return nil, ErrClosureDropped
	}

	s.refcount.Inc()
	held := s.held
	s.held = 0

	defer func() {
		if s.refcount.Dec() == 0 {
			s.dead = true
			c.bridge.dropClosureEnv(held, s.shape)
		} else {
			s.held = held
		}
	}()

	entry, err := c.bridge.instance.GetExportsFunc(ClosureEntryFunc)
	if err != nil {
		return nil, err
	}

	callArgs := make([]interface{}, 0, 2+len(args))
	callArgs = append(callArgs, int32(held), int32(s.shape))
	callArgs = append(callArgs, args...)

	return entry.Call(callArgs...)
}

// Ref adds one reference outside of any invocation, pairing with a later
// Detach. Used when the sandbox clones a closure handle.
func (c *Closure) Ref() {
	s := c.state
	if s.dead {
		log.DefaultLogger.Warnf("[bridge][closure] Ref called on dead closure, shape: %v", s.shape)
		return
	}
	s.refcount.Inc()
}

// Detach is the host signaling the callable is no longer needed: a single
// decrement outside of any invocation. Reaching zero here marks the closure
// permanently inert without running the destructor, the sandbox side keeps
// ownership of its environment on this path. Returns true if the closure got
// destroyed by this detach.
func (c *Closure) Detach() bool {
	s := c.state
	if s.dead {
		log.DefaultLogger.Warnf("[bridge][closure] Detach called on dead closure, held: %v, shape: %v", s.held, s.shape)
		return false
	}

	if s.refcount.Dec() == 0 {
		s.dead = true
		s.held = 0
		return true
	}

	return false
}

// Alive reports whether the closure can still be invoked.
func (c *Closure) Alive() bool {
	return !c.state.dead
}

// dropClosureEnv invokes the sandbox destructor for (held, shape).
func (b *Bridge) dropClosureEnv(held uint32, shape uint32) {
	drop, err := b.instance.GetExportsFunc(ClosureDropFunc)
	if err != nil {
		log.DefaultLogger.Errorf("[bridge][closure] dropClosureEnv no destructor export, err: %v", err)
		return
	}

	if _, err := drop.Call(int32(held), int32(shape)); err != nil {
		log.DefaultLogger.Errorf("[bridge][closure] dropClosureEnv destructor failed, held: %v, shape: %v, err: %v", held, shape, err)
		return
	}

	b.stats.ClosuresDestroyed.Inc(1)
}
