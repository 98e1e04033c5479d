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
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"hostbridge.io/hostbridge/pkg/log"
)

// noPending marks the empty pending error cell.
const noPending Handle = -1

// Relay captures a host-side exception raised inside a pass-through call.
// The exception value is stored as a table handle in the single pending
// error cell; an older pending error is overwritten, not queued.
func (b *Bridge) Relay(exc interface{}) {
	if b.pendingErr != noPending {
		if _, err := b.handles.Release(b.pendingErr); err != nil {
			log.DefaultLogger.Errorf("[bridge][relay] Relay release stale pending error, err: %v", err)
		}
	}

	b.pendingErr = b.handles.Allocate(exc)
	b.stats.RelayedErrors.Inc(1)
}

// HasPendingError reports whether an error is waiting to be retrieved.
func (b *Bridge) HasPendingError() bool {
	return b.pendingErr != noPending
}

// TakeError retrieves and clears the pending error cell. The returned handle
// is owned by the caller, who renders and drops it.
func (b *Bridge) TakeError() (Handle, bool) {
	if b.pendingErr == noPending {
		return HandleUndefined, false
	}

	h := b.pendingErr
	b.pendingErr = noPending
	return h, true
}

const renderDepthLimit = 8

// RenderValue renders a best-effort human-readable description of a host
// value: primitives literally, slices and arrays recursively element by
// element, otherwise a structural tag + fields rendering, falling back to a
// generic label when introspection is unsafe or too deep.
func RenderValue(v interface{}) string {
	return renderValue(v, 0)
}

func renderValue(v interface{}, depth int) string {
	if depth >= renderDepthLimit {
		return "..."
	}

	switch x := v.(type) {
	case nil:
		return "null"
	case undefinedType:
		return "undefined"
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case error:
		return x.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Slice, reflect.Array:
		var sb strings.Builder
		sb.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(renderValue(rv.Index(i).Interface(), depth+1))
		}
		sb.WriteByte(']')
		return sb.String()
	case reflect.Map:
		var sb strings.Builder
		sb.WriteString(rv.Type().String())
		sb.WriteByte('{')
		for i, key := range rv.MapKeys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(renderValue(key.Interface(), depth+1))
			sb.WriteString(": ")
			sb.WriteString(renderValue(rv.MapIndex(key).Interface(), depth+1))
		}
		sb.WriteByte('}')
		return sb.String()
	case reflect.Struct:
		t := rv.Type()
		var sb strings.Builder
		sb.WriteString(t.Name())
		sb.WriteByte('{')
		n := 0
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Field(i).CanInterface() {
				continue
			}
			if n > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.Field(i).Name)
			sb.WriteString(": ")
			sb.WriteString(renderValue(rv.Field(i).Interface(), depth+1))
			n++
		}
		sb.WriteByte('}')
		return sb.String()
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "null"
		}
		return renderValue(rv.Elem().Interface(), depth+1)
	}

	return fmt.Sprintf("[object %s]", rv.Type().String())
}
