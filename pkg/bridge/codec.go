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
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("invalid utf-8 byte range")

// DecodeString strictly decodes the byte range [ptr, ptr+size) of the linear
// memory as UTF-8. Malformed input is a fatal boundary error, never replaced
// with substitution runes: it implies bridge corruption or a contract
// violation by the caller.
func (b *Bridge) DecodeString(ptr uint32, size uint32) (string, error) {
	view, err := b.views.Bytes()
	if err != nil {
		return "", err
	}

	data, err := view.Range(ptr, size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}

	return string(data), nil
}

// EncodeString copies s into freshly allocated sandbox memory and returns the
// pointer and the actual written byte length.
//
// The fast path copies ascii bytes into an allocation sized to the element
// count of s. On the first non-ascii rune the destination is reallocated to
// offset + 3*remaining, a safe upper bound for utf-8 expansion, and the
// suffix is encoded in place.
func (b *Bridge) EncodeString(s string) (ptr uint32, length uint32, err error) {
	addr, err := b.instance.Malloc(int32(len(s)))
	if err != nil {
		return 0, 0, err
	}
	ptr = uint32(addr)

	// Malloc may have grown the memory, fetch the view after it.
	view, err := b.views.Bytes()
	if err != nil {
		return 0, 0, err
	}
	dst, err := view.Range(ptr, uint32(len(s)))
	if err != nil {
		return 0, 0, err
	}

	offset := 0
	for ; offset < len(s); offset++ {
		c := s[offset]
		if c >= utf8.RuneSelf {
			break
		}
		dst[offset] = c
	}

	if offset == len(s) {
		return ptr, uint32(offset), nil
	}

	b.stats.EncodeFallback.Inc(1)

	remaining := len(s) - offset
	newSize := offset + remaining*3

	addr, err = b.instance.Realloc(uint64(ptr), int32(len(s)), int32(newSize))
	if err != nil {
		return 0, 0, err
	}
	ptr = uint32(addr)

	view, err = b.views.Bytes()
	if err != nil {
		return 0, 0, err
	}
	dst, err = view.Range(ptr, uint32(newSize))
	if err != nil {
		return 0, 0, err
	}

	written := offset
	for _, r := range s[offset:] {
		written += utf8.EncodeRune(dst[written:], r)
	}

	return ptr, uint32(written), nil
}
