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

package stats

import (
	metrics "github.com/rcrowley/go-metrics"
)

const prefix = "hostbridge."

// BridgeStats records per-instance bridge activity.
type BridgeStats struct {
	// total counts of handle table operations
	HandleAllocate metrics.Counter
	HandleRelease  metrics.Counter
	// current number of live dynamic handles
	HandleLive metrics.Counter
	// deepest borrow stack usage observed
	BorrowPeak metrics.Gauge
	// total counts of host errors relayed to the sandbox
	RelayedErrors metrics.Counter
	// total counts of closure destructors fired
	ClosuresDestroyed metrics.Counter
	// total counts of string encodings that hit the non-ascii fallback
	EncodeFallback metrics.Counter
}

func NewBridgeStats(namespace string) *BridgeStats {
	r := metrics.NewPrefixedChildRegistry(metrics.DefaultRegistry, prefix+namespace+".")

	return &BridgeStats{
		HandleAllocate:    metrics.GetOrRegisterCounter("handle.allocate", r),
		HandleRelease:     metrics.GetOrRegisterCounter("handle.release", r),
		HandleLive:        metrics.GetOrRegisterCounter("handle.live", r),
		BorrowPeak:        metrics.GetOrRegisterGauge("borrow.peak", r),
		RelayedErrors:     metrics.GetOrRegisterCounter("error.relayed", r),
		ClosuresDestroyed: metrics.GetOrRegisterCounter("closure.destroyed", r),
		EncodeFallback:    metrics.GetOrRegisterCounter("codec.encode_fallback", r),
	}
}
