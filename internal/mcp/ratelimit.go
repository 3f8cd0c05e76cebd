// Copyright 2025 Pipeflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"sync"
	"time"
)

// RateLimiter applies token bucket limits to MCP tool calls. Workflow
// runs get their own, tighter bucket on top of the overall call limit.
type RateLimiter struct {
	runBucket  *tokenBucket
	callBucket *tokenBucket
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing runsPerMinute workflow runs
// and callsPerMinute total tool calls.
func NewRateLimiter(runsPerMinute, callsPerMinute int) *RateLimiter {
	return &RateLimiter{
		runBucket:  newBucket(runsPerMinute),
		callBucket: newBucket(callsPerMinute),
	}
}

func newBucket(perMinute int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(perMinute),
		maxTokens:  float64(perMinute),
		refillRate: float64(perMinute) / 60.0,
		lastRefill: time.Now(),
	}
}

// AllowRun checks the workflow run bucket.
func (rl *RateLimiter) AllowRun() bool {
	return rl.runBucket.take(1)
}

// AllowCall checks the overall tool call bucket.
func (rl *RateLimiter) AllowCall() bool {
	return rl.callBucket.take(1)
}

func (tb *tokenBucket) take(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}
