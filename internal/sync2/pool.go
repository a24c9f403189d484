// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sync2 contains typed wrappers over package sync.
package sync2

import "sync"

// Pool is a typed [sync.Pool] of values that reset themselves before they
// are reused. The zero Pool is ready to use.
type Pool[T any, P interface {
	*T
	Reset()
}] struct {
	impl sync.Pool
}

// Get returns a cached or new value, and a function that returns it to the
// pool once the caller is done with it.
//
//	v, drop := pool.Get()
//	defer drop()
func (p *Pool[T, P]) Get() (v P, drop func()) {
	v, ok := p.impl.Get().(P)
	if !ok {
		v = P(new(T))
	}
	return v, func() {
		v.Reset()
		p.impl.Put(v)
	}
}
