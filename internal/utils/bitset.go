/*
 * Copyright 2022 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
    `math/bits`
)

// Bitset is a dense set of small non-negative integers.
type Bitset []uint64

func NewBitset(n int) Bitset {
    return make(Bitset, (n + 63) / 64)
}

func (self Bitset) Set(i int) {
    self[i >> 6] |= 1 << (uint(i) & 63)
}

func (self Bitset) Clear(i int) {
    self[i >> 6] &^= 1 << (uint(i) & 63)
}

func (self Bitset) Test(i int) bool {
    return i >> 6 < len(self) && self[i >> 6] & (1 << (uint(i) & 63)) != 0
}

// Union merges other into self and reports whether self changed.
func (self Bitset) Union(other Bitset) bool {
    changed := false
    for i, v := range other {
        if n := self[i] | v; n != self[i] {
            self[i] = n
            changed = true
        }
    }
    return changed
}

func (self Bitset) Intersects(other Bitset) bool {
    for i, v := range other {
        if i < len(self) && self[i] & v != 0 {
            return true
        }
    }
    return false
}

func (self Bitset) Count() int {
    n := 0
    for _, v := range self {
        n += bits.OnesCount64(v)
    }
    return n
}

func (self Bitset) Clone() Bitset {
    ret := make(Bitset, len(self))
    copy(ret, self)
    return ret
}

// ForEach calls fn for every member in increasing order.
func (self Bitset) ForEach(fn func(i int)) {
    for w, v := range self {
        for v != 0 {
            b := bits.TrailingZeros64(v)
            fn(w * 64 + b)
            v &= v - 1
        }
    }
}
