/*
 * Copyright 2022 CloudWeGo Authors
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

package resources

import (
	"github.com/p4lang/tableplace/internal/deps"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/phv"
	"github.com/p4lang/tableplace/ir"
)

const (
	_SramBits      = 1024 * 128 // bits in one SRAM block
	_TcamRows      = 512
	_TcamWidth     = 44
	_EntryOverhead = 8 // version and next-table bits of an exact-match entry
	_MinSplit      = 64
)

var _AttachedWidth = [...]int{
	ir.Counter:  64,
	ir.Meter:    128,
	ir.Stateful: 64,
	ir.Selector: 128,
}

// Model computes table footprints under one register allocation. Deps is
// optional; without it the instruction count falls back to written fields.
type Model struct {
	Phv  phv.Allocation
	Deps *deps.Analysis
	Cap  opts.StageCapacity
}

func NewModel(alloc phv.Allocation, a *deps.Analysis, cap opts.StageCapacity) *Model {
	return &Model{Phv: alloc, Deps: a, Cap: cap}
}

func blocks(bits int, size int) int {
	if bits <= 0 {
		return 0
	} else {
		return (bits + size - 1) / size
	}
}

func keyBits(t *ir.Table) int {
	n := 0
	for _, k := range t.Keys {
		n += k.Width()
	}
	return n
}

// ActionBytes is the action-data bus width of the widest action of t.
func ActionBytes(t *ir.Table) int {
	n := 0
	for _, a := range t.Actions {
		if b := a.ParamBits(); b > n {
			n = b
		}
	}
	return blocks(n, 8)
}

func (self *Model) bytes(slices []ir.Slice) int {
	if self.Phv != nil {
		return phv.Bytes(self.Phv, slices)
	}
	n := 0
	for _, s := range slices {
		n += blocks(s.Width(), 8)
	}
	return n
}

// inputs returns every slice routed through the crossbar for t.
func inputs(t *ir.Table) []ir.Slice {
	ret := append([]ir.Slice(nil), t.Keys...)
	for _, r := range t.Attached {
		ret = append(ret, r.Inputs...)
	}
	return ret
}

func (self *Model) imem(t *ir.Table) int {
	if self.Deps != nil {
		if s := self.Deps.Summary(t); s != nil {
			return len(s.Writes)
		}
	}
	seen := make(map[*ir.Field]bool)
	for _, a := range t.Actions {
		for _, s := range a.Writes() {
			seen[s.Field] = true
		}
	}
	return len(seen)
}

// Demand returns the footprint of t holding the given number of entries.
// Only match tables and direct attached resources scale with entries.
func (self *Model) Demand(t *ir.Table, entries int) Usage {
	ret := Usage{}
	switch t.Kind {
	case ir.Match:
		ret.LogicalIds = 1
		ret.Ixbar = self.bytes(inputs(t))
		ret.ActionBus = ActionBytes(t)
		ret.Imem = self.imem(t)
		ad := entries * ActionBytes(t) * 8
		if t.Match == ir.Ternary {
			ret.TCAM = blocks(keyBits(t), _TcamWidth) * blocks(entries, _TcamRows)
			ret.SRAM = blocks(ad, _SramBits)
		} else if len(t.Keys) != 0 {
			ret.SRAM = blocks(entries*(keyBits(t)+_EntryOverhead), _SramBits) + blocks(ad, _SramBits)
		}
	case ir.Gateway:
		ret.LogicalIds = 1
		ret.Gateways = 1
		ret.Ixbar = self.bytes(t.Keys)
	case ir.AlwaysRun:
		ret.ActionBus = ActionBytes(t)
		ret.Imem = self.imem(t)
	case ir.Detached:
		ret.LogicalIds = 1
		ret.Ixbar = self.bytes(inputs(t))
		ret.Imem = self.imem(t)
	default:
		panic("resources: invalid table kind " + t.Kind.String())
	}
	for _, r := range t.Attached {
		n := r.Entries
		if n == 0 {
			n = entries
		}
		if n > 0 {
			ret.SRAM += blocks(n*_AttachedWidth[r.Kind], _SramBits)
		}
	}
	return ret
}

// Request asks for a table to be fitted with the given entries. Shrink
// allows the trial to settle for fewer entries.
type Request struct {
	Table   *ir.Table
	Entries int
	Shrink  bool
}

// Trial is the outcome of fitting one request. A successful trial may hold
// fewer entries than requested when the table was shrunk.
type Trial struct {
	Table     *ir.Table
	Requested int
	Entries   int
	Usage     Usage
	OK        bool
	Reason    string
}

func (self Trial) Partial() bool {
	return self.OK && self.Entries < self.Requested
}

// Try fits a request on top of the usage already committed to a stage. It
// never modifies anything.
func (self *Model) Try(committed Usage, r Request) Trial {
	ret := Trial{Table: r.Table, Requested: r.Entries}
	fit := func(n int) (Usage, string) {
		u := self.Demand(r.Table, n)
		return u, committed.Add(u).Exceeds(self.Cap)
	}
	fits := func(n int) bool {
		_, why := fit(n)
		return why == ""
	}

	/* the whole table first */
	u, why := fit(r.Entries)
	if why == "" {
		ret.Entries, ret.Usage, ret.OK = r.Entries, u, true
		return ret
	}
	ret.Reason = why
	if !r.Shrink || r.Table.Kind != ir.Match || r.Entries <= _MinSplit {
		return ret
	}

	/* largest piece that still fits, footprint is monotone in entries */
	if !fits(_MinSplit) {
		return ret
	}
	lo, hi := _MinSplit, r.Entries-1
	for lo < hi {
		if mid := (lo + hi + 1) / 2; fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	ret.Entries, ret.OK, ret.Reason = lo, true, ""
	ret.Usage, _ = fit(lo)
	return ret
}

// FitsEmpty reports whether any part of t fits in an empty stage.
func (self *Model) FitsEmpty(t *ir.Table, entries int, shrink bool) bool {
	return self.Try(Usage{}, Request{Table: t, Entries: entries, Shrink: shrink}).OK
}
