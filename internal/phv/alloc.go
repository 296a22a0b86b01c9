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

package phv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/kitex/pkg/klog"
	"github.com/p4lang/tableplace/internal/flow"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/utils"
	"github.com/p4lang/tableplace/ir"
)

// Constraints is what table placement hands back to the allocator between
// rounds.
type Constraints struct {
	TableStages    map[string][]int
	Isolate        map[string]bool
	NoMetadataInit bool
}

func (self Constraints) Clone() Constraints {
	ret := Constraints{
		TableStages:    make(map[string][]int, len(self.TableStages)),
		Isolate:        make(map[string]bool, len(self.Isolate)),
		NoMetadataInit: self.NoMetadataInit,
	}
	for k, v := range self.TableStages {
		ret.TableStages[k] = append([]int(nil), v...)
	}
	for k, v := range self.Isolate {
		ret.Isolate[k] = v
	}
	return ret
}

// Result is a complete field-to-container assignment.
type Result struct {
	prog    *ir.Program
	trivial bool
	slices  map[int][]Alloc
	live    map[int][2]int
	inits   map[int][]*ir.Field
	used    [ir.NumGress][3]int
}

func (self *Result) Slices(f *ir.Field) []Alloc {
	return self.slices[f.Id]
}

func (self *Result) Trivial() bool {
	return self.trivial
}

func (self *Result) MetadataInits(t *ir.Table) []*ir.Field {
	return self.inits[t.Id]
}

// LiveRange is the stage range in which a field holds a value; only known
// once a placement has been fed back.
func (self *Result) LiveRange(f *ir.Field) (int, int, bool) {
	if r, ok := self.live[f.Id]; ok {
		return r[0], r[1], true
	} else {
		return 0, 0, false
	}
}

// FieldsMutex reports whether two fields are never live at the same time:
// either declared exclusive, or with disjoint live ranges.
func (self *Result) FieldsMutex(a *ir.Field, b *ir.Field) bool {
	if a == b {
		return false
	}
	if self.prog.FieldsMutex(a, b) {
		return true
	}
	ra, oka := self.live[a.Id]
	rb, okb := self.live[b.Id]
	return oka && okb && (ra[1] < rb[0] || rb[1] < ra[0])
}

// Used returns the number of containers of kind k allocated in gress g.
func (self *Result) Used(g ir.Gress, k Kind) int {
	return self.used[g][k]
}

func (self *Result) String() string {
	var buf []string
	for _, f := range self.prog.Fields() {
		var ss []string
		for _, a := range self.slices[f.Id] {
			ss = append(ss, fmt.Sprintf("%s[%d:%d]<-[%d:%d]", a.Container, a.ContHi(), a.ContLo, a.FieldHi, a.FieldLo))
		}
		buf = append(buf, fmt.Sprintf("%s: %s", f.Name, strings.Join(ss, " ")))
	}
	return strings.Join(buf, "\n")
}

// Allocator is a reference register allocator: it packs fields of each gress
// into the device's containers, keeping apart fields whose writers may share
// a stage once stage constraints are known.
type Allocator struct {
	prog    *ir.Program
	device  opts.Containers
	readers map[int][]*ir.Table
	writers map[int][]*ir.Table
}

func NewAllocator(prog *ir.Program, device opts.Containers) *Allocator {
	ret := &Allocator{
		prog:    prog,
		device:  device,
		readers: make(map[int][]*ir.Table),
		writers: make(map[int][]*ir.Table),
	}
	ret.scan()
	return ret
}

func addTable(m map[int][]*ir.Table, f *ir.Field, t *ir.Table) {
	for _, v := range m[f.Id] {
		if v == t {
			return
		}
	}
	m[f.Id] = append(m[f.Id], t)
}

// controlOrder lists the applied tables in control order, then the rest by id.
func controlOrder(prog *ir.Program) []*ir.Table {
	ret := flow.Build(prog).Order()
	seen := make(map[int]bool, len(ret))
	for _, t := range ret {
		seen[t.Id] = true
	}
	for _, t := range prog.Tables() {
		if !seen[t.Id] {
			ret = append(ret, t)
		}
	}
	return ret
}

// scan records the readers and writers of every field, each list in control
// order.
func (self *Allocator) scan() {
	for _, t := range controlOrder(self.prog) {
		for _, k := range t.Keys {
			addTable(self.readers, k.Field, t)
		}
		for _, a := range t.Attached {
			for _, s := range a.Inputs {
				addTable(self.readers, s.Field, t)
			}
			for _, s := range a.Outputs {
				addTable(self.writers, s.Field, t)
			}
		}
		for _, a := range t.Actions {
			for _, s := range a.Reads() {
				addTable(self.readers, s.Field, t)
			}
			for _, s := range a.Writes() {
				addTable(self.writers, s.Field, t)
			}
		}
	}
}

func kindFor(width int) Kind {
	switch {
	case width <= 8:
		return B
	case width <= 16:
		return H
	default:
		return W
	}
}

func (self *Allocator) limit(k Kind) int {
	switch k {
	case B:
		return self.device.B
	case H:
		return self.device.H
	default:
		return self.device.W
	}
}

func (self *Allocator) sortedFields() []*ir.Field {
	ff := append([]*ir.Field(nil), self.prog.Fields()...)
	sort.SliceStable(ff, func(i int, j int) bool {
		if ff[i].Gress != ff[j].Gress {
			return ff[i].Gress < ff[j].Gress
		} else if ff[i].Size != ff[j].Size {
			return ff[i].Size > ff[j].Size
		} else {
			return ff[i].Id < ff[j].Id
		}
	})
	return ff
}

func chunks(f *ir.Field) [][2]int {
	var ret [][2]int
	for lo := 0; lo < f.Size; lo += 32 {
		hi := lo + 31
		if hi >= f.Size {
			hi = f.Size - 1
		}
		ret = append(ret, [2]int{lo, hi})
	}
	return ret
}

// Trivial gives every field chunk a container of its own, ignoring the
// device limits.
func (self *Allocator) Trivial() *Result {
	ret := self.newResult(true)
	next := [ir.NumGress][3]int{}
	for _, f := range self.sortedFields() {
		for _, c := range chunks(f) {
			k := kindFor(c[1] - c[0] + 1)
			ct := Container{Gress: f.Gress, Kind: k, Index: next[f.Gress][k]}
			next[f.Gress][k]++
			ret.slices[f.Id] = append(ret.slices[f.Id], Alloc{Container: ct, FieldLo: c[0], FieldHi: c[1]})
		}
	}
	ret.used = next
	return ret
}

func (self *Allocator) newResult(trivial bool) *Result {
	return &Result{
		prog:    self.prog,
		trivial: trivial,
		slices:  make(map[int][]Alloc),
		live:    make(map[int][2]int),
		inits:   make(map[int][]*ir.Field),
	}
}

type _Slot struct {
	c    Container
	mask uint32
	occ  []*ir.Field
}

func (self *_Slot) fit(width int) int {
	size := self.c.Size()
	want := uint32(1)<<uint(width) - 1
	for lo := 0; lo+width <= size; lo++ {
		if self.mask&(want<<uint(lo)) == 0 {
			return lo
		}
	}
	return -1
}

type _Packer struct {
	a      *Allocator
	c      Constraints
	res    *Result
	slots  map[ir.Gress][]*_Slot
	next   [ir.NumGress][3]int
	stages map[int]utils.Bitset
	over   map[int][]*ir.Field
	dup    map[int]bool
}

// Allocate packs every field under the given constraints.
func (self *Allocator) Allocate(c Constraints) (*Result, error) {
	p := &_Packer{
		a:      self,
		c:      c,
		res:    self.newResult(false),
		slots:  make(map[ir.Gress][]*_Slot),
		stages: make(map[int]utils.Bitset),
		over:   make(map[int][]*ir.Field),
		dup:    make(map[int]bool),
	}
	p.liveness()

	/* place every field, biggest first */
	for _, f := range self.sortedFields() {
		if p.overlay(f) {
			continue
		}
		for _, ch := range chunks(f) {
			if err := p.place(f, ch[0], ch[1]); err != nil {
				return nil, err
			}
		}
	}

	klog.Debugf("phv: allocated %d fields, isolate=%d, stage constraints=%d", len(self.prog.Fields()), len(c.Isolate), len(c.TableStages))
	p.res.used = p.next
	return p.res, nil
}

// liveness derives the writer stage sets and live ranges from the table
// stage constraints.
func (self *_Packer) liveness() {
	if len(self.c.TableStages) == 0 {
		return
	}
	for _, f := range self.a.prog.Fields() {
		lo, hi := -1, -1
		ws := utils.NewBitset(64)

		/* live from the first to the last stage touching the field */
		mark := func(t *ir.Table, write bool) {
			for _, s := range self.c.TableStages[t.Name] {
				if lo < 0 || s < lo {
					lo = s
				}
				if s > hi {
					hi = s
				}
				if write && s < 64 {
					ws.Set(s)
				}
			}
		}
		for _, t := range self.a.writers[f.Id] {
			mark(t, true)
		}
		for _, t := range self.a.readers[f.Id] {
			mark(t, false)
		}

		/* only fields touched by placed tables get a range */
		if lo >= 0 {
			self.res.live[f.Id] = [2]int{lo, hi}
			self.stages[f.Id] = ws
		}
	}
}

// shareable reports whether f may be packed next to the occupants.
func (self *_Packer) shareable(f *ir.Field, occ []*ir.Field) bool {
	if len(occ) == 0 {
		return true
	}
	if self.c.Isolate[f.Name] {
		return false
	}
	for _, o := range occ {
		if self.c.Isolate[o.Name] {
			return false
		}
		if ws, ok := self.stages[f.Id]; ok {
			if wo, ok := self.stages[o.Id]; ok && ws.Intersects(wo) {
				return false
			}
		}
	}
	return true
}

func (self *_Packer) place(f *ir.Field, lo int, hi int) error {
	width := hi - lo + 1
	kind := kindFor(width)

	/* pack into an existing container with room */
	for _, s := range self.slots[f.Gress] {
		if s.c.Kind < kind || !self.shareable(f, s.occ) {
			continue
		}
		if at := s.fit(width); at >= 0 {
			self.commit(s, f, lo, hi, at)
			return nil
		}
	}

	/* open a new container, widening when a class is exhausted */
	for k := kind; k <= W; k++ {
		if self.next[f.Gress][k] < self.a.limit(k) {
			s := &_Slot{c: Container{Gress: f.Gress, Kind: k, Index: self.next[f.Gress][k]}}
			self.next[f.Gress][k]++
			self.slots[f.Gress] = append(self.slots[f.Gress], s)
			self.commit(s, f, lo, hi, 0)
			return nil
		}
	}
	return utils.EAllocation(f.Gress.String(), f.Name, fmt.Sprintf("no %s container left for %d bits", kind, width))
}

func (self *_Packer) commit(s *_Slot, f *ir.Field, lo int, hi int, at int) {
	width := hi - lo + 1
	s.mask |= (uint32(1)<<uint(width) - 1) << uint(at)
	s.occ = append(s.occ, f)
	self.res.slices[f.Id] = append(self.res.slices[f.Id], Alloc{
		Container: s.c,
		FieldLo:   lo,
		FieldHi:   hi,
		ContLo:    at,
	})
}

// overlay places a metadata field on top of an exclusive metadata field that
// is already allocated. The overlaid field is zeroed by an injected write in
// its first reader.
func (self *_Packer) overlay(f *ir.Field) bool {
	if self.c.NoMetadataInit || !f.Metadata || self.c.Isolate[f.Name] {
		return false
	}
	for _, g := range self.a.prog.Fields() {
		if g == f || !g.Metadata || g.Gress != f.Gress || g.Size < f.Size || self.c.Isolate[g.Name] {
			continue
		}
		if self.dup[g.Id] || len(self.res.slices[g.Id]) == 0 || !self.a.prog.FieldsMutex(f, g) {
			continue
		}

		/* every field already on g must be exclusive with f too */
		ok := true
		for _, o := range self.over[g.Id] {
			ok = ok && self.a.prog.FieldsMutex(f, o)
		}
		if !ok {
			continue
		}

		/* reuse the low bits of g */
		for _, a := range self.res.slices[g.Id] {
			if a.FieldLo >= f.Size {
				break
			}
			v := a
			if v.FieldHi >= f.Size {
				v.FieldHi = f.Size - 1
			}
			self.res.slices[f.Id] = append(self.res.slices[f.Id], v)
		}
		self.over[g.Id] = append(self.over[g.Id], f)
		self.dup[f.Id] = true

		/* the reader that runs first initializes the field */
		if rd := self.a.readers[f.Id]; len(rd) != 0 {
			t := rd[0]
			self.res.inits[t.Id] = append(self.res.inits[t.Id], f)
		}
		return true
	}
	return false
}
