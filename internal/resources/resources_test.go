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
	"testing"

	"github.com/p4lang/tableplace/internal/deps"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/phv"
	"github.com/p4lang/tableplace/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTables struct {
	prog    *ir.Program
	exact   *ir.Table
	ternary *ir.Table
	gateway *ir.Table
	counted *ir.Table
}

func newTestTables() testTables {
	p := ir.NewProgram("resources")
	k := p.NewField("hdr.k", ir.Ingress, 32)
	m := p.NewMetadata("meta.m", ir.Ingress, 8)
	ret := testTables{prog: p}
	ret.exact = p.NewTable("exact", ir.Ingress, ir.Match).
		WithKeys(ir.Whole(k)).
		WithEntries(1024).
		WithActions(ir.NewAction("set", ir.Set(ir.Whole(m), ir.Param(16))))
	ret.ternary = p.NewTable("ternary", ir.Ingress, ir.Match).
		WithKeys(ir.Whole(k)).
		WithEntries(1024).
		WithMatch(ir.Ternary).
		WithActions(ir.NewAction("set", ir.Set(ir.Whole(m), ir.Param(16))))
	ret.gateway = p.NewTable("gateway", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(k))
	ret.counted = p.NewTable("counted", ir.Ingress, ir.Match).
		WithKeys(ir.Whole(k)).
		WithEntries(1024).
		WithAttached(&ir.Attached{Name: "cnt", Kind: ir.Counter})
	p.AddPipe(ir.Ingress, ret.exact, ret.ternary, ret.gateway, ret.counted)
	return ret
}

func TestUsage_Arithmetic(t *testing.T) {
	c := opts.DefaultDevice().Stage
	u := Usage{SRAM: 40, Ixbar: 16}
	v := u.Add(Usage{SRAM: 50, Gateways: 1})
	assert.Equal(t, 90, v.SRAM)
	assert.Equal(t, 1, v.Gateways)
	assert.Equal(t, u, v.Sub(Usage{SRAM: 50, Gateways: 1}))
	assert.True(t, u.Fits(c))
	assert.Equal(t, "sram", v.Exceeds(c))
	assert.Equal(t, 50, u.Cost(c))
	assert.Equal(t, 100, Usage{TCAM: 1}.Cost(opts.StageCapacity{}))
	assert.Equal(t, 40, u.Memory())
}

func TestDemand_Tables(t *testing.T) {
	tt := newTestTables()
	alloc := phv.NewAllocator(tt.prog, opts.DefaultDevice().Phv).Trivial()
	m := NewModel(alloc, nil, opts.DefaultDevice().Stage)

	u := m.Demand(tt.exact, 1024)
	assert.Equal(t, Usage{SRAM: 2, Ixbar: 4, ActionBus: 2, Imem: 1, LogicalIds: 1}, u)

	u = m.Demand(tt.ternary, 1024)
	assert.Equal(t, Usage{SRAM: 1, TCAM: 2, Ixbar: 4, ActionBus: 2, Imem: 1, LogicalIds: 1}, u)

	u = m.Demand(tt.gateway, 0)
	assert.Equal(t, Usage{Ixbar: 4, LogicalIds: 1, Gateways: 1}, u)

	u = m.Demand(tt.counted, 1024)
	assert.Equal(t, 2, u.SRAM)
	assert.Equal(t, 0, u.ActionBus)
}

func TestDemand_WithoutAllocation(t *testing.T) {
	tt := newTestTables()
	m := NewModel(nil, nil, opts.DefaultDevice().Stage)
	assert.Equal(t, 4, m.Demand(tt.gateway, 0).Ixbar)
}

func TestDemand_ImemCountsContainers(t *testing.T) {
	p := ir.NewProgram("imem")
	a := p.NewField("hdr.a", ir.Ingress, 4)
	b := p.NewField("hdr.b", ir.Ingress, 4)
	tab := p.NewTable("t", ir.Ingress, ir.Match).WithActions(
		ir.NewAction("x", ir.Set(ir.Whole(a), ir.Const(1)), ir.Set(ir.Whole(b), ir.Const(2))),
	)
	p.AddPipe(ir.Ingress, tab)
	alloc, err := phv.NewAllocator(p, opts.Containers{B: 1, H: 1, W: 1}).Allocate(phv.Constraints{})
	require.NoError(t, err)

	assert.Equal(t, 2, NewModel(alloc, nil, opts.DefaultDevice().Stage).Demand(tab, 512).Imem)
	a2 := deps.Build(p, alloc, deps.Config{Stages: 12})
	assert.Equal(t, 1, NewModel(alloc, a2, opts.DefaultDevice().Stage).Demand(tab, 512).Imem)
}

func TestTry_Shrink(t *testing.T) {
	p := ir.NewProgram("shrink")
	k := p.NewField("hdr.k", ir.Ingress, 32)
	big := p.NewTable("big", ir.Ingress, ir.Match).WithKeys(ir.Whole(k)).WithEntries(8192).Split()
	p.AddPipe(ir.Ingress, big)
	c := opts.DefaultDevice().Stage
	c.SRAM = 2
	m := NewModel(phv.NewAllocator(p, opts.DefaultDevice().Phv).Trivial(), nil, c)

	r := m.Try(Usage{}, Request{Table: big, Entries: 8192})
	assert.False(t, r.OK)
	assert.Equal(t, "sram", r.Reason)

	r = m.Try(Usage{}, Request{Table: big, Entries: 8192, Shrink: true})
	require.True(t, r.OK)
	assert.True(t, r.Partial())
	assert.Equal(t, 6553, r.Entries)
	assert.Equal(t, 8192, r.Requested)
	assert.Equal(t, 2, r.Usage.SRAM)

	r = m.Try(Usage{SRAM: 2}, Request{Table: big, Entries: 8192, Shrink: true})
	assert.False(t, r.OK)
	assert.True(t, m.FitsEmpty(big, 8192, true))
	assert.False(t, m.FitsEmpty(big, 8192, false))
}

func TestTrialAll(t *testing.T) {
	tt := newTestTables()
	m := NewModel(phv.NewAllocator(tt.prog, opts.DefaultDevice().Phv).Trivial(), nil, opts.DefaultDevice().Stage)
	var reqs []Request
	for _, v := range tt.prog.Tables() {
		reqs = append(reqs, Request{Table: v, Entries: v.Entries})
	}

	committed := Usage{SRAM: 79}
	seq := NewPool(1).TrialAll(m, committed, reqs)
	par := NewPool(4).TrialAll(m, committed, reqs)
	require.Equal(t, seq, par)
	assert.False(t, par[0].OK)
	assert.True(t, par[2].OK)
	assert.Equal(t, 1, NewPool(0).Workers())
	assert.Equal(t, 4, NewPool(4).Workers())
}

func TestTrialAll_Panics(t *testing.T) {
	tt := newTestTables()
	m := NewModel(nil, nil, opts.DefaultDevice().Stage)
	bad := &ir.Table{Name: "bad", Kind: ir.Kind(9)}
	reqs := []Request{{Table: tt.gateway}, {Table: bad}}
	require.PanicsWithValue(t, "resources: invalid table kind kind(9)", func() {
		NewPool(2).TrialAll(m, Usage{}, reqs)
	})
}
