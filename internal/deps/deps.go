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

package deps

import (
    `sync/atomic`

    `github.com/cloudwego/kitex/pkg/klog`
    `github.com/p4lang/tableplace/internal/depgraph`
    `github.com/p4lang/tableplace/internal/flow`
    `github.com/p4lang/tableplace/internal/phv`
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

// Config carries the round flags and device parameters the analysis needs.
type Config struct {
    Stages                   int
    LongBranch               bool
    IgnoreContainerConflicts bool
}

// Analysis is the dependency graph of one round together with everything
// derived from it. It is rebuilt from scratch for every round.
type Analysis struct {
    Prog    *ir.Program
    Flow    *flow.Flow
    Phv     phv.Allocation
    Graph   *depgraph.Graph
    Config  Config
    ins     map[int]*_Access
    writes  map[int][]_ContWrite
    summary map[int]*Summary
    logi    []utils.Bitset
    phys    []utils.Bitset
}

type Pass interface {
    Apply(*Analysis)
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

var Passes = [...]PassDescriptor {
    { Name: "Vertex Allocation"     , Pass: new(Vertices) },
    { Name: "Control Dependencies"  , Pass: new(ControlDeps) },
    { Name: "Data Dependencies"     , Pass: new(DataDeps) },
    { Name: "Container Conflicts"   , Pass: new(ContainerConflicts) },
    { Name: "Next Table Injection"  , Pass: new(NextTable) },
    { Name: "Finalization"          , Pass: new(Finalize) },
}

var (
    BuildCount uint64
)

// Build runs every pass over the program. The allocation may be nil, in
// which case no container-level analysis takes place.
func Build(prog *ir.Program, alloc phv.Allocation, cfg Config) *Analysis {
    ret := &Analysis {
        Prog    : prog,
        Flow    : flow.Build(prog),
        Phv     : alloc,
        Graph   : depgraph.New(),
        Config  : cfg,
        ins     : make(map[int]*_Access),
        writes  : make(map[int][]_ContWrite),
        summary : make(map[int]*Summary),
    }
    atomic.AddUint64(&BuildCount, 1)
    for _, p := range Passes {
        p.Pass.Apply(ret)
        klog.Debugf("deps: %s done, %d edges", p.Name, ret.Graph.NumEdges())
    }
    return ret
}

// Vertices allocates one vertex per table, applied tables first in control
// order.
type Vertices struct{}

func (Vertices) Apply(a *Analysis) {
    for _, t := range a.Flow.Order() {
        a.Graph.AddVertex(t)
    }
    for _, t := range a.Prog.Tables() {
        a.Graph.AddVertex(t)
    }
}

func (self *Analysis) vertex(t *ir.Table) int {
    if v := self.Graph.Vertex(t); v >= 0 {
        return v
    } else {
        panic(utils.EInvariant("deps", "table %s is not in the dependency graph", t.Name))
    }
}

func (self *Analysis) MinStage(t *ir.Table) int {
    return self.Graph.MinStage(t)
}

func (self *Analysis) MaxStage(t *ir.Table) int {
    return self.Graph.MaxStage(t)
}

// MinStageFor returns the minimum stage of t when only the selected edge
// classes are honored on top of data edges.
func (self *Analysis) MinStageFor(t *ir.Table, h depgraph.Honor) int {
    si := self.Graph.StageInfo(t)
    return si.MinStageFor(h)
}

func (self *Analysis) DepTail(t *ir.Table) int {
    return self.Graph.StageInfo(t).DepTail
}

func (self *Analysis) CriticalPathLength() int {
    return self.Graph.CriticalPathLength()
}

func (self *Analysis) checkFinalized() {
    if !self.Graph.Finalized || self.phys == nil {
        panic(utils.EInvariant("deps", "happens-before queried before finalization"))
    }
}

// HappensPhysBefore reports whether a must be placed in a strictly earlier
// stage than b.
func (self *Analysis) HappensPhysBefore(a *ir.Table, b *ir.Table) bool {
    self.checkFinalized()
    return self.phys[self.vertex(a)].Test(self.vertex(b))
}

func (self *Analysis) HappensPhysAfter(a *ir.Table, b *ir.Table) bool {
    return self.HappensPhysBefore(b, a)
}

// HappensLogiBefore reports whether a must be placed no later than b.
func (self *Analysis) HappensLogiBefore(a *ir.Table, b *ir.Table) bool {
    self.checkFinalized()
    return self.logi[self.vertex(a)].Test(self.vertex(b))
}

// ContainerConflict reports whether a and b must not share a stage because
// their writes would be merged into one container.
func (self *Analysis) ContainerConflict(a *ir.Table, b *ir.Table) bool {
    return self.Graph.Find(a, b, depgraph.ContConflict) != depgraph.NoEdge ||
           self.Graph.Find(b, a, depgraph.ContConflict) != depgraph.NoEdge
}

// Dependency returns the labels of every edge from a to b.
func (self *Analysis) Dependency(a *ir.Table, b *ir.Table) []depgraph.Label {
    var ret []depgraph.Label
    for _, e := range self.Graph.EdgesBetween(a, b) {
        ret = append(ret, self.Graph.Label(e))
    }
    return ret
}

// Summary returns the containers t writes and reads, nil without an
// allocation.
func (self *Analysis) Summary(t *ir.Table) *Summary {
    return self.summary[t.Id]
}

func (self *Analysis) Dump() string {
    return self.Graph.Dump()
}
