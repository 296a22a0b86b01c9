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
    `strings`

    `github.com/davecgh/go-spew/spew`
    `github.com/p4lang/tableplace/internal/depgraph`
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

var _Sweeps = [...]depgraph.Honor {
    depgraph.H_none,
    depgraph.H_control,
    depgraph.H_anti,
    depgraph.H_all,
}

// Finalize computes the stage info of every table and the happens-before
// relations, then marks the graph finalized.
type Finalize struct{}

func (Finalize) Apply(a *Analysis) {
    if a.Graph.HasCycle() {
        panic(a.invariant("cycle in dependency graph: %s", spew.Sdump(a.Graph.Cycles())))
    }

    /* one topological sweep per honored edge set */
    var order []int
    for _, h := range _Sweeps {
        gens := a.generations(h)
        order = order[:0]
        for i, gen := range gens {
            for _, v := range gen {
                if h == depgraph.H_all {
                    a.Graph.Info(v).Generation = i
                }
                order = append(order, v)
            }
        }
        a.sweep(h, order)
    }

    /* latest stage that leaves room for the dependency tail */
    for v := 0; v < a.Graph.NumVertices(); v++ {
        si := a.Graph.Info(v)
        si.MaxStage = a.Config.Stages - 1 - si.DepTail
    }

    /* the last sweep honored everything */
    a.closure(order)
    a.checkGress()
    a.Graph.Finalized = true
}

func (self *Analysis) invariant(format string, args ...interface{}) *utils.InvariantError {
    ret := utils.EInvariant("deps", format, args...)
    ret.Dump = self.Graph.Dump()
    return ret
}

// Weight is the stage distance an edge imposes: data edges and control edges
// out of a separate gateway push the destination to a later stage, the other
// ordering edges only forbid it from coming earlier.
func (self *Analysis) Weight(e depgraph.EdgeId) int {
    src, _, l := self.Graph.Edge(e)
    if l.Class() == depgraph.C_data {
        return 1
    } else if l.Class() == depgraph.C_control && l != depgraph.ControlExit && src.SeparateGateway {
        return 1
    } else {
        return 0
    }
}

// generations splits the vertices into topological generations under the
// honored edge set.
func (self *Analysis) generations(h depgraph.Honor) [][]int {
    g := self.Graph
    nv := g.NumVertices()
    deg := make([]int, nv)

    /* in-degree over honored edges */
    for v := 0; v < nv; v++ {
        for _, e := range g.In(v) {
            if h.Honors(g.Label(e)) {
                deg[v]++
            }
        }
    }

    /* peel zero in-degree vertices generation by generation */
    var ret [][]int
    var cur []int
    for v := 0; v < nv; v++ {
        if deg[v] == 0 {
            cur = append(cur, v)
        }
    }

    /* collect the generations */
    for done := 0; done < nv; {
        if len(cur) == 0 {
            panic(self.invariant("empty generation with %d of %d tables left under %s", nv - done, nv, h))
        }
        var next []int
        for _, v := range cur {
            for _, e := range g.Out(v) {
                if h.Honors(g.Label(e)) {
                    d := g.Dst(e)
                    if deg[d]--; deg[d] == 0 {
                        next = append(next, d)
                    }
                }
            }
        }
        ret = append(ret, cur)
        done += len(cur)
        cur = next
    }
    return ret
}

// sweep computes the minimum stages in topological order and the dependency
// tails in reverse order.
func (self *Analysis) sweep(h depgraph.Honor, order []int) {
    g := self.Graph
    ms := make([]int, g.NumVertices())
    tail := make([]int, g.NumVertices())

    /* forward: as early as every honored predecessor allows */
    for _, v := range order {
        for _, e := range g.In(v) {
            if h.Honors(g.Label(e)) {
                if m := ms[g.Src(e)] + self.Weight(e); m > ms[v] {
                    ms[v] = m
                }
            }
        }
    }

    /* backward: stages still needed after this one */
    for i := len(order) - 1; i >= 0; i-- {
        v := order[i]
        for _, e := range g.Out(v) {
            if h.Honors(g.Label(e)) {
                if m := tail[g.Dst(e)] + self.Weight(e); m > tail[v] {
                    tail[v] = m
                }
            }
        }
    }

    /* store the results */
    for v := 0; v < g.NumVertices(); v++ {
        si := g.Info(v)
        switch h {
            case depgraph.H_none    : si.MinStageData, si.DepTailData = ms[v], tail[v]
            case depgraph.H_control : si.MinStageControl, si.DepTailControl = ms[v], tail[v]
            case depgraph.H_anti    : si.MinStageAnti, si.DepTailAnti = ms[v], tail[v]
            default                 : si.MinStage, si.DepTail = ms[v], tail[v]
        }
    }
}

// closure derives the logical and physical happens-before sets. A table is
// logically before everything it reaches through ordering edges, and
// physically before everything it reaches through a path with at least one
// edge of weight one.
func (self *Analysis) closure(order []int) {
    g := self.Graph
    nv := g.NumVertices()
    self.logi = make([]utils.Bitset, nv)
    self.phys = make([]utils.Bitset, nv)
    for v := 0; v < nv; v++ {
        self.logi[v] = utils.NewBitset(nv)
        self.phys[v] = utils.NewBitset(nv)
    }

    /* successors are complete before their predecessors */
    for i := len(order) - 1; i >= 0; i-- {
        v := order[i]
        for _, e := range g.Out(v) {
            if !g.Label(e).IsOrdering() {
                continue
            }
            d := g.Dst(e)
            self.logi[v].Set(d)
            self.logi[v].Union(self.logi[d])
            if self.Weight(e) != 0 {
                self.phys[v].Set(d)
                self.phys[v].Union(self.logi[d])
            } else {
                self.phys[v].Union(self.phys[d])
            }
        }
    }
}

// checkGress rejects any edge from an egress table to an ingress table.
func (self *Analysis) checkGress() {
    var bad []string
    for i := 0; i < self.Graph.NumEdges(); i++ {
        src, dst, _ := self.Graph.Edge(depgraph.EdgeId(i))
        if src.Gress == ir.Egress && dst.Gress == ir.Ingress {
            bad = append(bad, self.Graph.EdgeString(depgraph.EdgeId(i)))
        }
    }
    if len(bad) != 0 {
        panic(self.invariant("ingress depends on egress: %s", strings.Join(bad, "; ")))
    }
}
