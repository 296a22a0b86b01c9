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

package flow

import (
    `github.com/p4lang/tableplace/ir`
)

// Flow holds the control-flow analyses of a whole program.
type Flow struct {
    prog  *ir.Program
    cfgs  [ir.NumGress]*CFG
    paths Pathways
    cds   map[int]map[int]*ir.Table
}

// Build extracts one control-flow graph per pipe of the program.
func Build(prog *ir.Program) *Flow {
    ret := &Flow {
        prog  : prog,
        paths : make(Pathways),
        cds   : make(map[int]map[int]*ir.Table),
    }
    for _, p := range prog.Pipes {
        ret.cfgs[p.Gress] = NewCFG(p)
        collectPathways(p, ret.paths)
    }
    return ret
}

func (self *Flow) Program() *ir.Program {
    return self.prog
}

// CFG returns the graph of gress g, nil if the program has no such pipe.
func (self *Flow) CFG(g ir.Gress) *CFG {
    return self.cfgs[g]
}

// Applied reports whether t is reachable from the root of its pipe.
func (self *Flow) Applied(t *ir.Table) bool {
    g := self.cfgs[t.Gress]
    if g == nil {
        return false
    }
    for _, n := range g.Nodes(t) {
        if g.Reaches(Source, n) {
            return true
        }
    }
    return false
}

// Order returns every applied table in control order: gress by gress, each in
// reverse post-order of its graph. A table with several occurrences is
// listed at its first one.
func (self *Flow) Order() []*ir.Table {
    var ret []*ir.Table
    seen := make(map[int]bool)
    for _, g := range self.cfgs {
        if g != nil {
            for _, n := range g.ReversePostOrder() {
                if t := g.Table(n); t != nil && !seen[t.Id] {
                    seen[t.Id] = true
                    ret = append(ret, t)
                }
            }
        }
    }
    return ret
}

// Mutex reports whether two tables of the same gress can never both execute
// for one packet. Tables of different threads are never exclusive.
func (self *Flow) Mutex(a *ir.Table, b *ir.Table) bool {
    if a.Gress != b.Gress || self.cfgs[a.Gress] == nil {
        return false
    } else {
        return self.cfgs[a.Gress].Mutex(a, b)
    }
}

// Reaches reports whether a control path leads from a to b.
func (self *Flow) Reaches(a *ir.Table, b *ir.Table) bool {
    g := self.cfgs[a.Gress]
    if a.Gress != b.Gress || g == nil {
        return false
    }
    return g.ReachesTable(a, b)
}

func (self *Flow) AlwaysRuns(t *ir.Table) bool {
    g := self.cfgs[t.Gress]
    return g != nil && g.AlwaysRuns(t)
}

// Distance is the shortest number of control edges from any occurrence of a
// to any occurrence of b, or -1.
func (self *Flow) Distance(a *ir.Table, b *ir.Table) int {
    g := self.cfgs[a.Gress]
    if a.Gress != b.Gress || g == nil {
        return -1
    }
    ret := -1
    for _, x := range g.Nodes(a) {
        for _, y := range g.Nodes(b) {
            if d := g.Distance(x, y); d >= 0 && (ret < 0 || d < ret) {
                ret = d
            }
        }
    }
    return ret
}

// ControlDomSet returns t and every table inescapably control dependent on it.
func (self *Flow) ControlDomSet(t *ir.Table) []*ir.Table {
    return sortedTables(controlDom(t, self.cds))
}

func (self *Flow) ControlDominates(t *ir.Table, u *ir.Table) bool {
    _, ok := controlDom(t, self.cds)[u.Id]
    return ok
}

// NextTableLeaves returns the members of the control-dominating set of t with
// no next-table entries.
func (self *Flow) NextTableLeaves(t *ir.Table) []*ir.Table {
    return sortedTables(leavesOf(controlDom(t, self.cds)))
}

func (self *Flow) Pathways(t *ir.Table) []Pathway {
    return self.paths[t.Id]
}

// InjectionPoints compares every pathway of a with every pathway of b and
// returns the distinct points where a's side is applied first.
func (self *Flow) InjectionPoints(a *ir.Table, b *ir.Table) []InjectionPoint {
    var ret []InjectionPoint
    seen := make(map[InjectionPoint]bool)
    for _, pa := range self.paths[a.Id] {
        for _, pb := range self.paths[b.Id] {
            if ip, ok := injectionPoint(pa, pb); ok && !seen[ip] {
                seen[ip] = true
                ret = append(ret, ip)
            }
        }
    }
    return ret
}
