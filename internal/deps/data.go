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
    `github.com/p4lang/tableplace/internal/depgraph`
    `github.com/p4lang/tableplace/internal/flow`
    `github.com/p4lang/tableplace/internal/phv`
    `github.com/p4lang/tableplace/ir`
)

// Summary is the container-level footprint of one table.
type Summary struct {
    Writes     []phv.Container
    IxbarReads []phv.Container
    AluReads   []phv.Container
}

func appendUnique(cc []phv.Container, vv ...phv.Container) []phv.Container {
    for _, v := range vv {
        found := false
        for _, c := range cc {
            if c == v {
                found = true
                break
            }
        }
        if !found {
            cc = append(cc, v)
        }
    }
    return cc
}

type _Problem struct {
    touches map[int][]_Touch
    writes  map[int][]_ContWrite
}

func (self *_Problem) Entry() flow.Value {
    return newAccess()
}

func (self *_Problem) Transfer(t *ir.Table, in flow.Value) flow.Value {
    v := in.(*_Access)
    for _, x := range self.touches[t.Id] {
        v.fields[x] = true
    }
    for _, x := range self.writes[t.Id] {
        v.conts[x] = true
    }
    return v
}

// DataDeps solves the access lattice over each gress and derives the data,
// anti and reduction-or edges of every table from what may have happened
// before it.
type DataDeps struct{}

func (DataDeps) Apply(a *Analysis) {
    p := &_Problem {
        touches : make(map[int][]_Touch),
        writes  : a.writes,
    }

    /* collect per-table accesses */
    for _, t := range a.Prog.Tables() {
        var inits []*ir.Field
        if a.Phv != nil {
            inits = a.Phv.MetadataInits(t)
        }
        p.touches[t.Id] = touchesOf(t, inits)
        if a.Phv != nil {
            p.writes[t.Id] = a.containerWrites(t, p.touches[t.Id])
            a.summary[t.Id] = a.summarize(p.touches[t.Id])
        }
    }

    /* solve every gress independently, each from a blank history */
    for g := ir.Gress(0); g < ir.NumGress; g++ {
        cfg := a.Flow.CFG(g)
        if cfg == nil {
            continue
        }
        ins := cfg.Solve(p)

        /* the history of a shared table is the union over its occurrences */
        for n, in := range ins {
            if t := cfg.Table(n); t != nil && in != nil {
                if v, ok := a.ins[t.Id]; ok {
                    v.Merge(in)
                } else {
                    a.ins[t.Id] = in.Clone().(*_Access)
                }
            }
        }
    }

    /* derive edges in control order */
    for _, t := range a.Flow.Order() {
        if in, ok := a.ins[t.Id]; ok {
            a.dataEdges(t, p.touches[t.Id], in)
        }
    }
}

func (self *Analysis) dataEdges(t *ir.Table, own []_Touch, in *_Access) {
    prior := in.touches()
    tables := self.Prog.Tables()
    fields := self.Prog.Fields()
    for _, x := range own {
        for _, p := range prior {
            if p.Table == t.Id || !x.overlaps(p) {
                continue
            }
            if l, ok := dataLabel(tables[p.Table], t, p.Use, x.Use); ok {
                e, _ := self.Graph.AddEdge(tables[p.Table], t, l)
                self.Graph.Annotate(e, fields[x.Field])
            }
        }
    }
}

// dataLabel classifies an earlier access of u followed by an access of t to
// the same bits.
func dataLabel(u *ir.Table, t *ir.Table, prev _Use, next _Use) (depgraph.Label, bool) {
    switch {
        case prev.writes() && next == u_ixbar:
            return depgraph.IxbarRead, true
        case prev == u_roWrite && next == u_roRead:
            return depgraph.ReductionOrRead, true
        case prev.writes() && next.reads():
            return depgraph.ActionRead, true
        case prev == u_roWrite && next == u_roWrite:
            return depgraph.ReductionOrOutput, true
        case prev.writes() && next.writes():
            return depgraph.Output, true
        case prev == u_roRead && next == u_roWrite:
            return 0, false
        case prev.reads() && next.writes():
            break
        default:
            return 0, false
    }

    /* always-run tables visited against their own order are no dependency */
    if u.IsAlwaysRun() && t.IsAlwaysRun() && u.Order > t.Order {
        return 0, false
    }
    if prev == u_ixbar {
        return depgraph.AntiTableRead, true
    } else {
        return depgraph.AntiActionRead, true
    }
}

// containerWrites maps the writes of a table onto container bits.
func (self *Analysis) containerWrites(t *ir.Table, own []_Touch) []_ContWrite {
    var ret []_ContWrite
    fields := self.Prog.Fields()
    for _, x := range own {
        if !x.Use.writes() {
            continue
        }
        s := ir.Slice { Field: fields[x.Field], Lo: x.Lo, Hi: x.Hi }
        for _, v := range self.Phv.Slices(s.Field) {
            if lo, hi, ok := v.Covers(s); ok {
                ret = append(ret, _ContWrite {
                    Table : t.Id,
                    Field : x.Field,
                    Cont  : v.Container,
                    Lo    : lo,
                    Hi    : hi,
                })
            }
        }
    }
    return ret
}

func (self *Analysis) summarize(own []_Touch) *Summary {
    ret := new(Summary)
    fields := self.Prog.Fields()
    for _, x := range own {
        cc := phv.Placed(self.Phv, ir.Slice { Field: fields[x.Field], Lo: x.Lo, Hi: x.Hi })
        switch {
            case x.Use.writes()  : ret.Writes = appendUnique(ret.Writes, cc...)
            case x.Use == u_ixbar : ret.IxbarReads = appendUnique(ret.IxbarReads, cc...)
            default               : ret.AluReads = appendUnique(ret.AluReads, cc...)
        }
    }
    return ret
}

// ContainerConflicts marks pairs of tables that may both run for one packet
// and write different data into the same container. Such tables cannot share
// a stage, but either may come first.
type ContainerConflicts struct{}

func (ContainerConflicts) Apply(a *Analysis) {
    if a.Phv == nil || a.Config.IgnoreContainerConflicts {
        return
    }
    tables := a.Prog.Tables()
    fields := a.Prog.Fields()

    /* compare against every container write that may precede */
    for _, t := range a.Flow.Order() {
        in, ok := a.ins[t.Id]
        if !ok {
            continue
        }
        prior := in.contWrites()
        for _, x := range a.writes[t.Id] {
            for _, w := range prior {
                if w.Table == t.Id || w.Cont != x.Cont {
                    continue
                }

                /* the same bits of the same field are an output dependency */
                if w.Field == x.Field && w.overlaps(x) {
                    continue
                }
                u := tables[w.Table]
                if a.conflictSuppressed(u, t, fields[w.Field], fields[x.Field]) {
                    continue
                }
                e, _ := a.Graph.AddEdge(u, t, depgraph.ContConflict)
                a.Graph.Annotate(e, fields[x.Field])
            }
        }
    }
}

func (self *Analysis) conflictSuppressed(u *ir.Table, t *ir.Table, fu *ir.Field, ft *ir.Field) bool {
    if self.Flow.Mutex(u, t) {
        return true
    }
    if fu != ft && self.Phv.FieldsMutex(fu, ft) {
        return true
    }

    /* a data edge already keeps them in different stages */
    for _, e := range self.Graph.EdgesBetween(u, t) {
        if self.Graph.Label(e).Class() == depgraph.C_data {
            return true
        }
    }
    return false
}
