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
    `testing`

    `github.com/p4lang/tableplace/internal/fuzz`
    `github.com/p4lang/tableplace/ir`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

// diamond builds A; G(true -> B, false -> C); D, with E nested under B's hit.
func diamond() (*ir.Program, map[string]*ir.Table) {
    p := ir.NewProgram("diamond")
    c := p.NewField("c", ir.Ingress, 8)
    ta := p.NewTable("A", ir.Ingress, ir.Match)
    tb := p.NewTable("B", ir.Ingress, ir.Match)
    tc := p.NewTable("C", ir.Ingress, ir.Match)
    td := p.NewTable("D", ir.Ingress, ir.Match)
    te := p.NewTable("E", ir.Ingress, ir.Match)
    gw := p.NewTable("G", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(c))
    gw.On(ir.BranchTrue, tb).On(ir.BranchFalse, tc)
    tb.On(ir.BranchHit, te)
    p.AddPipe(ir.Ingress, ta, gw, td)
    return p, map[string]*ir.Table { "A": ta, "B": tb, "C": tc, "D": td, "E": te, "G": gw }
}

func TestCFG_Shape(t *testing.T) {
    p, tt := diamond()
    f := Build(p)
    g := f.CFG(ir.Ingress)
    require.NotNil(t, g)
    require.Nil(t, f.CFG(ir.Egress))
    assert.Equal(t, 8, g.NumNodes())

    /* B falls through to D on a miss */
    keys := map[string]string{}
    for _, s := range g.Succs(g.Node(tt["B"])) {
        keys[s.Key] = g.Table(s.To).Name
    }
    assert.Equal(t, map[string]string { ir.BranchHit: "E", ir.BranchMiss: "D" }, keys)

    /* D ends the pipe */
    require.Len(t, g.Succs(g.Node(tt["D"])), 1)
    assert.Equal(t, Sink, g.Succs(g.Node(tt["D"]))[0].To)
    assert.Contains(t, g.String(), "G -> B [$true]")
}

func TestCFG_Dominators(t *testing.T) {
    p, tt := diamond()
    f := Build(p)
    g := f.CFG(ir.Ingress)
    assert.True(t, f.AlwaysRuns(tt["A"]))
    assert.True(t, f.AlwaysRuns(tt["G"]))
    assert.True(t, f.AlwaysRuns(tt["D"]))
    assert.False(t, f.AlwaysRuns(tt["B"]))
    assert.False(t, f.AlwaysRuns(tt["E"]))
    assert.Equal(t, g.Node(tt["G"]), g.IDom(g.Node(tt["D"])))
    assert.Equal(t, -1, g.IDom(Source))
    assert.True(t, g.Dominates(g.Node(tt["B"]), g.Node(tt["E"])))
}

func TestCFG_DistanceAndMutex(t *testing.T) {
    p, tt := diamond()
    f := Build(p)
    assert.Equal(t, 2, f.Distance(tt["A"], tt["B"]))
    assert.Equal(t, 2, f.Distance(tt["G"], tt["D"]))
    assert.Equal(t, -1, f.Distance(tt["D"], tt["A"]))
    assert.True(t, f.Mutex(tt["B"], tt["C"]))
    assert.True(t, f.Mutex(tt["E"], tt["C"]))
    assert.False(t, f.Mutex(tt["B"], tt["D"]))
    assert.False(t, f.Mutex(tt["A"], tt["A"]))
    assert.True(t, f.Reaches(tt["A"], tt["E"]))
    assert.False(t, f.Reaches(tt["E"], tt["A"]))
}

// shared builds G(true -> X, R; false -> W, X): X is applied from both
// branches, once before R and once after W.
func shared() (*ir.Program, map[string]*ir.Table) {
    p := ir.NewProgram("shared")
    c := p.NewField("c", ir.Ingress, 8)
    x := p.NewTable("X", ir.Ingress, ir.Match)
    r := p.NewTable("R", ir.Ingress, ir.Match)
    w := p.NewTable("W", ir.Ingress, ir.Match)
    gw := p.NewTable("G", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(c))
    gw.On(ir.BranchTrue, x, r).On(ir.BranchFalse, w, x)
    p.AddPipe(ir.Ingress, gw)
    return p, map[string]*ir.Table { "G": gw, "X": x, "R": r, "W": w }
}

func TestCFG_SharedTable(t *testing.T) {
    p, tt := shared()
    f := Build(p)
    g := f.CFG(ir.Ingress)

    /* one node per occurrence, each with its own continuation */
    nn := g.Nodes(tt["X"])
    require.Len(t, nn, 2)
    assert.Equal(t, 7, g.NumNodes())
    next := map[string]bool{}
    for _, n := range nn {
        require.Len(t, g.Succs(n), 1)
        next[g.nodeName(g.Succs(n)[0].To)] = true
    }
    assert.Equal(t, map[string]bool { "R": true, "$sink": true }, next)

    /* no path joins the two branches */
    assert.True(t, f.Mutex(tt["W"], tt["R"]))
    assert.False(t, f.Reaches(tt["W"], tt["R"]))
    assert.True(t, f.Reaches(tt["W"], tt["X"]))
    assert.True(t, f.Reaches(tt["X"], tt["R"]))
    assert.False(t, f.Mutex(tt["W"], tt["X"]))
    assert.Equal(t, 1, f.Distance(tt["W"], tt["X"]))
    assert.Equal(t, -1, f.Distance(tt["W"], tt["R"]))

    /* X runs on both sides, so on every packet */
    assert.True(t, f.AlwaysRuns(tt["X"]))
    assert.False(t, f.AlwaysRuns(tt["R"]))
    assert.False(t, f.Mutex(tt["X"], tt["W"]))
    assert.Len(t, f.Order(), 4)
    assert.True(t, f.Applied(tt["X"]))

    /* the history of each occurrence only holds its own path */
    in := g.Solve(_ReachedProblem{})
    for _, n := range nn {
        h := in[n].(_Reached)
        assert.False(t, h[tt["W"].Id] && h[tt["R"].Id])
    }
    assert.False(t, in[g.Node(tt["R"])].(_Reached)[tt["W"].Id])
}

func TestCFG_Exit(t *testing.T) {
    p := ir.NewProgram("exit")
    ta := p.NewTable("A", ir.Ingress, ir.Match).WithActions(ir.ExitAction("drop"))
    tb := p.NewTable("B", ir.Ingress, ir.Match)
    p.AddPipe(ir.Ingress, ta, tb)
    f := Build(p)
    g := f.CFG(ir.Ingress)
    require.Len(t, g.Succs(g.Node(ta)), 1)
    assert.Equal(t, Sink, g.Succs(g.Node(ta))[0].To)
    assert.Equal(t, "drop", g.Succs(g.Node(ta))[0].Key)
    assert.False(t, f.Applied(tb))
    assert.Equal(t, []*ir.Table { ta }, f.Order())
}

func TestFlow_ControlDom(t *testing.T) {
    p, tt := diamond()
    f := Build(p)
    assert.Equal(t, []*ir.Table { tt["B"], tt["C"], tt["E"], tt["G"] }, f.ControlDomSet(tt["G"]))
    assert.Equal(t, []*ir.Table { tt["C"], tt["E"] }, f.NextTableLeaves(tt["G"]))
    assert.Equal(t, []*ir.Table { tt["A"] }, f.ControlDomSet(tt["A"]))
    assert.True(t, f.ControlDominates(tt["G"], tt["E"]))
    assert.False(t, f.ControlDominates(tt["G"], tt["D"]))
}

func TestFlow_InjectionPoints(t *testing.T) {
    p, tt := diamond()
    f := Build(p)
    assert.Equal(t, []InjectionPoint { { Before: tt["G"], After: tt["D"] } }, f.InjectionPoints(tt["E"], tt["D"]))
    assert.Equal(t, []InjectionPoint { { Before: tt["A"], After: tt["G"] } }, f.InjectionPoints(tt["A"], tt["E"]))
    assert.Empty(t, f.InjectionPoints(tt["B"], tt["C"]))
    assert.Empty(t, f.InjectionPoints(tt["B"], tt["E"]))
    assert.Empty(t, f.InjectionPoints(tt["D"], tt["A"]))
    require.Len(t, f.Pathways(tt["E"]), 1)
    assert.Len(t, f.Pathways(tt["E"])[0], 3)
}

func TestFlow_ControlDomProperties(t *testing.T) {
    for seed := int64(1); seed <= 40; seed++ {
        p := fuzz.NewGenerator(seed, fuzz.DefaultShape).Program()
        f := Build(p)
        for _, tt := range p.Tables() {
            require.True(t, f.ControlDominates(tt, tt))
            for _, key := range tt.BranchKeys() {
                for _, u := range tt.Next[key].Tables {
                    for _, v := range f.ControlDomSet(u) {
                        require.True(t, f.ControlDominates(tt, v), "seed %d: %s !> %s", seed, tt, v)
                    }
                }
            }
            for _, l := range f.NextTableLeaves(tt) {
                require.False(t, l.HasBranches())
            }
        }
    }
}

type _Reached map[int]bool

func (self _Reached) Clone() Value {
    ret := make(_Reached, len(self))
    for k := range self {
        ret[k] = true
    }
    return ret
}

func (self _Reached) Merge(other Value) {
    for k := range other.(_Reached) {
        self[k] = true
    }
}

func (self _Reached) Equal(other Value) bool {
    v := other.(_Reached)
    if len(v) != len(self) {
        return false
    }
    for k := range v {
        if !self[k] {
            return false
        }
    }
    return true
}

type _ReachedProblem struct{}

func (_ReachedProblem) Entry() Value {
    return make(_Reached)
}

func (_ReachedProblem) Transfer(t *ir.Table, in Value) Value {
    in.(_Reached)[t.Id] = true
    return in
}

func TestCFG_Solve(t *testing.T) {
    p, tt := diamond()
    g := Build(p).CFG(ir.Ingress)
    in := g.Solve(_ReachedProblem{})
    at := func(name string) _Reached {
        return in[g.Node(tt[name])].(_Reached)
    }
    assert.Equal(t, _Reached{}, at("A"))
    assert.Equal(t, _Reached { tt["A"].Id: true, tt["G"].Id: true }, at("B"))
    assert.Equal(t, _Reached { tt["A"].Id: true, tt["G"].Id: true, tt["B"].Id: true, tt["C"].Id: true, tt["E"].Id: true }, at("D"))
    assert.Len(t, in[Sink].(_Reached), 6)
}
