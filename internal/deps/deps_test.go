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
    `testing`

    `github.com/p4lang/tableplace/internal/depgraph`
    `github.com/p4lang/tableplace/internal/flow`
    `github.com/p4lang/tableplace/internal/fuzz`
    `github.com/p4lang/tableplace/internal/opts`
    `github.com/p4lang/tableplace/internal/phv`
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

var testConfig = Config { Stages: 12 }

func hasLabel(a *Analysis, src *ir.Table, dst *ir.Table, l depgraph.Label) bool {
    return a.Graph.Find(src, dst, l) != depgraph.NoEdge
}

func recoverInvariant(fn func()) (ret *utils.InvariantError) {
    defer func() {
        if v := recover(); v != nil {
            ret = v.(*utils.InvariantError)
        }
    }()
    fn()
    return
}

// finalizeOnly runs the finalizer over a hand-built graph.
func finalizeOnly(prog *ir.Program, g *depgraph.Graph) *Analysis {
    a := &Analysis {
        Prog   : prog,
        Flow   : flow.Build(prog),
        Graph  : g,
        Config : testConfig,
    }
    Finalize{}.Apply(a)
    return a
}

func TestDeps_RoundTrip(t *testing.T) {
    p := ir.NewProgram("roundtrip")
    f := p.NewField("f", ir.Ingress, 8)
    ta := p.NewTable("A", ir.Ingress, ir.Match)
    tb := p.NewTable("B", ir.Ingress, ir.Match)
    tc := p.NewTable("C", ir.Ingress, ir.Match)
    p.AddPipe(ir.Ingress, ta, tb, tc)

    g := depgraph.New()
    e, ok := g.AddEdge(ta, tb, depgraph.IxbarRead)
    require.True(t, ok)
    g.Annotate(e, f)
    e, ok = g.AddEdge(tb, tc, depgraph.ActionRead)
    require.True(t, ok)
    g.Annotate(e, f)

    a := finalizeOnly(p, g)
    assert.Equal(t, 0, a.MinStage(ta))
    assert.Equal(t, 1, a.MinStage(tb))
    assert.Equal(t, 2, a.MinStage(tc))
    assert.Equal(t, 3, a.CriticalPathLength())
    assert.Equal(t, 9, a.MaxStage(ta))
    assert.Equal(t, 11, a.MaxStage(tc))
    assert.True(t, a.HappensPhysBefore(ta, tc))
    assert.True(t, a.HappensPhysAfter(tc, ta))
    assert.False(t, a.HappensPhysBefore(tc, ta))
}

func TestDeps_RoundTripFromProgram(t *testing.T) {
    p := ir.NewProgram("roundtrip")
    f := p.NewField("f", ir.Ingress, 8)
    h := p.NewField("h", ir.Ingress, 8)
    ta := p.NewTable("A", ir.Ingress, ir.Match).WithActions(ir.NewAction("w", ir.Set(ir.Whole(f), ir.Param(8))))
    tb := p.NewTable("B", ir.Ingress, ir.Match).WithKeys(ir.Whole(f)).WithActions(ir.NewAction("w", ir.Set(ir.Whole(h), ir.Const(1))))
    tc := p.NewTable("C", ir.Ingress, ir.Match).WithActions(ir.NewAction("r", ir.Add(ir.Whole(h), ir.FieldOf(ir.Whole(h)), ir.Const(1))))
    p.AddPipe(ir.Ingress, ta, tb, tc)

    a := Build(p, nil, testConfig)
    assert.Equal(t, []depgraph.Label{depgraph.IxbarRead}, a.Dependency(ta, tb))
    assert.Contains(t, a.Dependency(tb, tc), depgraph.ActionRead)
    assert.Contains(t, a.Dependency(tb, tc), depgraph.Output)
    assert.Empty(t, a.Dependency(ta, tc))
    assert.Equal(t, 0, a.MinStage(ta))
    assert.Equal(t, 1, a.MinStage(tb))
    assert.Equal(t, 2, a.MinStage(tc))
    assert.Equal(t, 3, a.CriticalPathLength())
    assert.Equal(t, f, a.Graph.Field(a.Graph.Find(ta, tb, depgraph.IxbarRead)))
}

func TestDeps_AntiDependency(t *testing.T) {
    p := ir.NewProgram("anti")
    f := p.NewField("f", ir.Ingress, 8)
    ta := p.NewTable("A", ir.Ingress, ir.Match).WithKeys(ir.Whole(f))
    tb := p.NewTable("B", ir.Ingress, ir.Match).WithActions(ir.NewAction("w", ir.Set(ir.Whole(f), ir.Const(0))))
    p.AddPipe(ir.Ingress, ta, tb)

    a := Build(p, nil, testConfig)
    assert.Equal(t, []depgraph.Label{depgraph.AntiTableRead}, a.Dependency(ta, tb))
    assert.Equal(t, 0, a.MinStage(tb))
    assert.True(t, a.HappensLogiBefore(ta, tb))
    assert.False(t, a.HappensPhysBefore(ta, tb))
}

func TestDeps_ReductionOr(t *testing.T) {
    p := ir.NewProgram("ro")
    f := p.NewField("f", ir.Ingress, 16)
    f.ReductionOr = "G"
    ror := func(name string) *ir.Table {
        return p.NewTable(name, ir.Ingress, ir.Match).WithReductionOr("G").WithActions(ir.NewAction("or", ir.Or(ir.Whole(f), ir.FieldOf(ir.Whole(f)), ir.Param(16))))
    }
    t1, t2 := ror("T1"), ror("T2")
    p.AddPipe(ir.Ingress, t1, t2)

    a := Build(p, nil, testConfig)
    for _, l := range a.Dependency(t1, t2) {
        assert.NotEqual(t, depgraph.Output, l)
        assert.NotEqual(t, depgraph.ActionRead, l)
    }
    assert.True(t, hasLabel(a, t1, t2, depgraph.ReductionOrOutput))
    assert.Equal(t, 0, a.MinStage(t2))
    assert.False(t, a.HappensLogiBefore(t1, t2))
}

func TestDeps_ReductionOrOutsideGroup(t *testing.T) {
    p := ir.NewProgram("ro")
    f := p.NewField("f", ir.Ingress, 16)
    f.ReductionOr = "G"
    t1 := p.NewTable("T1", ir.Ingress, ir.Match).WithReductionOr("G").WithActions(ir.NewAction("or", ir.Or(ir.Whole(f), ir.FieldOf(ir.Whole(f)), ir.Param(16))))
    t2 := p.NewTable("T2", ir.Ingress, ir.Match).WithActions(ir.NewAction("set", ir.Set(ir.Whole(f), ir.Param(16))))
    p.AddPipe(ir.Ingress, t1, t2)

    a := Build(p, nil, testConfig)
    assert.True(t, hasLabel(a, t1, t2, depgraph.Output))
    assert.Equal(t, 1, a.MinStage(t2))
}

func TestDeps_ReductionOrNonMember(t *testing.T) {
    build := func(group string) (*Analysis, *ir.Table, *ir.Table) {
        p := ir.NewProgram("ro")
        f := p.NewField("f", ir.Ingress, 16)
        f.ReductionOr = "G"
        or := ir.NewAction("or", ir.Or(ir.Whole(f), ir.FieldOf(ir.Whole(f)), ir.Param(16)))
        t1 := p.NewTable("T1", ir.Ingress, ir.Match).WithReductionOr("G").WithActions(or)
        t2 := p.NewTable("T2", ir.Ingress, ir.Match).WithReductionOr(group).WithActions(or)
        p.AddPipe(ir.Ingress, t1, t2)
        return Build(p, nil, testConfig), t1, t2
    }

    /* the same or-accumulate outside the group is an ordinary write */
    for _, group := range []string { "", "H" } {
        a, t1, t2 := build(group)
        assert.True(t, hasLabel(a, t1, t2, depgraph.Output), "group %q", group)
        assert.False(t, hasLabel(a, t1, t2, depgraph.ReductionOrOutput), "group %q", group)
        assert.Equal(t, 1, a.MinStage(t2), "group %q", group)
    }

    a, t1, t2 := build("G")
    assert.True(t, hasLabel(a, t1, t2, depgraph.ReductionOrOutput))
    assert.Equal(t, 0, a.MinStage(t2))
}

// exclusive builds G(true -> X, R; false -> W, X) where W writes f and R
// matches on f. X is applied from both branches.
func exclusive() (*ir.Program, map[string]*ir.Table) {
    p := ir.NewProgram("exclusive")
    c := p.NewField("c", ir.Ingress, 8)
    f := p.NewField("f", ir.Ingress, 8)
    k := p.NewField("k", ir.Ingress, 8)
    x := p.NewTable("X", ir.Ingress, ir.Match).WithKeys(ir.Whole(k))
    r := p.NewTable("R", ir.Ingress, ir.Match).WithKeys(ir.Whole(f))
    w := p.NewTable("W", ir.Ingress, ir.Match).WithActions(ir.NewAction("w", ir.Set(ir.Whole(f), ir.Const(1))))
    gw := p.NewTable("G", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(c))
    gw.On(ir.BranchTrue, x, r).On(ir.BranchFalse, w, x)
    p.AddPipe(ir.Ingress, gw)
    return p, map[string]*ir.Table { "G": gw, "X": x, "R": r, "W": w }
}

func TestDeps_SharedTableExclusivePaths(t *testing.T) {
    p, tt := exclusive()
    a := Build(p, nil, testConfig)
    assert.Empty(t, a.Dependency(tt["W"], tt["R"]))
    assert.Empty(t, a.Dependency(tt["R"], tt["W"]))
    assert.True(t, a.Flow.Mutex(tt["W"], tt["R"]))
    assert.Equal(t, 0, a.MinStage(tt["R"]))
    assert.False(t, a.Flow.Mutex(tt["X"], tt["R"]))
    assert.False(t, a.Flow.Mutex(tt["W"], tt["X"]))

    /* a writer ahead of the shared table on one path still orders it */
    tt["X"].WithActions(ir.NewAction("w", ir.Set(ir.Whole(p.Field("k")), ir.Const(0))))
    tt["W"].WithKeys(ir.Whole(p.Field("k")))
    a = Build(p, nil, testConfig)
    assert.True(t, hasLabel(a, tt["W"], tt["X"], depgraph.AntiTableRead))
    assert.Empty(t, a.Dependency(tt["X"], tt["W"]))
}

// packed builds two writers of fields packed into one byte container, either
// in exclusive branches of a gateway or one after the other.
func packed(exclusive bool) (*ir.Program, *ir.Table, *ir.Table) {
    p := ir.NewProgram("packed")
    x := p.NewField("x", ir.Ingress, 4)
    y := p.NewField("y", ir.Ingress, 4)
    c := p.NewField("c", ir.Ingress, 8)
    t1 := p.NewTable("T1", ir.Ingress, ir.Match).WithActions(ir.NewAction("w", ir.Set(ir.Whole(x), ir.Const(1))))
    t2 := p.NewTable("T2", ir.Ingress, ir.Match).WithActions(ir.NewAction("w", ir.Set(ir.Whole(y), ir.Const(2))))
    if exclusive {
        gw := p.NewTable("G", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(c))
        gw.On(ir.BranchTrue, t1).On(ir.BranchFalse, t2)
        p.AddPipe(ir.Ingress, gw)
    } else {
        p.AddPipe(ir.Ingress, t1, t2)
    }
    return p, t1, t2
}

func packedAllocation(t *testing.T, p *ir.Program) phv.Allocation {
    r, err := phv.NewAllocator(p, opts.Containers { B: 2 }).Allocate(phv.Constraints{})
    require.NoError(t, err)
    require.Equal(t, r.Slices(p.Field("x"))[0].Container, r.Slices(p.Field("y"))[0].Container)
    return r
}

func TestDeps_ContainerConflictMutex(t *testing.T) {
    p, t1, t2 := packed(true)
    a := Build(p, packedAllocation(t, p), testConfig)
    assert.False(t, a.ContainerConflict(t1, t2))
}

func TestDeps_ContainerConflict(t *testing.T) {
    p, t1, t2 := packed(false)
    alloc := packedAllocation(t, p)
    a := Build(p, alloc, testConfig)
    require.True(t, a.ContainerConflict(t1, t2))
    assert.True(t, a.ContainerConflict(t2, t1))

    /* stage bounds are unaffected by the conflict */
    b := Build(p, alloc, Config { Stages: 12, IgnoreContainerConflicts: true })
    assert.False(t, b.ContainerConflict(t1, t2))
    for _, tt := range []*ir.Table { t1, t2 } {
        assert.Equal(t, b.MinStage(tt), a.MinStage(tt))
        assert.Equal(t, b.MaxStage(tt), a.MaxStage(tt))
    }
    assert.False(t, a.HappensLogiBefore(t1, t2))

    /* the footprint lists the shared container once */
    require.NotNil(t, a.Summary(t1))
    assert.Len(t, a.Summary(t1).Writes, 1)
    assert.Equal(t, a.Summary(t1).Writes, a.Summary(t2).Writes)
}

func TestDeps_ControlEdges(t *testing.T) {
    p := ir.NewProgram("control")
    c := p.NewField("c", ir.Ingress, 8)
    t1 := p.NewTable("T1", ir.Ingress, ir.Match)
    t2 := p.NewTable("T2", ir.Ingress, ir.Match)
    gw := p.NewTable("G", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(c))
    gw.On(ir.BranchTrue, t1).On(ir.BranchFalse, t2)
    p.AddPipe(ir.Ingress, gw)

    a := Build(p, nil, testConfig)
    assert.Equal(t, []depgraph.Label{depgraph.ControlCondTrue}, a.Dependency(gw, t1))
    assert.Equal(t, []depgraph.Label{depgraph.ControlCondFalse}, a.Dependency(gw, t2))
    assert.Equal(t, 0, a.MinStage(t1))
    assert.Equal(t, 1, a.CriticalPathLength())

    /* a separate gateway needs a stage of its own */
    gw.SeparateGateway = true
    a = Build(p, nil, testConfig)
    assert.Equal(t, 1, a.MinStage(t1))
    assert.Equal(t, 0, a.MinStageFor(t1, depgraph.H_none))
    assert.True(t, a.HappensPhysBefore(gw, t2))
}

func TestDeps_ExitOrdering(t *testing.T) {
    p := ir.NewProgram("exit")
    t0 := p.NewTable("T0", ir.Ingress, ir.Match)
    t1 := p.NewTable("T1", ir.Ingress, ir.Match).WithActions(ir.ExitAction("drop"), ir.NewAction("pass"))
    t2 := p.NewTable("T2", ir.Ingress, ir.Match)
    p.AddPipe(ir.Ingress, t0, t1, t2)

    a := Build(p, nil, testConfig)
    assert.True(t, hasLabel(a, t1, t2, depgraph.ControlExit))
    assert.True(t, hasLabel(a, t0, t1, depgraph.AntiExit))
    assert.Equal(t, 0, a.MinStage(t2))
}

func TestDeps_AlwaysRunOrder(t *testing.T) {
    build := func(first int, second int) (*Analysis, *ir.Table, *ir.Table) {
        p := ir.NewProgram("ara")
        f := p.NewField("f", ir.Ingress, 8)
        h := p.NewField("h", ir.Ingress, 8)
        r1 := p.NewTable("R1", ir.Ingress, ir.AlwaysRun).WithOrder(first).WithActions(ir.NewAction("r", ir.Set(ir.Whole(h), ir.FieldOf(ir.Whole(f)))))
        r2 := p.NewTable("R2", ir.Ingress, ir.AlwaysRun).WithOrder(second).WithActions(ir.NewAction("w", ir.Set(ir.Whole(f), ir.Const(0))))
        p.AddPipe(ir.Ingress, r1, r2)
        return Build(p, nil, testConfig), r1, r2
    }
    a, r1, r2 := build(0, 1)
    assert.True(t, hasLabel(a, r1, r2, depgraph.AntiActionRead))
    a, r1, r2 = build(1, 0)
    assert.False(t, hasLabel(a, r1, r2, depgraph.AntiActionRead))
}

// nested builds X(gateway: true -> L1, false -> L2), Y(match: hit -> Z) where
// L1 writes f and Z accesses f.
func nested(zReads bool) (*ir.Program, map[string]*ir.Table) {
    p := ir.NewProgram("nested")
    c := p.NewField("c", ir.Ingress, 8)
    f := p.NewField("f", ir.Ingress, 8)
    k := p.NewField("k", ir.Ingress, 8)
    l1 := p.NewTable("L1", ir.Ingress, ir.Match)
    l2 := p.NewTable("L2", ir.Ingress, ir.Match)
    z := p.NewTable("Z", ir.Ingress, ir.Match)
    if zReads {
        l1.WithActions(ir.NewAction("w", ir.Set(ir.Whole(f), ir.Const(1))))
        z.WithKeys(ir.Whole(f))
    } else {
        l1.WithKeys(ir.Whole(f))
        z.WithActions(ir.NewAction("w", ir.Set(ir.Whole(f), ir.Const(1))))
    }
    x := p.NewTable("X", ir.Ingress, ir.Gateway).WithKeys(ir.Whole(c))
    x.On(ir.BranchTrue, l1).On(ir.BranchFalse, l2)
    y := p.NewTable("Y", ir.Ingress, ir.Match).WithKeys(ir.Whole(k))
    y.On(ir.BranchHit, z)
    p.AddPipe(ir.Ingress, x, y)
    return p, map[string]*ir.Table { "X": x, "Y": y, "Z": z, "L1": l1, "L2": l2 }
}

func TestDeps_NextTableData(t *testing.T) {
    p, tt := nested(true)
    a := Build(p, nil, testConfig)
    require.True(t, hasLabel(a, tt["L1"], tt["Z"], depgraph.IxbarRead))
    assert.True(t, hasLabel(a, tt["L2"], tt["Y"], depgraph.AntiNextTableData))
    assert.True(t, hasLabel(a, tt["L1"], tt["Y"], depgraph.AntiNextTableData))
    assert.True(t, a.HappensLogiBefore(tt["L2"], tt["Y"]))
    assert.Equal(t, 1, a.MinStage(tt["Z"]))
}

func TestDeps_NextTableControl(t *testing.T) {
    p, tt := nested(false)
    a := Build(p, nil, testConfig)
    require.True(t, hasLabel(a, tt["L1"], tt["Z"], depgraph.AntiTableRead))
    assert.True(t, hasLabel(a, tt["L2"], tt["Y"], depgraph.AntiNextTableControl))

    /* long branches make the control variant unnecessary */
    a = Build(p, nil, Config { Stages: 12, LongBranch: true })
    assert.False(t, hasLabel(a, tt["L2"], tt["Y"], depgraph.AntiNextTableControl))
}

func TestDeps_NextTableMetadata(t *testing.T) {
    p, tt := nested(true)
    p.Field("f").Metadata = true
    a := Build(p, nil, testConfig)
    assert.True(t, hasLabel(a, tt["L2"], tt["Y"], depgraph.AntiNextTableMetadata))
}

func TestDeps_MetadataInit(t *testing.T) {
    p := ir.NewProgram("init")
    m1 := p.NewMetadata("m1", ir.Ingress, 8)
    m2 := p.NewMetadata("m2", ir.Ingress, 8)
    h := p.NewField("h", ir.Ingress, 8)
    p.DeclareMutex(m1, m2)
    t1 := p.NewTable("T1", ir.Ingress, ir.Match).WithActions(ir.NewAction("w", ir.Set(ir.Whole(m1), ir.Const(1))))
    t2 := p.NewTable("T2", ir.Ingress, ir.Match).WithKeys(ir.Whole(m1))
    t3 := p.NewTable("T3", ir.Ingress, ir.Match).WithKeys(ir.Whole(m2))
    t4 := p.NewTable("T4", ir.Ingress, ir.Match).WithActions(ir.NewAction("r", ir.Set(ir.Whole(h), ir.FieldOf(ir.Whole(m2)))))
    p.AddPipe(ir.Ingress, t1, t2, t3, t4)

    alloc, err := phv.NewAllocator(p, opts.Containers { B: 4 }).Allocate(phv.Constraints{})
    require.NoError(t, err)
    require.Equal(t, []*ir.Field{m2}, alloc.MetadataInits(t3))

    /* without the allocation T3 only reads m2 */
    a := Build(p, nil, testConfig)
    assert.False(t, hasLabel(a, t3, t4, depgraph.ActionRead))

    /* the injected initialization makes T3 a writer of m2 */
    a = Build(p, alloc, testConfig)
    assert.True(t, hasLabel(a, t3, t4, depgraph.ActionRead))
    assert.Equal(t, 1, a.MinStage(t4))
    assert.Len(t, a.Summary(t3).Writes, 1)

    /* overlaid fields are exclusive, so sharing the container is no conflict */
    assert.False(t, a.ContainerConflict(t1, t3))
}

func TestDeps_IngressAfterEgress(t *testing.T) {
    p := ir.NewProgram("gress")
    te := p.NewTable("E", ir.Egress, ir.Match)
    ti := p.NewTable("I", ir.Ingress, ir.Match)
    p.AddPipe(ir.Ingress, ti)
    p.AddPipe(ir.Egress, te)
    g := depgraph.New()
    g.AddVertex(ti)
    g.AddEdge(te, ti, depgraph.IxbarRead)
    err := recoverInvariant(func() { finalizeOnly(p, g) })
    require.NotNil(t, err)
    assert.Equal(t, "deps", err.Pass)
    assert.Contains(t, err.Message, "E -> I")
    assert.NotEmpty(t, err.Dump)
}

func TestDeps_QueryBeforeFinalize(t *testing.T) {
    p := ir.NewProgram("early")
    ta := p.NewTable("A", ir.Ingress, ir.Match)
    p.AddPipe(ir.Ingress, ta)
    g := depgraph.New()
    g.AddVertex(ta)
    err := recoverInvariant(func() { g.MinStage(ta) })
    require.NotNil(t, err)
    assert.Equal(t, "depgraph", err.Pass)
}

func TestDeps_Properties(t *testing.T) {
    for seed := int64(1); seed <= 40; seed++ {
        p := fuzz.NewGenerator(seed, fuzz.DefaultShape).Program()
        require.NoError(t, p.Validate())
        alloc := phv.NewAllocator(p, opts.DefaultDevice().Phv).Trivial()
        a := Build(p, alloc, testConfig)
        tables := a.Graph.Tables()

        /* acyclic, confirmed by an independent cycle search */
        require.False(t, a.Graph.HasCycle(), "seed %d", seed)
        require.Empty(t, a.Graph.Cycles(), "seed %d", seed)

        /* min stage grows with the honored edge set */
        maxMin := 0
        for _, tt := range tables {
            data := a.MinStageFor(tt, depgraph.H_none)
            ctrl := a.MinStageFor(tt, depgraph.H_control)
            anti := a.MinStageFor(tt, depgraph.H_anti)
            all := a.MinStageFor(tt, depgraph.H_all)
            assert.GreaterOrEqual(t, data, 0)
            assert.GreaterOrEqual(t, ctrl, data)
            assert.GreaterOrEqual(t, anti, data)
            assert.GreaterOrEqual(t, all, ctrl)
            assert.GreaterOrEqual(t, all, anti)
            assert.Equal(t, a.MinStage(tt), all)
            if all > maxMin {
                maxMin = all
            }
        }
        assert.Equal(t, maxMin + 1, a.CriticalPathLength(), "seed %d", seed)

        /* physical happens-before is transitive */
        for _, x := range tables {
            for _, y := range tables {
                if !a.HappensPhysBefore(x, y) {
                    continue
                }
                for _, z := range tables {
                    if a.HappensPhysBefore(y, z) {
                        require.True(t, a.HappensPhysBefore(x, z), "seed %d: %s < %s < %s", seed, x, y, z)
                    }
                }
            }
        }

        /* every ordering edge is respected by the stage bounds */
        for i := 0; i < a.Graph.NumEdges(); i++ {
            e := depgraph.EdgeId(i)
            src, dst, l := a.Graph.Edge(e)
            if l.IsOrdering() {
                assert.GreaterOrEqual(t, a.MinStage(dst), a.MinStage(src) + a.Weight(e))
                assert.LessOrEqual(t, a.MaxStage(src) + a.Weight(e), a.MaxStage(dst))
            }
            assert.False(t, src.Gress == ir.Egress && dst.Gress == ir.Ingress)
        }
    }
}
