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

package tableplace

import (
	"bytes"
	"errors"
	"testing"

	"github.com/p4lang/tableplace/internal/depgraph"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/utils"
	"github.com/p4lang/tableplace/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() *ir.Program {
	p := ir.NewProgram("chain")
	k := p.NewField("k", ir.Ingress, 8)
	f := p.NewField("f", ir.Ingress, 8)
	g := p.NewField("g", ir.Ingress, 8)
	h := p.NewField("h", ir.Ingress, 8)
	a := p.NewTable("A", ir.Ingress, ir.Match).WithKeys(ir.Whole(k)).WithActions(ir.NewAction("x", ir.Set(ir.Whole(f), ir.Param(8))))
	b := p.NewTable("B", ir.Ingress, ir.Match).WithKeys(ir.Whole(f)).WithActions(ir.NewAction("x", ir.Set(ir.Whole(g), ir.Const(1))))
	c := p.NewTable("C", ir.Ingress, ir.Match).WithActions(ir.NewAction("x", ir.Set(ir.Whole(h), ir.FieldOf(ir.Whole(g)))))
	p.AddPipe(ir.Ingress, a, b, c)
	return p
}

func TestCompile(t *testing.T) {
	p := chain()
	r, err := Compile(p, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Stages)
	assert.Equal(t, []string{"INITIAL", "SUCCESS"}, r.Path)
	assert.Len(t, r.Records, 3)
	assert.Equal(t, []int{1}, r.StagesOf(p.Table("B")))
	assert.Equal(t, 1, p.Table("B").Stage)
	assert.Equal(t, 3, r.Analysis().CriticalPathLength())
	assert.Equal(t, []Label{depgraph.IxbarRead}, r.Analysis().Dependency(p.Table("A"), p.Table("B")))

	assert.Contains(t, r.DumpGraph(), "A -> B [IXBAR_READ] (f)")
	assert.Contains(t, r.String(), "placement: 3 stages")
	dot, err := r.MarshalDOT()
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph chain")
	buf := bytes.NewBuffer(nil)
	r.DrawSVG(buf)
	assert.Contains(t, buf.String(), "stage 2")
}

func TestCompile_Invalid(t *testing.T) {
	p := chain()
	p.Table("A").On(ir.BranchTrue, p.Table("B"))
	_, err := Compile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch $true on non-gateway table A")
}

func TestCompile_Failure(t *testing.T) {
	_, err := Compile(chain(), WithStages(2), WithAltFlow(true))
	require.Error(t, err)
	var fe *FailureError
	require.True(t, errors.As(err, &fe))
	assert.NotEmpty(t, fe.Diagnostics)

	var pe *PlacementError
	require.True(t, errors.As(fe.Diagnostics[0], &pe))
	assert.Equal(t, ReasonNoStages, pe.Reason)
}

func TestAnalyze(t *testing.T) {
	p := chain()
	a, err := Analyze(p)
	require.NoError(t, err)
	assert.Equal(t, 2, a.MinStage(p.Table("C")))
	assert.True(t, a.HappensPhysBefore(p.Table("A"), p.Table("C")))

	_, err = Analyze(p, WithStages(2))
	require.NoError(t, err)
}

func TestGuard(t *testing.T) {
	run := func(v interface{}) (err error) {
		defer guard(&err)
		panic(v)
	}
	err := run(utils.EInvariant("deps", "broken"))
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "deps", ie.Pass)
	assert.PanicsWithValue(t, "other", func() { _ = run("other") })
}

func TestOptions(t *testing.T) {
	o := opts.GetDefaultOptions()
	for _, fn := range []Option{
		WithStages(8),
		WithContainers(Containers{B: 1, H: 2, W: 3}),
		WithLongBranch(true),
		WithSplitTables(false),
		WithMaxLocalBacktracks(0),
		WithMaxFixups(1),
		WithCriticalSlack(5),
		WithWorkers(3),
		WithStageLimit(20),
		WithPriorityWeights(1, 2, 3),
		WithAltFlow(true),
	} {
		fn(&o)
	}
	assert.Equal(t, 8, o.Device.Stages)
	assert.Equal(t, opts.Containers{B: 1, H: 2, W: 3}, o.Device.Phv)
	assert.True(t, o.Device.LongBranch)
	assert.False(t, o.Device.SplitTables)
	assert.Equal(t, 0, o.Tuning.MaxLocalBacktracks)
	assert.Equal(t, 1, o.Tuning.MaxFixups)
	assert.Equal(t, 5, o.Tuning.CriticalSlack)
	assert.Equal(t, 3, o.Tuning.Workers)
	assert.Equal(t, 20, o.Limit())
	assert.Equal(t, 2, o.Tuning.DownwardWeight)
	assert.True(t, o.Tuning.AltFlow)

	c := opts.DefaultDevice().Stage
	WithStageCapacity(c)(&o)
	assert.Equal(t, c, o.Device.Stage)

	assert.Panics(t, func() { WithStages(0) })
	assert.Panics(t, func() { WithWorkers(0) })
	assert.Panics(t, func() { WithMaxFixups(-1) })
	assert.Panics(t, func() { WithPriorityWeights(0, -1, 0) })
	assert.Panics(t, func() { WithStageCapacity(StageCapacity{}) })
	assert.Panics(t, func() { WithContainers(Containers{B: -1}) })
}

func TestSetDefaultStages(t *testing.T) {
	old := SetDefaultStages(20)
	defer SetDefaultStages(old)
	assert.Equal(t, 20, opts.GetDefaultOptions().Device.Stages)
	assert.Panics(t, func() { SetDefaultStages(0) })
}
