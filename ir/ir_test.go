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

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice(t *testing.T) {
	p := NewProgram("slice")
	f := p.NewField("hdr.f", Ingress, 16)
	g := p.NewField("hdr.g", Ingress, 16)
	assert.Equal(t, "hdr.f", Whole(f).String())
	assert.Equal(t, "hdr.f[7:4]", f.Bits(4, 7).String())
	assert.Equal(t, 4, f.Bits(4, 7).Width())
	assert.True(t, f.Bits(4, 7).Overlaps(f.Bits(7, 9)))
	assert.False(t, f.Bits(4, 7).Overlaps(f.Bits(8, 9)))
	assert.False(t, f.Bits(4, 7).Overlaps(g.Bits(4, 7)))
	assert.False(t, f.Bits(8, 16).Valid())
	assert.Panics(t, func() { p.NewField("hdr.f", Ingress, 8) })
	assert.Panics(t, func() { p.NewField("hdr.z", Ingress, 0) })
}

func TestAction(t *testing.T) {
	p := NewProgram("action")
	f := p.NewField("f", Ingress, 8)
	g := p.NewField("g", Ingress, 8)
	a := NewAction("a", Set(Whole(f), Param(8)), Add(Whole(g), FieldOf(Whole(f)), Const(1)))
	assert.Equal(t, []Slice{Whole(f), Whole(g)}, a.Writes())
	assert.Equal(t, []Slice{Whole(f)}, a.Reads())
	assert.Equal(t, 8, a.ParamBits())
	assert.Equal(t, "add g, f, 0x1", a.Instrs[1].String())
	assert.True(t, ExitAction("drop").Exit)
}

func TestProgram_Validate(t *testing.T) {
	p := NewProgram("validate")
	f := p.NewField("f", Ingress, 8)
	e := p.NewField("e", Egress, 8)
	t1 := p.NewTable("t1", Ingress, Match).WithKeys(Whole(f))
	t2 := p.NewTable("t2", Ingress, Gateway).WithKeys(Whole(f))
	t1.On(BranchHit, t2)
	p.AddPipe(Ingress, t1)
	require.NoError(t, p.Validate())
	assert.Equal(t, 512, t1.Entries)
	assert.Equal(t, NoStage, t1.StagePragma)
	assert.Equal(t, []string{BranchHit}, t1.BranchKeys())
	assert.Same(t, t1, p.Table("t1"))
	assert.Same(t, p.Pipe(Ingress).Root.Tables[0], t1)
	assert.Nil(t, p.Pipe(Egress))

	/* gateway branches on a match table */
	t1.On(BranchTrue)
	assert.Error(t, p.Validate())
	delete(t1.Next, BranchTrue)

	/* cross-gress reference */
	t2.WithKeys(Whole(e))
	assert.Error(t, p.Validate())
	t2.Keys = t2.Keys[:1]

	/* branch on an unknown action */
	t1.On("nope")
	assert.Error(t, p.Validate())
	t1.WithActions(NewAction("nope"))
	assert.NoError(t, p.Validate())

	/* always-run tables never branch */
	ara := p.NewTable("ara", Ingress, AlwaysRun)
	ara.On(BranchDefault, t2)
	assert.Error(t, p.Validate())
}

func TestProgram_MutexAndReset(t *testing.T) {
	p := NewProgram("mutex")
	a := p.NewMetadata("a", Ingress, 8)
	b := p.NewMetadata("b", Ingress, 8)
	assert.False(t, p.FieldsMutex(a, b))
	p.DeclareMutex(b, a)
	assert.True(t, p.FieldsMutex(a, b))
	assert.False(t, p.FieldsMutex(a, a))
	assert.True(t, a.Metadata)

	t1 := p.NewTable("t1", Ingress, Match)
	t1.Stage, t1.LogicalId = 3, 2
	p.Reset()
	assert.Equal(t, NoStage, t1.Stage)
	assert.Equal(t, -1, t1.LogicalId)
}
