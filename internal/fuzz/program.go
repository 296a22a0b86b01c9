// Copyright 2022 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package fuzz generates random but well-formed programs for property tests.
package fuzz

import (
	"fmt"

	gofakeit "github.com/brianvoe/gofakeit/v6"
	"github.com/p4lang/tableplace/ir"
)

// Shape bounds the programs produced by a Generator. One in ShareRatio
// two-way gateways applies a table from both of its branches.
type Shape struct {
	Tables     int
	Fields     int
	MaxDepth   int
	Egress     bool
	Metadata   bool
	ExitRatio  int
	ShareRatio int
}

var DefaultShape = Shape{
	Tables:     16,
	Fields:     12,
	MaxDepth:   3,
	Egress:     true,
	Metadata:   true,
	ExitRatio:  20,
	ShareRatio: 2,
}

// Generator builds random programs from a seed. Programs from the same seed
// and shape are identical.
type Generator struct {
	f     *gofakeit.Faker
	shape Shape
	prog  *ir.Program
	left  int
	next  int
}

func NewGenerator(seed int64, shape Shape) *Generator {
	return &Generator{f: gofakeit.New(seed), shape: shape}
}

var sizes = []int{4, 8, 12, 16, 32, 48}

// Program returns a fresh program.
func (g *Generator) Program() *ir.Program {
	g.prog = ir.NewProgram(fmt.Sprintf("fuzz%d", g.f.Number(0, 1<<20)))
	g.next = 0

	gresses := []ir.Gress{ir.Ingress}
	if g.shape.Egress {
		gresses = append(gresses, ir.Egress)
	}
	for _, gr := range gresses {
		fields := g.fields(gr)
		g.left = g.shape.Tables / len(gresses)
		if g.left < 1 {
			g.left = 1
		}
		root := g.sequence(gr, fields, 0)
		g.prog.AddPipe(gr, root.Tables...)
	}
	return g.prog
}

func (g *Generator) fields(gr ir.Gress) []*ir.Field {
	var ret []*ir.Field
	for i := 0; i < g.shape.Fields; i++ {
		name := fmt.Sprintf("%s.f%d", gr, i)
		size := sizes[g.f.Number(0, len(sizes)-1)]
		var f *ir.Field
		if g.shape.Metadata && g.f.Number(0, 3) == 0 {
			f = g.prog.NewMetadata(name, gr, size)
		} else {
			f = g.prog.NewField(name, gr, size)
		}
		if g.f.Number(0, 7) == 0 {
			f.ReductionOr = "ro"
		}
		ret = append(ret, f)
	}
	return ret
}

func (g *Generator) pick(fields []*ir.Field) ir.Slice {
	f := fields[g.f.Number(0, len(fields)-1)]
	if f.Size > 8 && g.f.Bool() {
		lo := g.f.Number(0, f.Size-8)
		return f.Bits(lo, lo+7)
	}
	return ir.Whole(f)
}

func (g *Generator) operand(fields []*ir.Field) ir.Operand {
	switch g.f.Number(0, 2) {
	case 0:
		return ir.FieldOf(g.pick(fields))
	case 1:
		return ir.Const(int64(g.f.Number(0, 255)))
	default:
		return ir.Param(g.f.Number(1, 32))
	}
}

func (g *Generator) action(name string, fields []*ir.Field) *ir.Action {
	var ins []*ir.Instr
	for i := g.f.Number(1, 3); i > 0; i-- {
		dst := g.pick(fields)
		switch g.f.Number(0, 2) {
		case 0:
			ins = append(ins, ir.Set(dst, g.operand(fields)))
		case 1:
			ins = append(ins, ir.Add(dst, g.operand(fields), g.operand(fields)))
		default:
			ins = append(ins, ir.Or(dst, ir.FieldOf(dst), g.operand(fields)))
		}
	}
	if g.shape.ExitRatio > 0 && g.f.Number(0, g.shape.ExitRatio-1) == 0 {
		return ir.ExitAction(name, ins...)
	}
	return ir.NewAction(name, ins...)
}

func (g *Generator) table(gr ir.Gress, fields []*ir.Field, kind ir.Kind) *ir.Table {
	name := fmt.Sprintf("%s.t%d", gr, g.next)
	g.next++
	t := g.prog.NewTable(name, gr, kind)
	for i := g.f.Number(1, 2); i > 0; i-- {
		t.WithKeys(g.pick(fields))
	}
	if g.f.Number(0, 3) == 0 {
		t.WithReductionOr("ro")
	}
	if kind == ir.Match {
		t.WithEntries(g.f.Number(1, 64) * 256)
		if g.f.Bool() {
			t.WithMatch(ir.Ternary)
		}
		for i := g.f.Number(1, 2); i > 0; i-- {
			t.WithActions(g.action(fmt.Sprintf("%s_a%d", name, i), fields))
		}
	}
	return t
}

// sequence consumes tables from the budget until it runs out or the
// sequence is long enough, nesting branches below the depth limit.
func (g *Generator) sequence(gr ir.Gress, fields []*ir.Field, depth int) *ir.Sequence {
	seq := ir.Seq()
	for n := g.f.Number(1, 4); n > 0 && g.left > 0; n-- {
		g.left--
		kind := ir.Match
		if g.f.Number(0, 3) == 0 {
			kind = ir.Gateway
		}
		t := g.table(gr, fields, kind)
		seq.Tables = append(seq.Tables, t)

		/* nest below this table */
		if depth >= g.shape.MaxDepth || g.left == 0 || g.f.Bool() {
			continue
		}
		if kind == ir.Gateway {
			t.Next[ir.BranchTrue] = g.sequence(gr, fields, depth+1)
			if g.left > 0 && g.f.Bool() {
				t.Next[ir.BranchFalse] = g.sequence(gr, fields, depth+1)
				g.share(gr, fields, t)
			}
		} else {
			t.Next[ir.BranchHit] = g.sequence(gr, fields, depth+1)
		}
	}
	return seq
}

// share applies one new table from both branches of gateway t: last on the
// true side and first on the false side.
func (g *Generator) share(gr ir.Gress, fields []*ir.Field, t *ir.Table) {
	if g.shape.ShareRatio <= 0 || g.left == 0 || g.f.Number(0, g.shape.ShareRatio-1) != 0 {
		return
	}
	g.left--
	x := g.table(gr, fields, ir.Match)
	yes, no := t.Next[ir.BranchTrue], t.Next[ir.BranchFalse]
	yes.Tables = append(yes.Tables, x)
	no.Tables = append([]*ir.Table{x}, no.Tables...)
}
