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

// Package tableplace assigns the tables of a match-action program to the
// stages of a fixed pipeline. It builds the table dependency graph, places
// tables stage by stage under the per-stage resource budget, and backtracks
// over register allocation and placement until the program fits.
package tableplace

import (
	"io"

	"github.com/p4lang/tableplace/internal/backtrack"
	"github.com/p4lang/tableplace/internal/depgraph"
	"github.com/p4lang/tableplace/internal/deps"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/phv"
	"github.com/p4lang/tableplace/internal/placement"
	"github.com/p4lang/tableplace/internal/utils"
	"github.com/p4lang/tableplace/ir"
)

// Record is the stage and logical id assignment of one table, or of one
// piece of a split table.
type Record = placement.Record

// Label tags a dependency edge.
type Label = depgraph.Label

// Result is a successful placement.
type Result struct {
	Stages   int
	Records  []Record
	Path     []string
	analysis *deps.Analysis
	place    *placement.Placement
	capacity opts.StageCapacity
}

// Compile places every table of prog. On success the stage and logical id
// of each table are also written back to prog.
func Compile(prog *ir.Program, options ...Option) (ret *Result, err error) {
	if err = prog.Validate(); err != nil {
		return nil, err
	}
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}

	defer guard(&err)
	res, err := backtrack.New(prog, &o).Run()
	if err != nil {
		return nil, err
	}

	ret = &Result{
		Stages:   res.Placement.Stages,
		Records:  res.Placement.Records,
		analysis: res.Analysis,
		place:    res.Placement,
		capacity: o.Device.Stage,
	}
	for _, s := range res.Path {
		ret.Path = append(ret.Path, s.String())
	}
	return ret, nil
}

// guard turns an invariant violation raised by a pass into an error. Any
// other panic is not ours to handle.
func guard(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(*utils.InvariantError); ok {
			*err = e
		} else {
			panic(v)
		}
	}
}

// Analysis is the dependency graph of a program with everything derived
// from it.
type Analysis = deps.Analysis

// Analyze builds the dependency graph of prog under a trivial register
// allocation, where no two fields share a container.
func Analyze(prog *ir.Program, options ...Option) (ret *Analysis, err error) {
	if err = prog.Validate(); err != nil {
		return nil, err
	}
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	defer guard(&err)
	alloc := phv.NewAllocator(prog, o.Device.Phv).Trivial()
	return deps.Build(prog, alloc, deps.Config{Stages: o.Device.Stages, LongBranch: o.Device.LongBranch}), nil
}

// Analysis returns the dependency graph of the successful round.
func (self *Result) Analysis() *Analysis {
	return self.analysis
}

// StagesOf returns the stages holding a piece of t.
func (self *Result) StagesOf(t *ir.Table) []int {
	return self.place.StagesOf(t)
}

// DumpGraph renders the dependency graph as text.
func (self *Result) DumpGraph() string {
	return self.analysis.Dump()
}

// MarshalDOT exports the dependency graph in the DOT language.
func (self *Result) MarshalDOT() ([]byte, error) {
	return self.analysis.Graph.MarshalDOT(self.analysis.Prog.Name)
}

// DrawSVG renders the stage occupancy chart of the placement.
func (self *Result) DrawSVG(w io.Writer) {
	placement.DrawSVG(w, self.place, self.capacity)
}

func (self *Result) String() string {
	return self.place.String()
}
