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

// Package placement assigns tables to pipeline stages, one stage at a time,
// honoring the dependency graph and the per-stage resource budget.
package placement

import (
	"fmt"
	"strings"

	"github.com/p4lang/tableplace/internal/resources"
	"github.com/p4lang/tableplace/ir"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Record is the assignment of one table, or of one piece of a split table.
type Record struct {
	Table     *ir.Table
	Stage     int
	LogicalId int
	Requested int
	Allocated int
	Usage     resources.Usage
}

func (self Record) String() string {
	id := "-"
	if self.LogicalId >= 0 {
		id = fmt.Sprint(self.LogicalId)
	}
	return fmt.Sprintf("%s: stage %d, id %s, %d/%d entries, %s",
		self.Table.Name,
		self.Stage,
		id,
		self.Allocated,
		self.Requested,
		self.Usage,
	)
}

// Placement is the outcome of one search. It is never shared between
// rounds; the coordinator keeps private clones as restore points.
type Placement struct {
	Records     []Record
	Usage       []resources.Usage
	Stages      int
	Complete    bool
	Diagnostics []error
}

func (self *Placement) Clone() *Placement {
	if self == nil {
		return nil
	}
	return &Placement{
		Records:     append([]Record(nil), self.Records...),
		Usage:       append([]resources.Usage(nil), self.Usage...),
		Stages:      self.Stages,
		Complete:    self.Complete,
		Diagnostics: append([]error(nil), self.Diagnostics...),
	}
}

// Fits reports whether every table was placed within the given stage count.
func (self *Placement) Fits(stages int) bool {
	return self != nil && self.Complete && self.Stages <= stages
}

// StagesOf returns the stages holding a piece of t, in placement order.
func (self *Placement) StagesOf(t *ir.Table) []int {
	var ret []int
	for _, r := range self.Records {
		if r.Table == t {
			ret = append(ret, r.Stage)
		}
	}
	return ret
}

// TableStages is the table name to stage set map handed to the register
// allocator.
func (self *Placement) TableStages() map[string][]int {
	ret := make(map[string][]int)
	for _, r := range self.Records {
		if ss := ret[r.Table.Name]; !slices.Contains(ss, r.Stage) {
			ret[r.Table.Name] = append(ss, r.Stage)
		}
	}
	return ret
}

// Apply writes the first stage and logical id of every placed table back to
// the program.
func (self *Placement) Apply(prog *ir.Program) {
	prog.Reset()
	for _, r := range self.Records {
		if r.Table.Stage == ir.NoStage {
			r.Table.Stage = r.Stage
			r.Table.LogicalId = r.LogicalId
		}
	}
}

// Footprint sums the usage of every piece of t.
func (self *Placement) Footprint(t *ir.Table) resources.Usage {
	ret := resources.Usage{}
	for _, r := range self.Records {
		if r.Table == t {
			ret = ret.Add(r.Usage)
		}
	}
	return ret
}

func (self *Placement) String() string {
	buf := []string{fmt.Sprintf("placement: %d stages, complete=%v", self.Stages, self.Complete)}
	for _, r := range self.Records {
		buf = append(buf, "    "+r.String())
	}
	return strings.Join(buf, "\n")
}

// Summary lists the tables of every stage, sorted by name.
func (self *Placement) Summary() map[int][]string {
	ret := make(map[int][]string)
	for _, r := range self.Records {
		ret[r.Stage] = append(ret[r.Stage], r.Table.Name)
	}
	for _, k := range maps.Keys(ret) {
		slices.Sort(ret[k])
	}
	return ret
}
