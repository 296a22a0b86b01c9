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

package backtrack

import (
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/kitex/pkg/klog"
	"github.com/p4lang/tableplace/internal/deps"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/phv"
	"github.com/p4lang/tableplace/internal/placement"
	"github.com/p4lang/tableplace/internal/resources"
	"github.com/p4lang/tableplace/internal/utils"
	"github.com/p4lang/tableplace/ir"
)

var (
	RoundCount      uint64
	TransitionCount uint64
)

// Round is one complete analysis and placement over a fixed allocation.
type Round struct {
	Phv       *phv.Result
	Analysis  *deps.Analysis
	Model     *resources.Model
	Placement *placement.Placement
	Err       error
}

// Result is what a successful run leaves behind.
type Result struct {
	Round
	Path []State
}

type _Handler func(*Coordinator) Outcome

var _Handlers = [NumStates]_Handler{
	Initial:                             (*Coordinator).initial,
	NoccTry1:                            (*Coordinator).noccTry,
	RedoPhv1:                            (*Coordinator).redoPhv,
	NoccTry2:                            (*Coordinator).noccTry,
	RedoPhv2:                            (*Coordinator).redoPhv,
	FinalPlacement:                      (*Coordinator).finalPlacement,
	AltInitial:                          (*Coordinator).altInitial,
	AltRetryEnhancedTP:                  (*Coordinator).altRetryEnhanced,
	AltFinalizeTableSameOrder:           (*Coordinator).altSameOrder,
	AltFinalizeTableSameOrderTableFixed: (*Coordinator).altSameOrder,
	AltFinalizeTable:                    (*Coordinator).altFinalizeTable,
}

// Coordinator owns the rounds of one compilation. Every round rebuilds the
// dependency graph from scratch; the only state carried between rounds is
// a private copy of the previous placement and the allocation constraints.
type Coordinator struct {
	prog    *ir.Program
	opts    *opts.Options
	alloc   *phv.Allocator
	pool    *resources.Pool
	state   State
	path    []State
	fixups  int
	cons    phv.Constraints
	prev    *placement.Placement
	last    *Round
	trivial *Round
	diags   []error
	seen    map[string]bool
}

func New(prog *ir.Program, o *opts.Options) *Coordinator {
	return &Coordinator{
		prog:  prog,
		opts:  o,
		alloc: phv.NewAllocator(prog, o.Device.Phv),
		pool:  resources.NewPool(o.Tuning.Workers),
		cons:  phv.Constraints{Isolate: make(map[string]bool)},
		seen:  make(map[string]bool),
	}
}

func (self *Coordinator) State() State {
	return self.state
}

func (self *Coordinator) Path() []State {
	return self.path
}

// Run steps the state machine until it reaches SUCCESS or FAILURE.
func (self *Coordinator) Run() (*Result, error) {
	self.state = Initial
	if self.opts.Tuning.AltFlow {
		self.state = AltInitial
	}
	self.path = append(self.path[:0], self.state)

	/* every state is left after a bounded number of rounds */
	for !self.state.Terminal() {
		if len(self.path) > MaxTransitions(self.opts.Tuning.MaxFixups) {
			panic(utils.EInvariant("backtrack", "no terminal state after %d transitions", len(self.path)-1))
		}
		out := _Handlers[self.state](self)
		next := Next(self.state, out, self.fixups, self.opts.Tuning.MaxFixups)
		if next == AltFinalizeTableSameOrderTableFixed {
			self.fixups++
		}
		if out.Retry != nil {
			klog.Debugf("backtrack: %s -> %s (%s)", self.state, next, out.Retry)
		} else {
			klog.Debugf("backtrack: %s -> %s", self.state, next)
		}
		self.state = next
		self.path = append(self.path, next)
		atomic.AddUint64(&TransitionCount, 1)
	}

	if self.state == Failure {
		return nil, &utils.FailureError{
			State:       self.path[len(self.path)-2].String(),
			Transitions: len(self.path) - 1,
			Diagnostics: self.diags,
		}
	}
	self.last.Placement.Apply(self.prog)
	klog.Infof("tableplace: %s placed in %d stages after %d transitions", self.prog.Name, self.last.Placement.Stages, len(self.path)-1)
	return &Result{Round: *self.last, Path: self.path}, nil
}

func (self *Coordinator) note(err error) {
	if msg := err.Error(); !self.seen[msg] {
		self.seen[msg] = true
		self.diags = append(self.diags, err)
	}
}

// round rebuilds the analysis over alloc and runs one placement search.
func (self *Coordinator) round(alloc *phv.Result, nocc bool, o *opts.Options) *Round {
	atomic.AddUint64(&RoundCount, 1)
	self.prog.Reset()
	a := deps.Build(self.prog, alloc, deps.Config{
		Stages:                   o.Device.Stages,
		LongBranch:               o.Device.LongBranch,
		IgnoreContainerConflicts: nocc,
	})
	m := resources.NewModel(alloc, a, o.Device.Stage)
	p, err := placement.Place(a, m, self.pool, o)
	ret := &Round{Phv: alloc, Analysis: a, Model: m, Placement: p, Err: err}
	self.last = ret
	return ret
}

func retry(kind RetryKind, cause error) Outcome {
	return Outcome{Retry: &RetryRequest{Kind: kind, Cause: cause}}
}

// judge turns a round into an outcome and keeps its placement as the
// restore point. The critical-path threshold applies to the first round
// only.
func (self *Coordinator) judge(r *Round, critical bool) Outcome {
	self.prev = r.Placement.Clone()
	for _, e := range r.Placement.Diagnostics {
		self.note(e)
	}
	if r.Err != nil {
		self.note(r.Err)
		return retry(RetryIgnoreConflicts, r.Err)
	}

	limit := self.opts.Device.Stages
	if critical {
		if n := r.Analysis.CriticalPathLength() + self.opts.Tuning.CriticalSlack; n < limit {
			limit = n
		}
	}
	if !r.Placement.Fits(limit) {
		err := overflow(r.Placement, limit)
		self.note(err)
		return retry(RetryRedoPhv, err)
	}
	return Outcome{Placement: r.Placement}
}

func overflow(p *placement.Placement, limit int) error {
	for _, r := range p.Records {
		if r.Stage >= limit {
			err := utils.EPlacement(r.Table.Name, r.Stage, utils.R_noStages)
			err.Note = fmt.Sprintf("placement needs %d stages, limit is %d", p.Stages, limit)
			return err
		}
	}
	return fmt.Errorf("placement incomplete after %d stages", p.Stages)
}

func (self *Coordinator) constraints(stages bool, noinit bool) phv.Constraints {
	ret := self.cons.Clone()
	if stages && self.prev != nil {
		ret.TableStages = self.prev.TableStages()
	}
	ret.NoMetadataInit = noinit
	return ret
}

func (self *Coordinator) initial() Outcome {
	alloc, err := self.alloc.Allocate(self.constraints(false, false))
	if err != nil {
		self.note(err)
		r := self.round(self.alloc.Trivial(), false, self.opts)
		self.prev = r.Placement.Clone()
		return Outcome{Retry: &RetryRequest{Kind: RetryRedoPhv, Cause: err}}
	}
	return self.judge(self.round(alloc, false, self.opts), true)
}

func (self *Coordinator) noccTry() Outcome {
	return self.judge(self.round(self.last.Phv, true, self.opts), false)
}

func (self *Coordinator) redoPhv() Outcome {
	c := self.constraints(true, false)
	alloc, err := self.alloc.Allocate(c)
	if err != nil {
		self.note(err)
		return Outcome{Retry: &RetryRequest{Kind: RetryRedoPhv, Constraints: c, Cause: err}}
	}
	return self.judge(self.round(alloc, false, self.opts), false)
}

func (self *Coordinator) finalPlacement() Outcome {
	c := self.constraints(true, true)
	alloc, err := self.alloc.Allocate(c)
	if err != nil {
		self.note(err)
		return Outcome{Retry: &RetryRequest{Kind: RetryRedoPhv, Constraints: c, Cause: err}}
	}
	return self.judge(self.round(alloc, false, self.opts), false)
}

// trivialRound places against the trivial allocation and asks for a replay
// when that worked out.
func (self *Coordinator) trivialRound(o *opts.Options) Outcome {
	r := self.round(self.alloc.Trivial(), false, o)
	self.trivial = r
	if out := self.judge(r, false); out.Retry != nil {
		return out
	}
	return retry(RetryReplay, nil)
}

func (self *Coordinator) altInitial() Outcome {
	return self.trivialRound(self.opts)
}

// altRetryEnhanced gives the search more room to backtrack locally.
func (self *Coordinator) altRetryEnhanced() Outcome {
	o := *self.opts
	o.Tuning.MaxLocalBacktracks = o.Tuning.MaxLocalBacktracks*2 + 1
	return self.trivialRound(&o)
}

// altSameOrder allocates for real around the trivial placement and replays
// it. On a mismatch the table whose footprint moved the most gets its
// fields isolated for the next attempt.
func (self *Coordinator) altSameOrder() Outcome {
	c := self.constraints(true, false)
	alloc, err := self.alloc.Allocate(c)
	if err != nil {
		self.note(err)
		return Outcome{Retry: &RetryRequest{Kind: RetryRedoPhv, Constraints: c, Cause: err}}
	}

	atomic.AddUint64(&RoundCount, 1)
	self.prog.Reset()
	a := deps.Build(self.prog, alloc, deps.Config{Stages: self.opts.Device.Stages, LongBranch: self.opts.Device.LongBranch})
	m := resources.NewModel(alloc, a, self.opts.Device.Stage)
	p, miss := placement.New(a, m, self.pool, self.opts).Replay(self.trivial.Placement)
	self.last = &Round{Phv: alloc, Analysis: a, Model: m, Placement: p}

	if len(miss) == 0 {
		if p.Fits(self.opts.Device.Stages) {
			return Outcome{Placement: p}
		}
		return retry(RetryRedoPhv, overflow(p, self.opts.Device.Stages))
	}

	t := self.culprit(miss, m)
	self.isolate(t)
	pe := utils.EPlacement(t.Name, self.trivial.Placement.StagesOf(t)[0], utils.R_noStages)
	pe.Note = "stage changed under the real allocation"
	return Outcome{Retry: &RetryRequest{Kind: RetryFixup, Constraints: self.cons.Clone(), Table: t, Cause: pe}}
}

func (self *Coordinator) altFinalizeTable() Outcome {
	c := self.constraints(false, false)
	alloc, err := self.alloc.Allocate(c)
	if err != nil {
		self.note(err)
		return Outcome{Retry: &RetryRequest{Kind: RetryRedoPhv, Constraints: c, Cause: err}}
	}
	return self.judge(self.round(alloc, false, self.opts), false)
}

// culprit picks the mismatched table whose action bus, crossbar or memory
// footprint differs most between the trivial and the real allocation.
func (self *Coordinator) culprit(miss []*ir.Table, real *resources.Model) *ir.Table {
	best, diff := miss[0], -1
	for _, t := range miss {
		x := self.trivial.Model.Demand(t, t.Entries)
		y := real.Demand(t, t.Entries)
		d := abs(x.ActionBus - y.ActionBus)
		if v := abs(x.Ixbar - y.Ixbar); v > d {
			d = v
		}
		if v := abs(x.Memory() - y.Memory()); v > d {
			d = v
		}
		if d > diff {
			best, diff = t, d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	} else {
		return v
	}
}

// isolate keeps every field t touches out of shared containers.
func (self *Coordinator) isolate(t *ir.Table) {
	mark := func(ss []ir.Slice) {
		for _, s := range ss {
			self.cons.Isolate[s.Field.Name] = true
		}
	}
	mark(t.Keys)
	for _, r := range t.Attached {
		mark(r.Inputs)
		mark(r.Outputs)
	}
	for _, a := range t.Actions {
		mark(a.Reads())
		mark(a.Writes())
	}
}
