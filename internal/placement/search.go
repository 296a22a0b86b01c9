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

package placement

import (
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/kitex/pkg/klog"
	"github.com/p4lang/tableplace/internal/deps"
	"github.com/p4lang/tableplace/internal/opts"
	"github.com/p4lang/tableplace/internal/resources"
	"github.com/p4lang/tableplace/internal/utils"
	"github.com/p4lang/tableplace/ir"
	"golang.org/x/exp/slices"
)

var (
	SearchCount    uint64
	BacktrackCount uint64
)

// _State is everything a stage may change. It is snapshotted at the start
// of every stage so a local backtrack can redo the stage.
type _State struct {
	records   []Record
	usage     []resources.Usage
	remaining map[int]int
	done      map[int]int
	diags     []error
}

func (self *_State) clone() *_State {
	ret := &_State{
		records:   append([]Record(nil), self.records...),
		usage:     append([]resources.Usage(nil), self.usage...),
		remaining: make(map[int]int, len(self.remaining)),
		done:      make(map[int]int, len(self.done)),
		diags:     append([]error(nil), self.diags...),
	}
	for k, v := range self.remaining {
		ret.remaining[k] = v
	}
	for k, v := range self.done {
		ret.done[k] = v
	}
	return ret
}

func (self *_State) at(s int) resources.Usage {
	for len(self.usage) <= s {
		self.usage = append(self.usage, resources.Usage{})
	}
	return self.usage[s]
}

// _Pin forces a table to the front of a stage. Older pins win.
type _Pin struct {
	stage int
	seq   int
}

// Search is the stage-by-stage greedy placement of one round.
type Search struct {
	a          *deps.Analysis
	model      *resources.Model
	pool       *resources.Pool
	opts       *opts.Options
	tables     []*ir.Table
	pins       map[int]_Pin
	backtracks int
	st         *_State
}

func New(a *deps.Analysis, m *resources.Model, pool *resources.Pool, o *opts.Options) *Search {
	ret := &Search{
		a:      a,
		model:  m,
		pool:   pool,
		opts:   o,
		tables: a.Flow.Order(),
		pins:   make(map[int]_Pin),
		st: &_State{
			remaining: make(map[int]int),
			done:      make(map[int]int),
		},
	}
	for _, t := range ret.tables {
		ret.st.remaining[t.Id] = t.Entries
	}
	return ret
}

// Place runs a complete search. A non-nil error is a hard placement error;
// the returned placement is still valid as far as it got.
func Place(a *deps.Analysis, m *resources.Model, pool *resources.Pool, o *opts.Options) (*Placement, error) {
	return New(a, m, pool, o).Run()
}

// Backtracks is the number of local backtracks taken so far.
func (self *Search) Backtracks() int {
	return self.backtracks
}

func (self *Search) splittable(t *ir.Table) bool {
	return self.opts.Device.SplitTables && t.Splittable && t.Kind == ir.Match
}

func (self *Search) Run() (*Placement, error) {
	atomic.AddUint64(&SearchCount, 1)
	if err := self.precheck(); err != nil {
		return self.result(), err
	}
	for s := 0; !self.finished(); s++ {
		if s >= self.opts.Limit() {
			return self.result(), self.stuck(s)
		}
		if err := self.stage(s); err != nil {
			return self.result(), err
		}
	}
	return self.result(), nil
}

func (self *Search) precheck() error {
	for _, t := range self.tables {
		if !self.model.FitsEmpty(t, t.Entries, self.splittable(t)) {
			err := utils.EPlacement(t.Name, ir.NoStage, utils.R_tooLarge)
			err.Note = self.model.Demand(t, t.Entries).String()
			return err
		}
		if t.StagePragma >= self.opts.Limit() {
			return utils.EPlacement(t.Name, t.StagePragma, utils.R_pragma)
		}
	}
	return nil
}

func (self *Search) finished() bool {
	for _, t := range self.tables {
		if _, ok := self.st.done[t.Id]; !ok {
			return false
		}
	}
	return true
}

func (self *Search) stuck(s int) error {
	for _, t := range self.tables {
		if _, ok := self.st.done[t.Id]; !ok {
			return utils.EPlacement(t.Name, s, utils.R_noStages)
		}
	}
	panic("placement: search stuck with every table placed")
}

func (self *Search) result() *Placement {
	ret := &Placement{
		Records:     append([]Record(nil), self.st.records...),
		Complete:    self.finished(),
		Diagnostics: append([]error(nil), self.st.diags...),
	}
	for _, r := range ret.Records {
		if r.Stage+1 > ret.Stages {
			ret.Stages = r.Stage + 1
		}
	}
	ret.Usage = append([]resources.Usage(nil), self.st.usage...)
	if len(ret.Usage) > ret.Stages {
		ret.Usage = ret.Usage[:ret.Stages]
	}
	return ret
}

// stage fills stage s. When a table that cannot wait any longer was left
// out, the stage is redone with that table pinned, up to the local
// backtrack budget.
func (self *Search) stage(s int) error {
	snap := self.st.clone()
	for {
		if err := self.fill(s); err != nil {
			return err
		}
		t := self.urgent(s)
		if t == nil || self.backtracks >= self.opts.Tuning.MaxLocalBacktracks {
			break
		}
		self.backtracks++
		atomic.AddUint64(&BacktrackCount, 1)
		self.pins[t.Id] = _Pin{stage: s, seq: self.backtracks}
		self.st = snap.clone()
		klog.Debugf("placement: redoing stage %d with %s pinned", s, t.Name)
	}

	/* a pragma stage that went by is fatal */
	for _, t := range self.tables {
		if _, ok := self.st.done[t.Id]; !ok && t.StagePragma == s {
			return utils.EPlacement(t.Name, s, utils.R_pragma)
		}
	}
	return nil
}

// urgent returns a ready table left out of stage s that will miss its
// latest stage otherwise.
func (self *Search) urgent(s int) *ir.Table {
	for _, t := range self.tables {
		if _, ok := self.pins[t.Id]; !ok && self.ready(t, s) && self.a.MaxStage(t) <= s {
			return t
		}
	}
	return nil
}

func (self *Search) inStage(t *ir.Table, s int) bool {
	for i := len(self.st.records) - 1; i >= 0 && self.st.records[i].Stage == s; i-- {
		if self.st.records[i].Table == t {
			return true
		}
	}
	return false
}

// ready reports whether t can go into stage s: everything it depends on is
// placed early enough and it has no piece in s yet.
func (self *Search) ready(t *ir.Table, s int) bool {
	if _, ok := self.st.done[t.Id]; ok {
		return false
	}
	if t.StagePragma != ir.NoStage && t.StagePragma != s {
		return false
	}
	if self.a.MinStage(t) > s || self.inStage(t, s) {
		return false
	}
	g := self.a.Graph
	for _, e := range g.In(g.Vertex(t)) {
		if !g.Label(e).IsOrdering() {
			continue
		}
		src := g.Table(g.Src(e))
		if !self.a.Flow.Applied(src) {
			continue
		}
		if last, ok := self.st.done[src.Id]; !ok || last+self.a.Weight(e) > s {
			return false
		}
	}
	return true
}

// conflicts reports whether t shares a container conflict with a table
// already in stage s.
func (self *Search) conflicts(t *ir.Table, s int) bool {
	for i := len(self.st.records) - 1; i >= 0 && self.st.records[i].Stage == s; i-- {
		if self.a.ContainerConflict(t, self.st.records[i].Table) {
			return true
		}
	}
	return false
}

// fill picks tables for stage s one at a time until nothing else fits.
func (self *Search) fill(s int) error {
	for {
		var cands []*ir.Table
		var blocked []*ir.Table
		for _, t := range self.tables {
			if !self.ready(t, s) {
				continue
			} else if self.conflicts(t, s) {
				blocked = append(blocked, t)
			} else {
				cands = append(cands, t)
			}
		}

		/* trials only read the committed usage of s */
		reqs := make([]resources.Request, len(cands))
		for i, t := range cands {
			reqs[i] = resources.Request{Table: t, Entries: self.st.remaining[t.Id], Shrink: self.splittable(t)}
		}
		trials := self.pool.TrialAll(self.model, self.st.at(s), reqs)

		/* best fitting candidate first */
		best := -1
		prio := make([]_Priority, len(cands))
		for i, t := range cands {
			if trials[i].OK {
				prio[i] = self.priority(t, s, trials[i])
				if best < 0 || prio[i].before(prio[best]) {
					best = i
				}
			}
		}

		if best >= 0 {
			self.commit(s, trials[best])
			continue
		}
		if len(blocked) != 0 && s >= self.opts.Device.Stages {
			err := utils.EPlacement(blocked[0].Name, s, utils.R_containerConflict)
			err.Note = fmt.Sprintf("%d tables blocked", len(blocked))
			return err
		}
		return nil
	}
}

func (self *Search) commit(s int, tr resources.Trial) {
	t := tr.Table
	r := Record{
		Table:     t,
		Stage:     s,
		LogicalId: -1,
		Requested: tr.Requested,
		Allocated: tr.Entries,
		Usage:     tr.Usage,
	}
	used := self.st.at(s)
	if tr.Usage.LogicalIds > 0 {
		r.LogicalId = used.LogicalIds
	}
	self.st.usage[s] = used.Add(tr.Usage)
	self.st.records = append(self.st.records, r)
	self.st.remaining[t.Id] -= tr.Entries
	klog.Debugf("placement: stage %d <- %s (%d/%d entries)", s, t.Name, tr.Entries, tr.Requested)

	if tr.Partial() {
		return
	}
	self.st.done[t.Id] = s
	if ms := self.a.MaxStage(t); s > ms {
		err := utils.EPlacement(t.Name, s, utils.R_noStages)
		err.Note = fmt.Sprintf("latest stage is %d", ms)
		self.st.diags = append(self.st.diags, err)
		klog.Warnf("placement: %s", err)
	}
}

// Replay places the tables of a previous placement at the same stages and
// in the same order under the current analysis and resource model. It
// returns the tables that could not keep their stage.
func (self *Search) Replay(prev *Placement) (*Placement, []*ir.Table) {
	var miss []*ir.Table
	for _, r := range prev.Records {
		t := r.Table
		if _, ok := self.st.remaining[t.Id]; !ok || slices.Contains(miss, t) {
			continue
		}
		if !self.ready(t, r.Stage) || self.conflicts(t, r.Stage) {
			miss = append(miss, t)
			continue
		}
		tr := self.model.Try(self.st.at(r.Stage), resources.Request{Table: t, Entries: r.Allocated})
		if !tr.OK {
			miss = append(miss, t)
			continue
		}

		/* a piece of a split table keeps its share of entries */
		tr.Requested = self.st.remaining[t.Id]
		self.commit(r.Stage, tr)
	}
	return self.result(), miss
}
