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

package depgraph

import (
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

// StageInfo is the per-table result of the finalizer. MinStage and MaxStage
// honor every ordering edge; the suffixed counters honor a subset, see Honor.
type StageInfo struct {
    MinStage        int
    MaxStage        int
    DepTail         int
    MinStageData    int
    MinStageControl int
    MinStageAnti    int
    DepTailData     int
    DepTailControl  int
    DepTailAnti     int
    Generation      int
}

// MinStageFor returns the minimum stage computed under the given sweep.
func (self *StageInfo) MinStageFor(h Honor) int {
    switch h {
        case H_none    : return self.MinStageData
        case H_control : return self.MinStageControl
        case H_anti    : return self.MinStageAnti
        default        : return self.MinStage
    }
}

// DepTailFor returns the dependency chain length computed under the given sweep.
func (self *StageInfo) DepTailFor(h Honor) int {
    switch h {
        case H_none    : return self.DepTailData
        case H_control : return self.DepTailControl
        case H_anti    : return self.DepTailAnti
        default        : return self.DepTail
    }
}

// Info returns the stage info record of vertex v for the finalizer to fill.
func (self *Graph) Info(v int) *StageInfo {
    return &self.info[v]
}

// StageInfo returns the finalized stage info of t. Querying a graph that has
// not been finalized is a defect.
func (self *Graph) StageInfo(t *ir.Table) StageInfo {
    if !self.Finalized {
        panic(utils.EInvariant("depgraph", "stage info of %s queried before finalization", t.Name))
    }
    v := self.Vertex(t)
    if v < 0 {
        panic(utils.EInvariant("depgraph", "table %s is not in the dependency graph", t.Name))
    }
    return self.info[v]
}

func (self *Graph) MinStage(t *ir.Table) int {
    return self.StageInfo(t).MinStage
}

func (self *Graph) MaxStage(t *ir.Table) int {
    return self.StageInfo(t).MaxStage
}

// CriticalPathLength is one more than the largest minimum stage.
func (self *Graph) CriticalPathLength() int {
    if !self.Finalized {
        panic(utils.EInvariant("depgraph", "critical path queried before finalization"))
    }
    n := 0
    for i := range self.info {
        if m := self.info[i].MinStage + 1; m > n {
            n = m
        }
    }
    return n
}
