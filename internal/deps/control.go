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
    `github.com/p4lang/tableplace/internal/depgraph`
    `github.com/p4lang/tableplace/ir`
)

func controlLabel(key string) depgraph.Label {
    switch key {
        case ir.BranchTrue         : return depgraph.ControlCondTrue
        case ir.BranchFalse        : return depgraph.ControlCondFalse
        case ir.BranchHit          : return depgraph.ControlTableHit
        case ir.BranchMiss         : return depgraph.ControlTableMiss
        case ir.BranchTryNextStage : return depgraph.ControlTableMiss
        case ir.BranchDefault      : return depgraph.ControlDefaultNextTable
        default                    : return depgraph.ControlAction
    }
}

// ControlDeps adds an edge from every table to the tables directly applied by
// its branches, plus the exit orderings: tables after an exiting table may
// not run before it, tables before it may not run after it.
type ControlDeps struct{}

func (ControlDeps) Apply(a *Analysis) {
    order := a.Flow.Order()

    /* next-table branches */
    for _, t := range order {
        for _, key := range t.BranchKeys() {
            if nx := t.Next[key]; nx != nil {
                for _, u := range nx.Tables {
                    a.Graph.AddEdge(t, u, controlLabel(key))
                }
            }
        }
    }

    /* exit actions */
    for _, t := range order {
        if !t.HasExit() {
            continue
        }
        for _, u := range order {
            if u == t {
                continue
            } else if a.Flow.Reaches(t, u) {
                a.Graph.AddEdge(t, u, depgraph.ControlExit)
            } else if a.Flow.Reaches(u, t) {
                a.Graph.AddEdge(u, t, depgraph.AntiExit)
            }
        }
    }
}
