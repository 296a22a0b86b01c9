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

// injectionLabel picks the label of the synthetic ordering implied by an
// ordering edge.
func injectionLabel(l depgraph.Label, f *ir.Field) depgraph.Label {
    if l.Class() != depgraph.C_data {
        return depgraph.AntiNextTableControl
    } else if f != nil && f.Metadata {
        return depgraph.AntiNextTableMetadata
    } else {
        return depgraph.AntiNextTableData
    }
}

// NextTable models next-table propagation. When A must come before B and
// their pathways diverge at siblings X (holding A) and Y (holding B), the
// next-table pointer leaves X's subtree through its leaves, so every leaf
// that may run together with Y must not come after Y. Each new edge can
// enable further ones, so the rule runs to a fixed point.
type NextTable struct{}

func (NextTable) Apply(a *Analysis) {
    for {
        added := 0

        /* edges appended while scanning are scanned too */
        for i := 0; i < a.Graph.NumEdges(); i++ {
            e := depgraph.EdgeId(i)
            if !a.Graph.Label(e).IsOrdering() {
                continue
            }
            src, dst, l := a.Graph.Edge(e)
            label := injectionLabel(l, a.Graph.Field(e))

            /* long branches carry the pointer in hardware */
            if label == depgraph.AntiNextTableControl && a.Config.LongBranch {
                continue
            }
            for _, ip := range a.Flow.InjectionPoints(src, dst) {
                added += a.inject(ip.Before, ip.After, label, a.Graph.Field(e))
            }
        }

        /* stop when nothing changed */
        if added == 0 {
            break
        }
    }
}

func (self *Analysis) inject(before *ir.Table, after *ir.Table, label depgraph.Label, f *ir.Field) int {
    n := 0
    for _, leaf := range self.Flow.NextTableLeaves(before) {
        if leaf == after || self.Flow.Mutex(leaf, after) || self.Graph.ReachesOrdering(leaf, after) {
            continue
        }
        if e, ok := self.Graph.AddEdge(leaf, after, label); ok {
            self.Graph.Annotate(e, f)
            n++
        }
    }
    return n
}
