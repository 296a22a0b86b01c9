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

package flow

import (
    `sort`

    `github.com/p4lang/tableplace/ir`
)

// controlDom computes the control-dominating set of t: t itself and every
// table it reaches through a next-table branch, transitively.
func controlDom(t *ir.Table, memo map[int]map[int]*ir.Table) map[int]*ir.Table {
    if s, ok := memo[t.Id]; ok {
        return s
    }

    /* mark as in progress to stop malformed recursion */
    ret := map[int]*ir.Table { t.Id: t }
    memo[t.Id] = ret

    /* union of the sets of every branch target */
    for _, key := range t.BranchKeys() {
        if nx := t.Next[key]; nx != nil {
            for _, u := range nx.Tables {
                for id, v := range controlDom(u, memo) {
                    ret[id] = v
                }
            }
        }
    }
    return ret
}

func sortedTables(m map[int]*ir.Table) []*ir.Table {
    ret := make([]*ir.Table, 0, len(m))
    for _, t := range m {
        ret = append(ret, t)
    }
    sort.Slice(ret, func(i int, j int) bool {
        return ret[i].Id < ret[j].Id
    })
    return ret
}

// leavesOf returns the members of a control-dominating set that have no
// next-table entries of their own.
func leavesOf(cds map[int]*ir.Table) map[int]*ir.Table {
    ret := make(map[int]*ir.Table)
    for id, t := range cds {
        if !t.HasBranches() {
            ret[id] = t
        }
    }
    return ret
}
