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
    `fmt`
    `strings`

    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

const (
    Source = 0
    Sink   = 1
)

// Succ is a control-flow edge annotated with the branch key that takes it.
type Succ struct {
    To  int
    Key string
}

// CFG is the control-flow graph of one gress with a single source and a
// single sink. Node 0 is the source, node 1 is the sink (the deparser) and
// every other node is one occurrence of a table. A table applied from
// several sequences owns one node per distinct continuation, so every path
// through the graph is a path some packet can take.
type CFG struct {
    Gress  ir.Gress
    tables []*ir.Table
    nodes  map[[2]int]int
    occ    map[int][]int
    succ   [][]Succ
    pred   [][]int
    rpo    []int
    idom   []int
    reach  []utils.Bitset
    always map[int]bool
}

// NewCFG flattens the nested control of a pipe into an edge list.
func NewCFG(pipe *ir.Pipe) *CFG {
    g := &CFG {
        Gress  : pipe.Gress,
        tables : []*ir.Table { nil, nil },
        nodes  : make(map[[2]int]int),
        occ    : make(map[int][]int),
        succ   : make([][]Succ, 2),
        pred   : make([][]int, 2),
        always : make(map[int]bool),
    }
    b := &_Builder { g: g }
    b.edge(Source, b.sequence(pipe.Root, Sink), "")
    return g
}

type _Builder struct {
    g *CFG
}

func (self *_Builder) sequence(s *ir.Sequence, next int) int {
    if s != nil {
        for i := len(s.Tables) - 1; i >= 0; i-- {
            next = self.table(s.Tables[i], next)
        }
    }
    return next
}

// table visits t with next as its continuation, the node executed once t
// and everything it branches to have completed. The continuation decides
// everything reachable from t, so occurrences sharing it share a node.
func (self *_Builder) table(t *ir.Table, next int) int {
    k := [2]int { t.Id, next }
    if n, ok := self.g.nodes[k]; ok {
        return n
    }
    n := self.g.newNode(t, k)

    /* explicit next-table branches */
    for _, key := range t.BranchKeys() {
        self.edge(n, self.sequence(t.Next[key], next), key)
    }

    /* synthetic fallthrough for the branch keys not covered */
    if key, ok := missingBranch(t); ok {
        self.edge(n, next, key)
    }

    /* exit actions go straight to the sink */
    for _, a := range t.Actions {
        if a.Exit {
            self.edge(n, Sink, a.Name)
        }
    }
    return n
}

func (self *_Builder) edge(from int, to int, key string) {
    g := self.g
    for _, s := range g.succ[from] {
        if s.To == to && s.Key == key {
            return
        }
    }

    /* add the successor */
    g.succ[from] = append(g.succ[from], Succ { To: to, Key: key })

    /* predecessors are kept unique */
    for _, p := range g.pred[to] {
        if p == from {
            return
        }
    }
    g.pred[to] = append(g.pred[to], from)
}

func (self *CFG) newNode(t *ir.Table, k [2]int) int {
    n := len(self.tables)
    self.nodes[k] = n
    self.occ[t.Id] = append(self.occ[t.Id], n)
    self.tables = append(self.tables, t)
    self.succ = append(self.succ, nil)
    self.pred = append(self.pred, nil)
    return n
}

// missingBranch returns the branch key whose fallthrough has to be added
// explicitly, if the branches of t do not cover every outcome.
func missingBranch(t *ir.Table) (string, bool) {
    has := func(k string) bool { _, ok := t.Next[k]; return ok }

    /* tables whose every action exits never fall through */
    if len(t.Actions) != 0 {
        exit := true
        for _, a := range t.Actions {
            exit = exit && a.Exit
        }
        if exit {
            return "", false
        }
    }

    /* a default branch covers everything */
    if has(ir.BranchDefault) {
        return "", false
    }

    /* per-kind exhaustiveness */
    switch t.Kind {
        case ir.Gateway: {
            if has(ir.BranchTrue) && has(ir.BranchFalse) {
                return "", false
            } else if has(ir.BranchTrue) {
                return ir.BranchFalse, true
            } else if has(ir.BranchFalse) {
                return ir.BranchTrue, true
            }
        }
        case ir.Match: {
            miss := has(ir.BranchMiss) || has(ir.BranchTryNextStage)
            if has(ir.BranchHit) && miss {
                return "", false
            } else if has(ir.BranchHit) {
                return ir.BranchMiss, true
            } else if miss {
                return ir.BranchHit, true
            } else if len(t.Actions) != 0 && coversActions(t) {
                return "", false
            }
        }
    }
    return ir.BranchDefault, true
}

func coversActions(t *ir.Table) bool {
    for _, a := range t.Actions {
        if _, ok := t.Next[a.Name]; !ok && !a.Exit {
            return false
        }
    }
    return true
}

func (self *CFG) NumNodes() int {
    return len(self.tables)
}

// Node returns the first occurrence of t, or -1 when t is not applied in
// this gress.
func (self *CFG) Node(t *ir.Table) int {
    if nn := self.occ[t.Id]; len(nn) != 0 {
        return nn[0]
    } else {
        return -1
    }
}

// Nodes returns every occurrence of t.
func (self *CFG) Nodes(t *ir.Table) []int {
    return self.occ[t.Id]
}

// Table returns the table of node n, nil for the source and the sink.
func (self *CFG) Table(n int) *ir.Table {
    return self.tables[n]
}

func (self *CFG) Succs(n int) []Succ {
    return self.succ[n]
}

func (self *CFG) Preds(n int) []int {
    return self.pred[n]
}

func (self *CFG) nodeName(n int) string {
    switch n {
        case Source : return "$source"
        case Sink   : return "$sink"
        default     : return self.tables[n].Name
    }
}

func (self *CFG) String() string {
    buf := []string { fmt.Sprintf("cfg %s:", self.Gress) }
    for n := range self.tables {
        for _, s := range self.succ[n] {
            buf = append(buf, fmt.Sprintf("    %s -> %s [%s]", self.nodeName(n), self.nodeName(s.To), s.Key))
        }
    }
    return strings.Join(buf, "\n")
}
