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

/** This is an implementation of the iterative dominance algorithm described in
 *  "A Simple, Fast Dominance Algorithm" by Cooper, Harvey and Kennedy.
 */

package flow

import (
    `github.com/oleiade/lane`
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

// ReversePostOrder returns the nodes reachable from the source in reverse
// post-order.
func (self *CFG) ReversePostOrder() []int {
    if self.rpo != nil {
        return self.rpo
    }
    type frame struct {
        n int
        i int
    }
    st := lane.NewStack()
    vis := utils.NewBitset(len(self.tables))
    post := make([]int, 0, len(self.tables))

    /* iterative DFS from the source */
    vis.Set(Source)
    for st.Push(&frame { n: Source }); !st.Empty(); {
        fp := st.Head().(*frame)
        if fp.i == len(self.succ[fp.n]) {
            post = append(post, fp.n)
            st.Pop()
            continue
        }
        s := self.succ[fp.n][fp.i].To
        fp.i++
        if !vis.Test(s) {
            vis.Set(s)
            st.Push(&frame { n: s })
        }
    }

    /* reverse the post-order */
    for i, j := 0, len(post) - 1; i < j; i, j = i + 1, j - 1 {
        post[i], post[j] = post[j], post[i]
    }
    self.rpo = post
    return post
}

func (self *CFG) dominators() []int {
    if self.idom != nil {
        return self.idom
    }
    rpo := self.ReversePostOrder()
    num := make([]int, len(self.tables))
    idom := make([]int, len(self.tables))

    /* number the nodes, unreachable ones have no dominator */
    for i := range idom {
        idom[i] = -1
        num[i] = -1
    }
    for i, n := range rpo {
        num[n] = i
    }

    /* walk both fingers up until they meet */
    intersect := func(a int, b int) int {
        for a != b {
            for num[a] > num[b] { a = idom[a] }
            for num[b] > num[a] { b = idom[b] }
        }
        return a
    }

    /* iterate to a fixed point */
    idom[Source] = Source
    for changed := true; changed; {
        changed = false
        for _, n := range rpo[1:] {
            nd := -1
            for _, p := range self.pred[n] {
                if idom[p] < 0 {
                    continue
                } else if nd < 0 {
                    nd = p
                } else {
                    nd = intersect(p, nd)
                }
            }
            if nd >= 0 && idom[n] != nd {
                idom[n] = nd
                changed = true
            }
        }
    }

    /* the source has no dominator */
    idom[Source] = -1
    self.idom = idom
    return idom
}

// IDom returns the immediate dominator of node n, -1 for the source.
func (self *CFG) IDom(n int) int {
    return self.dominators()[n]
}

// Dominates reports whether every path from the source to b visits a.
func (self *CFG) Dominates(a int, b int) bool {
    idom := self.dominators()
    for b >= 0 {
        if a == b {
            return true
        }
        b = idom[b]
    }
    return false
}

// AlwaysRuns reports whether t executes on every packet path of its gress:
// no path from the source to the sink avoids all occurrences of t.
func (self *CFG) AlwaysRuns(t *ir.Table) bool {
    if v, ok := self.always[t.Id]; ok {
        return v
    }
    nn := self.Nodes(t)
    if len(nn) == 1 {
        self.always[t.Id] = self.Dominates(nn[0], Sink)
        return self.always[t.Id]
    }

    /* search for a path around every occurrence */
    vis := utils.NewBitset(len(self.tables))
    for _, n := range nn {
        vis.Set(n)
    }
    q := lane.NewQueue()
    vis.Set(Source)
    for q.Enqueue(Source); !q.Empty(); {
        n := q.Dequeue().(int)
        for _, s := range self.succ[n] {
            if !vis.Test(s.To) {
                vis.Set(s.To)
                q.Enqueue(s.To)
            }
        }
    }
    self.always[t.Id] = len(nn) != 0 && !vis.Test(Sink)
    return self.always[t.Id]
}

// Distance is the length of the shortest control path from a to b, or -1.
func (self *CFG) Distance(a int, b int) int {
    q := lane.NewQueue()
    dist := make([]int, len(self.tables))

    /* breadth-first search from a */
    for i := range dist {
        dist[i] = -1
    }
    dist[a] = 0
    for q.Enqueue(a); !q.Empty(); {
        n := q.Dequeue().(int)
        if n == b {
            return dist[n]
        }
        for _, s := range self.succ[n] {
            if dist[s.To] < 0 {
                dist[s.To] = dist[n] + 1
                q.Enqueue(s.To)
            }
        }
    }
    return -1
}

func (self *CFG) reachability() []utils.Bitset {
    if self.reach != nil {
        return self.reach
    }
    rpo := self.ReversePostOrder()
    reach := make([]utils.Bitset, len(self.tables))
    for i := range reach {
        reach[i] = utils.NewBitset(len(self.tables))
    }

    /* propagate backwards until nothing changes */
    for changed := true; changed; {
        changed = false
        for i := len(rpo) - 1; i >= 0; i-- {
            n := rpo[i]
            for _, s := range self.succ[n] {
                if !reach[n].Test(s.To) {
                    reach[n].Set(s.To)
                    changed = true
                }
                if reach[n].Union(reach[s.To]) {
                    changed = true
                }
            }
        }
    }

    self.reach = reach
    return reach
}

// Reaches reports whether a control path leads from node a to node b.
func (self *CFG) Reaches(a int, b int) bool {
    return self.reachability()[a].Test(b)
}

// Mutex reports whether no packet can execute both tables, i.e. no
// occurrence of either is reachable from an occurrence of the other. A
// table that always runs is exclusive with nothing.
func (self *CFG) Mutex(a *ir.Table, b *ir.Table) bool {
    na, nb := self.Nodes(a), self.Nodes(b)
    if len(na) == 0 || len(nb) == 0 || a == b {
        return false
    }
    if self.AlwaysRuns(a) || self.AlwaysRuns(b) {
        return false
    }
    for _, x := range na {
        for _, y := range nb {
            if self.Reaches(x, y) || self.Reaches(y, x) {
                return false
            }
        }
    }
    return true
}

// ReachesTable reports whether some occurrence of a leads to some
// occurrence of b.
func (self *CFG) ReachesTable(a *ir.Table, b *ir.Table) bool {
    for _, x := range self.Nodes(a) {
        for _, y := range self.Nodes(b) {
            if self.Reaches(x, y) {
                return true
            }
        }
    }
    return false
}
