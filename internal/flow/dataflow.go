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
    `github.com/oleiade/lane`
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

// Value is an element of a join semi-lattice.
type Value interface {
    Clone() Value
    Merge(other Value)
    Equal(other Value) bool
}

// Problem is a forward dataflow problem over a CFG.
type Problem interface {
    Entry() Value
    Transfer(t *ir.Table, in Value) Value
}

// Solve propagates values along the CFG with a worklist until nothing
// changes, and returns the value flowing into every node. Values reaching a
// join are merged; the source starts from Entry.
func (self *CFG) Solve(p Problem) []Value {
    nb := len(self.tables)
    in := make([]Value, nb)
    out := make([]Value, nb)
    queued := utils.NewBitset(nb)

    /* the source only emits the entry value */
    q := lane.NewQueue()
    in[Source] = p.Entry()
    out[Source] = in[Source]

    /* seed the worklist in reverse post-order */
    for _, n := range self.ReversePostOrder() {
        if n != Source {
            q.Enqueue(n)
            queued.Set(n)
        }
    }

    /* iterate to the fixed point */
    for !q.Empty() {
        n := q.Dequeue().(int)
        queued.Clear(n)

        /* merge the values of all predecessors */
        var acc Value
        for _, v := range self.pred[n] {
            if out[v] == nil {
                continue
            } else if acc == nil {
                acc = out[v].Clone()
            } else {
                acc.Merge(out[v])
            }
        }

        /* not reached yet, or the sink */
        if in[n] = acc; acc == nil || n == Sink {
            continue
        }

        /* apply the transfer function, stop if nothing changed */
        ov := p.Transfer(self.tables[n], acc.Clone())
        if out[n] != nil && out[n].Equal(ov) {
            continue
        }

        /* requeue all successors */
        out[n] = ov
        for _, s := range self.succ[n] {
            if !queued.Test(s.To) {
                queued.Set(s.To)
                q.Enqueue(s.To)
            }
        }
    }
    return in
}
