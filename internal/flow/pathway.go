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
    `github.com/p4lang/tableplace/ir`
)

// Step is one level of a pathway: the position of a table inside a sequence,
// and the branch key taken out of it to descend further.
type Step struct {
    Seq   *ir.Sequence
    Index int
    Key   string
}

func (self Step) Table() *ir.Table {
    return self.Seq.Tables[self.Index]
}

// Pathway is the chain of nested sequence positions leading from the root of
// a pipe to a table. The last step is the table itself.
type Pathway []Step

// Pathways is every root-to-table pathway of every table, keyed by table id.
type Pathways map[int][]Pathway

func collectPathways(pipe *ir.Pipe, ret Pathways) {
    var walk func(s *ir.Sequence, prefix Pathway, depth int)
    walk = func(s *ir.Sequence, prefix Pathway, depth int) {
        for i, t := range s.Tables {
            p := make(Pathway, len(prefix) + 1)
            copy(p, prefix)
            p[len(prefix)] = Step { Seq: s, Index: i }
            ret[t.Id] = append(ret[t.Id], p)

            /* descend into the branches of t */
            if depth < _MaxNesting {
                for _, key := range t.BranchKeys() {
                    if nx := t.Next[key]; !nx.Empty() {
                        q := make(Pathway, len(p))
                        copy(q, p)
                        q[len(q) - 1].Key = key
                        walk(nx, q, depth + 1)
                    }
                }
            }
        }
    }
    walk(pipe.Root, nil, 0)
}

const (
    _MaxNesting = 256
)

// InjectionPoint is where the pathways of two tables first diverge: Before is
// the ancestor of the first table and After the ancestor of the second one,
// both in the same sequence with Before applied earlier.
type InjectionPoint struct {
    Before *ir.Table
    After  *ir.Table
}

// injectionPoint compares two pathways. It fails when one table nests the
// other, when they sit on different branches of a common ancestor, or when
// the second table's ancestor comes first in the sequence.
func injectionPoint(a Pathway, b Pathway) (InjectionPoint, bool) {
    for k := 0; k < len(a) && k < len(b); k++ {
        x, y := a[k], b[k]
        if x.Seq != y.Seq {
            return InjectionPoint{}, false
        }

        /* same position: either descend further or diverge on branches */
        if x.Index == y.Index {
            if x.Key != y.Key {
                return InjectionPoint{}, false
            } else {
                continue
            }
        }

        /* diverged inside one sequence */
        if x.Index < y.Index {
            return InjectionPoint { Before: x.Table(), After: y.Table() }, true
        } else {
            return InjectionPoint{}, false
        }
    }
    return InjectionPoint{}, false
}
