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
    `github.com/oleiade/lane`
    `github.com/p4lang/tableplace/internal/utils`
    `github.com/p4lang/tableplace/ir`
)

// EdgeId indexes the edge arrays of a Graph.
type EdgeId int

const (
    NoEdge EdgeId = -1
)

type _EdgeKey struct {
    src   int
    dst   int
    label Label
}

// Graph is a directed multigraph over tables. Vertices live in an arena
// indexed by small integers; edges are stored as parallel arrays and looked up
// through per-vertex adjacency lists.
type Graph struct {
    Finalized bool
    verts     []*ir.Table
    vidx      map[int]int
    info      []StageInfo
    src       []int
    dst       []int
    label     []Label
    field     []*ir.Field
    index     map[_EdgeKey]EdgeId
    out       [][]EdgeId
    in        [][]EdgeId
}

func New() *Graph {
    return &Graph {
        vidx  : make(map[int]int),
        index : make(map[_EdgeKey]EdgeId),
    }
}

// AddVertex returns the vertex id of t, allocating it on first use.
func (self *Graph) AddVertex(t *ir.Table) int {
    if v, ok := self.vidx[t.Id]; ok {
        return v
    }

    /* allocate a new vertex */
    v := len(self.verts)
    self.vidx[t.Id] = v
    self.verts = append(self.verts, t)
    self.info = append(self.info, StageInfo{})
    self.out = append(self.out, nil)
    self.in = append(self.in, nil)
    return v
}

// Vertex returns the vertex id of t, or -1 if t is not in the graph.
func (self *Graph) Vertex(t *ir.Table) int {
    if v, ok := self.vidx[t.Id]; ok {
        return v
    } else {
        return -1
    }
}

func (self *Graph) Table(v int) *ir.Table {
    return self.verts[v]
}

func (self *Graph) NumVertices() int {
    return len(self.verts)
}

func (self *Graph) NumEdges() int {
    return len(self.src)
}

// Tables returns all vertices in allocation order.
func (self *Graph) Tables() []*ir.Table {
    return self.verts
}

// AddEdge inserts src -> dst with the given label. Inserting an existing
// triple returns the existing edge. The edge is rejected, leaving the graph
// unchanged, when the reverse edge exists or when it would close a cycle.
func (self *Graph) AddEdge(src *ir.Table, dst *ir.Table, label Label) (EdgeId, bool) {
    s := self.AddVertex(src)
    d := self.AddVertex(dst)
    k := _EdgeKey { s, d, label }

    /* idempotent insertion */
    if e, ok := self.index[k]; ok {
        return e, false
    }

    /* self loops and back edges can never be scheduled */
    if s == d || self.hasBackEdge(s, d) {
        return NoEdge, false
    }

    /* tentatively insert the edge, roll back if it closes a cycle */
    e := self.push(s, d, label)
    if self.reaches(d, s) {
        self.pop()
        return NoEdge, false
    }

    /* the graph changed, stage info is stale */
    self.Finalized = false
    return e, true
}

func (self *Graph) push(s int, d int, label Label) EdgeId {
    e := EdgeId(len(self.src))
    self.src = append(self.src, s)
    self.dst = append(self.dst, d)
    self.label = append(self.label, label)
    self.field = append(self.field, nil)
    self.out[s] = append(self.out[s], e)
    self.in[d] = append(self.in[d], e)
    self.index[_EdgeKey { s, d, label }] = e
    return e
}

func (self *Graph) pop() {
    n := len(self.src) - 1
    s, d := self.src[n], self.dst[n]
    delete(self.index, _EdgeKey { s, d, self.label[n] })
    self.out[s] = self.out[s][:len(self.out[s]) - 1]
    self.in[d] = self.in[d][:len(self.in[d]) - 1]
    self.src = self.src[:n]
    self.dst = self.dst[:n]
    self.label = self.label[:n]
    self.field = self.field[:n]
}

// reaches reports whether vertex to is reachable from vertex from.
func (self *Graph) reaches(from int, to int) bool {
    st := lane.NewStack()
    vis := utils.NewBitset(len(self.verts))

    /* depth-first search from the source vertex */
    for st.Push(from); !st.Empty(); {
        v := st.Pop().(int)
        if v == to {
            return true
        }

        /* push all unvisited successors */
        if !vis.Test(v) {
            vis.Set(v)
            for _, e := range self.out[v] {
                st.Push(self.dst[e])
            }
        }
    }
    return false
}

// HasBackEdge reports whether any edge dst -> src exists.
func (self *Graph) HasBackEdge(src *ir.Table, dst *ir.Table) bool {
    s, d := self.Vertex(src), self.Vertex(dst)
    return s >= 0 && d >= 0 && self.hasBackEdge(s, d)
}

func (self *Graph) hasBackEdge(s int, d int) bool {
    for _, e := range self.in[s] {
        if self.src[e] == d {
            return true
        }
    }
    return false
}

// HasCycle runs a full depth-first search over the graph.
func (self *Graph) HasCycle() bool {
    const (
        white = iota
        grey
        black
    )
    type frame struct {
        v int
        i int
    }
    color := make([]uint8, len(self.verts))

    /* iterative DFS with explicit frames */
    for root := range self.verts {
        if color[root] != white {
            continue
        }
        st := lane.NewStack()
        st.Push(&frame { v: root })
        color[root] = grey

        /* walk until every reachable vertex is finished */
        for !st.Empty() {
            fp := st.Head().(*frame)
            if fp.i == len(self.out[fp.v]) {
                color[fp.v] = black
                st.Pop()
                continue
            }

            /* visit the next successor */
            w := self.dst[self.out[fp.v][fp.i]]
            fp.i++

            /* a grey successor is a back edge */
            switch color[w] {
                case grey  : return true
                case black : break
                default    : color[w] = grey; st.Push(&frame { v: w })
            }
        }
    }
    return false
}

// Edge returns the endpoints and label of e.
func (self *Graph) Edge(e EdgeId) (src *ir.Table, dst *ir.Table, label Label) {
    return self.verts[self.src[e]], self.verts[self.dst[e]], self.label[e]
}

func (self *Graph) Src(e EdgeId) int {
    return self.src[e]
}

func (self *Graph) Dst(e EdgeId) int {
    return self.dst[e]
}

func (self *Graph) Label(e EdgeId) Label {
    return self.label[e]
}

// Field is the field that caused a data edge, or nil.
func (self *Graph) Field(e EdgeId) *ir.Field {
    return self.field[e]
}

// Annotate records the field responsible for a data edge. The first
// annotation wins.
func (self *Graph) Annotate(e EdgeId, f *ir.Field) {
    if e != NoEdge && self.field[e] == nil {
        self.field[e] = f
    }
}

func (self *Graph) Out(v int) []EdgeId {
    return self.out[v]
}

func (self *Graph) In(v int) []EdgeId {
    return self.in[v]
}

// Find returns the edge src -> dst with the given label, or NoEdge.
func (self *Graph) Find(src *ir.Table, dst *ir.Table, label Label) EdgeId {
    s, d := self.Vertex(src), self.Vertex(dst)
    if s < 0 || d < 0 {
        return NoEdge
    } else if e, ok := self.index[_EdgeKey { s, d, label }]; ok {
        return e
    } else {
        return NoEdge
    }
}

// EdgesBetween returns every edge from src to dst.
func (self *Graph) EdgesBetween(src *ir.Table, dst *ir.Table) []EdgeId {
    var ret []EdgeId
    s, d := self.Vertex(src), self.Vertex(dst)

    /* scan the out list of the source */
    if s >= 0 && d >= 0 {
        for _, e := range self.out[s] {
            if self.dst[e] == d {
                ret = append(ret, e)
            }
        }
    }
    return ret
}

// Reaches reports whether dst is reachable from src through any edges.
func (self *Graph) Reaches(src *ir.Table, dst *ir.Table) bool {
    s, d := self.Vertex(src), self.Vertex(dst)
    return s >= 0 && d >= 0 && self.reaches(s, d)
}

// ReachesOrdering is Reaches restricted to ordering edges.
func (self *Graph) ReachesOrdering(src *ir.Table, dst *ir.Table) bool {
    s, d := self.Vertex(src), self.Vertex(dst)
    if s < 0 || d < 0 {
        return false
    }
    st := lane.NewStack()
    vis := utils.NewBitset(len(self.verts))

    /* DFS over ordering edges only */
    for st.Push(s); !st.Empty(); {
        v := st.Pop().(int)
        if v == d {
            return true
        }
        if !vis.Test(v) {
            vis.Set(v)
            for _, e := range self.out[v] {
                if self.label[e].IsOrdering() {
                    st.Push(self.dst[e])
                }
            }
        }
    }
    return false
}
