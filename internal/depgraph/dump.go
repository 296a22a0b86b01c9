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
    `fmt`
    `sort`
    `strings`

    `github.com/p4lang/tableplace/ir`
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/encoding`
    `gonum.org/v1/gonum/graph/encoding/dot`
    `gonum.org/v1/gonum/graph/multi`
    `gonum.org/v1/gonum/graph/topo`
)

// Dump renders the graph as text, one edge per line, sorted by endpoints.
func (self *Graph) Dump() string {
    buf := make([]string, 0, len(self.src) + len(self.verts) + 2)
    buf = append(buf, fmt.Sprintf("dependency graph: %d tables, %d edges", len(self.verts), len(self.src)))

    /* vertices with stage info when available */
    for v, t := range self.verts {
        if self.Finalized {
            si := &self.info[v]
            buf = append(buf, fmt.Sprintf("  %s (%s) min=%d max=%d tail=%d", t.Name, t.Gress, si.MinStage, si.MaxStage, si.DepTail))
        } else {
            buf = append(buf, fmt.Sprintf("  %s (%s)", t.Name, t.Gress))
        }
    }

    /* edges, sorted for stable output */
    ee := make([]string, 0, len(self.src))
    for e := range self.src {
        ee = append(ee, self.edgeString(EdgeId(e)))
    }
    sort.Strings(ee)
    buf = append(buf, ee...)
    return strings.Join(buf, "\n")
}

func (self *Graph) edgeString(e EdgeId) string {
    s, d, l := self.Edge(e)
    if f := self.field[e]; f != nil {
        return fmt.Sprintf("  %s -> %s [%s] (%s)", s.Name, d.Name, l, f.Name)
    } else {
        return fmt.Sprintf("  %s -> %s [%s]", s.Name, d.Name, l)
    }
}

// EdgeString renders a single edge for diagnostics.
func (self *Graph) EdgeString(e EdgeId) string {
    return strings.TrimSpace(self.edgeString(e))
}

type _DotNode struct {
    id int64
    t  *ir.Table
    si *StageInfo
}

func (self _DotNode) ID() int64 {
    return self.id
}

func (self _DotNode) DOTID() string {
    return self.t.Name
}

func (self _DotNode) Attributes() []encoding.Attribute {
    ret := []encoding.Attribute {
        { Key: "shape", Value: "box" },
    }
    if self.t.Kind == ir.Gateway {
        ret[0].Value = "diamond"
    }
    if self.si != nil {
        ret = append(ret, encoding.Attribute {
            Key   : "label",
            Value : fmt.Sprintf(`"%s\nstage %d..%d"`, self.t.Name, self.si.MinStage, self.si.MaxStage),
        })
    }
    return ret
}

type _DotLine struct {
    f     _DotNode
    t     _DotNode
    id    int64
    label Label
    field *ir.Field
}

func (self _DotLine) From() graph.Node {
    return self.f
}

func (self _DotLine) To() graph.Node {
    return self.t
}

func (self _DotLine) ID() int64 {
    return self.id
}

func (self _DotLine) ReversedLine() graph.Line {
    return _DotLine { f: self.t, t: self.f, id: self.id, label: self.label, field: self.field }
}

var _EdgeColors = map[Class]string {
    C_control     : "black",
    C_data        : "red",
    C_reductionOr : "gray",
    C_anti        : "blue",
    C_conflict    : "orange",
}

func (self _DotLine) Attributes() []encoding.Attribute {
    text := self.label.String()
    if self.field != nil {
        text += "\\n" + self.field.Name
    }
    ret := []encoding.Attribute {
        { Key: "label", Value: `"` + text + `"` },
        { Key: "color", Value: _EdgeColors[self.label.Class()] },
    }
    if !self.label.IsOrdering() {
        ret = append(ret, encoding.Attribute { Key: "style", Value: "dashed" })
    }
    return ret
}

func (self *Graph) multigraph() *multi.DirectedGraph {
    g := multi.NewDirectedGraph()
    nodes := make([]_DotNode, len(self.verts))

    /* add every table as a node */
    for v, t := range self.verts {
        nodes[v] = _DotNode { id: int64(v), t: t }
        if self.Finalized {
            nodes[v].si = &self.info[v]
        }
        g.AddNode(nodes[v])
    }

    /* add every edge as a line */
    for e := range self.src {
        g.SetLine(_DotLine {
            f     : nodes[self.src[e]],
            t     : nodes[self.dst[e]],
            id    : int64(e),
            label : self.label[e],
            field : self.field[e],
        })
    }
    return g
}

// MarshalDOT exports the graph in the DOT language for graph viewers.
func (self *Graph) MarshalDOT(name string) ([]byte, error) {
    return dot.MarshalMulti(self.multigraph(), name, "", "  ")
}

// Cycles lists the elementary cycles of the graph for diagnostics. It is
// empty for every graph built through AddEdge.
func (self *Graph) Cycles() [][]string {
    var ret [][]string
    for _, c := range topo.DirectedCyclesIn(self.multigraph()) {
        names := make([]string, 0, len(c))
        for _, n := range c {
            names = append(names, n.(_DotNode).t.Name)
        }
        ret = append(ret, names)
    }
    return ret
}
