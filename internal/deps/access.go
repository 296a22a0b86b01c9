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
    `golang.org/x/exp/maps`
    `golang.org/x/exp/slices`

    `github.com/p4lang/tableplace/internal/flow`
    `github.com/p4lang/tableplace/internal/phv`
    `github.com/p4lang/tableplace/ir`
)

type _Use uint8

const (
    u_ixbar _Use = iota
    u_action
    u_write
    u_roRead
    u_roWrite
)

func (self _Use) reads() bool {
    return self == u_ixbar || self == u_action || self == u_roRead
}

func (self _Use) writes() bool {
    return self == u_write || self == u_roWrite
}

// _Touch is one access of a table to a bit range of a field.
type _Touch struct {
    Table int
    Field int
    Lo    int
    Hi    int
    Use   _Use
}

func (self _Touch) overlaps(other _Touch) bool {
    return self.Field == other.Field && self.Lo <= other.Hi && other.Lo <= self.Hi
}

// _ContWrite is a write of a table into a bit range of a container.
type _ContWrite struct {
    Table int
    Field int
    Cont  phv.Container
    Lo    int
    Hi    int
}

func (self _ContWrite) overlaps(other _ContWrite) bool {
    return self.Cont == other.Cont && self.Lo <= other.Hi && other.Lo <= self.Hi
}

// _Access is the set of accesses that may have happened before a point of
// the control flow. Merging is set union, nothing is ever killed.
type _Access struct {
    fields map[_Touch]bool
    conts  map[_ContWrite]bool
}

func newAccess() *_Access {
    return &_Access {
        fields : make(map[_Touch]bool),
        conts  : make(map[_ContWrite]bool),
    }
}

func (self *_Access) Clone() flow.Value {
    ret := &_Access {
        fields : make(map[_Touch]bool, len(self.fields)),
        conts  : make(map[_ContWrite]bool, len(self.conts)),
    }
    for k := range self.fields {
        ret.fields[k] = true
    }
    for k := range self.conts {
        ret.conts[k] = true
    }
    return ret
}

func (self *_Access) Merge(other flow.Value) {
    v := other.(*_Access)
    for k := range v.fields {
        self.fields[k] = true
    }
    for k := range v.conts {
        self.conts[k] = true
    }
}

func (self *_Access) Equal(other flow.Value) bool {
    v := other.(*_Access)
    if len(self.fields) != len(v.fields) || len(self.conts) != len(v.conts) {
        return false
    }
    for k := range v.fields {
        if !self.fields[k] {
            return false
        }
    }
    for k := range v.conts {
        if !self.conts[k] {
            return false
        }
    }
    return true
}

// touches returns the field accesses in a stable order.
func (self *_Access) touches() []_Touch {
    ret := maps.Keys(self.fields)
    slices.SortFunc(ret, func(a _Touch, b _Touch) bool {
        switch {
            case a.Table != b.Table : return a.Table < b.Table
            case a.Field != b.Field : return a.Field < b.Field
            case a.Lo != b.Lo       : return a.Lo < b.Lo
            case a.Hi != b.Hi       : return a.Hi < b.Hi
            default                 : return a.Use < b.Use
        }
    })
    return ret
}

func (self *_Access) contWrites() []_ContWrite {
    ret := maps.Keys(self.conts)
    slices.SortFunc(ret, func(a _ContWrite, b _ContWrite) bool {
        switch {
            case a.Table != b.Table                 : return a.Table < b.Table
            case a.Field != b.Field                 : return a.Field < b.Field
            case a.Cont.Gress != b.Cont.Gress       : return a.Cont.Gress < b.Cont.Gress
            case a.Cont.Kind != b.Cont.Kind         : return a.Cont.Kind < b.Cont.Kind
            case a.Cont.Index != b.Cont.Index       : return a.Cont.Index < b.Cont.Index
            default                                 : return a.Lo < b.Lo
        }
    })
    return ret
}

// isReductionOr reports whether the instruction ORs a value into a field of
// the reduction-or group t belongs to, reading the destination back. The
// same instruction in a table outside the group is a plain write.
func isReductionOr(t *ir.Table, ins *ir.Instr) bool {
    if ins.Op != "or" || ins.Dst.Field == nil || ins.Dst.Field.ReductionOr == "" {
        return false
    }
    if t.ReductionOr != ins.Dst.Field.ReductionOr {
        return false
    }
    for _, op := range ins.Src {
        if op.Kind == ir.OperandField && op.Slice.Overlaps(ins.Dst) {
            return true
        }
    }
    return false
}

func touch(t *ir.Table, s ir.Slice, use _Use) _Touch {
    return _Touch {
        Table : t.Id,
        Field : s.Field.Id,
        Lo    : s.Lo,
        Hi    : s.Hi,
        Use   : use,
    }
}

// touchesOf lists every access of t: match keys and attached inputs are read
// through the crossbar, instruction sources by the ALU. Fields initialized by
// the register allocator count as written by t.
func touchesOf(t *ir.Table, inits []*ir.Field) []_Touch {
    var ret []_Touch
    for _, k := range t.Keys {
        ret = append(ret, touch(t, k, u_ixbar))
    }

    /* attached resources */
    for _, r := range t.Attached {
        for _, s := range r.Inputs {
            ret = append(ret, touch(t, s, u_ixbar))
        }
        for _, s := range r.Outputs {
            ret = append(ret, touch(t, s, u_write))
        }
    }

    /* action instructions */
    for _, act := range t.Actions {
        for _, ins := range act.Instrs {
            ro := isReductionOr(t, ins)
            for _, op := range ins.Src {
                if op.Kind != ir.OperandField {
                    continue
                } else if ro && op.Slice.Overlaps(ins.Dst) {
                    ret = append(ret, touch(t, op.Slice, u_roRead))
                } else {
                    ret = append(ret, touch(t, op.Slice, u_action))
                }
            }
            if ro {
                ret = append(ret, touch(t, ins.Dst, u_roWrite))
            } else {
                ret = append(ret, touch(t, ins.Dst, u_write))
            }
        }
    }

    /* injected metadata initialization */
    for _, f := range inits {
        ret = append(ret, touch(t, ir.Whole(f), u_write))
    }
    return ret
}
