/*
 * Copyright 2022 CloudWeGo Authors
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

// Package ir is the program model consumed by table placement: tables, the
// fields they match on and write, and the nested control structure that
// sequences them.
package ir

import (
	"fmt"
	"sort"
)

// Gress is the packet-processing thread a table belongs to.
type Gress uint8

const (
	Ingress Gress = iota
	Egress
	Ghost
	NumGress
)

func (self Gress) String() string {
	switch self {
	case Ingress:
		return "ingress"
	case Egress:
		return "egress"
	case Ghost:
		return "ghost"
	default:
		return fmt.Sprintf("gress(%d)", uint8(self))
	}
}

// Field is a logical header or metadata field.
type Field struct {
	Id          int
	Name        string
	Gress       Gress
	Size        int
	Metadata    bool
	ReductionOr string
}

func (self *Field) String() string {
	return self.Name
}

// Slice is an inclusive bit range [Lo, Hi] of a field.
type Slice struct {
	Field *Field
	Lo    int
	Hi    int
}

// Whole returns the slice covering all bits of f.
func Whole(f *Field) Slice {
	return Slice{Field: f, Lo: 0, Hi: f.Size - 1}
}

func (self Slice) Width() int {
	return self.Hi - self.Lo + 1
}

func (self Slice) Valid() bool {
	return self.Field != nil && self.Lo >= 0 && self.Lo <= self.Hi && self.Hi < self.Field.Size
}

// Overlaps reports whether both slices refer to at least one common bit.
func (self Slice) Overlaps(other Slice) bool {
	return self.Field == other.Field && self.Lo <= other.Hi && other.Lo <= self.Hi
}

func (self Slice) String() string {
	if self.Field == nil {
		return "<nil>"
	} else if self.Lo == 0 && self.Hi == self.Field.Size-1 {
		return self.Field.Name
	} else {
		return fmt.Sprintf("%s[%d:%d]", self.Field.Name, self.Hi, self.Lo)
	}
}

// OperandKind tags the variants of Operand.
type OperandKind uint8

const (
	OperandField OperandKind = iota
	OperandConst
	OperandParam
)

// Operand is an instruction source: a field slice, a constant, or an action
// parameter delivered over the action-data bus.
type Operand struct {
	Kind  OperandKind
	Slice Slice
	Value int64
	Bits  int
}

func FieldOf(s Slice) Operand {
	return Operand{Kind: OperandField, Slice: s}
}

func Const(v int64) Operand {
	return Operand{Kind: OperandConst, Value: v}
}

func Param(bits int) Operand {
	return Operand{Kind: OperandParam, Bits: bits}
}

func (self Operand) String() string {
	switch self.Kind {
	case OperandField:
		return self.Slice.String()
	case OperandConst:
		return fmt.Sprintf("%#x", self.Value)
	case OperandParam:
		return fmt.Sprintf("param<%d>", self.Bits)
	default:
		panic("ir: invalid operand kind")
	}
}

// Instr is one ALU instruction of an action.
type Instr struct {
	Op  string
	Dst Slice
	Src []Operand
}

func (self *Instr) String() string {
	args := ""
	for i, v := range self.Src {
		if i != 0 {
			args += ", "
		}
		args += v.String()
	}
	return fmt.Sprintf("%s %s, %s", self.Op, self.Dst, args)
}

// Action is a named list of instructions. Exit actions stop the gress.
type Action struct {
	Name   string
	Instrs []*Instr
	Exit   bool
}

// Writes returns the destination slices of every instruction.
func (self *Action) Writes() []Slice {
	ret := make([]Slice, 0, len(self.Instrs))
	for _, v := range self.Instrs {
		ret = append(ret, v.Dst)
	}
	return ret
}

// Reads returns every field slice used as an instruction source.
func (self *Action) Reads() []Slice {
	var ret []Slice
	for _, v := range self.Instrs {
		for _, op := range v.Src {
			if op.Kind == OperandField {
				ret = append(ret, op.Slice)
			}
		}
	}
	return ret
}

// ParamBits is the action-data width this action pulls from its table entry.
func (self *Action) ParamBits() int {
	n := 0
	for _, v := range self.Instrs {
		for _, op := range v.Src {
			if op.Kind == OperandParam {
				n += op.Bits
			}
		}
	}
	return n
}

// AttachedKind is the closed set of resources a table can drive.
type AttachedKind uint8

const (
	Counter AttachedKind = iota
	Meter
	Stateful
	Selector
)

func (self AttachedKind) String() string {
	switch self {
	case Counter:
		return "counter"
	case Meter:
		return "meter"
	case Stateful:
		return "stateful"
	case Selector:
		return "selector"
	default:
		return fmt.Sprintf("attached(%d)", uint8(self))
	}
}

// Attached is a counter, meter, stateful ALU or selector driven by a table.
// Inputs are read through the crossbar, Outputs are written back by the ALU.
type Attached struct {
	Name    string
	Kind    AttachedKind
	Entries int
	Inputs  []Slice
	Outputs []Slice
}

// Kind tags the variants of Table.
type Kind uint8

const (
	Match Kind = iota
	Gateway
	AlwaysRun
	Detached
)

func (self Kind) String() string {
	switch self {
	case Match:
		return "match"
	case Gateway:
		return "gateway"
	case AlwaysRun:
		return "always_run"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("kind(%d)", uint8(self))
	}
}

// MatchType selects the memory a match table lives in.
type MatchType uint8

const (
	Exact MatchType = iota
	Ternary
)

const (
	BranchHit          = "$hit"
	BranchMiss         = "$miss"
	BranchTryNextStage = "$try_next_stage"
	BranchTrue         = "$true"
	BranchFalse        = "$false"
	BranchDefault      = "$default"
)

const (
	NoStage = -1
)

// Table is a match table, a gateway condition, an always-run action or a
// detached attached-resource access. Keys are the match key of a match table
// and the condition inputs of a gateway. ReductionOr names the reduction-or
// group whose fields the table's "or" instructions accumulate into.
type Table struct {
	Id              int
	Name            string
	Gress           Gress
	Kind            Kind
	Match           MatchType
	Keys            []Slice
	Entries         int
	Actions         []*Action
	Attached        []*Attached
	Next            map[string]*Sequence
	StagePragma     int
	SeparateGateway bool
	Splittable      bool
	Group           string
	ReductionOr     string
	Order           int
	Stage           int
	LogicalId       int
}

func (self *Table) String() string {
	return self.Name
}

func (self *Table) HasBranches() bool {
	for _, s := range self.Next {
		if s != nil {
			return true
		}
	}
	return false
}

// BranchKeys returns the next-table keys in a stable order.
func (self *Table) BranchKeys() []string {
	ret := make([]string, 0, len(self.Next))
	for k := range self.Next {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func (self *Table) Action(name string) *Action {
	for _, v := range self.Actions {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (self *Table) HasExit() bool {
	for _, v := range self.Actions {
		if v.Exit {
			return true
		}
	}
	return false
}

// IsAlwaysRun reports whether the table executes unconditionally for every packet.
func (self *Table) IsAlwaysRun() bool {
	return self.Kind == AlwaysRun
}

// Sequence is an ordered list of tables applied one after another.
type Sequence struct {
	Tables []*Table
}

func Seq(tables ...*Table) *Sequence {
	return &Sequence{Tables: tables}
}

func (self *Sequence) Empty() bool {
	return self == nil || len(self.Tables) == 0
}

// Pipe is the top-level control of one gress.
type Pipe struct {
	Gress Gress
	Root  *Sequence
}
