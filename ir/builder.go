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

package ir

// Chained setters used when building programs by hand.

func (self *Table) WithKeys(keys ...Slice) *Table {
	self.Keys = append(self.Keys, keys...)
	return self
}

func (self *Table) WithActions(actions ...*Action) *Table {
	self.Actions = append(self.Actions, actions...)
	return self
}

func (self *Table) WithAttached(res ...*Attached) *Table {
	self.Attached = append(self.Attached, res...)
	return self
}

func (self *Table) WithEntries(n int) *Table {
	self.Entries = n
	return self
}

func (self *Table) WithMatch(m MatchType) *Table {
	self.Match = m
	return self
}

func (self *Table) WithStage(stage int) *Table {
	self.StagePragma = stage
	return self
}

func (self *Table) WithGroup(group string) *Table {
	self.Group = group
	return self
}

// WithReductionOr makes t a member of a reduction-or group.
func (self *Table) WithReductionOr(group string) *Table {
	self.ReductionOr = group
	return self
}

func (self *Table) WithOrder(order int) *Table {
	self.Order = order
	return self
}

func (self *Table) Split() *Table {
	self.Splittable = true
	return self
}

// On sets the tables applied when branch key fires.
func (self *Table) On(key string, tables ...*Table) *Table {
	self.Next[key] = Seq(tables...)
	return self
}

func NewAction(name string, instrs ...*Instr) *Action {
	return &Action{Name: name, Instrs: instrs}
}

func ExitAction(name string, instrs ...*Instr) *Action {
	return &Action{Name: name, Instrs: instrs, Exit: true}
}

func Set(dst Slice, src Operand) *Instr {
	return &Instr{Op: "set", Dst: dst, Src: []Operand{src}}
}

func Add(dst Slice, a Operand, b Operand) *Instr {
	return &Instr{Op: "add", Dst: dst, Src: []Operand{a, b}}
}

func Or(dst Slice, a Operand, b Operand) *Instr {
	return &Instr{Op: "or", Dst: dst, Src: []Operand{a, b}}
}

func (self *Field) Bits(lo int, hi int) Slice {
	return Slice{Field: self, Lo: lo, Hi: hi}
}
