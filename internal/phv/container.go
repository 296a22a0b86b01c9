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

package phv

import (
	"fmt"

	"github.com/p4lang/tableplace/ir"
)

// Kind is the width class of a container.
type Kind uint8

const (
	B Kind = iota
	H
	W
)

func (self Kind) Size() int {
	switch self {
	case B:
		return 8
	case H:
		return 16
	default:
		return 32
	}
}

func (self Kind) String() string {
	switch self {
	case B:
		return "B"
	case H:
		return "H"
	default:
		return "W"
	}
}

// Container is one physical register of a gress.
type Container struct {
	Gress ir.Gress
	Kind  Kind
	Index int
}

func (self Container) Size() int {
	return self.Kind.Size()
}

func (self Container) String() string {
	return fmt.Sprintf("%c%s%d", self.Gress.String()[0], self.Kind, self.Index)
}

// Alloc places bits [FieldLo, FieldHi] of a field at bit ContLo of a container.
type Alloc struct {
	Container Container
	FieldLo   int
	FieldHi   int
	ContLo    int
}

func (self Alloc) ContHi() int {
	return self.ContLo + self.FieldHi - self.FieldLo
}

// Covers maps the part of s held by this alloc to a container bit range.
func (self Alloc) Covers(s ir.Slice) (lo int, hi int, ok bool) {
	flo, fhi := s.Lo, s.Hi
	if flo < self.FieldLo {
		flo = self.FieldLo
	}
	if fhi > self.FieldHi {
		fhi = self.FieldHi
	}
	if flo > fhi {
		return 0, 0, false
	}
	return self.ContLo + flo - self.FieldLo, self.ContLo + fhi - self.FieldLo, true
}

// Allocation is the view of register allocation used by table placement.
type Allocation interface {
	Slices(f *ir.Field) []Alloc
	FieldsMutex(a *ir.Field, b *ir.Field) bool
	LiveRange(f *ir.Field) (lo int, hi int, ok bool)
	MetadataInits(t *ir.Table) []*ir.Field
	Trivial() bool
}

// ContainerBit identifies one bit, or with Bit/8 one byte, of a container.
type ContainerBit struct {
	Container Container
	Bit       int
}

// Placed returns the containers holding any bit of s.
func Placed(a Allocation, s ir.Slice) []Container {
	var ret []Container
	seen := make(map[Container]bool)
	for _, v := range a.Slices(s.Field) {
		if _, _, ok := v.Covers(s); ok && !seen[v.Container] {
			seen[v.Container] = true
			ret = append(ret, v.Container)
		}
	}
	return ret
}

// Bytes counts the distinct container bytes needed to source every slice,
// which is what the input crossbar has to route.
func Bytes(a Allocation, slices []ir.Slice) int {
	seen := make(map[ContainerBit]bool)
	for _, s := range slices {
		for _, v := range a.Slices(s.Field) {
			if lo, hi, ok := v.Covers(s); ok {
				for b := lo / 8; b <= hi/8; b++ {
					seen[ContainerBit{Container: v.Container, Bit: b * 8}] = true
				}
			}
		}
	}
	return len(seen)
}
