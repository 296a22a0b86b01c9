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

import (
	"fmt"
)

// Program is one compilation unit. It owns every table and field and is
// passed explicitly to each pass; Reset clears the per-round placement state.
type Program struct {
	Name   string
	Pipes  []*Pipe
	tables []*Table
	fields []*Field
	tabmap map[string]*Table
	fldmap map[string]*Field
	mutex  map[[2]int]bool
}

func NewProgram(name string) *Program {
	return &Program{
		Name:   name,
		tabmap: make(map[string]*Table),
		fldmap: make(map[string]*Field),
		mutex:  make(map[[2]int]bool),
	}
}

// NewField registers a packet header field.
func (self *Program) NewField(name string, gress Gress, size int) *Field {
	if size <= 0 {
		panic(fmt.Sprintf("ir: invalid size %d for field %s", size, name))
	}
	if _, ok := self.fldmap[name]; ok {
		panic("ir: duplicated field " + name)
	}
	f := &Field{
		Id:    len(self.fields),
		Name:  name,
		Gress: gress,
		Size:  size,
	}
	self.fields = append(self.fields, f)
	self.fldmap[name] = f
	return f
}

// NewMetadata registers a metadata field.
func (self *Program) NewMetadata(name string, gress Gress, size int) *Field {
	f := self.NewField(name, gress, size)
	f.Metadata = true
	return f
}

// NewTable registers a table of the given kind. Match tables default to 512
// exact-match entries.
func (self *Program) NewTable(name string, gress Gress, kind Kind) *Table {
	if _, ok := self.tabmap[name]; ok {
		panic("ir: duplicated table " + name)
	}
	t := &Table{
		Id:          len(self.tables),
		Name:        name,
		Gress:       gress,
		Kind:        kind,
		Next:        make(map[string]*Sequence),
		StagePragma: NoStage,
		Stage:       NoStage,
		LogicalId:   -1,
	}
	if kind == Match {
		t.Entries = 512
	}
	self.tables = append(self.tables, t)
	self.tabmap[name] = t
	return t
}

// AddPipe sets the top-level control sequence of a gress.
func (self *Program) AddPipe(gress Gress, tables ...*Table) *Pipe {
	for _, p := range self.Pipes {
		if p.Gress == gress {
			panic("ir: duplicated pipe for " + gress.String())
		}
	}
	p := &Pipe{Gress: gress, Root: Seq(tables...)}
	self.Pipes = append(self.Pipes, p)
	return p
}

func (self *Program) Pipe(gress Gress) *Pipe {
	for _, p := range self.Pipes {
		if p.Gress == gress {
			return p
		}
	}
	return nil
}

func (self *Program) Table(name string) *Table {
	return self.tabmap[name]
}

func (self *Program) Field(name string) *Field {
	return self.fldmap[name]
}

// Tables returns every table ordered by id.
func (self *Program) Tables() []*Table {
	return self.tables
}

func (self *Program) Fields() []*Field {
	return self.fields
}

func (self *Program) NumTables() int {
	return len(self.tables)
}

func mutexKey(a *Field, b *Field) [2]int {
	if a.Id > b.Id {
		a, b = b, a
	}
	return [2]int{a.Id, b.Id}
}

// DeclareMutex records that two fields are never live at the same time.
func (self *Program) DeclareMutex(a *Field, b *Field) {
	if a != b {
		self.mutex[mutexKey(a, b)] = true
	}
}

func (self *Program) FieldsMutex(a *Field, b *Field) bool {
	return a != b && self.mutex[mutexKey(a, b)]
}

// Reset clears the stage and logical id assigned by a previous round.
func (self *Program) Reset() {
	for _, t := range self.tables {
		t.Stage = NoStage
		t.LogicalId = -1
	}
}

// Validate checks the structural rules placement relies on.
func (self *Program) Validate() error {
	for _, t := range self.tables {
		if err := self.validateTable(t); err != nil {
			return err
		}
	}
	for _, p := range self.Pipes {
		for _, t := range p.Root.Tables {
			if t.Gress != p.Gress {
				return fmt.Errorf("ir: table %s (%s) applied in %s pipe", t.Name, t.Gress, p.Gress)
			}
		}
	}
	return nil
}

func (self *Program) validateTable(t *Table) error {
	check := func(s Slice, what string) error {
		if !s.Valid() {
			return fmt.Errorf("ir: table %s has invalid %s slice %s", t.Name, what, s)
		} else if s.Field.Gress != t.Gress {
			return fmt.Errorf("ir: table %s (%s) references %s field %s", t.Name, t.Gress, s.Field.Gress, s.Field.Name)
		} else {
			return nil
		}
	}

	/* keys and condition inputs */
	for _, k := range t.Keys {
		if err := check(k, "key"); err != nil {
			return err
		}
	}

	/* instruction operands */
	for _, a := range t.Actions {
		for _, s := range a.Writes() {
			if err := check(s, "destination"); err != nil {
				return err
			}
		}
		for _, s := range a.Reads() {
			if err := check(s, "source"); err != nil {
				return err
			}
		}
	}

	/* branch keys must suit the table kind */
	for k, s := range t.Next {
		if err := checkBranch(t, k); err != nil {
			return err
		}
		for _, n := range s.Tables {
			if n.Gress != t.Gress {
				return fmt.Errorf("ir: table %s branches to %s table %s", t.Name, n.Gress, n.Name)
			}
		}
	}
	if t.Kind == AlwaysRun && len(t.Next) != 0 {
		return fmt.Errorf("ir: always-run table %s cannot have next tables", t.Name)
	}
	return nil
}

func checkBranch(t *Table, key string) error {
	switch key {
	case BranchTrue, BranchFalse:
		if t.Kind != Gateway {
			return fmt.Errorf("ir: branch %s on non-gateway table %s", key, t.Name)
		}
	case BranchHit, BranchMiss, BranchTryNextStage:
		if t.Kind != Match {
			return fmt.Errorf("ir: branch %s on non-match table %s", key, t.Name)
		}
	case BranchDefault:
		break
	default:
		if t.Action(key) == nil {
			return fmt.Errorf("ir: branch %s of table %s names no action", key, t.Name)
		}
	}
	return nil
}
