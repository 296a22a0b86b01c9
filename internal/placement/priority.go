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

package placement

import (
	"github.com/p4lang/tableplace/internal/resources"
	"github.com/p4lang/tableplace/ir"
)

// _Priority orders the candidates of a stage. Pinned tables come first,
// then tables whose group partner already sits in the stage, then the
// weighted score, the cheaper layout and finally the name.
type _Priority struct {
	pin    int
	group  bool
	score  int
	cost   int
	name   string
}

func (self _Priority) before(other _Priority) bool {
	switch {
	case self.pin != other.pin:
		return self.pin != 0 && (other.pin == 0 || self.pin < other.pin)
	case self.group != other.group:
		return self.group
	case self.score != other.score:
		return self.score > other.score
	case self.cost != other.cost:
		return self.cost < other.cost
	default:
		return self.name < other.name
	}
}

func (self *Search) priority(t *ir.Table, s int, tr resources.Trial) _Priority {
	tu := self.opts.Tuning
	slack := self.a.MaxStage(t) - s
	if slack < 0 {
		slack = 0
	}
	pin := 0
	if p, ok := self.pins[t.Id]; ok && p.stage == s {
		pin = p.seq
	}
	return _Priority{
		pin:    pin,
		group:  self.partnerIn(t, s),
		score:  self.a.DepTail(t)*tu.TailWeight + self.downward(t)*tu.DownwardWeight - slack*tu.SlackWeight,
		cost:   tr.Usage.Cost(self.model.Cap),
		name:   t.Name,
	}
}

// downward counts the unplaced tables whose execution hinges on t. Leaving
// t out of the stage holds all of them back as well.
func (self *Search) downward(t *ir.Table) int {
	n := 0
	for _, u := range self.a.Flow.ControlDomSet(t) {
		if _, ok := self.st.done[u.Id]; !ok && u != t {
			n++
		}
	}
	return n
}

// partnerIn reports whether a table of the same group is already in s.
func (self *Search) partnerIn(t *ir.Table, s int) bool {
	if t.Group == "" {
		return false
	}
	for i := len(self.st.records) - 1; i >= 0 && self.st.records[i].Stage == s; i-- {
		if u := self.st.records[i].Table; u != t && u.Group == t.Group {
			return true
		}
	}
	return false
}
