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

package debug

import (
	"testing"

	"github.com/p4lang/tableplace"
	"github.com/p4lang/tableplace/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats(t *testing.T) {
	p := ir.NewProgram("stats")
	k := p.NewField("k", ir.Ingress, 8)
	f := p.NewField("f", ir.Ingress, 8)
	a := p.NewTable("A", ir.Ingress, ir.Match).WithKeys(ir.Whole(k)).WithActions(ir.NewAction("x", ir.Set(ir.Whole(f), ir.Param(8))))
	b := p.NewTable("B", ir.Ingress, ir.Match).WithKeys(ir.Whole(f))
	p.AddPipe(ir.Ingress, a, b)

	old := GetStats()
	_, err := tableplace.Compile(p)
	require.NoError(t, err)
	cur := GetStats()
	assert.Greater(t, cur.Coordinator.Rounds, old.Coordinator.Rounds)
	assert.Greater(t, cur.Coordinator.Transitions, old.Coordinator.Transitions)
	assert.Greater(t, cur.Placement.Searches, old.Placement.Searches)
	assert.Greater(t, cur.Analysis.Builds, old.Analysis.Builds)
	assert.GreaterOrEqual(t, cur.Placement.Backtracks, old.Placement.Backtracks)
}
