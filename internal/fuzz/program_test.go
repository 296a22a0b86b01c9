// Copyright 2022 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fuzz

import (
	"testing"

	"github.com/p4lang/tableplace/ir"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Valid(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		p := NewGenerator(seed, DefaultShape).Program()
		require.NoError(t, p.Validate(), "seed %d", seed)
		require.NotEmpty(t, p.Tables())
		require.NotNil(t, p.Pipe(p.Tables()[0].Gress))
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(7, DefaultShape).Program()
	b := NewGenerator(7, DefaultShape).Program()
	require.Equal(t, len(a.Tables()), len(b.Tables()))
	for i := range a.Tables() {
		require.Equal(t, a.Tables()[i].Name, b.Tables()[i].Name)
		require.Equal(t, a.Tables()[i].BranchKeys(), b.Tables()[i].BranchKeys())
	}
}

func occurrences(s *ir.Sequence, n map[int]int) {
	if s == nil {
		return
	}
	for _, t := range s.Tables {
		n[t.Id]++
		for _, k := range t.BranchKeys() {
			occurrences(t.Next[k], n)
		}
	}
}

func TestGenerator_SharedTables(t *testing.T) {
	shape := DefaultShape
	shape.ShareRatio = 1
	shared := 0
	for seed := int64(0); seed < 50; seed++ {
		p := NewGenerator(seed, shape).Program()
		require.NoError(t, p.Validate(), "seed %d", seed)
		n := make(map[int]int)
		for _, pp := range p.Pipes {
			occurrences(pp.Root, n)
		}
		for _, v := range n {
			if v > 1 {
				shared++
			}
		}
	}
	require.NotZero(t, shared)
}
