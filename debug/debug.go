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
	"sync/atomic"

	"github.com/p4lang/tableplace/internal/backtrack"
	"github.com/p4lang/tableplace/internal/deps"
	"github.com/p4lang/tableplace/internal/placement"
)

// A Stats records statistics about the placement engine since process start.
type Stats struct {
	Coordinator CoordinatorStats
	Placement   PlacementStats
	Analysis    AnalysisStats
}

// A CoordinatorStats records how often the retry state machine moved.
type CoordinatorStats struct {
	Rounds      int
	Transitions int
}

// A PlacementStats records the work done by the stage search.
type PlacementStats struct {
	Searches   int
	Backtracks int
}

// An AnalysisStats records how many dependency analyses were built.
type AnalysisStats struct {
	Builds int
}

// GetStats returns statistics of the placement engine.
func GetStats() Stats {
	return Stats{
		Coordinator: CoordinatorStats{
			Rounds:      int(atomic.LoadUint64(&backtrack.RoundCount)),
			Transitions: int(atomic.LoadUint64(&backtrack.TransitionCount)),
		},
		Placement: PlacementStats{
			Searches:   int(atomic.LoadUint64(&placement.SearchCount)),
			Backtracks: int(atomic.LoadUint64(&placement.BacktrackCount)),
		},
		Analysis: AnalysisStats{
			Builds: int(atomic.LoadUint64(&deps.BuildCount)),
		},
	}
}
