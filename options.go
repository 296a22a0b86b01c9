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

package tableplace

import (
	"fmt"

	"github.com/p4lang/tableplace/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// StageCapacity is the resource budget of one stage.
type StageCapacity = opts.StageCapacity

// Containers is the number of 8, 16 and 32 bit registers of one gress.
type Containers = opts.Containers

// WithStages sets the number of stages of the target pipeline.
//
// The default value of this option is "12", and can also be configured with
// the `TABLEPLACE_STAGES` environment variable.
func WithStages(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("tableplace: invalid stage count: %d", n))
	} else {
		return func(o *opts.Options) { o.Device.Stages = n }
	}
}

// WithStageCapacity sets the resource budget of every stage.
func WithStageCapacity(c StageCapacity) Option {
	if c.SRAM < 0 || c.TCAM < 0 || c.Ixbar < 0 || c.ActionBus < 0 || c.Imem < 0 || c.LogicalIds <= 0 || c.Gateways < 0 {
		panic(fmt.Sprintf("tableplace: invalid stage capacity: %+v", c))
	} else {
		return func(o *opts.Options) { o.Device.Stage = c }
	}
}

// WithContainers sets the register file of every gress.
func WithContainers(c Containers) Option {
	if c.B < 0 || c.H < 0 || c.W < 0 {
		panic(fmt.Sprintf("tableplace: invalid container counts: %+v", c))
	} else {
		return func(o *opts.Options) { o.Device.Phv = c }
	}
}

// WithLongBranch tells whether the target propagates next-table decisions in
// hardware. When it does, control-only next-table constraints are not added.
func WithLongBranch(v bool) Option {
	return func(o *opts.Options) { o.Device.LongBranch = v }
}

// WithSplitTables tells whether splittable tables may span several stages.
//
// The default value of this option is "true".
func WithSplitTables(v bool) Option {
	return func(o *opts.Options) { o.Device.SplitTables = v }
}

// WithMaxLocalBacktracks sets how many times a single placement search may
// redo a stage to make room for a table that cannot wait.
//
// Set this option to "0" disables local backtracking.
//
// The default value of this option is "4", and can also be configured with
// the `TABLEPLACE_MAX_BACKTRACKS` environment variable.
func WithMaxLocalBacktracks(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tableplace: invalid backtrack count: %d", n))
	} else {
		return func(o *opts.Options) { o.Tuning.MaxLocalBacktracks = n }
	}
}

// WithMaxFixups sets how many targeted register-packing fix-ups the
// alternate flow attempts before a full re-placement.
//
// The default value of this option is "3", and can also be configured with
// the `TABLEPLACE_MAX_FIXUPS` environment variable.
func WithMaxFixups(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tableplace: invalid fixup count: %d", n))
	} else {
		return func(o *opts.Options) { o.Tuning.MaxFixups = n }
	}
}

// WithCriticalSlack sets how many stages over the critical path the first
// round may use before a register reallocation is requested.
//
// The default value of this option is "2", and can also be configured with
// the `TABLEPLACE_CRITICAL_SLACK` environment variable.
func WithCriticalSlack(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tableplace: invalid critical slack: %d", n))
	} else {
		return func(o *opts.Options) { o.Tuning.CriticalSlack = n }
	}
}

// WithWorkers sets how many resource trials may run concurrently.
//
// The default value of this option is the number of logical cores, and can
// also be configured with the `TABLEPLACE_WORKERS` environment variable.
func WithWorkers(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("tableplace: invalid worker count: %d", n))
	} else {
		return func(o *opts.Options) { o.Tuning.Workers = n }
	}
}

// WithStageLimit caps the stages one search may explore before giving up.
//
// The default value "0" means four times the device stage count.
func WithStageLimit(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("tableplace: invalid stage limit: %d", n))
	} else {
		return func(o *opts.Options) { o.Tuning.StageLimit = n }
	}
}

// WithPriorityWeights sets the weights of the dependency tail, of the
// tables held back by a table, and of the stage slack in the candidate
// score of the placement search.
func WithPriorityWeights(tail int, downward int, slack int) Option {
	if tail < 0 || downward < 0 || slack < 0 {
		panic(fmt.Sprintf("tableplace: invalid priority weights: %d, %d, %d", tail, downward, slack))
	} else {
		return func(o *opts.Options) {
			o.Tuning.TailWeight = tail
			o.Tuning.DownwardWeight = downward
			o.Tuning.SlackWeight = slack
		}
	}
}

// WithAltFlow selects the alternate coordinator flow, which places against
// an unconstrained register allocation first and then replays the result
// against a real one.
func WithAltFlow(v bool) Option {
	return func(o *opts.Options) { o.Tuning.AltFlow = v }
}

// SetDefaultStages sets the default stage count for all compilations from
// now on.
//
// Returns the old opts.Stages value.
func SetDefaultStages(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("tableplace: invalid stage count: %d", n))
	}
	n, opts.Stages = opts.Stages, n
	return n
}
