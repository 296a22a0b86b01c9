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

package opts

import (
	"os"
	"strconv"

	"github.com/klauspost/cpuid/v2"
)

const (
	_DefaultStages        = 12 // stages per pipe
	_DefaultMaxBacktracks = 4  // local backtrack points per placement search
	_DefaultMaxFixups     = 3  // targeted register-packing fix-ups in the alternate flow
	_DefaultCriticalSlack = 2  // stages above the critical path accepted without a PHV redo
)

var (
	Stages        = parseOrDefault("TABLEPLACE_STAGES", _DefaultStages, 1)
	MaxBacktracks = parseOrDefault("TABLEPLACE_MAX_BACKTRACKS", _DefaultMaxBacktracks, 0)
	MaxFixups     = parseOrDefault("TABLEPLACE_MAX_FIXUPS", _DefaultMaxFixups, 0)
	CriticalSlack = parseOrDefault("TABLEPLACE_CRITICAL_SLACK", _DefaultCriticalSlack, 0)
	Workers       = parseOrDefault("TABLEPLACE_WORKERS", defaultWorkers(), 1)
)

func defaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	} else {
		return 1
	}
}

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("tableplace: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("tableplace: value too small for " + key)
	} else {
		return ret
	}
}
