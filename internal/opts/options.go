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

// StageCapacity is the resource budget of a single stage.
type StageCapacity struct {
	SRAM       int
	TCAM       int
	Ixbar      int
	ActionBus  int
	Imem       int
	LogicalIds int
	Gateways   int
}

// Containers is the number of 8, 16 and 32 bit PHV containers of one gress.
type Containers struct {
	B int
	H int
	W int
}

// Device describes the target pipeline.
type Device struct {
	Stages      int
	Stage       StageCapacity
	Phv         Containers
	LongBranch  bool
	SplitTables bool
}

// Tuning holds the search and retry constants.
type Tuning struct {
	MaxLocalBacktracks int
	MaxFixups          int
	CriticalSlack      int
	Workers            int
	StageLimit         int
	TailWeight         int
	DownwardWeight     int
	SlackWeight        int
	AltFlow            bool
}

type Options struct {
	Device Device
	Tuning Tuning
}

// Limit is the number of stages a single search may explore.
func (self *Options) Limit() int {
	if self.Tuning.StageLimit > 0 {
		return self.Tuning.StageLimit
	} else {
		return self.Device.Stages * 4
	}
}

func DefaultDevice() Device {
	return Device{
		Stages: Stages,
		Stage: StageCapacity{
			SRAM:       80,
			TCAM:       24,
			Ixbar:      128,
			ActionBus:  128,
			Imem:       32,
			LogicalIds: 16,
			Gateways:   16,
		},
		Phv: Containers{
			B: 64,
			H: 96,
			W: 64,
		},
		SplitTables: true,
	}
}

func GetDefaultOptions() Options {
	return Options{
		Device: DefaultDevice(),
		Tuning: Tuning{
			MaxLocalBacktracks: MaxBacktracks,
			MaxFixups:          MaxFixups,
			CriticalSlack:      CriticalSlack,
			Workers:            Workers,
			TailWeight:         4,
			DownwardWeight:     1,
			SlackWeight:        8,
		},
	}
}
