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

// Package resources models the per-stage budget of the pipeline and the
// footprint each table takes out of it.
package resources

import (
	"fmt"

	"github.com/p4lang/tableplace/internal/opts"
)

// Usage is an amount of every per-stage resource.
type Usage struct {
	SRAM       int
	TCAM       int
	Ixbar      int
	ActionBus  int
	Imem       int
	LogicalIds int
	Gateways   int
}

func (self Usage) Add(other Usage) Usage {
	return Usage{
		SRAM:       self.SRAM + other.SRAM,
		TCAM:       self.TCAM + other.TCAM,
		Ixbar:      self.Ixbar + other.Ixbar,
		ActionBus:  self.ActionBus + other.ActionBus,
		Imem:       self.Imem + other.Imem,
		LogicalIds: self.LogicalIds + other.LogicalIds,
		Gateways:   self.Gateways + other.Gateways,
	}
}

func (self Usage) Sub(other Usage) Usage {
	return Usage{
		SRAM:       self.SRAM - other.SRAM,
		TCAM:       self.TCAM - other.TCAM,
		Ixbar:      self.Ixbar - other.Ixbar,
		ActionBus:  self.ActionBus - other.ActionBus,
		Imem:       self.Imem - other.Imem,
		LogicalIds: self.LogicalIds - other.LogicalIds,
		Gateways:   self.Gateways - other.Gateways,
	}
}

// Exceeds returns the name of the first resource over capacity, or an empty
// string if the usage fits.
func (self Usage) Exceeds(cap opts.StageCapacity) string {
	switch {
	case self.SRAM > cap.SRAM:
		return "sram"
	case self.TCAM > cap.TCAM:
		return "tcam"
	case self.Ixbar > cap.Ixbar:
		return "ixbar"
	case self.ActionBus > cap.ActionBus:
		return "action bus"
	case self.Imem > cap.Imem:
		return "imem"
	case self.LogicalIds > cap.LogicalIds:
		return "logical ids"
	case self.Gateways > cap.Gateways:
		return "gateways"
	default:
		return ""
	}
}

func (self Usage) Fits(cap opts.StageCapacity) bool {
	return self.Exceeds(cap) == ""
}

// Memory is the number of memory blocks of either kind.
func (self Usage) Memory() int {
	return self.SRAM + self.TCAM
}

// Cost is the largest share of any resource, in percent of the capacity.
func (self Usage) Cost(cap opts.StageCapacity) int {
	ret := 0
	for _, v := range [...][2]int{
		{self.SRAM, cap.SRAM},
		{self.TCAM, cap.TCAM},
		{self.Ixbar, cap.Ixbar},
		{self.ActionBus, cap.ActionBus},
		{self.Imem, cap.Imem},
		{self.LogicalIds, cap.LogicalIds},
		{self.Gateways, cap.Gateways},
	} {
		if v[1] > 0 {
			if p := v[0] * 100 / v[1]; p > ret {
				ret = p
			}
		} else if v[0] > 0 {
			return 100
		}
	}
	return ret
}

func (self Usage) String() string {
	return fmt.Sprintf(
		"sram=%d tcam=%d ixbar=%d adb=%d imem=%d ids=%d gw=%d",
		self.SRAM,
		self.TCAM,
		self.Ixbar,
		self.ActionBus,
		self.Imem,
		self.LogicalIds,
		self.Gateways,
	)
}
