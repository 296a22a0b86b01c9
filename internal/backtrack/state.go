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

// Package backtrack drives the rounds of dependency analysis, register
// allocation and table placement until a placement fits the device or every
// retry has been used up.
package backtrack

import (
	"fmt"

	"github.com/p4lang/tableplace/internal/phv"
	"github.com/p4lang/tableplace/internal/placement"
	"github.com/p4lang/tableplace/ir"
)

// State is a node of the coordinator state machine.
type State uint8

const (
	Initial State = iota
	NoccTry1
	RedoPhv1
	NoccTry2
	RedoPhv2
	FinalPlacement
	Success
	Failure
	AltInitial
	AltRetryEnhancedTP
	AltFinalizeTableSameOrder
	AltFinalizeTableSameOrderTableFixed
	AltFinalizeTable
	NumStates
)

var _StateNames = [NumStates]string{
	Initial:                             "INITIAL",
	NoccTry1:                            "NOCC_TRY1",
	RedoPhv1:                            "REDO_PHV1",
	NoccTry2:                            "NOCC_TRY2",
	RedoPhv2:                            "REDO_PHV2",
	FinalPlacement:                      "FINAL_PLACEMENT",
	Success:                             "SUCCESS",
	Failure:                             "FAILURE",
	AltInitial:                          "ALT_INITIAL",
	AltRetryEnhancedTP:                  "ALT_RETRY_ENHANCED_TP",
	AltFinalizeTableSameOrder:           "ALT_FINALIZE_TABLE_SAME_ORDER",
	AltFinalizeTableSameOrderTableFixed: "ALT_FINALIZE_TABLE_SAME_ORDER_TABLE_FIXED",
	AltFinalizeTable:                    "ALT_FINALIZE_TABLE",
}

func (self State) String() string {
	if self < NumStates {
		return _StateNames[self]
	} else {
		return fmt.Sprintf("State(%d)", uint8(self))
	}
}

func (self State) Terminal() bool {
	return self == Success || self == Failure
}

// RetryKind says why a round did not produce a usable placement.
type RetryKind uint8

const (
	// RetryIgnoreConflicts follows a hard placement error.
	RetryIgnoreConflicts RetryKind = iota

	// RetryRedoPhv asks for a register allocation that packs around the
	// table stages found so far.
	RetryRedoPhv

	// RetryReplay asks to confirm a trivial-allocation placement under a
	// real allocation.
	RetryReplay

	// RetryFixup follows a replay mismatch with a targeted packing
	// constraint on one table.
	RetryFixup
)

func (self RetryKind) String() string {
	switch self {
	case RetryIgnoreConflicts:
		return "ignore-conflicts"
	case RetryRedoPhv:
		return "redo-phv"
	case RetryReplay:
		return "replay"
	case RetryFixup:
		return "fixup"
	default:
		return fmt.Sprintf("RetryKind(%d)", uint8(self))
	}
}

// RetryRequest describes how the next round should differ.
type RetryRequest struct {
	Kind        RetryKind
	Constraints phv.Constraints
	Table       *ir.Table
	Cause       error
}

func (self *RetryRequest) String() string {
	msg := self.Kind.String()
	if self.Table != nil {
		msg += " " + self.Table.Name
	}
	if self.Cause != nil {
		msg += ": " + self.Cause.Error()
	}
	return msg
}

// Outcome is the result of one round: either a placement good enough to
// finish with, or a retry request. Exactly one of the two is set.
type Outcome struct {
	Placement *placement.Placement
	Retry     *RetryRequest
}

// MaxTransitions bounds the length of any run of the state machine.
func MaxTransitions(maxFixups int) int {
	return 6 + maxFixups
}

// Next is the transition function. fixups is the number of targeted
// fix-ups already taken.
func Next(s State, out Outcome, fixups int, maxFixups int) State {
	if s.Terminal() {
		panic("backtrack: transition out of terminal state " + s.String())
	}
	if out.Retry == nil {
		switch s {
		case NoccTry1:
			return RedoPhv1
		case NoccTry2:
			return RedoPhv2
		case AltInitial, AltRetryEnhancedTP:
			return AltFinalizeTableSameOrder
		default:
			return Success
		}
	}
	k := out.Retry.Kind
	switch s {
	case Initial:
		if k == RetryIgnoreConflicts {
			return NoccTry1
		} else {
			return RedoPhv1
		}
	case NoccTry1:
		if k == RetryIgnoreConflicts {
			return Failure
		} else {
			return RedoPhv1
		}
	case RedoPhv1:
		return NoccTry2
	case NoccTry2:
		if k == RetryIgnoreConflicts {
			return Failure
		} else {
			return RedoPhv2
		}
	case RedoPhv2:
		return FinalPlacement
	case FinalPlacement:
		return Failure
	case AltInitial:
		if k == RetryReplay {
			return AltFinalizeTableSameOrder
		} else {
			return AltRetryEnhancedTP
		}
	case AltRetryEnhancedTP:
		if k == RetryReplay {
			return AltFinalizeTableSameOrder
		} else {
			return Failure
		}
	case AltFinalizeTableSameOrder, AltFinalizeTableSameOrderTableFixed:
		if k == RetryFixup && fixups < maxFixups {
			return AltFinalizeTableSameOrderTableFixed
		} else {
			return AltFinalizeTable
		}
	case AltFinalizeTable:
		return Failure
	default:
		panic("backtrack: invalid state " + s.String())
	}
}
