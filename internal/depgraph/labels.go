/*
 * Copyright 2022 ByteDance Inc.
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

package depgraph

import (
    `fmt`
)

// Label tags a dependency edge.
type Label uint8

const (
    ControlAction Label = iota
    ControlCondTrue
    ControlCondFalse
    ControlTableHit
    ControlTableMiss
    ControlDefaultNextTable
    ControlExit
    IxbarRead
    ActionRead
    Output
    ReductionOrRead
    ReductionOrOutput
    AntiExit
    AntiTableRead
    AntiActionRead
    AntiNextTableData
    AntiNextTableControl
    AntiNextTableMetadata
    ContConflict
    NumLabels
)

var _LabelNames = [NumLabels]string {
    ControlAction           : "CONTROL_ACTION",
    ControlCondTrue         : "CONTROL_COND_TRUE",
    ControlCondFalse        : "CONTROL_COND_FALSE",
    ControlTableHit         : "CONTROL_TABLE_HIT",
    ControlTableMiss        : "CONTROL_TABLE_MISS",
    ControlDefaultNextTable : "CONTROL_DEFAULT_NEXT_TABLE",
    ControlExit             : "CONTROL_EXIT",
    IxbarRead               : "IXBAR_READ",
    ActionRead              : "ACTION_READ",
    Output                  : "OUTPUT",
    ReductionOrRead         : "REDUCTION_OR_READ",
    ReductionOrOutput       : "REDUCTION_OR_OUTPUT",
    AntiExit                : "ANTI_EXIT",
    AntiTableRead           : "ANTI_TABLE_READ",
    AntiActionRead          : "ANTI_ACTION_READ",
    AntiNextTableData       : "ANTI_NEXT_TABLE_DATA",
    AntiNextTableControl    : "ANTI_NEXT_TABLE_CONTROL",
    AntiNextTableMetadata   : "ANTI_NEXT_TABLE_METADATA",
    ContConflict            : "CONT_CONFLICT",
}

func (self Label) String() string {
    if self < NumLabels {
        return _LabelNames[self]
    } else {
        return fmt.Sprintf("Label(%d)", uint8(self))
    }
}

// Class groups labels by how they constrain placement.
type Class uint8

const (
    C_control Class = iota
    C_data
    C_reductionOr
    C_anti
    C_conflict
)

func (self Label) Class() Class {
    switch self {
        case ControlAction, ControlCondTrue, ControlCondFalse, ControlTableHit, ControlTableMiss, ControlDefaultNextTable, ControlExit:
            return C_control
        case IxbarRead, ActionRead, Output:
            return C_data
        case ReductionOrRead, ReductionOrOutput:
            return C_reductionOr
        case AntiExit, AntiTableRead, AntiActionRead, AntiNextTableData, AntiNextTableControl, AntiNextTableMetadata:
            return C_anti
        case ContConflict:
            return C_conflict
        default:
            panic(fmt.Sprintf("depgraph: invalid label %d", uint8(self)))
    }
}

// IsOrdering reports whether the edge constrains the relative stage order.
func (self Label) IsOrdering() bool {
    c := self.Class()
    return c == C_control || c == C_data || c == C_anti
}

// Honor selects which edge classes a topological sweep obeys in addition to
// data edges, which are always honored.
type Honor uint8

const (
    H_none    Honor = 0
    H_control Honor = 1 << iota
    H_anti
    H_all     = H_control | H_anti
)

func (self Honor) String() string {
    switch self {
        case H_none    : return "data"
        case H_control : return "data+control"
        case H_anti    : return "data+anti"
        case H_all     : return "data+control+anti"
        default        : return fmt.Sprintf("Honor(%d)", uint8(self))
    }
}

// Honors reports whether an edge with label l counts for the sweep.
func (self Honor) Honors(l Label) bool {
    switch l.Class() {
        case C_data    : return true
        case C_control : return self & H_control != 0
        case C_anti    : return self & H_anti != 0
        default        : return false
    }
}
