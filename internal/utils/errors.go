/*
 * Copyright 2021 ByteDance Inc.
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

package utils

import (
    `fmt`
    `strings`
)

// InvariantError reports a defect in one of the analysis passes. It is raised
// with panic and only recovered by the top-level driver.
type InvariantError struct {
    Pass    string
    Message string
    Dump    string
}

func (self *InvariantError) Error() string {
    if self.Dump == "" {
        return fmt.Sprintf("%s: invariant violated: %s", self.Pass, self.Message)
    } else {
        return fmt.Sprintf("%s: invariant violated: %s\n%s", self.Pass, self.Message, self.Dump)
    }
}

// PlacementReason is the closed set of user-facing placement failures.
type PlacementReason uint8

const (
    R_noStages PlacementReason = iota
    R_pragma
    R_tooLarge
    R_containerConflict
)

func (self PlacementReason) String() string {
    switch self {
        case R_noStages          : return "cannot be placed within available stages"
        case R_pragma            : return "stage pragma cannot be satisfied"
        case R_tooLarge          : return "does not fit in an empty stage"
        case R_containerConflict : return "blocked by container conflicts"
        default                  : return fmt.Sprintf("PlacementReason(%d)", uint8(self))
    }
}

// PlacementError is a deferred diagnostic of the placement search.
type PlacementError struct {
    Table  string
    Stage  int
    Reason PlacementReason
    Note   string
}

func (self *PlacementError) Error() string {
    msg := fmt.Sprintf("table %s %s", self.Table, self.Reason)
    if self.Stage >= 0 {
        msg += fmt.Sprintf(" (stage %d)", self.Stage)
    }
    if self.Note != "" {
        msg += ": " + self.Note
    }
    return msg
}

// AllocationError reports that the register allocator ran out of containers.
type AllocationError struct {
    Gress  string
    Field  string
    Reason string
}

func (self *AllocationError) Error() string {
    return fmt.Sprintf("cannot allocate %s field %s: %s", self.Gress, self.Field, self.Reason)
}

// FailureError is returned when every backtracking round failed.
type FailureError struct {
    State       string
    Transitions int
    Diagnostics []error
}

func (self *FailureError) Error() string {
    buf := []string {
        fmt.Sprintf("table placement failed in state %s after %d transitions", self.State, self.Transitions),
    }
    for _, e := range self.Diagnostics {
        buf = append(buf, "    " + e.Error())
    }
    return strings.Join(buf, "\n")
}

func EInvariant(pass string, format string, args ...interface{}) *InvariantError {
    return &InvariantError {
        Pass    : pass,
        Message : fmt.Sprintf(format, args...),
    }
}

func EPlacement(table string, stage int, reason PlacementReason) *PlacementError {
    return &PlacementError {
        Table  : table,
        Stage  : stage,
        Reason : reason,
    }
}

func EAllocation(gress string, field string, reason string) *AllocationError {
    return &AllocationError {
        Gress  : gress,
        Field  : field,
        Reason : reason,
    }
}
