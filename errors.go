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

package tableplace

import (
    `github.com/p4lang/tableplace/internal/utils`
)

// InvariantError reports a defect in the dependency analysis. It is never
// caused by the input program and is not recoverable.
type InvariantError = utils.InvariantError

// PlacementError is a user-facing placement failure. A placement error from
// one round may be resolved by a later round, so they are only reported
// through FailureError.
type PlacementError = utils.PlacementError

// AllocationError occurs when the register allocator runs out of containers.
type AllocationError = utils.AllocationError

// FailureError occurs when every backtracking round failed. Diagnostics holds
// the distinct placement and allocation errors met along the way.
type FailureError = utils.FailureError

type PlacementReason = utils.PlacementReason

const (
    ReasonNoStages          = utils.R_noStages
    ReasonPragma            = utils.R_pragma
    ReasonTooLarge          = utils.R_tooLarge
    ReasonContainerConflict = utils.R_containerConflict
)
