// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cpaerr holds the typed errors shared across the CPA toolkit.
// Every error here is a programmer error: bad shapes or out-of-range
// parameters detected at the boundary of the operation that found them.
// None of it is retried or recovered internally.
package cpaerr

// ShapeMismatchError reports that input array/matrix dimensions violate
// a documented constraint (e.g. row counts that must agree).
type ShapeMismatchError string

func (e ShapeMismatchError) Error() string {
	return "shape mismatch: " + string(e)
}

// ParamOutOfRangeError reports an invalid parameter: a round outside
// [0,T), an invalid IntermediateKind, m outside {2,3,4}, and similar.
type ParamOutOfRangeError string

func (e ParamOutOfRangeError) Error() string {
	return "parameter out of range: " + string(e)
}
