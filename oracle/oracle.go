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

// Package oracle turns guessed SIMON keys into predicted Hamming
// weights of an intermediate cipher state, for correlating against
// measured power traces.
package oracle

import (
	"fmt"
	"math/bits"

	"github.com/Makowe/impl-attck/cpaerr"
	"github.com/Makowe/impl-attck/simon"
	"github.com/Makowe/impl-attck/word"
)

// PredictHW evaluates the cipher up to round r for every (plaintext,
// key) pair and returns the Hamming weight of the selected
// intermediate, masked to the bits mask covers.
func PredictHW(p simon.CipherParams, plaintexts []simon.Block, keys [][]uint64, r int, mask uint64, kind simon.IntermediateKind) ([][]int, error) {
	states, err := simon.EvalToRound(p, plaintexts, keys, r, kind)
	if err != nil {
		return nil, err
	}
	hw := make([][]int, len(states))
	for i, row := range states {
		hw[i] = make([]int, len(row))
		for j, s := range row {
			hw[i][j] = bits.OnesCount64(s & mask)
		}
	}
	return hw, nil
}

// DeriveMask computes the bitmask over the target intermediate that a
// hypothesis's per-word key mask determines, for round r and kind k.
//
// This is only meaningful while r lies in the direct-correspondence
// segment of the key schedule (0 <= r < len(hypoMask)), where round
// key r equals the original key word hypoMask[len(hypoMask)-1-r]
// unmodified by the recursive expansion. Deeper rounds are a caller
// concern (see the search package's byte schedules).
func DeriveMask(hypoMask []uint64, r int, n uint, kind simon.IntermediateKind) (uint64, error) {
	m := len(hypoMask)
	if r < 0 || r >= m {
		return 0, cpaerr.ParamOutOfRangeError(fmt.Sprintf("round %d out of range [0,%d) for mask derivation", r, m))
	}
	keyMask := hypoMask[m-1-r]
	switch kind {
	case simon.AddRoundKey:
		return keyMask, nil
	case simon.AndGate:
		return word.RotateLeft(keyMask, 1, n) & word.RotateLeft(keyMask, 8, n), nil
	default:
		return 0, cpaerr.ParamOutOfRangeError(fmt.Sprintf("invalid intermediate kind %v", kind))
	}
}
