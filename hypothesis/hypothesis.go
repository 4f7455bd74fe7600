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

// Package hypothesis represents partial key guesses during a CPA
// search: which bits are fixed (Mask), what they are fixed to (Key),
// and the best correlation seen so far (Corr).
package hypothesis

import (
	"fmt"
	"math"

	"github.com/Makowe/impl-attck/cpaerr"
)

// KeyHypothesis is a partial key guess. Key holds guessed bit values
// in the positions Mask marks as fixed (Key &^ Mask must be zero);
// Corr is the peak signed correlation measured when the hypothesis was
// last scored, 0 if it has never been scored.
type KeyHypothesis struct {
	Key  []uint64
	Mask []uint64
	Corr float64
}

// Expand produces every child hypothesis that newMask (a superset of
// h.Mask) implies: one per assignment of the newly-covered bits. There
// are 2^b children, where b is the number of bits newMask adds over
// h.Mask. Children are ordered so child i takes the binary expansion of
// i over the newly covered bit positions, walking word-by-word from
// the highest key-word index down to 0 and bit 0 upward within each
// word.
func Expand(h KeyHypothesis, newMask []uint64) ([]KeyHypothesis, error) {
	m := len(h.Key)
	if len(h.Mask) != m || len(newMask) != m {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("key/mask/newMask length mismatch: %d/%d/%d", len(h.Key), len(h.Mask), len(newMask)))
	}

	type bitPos struct{ word, bit int }
	var positions []bitPos
	for w := m - 1; w >= 0; w-- {
		if newMask[w]&h.Mask[w] != h.Mask[w] {
			return nil, cpaerr.ShapeMismatchError("newMask must be a superset of h.Mask")
		}
		newlyCovered := newMask[w] &^ h.Mask[w]
		for b := 0; b < 64; b++ {
			if newlyCovered&(uint64(1)<<uint(b)) != 0 {
				positions = append(positions, bitPos{w, b})
			}
		}
	}

	numChildren := 1 << uint(len(positions))
	children := make([]KeyHypothesis, numChildren)
	for i := 0; i < numChildren; i++ {
		key := append([]uint64(nil), h.Key...)
		for bitIdx, pos := range positions {
			if i&(1<<uint(bitIdx)) != 0 {
				key[pos.word] |= uint64(1) << uint(pos.bit)
			} else {
				key[pos.word] &^= uint64(1) << uint(pos.bit)
			}
		}
		mask := append([]uint64(nil), newMask...)
		children[i] = KeyHypothesis{Key: key, Mask: mask, Corr: 0}
	}
	return children, nil
}

// Filter keeps every hypothesis whose |Corr| exceeds the best |Corr|
// in hs minus threshold (strict inequality).
func Filter(hs []KeyHypothesis, threshold float64) []KeyHypothesis {
	if len(hs) == 0 {
		return nil
	}
	best := 0.0
	for _, h := range hs {
		if a := math.Abs(h.Corr); a > best {
			best = a
		}
	}
	var kept []KeyHypothesis
	for _, h := range hs {
		if math.Abs(h.Corr) > best-threshold {
			kept = append(kept, h)
		}
	}
	return kept
}

// PeakAbs returns the value in row with the largest absolute value,
// treating NaN as 0 and preferring the positive value on an exact
// |value| tie.
func PeakAbs(row []float64) float64 {
	best := 0.0
	bestAbs := -1.0
	for _, v := range row {
		if math.IsNaN(v) {
			v = 0
		}
		a := math.Abs(v)
		if a > bestAbs || (a == bestAbs && v > best) {
			bestAbs = a
			best = v
		}
	}
	return best
}
