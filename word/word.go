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

// Package word implements rotation and masking over n-bit words carried
// in a uint64. n varies at runtime (16, 24, 32, 48 or 64 for the SIMON
// family), so rotations cannot use Go's fixed-width shift operators
// directly; every operation here takes n explicitly and cleans its
// result to n bits.
package word

// Mask returns the low n bits set, all others zero. n must be in [1,64].
func Mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// Clean masks w to its low n bits.
func Clean(w uint64, n uint) uint64 {
	return w & Mask(n)
}

// RotateLeft rotates the low n bits of w left by b, where b may be
// negative (a right rotation) or larger than n in magnitude; the
// effective shift is b mod n.
func RotateLeft(w uint64, b int, n uint) uint64 {
	w = Clean(w, n)
	nn := int(n)
	bm := ((b % nn) + nn) % nn
	if bm == 0 {
		return w
	}
	return (w<<uint(bm) | w>>uint(nn-bm)) & Mask(n)
}

// Invert returns the n-bit complement of w.
func Invert(w uint64, n uint) uint64 {
	return (^w) & Mask(n)
}
