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

// Package simon implements the SIMON family of lightweight block
// ciphers: key expansion (both the primary and the constant-c
// alternative form), full-block encryption, and partial (k-round)
// forward evaluation for use as a side-channel prediction oracle.
//
// The cipher is a reference/oracle implementation, not a
// side-channel-hardened one: it is deliberately not constant time.
package simon

import (
	"fmt"

	"github.com/Makowe/impl-attck/cpaerr"
	"github.com/Makowe/impl-attck/word"
)

// CipherParams fixes one SIMON variant: n-bit words, m key words,
// round-constant sequence j, and T rounds.
type CipherParams struct {
	N uint // word width in bits
	M int  // number of key words
	J int  // round constant sequence selector, 0..4
	T int  // number of rounds
}

// The ten canonical SIMON variants (Beaulieu et al.).
var (
	Simon32_64   = CipherParams{16, 4, 0, 32}
	Simon48_72   = CipherParams{24, 3, 0, 36}
	Simon48_96   = CipherParams{24, 4, 1, 36}
	Simon64_96   = CipherParams{32, 3, 2, 42}
	Simon64_128  = CipherParams{32, 4, 3, 44}
	Simon96_96   = CipherParams{48, 2, 2, 52}
	Simon96_144  = CipherParams{48, 3, 3, 54}
	Simon128_128 = CipherParams{64, 2, 2, 68}
	Simon128_192 = CipherParams{64, 3, 3, 69}
	Simon128_256 = CipherParams{64, 4, 4, 72}
)

// Z holds the five 62-bit round constant sequences, reproduced verbatim
// from the canonical binary literals. Bit (61 - (i mod 62)) of Z[j] is
// the round constant for round i of sequence j.
var Z = [5]uint64{
	0x3e8958737d12b0e6,
	0x23be4c2d477c985a,
	0x2bdc0d262847e5b3,
	0x36eb19781229cd0f,
	0x3479ad88170ca4ef,
}

// Block is the cipher's 2-word state, (x, y).
type Block [2]uint64

// IntermediateKind selects which intermediate value eval-to-round
// extracts.
type IntermediateKind int

const (
	// AddRoundKey selects the x-register immediately after round i,
	// i.e. after the XOR with the round key.
	AddRoundKey IntermediateKind = iota
	// AndGate selects the AND-gate output of the following round:
	// (rot1 x) & (rot8 x), where x is the AddRoundKey value.
	AndGate
)

func (k IntermediateKind) String() string {
	switch k {
	case AddRoundKey:
		return "ADD_ROUND_KEY"
	case AndGate:
		return "AND_GATE"
	default:
		return fmt.Sprintf("IntermediateKind(%d)", int(k))
	}
}

// GetRoundConstant returns bit (61 - (i mod 62)) of sequence Z[j],
// wrapping so that round i and i+62 always agree.
func GetRoundConstant(j, i int) (uint64, error) {
	if j < 0 || j >= len(Z) {
		return 0, cpaerr.ParamOutOfRangeError(fmt.Sprintf("round constant sequence j=%d out of range", j))
	}
	shift := ((61 - i) % 62 + 62) % 62
	return (Z[j] >> uint(shift)) & 1, nil
}

func validate(p CipherParams) error {
	if p.M < 2 || p.M > 4 {
		return cpaerr.ParamOutOfRangeError(fmt.Sprintf("m=%d not in {2,3,4}", p.M))
	}
	if p.J < 0 || p.J >= len(Z) {
		return cpaerr.ParamOutOfRangeError(fmt.Sprintf("j=%d out of range", p.J))
	}
	if p.T <= p.M {
		return cpaerr.ParamOutOfRangeError(fmt.Sprintf("t=%d must exceed m=%d", p.T, p.M))
	}
	return nil
}

// ExpandKey runs the primary key schedule, producing exactly p.T round
// key words from the m-word key.
func ExpandKey(p CipherParams, key []uint64) ([]uint64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if len(key) != p.M {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("key has %d words, want %d", len(key), p.M))
	}
	return expandKeyUpTo(p, key, p.T)
}

// ExpandKeyUpTo computes only the first upto round keys, clamped to
// [m, T]. This realises the "expand lazily" optimisation: callers that
// only need round keys 0..r need not pay for the full schedule.
func ExpandKeyUpTo(p CipherParams, key []uint64, upto int) ([]uint64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if len(key) != p.M {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("key has %d words, want %d", len(key), p.M))
	}
	return expandKeyUpTo(p, key, upto)
}

func expandKeyUpTo(p CipherParams, key []uint64, upto int) ([]uint64, error) {
	if upto > p.T {
		upto = p.T
	}
	if upto < p.M {
		upto = p.M
	}
	k := make([]uint64, upto)
	for i := 0; i < p.M; i++ {
		k[i] = word.Clean(key[p.M-1-i], p.N)
	}
	for i := p.M; i < upto; i++ {
		tmp := word.RotateLeft(k[i-1], -3, p.N)
		if p.M == 4 {
			tmp ^= k[i-3]
		}
		tmp ^= word.RotateLeft(tmp, -1, p.N)

		zi, err := GetRoundConstant(p.J, i-p.M)
		if err != nil {
			return nil, err
		}
		k[i] = word.Clean(word.Invert(k[i-p.M], p.N)^tmp^zi^3, p.N)
	}
	return k, nil
}

// ExpandKeyAlt runs the alternate, constant-c form of the key schedule
// (c = 2^n - 4). It must agree bit-exactly with ExpandKey for all
// presets and all keys.
func ExpandKeyAlt(p CipherParams, key []uint64) ([]uint64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if len(key) != p.M {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("key has %d words, want %d", len(key), p.M))
	}

	k := make([]uint64, p.T)
	for i := 0; i < p.M; i++ {
		k[i] = word.Clean(key[p.M-1-i], p.N)
	}

	c := word.Mask(p.N) - 3

	for i := 0; i < p.T-p.M; i++ {
		zi, err := GetRoundConstant(p.J, i)
		if err != nil {
			return nil, err
		}
		var tmp1, tmp2 uint64
		switch p.M {
		case 2:
			tmp1 = word.RotateLeft(k[i+1], -3, p.N)
			tmp2 = word.RotateLeft(tmp1, -1, p.N)
		case 3:
			tmp1 = word.RotateLeft(k[i+2], -3, p.N)
			tmp2 = word.RotateLeft(tmp1, -1, p.N)
		case 4:
			tmp1 = word.RotateLeft(k[i+3], -3, p.N) ^ k[i+1]
			tmp2 = word.RotateLeft(tmp1, -1, p.N)
		}
		k[i+p.M] = word.Clean(c^zi^k[i]^tmp1^tmp2, p.N)
	}
	return k, nil
}

func roundFunc(x, y, rk uint64, n uint) (uint64, uint64) {
	newX := y ^ (word.RotateLeft(x, 1, n) & word.RotateLeft(x, 8, n)) ^ word.RotateLeft(x, 2, n) ^ rk
	return word.Clean(newX, n), x
}

// EncryptBlock encrypts a single plaintext block under key, running
// all T rounds.
func EncryptBlock(p CipherParams, plaintext Block, key []uint64) (Block, error) {
	roundKeys, err := ExpandKey(p, key)
	if err != nil {
		return Block{}, err
	}
	x := word.Clean(plaintext[0], p.N)
	y := word.Clean(plaintext[1], p.N)
	for i := 0; i < p.T; i++ {
		x, y = roundFunc(x, y, roundKeys[i], p.N)
	}
	return Block{x, y}, nil
}

// EvalToRound runs rounds 0..r (inclusive) of encryption for every
// (plaintext, key) pair and returns an N x K matrix of intermediate
// words, one row per plaintext and one column per key.
//
// For kind == AddRoundKey, cell [i][j] is the x-register after round r
// for plaintexts[i] under keys[j]. For kind == AndGate, it is
// (rot1 x) & (rot8 x) for that same x, i.e. the nonlinear gate input of
// round r+1.
func EvalToRound(p CipherParams, plaintexts []Block, keys [][]uint64, r int, kind IntermediateKind) ([][]uint64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if r < 0 || r >= p.T {
		return nil, cpaerr.ParamOutOfRangeError(fmt.Sprintf("round %d out of range [0,%d)", r, p.T))
	}
	if kind != AddRoundKey && kind != AndGate {
		return nil, cpaerr.ParamOutOfRangeError(fmt.Sprintf("invalid intermediate kind %v", kind))
	}

	states := make([][]uint64, len(plaintexts))
	for i := range states {
		states[i] = make([]uint64, len(keys))
	}

	upto := r + p.M + 1
	for j, key := range keys {
		if len(key) != p.M {
			return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("key %d has %d words, want %d", j, len(key), p.M))
		}
		roundKeys, err := ExpandKeyUpTo(p, key, upto)
		if err != nil {
			return nil, err
		}
		for i, pt := range plaintexts {
			x := word.Clean(pt[0], p.N)
			y := word.Clean(pt[1], p.N)
			for round := 0; round <= r; round++ {
				x, y = roundFunc(x, y, roundKeys[round], p.N)
			}
			if kind == AddRoundKey {
				states[i][j] = x
			} else {
				states[i][j] = word.RotateLeft(x, 1, p.N) & word.RotateLeft(x, 8, p.N)
			}
		}
	}
	return states, nil
}
