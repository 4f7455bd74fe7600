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

package word_test

import (
	"math/rand"
	"testing"

	"github.com/Makowe/impl-attck/word"
)

func TestMask(t *testing.T) {
	if word.Mask(16) != 0xFFFF {
		t.Errorf("Mask(16) = 0x%x, want 0xFFFF", word.Mask(16))
	}
	if word.Mask(64) != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("Mask(64) = 0x%x, want all ones", word.Mask(64))
	}
}

func TestCleanIdempotent(t *testing.T) {
	widths := []uint{16, 24, 32, 48, 64}
	r := rand.New(rand.NewSource(1))
	for _, n := range widths {
		for i := 0; i < 100; i++ {
			w := r.Uint64()
			once := word.Clean(w, n)
			twice := word.Clean(once, n)
			if once != twice {
				t.Fatalf("Clean not idempotent for n=%d: %x vs %x", n, once, twice)
			}
			if once&^word.Mask(n) != 0 {
				t.Fatalf("Clean(%x, %d) left high bits set: %x", w, n, once)
			}
		}
	}
}

func TestRotateInverse(t *testing.T) {
	widths := []uint{16, 24, 32, 48, 64}
	r := rand.New(rand.NewSource(2))
	for _, n := range widths {
		for i := 0; i < 100; i++ {
			w := word.Clean(r.Uint64(), n)
			b := r.Intn(2*int(n)) - int(n)
			rotated := word.RotateLeft(w, b, n)
			back := word.RotateLeft(rotated, -b, n)
			if back != w {
				t.Fatalf("RotateLeft inverse failed: n=%d w=%x b=%d back=%x", n, w, b, back)
			}
		}
	}
}

func TestRotateConcrete(t *testing.T) {
	w := uint64(0b0001_0010_0011_0100)
	if got := word.RotateLeft(w, 4, 16); got != 0b0010_0011_0100_0001 {
		t.Errorf("RotateLeft left 4 = %b, want %b", got, 0b0010_0011_0100_0001)
	}
	if got := word.RotateLeft(w, -4, 16); got != 0b0100_0001_0010_0011 {
		t.Errorf("RotateLeft right 4 = %b, want %b", got, 0b0100_0001_0010_0011)
	}
}

func TestInvert(t *testing.T) {
	w := uint64(0b1010_1100_1111_0000)
	if got := word.Invert(w, 16); got != 0b0101_0011_0000_1111 {
		t.Errorf("Invert(16) = %b, want %b", got, 0b0101_0011_0000_1111)
	}
	if got := word.Invert(w, 24); got != 0b1111_1111_0101_0011_0000_1111 {
		t.Errorf("Invert(24) = %b, want %b", got, 0b1111_1111_0101_0011_0000_1111)
	}
}
