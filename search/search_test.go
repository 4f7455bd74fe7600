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

package search_test

import (
	"math/bits"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Makowe/impl-attck/hypothesis"
	"github.com/Makowe/impl-attck/measurement"
	"github.com/Makowe/impl-attck/search"
	"github.com/Makowe/impl-attck/simon"
)

// roundTrace builds an N x 1 traces matrix whose single column is the
// Hamming weight of the true AddRoundKey intermediate at round r,
// under the actual key, for every plaintext: the power a real
// implementation would leak while computing that round.
func roundTrace(t *testing.T, p simon.CipherParams, plaintexts []simon.Block, actualKey []uint64, r int) *mat.Dense {
	t.Helper()
	states, err := simon.EvalToRound(p, plaintexts, [][]uint64{actualKey}, r, simon.AddRoundKey)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]float64, len(states))
	for i, row := range states {
		data[i] = float64(bits.OnesCount64(row[0]))
	}
	return mat.NewDense(len(states), 1, data)
}

func randomPlaintexts(r *rand.Rand, n int, width uint) []simon.Block {
	pts := make([]simon.Block, n)
	mask := uint64(1)<<width - 1
	for i := range pts {
		pts[i] = simon.Block{uint64(r.Int63()) & mask, uint64(r.Int63()) & mask}
	}
	return pts
}

// TestDefaultByteScheduleRecoversKey drives the byte-at-a-time schedule
// by hand, one round at a time, feeding each round its own genuine
// leakage trace, and checks the surviving hypothesis ends up holding
// the exact key used to generate the traces.
func TestDefaultByteScheduleRecoversKey(t *testing.T) {
	p := simon.Simon32_64
	actualKey := []uint64{0x1a2b, 0x3c4d, 0x5e6f, 0x7081}
	r := rand.New(rand.NewSource(42))
	plaintexts := randomPlaintexts(r, 500, p.N)

	roundMeas := make(map[int]*measurement.Measurements)
	for round := 0; round < p.M; round++ {
		traces := roundTrace(t, p, plaintexts, actualKey, round)
		m, err := measurement.New(plaintexts, nil, traces)
		if err != nil {
			t.Fatal(err)
		}
		roundMeas[round] = m
	}

	schedule := search.DefaultByteSchedule(p, simon.AddRoundKey, 0.05)

	frontier := []hypothesis.KeyHypothesis{{
		Key:  make([]uint64, p.M),
		Mask: make([]uint64, p.M),
	}}
	for _, step := range schedule {
		next, err := search.Step(frontier, roundMeas[step.Round], p, step)
		if err != nil {
			t.Fatal(err)
		}
		if len(next) == 0 {
			t.Fatalf("round %d: every hypothesis pruned", step.Round)
		}
		frontier = next
	}

	best := frontier[0]
	for _, h := range frontier[1:] {
		if absf(h.Corr) > absf(best.Corr) {
			best = h
		}
	}
	for w := 0; w < p.M; w++ {
		if best.Key[w] != actualKey[w] {
			t.Errorf("word %d: recovered 0x%x, want 0x%x", w, best.Key[w], actualKey[w])
		}
	}
}

// TestRunSingleWord exercises Run end to end against a schedule
// confined to the single round that its (single-column) measurement
// set actually carries leakage for.
func TestRunSingleWord(t *testing.T) {
	p := simon.Simon32_64
	actualKey := []uint64{0x1a2b, 0x3c4d, 0x5e6f, 0x7081}
	r := rand.New(rand.NewSource(7))
	plaintexts := randomPlaintexts(r, 500, p.N)

	traces := roundTrace(t, p, plaintexts, actualKey, 0)
	meas, err := measurement.New(plaintexts, nil, traces)
	if err != nil {
		t.Fatal(err)
	}

	full := search.DefaultByteSchedule(p, simon.AddRoundKey, 0.05)
	bytesPerWord := int(p.N) / 8
	schedule := full[:bytesPerWord] // the steps covering word order 0 only

	h0 := hypothesis.KeyHypothesis{Key: make([]uint64, p.M), Mask: make([]uint64, p.M)}
	frontier, err := search.Run(p, h0, meas, schedule)
	if err != nil {
		t.Fatal(err)
	}
	if len(frontier) == 0 {
		t.Fatal("empty frontier")
	}
	// Word order 0 recovers key[m-1].
	if got := frontier[0].Key[p.M-1]; got != actualKey[p.M-1] {
		t.Errorf("recovered key[%d] = 0x%x, want 0x%x", p.M-1, got, actualKey[p.M-1])
	}
	for i, c := range frontier {
		if i > 0 && absf(c.Corr) > absf(frontier[0].Corr) {
			t.Errorf("frontier not sorted by descending |Corr| at index %d", i)
		}
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
