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

// Package measurement holds the immutable population of traces a CPA
// campaign attacks: plaintexts paired with sampled power traces, and
// optionally the ciphertexts the reference implementation produced.
//
// Loading a population from a file, or acquiring it from hardware, is
// a caller concern; this package only validates and holds the result.
package measurement

import (
	"fmt"

	"github.com/Makowe/impl-attck/cpaerr"
	"github.com/Makowe/impl-attck/simon"
	"gonum.org/v1/gonum/mat"
)

// Measurements is an immutable population of N traces: N plaintexts,
// optionally N ciphertexts, and an N x S matrix of power samples.
type Measurements struct {
	plaintexts  []simon.Block
	ciphertexts []simon.Block // nil if not recorded
	traces      *mat.Dense
}

// New validates and builds a Measurements set. ciphertexts may be nil.
func New(plaintexts []simon.Block, ciphertexts []simon.Block, traces *mat.Dense) (*Measurements, error) {
	n := len(plaintexts)
	rows, _ := traces.Dims()
	if rows != n {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("traces has %d rows, plaintexts has %d", rows, n))
	}
	if ciphertexts != nil && len(ciphertexts) != n {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("ciphertexts has %d rows, plaintexts has %d", len(ciphertexts), n))
	}
	return &Measurements{
		plaintexts:  append([]simon.Block(nil), plaintexts...),
		ciphertexts: append([]simon.Block(nil), ciphertexts...),
		traces:      mat.DenseCopyOf(traces),
	}, nil
}

// N is the number of traces in the population.
func (m *Measurements) N() int {
	return len(m.plaintexts)
}

// S is the number of samples in each trace.
func (m *Measurements) S() int {
	_, cols := m.traces.Dims()
	return cols
}

// Plaintexts returns the population's plaintexts. The returned slice
// must not be modified.
func (m *Measurements) Plaintexts() []simon.Block {
	return m.plaintexts
}

// Ciphertexts returns the population's ciphertexts, or nil if they
// were not recorded. The returned slice must not be modified.
func (m *Measurements) Ciphertexts() []simon.Block {
	return m.ciphertexts
}

// Traces returns the N x S matrix of power samples. The returned
// matrix must not be modified.
func (m *Measurements) Traces() *mat.Dense {
	return m.traces
}

// Slice returns the sub-population covering rows [start, end).
func (m *Measurements) Slice(start, end int) (*Measurements, error) {
	n := m.N()
	if start < 0 || end > n || start > end {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("slice [%d:%d) out of range for %d rows", start, end, n))
	}
	var ct []simon.Block
	if m.ciphertexts != nil {
		ct = m.ciphertexts[start:end]
	}
	sub := m.traces.Slice(start, end, 0, m.S()).(*mat.Dense)
	return New(m.plaintexts[start:end], ct, sub)
}
