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

// Package search drives the byte-at-a-time hypothesis search: at each
// step it expands every surviving hypothesis by one byte of key
// material, scores the resulting children against a population of
// traces in one batched correlation per parent hypothesis, and prunes
// to the children whose peak correlation is within a threshold of the
// best.
package search

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/mat"

	"github.com/Makowe/impl-attck/corr"
	"github.com/Makowe/impl-attck/hypothesis"
	"github.com/Makowe/impl-attck/measurement"
	"github.com/Makowe/impl-attck/oracle"
	"github.com/Makowe/impl-attck/simon"
	"github.com/Makowe/impl-attck/word"
)

// ScheduleStep is one round of the search: widen the key mask to
// NewMask, score the resulting intermediate kind at the given round,
// and prune with threshold.
type ScheduleStep struct {
	NewMask   []uint64
	Round     int
	Kind      simon.IntermediateKind
	Threshold float64
}

// Step expands every hypothesis in frontier to ScheduleStep.NewMask,
// scores each parent's children in one batched correlation against
// meas, and returns the children that survive ScheduleStep.Threshold
// pruning across all parents.
//
// Children are scored in parallel batches, one goroutine per parent
// hypothesis, mirroring the per-key-byte fan-out a straight-line CPA
// attack uses; the correlation call itself is a single matrix
// multiply shared by a parent's whole batch of children.
func Step(frontier []hypothesis.KeyHypothesis, meas *measurement.Measurements, p simon.CipherParams, step ScheduleStep) ([]hypothesis.KeyHypothesis, error) {
	if len(frontier) == 0 {
		return nil, nil
	}

	mask, err := oracle.DeriveMask(step.NewMask, step.Round, p.N, step.Kind)
	if err != nil {
		return nil, err
	}

	type batchResult struct {
		children []hypothesis.KeyHypothesis
		err      error
	}
	results := make([]batchResult, len(frontier))

	var wg sync.WaitGroup
	wg.Add(len(frontier))
	for i, h := range frontier {
		go func(i int, h hypothesis.KeyHypothesis) {
			defer wg.Done()
			children, err := hypothesis.Expand(h, step.NewMask)
			if err != nil {
				results[i] = batchResult{err: err}
				return
			}
			scored, err := scoreChildren(children, meas, p, step.Round, step.Kind, mask)
			if err != nil {
				results[i] = batchResult{err: err}
				return
			}
			results[i] = batchResult{children: scored}
		}(i, h)
	}
	wg.Wait()

	var all []hypothesis.KeyHypothesis
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		all = append(all, r.children...)
	}

	kept := hypothesis.Filter(all, step.Threshold)
	glog.V(1).Infof("round %d kind %v: %d children, %d survive threshold %g", step.Round, step.Kind, len(all), len(kept), step.Threshold)
	return kept, nil
}

// scoreChildren runs one batched correlation for every child key
// against meas and assigns each child's peak absolute correlation.
func scoreChildren(children []hypothesis.KeyHypothesis, meas *measurement.Measurements, p simon.CipherParams, round int, kind simon.IntermediateKind, mask uint64) ([]hypothesis.KeyHypothesis, error) {
	keys := make([][]uint64, len(children))
	for i, c := range children {
		keys[i] = c.Key
	}

	hw, err := oracle.PredictHW(p, meas.Plaintexts(), keys, round, mask, kind)
	if err != nil {
		return nil, err
	}

	n := len(hw)
	k := len(children)
	xData := make([]float64, n*k)
	for i, row := range hw {
		for j, v := range row {
			xData[i*k+j] = float64(v)
		}
	}
	X := mat.NewDense(n, k, xData)

	c, err := corr.Batch(X, meas.Traces())
	if err != nil {
		return nil, fmt.Errorf("scoring round %d: %w", round, err)
	}

	scored := make([]hypothesis.KeyHypothesis, len(children))
	for j, child := range children {
		row := mat.Row(nil, j, c)
		child.Corr = hypothesis.PeakAbs(row)
		scored[j] = child
	}
	return scored, nil
}

// Run walks schedule in order starting from h0, returning the final
// frontier sorted by descending |Corr|.
func Run(p simon.CipherParams, h0 hypothesis.KeyHypothesis, meas *measurement.Measurements, schedule []ScheduleStep) ([]hypothesis.KeyHypothesis, error) {
	frontier := []hypothesis.KeyHypothesis{h0}
	for _, step := range schedule {
		next, err := Step(frontier, meas, p, step)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			return nil, fmt.Errorf("search: round %d kind %v pruned every hypothesis", step.Round, step.Kind)
		}
		frontier = next
	}
	sort.Slice(frontier, func(i, j int) bool {
		return absCorr(frontier[i]) > absCorr(frontier[j])
	})
	return frontier, nil
}

func absCorr(h hypothesis.KeyHypothesis) float64 {
	if h.Corr < 0 {
		return -h.Corr
	}
	return h.Corr
}

// DefaultByteSchedule builds the byte-at-a-time schedule SIMON-64/128
// style key recovery uses: for each key word, from the highest-index
// word (recovered first, since round keys map to words in reverse
// order) down to word 0, widen the mask one byte at a time, scoring
// the named intermediate at the round corresponding to that word.
func DefaultByteSchedule(p simon.CipherParams, kind simon.IntermediateKind, threshold float64) []ScheduleStep {
	var schedule []ScheduleStep
	bytesPerWord := int(p.N) / 8
	fullWordMask := word.Mask(p.N)

	for wordOrder := 0; wordOrder < p.M; wordOrder++ {
		arrIdx := p.M - 1 - wordOrder
		for byteIdx := 0; byteIdx < bytesPerWord; byteIdx++ {
			mask := make([]uint64, p.M)
			for w := 0; w < p.M; w++ {
				switch {
				case w > arrIdx:
					// words already fully recovered in earlier rounds
					mask[w] = fullWordMask
				case w == arrIdx:
					mask[w] = word.Mask(uint((byteIdx + 1) * 8))
				default:
					mask[w] = 0
				}
			}
			schedule = append(schedule, ScheduleStep{
				NewMask:   mask,
				Round:     wordOrder,
				Kind:      kind,
				Threshold: threshold,
			})
		}
	}
	return schedule
}
