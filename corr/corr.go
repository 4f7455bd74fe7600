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

// Package corr computes Pearson correlation between a predicted-value
// matrix and a measured-trace matrix, in one shot (Batch) or
// incrementally over a stream of row batches (Streaming).
//
// Degenerate columns (zero variance) yield NaN, same as gonum/stat;
// it is the caller's job (see the hypothesis package) to treat NaN as
// "no evidence" during peak selection.
package corr

import (
	"fmt"
	"math"

	"github.com/Makowe/impl-attck/cpaerr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Batch computes the K x S Pearson correlation matrix between the
// columns of X (N x K) and the columns of Y (N x S):
//
//	Xn = (X - mean(X)) / stddev(X)   (per column)
//	Yn = (Y - mean(Y)) / stddev(Y)   (per column)
//	C  = Xn^T . Yn / (N - 1)
func Batch(X, Y *mat.Dense) (*mat.Dense, error) {
	n, k := X.Dims()
	ny, s := Y.Dims()
	if n != ny {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("X has %d rows, Y has %d rows", n, ny))
	}
	if n < 2 {
		return nil, cpaerr.ShapeMismatchError(fmt.Sprintf("need at least 2 rows, got %d", n))
	}

	xn := normalizeColumns(X, n, k)
	yn := normalizeColumns(Y, n, s)

	var c mat.Dense
	c.Mul(xn.T(), yn)
	c.Scale(1/float64(n-1), &c)
	return &c, nil
}

// normalizeColumns returns (col - mean(col)) / stddev(col) for every
// column of m (n rows, cols columns).
func normalizeColumns(m *mat.Dense, n, cols int) *mat.Dense {
	out := mat.NewDense(n, cols, nil)
	col := make([]float64, n)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean := stat.Mean(col, nil)
		std := stat.StdDev(col, nil)
		normCol := make([]float64, n)
		for i, v := range col {
			normCol[i] = (v - mean) / std
		}
		out.SetCol(j, normCol)
	}
	return out
}

// Streaming maintains running Pearson-correlation statistics over an
// arbitrary number of incremental row batches, for a fixed (K, S)
// shape. Result() after any partitioning of the same rows agrees with
// Batch to floating-point rounding.
type Streaming struct {
	n      int
	k, s   int
	mx, my []float64
	mxx    []float64
	myy    []float64
	mxy    *mat.Dense
}

// NewStreaming creates a correlation accumulator for a K-column
// prediction matrix against an S-column trace matrix.
func NewStreaming(k, s int) *Streaming {
	return &Streaming{
		k:   k,
		s:   s,
		mx:  make([]float64, k),
		my:  make([]float64, s),
		mxx: make([]float64, k),
		myy: make([]float64, s),
		mxy: mat.NewDense(k, s, nil),
	}
}

// Update folds a batch of B rows (xNew: B x K, yNew: B x S) into the
// running statistics.
func (st *Streaming) Update(xNew, yNew *mat.Dense) error {
	b, k := xNew.Dims()
	by, s := yNew.Dims()
	if b != by {
		return cpaerr.ShapeMismatchError(fmt.Sprintf("xNew has %d rows, yNew has %d rows", b, by))
	}
	if k != st.k {
		return cpaerr.ShapeMismatchError(fmt.Sprintf("xNew has %d columns, want %d", k, st.k))
	}
	if s != st.s {
		return cpaerr.ShapeMismatchError(fmt.Sprintf("yNew has %d columns, want %d", s, st.s))
	}

	st.n += b

	dx := mat.NewDense(b, k, nil)
	dx.Apply(func(i, j int, v float64) float64 { return v - st.mx[j] }, xNew)
	dy := mat.NewDense(b, s, nil)
	dy.Apply(func(i, j int, v float64) float64 { return v - st.my[j] }, yNew)

	for j := 0; j < k; j++ {
		col := mat.Col(nil, j, dx)
		sum := 0.0
		for _, v := range col {
			sum += v
		}
		st.mx[j] += sum / float64(st.n)
	}
	for j := 0; j < s; j++ {
		col := mat.Col(nil, j, dy)
		sum := 0.0
		for _, v := range col {
			sum += v
		}
		st.my[j] += sum / float64(st.n)
	}

	dx2 := mat.NewDense(b, k, nil)
	dx2.Apply(func(i, j int, v float64) float64 { return v - st.mx[j] }, xNew)
	dy2 := mat.NewDense(b, s, nil)
	dy2.Apply(func(i, j int, v float64) float64 { return v - st.my[j] }, yNew)

	for j := 0; j < k; j++ {
		sum := 0.0
		for i := 0; i < b; i++ {
			sum += dx.At(i, j) * dx2.At(i, j)
		}
		st.mxx[j] += sum
	}
	for j := 0; j < s; j++ {
		sum := 0.0
		for i := 0; i < b; i++ {
			sum += dy.At(i, j) * dy2.At(i, j)
		}
		st.myy[j] += sum
	}

	var cross mat.Dense
	cross.Mul(dx.T(), dy2)
	st.mxy.Add(st.mxy, &cross)
	return nil
}

// Result returns the current K x S correlation matrix. Columns with
// zero variance yield NaN.
func (st *Streaming) Result() *mat.Dense {
	out := mat.NewDense(st.k, st.s, nil)
	for i := 0; i < st.k; i++ {
		for j := 0; j < st.s; j++ {
			den := math.Sqrt(st.mxx[i] * st.myy[j])
			out.Set(i, j, st.mxy.At(i, j)/den)
		}
	}
	return out
}
