// SPDX-License-Identifier: EPL-2.0

package analysis

import (
	"context"
	"math"
)

// Matrix is a square self-similarity matrix over analysis frames.
// Values are distances: lower means more similar. Symmetric, zero on
// the diagonal.
type Matrix struct {
	N      int
	values []float64
}

func newMatrix(n int) *Matrix {
	return &Matrix{N: n, values: make([]float64, n*n)}
}

func (m *Matrix) At(i, k int) float64  { return m.values[i*m.N+k] }
func (m *Matrix) set(i, k int, v float64) { m.values[i*m.N+k] = v }

// BuildMatrix computes the pairwise weighted L1 feature distance. Only
// the upper triangle is computed and then mirrored. The frame count is
// capped at cfg.MaxMatrixFrames, trading recall on very long tracks
// for a bounded O(N²) cost.
func BuildMatrix(ctx context.Context, f *Features, cfg Config) (*Matrix, error) {
	n := min(f.Frames(), cfg.MaxMatrixFrames)

	m := newMatrix(n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrAnalysisCancelled
		}
		for k := i + 1; k < n; k++ {
			d := featureDistance(f, i, k, cfg)
			m.set(i, k, d)
			m.set(k, i, d)
		}
	}

	m.smooth()
	return m, nil
}

// featureDistance is the weighted L1 distance between two frames'
// feature vectors, the metric the matrix is built from.
func featureDistance(f *Features, i, k int, cfg Config) float64 {
	return cfg.EnergyWeight*math.Abs(f.Energy[i]-f.Energy[k]) +
		cfg.ZeroCrossWeight*math.Abs(f.ZeroCross[i]-f.ZeroCross[k]) +
		cfg.BrightnessWeight*math.Abs(f.Brightness[i]-f.Brightness[k])
}

// smooth applies a separable 3-tap Gaussian blur (1/4, 1/2, 1/4),
// horizontal pass then vertical. At the border the kernel is
// renormalized by the sum of in-bounds weights. The blur flattens
// frame-level jitter so genuinely repeating regions survive as
// low-distance diagonals.
func (m *Matrix) smooth() {
	kernel := [3]float64{0.25, 0.5, 0.25}
	tmp := make([]float64, m.N*m.N)

	// Horizontal pass.
	for i := 0; i < m.N; i++ {
		for k := 0; k < m.N; k++ {
			var sum, wsum float64
			for o := -1; o <= 1; o++ {
				kk := k + o
				if kk < 0 || kk >= m.N {
					continue
				}
				w := kernel[o+1]
				sum += w * m.At(i, kk)
				wsum += w
			}
			tmp[i*m.N+k] = sum / wsum
		}
	}

	// Vertical pass.
	for i := 0; i < m.N; i++ {
		for k := 0; k < m.N; k++ {
			var sum, wsum float64
			for o := -1; o <= 1; o++ {
				ii := i + o
				if ii < 0 || ii >= m.N {
					continue
				}
				w := kernel[o+1]
				sum += w * tmp[ii*m.N+k]
				wsum += w
			}
			m.set(i, k, sum/wsum)
		}
	}
}

// diagonalMean averages At(i+t, k+t) for t in [-2, 2], clipped to the
// matrix bounds. A repeat that holds for more than one instant shows
// up as a run of low values along this diagonal: frame i+t matches
// frame k+t for every t inside the repeated span. Off-diagonal
// neighbours compare time-shifted frames and say nothing about that,
// so they are deliberately excluded.
func (m *Matrix) diagonalMean(i, k int) float64 {
	var sum float64
	count := 0
	for t := -2; t <= 2; t++ {
		ii, kk := i+t, k+t
		if ii < 0 || ii >= m.N || kk < 0 || kk >= m.N {
			continue
		}
		sum += m.At(ii, kk)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
