// SPDX-License-Identifier: EPL-2.0

// Package analysis finds musically coherent loop points in a decoded
// track.
//
// The pipeline runs in five stages:
//
//  1. ExtractFeatures derives per-frame energy, zero-crossing rate and
//     a brightness proxy from the mono buffer.
//  2. BuildMatrix turns the feature streams into a smoothed
//     self-similarity matrix.
//  3. SearchCandidates scans the matrix diagonals for low-distance
//     repeat regions; RescoreMusically re-ranks the best of them with
//     loop-length heuristics.
//  4. RefinePoints snaps the winning pair to sample-accurate,
//     low-discontinuity transition points.
//  5. MatchPatterns is the alternate full-track correlation search,
//     used when the matrix path reports low confidence.
//
// Analyzer ties the stages together and degrades to a duration-ratio
// fallback instead of failing. All thresholds and weights live in
// Config; the defaults are empirical, not derived.
//
//	analyzer := analysis.NewAnalyzer(analysis.DefaultConfig())
//	result, err := analyzer.Analyze(ctx, buf, nil)
//
// The analysis is deliberately cheap: no FFT is performed anywhere.
// Energy and zero-crossing statistics stand in for true spectral
// features, which works tolerably for the game-soundtrack material
// this was built for and keeps the whole pipeline allocation-light.
package analysis
