// SPDX-License-Identifier: EPL-2.0

// Package ostextender finds seamless loop points in game and film
// soundtrack audio and keeps playback inside them.
//
// Video-game soundtracks are usually authored as an intro followed by
// a body section that repeats forever in-game, but the released track
// fades out after a couple of passes. This package recovers the loop:
// it locates the sample positions where the body repeats, persists
// them as per-track tags, and at playback time jumps (or crossfades)
// from the loop end back to the loop start so the track plays
// indefinitely.
//
// # Analysis
//
// The analysis subpackage runs the detection pipeline: per-frame
// energy, zero-crossing and brightness features, a self-similarity
// matrix over those features, a diagonal search for repeating
// structure, musical-length rescoring, and sample-accurate point
// refinement. No FFT is involved; the features are deliberately cheap.
//
//	buf, _ := ostextender.DecodeFile("theme.ogg", 22050, 300)
//	res, _ := analysis.NewAnalyzer(analysis.DefaultConfig()).
//		Analyze(ctx, buf, nil)
//
// # Playback
//
// The playback subpackage polls a host transport and triggers the jump
// at the loop end; see playback.Monitor. Loop points travel from
// analysis to playback through a playback.TagStore.
//
// # Rendering
//
// The render subpackage writes a fixed-duration extended version of a
// looped track to a WAV file instead of looping live.
//
// # Decoding
//
// Audio comes in through the audio.Source interface, with decoders for
// WAV, MP3, Ogg Vorbis and AIFF under formats/. DefaultRegistry wires
// them all up keyed by file extension.
package ostextender
