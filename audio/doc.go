// SPDX-License-Identifier: EPL-2.0

// Package audio provides the streaming PCM primitives shared by the
// loop analyzer and the playback side.
//
// # Source Interface
//
// The Source interface is the foundation of every decode pipeline:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// All format decoders and processors implement it so they can be
// chained: decoder -> Resampler -> MonoMixer -> Buffer.
//
// # Collecting for Analysis
//
// Loop analysis works on a fully-decoded mono clip. CollectMono builds
// one, downsampling to the analysis rate and capping the decoded
// duration:
//
//	buf, err := audio.CollectMono(src, 22050, 300)
//
// # Resampling and Mixing
//
// The Resampler converts sample rate using cubic interpolation; the
// MonoMixer averages channels down to one. Both implement Source and
// stream, so nothing is held in memory beyond the final Buffer.
//
// # Format Registry
//
// The registry allows decoder lookup by format key:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, _ := registry.Get("wav")
//
// # Sample Format
//
// Samples are float32 in [-1.0, 1.0]: 0.0 is silence, ±1.0 is full
// scale. The normalized format keeps the analysis math independent of
// source bit depth.
//
// # Error Handling
//
// Streaming functions return io.EOF when no more data is available;
// any other error indicates a real problem with the source:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // process n samples
//	}
package audio
