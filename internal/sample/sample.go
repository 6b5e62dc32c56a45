// Package sample is the encoder's PCM ingestion front-end (spec §4.A):
// it buffers caller-supplied PCM, applies optional rescaling and
// stereo-to-mono downmix, resamples when the caller's rate differs from
// the session's, and hands out fixed-size 576-sample granules to the
// rest of the pipeline.
//
// Grounded on the teacher's source.go: source buffered raw bytes behind
// a ReadFull/Unread pair so a partial frame's worth of data could be
// held across calls; Pipeline buffers float64 samples the same way,
// inverted for push rather than pull.
package sample

import (
	"github.com/aurelia-audio/mp3enc/internal/config"
)

// GranuleSize is the number of time-domain samples per channel the
// filterbank consumes for one granule (spec §4.A, §6.1).
const GranuleSize = 576

// Pipeline accumulates PCM for one encoder session and emits granules.
type Pipeline struct {
	params *config.Params

	pending [2][]float64 // per-channel backlog not yet granule-sized

	// srcRate is the session rate recorded at construction. Nothing reads
	// it; resample keeps no state between calls.
	srcRate int
}

// New creates a Pipeline bound to a resolved session configuration.
func New(p *config.Params) *Pipeline {
	return &Pipeline{params: p, srcRate: p.SampleRateHz}
}

// IngestFloat64Planar is the core entry point; every typed overload
// converts to this domain and shape. left/right are full-scale float64
// samples (1.0 == digital full scale); right is ignored for mono input.
func (pl *Pipeline) IngestFloat64Planar(left, right []float64, srcChannels, srcRateHz int) {
	l, r := pl.rescale(left, right, srcChannels)
	l, r = pl.downmix(l, r, srcChannels)
	l, r = pl.resample(l, r, srcRateHz)
	pl.pending[0] = append(pl.pending[0], l...)
	if pl.params.NumChannels == 2 {
		pl.pending[1] = append(pl.pending[1], r...)
	}
}

// IngestFloat64Interleaved de-interleaves before delegating to the planar
// path; srcChannels must be 1 or 2.
func (pl *Pipeline) IngestFloat64Interleaved(samples []float64, srcChannels, srcRateHz int) {
	if srcChannels == 1 {
		pl.IngestFloat64Planar(samples, nil, 1, srcRateHz)
		return
	}
	n := len(samples) / 2
	l := make([]float64, n)
	r := make([]float64, n)
	for i := 0; i < n; i++ {
		l[i] = samples[2*i]
		r[i] = samples[2*i+1]
	}
	pl.IngestFloat64Planar(l, r, 2, srcRateHz)
}

// IngestInt16Interleaved is the i16 overload of spec §6.1's
// encode_buffer family.
func (pl *Pipeline) IngestInt16Interleaved(samples []int16, srcChannels, srcRateHz int) {
	pl.IngestFloat64Interleaved(int16sToFloat64(samples), srcChannels, srcRateHz)
}

// IngestInt32Interleaved is the i32 overload.
func (pl *Pipeline) IngestInt32Interleaved(samples []int32, srcChannels, srcRateHz int) {
	f := make([]float64, len(samples))
	for i, v := range samples {
		f[i] = float64(v) / float64(1<<31)
	}
	pl.IngestFloat64Interleaved(f, srcChannels, srcRateHz)
}

// IngestInt64Interleaved is the i64 overload.
func (pl *Pipeline) IngestInt64Interleaved(samples []int64, srcChannels, srcRateHz int) {
	f := make([]float64, len(samples))
	for i, v := range samples {
		f[i] = float64(v) / float64(int64(1)<<63)
	}
	pl.IngestFloat64Interleaved(f, srcChannels, srcRateHz)
}

// IngestFloat32Interleaved is the f32 overload.
func (pl *Pipeline) IngestFloat32Interleaved(samples []float32, srcChannels, srcRateHz int) {
	f := make([]float64, len(samples))
	for i, v := range samples {
		f[i] = float64(v)
	}
	pl.IngestFloat64Interleaved(f, srcChannels, srcRateHz)
}

func int16sToFloat64(samples []int16) []float64 {
	f := make([]float64, len(samples))
	for i, v := range samples {
		f[i] = float64(v) / float64(1<<15)
	}
	return f
}

func (pl *Pipeline) rescale(l, r []float64, srcChannels int) ([]float64, []float64) {
	sl := pl.params.Scale * pl.params.ScaleL
	sr := pl.params.Scale * pl.params.ScaleR
	if sl == 1 && sr == 1 {
		return l, r
	}
	outL := make([]float64, len(l))
	for i, v := range l {
		outL[i] = v * sl
	}
	if srcChannels == 1 {
		return outL, nil
	}
	outR := make([]float64, len(r))
	for i, v := range r {
		outR[i] = v * sr
	}
	return outL, outR
}

// downmix folds a stereo source to mono when the session is mono, or
// duplicates a mono source to both channels when the session is stereo.
func (pl *Pipeline) downmix(l, r []float64, srcChannels int) ([]float64, []float64) {
	if pl.params.NumChannels == 1 {
		if srcChannels == 1 {
			return l, nil
		}
		mono := make([]float64, len(l))
		for i := range l {
			mono[i] = (l[i] + r[i]) / 2
		}
		return mono, nil
	}
	// session is stereo
	if srcChannels == 1 {
		return l, l
	}
	return l, r
}

// resample performs minimal linear interpolation when the source rate
// does not match the session rate. This is intentionally low quality:
// real resampling is out of scope (spec §1 Non-goals) and delegated to a
// caller-supplied collaborator; this exists only so a differing rate
// does not panic a standalone run of the module.
func (pl *Pipeline) resample(l, r []float64, srcRateHz int) ([]float64, []float64) {
	target := pl.params.SampleRateHz
	if srcRateHz == 0 || srcRateHz == target {
		return l, r
	}
	ratio := float64(target) / float64(srcRateHz)
	outN := int(float64(len(l)) * ratio)
	outL := linearResample(l, outN, ratio)
	var outR []float64
	if r != nil {
		outR = linearResample(r, outN, ratio)
	}
	return outL, outR
}

func linearResample(in []float64, outN int, ratio float64) []float64 {
	out := make([]float64, outN)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		frac := srcPos - float64(i0)
		var a, b float64
		if i0 < len(in) {
			a = in[i0]
		}
		if i0+1 < len(in) {
			b = in[i0+1]
		}
		out[i] = a + (b-a)*frac
	}
	return out
}

// NextGranule pops one GranuleSize-sample granule per channel, in
// presentation order, or returns ok=false if fewer than GranuleSize
// samples are buffered.
func (pl *Pipeline) NextGranule() (ch [2][GranuleSize]float64, ok bool) {
	if len(pl.pending[0]) < GranuleSize {
		return ch, false
	}
	copy(ch[0][:], pl.pending[0][:GranuleSize])
	pl.pending[0] = pl.pending[0][GranuleSize:]
	if pl.params.NumChannels == 2 {
		copy(ch[1][:], pl.pending[1][:GranuleSize])
		pl.pending[1] = pl.pending[1][GranuleSize:]
	}
	return ch, true
}

// Pending reports how many samples per channel remain buffered, used by
// Flush to decide how much silence padding completes the final granule.
func (pl *Pipeline) Pending() int {
	return len(pl.pending[0])
}

// PadSilence appends n zero samples per channel to the backlog; Flush
// picks n so the backlog ends on a granule boundary (spec §6.1 Flush:
// POSTDELAY appended as real zero samples).
func (pl *Pipeline) PadSilence(n int) {
	zeros := make([]float64, n)
	pl.pending[0] = append(pl.pending[0], zeros...)
	if pl.params.NumChannels == 2 {
		pl.pending[1] = append(pl.pending[1], zeros...)
	}
}
