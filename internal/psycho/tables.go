// Package psycho is the psychoacoustic engine (spec §4.C): partition
// energy and tonality, spreading, pre-echo control, block-type decision,
// stereo demasking and perceptual entropy. It is the largest component
// by design (spec §2's 30% budget share).
//
// Static tables (Bark partition layout, spreading kernel, ATH curve) are
// computed once per (sample rate, spreading variant) into an immutable
// struct held in a mutex-guarded cache, per spec §9 "Process-wide
// state": the legacy code's global tables become lazily-initialized,
// session-shareable tables keyed by sample rate and spreading variant;
// masking addition is the plain function maskAdd, not a table.
package psycho

import (
	"math"
	"sync"

	"github.com/aurelia-audio/mp3enc/internal/analysis"
	"github.com/aurelia-audio/mp3enc/internal/config"
)

// tab[0..8] scales a partition's contribution to spreading by its
// tonality/peakiness index (spec §4.C.1).
var tab = [9]float64{
	1.0,
	math.Pow(10, -0.1),
	math.Pow(10, -0.2),
	math.Pow(10, -0.2),
	math.Pow(10, -0.2),
	math.Pow(10, -0.2),
	math.Pow(10, -0.2),
	math.Pow(10, -0.3),
	math.Pow(10, -0.6),
}

// Tables is the immutable, per-sample-rate static layout the engine
// needs: Bark partitions over the long FFT spectrum, the spreading
// kernel in packed (s3ind, s3) form, and the ATH floor per partition.
type Tables struct {
	SampleRateHz int

	NPart    int
	BinLo    []int     // first FFT bin of partition b
	BinHi    []int     // one past the last FFT bin of partition b (exclusive)
	NumLines []int     // BinHi[b]-BinLo[b]
	CenterHz []float64 // center frequency of partition b

	// S3Ind[b] = [lo, hi], the inclusive range of source partitions that
	// spread into destination partition b; S3[b] holds hi-lo+1 weights
	// aligned to that range (spec §9 "Variable-length payload": packed,
	// not a dense npart×npart matrix).
	S3Ind [][2]int
	S3    [][]float64

	ATH []float64 // absolute threshold of hearing, linear power, per partition
}

type tablesKey struct {
	sampleRateHz int
	variant      config.SpreadingVariant
}

var (
	tablesMu    sync.Mutex
	tablesCache = map[tablesKey]*Tables{}
)

// ForSampleRate returns the cached Tables for sampleRateHz under the
// normal spreading kernel, computing them on first use. Kept for
// callers that don't carry a resolved SpreadingVariant.
func ForSampleRate(sampleRateHz int) *Tables {
	return ForSampleRateVariant(sampleRateHz, config.SpreadingNormal)
}

// ForSampleRateVariant returns the cached Tables for sampleRateHz built
// with the given spreading kernel (spec §9's "use_old_s3" open
// question), computing them on first use.
func ForSampleRateVariant(sampleRateHz int, variant config.SpreadingVariant) *Tables {
	key := tablesKey{sampleRateHz, variant}
	tablesMu.Lock()
	defer tablesMu.Unlock()
	if t, ok := tablesCache[key]; ok {
		return t
	}
	t := buildTables(sampleRateHz, variant)
	tablesCache[key] = t
	return t
}

func bark(freqHz float64) float64 {
	return 13*math.Atan(0.00076*freqHz) + 3.5*math.Atan(math.Pow(freqHz/7500, 2))
}

func buildTables(sampleRateHz int, variant config.SpreadingVariant) *Tables {
	nbins := analysis.LongSize/2 + 1
	binHz := float64(sampleRateHz) / float64(analysis.LongSize)

	t := &Tables{SampleRateHz: sampleRateHz}
	const barkStep = 0.34
	lo := 0
	startBark := bark(binHz * 0.5)
	for lo < nbins {
		hi := lo + 1
		for hi < nbins && bark(float64(hi)*binHz)-startBark < barkStep {
			hi++
		}
		t.BinLo = append(t.BinLo, lo)
		t.BinHi = append(t.BinHi, hi)
		t.NumLines = append(t.NumLines, hi-lo)
		center := (float64(lo) + float64(hi-1)) / 2 * binHz
		t.CenterHz = append(t.CenterHz, center)
		startBark = bark(float64(hi) * binHz)
		lo = hi
	}
	t.NPart = len(t.BinLo)

	t.S3Ind = make([][2]int, t.NPart)
	t.S3 = make([][]float64, t.NPart)
	for b := 0; b < t.NPart; b++ {
		bb := bark(t.CenterHz[b])
		lo, hi := 0, t.NPart-1
		for lo < t.NPart && bb-bark(t.CenterHz[lo]) > 8 {
			lo++
		}
		for hi >= 0 && bark(t.CenterHz[hi])-bb > 8 {
			hi--
		}
		if hi < lo {
			hi = lo
		}
		t.S3Ind[b] = [2]int{lo, hi}
		weights := make([]float64, hi-lo+1)
		sum := 0.0
		hfSlope := 15 + math.Min(21/bb, 12)
		for kk := lo; kk <= hi; kk++ {
			d := bark(t.CenterHz[kk]) - bb
			var v float64
			if variant == config.SpreadingSlopeAsymmetric {
				v = slopeSpread(d, hfSlope)
			} else {
				// spec §4.C.2 analytical spreading curve, integrated per
				// source partition rather than per source bin (a coarser but
				// structurally equivalent approximation).
				v = math.Pow(10, (15.811389+7.5*(d+0.474)-17.5*math.Sqrt(1+(d+0.474)*(d+0.474)))/10)
			}
			weights[kk-lo] = v
			sum += v
		}
		if sum > 0 {
			for i := range weights {
				weights[i] /= sum
			}
		}
		t.S3[b] = weights
	}

	t.ATH = make([]float64, t.NPart)
	for b, f := range t.CenterHz {
		t.ATH[b] = athDb(f)
	}
	return t
}

// athDb is the absolute threshold of hearing curve (Terhardt-style
// approximation), returned in linear power units normalized so a
// full-scale sine sits around unit energy.
func athDb(freqHz float64) float64 {
	if freqHz < 10 {
		freqHz = 10
	}
	f := freqHz / 1000
	db := 3.64*math.Pow(f, -0.8) - 6.5*math.Exp(-0.6*(f-3.3)*(f-3.3)) + 1e-3*f*f*f*f
	return math.Pow(10, db/10) * 1e-6
}

// slopeSpread is the piecewise-linear spreading kernel spec §4.C.2's
// slope/hf_slope asymmetry names: a fixed -27dB/Bark rolloff on the
// masker's low-frequency side, and a shallower, per-partition hfSlope
// rolloff (steeper near the low end of the spectrum, per bb) on its
// high-frequency side. Returned in linear energy, like the default
// kernel.
func slopeSpread(d, hfSlope float64) float64 {
	var db float64
	if d >= 0 {
		db = -d * 27
	} else {
		db = d * hfSlope
	}
	if db <= -72 {
		return 0
	}
	return math.Pow(10, db/10)
}

// maskAdd combines two masker contributions to the same destination
// partition (spec §4.C.2): close-level maskers add in power; a dominant
// masker more than 1.5dB above the other suppresses it. This is a hard
// switch at 1.5dB in place of the legacy's piecewise lookup tables;
// ratios between the two regimes are not interpolated.
func maskAdd(m1, m2 float64) float64 {
	if m1 <= 0 {
		return m2
	}
	if m2 <= 0 {
		return m1
	}
	lo, hi := m1, m2
	if lo > hi {
		lo, hi = hi, lo
	}
	ratioDb := 10 * math.Log10(hi/lo)
	if ratioDb > 1.5 {
		return hi
	}
	return m1 + m2
}
