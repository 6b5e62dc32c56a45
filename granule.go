package mp3enc

import (
	"math"

	"github.com/aurelia-audio/mp3enc/internal/analysis"
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/psycho"
	"github.com/aurelia-audio/mp3enc/internal/quant"
	"github.com/aurelia-audio/mp3enc/internal/sample"
)

// granuleResult is one granule's finished quantization, one slot per
// channel (spec §3 "Granule info", one instance per gr/ch).
type granuleResult struct {
	res       [2]quant.Result
	blockType [2]consts.BlockType
}

// processGranule runs components B through F (spec §4.B-§4.F) on one
// granule's worth of samples for every active channel, including the
// joint-stereo mid/side recombination when the session mode calls for
// it, and returns the finished per-channel quantization.
//
// samples is the granule actually being transformed; blockType and
// attackPos must already be finalized by the caller (spec §2/§4.C: the
// psychoacoustic model's block-type decision is delayed by one granule,
// so by the time a granule reaches here its type is already settled).
func (e *Encoder) processGranule(samples [2][sample.GranuleSize]float64, blockType [2]consts.BlockType, attackPos [2]int, gr int) granuleResult {
	nch := e.params.NumChannels
	t := psycho.ForSampleRateVariant(e.params.SampleRateHz, e.params.SpreadingVariant)

	for ch := 0; ch < nch; ch++ {
		e.pushHistory(ch, samples[ch])
	}

	var enLong, thmLong [2][consts.SBMaxLong]float64
	var enShort, thmShort [2][3][consts.SBMaxShort]float64
	var pe [2]float64

	for ch := 0; ch < nch; ch++ {
		if blockType[ch] == consts.BlockShort {
			win := e.window(ch, 3*analysis.ShortSize)
			energy := e.frontend.Short(win)
			enShort[ch], thmShort[ch] = psycho.AnalyzeShort(t, energy, e.psyState[ch], e.sfBandShort, e.params.SampleRateHz, attackPos[ch])
			for w := 0; w < 3; w++ {
				pe[ch] += psycho.PerceptualEntropy(enShort[ch][w][:], thmShort[ch][w][:], 1.0)
			}
			pe[ch] /= 3
		} else {
			win := e.window(ch, analysis.LongSize)
			energy := e.frontend.Long(win)
			enLong[ch], thmLong[ch] = psycho.AnalyzeLong(t, energy, e.psyState[ch], e.sfBandLong, e.params.SampleRateHz)
			pe[ch] = psycho.PerceptualEntropy(enLong[ch][:], thmLong[ch][:], 1.0)
		}
	}

	var xr [2][consts.SamplesPerGr]float64
	for ch := 0; ch < nch; ch++ {
		xr[ch] = e.transform[ch].Forward(ch, samples[ch], blockType[ch])
	}

	jointStereo := nch == 2 && e.params.FrameMode == consts.ModeJointStereo && blockType[0] == blockType[1]

	var out granuleResult
	out.blockType = blockType

	if jointStereo {
		var xrM, xrS [consts.SamplesPerGr]float64
		const inv = 1 / math.Sqrt2
		for i := range xr[0] {
			xrM[i] = (xr[0][i] + xr[1][i]) * inv
			xrS[i] = (xr[0][i] - xr[1][i]) * inv
		}

		msRatio := 0.0
		if blockType[0] == consts.BlockShort {
			var rm, rs [consts.SBMaxShort][3]float64
			var sumM, sumS float64
			for w := 0; w < 3; w++ {
				rmWin, rsWin := stereoDemaskShort(enShort[0][w], enShort[1][w], thmShort[0][w], thmShort[1][w], e.mld, e.params.MSFix, e.params.InterChRatio)
				for b := 0; b < consts.SBMaxShort; b++ {
					rm[b][w] = rmWin[b]
					rs[b][w] = rsWin[b]
				}
				for b := range enShort[0][w] {
					sumM += enShort[0][w][b]
					sumS += enShort[1][w][b]
				}
			}
			if sumM > 0 {
				msRatio = sumS / sumM
			}
			targetM := e.rc.TargetBits(pe[0], msRatio, gr, 0)
			targetS := e.rc.TargetBits(pe[1], msRatio, gr, 1)
			out.res[0] = quant.OuterLoopShort(xrM, rm, targetM, e.sfBandShort, e.prevGain[0])
			out.res[1] = quant.OuterLoopShort(xrS, rs, targetS, e.sfBandShort, e.prevGain[1])
		} else {
			rm, rs := psycho.StereoDemask(enLong[0], enLong[1], thmLong[0], thmLong[1], e.mld, e.params.MSFix, e.params.InterChRatio)
			var sumM, sumS float64
			for b := range enLong[0] {
				sumM += enLong[0][b]
				sumS += enLong[1][b]
			}
			if sumM > 0 {
				msRatio = sumS / sumM
			}
			targetM := e.rc.TargetBits(pe[0], msRatio, gr, 0)
			targetS := e.rc.TargetBits(pe[1], msRatio, gr, 1)
			out.res[0] = quant.OuterLoop(xrM, rm, targetM, e.sfBandLong, e.prevGain[0])
			out.res[1] = quant.OuterLoop(xrS, rs, targetS, e.sfBandLong, e.prevGain[1])
		}
	} else {
		for ch := 0; ch < nch; ch++ {
			target := e.rc.TargetBits(pe[ch], 0, gr, ch)
			if blockType[ch] == consts.BlockShort {
				out.res[ch] = quant.OuterLoopShort(xr[ch], transposeShort(thmShort[ch]), target, e.sfBandShort, e.prevGain[ch])
			} else {
				out.res[ch] = quant.OuterLoop(xr[ch], thmLong[ch], target, e.sfBandLong, e.prevGain[ch])
			}
		}
	}

	for ch := 0; ch < nch; ch++ {
		e.prevGain[ch] = out.res[ch].GlobalGain
		e.rc.ReservoirAdjust(out.res[ch].Part2_3Length)
	}

	return out
}

// transposeShort converts psycho's window-major short thresholds
// ([window][band]) into quant's band-major layout ([band][window]).
func transposeShort(win [3][consts.SBMaxShort]float64) [consts.SBMaxShort][3]float64 {
	var out [consts.SBMaxShort][3]float64
	for w := 0; w < 3; w++ {
		for b := 0; b < consts.SBMaxShort; b++ {
			out[b][w] = win[w][b]
		}
	}
	return out
}

// stereoDemaskShort applies psycho.StereoDemask per short-block SFB
// count (13 bands) instead of the long table's 22, since the two block
// shapes use different-sized SFB arrays but the same masking formula.
func stereoDemaskShort(enM, enS, thmM, thmS [consts.SBMaxShort]float64, mld [consts.SBMaxLong]float64, msfix, interChRatio float64) (rm, rs [consts.SBMaxShort]float64) {
	var enML, enSL, thmML, thmSL [consts.SBMaxLong]float64
	copy(enML[:], enM[:])
	copy(enSL[:], enS[:])
	copy(thmML[:], thmM[:])
	copy(thmSL[:], thmS[:])
	rmL, rsL := psycho.StereoDemask(enML, enSL, thmML, thmSL, mld, msfix, interChRatio)
	copy(rm[:], rmL[:consts.SBMaxShort])
	copy(rs[:], rsL[:consts.SBMaxShort])
	return rm, rs
}
