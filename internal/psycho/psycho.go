package psycho

import (
	"math"

	"github.com/aurelia-audio/mp3enc/internal/analysis"
	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/consts"
)

// sentinel disables pre-echo clamping on the granule where no prior
// energy history exists yet (spec §3 "Psy state" lifecycle).
const sentinel = 1e20

// State is the persistent per-channel psychoacoustic state (spec §3).
type State struct {
	// PrevBlockType is the finalized block type of the granule most
	// recently run through processGranule; AnalyzeLong's pre-echo clamp
	// reads it to tell whether the filterbank just came out of a SHORT
	// block.
	PrevBlockType consts.BlockType

	// fsmOld is NextBlockType's own bookkeeping (spec §4.C.4's one-granule
	// delayed block-type decision): the tentative type of the granule
	// NextBlockType has not yet emitted, distinct from PrevBlockType
	// above once an attack retroactively upgrades it.
	fsmOld consts.BlockType

	NbL1, NbL2 []float64    // previous / pre-previous long partition energies
	NbS1, NbS2 [3][]float64 // previous / pre-previous short partition energies

	LastAttacks    [3]bool
	LastEnSubshort [9]float64
	LoudnessSqSave float64
	TotEner        float64
}

// NewState returns a State initialized with "loud" sentinels so the
// first granule's pre-echo control is disabled (spec §3).
func NewState(npart int) *State {
	s := &State{
		NbL1: make([]float64, npart),
		NbL2: make([]float64, npart),
	}
	for b := range s.NbL1 {
		s.NbL1[b] = sentinel
		s.NbL2[b] = sentinel
	}
	for w := 0; w < 3; w++ {
		s.NbS1[w] = make([]float64, npart)
		s.NbS2[w] = make([]float64, npart)
		for b := range s.NbS1[w] {
			s.NbS1[w][b] = sentinel
			s.NbS2[w][b] = sentinel
		}
	}
	return s
}

// Result is the per-channel output of one granule's analysis, delayed
// by one granule relative to the input that produced it (spec §4.C).
type Result struct {
	BlockType consts.BlockType

	EnLong, ThmLong   [consts.SBMaxLong]float64
	EnShort, ThmShort [3][consts.SBMaxShort]float64

	PE         float64
	LoudnessSq float64
}

// partitionStats holds the per-partition energy/tonality computed by
// §4.C.1, consumed by the spreading step.
type partitionStats struct {
	eb      []float64
	maskIdx []int
}

func analyzePartitions(t *Tables, energy []float64) partitionStats {
	ps := partitionStats{eb: make([]float64, t.NPart), maskIdx: make([]int, t.NPart)}
	maxv := make([]float64, t.NPart)
	avg := make([]float64, t.NPart)
	for b := 0; b < t.NPart; b++ {
		sum, mx := 0.0, 0.0
		for k := t.BinLo[b]; k < t.BinHi[b]; k++ {
			if k < len(energy) {
				sum += energy[k]
				if energy[k] > mx {
					mx = energy[k]
				}
			}
		}
		ps.eb[b] = sum
		maxv[b] = mx
		if t.NumLines[b] > 0 {
			avg[b] = sum / float64(t.NumLines[b])
		}
	}
	for b := 0; b < t.NPart; b++ {
		lo, hi := b-1, b+1
		if lo < 0 {
			lo = 0
		}
		if hi >= t.NPart {
			hi = t.NPart - 1
		}
		m := 0.0
		a := 0.0
		w := 0.0
		for kk := lo; kk <= hi; kk++ {
			if maxv[kk] > m {
				m = maxv[kk]
			}
			a += avg[kk]
			w += float64(t.NumLines[kk])
		}
		idx := 0
		if a > 0 && w > 1 {
			peakiness := 20 * (m*w - a) / (a * (w - 1))
			idx = int(peakiness / 6)
			if idx < 0 {
				idx = 0
			}
			if idx > 8 {
				idx = 8
			}
		}
		ps.maskIdx[b] = idx
	}
	return ps
}

// spread runs the convolution of §4.C.2 using the packed spreading
// kernel, applying the long-block-only -8dB trailing correction.
func spread(t *Tables, ps partitionStats, isLong bool) []float64 {
	ecb := make([]float64, t.NPart)
	for b := 0; b < t.NPart; b++ {
		lo, hi := t.S3Ind[b][0], t.S3Ind[b][1]
		acc := 0.0
		for kk := lo; kk <= hi; kk++ {
			contrib := t.S3[b][kk-lo] * ps.eb[kk] * tab[ps.maskIdx[kk]]
			acc = maskAdd(acc, contrib)
		}
		if acc < t.ATH[b] {
			acc = t.ATH[b] * 0.5
		}
		if isLong {
			acc *= math.Pow(10, -0.8)
		}
		ecb[b] = acc
	}
	return ecb
}

// preEcho applies the temporal/pre-echo clamp of §4.C.3 for long blocks
// and advances the nb_l1/nb_l2 history.
func preEcho(ecb []float64, state *State, prevWasShort bool) []float64 {
	const rpelev, rpelev2 = 2.0, 16.0
	thr := make([]float64, len(ecb))
	for b := range ecb {
		if prevWasShort {
			thr[b] = ecb[b]
		} else {
			m := ecb[b]
			if v := rpelev * state.NbL1[b]; v < m {
				m = v
			}
			if v := rpelev2 * state.NbL2[b]; v < m {
				m = v
			}
			// NS_INTERP(min(...), ecb, pcfact): blend the pre-echo-limited
			// candidate with the raw energy; pcfact=0.6 mirrors the
			// conventional default used for non-experimental encodes.
			const pcfact = 0.6
			thr[b] = math.Pow(m, pcfact) * math.Pow(ecb[b], 1-pcfact)
		}
	}
	copy(state.NbL2, state.NbL1)
	copy(state.NbL1, ecb)
	return thr
}

// preEchoShort is the per-subblock analogue of preEcho for SHORT blocks,
// with attack-position-dependent attenuation (spec §4.C.3).
func preEchoShort(ecbWin [3][]float64, state *State, attackPos int) [3][]float64 {
	att := [3]float64{1.0, 1.0, 1.0}
	// NS_PREECHO_ATT0..2: attenuate more strongly around the attack
	// subblock so its precursor windows do not inherit its loudness.
	atten := [3]float64{0.4, 0.6, 0.8}
	for i := range att {
		d := i - attackPos
		if d < 0 {
			d = -d
		}
		if d < len(atten) {
			att[d%len(atten)] = atten[d]
		}
	}
	var thr [3][]float64
	for w := 0; w < 3; w++ {
		n := len(ecbWin[w])
		thr[w] = make([]float64, n)
		for b := 0; b < n; b++ {
			m := ecbWin[w][b]
			if v := 2 * state.NbS1[w][b]; v < m {
				m = v
			}
			if v := 16 * state.NbS2[w][b]; v < m {
				m = v
			}
			thr[w][b] = m*att[w] + ecbWin[w][b]*(1-att[w])
		}
		copy(state.NbS2[w], state.NbS1[w])
		copy(state.NbS1[w], ecbWin[w])
	}
	return thr
}

func freqOfLongLine(line, sampleRateHz int) float64 {
	return float64(line) / float64(2*consts.SamplesPerGr) * float64(sampleRateHz)
}

func freqOfShortLine(line, sampleRateHz int) float64 {
	return float64(line) / float64(192) * float64(sampleRateHz) / 2
}

// rollupLong sums a per-partition quantity into the 22 long SFBs by
// frequency overlap between the FFT partition layout and the MDCT SFB
// boundaries — the two domains use different discretizations of the
// same 0..Nyquist axis, so membership is decided by center frequency
// rather than by a shared index space.
func rollupLong(t *Tables, values []float64, bounds [23]int, sampleRateHz int) [consts.SBMaxLong]float64 {
	var out [consts.SBMaxLong]float64
	for b := 0; b < t.NPart; b++ {
		sfb := sfbForFreq(t.CenterHz[b], bounds, sampleRateHz, freqOfLongLine)
		if sfb >= 0 && sfb < consts.SBMaxLong {
			out[sfb] += values[b]
		}
	}
	return out
}

func rollupShort(t *Tables, values []float64, bounds [14]int, sampleRateHz int) [consts.SBMaxShort]float64 {
	var out [consts.SBMaxShort]float64
	for b := 0; b < t.NPart; b++ {
		sfb := sfbForFreq(t.CenterHz[b], toBounds23(bounds), sampleRateHz, freqOfShortLine)
		if sfb >= 0 && sfb < consts.SBMaxShort {
			out[sfb] += values[b]
		}
	}
	return out
}

func toBounds23(b [14]int) [23]int {
	var out [23]int
	copy(out[:14], b[:])
	for i := 14; i < 23; i++ {
		out[i] = b[13]
	}
	return out
}

func sfbForFreq(freqHz float64, bounds [23]int, sampleRateHz int, lineFreq func(int, int) float64) int {
	for sfb := 0; sfb < len(bounds)-1; sfb++ {
		lo := lineFreq(bounds[sfb], sampleRateHz)
		hi := lineFreq(bounds[sfb+1], sampleRateHz)
		if freqHz >= lo && freqHz < hi {
			return sfb
		}
	}
	return len(bounds) - 2
}

// PerceptualEntropy computes PE (spec §4.C.6) over either the long or
// short SFB set.
func PerceptualEntropy(en, thm []float64, maskingLower float64) float64 {
	const c0 = 3.0
	pe := c0
	for b := range en {
		if en[b] > thm[b]*maskingLower && thm[b] > 0 {
			pe += math.Log10(en[b]/(thm[b]*maskingLower)) * 11.0
		}
	}
	return pe
}

// AnalyzeLong runs §4.C.1-4.C.3 for one channel's long-block analysis
// and rolls the result up to the 22 usable long SFBs.
func AnalyzeLong(t *Tables, energy []float64, state *State, bounds [23]int, sampleRateHz int) (en, thm [consts.SBMaxLong]float64) {
	ps := analyzePartitions(t, energy)
	ecb := spread(t, ps, true)
	thr := preEcho(ecb, state, state.PrevBlockType == consts.BlockShort)
	en = rollupLong(t, ps.eb, bounds, sampleRateHz)
	thm = rollupLong(t, thr, bounds, sampleRateHz)
	for b := range thm {
		if thm[b] > en[b] {
			thm[b] = en[b]
		}
	}
	return en, thm
}

// AnalyzeShort runs §4.C.1-4.C.3 for the three subwindows of a short
// block and rolls the result up to the 13 usable short SFBs.
func AnalyzeShort(t *Tables, energyWin [3][]float64, state *State, bounds [14]int, sampleRateHz int, attackPos int) (en, thm [3][consts.SBMaxShort]float64) {
	var ecbWin [3][]float64
	var psWin [3]partitionStats
	for w := 0; w < 3; w++ {
		psWin[w] = analyzePartitions(t, energyWin[w])
		ecbWin[w] = spread(t, psWin[w], false)
	}
	thrWin := preEchoShort(ecbWin, state, attackPos)
	for w := 0; w < 3; w++ {
		en[w] = rollupShort(t, psWin[w].eb, bounds, sampleRateHz)
		thm[w] = rollupShort(t, thrWin[w], bounds, sampleRateHz)
		for b := range thm[w] {
			if thm[w][b] > en[w][b] {
				thm[w][b] = en[w][b]
			}
		}
	}
	return en, thm
}

// DetectAttack implements §4.C.4's sub-short attack detection: the 576
// time samples are split into 9 64-sample sub-blocks, and an attack is
// flagged when a sub-block's peak energy jumps sharply relative to the
// sub-block two steps earlier.
func DetectAttack(samples []float64, state *State) (attack bool, attackSubblock int) {
	var peaks [9]float64
	hp := highpassQuarterFs(samples)
	for i := 0; i < 9; i++ {
		lo, hi := i*64, (i+1)*64
		m := 0.0
		for j := lo; j < hi && j < len(hp); j++ {
			if v := hp[j] * hp[j]; v > m {
				m = v
			}
		}
		peaks[i] = m
	}
	const attackThreshold = 5.0
	best := -1
	bestRatio := 0.0
	for i := 0; i < 9; i++ {
		var prev float64
		if i >= 2 {
			prev = peaks[i-2]
		} else {
			// sub-shorts 0 and 1 reach two steps back into the previous
			// granule's trailing sub-shorts 7 and 8 (spec §3's persisted
			// last_en_subshort[9]).
			prev = state.LastEnSubshort[i+7]
		}
		if prev <= 0 {
			prev = 1e-12
		}
		ratio := peaks[i] / prev
		if ratio > attackThreshold && ratio > bestRatio {
			nonPeriodic := peaks[i] >= 40000 || (i > 0 && peaks[i] >= 1.7*peaks[i-1])
			if nonPeriodic {
				bestRatio = ratio
				best = i
			}
		}
	}
	copy(state.LastEnSubshort[:], peaks[:])
	if best < 0 {
		return false, 0
	}
	return true, best / 3
}

// highpassQuarterFs is a minimal first-difference high-pass filter
// approximating the fs/4 cutoff FIR of §4.C.4; its purpose is only to
// emphasize transients ahead of sub-short peak detection.
func highpassQuarterFs(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - samples[i-1]
	}
	return out
}

// NextBlockType runs one round of the block-type state machine of
// §4.C.4. It takes the attack decision for the granule whose samples
// were just analyzed and returns the FINALIZED block type of the
// PREVIOUS granule (spec §2/§4.C: "block type for the previous
// granule", output delayed by one granule).
//
// The granule that contains the attack becomes SHORT (its tentative
// type, handed back on the next call). The attack also reaches back
// and retags the already-pending granule before handing it back — NORM
// becomes START, STOP becomes SHORT — so the transition begins one
// granule before the attack that caused it, matching the encoder's
// actual MDCT delay.
func NextBlockType(state *State, attack bool) consts.BlockType {
	cur := consts.BlockLong
	switch {
	case attack:
		cur = consts.BlockShort
		switch state.fsmOld {
		case consts.BlockLong:
			state.fsmOld = consts.BlockStart
		case consts.BlockStop:
			state.fsmOld = consts.BlockShort
		}
	case state.fsmOld == consts.BlockShort:
		cur = consts.BlockStop
	}
	emitted := state.fsmOld
	state.fsmOld = cur
	return emitted
}

// CoupleShortDecisions implements the channel-coupling rule of §4.C.4:
// when short_blocks=coupled, an attack on either channel forces a short
// decision on both.
func CoupleShortDecisions(attackL, attackR bool, policy config.ShortBlocksPolicy) (bool, bool) {
	switch policy {
	case config.ShortBlocksCoupled:
		a := attackL || attackR
		return a, a
	case config.ShortBlocksForced:
		return true, true
	case config.ShortBlocksDispensed:
		return false, false
	default:
		return attackL, attackR
	}
}

// StereoDemask applies the Johnston-Ferreira M/S masking formula of
// §4.C.5, optionally rescaling by msfix and interChRatio.
func StereoDemask(enM, enS, thmM, thmS [consts.SBMaxLong]float64, mld [consts.SBMaxLong]float64, msfix, interChRatio float64) (rm, rs [consts.SBMaxLong]float64) {
	for b := range thmM {
		rmid := math.Max(thmM[b], math.Min(thmS[b], mld[b]*enS[b]))
		rside := math.Max(thmS[b], math.Min(thmM[b], mld[b]*enM[b]))
		if interChRatio > 0 {
			rmid += interChRatio * rside
			rside += interChRatio * rmid
		}
		if msfix > 0 {
			lr := thmM[b] + thmS[b]
			sum := rmid + rside
			if sum > 0 && sum < lr*msfix {
				scale := lr * msfix / sum
				rmid *= scale
				rside *= scale
			}
		}
		rm[b] = rmid
		rs[b] = rside
	}
	return rm, rs
}

// DefaultMLD returns a flat minimum-masking-level-difference table; a
// full Bark-dependent MLD curve is a further refinement not required by
// the structural invariants this module targets.
func DefaultMLD() [consts.SBMaxLong]float64 {
	var mld [consts.SBMaxLong]float64
	for i := range mld {
		mld[i] = 0.01
	}
	return mld
}
