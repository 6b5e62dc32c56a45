package quant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/quant"
)

func TestPrepareDetectsAnalogSilence(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	_, silence := quant.Prepare(xr)
	assert.True(t, silence)
}

func TestPrepareRejectsNonSilence(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	xr[10] = 0.5
	_, silence := quant.Prepare(xr)
	assert.False(t, silence)
}

func TestInnerLoopGlobalGainStaysInRange(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	for i := range xr {
		xr[i] = float64(i%17) * 0.02
	}
	xrpow, _ := quant.Prepare(xr)
	gain, _, bits := quant.InnerLoop(xr, xrpow, 128, 800)
	assert.GreaterOrEqual(t, gain, 0)
	assert.LessOrEqual(t, gain, 255)
	assert.GreaterOrEqual(t, bits, 0)
}

func TestOuterLoopSilenceProducesZeroGain(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	var xmin [consts.SBMaxLong]float64
	bounds := consts.SfBandIndexLong(consts.Version1, consts.SampleRate0)
	res := quant.OuterLoop(xr, xmin, 500, bounds, 128)
	assert.True(t, res.AnalogSilence)
	assert.Equal(t, 0, res.GlobalGain)
}

func TestOuterLoopStaysWithinBitBudget(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	var xmin [consts.SBMaxLong]float64
	for i := range xr {
		xr[i] = float64(i%31) * 0.01
	}
	for i := range xmin {
		xmin[i] = 1e-4
	}
	bounds := consts.SfBandIndexLong(consts.Version1, consts.SampleRate0)
	res := quant.OuterLoop(xr, xmin, 1200, bounds, 128)
	assert.LessOrEqual(t, res.Part2_3Length, 4095)
	for _, s := range res.ScalefacL {
		if res.ScalefacScale == 0 {
			assert.Less(t, s, 16)
		} else {
			assert.Less(t, s, 8)
		}
	}
}

func TestOuterLoopScalefacWidthHoldsUnderHeavyAmplification(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	var xmin [consts.SBMaxLong]float64
	for i := range xr {
		xr[i] = float64(i%31) * 0.01
	}
	for i := range xmin {
		xmin[i] = 1e-9 // forces many amplification passes, driving scalefac_scale to 1
	}
	bounds := consts.SfBandIndexLong(consts.Version1, consts.SampleRate0)
	res := quant.OuterLoop(xr, xmin, 1200, bounds, 128)
	for _, s := range res.ScalefacL {
		if res.ScalefacScale == 0 {
			assert.Less(t, s, 16)
		} else {
			assert.Less(t, s, 8)
		}
	}
}

func TestOuterLoopGlobalGainInRange(t *testing.T) {
	var xr [consts.SamplesPerGr]float64
	var xmin [consts.SBMaxLong]float64
	for i := range xr {
		xr[i] = float64(i%13) * 0.05
	}
	for i := range xmin {
		xmin[i] = 1e-3
	}
	bounds := consts.SfBandIndexLong(consts.Version1, consts.SampleRate0)
	res := quant.OuterLoop(xr, xmin, 1500, bounds, 128)
	assert.GreaterOrEqual(t, res.GlobalGain, 0)
	assert.LessOrEqual(t, res.GlobalGain, 255)
}
