package psycho_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/psycho"
)

func TestThresholdNeverExceedsEnergy(t *testing.T) {
	tables := psycho.ForSampleRate(44100)
	energy := make([]float64, len(tables.CenterHz)*9) // oversized, harmless
	for i := range energy {
		energy[i] = float64(i%7) * 0.001
	}
	state := psycho.NewState(tables.NPart)
	bounds := consts.SfBandIndexLong(consts.Version1, consts.SampleRate0)
	en, thm := psycho.AnalyzeLong(tables, energy, state, bounds, 44100)
	for b := range en {
		assert.LessOrEqual(t, thm[b], en[b]+1e-12)
	}
}

func TestBlockTypeStateMachineNeverJumpsNormToShort(t *testing.T) {
	seq := []bool{false, true, true, false, false}
	state := psycho.NewState(8)
	var history []consts.BlockType
	for _, attack := range seq {
		history = append(history, psycho.NextBlockType(state, attack))
	}
	for i := 1; i < len(history); i++ {
		if history[i] == consts.BlockShort {
			assert.NotEqual(t, consts.BlockLong, history[i-1])
		}
		if history[i-1] == consts.BlockShort {
			assert.NotEqual(t, consts.BlockLong, history[i])
		}
	}
}

func TestBlockTypeStateMachineDelaysStartByOneGranule(t *testing.T) {
	// A single isolated attack, reported when granule 2's own samples
	// are analyzed, must surface as START on granule 1, SHORT on
	// granule 2, and STOP on granule 3 — each call to NextBlockType
	// emits the FINALIZED type for the granule analyzed one call ago,
	// which is the delayed-output behavior spec §2/§4.C names
	// explicitly.
	attacks := []bool{false, false, true, false, false, false}
	state := psycho.NewState(8)
	var emitted []consts.BlockType
	for _, a := range attacks {
		emitted = append(emitted, psycho.NextBlockType(state, a))
	}
	// emitted[i] is the finalized type of the granule analyzed at
	// attacks[i-1]; granule 1 (attacks[1]) got upgraded to START by
	// granule 2's attack, granule 2 itself is SHORT, granule 3 is STOP.
	want := []consts.BlockType{
		consts.BlockLong,
		consts.BlockLong,
		consts.BlockStart,
		consts.BlockShort,
		consts.BlockStop,
		consts.BlockLong,
	}
	assert.Equal(t, want, emitted)
}

func TestCoupleShortDecisionsForcesBothOnEitherAttack(t *testing.T) {
	l, r := psycho.CoupleShortDecisions(true, false, 1 /* ShortBlocksCoupled */)
	assert.True(t, l)
	assert.True(t, r)
}

func TestPerceptualEntropyIsBaseConstantWhenBelowThreshold(t *testing.T) {
	en := []float64{1, 1, 1}
	thm := []float64{10, 10, 10}
	pe := psycho.PerceptualEntropy(en, thm, 1.0)
	assert.InDelta(t, 3.0, pe, 1e-9)
}

func TestSpreadingVariantsProduceDifferentTables(t *testing.T) {
	normal := psycho.ForSampleRateVariant(22050, config.SpreadingNormal)
	asym := psycho.ForSampleRateVariant(22050, config.SpreadingSlopeAsymmetric)
	require.Equal(t, normal.NPart, asym.NPart)
	differs := false
	for b := range normal.S3 {
		if len(normal.S3[b]) != len(asym.S3[b]) {
			differs = true
			break
		}
		for i := range normal.S3[b] {
			if normal.S3[b][i] != asym.S3[b][i] {
				differs = true
				break
			}
		}
	}
	assert.True(t, differs, "the two spreading variants must compute different kernels")
}

func TestNewStateSentinelsDisablePreEchoFirstGranule(t *testing.T) {
	s := psycho.NewState(8)
	for _, v := range s.NbL1 {
		assert.Equal(t, 1e20, v)
	}
}
