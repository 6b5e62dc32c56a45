package mdct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/mdct"
)

func TestForwardSilenceProducesSilence(t *testing.T) {
	tr := mdct.New()
	var samples [consts.SamplesPerGr]float64
	out := tr.Forward(0, samples, consts.BlockLong)
	for _, v := range out {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestForwardShortProducesNonZeroCoefficients(t *testing.T) {
	tr := mdct.New()
	var samples [consts.SamplesPerGr]float64
	for i := range samples {
		samples[i] = 0.1
	}
	out := tr.Forward(0, samples, consts.BlockShort)
	nonZero := false
	for _, v := range out {
		if v != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero)
}

func TestForwardIsDeterministic(t *testing.T) {
	tr1 := mdct.New()
	tr2 := mdct.New()
	var samples [consts.SamplesPerGr]float64
	for i := range samples {
		samples[i] = float64(i%23) * 0.01
	}
	out1 := tr1.Forward(0, samples, consts.BlockLong)
	out2 := tr2.Forward(0, samples, consts.BlockLong)
	assert.Equal(t, out1, out2)
}
