package analysis_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aurelia-audio/mp3enc/internal/analysis"
)

func TestLongSilenceHasZeroEnergy(t *testing.T) {
	f := analysis.New()
	samples := make([]float64, analysis.LongSize)
	energy := f.Long(samples)
	assert.Len(t, energy, analysis.LongSize/2+1)
	for _, e := range energy {
		assert.Equal(t, 0.0, e)
	}
}

func TestLongSineConcentratesEnergyNearBin(t *testing.T) {
	f := analysis.New()
	samples := make([]float64, analysis.LongSize)
	// A tone near bin 64 of a 1024-point transform.
	const bin = 64
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * float64(bin) * float64(i) / float64(analysis.LongSize))
	}
	energy := f.Long(samples)
	peak := 0
	for k := 1; k < len(energy); k++ {
		if energy[k] > energy[peak] {
			peak = k
		}
	}
	assert.InDelta(t, bin, peak, 2)
}

func TestShortReturnsThreeWindows(t *testing.T) {
	f := analysis.New()
	samples := make([]float64, 3*analysis.ShortSize)
	out := f.Short(samples)
	assert.Len(t, out, 3)
	for _, e := range out {
		assert.Len(t, e, analysis.ShortSize/2+1)
	}
}
