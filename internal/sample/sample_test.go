package sample_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/sample"
)

func newParams(t *testing.T, nch int) *config.Params {
	t.Helper()
	p, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: nch, Quality: 5})
	require.NoError(t, err)
	return p
}

func TestNextGranuleRequiresFullBacklog(t *testing.T) {
	pl := sample.New(newParams(t, 2))
	_, ok := pl.NextGranule()
	assert.False(t, ok)
}

func TestIngestAndNextGranuleStereo(t *testing.T) {
	pl := sample.New(newParams(t, 2))
	interleaved := make([]int16, sample.GranuleSize*2)
	for i := 0; i < sample.GranuleSize; i++ {
		interleaved[2*i] = 100
		interleaved[2*i+1] = -100
	}
	pl.IngestInt16Interleaved(interleaved, 2, 44100)
	g, ok := pl.NextGranule()
	require.True(t, ok)
	assert.InDelta(t, 100.0/float64(1<<15), g[0][0], 1e-9)
	assert.InDelta(t, -100.0/float64(1<<15), g[1][0], 1e-9)
	assert.Equal(t, 0, pl.Pending())
}

func TestDownmixMonoFromStereoSource(t *testing.T) {
	pl := sample.New(newParams(t, 1))
	interleaved := make([]float64, sample.GranuleSize*2)
	for i := 0; i < sample.GranuleSize; i++ {
		interleaved[2*i] = 1.0
		interleaved[2*i+1] = -1.0
	}
	pl.IngestFloat64Interleaved(interleaved, 2, 44100)
	g, ok := pl.NextGranule()
	require.True(t, ok)
	assert.InDelta(t, 0.0, g[0][0], 1e-9)
}

func TestPadSilenceCompletesFinalGranule(t *testing.T) {
	pl := sample.New(newParams(t, 1))
	short := make([]float64, sample.GranuleSize-10)
	pl.IngestFloat64Planar(short, nil, 1, 44100)
	assert.Equal(t, sample.GranuleSize-10, pl.Pending())
	pl.PadSilence(10)
	_, ok := pl.NextGranule()
	assert.True(t, ok)
}

func TestResampleProducesApproximateLength(t *testing.T) {
	pl := sample.New(newParams(t, 1))
	in := make([]float64, 1000)
	pl.IngestFloat64Planar(in, nil, 1, 22050)
	// 22050 -> 44100 doubles the sample count.
	assert.InDelta(t, 2000, pl.Pending(), 2)
}
