package ratectl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/ratectl"
)

func newController(t *testing.T) *ratectl.Controller {
	t.Helper()
	p, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 2, Quality: 5, BitrateKbps: 128})
	require.NoError(t, err)
	return ratectl.New(p)
}

func TestTargetBitsNeverExceedsFrameCeiling(t *testing.T) {
	c := newController(t)
	bits := c.TargetBits(10000, 0, 0, 0)
	assert.LessOrEqual(t, bits, 4095)
}

func TestReservoirNeverGoesNegative(t *testing.T) {
	c := newController(t)
	for i := 0; i < 50; i++ {
		c.ReservoirAdjust(c.MeanBits() * 2)
		c.ReservoirEnd(c.MeanBits())
		assert.GreaterOrEqual(t, c.ReservoirBits(), 0)
	}
}

func TestReservoirBanksSurplus(t *testing.T) {
	c := newController(t)
	before := c.ReservoirBits()
	c.ReservoirAdjust(0)
	c.ReservoirEnd(c.MeanBits())
	assert.Greater(t, c.ReservoirBits(), before)
}

func TestSelectBitrateForUsedBitsFindsAdmittingRate(t *testing.T) {
	c := newController(t)
	kbps := c.SelectBitrateForUsedBits(100)
	assert.Greater(t, kbps, 0)
}
