package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/mp3err"
)

func TestResolveRejectsBadSampleRate(t *testing.T) {
	_, err := config.Resolve(config.Config{InSampleRate: 44099, NumChannels: 2, Quality: 5})
	require.Error(t, err)
	var ce *mp3err.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestResolveRejectsBadChannelCount(t *testing.T) {
	_, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 3, Quality: 5})
	require.Error(t, err)
}

func TestResolveRejectsBadQuality(t *testing.T) {
	_, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 2, Quality: 10})
	require.Error(t, err)
}

func TestResolveDefaultsToJointStereo(t *testing.T) {
	p, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 2, Quality: 5})
	require.NoError(t, err)
	assert.Equal(t, consts.ModeJointStereo, p.FrameMode)
	assert.Equal(t, consts.Version1, p.Version)
}

func TestResolveMonoForcesSingleChannel(t *testing.T) {
	p, err := config.Resolve(config.Config{InSampleRate: 22050, NumChannels: 1, Quality: 5})
	require.NoError(t, err)
	assert.Equal(t, consts.ModeSingleChannel, p.FrameMode)
	assert.Equal(t, consts.Version2, p.Version)
}

func TestResolveCoercesShortBlocksUnderJointStereo(t *testing.T) {
	p, err := config.Resolve(config.Config{
		InSampleRate: 44100,
		NumChannels:  2,
		Quality:      5,
		Mode:         config.ModeJointStereo,
		ShortBlocks:  config.ShortBlocksAllowed,
	})
	require.NoError(t, err)
	assert.Equal(t, config.ShortBlocksCoupled, p.ShortBlocks)
}

func TestResolveVBRRequiresReservoir(t *testing.T) {
	_, err := config.Resolve(config.Config{
		InSampleRate:     44100,
		NumChannels:      2,
		Quality:          5,
		VBR:              config.VBRrh,
		DisableReservoir: true,
	})
	require.Error(t, err)
}

func TestResolveDefaultsBitrate(t *testing.T) {
	p, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 2, Quality: 5})
	require.NoError(t, err)
	assert.Equal(t, 128, p.BitrateKbps)
}

func TestResolveAppliesQualityPreset(t *testing.T) {
	lo, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 2, Quality: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, lo.NoiseShaping)
	assert.True(t, lo.SubblockGainSearch)

	hi, err := config.Resolve(config.Config{InSampleRate: 44100, NumChannels: 2, Quality: 9})
	require.NoError(t, err)
	assert.Equal(t, 0, hi.NoiseShaping)
	assert.False(t, hi.SubblockGainSearch)
}
