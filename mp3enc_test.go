package mp3enc_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-audio/mp3enc"
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/sample"
)

func baseConfig() mp3enc.Config {
	return mp3enc.Config{
		InSampleRate: 44100,
		NumChannels:  2,
		Quality:      5,
		BitrateKbps:  128,
		Mode:         mp3enc.ModeJointStereo,
	}
}

func sine(n int, freqHz, rateHz float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.4 * math.Sin(2*math.Pi*freqHz*float64(i)/rateHz)
	}
	return out
}

// frameSync reports whether b carries an 11-bit frame sync (0xFFE) at
// byte offset off, the bitstream-level Testable Property every emitted
// frame must satisfy.
func frameSync(b []byte, off int) bool {
	return off+1 < len(b) && b[off] == 0xff && b[off+1]&0xe0 == 0xe0
}

func TestNewEncoderRejectsInvalidConfig(t *testing.T) {
	_, err := mp3enc.NewEncoder(mp3enc.Config{InSampleRate: 12345, NumChannels: 2, Quality: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, mp3enc.ErrInvalidConfig)
}

func TestEncodeSilenceProducesFrameSyncedOutput(t *testing.T) {
	enc, err := mp3enc.NewEncoder(baseConfig())
	require.NoError(t, err)
	defer enc.Close()

	left := make([]float64, 44100)
	right := make([]float64, 44100)
	out, err := enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, frameSync(out, 0))
}

func TestCloseIsIdempotentAndRejectsLaterEncode(t *testing.T) {
	enc, err := mp3enc.NewEncoder(baseConfig())
	require.NoError(t, err)

	left := sine(44100, 440, 44100)
	right := sine(44100, 440, 44100)
	_, err = enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)

	tail, err := enc.Flush()
	require.NoError(t, err)
	_ = tail

	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close()) // idempotent, spec §8

	_, err = enc.EncodeFloat64(left, right, 44100)
	assert.ErrorIs(t, err, mp3enc.ErrClosed)
}

func TestStationarySineStaysLongBlocks(t *testing.T) {
	cfg := baseConfig()
	diag := &mp3enc.Diagnostics{}
	cfg.Diagnostics = diag
	enc, err := mp3enc.NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	left := sine(44100*2, 440, 44100)
	right := sine(44100*2, 440, 44100)
	out, err := enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// A pure tone has no transient, so every finalized granule stays
	// LONG; the reservoir's stuffing count is never negative.
	for i, bt := range diag.BlockTypes {
		assert.Equal(t, consts.BlockLong, bt[0], "granule %d", i)
	}
	assert.GreaterOrEqual(t, diag.ReservoirStuffingBits, 0)
}

func TestSingleImpulseTriggersShortBlock(t *testing.T) {
	cfg := baseConfig()
	diag := &mp3enc.Diagnostics{}
	cfg.Diagnostics = diag
	enc, err := mp3enc.NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	n := 44100
	left := make([]float64, n)
	right := make([]float64, n)
	impulseAt := n / 2
	left[impulseAt] = 0.95
	right[impulseAt] = 0.95

	out, err := enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	impulseGr := impulseAt / sample.GranuleSize
	require.Greater(t, len(diag.BlockTypes), impulseGr+1, "not enough granules finalized to cover the impulse and its neighbors")

	// The granule containing the transient must be SHORT, bracketed by
	// START before it and STOP after it — never LONG directly adjacent
	// to the SHORT granule on either side.
	assert.Equal(t, consts.BlockShort, diag.BlockTypes[impulseGr][0])
	assert.Equal(t, consts.BlockStart, diag.BlockTypes[impulseGr-1][0])
	assert.Equal(t, consts.BlockStop, diag.BlockTypes[impulseGr+1][0])
}

func TestMonoSessionIgnoresRightChannel(t *testing.T) {
	cfg := baseConfig()
	cfg.NumChannels = 1
	cfg.Mode = mp3enc.ModeMono
	enc, err := mp3enc.NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	left := sine(44100, 1000, 44100)
	out, err := enc.EncodeFloat64(left, nil, 44100)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestDeterministicAcrossRuns(t *testing.T) {
	left := sine(44100, 880, 44100)
	right := sine(44100, 880, 44100)

	encode := func() []byte {
		enc, err := mp3enc.NewEncoder(baseConfig())
		require.NoError(t, err)
		defer enc.Close()
		out, err := enc.EncodeFloat64(left, right, 44100)
		require.NoError(t, err)
		tail, err := enc.Flush()
		require.NoError(t, err)
		return append(out, tail...)
	}

	a := encode()
	b := encode()
	assert.Equal(t, a, b)
}

func TestXingHeaderBuffersWholeStreamUntilFlush(t *testing.T) {
	cfg := baseConfig()
	cfg.WriteXingHeader = true
	enc, err := mp3enc.NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	left := sine(44100, 440, 44100)
	right := sine(44100, 440, 44100)
	mid, err := enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)
	assert.Empty(t, mid, "Xing sessions must not stream bytes before Flush")

	out, err := enc.Flush()
	require.NoError(t, err)
	require.True(t, len(out) > 4)
	assert.True(t, frameSync(out, 0))
}

func TestID3v1TrailerAppendedAtFlush(t *testing.T) {
	cfg := baseConfig()
	cfg.WriteID3v1 = true
	cfg.TagTitle = "Test"
	enc, err := mp3enc.NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	left := sine(44100, 440, 44100)
	right := sine(44100, 440, 44100)
	_, err = enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)

	tail, err := enc.Flush()
	require.NoError(t, err)
	require.True(t, len(tail) >= 128)
	assert.Equal(t, "TAG", string(tail[len(tail)-128:len(tail)-125]))
}

func TestVBRModeProducesOutput(t *testing.T) {
	cfg := baseConfig()
	cfg.VBR = mp3enc.VBRrh
	cfg.VBRQuality = 4
	enc, err := mp3enc.NewEncoder(cfg)
	require.NoError(t, err)
	defer enc.Close()

	left := sine(44100, 220, 44100)
	right := sine(44100, 220, 44100)
	out, err := enc.EncodeFloat64(left, right, 44100)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
