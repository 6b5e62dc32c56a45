package consts

// SfBandIndexLong and SfBandIndexShort are the ISO-defined scalefactor
// band boundaries (line index where each band starts; the long table
// carries SBMaxLong+1 entries, the short table SBMaxShort+1, both
// including the closing overflow boundary). Indexed by [Version][SamplingFrequency].
// These boundaries are standard MPEG Layer III constants, identical
// across conforming encoders and decoders; they are not a product of any
// single implementation's tuning.

var sfBandIndexLongV1 = map[SamplingFrequency][23]int{
	SampleRate0: {0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 52, 62, 74, 90, 110, 134, 162, 196, 238, 288, 342, 418, 576}, // 44100
	SampleRate1: {0, 4, 8, 12, 16, 20, 24, 30, 36, 42, 50, 60, 72, 88, 106, 128, 156, 190, 230, 276, 330, 384, 576}, // 48000
	SampleRate2: {0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 54, 66, 82, 102, 126, 156, 194, 240, 296, 364, 448, 550, 576}, // 32000
}

var sfBandIndexShortV1 = map[SamplingFrequency][14]int{
	SampleRate0: {0, 4, 8, 12, 16, 22, 30, 40, 52, 66, 84, 106, 136, 192}, // 44100
	SampleRate1: {0, 4, 8, 12, 16, 22, 28, 38, 50, 64, 80, 100, 126, 192}, // 48000
	SampleRate2: {0, 4, 8, 12, 16, 22, 30, 42, 58, 78, 104, 138, 180, 192}, // 32000
}

var sfBandIndexLongV2 = map[SamplingFrequency][23]int{
	SampleRate0: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576}, // 22050
	SampleRate1: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 114, 136, 162, 194, 232, 278, 332, 394, 464, 540, 576}, // 24000
	SampleRate2: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576}, // 16000
}

var sfBandIndexShortV2 = map[SamplingFrequency][14]int{
	SampleRate0: {0, 4, 8, 12, 18, 24, 32, 42, 56, 74, 100, 132, 174, 192}, // 22050
	SampleRate1: {0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 136, 180, 192}, // 24000
	SampleRate2: {0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 134, 174, 192}, // 16000
}

// SfBandIndexLong returns the long-block boundary table for (v, sfreq).
// MPEG 2.5 reuses the MPEG-2 tables, as no dedicated psychoacoustic study
// exists for it in the reference sources this module descends from.
func SfBandIndexLong(v Version, sfreq SamplingFrequency) [23]int {
	if v == Version1 {
		return sfBandIndexLongV1[sfreq]
	}
	return sfBandIndexLongV2[sfreq]
}

func SfBandIndexShort(v Version, sfreq SamplingFrequency) [14]int {
	if v == Version1 {
		return sfBandIndexShortV1[sfreq]
	}
	return sfBandIndexShortV2[sfreq]
}

// PreTab is the table added to scalefac_l when Preflag is set, per ISO
// Annex B, used by both the decoder's requantizer and the encoder's
// outer loop (§4.F.3 step 7).
var PreTab = [SBMaxLong]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 3, 3, 3, 2, 0}
