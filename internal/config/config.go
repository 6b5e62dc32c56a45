// Package config resolves the encoder's external configuration surface
// (spec §6.1) into an internal, immutable Params struct every other
// component consumes. Grounded on inference-sim-inference-sim's
// sim/workload/spec.go: a YAML-tagged struct loaded with
// gopkg.in/yaml.v3, explicit field validation, and sirupsen/logrus for
// non-fatal normalization notices (its UpgradeV1ToV2 logrus.Warnf
// deprecation-mapping idiom is the direct model for the logrus.Warnf
// notices in Resolve below).
package config

import (
	"embed"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/diag"
	"github.com/aurelia-audio/mp3enc/internal/mp3err"
)

//go:embed presets.yaml
var presetsFS embed.FS

// ChannelMode is the user-facing channel mode request (distinct from the
// 2-bit consts.Mode carried in the bitstream header).
type ChannelMode int

const (
	ModeNotSet ChannelMode = iota
	ModeMono
	ModeStereo
	ModeJointStereo
	ModeDual
)

// VBRMode selects the rate-control policy (spec §4.F.4).
type VBRMode int

const (
	VBROff VBRMode = iota
	VBRAbr
	VBRrh
	VBRmtrh
)

// ShortBlocksPolicy controls how block-type decisions interact between
// channels (spec §4.C.4 "Channel coupling").
type ShortBlocksPolicy int

const (
	ShortBlocksAllowed ShortBlocksPolicy = iota
	ShortBlocksCoupled
	ShortBlocksForced
	ShortBlocksDispensed
)

// SpreadingVariant resolves the "use_old_s3" open question (spec §9):
// both spreading-function variants are implemented; neither is guessed
// at as canonical, so the choice is explicit.
type SpreadingVariant int

const (
	SpreadingNormal SpreadingVariant = iota
	SpreadingSlopeAsymmetric
)

// Config is the caller-facing settings struct, spec §6.1's `cfg`.
type Config struct {
	InSampleRate  int
	OutSampleRate int // 0 = auto (same as InSampleRate)
	NumChannels   int // 1 or 2
	Mode          ChannelMode

	VBR        VBRMode
	Quality    int // 0..9
	BitrateKbps int // target bitrate; every VBR mode also budgets and frames at this rate
	CompressionRatio float64 // derives BitrateKbps when BitrateKbps is 0, in any VBR mode

	VBRQuality       int // 0..9
	VBRMinBitrateKbps int
	VBRMaxBitrateKbps int
	VBRMeanBitrateKbps int

	LowpassFreq   int
	LowpassWidth  int
	HighpassFreq  int
	HighpassWidth int

	ShortBlocks      ShortBlocksPolicy
	DisableReservoir bool
	ErrorProtection  bool

	Scale, ScaleL, ScaleR float64

	MSFix float64

	ATHType           int
	ATHCurve          float64
	ATHAASensitivity  float64
	ATHAAType         int
	UseTemporal       bool
	InterChRatio      float64
	SpreadingVariant  SpreadingVariant
	AsmOptimizations  bool // accepted, never exercised (no SIMD dispatch in this module)

	// Tag metadata (spec §6.3, added): consumed by the root package's
	// flush path, not by Resolve or any internal/* component.
	WriteID3v1      bool
	WriteXingHeader bool
	TagTitle        string
	TagArtist       string
	TagAlbum        string
	TagComment      string
	TagYear         int

	// Diagnostics, when non-nil, is filled in by the encoder on every
	// EncodeBuffer/Flush call (spec §7 "added").
	Diagnostics *diag.Info
}

// Params is the resolved, immutable configuration every component reads.
// It is never mutated after Resolve returns.
type Params struct {
	Version      consts.Version
	SampleRate   consts.SamplingFrequency
	SampleRateHz int
	NumChannels  int
	FrameMode    consts.Mode

	VBR                VBRMode
	Quality            int
	VBRQuality         int
	NoiseShaping       int
	SubblockGainSearch bool
	UseTemporal        bool

	BitrateKbps        int
	VBRMinBitrateKbps  int
	VBRMaxBitrateKbps  int
	VBRMeanBitrateKbps int

	LowpassFreq, LowpassWidth   int
	HighpassFreq, HighpassWidth int

	ShortBlocks      ShortBlocksPolicy
	DisableReservoir bool
	ErrorProtection  bool

	Scale, ScaleL, ScaleR float64
	MSFix                 float64
	ATHType               int
	ATHCurve              float64
	ATHAAType             int
	ATHAASensitivity      float64
	InterChRatio          float64
	SpreadingVariant      SpreadingVariant
}

type preset struct {
	Quality      int  `yaml:"quality"`
	NoiseShaping int  `yaml:"noise_shaping"`
	SubblockGain bool `yaml:"subblock_gain"`
	UseTemporal  bool `yaml:"use_temporal"`
}

type presetFile struct {
	Presets []preset `yaml:"presets"`
}

func loadPresets() (presetFile, error) {
	var pf presetFile
	b, err := presetsFS.ReadFile("presets.yaml")
	if err != nil {
		return pf, err
	}
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return pf, err
	}
	return pf, nil
}

var validSampleRatesHz = map[int]struct {
	v    consts.Version
	idx  consts.SamplingFrequency
}{
	8000:  {consts.Version2_5, consts.SampleRate2},
	11025: {consts.Version2_5, consts.SampleRate0},
	12000: {consts.Version2_5, consts.SampleRate1},
	16000: {consts.Version2, consts.SampleRate2},
	22050: {consts.Version2, consts.SampleRate0},
	24000: {consts.Version2, consts.SampleRate1},
	32000: {consts.Version1, consts.SampleRate2},
	44100: {consts.Version1, consts.SampleRate0},
	48000: {consts.Version1, consts.SampleRate1},
}

// Resolve validates and normalizes cfg into Params. Class-1 configuration
// errors (spec §7) are returned as *mp3err.ConfigError; anything merely
// unusual (a deprecated alias, an implied coercion) is logged via
// logrus.Warnf and corrected rather than rejected.
func Resolve(cfg Config) (*Params, error) {
	sr := cfg.InSampleRate
	vi, ok := validSampleRatesHz[sr]
	if !ok {
		return nil, &mp3err.ConfigError{Field: "InSampleRate", Reason: fmt.Sprintf("%d Hz is not a supported MPEG sample rate", sr)}
	}
	if cfg.NumChannels != 1 && cfg.NumChannels != 2 {
		return nil, &mp3err.ConfigError{Field: "NumChannels", Reason: "must be 1 or 2"}
	}
	if cfg.Quality < 0 || cfg.Quality > 9 {
		return nil, &mp3err.ConfigError{Field: "Quality", Reason: "must be in 0..9"}
	}

	pf, err := loadPresets()
	if err != nil {
		return nil, &mp3err.ConfigError{Field: "Quality", Reason: "preset table failed to load: " + err.Error()}
	}
	var ps preset
	found := false
	for _, p := range pf.Presets {
		if p.Quality == cfg.Quality {
			ps = p
			found = true
			break
		}
	}
	if !found {
		return nil, &mp3err.ConfigError{Field: "Quality", Reason: "no preset registered for this quality level"}
	}

	frameMode := resolveFrameMode(cfg)
	shortBlocks := cfg.ShortBlocks
	if cfg.NumChannels == 2 && frameMode == consts.ModeJointStereo && shortBlocks == ShortBlocksAllowed {
		// Spec §9 open question: the legacy source coerces
		// short_blocks=allowed to coupled under joint stereo
		// unconditionally, contradicting an older comment that implied
		// this should only happen for some configurations. The observed
		// behavior is preserved unconditionally, not the comment.
		logrus.Warnf("short_blocks=allowed is coerced to coupled under joint_stereo")
		shortBlocks = ShortBlocksCoupled
	}

	if cfg.CompressionRatio > 0 && cfg.BitrateKbps > 0 {
		logrus.Warnf("both BitrateKbps and CompressionRatio set; BitrateKbps wins, CompressionRatio ignored")
	}
	bitrate := cfg.BitrateKbps
	if bitrate == 0 && cfg.CompressionRatio > 0 {
		bitsPerSample := 16.0 / cfg.CompressionRatio
		bitrate = int(bitsPerSample * float64(sr) / 1000.0 * float64(cfg.NumChannels))
		if bitrate <= 0 {
			bitrate = 128
		}
	}
	if bitrate == 0 {
		bitrate = 128
	}

	if cfg.VBR != VBROff && cfg.DisableReservoir {
		return nil, &mp3err.ConfigError{Field: "DisableReservoir", Reason: "VBR requires the bit reservoir"}
	}

	p := &Params{
		Version:            vi.v,
		SampleRate:         vi.idx,
		SampleRateHz:       sr,
		NumChannels:        cfg.NumChannels,
		FrameMode:          frameMode,
		VBR:                cfg.VBR,
		Quality:            cfg.Quality,
		VBRQuality:         cfg.VBRQuality,
		NoiseShaping:       ps.NoiseShaping,
		SubblockGainSearch: ps.SubblockGain,
		UseTemporal:        ps.UseTemporal && cfg.UseTemporal,
		BitrateKbps:        bitrate,
		VBRMinBitrateKbps:  cfg.VBRMinBitrateKbps,
		VBRMaxBitrateKbps:  cfg.VBRMaxBitrateKbps,
		VBRMeanBitrateKbps: cfg.VBRMeanBitrateKbps,
		LowpassFreq:        cfg.LowpassFreq,
		LowpassWidth:       cfg.LowpassWidth,
		HighpassFreq:       cfg.HighpassFreq,
		HighpassWidth:      cfg.HighpassWidth,
		ShortBlocks:        shortBlocks,
		DisableReservoir:   cfg.DisableReservoir,
		ErrorProtection:    cfg.ErrorProtection,
		Scale:              orDefault(cfg.Scale, 1),
		ScaleL:             orDefault(cfg.ScaleL, 1),
		ScaleR:             orDefault(cfg.ScaleR, 1),
		MSFix:              cfg.MSFix,
		ATHType:            cfg.ATHType,
		ATHCurve:           cfg.ATHCurve,
		ATHAAType:          cfg.ATHAAType,
		ATHAASensitivity:   cfg.ATHAASensitivity,
		InterChRatio:       cfg.InterChRatio,
		SpreadingVariant:   cfg.SpreadingVariant,
	}
	return p, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func resolveFrameMode(cfg Config) consts.Mode {
	if cfg.NumChannels == 1 {
		return consts.ModeSingleChannel
	}
	switch cfg.Mode {
	case ModeMono:
		return consts.ModeSingleChannel
	case ModeStereo:
		return consts.ModeStereo
	case ModeDual:
		return consts.ModeDualChannel
	case ModeJointStereo, ModeNotSet:
		return consts.ModeJointStereo
	default:
		return consts.ModeJointStereo
	}
}
