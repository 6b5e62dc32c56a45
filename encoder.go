package mp3enc

import (
	"github.com/aurelia-audio/mp3enc/internal/analysis"
	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/mdct"
	"github.com/aurelia-audio/mp3enc/internal/mp3err"
	"github.com/aurelia-audio/mp3enc/internal/psycho"
	"github.com/aurelia-audio/mp3enc/internal/ratectl"
	"github.com/aurelia-audio/mp3enc/internal/sample"
	"github.com/aurelia-audio/mp3enc/internal/tags"
)

// Encoder is one encode session (spec §3 "Encoder session" lifecycle):
// owns the PCM pipeline, the per-channel psychoacoustic and filterbank
// state, the rate controller and the granule queue awaiting framing.
// Not safe for concurrent use by multiple goroutines (spec §5); separate
// Encoder values, one per goroutine, share only the read-only static
// tables internal/psycho and internal/huffman compute once.
type Encoder struct {
	cfg    config.Config
	params *config.Params

	pipeline *sample.Pipeline
	frontend *analysis.Frontend
	rc       *ratectl.Controller

	psyState  [2]*psycho.State
	transform [2]*mdct.Transformer
	history   [2][]float64
	prevGain  [2]int

	// pendingSamples holds the most recently ingested granule, not yet
	// run through processGranule: the psychoacoustic model's block-type
	// decision is delayed by one granule (spec §2/§4.C), so a granule's
	// samples sit here until the NEXT granule's attack analysis finalizes
	// its block type. pendingAttackPos is that same granule's own
	// sub-short attack position, captured when it was itself the
	// freshly-arrived granule, for use if it turns out to be SHORT.
	pendingSamples   [2][sample.GranuleSize]float64
	pendingAttackPos [2]int
	havePending      bool

	sfBandLong  [23]int
	sfBandShort [14]int
	mld         [consts.SBMaxLong]float64

	granuleQueue []granuleResult

	// xingPending, when true, means the session buffers every produced
	// frame into buffer instead of streaming it out of EncodeBuffer's
	// return value, because the Xing frame reserved at buffer[:reservedLen]
	// cannot be finalized until Flush knows the final frame/byte counts.
	xingPending bool
	buffer      []byte
	reservedLen int

	framesOut int
	bytesOut  int

	inputSamples  int
	outputSamples int

	closed bool
}

// NewEncoder resolves cfg and returns a ready session (spec §6.1
// `init(cfg) -> session`).
func NewEncoder(cfg Config) (*Encoder, error) {
	params, err := config.Resolve(cfg)
	if err != nil {
		return nil, classify(err)
	}

	e := &Encoder{
		cfg:      cfg,
		params:   params,
		pipeline: sample.New(params),
		frontend: analysis.New(),
		rc:       ratectl.New(params),
	}

	t := psycho.ForSampleRateVariant(params.SampleRateHz, params.SpreadingVariant)
	for ch := 0; ch < params.NumChannels; ch++ {
		e.psyState[ch] = psycho.NewState(t.NPart)
		e.transform[ch] = mdct.New()
	}
	e.sfBandLong = consts.SfBandIndexLong(params.Version, params.SampleRate)
	e.sfBandShort = consts.SfBandIndexShort(params.Version, params.SampleRate)
	e.mld = psycho.DefaultMLD()

	if cfg.WriteXingHeader {
		e.xingPending = true
		bitrateIndex := bitrateIndexFor(params.Version, params.BitrateKbps)
		placeholderHeader := tags.ReservedFrameHeader(params.Version, params.SampleRate, params.NumChannels, bitrateIndex)
		for placeholderHeader.FrameSize() < 128 && bitrateIndex < 14 {
			bitrateIndex++
			placeholderHeader = tags.ReservedFrameHeader(params.Version, params.SampleRate, params.NumChannels, bitrateIndex)
		}
		e.reservedLen = placeholderHeader.FrameSize()
		placeholder := make([]byte, e.reservedLen)
		hb := placeholderHeader.Bytes()
		copy(placeholder, hb[:])
		e.buffer = append(e.buffer, placeholder...)
	}

	return e, nil
}

func (e *Encoder) checkOpen() error {
	if e.closed {
		return classify(&mp3err.ClosedError{})
	}
	return nil
}

// Close frees the session's working set. It is idempotent (spec §8): a
// second Close call is a no-op, not an error.
func (e *Encoder) Close() error {
	e.closed = true
	e.pipeline = nil
	e.granuleQueue = nil
	return nil
}

// pushHistory appends samples to ch's rolling analysis window, keeping
// only the most recent analysis.LongSize entries (the long-block FFT
// needs a 1024-sample window that spans more than one granule).
func (e *Encoder) pushHistory(ch int, samples [sample.GranuleSize]float64) {
	e.history[ch] = append(e.history[ch], samples[:]...)
	if limit := analysis.LongSize; len(e.history[ch]) > limit {
		e.history[ch] = e.history[ch][len(e.history[ch])-limit:]
	}
}

// window returns the last n samples of ch's history, zero-padded at the
// front when fewer than n samples have been seen yet (spec §3: the
// session starts as if preceded by silence).
func (e *Encoder) window(ch, n int) []float64 {
	h := e.history[ch]
	out := make([]float64, n)
	if len(h) >= n {
		copy(out, h[len(h)-n:])
		return out
	}
	copy(out[n-len(h):], h)
	return out
}
