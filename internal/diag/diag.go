// Package diag defines the non-fatal diagnostics surface spec §7
// describes (class 4-5 signals that must not fail a call). It is a
// standalone package, rather than living in internal/config or the root
// mp3enc package, so both can reference the same struct without an
// import cycle: config.Config carries an optional *Info the caller may
// supply, and the root Encoder writes into it every call.
package diag

import "github.com/aurelia-audio/mp3enc/internal/consts"

// Info is filled in by the encoder on every EncodeBuffer/Flush call when
// a caller supplies a non-nil pointer via Config.Diagnostics.
type Info struct {
	// BlockTypes records the finalized block type of every granule
	// handed to quantization so far, per channel, in encode order. It
	// grows across the session rather than being overwritten per frame
	// like the fields below; call Reset to clear it between segments of
	// interest.
	BlockTypes [][2]consts.BlockType

	// OverThresholdBands[gr][ch] is the outer loop's final OverCount: how
	// many scalefactor bands were still above the masking threshold when
	// the search gave up.
	OverThresholdBands [2][2]int

	// ScalefacScaleForced[gr][ch] reports whether a granule needed
	// scalefac_scale=1 to represent its amplified scalefactors.
	ScalefacScaleForced [2][2]bool

	// ReservoirStuffingBits is the padding the rate controller inserted
	// at the end of the most recent frame to keep the reservoir under its
	// cap (spec §4.E / §4.F.5).
	ReservoirStuffingBits int

	// FramesEmittedAtHigherBitrate counts ABR/VBR frames emitted at a
	// higher bitrate table entry than the nominal target (spec §4.F.4's
	// ABR fallback path). The encoder emits every frame at the session's
	// resolved bitrate and never writes this field, so it stays 0.
	FramesEmittedAtHigherBitrate int
}

// Reset zeroes i in place. The encoder never calls it; a caller uses it
// to clear the accumulated fields (such as BlockTypes) between segments.
func (i *Info) Reset() {
	*i = Info{}
}
