// Package ratectl is the rate controller and bit reservoir (spec §4.E,
// §4.F.4, §4.F.5): it proposes a per-granule bit target and keeps the
// reservoir level as a counter bounded by reservoir_max. The framer
// always writes main_data_begin = 0, so no value from this package
// reaches the side info.
//
// Grounded conceptually on the teacher's main_data_begin/offset
// bookkeeping (internal/sideinfo's MainDataBegin, internal/frame's
// prev-frame trailing-byte handoff) read in reverse: the decoder
// consumes reservoir bytes a previous frame's side info promised; this
// package only counts the bits such a handoff would involve and never
// carries bytes from one frame into the next.
package ratectl

import (
	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/consts"
)

// maxReservoirBits bounds the reservoir by the widest main_data_begin
// field Layer III's side info can express (9 bits in MPEG-1).
const maxReservoirBits = 511 * 8

// Controller owns the session's reservoir state (spec §3 "Reservoir
// state" lifecycle: session-lived; ReservoirAdjust debits it once per
// granule and ReservoirEnd credits and clamps it once per frame).
type Controller struct {
	params *config.Params

	reservoirBits int
	meanBits      int // mean bits per frame at the nominal/current bitrate
	slotLag       float64

	bitrateKbps int
}

// New creates a Controller for a resolved session configuration.
func New(p *config.Params) *Controller {
	c := &Controller{params: p, bitrateKbps: p.BitrateKbps}
	c.meanBits = c.meanBitsForBitrate(c.bitrateKbps)
	return c
}

func (c *Controller) meanBitsForBitrate(kbps int) int {
	granules := consts.GranulesPerFrame(c.params.Version)
	frameBits := kbps * 1000 * consts.SamplesPerGr * granules / c.params.SampleRateHz
	return frameBits
}

func reservoirMax(meanBits int) int {
	max := meanBits / 2
	if max > maxReservoirBits {
		max = maxReservoirBits
	}
	return max
}

// TargetBits implements `target_bits(pe, ms_energy_ratio, gr, ch)` (spec
// §4.E): a PE-proportional share of the per-granule mean, biased toward
// the mid channel under joint stereo via msEnergyRatio.
func (c *Controller) TargetBits(pe, msEnergyRatio float64, gr, ch int) int {
	granules := consts.GranulesPerFrame(c.params.Version)
	nch := c.params.NumChannels
	base := c.meanBits / (granules * nch)

	const peRef = 700.0
	scale := pe / peRef
	if scale < 0.5 {
		scale = 0.5
	}
	if scale > 1.5 {
		scale = 1.5
	}
	bits := int(float64(base) * scale)

	if nch == 2 && ch == 1 && msEnergyRatio > 0 {
		// reduce_side: bias bits away from the side channel toward mid.
		bits = int(float64(bits) * (1 - 0.3*msEnergyRatio))
	}
	if bits > 4095 {
		bits = 4095
	}
	if bits < 0 {
		bits = 0
	}
	return bits
}

// ReservoirBegin implements `reservoir_begin` (spec §4.E): the maximum
// bits this frame may spend, combining the mean share with however much
// of the reservoir is currently banked.
func (c *Controller) ReservoirBegin(meanBits, bitsPerFrame int) int {
	avail := meanBits + c.reservoirBits
	max := reservoirMax(c.meanBits)
	if c.reservoirBits > max {
		avail = meanBits + max
	}
	if avail > bitsPerFrame {
		avail = bitsPerFrame
	}
	return avail
}

// ReservoirAdjust implements `reservoir_adjust` (spec §4.E): called once
// per granule with the bits actually used, updating the running total
// that ReservoirEnd will bank or borrow against.
func (c *Controller) ReservoirAdjust(usedBits int) {
	c.reservoirBits -= usedBits
}

// ReservoirEnd implements `reservoir_end` (spec §4.E / §4.F.5): banks
// any frame-level surplus up to reservoir_max and returns the number of
// stuffing bits the framer must pad with to keep slot_lag correct.
func (c *Controller) ReservoirEnd(meanBits int) (stuffingBits int) {
	c.reservoirBits += meanBits
	max := reservoirMax(c.meanBits)
	if c.reservoirBits > max {
		stuffingBits = c.reservoirBits - max
		c.reservoirBits = max
	}
	if c.reservoirBits < 0 {
		c.reservoirBits = 0
	}
	return stuffingBits
}

// ReservoirBits reports the current bank size, for diagnostics and the
// analog-silence/negative-reservoir testable properties (spec §8).
func (c *Controller) ReservoirBits() int {
	return c.reservoirBits
}

// MeanBits reports the per-frame mean bit budget at the controller's
// current bitrate.
func (c *Controller) MeanBits() int {
	return c.meanBits
}

// SlotLag implements MPEG's fractional-slot padding accounting: each
// frame accrues frac_SpF = (bitrate*576*granules/samplerate) mod 8 in
// slot fractions; when the accumulator crosses a whole slot, the frame
// carries one padding byte (spec §4.F.5).
func (c *Controller) SlotLag() (needsPadding bool) {
	granules := consts.GranulesPerFrame(c.params.Version)
	bitsPerFrameExact := float64(c.bitrateKbps*1000) * float64(consts.SamplesPerGr*granules) / float64(c.params.SampleRateHz)
	slotSize := 8.0
	wholeSlots := bitsPerFrameExact / slotSize
	frac := wholeSlots - float64(int(wholeSlots))
	c.slotLag += frac
	if c.slotLag >= 1.0 {
		c.slotLag -= 1.0
		return true
	}
	return false
}

// SelectBitrateForUsedBits implements ABR's post-pass bitrate selection
// (spec §4.F.4): the smallest CBR table bitrate whose reservoir would
// admit usedBits for this frame.
func (c *Controller) SelectBitrateForUsedBits(usedBits int) int {
	granules := consts.GranulesPerFrame(c.params.Version)
	table := consts.BitrateTableKbpsV1[consts.Layer3]
	if c.params.Version != consts.Version1 {
		table = consts.BitrateTableKbpsV2Layer3
	}
	for _, kbps := range table {
		if kbps == 0 {
			continue
		}
		mean := kbps * 1000 * consts.SamplesPerGr * granules / c.params.SampleRateHz
		if mean+reservoirMax(mean) >= usedBits {
			return kbps
		}
	}
	return c.params.VBRMaxBitrateKbps
}
