package mp3enc

import (
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/psycho"
	"github.com/aurelia-audio/mp3enc/internal/sample"
)

// EncodeFloat64 is the planar float64 overload of spec §6.1's
// `encode_buffer(session, left[], right[], n)`. right is ignored for a
// mono session.
func (e *Encoder) EncodeFloat64(left, right []float64, srcRateHz int) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	srcChannels := 1
	if right != nil {
		srcChannels = 2
	}
	e.pipeline.IngestFloat64Planar(left, right, srcChannels, srcRateHz)
	e.inputSamples += len(left)
	return e.drain(), nil
}

// EncodeFloat64Interleaved is the interleaved float64 overload.
func (e *Encoder) EncodeFloat64Interleaved(samples []float64, srcChannels, srcRateHz int) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.pipeline.IngestFloat64Interleaved(samples, srcChannels, srcRateHz)
	e.inputSamples += len(samples) / srcChannels
	return e.drain(), nil
}

// EncodeInt16Interleaved is the i16 overload.
func (e *Encoder) EncodeInt16Interleaved(samples []int16, srcChannels, srcRateHz int) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.pipeline.IngestInt16Interleaved(samples, srcChannels, srcRateHz)
	e.inputSamples += len(samples) / srcChannels
	return e.drain(), nil
}

// EncodeInt32Interleaved is the i32 overload.
func (e *Encoder) EncodeInt32Interleaved(samples []int32, srcChannels, srcRateHz int) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.pipeline.IngestInt32Interleaved(samples, srcChannels, srcRateHz)
	e.inputSamples += len(samples) / srcChannels
	return e.drain(), nil
}

// EncodeInt64Interleaved is the i64 overload.
func (e *Encoder) EncodeInt64Interleaved(samples []int64, srcChannels, srcRateHz int) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.pipeline.IngestInt64Interleaved(samples, srcChannels, srcRateHz)
	e.inputSamples += len(samples) / srcChannels
	return e.drain(), nil
}

// EncodeFloat32Interleaved is the f32 overload.
func (e *Encoder) EncodeFloat32Interleaved(samples []float32, srcChannels, srcRateHz int) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.pipeline.IngestFloat32Interleaved(samples, srcChannels, srcRateHz)
	e.inputSamples += len(samples) / srcChannels
	return e.drain(), nil
}

// drain pulls every complete granule currently buffered. Each newly
// arrived granule's own samples are analyzed for an attack, which
// finalizes the block type of the granule BEFORE it (spec §2: "C produces
// masking thresholds + block type for the previous granule, delay = 1
// granule") and sets the new granule's own tentative type (SHORT after
// an attack); the granule actually quantized and framed this call is
// always the one held back in e.pendingSamples from the previous call.
//
// When Config.WriteXingHeader is set, the whole stream must be buffered
// internally instead of streamed incrementally: the Xing frame reserved
// at offset 0 can only be finalized once the total frame/byte counts are
// known, which happens at Flush. In that mode EncodeBuffer always
// returns nil, and Flush returns the complete file.
func (e *Encoder) drain() []byte {
	var out []byte
	for {
		lookahead, ok := e.pipeline.NextGranule()
		if !ok {
			break
		}

		nch := e.params.NumChannels
		var attack [2]bool
		var attackPos [2]int
		for ch := 0; ch < nch; ch++ {
			attack[ch], attackPos[ch] = psycho.DetectAttack(lookahead[ch][:], e.psyState[ch])
		}
		if nch == 2 {
			attack[0], attack[1] = psycho.CoupleShortDecisions(attack[0], attack[1], e.params.ShortBlocks)
		}

		if e.havePending {
			var blockType [2]consts.BlockType
			for ch := 0; ch < nch; ch++ {
				blockType[ch] = psycho.NextBlockType(e.psyState[ch], attack[ch])
			}
			out = append(out, e.finalizeGranule(e.pendingSamples, blockType, e.pendingAttackPos)...)
		}

		e.pendingSamples = lookahead
		e.pendingAttackPos = attackPos
		e.havePending = true
	}
	return out
}

// finalizeGranule quantizes and appends one already-block-typed granule
// to the current frame, returning that frame's bytes once the queue
// fills (or nil while the frame is still being assembled).
func (e *Encoder) finalizeGranule(samples [2][sample.GranuleSize]float64, blockType [2]consts.BlockType, attackPos [2]int) []byte {
	granulesPerFrame := consts.GranulesPerFrame(e.params.Version)
	gr := len(e.granuleQueue)
	e.granuleQueue = append(e.granuleQueue, e.processGranule(samples, blockType, attackPos, gr))
	for ch := 0; ch < e.params.NumChannels; ch++ {
		e.psyState[ch].PrevBlockType = blockType[ch]
	}
	e.outputSamples += len(samples[0])

	if diagInfo := e.cfg.Diagnostics; diagInfo != nil {
		diagInfo.BlockTypes = append(diagInfo.BlockTypes, blockType)
	}

	if len(e.granuleQueue) < granulesPerFrame {
		return nil
	}

	frameBytes := e.assembleFrame(e.granuleQueue)
	stuffing := e.rc.ReservoirEnd(e.rc.MeanBits())
	if diagInfo := e.cfg.Diagnostics; diagInfo != nil {
		diagInfo.ReservoirStuffingBits = stuffing
	}
	e.granuleQueue = e.granuleQueue[:0]
	e.framesOut++
	e.bytesOut += len(frameBytes)

	if e.xingPending {
		e.buffer = append(e.buffer, frameBytes...)
		return nil
	}
	return frameBytes
}
