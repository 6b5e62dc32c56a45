package mp3enc

import (
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/psycho"
	"github.com/aurelia-audio/mp3enc/internal/sample"
	"github.com/aurelia-audio/mp3enc/internal/tags"
)

// postDelay is the number of trailing zero samples the encoder appends
// at Flush so the filterbank's analysis window and the granule queue
// both drain completely (spec §6.1 Flush, POSTDELAY).
const postDelay = 288

// Flush drains the filterbank's remaining PCM, pads the final partial
// granule with silence, finishes any partial frame, and returns the
// trailing bytes the session still owed the caller (spec §6.1
// `flush(session) -> bytes`). When Config.WriteXingHeader is set, Flush
// instead returns the ENTIRE stream: the Xing placeholder reserved in
// NewEncoder is rewritten in place with the final frame/byte counts
// before the buffered bytes are handed back.
func (e *Encoder) Flush() ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	pad := postDelay + e.pipeline.Pending()
	if rem := pad % sample.GranuleSize; rem != 0 {
		pad += sample.GranuleSize - rem
	}
	e.pipeline.PadSilence(pad)

	tail := e.drain()

	if e.havePending {
		// No further granule will ever arrive to supply the attack
		// analysis that finalizes this one's block type (spec §2's
		// one-granule delay has nothing left to look ahead into), so
		// finalize it as if a final silent, attack-free granule followed.
		nch := e.params.NumChannels
		var blockType [2]consts.BlockType
		for ch := 0; ch < nch; ch++ {
			blockType[ch] = psycho.NextBlockType(e.psyState[ch], false)
		}
		tail = append(tail, e.finalizeGranule(e.pendingSamples, blockType, e.pendingAttackPos)...)
		e.havePending = false
	}

	granulesPerFrame := consts.GranulesPerFrame(e.params.Version)
	if len(e.granuleQueue) > 0 {
		for len(e.granuleQueue) < granulesPerFrame {
			e.granuleQueue = append(e.granuleQueue, granuleResult{})
		}
		frameBytes := e.assembleFrame(e.granuleQueue)
		e.granuleQueue = e.granuleQueue[:0]
		e.framesOut++
		e.bytesOut += len(frameBytes)
		if e.xingPending {
			e.buffer = append(e.buffer, frameBytes...)
		} else {
			tail = append(tail, frameBytes...)
		}
	}

	var id3 []byte
	if e.cfg.WriteID3v1 {
		tag := tags.ID3v1{
			Title:   e.cfg.TagTitle,
			Artist:  e.cfg.TagArtist,
			Album:   e.cfg.TagAlbum,
			Comment: e.cfg.TagComment,
			Year:    e.cfg.TagYear,
		}
		b := tag.Bytes()
		id3 = b[:]
	}

	if e.xingPending {
		xh := tags.XingHeader{
			NumFrames: e.framesOut,
			NumBytes:  e.bytesOut,
			Quality:   50,
		}
		for i := range xh.TOC {
			xh.TOC[i] = byte(i * 256 / 100)
		}
		payload := xh.Bytes()
		copy(e.buffer[4:], payload)
		e.xingPending = false
		out := e.buffer
		e.buffer = nil
		out = append(out, id3...)
		return out, nil
	}

	tail = append(tail, id3...)
	return tail, nil
}
