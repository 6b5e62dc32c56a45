// Package tags writes the two trailer/leading-frame tag formats spec
// §6.3 names: a fixed 128-byte ID3v1 trailer appended after the last
// Layer III frame, and a Xing/LAME info frame reserved as the stream's
// first frame and rewritten once the final frame/byte counts are
// known at flush.
//
// Grounded on the teacher's frameheader/sideinfo pairing: a tag frame is
// itself a valid (if silent) Layer III frame, built the same way
// internal/frame assembles any other frame, with the payload bytes after
// the header replaced by the tag's own fixed layout instead of side info
// plus Huffman data.
package tags

import (
	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/frameheader"
)

// ID3v1 is the fixed 128-byte trailer (spec §6.3 "ID3v1 at stream end").
type ID3v1 struct {
	Title, Artist, Album, Comment string
	Year                          int
	Genre                         byte
}

// Bytes packs t into the classic fixed-width ID3v1 layout: "TAG" plus
// five Latin-1 fields truncated/zero-padded to their fixed widths, then
// the genre byte.
func (t ID3v1) Bytes() [128]byte {
	var out [128]byte
	copy(out[0:3], "TAG")
	putField(out[3:33], t.Title)
	putField(out[33:63], t.Artist)
	putField(out[63:93], t.Album)
	putField(out[93:97], yearString(t.Year))
	putField(out[97:127], t.Comment)
	out[127] = t.Genre
	return out
}

func putField(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	digits := [4]byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && y > 0; i-- {
		digits[i] = byte('0' + y%10)
		y /= 10
	}
	return string(digits[:])
}

// XingHeader is the payload of a Xing/LAME info frame: a reserved first
// frame whose main data is overwritten once the whole stream has been
// encoded and the true frame/byte/TOC totals are known (spec §6.3's
// "reserves a silent first frame and rewrites it at flush").
type XingHeader struct {
	NumFrames int
	NumBytes  int
	TOC       [100]byte // percentage-of-bytes-by-percentage-of-frames seek table
	Quality   int       // 0 (best) .. 100 (worst), mirrors VBR quality for players that read it
}

const xingMagic = "Xing"
const xingFlagsAll = 0x0f // frames + bytes + TOC + quality fields all present

// Bytes packs h into the Xing payload layout: 4-byte magic, 4-byte
// flags, the frame and byte counts as 4-byte big-endian values, the
// 100-byte TOC, then the quality as a 4-byte big-endian value (120 bytes
// in all).
func (h XingHeader) Bytes() []byte {
	out := make([]byte, 0, 4+4+4+4+100+4)
	out = append(out, xingMagic...)
	out = appendU32(out, xingFlagsAll)
	out = appendU32(out, uint32(h.NumFrames))
	out = appendU32(out, uint32(h.NumBytes))
	out = append(out, h.TOC[:]...)
	out = appendU32(out, uint32(h.Quality))
	return out
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// ReservedFrameHeader builds the frame header for the Xing placeholder
// frame at bitrateIndex. It does not check that the frame can hold the
// 4-byte header plus the 120-byte Xing payload; NewEncoder raises the
// index until the frame is at least 128 bytes before calling it.
func ReservedFrameHeader(v consts.Version, sr consts.SamplingFrequency, nch, bitrateIndex int) frameheader.FrameHeader {
	mode := consts.ModeSingleChannel
	if nch == 2 {
		mode = consts.ModeStereo
	}
	return frameheader.Encode(frameheader.Fields{
		ID:              v,
		BitrateIndex:    bitrateIndex,
		SampleRateIndex: sr,
		Mode:            mode,
	})
}
