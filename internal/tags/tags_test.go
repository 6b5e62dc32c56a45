package tags_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aurelia-audio/mp3enc/internal/consts"
	"github.com/aurelia-audio/mp3enc/internal/tags"
)

func TestID3v1HasTagMagicAndFixedWidth(t *testing.T) {
	b := tags.ID3v1{Title: "song", Artist: "artist", Year: 2024}.Bytes()
	assert.Equal(t, 128, len(b))
	assert.Equal(t, "TAG", string(b[0:3]))
}

func TestID3v1TruncatesOverlongFields(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'x'
	}
	b := tags.ID3v1{Title: string(long)}.Bytes()
	title := b[3:33]
	for _, c := range title {
		assert.Equal(t, byte('x'), c)
	}
}

func TestXingHeaderCarriesMagicAndCounts(t *testing.T) {
	h := tags.XingHeader{NumFrames: 10, NumBytes: 2000}
	b := h.Bytes()
	assert.Equal(t, "Xing", string(b[0:4]))
	assert.Equal(t, byte(10), b[11]) // last byte of big-endian NumFrames
}

func TestReservedFrameHeaderIsValid(t *testing.T) {
	h := tags.ReservedFrameHeader(consts.Version1, consts.SampleRate0, 2, 9)
	assert.True(t, h.IsValid())
	assert.Equal(t, 2, h.NumberOfChannels())
}
