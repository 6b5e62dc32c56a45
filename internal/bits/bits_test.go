// Copyright 2017 Hajime Hoshi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/aurelia-audio/mp3enc/internal/bits"
)

func TestReaderBits(t *testing.T) {
	b1 := byte(85)  // 01010101
	b2 := byte(170) // 10101010
	b3 := byte(204) // 11001100
	b4 := byte(51)  // 00110011
	b := New([]byte{b1, b2, b3, b4})
	assert.Equal(t, 0, b.Bits(1))
	assert.Equal(t, 1, b.Bits(1))
	assert.Equal(t, 0, b.Bits(1))
	assert.Equal(t, 1, b.Bits(1))
	assert.Equal(t, 90 /* 01011010 */, b.Bits(8))
	assert.Equal(t, 2764 /* 101011001100 */, b.Bits(12))
}

func TestWriterRoundTripsReader(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0x1FF, 9)
	w.WriteBits(5, 3)
	w.WriteBit(1)
	w.WriteBits(0, 7)
	assert.Equal(t, 20, w.Len())

	r := New(w.Bytes())
	assert.Equal(t, 0x1FF, r.Bits(9))
	assert.Equal(t, 5, r.Bits(3))
	assert.Equal(t, 1, r.Bits(1))
	assert.Equal(t, 0, r.Bits(7))
}

func TestWriterPadToByte(t *testing.T) {
	w := NewWriter()
	w.WriteBits(1, 3)
	w.PadToByte()
	assert.Equal(t, 8, w.Len())
	assert.Equal(t, 1, w.LenBytes())
}

func TestAppendAndTail(t *testing.T) {
	prev := New([]byte{1, 2, 3, 4})
	tail := prev.Tail(2)
	assert.Equal(t, []byte{3, 4}, tail)

	combined := Append(New(tail), []byte{5, 6})
	assert.Equal(t, []byte{3, 4, 5, 6}, combined.Vec)
}
