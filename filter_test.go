// pdfkit.dev/core - a PDF object model, content stream, font, and form
// calculation engine
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdfcore

import (
	"bytes"
	"testing"
)

func TestGetFiltersSingleName(t *testing.T) {
	d := NewDict()
	d.Set("Filter", Name("FlateDecode"))
	filters, err := GetFilters(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(filters) != 1 || filters[0].Name != "FlateDecode" {
		t.Errorf("filters = %+v", filters)
	}
}

func TestGetFiltersArrayWithParms(t *testing.T) {
	parms := NewDict()
	parms.Set("Predictor", Integer(12))
	d := NewDict()
	d.Set("Filter", Array{Name("ASCII85Decode"), Name("FlateDecode")})
	d.Set("DecodeParms", Array{Null{}, parms})

	filters, err := GetFilters(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(filters) != 2 {
		t.Fatalf("got %d filters, want 2", len(filters))
	}
	if filters[0].Name != "ASCII85Decode" || filters[0].Parms != nil {
		t.Errorf("filters[0] = %+v", filters[0])
	}
	if filters[1].Name != "FlateDecode" || filters[1].Parms == nil {
		t.Errorf("filters[1] = %+v", filters[1])
	}
}

func TestGetFiltersNone(t *testing.T) {
	d := NewDict()
	filters, err := GetFilters(d)
	if err != nil || filters != nil {
		t.Errorf("filters = %v, err = %v, want nil, nil", filters, err)
	}
}

func TestGetFiltersInvalidArrayEntry(t *testing.T) {
	d := NewDict()
	d.Set("Filter", Array{Integer(1)})
	if _, err := GetFilters(d); err == nil {
		t.Error("expected an error for a non-name entry in a /Filter array")
	}
}

func TestFlateRoundTripNoPredictor(t *testing.T) {
	original := []byte("the quick brown fox jumps over the lazy dog, 12345")
	encoded := encodeFlate(original, predictorParams{Predictor: 1})
	got, err := decodeFlate(encoded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("got %q, want %q", got, original)
	}
}

func TestFlateRoundTripPNGUpPredictor(t *testing.T) {
	// 3 rows of 4 bytes each, as if Colors=4 BitsPerComponent=8 Columns=1.
	original := []byte{
		10, 20, 30, 40,
		11, 19, 33, 38,
		200, 1, 255, 0,
	}
	p := predictorParams{Predictor: 12, Colors: 4, BitsPerComponent: 8, Columns: 1}
	encoded := encodeFlate(original, p)

	parms := NewDict()
	parms.Set("Predictor", Integer(12))
	parms.Set("Colors", Integer(4))
	parms.Set("BitsPerComponent", Integer(8))
	parms.Set("Columns", Integer(1))

	got, err := decodeFlate(encoded, parms)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("got %v, want %v", got, original)
	}
}

func TestDecodeStreamAppliesFilterChain(t *testing.T) {
	original := []byte("stream payload")
	encoded := encodeFlate(original, predictorParams{Predictor: 1})
	dict := NewDict()
	dict.Set("Filter", Name("FlateDecode"))
	stream := &Stream{Dict: dict, Data: encoded}

	got, err := DecodeStream(stream)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("got %q, want %q", got, original)
	}
}

func TestDecodeStreamUnsupportedFilterErrors(t *testing.T) {
	dict := NewDict()
	dict.Set("Filter", Name("BogusDecode"))
	stream := &Stream{Dict: dict, Data: []byte("x")}
	if _, err := DecodeStream(stream); err == nil {
		t.Error("expected an error for an unrecognized filter name")
	}
}

func TestDecodeASCIIHex(t *testing.T) {
	got, err := decodeASCIIHex([]byte("48656C6C 6F>"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Hello" {
		t.Errorf("got %q, want Hello", got)
	}
}

func TestDecodeASCIIHexOddDigitsPadded(t *testing.T) {
	got, err := decodeASCIIHex([]byte("4>"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0x40 {
		t.Errorf("got %v, want [0x40]", got)
	}
}

func TestDecodeASCII85(t *testing.T) {
	// "Man " encodes to "9jqo^" in the standard Adobe ascii85 alphabet.
	got, err := decodeASCII85([]byte("9jqo^~>"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Man " {
		t.Errorf("got %q, want %q", got, "Man ")
	}
}

func TestDecodeRunLengthLiteralAndRepeat(t *testing.T) {
	// Literal run "abc" (length byte 2 means 3 following bytes), then a
	// repeat run of 'x' 5 times (length byte 257-5=252), then EOD (128).
	data := []byte{2, 'a', 'b', 'c', 252, 'x', 128}
	got, err := decodeRunLength(data)
	if err != nil {
		t.Fatal(err)
	}
	want := "abcxxxxx"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodeRunLengthTruncatedRepeatErrors(t *testing.T) {
	data := []byte{252}
	if _, err := decodeRunLength(data); err == nil {
		t.Error("expected an error for a repeat run with no following byte")
	}
}

// packLZWCodes packs fixed-width codes MSB-first into bytes, the inverse of
// bitReader.read, for constructing minimal LZW fixtures by hand.
func packLZWCodes(codes []uint32, width int) []byte {
	var bitBuf []byte
	for _, c := range codes {
		for i := width - 1; i >= 0; i-- {
			bitBuf = append(bitBuf, byte((c>>uint(i))&1))
		}
	}
	out := make([]byte, (len(bitBuf)+7)/8)
	for i, b := range bitBuf {
		if b == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func TestLZWDecodeClearLiteralsEOD(t *testing.T) {
	const clearCode = 256
	const eodCode = 257
	data := packLZWCodes([]uint32{clearCode, 'A', 'B', 'C', eodCode}, 9)
	parms := NewDict()
	parms.Set("EarlyChange", Integer(0))
	got, err := decodeLZW(data, parms)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ABC" {
		t.Errorf("got %q, want %q", got, "ABC")
	}
}

func TestPaeth(t *testing.T) {
	// Paeth degenerates to plain "Up" prediction when a == c (the common
	// case at the left edge of a row, where a and c are both 0).
	if got := paeth(0, 100, 0); got != 100 {
		t.Errorf("paeth(0, 100, 0) = %d, want 100", got)
	}
}
