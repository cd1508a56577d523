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
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// FilterInfo names one stream filter plus its decode parameters, the
// decoded form of a dict's /Filter and /DecodeParms entries (spec.md §4.2).
type FilterInfo struct {
	Name  Name
	Parms *Dict
}

// GetFilters extracts the filter chain from a stream dictionary. /Filter may
// be a single Name or an Array of Names; /DecodeParms follows the same
// shape, one dict (or null) per filter.
func GetFilters(dict *Dict) ([]*FilterInfo, error) {
	filterObj := dict.Get("Filter")
	parmsObj := dict.Get("DecodeParms")
	if parmsObj == nil {
		parmsObj = dict.Get("DP") // inline-image abbreviation, expanded already by caller in most cases
	}

	switch f := filterObj.(type) {
	case nil, Null:
		return nil, nil
	case Name:
		pDict, _ := parmsObj.(*Dict)
		return []*FilterInfo{{Name: f, Parms: pDict}}, nil
	case Array:
		parmsArr, _ := parmsObj.(Array)
		out := make([]*FilterInfo, len(f))
		for i, fi := range f {
			name, ok := fi.(Name)
			if !ok {
				return nil, &InvalidFormatError{Message: "non-name entry in /Filter array"}
			}
			var pDict *Dict
			if i < len(parmsArr) {
				pDict, _ = parmsArr[i].(*Dict)
			}
			out[i] = &FilterInfo{Name: name, Parms: pDict}
		}
		return out, nil
	default:
		return nil, &InvalidFormatError{Message: "invalid /Filter value"}
	}
}

// DecodeStream applies every filter in a stream's /Filter chain to its raw
// data, in order, and returns the fully decoded bytes. Encryption is outside
// this function's scope: the reader decrypts stream data (via its Adapter)
// before calling DecodeStream.
func DecodeStream(s *Stream) ([]byte, error) {
	filters, err := GetFilters(s.Dict)
	if err != nil {
		return nil, err
	}
	data := s.Data
	for _, fi := range filters {
		data, err = decodeOne(fi, data, s.Dict)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fi.Name, err)
		}
	}
	return data, nil
}

func decodeOne(fi *FilterInfo, data []byte, streamDict *Dict) ([]byte, error) {
	switch fi.Name {
	case "FlateDecode", "Fl":
		return decodeFlate(data, fi.Parms)
	case "ASCIIHexDecode", "AHx":
		return decodeASCIIHex(data)
	case "ASCII85Decode", "A85":
		return decodeASCII85(data)
	case "RunLengthDecode", "RL":
		return decodeRunLength(data)
	case "LZWDecode", "LZW":
		return decodeLZW(data, fi.Parms)
	case "CCITTFaxDecode", "CCF":
		return decodeCCITT(data, fi.Parms, streamDict)
	case "DCTDecode", "DCT", "JPXDecode":
		// Passed through undecoded: the consumer (an image XObject reader)
		// hands the raw JPEG/JPEG2000 bytes to an image.Decode-capable
		// library itself; this core only needs to locate the stream.
		return data, nil
	case "Crypt":
		// Handled upstream by the encryption adapter, not here.
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported filter %q", fi.Name)
	}
}

// --- FlateDecode, with PNG predictor support ---

type predictorParams struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
}

func predictorParamsFromDict(parms *Dict) predictorParams {
	p := predictorParams{Predictor: 1, Colors: 1, BitsPerComponent: 8, Columns: 1}
	if parms == nil {
		return p
	}
	if v, ok := AsFloat64(parms.Get("Predictor")); ok && v >= 1 && v <= 15 {
		p.Predictor = int(v)
	}
	if v, ok := AsFloat64(parms.Get("Colors")); ok && v >= 1 {
		p.Colors = int(v)
	}
	if v, ok := AsFloat64(parms.Get("BitsPerComponent")); ok {
		switch int(v) {
		case 1, 2, 4, 8, 16:
			p.BitsPerComponent = int(v)
		}
	}
	if v, ok := AsFloat64(parms.Get("Columns")); ok && v >= 1 {
		p.Columns = int(v)
	}
	return p
}

func (p predictorParams) rowBytes() int {
	bits := p.Colors * p.BitsPerComponent * p.Columns
	return (bits + 7) / 8
}

func decodeFlate(data []byte, parms *Dict) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return applyPredictor(raw, predictorParamsFromDict(parms))
}

// applyPredictor undoes the PNG or TIFF predictor that was applied before
// compression. Predictor 1 (or less) returns data unchanged, predictor 2 is
// the TIFF horizontal-differencing predictor, and predictors 10-15 are PNG:
// each row's own tag byte selects None, Sub, Up, Average, or Paeth, so the
// filter type may change from row to row.
func applyPredictor(data []byte, p predictorParams) ([]byte, error) {
	if p.Predictor <= 1 {
		return data, nil
	}
	if p.Predictor == 2 {
		return unapplyTIFFPredictor(data, p), nil
	}
	// PNG predictors (10-15): each row is prefixed with a one-byte filter
	// type selector, per RFC 2083 §6.
	row := p.rowBytes()
	var out bytes.Buffer
	prev := make([]byte, row)
	for pos := 0; pos+1+row <= len(data); pos += 1 + row {
		ftype := data[pos]
		cur := append([]byte(nil), data[pos+1:pos+1+row]...)
		bpp := (p.Colors*p.BitsPerComponent + 7) / 8
		if bpp < 1 {
			bpp = 1
		}
		switch ftype {
		case 0: // None
		case 1: // Sub
			for i := range cur {
				if i >= bpp {
					cur[i] += cur[i-bpp]
				}
			}
		case 2: // Up
			for i := range cur {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := range cur {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range cur {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("invalid PNG predictor row tag %d", ftype)
		}
		out.Write(cur)
		prev = cur
	}
	return out.Bytes(), nil
}

func paeth(a, b, c byte) byte {
	pa := absInt(int(b) - int(c))
	pb := absInt(int(a) - int(c))
	pc := absInt(int(a) + int(b) - 2*int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func unapplyTIFFPredictor(data []byte, p predictorParams) []byte {
	if p.BitsPerComponent != 8 {
		return data // only the 8-bit case is common enough to support here
	}
	row := p.rowBytes()
	out := append([]byte(nil), data...)
	for start := 0; start+row <= len(out); start += row {
		for i := p.Colors; i < row; i++ {
			out[start+i] += out[start+i-p.Colors]
		}
	}
	return out
}

// encodeFlate deterministically compresses data with the PNG "Up" predictor
// applied first when requested. "Deterministic" here means: a single
// zlib.NewWriter pass at a fixed compression level, no multi-goroutine
// chunking, and (when predictor 12 is used) per-row diffing applied before
// any compression.
func encodeFlate(data []byte, p predictorParams) []byte {
	if p.Predictor == 12 {
		data = applyPNGUpPredictor(data, p.rowBytes())
	}
	var buf bytes.Buffer
	zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

func applyPNGUpPredictor(data []byte, row int) []byte {
	var out bytes.Buffer
	prev := make([]byte, row)
	for pos := 0; pos+row <= len(data); pos += row {
		cur := data[pos : pos+row]
		out.WriteByte(2)
		diff := make([]byte, row)
		for i := range cur {
			diff[i] = cur[i] - prev[i]
		}
		out.Write(diff)
		prev = cur
	}
	return out.Bytes()
}

// --- ASCIIHexDecode / ASCII85Decode ---

func decodeASCIIHex(data []byte) ([]byte, error) {
	data = bytes.TrimRight(data, "\x00\t\n\f\r >")
	clean := make([]byte, 0, len(data))
	for _, b := range data {
		if b == '>' {
			break
		}
		if b <= 32 {
			continue
		}
		clean = append(clean, b)
	}
	if len(clean)%2 != 0 {
		clean = append(clean, '0')
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	n, err := hex.Decode(out, clean)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func decodeASCII85(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	data = bytes.TrimSuffix(data, []byte("~>"))
	out := make([]byte, 4*len(data)) // a 'z' expands one input byte to four
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// --- RunLengthDecode ---

func decodeRunLength(data []byte) ([]byte, error) {
	var out bytes.Buffer
	for i := 0; i < len(data); {
		length := data[i]
		i++
		switch {
		case length == 128:
			return out.Bytes(), nil
		case length < 128:
			n := int(length) + 1
			if i+n > len(data) {
				return nil, fmt.Errorf("RunLengthDecode: literal run overruns input")
			}
			out.Write(data[i : i+n])
			i += n
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("RunLengthDecode: truncated repeat run")
			}
			count := 257 - int(length)
			for j := 0; j < count; j++ {
				out.WriteByte(data[i])
			}
			i++
		}
	}
	return out.Bytes(), nil
}

// --- LZWDecode ---

func decodeLZW(data []byte, parms *Dict) ([]byte, error) {
	early := true
	if v, ok := AsFloat64(parms.Get("EarlyChange")); ok {
		early = v != 0
	}
	out, err := lzwDecode(data, early)
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, predictorParamsFromDict(parms))
}

// lzwDecode implements the variable-width (9-12 bit) LZW variant PDF uses
// (ISO 32000-1 §7.4.4), which differs from the TIFF/GIF LZW the standard
// library's compress/lzw does not expose in this exact code/clear-table
// convention, so it is hand-rolled here rather than forcing an ill-fitting
// stdlib LZW order.
func lzwDecode(data []byte, earlyChange bool) ([]byte, error) {
	const (
		clearCode = 256
		eodCode   = 257
		firstCode = 258
	)
	var out bytes.Buffer
	br := &bitReader{data: data}

	reset := func() ([][]byte, int) {
		table := make([][]byte, 258, 4096)
		for i := 0; i < 256; i++ {
			table[i] = []byte{byte(i)}
		}
		table[clearCode] = nil
		table[eodCode] = nil
		return table, 9
	}

	table, width := reset()
	var prev []byte
	for {
		code, ok := br.read(width)
		if !ok {
			break
		}
		switch {
		case code == clearCode:
			table, width = reset()
			prev = nil
			continue
		case code == eodCode:
			return out.Bytes(), nil
		}

		var entry []byte
		if int(code) < len(table) && table[code] != nil {
			entry = table[code]
		} else if int(code) == len(table) && prev != nil {
			entry = append(append([]byte(nil), prev...), prev[0])
		} else {
			return nil, fmt.Errorf("LZWDecode: invalid code %d", code)
		}
		out.Write(entry)

		if prev != nil {
			table = append(table, append(append([]byte(nil), prev...), entry[0]))
		}
		prev = entry

		limit := len(table)
		if earlyChange {
			limit++
		}
		switch {
		case limit > 2048 && width < 12:
			width = 12
		case limit > 1024 && width < 11:
			width = 11
		case limit > 512 && width < 10:
			width = 10
		}
	}
	return out.Bytes(), nil
}

type bitReader struct {
	data []byte
	pos  int // bit position
}

func (r *bitReader) read(n int) (uint32, bool) {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := r.pos / 8
		if byteIdx >= len(r.data) {
			return 0, false
		}
		bitIdx := 7 - (r.pos % 8)
		bit := (r.data[byteIdx] >> bitIdx) & 1
		v = v<<1 | uint32(bit)
		r.pos++
	}
	return v, true
}

// --- CCITTFaxDecode ---

// decodeCCITT decodes Group 3/4 fax data via golang.org/x/image/ccitt, the
// real third-party dependency this filter is wired to (see SPEC_FULL.md
// DOMAIN STACK). Output is one bit per pixel, MSB first, matching the
// decoded form every other image-bearing filter produces.
func decodeCCITT(data []byte, parms *Dict, streamDict *Dict) ([]byte, error) {
	columns := 1728
	if v, ok := AsFloat64(parms.Get("Columns")); ok {
		columns = int(v)
	}
	rows := 0
	if v, ok := AsFloat64(parms.Get("Rows")); ok {
		rows = int(v)
	} else if v, ok := AsFloat64(streamDict.Get("Height")); ok {
		rows = int(v)
	}
	k := 0
	if v, ok := AsFloat64(parms.Get("K")); ok {
		k = int(v)
	}
	blackIs1 := false
	if v, ok := parms.Get("BlackIs1").(Boolean); ok {
		blackIs1 = bool(v)
	}
	byteAlign := false
	if v, ok := parms.Get("EncodedByteAlign").(Boolean); ok {
		byteAlign = bool(v)
	}

	mode := ccitt.Group4
	if k < 0 {
		mode = ccitt.Group4
	} else if k == 0 {
		mode = ccitt.Group3_1D
	} else {
		mode = ccitt.Group3_2D
	}

	opts := &ccitt.Options{
		Align:     byteAlign,
		Invert:    blackIs1,
	}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, mode, columns, rows, opts)
	return io.ReadAll(r)
}
