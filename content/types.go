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

// Package content implements the content-stream operator language (C5,
// spec.md §4.5): a tokenizer/parser that turns operator bytes into a typed
// operation list, and an emitter that turns the list back into bytes. Unlike
// a read-only content-stream scanner built only for text extraction, this
// package is bidirectional, per spec.md §1.
package content

import pdfcore "pdfkit.dev/core"

// Operation is one operator invocation from a content stream, already
// arity-checked against its operands (spec.md §4.5). Generic covers every
// operator whose operands are plain PDF objects in source order; TJ and
// inline images get their own types because their operand shape isn't "a
// flat list of objects" (spec.md calls both out explicitly).
type Operation interface {
	isOperation()
	// Mnemonic returns the operator keyword, e.g. "Tj" or "BI".
	Mnemonic() string
}

// Generic is an operator together with its operands in source order. Most
// of the §4.5 operator set (text state, positioning, graphics state, path
// construction/painting, clipping, color, shading, XObjects, marked
// content) is represented this way.
type Generic struct {
	Op   string
	Args []pdfcore.Object
}

func (Generic) isOperation() {}

// Mnemonic implements Operation.
func (g Generic) Mnemonic() string { return g.Op }

// TJItem is one element of a TJ array operand: either a run of glyphs to
// show (Text) or a spacing adjustment in thousandths of text space units,
// negative meaning reduced spacing (spec.md §4.5).
type TJItem struct {
	IsText  bool
	Text    pdfcore.String
	Spacing float64
}

// ShowTextArray is the TJ operator's typed form: `[(Hel) -120 (lo)] TJ`
// becomes ShowTextArray{Items: []TJItem{{IsText: true, Text: "Hel"},
// {Spacing: -120}, {IsText: true, Text: "lo"}}} (spec.md §8 scenario 5).
type ShowTextArray struct {
	Items []TJItem
}

func (ShowTextArray) isOperation() {}

// Mnemonic implements Operation.
func (ShowTextArray) Mnemonic() string { return "TJ" }

// InlineImage is the BI...ID...EI construct, parsed as a single operation
// (spec.md §4.5): Params holds the image dictionary with every abbreviated
// key and abbreviated color-space/filter name already expanded to its
// canonical form; Data is the raw (still-encoded) image bytes between ID
// and EI.
type InlineImage struct {
	Params *pdfcore.Dict
	Data   []byte
}

func (InlineImage) isOperation() {}

// Mnemonic implements Operation.
func (InlineImage) Mnemonic() string { return "BI" }

// keyAbbreviations maps an inline image dictionary's abbreviated keys to
// their canonical names (spec.md §4.5).
var keyAbbreviations = map[string]string{
	"W":   "Width",
	"H":   "Height",
	"CS":  "ColorSpace",
	"BPC": "BitsPerComponent",
	"F":   "Filter",
	"DP":  "DecodeParms",
	"IM":  "ImageMask",
	"I":   "Interpolate",
}

// nameAbbreviations maps an inline image's abbreviated color-space/filter
// *values* to their canonical names (spec.md §4.5).
var nameAbbreviations = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"A85":  "ASCII85Decode",
	"Fl":   "FlateDecode",
	"DCT":  "DCTDecode",
	"AHx":  "ASCIIHexDecode",
	"CCF":  "CCITTFaxDecode",
	"LZW":  "LZWDecode",
	"RL":   "RunLengthDecode",
}

func expandKey(k pdfcore.Name) pdfcore.Name {
	if full, ok := keyAbbreviations[string(k)]; ok {
		return pdfcore.Name(full)
	}
	return k
}

func expandName(n pdfcore.Name) pdfcore.Name {
	if full, ok := nameAbbreviations[string(n)]; ok {
		return pdfcore.Name(full)
	}
	return n
}

// expandFilterValue expands a /Filter value, which may be a single Name or
// an Array of Names.
func expandFilterValue(v pdfcore.Object) pdfcore.Object {
	switch x := v.(type) {
	case pdfcore.Name:
		return expandName(x)
	case pdfcore.Array:
		out := make(pdfcore.Array, len(x))
		for i, item := range x {
			if n, ok := item.(pdfcore.Name); ok {
				out[i] = expandName(n)
			} else {
				out[i] = item
			}
		}
		return out
	default:
		return v
	}
}
