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

package font

import pdfcore "pdfkit.dev/core"

// StandardFont names the 14 standard Type1 fonts every PDF viewer is
// required to supply, without an embedded font program (spec.md §4.6).
type StandardFont string

const (
	Helvetica            StandardFont = "Helvetica"
	HelveticaBold        StandardFont = "Helvetica-Bold"
	HelveticaOblique     StandardFont = "Helvetica-Oblique"
	HelveticaBoldOblique StandardFont = "Helvetica-BoldOblique"
	TimesRoman           StandardFont = "Times-Roman"
	TimesBold            StandardFont = "Times-Bold"
	TimesItalic          StandardFont = "Times-Italic"
	TimesBoldItalic      StandardFont = "Times-BoldItalic"
	Courier              StandardFont = "Courier"
	CourierBold          StandardFont = "Courier-Bold"
	CourierOblique       StandardFont = "Courier-Oblique"
	CourierBoldOblique   StandardFont = "Courier-BoldOblique"
	Symbol               StandardFont = "Symbol"
	ZapfDingbats         StandardFont = "ZapfDingbats"
)

// standardFonts enumerates all 14 fonts, for validation and listing.
var standardFonts = map[StandardFont]bool{
	Helvetica: true, HelveticaBold: true, HelveticaOblique: true, HelveticaBoldOblique: true,
	TimesRoman: true, TimesBold: true, TimesItalic: true, TimesBoldItalic: true,
	Courier: true, CourierBold: true, CourierOblique: true, CourierBoldOblique: true,
	Symbol: true, ZapfDingbats: true,
}

// IsStandardFont reports whether name is one of the 14 required fonts.
func IsStandardFont(name string) bool {
	return standardFonts[StandardFont(name)]
}

// BuildStandardFontDict returns the Type1 font dictionary for a standard
// font reference (ISO 32000-1 §9.6.2.2: no FontDescriptor or embedded font
// program is required). Symbol and ZapfDingbats keep their built-in
// encoding; every other standard font gets an explicit WinAnsiEncoding entry
// so the byte-to-glyph mapping does not depend on a viewer's platform
// default (spec.md §4.6).
//
// Follows font/pdfenc's WinAnsiEncoding table for the /Differences-free
// encoding name this function emits.
func BuildStandardFontDict(name StandardFont) *pdfcore.Dict {
	dict := pdfcore.NewDict()
	dict.Set("Type", pdfcore.Name("Font"))
	dict.Set("Subtype", pdfcore.Name("Type1"))
	dict.Set("BaseFont", pdfcore.Name(name))
	if name != Symbol && name != ZapfDingbats {
		dict.Set("Encoding", pdfcore.Name("WinAnsiEncoding"))
	}
	return dict
}

// winAnsiHighGlyphs holds the Windows-1252-specific glyph names for byte
// codes 0x80-0x9F and the accented/punctuation range 0xA0-0xFF, the part of
// WinAnsiEncoding that differs from plain ASCII. Restructured from
// font/pdfenc/winansi.go's generated 256-entry array into a sparse map of
// just the non-ASCII deviations, since the ASCII range (0x20-0x7E) already
// has standard PostScript glyph names following the code point's printable
// character.
var winAnsiHighGlyphs = map[byte]string{
	0x80: "Euro", 0x82: "quotesinglbase", 0x83: "florin", 0x84: "quotedblbase",
	0x85: "ellipsis", 0x86: "dagger", 0x87: "daggerdbl", 0x88: "circumflex",
	0x89: "perthousand", 0x8A: "Scaron", 0x8B: "guilsinglleft", 0x8C: "OE",
	0x8E: "Zcaron", 0x91: "quoteleft", 0x92: "quoteright", 0x93: "quotedblleft",
	0x94: "quotedblright", 0x95: "bullet", 0x96: "endash", 0x97: "emdash",
	0x98: "tilde", 0x99: "trademark", 0x9A: "scaron", 0x9B: "guilsinglright",
	0x9C: "oe", 0x9E: "zcaron", 0x9F: "Ydieresis",
	0xA0: "space", 0xA1: "exclamdown", 0xA2: "cent", 0xA3: "sterling",
	0xA4: "currency", 0xA5: "yen", 0xA6: "brokenbar", 0xA7: "section",
	0xA8: "dieresis", 0xA9: "copyright", 0xAA: "ordfeminine",
	0xAB: "guillemotleft", 0xAC: "logicalnot", 0xAD: "hyphen",
	0xAE: "registered", 0xAF: "macron", 0xB0: "degree", 0xB1: "plusminus",
	0xB2: "twosuperior", 0xB3: "threesuperior", 0xB4: "acute", 0xB5: "mu",
	0xB6: "paragraph", 0xB7: "periodcentered", 0xB8: "cedilla",
	0xB9: "onesuperior", 0xBA: "ordmasculine", 0xBB: "guillemotright",
	0xBC: "onequarter", 0xBD: "onehalf", 0xBE: "threequarters",
	0xBF: "questiondown", 0xC0: "Agrave", 0xC1: "Aacute", 0xC2: "Acircumflex",
	0xC3: "Atilde", 0xC4: "Adieresis", 0xC5: "Aring", 0xC6: "AE",
	0xC7: "Ccedilla", 0xC8: "Egrave", 0xC9: "Eacute", 0xCA: "Ecircumflex",
	0xCB: "Edieresis", 0xCC: "Igrave", 0xCD: "Iacute", 0xCE: "Icircumflex",
	0xCF: "Idieresis", 0xD0: "Eth", 0xD1: "Ntilde", 0xD2: "Ograve",
	0xD3: "Oacute", 0xD4: "Ocircumflex", 0xD5: "Otilde", 0xD6: "Odieresis",
	0xD7: "multiply", 0xD8: "Oslash", 0xD9: "Ugrave", 0xDA: "Uacute",
	0xDB: "Ucircumflex", 0xDC: "Udieresis", 0xDD: "Yacute", 0xDE: "Thorn",
	0xDF: "germandbls", 0xE0: "agrave", 0xE1: "aacute", 0xE2: "acircumflex",
	0xE3: "atilde", 0xE4: "adieresis", 0xE5: "aring", 0xE6: "ae",
	0xE7: "ccedilla", 0xE8: "egrave", 0xE9: "eacute", 0xEA: "ecircumflex",
	0xEB: "edieresis", 0xEC: "igrave", 0xED: "iacute", 0xEE: "icircumflex",
	0xEF: "idieresis", 0xF0: "eth", 0xF1: "ntilde", 0xF2: "ograve",
	0xF3: "oacute", 0xF4: "ocircumflex", 0xF5: "otilde", 0xF6: "odieresis",
	0xF7: "divide", 0xF8: "oslash", 0xF9: "ugrave", 0xFA: "uacute",
	0xFB: "ucircumflex", 0xFC: "udieresis", 0xFD: "yacute", 0xFE: "thorn",
	0xFF: "ydieresis",
}

// standardASCIIGlyphs names the printable ASCII range 0x20-0x7E as
// WinAnsiEncoding assigns them (0x27 is quotesingle and 0x60 is grave, where
// StandardEncoding has quoteright and quoteleft).
var standardASCIIGlyphs = [...]string{
	"space", "exclam", "quotedbl", "numbersign", "dollar", "percent",
	"ampersand", "quotesingle", "parenleft", "parenright", "asterisk",
	"plus", "comma", "hyphen", "period", "slash", "zero", "one", "two",
	"three", "four", "five", "six", "seven", "eight", "nine", "colon",
	"semicolon", "less", "equal", "greater", "question", "at", "A", "B",
	"C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O", "P",
	"Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z", "bracketleft",
	"backslash", "bracketright", "asciicircum", "underscore", "grave",
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n",
	"o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"braceleft", "bar", "braceright", "asciitilde",
}

// WinAnsiGlyphName returns the PostScript glyph name WinAnsiEncoding assigns
// to byte code, or ".notdef" for unassigned codes (spec.md §4.6).
func WinAnsiGlyphName(code byte) string {
	if code >= 0x20 && code <= 0x7E {
		return standardASCIIGlyphs[code-0x20]
	}
	if name, ok := winAnsiHighGlyphs[code]; ok {
		return name
	}
	return ".notdef"
}
