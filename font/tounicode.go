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

import (
	"bytes"
	"fmt"
	"sort"

	pdfcore "pdfkit.dev/core"
)

// ToUnicodeEntry maps one CID to the Unicode text it represents, the input
// to BuildToUnicode (spec.md §4.6's "ToUnicode CMap synthesis").
type ToUnicodeEntry struct {
	CID  CID
	Text []rune
}

// BuildToUnicode synthesizes a ToUnicode CMap stream (ISO 32000-1 §9.10.3):
// single-rune entries are coalesced into bfrange blocks where consecutive
// CIDs map to consecutive code points, everything else falls back to
// individual bfchar entries (multi-rune ligature text always does, since
// bfrange only encodes a single incrementing code point per entry).
//
// Grounded structurally on the bfchar/bfrange CMap syntax a CMap-writing
// package exposes; the wire format itself is specified directly by
// spec.md §4.6 and ISO 32000-1 §9.10, so the CMap PostScript resource
// wrapper below follows the Adobe CMap spec's own boilerplate.
func BuildToUnicode(entries []ToUnicodeEntry) *pdfcore.Stream {
	sorted := append([]ToUnicodeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CID < sorted[j].CID })

	var buf bytes.Buffer
	buf.WriteString(cmapHeader)

	var ranges, chars []ToUnicodeEntry
	for i := 0; i < len(sorted); {
		e := sorted[i]
		if len(e.Text) != 1 {
			chars = append(chars, e)
			i++
			continue
		}
		j := i + 1
		for j < len(sorted) &&
			len(sorted[j].Text) == 1 &&
			sorted[j].CID == sorted[j-1].CID+1 &&
			sorted[j].Text[0] == sorted[j-1].Text[0]+1 {
			j++
		}
		if j-i >= 2 {
			ranges = append(ranges, e, sorted[j-1])
			i = j
		} else {
			chars = append(chars, e)
			i++
		}
	}

	writeBfRanges(&buf, ranges)
	writeBfChars(&buf, chars)

	buf.WriteString(cmapTrailer)

	dict := pdfcore.NewDict()
	dict.Set("Type", pdfcore.Name("CMap"))
	dict.Set("CMapName", pdfcore.Name("Adobe-Identity-UCS"))
	return &pdfcore.Stream{Dict: dict, Data: buf.Bytes()}
}

func writeBfRanges(buf *bytes.Buffer, ranges []ToUnicodeEntry) {
	const batch = 100
	for i := 0; i < len(ranges); i += 2 {
		if i == 0 || (i/2)%batch == 0 {
			if i != 0 {
				buf.WriteString("endbfrange\n")
			}
			n := (len(ranges) - i) / 2
			if n > batch {
				n = batch
			}
			fmt.Fprintf(buf, "%d beginbfrange\n", n)
		}
		lo, hi := ranges[i], ranges[i+1]
		fmt.Fprintf(buf, "<%04X> <%04X> <%04X>\n", lo.CID, hi.CID, lo.Text[0])
	}
	if len(ranges) > 0 {
		buf.WriteString("endbfrange\n")
	}
}

func writeBfChars(buf *bytes.Buffer, chars []ToUnicodeEntry) {
	const batch = 100
	for i := 0; i < len(chars); i++ {
		if i%batch == 0 {
			if i != 0 {
				buf.WriteString("endbfchar\n")
			}
			n := len(chars) - i
			if n > batch {
				n = batch
			}
			fmt.Fprintf(buf, "%d beginbfchar\n", n)
		}
		fmt.Fprintf(buf, "<%04X> <%s>\n", chars[i].CID, encodeUTF16Hex(chars[i].Text))
	}
	if len(chars) > 0 {
		buf.WriteString("endbfchar\n")
	}
}

// encodeUTF16Hex encodes rs as big-endian UTF-16 hex digits, surrogate
// pairs included for code points above the BMP (spec.md §4.6's "CJK block
// defensive ranges" apply at the CID-allocation layer, not here; this
// function only needs to be correct for any rune, not only BMP ones).
func encodeUTF16Hex(rs []rune) string {
	var buf bytes.Buffer
	for _, r := range rs {
		if r > 0xFFFF {
			r -= 0x10000
			hi := 0xD800 + (r >> 10)
			lo := 0xDC00 + (r & 0x3FF)
			fmt.Fprintf(&buf, "%04X%04X", hi, lo)
		} else {
			fmt.Fprintf(&buf, "%04X", r)
		}
	}
	return buf.String()
}

const cmapHeader = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo
<< /Registry (Adobe)
/Ordering (UCS)
/Supplement 0
>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
`

const cmapTrailer = `endcmap
CMapName currentdict /CMap defineresource pop
end
end
`
