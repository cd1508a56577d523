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
	"encoding/binary"
	"sort"
)

// SubsetThreshold is the size above which a font is subsetted when a
// used-character set is available (spec.md §4.6).
const SubsetThreshold = 100 * 1024

// Subset is a reduced font binary plus the glyph ID renumbering that
// produced it. Width lookups MUST use OldGID against the original Font, not
// NewGID (spec.md §4.6's width-source invariant); Subset deliberately does
// not expose per-glyph widths itself, to make that mistake harder to make.
type Subset struct {
	// UnicodeToNewGID maps each used Unicode scalar to its glyph ID in the
	// subset font.
	UnicodeToNewGID map[rune]uint16
	// NewGIDToOldGID maps a subset glyph ID back to the original font's
	// glyph ID, for width lookups.
	NewGIDToOldGID []uint16
}

// BuildSubset computes the minimal glyph closure for used (including
// .notdef and transitive composite-glyph dependencies, spec.md §4.6) and
// returns the renumbering; the caller emits the actual reduced font bytes
// separately via Subset.Encode, which rebuilds the glyf/loca tables directly
// (no glyph-table write-back API is available outside a full font-object
// model, per DESIGN.md's standard-library justification for this file).
func BuildSubset(f *Font, used map[rune]bool) *Subset {
	closure := map[uint16]bool{0: true} // glyph 0 is always .notdef
	u2g := make(map[rune]uint16)
	for r := range used {
		gid, ok := f.UnicodeToGID[r]
		if !ok {
			continue
		}
		u2g[r] = gid
		closure[gid] = true
	}

	// Transitive closure over composite glyph dependencies.
	pending := make([]uint16, 0, len(closure))
	for gid := range closure {
		pending = append(pending, gid)
	}
	for len(pending) > 0 {
		gid := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, dep := range ComponentGlyphs(f.GlyphData(gid)) {
			if !closure[dep] {
				closure[dep] = true
				pending = append(pending, dep)
			}
		}
	}

	oldGIDs := make([]uint16, 0, len(closure))
	for gid := range closure {
		oldGIDs = append(oldGIDs, gid)
	}
	sort.Slice(oldGIDs, func(i, j int) bool { return oldGIDs[i] < oldGIDs[j] })

	oldToNew := make(map[uint16]uint16, len(oldGIDs))
	for newGID, oldGID := range oldGIDs {
		oldToNew[oldGID] = uint16(newGID)
	}

	unicodeToNewGID := make(map[rune]uint16, len(u2g))
	for r, oldGID := range u2g {
		unicodeToNewGID[r] = oldToNew[oldGID]
	}

	return &Subset{
		UnicodeToNewGID: unicodeToNewGID,
		NewGIDToOldGID:  oldGIDs,
	}
}

// Encode rebuilds minimal head/maxp/hhea/hmtx/loca/glyf/cmap tables for the
// glyph set in s, renumbering composite-glyph component references, and
// assembles a complete sfnt binary. Structurally grounded on a glyph-table
// encoder's offset accumulation and loca format choice, and on the
// table-directory/checksum assembly of an sfnt writer; glyph bodies are
// copied and patched in place rather than decoded into an intermediate
// Glyph struct, since this module never needs to mutate contour data, only
// component glyph indices.
func (s *Subset) Encode(f *Font) []byte {
	bodies := make([][]byte, len(s.NewGIDToOldGID))
	for newGID, oldGID := range s.NewGIDToOldGID {
		data := f.GlyphData(oldGID)
		bodies[newGID] = renumberComponents(data, oldGIDToNewGIDFunc(s))
	}

	offsets := make([]uint32, len(bodies)+1)
	for i, b := range bodies {
		offsets[i+1] = offsets[i] + uint32(len(b))
		if len(b)%2 != 0 {
			offsets[i+1]++ // glyf entries are padded to even length
		}
	}

	glyf := make([]byte, 0, offsets[len(bodies)])
	for _, b := range bodies {
		glyf = append(glyf, b...)
		if len(b)%2 != 0 {
			glyf = append(glyf, 0)
		}
	}

	longLoca := offsets[len(offsets)-1] >= 1<<17
	var loca []byte
	if longLoca {
		loca = make([]byte, 4*len(offsets))
		for i, o := range offsets {
			binary.BigEndian.PutUint32(loca[4*i:], o)
		}
	} else {
		loca = make([]byte, 2*len(offsets))
		for i, o := range offsets {
			binary.BigEndian.PutUint16(loca[2*i:], uint16(o/2))
		}
	}

	widths := make([]uint16, len(s.NewGIDToOldGID))
	for newGID, oldGID := range s.NewGIDToOldGID {
		if int(oldGID) < len(f.Widths) {
			widths[newGID] = f.Widths[oldGID]
		}
	}

	numGlyphs := uint16(len(s.NewGIDToOldGID))
	head := buildHead(f.UnitsPerEm, longLoca)
	maxp := buildMaxp(numGlyphs)
	hhea, hmtx := buildHmtx(widths)
	cmap := buildCmap(s.UnicodeToNewGID)

	tables := map[string][]byte{
		"head": head,
		"maxp": maxp,
		"hhea": hhea,
		"hmtx": hmtx,
		"loca": loca,
		"glyf": glyf,
		"cmap": cmap,
	}
	return assembleSfnt(tables)
}

func oldGIDToNewGIDFunc(s *Subset) map[uint16]uint16 {
	m := make(map[uint16]uint16, len(s.NewGIDToOldGID))
	for newGID, oldGID := range s.NewGIDToOldGID {
		m[oldGID] = uint16(newGID)
	}
	return m
}

// renumberComponents patches a composite glyph's component glyph indices in
// place, leaving simple glyphs untouched.
func renumberComponents(data []byte, oldToNew map[uint16]uint16) []byte {
	if len(data) < 10 {
		return append([]byte(nil), data...)
	}
	out := append([]byte(nil), data...)
	numContours := int16(binary.BigEndian.Uint16(out[0:2]))
	if numContours >= 0 {
		return out
	}
	pos := 10
	for {
		if pos+4 > len(out) {
			break
		}
		flags := binary.BigEndian.Uint16(out[pos:])
		oldGID := binary.BigEndian.Uint16(out[pos+2:])
		if newGID, ok := oldToNew[oldGID]; ok {
			binary.BigEndian.PutUint16(out[pos+2:], newGID)
		}
		pos += 4
		const argsAreWords = 1 << 0
		const weHaveScale = 1 << 3
		const weHaveXYScale = 1 << 6
		const weHaveTwoByTwo = 1 << 7
		const moreComponents = 1 << 5
		if flags&argsAreWords != 0 {
			pos += 4
		} else {
			pos += 2
		}
		switch {
		case flags&weHaveTwoByTwo != 0:
			pos += 8
		case flags&weHaveXYScale != 0:
			pos += 4
		case flags&weHaveScale != 0:
			pos += 2
		}
		if flags&moreComponents == 0 {
			break
		}
	}
	return out
}

func buildHead(unitsPerEm uint16, longLoca bool) []byte {
	h := make([]byte, 54)
	binary.BigEndian.PutUint32(h[0:4], 0x00010000) // version
	binary.BigEndian.PutUint32(h[12:16], 0x5F0F3CF5)
	binary.BigEndian.PutUint16(h[18:20], unitsPerEm)
	binary.BigEndian.PutUint16(h[50:52], 0)
	if longLoca {
		binary.BigEndian.PutUint16(h[50:52], 1)
	}
	return h
}

func buildMaxp(numGlyphs uint16) []byte {
	m := make([]byte, 6)
	binary.BigEndian.PutUint32(m[0:4], 0x00005000)
	binary.BigEndian.PutUint16(m[4:6], numGlyphs)
	return m
}

func buildHmtx(widths []uint16) (hhea, hmtx []byte) {
	hhea = make([]byte, 36)
	binary.BigEndian.PutUint16(hhea[34:36], uint16(len(widths)))
	hmtx = make([]byte, 4*len(widths))
	for i, w := range widths {
		binary.BigEndian.PutUint16(hmtx[4*i:], w)
		binary.BigEndian.PutUint16(hmtx[4*i+2:], 0)
	}
	return hhea, hmtx
}

// buildCmap emits a minimal format-4 cmap subtable covering the used BMP
// scalars (characters outside the BMP are omitted from this subtable; the
// CIDToGIDMap carries the authoritative mapping for text rendering, per
// spec.md §4.6's object graph item 5).
func buildCmap(u2g map[rune]uint16) []byte {
	type seg struct{ start, end, startGID rune }
	var runes []rune
	for r := range u2g {
		if r <= 0xFFFF {
			runes = append(runes, r)
		}
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	var segs []seg
	for i := 0; i < len(runes); {
		start := runes[i]
		j := i
		for j+1 < len(runes) && runes[j+1] == runes[j]+1 && u2g[runes[j+1]] == u2g[runes[j]]+1 {
			j++
		}
		segs = append(segs, seg{start: start, end: runes[j], startGID: rune(u2g[start])})
		i = j + 1
	}
	segs = append(segs, seg{start: 0xFFFF, end: 0xFFFF, startGID: 1})

	segCount := len(segs)
	header := make([]byte, 14)
	binary.BigEndian.PutUint16(header[0:2], 4)
	segCountX2 := segCount * 2
	binary.BigEndian.PutUint16(header[6:8], uint16(segCountX2))

	ends := make([]byte, segCountX2)
	starts := make([]byte, segCountX2)
	deltas := make([]byte, segCountX2)
	ranges := make([]byte, segCountX2)
	for i, s := range segs {
		binary.BigEndian.PutUint16(ends[2*i:], uint16(s.end))
		binary.BigEndian.PutUint16(starts[2*i:], uint16(s.start))
		binary.BigEndian.PutUint16(deltas[2*i:], uint16(s.startGID-s.start))
	}

	sub := append([]byte{}, header...)
	sub = append(sub, ends...)
	sub = append(sub, 0, 0) // reservedPad
	sub = append(sub, starts...)
	sub = append(sub, deltas...)
	sub = append(sub, ranges...)
	binary.BigEndian.PutUint16(sub[2:4], uint16(len(sub)))

	table := make([]byte, 4)
	binary.BigEndian.PutUint16(table[2:4], 1) // numTables
	record := make([]byte, 8)
	binary.BigEndian.PutUint16(record[0:2], 3) // platformID Windows
	binary.BigEndian.PutUint16(record[2:4], 1) // encodingID Unicode BMP
	binary.BigEndian.PutUint32(record[4:8], uint32(len(table)+len(record)))

	out := append(table, record...)
	out = append(out, sub...)
	return out
}

// assembleSfnt writes a minimal sfnt table directory plus the given table
// bodies, grounded on font/sfnt/write.go's header-and-checksum layout.
func assembleSfnt(tables map[string][]byte) []byte {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	numTables := len(names)
	headerLen := 12 + 16*numTables
	offset := uint32(headerLen)

	out := make([]byte, headerLen)
	binary.BigEndian.PutUint32(out[0:4], 0x00010000)
	binary.BigEndian.PutUint16(out[4:6], uint16(numTables))

	var body []byte
	for i, name := range names {
		data := tables[name]
		recOff := 12 + i*16
		copy(out[recOff:recOff+4], name)
		binary.BigEndian.PutUint32(out[recOff+8:recOff+12], offset)
		binary.BigEndian.PutUint32(out[recOff+12:recOff+16], uint32(len(data)))
		body = append(body, data...)
		for len(body)%4 != 0 {
			body = append(body, 0)
		}
		offset = uint32(headerLen + len(body))
	}
	return append(out, body...)
}
