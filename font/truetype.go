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

// Package font implements the TrueType/OpenType parsing, subsetting, and
// Type0/CIDFontType2 emission layer (C6, spec.md §4.6). It is grounded on
// an in-module sfnt implementation's structure (header table directory,
// head/hhea/hmtx/cmap table readers, glyf/loca decoding) and a CIDFont
// emission package, restructured around this module's Object/Dict types
// instead of a read-only Extract-centric API.
package font

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic byte sequences identifying a TrueType/OpenType font binary (spec.md
// §6).
var (
	magicTrueType = [4]byte{0x00, 0x01, 0x00, 0x00}
	magicApple    = [4]byte{'t', 'r', 'u', 'e'}
	magicOpenType = [4]byte{'O', 'T', 'T', 'O'}
)

// Format detects which sfnt flavor data is, by its four-byte magic.
type Format int

const (
	FormatUnknown Format = iota
	FormatTrueType
	FormatOpenTypeCFF
)

// DetectFormat inspects the first four bytes of a font binary (spec.md §6).
func DetectFormat(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	var magic [4]byte
	copy(magic[:], data[:4])
	switch magic {
	case magicTrueType, magicApple:
		return FormatTrueType
	case magicOpenType:
		return FormatOpenTypeCFF
	default:
		return FormatUnknown
	}
}

// tableRecord is one sfnt table directory entry.
type tableRecord struct {
	offset uint32
	length uint32
}

// Font is a parsed sfnt font: the table directory plus the handful of
// tables this module's writer needs (head, hhea, hmtx, cmap, glyf, loca).
// Grounded on font/sfnt/table.Header (table directory + sanity checks) and
// font/sfnt/read.go's per-table readers.
type Font struct {
	data   []byte
	tables map[string]tableRecord

	UnitsPerEm uint16
	NumGlyphs  int

	// Widths holds each glyph's advance width in font units (hmtx table),
	// indexed by original glyph ID. Subsetting must look widths up here,
	// never by a post-subset glyph ID (spec.md §4.6's width-source
	// invariant).
	Widths []uint16

	// UnicodeToGID maps a Unicode scalar to its original glyph ID, from the
	// cmap table's format-4 (BMP) or format-12 (supplementary planes)
	// subtable.
	UnicodeToGID map[rune]uint16

	indexToLocFormat int16
	locaOffsets      []uint32
	glyfTable        []byte
}

var errNoTable = errors.New("font: required sfnt table missing")

// Parse reads the sfnt table directory and the tables this module needs for
// subsetting and width/CMap synthesis (spec.md §4.6 "Input").
func Parse(data []byte) (*Font, error) {
	if DetectFormat(data) != FormatTrueType {
		return nil, fmt.Errorf("font: not a recognized TrueType/OpenType font (magic %x)", data[:min(4, len(data))])
	}
	if len(data) < 12 {
		return nil, errors.New("font: truncated sfnt header")
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	f := &Font{data: data, tables: make(map[string]tableRecord, numTables)}
	for i := 0; i < numTables; i++ {
		recOff := 12 + i*16
		if recOff+16 > len(data) {
			return nil, errors.New("font: truncated table directory")
		}
		tag := string(data[recOff : recOff+4])
		offset := binary.BigEndian.Uint32(data[recOff+8 : recOff+12])
		length := binary.BigEndian.Uint32(data[recOff+12 : recOff+16])
		f.tables[tag] = tableRecord{offset: offset, length: length}
	}

	if err := f.readHead(); err != nil {
		return nil, err
	}
	if err := f.readMaxp(); err != nil {
		return nil, err
	}
	if err := f.readHmtx(); err != nil {
		return nil, err
	}
	if err := f.readCmap(); err != nil {
		return nil, err
	}
	if err := f.readLoca(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Font) tableBytes(tag string) ([]byte, error) {
	rec, ok := f.tables[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNoTable, tag)
	}
	end := int(rec.offset) + int(rec.length)
	if end > len(f.data) {
		return nil, fmt.Errorf("font: table %q extends beyond end of file", tag)
	}
	return f.data[rec.offset:end], nil
}

// readHead extracts unitsPerEm and indexToLocFormat from the "head" table.
func (f *Font) readHead() error {
	head, err := f.tableBytes("head")
	if err != nil {
		return err
	}
	if len(head) < 54 {
		return errors.New("font: truncated head table")
	}
	f.UnitsPerEm = binary.BigEndian.Uint16(head[18:20])
	f.indexToLocFormat = int16(binary.BigEndian.Uint16(head[50:52]))
	return nil
}

func (f *Font) readMaxp() error {
	maxp, err := f.tableBytes("maxp")
	if err != nil {
		return err
	}
	if len(maxp) < 6 {
		return errors.New("font: truncated maxp table")
	}
	f.NumGlyphs = int(binary.BigEndian.Uint16(maxp[4:6]))
	return nil
}

// readHmtx extracts per-glyph advance widths (spec.md §4.6's "original
// font's glyph widths indexed by the original glyph IDs").
func (f *Font) readHmtx() error {
	hhea, err := f.tableBytes("hhea")
	if err != nil {
		return err
	}
	if len(hhea) < 36 {
		return errors.New("font: truncated hhea table")
	}
	numH := int(binary.BigEndian.Uint16(hhea[34:36]))

	hmtx, err := f.tableBytes("hmtx")
	if err != nil {
		return err
	}
	widths := make([]uint16, f.NumGlyphs)
	var last uint16
	for i := 0; i < f.NumGlyphs; i++ {
		if i < numH {
			off := i * 4
			if off+2 > len(hmtx) {
				break
			}
			last = binary.BigEndian.Uint16(hmtx[off : off+2])
		}
		widths[i] = last
	}
	f.Widths = widths
	return nil
}

// readCmap extracts a Unicode-to-glyph-ID map from the best available
// subtable: platform (3,1) format 4 (BMP) is preferred, following the usual
// cmap subtable priority order.
func (f *Font) readCmap() error {
	cmapTable, err := f.tableBytes("cmap")
	if err != nil {
		return err
	}
	if len(cmapTable) < 4 {
		return errors.New("font: truncated cmap table")
	}
	numTables := int(binary.BigEndian.Uint16(cmapTable[2:4]))

	var best int = -1
	for i := 0; i < numTables; i++ {
		recOff := 4 + i*8
		if recOff+8 > len(cmapTable) {
			break
		}
		platformID := binary.BigEndian.Uint16(cmapTable[recOff : recOff+2])
		encodingID := binary.BigEndian.Uint16(cmapTable[recOff+2 : recOff+4])
		offset := int(binary.BigEndian.Uint32(cmapTable[recOff+4 : recOff+8]))
		if platformID == 3 && (encodingID == 1 || encodingID == 10) {
			best = offset
		} else if best < 0 && platformID == 0 {
			best = offset
		}
	}
	f.UnicodeToGID = make(map[rune]uint16)
	if best < 0 || best >= len(cmapTable) {
		return nil
	}
	sub := cmapTable[best:]
	if len(sub) < 2 {
		return nil
	}
	format := binary.BigEndian.Uint16(sub[0:2])
	switch format {
	case 4:
		parseCmapFormat4(sub, f.UnicodeToGID)
	case 12:
		parseCmapFormat12(sub, f.UnicodeToGID)
	}
	return nil
}

func parseCmapFormat4(sub []byte, out map[rune]uint16) {
	if len(sub) < 14 {
		return
	}
	segCountX2 := int(binary.BigEndian.Uint16(sub[6:8]))
	segCount := segCountX2 / 2
	endBase := 14
	startBase := endBase + segCountX2 + 2
	deltaBase := startBase + segCountX2
	rangeBase := deltaBase + segCountX2
	if rangeBase+segCountX2 > len(sub) {
		return
	}
	for s := 0; s < segCount; s++ {
		end := binary.BigEndian.Uint16(sub[endBase+2*s:])
		start := binary.BigEndian.Uint16(sub[startBase+2*s:])
		delta := binary.BigEndian.Uint16(sub[deltaBase+2*s:])
		rangeOffset := binary.BigEndian.Uint16(sub[rangeBase+2*s:])
		if start == 0xFFFF && end == 0xFFFF {
			continue
		}
		for c := uint32(start); c <= uint32(end); c++ {
			var gid uint16
			if rangeOffset == 0 {
				gid = uint16(c) + delta
			} else {
				idx := rangeBase + 2*s + int(rangeOffset) + 2*int(c-uint32(start))
				if idx+2 > len(sub) {
					continue
				}
				gid = binary.BigEndian.Uint16(sub[idx:])
				if gid != 0 {
					gid += delta
				}
			}
			if gid != 0 {
				out[rune(c)] = gid
			}
		}
	}
}

func parseCmapFormat12(sub []byte, out map[rune]uint16) {
	if len(sub) < 16 {
		return
	}
	numGroups := binary.BigEndian.Uint32(sub[12:16])
	base := 16
	for g := uint32(0); g < numGroups; g++ {
		off := base + int(g)*12
		if off+12 > len(sub) {
			break
		}
		startChar := binary.BigEndian.Uint32(sub[off:])
		endChar := binary.BigEndian.Uint32(sub[off+4:])
		startGID := binary.BigEndian.Uint32(sub[off+8:])
		for c := startChar; c <= endChar; c++ {
			out[rune(c)] = uint16(startGID + (c - startChar))
		}
	}
}

// readLoca extracts the per-glyph byte offsets into the glyf table (spec.md
// §4.6), grounded on font/sfnt/read.go's GetGlyfOffsets.
func (f *Font) readLoca() error {
	loca, err := f.tableBytes("loca")
	if err != nil {
		return err
	}
	glyf, err := f.tableBytes("glyf")
	if err != nil {
		return err
	}
	f.glyfTable = glyf

	offsets := make([]uint32, f.NumGlyphs+1)
	if f.indexToLocFormat == 0 {
		for i := range offsets {
			idx := i * 2
			if idx+2 > len(loca) {
				break
			}
			offsets[i] = uint32(binary.BigEndian.Uint16(loca[idx:])) * 2
		}
	} else {
		for i := range offsets {
			idx := i * 4
			if idx+4 > len(loca) {
				break
			}
			offsets[i] = binary.BigEndian.Uint32(loca[idx:])
		}
	}
	f.locaOffsets = offsets
	return nil
}

// GlyphData returns the raw "glyf" table bytes for glyph gid, or nil if the
// glyph has no outline (e.g. the space glyph).
func (f *Font) GlyphData(gid uint16) []byte {
	if int(gid)+1 >= len(f.locaOffsets) {
		return nil
	}
	start, end := f.locaOffsets[gid], f.locaOffsets[gid+1]
	if start == end || int(end) > len(f.glyfTable) {
		return nil
	}
	return f.glyfTable[start:end]
}

// ComponentGlyphs returns the glyph IDs a composite glyph (numberOfContours
// == -1) references, for subsetting's glyph-closure walk (spec.md §4.6).
func ComponentGlyphs(glyphData []byte) []uint16 {
	if len(glyphData) < 10 {
		return nil
	}
	numContours := int16(binary.BigEndian.Uint16(glyphData[0:2]))
	if numContours >= 0 {
		return nil
	}
	var deps []uint16
	pos := 10
	for {
		if pos+4 > len(glyphData) {
			break
		}
		flags := binary.BigEndian.Uint16(glyphData[pos:])
		gi := binary.BigEndian.Uint16(glyphData[pos+2:])
		deps = append(deps, gi)
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
	return deps
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
