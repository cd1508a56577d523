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
	"math"
	"sort"

	"seehuhn.de/go/dag"

	pdfcore "pdfkit.dev/core"
)

// CID is a character identifier, the index space CIDFontType2 widths and
// CIDToGIDMap entries are keyed by (spec.md §4.6).
type CID uint32

// Descriptor carries the FontDescriptor entries a CIDFontType2 needs.
// Grounded on font/cidfont/type2.go's d.Descriptor.AsDict().
type Descriptor struct {
	Ascent      float64
	Descent     float64
	CapHeight   float64
	StemV       float64
	ItalicAngle float64
	Flags       int32
	FontBBox    [4]float64
}

func (d Descriptor) asDict(fontName pdfcore.Name) *pdfcore.Dict {
	dict := pdfcore.NewDict()
	dict.Set("Type", pdfcore.Name("FontDescriptor"))
	dict.Set("FontName", fontName)
	dict.Set("Flags", pdfcore.Integer(d.Flags))
	dict.Set("FontBBox", pdfcore.Array{
		pdfcore.Real(d.FontBBox[0]), pdfcore.Real(d.FontBBox[1]),
		pdfcore.Real(d.FontBBox[2]), pdfcore.Real(d.FontBBox[3]),
	})
	dict.Set("ItalicAngle", pdfcore.Real(d.ItalicAngle))
	dict.Set("Ascent", pdfcore.Real(d.Ascent))
	dict.Set("Descent", pdfcore.Real(d.Descent))
	dict.Set("CapHeight", pdfcore.Real(d.CapHeight))
	dict.Set("StemV", pdfcore.Real(d.StemV))
	return dict
}

// CIDFontParams is the input to BuildCIDFontType2: a subsetted (or full)
// TrueType program plus the CID-indexed metadata needed to build the
// Type0/CIDFontType2 object graph (spec.md §4.6).
type CIDFontParams struct {
	BaseFont     string
	SubsetTag    string // six-letter uppercase tag, empty if not subsetting
	Registry     string
	Ordering     string
	Supplement   int
	Descriptor   Descriptor
	FontProgram  []byte // complete sfnt binary, already subsetted if needed
	UnitsPerEm   uint16
	Widths       map[CID]float64 // glyph width in font units, keyed by CID
	DefaultWidth float64
	// CIDToGID maps a CID to a glyph ID in FontProgram. A nil or empty map
	// means CID == GID (the "Identity" CIDToGIDMap named value).
	CIDToGID map[CID]uint16
	ToUnicodeRef pdfcore.Reference // pre-embedded ToUnicode stream, or zero value
}

// CIDFontGraph is the five-object graph a CIDFontType2 font embedding
// produces (spec.md §4.6 "Output": Type0 font dict, CIDFont dict,
// FontDescriptor, FontFile2 stream, CIDToGIDMap stream), grounded on
// font/cidfont/type2.go's WriteToPDF. Objects are returned rather than
// written directly, since this module's writer (the document-assembly
// layer) owns object-number allocation and stream compression.
type CIDFontGraph struct {
	Type0Ref      pdfcore.Reference
	Type0         *pdfcore.Dict
	CIDFontRef    pdfcore.Reference
	CIDFont       *pdfcore.Dict
	DescriptorRef pdfcore.Reference
	Descriptor    *pdfcore.Dict
	FontFileRef   pdfcore.Reference
	FontFile      *pdfcore.Stream
	CIDToGIDRef   pdfcore.Reference // zero value if Identity mapping is used
	CIDToGID      *pdfcore.Stream
}

// BuildCIDFontType2 assembles the object graph for embedding p as a
// composite TrueType font. alloc is called once per object that needs an
// indirect reference, in the order the graph's fields are populated.
func BuildCIDFontType2(alloc func() pdfcore.Reference, p CIDFontParams) *CIDFontGraph {
	baseFont := p.BaseFont
	if p.SubsetTag != "" {
		baseFont = p.SubsetTag + "+" + baseFont
	}

	g := &CIDFontGraph{}
	g.Type0Ref = alloc()
	g.CIDFontRef = alloc()
	g.DescriptorRef = alloc()
	g.FontFileRef = alloc()

	cidSystemInfo := pdfcore.NewDict()
	cidSystemInfo.Set("Registry", pdfcore.String(p.Registry))
	cidSystemInfo.Set("Ordering", pdfcore.String(p.Ordering))
	cidSystemInfo.Set("Supplement", pdfcore.Integer(p.Supplement))

	g.Type0 = pdfcore.NewDict()
	g.Type0.Set("Type", pdfcore.Name("Font"))
	g.Type0.Set("Subtype", pdfcore.Name("Type0"))
	g.Type0.Set("BaseFont", pdfcore.Name(baseFont))
	g.Type0.Set("Encoding", pdfcore.Name("Identity-H"))
	g.Type0.Set("DescendantFonts", pdfcore.Array{g.CIDFontRef})
	if p.ToUnicodeRef != (pdfcore.Reference{}) {
		g.Type0.Set("ToUnicode", p.ToUnicodeRef)
	}

	g.CIDFont = pdfcore.NewDict()
	g.CIDFont.Set("Type", pdfcore.Name("Font"))
	g.CIDFont.Set("Subtype", pdfcore.Name("CIDFontType2"))
	g.CIDFont.Set("BaseFont", pdfcore.Name(baseFont))
	g.CIDFont.Set("CIDSystemInfo", cidSystemInfo)
	g.CIDFont.Set("FontDescriptor", g.DescriptorRef)

	dw, w := encodeWidths(p.Widths, p.DefaultWidth, p.UnitsPerEm)
	if math.Abs(dw-1000) > 0.01 {
		g.CIDFont.Set("DW", pdfcore.Integer(int64(math.Round(dw))))
	}
	if len(w) != 0 {
		g.CIDFont.Set("W", w)
	}

	if len(p.CIDToGID) != 0 {
		g.CIDToGIDRef = alloc()
		g.CIDFont.Set("CIDToGIDMap", g.CIDToGIDRef)
		g.CIDToGID = encodeCIDToGIDStream(p.CIDToGID)
	} else {
		g.CIDFont.Set("CIDToGIDMap", pdfcore.Name("Identity"))
	}

	g.Descriptor = p.Descriptor.asDict(pdfcore.Name(baseFont))
	g.Descriptor.Set("FontFile2", g.FontFileRef)

	fontFileDict := pdfcore.NewDict()
	fontFileDict.Set("Length1", pdfcore.Integer(len(p.FontProgram)))
	g.FontFile = &pdfcore.Stream{Dict: fontFileDict, Data: p.FontProgram}

	return g
}

func encodeCIDToGIDStream(m map[CID]uint16) *pdfcore.Stream {
	maxCID := CID(0)
	for cid := range m {
		if cid > maxCID {
			maxCID = cid
		}
	}
	data := make([]byte, 2*(maxCID+1))
	for cid, gid := range m {
		data[2*cid] = byte(gid >> 8)
		data[2*cid+1] = byte(gid)
	}
	return &pdfcore.Stream{Dict: pdfcore.NewDict(), Data: data}
}

// widthRec pairs a CID with its glyph width, the unit encodeWidths sorts and
// runs the shortest-path range/array packing over.
type widthRec struct {
	cid   CID
	width float64
}

// encodeWidths builds the /DW and /W entries of a CIDFont dictionary,
// choosing for each run of CIDs whether a "c_first c_last w" range or a
// "c [w0 w1 ...]" array costs less to write out, via
// seehuhn.de/go/dag.ShortestPath over a graph of packing choices. Grounded
// directly on font/cid/widths.go's EncodeWidths/wwGraph, restructured around
// this module's CID/Dict/Array types instead of type1.CID/funit.Int16.
func encodeWidths(widths map[CID]float64, defaultWidth float64, unitsPerEm uint16) (float64, pdfcore.Array) {
	if len(widths) == 0 {
		return defaultWidth, nil
	}
	ww := make([]widthRec, 0, len(widths))
	for cid, w := range widths {
		ww = append(ww, widthRec{cid: cid, width: w})
	}
	sort.Slice(ww, func(i, j int) bool { return ww[i].cid < ww[j].cid })

	dw := mostFrequentWidth(ww, defaultWidth)

	g := wwGraph{ww: ww, dw: dw}
	ee, err := dag.ShortestPath[wwEdge, int](g, len(ww))
	if err != nil {
		// ShortestPath only fails if AppendEdges produces an unreachable
		// graph, which cannot happen here: every vertex has at least the
		// e=0 or e=-1 self-advancing edge.
		panic(err)
	}

	q := 1000 / float64(unitsPerEm)
	if unitsPerEm == 0 {
		q = 1
	}

	var res pdfcore.Array
	pos := 0
	for _, e := range ee {
		switch {
		case e > 0:
			wi := pdfcore.Integer(int64(math.Round(ww[pos].width * q)))
			res = append(res,
				pdfcore.Integer(ww[pos].cid),
				pdfcore.Integer(ww[pos+int(e)-1].cid),
				wi)
		case e < 0:
			arr := make(pdfcore.Array, 0, -e)
			for i := pos; i < pos+int(-e); i++ {
				arr = append(arr, pdfcore.Integer(int64(math.Round(ww[i].width*q))))
			}
			res = append(res, pdfcore.Integer(ww[pos].cid), arr)
		}
		pos = g.To(pos, e)
	}

	return dw * q, res
}

type wwGraph struct {
	ww []widthRec
	dw float64
}

// wwEdge mirrors font/cid/widths.go's Edge encoding: e=0 default width (no
// entry needed), e>0 a run of e CIDs sharing one width (range entry), e<0 a
// run of -e CIDs with consecutive CID numbers (array entry).
type wwEdge int32

func (g wwGraph) AppendEdges(ee []wwEdge, v int) []wwEdge {
	ww := g.ww
	if ww[v].width == g.dw {
		return append(ee, 0)
	}

	n := len(ww)

	i := v + 1
	for i < n && ww[i].width == ww[v].width {
		i++
	}
	if i > v+1 {
		ee = append(ee, wwEdge(i-v))
	}

	i = v
	for i < n && int(ww[i].cid)-int(ww[v].cid) == i-v {
		i++
		ee = append(ee, wwEdge(v-i))
	}

	return ee
}

func (g wwGraph) Length(v int, e wwEdge) int {
	switch {
	case e == 0:
		return 0
	case e > 0:
		return 12
	default:
		return 6 + 4*int(-e)
	}
}

func (g wwGraph) To(v int, e wwEdge) int {
	if e == 0 {
		return v + 1
	}
	step := int(e)
	if step < 0 {
		step = -step
	}
	return v + step
}

func mostFrequentWidth(ww []widthRec, fallback float64) float64 {
	hist := make(map[float64]int)
	for _, wi := range ww {
		hist[wi.width]++
	}
	bestCount := 0
	best := fallback
	for w, count := range hist {
		if count > bestCount || (count == bestCount && w < best) {
			bestCount = count
			best = w
		}
	}
	return best
}
