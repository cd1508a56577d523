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
	"fmt"
	"io"
	"sort"
)

// maxObjStmSize is the largest number of objects the writer packs into a
// single object stream before starting a new one (spec.md §4.7: "group ≤100
// objects per stream"). Carried over from original_source/oxidize-pdf-core's
// writer/pdf_writer/mod.rs batching figure (SPEC_FULL.md "Supplemented
// features" §3).
const maxObjStmSize = 100

// pendingObject is a non-stream object Writer.Put has buffered for the next
// object-stream flush, rather than writing inline (spec.md §4.7).
type pendingObject struct {
	Num uint32
	Obj Object
}

// Writer assembles a document's physical byte layout: it allocates object
// numbers, emits indirect objects (inline or batched into object streams),
// and writes the closing cross-reference section and trailer (C7, spec.md
// §4.7). Writer is not safe for concurrent use (spec.md §5); it belongs to
// one document-serialization operation.
//
// Structurally this follows an Alloc/Put/OpenStream document-assembly API,
// generalized from a "buffer everything, write once at Close" shape to
// write each directly-emitted object to dst as soon as Put is called, so
// that the xref offsets Writer records are the objects' real byte
// positions rather than positions computed after the fact.
type Writer struct {
	dst    io.Writer
	config WriterConfig
	Crypt  Adapter // nil means no encryption; see crypt.go / C9.

	pos     int64
	nextNum uint32
	entries map[uint32]xrefEntry
	pending []pendingObject
	closed  bool
	err     error
}

// NewWriter creates a Writer over dst and immediately emits the file header
// (spec.md §4.7 step 1): "%PDF-<version>\n" followed by a line of four
// high-bit bytes, the conventional binary-transport marker every PDF writer
// emits so FTP/email gateways that sniff for "is this text" leave the file
// alone.
func NewWriter(dst io.Writer, config WriterConfig) (*Writer, error) {
	version := config.PDFVersion
	if version == "" {
		version = "1.7"
	}
	w := &Writer{
		dst:     dst,
		config:  config,
		nextNum: 1,
		entries: map[uint32]xrefEntry{0: {Kind: xrefFree, Gen: 65535}},
	}
	if err := w.writeRaw([]byte("%PDF-" + version + "\n%\xE2\xE3\xCF\xD3\n")); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeRaw(b []byte) error {
	if w.err != nil {
		return w.err
	}
	n, err := w.dst.Write(b)
	w.pos += int64(n)
	if err != nil {
		w.err = err
	}
	return err
}

// Alloc reserves the next free object number, generation 0. Object numbers
// 1-3 are reserved by Document.Write for the catalog, page-tree root, and
// info dictionary (spec.md §4.7 step 2); callers building their own object
// graphs (fonts, widgets, content streams) call Alloc for everything else.
func (w *Writer) Alloc() Reference {
	ref := Reference{Num: w.nextNum, Gen: 0}
	w.nextNum++
	return ref
}

// Put writes obj under ref. Streams are always written as direct indirect
// objects (spec.md §4.7: "any object that is not itself a stream... may be
// buffered"); every other object is buffered for the next object-stream
// flush when WriterConfig.UseObjectStreams is set, or written directly
// otherwise.
func (w *Writer) Put(ref Reference, obj Object) error {
	if _, isStream := obj.(*Stream); isStream || !w.config.UseObjectStreams {
		return w.PutDirect(ref, obj)
	}
	w.pending = append(w.pending, pendingObject{Num: ref.Num, Obj: obj})
	return nil
}

// PutDirect writes obj as an "N G obj ... endobj" construct at the current
// write position, bypassing object-stream batching even if obj would
// otherwise be eligible. Document.Write uses this for the catalog and info
// dictionaries, which spec.md §4.7 excludes from object streams regardless
// of WriterConfig.
func (w *Writer) PutDirect(ref Reference, obj Object) error {
	if w.err != nil {
		return w.err
	}
	start := w.pos
	if w.Crypt != nil {
		obj = w.encryptObject(ref, obj)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	if err := WriteObject(&buf, obj); err != nil {
		return err
	}
	buf.WriteString("\nendobj\n")
	if err := w.writeRaw(buf.Bytes()); err != nil {
		return err
	}
	w.entries[ref.Num] = xrefEntry{Kind: xrefInUse, Offset: start, Gen: ref.Gen}
	return nil
}

// WriteFlateStream builds a *Stream from data, Flate-compressing it (with
// /Filter /FlateDecode and /Length set to the compressed length) when
// WriterConfig.CompressStreams is set, and writes it under ref. dict's
// existing entries are preserved; a caller that has already chosen its own
// filter should call Put directly with a pre-built *Stream instead.
func (w *Writer) WriteFlateStream(ref Reference, dict *Dict, data []byte) error {
	if dict == nil {
		dict = NewDict()
	} else {
		dict = dict.Clone()
	}
	if w.config.CompressStreams {
		data = encodeFlate(data, predictorParams{})
		dict.Set("Filter", Name("FlateDecode"))
	}
	dict.Set("Length", Integer(len(data)))
	return w.Put(ref, &Stream{Dict: dict, Data: data})
}

// encryptObject applies w.Crypt to every String/Stream reachable from obj,
// the writer-side counterpart to Reader.decryptObject (crypt.go).
func (w *Writer) encryptObject(ref Reference, obj Object) Object {
	switch v := obj.(type) {
	case String:
		out, err := w.Crypt.Transform(ref.Num, ref.Gen, KeyKindString, []byte(v))
		if err != nil {
			return v
		}
		return String(out)
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			out[i] = w.encryptObject(ref, item)
		}
		return out
	case *Dict:
		out := NewDict()
		for _, k := range v.Keys() {
			out.Set(k, w.encryptObject(ref, v.Get(k)))
		}
		return out
	case *Stream:
		newDict, _ := w.encryptObject(ref, v.Dict).(*Dict)
		data, err := w.Crypt.Transform(ref.Num, ref.Gen, KeyKindStream, v.Data)
		if err != nil {
			data = v.Data
		}
		return &Stream{Dict: newDict, Data: data}
	default:
		return obj
	}
}

// flushObjectStreams writes every batch of buffered non-stream objects as a
// PDF 1.5+ ObjStm (spec.md §4.7 step 8), recording a Compressed xref entry
// for each member. Members are sorted by object number first, the
// determinism requirement spec.md §4.7 and §9 both call out ("stable sort
// of object-stream members by object number").
func (w *Writer) flushObjectStreams() error {
	if len(w.pending) == 0 {
		return nil
	}
	pending := w.pending
	w.pending = nil
	sort.Slice(pending, func(i, j int) bool { return pending[i].Num < pending[j].Num })

	for start := 0; start < len(pending); start += maxObjStmSize {
		end := start + maxObjStmSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := w.flushObjStmBatch(pending[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) flushObjStmBatch(batch []pendingObject) error {
	streamRef := w.Alloc()

	var header bytes.Buffer
	var body bytes.Buffer
	offsets := make([]int, len(batch))
	for i, p := range batch {
		offsets[i] = body.Len()
		if err := WriteObject(&body, p.Obj); err != nil {
			return err
		}
		body.WriteString(" ")
	}
	for i, p := range batch {
		fmt.Fprintf(&header, "%d %d ", p.Num, offsets[i])
	}

	data := append(header.Bytes(), body.Bytes()...)
	dict := NewDict()
	dict.Set("Type", Name("ObjStm"))
	dict.Set("N", Integer(len(batch)))
	dict.Set("First", Integer(header.Len()))
	if err := w.WriteFlateStream(streamRef, dict, data); err != nil {
		return err
	}

	for i, p := range batch {
		w.entries[p.Num] = xrefEntry{Kind: xrefCompressed, StreamNum: streamRef.Num, IndexInStream: uint32(i)}
	}
	return nil
}

// Close flushes any buffered object streams and emits the closing
// cross-reference section, trailer, "startxref", and "%%EOF" marker
// (spec.md §4.7 steps 8-9). root and info are the catalog's and info
// dictionary's references; info may be the zero Reference if the document
// has no info dictionary.
func (w *Writer) Close(root, info Reference) error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flushObjectStreams(); err != nil {
		return err
	}

	trailer := NewDict()
	trailer.Set("Root", root)
	if info != (Reference{}) {
		trailer.Set("Info", info)
	}

	var xrefOffset int64
	var err error
	if w.config.UseXRefStreams {
		xrefOffset, err = w.writeXRefStream(trailer)
	} else {
		xrefOffset, err = w.writeClassicalXRef(trailer)
	}
	if err != nil {
		return err
	}

	return w.writeRaw([]byte(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset)))
}

// maxObjectNum returns the highest object number any entry was recorded
// under, used to size the "0 N" classical subsection and the /Size trailer
// entry (spec.md §4.7: "N is max object number +1").
func (w *Writer) maxObjectNum() uint32 {
	var max uint32
	for num := range w.entries {
		if num > max {
			max = num
		}
	}
	return max
}

// writeClassicalXRef emits one "xref\n0 N\n..." subsection with a fixed
// 20-byte record per object number in range, followed by the trailer
// (spec.md §4.7 "Classical xref output"). Free slots (object 0 and any gap
// in the allocated range) are chained in ascending order so the free list
// is syntactically well-formed, even though nothing in this writer's own
// object graph ever reuses a freed number.
func (w *Writer) writeClassicalXRef(trailer *Dict) (int64, error) {
	maxNum := w.maxObjectNum()
	size := maxNum + 1

	var freeNums []uint32
	for num := uint32(0); num <= maxNum; num++ {
		if e, ok := w.entries[num]; !ok || e.Kind == xrefFree {
			freeNums = append(freeNums, num)
		}
	}
	nextFree := make(map[uint32]uint32, len(freeNums))
	for i, num := range freeNums {
		if i+1 < len(freeNums) {
			nextFree[num] = freeNums[i+1]
		} else {
			nextFree[num] = 0
		}
	}

	offset := w.pos
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	for num := uint32(0); num < size; num++ {
		e, ok := w.entries[num]
		switch {
		case !ok || e.Kind == xrefFree:
			gen := uint16(0)
			if ok {
				gen = e.Gen
			}
			if num == 0 {
				gen = 65535
			}
			fmt.Fprintf(&buf, "%010d %05d f \n", nextFree[num], gen)
		case e.Kind == xrefInUse:
			fmt.Fprintf(&buf, "%010d %05d n \n", e.Offset, e.Gen)
		case e.Kind == xrefCompressed:
			// A classical table cannot express a compressed entry; this
			// only happens when UseXRefStreams is false but
			// UseObjectStreams is true, which WriterConfig's documented
			// presets never combine. Fall back to treating it as free
			// rather than emitting a structurally invalid record.
			fmt.Fprintf(&buf, "%010d %05d f \n", 0, 0)
		}
	}
	buf.WriteString("trailer\n")
	trailer.Set("Size", Integer(size))
	if err := WriteObject(&buf, trailer); err != nil {
		return 0, err
	}
	buf.WriteString("\n")
	if err := w.writeRaw(buf.Bytes()); err != nil {
		return 0, err
	}
	return offset, nil
}

// writeXRefStream emits a PDF 1.5+ cross-reference stream object carrying
// every entry (spec.md §4.7 "Xref stream output"): field widths are chosen
// as the minimal byte count that represents the largest value in each
// column, so that, e.g., a small document with every offset under 256
// writes width-1 offset fields rather than defaulting to 4 bytes.
func (w *Writer) writeXRefStream(trailer *Dict) (int64, error) {
	maxNum := w.maxObjectNum()
	size := maxNum + 1
	ref := w.Alloc()
	if ref.Num > maxNum {
		maxNum = ref.Num
		size = maxNum + 1
	}
	// The xref stream object is self-referencing: its own entry's offset
	// is the position it is about to be written at, which is already known
	// (nothing is written between here and the PutDirect call below) even though the stream's bytes themselves encode this value.
	w.entries[ref.Num] = xrefEntry{Kind: xrefInUse, Offset: w.pos, Gen: 0}

	var maxF2, maxF3 int64
	for num := uint32(0); num < size; num++ {
		e, ok := w.entries[num]
		if !ok {
			continue
		}
		switch e.Kind {
		case xrefFree:
			if int64(e.Gen) > maxF3 {
				maxF3 = int64(e.Gen)
			}
		case xrefInUse:
			if e.Offset > maxF2 {
				maxF2 = e.Offset
			}
			if int64(e.Gen) > maxF3 {
				maxF3 = int64(e.Gen)
			}
		case xrefCompressed:
			if int64(e.StreamNum) > maxF2 {
				maxF2 = int64(e.StreamNum)
			}
			if int64(e.IndexInStream) > maxF3 {
				maxF3 = int64(e.IndexInStream)
			}
		}
	}
	w2 := bytesNeeded(maxF2)
	w3 := bytesNeeded(maxF3)
	rowLen := 1 + w2 + w3

	var data bytes.Buffer
	for num := uint32(0); num < size; num++ {
		e, ok := w.entries[num]
		if !ok {
			e = xrefEntry{Kind: xrefFree}
		}
		switch e.Kind {
		case xrefFree:
			data.WriteByte(0)
			writeBE(&data, 0, w2)
			writeBE(&data, int64(e.Gen), w3)
		case xrefInUse:
			data.WriteByte(1)
			writeBE(&data, e.Offset, w2)
			writeBE(&data, int64(e.Gen), w3)
		case xrefCompressed:
			data.WriteByte(2)
			writeBE(&data, int64(e.StreamNum), w2)
			writeBE(&data, int64(e.IndexInStream), w3)
		}
	}

	dict := trailer.Clone()
	dict.Set("Type", Name("XRef"))
	dict.Set("Size", Integer(size))
	dict.Set("W", Array{Integer(1), Integer(w2), Integer(w3)})
	dict.Set("Index", Array{Integer(0), Integer(size)})

	// A cross-reference stream is always Flate-encoded (spec.md §4.7
	// "Xref stream output"), independent of WriterConfig.CompressStreams,
	// which only governs page content and other writer-generated streams.
	compressed := encodeFlate(data.Bytes(), predictorParams{})
	dict.Set("Filter", Name("FlateDecode"))
	dict.Set("Length", Integer(len(compressed)))
	offset := w.entries[ref.Num].Offset
	if err := w.PutDirect(ref, &Stream{Dict: dict, Data: compressed}); err != nil {
		return 0, err
	}
	return offset, nil
}

func bytesNeeded(v int64) int {
	if v <= 0 {
		return 1
	}
	n := 0
	for v > 0 {
		n++
		v >>= 8
	}
	return n
}

func writeBE(buf *bytes.Buffer, v int64, width int) {
	for i := width - 1; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}
