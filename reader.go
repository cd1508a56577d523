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
	"io"
)

// maxResolveDepth bounds how many indirect references Reader.Resolve will
// chase before giving up (spec.md §4.4: "refuses nested depth >200").
const maxResolveDepth = 200

// Getter is the minimal interface the rest of this module needs to resolve
// indirect references. *Reader implements it; tests sometimes supply a
// fake.
type Getter interface {
	Get(ref Reference) (Object, error)
}

// Reader resolves indirect references against a document's merged
// cross-reference table (C4, spec.md §4.4), caching decoded objects and
// transparently threading lookups through their containing object stream
// when the xref entry is Compressed. Not safe for concurrent use (spec.md
// §5): a Reader belongs to one document-reading operation.
type Reader struct {
	src     io.ReaderAt
	fileLen int64
	xref    *xrefTable
	opts    *ParseOptions
	Crypt   Adapter // nil means no encryption (spec.md §4.9 / C9)

	warnings []Warning
	cache    map[Reference]Object
	objStms  map[uint32]*parsedObjStream
}

// parsedObjStream is a lazily-decoded object stream (spec.md §4.4): /N
// pairs of (object number, relative offset) starting at byte /First,
// followed by the concatenated decoded object bodies.
type parsedObjStream struct {
	nums    []uint32
	offsets []int64
	data    []byte
}

// Open parses the cross-reference structure of a PDF document (classical
// table, cross-reference stream, /Prev chain, or, in lenient mode, the
// byte-scanning recovery pass) and returns a Reader ready to resolve
// indirect references. It does not parse the document's full object graph;
// objects are resolved lazily through Get.
func Open(src io.ReaderAt, size int64, opts *ParseOptions) (*Reader, error) {
	if size <= 0 {
		return nil, errEmptyFile
	}
	if opts == nil {
		opts = &ParseOptions{}
	}

	r := &Reader{
		src:     src,
		fileLen: size,
		opts:    opts,
		cache:   make(map[Reference]Object),
		objStms: make(map[uint32]*parsedObjStream),
	}

	if !r.hasHeader() {
		if !opts.lenientSyntax() {
			return nil, &InvalidHeaderError{}
		}
		r.warn(Warning{Message: "missing %PDF- header signature"})
	}

	table, err := r.loadXRef()
	if err != nil {
		return nil, err
	}
	r.xref = table
	return r, nil
}

func (r *Reader) warn(w Warning) {
	if r.opts.CollectWarnings {
		r.warnings = append(r.warnings, w)
	}
}

// Warnings returns the non-fatal issues accumulated while opening and
// reading the document, when ParseOptions.CollectWarnings is set.
func (r *Reader) Warnings() []Warning { return r.warnings }

// Trailer returns the newest revision's trailer dictionary as found in the
// file (or the synthesized one after recovery). Entries of older revisions'
// trailers are not merged into it.
func (r *Reader) Trailer() *Dict { return r.xref.trailer }

func (r *Reader) hasHeader() bool {
	const probeLen = 1024
	n := probeLen
	if int64(n) > r.fileLen {
		n = int(r.fileLen)
	}
	buf := make([]byte, n)
	m, _ := r.src.ReadAt(buf, 0)
	return bytes.Contains(buf[:m], []byte("%PDF-"))
}

// loadXRef locates and parses the cross-reference structure: it probes for
// a /Linearized first object (whose primary xref sits near the file head,
// spec.md §4.3), falls back to the standard "last startxref" search, and
// falls back further to the byte-scanning recovery pass in lenient mode.
func (r *Reader) loadXRef() (*xrefTable, error) {
	if off, ok := r.probeLinearized(); ok {
		if table, err := walkXRefChain(r.src, r.fileLen, off, r.opts, r.warn); err == nil && validTable(table) {
			return table, nil
		}
	}

	if start, ok := findStartXRef(r.src, r.fileLen); ok {
		table, err := walkXRefChain(r.src, r.fileLen, start, r.opts, r.warn)
		if err == nil && validTable(table) {
			if sizeErr := r.validateSize(table); sizeErr == nil {
				return table, nil
			} else if !r.opts.lenientSyntax() {
				return nil, sizeErr
			}
			r.warn(Warning{Message: "trailer /Size too small for highest object number; recovering"})
		} else if !r.opts.lenientSyntax() {
			if err != nil {
				return nil, err
			}
			return nil, &InvalidTrailerError{}
		}
	} else if !r.opts.lenientSyntax() {
		return nil, ErrInvalidXRef
	}

	if !r.opts.lenientSyntax() {
		return nil, ErrInvalidXRef
	}
	return recoverXRef(r.src, r.fileLen, r.opts, r.warn)
}

func validTable(t *xrefTable) bool {
	return t != nil && t.trailer != nil && t.trailer.Get("Root") != nil
}

// validateSize checks the invariant from spec.md §4.3: a trailer /Size
// smaller than the highest referenced object number plus one is fatal in
// strict mode and a trigger for recovery in lenient mode.
func (r *Reader) validateSize(t *xrefTable) error {
	size, ok := AsFloat64(t.trailer.Get("Size"))
	if !ok {
		return &InvalidTrailerError{Message: "missing /Size"}
	}
	var maxNum uint32
	for num := range t.entries {
		if num > maxNum {
			maxNum = num
		}
	}
	if int64(size) < int64(maxNum)+1 {
		return &InvalidTrailerError{Message: "/Size is smaller than the highest object number"}
	}
	return nil
}

// probeLinearized checks whether the first indirect object in the file is a
// linearization parameter dictionary and, if so, returns the byte offset
// named by the first "startxref" keyword in the file's first 2048 bytes,
// which for a linearized PDF sits shortly after that first object and names
// the primary (page-1-first) xref section. The check is that "/Linearized"
// appears anywhere in those same 2048 bytes.
func (r *Reader) probeLinearized() (int64, bool) {
	const probeLen = 2048
	n := probeLen
	if int64(n) > r.fileLen {
		n = int(r.fileLen)
	}
	buf := make([]byte, n)
	m, _ := r.src.ReadAt(buf, 0)
	buf = buf[:m]
	if !bytes.Contains(buf, []byte("/Linearized")) {
		return 0, false
	}
	idx := bytes.Index(buf, []byte("startxref"))
	if idx < 0 {
		return 0, false
	}
	rest := bytes.TrimLeft(buf[idx+len("startxref"):], "\r\n \t")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	off, ok := parseDecimal(rest[:end])
	return off, ok
}

func parseDecimal(b []byte) (int64, bool) {
	var v int64
	if len(b) == 0 {
		return 0, false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}

// Get resolves an indirect reference to its object (spec.md §4.4). Results
// are cached; repeated lookups of the same reference return the same
// cached value.
func (r *Reader) Get(ref Reference) (Object, error) {
	if cached, ok := r.cache[ref]; ok {
		return cached, nil
	}

	entry, ok := r.xref.entries[ref.Num]
	if !ok {
		if r.opts.lenientSyntax() {
			return Null{}, nil
		}
		return nil, &InvalidReferenceError{Num: ref.Num, Gen: ref.Gen}
	}

	var obj Object
	var err error
	switch entry.Kind {
	case xrefFree:
		obj = Null{}
	case xrefInUse:
		if entry.Gen != ref.Gen && !r.opts.lenientSyntax() {
			return nil, &InvalidReferenceError{Num: ref.Num, Gen: ref.Gen}
		}
		obj, err = r.readIndirectAt(entry.Offset)
	case xrefCompressed:
		if ref.Gen != 0 && !r.opts.lenientSyntax() {
			return nil, &InvalidReferenceError{Num: ref.Num, Gen: ref.Gen}
		}
		obj, err = r.getCompressed(entry.StreamNum, entry.IndexInStream)
	}
	if err != nil {
		return nil, err
	}

	if r.Crypt != nil {
		obj = r.decryptObject(ref, obj)
	}

	r.cache[ref] = obj
	return obj, nil
}

// readIndirectAt parses the "n g obj ... endobj" construct starting at
// offset and returns its value.
func (r *Reader) readIndirectAt(offset int64) (Object, error) {
	lex := newLexer(io.NewSectionReader(r.src, offset, r.fileLen-offset))
	if _, err := lex.Next(); err != nil { // object number
		return nil, err
	}
	if _, err := lex.Next(); err != nil { // generation
		return nil, err
	}
	objTok, err := lex.Next()
	if err != nil {
		return nil, err
	}
	if !objTok.isKeyword("obj") {
		return nil, &UnexpectedTokenError{Pos: offset, Expected: "obj", Found: string(objTok.Str)}
	}

	p := newParser(r.src, r.fileLen, r.opts, r.warn)
	p.resolveLength = r.resolveStreamLength
	p.lex = lex
	valueOffset := offset + lex.offset()
	obj, _, err := p.parseObjectAt(valueOffset)
	return obj, err
}

// resolveStreamLength implements the narrow interface spec.md §9 calls for:
// it clones the integer /Length value out of the xref/cache without holding
// any borrow across the stream body read that triggered it. Go has no
// borrow checker, but the shape still matters operationally: this call may
// recurse into Get for an unrelated object while the outer stream's bytes
// are only referenced by an offset, never by a live slice into a shared
// buffer.
func (r *Reader) resolveStreamLength(ref Reference) (int64, bool) {
	obj, err := r.Get(ref)
	if err != nil {
		return 0, false
	}
	switch v := obj.(type) {
	case Integer:
		if v < 0 {
			return 0, false
		}
		return int64(v), true
	case Real:
		if v < 0 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// getCompressed extracts object index from the object stream streamNum
// (spec.md §4.4): /N declares the pair count, /First the data offset; the
// header is N pairs of (object number, relative offset).
func (r *Reader) getCompressed(streamNum, index uint32) (Object, error) {
	os, err := r.loadObjStream(streamNum)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(os.offsets) {
		return nil, &InvalidReferenceError{Num: streamNum}
	}
	off := os.offsets[index]
	lex := newLexer(bytes.NewReader(os.data[off:]))
	p := &parser{src: bytes.NewReader(os.data), opts: r.opts, maxDep: r.opts.maxRecursionDepth(), fileLen: int64(len(os.data)), lex: lex}
	return p.parseValue()
}

func (r *Reader) loadObjStream(streamNum uint32) (*parsedObjStream, error) {
	if os, ok := r.objStms[streamNum]; ok {
		return os, nil
	}

	obj, err := r.Get(Reference{Num: streamNum})
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{Err: errInvalidXRef, Pos: 0}
	}
	decoded, err := DecodeStream(stm)
	if err != nil {
		return nil, err
	}

	n, _ := AsFloat64(stm.Dict.Get("N"))
	first, _ := AsFloat64(stm.Dict.Get("First"))
	count := int(n)

	header := decoded
	if int(first) <= len(decoded) {
		header = decoded[:int(first)]
	}
	lex := newLexer(bytes.NewReader(header))
	nums := make([]uint32, 0, count)
	offsets := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		numTok, err := lex.Next()
		if err != nil || numTok.Kind != TokInteger {
			break
		}
		offTok, err := lex.Next()
		if err != nil || offTok.Kind != TokInteger {
			break
		}
		nums = append(nums, uint32(numTok.Int))
		offsets = append(offsets, int64(first)+offTok.Int)
	}

	os := &parsedObjStream{nums: nums, offsets: offsets, data: decoded}
	r.objStms[streamNum] = os
	return os, nil
}

// Resolve follows a chain of indirect references until it reaches a
// non-Reference value (or Null, for a dangling/free target), guarding
// against reference cycles with maxResolveDepth.
func (r *Reader) Resolve(obj Object) (Object, error) {
	depth := 0
	for {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		depth++
		if depth > maxResolveDepth {
			return nil, &MalformedFileError{Err: ErrStackOverflow}
		}
		next, err := r.Get(ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
}

// GetDict resolves obj and type-asserts it to *Dict (stream dictionaries
// also satisfy a caller wanting "the dict"; use GetStream for that).
func (r *Reader) GetDict(obj Object) (*Dict, error) {
	v, err := r.Resolve(obj)
	if err != nil || v == nil {
		return nil, err
	}
	switch x := v.(type) {
	case *Dict:
		return x, nil
	case *Stream:
		return x.Dict, nil
	default:
		return nil, &MalformedFileError{Err: errWrongType("Dict", v)}
	}
}

// GetArray resolves obj and type-asserts it to Array.
func (r *Reader) GetArray(obj Object) (Array, error) {
	v, err := r.Resolve(obj)
	if err != nil || v == nil {
		return nil, err
	}
	arr, ok := v.(Array)
	if !ok {
		return nil, &MalformedFileError{Err: errWrongType("Array", v)}
	}
	return arr, nil
}

// GetName resolves obj and type-asserts it to Name.
func (r *Reader) GetName(obj Object) (Name, error) {
	v, err := r.Resolve(obj)
	if err != nil || v == nil {
		return "", err
	}
	n, ok := v.(Name)
	if !ok {
		return "", &MalformedFileError{Err: errWrongType("Name", v)}
	}
	return n, nil
}

// GetInt resolves obj and returns it as an int64, truncating a Real toward
// zero.
func (r *Reader) GetInt(obj Object) (int64, error) {
	v, err := r.Resolve(obj)
	if err != nil || v == nil {
		return 0, err
	}
	switch x := v.(type) {
	case Integer:
		return int64(x), nil
	case Real:
		return int64(x), nil
	default:
		return 0, &MalformedFileError{Err: errWrongType("Integer", v)}
	}
}

// GetStream resolves obj and type-asserts it to *Stream.
func (r *Reader) GetStream(obj Object) (*Stream, error) {
	v, err := r.Resolve(obj)
	if err != nil || v == nil {
		return nil, err
	}
	s, ok := v.(*Stream)
	if !ok {
		return nil, &MalformedFileError{Err: errWrongType("Stream", v)}
	}
	return s, nil
}

// GetStreamData resolves obj to a *Stream, runs it through DecodeStream and
// (when Reader.Crypt is set) the object's stream-decryption transform.
func (r *Reader) GetStreamData(obj Object) ([]byte, error) {
	s, err := r.GetStream(obj)
	if err != nil || s == nil {
		return nil, err
	}
	return DecodeStream(s)
}

func errWrongType(want string, got Object) error {
	return &UnexpectedTokenError{Expected: want, Found: typeName(got)}
}

func typeName(obj Object) string {
	switch obj.(type) {
	case Null:
		return "Null"
	case Boolean:
		return "Boolean"
	case Integer:
		return "Integer"
	case Real:
		return "Real"
	case String:
		return "String"
	case Name:
		return "Name"
	case Array:
		return "Array"
	case *Dict:
		return "Dict"
	case *Stream:
		return "Stream"
	case Reference:
		return "Reference"
	default:
		return "unknown"
	}
}
