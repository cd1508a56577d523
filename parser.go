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

// parser turns a token stream into Objects. It understands the file-level
// grammar (indirect references "n g R", indirect object definitions
// "n g obj ... endobj", and streams), which a content-stream scanner never
// needs to. The bracket-matching loop below follows the same
// stack-of-stackEntry shape as a content-stream scanner's Next(), adapted to
// this package's Object union.
type parser struct {
	lex     *lexer
	src     io.ReaderAt
	opts    *ParseOptions
	depth   int
	maxDep  int
	warn    func(Warning)
	fileLen int64

	// resolveLength resolves an indirect /Length reference to its integer
	// value. It is supplied by Reader so that resolution never needs to
	// hold a borrow of the stream object currently being parsed (spec.md
	// §9 "borrow-graph issue"); left nil when no reader is available (e.g.
	// while parsing an xref stream, whose /Length is always direct).
	resolveLength func(Reference) (int64, bool)
}

func newParser(src io.ReaderAt, fileLen int64, opts *ParseOptions, warn func(Warning)) *parser {
	return &parser{
		src:     src,
		opts:    opts,
		maxDep:  opts.maxRecursionDepth(),
		warn:    warn,
		fileLen: fileLen,
	}
}

// parseObjectAt parses a single indirect object's value starting at the byte
// offset immediately after "n g obj". It returns the parsed Object (a
// *Stream if a "stream" keyword follows the dictionary) and an end offset.
// For a stream that offset lies just past "endstream"; for any other value
// it is the lexer's position, which can lie past the value by the tokens
// read as lookahead (the "stream" check after a dictionary, the "n g R"
// check after an integer).
func (p *parser) parseObjectAt(offset int64) (Object, int64, error) {
	sr := io.NewSectionReader(p.src, offset, p.fileLen-offset)
	p.lex = newLexer(sr)
	obj, err := p.parseValue()
	if err != nil {
		return nil, 0, err
	}

	// A dictionary immediately followed by "stream" is a stream object.
	if dict, ok := obj.(*Dict); ok {
		save := p.lex.offset()
		tok, err := p.lex.Next()
		if err != nil {
			return nil, 0, err
		}
		if tok.isKeyword("stream") {
			data, end, err := p.readStreamBody(offset, dict)
			if err != nil {
				return nil, 0, err
			}
			return &Stream{Dict: dict, Data: data}, offset + end, nil
		}
		// not a stream; rewind isn't needed since caller only wants the
		// object and the "endobj" keyword is consumed by the caller.
		_ = save
		return dict, offset + p.lex.offset(), nil
	}
	return obj, offset + p.lex.offset(), nil
}

// readStreamBody reads the raw stream bytes following a "stream" keyword.
// The dict's /Length entry is used verbatim when it is a direct Integer;
// when it is an indirect Reference it is resolved through the parser's
// resolveLength callback (supplied by Reader), which looks the length up
// without holding the stream object being parsed -- the "no borrow held
// across the read" rule from spec.md §9.
func (p *parser) readStreamBody(base int64, dict *Dict) ([]byte, int64, error) {
	// "stream" keyword must be followed by CRLF or LF (not bare CR).
	b1, err := p.lex.nextByte()
	if err != nil {
		return nil, 0, err
	}
	dataStart := p.lex.offset()
	if b1 == '\r' {
		b2, err := p.lex.peek()
		if err == nil && b2 == '\n' {
			p.lex.nextByte()
			dataStart = p.lex.offset()
		}
	} else if b1 != '\n' {
		// lenient: some writers omit the EOL entirely.
		dataStart--
	}

	length, ok := p.lengthOf(dict)
	if !ok {
		if !p.opts.lenientStreams() {
			return nil, 0, &InvalidFormatError{Message: "stream has no usable /Length"}
		}
		length = 0
	}

	end := base + dataStart + length
	buf := make([]byte, length)
	n, _ := io.ReadFull(io.NewSectionReader(p.src, base+dataStart, length), buf)
	buf = buf[:n]

	// Verify "endstream" appears where expected; if not and lenient streams
	// are allowed, scan forward for the real boundary.
	tail := make([]byte, 32)
	tn, _ := p.src.ReadAt(tail, end)
	tail = tail[:tn]
	if !looksLikeEndstream(tail) {
		if !p.opts.lenientStreams() {
			return nil, 0, &SyntaxError{Pos: end, Message: "missing 'endstream' at declared /Length"}
		}
		fixed, newEnd, found := scanForEndstream(p.src, base+dataStart, p.opts.maxRecoveryBytes())
		if !found {
			return nil, 0, &SyntaxError{Pos: end, Message: "could not locate 'endstream'"}
		}
		if p.warn != nil {
			p.warn(Warning{Pos: base + dataStart, Message: "stream /Length was wrong; recovered by scanning for endstream"})
		}
		buf = fixed
		end = newEnd
	}

	// consume "endstream" and the following "endobj" via a fresh lexer
	// positioned after the recovered data.
	tailLex := newLexer(io.NewSectionReader(p.src, end, p.fileLen-end))
	tok, err := tailLex.Next()
	if err != nil {
		return nil, 0, err
	}
	if !tok.isKeyword("endstream") {
		return nil, 0, &UnexpectedTokenError{Pos: end, Expected: "endstream", Found: string(tok.Str)}
	}
	return buf, end + tailLex.offset() - base, nil
}

func lengthOf(dict *Dict) (int64, bool) {
	switch v := dict.Get("Length").(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	default:
		return 0, false
	}
}

// lengthOf additionally follows an indirect /Length through p.resolveLength,
// when one was supplied (see the parser.resolveLength field doc comment).
func (p *parser) lengthOf(dict *Dict) (int64, bool) {
	if n, ok := lengthOf(dict); ok {
		return n, ok
	}
	if ref, ok := dict.Get("Length").(Reference); ok && p.resolveLength != nil {
		return p.resolveLength(ref)
	}
	return 0, false
}

func looksLikeEndstream(tail []byte) bool {
	t := bytes.TrimLeft(tail, "\r\n \t")
	return bytes.HasPrefix(t, []byte("endstream"))
}

// scanForEndstream looks for the literal bytes "endstream" within maxScan
// bytes of start, trimming the trailing EOL that precedes it. Grounded on
// spec.md §4.2's stream-recovery rule and the byte-pattern scan used by
// original_source's parser/reader.rs recovery pass (see DESIGN.md).
func scanForEndstream(src io.ReaderAt, start int64, maxScan int) ([]byte, int64, bool) {
	buf := make([]byte, maxScan)
	n, _ := src.ReadAt(buf, start)
	buf = buf[:n]
	idx := bytes.Index(buf, []byte("endstream"))
	if idx < 0 {
		return nil, 0, false
	}
	data := buf[:idx]
	data = bytes.TrimSuffix(data, []byte("\r\n"))
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	return append([]byte(nil), data...), start + int64(idx), true
}

// parseValue parses one complete Object value (scalar, array, dict, or
// indirect reference) from p.lex, recursively descending into compound
// objects via a bracket stack rather than native recursion.
func (p *parser) parseValue() (Object, error) {
	type frame struct {
		isDict bool
		items  []Object
	}
	var stack []*frame
	var pending []Token // lookahead for "n g R" / "n g obj" disambiguation

	emit := func(obj Object) (Object, bool) {
		if len(stack) == 0 {
			return obj, true
		}
		top := stack[len(stack)-1]
		top.items = append(top.items, obj)
		return nil, false
	}

	for {
		tok, err := p.nextSignificant(&pending)
		if err != nil {
			return nil, err
		}

		var obj Object
		switch tok.Kind {
		case TokEOF:
			return nil, &SyntaxError{Pos: tok.Pos, Message: "unexpected end of file"}
		case TokInteger:
			if ref, ok, err := p.tryReference(tok, &pending); err != nil {
				return nil, err
			} else if ok {
				obj = ref
			} else {
				obj = Integer(tok.Int)
			}
		case TokReal:
			obj = Real(tok.Real)
		case TokString:
			obj = String(tok.Str)
		case TokName:
			obj = Name(tok.Str)
		case TokArrayOpen:
			if p.depth++; p.depth > p.maxDep {
				return nil, ErrStackOverflow
			}
			stack = append(stack, &frame{})
			continue
		case TokArrayClose:
			if len(stack) == 0 || stack[len(stack)-1].isDict {
				return nil, &SyntaxError{Pos: tok.Pos, Message: "unexpected ']'"}
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.depth--
			obj = Array(top.items)
		case TokDictOpen:
			if p.depth++; p.depth > p.maxDep {
				return nil, ErrStackOverflow
			}
			stack = append(stack, &frame{isDict: true})
			continue
		case TokDictClose:
			if len(stack) == 0 || !stack[len(stack)-1].isDict {
				return nil, &SyntaxError{Pos: tok.Pos, Message: "unexpected '>>'"}
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.depth--
			if len(top.items)%2 != 0 {
				if !p.opts.lenientSyntax() {
					return nil, &SyntaxError{Pos: tok.Pos, Message: "dict has an odd number of entries"}
				}
				top.items = top.items[:len(top.items)-1]
			}
			d := NewDict()
			for i := 0; i < len(top.items); i += 2 {
				key, ok := top.items[i].(Name)
				if !ok {
					if !p.opts.lenientSyntax() {
						return nil, &SyntaxError{Pos: tok.Pos, Message: "dict key is not a name"}
					}
					continue
				}
				val := top.items[i+1]
				if _, isNull := val.(Null); isNull {
					continue
				}
				if d.Get(key) != nil {
					if !p.opts.lenientSyntax() {
						return nil, &SyntaxError{Pos: tok.Pos, Message: "duplicate dictionary key /" + string(key)}
					}
					if p.warn != nil && p.opts.CollectWarnings {
						p.warn(Warning{Pos: tok.Pos, Message: "duplicate dictionary key /" + string(key)})
					}
				}
				d.Set(key, val)
			}
			obj = d
		case TokKeyword:
			switch string(tok.Str) {
			case "true":
				obj = Boolean(true)
			case "false":
				obj = Boolean(false)
			case "null":
				obj = Null{}
			default:
				return nil, &UnexpectedTokenError{Pos: tok.Pos, Expected: "object", Found: string(tok.Str)}
			}
		}

		if result, done := emit(obj); done {
			return result, nil
		}
	}
}

// nextSignificant returns the next token, consuming from pending first.
func (p *parser) nextSignificant(pending *[]Token) (Token, error) {
	if len(*pending) > 0 {
		t := (*pending)[0]
		*pending = (*pending)[1:]
		return t, nil
	}
	return p.lex.Next()
}

// tryReference looks ahead to see whether an integer token begins an
// indirect reference "n g R". Since the lexer has no backtrack buffer beyond
// a couple of bytes, any tokens consumed during the lookahead that turn out
// not to be part of a reference are pushed onto pending for reprocessing.
func (p *parser) tryReference(numTok Token, pending *[]Token) (Object, bool, error) {
	gen, err := p.nextSignificant(pending)
	if err != nil {
		return nil, false, err
	}
	if gen.Kind != TokInteger {
		*pending = append([]Token{gen}, *pending...)
		return nil, false, nil
	}
	r, err := p.nextSignificant(pending)
	if err != nil {
		return nil, false, err
	}
	if r.isKeyword("R") {
		return Reference{Num: uint32(numTok.Int), Gen: uint16(gen.Int)}, true, nil
	}
	*pending = append([]Token{gen, r}, *pending...)
	return nil, false, nil
}
