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
	"math"
	"strconv"
)

// TokenKind classifies a lexical token from the physical PDF byte stream
// (spec.md §4.1/C1). This extends the content-stream token alphabet with the
// file-structure keywords (obj/endobj/stream/.../R) that a bare content
// stream never contains.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokInteger
	TokReal
	TokString
	TokName
	TokArrayOpen
	TokArrayClose
	TokDictOpen
	TokDictClose
	TokKeyword // obj, endobj, stream, endstream, xref, trailer, startxref, R, true, false, null, and content-stream operators
)

// Token is one lexical unit, tagged with the byte offset it started at so
// parse errors can report a useful position.
type Token struct {
	Kind    TokenKind
	Pos     int64
	Int     int64
	Real    float64
	Str     []byte // TokString payload (decoded) or TokName/TokKeyword text
}

// lexer tokenizes a byte stream one token at a time. It is the shared
// low-level scanner for both the file-structure parser (parser.go) and the
// content-stream parser (content/lexer.go uses the same byte-classification
// table and escaping rules, reimplemented there to stay decoupled from this
// package). Structurally this mirrors a content-stream scanner: a small
// peek-ahead buffer plus a 512-byte refill buffer, generalized to also
// recognize file-structure keywords.
type lexer struct {
	src       io.Reader
	buf       []byte
	pos, used int
	ahead     []byte
	crSeen    bool
	off       int64 // absolute byte offset of buf[0]
	err       error
}

func newLexer(r io.Reader) *lexer {
	return &lexer{
		src: r,
		buf: make([]byte, 512),
	}
}

// offset returns the absolute byte position of the next unread byte.
func (l *lexer) offset() int64 {
	return l.off + int64(l.pos) - int64(len(l.ahead))
}

// Next returns the next token, or a Token{Kind: TokEOF} at end of input.
func (l *lexer) Next() (Token, error) {
	if err := l.skipWhiteSpace(); err != nil {
		if err == io.EOF {
			return Token{Kind: TokEOF, Pos: l.offset()}, nil
		}
		return Token{}, err
	}
	start := l.offset()
	b, err := l.peek()
	if err != nil {
		return Token{}, err
	}
	switch b {
	case '(':
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokString, Pos: start, Str: s}, nil
	case '<':
		if string(l.peekN(2)) == "<<" {
			l.nextByte()
			l.nextByte()
			return Token{Kind: TokDictOpen, Pos: start}, nil
		}
		s, err := l.readHexString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokString, Pos: start, Str: s}, nil
	case '>':
		if string(l.peekN(2)) == ">>" {
			l.nextByte()
			l.nextByte()
			return Token{Kind: TokDictClose, Pos: start}, nil
		}
		return Token{}, &SyntaxError{Pos: start, Message: "unexpected '>'"}
	case '[':
		l.nextByte()
		return Token{Kind: TokArrayOpen, Pos: start}, nil
	case ']':
		l.nextByte()
		return Token{Kind: TokArrayClose, Pos: start}, nil
	case '/':
		l.nextByte()
		n, err := l.readName()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokName, Pos: start, Str: n}, nil
	case '{', '}':
		// PostScript-calculator braces appear inside Type 4 function streams;
		// the content-stream/object layer treats them as opaque keywords.
		l.nextByte()
		return Token{Kind: TokKeyword, Pos: start, Str: []byte{b}}, nil
	default:
		l.nextByte()
		word := []byte{b}
		if classOf(b) == clsRegular {
			for {
				c, err := l.peek()
				if err == io.EOF {
					break
				} else if err != nil {
					return Token{}, err
				}
				if classOf(c) != clsRegular {
					break
				}
				l.nextByte()
				word = append(word, c)
			}
		}
		if tok, ok := parseNumberToken(word, start); ok {
			return tok, nil
		}
		return Token{Kind: TokKeyword, Pos: start, Str: word}, nil
	}
}

func parseNumberToken(word []byte, pos int64) (Token, bool) {
	if n, err := strconv.ParseInt(string(word), 10, 64); err == nil {
		return Token{Kind: TokInteger, Pos: pos, Int: n}, true
	}
	isSimple := len(word) > 0
	for i, c := range word {
		if i == 0 && (c == '+' || c == '-') {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			isSimple = false
			break
		}
	}
	if isSimple {
		if f, err := strconv.ParseFloat(string(word), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return Token{Kind: TokReal, Pos: pos, Real: f}, true
		}
	}
	return Token{}, false
}

func (l *lexer) readString() ([]byte, error) {
	if err := l.skipRequiredByte('('); err != nil {
		return nil, err
	}
	var res []byte
	depth := 1
	ignoreLF := false
	for {
		b, err := l.nextByte()
		if err != nil {
			return nil, err
		}
		if ignoreLF && b == '\n' {
			continue
		}
		ignoreLF = false
		switch b {
		case '(':
			depth++
			res = append(res, b)
		case ')':
			depth--
			if depth == 0 {
				return res, nil
			}
			res = append(res, b)
		case '\\':
			b, err = l.nextByte()
			if err != nil {
				return nil, err
			}
			switch b {
			case 'n':
				res = append(res, '\n')
			case 'r':
				res = append(res, '\r')
			case 't':
				res = append(res, '\t')
			case 'b':
				res = append(res, '\b')
			case 'f':
				res = append(res, '\f')
			case '(', ')', '\\':
				res = append(res, b)
			case '\n':
				// line continuation, drop
			case '\r':
				ignoreLF = true
			case '0', '1', '2', '3', '4', '5', '6', '7':
				oct := b - '0'
				for i := 0; i < 2; i++ {
					c, err := l.peek()
					if err == io.EOF {
						break
					} else if err != nil {
						return nil, err
					}
					if c < '0' || c > '7' {
						break
					}
					l.nextByte()
					oct = oct*8 + (c - '0')
				}
				res = append(res, oct)
			default:
				res = append(res, b)
			}
		default:
			res = append(res, b)
		}
	}
}

func (l *lexer) readHexString() ([]byte, error) {
	if err := l.skipRequiredByte('<'); err != nil {
		return nil, err
	}
	var res []byte
	first := true
	var hi byte
	for {
		b, err := l.nextByte()
		if err != nil {
			return nil, err
		}
		var lo byte
		switch {
		case b == '>':
			if !first {
				res = append(res, hi)
			}
			return res, nil
		case b <= 32:
			continue
		case b >= '0' && b <= '9':
			lo = b - '0'
		case b >= 'A' && b <= 'F':
			lo = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			lo = b - 'a' + 10
		default:
			return nil, &SyntaxError{Pos: l.offset(), Message: "invalid hex digit " + strconv.QuoteRune(rune(b))}
		}
		if first {
			hi = lo << 4
			first = false
		} else {
			res = append(res, hi|lo)
			first = true
		}
	}
}

func (l *lexer) readName() ([]byte, error) {
	var name []byte
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if b == '#' {
			l.nextByte()
			hi, err := l.hexDigit()
			if err != nil {
				return nil, err
			}
			lo, err := l.hexDigit()
			if err != nil {
				return nil, err
			}
			name = append(name, hi<<4|lo)
			continue
		}
		if classOf(b) != clsRegular {
			break
		}
		l.nextByte()
		name = append(name, b)
	}
	return name, nil
}

func (l *lexer) hexDigit() (byte, error) {
	b, err := l.nextByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	default:
		return 0, &SyntaxError{Pos: l.offset(), Message: "invalid hex digit in name"}
	}
}

func (l *lexer) skipWhiteSpace() error {
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if b <= 32 {
			l.nextByte()
		} else if b == '%' {
			l.skipComment()
		} else {
			return nil
		}
	}
}

func (l *lexer) skipComment() {
	l.skipRequiredByte('%')
	for {
		b, err := l.peek()
		if err != nil || b == '\n' || b == '\r' {
			return
		}
		l.nextByte()
	}
}

func (l *lexer) skipRequiredByte(expected byte) error {
	b, err := l.nextByte()
	if err != nil {
		return err
	}
	if b != expected {
		return &SyntaxError{Pos: l.offset(), Message: "expected '" + string(expected) + "'"}
	}
	return nil
}

func (l *lexer) peek() (byte, error) {
	if len(l.ahead) == 0 {
		b, err := l.readByte()
		if err != nil {
			return 0, err
		}
		l.ahead = append(l.ahead, b)
	}
	return l.ahead[0], nil
}

func (l *lexer) peekN(n int) []byte {
	for len(l.ahead) < n {
		b, err := l.readByte()
		if err != nil {
			return l.ahead
		}
		l.ahead = append(l.ahead, b)
	}
	return l.ahead[:n]
}

func (l *lexer) nextByte() (byte, error) {
	var b byte
	if len(l.ahead) > 0 {
		b = l.ahead[0]
		copy(l.ahead, l.ahead[1:])
		l.ahead = l.ahead[:len(l.ahead)-1]
	} else {
		var err error
		b, err = l.readByte()
		if err != nil {
			return 0, err
		}
	}
	if l.crSeen && b == '\n' {
		// already counted as part of the CR
	}
	l.crSeen = b == '\r'
	return b, nil
}

func (l *lexer) readByte() (byte, error) {
	for l.pos >= l.used {
		if err := l.refill(); err != nil {
			return 0, err
		}
	}
	b := l.buf[l.pos]
	l.pos++
	return b, nil
}

func (l *lexer) refill() error {
	if l.err != nil {
		return l.err
	}
	l.off += int64(l.pos)
	l.used = copy(l.buf, l.buf[l.pos:l.used])
	l.pos = 0
	n, err := l.src.Read(l.buf[l.used:])
	l.used += n
	if err != nil {
		l.err = err
		if n > 0 {
			err = nil
		}
	}
	return err
}

// seekReset discards buffered state and repositions the lexer to read from r
// starting at absolute offset pos. Used by the xref/recovery layer, which
// jumps around a io.ReaderAt-backed source rather than streaming forward
// once.
func (l *lexer) seekReset(r io.Reader, pos int64) {
	l.src = r
	l.pos = 0
	l.used = 0
	l.ahead = nil
	l.crSeen = false
	l.err = nil
	l.off = pos
}

type byteClass byte

const (
	clsRegular byteClass = iota
	clsSpace
	clsDelimiter
)

// classOf classifies a byte per the PDF "regular/whitespace/delimiter"
// taxonomy (ISO 32000-1 §7.2). Table layout mirrors a content-stream
// scanner's `class` array.
func classOf(b byte) byteClass {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return clsSpace
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return clsDelimiter
	default:
		return clsRegular
	}
}

// isKeyword reports whether tok is the file-structure keyword s.
func (t Token) isKeyword(s string) bool {
	return t.Kind == TokKeyword && bytes.Equal(t.Str, []byte(s))
}
