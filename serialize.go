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
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteObject serializes obj in PDF file syntax (spec.md §4.2, reversed):
// the byte-accurate counterpart to the object parser. It is shared by the
// document writer (C7, for indirect object bodies) and the content-stream
// emitter (C5, for dictionary/array/name/string operands, which use the
// same literal syntax as file objects). Reference is written as "n g R";
// Stream writes its dictionary followed by "stream\n<data>\nendstream"
// (callers that need the enclosing "N G obj ... endobj" wrapper add it
// themselves, since only the writer knows the object's number/generation).
func WriteObject(w io.Writer, obj Object) error {
	switch v := obj.(type) {
	case nil, Null:
		_, err := io.WriteString(w, "null")
		return err
	case Boolean:
		if v {
			_, err := io.WriteString(w, "true")
			return err
		}
		_, err := io.WriteString(w, "false")
		return err
	case Integer:
		_, err := io.WriteString(w, strconv.FormatInt(int64(v), 10))
		return err
	case Real:
		s := FormatReal(float64(v))
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		_, err := io.WriteString(w, s)
		return err
	case Name:
		return writeName(w, v)
	case String:
		return writeString(w, v)
	case Array:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, item := range v {
			if i > 0 {
				if _, err := io.WriteString(w, " "); err != nil {
					return err
				}
			}
			if err := WriteObject(w, item); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err
	case *Dict:
		return writeDict(w, v)
	case *Stream:
		if err := writeDict(w, v.Dict); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\nstream\n"); err != nil {
			return err
		}
		if _, err := w.Write(v.Data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\nendstream")
		return err
	case Reference:
		_, err := io.WriteString(w, v.String())
		return err
	default:
		return fmt.Errorf("pdfcore: cannot serialize object of type %T", obj)
	}
}

func writeDict(w io.Writer, d *Dict) error {
	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, key := range d.Keys() {
		if _, err := io.WriteString(w, "/"); err != nil {
			return err
		}
		if err := writeNameBody(w, key); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := WriteObject(w, d.Get(key)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">>")
	return err
}

func writeName(w io.Writer, n Name) error {
	if _, err := io.WriteString(w, "/"); err != nil {
		return err
	}
	return writeNameBody(w, n)
}

// writeNameBody writes a name's bytes after the leading "/", escaping any
// byte outside the printable, non-delimiter range as "#HH" (spec.md §4.1).
func writeNameBody(w io.Writer, n Name) error {
	const hexDigits = "0123456789ABCDEF"
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b <= 32 || b >= 127 || b == '#' || classOf(b) == clsDelimiter {
			if _, err := w.Write([]byte{'#', hexDigits[b>>4], hexDigits[b&0xf]}); err != nil {
				return err
			}
			continue
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
	}
	return nil
}

// writeString emits s as a literal "(...)" string when every byte is safely
// printable, falling back to a hex "<...>" string otherwise (spec.md §4.5
// emitter contract: "hex MUST be used when bytes are not safely
// printable").
func writeString(w io.Writer, s String) error {
	if isSafeLiteral(s) {
		if _, err := io.WriteString(w, "("); err != nil {
			return err
		}
		for _, b := range s {
			switch b {
			case '(', ')', '\\':
				if _, err := w.Write([]byte{'\\', b}); err != nil {
					return err
				}
			case '\n':
				if _, err := io.WriteString(w, `\n`); err != nil {
					return err
				}
			case '\r':
				if _, err := io.WriteString(w, `\r`); err != nil {
					return err
				}
			default:
				if _, err := w.Write([]byte{b}); err != nil {
					return err
				}
			}
		}
		_, err := io.WriteString(w, ")")
		return err
	}

	const hexDigits = "0123456789ABCDEF"
	if _, err := io.WriteString(w, "<"); err != nil {
		return err
	}
	for _, b := range s {
		if _, err := w.Write([]byte{hexDigits[b>>4], hexDigits[b&0xf]}); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">")
	return err
}

// isSafeLiteral reports whether every byte of s is printable ASCII or one
// of the whitespace bytes the literal-string escapes above handle, so that
// a literal "(...)" encoding round-trips without surprising a downstream
// consumer that does not decode octal escapes for high bytes.
func isSafeLiteral(s String) bool {
	for _, b := range s {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 32 || b > 126 {
			return false
		}
	}
	return true
}
