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

package content

import (
	"bytes"
	"fmt"
	"io"

	pdfcore "pdfkit.dev/core"
)

// Emit writes ops in PDF postfix notation (spec.md §4.5): operands, then
// the operator mnemonic, then a newline. It is the Parser's inverse:
// Parse(Emit(ops)) reproduces ops up to whitespace (spec.md §8's
// content-stream round-trip property).
func Emit(w io.Writer, ops []Operation) error {
	for _, op := range ops {
		if err := emitOne(w, op); err != nil {
			return err
		}
	}
	return nil
}

// Bytes is a convenience wrapper around Emit that returns the serialized
// content stream as a byte slice.
func Bytes(ops []Operation) ([]byte, error) {
	var buf bytes.Buffer
	if err := Emit(&buf, ops); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emitOne(w io.Writer, op Operation) error {
	switch v := op.(type) {
	case Generic:
		for _, arg := range v.Args {
			if err := pdfcore.WriteObject(w, arg); err != nil {
				return err
			}
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, v.Op+"\n"); err != nil {
			return err
		}
		return nil
	case ShowTextArray:
		return emitShowTextArray(w, v)
	case InlineImage:
		return emitInlineImage(w, v)
	default:
		return fmt.Errorf("content: cannot emit operation of type %T", op)
	}
}

func emitShowTextArray(w io.Writer, v ShowTextArray) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, item := range v.Items {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if item.IsText {
			if err := pdfcore.WriteObject(w, item.Text); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, pdfcore.FormatReal(item.Spacing)); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "] TJ\n")
	return err
}

// collapseKey maps a canonical inline-image key/value back to its
// abbreviated form on emission, the inverse of expandKey/expandName, so a
// round trip through Parse/Emit does not grow the stream unnecessarily.
var collapseKey = invert(keyAbbreviations)
var collapseName = invert(nameAbbreviations)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func emitInlineImage(w io.Writer, v InlineImage) error {
	if _, err := io.WriteString(w, "BI\n"); err != nil {
		return err
	}
	if v.Params != nil {
		for _, key := range v.Params.Keys() {
			abbrev, ok := collapseKey[string(key)]
			if !ok {
				abbrev = string(key)
			}
			if _, err := io.WriteString(w, "/"+abbrev+" "); err != nil {
				return err
			}
			val := v.Params.Get(key)
			if key == "Filter" {
				val = collapseFilterValue(val)
			}
			if key == "ColorSpace" {
				if n, ok := val.(pdfcore.Name); ok {
					if short, ok := collapseName[string(n)]; ok {
						val = pdfcore.Name(short)
					}
				}
			}
			if err := pdfcore.WriteObject(w, val); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	if _, err := io.WriteString(w, "ID "); err != nil {
		return err
	}
	if _, err := w.Write(v.Data); err != nil {
		return err
	}
	_, err := io.WriteString(w, " EI\n")
	return err
}

func collapseFilterValue(v pdfcore.Object) pdfcore.Object {
	switch x := v.(type) {
	case pdfcore.Name:
		if short, ok := collapseName[string(x)]; ok {
			return pdfcore.Name(short)
		}
		return x
	case pdfcore.Array:
		out := make(pdfcore.Array, len(x))
		for i, item := range x {
			if n, ok := item.(pdfcore.Name); ok {
				if short, ok := collapseName[string(n)]; ok {
					out[i] = pdfcore.Name(short)
					continue
				}
			}
			out[i] = item
		}
		return out
	default:
		return v
	}
}
