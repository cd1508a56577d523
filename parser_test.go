// pdfkit.dev/core - a PDF object model, content stream, form, and calculation
// engine
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
	"testing"
)

func parseValueOf(t *testing.T, src string, opts *ParseOptions) Object {
	t.Helper()
	p := newParser(bytes.NewReader([]byte(src)), int64(len(src)), opts, nil)
	p.lex = newLexer(bytes.NewReader([]byte(src)))
	obj, err := p.parseValue()
	if err != nil {
		t.Fatalf("parseValue(%q): %v", src, err)
	}
	return obj
}

func parseValueErr(src string, opts *ParseOptions) error {
	p := newParser(bytes.NewReader([]byte(src)), int64(len(src)), opts, nil)
	p.lex = newLexer(bytes.NewReader([]byte(src)))
	_, err := p.parseValue()
	return err
}

func TestParseValueScalars(t *testing.T) {
	cases := []struct {
		src  string
		want Object
	}{
		{"true", Boolean(true)},
		{"false", Boolean(false)},
		{"null", Null{}},
		{"42", Integer(42)},
		{"-7", Integer(-7)},
		{"3.14", Real(3.14)},
		{"(hi)", String("hi")},
		{"/Name", Name("Name")},
	}
	for _, tt := range cases {
		got := parseValueOf(t, tt.src, nil)
		if !objectEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.src, got, tt.want)
		}
	}
}

func TestParseValueArray(t *testing.T) {
	got := parseValueOf(t, "[1 2 3]", nil)
	want := Array{Integer(1), Integer(2), Integer(3)}
	if !objectEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestParseValueNestedArray(t *testing.T) {
	got := parseValueOf(t, "[1 [2 3] 4]", nil)
	want := Array{Integer(1), Array{Integer(2), Integer(3)}, Integer(4)}
	if !objectEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestParseValueDict(t *testing.T) {
	got := parseValueOf(t, "<< /Type /Page /Count 3 >>", nil)
	dict, ok := got.(*Dict)
	if !ok {
		t.Fatalf("got %T, want *Dict", got)
	}
	if dict.Get("Type") != Name("Page") || dict.Get("Count") != Integer(3) {
		t.Errorf("dict = %v", dict)
	}
}

func TestParseValueIndirectReference(t *testing.T) {
	got := parseValueOf(t, "[5 0 R]", nil)
	want := Array{Reference{Num: 5, Gen: 0}}
	if !objectEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestParseValueTwoIntegersNotAReference(t *testing.T) {
	// "5 6" with no trailing "R" are two plain integers, not a reference -
	// the lookahead must push both back for reprocessing.
	got := parseValueOf(t, "[5 6]", nil)
	want := Array{Integer(5), Integer(6)}
	if !objectEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestParseValueNullEntryIsDropped(t *testing.T) {
	got := parseValueOf(t, "<< /A 1 /B null /C 3 >>", nil)
	dict := got.(*Dict)
	if dict.Get("B") != nil {
		t.Errorf("Get(B) = %v, want nil (null entries are dropped)", dict.Get("B"))
	}
	if dict.Len() != 2 {
		t.Errorf("Len() = %d, want 2", dict.Len())
	}
}

func TestParseValueDuplicateKeyLastWins(t *testing.T) {
	got := parseValueOf(t, "<< /A 1 /A 2 >>", &ParseOptions{LenientSyntax: true, CollectWarnings: true})
	dict := got.(*Dict)
	if dict.Get("A") != Integer(2) {
		t.Errorf("Get(A) = %v, want 2", dict.Get("A"))
	}
}

func TestParseValueOddDictEntriesStrictErrors(t *testing.T) {
	if err := parseValueErr("<< /A 1 /B >>", nil); err == nil {
		t.Error("expected an error for an odd number of dict entries in strict mode")
	}
}

func TestParseValueOddDictEntriesLenientDropsLast(t *testing.T) {
	got := parseValueOf(t, "<< /A 1 /B >>", &ParseOptions{LenientSyntax: true})
	dict := got.(*Dict)
	if dict.Len() != 1 || dict.Get("A") != Integer(1) {
		t.Errorf("dict = %v, want {A: 1}", dict)
	}
}

func TestParseValueDictKeyNotNameStrictErrors(t *testing.T) {
	if err := parseValueErr("<< 1 2 >>", nil); err == nil {
		t.Error("expected an error when a dict key is not a name")
	}
}

func TestParseValueUnexpectedCloseErrors(t *testing.T) {
	if err := parseValueErr("]", nil); err == nil {
		t.Error("expected an error for a stray ']'")
	}
	if err := parseValueErr(">>", nil); err == nil {
		t.Error("expected an error for a stray '>>'")
	}
}

func TestParseValueUnexpectedEOFErrors(t *testing.T) {
	if err := parseValueErr("[1 2", nil); err == nil {
		t.Error("expected an error for an unterminated array")
	}
}

func TestParseValueUnknownKeywordErrors(t *testing.T) {
	if err := parseValueErr("bogus", nil); err == nil {
		t.Error("expected an error for an unrecognized bare keyword")
	}
}

func TestParseValueDeepNestingHitsRecursionLimit(t *testing.T) {
	var buf bytes.Buffer
	depth := 10
	for i := 0; i < depth; i++ {
		buf.WriteByte('[')
	}
	buf.WriteByte('1')
	for i := 0; i < depth; i++ {
		buf.WriteByte(']')
	}
	if err := parseValueErr(buf.String(), &ParseOptions{MaxRecursionDepth: 3}); err != ErrStackOverflow {
		t.Errorf("err = %v, want ErrStackOverflow", err)
	}
}

func TestParseObjectAtPlainObject(t *testing.T) {
	src := "<< /Type /Catalog /Pages 2 0 R >>\nendobj\n"
	p := newParser(bytes.NewReader([]byte(src)), int64(len(src)), nil, nil)
	obj, _, err := p.parseObjectAt(0)
	if err != nil {
		t.Fatalf("parseObjectAt: %v", err)
	}
	dict, ok := obj.(*Dict)
	if !ok {
		t.Fatalf("got %T, want *Dict", obj)
	}
	if dict.Get("Type") != Name("Catalog") {
		t.Errorf("Type = %v", dict.Get("Type"))
	}
	if dict.Get("Pages") != (Reference{Num: 2, Gen: 0}) {
		t.Errorf("Pages = %v", dict.Get("Pages"))
	}
}

func TestParseObjectAtStream(t *testing.T) {
	body := "hello world"
	src := "<< /Length " + itoaForTest(len(body)) + " >>\nstream\n" + body + "\nendstream\nendobj\n"
	p := newParser(bytes.NewReader([]byte(src)), int64(len(src)), nil, nil)
	obj, _, err := p.parseObjectAt(0)
	if err != nil {
		t.Fatalf("parseObjectAt: %v", err)
	}
	stream, ok := obj.(*Stream)
	if !ok {
		t.Fatalf("got %T, want *Stream", obj)
	}
	if string(stream.Data) != body {
		t.Errorf("Data = %q, want %q", stream.Data, body)
	}
}

func TestScanForEndstreamRecoversWrongLength(t *testing.T) {
	body := "hello world"
	// Declare a /Length far larger than the actual data, forcing the lenient
	// scan-forward path in readStreamBody to find the real "endstream".
	src := "<< /Length 9999 >>\nstream\n" + body + "\nendstream\nendobj\n"
	p := newParser(bytes.NewReader([]byte(src)), int64(len(src)), &ParseOptions{LenientStreams: true}, nil)
	obj, _, err := p.parseObjectAt(0)
	if err != nil {
		t.Fatalf("parseObjectAt: %v", err)
	}
	stream := obj.(*Stream)
	if string(stream.Data) != body {
		t.Errorf("Data = %q, want %q", stream.Data, body)
	}
}

func TestScanForEndstreamWrongLengthStrictErrors(t *testing.T) {
	src := "<< /Length 9999 >>\nstream\nhello world\nendstream\nendobj\n"
	p := newParser(bytes.NewReader([]byte(src)), int64(len(src)), nil, nil)
	if _, _, err := p.parseObjectAt(0); err == nil {
		t.Error("expected an error in strict mode when /Length doesn't match the data")
	}
}
