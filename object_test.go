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
	"testing"
)

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("Z", Integer(1))
	d.Set("A", Integer(2))
	d.Set("M", Integer(3))
	want := []Name{"Z", "A", "M"}
	if got := d.Keys(); !namesEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	// Overwriting an existing key does not move it.
	d.Set("A", Integer(99))
	if got := d.Keys(); !namesEqual(got, want) {
		t.Errorf("after overwrite: Keys() = %v, want %v", got, want)
	}
	if d.Get("A") != Integer(99) {
		t.Errorf("Get(A) = %v, want 99", d.Get("A"))
	}
}

func TestDictSetNilDeletes(t *testing.T) {
	d := NewDict()
	d.Set("K", Integer(1))
	d.Set("K", nil)
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
	if d.Get("K") != nil {
		t.Errorf("Get(K) = %v, want nil", d.Get("K"))
	}
}

func TestDictClone(t *testing.T) {
	d := NewDict()
	d.Set("A", Integer(1))
	clone := d.Clone()
	clone.Set("B", Integer(2))
	if d.Len() != 1 {
		t.Errorf("original mutated by clone: Len() = %d", d.Len())
	}
	if clone.Len() != 2 {
		t.Errorf("clone.Len() = %d, want 2", clone.Len())
	}
}

func TestDictEqualIsOrderIndependent(t *testing.T) {
	a := NewDict()
	a.Set("X", Integer(1))
	a.Set("Y", Integer(2))
	b := NewDict()
	b.Set("Y", Integer(2))
	b.Set("X", Integer(1))
	if !a.Equal(b) {
		t.Error("dicts with the same entries in different insertion order should be Equal")
	}
}

func namesEqual(a, b []Name) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFormatRealTrimsTrailingZeros(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.0, "1"},
		{1.5, "1.5"},
		{0.0, "0"},
		{-0.25, "-0.25"},
		{72.0, "72"},
		{-72.0, "-72"},
		{0.333333, "0.333333"},
	}
	for _, tt := range tests {
		if got := FormatReal(tt.in); got != tt.want {
			t.Errorf("FormatReal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReferenceString(t *testing.T) {
	ref := Reference{Num: 12, Gen: 3}
	if got, want := ref.String(), "12 3 R"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestReferenceIsFreeListHead(t *testing.T) {
	if !(Reference{Num: 0, Gen: 65535}).IsFreeListHead() {
		t.Error("object 0 generation 65535 should be the free-list head")
	}
	if (Reference{Num: 1, Gen: 0}).IsFreeListHead() {
		t.Error("object 1 generation 0 should not be the free-list head")
	}
}

// roundTrip serializes obj with WriteObject and parses it back with the
// internal object parser, the byte-accurate inverse relationship spec.md §9
// requires between the writer and the lexical/parsing layer.
func roundTrip(t *testing.T, obj Object) Object {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteObject(&buf, obj); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	data := buf.Bytes()

	p := newParser(bytes.NewReader(data), int64(len(data)), nil, nil)
	got, _, err := p.parseObjectAt(0)
	if err != nil {
		t.Fatalf("parseObjectAt(%q): %v", data, err)
	}
	return got
}

func TestObjectRoundTrip(t *testing.T) {
	dict := NewDict()
	dict.Set("Type", Name("Page"))
	dict.Set("Count", Integer(3))
	dict.Set("Rotate", Real(90))
	dict.Set("Kids", Array{Reference{Num: 4, Gen: 0}, Reference{Num: 5, Gen: 0}})

	cases := []Object{
		Null{},
		Boolean(true),
		Boolean(false),
		Integer(-42),
		Real(3.25),
		Name("F1"),
		Name("A Name With Spaces"),
		String("hello world"),
		String([]byte{0x00, 0x01, 0xFF}), // forces hex-string encoding
		Array{Integer(1), Integer(2), Integer(3)},
		dict,
		Reference{Num: 7, Gen: 2},
	}

	for _, want := range cases {
		got := roundTrip(t, want)
		if !objectEqual(want, got) {
			t.Errorf("round trip of %#v produced %#v", want, got)
		}
	}
}

func TestStreamRoundTrip(t *testing.T) {
	dict := NewDict()
	dict.Set("Length", Integer(11))
	stream := &Stream{Dict: dict, Data: []byte("hello world")}

	var buf bytes.Buffer
	buf.WriteString("1 0 obj\n")
	if err := WriteObject(&buf, stream); err != nil {
		t.Fatal(err)
	}
	buf.WriteString("\nendobj\n")

	file := buildTrivialFile(buf.Bytes())
	r, err := Open(bytes.NewReader(file), int64(len(file)), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := r.GetStreamData(Reference{Num: 1, Gen: 0})
	if err != nil {
		t.Fatalf("GetStreamData: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("GetStreamData = %q", got)
	}
}

// buildTrivialFile wraps a single "1 0 obj ... endobj" body (which must
// declare object number 1) in a minimal classical-xref PDF file, for tests
// that want to exercise Open/Get without going through Writer.
func buildTrivialFile(objBody []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offset := buf.Len()
	buf.Write(objBody)
	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 2\n")
	buf.WriteString("0000000000 65535 f \n")
	buf.WriteString(padOffset(offset) + " 00000 n \n")
	buf.WriteString("trailer\n<< /Size 2 /Root 1 0 R >>\n")
	buf.WriteString("startxref\n")
	buf.WriteString(itoaForTest(xrefOffset))
	buf.WriteString("\n%%EOF\n")
	return buf.Bytes()
}

func padOffset(n int) string {
	s := itoaForTest(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}

func itoaForTest(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
