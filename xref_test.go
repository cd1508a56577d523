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

func TestFindStartXRef(t *testing.T) {
	data := []byte("%PDF-1.7\n...\nxref\n0 1\n0000000000 65535 f \ntrailer\n<< >>\nstartxref\n1234\n%%EOF\n")
	off, ok := findStartXRef(bytes.NewReader(data), int64(len(data)))
	if !ok {
		t.Fatal("findStartXRef: not found")
	}
	if off != 1234 {
		t.Errorf("off = %d, want 1234", off)
	}
}

func TestFindStartXRefUsesLastOccurrence(t *testing.T) {
	// An updated (incrementally saved) file can contain an earlier
	// "startxref" left over inside an object's content; only the final one
	// at the end of the file is authoritative.
	data := []byte("%PDF-1.7\nstartxref\n1\n%%EOF\nstartxref\n9999\n%%EOF\n")
	off, ok := findStartXRef(bytes.NewReader(data), int64(len(data)))
	if !ok {
		t.Fatal("findStartXRef: not found")
	}
	if off != 9999 {
		t.Errorf("off = %d, want 9999", off)
	}
}

func TestFindStartXRefMissing(t *testing.T) {
	data := []byte("%PDF-1.7\nno xref keyword here\n")
	if _, ok := findStartXRef(bytes.NewReader(data), int64(len(data))); ok {
		t.Error("expected ok=false when 'startxref' is absent")
	}
}

func TestParseClassicalXRefAt(t *testing.T) {
	objBody := []byte("1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	file := buildTrivialFile(objBody)

	xrefOffset := bytes.Index(file, []byte("xref\n"))
	if xrefOffset < 0 {
		t.Fatal("buildTrivialFile did not contain an 'xref' section")
	}

	table := newXRefTable()
	trailer, prev, xrefStm, err := parseClassicalXRefAt(bytes.NewReader(file), int64(len(file)), int64(xrefOffset), table)
	if err != nil {
		t.Fatalf("parseClassicalXRefAt: %v", err)
	}
	if prev != 0 || xrefStm != 0 {
		t.Errorf("prev = %d, xrefStm = %d, want 0, 0", prev, xrefStm)
	}
	if trailer.Get("Root") != (Reference{Num: 1, Gen: 0}) {
		t.Errorf("trailer /Root = %v", trailer.Get("Root"))
	}
	entry, ok := table.entries[1]
	if !ok || entry.Kind != xrefInUse {
		t.Fatalf("entries[1] = %+v, ok=%v", entry, ok)
	}
	if _, ok := table.entries[0]; !ok {
		t.Error("the free-list head (object 0) should also be recorded")
	}
}

func TestXRefTableSetIfAbsentKeepsNewest(t *testing.T) {
	table := newXRefTable()
	table.setIfAbsent(3, xrefEntry{Kind: xrefInUse, Offset: 100})
	table.setIfAbsent(3, xrefEntry{Kind: xrefInUse, Offset: 200})
	if got := table.entries[3].Offset; got != 100 {
		t.Errorf("offset = %d, want 100 (first write wins, mirroring newest-revision-first traversal)", got)
	}
}

func TestWalkXRefChainFollowsPrev(t *testing.T) {
	// Build an original revision, then a second revision whose trailer
	// /Prev points back at the first, redefining object 1 and adding
	// object 2.
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")

	obj1Off := buf.Len()
	buf.WriteString("1 0 obj\n<< /V 1 >>\nendobj\n")

	xref1Off := buf.Len()
	buf.WriteString("xref\n0 2\n")
	buf.WriteString("0000000000 65535 f \n")
	buf.WriteString(padOffset(obj1Off) + " 00000 n \n")
	buf.WriteString("trailer\n<< /Size 2 /Root 1 0 R >>\n")
	buf.WriteString("startxref\n" + itoaForTest(xref1Off) + "\n%%EOF\n")

	obj1bOff := buf.Len()
	buf.WriteString("1 0 obj\n<< /V 2 >>\nendobj\n")
	obj2Off := buf.Len()
	buf.WriteString("2 0 obj\n<< /V 3 >>\nendobj\n")

	xref2Off := buf.Len()
	buf.WriteString("xref\n0 3\n")
	buf.WriteString("0000000000 65535 f \n")
	buf.WriteString(padOffset(obj1bOff) + " 00000 n \n")
	buf.WriteString(padOffset(obj2Off) + " 00000 n \n")
	buf.WriteString("trailer\n<< /Size 3 /Root 1 0 R /Prev " + itoaForTest(xref1Off) + " >>\n")
	buf.WriteString("startxref\n" + itoaForTest(xref2Off) + "\n%%EOF\n")

	data := buf.Bytes()
	r, err := Open(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	d1, err := r.GetDict(Reference{Num: 1, Gen: 0})
	if err != nil {
		t.Fatalf("GetDict(1): %v", err)
	}
	if d1.Get("V") != Integer(2) {
		t.Errorf("object 1's /V = %v, want 2 (the newer revision's value)", d1.Get("V"))
	}
	d2, err := r.GetDict(Reference{Num: 2, Gen: 0})
	if err != nil {
		t.Fatalf("GetDict(2): %v", err)
	}
	if d2.Get("V") != Integer(3) {
		t.Errorf("object 2's /V = %v, want 3", d2.Get("V"))
	}
}

func TestRecoverXRefScansForObjects(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")
	buf.WriteString("this xref table is garbage and cannot be parsed\n")
	buf.WriteString("startxref\n0\n%%EOF\n")

	data := buf.Bytes()
	opts := &ParseOptions{LenientSyntax: true, CollectWarnings: true}
	r, err := Open(bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		t.Fatalf("Open with recovery: %v", err)
	}
	root, ok := r.Trailer().Get("Root").(Reference)
	if !ok {
		t.Fatal("recovered trailer has no /Root")
	}
	catalog, err := r.GetDict(root)
	if err != nil {
		t.Fatalf("GetDict(root): %v", err)
	}
	if catalog.Get("Type") != Name("Catalog") {
		t.Errorf("recovered root /Type = %v, want Catalog", catalog.Get("Type"))
	}
	if len(r.Warnings()) == 0 {
		t.Error("expected at least one warning recorded for the recovery pass")
	}
}

func TestRecoverXRefFailsStrictly(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.WriteString("garbage, no objects, no valid xref\n")
	data := buf.Bytes()
	if _, err := Open(bytes.NewReader(data), int64(len(data)), nil); err == nil {
		t.Error("expected an error in strict mode for a file with no usable xref")
	}
}
