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
	"strings"
	"testing"
)

func writerConfigs() []WriterConfig {
	return []WriterConfig{
		LegacyWriterConfig(),
		ModernWriterConfig(),
		DefaultWriterConfig(),
	}
}

// buildMinimalDocument writes a catalog and a page tree with one page (no
// info dictionary) through a raw Writer, exercising Alloc/Put/PutDirect/Close
// without going through Document.Write.
func buildMinimalDocument(t *testing.T, config WriterConfig) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, config)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	catalogRef := w.Alloc()
	pagesRef := w.Alloc()
	pageRef := w.Alloc()
	contentRef := w.Alloc()

	if err := w.WriteFlateStream(contentRef, NewDict(), []byte("q 1 0 0 1 0 0 cm Q")); err != nil {
		t.Fatalf("WriteFlateStream: %v", err)
	}

	pageDict := NewDict()
	pageDict.Set("Type", Name("Page"))
	pageDict.Set("Parent", pagesRef)
	pageDict.Set("MediaBox", Array{Integer(0), Integer(0), Integer(612), Integer(792)})
	pageDict.Set("Contents", contentRef)
	pageDict.Set("Resources", NewDict())
	if err := w.Put(pageRef, pageDict); err != nil {
		t.Fatalf("Put page: %v", err)
	}

	pagesDict := NewDict()
	pagesDict.Set("Type", Name("Pages"))
	pagesDict.Set("Kids", Array{pageRef})
	pagesDict.Set("Count", Integer(1))
	if err := w.Put(pagesRef, pagesDict); err != nil {
		t.Fatalf("Put pages: %v", err)
	}

	catalog := NewDict()
	catalog.Set("Type", Name("Catalog"))
	catalog.Set("Pages", pagesRef)
	if err := w.PutDirect(catalogRef, catalog); err != nil {
		t.Fatalf("PutDirect catalog: %v", err)
	}

	if err := w.Close(catalogRef, Reference{}); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestWriterRoundTrip(t *testing.T) {
	for _, config := range writerConfigs() {
		data := buildMinimalDocument(t, config)

		r, err := Open(bytes.NewReader(data), int64(len(data)), nil)
		if err != nil {
			t.Fatalf("config %+v: Open: %v", config, err)
		}

		root, ok := r.Trailer().Get("Root").(Reference)
		if !ok {
			t.Fatalf("config %+v: trailer has no /Root reference", config)
		}
		catalog, err := r.GetDict(root)
		if err != nil {
			t.Fatalf("config %+v: GetDict(root): %v", config, err)
		}
		if catalog.Get("Type") != Name("Catalog") {
			t.Fatalf("config %+v: catalog /Type = %v, want Catalog", config, catalog.Get("Type"))
		}

		pages, err := r.GetDict(catalog.Get("Pages"))
		if err != nil {
			t.Fatalf("config %+v: GetDict(pages): %v", config, err)
		}
		kids, err := r.GetArray(pages.Get("Kids"))
		if err != nil {
			t.Fatalf("config %+v: GetArray(kids): %v", config, err)
		}
		if len(kids) != 1 {
			t.Fatalf("config %+v: got %d kids, want 1", config, len(kids))
		}

		page, err := r.GetDict(kids[0])
		if err != nil {
			t.Fatalf("config %+v: GetDict(page): %v", config, err)
		}
		content, err := r.GetStreamData(page.Get("Contents"))
		if err != nil {
			t.Fatalf("config %+v: GetStreamData: %v", config, err)
		}
		if string(content) != "q 1 0 0 1 0 0 cm Q" {
			t.Errorf("config %+v: content = %q", config, content)
		}
	}
}

func TestWriterDeterminism(t *testing.T) {
	for _, config := range writerConfigs() {
		first := buildMinimalDocument(t, config)
		second := buildMinimalDocument(t, config)
		if !bytes.Equal(first, second) {
			t.Errorf("config %+v: two writes of the same document produced different bytes", config)
		}
	}
}

func TestWriterHeaderAndTrailer(t *testing.T) {
	data := buildMinimalDocument(t, DefaultWriterConfig())
	if !bytes.HasPrefix(data, []byte("%PDF-1.7\n")) {
		t.Errorf("missing or wrong header: %q", data[:16])
	}
	if !bytes.Contains(data, []byte("startxref")) {
		t.Error("missing startxref")
	}
	if !strings.HasSuffix(string(data), "%%EOF\n") {
		t.Error("missing %%EOF trailer marker")
	}
}

func TestWriterObjectStreamBatching(t *testing.T) {
	config := ModernWriterConfig()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, config)
	if err != nil {
		t.Fatal(err)
	}

	// More than maxObjStmSize non-stream objects forces at least two
	// object-stream batches.
	const n = maxObjStmSize + 10
	refs := make([]Reference, n)
	for i := 0; i < n; i++ {
		refs[i] = w.Alloc()
	}
	for i, ref := range refs {
		d := NewDict()
		d.Set("Index", Integer(i))
		if err := w.Put(ref, d); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	catalogRef := w.Alloc()
	catalog := NewDict()
	catalog.Set("Type", Name("Catalog"))
	if err := w.PutDirect(catalogRef, catalog); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(catalogRef, Reference{}); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	r, err := Open(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i, ref := range refs {
		d, err := r.GetDict(ref)
		if err != nil {
			t.Fatalf("GetDict(%v): %v", ref, err)
		}
		if got, err := r.GetInt(d.Get("Index")); err != nil || got != int64(i) {
			t.Errorf("object %d: Index = %v (err %v), want %d", i, got, err, i)
		}
	}
}

func TestWriterEncryption(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, LegacyWriterConfig())
	if err != nil {
		t.Fatal(err)
	}
	w.Crypt = rot13Adapter{}

	ref := w.Alloc()
	d := NewDict()
	d.Set("Msg", String("hello"))
	if err := w.PutDirect(ref, d); err != nil {
		t.Fatal(err)
	}
	catalogRef := w.Alloc()
	catalog := NewDict()
	catalog.Set("Type", Name("Catalog"))
	if err := w.PutDirect(catalogRef, catalog); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(catalogRef, Reference{}); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	r, err := Open(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Crypt = rot13Adapter{}
	got, err := r.GetDict(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got.Get("Msg") != String("hello") {
		t.Errorf("decrypted Msg = %v, want hello", got.Get("Msg"))
	}
}

// rot13Adapter is a trivial symmetric Adapter used only to exercise the
// writer's and reader's encryption hooks in tests; it carries no key
// material and is not a real security handler.
type rot13Adapter struct{}

func (rot13Adapter) Transform(num uint32, gen uint16, kind KeyKind, data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = rot13Byte(b)
	}
	return out, nil
}

func (rot13Adapter) Unlock(password []byte) bool { return true }

func rot13Byte(b byte) byte {
	switch {
	case b >= 'a' && b <= 'z':
		return 'a' + (b-'a'+13)%26
	case b >= 'A' && b <= 'Z':
		return 'A' + (b-'A'+13)%26
	default:
		return b
	}
}
