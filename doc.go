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
	"io"
	"time"

	"golang.org/x/text/language"
)

// Page is one page of a Document (spec.md §3 "PDF document (in-memory)").
// Content is the already-serialized content stream body (built with the
// content package's Emit/Bytes and stored here as plain bytes, since this
// package cannot import content without an import cycle: content already
// depends on pdfcore for its Object/Dict/WriteObject vocabulary).
type Page struct {
	// MediaBox is the page boundary in default user space units,
	// [llx, lly, urx, ury].
	MediaBox [4]float64

	// Content is the page's content stream body, in source order.
	Content []byte

	// Resources is the page's /Resources dictionary (fonts, XObjects,
	// ExtGState, color spaces). Values that are References are assumed to
	// already have been written via Writer.Put by the caller (e.g. a
	// font.CIDFontGraph's Type0Ref, after font.BuildCIDFontType2 and a
	// round of w.Put calls); Document.Write does not allocate objects on
	// a page's behalf beyond the content stream itself.
	Resources *Dict

	// Annotations holds widget (or other) annotation dictionaries attached
	// to this page; each is written as its own indirect object and
	// referenced from the page's /Annots array.
	Annotations []*Dict
}

// Document is an in-memory PDF document ready for serialization (spec.md
// §3). It owns its pages and metadata exclusively; Write borrows them
// immutably (spec.md §5 "Ownership summary").
type Document struct {
	Pages []*Page

	Title, Author, Subject, Creator, Producer string
	CreationDate, ModDate                     time.Time
	Lang                                      language.Tag

	// AcroForm, Outlines, and StructTreeRoot are caller-built object
	// graphs (spec.md §1: page-layout/outline/structure-tree helpers are
	// out of scope for this core; the core only needs to allocate a
	// reference for each and wire it into the catalog). Nil means the
	// corresponding catalog entry is omitted.
	AcroForm       *Dict
	Outlines       *Dict
	StructTreeRoot *Dict
	MarkInfoTagged bool

	// MetadataXML, when non-nil, is embedded as an XMP metadata stream and
	// referenced from the catalog's /Metadata entry.
	MetadataXML []byte
}

// Write serializes doc through a fresh Writer (C7, spec.md §4.7): it
// pre-allocates object numbers 1-3 for the catalog, page-tree root, and
// info dictionary, then emits pages, form-field widgets, the catalog, and
// the info dictionary, in that order, before closing the Writer (xref +
// trailer). Two calls with the same Document and WriterConfig produce
// byte-identical output (spec.md §8 "Writer determinism"): object
// allocation order and dictionary key insertion order are both fixed by
// this function's control flow.
func (doc *Document) Write(dst io.Writer, config WriterConfig) error {
	w, err := NewWriter(dst, config)
	if err != nil {
		return err
	}

	catalogRef := w.Alloc()
	pagesRef := w.Alloc()
	infoRef := w.Alloc()

	pageRefs := make([]Reference, len(doc.Pages))
	for i := range doc.Pages {
		pageRefs[i] = w.Alloc()
	}

	for i, page := range doc.Pages {
		if err := doc.writePage(w, pageRefs[i], pagesRef, page); err != nil {
			return err
		}
	}

	kids := make(Array, len(pageRefs))
	for i, r := range pageRefs {
		kids[i] = r
	}
	pagesDict := NewDict()
	pagesDict.Set("Type", Name("Pages"))
	pagesDict.Set("Kids", kids)
	pagesDict.Set("Count", Integer(len(pageRefs)))
	if err := w.Put(pagesRef, pagesDict); err != nil {
		return err
	}

	catalog := NewDict()
	catalog.Set("Type", Name("Catalog"))
	catalog.Set("Pages", pagesRef)
	if doc.AcroForm != nil {
		formRef := w.Alloc()
		if err := w.Put(formRef, doc.AcroForm); err != nil {
			return err
		}
		catalog.Set("AcroForm", formRef)
	}
	if doc.Outlines != nil {
		outlineRef := w.Alloc()
		if err := w.Put(outlineRef, doc.Outlines); err != nil {
			return err
		}
		catalog.Set("Outlines", outlineRef)
	}
	if doc.StructTreeRoot != nil {
		structRef := w.Alloc()
		if err := w.Put(structRef, doc.StructTreeRoot); err != nil {
			return err
		}
		catalog.Set("StructTreeRoot", structRef)
		markInfo := NewDict()
		markInfo.Set("Marked", Boolean(true))
		catalog.Set("MarkInfo", markInfo)
	} else if doc.MarkInfoTagged {
		markInfo := NewDict()
		markInfo.Set("Marked", Boolean(true))
		catalog.Set("MarkInfo", markInfo)
	}
	if (doc.Lang != language.Tag{}) {
		catalog.Set("Lang", String(doc.Lang.String()))
	}
	if doc.MetadataXML != nil {
		metaRef := w.Alloc()
		metaDict := NewDict()
		metaDict.Set("Type", Name("Metadata"))
		metaDict.Set("Subtype", Name("XML"))
		metaDict.Set("Length", Integer(len(doc.MetadataXML)))
		if err := w.Put(metaRef, &Stream{Dict: metaDict, Data: doc.MetadataXML}); err != nil {
			return err
		}
		catalog.Set("Metadata", metaRef)
	}
	if err := w.PutDirect(catalogRef, catalog); err != nil {
		return err
	}

	info := NewDict()
	if doc.Title != "" {
		info.Set("Title", String(doc.Title))
	}
	if doc.Author != "" {
		info.Set("Author", String(doc.Author))
	}
	if doc.Subject != "" {
		info.Set("Subject", String(doc.Subject))
	}
	if doc.Creator != "" {
		info.Set("Creator", String(doc.Creator))
	}
	if doc.Producer != "" {
		info.Set("Producer", String(doc.Producer))
	}
	if !doc.CreationDate.IsZero() {
		info.Set("CreationDate", String(FormatPDFDate(doc.CreationDate)))
	}
	if !doc.ModDate.IsZero() {
		info.Set("ModDate", String(FormatPDFDate(doc.ModDate)))
	}
	if err := w.PutDirect(infoRef, info); err != nil {
		return err
	}

	return w.Close(catalogRef, infoRef)
}

func (doc *Document) writePage(w *Writer, ref, parent Reference, page *Page) error {
	contentRef := w.Alloc()
	if err := w.WriteFlateStream(contentRef, NewDict(), page.Content); err != nil {
		return err
	}

	pageDict := NewDict()
	pageDict.Set("Type", Name("Page"))
	pageDict.Set("Parent", parent)
	pageDict.Set("MediaBox", Array{
		Real(page.MediaBox[0]), Real(page.MediaBox[1]),
		Real(page.MediaBox[2]), Real(page.MediaBox[3]),
	})
	pageDict.Set("Contents", contentRef)
	if page.Resources != nil {
		pageDict.Set("Resources", page.Resources)
	} else {
		pageDict.Set("Resources", NewDict())
	}

	if len(page.Annotations) > 0 {
		annots := make(Array, len(page.Annotations))
		for i, a := range page.Annotations {
			aRef := w.Alloc()
			a = a.Clone()
			a.Set("P", ref)
			if err := w.Put(aRef, a); err != nil {
				return err
			}
			annots[i] = aRef
		}
		pageDict.Set("Annots", annots)
	}

	return w.Put(ref, pageDict)
}

// FormatPDFDate renders t in the PDF date-string format ISO 32000-1 §7.9.4
// requires for Info-dictionary and XMP dates: "D:YYYYMMDDHHMMSS+HH'mm"
// (spec.md §4.7 step 7). The zone offset is always written explicitly
// (never the bare "Z" shorthand some writers use for UTC), so output is
// unambiguous regardless of t's location.
func FormatPDFDate(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return t.Format("D:20060102150405") + sign +
		pad2(hh) + "'" + pad2(mm)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [4]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
