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

package font

import "context"

// OCROptions controls how an OCRProvider processes an image (spec.md §1's
// "text layer" use case: placing an invisible recognized-text layer behind
// a scanned page image). Grounded on original_source's text/ocr.rs
// OcrOptions, narrowed to the fields that affect what gets written into a
// PDF's content stream; preprocessing/engine-tuning knobs that only affect
// recognition quality are left to individual provider implementations.
type OCROptions struct {
	Language      string
	MinConfidence float64
	Regions       []OCRRegion
}

// OCRRegion restricts recognition to a sub-rectangle of the source image,
// in image pixel coordinates.
type OCRRegion struct {
	X, Y, Width, Height int
}

// OCRFragment is one recognized piece of text, positioned in PDF
// page-coordinate points so it can be written as an invisible Tr 3 text
// run directly behind the scanned image (spec.md §1).
type OCRFragment struct {
	Text       string
	X, Y       float64
	Width      float64
	Height     float64
	FontSize   float64
	Confidence float64
}

// OCRResult is the outcome of recognizing one image.
type OCRResult struct {
	Text       string
	Fragments  []OCRFragment
	Confidence float64
}

// OCRProvider is the trait boundary a scanned-page text layer is built
// against; this package supplies no implementation (spec.md §1 treats OCR
// engines as out of scope, and original_source/.../text/ocr.rs's own
// MockOcrProvider exists only for its test suite, not for production use).
// A caller wires in Tesseract, a cloud OCR API, or any other engine by
// implementing this interface.
type OCRProvider interface {
	ProcessImage(ctx context.Context, imageData []byte, opts OCROptions) (*OCRResult, error)
}
