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

// ParseOptions controls how strictly a document is read.
//
// The zero value is the strict configuration: any malformation is a hard
// error. Set LenientSyntax (and optionally LenientStreams) to read the wide
// corpus of real-world, slightly-off-spec PDF files.
type ParseOptions struct {
	// LenientSyntax accepts common malformations: non-standard xref
	// whitespace, duplicate dictionary keys (last wins instead of erroring),
	// missing/garbled xref tables (triggers the recovery scanner).
	LenientSyntax bool

	// LenientStreams, when the declared /Length does not lead to a properly
	// aligned "endstream", scans forward for the nearest "endstream" and
	// accepts the corrected length.
	LenientStreams bool

	// MaxRecoveryBytes bounds the forward scan LenientStreams performs.
	// Zero means the default of 1000.
	MaxRecoveryBytes uint32

	// CollectWarnings records non-fatal issues found during lenient parsing.
	CollectWarnings bool

	// MaxRecursionDepth bounds object/content-stream/outline-tree recursion.
	// Zero means the default of 500.
	MaxRecursionDepth uint32
}

func (o *ParseOptions) maxRecoveryBytes() int {
	if o == nil || o.MaxRecoveryBytes == 0 {
		return 1000
	}
	return int(o.MaxRecoveryBytes)
}

func (o *ParseOptions) maxRecursionDepth() int {
	if o == nil || o.MaxRecursionDepth == 0 {
		return 500
	}
	return int(o.MaxRecursionDepth)
}

func (o *ParseOptions) lenientSyntax() bool {
	return o != nil && o.LenientSyntax
}

func (o *ParseOptions) lenientStreams() bool {
	return o != nil && o.LenientStreams
}

// WriterConfig controls the physical shape of serialized output.
type WriterConfig struct {
	// UseXRefStreams emits a PDF 1.5+ cross-reference stream instead of the
	// classical xref table.
	UseXRefStreams bool

	// UseObjectStreams buffers eligible objects (not streams, not the
	// catalog/info dict, not referenced from an encryption dict) into
	// compressed object streams.
	UseObjectStreams bool

	// PDFVersion is the version string written in the file header, e.g. "1.7".
	PDFVersion string

	// CompressStreams FlateDecode-compresses page content streams and other
	// writer-generated streams that don't already carry an explicit filter.
	CompressStreams bool
}

// LegacyWriterConfig is the PDF-1.4-compatible preset: no xref streams, no
// object streams, but streams are still compressed.
func LegacyWriterConfig() WriterConfig {
	return WriterConfig{
		UseXRefStreams:   false,
		UseObjectStreams: false,
		PDFVersion:       "1.4",
		CompressStreams:  true,
	}
}

// ModernWriterConfig is the PDF-1.5+ preset using cross-reference streams
// and object streams.
func ModernWriterConfig() WriterConfig {
	return WriterConfig{
		UseXRefStreams:   true,
		UseObjectStreams: true,
		PDFVersion:       "1.5",
		CompressStreams:  true,
	}
}

// DefaultWriterConfig is the PDF 1.7 preset: classical xref (for maximum
// viewer compatibility) with stream compression but no object streams.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		UseXRefStreams:   false,
		UseObjectStreams: false,
		PDFVersion:       "1.7",
		CompressStreams:  true,
	}
}
