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

// Package pdfcore implements the object model, cross-reference index, and
// document writer of a PDF 1.4-1.7 engine.
package pdfcore

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra positional context.
var (
	errEmptyFile    = errors.New("pdfcore: empty file")
	errInvalidXRef  = errors.New("pdfcore: unrecoverable cross-reference failure")
	errNoRoot       = errors.New("pdfcore: no /Root object found during recovery")
	errDuplicateRef = errors.New("pdfcore: object already written")
)

// ErrEmptyFile is returned by Open when the input has zero length.
var ErrEmptyFile = errEmptyFile

// ErrInvalidXRef is returned by Open when the cross-reference chain cannot
// be parsed and (in strict mode) recovery is not attempted.
var ErrInvalidXRef = errInvalidXRef

// InvalidHeaderError indicates the file is missing a recognizable "%PDF-"
// signature within the leading bytes ISO 32000-1 allows it to be found in.
type InvalidHeaderError struct{}

func (e *InvalidHeaderError) Error() string { return "pdfcore: missing or unrecognizable %PDF- header" }

// InvalidTrailerError indicates the trailer dictionary is absent or
// malformed beyond what recovery can repair.
type InvalidTrailerError struct {
	Message string
}

func (e *InvalidTrailerError) Error() string {
	if e.Message == "" {
		return "pdfcore: invalid or missing trailer"
	}
	return "pdfcore: invalid trailer: " + e.Message
}

// UnsupportedImageFormatError reports an image stream whose format the
// image subsystem does not recognize. The core never decodes image pixel
// data itself (spec.md §1 treats image codecs as external collaborators);
// this type exists so a host-supplied decoder can report failures using the
// core's error taxonomy.
type UnsupportedImageFormatError struct {
	Format string
}

func (e *UnsupportedImageFormatError) Error() string {
	return "pdfcore: unsupported image format: " + e.Format
}

// InvalidImageDataError reports image stream bytes that do not parse as
// their declared format. See UnsupportedImageFormatError.
type InvalidImageDataError struct {
	Message string
}

func (e *InvalidImageDataError) Error() string {
	return "pdfcore: invalid image data: " + e.Message
}

// SyntaxError reports a malformed byte sequence at a specific offset in the
// input, as produced by the lexical layer (C1).
type SyntaxError struct {
	Pos     int64
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pdfcore: syntax error at byte %d: %s", e.Pos, e.Message)
}

// UnexpectedTokenError reports a grammar mismatch while parsing an object.
type UnexpectedTokenError struct {
	Pos      int64
	Expected string
	Found    string
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("pdfcore: at byte %d: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// MalformedFileError indicates the PDF file could not be parsed into a
// coherent object graph. It always wraps a more specific cause.
type MalformedFileError struct {
	Err error
	Pos int64
}

func (e *MalformedFileError) Error() string {
	msg := "pdfcore: malformed PDF file"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Pos > 0 {
		msg += fmt.Sprintf(" (at byte %d)", e.Pos)
	}
	return msg
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// MissingKeyError indicates a required dictionary entry is absent.
type MissingKeyError struct {
	Key Name
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("pdfcore: missing required key %q", e.Key)
}

// InvalidReferenceError indicates a dangling or generation-mismatched
// indirect reference.
type InvalidReferenceError struct {
	Num uint32
	Gen uint16
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("pdfcore: invalid reference %d %d R", e.Num, e.Gen)
}

// InvalidFormatError reports a structural violation not reducible to a
// syntax position, such as a cyclic calculation dependency.
type InvalidFormatError struct {
	Message string
}

func (e *InvalidFormatError) Error() string {
	return "pdfcore: invalid format: " + e.Message
}

// InvalidStructureError reports a semantic violation, such as an expression
// evaluating with an empty operand stack.
type InvalidStructureError struct {
	Message string
}

func (e *InvalidStructureError) Error() string {
	return "pdfcore: invalid structure: " + e.Message
}

// ErrStackOverflow is returned when a recursion budget (parsing nested
// objects, content streams, or outline trees) is exhausted.
var ErrStackOverflow = errors.New("pdfcore: recursion budget exhausted")

// ErrEncryptionNotSupported is returned when a document's /Encrypt
// dictionary names a security handler the encryption adapter cannot handle.
var ErrEncryptionNotSupported = errors.New("pdfcore: encryption scheme not supported")

// Warning is a non-fatal condition recorded during lenient parsing when
// ParseOptions.CollectWarnings is set.
type Warning struct {
	Pos     int64
	Message string
}

func (w Warning) String() string {
	if w.Pos > 0 {
		return fmt.Sprintf("byte %d: %s", w.Pos, w.Message)
	}
	return w.Message
}
