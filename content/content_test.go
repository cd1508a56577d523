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
	"testing"

	"github.com/google/go-cmp/cmp"
	pdfcore "pdfkit.dev/core"
)

var parseTestCases = []struct {
	name string
	src  string
	want []Operation
}{
	{
		"simple graphics state",
		"q 1 0 0 1 72 720 cm Q",
		[]Operation{
			Generic{Op: "q"},
			Generic{Op: "cm", Args: []pdfcore.Object{pdfcore.Integer(1), pdfcore.Integer(0), pdfcore.Integer(0), pdfcore.Integer(1), pdfcore.Integer(72), pdfcore.Integer(720)}},
			Generic{Op: "Q"},
		},
	},
	{
		"text showing",
		"BT /F1 12 Tf (Hello) Tj ET",
		[]Operation{
			Generic{Op: "BT"},
			Generic{Op: "Tf", Args: []pdfcore.Object{pdfcore.Name("F1"), pdfcore.Integer(12)}},
			Generic{Op: "Tj", Args: []pdfcore.Object{pdfcore.String("Hello")}},
			Generic{Op: "ET"},
		},
	},
	{
		"TJ array",
		"[(Hel) -120 (lo)] TJ",
		[]Operation{
			ShowTextArray{Items: []TJItem{
				{IsText: true, Text: pdfcore.String("Hel")},
				{Spacing: -120},
				{IsText: true, Text: pdfcore.String("lo")},
			}},
		},
	},
	{
		"path painting",
		"0 0 100 100 re f",
		[]Operation{
			Generic{Op: "re", Args: []pdfcore.Object{pdfcore.Integer(0), pdfcore.Integer(0), pdfcore.Integer(100), pdfcore.Integer(100)}},
			Generic{Op: "f"},
		},
	},
}

func TestParseRoundTrip(t *testing.T) {
	for _, tc := range parseTestCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser([]byte(tc.src), false)
			got, err := p.Parse()
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}

			out, err := Bytes(got)
			if err != nil {
				t.Fatalf("emit failed: %v", err)
			}
			reparsed, err := NewParser(out, false).Parse()
			if err != nil {
				t.Fatalf("re-parse failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, reparsed); diff != "" {
				t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInlineImage(t *testing.T) {
	src := "q BI /W 2 /H 2 /CS /G /BPC 8 /F /Fl ID " + "\x01\x02\x03\x04" + " EI Q"
	p := NewParser([]byte(src), false)
	ops, err := p.Parse()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ops))
	}
	img, ok := ops[1].(InlineImage)
	if !ok {
		t.Fatalf("expected InlineImage, got %T", ops[1])
	}
	if got := img.Params.Get("Width"); got != pdfcore.Integer(2) {
		t.Errorf("Width: got %v, want 2", got)
	}
	if got := img.Params.Get("ColorSpace"); got != pdfcore.Name("DeviceGray") {
		t.Errorf("ColorSpace: got %v, want DeviceGray", got)
	}
	if got := img.Params.Get("Filter"); got != pdfcore.Name("FlateDecode") {
		t.Errorf("Filter: got %v, want FlateDecode", got)
	}
	if string(img.Data) != "\x01\x02\x03\x04" {
		t.Errorf("Data: got %q", img.Data)
	}
}

func TestParseLenientPadsMissingOperands(t *testing.T) {
	p := NewParser([]byte("1 0 rg"), true)
	ops, err := p.Parse()
	if err != nil {
		t.Fatalf("lenient parse should not fail: %v", err)
	}
	g, ok := ops[0].(Generic)
	if !ok || g.Op != "rg" {
		t.Fatalf("expected rg operation, got %#v", ops)
	}
	if len(g.Args) != 3 {
		t.Fatalf("expected 3 args (padded), got %d", len(g.Args))
	}
}

func TestParseStrictRejectsMissingOperands(t *testing.T) {
	p := NewParser([]byte("1 0 rg"), false)
	if _, err := p.Parse(); err == nil {
		t.Error("expected arity error in strict mode, got nil")
	}
}

func TestEmitTrimsTrailingZeros(t *testing.T) {
	ops := []Operation{Generic{Op: "w", Args: []pdfcore.Object{pdfcore.Real(2.500000)}}}
	out, err := Bytes(ops)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("2.5 w")) {
		t.Errorf("expected trimmed real, got %q", out)
	}
}
