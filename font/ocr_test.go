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

import (
	"context"
	"testing"
)

// stubOCRProvider is a minimal OCRProvider used only to confirm the
// interface is implementable against real call sites, the way a Tesseract
// or cloud-API adapter would be wired in by a caller.
type stubOCRProvider struct {
	region OCRRegion
}

func (s *stubOCRProvider) ProcessImage(ctx context.Context, imageData []byte, opts OCROptions) (*OCRResult, error) {
	if len(opts.Regions) > 0 {
		s.region = opts.Regions[0]
	}
	return &OCRResult{
		Text: "hello",
		Fragments: []OCRFragment{
			{Text: "hello", X: 10, Y: 20, Width: 50, Height: 12, FontSize: 12, Confidence: 0.97},
		},
		Confidence: 0.97,
	}, nil
}

func TestOCRProviderInterfaceIsImplementable(t *testing.T) {
	var p OCRProvider = &stubOCRProvider{}
	opts := OCROptions{
		Language:      "eng",
		MinConfidence: 0.5,
		Regions:       []OCRRegion{{X: 0, Y: 0, Width: 100, Height: 100}},
	}
	result, err := p.ProcessImage(context.Background(), []byte{0xFF, 0xD8}, opts)
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if result.Text != "hello" || len(result.Fragments) != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Fragments[0].Confidence != 0.97 {
		t.Errorf("fragment confidence = %v, want 0.97", result.Fragments[0].Confidence)
	}
}

func TestOCROptionsCarriesRegionsThrough(t *testing.T) {
	s := &stubOCRProvider{}
	opts := OCROptions{Regions: []OCRRegion{{X: 5, Y: 6, Width: 7, Height: 8}}}
	if _, err := s.ProcessImage(context.Background(), nil, opts); err != nil {
		t.Fatal(err)
	}
	if s.region != (OCRRegion{X: 5, Y: 6, Width: 7, Height: 8}) {
		t.Errorf("region = %+v, want {5 6 7 8}", s.region)
	}
}
