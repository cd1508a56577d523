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
	"strings"
	"testing"

	pdfcore "pdfkit.dev/core"
)

func TestBuildToUnicodeDictFields(t *testing.T) {
	s := BuildToUnicode([]ToUnicodeEntry{{CID: 1, Text: []rune("A")}})
	if s.Dict.Get("Type") != pdfcore.Name("CMap") {
		t.Errorf("Type = %v", s.Dict.Get("Type"))
	}
	if s.Dict.Get("CMapName") != pdfcore.Name("Adobe-Identity-UCS") {
		t.Errorf("CMapName = %v", s.Dict.Get("CMapName"))
	}
	body := string(s.Data)
	if !strings.Contains(body, "begincmap") || !strings.Contains(body, "endcmap") {
		t.Errorf("stream body missing cmap wrapper: %q", body)
	}
}

func TestBuildToUnicodeCoalescesConsecutiveRunsIntoBfrange(t *testing.T) {
	entries := []ToUnicodeEntry{
		{CID: 1, Text: []rune{'A'}},
		{CID: 2, Text: []rune{'B'}},
		{CID: 3, Text: []rune{'C'}},
	}
	s := BuildToUnicode(entries)
	body := string(s.Data)
	if !strings.Contains(body, "beginbfrange") {
		t.Errorf("expected a bfrange block for a consecutive CID/codepoint run, got %q", body)
	}
	if strings.Contains(body, "beginbfchar") {
		t.Errorf("did not expect a bfchar block when every entry coalesces into one range, got %q", body)
	}
	if !strings.Contains(body, "<0001> <0003> <0041>") {
		t.Errorf("expected the range line <0001> <0003> <0041>, got %q", body)
	}
}

func TestBuildToUnicodeNonConsecutiveFallsBackToBfchar(t *testing.T) {
	entries := []ToUnicodeEntry{
		{CID: 1, Text: []rune{'A'}},
		{CID: 5, Text: []rune{'Z'}},
	}
	s := BuildToUnicode(entries)
	body := string(s.Data)
	if !strings.Contains(body, "beginbfchar") {
		t.Errorf("expected a bfchar block for non-consecutive entries, got %q", body)
	}
	if strings.Contains(body, "beginbfrange") {
		t.Errorf("did not expect a bfrange block, got %q", body)
	}
	if !strings.Contains(body, "<0001> <0041>") || !strings.Contains(body, "<0005> <005A>") {
		t.Errorf("expected bfchar lines for CID 1 and CID 5, got %q", body)
	}
}

func TestBuildToUnicodeMultiRuneLigatureIsBfchar(t *testing.T) {
	s := BuildToUnicode([]ToUnicodeEntry{{CID: 10, Text: []rune("fi")}})
	body := string(s.Data)
	if !strings.Contains(body, "beginbfchar") {
		t.Errorf("expected a bfchar entry for a multi-rune ligature, got %q", body)
	}
	if !strings.Contains(body, "<000A> <00660069>") {
		t.Errorf("expected UTF-16 hex for \"fi\" (0066 0069), got %q", body)
	}
}

func TestBuildToUnicodeSortsByCID(t *testing.T) {
	entries := []ToUnicodeEntry{
		{CID: 9, Text: []rune{'Z'}},
		{CID: 1, Text: []rune{'A'}},
	}
	s := BuildToUnicode(entries)
	body := string(s.Data)
	posA := strings.Index(body, "<0001>")
	posZ := strings.Index(body, "<0009>")
	if posA == -1 || posZ == -1 || posA > posZ {
		t.Errorf("expected CID 1 to be written before CID 9, got %q", body)
	}
}

func TestEncodeUTF16HexSurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) requires a surrogate pair in UTF-16.
	got := encodeUTF16Hex([]rune{0x1F600})
	if got != "D83DDE00" {
		t.Errorf("encodeUTF16Hex(U+1F600) = %q, want D83DDE00", got)
	}
}

func TestEncodeUTF16HexBMP(t *testing.T) {
	got := encodeUTF16Hex([]rune{'A', 'B'})
	if got != "00410042" {
		t.Errorf("encodeUTF16Hex(AB) = %q, want 00410042", got)
	}
}

func TestBuildToUnicodeEmptyEntriesProducesValidWrapper(t *testing.T) {
	s := BuildToUnicode(nil)
	body := string(s.Data)
	if strings.Contains(body, "beginbfrange") || strings.Contains(body, "beginbfchar") {
		t.Errorf("expected no bf blocks for empty input, got %q", body)
	}
	if !strings.Contains(body, "begincmap") || !strings.Contains(body, "endcmap") {
		t.Errorf("expected the cmap wrapper to still be present, got %q", body)
	}
}
