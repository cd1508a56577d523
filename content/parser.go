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
	"fmt"

	pdfcore "pdfkit.dev/core"
)

// arity gives the fixed operand count for every §4.5 operator except TJ
// (handled specially) and the variable-arity color operators SC/SCN/sc/scn,
// which accept 1-4 numeric components plus, for SCN/scn, a trailing pattern
// name.
var arity = map[string]int{
	"BT": 0, "ET": 0,
	"Tc": 1, "Tw": 1, "Tz": 1, "TL": 1, "Tf": 2, "Tr": 1, "Ts": 1,
	"Td": 2, "TD": 2, "Tm": 6, "T*": 0,
	"Tj": 1, "'": 1, "\"": 3,
	"q": 0, "Q": 0, "cm": 6, "w": 1, "J": 1, "j": 1, "M": 1, "d": 2, "ri": 1, "i": 1, "gs": 1,
	"m": 2, "l": 2, "c": 6, "v": 4, "y": 4, "h": 0, "re": 4,
	"S": 0, "s": 0, "f": 0, "F": 0, "f*": 0, "B": 0, "B*": 0, "b": 0, "b*": 0, "n": 0,
	"W": 0, "W*": 0,
	"CS": 1, "cs": 1, "G": 1, "g": 1, "RG": 3, "rg": 3, "K": 4, "k": 4,
	"sh": 1,
	"Do": 1,
	"BMC": 1, "BDC": 2, "EMC": 0, "MP": 1, "DP": 2, "BX": 0, "EX": 0,
}

// variableArity holds the color-setting operators whose operand count
// depends on the active color space (1 to 4 numeric components), with
// SCN/scn additionally permitting a trailing pattern Name (spec.md §4.5).
var variableArity = map[string]bool{
	"SC": true, "SCN": true, "sc": true, "scn": true,
}

// Parser turns content-stream bytes into a typed Operation list (spec.md
// §4.5). It is a two-pass stack evaluator: the scanner yields tokens, and
// operands accumulate on a stack until an operator is seen, at which point
// the required arity is popped and the typed Operation is emitted.
type Parser struct {
	sc      *scanner
	lenient bool
}

// NewParser returns a Parser over data. In lenient mode, operand-count
// mismatches are repaired (missing operands default to 0 / empty) instead
// of erroring (spec.md §4.5).
func NewParser(data []byte, lenient bool) *Parser {
	return &Parser{sc: newScanner(data), lenient: lenient}
}

// Parse consumes the entire input and returns its operation list.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	var stack []pdfcore.Object
	for {
		tok, err := p.sc.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return ops, nil
		}
		switch tok.kind {
		case tokInt:
			stack = append(stack, pdfcore.Integer(tok.i))
		case tokReal:
			stack = append(stack, pdfcore.Real(tok.f))
		case tokString:
			stack = append(stack, pdfcore.String(tok.s))
		case tokName:
			stack = append(stack, pdfcore.Name(tok.s))
		case tokArrayOpen:
			arr, err := p.parseArrayBody()
			if err != nil {
				return nil, err
			}
			stack = append(stack, arr)
		case tokDictOpen:
			d, err := p.parseDictBody()
			if err != nil {
				return nil, err
			}
			stack = append(stack, d)
		case tokArrayClose, tokDictClose:
			return nil, fmt.Errorf("content: unexpected %q at position %d", tok.s, tok.pos)
		case tokOperator:
			op := string(tok.s)
			switch op {
			case "true":
				stack = append(stack, pdfcore.Boolean(true))
				continue
			case "false":
				stack = append(stack, pdfcore.Boolean(false))
				continue
			case "null":
				stack = append(stack, pdfcore.Null{})
				continue
			case "BI":
				img, err := p.parseInlineImage()
				if err != nil {
					return nil, err
				}
				ops = append(ops, img)
				stack = stack[:0]
				continue
			case "TJ":
				item, err := p.buildShowTextArray(stack)
				if err != nil {
					if !p.lenient {
						return nil, err
					}
					item = ShowTextArray{}
				}
				ops = append(ops, item)
				stack = stack[:0]
				continue
			}
			_, operands, err := p.popArity(op, stack)
			if err != nil && !p.lenient {
				return nil, err
			}
			ops = append(ops, Generic{Op: op, Args: operands})
			stack = stack[:0]
		}
	}
}

// popArity determines how many operands op consumes and returns them (most
// recent last, i.e. in source order), padding with zero-valued operands in
// lenient mode when the stack holds fewer than required.
func (p *Parser) popArity(op string, stack []pdfcore.Object) (int, []pdfcore.Object, error) {
	if variableArity[op] {
		max := 4
		if (op == "SCN" || op == "scn") && len(stack) > 0 {
			if _, ok := stack[len(stack)-1].(pdfcore.Name); ok {
				max = 5
			}
		}
		n := len(stack)
		if n > max {
			n = max
		}
		return len(stack), append([]pdfcore.Object(nil), stack[len(stack)-n:]...), nil
	}
	want, known := arity[op]
	if !known {
		// Unknown operator: treat every currently pending operand as its
		// argument list (spec.md does not define arities beyond §4.5's
		// enumerated set).
		return len(stack), append([]pdfcore.Object(nil), stack...), nil
	}
	if len(stack) < want {
		err := fmt.Errorf("content: operator %q wants %d operands, got %d", op, want, len(stack))
		padded := make([]pdfcore.Object, want)
		copy(padded[want-len(stack):], stack)
		for i := 0; i < want-len(stack); i++ {
			padded[i] = pdfcore.Integer(0)
		}
		return len(stack), padded, err
	}
	return want, append([]pdfcore.Object(nil), stack[len(stack)-want:]...), nil
}

func (p *Parser) parseArrayBody() (pdfcore.Array, error) {
	var arr pdfcore.Array
	for {
		tok, err := p.sc.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokArrayClose:
			return arr, nil
		case tokEOF:
			return nil, errUnterminated
		case tokInt:
			arr = append(arr, pdfcore.Integer(tok.i))
		case tokReal:
			arr = append(arr, pdfcore.Real(tok.f))
		case tokString:
			arr = append(arr, pdfcore.String(tok.s))
		case tokName:
			arr = append(arr, pdfcore.Name(tok.s))
		case tokArrayOpen:
			sub, err := p.parseArrayBody()
			if err != nil {
				return nil, err
			}
			arr = append(arr, sub)
		case tokDictOpen:
			d, err := p.parseDictBody()
			if err != nil {
				return nil, err
			}
			arr = append(arr, d)
		case tokOperator:
			switch string(tok.s) {
			case "true":
				arr = append(arr, pdfcore.Boolean(true))
			case "false":
				arr = append(arr, pdfcore.Boolean(false))
			case "null":
				arr = append(arr, pdfcore.Null{})
			default:
				return nil, fmt.Errorf("content: unexpected operator %q inside array", tok.s)
			}
		default:
			return nil, fmt.Errorf("content: unexpected token inside array at position %d", tok.pos)
		}
	}
}

func (p *Parser) parseDictBody() (*pdfcore.Dict, error) {
	d := pdfcore.NewDict()
	for {
		tok, err := p.sc.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokDictClose {
			return d, nil
		}
		if tok.kind == tokEOF {
			return nil, errUnterminated
		}
		if tok.kind != tokName {
			return nil, fmt.Errorf("content: expected dict key at position %d", tok.pos)
		}
		key := pdfcore.Name(tok.s)
		val, err := p.parseDictValue()
		if err != nil {
			return nil, err
		}
		d.Set(key, val)
	}
}

func (p *Parser) parseDictValue() (pdfcore.Object, error) {
	tok, err := p.sc.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokInt:
		return pdfcore.Integer(tok.i), nil
	case tokReal:
		return pdfcore.Real(tok.f), nil
	case tokString:
		return pdfcore.String(tok.s), nil
	case tokName:
		return pdfcore.Name(tok.s), nil
	case tokArrayOpen:
		return p.parseArrayBody()
	case tokDictOpen:
		return p.parseDictBody()
	case tokOperator:
		switch string(tok.s) {
		case "true":
			return pdfcore.Boolean(true), nil
		case "false":
			return pdfcore.Boolean(false), nil
		case "null":
			return pdfcore.Null{}, nil
		}
	}
	return nil, fmt.Errorf("content: unexpected value token at position %d", tok.pos)
}

// buildShowTextArray converts the single Array operand TJ expects into its
// typed form (spec.md §4.5).
func (p *Parser) buildShowTextArray(stack []pdfcore.Object) (ShowTextArray, error) {
	if len(stack) == 0 {
		return ShowTextArray{}, fmt.Errorf("content: TJ with no operand")
	}
	arr, ok := stack[len(stack)-1].(pdfcore.Array)
	if !ok {
		return ShowTextArray{}, fmt.Errorf("content: TJ operand is not an array")
	}
	items := make([]TJItem, 0, len(arr))
	for _, el := range arr {
		switch v := el.(type) {
		case pdfcore.String:
			items = append(items, TJItem{IsText: true, Text: v})
		case pdfcore.Integer:
			items = append(items, TJItem{Spacing: float64(v)})
		case pdfcore.Real:
			items = append(items, TJItem{Spacing: float64(v)})
		}
	}
	return ShowTextArray{Items: items}, nil
}

// parseInlineImage parses the BI...ID...EI construct starting right after
// the "BI" operator token (spec.md §4.5).
func (p *Parser) parseInlineImage() (InlineImage, error) {
	params := pdfcore.NewDict()
	for {
		tok, err := p.sc.next()
		if err != nil {
			return InlineImage{}, err
		}
		if tok.kind == tokOperator && string(tok.s) == "ID" {
			break
		}
		if tok.kind != tokName {
			return InlineImage{}, fmt.Errorf("content: expected inline image key at position %d", tok.pos)
		}
		key := expandKey(pdfcore.Name(tok.s))
		val, err := p.parseDictValue()
		if err != nil {
			return InlineImage{}, err
		}
		if key == "Filter" {
			val = expandFilterValue(val)
		}
		if key == "ColorSpace" {
			if n, ok := val.(pdfcore.Name); ok {
				val = expandName(n)
			}
		}
		params.Set(key, val)
	}
	// One whitespace byte separates "ID" from the raw data (spec.md §4.5).
	data := p.sc.data
	pos := p.sc.pos
	if pos < len(data) && classOf(data[pos]) == 's' {
		pos++
	}
	end, ok := findInlineImageEnd(data, pos)
	if !ok {
		return InlineImage{}, errUnterminated
	}
	raw := data[pos:end]
	p.sc.pos = end
	// Consume the "EI" operator itself.
	if _, err := p.sc.next(); err != nil {
		return InlineImage{}, err
	}
	return InlineImage{Params: params, Data: raw}, nil
}

// findInlineImageEnd scans for the "EI" token that terminates inline image
// data: a whitespace byte, "EI", then whitespace or EOF. Raw image bytes may
// themselves contain "EI", so every candidate is checked for these
// boundaries before being accepted.
func findInlineImageEnd(data []byte, from int) (int, bool) {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > from && classOf(data[i-1]) != 's' {
			continue
		}
		if i+2 < len(data) && classOf(data[i+2]) != 's' {
			continue
		}
		end := i
		if end > from && classOf(data[end-1]) == 's' {
			end--
		}
		return end, true
	}
	return len(data), false
}
