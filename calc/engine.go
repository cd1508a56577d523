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

package calc

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	pdfcore "pdfkit.dev/core"
)

// FieldValue is the value of one form field, the engine's unit of state
// (spec.md §3 "Form field value").
type FieldValue struct {
	kind fieldKind
	num  float64
	text string
	b    bool
}

type fieldKind int

const (
	fieldEmpty fieldKind = iota
	fieldNumber
	fieldText
	fieldBoolean
)

// Empty is the zero-value FieldValue: no value has been set for the field.
var Empty = FieldValue{kind: fieldEmpty}

// Number wraps a numeric field value.
func Number(n float64) FieldValue { return FieldValue{kind: fieldNumber, num: n} }

// Text wraps a string field value.
func Text(s string) FieldValue { return FieldValue{kind: fieldText, text: s} }

// Bool wraps a boolean field value (a checkbox, typically).
func Bool(b bool) FieldValue { return FieldValue{kind: fieldBoolean, b: b} }

// IsEmpty reports whether v is the Empty value.
func (v FieldValue) IsEmpty() bool { return v.kind == fieldEmpty }

// ToNumber converts v to a float64: a Number value as-is, a parseable Text
// value as its parsed value, an unparseable Text or Empty value as 0, and a
// Boolean as 1 or 0.
func (v FieldValue) ToNumber() float64 {
	switch v.kind {
	case fieldNumber:
		return v.num
	case fieldText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0
		}
		return n
	case fieldBoolean:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// ToText renders v as a display string: an integral Number with no decimal
// places, a fractional Number to two decimal places, Text verbatim, Boolean
// as "true"/"false", Empty as "".
func (v FieldValue) ToText() string {
	switch v.kind {
	case fieldNumber:
		if v.num == math.Trunc(v.num) && !math.IsInf(v.num, 0) && !math.IsNaN(v.num) {
			return strconv.FormatFloat(v.num, 'f', 0, 64)
		}
		return strconv.FormatFloat(v.num, 'f', 2, 64)
	case fieldText:
		return v.text
	case fieldBoolean:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// toBool converts v the way an If calculation's condition field does:
// Boolean as-is, a nonzero Number as true, a non-empty Text as true, Empty
// as false.
func (v FieldValue) toBool() bool {
	switch v.kind {
	case fieldBoolean:
		return v.b
	case fieldNumber:
		return v.num != 0
	case fieldText:
		return v.text != ""
	default:
		return false
	}
}

// Calculation is one field's computation rule. Build one with Arithmetic,
// Function, JavaScript, or Const.
type Calculation struct {
	kind       calcKind
	expr       *ArithmeticExpression
	fn         *functionCalc
	js         string
	constValue FieldValue
}

type calcKind int

const (
	calcArithmetic calcKind = iota
	calcFunction
	calcJavaScript
	calcConstant
)

// Arithmetic builds a Calculation from a parsed arithmetic expression.
func Arithmetic(expr *ArithmeticExpression) Calculation {
	return Calculation{kind: calcArithmetic, expr: expr}
}

// Const builds a Calculation that always evaluates to v, regardless of any
// field's value.
func Const(v FieldValue) Calculation {
	return Calculation{kind: calcConstant, constValue: v}
}

// JavaScript builds a Calculation holding a custom script. The engine does
// not embed a JavaScript interpreter (spec.md's Non-goals exclude a
// scripting runtime); the calculation is stored and recognized, always
// evaluates to Empty, and (since its dependencies cannot be determined
// without parsing the script) contributes no entries to the dependency
// graph, so it never participates in cycle detection or recalculation
// propagation.
func JavaScript(code string) Calculation {
	return Calculation{kind: calcJavaScript, js: code}
}

type functionKind int

const (
	fnSum functionKind = iota
	fnAverage
	fnMin
	fnMax
	fnProduct
	fnCount
	fnIf
)

type functionCalc struct {
	kind           functionKind
	fields         []string // Sum/Average/Min/Max/Product/Count operands
	conditionField string
	trueCalc       *Calculation
	falseCalc      *Calculation
}

// Sum builds a Calculation that adds the named fields' numeric values.
func Sum(fields ...string) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{kind: fnSum, fields: fields}}
}

// Average builds a Calculation that averages the named fields' numeric
// values; an empty field list evaluates to 0.
func Average(fields ...string) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{kind: fnAverage, fields: fields}}
}

// Min builds a Calculation that takes the minimum of the named fields'
// numeric values, skipping any value that is NaN; if every value is NaN (or
// the field list is empty) the result is 0.
func Min(fields ...string) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{kind: fnMin, fields: fields}}
}

// Max builds a Calculation analogous to Min, taking the maximum.
func Max(fields ...string) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{kind: fnMax, fields: fields}}
}

// Product builds a Calculation that multiplies the named fields' numeric
// values; an empty field list evaluates to 1 (the multiplicative identity).
func Product(fields ...string) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{kind: fnProduct, fields: fields}}
}

// Count builds a Calculation that counts how many of the named fields
// currently hold a non-Empty value.
func Count(fields ...string) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{kind: fnCount, fields: fields}}
}

// If builds a Calculation that evaluates trueCalc when conditionField's
// value is truthy (FieldValue.toBool) and falseCalc otherwise.
func If(conditionField string, trueCalc, falseCalc Calculation) Calculation {
	return Calculation{kind: calcFunction, fn: &functionCalc{
		kind: fnIf, conditionField: conditionField, trueCalc: &trueCalc, falseCalc: &falseCalc,
	}}
}

// Summary reports the engine's current bookkeeping state (spec.md's
// "calculation summary" diagnostic), primarily useful for tests and
// debugging tools.
type Summary struct {
	TotalFields      int
	CalculatedFields int
	Dependencies     int
	CalculationOrder []string
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"Calculation Summary:\n- Total fields: %d\n- Calculated fields: %d\n- Dependencies: %d\n- Calculation order: %s",
		s.TotalFields, s.CalculatedFields, s.Dependencies, strings.Join(s.CalculationOrder, " -> "),
	)
}

// Engine evaluates form-field calculations in dependency order, rejecting
// any calculation that would introduce a cycle (ISO 32000-1 §12.7.5.3,
// spec.md's calculation-engine module). Create one with NewEngine; the zero
// value has nil maps and is not usable.
//
// Grounded directly on original_source/oxidize-pdf-core/src/forms/
// calculations.rs's CalculationEngine, translated into explicit error
// returns and named constructors instead of enum variants.
type Engine struct {
	values       map[string]FieldValue
	calculations map[string]Calculation
	dependents   map[string]map[string]bool // field -> fields that depend on it
	order        []string                   // calculation dependency order
}

// NewEngine returns an empty Engine.
func NewEngine() *Engine {
	return &Engine{
		values:       make(map[string]FieldValue),
		calculations: make(map[string]Calculation),
		dependents:   make(map[string]map[string]bool),
	}
}

// SetFieldValue assigns field's current value and recalculates every field
// that (directly or transitively) depends on it, in dependency order.
func (e *Engine) SetFieldValue(field string, value FieldValue) {
	e.values[field] = value
	e.recalculateDependents(field)
}

// FieldValue returns field's current value, or Empty if it has never been
// set.
func (e *Engine) FieldValue(field string) FieldValue {
	if v, ok := e.values[field]; ok {
		return v
	}
	return Empty
}

// AddCalculation registers calc as field's calculation rule. If doing so
// would create a circular dependency, AddCalculation returns an error and
// leaves the engine's state exactly as it was before the call (no partial
// dependency-map or calculation-order mutation is visible on the error
// path).
func (e *Engine) AddCalculation(field string, calc Calculation) error {
	deps := e.extractDependencies(calc)

	if e.wouldCreateCycle(field, deps) {
		return &pdfcore.InvalidFormatError{
			Message: fmt.Sprintf("circular dependency detected for field %q", field),
		}
	}

	for dep := range deps {
		if e.dependents[dep] == nil {
			e.dependents[dep] = make(map[string]bool)
		}
		e.dependents[dep][field] = true
	}

	e.calculations[field] = calc

	if err := e.updateCalculationOrder(); err != nil {
		return err
	}
	return e.CalculateField(field)
}

// extractDependencies returns the set of field names calc reads. A
// JavaScript calculation's dependencies cannot be determined (see
// JavaScript's doc comment) and so contributes none.
func (e *Engine) extractDependencies(calc Calculation) map[string]bool {
	deps := make(map[string]bool)
	e.collectDependencies(calc, deps)
	return deps
}

func (e *Engine) collectDependencies(calc Calculation, deps map[string]bool) {
	switch calc.kind {
	case calcArithmetic:
		for _, f := range calc.expr.fields() {
			deps[f] = true
		}
	case calcFunction:
		fn := calc.fn
		switch fn.kind {
		case fnIf:
			deps[fn.conditionField] = true
			e.collectDependencies(*fn.trueCalc, deps)
			e.collectDependencies(*fn.falseCalc, deps)
		default:
			for _, f := range fn.fields {
				deps[f] = true
			}
		}
	}
}

func (e *Engine) wouldCreateCycle(field string, newDeps map[string]bool) bool {
	for dep := range newDeps {
		if dep == field {
			return true
		}
		if e.dependsOn(dep, field) {
			return true
		}
	}
	return false
}

// dependsOn reports whether fieldA's calculation (transitively) reads
// fieldB, via a breadth-first walk of the dependency edges of the
// calculations already registered with the engine.
func (e *Engine) dependsOn(fieldA, fieldB string) bool {
	visited := make(map[string]bool)
	queue := []string{fieldA}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == fieldB {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		if calc, ok := e.calculations[current]; ok {
			for dep := range e.extractDependencies(calc) {
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// updateCalculationOrder recomputes e.order via depth-first topological
// sort over the registered calculations, erroring if a cycle is found (this
// should be unreachable in practice, since AddCalculation already rejects
// any calculation that would introduce one).
func (e *Engine) updateCalculationOrder() error {
	var order []string
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	// Iterate in a stable order so the resulting calculation order is
	// deterministic across runs with the same sequence of AddCalculation
	// calls.
	fields := make([]string, 0, len(e.calculations))
	for f := range e.calculations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if !visited[f] {
			if err := e.topoVisit(f, visited, visiting, &order); err != nil {
				return err
			}
		}
	}

	e.order = order
	return nil
}

func (e *Engine) topoVisit(field string, visited, visiting map[string]bool, order *[]string) error {
	if visiting[field] {
		return &pdfcore.InvalidFormatError{Message: "circular dependency detected"}
	}
	if visited[field] {
		return nil
	}

	visiting[field] = true
	if calc, ok := e.calculations[field]; ok {
		for dep := range e.extractDependencies(calc) {
			if _, ok := e.calculations[dep]; ok {
				if err := e.topoVisit(dep, visited, visiting, order); err != nil {
					return err
				}
			}
		}
	}
	delete(visiting, field)
	visited[field] = true
	*order = append(*order, field)
	return nil
}

// recalculateDependents recomputes every field that (directly or
// transitively) reads changedField, walking e.order so each dependent is
// calculated only after its own inputs are current.
func (e *Engine) recalculateDependents(changedField string) {
	_ = e.updateCalculationOrder()

	toRecalc := make(map[string]bool)
	for dep := range e.dependents[changedField] {
		toRecalc[dep] = true
	}

	order := append([]string(nil), e.order...)
	for _, field := range order {
		if toRecalc[field] {
			_ = e.CalculateField(field)
			for dep := range e.dependents[field] {
				toRecalc[dep] = true
			}
		}
	}
}

// CalculateField recomputes field's value from its registered calculation
// and stores the result. It is a no-op (returning nil) if field has no
// calculation registered.
func (e *Engine) CalculateField(field string) error {
	calc, ok := e.calculations[field]
	if !ok {
		return nil
	}
	value, err := e.evaluateCalculation(calc)
	if err != nil {
		return err
	}
	e.values[field] = value
	return nil
}

func (e *Engine) evaluateCalculation(calc Calculation) (FieldValue, error) {
	switch calc.kind {
	case calcArithmetic:
		n, err := calc.expr.evaluate(func(field string) float64 { return e.FieldValue(field).ToNumber() })
		if err != nil {
			return Empty, err
		}
		return Number(n), nil
	case calcFunction:
		return e.evaluateFunction(calc.fn)
	case calcJavaScript:
		return e.evaluateJavaScript(calc.js)
	case calcConstant:
		return calc.constValue, nil
	default:
		return Empty, nil
	}
}

func (e *Engine) evaluateFunction(fn *functionCalc) (FieldValue, error) {
	switch fn.kind {
	case fnSum:
		var sum float64
		for _, f := range fn.fields {
			sum += e.FieldValue(f).ToNumber()
		}
		return Number(sum), nil

	case fnAverage:
		if len(fn.fields) == 0 {
			return Number(0), nil
		}
		var sum float64
		for _, f := range fn.fields {
			sum += e.FieldValue(f).ToNumber()
		}
		return Number(sum / float64(len(fn.fields))), nil

	case fnMin:
		result := math.NaN()
		for _, f := range fn.fields {
			n := e.FieldValue(f).ToNumber()
			if math.IsNaN(n) {
				continue
			}
			if math.IsNaN(result) || n < result {
				result = n
			}
		}
		if math.IsNaN(result) {
			result = 0
		}
		return Number(result), nil

	case fnMax:
		result := math.NaN()
		for _, f := range fn.fields {
			n := e.FieldValue(f).ToNumber()
			if math.IsNaN(n) {
				continue
			}
			if math.IsNaN(result) || n > result {
				result = n
			}
		}
		if math.IsNaN(result) {
			result = 0
		}
		return Number(result), nil

	case fnProduct:
		product := 1.0
		for _, f := range fn.fields {
			product *= e.FieldValue(f).ToNumber()
		}
		return Number(product), nil

	case fnCount:
		var count float64
		for _, f := range fn.fields {
			if !e.FieldValue(f).IsEmpty() {
				count++
			}
		}
		return Number(count), nil

	case fnIf:
		if e.FieldValue(fn.conditionField).toBool() {
			return e.evaluateCalculation(*fn.trueCalc)
		}
		return e.evaluateCalculation(*fn.falseCalc)

	default:
		return Empty, nil
	}
}

// evaluateJavaScript always yields Empty: the engine does not embed a
// JavaScript interpreter. See JavaScript's doc comment.
func (e *Engine) evaluateJavaScript(code string) (FieldValue, error) {
	_ = code
	return Empty, nil
}

// RecalculateAll recomputes every registered calculation in dependency
// order.
func (e *Engine) RecalculateAll() error {
	order := append([]string(nil), e.order...)
	for _, field := range order {
		if err := e.CalculateField(field); err != nil {
			return err
		}
	}
	return nil
}

// RemoveCalculation deletes field's calculation rule, its entry in the
// dependency graph, its calculated value, and its place in the calculation
// order. It is a no-op if field has no calculation registered.
func (e *Engine) RemoveCalculation(field string) {
	if _, ok := e.calculations[field]; !ok {
		return
	}
	delete(e.calculations, field)

	n := 0
	for _, f := range e.order {
		if f != field {
			e.order[n] = f
			n++
		}
	}
	e.order = e.order[:n]

	for _, deps := range e.dependents {
		delete(deps, field)
	}
	delete(e.dependents, field)
	delete(e.values, field)
}

// Summary reports the engine's bookkeeping counters.
func (e *Engine) Summary() Summary {
	return Summary{
		TotalFields:      len(e.values),
		CalculatedFields: len(e.calculations),
		Dependencies:     len(e.dependents),
		CalculationOrder: append([]string(nil), e.order...),
	}
}
