package hmistyle

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TriggerMode selects when a trigger is considered active.
type TriggerMode string

const (
	TriggerOrdinary TriggerMode = "Ordinary"
	TriggerOn       TriggerMode = "On"
	TriggerOff      TriggerMode = "Off"
	TriggerRange    TriggerMode = "Range"
)

// TriggerModes lists every valid mode in display order.
func TriggerModes() []TriggerMode {
	return []TriggerMode{TriggerOrdinary, TriggerOn, TriggerOff, TriggerRange}
}

// Valid reports whether the mode is one of the four known variants.
func (m TriggerMode) Valid() bool {
	switch m {
	case TriggerOrdinary, TriggerOn, TriggerOff, TriggerRange:
		return true
	}
	return false
}

// Comparison operators accepted by Range triggers.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpBetween      = "between"
	OpOutside      = "outside"
)

// RangeOperators lists the comparison operators in display order.
func RangeOperators() []string {
	return []string{OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween, OpOutside}
}

// OperandSource tells an Operand where its value comes from.
type OperandSource string

const (
	SourceConstant OperandSource = "constant"
	SourceTag      OperandSource = "tag"
)

// TagRef identifies a tag inside a named database.
type TagRef struct {
	DB   string `json:"db_name,omitempty"`
	Name string `json:"tag_name"`
}

// Path returns the canonical "[DB]::Name" form, or the bare name when the
// reference carries no database.
func (r TagRef) Path() string {
	if r.DB == "" {
		return r.Name
	}
	return "[" + r.DB + "]::" + r.Name
}

// Operand is a value source inside a trigger or action: either a constant
// literal or a tag reference with optional array indices.
type Operand struct {
	Source  OperandSource
	Value   any
	Tag     *TagRef
	Indices []*Operand
}

// ConstOperand builds a constant operand.
func ConstOperand(value any) *Operand {
	return &Operand{Source: SourceConstant, Value: value}
}

// TagOperand builds a tag-reference operand.
func TagOperand(db, name string, indices ...*Operand) *Operand {
	return &Operand{Source: SourceTag, Tag: &TagRef{DB: db, Name: name}, Indices: indices}
}

// Resolve returns the operand's current value. Constants are coerced to a
// comparable form; tag references are looked up in tagValues by canonical
// path first, then by bare name. The second result is false when the operand
// cannot be resolved.
func (o *Operand) Resolve(tagValues map[string]any) (any, bool) {
	if o == nil {
		return nil, false
	}
	switch o.Source {
	case SourceConstant:
		return coerceValue(o.Value), true
	case SourceTag:
		if o.Tag == nil {
			return nil, false
		}
		v, ok := tagValues[o.Tag.Path()]
		if !ok {
			v, ok = tagValues[o.Tag.Name]
		}
		if !ok {
			return nil, false
		}
		if len(o.Indices) > 0 {
			return indexInto(v, o.Indices, tagValues)
		}
		return coerceValue(v), true
	}
	return nil, false
}

// indexInto resolves each index operand to an integer and walks into nested
// array values.
func indexInto(v any, indices []*Operand, tagValues map[string]any) (any, bool) {
	for _, idx := range indices {
		raw, ok := idx.Resolve(tagValues)
		if !ok {
			return nil, false
		}
		i, ok := toInt(raw)
		if !ok {
			return nil, false
		}
		arr, ok := v.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil, false
		}
		v = arr[i]
	}
	return coerceValue(v), true
}

type operandJSON struct {
	MainTag *operandMainJSON `json:"main_tag,omitempty"`
	Indices []*Operand       `json:"indices,omitempty"`

	// legacy flat form
	Source OperandSource   `json:"source,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

type operandMainJSON struct {
	Source OperandSource   `json:"source"`
	Value  json.RawMessage `json:"value"`
}

// MarshalJSON writes the wrapped {main_tag:{source,value},indices} form.
func (o *Operand) MarshalJSON() ([]byte, error) {
	var value any
	switch o.Source {
	case SourceTag:
		value = o.Tag
	default:
		value = o.Value
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	out := operandJSON{
		MainTag: &operandMainJSON{Source: o.Source, Value: raw},
	}
	if len(o.Indices) > 0 {
		out.Indices = o.Indices
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both the wrapped form and the legacy flat
// {source,value} form.
func (o *Operand) UnmarshalJSON(data []byte) error {
	var aux operandJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src := aux.Source
	raw := aux.Value
	if aux.MainTag != nil {
		src = aux.MainTag.Source
		raw = aux.MainTag.Value
	}
	o.Source = src
	o.Indices = aux.Indices
	o.Tag = nil
	o.Value = nil
	if len(raw) == 0 {
		return nil
	}
	if src == SourceTag {
		var ref TagRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return fmt.Errorf("decode tag operand: %w", err)
		}
		o.Tag = &ref
		return nil
	}
	return json.Unmarshal(raw, &o.Value)
}

// Trigger describes when a rule applies: always (Ordinary), when a boolean
// operand is on/off, or when a range comparison holds.
type Trigger struct {
	Mode       TriggerMode
	Operand1   *Operand
	Operator   string
	Operand2   *Operand
	LowerBound *Operand
	UpperBound *Operand
}

// Evaluate resolves the trigger against a tag-value snapshot. A nil trigger
// is Ordinary. Resolution failures are returned as errors, never panics.
func (t *Trigger) Evaluate(tagValues map[string]any) (bool, error) {
	if t == nil || t.Mode == "" || t.Mode == TriggerOrdinary {
		return true, nil
	}
	switch t.Mode {
	case TriggerOn, TriggerOff:
		v, ok := t.Operand1.Resolve(tagValues)
		if !ok {
			return false, fmt.Errorf("%s condition: operand1 tag value not found", t.Mode)
		}
		if t.Mode == TriggerOn {
			return truthy(v), nil
		}
		return !truthy(v), nil
	case TriggerRange:
		return t.evaluateRange(tagValues)
	}
	return false, fmt.Errorf("Unsupported mode: %s", t.Mode)
}

func (t *Trigger) evaluateRange(tagValues map[string]any) (bool, error) {
	v, ok := t.Operand1.Resolve(tagValues)
	if !ok {
		return false, fmt.Errorf("Range condition: operand1 tag value not found")
	}
	op := t.Operator
	if op == "" {
		op = OpEqual
	}
	if op == OpBetween || op == OpOutside {
		lower, ok := t.LowerBound.Resolve(tagValues)
		if !ok {
			return false, fmt.Errorf("Range condition: lower bound value not found")
		}
		upper, ok := t.UpperBound.Resolve(tagValues)
		if !ok {
			return false, fmt.Errorf("Range condition: upper bound value not found")
		}
		geLower, err := compareValues(v, lower, OpGreaterEqual)
		if err != nil {
			return false, fmt.Errorf("Range condition error: %v", err)
		}
		leUpper, err := compareValues(v, upper, OpLessEqual)
		if err != nil {
			return false, fmt.Errorf("Range condition error: %v", err)
		}
		if op == OpBetween {
			return geLower && leUpper, nil
		}
		return !geLower || !leUpper, nil
	}
	operand, ok := t.Operand2.Resolve(tagValues)
	if !ok {
		return false, fmt.Errorf("Range condition: operand2 value not found")
	}
	result, err := compareValues(v, operand, op)
	if err != nil {
		return false, fmt.Errorf("Range comparison error: %v", err)
	}
	return result, nil
}

type triggerJSON struct {
	Mode       TriggerMode `json:"mode"`
	Operand1   *Operand    `json:"operand1,omitempty"`
	Operator   string      `json:"operator,omitempty"`
	Operand2   *Operand    `json:"operand2,omitempty"`
	LowerBound *Operand    `json:"lower_bound,omitempty"`
	UpperBound *Operand    `json:"upper_bound,omitempty"`

	// legacy aliases
	Tag     *Operand `json:"tag,omitempty"`
	Operand *Operand `json:"operand,omitempty"`
	Lower   *Operand `json:"lower,omitempty"`
	Upper   *Operand `json:"upper,omitempty"`
}

// MarshalJSON writes the canonical key set.
func (t *Trigger) MarshalJSON() ([]byte, error) {
	mode := t.Mode
	if mode == "" {
		mode = TriggerOrdinary
	}
	return json.Marshal(triggerJSON{
		Mode:       mode,
		Operand1:   t.Operand1,
		Operator:   t.Operator,
		Operand2:   t.Operand2,
		LowerBound: t.LowerBound,
		UpperBound: t.UpperBound,
	})
}

// UnmarshalJSON accepts the canonical keys plus the legacy aliases
// tag/operand/lower/upper, and defaults the operator for Range triggers the
// way older project files expect.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var aux triggerJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Mode = aux.Mode
	if t.Mode == "" {
		t.Mode = TriggerOrdinary
	}
	t.Operand1 = aux.Operand1
	if t.Operand1 == nil {
		t.Operand1 = aux.Tag
	}
	t.Operator = aux.Operator
	t.Operand2 = aux.Operand2
	if t.Operand2 == nil {
		t.Operand2 = aux.Operand
	}
	t.LowerBound = aux.LowerBound
	if t.LowerBound == nil {
		t.LowerBound = aux.Lower
	}
	t.UpperBound = aux.UpperBound
	if t.UpperBound == nil {
		t.UpperBound = aux.Upper
	}
	if t.Mode == TriggerRange && t.Operator == "" {
		if t.LowerBound != nil || t.UpperBound != nil {
			t.Operator = OpBetween
		} else {
			t.Operator = OpEqual
		}
	}
	return nil
}

// coerceValue maps numeric values onto float64 so comparisons work across
// the integer widths tags come in. Booleans and strings pass through.
func coerceValue(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch val := coerceValue(v).(type) {
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// compareValues applies a comparison operator across two resolved operand
// values. Numeric operands compare as float64; equality also works for
// booleans and strings.
func compareValues(a, b any, op string) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case OpEqual:
			return af == bf, nil
		case OpNotEqual:
			return af != bf, nil
		case OpGreater:
			return af > bf, nil
		case OpGreaterEqual:
			return af >= bf, nil
		case OpLess:
			return af < bf, nil
		case OpLessEqual:
			return af <= bf, nil
		}
		return false, fmt.Errorf("Unsupported operator: %s", op)
	}
	if op == OpEqual || op == OpNotEqual {
		ac, bc := coerceValue(a), coerceValue(b)
		if isComparable(ac) && isComparable(bc) {
			if op == OpEqual {
				return ac == bc, nil
			}
			return ac != bc, nil
		}
	}
	return false, fmt.Errorf("cannot compare %T and %T with %q", a, b, op)
}

func isComparable(v any) bool {
	switch v.(type) {
	case nil, bool, string, float64:
		return true
	}
	return false
}
