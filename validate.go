package hmistyle

import (
	"fmt"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Rule will never match or will misbehave at runtime
	SeverityWarning                 // Rule may produce unexpected results
)

// ValidationIssue represents a single problem found while validating a
// conditional style rule at design time.
type ValidationIssue struct {
	Severity Severity
	StyleID  string
	Message  string
}

// String formats the issue as "[ERROR] style_1: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.StyleID, v.Message)
}

// TypedOperand pairs an operand with the declared data type of the tag it
// references. DataType is empty for constants and for tags whose type is
// unknown to the editor.
type TypedOperand struct {
	Operand  *Operand
	DataType string
}

func (o *TypedOperand) present() bool {
	return o != nil && o.Operand != nil
}

// ValidateRangeSection checks a range trigger section for completeness and
// type compatibility. The prefix names the dialog section in the returned
// message. A nil return means the section is valid.
func ValidateRangeSection(op1 *TypedOperand, operator string, op2, lower, upper *TypedOperand, prefix string) error {
	if prefix == "" {
		prefix = "Range Trigger"
	}
	if !op1.present() {
		return fmt.Errorf("%s: Operand 1 must be specified.", prefix)
	}
	if operator == OpBetween || operator == OpOutside {
		if !lower.present() {
			return fmt.Errorf("%s: Lower Bound must be specified.", prefix)
		}
		if !upper.present() {
			return fmt.Errorf("%s: Upper Bound must be specified.", prefix)
		}
	} else {
		if !op2.present() {
			return fmt.Errorf("%s: Operand 2 must be specified.", prefix)
		}
	}

	if op1.DataType == "" {
		return nil
	}
	others := []*TypedOperand{op2}
	if operator == OpBetween || operator == OpOutside {
		others = []*TypedOperand{lower, upper}
	}
	for _, other := range others {
		if other == nil || other.DataType == "" {
			continue
		}
		if !TypesCompatible(other.DataType, op1.DataType) {
			return fmt.Errorf("Data type must match Operand 1.")
		}
	}
	return nil
}

// TagInfoProvider supplies declared tag metadata for design-time validation.
// Implemented by tagdb.Store.
type TagInfoProvider interface {
	TagDataType(db, name string) (string, bool)
}

// typedOperand looks up the declared type for an operand, when known.
func typedOperand(op *Operand, info TagInfoProvider) *TypedOperand {
	if op == nil {
		return nil
	}
	to := &TypedOperand{Operand: op}
	if info != nil && op.Source == SourceTag && op.Tag != nil {
		if dt, ok := info.TagDataType(op.Tag.DB, op.Tag.Name); ok {
			to.DataType = dt
		}
	}
	return to
}

// ValidateTrigger checks a trigger for structural completeness. Range
// triggers additionally get operand type checks when info is non-nil.
func ValidateTrigger(t *Trigger, info TagInfoProvider, prefix string) error {
	if t == nil || t.Mode == "" || t.Mode == TriggerOrdinary {
		return nil
	}
	if !t.Mode.Valid() {
		return fmt.Errorf("%s: unknown trigger mode %q", prefix, t.Mode)
	}
	switch t.Mode {
	case TriggerOn, TriggerOff:
		if t.Operand1 == nil {
			return fmt.Errorf("%s: Operand 1 must be specified.", prefix)
		}
		return nil
	case TriggerRange:
		return ValidateRangeSection(
			typedOperand(t.Operand1, info),
			t.Operator,
			typedOperand(t.Operand2, info),
			typedOperand(t.LowerBound, info),
			typedOperand(t.UpperBound, info),
			prefix,
		)
	}
	return nil
}

// checkExpressionSyntax compiles a condition expression and reports any
// grammar or whitelist violation as an issue.
func checkExpressionSyntax(styleID, expression string) *ValidationIssue {
	if expression == "" {
		return nil
	}
	if _, err := defaultEvaluator.(*safeEvaluator).compile(expression); err != nil {
		return &ValidationIssue{
			Severity: SeverityError,
			StyleID:  styleID,
			Message:  fmt.Sprintf("invalid condition expression %q: %v", expression, err),
		}
	}
	return nil
}
