package hmistyle

import (
	"fmt"
)

// ActionType discriminates serialized actions.
type ActionType string

const (
	ActionBit  ActionType = "bit"
	ActionWord ActionType = "word"
)

// BitActionMode selects how a bit action drives its target.
type BitActionMode string

const (
	BitMomentary BitActionMode = "Momentary"
	BitAlternate BitActionMode = "Alternate"
	BitSet       BitActionMode = "Set"
	BitReset     BitActionMode = "Reset"
)

// WordActionMode selects the arithmetic a word action applies.
type WordActionMode string

const (
	WordAdd      WordActionMode = "Addition"
	WordSub      WordActionMode = "Subtraction"
	WordSetValue WordActionMode = "Set Value"
	WordMul      WordActionMode = "Multiplication"
	WordDiv      WordActionMode = "Division"
)

// TagWriter reads and writes live tag values by canonical path.
// Implemented by tagdb.Store and sim.DataManager.
type TagWriter interface {
	TagValue(path string) (any, bool)
	SetTagValue(path string, value any) error
}

// BitAction writes a boolean tag when pressed, gated by its trigger.
type BitAction struct {
	Trigger *Trigger      `json:"trigger,omitempty"`
	Target  *TagRef       `json:"target"`
	Mode    BitActionMode `json:"mode"`
}

// Validate checks the action's structure and trigger.
func (a *BitAction) Validate(info TagInfoProvider) error {
	if a.Target == nil || a.Target.Name == "" {
		return fmt.Errorf("Bit Action: target tag must be specified.")
	}
	switch a.Mode {
	case BitMomentary, BitAlternate, BitSet, BitReset:
	default:
		return fmt.Errorf("Bit Action: unknown mode %q", a.Mode)
	}
	return ValidateTrigger(a.Trigger, info, "Bit Action Trigger")
}

// Apply performs the write for a press (pressed=true) or release
// (pressed=false) event. A trigger that does not hold makes the action a
// no-op; a trigger that cannot be resolved is an error.
func (a *BitAction) Apply(w TagWriter, tagValues map[string]any, pressed bool) error {
	active, err := a.Trigger.Evaluate(tagValues)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}
	path := a.Target.Path()
	switch a.Mode {
	case BitMomentary:
		return w.SetTagValue(path, pressed)
	case BitAlternate:
		if !pressed {
			return nil
		}
		cur, _ := w.TagValue(path)
		return w.SetTagValue(path, !truthy(cur))
	case BitSet:
		if !pressed {
			return nil
		}
		return w.SetTagValue(path, true)
	case BitReset:
		if !pressed {
			return nil
		}
		return w.SetTagValue(path, false)
	}
	return fmt.Errorf("Bit Action: unknown mode %q", a.Mode)
}

// WordAction writes a numeric tag when pressed, gated by its trigger.
type WordAction struct {
	Trigger *Trigger       `json:"trigger,omitempty"`
	Target  *TagRef        `json:"target"`
	Mode    WordActionMode `json:"mode"`
	Value   *Operand       `json:"value"`
}

// Validate checks the action's structure and trigger.
func (a *WordAction) Validate(info TagInfoProvider) error {
	if a.Target == nil || a.Target.Name == "" {
		return fmt.Errorf("Word Action: target tag must be specified.")
	}
	if a.Value == nil {
		return fmt.Errorf("Word Action: value operand must be specified.")
	}
	switch a.Mode {
	case WordAdd, WordSub, WordSetValue, WordMul, WordDiv:
	default:
		return fmt.Errorf("Word Action: unknown mode %q", a.Mode)
	}
	return ValidateTrigger(a.Trigger, info, "Word Action Trigger")
}

// Apply performs the arithmetic write on press. Release events are no-ops
// for word actions.
func (a *WordAction) Apply(w TagWriter, tagValues map[string]any, pressed bool) error {
	if !pressed {
		return nil
	}
	active, err := a.Trigger.Evaluate(tagValues)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}
	raw, ok := a.Value.Resolve(tagValues)
	if !ok {
		return fmt.Errorf("Word Action: value operand could not be resolved")
	}
	v, ok := toFloat(raw)
	if !ok {
		return fmt.Errorf("Word Action: value operand is not numeric")
	}
	path := a.Target.Path()
	if a.Mode == WordSetValue {
		return w.SetTagValue(path, v)
	}
	curRaw, _ := w.TagValue(path)
	cur, ok := toFloat(curRaw)
	if !ok {
		return fmt.Errorf("Word Action: target %q is not numeric", path)
	}
	switch a.Mode {
	case WordAdd:
		return w.SetTagValue(path, cur+v)
	case WordSub:
		return w.SetTagValue(path, cur-v)
	case WordMul:
		return w.SetTagValue(path, cur*v)
	case WordDiv:
		if v == 0 {
			return fmt.Errorf("Word Action: division by zero")
		}
		return w.SetTagValue(path, cur/v)
	}
	return fmt.Errorf("Word Action: unknown mode %q", a.Mode)
}

// Action is the serialized envelope for a bit or word action.
type Action struct {
	Type ActionType  `json:"action_type"`
	Bit  *BitAction  `json:"bit,omitempty"`
	Word *WordAction `json:"word,omitempty"`
}

// Validate checks the envelope and its payload.
func (a *Action) Validate(info TagInfoProvider) error {
	switch a.Type {
	case ActionBit:
		if a.Bit == nil {
			return fmt.Errorf("bit action payload missing")
		}
		return a.Bit.Validate(info)
	case ActionWord:
		if a.Word == nil {
			return fmt.Errorf("word action payload missing")
		}
		return a.Word.Validate(info)
	}
	return fmt.Errorf("unknown action type %q", a.Type)
}

// Apply dispatches to the payload.
func (a *Action) Apply(w TagWriter, tagValues map[string]any, pressed bool) error {
	switch a.Type {
	case ActionBit:
		return a.Bit.Apply(w, tagValues, pressed)
	case ActionWord:
		return a.Word.Apply(w, tagValues, pressed)
	}
	return fmt.Errorf("unknown action type %q", a.Type)
}
