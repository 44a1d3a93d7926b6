package hmistyle

import (
	"encoding/json"
)

// Properties holds the visual attributes of a button state as a free-form
// attribute dictionary. The renderer decides what each key means; the engine
// only selects and merges them.
type Properties map[string]any

// Clone returns a shallow copy; nested values are shared.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Apply merges the overlay into p. Overlay keys win; missing keys keep their
// base value.
func (p Properties) Apply(overlay Properties) {
	for k, v := range overlay {
		p[k] = v
	}
}

// AnimationProperties is the animation configuration carried by a style.
type AnimationProperties struct {
	Enabled   bool    `json:"enabled"`
	Type      string  `json:"type"`
	Intensity float64 `json:"intensity"`
}

// DefaultAnimation returns the disabled pulse animation styles start with.
func DefaultAnimation() AnimationProperties {
	return AnimationProperties{Enabled: false, Type: "pulse", Intensity: 1.0}
}

// Predicate is a caller-supplied condition over a tag-value snapshot. It is
// never serialized.
type Predicate func(tagValues map[string]any) (bool, error)

// ConditionalStyle is a named, prioritized visual rule. Its condition is
// either a structured Trigger, a free-form boolean expression, or a Go
// predicate; when more than one is set the trigger wins, then the
// expression, then the predicate.
type ConditionalStyle struct {
	StyleID            string              `json:"style_id"`
	Name               string              `json:"name,omitempty"`
	Condition          string              `json:"condition,omitempty"`
	Trigger            *Trigger            `json:"condition_data,omitempty"`
	Predicate          Predicate           `json:"-"`
	Priority           int                 `json:"priority"`
	Properties         Properties          `json:"properties"`
	Tooltip            string              `json:"tooltip,omitempty"`
	HoverProperties    Properties          `json:"hover_properties,omitempty"`
	PressedProperties  Properties          `json:"pressed_properties,omitempty"`
	DisabledProperties Properties          `json:"disabled_properties,omitempty"`
	Animation          AnimationProperties `json:"animation"`
	StyleSheet         string              `json:"style_sheet,omitempty"`
}

// Matches evaluates the style's condition against a tag-value snapshot.
func (s *ConditionalStyle) Matches(tagValues map[string]any) (bool, error) {
	if s.Trigger != nil && s.Trigger.Mode != "" && s.Trigger.Mode != TriggerOrdinary {
		return s.Trigger.Evaluate(tagValues)
	}
	if s.Condition != "" {
		ok, err := defaultEvaluator.IsConditionTrue(s.Condition, tagValues)
		if err != nil {
			return false, err
		}
		return ok, nil
	}
	if s.Predicate != nil {
		return s.Predicate(tagValues)
	}
	return true, nil
}

// Clone deep-copies the serializable fields; the predicate is shared.
func (s *ConditionalStyle) Clone() *ConditionalStyle {
	out := *s
	out.Properties = s.Properties.Clone()
	out.HoverProperties = s.HoverProperties.Clone()
	out.PressedProperties = s.PressedProperties.Clone()
	out.DisabledProperties = s.DisabledProperties.Clone()
	return &out
}

type conditionalStyleJSON ConditionalStyle

type conditionalStyleLegacy struct {
	conditionalStyleJSON

	// legacy top-level icon keys, folded into the state property maps
	Icon         string `json:"icon,omitempty"`
	HoverIcon    string `json:"hover_icon,omitempty"`
	PressedIcon  string `json:"pressed_icon,omitempty"`
	DisabledIcon string `json:"disabled_icon,omitempty"`
}

// UnmarshalJSON decodes a style, normalizing legacy icon placement into the
// per-state property maps.
func (s *ConditionalStyle) UnmarshalJSON(data []byte) error {
	var aux conditionalStyleLegacy
	aux.Animation = DefaultAnimation()
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = ConditionalStyle(aux.conditionalStyleJSON)
	foldIcon := func(props *Properties, icon string) {
		if icon == "" {
			return
		}
		if *props == nil {
			*props = Properties{}
		}
		if _, ok := (*props)["icon"]; !ok {
			(*props)["icon"] = icon
		}
	}
	foldIcon(&s.Properties, aux.Icon)
	foldIcon(&s.HoverProperties, aux.HoverIcon)
	foldIcon(&s.PressedProperties, aux.PressedIcon)
	foldIcon(&s.DisabledProperties, aux.DisabledIcon)
	if s.Properties == nil {
		s.Properties = Properties{}
	}
	return nil
}
