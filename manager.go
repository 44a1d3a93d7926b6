package hmistyle

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Visual states a caller can request an overlay for. The engine does not
// track pointer or press state itself; the renderer supplies it.
const (
	StateBase     = ""
	StateHover    = "hover"
	StatePressed  = "pressed"
	StateDisabled = "disabled"
)

// TagSnapshotProvider supplies a read-only snapshot of current tag values.
// Implemented by tagdb.Store and sim.DataManager.
type TagSnapshotProvider interface {
	Snapshot() map[string]any
}

// ErrorHandler receives condition evaluation errors that the resolver
// otherwise swallows at render time.
type ErrorHandler func(styleID, message string)

// Manager owns the ordered conditional styles of one component plus its
// default style, and resolves the active style for a tag-value snapshot.
//
// Managers are not safe for concurrent use; design-time mutation and runtime
// resolution are expected to happen on one goroutine, or be serialized by
// the caller.
type Manager struct {
	styles       []*ConditionalStyle
	defaultStyle Properties

	firstMatchOrder bool
	onError         ErrorHandler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDefaultStyle sets the properties returned when no rule matches.
func WithDefaultStyle(p Properties) ManagerOption {
	return func(m *Manager) { m.defaultStyle = p }
}

// WithFirstMatchOrder makes ActiveStyle walk rules in insertion order
// instead of priority order, for parity with projects saved by older
// designers.
func WithFirstMatchOrder() ManagerOption {
	return func(m *Manager) { m.firstMatchOrder = true }
}

// WithErrorHandler registers a hook for condition evaluation errors.
func WithErrorHandler(h ErrorHandler) ManagerOption {
	return func(m *Manager) { m.onError = h }
}

// NewManager creates an empty style manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{defaultStyle: Properties{}}
	m.Configure(opts...)
	return m
}

// Configure applies options to an existing manager, e.g. one produced by
// deserialization.
func (m *Manager) Configure(opts ...ManagerOption) {
	for _, opt := range opts {
		opt(m)
	}
}

// uniqueStyleID derives an unused style id from the requested base.
func (m *Manager) uniqueStyleID(base string) string {
	existing := make(map[string]bool, len(m.styles))
	for _, s := range m.styles {
		existing[s.StyleID] = true
	}
	if base == "" {
		base = "style"
	}
	if base != "style" && !existing[base] {
		return base
	}
	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s_%d", base, suffix)
		if !existing[candidate] {
			return candidate
		}
	}
}

// AddStyle appends a style, assigning it a unique style id.
func (m *Manager) AddStyle(s *ConditionalStyle) {
	s.StyleID = m.uniqueStyleID(s.StyleID)
	m.styles = append(m.styles, s)
}

// RemoveStyle removes the style at index; out-of-range indices are ignored.
func (m *Manager) RemoveStyle(index int) {
	if index < 0 || index >= len(m.styles) {
		return
	}
	m.styles = append(m.styles[:index], m.styles[index+1:]...)
}

// UpdateStyle replaces the style at index; out-of-range indices are ignored.
func (m *Manager) UpdateStyle(index int, s *ConditionalStyle) {
	if index < 0 || index >= len(m.styles) {
		return
	}
	m.styles[index] = s
}

// Styles returns the rule list in insertion order.
func (m *Manager) Styles() []*ConditionalStyle {
	return m.styles
}

// Style returns the rule at index, or nil when out of range.
func (m *Manager) Style(index int) *ConditionalStyle {
	if index < 0 || index >= len(m.styles) {
		return nil
	}
	return m.styles[index]
}

// DefaultStyle returns the fallback properties.
func (m *Manager) DefaultStyle() Properties {
	return m.defaultStyle
}

// SetDefaultStyle replaces the fallback properties.
func (m *Manager) SetDefaultStyle(p Properties) {
	if p == nil {
		p = Properties{}
	}
	m.defaultStyle = p
}

// orderedStyles returns the evaluation order: priority descending with ties
// keeping insertion order, unless first-match ordering was requested.
func (m *Manager) orderedStyles() []*ConditionalStyle {
	if m.firstMatchOrder || len(m.styles) < 2 {
		return m.styles
	}
	ordered := make([]*ConditionalStyle, len(m.styles))
	copy(ordered, m.styles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered
}

// ActiveStyle resolves the properties to render for the given tag values and
// visual state. The first style whose condition holds wins; a style whose
// condition errors is skipped (the error goes to the error handler, if any).
// With no match the default style is returned. The result is always a copy.
func (m *Manager) ActiveStyle(tagValues map[string]any, state string) Properties {
	_, props := m.Resolve(tagValues, state)
	return props
}

// Resolve works like ActiveStyle but also returns the style that matched,
// or nil when the default style applies.
func (m *Manager) Resolve(tagValues map[string]any, state string) (*ConditionalStyle, Properties) {
	if tagValues == nil {
		tagValues = map[string]any{}
	}
	for _, s := range m.orderedStyles() {
		match, err := s.Matches(tagValues)
		if err != nil {
			if m.onError != nil {
				m.onError(s.StyleID, err.Error())
			}
			continue
		}
		if !match {
			continue
		}
		props := s.Properties.Clone()
		switch state {
		case StateHover:
			props.Apply(s.HoverProperties)
		case StatePressed:
			props.Apply(s.PressedProperties)
		case StateDisabled:
			props.Apply(s.DisabledProperties)
		}
		if s.Tooltip != "" {
			props["tooltip"] = s.Tooltip
		}
		return s, props
	}
	return nil, m.defaultStyle.Clone()
}

// ActiveStyleFrom resolves against a snapshot provider instead of a raw map.
func (m *Manager) ActiveStyleFrom(provider TagSnapshotProvider, state string) Properties {
	var tagValues map[string]any
	if provider != nil {
		tagValues = provider.Snapshot()
	}
	return m.ActiveStyle(tagValues, state)
}

// Validate checks every rule for expression and trigger problems. Tag type
// checks are skipped when info is nil.
func (m *Manager) Validate(info TagInfoProvider) []ValidationIssue {
	var issues []ValidationIssue
	for _, s := range m.styles {
		if issue := checkExpressionSyntax(s.StyleID, s.Condition); issue != nil {
			issues = append(issues, *issue)
		}
		if err := ValidateTrigger(s.Trigger, info, "Trigger"); err != nil {
			issues = append(issues, ValidationIssue{
				Severity: SeverityError,
				StyleID:  s.StyleID,
				Message:  err.Error(),
			})
		}
	}
	return issues
}

type managerJSON struct {
	ConditionalStyles []*ConditionalStyle `json:"conditional_styles"`
	DefaultStyle      Properties          `json:"default_style"`
}

// MarshalJSON serializes the rule list and default style.
func (m *Manager) MarshalJSON() ([]byte, error) {
	return json.Marshal(managerJSON{
		ConditionalStyles: m.styles,
		DefaultStyle:      m.defaultStyle,
	})
}

// UnmarshalJSON replaces the rule list and default style, keeping the
// manager's configured options.
func (m *Manager) UnmarshalJSON(data []byte) error {
	var aux managerJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.styles = aux.ConditionalStyles
	m.defaultStyle = aux.DefaultStyle
	if m.defaultStyle == nil {
		m.defaultStyle = Properties{}
	}
	return nil
}
