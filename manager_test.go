package hmistyle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EmptyReturnsDefault(t *testing.T) {
	m := NewManager(WithDefaultStyle(Properties{"background_color": "#333"}))
	props := m.ActiveStyle(nil, StateBase)
	assert.Equal(t, Properties{"background_color": "#333"}, props)

	// the result is a copy
	props["background_color"] = "#fff"
	assert.Equal(t, "#333", m.DefaultStyle()["background_color"])
}

func TestManager_FirstTrueConditionWins(t *testing.T) {
	m := NewManager()
	m.AddStyle(&ConditionalStyle{
		StyleID:    "cold",
		Condition:  "temp < 10",
		Properties: Properties{"background_color": "#00f"},
	})
	m.AddStyle(&ConditionalStyle{
		StyleID:         "hot",
		Condition:       "temp > 50",
		Properties:      Properties{"background_color": "#f00"},
		HoverProperties: Properties{"border_width": 2.0},
	})

	props := m.ActiveStyle(map[string]any{"temp": 70}, StateBase)
	assert.Equal(t, "#f00", props["background_color"])

	props = m.ActiveStyle(map[string]any{"temp": 70}, StateHover)
	assert.Equal(t, "#f00", props["background_color"])
	assert.Equal(t, 2.0, props["border_width"])
}

func TestManager_PriorityOrdering(t *testing.T) {
	m := NewManager()
	m.AddStyle(&ConditionalStyle{
		StyleID:    "low",
		Priority:   1,
		Properties: Properties{"background_color": "#111"},
	})
	m.AddStyle(&ConditionalStyle{
		StyleID:    "high",
		Priority:   10,
		Properties: Properties{"background_color": "#999"},
	})

	// both match (no conditions); the higher priority wins
	style, _ := m.Resolve(map[string]any{}, StateBase)
	require.NotNil(t, style)
	assert.Equal(t, "high", style.StyleID)

	// ties keep insertion order
	m.Style(1).Priority = 1
	style, _ = m.Resolve(map[string]any{}, StateBase)
	assert.Equal(t, "low", style.StyleID)
}

func TestManager_FirstMatchOrderOption(t *testing.T) {
	m := NewManager(WithFirstMatchOrder())
	m.AddStyle(&ConditionalStyle{StyleID: "first", Priority: 1, Properties: Properties{"v": "a"}})
	m.AddStyle(&ConditionalStyle{StyleID: "second", Priority: 10, Properties: Properties{"v": "b"}})

	style, _ := m.Resolve(map[string]any{}, StateBase)
	require.NotNil(t, style)
	assert.Equal(t, "first", style.StyleID)
}

func TestManager_TooltipIncluded(t *testing.T) {
	m := NewManager()
	m.AddStyle(&ConditionalStyle{
		StyleID:    "run",
		Tooltip:    "Motor running",
		Properties: Properties{"background_color": "#0a0"},
	})
	props := m.ActiveStyle(map[string]any{}, StateBase)
	assert.Equal(t, "Motor running", props["tooltip"])
}

func TestManager_ErrorsSkipRule(t *testing.T) {
	var reported []string
	m := NewManager(
		WithDefaultStyle(Properties{"background_color": "#333"}),
		WithErrorHandler(func(styleID, msg string) {
			reported = append(reported, styleID+": "+msg)
		}),
	)
	m.AddStyle(&ConditionalStyle{
		StyleID:    "broken",
		Condition:  "missing > 1",
		Properties: Properties{"background_color": "#f0f"},
	})
	m.AddStyle(&ConditionalStyle{
		StyleID:    "fallback",
		Condition:  "temp > 0",
		Properties: Properties{"background_color": "#0f0"},
	})

	props := m.ActiveStyle(map[string]any{"temp": 5}, StateBase)
	assert.Equal(t, "#0f0", props["background_color"])
	require.Len(t, reported, 1)
	assert.Contains(t, reported[0], "broken")
	assert.Contains(t, reported[0], "Unknown variable")

	// all rules erroring falls back to the default style
	m2 := NewManager(WithDefaultStyle(Properties{"background_color": "#333"}))
	m2.AddStyle(&ConditionalStyle{StyleID: "broken", Condition: "missing > 1"})
	props = m2.ActiveStyle(map[string]any{}, StateBase)
	assert.Equal(t, "#333", props["background_color"])
}

func TestManager_UniqueStyleIDs(t *testing.T) {
	m := NewManager()

	s1 := &ConditionalStyle{}
	m.AddStyle(s1)
	assert.Equal(t, "style_1", s1.StyleID)

	s2 := &ConditionalStyle{StyleID: "style"}
	m.AddStyle(s2)
	assert.Equal(t, "style_2", s2.StyleID)

	custom := &ConditionalStyle{StyleID: "alarm"}
	m.AddStyle(custom)
	assert.Equal(t, "alarm", custom.StyleID)

	dup := &ConditionalStyle{StyleID: "alarm"}
	m.AddStyle(dup)
	assert.Equal(t, "alarm_1", dup.StyleID)
}

func TestManager_RemoveAndUpdateBounds(t *testing.T) {
	m := NewManager()
	m.AddStyle(&ConditionalStyle{StyleID: "a"})
	m.AddStyle(&ConditionalStyle{StyleID: "b"})

	m.RemoveStyle(5)
	m.RemoveStyle(-1)
	assert.Len(t, m.Styles(), 2)

	m.UpdateStyle(3, &ConditionalStyle{StyleID: "x"})
	assert.Equal(t, "a", m.Style(0).StyleID)

	m.UpdateStyle(0, &ConditionalStyle{StyleID: "c"})
	assert.Equal(t, "c", m.Style(0).StyleID)

	m.RemoveStyle(0)
	require.Len(t, m.Styles(), 1)
	assert.Equal(t, "b", m.Style(0).StyleID)

	assert.Nil(t, m.Style(9))
}

func TestManager_JSONRoundTrip(t *testing.T) {
	m := NewManager(WithDefaultStyle(Properties{"background_color": "#333"}))
	m.AddStyle(&ConditionalStyle{
		StyleID:    "run",
		Condition:  "speed > 0",
		Priority:   3,
		Properties: Properties{"background_color": "#0a0"},
		Animation:  DefaultAnimation(),
	})
	m.AddStyle(&ConditionalStyle{
		StyleID: "stopped",
		Trigger: &Trigger{Mode: TriggerOff, Operand1: TagOperand("Motors", "Run")},
		Properties: Properties{
			"background_color": "#a00",
			"text_value":       "STOPPED",
		},
		Animation: DefaultAnimation(),
	})

	data, err := json.Marshal(m)
	require.NoError(t, err)

	decoded := NewManager()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, m.Styles(), decoded.Styles())
	assert.Equal(t, m.DefaultStyle(), decoded.DefaultStyle())
}

func TestManager_Validate(t *testing.T) {
	m := NewManager()
	m.AddStyle(&ConditionalStyle{StyleID: "ok", Condition: "a > 1"})
	m.AddStyle(&ConditionalStyle{StyleID: "bad_expr", Condition: "a >"})
	m.AddStyle(&ConditionalStyle{StyleID: "bad_trigger", Trigger: &Trigger{Mode: TriggerOn}})

	issues := m.Validate(nil)
	require.Len(t, issues, 2)
	assert.Equal(t, "bad_expr", issues[0].StyleID)
	assert.Contains(t, issues[0].Message, "Invalid expression syntax")
	assert.Equal(t, "bad_trigger", issues[1].StyleID)
	assert.Contains(t, issues[1].Message, "Operand 1 must be specified.")
}

type snapshotMap map[string]any

func (s snapshotMap) Snapshot() map[string]any { return s }

func TestManager_ActiveStyleFromProvider(t *testing.T) {
	m := NewManager()
	m.AddStyle(&ConditionalStyle{
		StyleID:    "on",
		Trigger:    &Trigger{Mode: TriggerOn, Operand1: TagOperand("", "Run")},
		Properties: Properties{"background_color": "#0a0"},
	})

	props := m.ActiveStyleFrom(snapshotMap{"Run": true}, StateBase)
	assert.Equal(t, "#0a0", props["background_color"])

	props = m.ActiveStyleFrom(nil, StateBase)
	assert.Empty(t, props)
}
