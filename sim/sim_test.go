package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/hmistyle"
	"github.com/javajack/hmistyle/tagdb"
)

func testStore(t *testing.T) *tagdb.Store {
	t.Helper()
	store := tagdb.NewStore()
	db, err := store.AddDatabase("Tank")
	require.NoError(t, err)
	require.NoError(t, db.AddTag(tagdb.NewTag("Level", tagdb.TypeReal)))
	require.NoError(t, db.AddTag(tagdb.NewTag("Pump", tagdb.TypeBool)))
	return store
}

func TestDataManager_SeededFromStore(t *testing.T) {
	dm := NewDataManagerFromStore(testStore(t))

	v, ok := dm.TagValue("[Tank]::Level")
	require.True(t, ok)
	assert.Equal(t, float64(0), v)

	v, ok = dm.TagValue("[Tank]::Pump")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestDataManager_TypeCoercion(t *testing.T) {
	dm := NewDataManagerFromStore(testStore(t))

	// declared BOOL tags coerce numeric writes
	require.NoError(t, dm.SetTagValue("[Tank]::Pump", 1))
	v, _ := dm.TagValue("[Tank]::Pump")
	assert.Equal(t, true, v)

	require.Error(t, dm.SetTagValue("[Tank]::Pump", "banana"))

	// REAL accepts ints
	require.NoError(t, dm.SetTagValue("[Tank]::Level", 7))
	v, _ = dm.TagValue("[Tank]::Level")
	assert.Equal(t, float64(7), v)

	// undeclared paths are stored as written
	require.NoError(t, dm.SetTagValue("Aux", "raw"))
	v, _ = dm.TagValue("Aux")
	assert.Equal(t, "raw", v)

	require.Error(t, dm.SetTagValue("", 1))
}

func TestDataManager_Listeners(t *testing.T) {
	dm := NewDataManager()
	var gotPath string
	var gotValue any
	dm.Subscribe(func(path string, value any) {
		gotPath = path
		gotValue = value
	})

	require.NoError(t, dm.SetTagValue("X", 5))
	assert.Equal(t, "X", gotPath)
	assert.Equal(t, 5, gotValue)
}

func TestDataManager_SnapshotIsCopy(t *testing.T) {
	dm := NewDataManager()
	require.NoError(t, dm.SetTagValue("X", 1))

	snap := dm.Snapshot()
	snap["X"] = 99
	v, _ := dm.TagValue("X")
	assert.Equal(t, 1, v)
}

const scenarioYAML = `
name: fill and drain
ticks: 4
steps:
  - at_tick: 0
    set:
      "[Tank]::Level": 10
  - at_tick: 2
    set:
      "[Tank]::Level": 95
      "[Tank]::Pump": true
  - at_tick: 3
    set:
      "[Tank]::Level": 20
`

func TestScenario_Parse(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "fill and drain", sc.Name)
	assert.Equal(t, 4, sc.Ticks)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, 0, sc.Steps[0].AtTick)

	_, err = ParseScenario([]byte("steps: ["))
	require.Error(t, err)
}

func TestScenario_TicksDefaultFromSteps(t *testing.T) {
	sc, err := ParseScenario([]byte("steps:\n  - at_tick: 7\n    set:\n      X: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, sc.Ticks)
}

func TestPlayer_Replay(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	dm := NewDataManagerFromStore(testStore(t))
	player := NewPlayer(sc, dm)

	tick, err := player.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, tick)
	v, _ := dm.TagValue("[Tank]::Level")
	assert.Equal(t, float64(10), v)

	_, err = player.Tick() // tick 1, no steps
	require.NoError(t, err)
	v, _ = dm.TagValue("[Tank]::Level")
	assert.Equal(t, float64(10), v)

	_, err = player.Tick() // tick 2
	require.NoError(t, err)
	v, _ = dm.TagValue("[Tank]::Level")
	assert.Equal(t, float64(95), v)
	pump, _ := dm.TagValue("[Tank]::Pump")
	assert.Equal(t, true, pump)

	assert.False(t, player.Done())
	_, err = player.Tick() // tick 3
	require.NoError(t, err)
	assert.True(t, player.Done())
}

func TestPlayer_DrivesStyleResolution(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	dm := NewDataManagerFromStore(testStore(t))
	player := NewPlayer(sc, dm)

	m := hmistyle.NewManager(hmistyle.WithDefaultStyle(hmistyle.Properties{"background_color": "#333"}))
	m.AddStyle(&hmistyle.ConditionalStyle{
		StyleID:  "high",
		Priority: 10,
		Trigger: &hmistyle.Trigger{
			Mode:     hmistyle.TriggerRange,
			Operand1: hmistyle.TagOperand("Tank", "Level"),
			Operator: hmistyle.OpGreaterEqual,
			Operand2: hmistyle.ConstOperand(90.0),
		},
		Properties: hmistyle.Properties{"background_color": "#d00"},
	})

	_, err = player.Tick() // level 10
	require.NoError(t, err)
	style, _ := m.Resolve(dm.Snapshot(), hmistyle.StateBase)
	assert.Nil(t, style)

	_, err = player.Tick()
	require.NoError(t, err)
	_, err = player.Tick() // level 95
	require.NoError(t, err)
	style, props := m.Resolve(dm.Snapshot(), hmistyle.StateBase)
	require.NotNil(t, style)
	assert.Equal(t, "high", style.StyleID)
	assert.Equal(t, "#d00", props["background_color"])
}
