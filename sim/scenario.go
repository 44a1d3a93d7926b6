package sim

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Step applies a batch of tag writes at one tick.
type Step struct {
	AtTick int            `yaml:"at_tick"`
	Set    map[string]any `yaml:"set"`
}

// Scenario is a scripted sequence of tag writes replayed over ticks.
type Scenario struct {
	Name  string `yaml:"name"`
	Ticks int    `yaml:"ticks"`
	Steps []Step `yaml:"steps"`
}

// ParseScenario decodes a YAML scenario and sorts its steps by tick.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sort.SliceStable(sc.Steps, func(i, j int) bool {
		return sc.Steps[i].AtTick < sc.Steps[j].AtTick
	})
	if sc.Ticks == 0 && len(sc.Steps) > 0 {
		sc.Ticks = sc.Steps[len(sc.Steps)-1].AtTick + 1
	}
	return &sc, nil
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %q: %w", path, err)
	}
	return ParseScenario(data)
}

// Player replays a scenario against a DataManager one tick at a time.
type Player struct {
	scenario *Scenario
	dm       *DataManager
	tick     int
	next     int // index of the next unapplied step
}

// NewPlayer creates a player positioned before tick 0.
func NewPlayer(sc *Scenario, dm *DataManager) *Player {
	return &Player{scenario: sc, dm: dm}
}

// Tick applies every step scheduled at the current tick and advances.
// It returns the tick that was just played.
func (p *Player) Tick() (int, error) {
	current := p.tick
	for p.next < len(p.scenario.Steps) && p.scenario.Steps[p.next].AtTick == current {
		for path, value := range p.scenario.Steps[p.next].Set {
			if err := p.dm.SetTagValue(path, value); err != nil {
				return current, fmt.Errorf("tick %d: %w", current, err)
			}
		}
		p.next++
	}
	p.tick++
	return current, nil
}

// Done reports whether the scenario has played out.
func (p *Player) Done() bool {
	return p.tick >= p.scenario.Ticks && p.next >= len(p.scenario.Steps)
}
