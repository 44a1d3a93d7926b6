// hmisim replays a saved screen design without a live PLC: it loads tag
// databases and per-component conditional styles, drives tag values from a
// scripted scenario and logs the style each component resolves to on every
// tick.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/javajack/hmistyle"
	"github.com/javajack/hmistyle/sim"
	"github.com/javajack/hmistyle/tagdb"
)

var (
	app          = kingpin.New("hmisim", "Replay a screen design against a scripted tag scenario.")
	tagsFile     = app.Flag("tags", "Tag databases JSON file.").Required().String()
	stylesFile   = app.Flag("styles", "Component conditional styles JSON file.").Required().String()
	scenarioFile = app.Flag("scenario", "Scenario YAML file.").Required().String()
	interval     = app.Flag("interval", "Delay between ticks.").Default("100ms").Duration()
	maxTicks     = app.Flag("max-ticks", "Stop after this many ticks regardless of scenario length.").Default("1000").Int()
	firstMatch   = app.Flag("first-match", "Use legacy first-in-list rule ordering instead of priority ordering.").Bool()
	verbose      = app.Flag("verbose", "Log every tag write.").Short('v').Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("simulator failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	store, err := loadStore(*tagsFile)
	if err != nil {
		return err
	}
	components, err := loadComponents(*stylesFile)
	if err != nil {
		return err
	}
	scenario, err := sim.LoadScenario(*scenarioFile)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(components))
	for name, mgr := range components {
		names = append(names, name)
		opts := []hmistyle.ManagerOption{
			hmistyle.WithErrorHandler(func(styleID, msg string) {
				logger.Warn("condition error",
					zap.String("component", name),
					zap.String("style_id", styleID),
					zap.String("error", msg))
			}),
		}
		if *firstMatch {
			opts = append(opts, hmistyle.WithFirstMatchOrder())
		}
		mgr.Configure(opts...)
	}
	sort.Strings(names)

	dm := sim.NewDataManagerFromStore(store)
	if *verbose {
		dm.Subscribe(func(path string, value any) {
			logger.Debug("tag write", zap.String("path", path), zap.Any("value", value))
		})
	}

	logger.Info("scenario loaded",
		zap.String("name", scenario.Name),
		zap.Int("ticks", scenario.Ticks),
		zap.Int("components", len(components)))

	player := sim.NewPlayer(scenario, dm)
	for tick := 0; tick < *maxTicks && !player.Done(); tick++ {
		played, err := player.Tick()
		if err != nil {
			return err
		}
		snapshot := dm.Snapshot()
		for _, name := range names {
			style, props := components[name].Resolve(snapshot, hmistyle.StateBase)
			styleID := "default"
			if style != nil {
				styleID = style.StyleID
			}
			logger.Info("active style",
				zap.Int("tick", played),
				zap.String("component", name),
				zap.String("style_id", styleID),
				zap.Any("properties", props))
		}
		time.Sleep(*interval)
	}
	logger.Info("scenario finished")
	return nil
}

func loadStore(path string) (*tagdb.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tags %q: %w", path, err)
	}
	store := tagdb.NewStore()
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("decode tags %q: %w", path, err)
	}
	return store, nil
}

// loadComponents reads a map of component name to conditional style manager.
func loadComponents(path string) (map[string]*hmistyle.Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles %q: %w", path, err)
	}
	var wrapper struct {
		Components map[string]*hmistyle.Manager `json:"components"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode styles %q: %w", path, err)
	}
	if wrapper.Components == nil {
		return nil, fmt.Errorf("styles %q: no components", path)
	}
	return wrapper.Components, nil
}
