// Package sim replays a saved design: it keeps a runtime cache of tag
// values seeded from a tag store and drives it from scripted scenarios, so
// conditional styles can be resolved tick by tick without a live PLC.
package sim

import (
	"fmt"

	"github.com/javajack/hmistyle/tagdb"
)

// Listener is notified after a tag value changes.
type Listener func(path string, value any)

// DataManager is the runtime tag value cache. Keys are canonical
// "[DB]::Tag" paths; flattened array element paths are kept alongside for
// operand resolution.
//
// Like the rest of the engine it is single-threaded; callers drive it from
// one goroutine.
type DataManager struct {
	values    map[string]any
	types     map[string]string
	listeners []Listener
}

// NewDataManager creates an empty runtime cache.
func NewDataManager() *DataManager {
	return &DataManager{
		values: map[string]any{},
		types:  map[string]string{},
	}
}

// NewDataManagerFromStore seeds the cache from a tag store's snapshot.
func NewDataManagerFromStore(store *tagdb.Store) *DataManager {
	dm := NewDataManager()
	if store == nil {
		return dm
	}
	for path, value := range store.Snapshot() {
		dm.values[path] = value
	}
	for _, db := range store.Databases() {
		for _, t := range db.Tags {
			dm.types["["+db.Name+"]::"+t.Name] = t.DataType
		}
	}
	return dm
}

// Subscribe registers a change listener.
func (d *DataManager) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

// TagValue reads a tag value by path.
func (d *DataManager) TagValue(path string) (any, bool) {
	v, ok := d.values[path]
	return v, ok
}

// SetTagValue writes a tag value and notifies listeners. New paths are
// accepted; declared tags are coerced to their data type.
func (d *DataManager) SetTagValue(path string, value any) error {
	if path == "" {
		return fmt.Errorf("empty tag path")
	}
	if dt, ok := d.types[path]; ok {
		coerced, err := coerceToType(value, dt)
		if err != nil {
			return fmt.Errorf("tag %q: %w", path, err)
		}
		value = coerced
	}
	d.values[path] = value
	for _, l := range d.listeners {
		l(path, value)
	}
	return nil
}

// Snapshot returns a copy of all current values.
func (d *DataManager) Snapshot() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// coerceToType forces a written value into a tag's declared type.
func coerceToType(value any, dataType string) (any, error) {
	switch dataType {
	case tagdb.TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int:
			return v != 0, nil
		case float64:
			return v != 0, nil
		}
		return nil, fmt.Errorf("cannot write %T to BOOL tag", value)
	case tagdb.TypeInt, tagdb.TypeDint:
		f, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("cannot write %T to %s tag", value, dataType)
		}
		return float64(int64(f)), nil
	case tagdb.TypeReal:
		f, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("cannot write %T to REAL tag", value)
		}
		return f, nil
	case tagdb.TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	}
	return value, nil
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
