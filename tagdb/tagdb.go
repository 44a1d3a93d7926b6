// Package tagdb manages named databases of typed PLC-style tags: the
// variables HMI screens observe and write. It supplies value snapshots for
// condition evaluation and flat-file exchange of tag definitions.
package tagdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Tag data types.
const (
	TypeBool   = "BOOL"
	TypeInt    = "INT"
	TypeDint   = "DINT"
	TypeReal   = "REAL"
	TypeString = "STRING"
)

// Tag is a named, typed variable, optionally array-valued.
type Tag struct {
	Name      string `json:"name"`
	DataType  string `json:"data_type"`
	Comment   string `json:"comment,omitempty"`
	Length    int    `json:"length,omitempty"`
	ArrayDims []int  `json:"array_dims,omitempty"`
	Value     any    `json:"value"`
}

// DefaultValue builds the initial value for a tag: a zero scalar, or a
// nested array of zero scalars matching dims.
func DefaultValue(dims []int, dataType string) any {
	if len(dims) == 0 {
		return zeroValue(dataType)
	}
	arr := make([]any, dims[0])
	for i := range arr {
		arr[i] = DefaultValue(dims[1:], dataType)
	}
	return arr
}

func zeroValue(dataType string) any {
	switch dataType {
	case TypeBool:
		return false
	case TypeInt, TypeDint:
		return float64(0)
	case TypeReal:
		return float64(0)
	default:
		return ""
	}
}

// NewTag creates a tag with its default value.
func NewTag(name, dataType string, dims ...int) *Tag {
	return &Tag{
		Name:      name,
		DataType:  dataType,
		ArrayDims: dims,
		Value:     DefaultValue(dims, dataType),
	}
}

// Element returns the value at the given index path, or the whole value when
// indices is empty.
func (t *Tag) Element(indices []int) (any, bool) {
	v := t.Value
	for _, i := range indices {
		arr, ok := v.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil, false
		}
		v = arr[i]
	}
	return v, true
}

// SetElement writes the value at the given index path; with no indices the
// whole value is replaced.
func (t *Tag) SetElement(indices []int, value any) bool {
	if len(indices) == 0 {
		t.Value = value
		return true
	}
	v := t.Value
	for _, i := range indices[:len(indices)-1] {
		arr, ok := v.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return false
		}
		v = arr[i]
	}
	arr, ok := v.([]any)
	last := indices[len(indices)-1]
	if !ok || last < 0 || last >= len(arr) {
		return false
	}
	arr[last] = value
	return true
}

// Database is a named collection of tags with unique names.
type Database struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tags []*Tag `json:"tags"`
}

// Tag returns the named tag, or nil.
func (db *Database) Tag(name string) *Tag {
	for _, t := range db.Tags {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// IsTagNameUnique reports whether no tag in the database carries the name.
func (db *Database) IsTagNameUnique(name string) bool {
	return db.Tag(name) == nil
}

// AddTag appends a tag; the name must be unused within the database.
func (db *Database) AddTag(t *Tag) error {
	if t.Name == "" {
		return fmt.Errorf("tag name must not be empty")
	}
	if !db.IsTagNameUnique(t.Name) {
		return fmt.Errorf("tag %q already exists in database %q", t.Name, db.Name)
	}
	db.Tags = append(db.Tags, t)
	return nil
}

// RemoveTag deletes the named tag; unknown names are ignored.
func (db *Database) RemoveTag(name string) {
	for i, t := range db.Tags {
		if t.Name == name {
			db.Tags = append(db.Tags[:i], db.Tags[i+1:]...)
			return
		}
	}
}

// UpdateTag replaces the tag currently named originalName.
func (db *Database) UpdateTag(originalName string, t *Tag) error {
	if t.Name != originalName && !db.IsTagNameUnique(t.Name) {
		return fmt.Errorf("tag %q already exists in database %q", t.Name, db.Name)
	}
	for i, existing := range db.Tags {
		if existing.Name == originalName {
			db.Tags[i] = t
			return nil
		}
	}
	return fmt.Errorf("tag %q not found in database %q", originalName, db.Name)
}

// Store is the source of truth for all tag databases of a project.
//
// Not safe for concurrent use; the designer and runtime each own their own
// store.
type Store struct {
	databases map[string]*Database
	order     []string // database ids in creation order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{databases: map[string]*Database{}}
}

// AddDatabase creates a database with a fresh id. Names must be unique
// across the store.
func (s *Store) AddDatabase(name string) (*Database, error) {
	if name == "" {
		return nil, fmt.Errorf("database name must not be empty")
	}
	if s.FindByName(name) != nil {
		return nil, fmt.Errorf("database %q already exists", name)
	}
	db := &Database{ID: uuid.NewString(), Name: name}
	s.databases[db.ID] = db
	s.order = append(s.order, db.ID)
	return db, nil
}

// Database returns a database by id, or nil.
func (s *Store) Database(id string) *Database {
	return s.databases[id]
}

// Databases returns all databases in creation order.
func (s *Store) Databases() []*Database {
	out := make([]*Database, 0, len(s.order))
	for _, id := range s.order {
		if db, ok := s.databases[id]; ok {
			out = append(out, db)
		}
	}
	return out
}

// FindByName returns the database with the given name, or nil.
func (s *Store) FindByName(name string) *Database {
	for _, db := range s.databases {
		if db.Name == name {
			return db
		}
	}
	return nil
}

// RemoveDatabase deletes a database by id; unknown ids are ignored.
func (s *Store) RemoveDatabase(id string) {
	if _, ok := s.databases[id]; !ok {
		return
	}
	delete(s.databases, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// RenameDatabase changes a database's name, keeping names unique.
func (s *Store) RenameDatabase(id, newName string) error {
	db := s.databases[id]
	if db == nil {
		return fmt.Errorf("database %q not found", id)
	}
	if existing := s.FindByName(newName); existing != nil && existing.ID != id {
		return fmt.Errorf("database %q already exists", newName)
	}
	db.Name = newName
	return nil
}

// TagDataType returns the declared data type for a tag, looked up by
// database name. Satisfies the engine's TagInfoProvider.
func (s *Store) TagDataType(dbName, tagName string) (string, bool) {
	db := s.FindByName(dbName)
	if db == nil {
		return "", false
	}
	t := db.Tag(tagName)
	if t == nil {
		return "", false
	}
	return t.DataType, true
}

// ParsePath splits a canonical "[DB]::Tag" or "[DB]::Tag[0][1]" path into
// database name, tag name and element indices. A path without the database
// prefix yields an empty database name.
func ParsePath(path string) (dbName, tagName string, indices []int, ok bool) {
	rest := path
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]::")
		if end < 0 {
			return "", "", nil, false
		}
		dbName = rest[1:end]
		rest = rest[end+3:]
	}
	if i := strings.IndexByte(rest, '['); i >= 0 {
		tagName = rest[:i]
		for _, part := range strings.Split(rest[i:], "[") {
			part = strings.TrimSuffix(part, "]")
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return "", "", nil, false
			}
			indices = append(indices, n)
		}
	} else {
		tagName = rest
	}
	return dbName, tagName, indices, tagName != ""
}

func (s *Store) resolve(path string) (*Tag, []int, bool) {
	dbName, tagName, indices, ok := ParsePath(path)
	if !ok {
		return nil, nil, false
	}
	if dbName != "" {
		db := s.FindByName(dbName)
		if db == nil {
			return nil, nil, false
		}
		t := db.Tag(tagName)
		if t == nil {
			return nil, nil, false
		}
		return t, indices, true
	}
	// bare tag name: first database that has it wins
	for _, db := range s.Databases() {
		if t := db.Tag(tagName); t != nil {
			return t, indices, true
		}
	}
	return nil, nil, false
}

// TagValue reads a tag or array element by canonical path. Satisfies the
// engine's TagWriter read side.
func (s *Store) TagValue(path string) (any, bool) {
	t, indices, ok := s.resolve(path)
	if !ok {
		return nil, false
	}
	return t.Element(indices)
}

// SetTagValue writes a tag or array element by canonical path.
func (s *Store) SetTagValue(path string, value any) error {
	t, indices, ok := s.resolve(path)
	if !ok {
		return fmt.Errorf("tag %q not found", path)
	}
	if !t.SetElement(indices, value) {
		return fmt.Errorf("index out of range for tag %q", path)
	}
	return nil
}

// Snapshot flattens every tag's current value into a map keyed by canonical
// path. Array tags contribute both the whole nested value and one entry per
// element ("[DB]::Tag[0][1]"). Satisfies the engine's TagSnapshotProvider.
func (s *Store) Snapshot() map[string]any {
	out := map[string]any{}
	for _, db := range s.Databases() {
		for _, t := range db.Tags {
			path := "[" + db.Name + "]::" + t.Name
			out[path] = t.Value
			out[t.Name] = t.Value
			flattenElements(out, path, t.Value)
		}
	}
	return out
}

func flattenElements(out map[string]any, prefix string, v any) {
	arr, ok := v.([]any)
	if !ok {
		return
	}
	for i, elem := range arr {
		key := fmt.Sprintf("%s[%d]", prefix, i)
		out[key] = elem
		flattenElements(out, key, elem)
	}
}

type storeJSON struct {
	TagDatabases map[string]*Database `json:"tag_databases"`
	Order        []string             `json:"order,omitempty"`
}

// MarshalJSON serializes all databases keyed by id.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(storeJSON{TagDatabases: s.databases, Order: s.order})
}

// UnmarshalJSON replaces the store contents.
func (s *Store) UnmarshalJSON(data []byte) error {
	var aux storeJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.databases = aux.TagDatabases
	if s.databases == nil {
		s.databases = map[string]*Database{}
	}
	s.order = nil
	seen := map[string]bool{}
	for _, id := range aux.Order {
		if _, ok := s.databases[id]; ok && !seen[id] {
			s.order = append(s.order, id)
			seen[id] = true
		}
	}
	var leftover []string
	for id := range s.databases {
		if !seen[id] {
			leftover = append(leftover, id)
		}
	}
	sort.Strings(leftover)
	s.order = append(s.order, leftover...)
	return nil
}
