package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a record ID is not present in a table.
var ErrNotFound = errors.New("resource: not found")

// ResourceLoader reads and holds the game database. Array tables are indexed
// by 1-based ID with a nil entry at index 0.
type ResourceLoader struct {
	DataPath   string
	System     *SystemData
	Terms      *Terms
	Actors     []*Actor
	Enemies    []*Enemy
	Items      []*Item
	Skills     []*Skill
	States     []*State
	Attributes []*Attribute
	Animations []*Animation
	Troops     []*Troop
}

// NewLoader creates a ResourceLoader for the given data directory.
func NewLoader(dataPath string) *ResourceLoader {
	return &ResourceLoader{
		DataPath: dataPath,
		System:   &SystemData{},
		Terms:    DefaultTerms(),
	}
}

// Load reads all data files. Missing tables are left empty; unreadable or
// malformed files are errors.
func (rl *ResourceLoader) Load() error {
	loaders := []func() error{
		rl.loadSystem,
		rl.loadTerms,
		func() (err error) { rl.Actors, err = loadArray[Actor](rl, "Actors"); return },
		func() (err error) { rl.Enemies, err = loadArray[Enemy](rl, "Enemies"); return },
		func() (err error) { rl.Items, err = loadArray[Item](rl, "Items"); return },
		func() (err error) { rl.Skills, err = loadArray[Skill](rl, "Skills"); return },
		func() (err error) { rl.States, err = loadArray[State](rl, "States"); return },
		func() (err error) { rl.Attributes, err = loadArray[Attribute](rl, "Attributes"); return },
		func() (err error) { rl.Animations, err = loadArray[Animation](rl, "Animations"); return },
		func() (err error) { rl.Troops, err = loadArray[Troop](rl, "Troops"); return },
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// source picks <name>.yaml over <name>.json. ok is false when neither exists.
func (rl *ResourceLoader) source(name string) (path string, isYAML, ok bool) {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(rl.DataPath, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true, true
		}
	}
	p := filepath.Join(rl.DataPath, name+".json")
	if _, err := os.Stat(p); err == nil {
		return p, false, true
	}
	return "", false, false
}

// decode reads path into out. YAML documents are normalised to JSON first so
// that a single set of json tags describes both formats.
func decode(path string, isYAML bool, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", path, err)
	}
	if isYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("resource: parse %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("resource: convert %s: %w", path, err)
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return nil
}

func loadArray[T any](rl *ResourceLoader, name string) ([]*T, error) {
	path, isYAML, ok := rl.source(name)
	if !ok {
		return nil, nil
	}
	var arr []*T
	if err := decode(path, isYAML, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

func (rl *ResourceLoader) loadSystem() error {
	path, isYAML, ok := rl.source("System")
	if !ok {
		return nil
	}
	return decode(path, isYAML, rl.System)
}

// loadTerms overlays the file on the default vocabulary, so a partial file
// only replaces the entries it names.
func (rl *ResourceLoader) loadTerms() error {
	path, isYAML, ok := rl.source("Terms")
	if !ok {
		return nil
	}
	return decode(path, isYAML, rl.Terms)
}

func byID[T any](arr []*T, id int, idOf func(*T) int) *T {
	if id > 0 && id < len(arr) && arr[id] != nil && idOf(arr[id]) == id {
		return arr[id]
	}
	for _, v := range arr {
		if v != nil && idOf(v) == id {
			return v
		}
	}
	return nil
}

// ActorByID returns the Actor with the given ID, or nil.
func (rl *ResourceLoader) ActorByID(id int) *Actor {
	return byID(rl.Actors, id, func(a *Actor) int { return a.ID })
}

// EnemyByID returns the Enemy with the given ID, or nil.
func (rl *ResourceLoader) EnemyByID(id int) *Enemy {
	return byID(rl.Enemies, id, func(e *Enemy) int { return e.ID })
}

// ItemByID returns the Item with the given ID, or nil.
func (rl *ResourceLoader) ItemByID(id int) *Item {
	return byID(rl.Items, id, func(i *Item) int { return i.ID })
}

// SkillByID returns the Skill with the given ID, or nil.
func (rl *ResourceLoader) SkillByID(id int) *Skill {
	return byID(rl.Skills, id, func(s *Skill) int { return s.ID })
}

// StateByID returns the State with the given ID, or nil.
func (rl *ResourceLoader) StateByID(id int) *State {
	return byID(rl.States, id, func(s *State) int { return s.ID })
}

// AttributeByID returns the Attribute with the given ID, or nil.
func (rl *ResourceLoader) AttributeByID(id int) *Attribute {
	return byID(rl.Attributes, id, func(a *Attribute) int { return a.ID })
}

// AnimationByID returns the Animation with the given ID, or nil.
func (rl *ResourceLoader) AnimationByID(id int) *Animation {
	return byID(rl.Animations, id, func(a *Animation) int { return a.ID })
}

// TroopByID returns the Troop with the given ID, or nil.
func (rl *ResourceLoader) TroopByID(id int) *Troop {
	return byID(rl.Troops, id, func(t *Troop) int { return t.ID })
}

// Troop returns the troop or a wrapped ErrNotFound.
func (rl *ResourceLoader) Troop(id int) (*Troop, error) {
	if t := rl.TroopByID(id); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("troop %d: %w", id, ErrNotFound)
}

// SkillsForLevel returns the skill IDs an actor knows at the given level.
func (rl *ResourceLoader) SkillsForLevel(actorID, level int) []int {
	a := rl.ActorByID(actorID)
	if a == nil {
		return nil
	}
	var ids []int
	for _, l := range a.Skills {
		if l.Level <= level {
			ids = append(ids, l.SkillID)
		}
	}
	return ids
}
