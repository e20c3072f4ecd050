package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidUnit is returned when a unit file lacks required fields
var ErrInvalidUnit = errors.New("invalid unit file")

// UnitFile is the on-disk shape of a unit. Both JSON and YAML use the
// same field names.
type UnitFile struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Groups    groupList  `json:"groups" yaml:"groups"`
	Exercises []Exercise `json:"ejercicios,omitempty" yaml:"ejercicios,omitempty"`
}

// groupList decodes a name -> words object while keeping key order
type groupList []Group

func (l *groupList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("groups: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var words []WordEntry
		if err := dec.Decode(&words); err != nil {
			return fmt.Errorf("group %s: %w", name, err)
		}
		*l = append(*l, Group{Name: name, Words: words})
	}

	_, err = dec.Token()
	return err
}

func (l *groupList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("groups: expected mapping at line %d", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value

		var words []WordEntry
		if err := value.Content[i+1].Decode(&words); err != nil {
			return fmt.Errorf("group %s: %w", name, err)
		}
		*l = append(*l, Group{Name: name, Words: words})
	}
	return nil
}

// Loader reads unit files from a directory
type Loader struct {
	basePath string
}

// NewLoader creates a new unit loader
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// BasePath returns the directory units are loaded from
func (l *Loader) BasePath() string {
	return l.basePath
}

// LoadUnit parses a single unit file, picking the decoder by extension
func (l *Loader) LoadUnit(filename string) (*Unit, error) {
	path := filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.basePath, filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	isYAML := ext == ".yaml" || ext == ".yml"
	if err := ValidateUnit(data, isYAML); err != nil {
		return nil, fmt.Errorf("parse unit file %s: %w", filepath.Base(path), err)
	}

	var file UnitFile
	if isYAML {
		err = yaml.Unmarshal(data, &file)
	} else {
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse unit file %s: %w", filepath.Base(path), err)
	}

	if file.ID == "" {
		return nil, fmt.Errorf("%w: %s: missing id", ErrInvalidUnit, filepath.Base(path))
	}
	if len(file.Groups) == 0 {
		slog.Warn("unit has no vocabulary groups", "unit", file.ID, "file", filepath.Base(path))
	}

	return &Unit{
		ID:        file.ID,
		Title:     file.Title,
		Groups:    []Group(file.Groups),
		Exercises: file.Exercises,
	}, nil
}

// LoadAll loads every unit file in the base directory, ordered by the
// numeric suffix of the unit id.
func (l *Loader) LoadAll() ([]*Unit, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("read content directory: %w", err)
	}

	var units []*Unit
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		unit, err := l.LoadUnit(entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[unit.ID]; ok {
			return nil, fmt.Errorf("%w: unit %s defined in both %s and %s", ErrInvalidUnit, unit.ID, prev, entry.Name())
		}
		seen[unit.ID] = entry.Name()
		units = append(units, unit)
	}

	SortUnits(units)
	return units, nil
}

// SortUnits orders units by id ordinal, falling back to the id itself
func SortUnits(units []*Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		oi, oj := unitOrdinal(units[i].ID), unitOrdinal(units[j].ID)
		if oi != oj {
			return oi < oj
		}
		return units[i].ID < units[j].ID
	})
}
