// Package vocab maps category names to ids.
// The vocabulary is always supplied by the caller. We never invent ids.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/cyclopcam/labelkit/pkg/geom"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var ErrUnknownCategory = errors.New("unknown category")

// Vocab is a bijection between category names and category ids
type Vocab struct {
	nameToID map[string]int32
	idToName map[int32]string
}

// New builds a vocabulary. Two names may not share an id.
func New(nameToID map[string]int32) (*Vocab, error) {
	idToName := lo.Invert(nameToID)
	if len(idToName) != len(nameToID) {
		return nil, fmt.Errorf("%w: category ids are not unique", geom.ErrFormat)
	}
	for name, id := range nameToID {
		if name == "" {
			return nil, fmt.Errorf("%w: empty category name", geom.ErrFormat)
		}
		if id < 0 {
			return nil, fmt.Errorf("%w: category '%v' has negative id %v", geom.ErrFormat, name, id)
		}
	}
	return &Vocab{
		nameToID: nameToID,
		idToName: idToName,
	}, nil
}

// FromNames assigns ids 0, 1, 2... in list order
func FromNames(names []string) (*Vocab, error) {
	m := make(map[string]int32, len(names))
	for i, n := range names {
		if _, dup := m[n]; dup {
			return nil, fmt.Errorf("%w: category '%v' appears twice", geom.ErrFormat, n)
		}
		m[n] = int32(i)
	}
	return New(m)
}

// Len is the number of categories
func (v *Vocab) Len() int {
	return len(v.nameToID)
}

func (v *Vocab) ID(name string) (int32, error) {
	id, ok := v.nameToID[name]
	if !ok {
		return 0, fmt.Errorf("%w: '%v'", ErrUnknownCategory, name)
	}
	return id, nil
}

func (v *Vocab) Name(id int32) (string, error) {
	name, ok := v.idToName[id]
	if !ok {
		return "", fmt.Errorf("%w: id %v", ErrUnknownCategory, id)
	}
	return name, nil
}

// IDs returns all ids in ascending order
func (v *Vocab) IDs() []int32 {
	ids := lo.Keys(v.idToName)
	slices.Sort(ids)
	return ids
}

// Names returns all names, ordered by id
func (v *Vocab) Names() []string {
	return lo.Map(v.IDs(), func(id int32, _ int) string {
		return v.idToName[id]
	})
}

// IsDense is true if the ids are exactly 0..Len()-1, which is what YOLO requires
func (v *Vocab) IsDense() bool {
	for i, id := range v.IDs() {
		if id != int32(i) {
			return false
		}
	}
	return true
}

// LoadClassFile reads one class name per line. The first line is id 0.
// Blank lines are ignored.
func LoadClassFile(filename string) (*Vocab, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return FromNames(classes)
}

// SaveClassFile writes the names in id order, one per line.
// Only dense vocabularies can be written this way.
func (v *Vocab) SaveClassFile(filename string) error {
	if !v.IsDense() {
		return fmt.Errorf("%w: class files need ids 0..%v", geom.ErrFormat, v.Len()-1)
	}
	return os.WriteFile(filename, []byte(strings.Join(v.Names(), "\n")+"\n"), 0644)
}

// LoadYAML reads a vocabulary from a YAML file. Three layouts are understood:
//
//	person: 0          a mapping of name to id
//	car: 2
//
//	names: [person, bicycle, car]          a YOLO dataset file, with a list of names
//
//	names: {0: person, 1: bicycle}         a YOLO dataset file, with a mapping of id to name
func LoadYAML(filename string) (*Vocab, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseYAML(raw)
}

func ParseYAML(raw []byte) (*Vocab, error) {
	doc := struct {
		Names yaml.Node `yaml:"names"`
	}{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
	}
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		names := []string{}
		if err := doc.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
		}
		return FromNames(names)
	case yaml.MappingNode:
		idToName := map[int32]string{}
		if err := doc.Names.Decode(&idToName); err != nil {
			return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
		}
		nameToID := lo.Invert(idToName)
		if len(nameToID) != len(idToName) {
			return nil, fmt.Errorf("%w: category names are not unique", geom.ErrFormat)
		}
		return New(nameToID)
	}

	nameToID := map[string]int32{}
	if err := yaml.Unmarshal(raw, &nameToID); err != nil {
		return nil, fmt.Errorf("%w: %v", geom.ErrFormat, err)
	}
	return New(nameToID)
}

// SaveYAML writes the name to id mapping
func (v *Vocab) SaveYAML(filename string) error {
	raw, err := yaml.Marshal(v.nameToID)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, raw, 0644)
}
