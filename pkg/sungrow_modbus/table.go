package sungrow_modbus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Table is the register descriptor catalogue for one device profile.
// It is built once at startup and shared read-only across all devices
// of the same model.
type Table struct {
	byName  map[string]*RegisterDescriptor
	byWord  map[RegisterClass]map[uint16]*RegisterDescriptor
	ordered []*RegisterDescriptor
}

// NewTable validates the descriptor set and builds the lookup indexes.
// Overlapping address ranges within a class are rejected.
func NewTable(descriptors []RegisterDescriptor) (*Table, error) {
	t := &Table{
		byName: make(map[string]*RegisterDescriptor, len(descriptors)),
		byWord: make(map[RegisterClass]map[uint16]*RegisterDescriptor),
	}
	for i := range descriptors {
		d := &descriptors[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate descriptor name %q", ErrInvalidTable, d.Name)
		}
		t.byName[d.Name] = d

		words := t.byWord[d.Class]
		if words == nil {
			words = make(map[uint16]*RegisterDescriptor)
			t.byWord[d.Class] = words
		}
		for w := uint16(0); w < d.WordCount(); w++ {
			addr := d.Address + w
			if other, taken := words[addr]; taken {
				return nil, fmt.Errorf("%w: %s overlaps %s at %s address %d",
					ErrInvalidTable, d.Name, other.Name, d.Class, addr)
			}
			words[addr] = d
		}
		t.ordered = append(t.ordered, d)
	}
	sort.Slice(t.ordered, func(i, j int) bool {
		if t.ordered[i].Class != t.ordered[j].Class {
			return t.ordered[i].Class < t.ordered[j].Class
		}
		return t.ordered[i].Address < t.ordered[j].Address
	})
	return t, nil
}

// Lookup returns the descriptor registered under name.
func (t *Table) Lookup(name string) (*RegisterDescriptor, error) {
	d, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDescriptor, name)
	}
	return d, nil
}

// Resolve finds the descriptor whose register span covers the given
// address, if any. For 32-bit quantities both word addresses resolve
// to the same descriptor.
func (t *Table) Resolve(class RegisterClass, address uint16) (*RegisterDescriptor, bool) {
	d, ok := t.byWord[class][address]
	return d, ok
}

// Descriptors returns all descriptors ordered by class then address.
func (t *Table) Descriptors() []*RegisterDescriptor {
	return t.ordered
}

// descriptorSpec is the external register map schema: a JSON object
// per quantity, keyed by name. Matches the persisted config format of
// the Sungrow register map.
type descriptorSpec struct {
	Type          *uint8           `json:"type"`
	Address       uint16           `json:"address"`
	Description   string           `json:"description"`
	Default       int64            `json:"default"`
	Scale         float64          `json:"scale"`
	DataType      string           `json:"data_type"`
	RegisterCount uint16           `json:"register_count"`
	Range         []int64          `json:"range"`
	Values        map[string]int64 `json:"values"`
}

func (s *descriptorSpec) toDescriptor(name string) (RegisterDescriptor, error) {
	if s.Type == nil {
		return RegisterDescriptor{}, fmt.Errorf("%w: %s: missing register type", ErrInvalidTable, name)
	}
	if *s.Type > uint8(ClassInput) {
		return RegisterDescriptor{}, fmt.Errorf("%w: %s: unknown register type %d", ErrInvalidTable, name, *s.Type)
	}
	width := DataWidth(s.DataType)
	if s.DataType == "" {
		width = U16
	}
	if !width.valid() {
		return RegisterDescriptor{}, fmt.Errorf("%w: %s: unknown data type %q", ErrInvalidTable, name, s.DataType)
	}
	count := s.RegisterCount
	if count == 0 {
		count = 1
	}
	if count != width.WordCount() {
		return RegisterDescriptor{}, fmt.Errorf("%w: %s: register_count %d inconsistent with data type %s",
			ErrInvalidTable, name, count, width)
	}
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	d := RegisterDescriptor{
		Name:        name,
		Class:       RegisterClass(*s.Type),
		Address:     s.Address,
		Width:       width,
		Scale:       scale,
		Default:     s.Default,
		Description: s.Description,
	}
	if len(s.Values) > 0 {
		d.SymbolicValues = s.Values
	}
	switch len(s.Range) {
	case 0:
	case 2:
		d.ValidRange = &RawRange{Min: s.Range[0], Max: s.Range[1]}
	default:
		return RegisterDescriptor{}, fmt.Errorf("%w: %s: range must have exactly two elements", ErrInvalidTable, name)
	}
	return d, nil
}

// ParseTable builds a Table from the JSON register map schema.
func ParseTable(data []byte) (*Table, error) {
	var specs map[string]descriptorSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTable, err)
	}
	// deterministic order so validation errors are stable
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]RegisterDescriptor, 0, len(specs))
	for _, name := range names {
		spec := specs[name]
		d, err := spec.toDescriptor(name)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return NewTable(descriptors)
}

// LoadTable reads a register map file. A missing file falls back to
// the built-in default table; malformed content is a load error.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTable, err)
	}
	return ParseTable(data)
}
