// Package schema maps source-shaped raw tables onto canonical column names
// and types, declared per table as a TableSpec.
package schema

import (
	"fmt"
)

// ColumnType is the declared type of a canonical column
type ColumnType string

const (
	TypeDate    ColumnType = "date"
	TypeNumber  ColumnType = "number"
	TypeInteger ColumnType = "integer"
	TypeText    ColumnType = "text"
)

// Valid reports whether t is a known column type
func (t ColumnType) Valid() bool {
	switch t {
	case TypeDate, TypeNumber, TypeInteger, TypeText:
		return true
	}
	return false
}

// ColumnSpec declares how one raw column maps into canonical form
type ColumnSpec struct {
	InName  string     `yaml:"in_name" json:"in_name"`
	OutName string     `yaml:"out_name" json:"out_name"`
	Type    ColumnType `yaml:"type" json:"type"`
}

// TableSpec is the ordered column mapping of one source table
type TableSpec struct {
	Name    string       `yaml:"name" json:"name"`
	Columns []ColumnSpec `yaml:"columns" json:"columns"`
}

// Validate checks the spec is usable
func (s TableSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("table spec: name is required")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table spec %s: no columns", s.Name)
	}

	seen := make(map[string]struct{}, len(s.Columns))
	for i, c := range s.Columns {
		if c.InName == "" || c.OutName == "" {
			return fmt.Errorf("table spec %s: column %d needs in_name and out_name", s.Name, i)
		}
		if !c.Type.Valid() {
			return fmt.Errorf("table spec %s: column %s has unknown type %q", s.Name, c.OutName, c.Type)
		}
		if _, dup := seen[c.OutName]; dup {
			return fmt.Errorf("table spec %s: duplicate out_name %s", s.Name, c.OutName)
		}
		seen[c.OutName] = struct{}{}
	}
	return nil
}

// Column returns the spec of an output column
func (s TableSpec) Column(outName string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.OutName == outName {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
