package types

import (
	"fmt"
	"strings"
)

// Family groups declared column types that share a synthesis strategy.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyInteger
	FamilyTinyInt
	FamilyBoolean
	FamilyChar
	FamilyVarchar
	FamilyText
	FamilyDecimal
	FamilyFloat
	FamilyDate
	FamilyTime
	FamilyDateTime
	FamilyTimestamp
	FamilyYear
	FamilyEnum
	FamilyUUID
)

var familyNames = map[Family]string{
	FamilyUnknown:   "unknown",
	FamilyInteger:   "integer",
	FamilyTinyInt:   "tinyint",
	FamilyBoolean:   "boolean",
	FamilyChar:      "char",
	FamilyVarchar:   "varchar",
	FamilyText:      "text",
	FamilyDecimal:   "decimal",
	FamilyFloat:     "float",
	FamilyDate:      "date",
	FamilyTime:      "time",
	FamilyDateTime:  "datetime",
	FamilyTimestamp: "timestamp",
	FamilyYear:      "year",
	FamilyEnum:      "enum",
	FamilyUUID:      "uuid",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// CatalogColumn is a column exactly as the store's catalog reports it.
type CatalogColumn struct {
	Name             string
	RawType          string
	Nullable         bool
	Default          string
	IsPrimary        bool
	IsAutoIncrement  bool
	Comment          string
	EnumValues       []string
	ForeignKeyTable  string
	ForeignKeyColumn string
}

type CatalogIndex struct {
	Name    string
	Columns []string
	Unique  bool
}

// ColumnMetadata is the constraint record extracted from a CatalogColumn.
// Size and DecimalPlace are nil when the declared type carries no explicit value.
type ColumnMetadata struct {
	Name             string   `json:"name" yaml:"name"`
	RawType          string   `json:"raw_type" yaml:"raw_type"`
	Type             string   `json:"type" yaml:"type"`
	Family           Family   `json:"family" yaml:"family"`
	Size             *int     `json:"size,omitempty" yaml:"size,omitempty"`
	DecimalPlace     *int     `json:"decimal_place,omitempty" yaml:"decimal_place,omitempty"`
	EnumValues       []string `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
	Nullable         bool     `json:"nullable" yaml:"nullable"`
	Primary          bool     `json:"primary" yaml:"primary"`
	Unique           bool     `json:"unique" yaml:"unique"`
	AutoGenerated    bool     `json:"auto_generated" yaml:"auto_generated"`
	ForeignKeyTable  string   `json:"foreign_key_table,omitempty" yaml:"foreign_key_table,omitempty"`
	ForeignKeyColumn string   `json:"foreign_key_column,omitempty" yaml:"foreign_key_column,omitempty"`
	Comment          string   `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Distinct reports whether generated values for the column must be pairwise distinct.
func (c ColumnMetadata) Distinct() bool {
	return c.Primary || c.Unique
}

// TableMetadata is built fresh from the live catalog on every reflection.
type TableMetadata struct {
	Name          string           `json:"name" yaml:"name"`
	Columns       []ColumnMetadata `json:"columns" yaml:"columns"`
	PrimaryKey    []string         `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	UniqueColumns []string         `json:"unique_columns,omitempty" yaml:"unique_columns,omitempty"`
	UniqueIndexes [][]string       `json:"unique_indexes,omitempty" yaml:"unique_indexes,omitempty"`
}

func (t *TableMetadata) Column(name string) (*ColumnMetadata, bool) {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// InsertableColumns returns the non auto-generated column names in declared order.
func (t *TableMetadata) InsertableColumns() []string {
	names := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.AutoGenerated {
			continue
		}
		names = append(names, col.Name)
	}
	return names
}

// Dependencies lists the tables referenced by foreign keys, excluding self references.
func (t *TableMetadata) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, col := range t.Columns {
		if col.ForeignKeyTable == "" || col.ForeignKeyTable == t.Name || seen[col.ForeignKeyTable] {
			continue
		}
		seen[col.ForeignKeyTable] = true
		deps = append(deps, col.ForeignKeyTable)
	}
	return deps
}
