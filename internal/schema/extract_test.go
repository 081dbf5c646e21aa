package schema

import (
	"testing"

	"github.com/Rana718/fakeseed/internal/types"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw      string
		base     string
		size     int
		hasSize  bool
		places   int
		hasPlace bool
	}{
		{raw: "VARCHAR(50)", base: "VARCHAR", size: 50, hasSize: true},
		{raw: "DECIMAL(10,2)", base: "DECIMAL", size: 10, hasSize: true, places: 2, hasPlace: true},
		{raw: "decimal(10, 0) unsigned", base: "DECIMAL", size: 10, hasSize: true, places: 0, hasPlace: true},
		{raw: "CHAR(2) CHARACTER SET ascii", base: "CHAR", size: 2, hasSize: true},
		{raw: "char(3) COLLATE utf8mb4_bin", base: "CHAR", size: 3, hasSize: true},
		{raw: "TEXT", base: "TEXT"},
		{raw: "DATETIME", base: "DATETIME"},
		{raw: "int unsigned zerofill", base: "INT"},
		{raw: "character varying(255)", base: "VARCHAR", size: 255, hasSize: true},
		{raw: "double precision", base: "DOUBLE"},
		{raw: "timestamp without time zone", base: "TIMESTAMP"},
		{raw: "enum('a','b')", base: "ENUM"},
		{raw: "NUMERIC(2,5)", base: "NUMERIC", size: 2, hasSize: true},
		{raw: "", base: ""},
		{raw: "???", base: ""},
	}

	for _, tt := range tests {
		base, size, places := ParseType(tt.raw)
		if base != tt.base {
			t.Errorf("ParseType(%q) base = %q, want %q", tt.raw, base, tt.base)
		}
		if (size != nil) != tt.hasSize || (size != nil && *size != tt.size) {
			t.Errorf("ParseType(%q) size = %v, want %d (present=%v)", tt.raw, size, tt.size, tt.hasSize)
		}
		if (places != nil) != tt.hasPlace || (places != nil && *places != tt.places) {
			t.Errorf("ParseType(%q) decimal places = %v, want %d (present=%v)", tt.raw, places, tt.places, tt.hasPlace)
		}
	}
}

func TestFamilyOf(t *testing.T) {
	tests := map[string]types.Family{
		"BIGINT":    types.FamilyInteger,
		"tinyint":   types.FamilyTinyInt,
		"CHAR":      types.FamilyChar,
		"VARCHAR":   types.FamilyVarchar,
		"DECIMAL":   types.FamilyDecimal,
		"TIMESTAMP": types.FamilyTimestamp,
		"UUID":      types.FamilyUUID,
		"GEOMETRY":  types.FamilyUnknown,
		"":          types.FamilyUnknown,
	}
	for base, want := range tests {
		if got := FamilyOf(base); got != want {
			t.Errorf("FamilyOf(%q) = %v, want %v", base, got, want)
		}
	}
}

func TestExtractColumn(t *testing.T) {
	indexes := []types.CatalogIndex{
		{Name: "uq_code", Columns: []string{"code"}, Unique: true},
		{Name: "uq_pair", Columns: []string{"a", "b"}, Unique: true},
		{Name: "ix_name", Columns: []string{"name"}},
	}

	code := ExtractColumn(types.CatalogColumn{Name: "code", RawType: "char(2)"}, indexes)
	if !code.Unique || code.Family != types.FamilyChar || *code.Size != 2 {
		t.Errorf("Unexpected code metadata: %+v", code)
	}

	member := ExtractColumn(types.CatalogColumn{Name: "B", RawType: "int"}, indexes)
	if !member.Unique {
		t.Error("Composite unique members are flagged unique")
	}

	name := ExtractColumn(types.CatalogColumn{Name: "name", RawType: "varchar(20)"}, indexes)
	if name.Unique {
		t.Error("Non-unique index must not set the unique flag")
	}

	status := ExtractColumn(types.CatalogColumn{Name: "status", RawType: "enum('x','y')", EnumValues: []string{"x", "y"}}, nil)
	if status.Family != types.FamilyEnum || len(status.EnumValues) != 2 || status.Size != nil {
		t.Errorf("Unexpected enum metadata: %+v", status)
	}

	id := ExtractColumn(types.CatalogColumn{Name: "id", RawType: "serial", IsPrimary: true, IsAutoIncrement: true}, nil)
	if !id.Primary || !id.AutoGenerated || !id.Distinct() {
		t.Errorf("Unexpected id metadata: %+v", id)
	}

	odd := ExtractColumn(types.CatalogColumn{Name: "geom", RawType: "geometry(Point,4326)"}, nil)
	if odd.Family != types.FamilyUnknown {
		t.Errorf("Expected unknown family, got %v", odd.Family)
	}
}

func TestBuildTable(t *testing.T) {
	table := BuildTable("seats",
		[]types.CatalogColumn{
			{Name: "id", RawType: "INTEGER", IsPrimary: true, IsAutoIncrement: true},
			{Name: "row_no", RawType: "SMALLINT"},
			{Name: "letter", RawType: "CHAR(1)"},
		},
		[]types.CatalogIndex{{Name: "uq_seat", Columns: []string{"row_no", "letter"}, Unique: true}},
	)

	if len(table.PrimaryKey) != 1 || table.PrimaryKey[0] != "id" {
		t.Errorf("PrimaryKey = %v", table.PrimaryKey)
	}
	if len(table.UniqueColumns) != 2 {
		t.Errorf("UniqueColumns = %v", table.UniqueColumns)
	}
	if len(table.UniqueIndexes) != 1 || len(table.UniqueIndexes[0]) != 2 {
		t.Errorf("UniqueIndexes = %v", table.UniqueIndexes)
	}
	cols := table.InsertableColumns()
	if len(cols) != 2 || cols[0] != "row_no" {
		t.Errorf("InsertableColumns() = %v", cols)
	}
}
