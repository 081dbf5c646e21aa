package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Rana718/fakeseed/internal/types"
)

var (
	// base keyword, optional (size) or (size, decimal_place)
	typeRegex      = regexp.MustCompile(`^\s*([a-z_][a-z0-9_]*(?:\s+(?:varying|precision))?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?`)
	qualifierRegex = regexp.MustCompile(`(?i)\s+(?:character\s+set|charset|collate)\s+\S+`)
	signRegex      = regexp.MustCompile(`(?i)\s+(?:unsigned|signed|zerofill)\b`)
)

var typeAliases = map[string]string{
	"character varying": "VARCHAR",
	"character":         "CHAR",
	"double precision":  "DOUBLE",
	"bpchar":            "CHAR",
	"int2":              "SMALLINT",
	"int4":              "INTEGER",
	"int8":              "BIGINT",
	"float4":            "REAL",
	"float8":            "DOUBLE",
	"timestamptz":       "TIMESTAMP",
	"timetz":            "TIME",
	"dec":               "DECIMAL",
}

var familyByType = map[string]types.Family{
	"INT": types.FamilyInteger, "INTEGER": types.FamilyInteger, "BIGINT": types.FamilyInteger,
	"SMALLINT": types.FamilyInteger, "MEDIUMINT": types.FamilyInteger,
	"SERIAL": types.FamilyInteger, "BIGSERIAL": types.FamilyInteger, "SMALLSERIAL": types.FamilyInteger,
	"TINYINT": types.FamilyTinyInt,
	"BOOL": types.FamilyBoolean, "BOOLEAN": types.FamilyBoolean,
	"CHAR": types.FamilyChar, "NCHAR": types.FamilyChar,
	"VARCHAR": types.FamilyVarchar, "NVARCHAR": types.FamilyVarchar, "VARCHAR2": types.FamilyVarchar,
	"TEXT": types.FamilyText, "TINYTEXT": types.FamilyText, "MEDIUMTEXT": types.FamilyText,
	"LONGTEXT": types.FamilyText, "CLOB": types.FamilyText, "CITEXT": types.FamilyText,
	"DECIMAL": types.FamilyDecimal, "NUMERIC": types.FamilyDecimal,
	"FLOAT": types.FamilyFloat, "DOUBLE": types.FamilyFloat, "REAL": types.FamilyFloat,
	"DATE":      types.FamilyDate,
	"TIME":      types.FamilyTime,
	"DATETIME":  types.FamilyDateTime,
	"TIMESTAMP": types.FamilyTimestamp,
	"YEAR":      types.FamilyYear,
	"ENUM":      types.FamilyEnum,
	"UUID":      types.FamilyUUID,
}

// ParseType splits a raw declared type such as "DECIMAL(10,2)" or
// "CHAR(2) CHARACTER SET ascii" into its base keyword, size and decimal place.
// Anything it cannot read is left empty; it never fails.
func ParseType(raw string) (base string, size, decimalPlace *int) {
	cleaned := qualifierRegex.ReplaceAllString(raw, "")
	cleaned = signRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))

	m := typeRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return "", nil, nil
	}

	keyword := strings.Join(strings.Fields(m[1]), " ")
	if alias, ok := typeAliases[keyword]; ok {
		base = alias
	} else {
		// "character varying" style names that are not aliased keep only the first word
		base = strings.ToUpper(strings.Fields(keyword)[0])
	}

	size = atoiPtr(m[2])
	decimalPlace = atoiPtr(m[3])
	if size != nil && decimalPlace != nil && *decimalPlace > *size {
		decimalPlace = nil
	}
	return base, size, decimalPlace
}

func atoiPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// FamilyOf maps a base keyword returned by ParseType to its synthesis family.
func FamilyOf(base string) types.Family {
	if f, ok := familyByType[strings.ToUpper(base)]; ok {
		return f
	}
	return types.FamilyUnknown
}

// ExtractColumn builds the constraint record for one catalog column. A column is
// flagged unique when it belongs to any unique index, composite ones included.
func ExtractColumn(col types.CatalogColumn, indexes []types.CatalogIndex) types.ColumnMetadata {
	base, size, decimalPlace := ParseType(col.RawType)

	meta := types.ColumnMetadata{
		Name:             col.Name,
		RawType:          col.RawType,
		Type:             base,
		Family:           FamilyOf(base),
		Size:             size,
		DecimalPlace:     decimalPlace,
		Nullable:         col.Nullable,
		Primary:          col.IsPrimary,
		AutoGenerated:    col.IsAutoIncrement,
		ForeignKeyTable:  col.ForeignKeyTable,
		ForeignKeyColumn: col.ForeignKeyColumn,
		Comment:          col.Comment,
	}

	if len(col.EnumValues) > 0 {
		meta.Family = types.FamilyEnum
		meta.EnumValues = append([]string(nil), col.EnumValues...)
		if meta.Type == "" {
			meta.Type = "ENUM"
		}
	}

	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		if containsFold(idx.Columns, col.Name) {
			meta.Unique = true
			break
		}
	}

	return meta
}

// BuildTable assembles TableMetadata from reflected catalog records.
func BuildTable(name string, columns []types.CatalogColumn, indexes []types.CatalogIndex) *types.TableMetadata {
	table := &types.TableMetadata{
		Name:    name,
		Columns: make([]types.ColumnMetadata, 0, len(columns)),
	}

	for _, col := range columns {
		meta := ExtractColumn(col, indexes)
		if meta.Primary {
			table.PrimaryKey = append(table.PrimaryKey, meta.Name)
		}
		if meta.Unique {
			table.UniqueColumns = append(table.UniqueColumns, meta.Name)
		}
		table.Columns = append(table.Columns, meta)
	}

	for _, idx := range indexes {
		if !idx.Unique || len(idx.Columns) == 0 {
			continue
		}
		table.UniqueIndexes = append(table.UniqueIndexes, append([]string(nil), idx.Columns...))
	}

	return table
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
