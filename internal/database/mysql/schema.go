package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Rana718/fakeseed/internal/schema"
	"github.com/Rana718/fakeseed/internal/types"
)

func (m *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

func (m *Adapter) tableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
	`, tableName).Scan(&count)
	return count > 0, err
}

func (m *Adapter) ReflectTable(ctx context.Context, tableName string) (*types.TableMetadata, error) {
	exists, err := m.tableExists(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	if !exists {
		return nil, &types.SchemaNotFoundError{Table: tableName}
	}

	columns, err := m.catalogColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", tableName, err)
	}

	indexes, err := m.catalogIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", tableName, err)
	}

	return schema.BuildTable(tableName, columns, indexes), nil
}

func (m *Adapter) catalogColumns(ctx context.Context, tableName string) ([]types.CatalogColumn, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.column_key,
			c.extra,
			c.column_comment,
			k.referenced_table_name,
			k.referenced_column_name
		FROM information_schema.columns c
		LEFT JOIN information_schema.key_column_usage k
			ON c.table_schema = k.table_schema
			AND c.table_name = k.table_name
			AND c.column_name = k.column_name
			AND k.referenced_table_name IS NOT NULL
		WHERE c.table_schema = DATABASE() AND c.table_name = ?
		ORDER BY c.ordinal_position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []types.CatalogColumn
	seen := make(map[string]bool)
	for rows.Next() {
		var name, dataType, columnType, isNullable, columnKey, extra, comment string
		var columnDefault, refTable, refColumn sql.NullString

		if err := rows.Scan(&name, &dataType, &columnType, &isNullable, &columnDefault,
			&columnKey, &extra, &comment, &refTable, &refColumn); err != nil {
			return nil, err
		}

		// a column referencing several parents shows up once per constraint
		if seen[name] {
			continue
		}
		seen[name] = true

		extraLower := strings.ToLower(extra)
		col := types.CatalogColumn{
			Name:      name,
			RawType:   columnType,
			Nullable:  isNullable == "YES",
			Default:   columnDefault.String,
			IsPrimary: columnKey == "PRI",
			IsAutoIncrement: strings.Contains(extraLower, "auto_increment") ||
				strings.Contains(extraLower, "virtual generated") ||
				strings.Contains(extraLower, "stored generated"),
			Comment:          comment,
			ForeignKeyTable:  refTable.String,
			ForeignKeyColumn: refColumn.String,
		}
		if strings.EqualFold(dataType, "enum") {
			col.EnumValues = extractEnumValues(columnType)
		}

		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (m *Adapter) catalogIndexes(ctx context.Context, tableName string) ([]types.CatalogIndex, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []types.CatalogIndex
	position := make(map[string]int)
	for rows.Next() {
		var indexName, columnName string
		var nonUnique int
		if err := rows.Scan(&indexName, &columnName, &nonUnique); err != nil {
			return nil, err
		}

		if i, ok := position[indexName]; ok {
			indexes[i].Columns = append(indexes[i].Columns, columnName)
			continue
		}
		position[indexName] = len(indexes)
		indexes = append(indexes, types.CatalogIndex{
			Name:    indexName,
			Columns: []string{columnName},
			Unique:  nonUnique == 0,
		})
	}
	return indexes, rows.Err()
}

// extractEnumValues reads the literal list out of a column_type such as
// enum('a','it''s','b,c').
func extractEnumValues(columnType string) []string {
	lower := strings.ToLower(columnType)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(columnType, ")") {
		return nil
	}
	body := columnType[len("enum(") : len(columnType)-1]

	var values []string
	var current strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\'' && inQuote && i+1 < len(body) && body[i+1] == '\'':
			current.WriteByte('\'')
			i++
		case ch == '\'':
			if inQuote {
				values = append(values, current.String())
				current.Reset()
			}
			inQuote = !inQuote
		case inQuote:
			current.WriteByte(ch)
		}
	}
	return values
}
