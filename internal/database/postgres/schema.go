package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Rana718/fakeseed/internal/schema"
	"github.com/Rana718/fakeseed/internal/types"
)

func (p *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]string, 0, 32)
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

func (p *Adapter) tableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func (p *Adapter) ReflectTable(ctx context.Context, tableName string) (*types.TableMetadata, error) {
	exists, err := p.tableExists(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	if !exists {
		return nil, &types.SchemaNotFoundError{Table: tableName}
	}

	enums, err := p.enumLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read enum types: %w", err)
	}

	columns, err := p.catalogColumns(ctx, tableName, enums)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", tableName, err)
	}

	indexes, primary, err := p.catalogIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", tableName, err)
	}

	foreignKeys, err := p.foreignKeys(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", tableName, err)
	}

	for i := range columns {
		col := &columns[i]
		col.IsPrimary = primary[col.Name]
		if fk, ok := foreignKeys[col.Name]; ok {
			col.ForeignKeyTable = fk[0]
			col.ForeignKeyColumn = fk[1]
		}
	}

	return schema.BuildTable(tableName, columns, indexes), nil
}

func (p *Adapter) enumLabels(ctx context.Context) (map[string][]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname IN (current_schema(), 'public')
		ORDER BY t.typname, e.enumsortorder
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enumMap := make(map[string][]string)
	for rows.Next() {
		var enumName, enumValue string
		if err := rows.Scan(&enumName, &enumValue); err != nil {
			return nil, err
		}
		enumMap[enumName] = append(enumMap[enumName], enumValue)
	}
	return enumMap, rows.Err()
}

func (p *Adapter) catalogColumns(ctx context.Context, tableName string, enums map[string][]string) ([]types.CatalogColumn, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_identity,
			c.is_generated,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []types.CatalogColumn
	for rows.Next() {
		var name, dataType, udtName, isNullable, isIdentity, isGenerated, comment string
		var columnDefault sql.NullString
		var charMaxLength, numericPrecision, numericScale sql.NullInt64

		if err := rows.Scan(&name, &dataType, &udtName, &isNullable, &columnDefault,
			&charMaxLength, &numericPrecision, &numericScale, &isIdentity, &isGenerated, &comment); err != nil {
			return nil, err
		}

		col := types.CatalogColumn{
			Name:     name,
			RawType:  formatPostgresType(dataType, udtName, charMaxLength, numericPrecision, numericScale),
			Nullable: isNullable == "YES",
			Default:  columnDefault.String,
			IsAutoIncrement: strings.Contains(strings.ToLower(columnDefault.String), "nextval(") ||
				isIdentity == "YES" || isGenerated == "ALWAYS",
			Comment: comment,
		}
		if labels, ok := enums[udtName]; ok && dataType == "USER-DEFINED" {
			col.RawType = "enum"
			col.EnumValues = labels
		}

		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// catalogIndexes returns the non-primary indexes and the primary key columns.
func (p *Adapter) catalogIndexes(ctx context.Context, tableName string) ([]types.CatalogIndex, map[string]bool, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT i.relname, a.attname, ix.indisunique, ix.indisprimary
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE t.relname = $1 AND n.nspname = current_schema()
		ORDER BY i.relname, k.ord
	`, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	primary := make(map[string]bool)
	var indexes []types.CatalogIndex
	position := make(map[string]int)
	for rows.Next() {
		var indexName, columnName string
		var unique, isPrimary bool
		if err := rows.Scan(&indexName, &columnName, &unique, &isPrimary); err != nil {
			return nil, nil, err
		}

		if isPrimary {
			primary[columnName] = true
			continue
		}
		if i, ok := position[indexName]; ok {
			indexes[i].Columns = append(indexes[i].Columns, columnName)
			continue
		}
		position[indexName] = len(indexes)
		indexes = append(indexes, types.CatalogIndex{
			Name:    indexName,
			Columns: []string{columnName},
			Unique:  unique,
		})
	}
	return indexes, primary, rows.Err()
}

// foreignKeys maps a column to its referenced [table, column].
func (p *Adapter) foreignKeys(ctx context.Context, tableName string) (map[string][2]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.attname, ft.relname, fa.attname
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class ft ON ft.oid = con.confrelid
		CROSS JOIN LATERAL UNNEST(con.conkey, con.confkey) AS k(src_col, tgt_col)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.src_col
		JOIN pg_attribute fa ON fa.attrelid = ft.oid AND fa.attnum = k.tgt_col
		WHERE con.contype = 'f' AND t.relname = $1 AND n.nspname = current_schema()
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][2]string)
	for rows.Next() {
		var column, refTable, refColumn string
		if err := rows.Scan(&column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		if _, ok := result[column]; !ok {
			result[column] = [2]string{refTable, refColumn}
		}
	}
	return result, rows.Err()
}

// formatPostgresType renders information_schema fields back into a declared
// type string, e.g. "character varying(50)" or "numeric(10,2)".
func formatPostgresType(dataType, udtName string, charMaxLength, numericPrecision, numericScale sql.NullInt64) string {
	switch dataType {
	case "character varying", "character":
		if charMaxLength.Valid {
			return fmt.Sprintf("%s(%d)", dataType, charMaxLength.Int64)
		}
		return dataType
	case "numeric":
		if numericPrecision.Valid && numericScale.Valid {
			return fmt.Sprintf("numeric(%d,%d)", numericPrecision.Int64, numericScale.Int64)
		}
		if numericPrecision.Valid {
			return fmt.Sprintf("numeric(%d)", numericPrecision.Int64)
		}
		return "numeric"
	case "USER-DEFINED", "ARRAY":
		return udtName
	default:
		return dataType
	}
}
