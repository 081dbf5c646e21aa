package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/Rana718/fakeseed/internal/database/common"
	"github.com/Rana718/fakeseed/internal/schema"
	"github.com/Rana718/fakeseed/internal/types"
)

var enumLiteralRegex = regexp.MustCompile(`'((?:[^']|'')*)'`)

func (s *Adapter) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
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

// tableSQL returns the CREATE TABLE statement, or "" when the table is absent.
func (s *Adapter) tableSQL(ctx context.Context, tableName string) (string, error) {
	var ddl sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Scan(&ddl)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !ddl.Valid {
		return " ", nil
	}
	return ddl.String, nil
}

func (s *Adapter) ReflectTable(ctx context.Context, tableName string) (*types.TableMetadata, error) {
	// PRAGMA arguments cannot be bound, so only plain identifiers are reflected
	if err := common.ValidateIdentifier(tableName); err != nil {
		return nil, &types.SchemaNotFoundError{Table: tableName}
	}

	ddl, err := s.tableSQL(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	if ddl == "" {
		return nil, &types.SchemaNotFoundError{Table: tableName}
	}

	columns, err := s.catalogColumns(ctx, tableName, ddl)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", tableName, err)
	}

	indexes, err := s.catalogIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", tableName, err)
	}

	if err := s.applyForeignKeys(ctx, tableName, columns); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", tableName, err)
	}

	return schema.BuildTable(tableName, columns, indexes), nil
}

func (s *Adapter) catalogColumns(ctx context.Context, tableName, ddl string) ([]types.CatalogColumn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(\"%s\")", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []types.CatalogColumn
	var pkCount int
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		if pk > 0 {
			pkCount++
		}

		columns = append(columns, types.CatalogColumn{
			Name:       name,
			RawType:    dataType,
			Nullable:   notNull == 0 && pk == 0,
			Default:    defaultValue.String,
			IsPrimary:  pk > 0,
			EnumValues: checkInValues(ddl, name),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// a lone INTEGER PRIMARY KEY aliases the rowid and is assigned by SQLite
	if pkCount == 1 {
		for i := range columns {
			if columns[i].IsPrimary && strings.EqualFold(strings.TrimSpace(columns[i].RawType), "INTEGER") {
				columns[i].IsAutoIncrement = true
			}
		}
	}
	return columns, nil
}

func (s *Adapter) catalogIndexes(ctx context.Context, tableName string) ([]types.CatalogIndex, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(\"%s\")", tableName))
	if err != nil {
		return nil, err
	}

	var indexes []types.CatalogIndex
	for rows.Next() {
		var seq, unique, partial int
		var indexName, origin string
		if err := rows.Scan(&seq, &indexName, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		if origin == "pk" {
			continue
		}
		indexes = append(indexes, types.CatalogIndex{Name: indexName, Unique: unique == 1})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// column lookups run after index_list is closed; in-memory stores hold a single connection
	for i := range indexes {
		cols, err := s.indexColumns(ctx, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = cols
	}
	return indexes, nil
}

func (s *Adapter) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(\"%s\")", strings.ReplaceAll(indexName, `"`, `""`)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

type foreignKey struct {
	seq   int
	table string
	from  string
	to    string
}

func (s *Adapter) applyForeignKeys(ctx context.Context, tableName string, columns []types.CatalogColumn) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(\"%s\")", tableName))
	if err != nil {
		return err
	}

	var fks []foreignKey
	for rows.Next() {
		var id, seq int
		var table, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			rows.Close()
			return err
		}
		fks = append(fks, foreignKey{seq: seq, table: table, from: from, to: to.String})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// REFERENCES parent without a column list targets the parent's primary key
	for i := range fks {
		if fks[i].to != "" {
			continue
		}
		pk, err := s.primaryKey(ctx, fks[i].table)
		if err != nil {
			return err
		}
		if fks[i].seq < len(pk) {
			fks[i].to = pk[fks[i].seq]
		}
	}

	for _, fk := range fks {
		if fk.to == "" {
			continue
		}
		for i := range columns {
			if columns[i].Name == fk.from && columns[i].ForeignKeyTable == "" {
				columns[i].ForeignKeyTable = fk.table
				columns[i].ForeignKeyColumn = fk.to
				break
			}
		}
	}
	return nil
}

// primaryKey returns the primary key columns of table in key order.
func (s *Adapter) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	if err := common.ValidateIdentifier(tableName); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(\"%s\")", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPosition := make(map[int]string)
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		if pk > 0 {
			byPosition[pk] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(byPosition))
	for i := 1; i <= len(byPosition); i++ {
		keys = append(keys, byPosition[i])
	}
	return keys, nil
}

// checkInValues treats CHECK (col IN ('a','b')) as SQLite's spelling of an enum.
func checkInValues(ddl, column string) []string {
	pattern := `(?is)CHECK\s*\(\s*["` + "`" + `\[]?` + regexp.QuoteMeta(column) + `["` + "`" + `\]]?\s+IN\s*\(([^)]*)\)\s*\)`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	m := re.FindStringSubmatch(ddl)
	if m == nil {
		return nil
	}

	var values []string
	for _, lit := range enumLiteralRegex.FindAllStringSubmatch(m[1], -1) {
		values = append(values, strings.ReplaceAll(lit[1], "''", "'"))
	}
	return values
}
