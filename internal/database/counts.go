package database

import (
	"context"
	"fmt"
)

// RowCounts returns the number of rows currently stored in each table.
func RowCounts(ctx context.Context, d Destination, tableNames []string) (map[string]int64, error) {
	result := make(map[string]int64, len(tableNames))
	for _, tableName := range tableNames {
		query, args, err := d.Builder().
			Select("COUNT(*)").
			From(d.QuoteIdent(tableName)).
			ToSql()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := d.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count rows in table %s: %w", tableName, err)
		}
		result[tableName] = count
	}
	return result, nil
}
