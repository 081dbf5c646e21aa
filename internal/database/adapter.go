package database

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/fakeseed/internal/types"
)

// Introspector reflects live catalog metadata. It never reads row data.
type Introspector interface {
	// ListTables returns the base tables of the connected schema in catalog order.
	ListTables(ctx context.Context) ([]string, error)
	// ReflectTable fails with *types.SchemaNotFoundError when the table is absent.
	ReflectTable(ctx context.Context, tableName string) (*types.TableMetadata, error)
}

// Destination is a store rows can be deleted from and inserted into.
type Destination interface {
	DB() *sql.DB
	Builder() squirrel.StatementBuilderType
	QuoteIdent(name string) string
	IsIntegrityViolation(err error) bool
	Provider() string
}

type DatabaseAdapter interface {
	Introspector
	Destination

	Connect(ctx context.Context, url string) error
	Close() error
	Ping(ctx context.Context) error

	TableRows(ctx context.Context, tableName string, limit uint64) ([]map[string]interface{}, error)
}
