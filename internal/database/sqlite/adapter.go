package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/fakeseed/internal/database/common"
	"github.com/mattn/go-sqlite3"
)

type Adapter struct {
	db   *sql.DB
	qb   squirrel.StatementBuilderType
	path string
}

func New() *Adapter {
	return &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func (s *Adapter) Connect(ctx context.Context, url string) error {
	dbPath := strings.TrimPrefix(url, "sqlite://")
	inMemory := strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory")
	if !strings.Contains(dbPath, "?") && !inMemory {
		dbPath += "?_journal_mode=WAL"
	}
	if !strings.Contains(dbPath, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dbPath, "?") {
			sep = "&"
		}
		dbPath += sep + "_foreign_keys=on"
	}

	s.path = dbPath
	if idx := strings.Index(s.path, "?"); idx > 0 {
		s.path = s.path[:idx]
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	if inMemory {
		// every extra connection would open its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	s.db = db
	return nil
}

func (s *Adapter) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Adapter) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Adapter) DB() *sql.DB { return s.db }

func (s *Adapter) Builder() squirrel.StatementBuilderType { return s.qb }

func (s *Adapter) Provider() string { return "sqlite" }

func (s *Adapter) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *Adapter) IsIntegrityViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (s *Adapter) TableRows(ctx context.Context, tableName string, limit uint64) ([]map[string]interface{}, error) {
	query := s.qb.Select("*").From(s.QuoteIdent(tableName))
	if limit > 0 {
		query = query.Limit(limit)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableName, err)
	}
	defer rows.Close()

	return common.ScanRows(rows)
}
