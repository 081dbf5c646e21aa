package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/fakeseed/internal/database/common"
	mysqldriver "github.com/go-sql-driver/mysql"
)

type Adapter struct {
	db        *sql.DB
	qb        squirrel.StatementBuilderType
	currentDB string
}

// server error numbers raised when a row breaks a constraint
var integrityErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1216: true, // child row FK failure (legacy)
	1217: true, // parent row FK failure (legacy)
	1364: true, // field has no default
	1451: true, // cannot delete parent row
	1452: true, // cannot add child row
	1557: true, // duplicate key on foreign key update
	1586: true, // duplicate entry for composite key
	3819: true, // check constraint violated
}

func New() *Adapter {
	return &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// toDSN accepts either a go-sql-driver DSN or a mysql:// URL.
func toDSN(url string) string {
	if !strings.HasPrefix(url, "mysql://") {
		return url
	}
	dsn := strings.TrimPrefix(url, "mysql://")

	atIndex := strings.LastIndex(dsn, "@")
	if atIndex <= 0 {
		return dsn
	}
	credentials := dsn[:atIndex]
	remainder := dsn[atIndex+1:]

	slashIndex := strings.Index(remainder, "/")
	if slashIndex <= 0 {
		return fmt.Sprintf("%s@tcp(%s)/", credentials, remainder)
	}
	hostPort := remainder[:slashIndex]
	dbAndParams := remainder[slashIndex+1:]

	replacer := strings.NewReplacer(
		"ssl-mode=REQUIRED", "tls=skip-verify",
		"ssl-mode=DISABLED", "tls=false",
		"ssl-mode=VERIFY_CA", "tls=true",
		"ssl-mode=VERIFY_IDENTITY", "tls=true",
		"sslmode=require", "tls=skip-verify",
		"sslmode=disable", "tls=false",
	)
	dbAndParams = replacer.Replace(dbAndParams)

	return fmt.Sprintf("%s@tcp(%s)/%s", credentials, hostPort, dbAndParams)
}

func (m *Adapter) Connect(ctx context.Context, url string) error {
	dsn := toDSN(url)

	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	m.currentDB = cfg.DBName

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	m.db = db
	return nil
}

func (m *Adapter) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Adapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *Adapter) DB() *sql.DB { return m.db }

func (m *Adapter) Builder() squirrel.StatementBuilderType { return m.qb }

func (m *Adapter) Provider() string { return "mysql" }

func (m *Adapter) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *Adapter) IsIntegrityViolation(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return integrityErrors[myErr.Number]
	}
	return false
}

func (m *Adapter) TableRows(ctx context.Context, tableName string, limit uint64) ([]map[string]interface{}, error) {
	query := m.qb.Select("*").From(m.QuoteIdent(tableName))
	if limit > 0 {
		query = query.Limit(limit)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableName, err)
	}
	defer rows.Close()

	return common.ScanRows(rows)
}
