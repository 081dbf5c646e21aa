package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/Rana718/fakeseed/internal/schema"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsIntegrityViolation(t *testing.T) {
	a := New()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"pgx unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgx fk", &pgconn.PgError{Code: "23503"}, true},
		{"pgx syntax", &pgconn.PgError{Code: "42601"}, false},
		{"pq not null", &pq.Error{Code: "23502"}, true},
		{"pq undefined table", &pq.Error{Code: "42P01"}, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		if got := a.IsIntegrityViolation(tt.err); got != tt.want {
			t.Errorf("%s: IsIntegrityViolation() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := New().QuoteIdent(`Flight"Log`); got != `"Flight""Log"` {
		t.Errorf("QuoteIdent() = %s", got)
	}
}

func TestFormatPostgresTypeFeedsParser(t *testing.T) {
	valid := func(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }
	none := sql.NullInt64{}

	tests := []struct {
		raw     string
		base    string
		size    int
		hasSize bool
	}{
		{formatPostgresType("character varying", "varchar", valid(30), none, none), "VARCHAR", 30, true},
		{formatPostgresType("character", "bpchar", valid(2), none, none), "CHAR", 2, true},
		{formatPostgresType("numeric", "numeric", none, valid(10), valid(2)), "DECIMAL", 10, true},
		{formatPostgresType("text", "text", none, none, none), "TEXT", 0, false},
		{formatPostgresType("USER-DEFINED", "mood", none, none, none), "MOOD", 0, false},
		{formatPostgresType("timestamp with time zone", "timestamptz", none, none, none), "TIMESTAMP", 0, false},
	}

	for _, tt := range tests {
		base, size, _ := schema.ParseType(tt.raw)
		if schema.FamilyOf(base) != schema.FamilyOf(tt.base) {
			t.Errorf("%q parsed to %s, want family of %s", tt.raw, base, tt.base)
		}
		if (size != nil) != tt.hasSize || (size != nil && *size != tt.size) {
			t.Errorf("%q size = %v, want %d", tt.raw, size, tt.size)
		}
	}
}
