package seeder

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Row maps a column name to a synthesized value.
type Row map[string]interface{}

// Batch is a set of rows destined for one table. Columns fixes the INSERT
// column order; every row carries exactly these keys.
type Batch struct {
	Table   string
	Columns []string
	Rows    []Row

	// References maps a foreign key column to its parent. The loader rewrites
	// these columns with values read from the parent inside the transaction.
	References map[string]Reference
	// UniqueTuples lists composite unique groups holding a foreign key column.
	// The loader resolves those keys so every group stays distinct.
	UniqueTuples [][]string
}

type Reference struct {
	Table    string
	Column   string
	Nullable bool
	Distinct bool
}

// UniqueScope selects how composite unique indexes are honoured.
type UniqueScope string

const (
	// ScopeColumn treats every member of a unique index as independently unique.
	ScopeColumn UniqueScope = "column"
	// ScopeTuple only enforces distinct tuples for composite unique indexes.
	ScopeTuple UniqueScope = "tuple"
)

// ParseUniqueScope accepts column or tuple in any letter case.
func ParseUniqueScope(s string) (UniqueScope, error) {
	switch scope := UniqueScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case ScopeColumn, ScopeTuple:
		return scope, nil
	default:
		return "", fmt.Errorf("unsupported unique scope %q (use column or tuple)", s)
	}
}

type Options struct {
	Count       int
	Tables      map[string]int // per-table counts
	Mode        Mode
	BatchSize   int
	RandomSeed  int64
	MaxAttempts int
	UniqueScope UniqueScope
	AtomicAll   bool
	TxTimeout   time.Duration
	UsePresets  bool
}

func DefaultOptions() Options {
	return Options{
		Count:       100,
		Mode:        ModeAppend,
		BatchSize:   100,
		MaxAttempts: 1000,
		UniqueScope: ScopeColumn,
		AtomicAll:   true,
		TxTimeout:   5 * time.Minute,
		UsePresets:  true,
	}
}

// CountFor returns the per-table override or the default count.
func (o Options) CountFor(table string) int {
	if n, ok := o.Tables[table]; ok {
		return n
	}
	return o.Count
}

// TableGenerator produces domain-realistic rows for one table. Generate must be
// pure with respect to the faker it receives. Capacity holds the distinct value
// space of each column the generator keeps unique; the registry refuses counts
// beyond it before Generate runs.
type TableGenerator struct {
	Columns  []string
	Capacity map[string]uint64
	Generate func(f *gofakeit.Faker, count int) ([]Row, error)
}

type TableResult struct {
	Table    string `json:"table" yaml:"table"`
	Deleted  int64  `json:"deleted" yaml:"deleted"`
	Inserted int64  `json:"inserted" yaml:"inserted"`
}

type LoadResult struct {
	Tables []TableResult `json:"tables" yaml:"tables"`
}

func (r *LoadResult) Inserted() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Inserted
	}
	return n
}

func (r *LoadResult) Deleted() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Deleted
	}
	return n
}
