package seeder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/fakeseed/internal/database"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
)

// BulkLoader writes row batches to a destination inside explicit transactions.
type BulkLoader struct {
	fake      *gofakeit.Faker
	dest      database.Destination
	batchSize int
	txTimeout time.Duration
	log       zerolog.Logger
}

func NewBulkLoader(dest database.Destination, batchSize int, txTimeout time.Duration, log zerolog.Logger) *BulkLoader {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BulkLoader{fake: gofakeit.New(0), dest: dest, batchSize: batchSize, txTimeout: txTimeout, log: log}
}

// WithFaker sets the random source used to pick foreign key values.
func (l *BulkLoader) WithFaker(f *gofakeit.Faker) *BulkLoader {
	l.fake = f
	return l
}

func (l *BulkLoader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.txTimeout > 0 {
		return context.WithTimeout(ctx, l.txTimeout)
	}
	return context.WithCancel(ctx)
}

// Load deletes (in replace mode) and inserts one table in a single
// transaction. Any failure rolls both steps back.
func (l *BulkLoader) Load(ctx context.Context, batch *Batch, mode Mode) (*TableResult, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tx, err := l.dest.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, l.loadError(batch.Table, PhaseBegin, -1, 0, false, err)
	}

	result := &TableResult{Table: batch.Table}
	if mode == ModeReplace {
		if result.Deleted, err = l.deleteAll(ctx, tx, batch.Table); err != nil {
			tx.Rollback()
			return nil, l.loadError(batch.Table, PhaseDelete, -1, 0, false, err)
		}
	}

	if result.Inserted, err = l.insert(ctx, tx, batch); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, l.loadError(batch.Table, PhaseCommit, -1, 0, false, err)
	}

	l.log.Debug().Str("table", batch.Table).Str("mode", mode.String()).
		Int64("deleted", result.Deleted).Int64("inserted", result.Inserted).Msg("table loaded")
	return result, nil
}

// LoadAll loads batches given in dependency order. Deletes run children first.
// With atomic set everything shares one transaction; otherwise deletes commit
// in one transaction and inserts in a second, and a failed insert phase
// returns a *LoadError with Committed set when rows were already deleted.
func (l *BulkLoader) LoadAll(ctx context.Context, batches []*Batch, mode Mode, atomic bool) (*LoadResult, error) {
	if atomic {
		return l.loadAllAtomic(ctx, batches, mode)
	}
	return l.loadAllTwoPhase(ctx, batches, mode)
}

func (l *BulkLoader) loadAllAtomic(ctx context.Context, batches []*Batch, mode Mode) (*LoadResult, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tx, err := l.dest.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, l.loadError("*", PhaseBegin, -1, 0, false, err)
	}

	results := newResults(batches)
	if mode == ModeReplace {
		for i := len(batches) - 1; i >= 0; i-- {
			deleted, err := l.deleteAll(ctx, tx, batches[i].Table)
			if err != nil {
				tx.Rollback()
				return nil, l.loadError(batches[i].Table, PhaseDelete, -1, 0, false, err)
			}
			results.Tables[i].Deleted = deleted
		}
	}

	for i, batch := range batches {
		inserted, err := l.insert(ctx, tx, batch)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		results.Tables[i].Inserted = inserted
	}

	if err := tx.Commit(); err != nil {
		return nil, l.loadError("*", PhaseCommit, -1, 0, false, err)
	}

	l.log.Debug().Int("tables", len(batches)).Int64("inserted", results.Inserted()).Msg("all tables loaded")
	return results, nil
}

func (l *BulkLoader) loadAllTwoPhase(ctx context.Context, batches []*Batch, mode Mode) (*LoadResult, error) {
	results := newResults(batches)
	deleted := false

	if mode == ModeReplace {
		err := l.inTx(ctx, "*", func(ctx context.Context, tx *sql.Tx) error {
			for i := len(batches) - 1; i >= 0; i-- {
				n, err := l.deleteAll(ctx, tx, batches[i].Table)
				if err != nil {
					return l.loadError(batches[i].Table, PhaseDelete, -1, 0, false, err)
				}
				results.Tables[i].Deleted = n
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		deleted = true
		l.log.Debug().Int("tables", len(batches)).Msg("delete phase committed")
	}

	err := l.inTx(ctx, "*", func(ctx context.Context, tx *sql.Tx) error {
		for i, batch := range batches {
			n, err := l.insert(ctx, tx, batch)
			if err != nil {
				return err
			}
			results.Tables[i].Inserted = n
		}
		return nil
	})
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Committed = deleted
			return nil, le
		}
		return nil, err
	}
	return results, nil
}

func (l *BulkLoader) inTx(ctx context.Context, table string, fn func(context.Context, *sql.Tx) error) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tx, err := l.dest.DB().BeginTx(ctx, nil)
	if err != nil {
		return l.loadError(table, PhaseBegin, -1, 0, false, err)
	}
	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return l.loadError(table, PhaseCommit, -1, 0, false, err)
	}
	return nil
}

func (l *BulkLoader) deleteAll(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	query, args, err := l.dest.Builder().Delete(l.dest.QuoteIdent(table)).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return l.affected(res, table), nil
}

// affected counts a driver that cannot report affected rows as zero.
func (l *BulkLoader) affected(res sql.Result, table string) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		l.log.Debug().Err(err).Str("table", table).Msg("driver does not report deleted rows")
		return 0
	}
	return n
}

const (
	// maxParentValues bounds how many parent keys are read per foreign key.
	maxParentValues = 50000
	// maxTupleAttempts bounds redraws of foreign keys in a composite unique
	// index that also holds generated columns.
	maxTupleAttempts = 1000
)

// resolveReferences rewrites foreign key columns with keys that exist in the
// parent table as seen by tx. Distinct columns get keys without repetition and
// composite unique groups get distinct key tuples. Columns are visited in
// batch order so a fixed seed replays the same draws.
func (l *BulkLoader) resolveReferences(ctx context.Context, tx *sql.Tx, batch *Batch) error {
	keys := make(map[string][]interface{}, len(batch.References))
	for _, column := range batch.Columns {
		ref, ok := batch.References[column]
		if !ok {
			continue
		}
		k, err := l.parentKeys(ctx, tx, ref)
		if err != nil {
			return err
		}
		keys[column] = k
	}

	resolved := make(map[string]bool, len(keys))
	for _, group := range batch.UniqueTuples {
		if err := l.resolveTuple(batch, group, keys, resolved); err != nil {
			return err
		}
	}

	for _, column := range batch.Columns {
		ref, ok := batch.References[column]
		if !ok || resolved[column] {
			continue
		}
		resolved[column] = true
		if err := l.resolveColumn(batch, column, ref, keys[column]); err != nil {
			return err
		}
	}
	return nil
}

func (l *BulkLoader) parentKeys(ctx context.Context, tx *sql.Tx, ref Reference) ([]interface{}, error) {
	query, args, err := l.dest.Builder().
		Select(l.dest.QuoteIdent(ref.Column)).Distinct().
		From(l.dest.QuoteIdent(ref.Table)).
		Where(squirrel.NotEq{l.dest.QuoteIdent(ref.Column): nil}).
		Limit(maxParentValues).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", ref.Table, ref.Column, err)
	}
	defer rows.Close()

	var keys []interface{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		keys = append(keys, v)
	}
	return keys, rows.Err()
}

// withoutParentKeys handles an empty parent: nullable columns become NULL and
// self references keep their generated values.
func withoutParentKeys(batch *Batch, column string, ref Reference) error {
	if ref.Nullable {
		for _, row := range batch.Rows {
			row[column] = nil
		}
		return nil
	}
	if strings.EqualFold(ref.Table, batch.Table) {
		return nil
	}
	return fmt.Errorf("parent table %s has no rows for %s.%s", ref.Table, batch.Table, column)
}

func (l *BulkLoader) resolveColumn(batch *Batch, column string, ref Reference, keys []interface{}) error {
	if len(keys) == 0 {
		return withoutParentKeys(batch, column, ref)
	}

	if ref.Distinct {
		if len(keys) < len(batch.Rows) {
			return &UniquenessCapacityError{Table: batch.Table, Columns: []string{column}, Requested: len(batch.Rows), Capacity: uint64(len(keys))}
		}
		for i, idx := range l.sample(uint64(len(keys)), len(batch.Rows)) {
			batch.Rows[i][column] = keys[idx]
		}
	} else {
		for _, row := range batch.Rows {
			row[column] = keys[l.randBelow(uint64(len(keys)))]
		}
	}
	l.log.Debug().Str("table", batch.Table).Str("column", column).Str("parent", ref.Table).
		Int("keys", len(keys)).Msg("foreign keys resolved")
	return nil
}

// resolveTuple assigns the foreign key members of a composite unique group so
// that the whole group stays distinct. Members already resolved by an earlier
// group and generated columns are held fixed.
func (l *BulkLoader) resolveTuple(batch *Batch, group []string, keys map[string][]interface{}, resolved map[string]bool) error {
	var members, fixed []string
	for _, column := range group {
		if _, ok := batch.References[column]; ok && !resolved[column] {
			members = append(members, column)
		} else {
			fixed = append(fixed, column)
		}
	}
	if len(members) == 0 {
		return nil
	}

	var live []string
	nullTuple := false
	for _, column := range members {
		resolved[column] = true
		ref := batch.References[column]
		if len(keys[column]) > 0 {
			live = append(live, column)
			continue
		}
		if err := withoutParentKeys(batch, column, ref); err != nil {
			return err
		}
		if ref.Nullable {
			nullTuple = true
		} else {
			fixed = append(fixed, column)
		}
	}

	// a NULL member exempts every row from the unique index
	if nullTuple {
		for _, column := range live {
			ref := batch.References[column]
			ref.Distinct = false
			if err := l.resolveColumn(batch, column, ref, keys[column]); err != nil {
				return err
			}
		}
		return nil
	}
	if len(live) == 0 {
		return nil
	}

	sizes := make([]uint64, len(live))
	product := uint64(1)
	for i, column := range live {
		sizes[i] = uint64(len(keys[column]))
		product = mulSat(product, sizes[i])
	}

	if len(fixed) == 0 {
		if uint64(len(batch.Rows)) > product {
			return &UniquenessCapacityError{Table: batch.Table, Columns: group, Requested: len(batch.Rows), Capacity: product}
		}
		for i, idx := range l.sample(product, len(batch.Rows)) {
			for j := len(live) - 1; j >= 0; j-- {
				batch.Rows[i][live[j]] = keys[live[j]][idx%sizes[j]]
				idx /= sizes[j]
			}
		}
		l.log.Debug().Str("table", batch.Table).Strs("columns", group).Uint64("tuples", product).
			Msg("foreign key tuples resolved")
		return nil
	}

	seen := make(map[string]struct{}, len(batch.Rows))
	for i, row := range batch.Rows {
		placed := false
		for attempt := 0; attempt < maxTupleAttempts && !placed; attempt++ {
			for j, column := range live {
				row[column] = keys[column][l.randBelow(sizes[j])]
			}
			key, ok := groupKey(row, group)
			if !ok {
				placed = true
				break
			}
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				placed = true
			}
		}
		if !placed {
			return &UniquenessExhaustedError{Table: batch.Table, Columns: group, Row: i, Attempts: maxTupleAttempts}
		}
	}
	return nil
}

// groupKey reports false when a member is NULL.
func groupKey(row Row, group []string) (string, bool) {
	parts := make([]string, len(group))
	for i, column := range group {
		v := row[column]
		if v == nil {
			return "", false
		}
		parts[i] = valueKey(v)
	}
	return strings.Join(parts, "\x00"), true
}

// sample draws k distinct values from [0, n) with a sparse Fisher-Yates
// shuffle. k must not exceed n.
func (l *BulkLoader) sample(n uint64, k int) []uint64 {
	swapped := make(map[uint64]uint64, k)
	at := func(i uint64) uint64 {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}

	out := make([]uint64, k)
	for i := 0; i < k; i++ {
		u := uint64(i)
		j := u + l.randBelow(n-u)
		out[i] = at(j)
		swapped[j] = at(u)
	}
	return out
}

func (l *BulkLoader) randBelow(n uint64) uint64 {
	if n > math.MaxInt64 {
		n = math.MaxInt64
	}
	return uint64(l.fake.Rand.Int63n(int64(n)))
}

// insert writes the batch in multi-row statements of at most batchSize rows.
func (l *BulkLoader) insert(ctx context.Context, tx *sql.Tx, batch *Batch) (int64, error) {
	if len(batch.Rows) == 0 || len(batch.Columns) == 0 {
		return 0, nil
	}

	if len(batch.References) > 0 {
		if err := l.resolveReferences(ctx, tx, batch); err != nil {
			return 0, l.loadError(batch.Table, PhaseRefs, -1, 0, false, err)
		}
	}

	quoted := make([]string, len(batch.Columns))
	for i, col := range batch.Columns {
		quoted[i] = l.dest.QuoteIdent(col)
	}

	var total int64
	for start := 0; start < len(batch.Rows); start += l.batchSize {
		end := start + l.batchSize
		if end > len(batch.Rows) {
			end = len(batch.Rows)
		}

		stmt := l.dest.Builder().Insert(l.dest.QuoteIdent(batch.Table)).Columns(quoted...)
		for _, row := range batch.Rows[start:end] {
			values := make([]interface{}, len(batch.Columns))
			for i, col := range batch.Columns {
				values[i] = row[col]
			}
			stmt = stmt.Values(values...)
		}

		query, args, err := stmt.ToSql()
		if err != nil {
			return total, l.loadError(batch.Table, PhaseInsert, start, end-start, false, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return total, l.loadError(batch.Table, PhaseInsert, start, end-start, false, err)
		}
		total += int64(end - start)
		l.log.Debug().Str("table", batch.Table).Int("from", start).Int("to", end).Msg("rows inserted")
	}
	return total, nil
}

func (l *BulkLoader) loadError(table string, phase LoadPhase, row, rows int, committed bool, err error) *LoadError {
	return &LoadError{
		Table:     table,
		Phase:     phase,
		Row:       row,
		Rows:      rows,
		Committed: committed,
		Integrity: l.dest.IsIntegrityViolation(err),
		Err:       fmt.Errorf("%s: %w", phase, err),
	}
}

func newResults(batches []*Batch) *LoadResult {
	results := &LoadResult{Tables: make([]TableResult, len(batches))}
	for i, batch := range batches {
		results.Tables[i].Table = batch.Table
	}
	return results
}
