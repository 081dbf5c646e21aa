package seeder

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Rana718/fakeseed/internal/database/sqlite"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
)

func openMemory(t *testing.T, ddl ...string) *sqlite.Adapter {
	t.Helper()
	adapter := sqlite.New()
	if err := adapter.Connect(context.Background(), ":memory:"); err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	for _, stmt := range ddl {
		if _, err := adapter.DB().Exec(stmt); err != nil {
			t.Fatalf("Failed to run %q: %v", stmt, err)
		}
	}
	return adapter
}

func countRows(t *testing.T, adapter *sqlite.Adapter, table string) int {
	t.Helper()
	var n int
	if err := adapter.DB().QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func codeBatch(table string, from, n int) *Batch {
	batch := &Batch{Table: table, Columns: []string{"code", "name"}}
	for i := from; i < from+n; i++ {
		batch.Rows = append(batch.Rows, Row{"code": fmt.Sprintf("C%04d", i), "name": fmt.Sprintf("item %d", i)})
	}
	return batch
}

const itemsDDL = `CREATE TABLE items (id INTEGER PRIMARY KEY, code TEXT NOT NULL UNIQUE, name TEXT)`

func newLoader(adapter *sqlite.Adapter, batchSize int) *BulkLoader {
	return NewBulkLoader(adapter, batchSize, time.Minute, zerolog.Nop())
}

func TestLoadReplace(t *testing.T) {
	adapter := openMemory(t, itemsDDL)
	loader := newLoader(adapter, 30)
	ctx := context.Background()

	if _, err := loader.Load(ctx, codeBatch("items", 0, 40), ModeAppend); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	result, err := loader.Load(ctx, codeBatch("items", 0, 100), ModeReplace)
	if err != nil {
		t.Fatalf("Replace load failed: %v", err)
	}
	if got := countRows(t, adapter, "items"); got != 100 {
		t.Errorf("Expected 100 rows after replace, got %d", got)
	}
	if result.Deleted != 40 || result.Inserted != 100 {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestLoadAppend(t *testing.T) {
	adapter := openMemory(t, itemsDDL)
	loader := newLoader(adapter, 100)
	ctx := context.Background()

	if _, err := loader.Load(ctx, codeBatch("items", 0, 40), ModeAppend); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}
	if _, err := loader.Load(ctx, codeBatch("items", 40, 20), ParseMode("n")); err != nil {
		t.Fatalf("Append load failed: %v", err)
	}
	if got := countRows(t, adapter, "items"); got != 60 {
		t.Errorf("Expected 60 rows after append, got %d", got)
	}
}

func TestLoadReplaceRollsBackOnIntegrityViolation(t *testing.T) {
	adapter := openMemory(t, itemsDDL)
	loader := newLoader(adapter, 10)
	ctx := context.Background()

	if _, err := loader.Load(ctx, codeBatch("items", 0, 40), ModeAppend); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	bad := codeBatch("items", 0, 25)
	bad.Rows[22]["code"] = bad.Rows[3]["code"]

	_, err := loader.Load(ctx, bad, ModeReplace)
	if !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("Expected integrity violation, got %v", err)
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *LoadError, got %T", err)
	}
	if loadErr.Table != "items" || loadErr.Phase != PhaseInsert || loadErr.Row != 20 || loadErr.Rows != 5 {
		t.Errorf("Unexpected error location: %+v", loadErr)
	}
	if loadErr.Committed {
		t.Error("Single-table load must not report committed data")
	}
	if got := countRows(t, adapter, "items"); got != 40 {
		t.Errorf("Expected the original 40 rows after rollback, got %d", got)
	}
}

const (
	parentDDL = `CREATE TABLE parent (id INTEGER PRIMARY KEY, code TEXT NOT NULL UNIQUE, name TEXT)`
	childDDL  = `CREATE TABLE child (id INTEGER PRIMARY KEY, code TEXT NOT NULL UNIQUE, name TEXT, parent_id INTEGER NOT NULL REFERENCES parent(id))`
)

func childBatch(from, n int) *Batch {
	batch := codeBatch("child", from, n)
	batch.Columns = append(batch.Columns, "parent_id")
	for _, row := range batch.Rows {
		row["parent_id"] = 999999
	}
	batch.References = map[string]Reference{"parent_id": {Table: "parent", Column: "id"}}
	return batch
}

func TestLoadAllAtomicResolvesReferences(t *testing.T) {
	adapter := openMemory(t, parentDDL, childDDL)
	loader := newLoader(adapter, 7)
	ctx := context.Background()

	result, err := loader.LoadAll(ctx, []*Batch{codeBatch("parent", 0, 10), childBatch(0, 30)}, ModeReplace, true)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if result.Inserted() != 40 {
		t.Errorf("Expected 40 inserted rows, got %d", result.Inserted())
	}

	var orphans int
	err = adapter.DB().QueryRow(`SELECT COUNT(*) FROM child WHERE parent_id NOT IN (SELECT id FROM parent)`).Scan(&orphans)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected every child to reference a parent, got %d orphans", orphans)
	}

	// a second replace deletes children before parents
	if _, err := loader.LoadAll(ctx, []*Batch{codeBatch("parent", 0, 5), childBatch(0, 5)}, ModeReplace, true); err != nil {
		t.Fatalf("Second LoadAll failed: %v", err)
	}
	if countRows(t, adapter, "parent") != 5 || countRows(t, adapter, "child") != 5 {
		t.Errorf("Expected 5 rows in each table")
	}
}

func TestLoadAllAtomicRollsBackEverything(t *testing.T) {
	adapter := openMemory(t, parentDDL, childDDL)
	loader := newLoader(adapter, 100)
	ctx := context.Background()

	if _, err := loader.LoadAll(ctx, []*Batch{codeBatch("parent", 0, 10), childBatch(0, 10)}, ModeAppend, true); err != nil {
		t.Fatalf("Seed load failed: %v", err)
	}

	bad := childBatch(0, 10)
	bad.Rows[9]["code"] = bad.Rows[0]["code"]
	_, err := loader.LoadAll(ctx, []*Batch{codeBatch("parent", 0, 3), bad}, ModeReplace, true)

	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Committed || loadErr.Table != "child" {
		t.Fatalf("Expected rolled back LoadError for child, got %v", err)
	}
	if countRows(t, adapter, "parent") != 10 || countRows(t, adapter, "child") != 10 {
		t.Errorf("Atomic load must leave both tables untouched")
	}
}

func TestLoadAllTwoPhaseReportsCommittedDeletes(t *testing.T) {
	adapter := openMemory(t, parentDDL, childDDL)
	loader := newLoader(adapter, 100)
	ctx := context.Background()

	if _, err := loader.LoadAll(ctx, []*Batch{codeBatch("parent", 0, 10), childBatch(0, 10)}, ModeAppend, false); err != nil {
		t.Fatalf("Seed load failed: %v", err)
	}

	bad := childBatch(0, 10)
	bad.Rows[9]["code"] = bad.Rows[0]["code"]
	_, err := loader.LoadAll(ctx, []*Batch{codeBatch("parent", 0, 3), bad}, ModeReplace, false)

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *LoadError, got %v", err)
	}
	if !loadErr.Committed || !loadErr.Integrity {
		t.Errorf("Expected committed integrity failure, got %+v", loadErr)
	}
	if countRows(t, adapter, "parent") != 0 || countRows(t, adapter, "child") != 0 {
		t.Errorf("Two-phase load leaves the committed deletes in place")
	}
}

func TestLoadMissingParentRows(t *testing.T) {
	adapter := openMemory(t, parentDDL, childDDL)
	loader := newLoader(adapter, 100)

	_, err := loader.Load(context.Background(), childBatch(0, 3), ModeAppend)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Phase != PhaseRefs {
		t.Fatalf("Expected references failure, got %v", err)
	}
}

func TestLoadTimeout(t *testing.T) {
	adapter := openMemory(t, itemsDDL)
	loader := NewBulkLoader(adapter, 100, time.Nanosecond, zerolog.Nop())

	if _, err := loader.Load(context.Background(), codeBatch("items", 0, 10), ModeAppend); err == nil {
		t.Error("Expected the load to fail once the transaction deadline passed")
	}
	if got := countRows(t, adapter, "items"); got != 0 {
		t.Errorf("Expected no rows after timeout, got %d", got)
	}
}

const (
	postDDL    = `CREATE TABLE post (id INTEGER PRIMARY KEY, code TEXT NOT NULL UNIQUE, name TEXT)`
	tagDDL     = `CREATE TABLE tag (id INTEGER PRIMARY KEY, code TEXT NOT NULL UNIQUE, name TEXT)`
	postTagDDL = `CREATE TABLE post_tag (
		id INTEGER PRIMARY KEY,
		post_id INTEGER NOT NULL REFERENCES post(id),
		tag_id INTEGER NOT NULL REFERENCES tag(id),
		position INTEGER NOT NULL,
		UNIQUE (post_id, tag_id)
	)`
)

func postTagBatch(n int) *Batch {
	batch := &Batch{Table: "post_tag", Columns: []string{"post_id", "tag_id", "position"}}
	for i := 0; i < n; i++ {
		batch.Rows = append(batch.Rows, Row{"post_id": 1, "tag_id": 1, "position": i % 3})
	}
	batch.References = map[string]Reference{
		"post_id": {Table: "post", Column: "id"},
		"tag_id":  {Table: "tag", Column: "id"},
	}
	batch.UniqueTuples = [][]string{{"post_id", "tag_id"}}
	return batch
}

func TestLoadResolvesCompositeUniqueReferences(t *testing.T) {
	adapter := openMemory(t, postDDL, tagDDL, postTagDDL)
	loader := newLoader(adapter, 30)
	ctx := context.Background()

	parents := []*Batch{codeBatch("post", 0, 10), codeBatch("tag", 0, 10)}
	if _, err := loader.LoadAll(ctx, append(parents, postTagBatch(100)), ModeAppend, true); err != nil {
		t.Fatalf("Expected all 100 post/tag pairs to load, got %v", err)
	}
	if got := countRows(t, adapter, "post_tag"); got != 100 {
		t.Errorf("Expected 100 post_tag rows, got %d", got)
	}

	var posts int
	adapter.DB().QueryRow(`SELECT COUNT(DISTINCT post_id) FROM post_tag`).Scan(&posts)
	if posts != 10 {
		t.Errorf("Expected every post to be used, got %d", posts)
	}
}

func TestLoadCompositeUniqueReferencesCapacity(t *testing.T) {
	adapter := openMemory(t, postDDL, tagDDL, postTagDDL)
	loader := newLoader(adapter, 100)

	parents := []*Batch{codeBatch("post", 0, 10), codeBatch("tag", 0, 10)}
	_, err := loader.LoadAll(context.Background(), append(parents, postTagBatch(101)), ModeAppend, true)

	var capErr *UniquenessCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected capacity error for 101 pairs over 10x10 parents, got %v", err)
	}
	if capErr.Capacity != 100 || len(capErr.Columns) != 2 {
		t.Errorf("Unexpected capacity error: %+v", capErr)
	}
	if countRows(t, adapter, "post") != 0 {
		t.Error("Atomic load must roll back the parents too")
	}
}

func TestLoadCompositeUniqueWithGeneratedMember(t *testing.T) {
	adapter := openMemory(t, postDDL, tagDDL,
		`CREATE TABLE post_slot (
			id INTEGER PRIMARY KEY,
			post_id INTEGER NOT NULL REFERENCES post(id),
			slot INTEGER NOT NULL,
			UNIQUE (post_id, slot)
		)`)
	loader := newLoader(adapter, 100)

	batch := &Batch{Table: "post_slot", Columns: []string{"post_id", "slot"}}
	for i := 0; i < 40; i++ {
		batch.Rows = append(batch.Rows, Row{"post_id": 1, "slot": i % 4})
	}
	batch.References = map[string]Reference{"post_id": {Table: "post", Column: "id"}}
	batch.UniqueTuples = [][]string{{"post_id", "slot"}}

	if _, err := loader.LoadAll(context.Background(), []*Batch{codeBatch("post", 0, 10), batch}, ModeAppend, true); err != nil {
		t.Fatalf("Expected 40 distinct (post, slot) pairs out of 40, got %v", err)
	}
}

func TestResolveReferencesIsReproducible(t *testing.T) {
	load := func() []Row {
		adapter := openMemory(t, postDDL, tagDDL, postTagDDL)
		loader := newLoader(adapter, 100).WithFaker(gofakeit.New(11))
		batch := postTagBatch(30)
		batch.UniqueTuples = nil
		if _, err := loader.LoadAll(context.Background(),
			[]*Batch{codeBatch("post", 0, 10), codeBatch("tag", 0, 10), batch}, ModeAppend, true); err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		return batch.Rows
	}

	first, second := load(), load()
	for i := range first {
		if first[i]["post_id"] != second[i]["post_id"] || first[i]["tag_id"] != second[i]["tag_id"] {
			t.Fatalf("Row %d differs between runs with the same seed: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestAffectedRowsLogsDriverErrors(t *testing.T) {
	var buf bytes.Buffer
	loader := NewBulkLoader(nil, 10, time.Minute, zerolog.New(&buf).Level(zerolog.DebugLevel))

	if n := loader.affected(driver.RowsAffected(3), "items"); n != 3 {
		t.Errorf("Expected 3 affected rows, got %d", n)
	}
	if buf.Len() != 0 {
		t.Errorf("Nothing should be logged for a supported count, got %s", buf.String())
	}

	if n := loader.affected(driver.ResultNoRows, "items"); n != 0 {
		t.Errorf("Expected 0 when the driver cannot count, got %d", n)
	}
	if !strings.Contains(buf.String(), "driver does not report deleted rows") || !strings.Contains(buf.String(), `"table":"items"`) {
		t.Errorf("Expected a debug event for the driver error, got %s", buf.String())
	}
}
