package seeder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Rana718/fakeseed/internal/types"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
)

const (
	airportDDL = `CREATE TABLE airport (
		airport_id INTEGER PRIMARY KEY,
		iata CHAR(3) NOT NULL,
		icao CHAR(4) NOT NULL UNIQUE,
		name VARCHAR(50) NOT NULL
	)`
	flightDDL = `CREATE TABLE flight (
		flight_id INTEGER PRIMARY KEY,
		flightno CHAR(8) NOT NULL UNIQUE,
		from_airport INTEGER NOT NULL REFERENCES airport(airport_id),
		departure DATETIME NOT NULL,
		fare DECIMAL(8,2),
		status TEXT CHECK (status IN ('scheduled','boarding','landed'))
	)`
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.RandomSeed = 42
	opts.Count = 40
	return opts
}

func TestSeedTableReplaceAndAppend(t *testing.T) {
	adapter := openMemory(t, airportDDL)
	ctx := context.Background()

	opts := testOptions()
	s := New(adapter, nil, opts, zerolog.Nop())
	if _, err := s.SeedTable(ctx, "airport"); err != nil {
		t.Fatalf("Initial seed failed: %v", err)
	}
	if got := countRows(t, adapter, "airport"); got != 40 {
		t.Fatalf("Expected 40 rows, got %d", got)
	}

	opts.Count = 100
	opts.Mode = ParseMode("y")
	result, err := New(adapter, nil, opts, zerolog.Nop()).SeedTable(ctx, "airport")
	if err != nil {
		t.Fatalf("Replace seed failed: %v", err)
	}
	if got := countRows(t, adapter, "airport"); got != 100 {
		t.Errorf("Expected 100 rows after replace, got %d", got)
	}
	if result.Tables[0].Deleted != 40 {
		t.Errorf("Expected 40 deleted rows, got %d", result.Tables[0].Deleted)
	}

	// a different seed, so the appended rows do not repeat the stored ones
	opts.Count = 20
	opts.RandomSeed = 7
	opts.Mode = ParseMode("whatever")
	if _, err := New(adapter, nil, opts, zerolog.Nop()).SeedTable(ctx, "airport"); err != nil {
		t.Fatalf("Append seed failed: %v", err)
	}
	if got := countRows(t, adapter, "airport"); got != 120 {
		t.Errorf("Expected 120 rows after append, got %d", got)
	}
}

func TestSeedTableUnknownTable(t *testing.T) {
	adapter := openMemory(t, airportDDL)
	_, err := New(adapter, nil, testOptions(), zerolog.Nop()).SeedTable(context.Background(), "nope")
	if !errors.Is(err, types.ErrSchemaNotFound) {
		t.Errorf("Expected SchemaNotFoundError, got %v", err)
	}
}

func TestSeedAllOrdersParentsFirst(t *testing.T) {
	// flight is created first so catalog order alone would insert children first
	adapter := openMemory(t, flightDDL, airportDDL)
	ctx := context.Background()

	opts := testOptions()
	opts.Mode = ModeReplace
	opts.Tables = map[string]int{"flight": 60}

	var progressed []string
	s := New(adapter, nil, opts, zerolog.Nop())
	s.OnProgress(func(table string, done, total int) {
		if done == total {
			progressed = append(progressed, table)
		}
	})

	result, err := s.SeedAll(ctx)
	if err != nil {
		t.Fatalf("SeedAll failed: %v", err)
	}
	if len(result.Tables) != 2 || result.Tables[0].Table != "airport" {
		t.Fatalf("Expected airport first, got %+v", result.Tables)
	}
	if countRows(t, adapter, "airport") != 40 || countRows(t, adapter, "flight") != 60 {
		t.Errorf("Unexpected row counts")
	}
	if len(progressed) != 2 {
		t.Errorf("Expected progress for both tables, got %v", progressed)
	}

	var bad int
	err = adapter.DB().QueryRow(`SELECT COUNT(*) FROM flight
		WHERE status NOT IN ('scheduled','boarding','landed')
		   OR from_airport NOT IN (SELECT airport_id FROM airport)`).Scan(&bad)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if bad != 0 {
		t.Errorf("Found %d flights with invalid status or airport", bad)
	}
}

func TestSeedAllChecksCapacityBeforeGenerating(t *testing.T) {
	adapter := openMemory(t,
		`CREATE TABLE small (code CHAR(1) PRIMARY KEY)`,
		airportDDL,
	)
	opts := testOptions()
	opts.Count = 500

	generated := 0
	s := New(adapter, nil, opts, zerolog.Nop())
	s.OnProgress(func(string, int, int) { generated++ })

	_, err := s.SeedAll(context.Background())
	if !errors.Is(err, ErrUniquenessCapacity) {
		t.Fatalf("Expected capacity error, got %v", err)
	}
	if generated != 0 {
		t.Errorf("Expected no rows generated, got %d progress events", generated)
	}
	if countRows(t, adapter, "airport") != 0 {
		t.Error("Nothing should be loaded")
	}
}

func TestSeedTableUsesPreset(t *testing.T) {
	adapter := openMemory(t, airportDDL)
	registry, err := NewRegistry(map[string]TableGenerator{
		"airport": {
			Columns: []string{"iata", "icao", "name"},
			Generate: func(f *gofakeit.Faker, n int) ([]Row, error) {
				rows := make([]Row, n)
				for i := range rows {
					rows[i] = Row{"iata": "ICN", "icao": fmt.Sprintf("P%03d", i), "name": "Preset"}
				}
				return rows, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	opts := testOptions()
	opts.Count = 5
	if _, err := New(adapter, registry, opts, zerolog.Nop()).SeedTable(context.Background(), "airport"); err != nil {
		t.Fatalf("SeedTable failed: %v", err)
	}

	var presets int
	adapter.DB().QueryRow(`SELECT COUNT(*) FROM airport WHERE name = 'Preset'`).Scan(&presets)
	if presets != 5 {
		t.Errorf("Expected 5 preset rows, got %d", presets)
	}

	opts.UsePresets = false
	if _, err := New(adapter, registry, opts, zerolog.Nop()).SeedTable(context.Background(), "airport"); err != nil {
		t.Fatalf("SeedTable without presets failed: %v", err)
	}
	adapter.DB().QueryRow(`SELECT COUNT(*) FROM airport WHERE name = 'Preset'`).Scan(&presets)
	if presets != 5 {
		t.Errorf("Type-based rows should not use the preset, got %d preset rows", presets)
	}
}

func TestGenerateAllLeavesStoreUntouched(t *testing.T) {
	adapter := openMemory(t, flightDDL, airportDDL)

	batches, err := New(adapter, nil, testOptions(), zerolog.Nop()).GenerateAll(context.Background())
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if len(batches) != 2 || batches[0].Table != "airport" || batches[1].Table != "flight" {
		t.Fatalf("Expected airport then flight, got %d batches", len(batches))
	}
	if len(batches[1].Rows) != 40 {
		t.Errorf("Expected 40 flight rows, got %d", len(batches[1].Rows))
	}

	ref, ok := batches[1].References["from_airport"]
	if !ok || ref.Table != "airport" || ref.Column != "airport_id" {
		t.Errorf("Expected from_airport to reference airport.airport_id, got %+v", batches[1].References)
	}
	for _, col := range batches[0].Columns {
		if col == "airport_id" {
			t.Error("Auto-generated key should not be a generated column")
		}
	}

	if countRows(t, adapter, "airport") != 0 || countRows(t, adapter, "flight") != 0 {
		t.Error("GenerateAll must not write rows")
	}
}

const airlineDDL = `CREATE TABLE airline (
	airline_id INTEGER PRIMARY KEY,
	iata CHAR(2) NOT NULL UNIQUE,
	airlinename VARCHAR(30),
	base_airport INTEGER NOT NULL
)`

func airlinePreset() map[string]TableGenerator {
	return map[string]TableGenerator{
		"airline": {
			Columns:  []string{"iata", "airlinename", "base_airport"},
			Capacity: map[string]uint64{"iata": 26 * 26},
			Generate: func(f *gofakeit.Faker, n int) ([]Row, error) {
				rows := make([]Row, n)
				for i := range rows {
					rows[i] = Row{
						"iata":         string([]byte{byte('A' + i/26), byte('A' + i%26)}),
						"airlinename":  "Preset",
						"base_airport": i + 1,
					}
				}
				return rows, nil
			},
		},
	}
}

func TestGenerateAllChecksPresetCapacity(t *testing.T) {
	adapter := openMemory(t, airlineDDL)
	registry, err := NewRegistry(airlinePreset())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	opts := testOptions()
	opts.Count = 800
	generated := 0
	s := New(adapter, registry, opts, zerolog.Nop())
	s.OnProgress(func(string, int, int) { generated++ })

	if _, err := s.GenerateAll(context.Background()); !errors.Is(err, ErrUniquenessCapacity) {
		t.Fatalf("Expected capacity error for 800 two-letter codes, got %v", err)
	}
	if _, err := s.SeedAll(context.Background()); !errors.Is(err, ErrUniquenessCapacity) || errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("SeedAll should fail before loading, got %v", err)
	}
	if generated != 0 || countRows(t, adapter, "airline") != 0 {
		t.Errorf("Nothing should be generated or loaded")
	}

	opts.Count = 676
	if _, err := New(adapter, registry, opts, zerolog.Nop()).SeedAll(context.Background()); err != nil {
		t.Fatalf("676 codes fit the space: %v", err)
	}
}

func TestSeedAllJunctionTableTupleScope(t *testing.T) {
	adapter := openMemory(t,
		`CREATE TABLE post (id INTEGER PRIMARY KEY, title VARCHAR(40) NOT NULL)`,
		`CREATE TABLE tag (id INTEGER PRIMARY KEY, label VARCHAR(20) NOT NULL UNIQUE)`,
		`CREATE TABLE post_tag (
			post_id INTEGER NOT NULL REFERENCES post,
			tag_id INTEGER NOT NULL REFERENCES tag,
			PRIMARY KEY (post_id, tag_id)
		)`,
	)

	opts := testOptions()
	opts.UniqueScope = ScopeTuple
	opts.Tables = map[string]int{"post": 10, "tag": 10, "post_tag": 50}

	if _, err := New(adapter, nil, opts, zerolog.Nop()).SeedAll(context.Background()); err != nil {
		t.Fatalf("SeedAll failed: %v", err)
	}
	if got := countRows(t, adapter, "post_tag"); got != 50 {
		t.Errorf("Expected 50 post_tag rows, got %d", got)
	}

	var orphans int
	adapter.DB().QueryRow(`SELECT COUNT(*) FROM post_tag
		WHERE post_id NOT IN (SELECT id FROM post) OR tag_id NOT IN (SELECT id FROM tag)`).Scan(&orphans)
	if orphans != 0 {
		t.Errorf("Found %d post_tag rows without parents", orphans)
	}
}
