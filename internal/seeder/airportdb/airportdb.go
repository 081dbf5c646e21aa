// Package airportdb registers domain generators for the airportdb sample schema.
package airportdb

import (
	"strings"
	"time"

	"github.com/Rana718/fakeseed/internal/seeder"
	"github.com/brianvoe/gofakeit/v6"
)

const (
	airlineIATA code = "??"
	airportIATA code = "???"
	airportICAO code = "????"
	passportNo  code = "?########"
	flightNo    code = "???-####"
)

// Generators returns a fresh mapping; callers build a seeder.Registry from it.
func Generators() map[string]seeder.TableGenerator {
	return map[string]seeder.TableGenerator{
		"airline": {
			Columns:  []string{"iata", "airlinename", "base_airport"},
			Capacity: map[string]uint64{"iata": airlineIATA.Size()},
			Generate: airlines,
		},
		"airport": {
			Columns:  []string{"iata", "icao", "name"},
			Capacity: map[string]uint64{"icao": airportICAO.Size()},
			Generate: airports,
		},
		"passenger": {
			Columns:  []string{"passportno", "firstname", "lastname"},
			Capacity: map[string]uint64{"passportno": passportNo.Size()},
			Generate: passengers,
		},
		"flight": {
			Columns:  []string{"flightno", "from_airport", "to_airport", "departure", "arrival", "airline_id", "airplane_id"},
			Capacity: map[string]uint64{"flightno": flightNo.Size()},
			Generate: flights,
		},
	}
}

func Registry() (*seeder.Registry, error) {
	return seeder.NewRegistry(Generators())
}

const (
	maxDraws = 1000
	maxScan  = 1 << 22
)

// code is a fixed-width identifier pattern: '?' is an upper-case letter, '#'
// a digit, anything else is copied as is.
type code string

func (c code) Size() uint64 {
	n := uint64(1)
	for _, r := range c {
		switch r {
		case '?':
			n *= 26
		case '#':
			n *= 10
		}
	}
	return n
}

func (c code) Draw(f *gofakeit.Faker) string {
	return strings.ToUpper(f.Numerify(f.Lexify(string(c))))
}

// Nth returns the i-th value of the pattern in lexical order.
func (c code) Nth(i uint64) string {
	out := []byte(c)
	for p := len(out) - 1; p >= 0; p-- {
		switch out[p] {
		case '?':
			out[p] = byte('A' + i%26)
			i /= 26
		case '#':
			out[p] = byte('0' + i%10)
			i /= 10
		}
	}
	return string(out)
}

// uniqueCodes hands out distinct values of one pattern. Random draws come
// first; when they keep colliding it scans the pattern from a random offset so
// a nearly full space still fills.
type uniqueCodes struct {
	table  string
	column string
	c      code
	seen   map[string]struct{}
}

func newUniqueCodes(table, column string, c code, n int) *uniqueCodes {
	return &uniqueCodes{table: table, column: column, c: c, seen: make(map[string]struct{}, n)}
}

func (u *uniqueCodes) next(f *gofakeit.Faker, row int) (string, error) {
	for i := 0; i < maxDraws; i++ {
		if v := u.c.Draw(f); u.add(v) {
			return v, nil
		}
	}

	size := u.c.Size()
	start := f.Rand.Uint64() % size
	limit := size
	if limit > maxScan {
		limit = maxScan
	}
	for k := uint64(0); k < limit; k++ {
		if v := u.c.Nth((start + k) % size); u.add(v) {
			return v, nil
		}
	}
	return "", &seeder.UniquenessExhaustedError{Table: u.table, Columns: []string{u.column}, Row: row, Attempts: maxDraws}
}

func (u *uniqueCodes) add(v string) bool {
	if _, ok := u.seen[v]; ok {
		return false
	}
	u.seen[v] = struct{}{}
	return true
}

func airlines(f *gofakeit.Faker, n int) ([]seeder.Row, error) {
	iata := newUniqueCodes("airline", "iata", airlineIATA, n)
	rows := make([]seeder.Row, 0, n)
	for i := 0; i < n; i++ {
		v, err := iata.next(f, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, seeder.Row{
			"iata":         v,
			"airlinename":  truncate(f.Company()+" Airlines", 30),
			"base_airport": f.Number(1, 32000),
		})
	}
	return rows, nil
}

func airports(f *gofakeit.Faker, n int) ([]seeder.Row, error) {
	icao := newUniqueCodes("airport", "icao", airportICAO, n)
	rows := make([]seeder.Row, 0, n)
	for i := 0; i < n; i++ {
		v, err := icao.next(f, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, seeder.Row{
			"iata": airportIATA.Draw(f),
			"icao": v,
			"name": truncate(f.City()+" International Airport", 50),
		})
	}
	return rows, nil
}

func passengers(f *gofakeit.Faker, n int) ([]seeder.Row, error) {
	passport := newUniqueCodes("passenger", "passportno", passportNo, n)
	rows := make([]seeder.Row, 0, n)
	for i := 0; i < n; i++ {
		no, err := passport.next(f, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, seeder.Row{
			"passportno": no,
			"firstname":  truncate(f.FirstName(), 100),
			"lastname":   truncate(f.LastName(), 100),
		})
	}
	return rows, nil
}

func flights(f *gofakeit.Faker, n int) ([]seeder.Row, error) {
	numbers := newUniqueCodes("flight", "flightno", flightNo, n)
	rows := make([]seeder.Row, 0, n)
	for i := 0; i < n; i++ {
		no, err := numbers.next(f, i)
		if err != nil {
			return nil, err
		}
		departure := f.Date().UTC().Truncate(time.Second)
		arrival := f.DateRange(departure, departure.Add(18*time.Hour)).UTC().Truncate(time.Second)
		rows = append(rows, seeder.Row{
			"flightno":     no,
			"from_airport": f.Number(1, 20000),
			"to_airport":   f.Number(1, 20000),
			"departure":    departure,
			"arrival":      arrival,
			"airline_id":   f.Number(1, 20000),
			"airplane_id":  f.Number(1, 20000),
		})
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
